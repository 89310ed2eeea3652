package templatestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Client abstracts the S3 API operations used by [S3Files].
// The [s3.Client] type satisfies this interface.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Files implements FileStore backed by Amazon S3 or any S3-compatible
// object store (MinIO, R2, etc.).
//
// All storage paths are mapped to S3 keys under an optional prefix.
// Objects are uploaded whole on Close; S3 makes a PutObject visible
// atomically, so readers see either the old or the new object.
type S3Files struct {
	client S3Client
	bucket string
	prefix string
}

// NewS3Files creates an S3-backed FileStore.
//
// The client should be pre-configured (credentials, region, endpoint).
// Prefix is prepended to all object keys; pass "" for no prefix.
func NewS3Files(client S3Client, bucket, prefix string) *S3Files {
	return &S3Files{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3Files) key(path string) string {
	if s.prefix == "" {
		return path
	}
	return s.prefix + "/" + path
}

// Read returns an error wrapping os.ErrNotExist if the key does not exist.
func (s *S3Files) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("s3 read %s: %w", path, os.ErrNotExist)
		}
		return nil, err
	}
	return out.Body, nil
}

// Write buffers the object in memory and uploads it on Close.
func (s *S3Files) Write(ctx context.Context, path string) (io.WriteCloser, error) {
	return &s3Writer{ctx: ctx, s: s, path: path}, nil
}

// Delete removes the named object. S3 DeleteObject already succeeds for
// missing keys.
func (s *S3Files) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil && isS3NotFound(err) {
		return nil
	}
	return err
}

func (s *S3Files) List(ctx context.Context, dir string) ([]string, error) {
	prefix := s.key(strings.TrimSuffix(dir, "/")) + "/"
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	var names []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name != "" && !strings.Contains(name, "/") {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

type s3Writer struct {
	ctx  context.Context
	s    *S3Files
	path string
	buf  bytes.Buffer
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	_, err := w.s.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket:        aws.String(w.s.bucket),
		Key:           aws.String(w.s.key(w.path)),
		Body:          bytes.NewReader(w.buf.Bytes()),
		ContentLength: aws.Int64(int64(w.buf.Len())),
		ContentType:   aws.String("application/msgpack"),
	})
	return err
}

// isS3NotFound reports whether err indicates the S3 object does not exist.
func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

var _ FileStore = (*S3Files)(nil)
