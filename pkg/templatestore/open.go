package templatestore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Open opens a Store from a URL:
//
//	memory://                     in-process, lost on exit
//	badger:///var/lib/voxkey      BadgerDB directory
//	file:///var/lib/voxkey        one msgpack file per owner
//	s3://bucket/prefix            one object per owner
//
// S3 URLs use the default AWS credential chain and accept the query
// parameters region, endpoint and path_style=true for S3-compatible
// object stores.
func Open(ctx context.Context, rawURL string) (Store, error) {
	switch {
	case rawURL == "memory://" || rawURL == "memory":
		return NewMemory(), nil
	case strings.HasPrefix(rawURL, "badger://"):
		dir := strings.TrimPrefix(rawURL, "badger://")
		if dir == "" {
			return nil, fmt.Errorf("templatestore: badger URL %q has no directory", rawURL)
		}
		return NewBadger(BadgerOptions{Dir: dir})
	case strings.HasPrefix(rawURL, "file://"):
		dir := strings.TrimPrefix(rawURL, "file://")
		if dir == "" {
			return nil, fmt.Errorf("templatestore: file URL %q has no directory", rawURL)
		}
		fs, err := NewLocalFiles(dir)
		if err != nil {
			return nil, storageErr("open", "", err)
		}
		return NewFiles(fs), nil
	case strings.HasPrefix(rawURL, "s3://"):
		return openS3(ctx, rawURL)
	default:
		return nil, fmt.Errorf("templatestore: unsupported store URL %q", rawURL)
	}
}

func openS3(ctx context.Context, rawURL string) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("templatestore: parse %q: %w", rawURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("templatestore: s3 URL %q has no bucket", rawURL)
	}
	q := u.Query()

	var opts []func(*awsconfig.LoadOptions) error
	if region := q.Get("region"); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, storageErr("load aws config", "", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if ep := q.Get("endpoint"); ep != "" {
			o.BaseEndpoint = aws.String(ep)
		}
		if q.Get("path_style") == "true" {
			o.UsePathStyle = true
		}
	})
	return NewFiles(NewS3Files(client, u.Host, u.Path)), nil
}
