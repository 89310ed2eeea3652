package voiceauth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/haivivi/voxkey/pkg/voiceprint"
)

var errBadRequest = errors.New("voiceauth: bad request")

// Recording is one raw audio buffer on the wire: 16kHz mono little-endian
// float32 samples, standard base64 encoded in JSON and YAML. The samples
// are decoded by the Service so that a malformed buffer only fails its
// own recording.
type Recording []byte

// NewRecording encodes samples as a Recording.
func NewRecording(samples []float32) Recording {
	return voiceprint.EncodeFloat32LE(samples)
}

// MarshalJSON implements json.Marshaler.
func (r Recording) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Recording) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return errors.New("unmarshal recording: empty data")
	}
	switch data[0] {
	case 'n': // null
		return nil
	case '"':
		if len(data) < 2 || data[len(data)-1] != '"' {
			return errors.New("unmarshal recording: invalid string")
		}
		return r.decode(string(data[1 : len(data)-1]))
	default:
		return fmt.Errorf("unmarshal recording: expected base64 string, got %.16s", data)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Recording) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("unmarshal recording: line %d: expected base64 string", node.Line)
	}
	return r.decode(node.Value)
}

func (r *Recording) decode(s string) error {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("unmarshal recording: %w", err)
	}
	*r = raw
	return nil
}

// String returns the base64 encoding.
func (r Recording) String() string {
	return base64.StdEncoding.EncodeToString(r)
}

// EnrollRequest is the body of an enrollment call.
type EnrollRequest struct {
	OwnerID    string      `json:"owner_id" yaml:"owner_id"`
	Recordings []Recording `json:"recordings" yaml:"recordings"`
}

// Buffers returns the raw recording buffers.
func (r *EnrollRequest) Buffers() [][]byte {
	out := make([][]byte, len(r.Recordings))
	for i, rec := range r.Recordings {
		out[i] = rec
	}
	return out
}

// EnrollResponse reports an enrollment outcome. Success false with an
// Error is a handled failure, not a transport error.
type EnrollResponse struct {
	Success      bool   `json:"success" yaml:"success"`
	Used         int    `json:"used" yaml:"used"`
	Failed       int    `json:"failed" yaml:"failed"`
	EnrollmentID string `json:"enrollment_id,omitempty" yaml:"enrollment_id,omitempty"`
	Error        string `json:"error,omitempty" yaml:"error,omitempty"`
	Code         string `json:"code,omitempty" yaml:"code,omitempty"`
}

// NewEnrollResponse builds the wire response for an Enroll call.
func NewEnrollResponse(res *EnrollResult, err error) EnrollResponse {
	var resp EnrollResponse
	if res != nil {
		resp.Used = res.Used
		resp.Failed = len(res.Failures)
		if res.Template != nil {
			resp.EnrollmentID = res.Template.EnrollmentID
		}
	}
	if err != nil {
		resp.Error = err.Error()
		resp.Code = Code(err)
		return resp
	}
	resp.Success = true
	return resp
}

// VerifyRequest is the body of a verification call.
//
// Path names a local audio file instead of an inline Recording. Only the
// CLI honours it; the HTTP handler rejects requests that set it.
type VerifyRequest struct {
	OwnerID   string    `json:"owner_id" yaml:"owner_id"`
	Recording Recording `json:"recording,omitempty" yaml:"recording,omitempty"`
	Path      string    `json:"path,omitempty" yaml:"path,omitempty"`
}

// VerifyResponse reports a verification decision.
type VerifyResponse struct {
	Accepted   bool    `json:"accepted" yaml:"accepted"`
	Similarity float64 `json:"similarity" yaml:"similarity"`
	Threshold  float64 `json:"threshold" yaml:"threshold"`
	Confidence string  `json:"confidence" yaml:"confidence"`
}

// NewVerifyResponse builds the wire response for a verification result.
func NewVerifyResponse(r voiceprint.Result) VerifyResponse {
	return VerifyResponse{
		Accepted:   r.Accepted,
		Similarity: r.Similarity,
		Threshold:  r.Threshold,
		Confidence: r.Confidence(),
	}
}

// ErrorResponse is the body reported for a failed call.
type ErrorResponse struct {
	Error string `json:"error" yaml:"error"`
	Code  string `json:"code" yaml:"code"`
}

// NewErrorResponse builds the wire form of err.
func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{Error: err.Error(), Code: Code(err)}
}

// TemplateInfo is the metadata of a stored template. The embedding itself
// is never exposed.
type TemplateInfo struct {
	OwnerID      string    `json:"owner_id" yaml:"owner_id"`
	Dim          int       `json:"dim" yaml:"dim"`
	SampleRate   int       `json:"sample_rate" yaml:"sample_rate"`
	Model        string    `json:"model,omitempty" yaml:"model,omitempty"`
	Recordings   int       `json:"recordings" yaml:"recordings"`
	EnrollmentID string    `json:"enrollment_id,omitempty" yaml:"enrollment_id,omitempty"`
	Fingerprint  string    `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// NewTemplateInfo returns the metadata view of t.
func NewTemplateInfo(t *voiceprint.Template) TemplateInfo {
	return TemplateInfo{
		OwnerID:      t.OwnerID,
		Dim:          t.Dim,
		SampleRate:   t.SampleRate,
		Model:        t.Model,
		Recordings:   t.Recordings,
		EnrollmentID: t.EnrollmentID,
		Fingerprint:  voiceprint.TemplateFingerprint(t),
		CreatedAt:    t.CreatedAt,
	}
}
