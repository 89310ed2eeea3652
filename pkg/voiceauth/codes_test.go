package voiceauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/haivivi/voxkey/pkg/templatestore"
	"github.com/haivivi/voxkey/pkg/voiceprint"
)

func TestCode(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{nil, "", http.StatusOK},
		{fmt.Errorf("x: %w", voiceprint.ErrInvalidAudio), CodeInvalidAudio, http.StatusBadRequest},
		{&voiceprint.DimensionMismatchError{Expected: 3, Actual: 2}, CodeDimensionMismatch, http.StatusUnprocessableEntity},
		{voiceprint.ErrNoValidEmbeddings, CodeNoValidEmbeddings, http.StatusUnprocessableEntity},
		{voiceprint.ErrDegenerateEmbedding, CodeDegenerateEmbedding, http.StatusUnprocessableEntity},
		{&voiceprint.ExtractionError{Model: "m", Reason: errors.New("boom")}, CodeExtractionError, http.StatusInternalServerError},
		{fmt.Errorf("%w after 1s", voiceprint.ErrExtractionTimeout), CodeExtractionTimeout, http.StatusGatewayTimeout},
		{templatestore.ErrTemplateNotFound, CodeTemplateNotFound, http.StatusNotFound},
		{templatestore.ErrInvalidOwnerID, CodeInvalidOwnerID, http.StatusBadRequest},
		{fmt.Errorf("%w: disk full", templatestore.ErrStorage), CodeStorageError, http.StatusInternalServerError},
		{context.Canceled, CodeCanceled, 499},
		{errors.New("something else"), CodeInternal, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := Code(c.err); got != c.code {
			t.Errorf("Code(%v) = %q, want %q", c.err, got, c.code)
		}
		if got := HTTPStatus(c.err); got != c.status {
			t.Errorf("HTTPStatus(%v) = %d, want %d", c.err, got, c.status)
		}
	}
}

func TestCodePrecedence(t *testing.T) {
	// A corrupt stored record is a storage error even though it wraps a
	// dimension mismatch.
	err := fmt.Errorf("%w: load: %w", templatestore.ErrStorage, &voiceprint.DimensionMismatchError{Expected: 4, Actual: 3})
	if got := Code(err); got != CodeStorageError {
		t.Fatalf("Code = %q, want %q", got, CodeStorageError)
	}

	// An extraction timeout is not reported as a generic extraction error.
	err = fmt.Errorf("%w: %w", voiceprint.ErrExtraction, voiceprint.ErrExtractionTimeout)
	if got := Code(err); got != CodeExtractionTimeout {
		t.Fatalf("Code = %q, want %q", got, CodeExtractionTimeout)
	}
}

func TestRecordingJSON(t *testing.T) {
	samples := []float32{0.5, -0.25, 1}
	req := VerifyRequest{OwnerID: "alice", Recording: NewRecording(samples)}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}

	var got VerifyRequest
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	decoded, err := voiceprint.DecodeFloat32LE(got.Recording)
	if err != nil {
		t.Fatal(err)
	}
	for i := range samples {
		if decoded[i] != samples[i] {
			t.Fatalf("decoded = %v, want %v", decoded, samples)
		}
	}
}

func TestRecordingYAML(t *testing.T) {
	enc := NewRecording([]float32{1, 2}).String()
	doc := "owner_id: bob\nrecordings:\n  - " + enc + "\n  - " + enc + "\n"

	var req EnrollRequest
	if err := yaml.Unmarshal([]byte(doc), &req); err != nil {
		t.Fatal(err)
	}
	if req.OwnerID != "bob" || len(req.Recordings) != 2 || len(req.Recordings[1]) != 8 {
		t.Fatalf("req = %+v", req)
	}

	bad := "owner_id: bob\nrecordings:\n  - [1, 2]\n"
	if err := yaml.Unmarshal([]byte(bad), &req); err == nil {
		t.Fatal("expected error for non-string recording")
	}
}

func TestNewEnrollResponse(t *testing.T) {
	res := &EnrollResult{Used: 3, Failures: make([]RecordingError, 2)}
	resp := NewEnrollResponse(res, nil)
	if !resp.Success || resp.Used != 3 || resp.Failed != 2 || resp.Error != "" {
		t.Fatalf("resp = %+v", resp)
	}

	resp = NewEnrollResponse(nil, templatestore.ErrInvalidOwnerID)
	if resp.Success || resp.Code != CodeInvalidOwnerID || resp.Error == "" {
		t.Fatalf("resp = %+v", resp)
	}

	data, _ := json.Marshal(NewEnrollResponse(res, nil))
	var m map[string]any
	json.Unmarshal(data, &m)
	if _, ok := m["error"]; ok {
		t.Fatalf("success response carries an error field: %s", data)
	}
}
