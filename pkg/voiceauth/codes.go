package voiceauth

import (
	"context"
	"errors"
	"net/http"

	"github.com/haivivi/voxkey/pkg/templatestore"
	"github.com/haivivi/voxkey/pkg/voiceprint"
)

// Stable error codes reported by the CLI and HTTP transports.
const (
	CodeInvalidAudio        = "invalid_audio"
	CodeDimensionMismatch   = "dimension_mismatch"
	CodeNoValidEmbeddings   = "no_valid_embeddings"
	CodeTemplateNotFound    = "template_not_found"
	CodeInvalidOwnerID      = "invalid_owner_id"
	CodeDegenerateEmbedding = "degenerate_embedding"
	CodeExtractionError     = "extraction_error"
	CodeExtractionTimeout   = "extraction_timeout"
	CodeStorageError        = "storage_error"
	CodeBadRequest          = "bad_request"
	CodeCanceled            = "canceled"
	CodeInternal            = "internal"
)

// codeTable is ordered: the first sentinel matched by errors.Is wins.
// NoValidEmbeddings comes before the extraction errors it may wrap, and
// storage errors before dimension mismatches found in a stored record.
var codeTable = []struct {
	err    error
	code   string
	status int
}{
	{templatestore.ErrInvalidOwnerID, CodeInvalidOwnerID, http.StatusBadRequest},
	{voiceprint.ErrInvalidAudio, CodeInvalidAudio, http.StatusBadRequest},
	{errBadRequest, CodeBadRequest, http.StatusBadRequest},
	{templatestore.ErrTemplateNotFound, CodeTemplateNotFound, http.StatusNotFound},
	{voiceprint.ErrNoValidEmbeddings, CodeNoValidEmbeddings, http.StatusUnprocessableEntity},
	{templatestore.ErrStorage, CodeStorageError, http.StatusInternalServerError},
	{voiceprint.ErrExtractionTimeout, CodeExtractionTimeout, http.StatusGatewayTimeout},
	{voiceprint.ErrDegenerateEmbedding, CodeDegenerateEmbedding, http.StatusUnprocessableEntity},
	{voiceprint.ErrDimensionMismatch, CodeDimensionMismatch, http.StatusUnprocessableEntity},
	{voiceprint.ErrExtraction, CodeExtractionError, http.StatusInternalServerError},
	{context.Canceled, CodeCanceled, 499},
	{context.DeadlineExceeded, CodeExtractionTimeout, http.StatusGatewayTimeout},
}

// Code returns the stable error code for err, or "" for a nil error.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, e := range codeTable {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return CodeInternal
}

// HTTPStatus returns the HTTP status used to report err.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for _, e := range codeTable {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}
