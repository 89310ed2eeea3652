package voiceprint

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrInvalidAudio is returned for empty or non-finite sample input.
	ErrInvalidAudio = errors.New("voiceprint: invalid audio")

	// ErrDimensionMismatch is returned when two embeddings that must share
	// a dimension do not. Use errors.As with *DimensionMismatchError for
	// the expected and actual sizes.
	ErrDimensionMismatch = errors.New("voiceprint: dimension mismatch")

	// ErrNoValidEmbeddings is returned when aggregation has nothing to work with.
	ErrNoValidEmbeddings = errors.New("voiceprint: no valid embeddings")

	// ErrDegenerateEmbedding is returned when a vector has near-zero or
	// non-finite norm.
	ErrDegenerateEmbedding = errors.New("voiceprint: degenerate embedding")

	// ErrExtraction is returned when the feature extractor fails.
	ErrExtraction = errors.New("voiceprint: extraction failed")

	// ErrExtractionTimeout is returned when the feature extractor does not
	// finish before the caller's deadline.
	ErrExtractionTimeout = errors.New("voiceprint: extraction timed out")
)

// DimensionMismatchError reports the expected and actual dimensionality.
// It matches ErrDimensionMismatch with errors.Is.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("voiceprint: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// ExtractionError wraps a failure reported by a Model.
type ExtractionError struct {
	Model  string
	Reason error
}

func (e *ExtractionError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("voiceprint: extraction failed: %v", e.Reason)
	}
	return fmt.Sprintf("voiceprint: extraction failed (%s): %v", e.Model, e.Reason)
}

// Unwrap returns both the sentinel and the underlying reason so that
// errors.Is works for ErrExtraction and for the cause.
func (e *ExtractionError) Unwrap() []error { return []error{ErrExtraction, e.Reason} }
