// Package voiceprint implements speaker enrollment and verification over
// fixed-dimensional speaker embeddings.
//
// # Architecture
//
// The package covers the numeric core of the two pipelines:
//
//  1. Prepare: raw float32 samples (16kHz mono) → Waveform
//  2. Model.Extract: Waveform → Embedding (e.g., 192-dim ECAPA-TDNN)
//  3. Aggregator.Aggregate: []Embedding → one template Embedding
//  4. Verify: template vs. candidate Embedding → Result
//
// Persistence of templates lives in the templatestore package and the
// request-scoped orchestration (worker pool, timeouts, partial failures)
// lives in the voiceauth package.
//
// # Audio Requirements
//
//   - Format: float32 samples in [-1, 1]
//   - Sample rate: 16000 Hz
//   - Channels: 1 (mono)
//
// No resampling or channel mixing is performed. Callers that capture audio
// at other rates must convert before calling [Prepare].
package voiceprint

import (
	"fmt"
	"math"
	"time"
)

const (
	// SampleRate is the sample rate every Waveform is assumed to carry.
	SampleRate = 16000

	// Channels is the channel count every Waveform is assumed to carry.
	Channels = 1

	// MinSamples is the minimum waveform length accepted by the extractor.
	// Shorter input is zero-padded to exactly this length.
	MinSamples = 3
)

// Waveform is a prepared single-channel 16kHz sample sequence. Its length
// is always >= MinSamples.
type Waveform []float32

// Duration returns the playback duration of the waveform at SampleRate.
func (w Waveform) Duration() time.Duration {
	return time.Duration(len(w)) * time.Second / SampleRate
}

// Embedding is a fixed-length speaker embedding produced by a Model.
// Embeddings are never mutated after creation.
type Embedding []float32

// Dim returns the dimensionality of the embedding.
func (e Embedding) Dim() int { return len(e) }

// Clone returns a copy of the embedding.
func (e Embedding) Clone() Embedding {
	if e == nil {
		return nil
	}
	out := make(Embedding, len(e))
	copy(out, e)
	return out
}

// Finite reports whether every component is neither NaN nor infinite.
func (e Embedding) Finite() bool {
	for _, v := range e {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Template is the persisted aggregate embedding for one enrolled owner.
type Template struct {
	// OwnerID is the identity the template belongs to.
	OwnerID string

	// Embedding is the aggregate (mean) embedding.
	Embedding Embedding

	// SampleRate is the sample rate of the enrollment audio.
	SampleRate int

	// Dim is the embedding dimensionality, stored alongside the vector
	// so that a change of extractor model is detected on load.
	Dim int

	// Model identifies the extractor that produced the embeddings.
	Model string

	// Recordings is the number of recordings that contributed.
	Recordings int

	// EnrollmentID identifies the enrollment run that wrote the template.
	EnrollmentID string

	// CreatedAt is the time the template was written.
	CreatedAt time.Time
}

// NewTemplate builds a Template for ownerID from an aggregate embedding.
func NewTemplate(ownerID string, emb Embedding, model string, recordings int) *Template {
	return &Template{
		OwnerID:    ownerID,
		Embedding:  emb.Clone(),
		SampleRate: SampleRate,
		Dim:        len(emb),
		Model:      model,
		Recordings: recordings,
		CreatedAt:  time.Now().UTC(),
	}
}

// Validate checks the internal consistency of the template.
func (t *Template) Validate() error {
	if t == nil {
		return fmt.Errorf("voiceprint: nil template")
	}
	if t.Dim != len(t.Embedding) {
		return &DimensionMismatchError{Expected: t.Dim, Actual: len(t.Embedding)}
	}
	if t.Dim == 0 {
		return fmt.Errorf("voiceprint: template %q has empty embedding", t.OwnerID)
	}
	if !t.Embedding.Finite() {
		return fmt.Errorf("%w: template %q has non-finite values", ErrDegenerateEmbedding, t.OwnerID)
	}
	return nil
}

// Denoiser is an optional preprocessing hook applied to a Waveform before
// extraction. No denoising is performed by this package.
type Denoiser interface {
	Denoise(Waveform) (Waveform, error)
}

// Passthrough is the identity Denoiser.
type Passthrough struct{}

// Denoise returns w unchanged.
func (Passthrough) Denoise(w Waveform) (Waveform, error) { return w, nil }
