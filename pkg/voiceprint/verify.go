package voiceprint

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultThreshold is the similarity a candidate must exceed to be accepted.
	DefaultThreshold = 0.75

	// NormEpsilon is the smallest L2 norm treated as non-degenerate.
	NormEpsilon = 1e-8
)

// Thresholds for confidence labels (cosine similarity).
const (
	ConfidenceHigh   = 0.85
	ConfidenceMedium = 0.70
	ConfidenceLow    = 0.50
)

// Result is the outcome of one verification. It is never persisted.
type Result struct {
	// Accepted reports whether Similarity exceeded Threshold.
	Accepted bool

	// Similarity is the cosine similarity in [-1, 1]. It is reported
	// whether or not the candidate was accepted.
	Similarity float64

	// Threshold is the decision threshold that was applied.
	Threshold float64
}

// Confidence returns a coarse label for the result's similarity.
func (r Result) Confidence() string {
	return Confidence(r.Similarity)
}

// Confidence returns "high", "medium", "low" or "none" for a similarity.
func Confidence(similarity float64) string {
	switch {
	case similarity >= ConfidenceHigh:
		return "high"
	case similarity >= ConfidenceMedium:
		return "medium"
	case similarity >= ConfidenceLow:
		return "low"
	default:
		return "none"
	}
}

// Verify compares a candidate embedding against a template embedding.
//
// Both vectors are treated as flat 1-D sequences. The decision is
// similarity > threshold (strict).
func Verify(template, candidate Embedding, threshold float64) (Result, error) {
	sim, err := CosineSimilarity(template, candidate)
	if err != nil {
		return Result{Threshold: threshold}, err
	}
	return Result{
		Accepted:   sim > threshold,
		Similarity: sim,
		Threshold:  threshold,
	}, nil
}

// CosineSimilarity returns dot(a, b) / (‖a‖·‖b‖), computed in float64.
//
// It fails with a *DimensionMismatchError when the lengths differ and with
// ErrDegenerateEmbedding when either norm is below NormEpsilon or is not
// finite. The result is clamped to [-1, 1] to absorb rounding.
func CosineSimilarity(a, b Embedding) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Expected: len(a), Actual: len(b)}
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: empty vector", ErrDegenerateEmbedding)
	}

	x := widen(a)
	y := widen(b)
	na := floats.Norm(x, 2)
	nb := floats.Norm(y, 2)
	if !(na >= NormEpsilon) || !(nb >= NormEpsilon) || math.IsInf(na, 0) || math.IsInf(nb, 0) {
		return 0, fmt.Errorf("%w: norms %.3g and %.3g", ErrDegenerateEmbedding, na, nb)
	}

	sim := floats.Dot(x, y) / (na * nb)
	if math.IsNaN(sim) {
		return 0, fmt.Errorf("%w: similarity is NaN", ErrDegenerateEmbedding)
	}
	return min(max(sim, -1), 1), nil
}

// Verifier applies a fixed threshold to repeated verifications.
type Verifier struct {
	Threshold float64
}

// NewVerifier returns a Verifier with the given threshold.
func NewVerifier(threshold float64) *Verifier {
	return &Verifier{Threshold: threshold}
}

// Verify compares candidate against the template's embedding.
func (v *Verifier) Verify(t *Template, candidate Embedding) (Result, error) {
	threshold := DefaultThreshold
	if v != nil {
		threshold = v.Threshold
	}
	if t == nil {
		return Result{Threshold: threshold}, fmt.Errorf("voiceprint: nil template")
	}
	return Verify(t.Embedding, candidate, threshold)
}

func widen(v Embedding) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
