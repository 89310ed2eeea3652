package voiceprint

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// FingerprintBits is the size of template fingerprints.
const FingerprintBits = 32

// fingerprintSeed fixes the hyperplanes so fingerprints are stable across
// processes and releases.
const fingerprintSeed = 0x766f786b6579

// Fingerprinter projects embeddings into short locality-sensitive hashes
// using random hyperplanes. Each hyperplane contributes one bit: the sign
// of its dot product with the embedding.
//
// A fingerprint identifies a template in logs and metadata without
// revealing the embedding. Templates of the same speaker tend to share
// most bits; identical templates always share all of them.
type Fingerprinter struct {
	dim    int
	bits   int
	planes [][]float64 // bits × dim unit vectors
}

// NewFingerprinter returns a Fingerprinter for embeddings of dimension
// dim. bits must be a positive multiple of 4.
func NewFingerprinter(dim, bits int, seed uint64) (*Fingerprinter, error) {
	if bits <= 0 || bits%4 != 0 {
		return nil, fmt.Errorf("voiceprint: fingerprint bits must be a positive multiple of 4, got %d", bits)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("voiceprint: fingerprint dim must be positive, got %d", dim)
	}

	rng := rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
	planes := make([][]float64, bits)
	for i := range planes {
		plane := make([]float64, dim)
		for j := range plane {
			plane[j] = rng.NormFloat64()
		}
		if n := floats.Norm(plane, 2); n > 0 {
			floats.Scale(1/n, plane)
		}
		planes[i] = plane
	}
	return &Fingerprinter{dim: dim, bits: bits, planes: planes}, nil
}

// Fingerprint returns the uppercase hex fingerprint of e, bits/4
// characters long.
func (f *Fingerprinter) Fingerprint(e Embedding) (string, error) {
	if e.Dim() != f.dim {
		return "", &DimensionMismatchError{Expected: f.dim, Actual: e.Dim()}
	}
	v := widen(e)
	var sb strings.Builder
	var nibble byte
	for i, plane := range f.planes {
		nibble <<= 1
		if floats.Dot(plane, v) > 0 {
			nibble |= 1
		}
		if i%4 == 3 {
			sb.WriteByte("0123456789ABCDEF"[nibble])
			nibble = 0
		}
	}
	return sb.String(), nil
}

// Bits returns the number of fingerprint bits.
func (f *Fingerprinter) Bits() int { return f.bits }

// Dim returns the expected embedding dimension.
func (f *Fingerprinter) Dim() int { return f.dim }

// HammingDistance counts differing bits between two fingerprints of equal
// length. It returns -1 if the lengths differ or either is not hex.
func HammingDistance(a, b string) int {
	if len(a) != len(b) {
		return -1
	}
	d := 0
	for i := range len(a) {
		x, ok1 := hexNibble(a[i])
		y, ok2 := hexNibble(b[i])
		if !ok1 || !ok2 {
			return -1
		}
		for n := x ^ y; n != 0; n &= n - 1 {
			d++
		}
	}
	return d
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

var fingerprinters sync.Map // dim -> *Fingerprinter

// TemplateFingerprint returns the standard fingerprint of t's embedding,
// or "" if the template is inconsistent.
func TemplateFingerprint(t *Template) string {
	if t == nil || t.Validate() != nil {
		return ""
	}
	f, ok := fingerprinters.Load(t.Dim)
	if !ok {
		fp, err := NewFingerprinter(t.Dim, FingerprintBits, fingerprintSeed)
		if err != nil {
			return ""
		}
		f, _ = fingerprinters.LoadOrStore(t.Dim, fp)
	}
	s, err := f.(*Fingerprinter).Fingerprint(t.Embedding)
	if err != nil {
		return ""
	}
	return s
}
