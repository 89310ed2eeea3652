package voiceprint

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type stubModel struct {
	dim    int
	delay  time.Duration
	err    error
	out    Embedding
	closed atomic.Bool
}

func (m *stubModel) Extract(ctx context.Context, w Waveform) (Embedding, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.out, nil
}

func (m *stubModel) Dimension() int { return m.dim }
func (m *stubModel) Name() string   { return "stub" }

func (m *stubModel) Close() error {
	m.closed.Store(true)
	return nil
}

func TestExtractOK(t *testing.T) {
	m := &stubModel{dim: 3, out: Embedding{1, 2, 3}}
	got, err := Extract(context.Background(), m, Waveform{0, 0, 0}, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[2] != 3 {
		t.Fatalf("got %v", got)
	}
}

func TestExtractTimeout(t *testing.T) {
	m := &stubModel{dim: 3, out: Embedding{1, 2, 3}, delay: time.Second}
	start := time.Now()
	_, err := Extract(context.Background(), m, Waveform{0, 0, 0}, 20*time.Millisecond)
	if !errors.Is(err, ErrExtractionTimeout) {
		t.Fatalf("err = %v, want ErrExtractionTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Extract took %v, want prompt return", elapsed)
	}
}

func TestExtractParentDeadline(t *testing.T) {
	m := &stubModel{dim: 3, out: Embedding{1, 2, 3}, delay: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Extract(ctx, m, Waveform{0, 0, 0}, 0)
	if !errors.Is(err, ErrExtractionTimeout) {
		t.Fatalf("err = %v, want ErrExtractionTimeout", err)
	}
	if strings.Contains(err.Error(), "after 0s") {
		t.Fatalf("err = %q, reports a zero timeout", err)
	}
}

func TestExtractWrapsFailure(t *testing.T) {
	cause := errors.New("decode failed")
	m := &stubModel{dim: 3, err: cause}
	_, err := Extract(context.Background(), m, Waveform{0, 0, 0}, 0)
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("err = %v, want ErrExtraction", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want wrapped cause", err)
	}
}

func TestExtractChecksDimension(t *testing.T) {
	m := &stubModel{dim: 4, out: Embedding{1, 2, 3}}
	_, err := Extract(context.Background(), m, Waveform{0, 0, 0}, 0)
	if !errors.Is(err, ErrExtraction) || !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrExtraction wrapping ErrDimensionMismatch", err)
	}
}

func TestExtractRejectsNonFinite(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	for _, out := range []Embedding{{nan, 0, 0}, {1, inf, 0}, {0, 0, -inf}} {
		m := &stubModel{dim: 3, out: out}
		_, err := Extract(context.Background(), m, Waveform{0, 0, 0}, 0)
		if !errors.Is(err, ErrExtraction) {
			t.Fatalf("Extract(%v) err = %v, want ErrExtraction", out, err)
		}
	}
}

func TestLazyOpensOnce(t *testing.T) {
	var opens atomic.Int32
	inner := &stubModel{dim: 3, out: Embedding{1, 0, 0}}
	l := NewLazy("stub", func() (Model, error) {
		opens.Add(1)
		return inner, nil
	})

	if l.Loaded() {
		t.Fatal("Loaded before first use")
	}
	for range 3 {
		if _, err := l.Extract(context.Background(), Waveform{0, 0, 0}); err != nil {
			t.Fatal(err)
		}
	}
	if n := opens.Load(); n != 1 {
		t.Fatalf("open called %d times, want 1", n)
	}
	if l.Dimension() != 3 {
		t.Fatalf("Dimension = %d, want 3", l.Dimension())
	}

	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if !inner.closed.Load() {
		t.Fatal("inner model not closed")
	}
	if l.Loaded() {
		t.Fatal("Loaded after Close")
	}
	if _, err := l.Extract(context.Background(), Waveform{0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if n := opens.Load(); n != 2 {
		t.Fatalf("open called %d times after reopen, want 2", n)
	}
}

func TestLazyOpenError(t *testing.T) {
	l := NewLazy("broken", func() (Model, error) {
		return nil, errors.New("model file not found")
	})
	_, err := l.Extract(context.Background(), Waveform{0, 0, 0})
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("err = %v, want ErrExtraction", err)
	}
	if l.Name() != "broken" {
		t.Fatalf("Name = %q", l.Name())
	}
	if l.Dimension() != 0 {
		t.Fatalf("Dimension = %d, want 0", l.Dimension())
	}
}

func TestPassthrough(t *testing.T) {
	w := Waveform{1, 2, 3}
	got, err := Passthrough{}.Denoise(w)
	if err != nil || len(got) != 3 || got[0] != 1 {
		t.Fatalf("Denoise = %v, %v", got, err)
	}
}
