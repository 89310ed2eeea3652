package voiceprint

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Model extracts speaker embedding vectors from prepared audio.
//
// The input is a Waveform of float32 samples at 16kHz mono. The output is
// a dense float32 vector whose dimensionality is returned by Dimension().
// Models that emit a leading batch dimension (e.g., [1, 1, 192]) return it
// flattened.
//
// Typical implementations run a speaker verification network
// (ECAPA-TDNN, ERes2Net, ResNet) through ONNX Runtime or sherpa-onnx.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Multiple goroutines
// may call Extract simultaneously.
type Model interface {
	// Extract computes a speaker embedding from a prepared waveform.
	// Failures should wrap ErrExtraction, typically via *ExtractionError.
	Extract(ctx context.Context, w Waveform) (Embedding, error)

	// Dimension returns the dimensionality of the embeddings produced by
	// Extract (e.g., 192).
	Dimension() int

	// Name identifies the model (e.g., "sherpa:3dspeaker_eres2net").
	Name() string

	// Close releases any resources held by the model.
	Close() error
}

// Extract runs m on w with an optional timeout.
//
// A timeout <= 0 leaves the context deadline untouched. When the deadline
// expires before the model returns, Extract returns ErrExtractionTimeout
// without waiting for the model call to finish. Other failures are
// wrapped in *ExtractionError, including embeddings with NaN or infinite
// components.
func Extract(ctx context.Context, m Model, w Waveform, timeout time.Duration) (Embedding, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		emb Embedding
		err error
	}
	done := make(chan result, 1)
	go func() {
		emb, err := m.Extract(ctx, w)
		done <- result{emb, err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			if timeout > 0 {
				return nil, fmt.Errorf("%w after %s (%s)", ErrExtractionTimeout, timeout, m.Name())
			}
			return nil, fmt.Errorf("%w: %v (%s)", ErrExtractionTimeout, ctx.Err(), m.Name())
		}
		return nil, &ExtractionError{Model: m.Name(), Reason: ctx.Err()}
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, ErrExtractionTimeout) || errors.Is(r.err, ErrExtraction) {
				return nil, r.err
			}
			if errors.Is(r.err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %v", ErrExtractionTimeout, r.err)
			}
			return nil, &ExtractionError{Model: m.Name(), Reason: r.err}
		}
		if len(r.emb) == 0 {
			return nil, &ExtractionError{Model: m.Name(), Reason: errors.New("empty embedding")}
		}
		if d := m.Dimension(); d > 0 && len(r.emb) != d {
			return nil, &ExtractionError{Model: m.Name(), Reason: &DimensionMismatchError{Expected: d, Actual: len(r.emb)}}
		}
		if !r.emb.Finite() {
			return nil, &ExtractionError{Model: m.Name(), Reason: errors.New("non-finite embedding")}
		}
		return r.emb, nil
	}
}

// Lazy is a process-wide Model handle that opens the underlying model on
// first use and keeps it until Close.
//
// Lazy itself implements Model. Open is called at most once per lifetime;
// a failed Open is retried on the next call. After Close, the next call
// opens a fresh model.
type Lazy struct {
	open func() (Model, error)
	name string

	mu    sync.Mutex
	model Model
}

// NewLazy returns a Lazy handle using open to construct the model. name is
// reported by Name before the model is opened.
func NewLazy(name string, open func() (Model, error)) *Lazy {
	return &Lazy{open: open, name: name}
}

// Get returns the underlying model, opening it if needed.
func (l *Lazy) Get() (Model, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model != nil {
		return l.model, nil
	}
	m, err := l.open()
	if err != nil {
		return nil, &ExtractionError{Model: l.name, Reason: err}
	}
	l.model = m
	return m, nil
}

// Extract implements [Model].
func (l *Lazy) Extract(ctx context.Context, w Waveform) (Embedding, error) {
	m, err := l.Get()
	if err != nil {
		return nil, err
	}
	return m.Extract(ctx, w)
}

// Dimension implements [Model]. It returns 0 if the model cannot be opened.
func (l *Lazy) Dimension() int {
	m, err := l.Get()
	if err != nil {
		return 0
	}
	return m.Dimension()
}

// Name implements [Model].
func (l *Lazy) Name() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model != nil {
		return l.model.Name()
	}
	return l.name
}

// Loaded reports whether the underlying model is currently open.
func (l *Lazy) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.model != nil
}

// Close implements [Model].
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model == nil {
		return nil
	}
	err := l.model.Close()
	l.model = nil
	return err
}
