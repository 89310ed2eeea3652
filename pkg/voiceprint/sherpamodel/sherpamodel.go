// Package sherpamodel implements [voiceprint.Model] on top of the
// sherpa-onnx speaker embedding extractor.
//
// Any speaker embedding model supported by sherpa-onnx can be used
// (3D-Speaker ERes2Net/CAM++, WeSpeaker ResNet, NeMo TitaNet, ECAPA-TDNN
// exports). The extractor computes its own fbank features from 16kHz
// float32 samples.
package sherpamodel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"github.com/haivivi/voxkey/pkg/voiceprint"
)

// Model wraps a sherpa-onnx SpeakerEmbeddingExtractor.
//
// # Thread Safety
//
// Model is safe for concurrent use. The extractor is loaded once and
// Extract calls are serialized on it.
type Model struct {
	mu     sync.Mutex
	impl   *sherpa.SpeakerEmbeddingExtractor
	dim    int
	name   string
	closed bool

	numThreads int
	provider   string
	debug      bool
}

// Option configures a Model.
type Option func(*Model)

// WithNumThreads sets the inference thread count (default 1).
func WithNumThreads(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.numThreads = n
		}
	}
}

// WithProvider sets the execution provider ("cpu", "cuda", "coreml").
// Default: "cpu".
func WithProvider(p string) Option {
	return func(m *Model) {
		if p != "" {
			m.provider = p
		}
	}
}

// WithName overrides the model name reported by Name.
// Default: "sherpa:" + model file base name.
func WithName(name string) Option {
	return func(m *Model) {
		if name != "" {
			m.name = name
		}
	}
}

// WithDebug enables sherpa-onnx debug output.
func WithDebug(on bool) Option {
	return func(m *Model) { m.debug = on }
}

// New loads the ONNX speaker embedding model at modelPath.
func New(modelPath string, opts ...Option) (*Model, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("sherpamodel: %w", err)
	}

	m := &Model{
		numThreads: 1,
		provider:   "cpu",
		name:       "sherpa:" + strings.TrimSuffix(filepath.Base(modelPath), filepath.Ext(modelPath)),
	}
	for _, opt := range opts {
		opt(m)
	}

	debug := 0
	if m.debug {
		debug = 1
	}
	impl := sherpa.NewSpeakerEmbeddingExtractor(&sherpa.SpeakerEmbeddingExtractorConfig{
		Model:      modelPath,
		NumThreads: m.numThreads,
		Debug:      debug,
		Provider:   m.provider,
	})
	if impl == nil {
		return nil, fmt.Errorf("sherpamodel: failed to create extractor for %s", modelPath)
	}
	m.impl = impl
	m.dim = impl.Dim()

	slog.Info("sherpamodel: extractor loaded", "model", m.name, "dim", m.dim, "provider", m.provider)
	return m, nil
}

// Extract implements [voiceprint.Model].
func (m *Model) Extract(ctx context.Context, w voiceprint.Waveform) (voiceprint.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.New("sherpamodel: model is closed")
	}

	stream := m.impl.CreateStream()
	if stream == nil {
		return nil, errors.New("sherpamodel: failed to create stream")
	}
	defer sherpa.DeleteOnlineStream(stream)

	stream.AcceptWaveform(voiceprint.SampleRate, w)
	stream.InputFinished()

	if !m.impl.IsReady(stream) {
		return nil, fmt.Errorf("sherpamodel: audio too short (%s)", w.Duration())
	}

	out := m.impl.Compute(stream)
	emb := make(voiceprint.Embedding, len(out))
	copy(emb, out)
	return emb, nil
}

// Dimension implements [voiceprint.Model].
func (m *Model) Dimension() int { return m.dim }

// Name implements [voiceprint.Model].
func (m *Model) Name() string { return m.name }

// Close implements [voiceprint.Model].
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.impl != nil {
		sherpa.DeleteSpeakerEmbeddingExtractor(m.impl)
		m.impl = nil
	}
	return nil
}

var _ voiceprint.Model = (*Model)(nil)
