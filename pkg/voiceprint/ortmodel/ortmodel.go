// Package ortmodel implements [voiceprint.Model] for ONNX speaker
// embedding networks that take the raw waveform as input.
//
// The network is expected to accept a float32 tensor of shape [1, T]
// (batch, samples) and to produce one embedding per batch item, of shape
// [1, D] or [1, 1, D]. Networks exported with a relative-length input
// (SpeechBrain's wav_lens) get a [1] tensor holding 1.0 in that slot.
package ortmodel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/haivivi/voxkey/pkg/voiceprint"
)

var (
	envMu   sync.Mutex
	envRefs int
)

// acquireEnv initializes the process-wide ONNX Runtime environment on
// first use. Every successful call must be paired with releaseEnv.
func acquireEnv(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 && !ort.IsInitialized() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("ortmodel: initialize onnxruntime: %w", err)
		}
		slog.Debug("ortmodel: onnxruntime initialized", "lib", libPath)
	}
	envRefs++
	return nil
}

func releaseEnv() {
	envMu.Lock()
	defer envMu.Unlock()
	envRefs--
	if envRefs == 0 && ort.IsInitialized() {
		if err := ort.DestroyEnvironment(); err != nil {
			slog.Warn("ortmodel: destroy onnxruntime environment", "error", err)
		}
	}
}

// Config describes an ONNX waveform model.
type Config struct {
	// ModelPath is the .onnx file.
	ModelPath string

	// SharedLibrary is the path to libonnxruntime. Empty uses the
	// onnxruntime_go default lookup.
	SharedLibrary string

	// Input and Output override the tensor names. Empty uses the first
	// input and first output declared by the model.
	Input  string
	Output string

	// Dim is the embedding dimension. Zero reads it from the model's
	// output shape; required when the model declares a dynamic last axis.
	Dim int

	// NumThreads sets intra-op parallelism. Zero keeps the runtime default.
	NumThreads int

	// Name overrides the reported model name.
	Name string
}

// Model runs a raw-waveform speaker embedding network via ONNX Runtime.
//
// Model is safe for concurrent use; Run calls are serialized.
type Model struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	lens    bool // model takes a relative-length second input
	dim     int
	name    string
	closed  bool
}

// New opens the model described by cfg.
func New(cfg Config) (*Model, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("ortmodel: %w", err)
	}
	if err := acquireEnv(cfg.SharedLibrary); err != nil {
		return nil, err
	}

	m, err := open(cfg)
	if err != nil {
		releaseEnv()
		return nil, err
	}
	slog.Info("ortmodel: model loaded", "model", m.name, "dim", m.dim)
	return m, nil
}

func open(cfg Config) (*Model, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("ortmodel: read model info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, errors.New("ortmodel: model declares no inputs or outputs")
	}

	inputNames := []string{inputs[0].Name}
	if cfg.Input != "" {
		inputNames[0] = cfg.Input
	}
	lens := false
	for _, in := range inputs {
		if in.Name != inputNames[0] {
			inputNames = append(inputNames, in.Name)
			lens = true
			break
		}
	}

	out := outputs[0]
	if cfg.Output != "" {
		found := false
		for _, o := range outputs {
			if o.Name == cfg.Output {
				out, found = o, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("ortmodel: output %q not found", cfg.Output)
		}
	}

	dim := cfg.Dim
	if dim <= 0 {
		if n := len(out.Dimensions); n > 0 && out.Dimensions[n-1] > 0 {
			dim = int(out.Dimensions[n-1])
		}
	}
	if dim <= 0 {
		return nil, fmt.Errorf("ortmodel: output %q has dynamic size; set dim explicitly", out.Name)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("ortmodel: session options: %w", err)
	}
	defer options.Destroy()
	if cfg.NumThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			return nil, fmt.Errorf("ortmodel: set threads: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputNames, []string{out.Name}, options)
	if err != nil {
		return nil, fmt.Errorf("ortmodel: create session: %w", err)
	}

	name := cfg.Name
	if name == "" {
		name = "onnx:" + strings.TrimSuffix(filepath.Base(cfg.ModelPath), filepath.Ext(cfg.ModelPath))
	}
	return &Model{session: session, lens: lens, dim: dim, name: name}, nil
}

// Extract implements [voiceprint.Model].
func (m *Model) Extract(ctx context.Context, w voiceprint.Waveform) (voiceprint.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.New("ortmodel: model is closed")
	}

	wave, err := ort.NewTensor(ort.NewShape(1, int64(len(w))), []float32(w))
	if err != nil {
		return nil, fmt.Errorf("ortmodel: input tensor: %w", err)
	}
	defer wave.Destroy()

	in := []ort.Value{wave}
	if m.lens {
		rel, err := ort.NewTensor(ort.NewShape(1), []float32{1})
		if err != nil {
			return nil, fmt.Errorf("ortmodel: length tensor: %w", err)
		}
		defer rel.Destroy()
		in = append(in, rel)
	}

	out := []ort.Value{nil}
	if err := m.session.Run(in, out); err != nil {
		return nil, fmt.Errorf("ortmodel: run: %w", err)
	}
	defer out[0].Destroy()

	t, ok := out[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("ortmodel: unexpected output type %T", out[0])
	}
	data := t.GetData()
	if len(data) != m.dim {
		return nil, &voiceprint.DimensionMismatchError{Expected: m.dim, Actual: len(data)}
	}
	emb := make(voiceprint.Embedding, len(data))
	copy(emb, data)
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
	var err error
	if m.session != nil {
		err = m.session.Destroy()
		m.session = nil
	}
	releaseEnv()
	return err
}

var _ voiceprint.Model = (*Model)(nil)
