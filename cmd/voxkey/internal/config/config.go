// Package config provides the configuration file of the voxkey CLI.
//
// Configuration is stored under os.UserConfigDir()/voxkey/ unless
// VOXKEY_CONFIG_DIR or --config point elsewhere:
//
//	voxkey/
//	├── config.yaml
//	├── models/        # relative model paths resolve here
//	└── data/
//	    └── templates/ # default badger store
//
// Example config.yaml:
//
//	model:
//	  backend: sherpa
//	  path: 3dspeaker_speech_eres2net_base_sv_zh-cn_3dspeaker_16k.onnx
//	  num_threads: 2
//	store: badger:///var/lib/voxkey/templates
//	threshold: 0.75
//	target_count: 50
//	workers: 4
//	extract_timeout: 30s
//	min_recordings: 1
//	http:
//	  addr: :8080
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/voxkey/pkg/cli"
	"github.com/haivivi/voxkey/pkg/voiceauth"
	"github.com/haivivi/voxkey/pkg/voiceprint"
)

// AppName is the application directory name.
const AppName = "voxkey"

// Model backends.
const (
	BackendSherpa = "sherpa"
	BackendONNX   = "onnx"
)

// Config is the voxkey configuration file.
type Config struct {
	Model          ModelConfig `yaml:"model" json:"model"`
	Store          string      `yaml:"store" json:"store"`
	Threshold      float64     `yaml:"threshold" json:"threshold"`
	TargetCount    int         `yaml:"target_count" json:"target_count"`
	Workers        int         `yaml:"workers,omitempty" json:"workers,omitempty"`
	ExtractTimeout string      `yaml:"extract_timeout" json:"extract_timeout"`
	MinRecordings  int         `yaml:"min_recordings" json:"min_recordings"`
	HTTP           HTTPConfig  `yaml:"http" json:"http"`

	// Dir is the directory relative paths resolve against. It is the
	// directory holding the config file.
	Dir string `yaml:"-" json:"-"`
}

// ModelConfig selects and tunes the embedding model.
type ModelConfig struct {
	// Backend is "sherpa" (sherpa-onnx speaker embedding extractor) or
	// "onnx" (raw-waveform ONNX Runtime model).
	Backend string `yaml:"backend" json:"backend"`

	// Path is the model file. Relative paths resolve under <dir>/models.
	Path string `yaml:"path" json:"path"`

	// Name is recorded in every template. Defaults to "<backend>:<file stem>".
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	NumThreads int    `yaml:"num_threads,omitempty" json:"num_threads,omitempty"`
	Provider   string `yaml:"provider,omitempty" json:"provider,omitempty"`

	// onnx backend only.
	SharedLibrary string `yaml:"shared_library,omitempty" json:"shared_library,omitempty"`
	Input         string `yaml:"input,omitempty" json:"input,omitempty"`
	Output        string `yaml:"output,omitempty" json:"output,omitempty"`
	Dim           int    `yaml:"dim,omitempty" json:"dim,omitempty"`
}

// HTTPConfig configures `voxkey serve`.
type HTTPConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Default returns the configuration used when no file exists. dir is the
// configuration directory.
func Default(dir string) *Config {
	opts := voiceauth.DefaultOptions()
	paths := cli.Paths{AppName: AppName, Root: dir}
	return &Config{
		Model: ModelConfig{
			Backend:    BackendSherpa,
			Path:       "speaker.onnx",
			NumThreads: 1,
		},
		Store:          "badger://" + paths.DataPath("templates"),
		Threshold:      opts.Threshold,
		TargetCount:    opts.TargetCount,
		ExtractTimeout: opts.ExtractTimeout.String(),
		MinRecordings:  opts.MinRecordings,
		HTTP:           HTTPConfig{Addr: ":8080"},
		Dir:            dir,
	}
}

// Path returns the config file to use: override when non-empty, else
// config.yaml in the per-user directory.
func Path(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	paths, err := cli.NewPaths(AppName)
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return paths.ConfigFile(), nil
}

// Load reads the config file at path on top of Default. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default(filepath.Dir(path))
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes c to path, creating the parent directory.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks value ranges and the model backend.
func (c *Config) Validate() error {
	switch c.Model.Backend {
	case BackendSherpa, BackendONNX:
	default:
		return fmt.Errorf("unknown model backend %q", c.Model.Backend)
	}
	if c.Model.Path == "" {
		return errors.New("model.path is required")
	}
	if c.Store == "" {
		return errors.New("store is required")
	}
	if c.Threshold < -1 || c.Threshold > 1 {
		return fmt.Errorf("threshold %v out of range [-1, 1]", c.Threshold)
	}
	if c.TargetCount <= 0 {
		return fmt.Errorf("target_count must be positive, got %d", c.TargetCount)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.MinRecordings < 0 {
		return fmt.Errorf("min_recordings must not be negative, got %d", c.MinRecordings)
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	return nil
}

// Timeout parses ExtractTimeout. An empty value means no timeout.
func (c *Config) Timeout() (time.Duration, error) {
	if c.ExtractTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.ExtractTimeout)
	if err != nil {
		return 0, fmt.Errorf("extract_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("extract_timeout must not be negative, got %s", d)
	}
	return d, nil
}

// ServiceOptions converts the config into voiceauth options.
func (c *Config) ServiceOptions() (voiceauth.Options, error) {
	timeout, err := c.Timeout()
	if err != nil {
		return voiceauth.Options{}, err
	}
	opts := voiceauth.DefaultOptions()
	opts.Threshold = c.Threshold
	opts.TargetCount = c.TargetCount
	if c.Workers > 0 {
		opts.Workers = c.Workers
	}
	opts.ExtractTimeout = timeout
	opts.MinRecordings = c.MinRecordings
	return opts, nil
}

// ModelPath resolves Model.Path against <dir>/models.
func (c *Config) ModelPath() string {
	if filepath.IsAbs(c.Model.Path) {
		return c.Model.Path
	}
	paths := cli.Paths{AppName: AppName, Root: c.Dir}
	return paths.ModelPath(c.Model.Path)
}

// ModelName returns the configured model name or its default.
func (c *Config) ModelName() string {
	if c.Model.Name != "" {
		return c.Model.Name
	}
	base := filepath.Base(c.Model.Path)
	return c.Model.Backend + ":" + base[:len(base)-len(filepath.Ext(base))]
}

// OpenModel returns a process-wide lazy model handle. The model file is
// not touched until the first extraction.
func (c *Config) OpenModel() *voiceprint.Lazy {
	return voiceprint.NewLazy(c.ModelName(), c.openModel)
}
