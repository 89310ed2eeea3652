package config

import (
	"fmt"

	"github.com/haivivi/voxkey/pkg/voiceprint"
	"github.com/haivivi/voxkey/pkg/voiceprint/ortmodel"
	"github.com/haivivi/voxkey/pkg/voiceprint/sherpamodel"
)

func (c *Config) openModel() (voiceprint.Model, error) {
	m := c.Model
	switch m.Backend {
	case BackendSherpa:
		opts := []sherpamodel.Option{sherpamodel.WithName(c.ModelName())}
		if m.NumThreads > 0 {
			opts = append(opts, sherpamodel.WithNumThreads(m.NumThreads))
		}
		if m.Provider != "" {
			opts = append(opts, sherpamodel.WithProvider(m.Provider))
		}
		return sherpamodel.New(c.ModelPath(), opts...)
	case BackendONNX:
		return ortmodel.New(ortmodel.Config{
			ModelPath:     c.ModelPath(),
			SharedLibrary: m.SharedLibrary,
			Input:         m.Input,
			Output:        m.Output,
			Dim:           m.Dim,
			NumThreads:    m.NumThreads,
			Name:          c.ModelName(),
		})
	default:
		return nil, fmt.Errorf("unknown model backend %q", m.Backend)
	}
}
