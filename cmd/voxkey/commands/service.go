package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/haivivi/voxkey/cmd/voxkey/internal/config"
	"github.com/haivivi/voxkey/pkg/templatestore"
	"github.com/haivivi/voxkey/pkg/voiceauth"
	"github.com/haivivi/voxkey/pkg/voiceprint"
)

// testModelOverride replaces the configured model in tests.
var testModelOverride voiceprint.Model

// env is an opened service with the resources backing it.
type env struct {
	cfg   *config.Config
	svc   *voiceauth.Service
	store templatestore.Store
	model voiceprint.Model
}

// openEnv loads the configuration and opens the template store and the
// lazy model handle. metrics may be nil.
func openEnv(ctx context.Context, metrics *voiceauth.Metrics) (*env, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.ServiceOptions()
	if err != nil {
		return nil, err
	}
	opts.Metrics = metrics

	store, err := templatestore.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Store, err)
	}

	var model voiceprint.Model
	if testModelOverride != nil {
		model = testModelOverride
	} else {
		model = cfg.OpenModel()
	}
	slog.Debug("voxkey: environment opened", "store", cfg.Store, "model", model.Name())

	return &env{
		cfg:   cfg,
		svc:   voiceauth.NewService(model, store, opts),
		store: store,
		model: model,
	}, nil
}

// Close releases the store and, unless overridden for tests, the model.
func (e *env) Close() error {
	err := e.store.Close()
	if testModelOverride == nil {
		err = errors.Join(err, e.model.Close())
	}
	return err
}
