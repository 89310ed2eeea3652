package cli

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigFile is the default configuration filename.
const DefaultConfigFile = "config.yaml"

// Paths provides access to an app's per-user directory structure.
type Paths struct {
	// AppName is the application name.
	AppName string

	// Root is the app configuration directory.
	Root string
}

// EnvConfigDir returns the environment variable that overrides the config
// directory of app ("VOXKEY_CONFIG_DIR" for "voxkey").
func EnvConfigDir(app string) string {
	return strings.ToUpper(strings.ReplaceAll(app, "-", "_")) + "_CONFIG_DIR"
}

// NewPaths returns the Paths of app. The root is taken from
// EnvConfigDir(app) when set, otherwise os.UserConfigDir()/<app>.
func NewPaths(app string) (*Paths, error) {
	if dir := os.Getenv(EnvConfigDir(app)); dir != "" {
		return &Paths{AppName: app, Root: dir}, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return &Paths{AppName: app, Root: filepath.Join(base, app)}, nil
}

// ConfigFile returns the config file path (<root>/config.yaml).
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.Root, DefaultConfigFile)
}

// DataDir returns the data directory (<root>/data).
func (p *Paths) DataDir() string {
	return filepath.Join(p.Root, "data")
}

// ModelDir returns the directory models are looked up in (<root>/models).
func (p *Paths) ModelDir() string {
	return filepath.Join(p.Root, "models")
}

// DataPath returns a path within the data directory.
func (p *Paths) DataPath(name string) string {
	return filepath.Join(p.DataDir(), name)
}

// ModelPath returns a path within the model directory.
func (p *Paths) ModelPath(name string) string {
	return filepath.Join(p.ModelDir(), name)
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (p *Paths) EnsureDataDir() error {
	return os.MkdirAll(p.DataDir(), 0o755)
}
