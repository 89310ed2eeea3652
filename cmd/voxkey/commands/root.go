package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/voxkey/cmd/voxkey/internal/config"
	"github.com/haivivi/voxkey/pkg/cli"
)

var (
	// Global flags
	verbose      bool
	configFile   string
	formatOutput string
)

var rootCmd = &cobra.Command{
	Use:   "voxkey",
	Short: "Speaker enrollment and verification",
	Long: `voxkey - enroll a speaker's voice as a template and verify claimed
identities against it.

Recordings are base64-encoded float32 little-endian buffers of 16 kHz mono
audio. Requests are read as JSON (YAML is accepted) from stdin or -f, and
responses are written to stdout as one JSON line.

Configuration is stored in the OS config directory:
  macOS:   ~/Library/Application Support/voxkey/config.yaml
  Linux:   ~/.config/voxkey/config.yaml
  Windows: %AppData%/voxkey/config.yaml
Override with VOXKEY_CONFIG_DIR or --config.

Examples:
  # Write a default configuration
  voxkey config init

  # Enroll from a request on stdin
  voxkey enroll < enroll.json

  # Verify a raw recording file
  voxkey verify --owner alice probe.f32

  # Serve the HTTP API
  voxkey serve --addr :8080`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		if _, err := cli.ParseFormat(formatOutput); err != nil {
			return err
		}
		return nil
	},
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default <config dir>/voxkey/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&formatOutput, "format", "json", "output format: json, yaml")
}

// setupLogging sends logs to stderr; stdout carries responses only.
func setupLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
}

// loadConfig loads the configuration selected by --config or the
// per-user default.
func loadConfig() (*config.Config, string, error) {
	path, err := config.Path(configFile)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("config not available: %w", err)
	}
	return cfg, path, nil
}

// printResult writes a command result to stdout. JSON responses are one
// line so they can be consumed by line-oriented callers.
func printResult(v any) error {
	format, _ := cli.ParseFormat(formatOutput)
	return cli.Output(v, cli.OutputOptions{Format: format, Compact: true})
}

// printDoc writes human-oriented documents with indentation.
func printDoc(v any) error {
	format, _ := cli.ParseFormat(formatOutput)
	return cli.Output(v, cli.OutputOptions{Format: format})
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
