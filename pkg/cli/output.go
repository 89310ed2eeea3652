package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	// FormatYAML outputs as YAML
	FormatYAML OutputFormat = "yaml"
	// FormatJSON outputs as JSON (default)
	FormatJSON OutputFormat = "json"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
}

// OutputOptions configures output behavior
type OutputOptions struct {
	// Format is the output format (json, yaml)
	Format OutputFormat

	// File is the output file path (empty for stdout)
	File string

	// Compact writes JSON on a single line instead of indenting it.
	Compact bool

	// Writer is an optional custom writer (overrides File)
	Writer io.Writer
}

// Output writes the result to the configured destination
func Output(result any, opts OutputOptions) error {
	var w io.Writer = os.Stdout

	if opts.Writer != nil {
		w = opts.Writer
	} else if opts.File != "" {
		f, err := os.Create(opts.File)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch opts.Format {
	case FormatJSON, "":
		return outputJSON(w, result, opts.Compact)
	case FormatYAML:
		return outputYAML(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
}

func outputJSON(w io.Writer, result any, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}

func outputYAML(w io.Writer, result any) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// PrintError prints an error message to stderr
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
