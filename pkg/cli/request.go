package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptyRequest is returned when the request input is blank.
var ErrEmptyRequest = errors.New("empty request")

// LoadRequest loads a request from a YAML or JSON file into the provided
// struct. The path "-" reads stdin.
func LoadRequest(path string, v any) error {
	if path == "-" {
		return ReadRequest(os.Stdin, "", v)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return ParseRequest(data, path, v)
}

// ReadRequest reads all of r and parses it with ParseRequest.
func ReadRequest(r io.Reader, filename string, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return ParseRequest(data, filename, v)
}

// ParseRequest parses request data based on file extension or content.
// Without a recognized extension JSON is tried first, then YAML.
func ParseRequest(data []byte, filename string, v any) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		return ErrEmptyRequest
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		if err := json.Unmarshal(data, v); err != nil {
			if err2 := yaml.Unmarshal(data, v); err2 != nil {
				return fmt.Errorf("failed to parse input (tried JSON and YAML): %w", err)
			}
		}
	}

	return nil
}
