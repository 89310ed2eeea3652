package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testResult struct {
	Accepted   bool    `json:"accepted" yaml:"accepted"`
	Similarity float64 `json:"similarity" yaml:"similarity"`
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	err := Output(testResult{Accepted: true, Similarity: 0.5}, OutputOptions{Format: FormatJSON, Writer: &buf})
	if err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	want := "{\n  \"accepted\": true,\n  \"similarity\": 0.5\n}\n"
	if buf.String() != want {
		t.Errorf("Output() = %q, want %q", buf.String(), want)
	}
}

func TestOutputCompactJSON(t *testing.T) {
	var buf bytes.Buffer
	err := Output(testResult{Similarity: 0.25}, OutputOptions{Compact: true, Writer: &buf})
	if err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	want := `{"accepted":false,"similarity":0.25}` + "\n"
	if buf.String() != want {
		t.Errorf("Output() = %q, want %q", buf.String(), want)
	}
}

func TestOutputYAML(t *testing.T) {
	var buf bytes.Buffer
	err := Output(testResult{Accepted: true, Similarity: 0.5}, OutputOptions{Format: FormatYAML, Writer: &buf})
	if err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "accepted: true") || !strings.Contains(out, "similarity: 0.5") {
		t.Errorf("Output() = %q", out)
	}
}

func TestOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := Output(testResult{Accepted: true}, OutputOptions{File: path, Compact: true}); err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), `{"accepted":true`) {
		t.Errorf("file content = %q", data)
	}
}

func TestOutputUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(testResult{}, OutputOptions{Format: "xml", Writer: &buf}); err == nil {
		t.Error("Output() with xml format should fail")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"table", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrintError(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	stderr := os.Stderr
	os.Stderr = w
	PrintError("template %q not found", "alice")
	os.Stderr = stderr
	w.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "Error: template \"alice\" not found\n" {
		t.Fatalf("PrintError wrote %q", got)
	}
}
