package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/haivivi/voxkey/pkg/voiceprint"
)

// fakeModel maps a recording to a one-hot 3-dim embedding chosen by its
// first sample (1, 2 or 3). A first sample of -1 fails extraction.
type fakeModel struct{}

func (fakeModel) Extract(_ context.Context, w voiceprint.Waveform) (voiceprint.Embedding, error) {
	switch w[0] {
	case 1:
		return voiceprint.Embedding{1, 0, 0}, nil
	case 2:
		return voiceprint.Embedding{0, 1, 0}, nil
	case 3:
		return voiceprint.Embedding{0, 0, 1}, nil
	}
	return nil, &voiceprint.ExtractionError{Model: "fake", Reason: errors.New("undecodable")}
}

func (fakeModel) Dimension() int { return 3 }
func (fakeModel) Name() string   { return "fake" }
func (fakeModel) Close() error   { return nil }

func rec(first float32) []float32 {
	return []float32{first, 0.1, -0.1, 0.2}
}

// setupTestEnv points the CLI at a fresh config directory whose store is a
// file store, and swaps in the fake model.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("VOXKEY_CONFIG_DIR", dir)
	cfg := "store: file://" + filepath.Join(dir, "store") + "\nworkers: 2\nextract_timeout: 5s\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	testModelOverride = fakeModel{}
	t.Cleanup(func() { testModelOverride = nil })
	return dir
}

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	return runCmdStdin(t, "", args...)
}

func runCmdStdin(t *testing.T, stdin string, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	oldStdin := os.Stdin
	oldStdout := os.Stdout
	oldStderr := os.Stderr

	inPath := filepath.Join(t.TempDir(), "stdin")
	if err := os.WriteFile(inPath, []byte(stdin), 0o644); err != nil {
		t.Fatal(err)
	}
	in, err := os.Open(inPath)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdin = in
	os.Stdout = wOut
	os.Stderr = wErr

	verbose = false
	configFile = ""
	formatOutput = "json"

	rootCmd.SetArgs(args)
	err = rootCmd.ExecuteContext(context.Background())

	wOut.Close()
	wErr.Close()
	os.Stdin = oldStdin
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	var outBuf, errBuf bytes.Buffer
	outBuf.ReadFrom(rOut)
	errBuf.ReadFrom(rErr)

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		if stderr == "" {
			stderr = err.Error()
		}
	}

	resetFlags(rootCmd)
	return
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
		f.Value.Set(f.DefValue)
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// decodeLine unmarshals a single-line JSON response.
func decodeLine(t *testing.T, out string, v any) {
	t.Helper()
	if n := bytes.Count([]byte(out), []byte("\n")); n != 1 {
		t.Fatalf("expected one response line, got %d: %q", n, out)
	}
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
}

// writeAudio writes samples as a raw float32LE file and returns its path.
func writeAudio(t *testing.T, name string, samples []float32) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, voiceprint.EncodeFloat32LE(samples), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
