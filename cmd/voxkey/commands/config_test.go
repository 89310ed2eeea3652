package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigShow(t *testing.T) {
	dir := setupTestEnv(t)

	stdout, stderr, code := runCmd(t, "config", "show")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, filepath.Join(dir, "store")) {
		t.Fatalf("config show = %s", stdout)
	}
	if !strings.Contains(stdout, "threshold: 0.75") {
		t.Fatalf("config show missing default threshold: %s", stdout)
	}

	stdout, _, code = runCmd(t, "config", "show", "--format", "json")
	if code != 0 || !strings.Contains(stdout, `"workers": 2`) {
		t.Fatalf("config show json exit %d: %s", code, stdout)
	}
}

func TestConfigPathAndInit(t *testing.T) {
	setupTestEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "voxkey.yaml")

	stdout, _, code := runCmd(t, "config", "path", "--config", path)
	if code != 0 || strings.TrimSpace(stdout) != path {
		t.Fatalf("config path = %q (exit %d)", stdout, code)
	}

	if _, stderr, code := runCmd(t, "config", "init", "--config", path); code != 0 {
		t.Fatalf("init exit %d: %s", code, stderr)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "backend: sherpa") {
		t.Fatalf("written config = %s", data)
	}
	if fi, err := os.Stat(filepath.Join(filepath.Dir(path), "data")); err != nil || !fi.IsDir() {
		t.Fatalf("data dir not created: %v", err)
	}

	if _, _, code := runCmd(t, "config", "init", "--config", path); code == 0 {
		t.Fatal("init over an existing file should fail without --force")
	}
	if _, stderr, code := runCmd(t, "config", "init", "--config", path, "--force"); code != 0 {
		t.Fatalf("init --force exit %d: %s", code, stderr)
	}
}
