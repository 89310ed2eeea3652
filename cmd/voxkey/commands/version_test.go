package commands

import (
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := runCmd(t, "version")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "voxkey") {
		t.Fatalf("expected 'voxkey', got: %s", stdout)
	}
}

func TestVersionJSON(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := runCmd(t, "version", "--format", "json")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, `"version"`) {
		t.Fatalf("expected JSON, got: %s", stdout)
	}
}

func TestBadFormatFlag(t *testing.T) {
	setupTestEnv(t)
	if _, _, code := runCmd(t, "list", "--format", "xml"); code == 0 {
		t.Fatal("unsupported format should fail")
	}
}
