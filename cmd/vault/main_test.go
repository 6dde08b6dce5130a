package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init without --overwrite refuses to clobber the file.
	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when the config file already exists")
	}
}

func TestParseDraftID(t *testing.T) {
	if id, err := parseDraftID("42"); err != nil || id != 42 {
		t.Errorf("parseDraftID(42) = %d, %v", id, err)
	}
	for _, bad := range []string{"", "0", "-3", "abc"} {
		if _, err := parseDraftID(bad); err == nil {
			t.Errorf("parseDraftID(%q) should fail", bad)
		}
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"one"}}, nil)
	if !strings.Contains(out, "one") {
		t.Errorf("table output = %q", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("empty headers must render nothing")
	}
}
