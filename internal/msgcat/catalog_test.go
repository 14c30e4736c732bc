package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRender_Defaults(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("move.played", map[string]any{"Colour": "White", "Move": "e2-e4", "Check": ""})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "White played e2-e4." {
		t.Fatalf("move.played = %q", got)
	}
	if _, err := c.Render("move.played", map[string]any{"Colour": "White"}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if got := c.Text("no.such.key", nil); got != "no.such.key" {
		t.Fatalf("Text fallback = %q", got)
	}
}

func TestOverrides(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("cmd:\n  error: \"Oops: {{.Message}}\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("cmd.error", map[string]any{"Message": "x"}); got != "Oops: x" {
		t.Fatalf("override = %q", got)
	}
	if !c.Has("game.ready") {
		t.Fatalf("defaults lost after override")
	}

	if err := os.WriteFile(filepath.Join(dir, "b.yml"), []byte("cmd:\n  error: dup\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.Reload(); err == nil || !strings.Contains(err.Error(), "duplicate override key") {
		t.Fatalf("Reload duplicate = %v", err)
	}
	// failed reload keeps the old messages
	if got := c.Text("cmd.error", map[string]any{"Message": "x"}); got != "Oops: x" {
		t.Fatalf("after failed reload = %q", got)
	}
}

func TestMissingOverrideDirIsFine(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "absent")); err != nil {
		t.Fatalf("New: %v", err)
	}
}

func TestRejectsNonStringLeaves(t *testing.T) {
	if _, err := parseYAMLToFlat([]byte("a:\n  b: 3\n")); err == nil {
		t.Fatalf("expected error for int leaf")
	}
}
