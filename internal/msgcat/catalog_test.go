package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderEmbedded(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s, err := c.Render("error.code_not_found", map[string]any{"Code": "ABCDE"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(s, "ABCDE") {
		t.Fatalf("code not interpolated: %q", s)
	}
	if _, err := c.Render("error.code_not_found", map[string]any{}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := c.Render("nope.nothing", nil); err == nil {
		t.Fatalf("expected template not found")
	}
	if got := c.Text("nope.nothing", nil, "fallback"); got != "fallback" {
		t.Fatalf("Text fallback=%q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("error:\n  game_full: \"Room is full\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("error.game_full", nil, ""); got != "Room is full" {
		t.Fatalf("override not applied: %q", got)
	}
	if !c.Has("error.invalid_word") {
		t.Fatalf("embedded keys lost after override")
	}
}

func TestOverrideDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("error:\n  game_full: one\n"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "b.yml"), []byte("error:\n  game_full: two\n"), 0o644)
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestRejectsNonStringLeaves(t *testing.T) {
	if _, err := parseYAMLToFlat([]byte("error:\n  count: 3\n")); err == nil {
		t.Fatalf("expected unsupported value error")
	}
}
