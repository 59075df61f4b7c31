package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafeWriteFileReplacesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.json")
	if err := SafeWriteFile(path, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := SafeWriteFile(path, []byte("two")); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "two" {
		t.Fatalf("got %q", b)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestFindWorkspaceRootWalksUp(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ManifestFileName), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "data", "deep")
	if err := EnsureDir(nested); err != nil {
		t.Fatal(err)
	}
	got, err := FindWorkspaceRoot(nested)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != root {
		t.Fatalf("want %s, got %s", root, got)
	}
}

func TestWriteYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.yaml")
	if err := WriteYAML(path, map[string]float64{"auc": 0.75}); err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(path)
	if !strings.Contains(string(b), "auc: 0.75") {
		t.Fatalf("unexpected yaml: %s", b)
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := ExpandHome("~/.scoreloom/workspaces")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, ".scoreloom", "workspaces") {
		t.Fatalf("got %s", got)
	}
}
