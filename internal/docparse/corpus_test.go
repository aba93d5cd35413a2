package docparse

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "readme.md"), "# a")
	writeFile(t, filepath.Join(dir, "guide.MDX"), "# b")
	writeFile(t, filepath.Join(dir, "notes.markdown"), "# c")
	writeFile(t, filepath.Join(dir, "main.go"), "package main")
	writeFile(t, filepath.Join(dir, "docs", "api.md"), "# d")
	writeFile(t, filepath.Join(dir, "node_modules", "dep", "readme.md"), "# skip")
	writeFile(t, filepath.Join(dir, ".git", "description"), "skip")
	writeFile(t, filepath.Join(dir, "dist", "out.md"), "# skip")

	files, err := CollectFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 4 {
		t.Fatalf("expected 4 files, got %d: %v", len(files), files)
	}
	for _, f := range files {
		if filepath.Base(filepath.Dir(f)) == "node_modules" || filepath.Base(filepath.Dir(f)) == "dist" {
			t.Errorf("skip directory leaked: %s", f)
		}
	}
	if !sort.StringsAreSorted(files) {
		t.Errorf("files not in lexicographic order: %v", files)
	}
}

func TestCollectFilesSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	writeFile(t, path, "# single")

	files, err := CollectFiles(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != path {
		t.Fatalf("got %v", files)
	}
}

func TestCollectFilesMissing(t *testing.T) {
	if _, err := CollectFiles(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	writeFile(t, path, "# Title\n\nbody")

	doc, err := ReadDocument(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Path != path || doc.Content != "# Title\n\nbody" {
		t.Fatalf("got %+v", doc)
	}
}
