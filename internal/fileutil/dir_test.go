package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	tests := map[string]func(base string) string{
		"new":      func(base string) string { return filepath.Join(base, "cache") },
		"nested":   func(base string) string { return filepath.Join(base, "logs", "workers", "1") },
		"existing": func(base string) string { return base },
	}
	for name, path := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			dir := path(t.TempDir())

			if err := EnsureDir(dir); err != nil {
				t.Fatalf("EnsureDir(%q) error: %v", dir, err)
			}
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				t.Fatalf("%q is not a directory after EnsureDir (stat error: %v)", dir, err)
			}
		})
	}
}

func TestEnsureDir_FileInTheWay(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "cache.db")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := EnsureDir(file); err == nil {
		t.Fatal("EnsureDir over a regular file should fail")
	}
}

func TestPrepareDir(t *testing.T) {
	t.Parallel()

	t.Run("empty path", func(t *testing.T) {
		t.Parallel()
		if _, err := PrepareDir(""); err == nil {
			t.Fatal("expected error for empty path")
		}
	})

	t.Run("returns absolute created path", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "cache", ".sqlite")

		got, err := PrepareDir(dir)
		if err != nil {
			t.Fatalf("PrepareDir() error: %v", err)
		}
		if !filepath.IsAbs(got) {
			t.Errorf("PrepareDir() = %q, want absolute path", got)
		}
		if info, err := os.Stat(got); err != nil || !info.IsDir() {
			t.Fatalf("%q is not a directory after PrepareDir (stat error: %v)", got, err)
		}
	})
}
