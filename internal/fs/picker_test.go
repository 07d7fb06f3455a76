package fs_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"nbm/internal/fs"
	"nbm/internal/nbm"
)

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink(file, link); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		raw     string
		want    nbm.Kind
		wantErr bool
	}{
		{"file as file", file, nbm.KindFile, false},
		{"dir as dir", dir, nbm.KindDir, false},
		{"any kind", dir, "", false},
		{"file as dir", file, nbm.KindDir, true},
		{"dir as file", dir, nbm.KindFile, true},
		{"missing", filepath.Join(dir, "missing"), nbm.KindFile, true},
		{"symlink", link, "", true},
		{"empty", "  ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fs.Resolve(tt.raw, tt.want)
			if tt.wantErr {
				if !errors.Is(err, nbm.ErrValidation) {
					t.Errorf("Resolve() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if !filepath.IsAbs(got) {
				t.Errorf("Resolve() = %q, want an absolute path", got)
			}
		})
	}
}

func TestDefaultDestiny(t *testing.T) {
	if got, want := fs.DefaultDestiny("/home/u/notes.txt", false), "/home/u/[BACKUP] notes.txt"; got != want {
		t.Errorf("DefaultDestiny() = %q, want %q", got, want)
	}
	if got, want := fs.DefaultDestiny("/home/u/photos", true), "/home/u/[BACKUP] photos.zip"; got != want {
		t.Errorf("DefaultDestiny(compress) = %q, want %q", got, want)
	}
}

func TestResolveDestiny(t *testing.T) {
	t.Run("empty falls back to default", func(t *testing.T) {
		got, err := fs.ResolveDestiny("", "/home/u/a.txt", false)
		if err != nil {
			t.Fatalf("ResolveDestiny() error = %v", err)
		}
		if got != "/home/u/[BACKUP] a.txt" {
			t.Errorf("ResolveDestiny() = %q", got)
		}
	})

	t.Run("origin itself is refused", func(t *testing.T) {
		_, err := fs.ResolveDestiny("/home/u/a.txt", "/home/u/a.txt", false)
		if !errors.Is(err, nbm.ErrValidation) {
			t.Errorf("ResolveDestiny() error = %v, want ErrValidation", err)
		}
	})

	t.Run("destiny inside origin is refused", func(t *testing.T) {
		for _, raw := range []string{"/home/u/docs/bk", "/home/u/docs/sub/docs.zip"} {
			if _, err := fs.ResolveDestiny(raw, "/home/u/docs", true); !errors.Is(err, nbm.ErrValidation) {
				t.Errorf("ResolveDestiny(%q) error = %v, want ErrValidation", raw, err)
			}
		}
	})

	t.Run("sibling with shared prefix is accepted", func(t *testing.T) {
		got, err := fs.ResolveDestiny("/home/u/docs-bk", "/home/u/docs", false)
		if err != nil {
			t.Fatalf("ResolveDestiny() error = %v", err)
		}
		if got != "/home/u/docs-bk" {
			t.Errorf("ResolveDestiny() = %q", got)
		}
	})
}
