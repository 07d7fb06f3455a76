package app_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nbm/internal/app"
	"nbm/internal/config"
	"nbm/internal/database"
	"nbm/internal/fs"
	"nbm/internal/nbm"
	"nbm/internal/testutil"
)

// openApp builds an app over a file-backed store in dataDir so a second
// app can see what the first one saved.
func openApp(t *testing.T, dataDir, operation string) *app.NBMApp {
	t.Helper()

	store, err := database.NewSQLiteStore(filepath.Join(dataDir, database.DatabaseFile), testutil.NewStubIDGenerator())
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	a, err := app.NewNBMAppWithStore(config.NewConfig(dataDir), store, &testutil.RecordingLogger{}, testutil.FixedClock(), operation)
	if err != nil {
		store.Close()
		t.Fatalf("NewNBMAppWithStore() error = %v", err)
	}
	return a
}

func newTestApp(t *testing.T) (*app.NBMApp, *config.Config) {
	t.Helper()

	cfg := config.NewConfig(t.TempDir())
	a, err := app.NewNBMAppWithStore(cfg, testutil.NewTestStore(t), &testutil.RecordingLogger{}, testutil.FixedClock(), "test")
	if err != nil {
		t.Fatalf("NewNBMAppWithStore() error = %v", err)
	}
	return a, cfg
}

func TestNBMApp_Lists(t *testing.T) {
	t.Run("first new list is selected", func(t *testing.T) {
		a, _ := newTestApp(t)

		if _, err := a.NewList("work"); err != nil {
			t.Fatalf("NewList() error = %v", err)
		}
		if _, err := a.NewList("home"); err != nil {
			t.Fatalf("NewList() error = %v", err)
		}

		l, err := a.Selected()
		if err != nil {
			t.Fatalf("Selected() error = %v", err)
		}
		if l.Name != "work" {
			t.Errorf("selected = %q, want work", l.Name)
		}
		if !a.Operation().Mutated {
			t.Error("operation not marked as mutated")
		}
	})

	t.Run("duplicate name is rejected", func(t *testing.T) {
		a, _ := newTestApp(t)
		a.NewList("work")

		_, err := a.NewList("work")
		if !errors.Is(err, nbm.ErrDuplicateName) {
			t.Errorf("NewList() error = %v, want ErrDuplicateName", err)
		}
		if a.Operation().Status != "error" {
			t.Errorf("status = %q, want error", a.Operation().Status)
		}
	})

	t.Run("no selection", func(t *testing.T) {
		a, _ := newTestApp(t)

		if _, err := a.Selected(); !errors.Is(err, app.ErrNoSelection) {
			t.Errorf("Selected() error = %v, want ErrNoSelection", err)
		}
		if _, err := a.Status(false); !errors.Is(err, app.ErrNoSelection) {
			t.Errorf("Status() error = %v, want ErrNoSelection", err)
		}
	})

	t.Run("select, copy, rename and remove", func(t *testing.T) {
		a, _ := newTestApp(t)
		a.NewList("work")
		a.NewList("home")

		if _, err := a.SelectList(1); err != nil {
			t.Fatalf("SelectList() error = %v", err)
		}
		cp, err := a.CopyList(1)
		if err != nil {
			t.Fatalf("CopyList() error = %v", err)
		}
		if cp.Name != "Copy 1 of home" {
			t.Errorf("copy name = %q", cp.Name)
		}
		if err := a.RenameList(2, "garage"); err != nil {
			t.Fatalf("RenameList() error = %v", err)
		}
		if _, err := a.RemoveList(1); err != nil {
			t.Fatalf("RemoveList() error = %v", err)
		}

		got := strings.Join(a.Registry().Names(), ",")
		if got != "work,garage" {
			t.Errorf("names = %s, want work,garage", got)
		}
		if _, err := a.Selected(); !errors.Is(err, app.ErrNoSelection) {
			t.Errorf("removing the selected list should clear the selection, got %v", err)
		}
	})

	t.Run("select out of range", func(t *testing.T) {
		a, _ := newTestApp(t)

		if _, err := a.SelectList(0); !errors.Is(err, nbm.ErrIndexOutOfRange) {
			t.Errorf("SelectList() error = %v, want ErrIndexOutOfRange", err)
		}
	})
}

func TestNBMApp_AddAndDelete(t *testing.T) {
	root := t.TempDir()
	file := testutil.WriteFile(t, filepath.Join(root, "notes.txt"), "notes", testutil.BaseTime)
	testutil.WriteTree(t, filepath.Join(root, "docs"), map[string]string{"a.txt": "a"})

	a, _ := newTestApp(t)
	a.NewList("work")

	r, err := a.AddFile(file, "")
	if err != nil {
		t.Fatalf("AddFile() error = %v", err)
	}
	if want := filepath.Join(root, fs.BackupPrefix+"notes.txt"); r.Destiny() != want {
		t.Errorf("destiny = %s, want %s", r.Destiny(), want)
	}

	d, err := a.AddDir(filepath.Join(root, "docs"), "", true)
	if err != nil {
		t.Fatalf("AddDir() error = %v", err)
	}
	if want := filepath.Join(root, fs.BackupPrefix+"docs.zip"); d.Destiny() != want {
		t.Errorf("destiny = %s, want %s", d.Destiny(), want)
	}

	if _, err := a.AddFile(filepath.Join(root, "docs"), ""); !errors.Is(err, nbm.ErrValidation) {
		t.Errorf("AddFile(dir) error = %v, want ErrValidation", err)
	}
	if _, err := a.AddDir(file, "", false); !errors.Is(err, nbm.ErrValidation) {
		t.Errorf("AddDir(file) error = %v, want ErrValidation", err)
	}

	removed, err := a.Delete(0)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if removed.Origin() != file {
		t.Errorf("deleted %s, want %s", removed.Origin(), file)
	}

	l, _ := a.Selected()
	if l.Len() != 1 {
		t.Errorf("list length = %d, want 1", l.Len())
	}
	if _, err := a.Delete(5); !errors.Is(err, nbm.ErrIndexOutOfRange) {
		t.Errorf("Delete(5) error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestNBMApp_BackupAndRestore(t *testing.T) {
	root := t.TempDir()
	file := testutil.WriteFile(t, filepath.Join(root, "notes.txt"), "notes", testutil.BaseTime)

	a, _ := newTestApp(t)
	a.NewList("work")
	a.AddFile(file, "")
	a.Operation().Mutated = false

	opts, err := a.CopyOptions(false, false, false)
	if err != nil {
		t.Fatalf("CopyOptions() error = %v", err)
	}
	seq, err := a.Backup(nbm.SpanAll(), opts)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	for res := range seq {
		if res.Outcome != nbm.Copied {
			t.Errorf("outcome = %v, want copied", res.Outcome)
		}
	}
	if !a.Operation().Mutated {
		t.Error("backup should mark the registry as changed")
	}

	backup := filepath.Join(root, fs.BackupPrefix+"notes.txt")
	if got := string(testutil.ReadFile(t, backup)); got != "notes" {
		t.Errorf("backup content = %q", got)
	}

	status, _ := a.Status(false)
	for r, diff := range status {
		if diff {
			t.Errorf("%s still differs after backup", r.Name())
		}
	}

	if err := os.Remove(file); err != nil {
		t.Fatal(err)
	}
	seq, err = a.Restore(nbm.SpanOf(0), opts)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	for res := range seq {
		if res.Outcome != nbm.Copied {
			t.Errorf("restore outcome = %v, want copied", res.Outcome)
		}
	}
	if got := string(testutil.ReadFile(t, file)); got != "notes" {
		t.Errorf("restored content = %q", got)
	}

	if _, err := a.Backup(nbm.SpanRange(0, 4), opts); !errors.Is(err, nbm.ErrIndexOutOfRange) {
		t.Errorf("Backup(bad span) error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestNBMApp_FailedBackupMarksOperation(t *testing.T) {
	root := t.TempDir()
	file := testutil.WriteFile(t, filepath.Join(root, "notes.txt"), "notes", testutil.BaseTime)

	a, _ := newTestApp(t)
	a.NewList("work")
	a.AddFile(file, "")
	os.Remove(file)

	seq, err := a.Backup(nbm.SpanAll(), nbm.CopyOptions{})
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	for res := range seq {
		if res.OK() {
			t.Error("backup of a missing origin should fail")
		}
	}
	if a.Operation().Status != "error" {
		t.Errorf("status = %q, want error", a.Operation().Status)
	}
}

func TestNBMApp_CopyOptions(t *testing.T) {
	tests := []struct {
		name        string
		cfgStrict   bool
		cfgPolicy   string
		force       bool
		strict      bool
		ignore      bool
		want        nbm.CopyOptions
		expectError bool
	}{
		{
			name: "defaults",
			want: nbm.CopyOptions{Policy: nbm.StopOnFailure},
		},
		{
			name:   "flags",
			force:  true,
			strict: true,
			ignore: true,
			want:   nbm.CopyOptions{Force: true, Strict: true, Policy: nbm.IgnoreFailures},
		},
		{
			name:      "config",
			cfgStrict: true,
			cfgPolicy: "ignore",
			want:      nbm.CopyOptions{Strict: true, Policy: nbm.IgnoreFailures},
		},
		{
			name:        "bad policy",
			cfgPolicy:   "retry",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, cfg := newTestApp(t)
			cfg.Backup.Strict = tt.cfgStrict
			cfg.Backup.FailurePolicy = tt.cfgPolicy

			got, err := a.CopyOptions(tt.force, tt.strict, tt.ignore)
			if tt.expectError {
				if err == nil {
					t.Error("CopyOptions() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("CopyOptions() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CopyOptions() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNBMApp_ExportImport(t *testing.T) {
	root := t.TempDir()
	file := testutil.WriteFile(t, filepath.Join(root, "notes.txt"), "notes", testutil.BaseTime)

	a, _ := newTestApp(t)
	a.NewList("work")
	a.AddFile(file, "")

	path := filepath.Join(root, "work.json")
	if err := a.Export(path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if _, err := a.Import(path); !errors.Is(err, nbm.ErrDuplicateName) {
		t.Errorf("Import() into a registry holding the name: error = %v, want ErrDuplicateName", err)
	}

	a.RenameList(0, "old")
	l, err := a.Import(path)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if l.Name != "work" || l.Len() != 1 {
		t.Errorf("imported %q with %d items", l.Name, l.Len())
	}
}

func TestNBMApp_Legacy(t *testing.T) {
	root := t.TempDir()
	file := testutil.WriteFile(t, filepath.Join(root, "notes.txt"), "notes", testutil.BaseTime)

	a, cfg := newTestApp(t)

	if _, err := a.ImportLegacy(); !errors.Is(err, nbm.ErrNotFound) {
		t.Errorf("ImportLegacy() without a snapshot: error = %v, want ErrNotFound", err)
	}

	a.NewList("work")
	a.AddFile(file, "")
	path, err := a.SaveLegacy()
	if err != nil {
		t.Fatalf("SaveLegacy() error = %v", err)
	}
	if path != cfg.Snapshot.ListPath {
		t.Errorf("saved to %s, want %s", path, cfg.Snapshot.ListPath)
	}

	a.RenameList(0, "current")
	l, err := a.ImportLegacy()
	if err != nil {
		t.Fatalf("ImportLegacy() error = %v", err)
	}
	if l.Name != "work" || l.Len() != 1 {
		t.Errorf("imported %q with %d items", l.Name, l.Len())
	}
}

func TestNBMApp_BackupDatabase(t *testing.T) {
	dataDir := t.TempDir()
	a := openApp(t, dataDir, "new")
	a.NewList("work")
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	copyDir := filepath.Join(t.TempDir(), "copies")
	dest := filepath.Join(copyDir, database.DatabaseFile)

	b := openApp(t, dataDir, "db backup")
	from, err := b.BackupDatabase(dest)
	if err != nil {
		t.Fatalf("BackupDatabase() error = %v", err)
	}
	if want := filepath.Join(dataDir, database.DatabaseFile); from != want {
		t.Errorf("BackupDatabase() copied %s, want %s", from, want)
	}
	if _, err := b.BackupDatabase(dest); !errors.Is(err, nbm.ErrValidation) {
		t.Errorf("BackupDatabase() over an existing file error = %v, want ErrValidation", err)
	}
	b.Close()

	c := openApp(t, copyDir, "show")
	defer c.Close()
	if _, ok := c.Registry().Find("work"); !ok {
		t.Errorf("backup holds lists %v, want work", c.Registry().Names())
	}
}

func TestNBMApp_Close(t *testing.T) {
	t.Run("saves a changed registry", func(t *testing.T) {
		dataDir := t.TempDir()
		file := testutil.WriteFile(t, filepath.Join(dataDir, "notes.txt"), "notes", testutil.BaseTime)

		a := openApp(t, dataDir, "new")
		a.NewList("work")
		a.NewList("home")
		a.SelectList(1)
		a.AddFile(file, "")
		if err := a.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		b := openApp(t, dataDir, "show")
		defer b.Close()

		if got := strings.Join(b.Registry().Names(), ","); got != "work,home" {
			t.Errorf("names = %s, want work,home", got)
		}
		l, err := b.Selected()
		if err != nil {
			t.Fatalf("Selected() error = %v", err)
		}
		if l.Name != "home" || l.Len() != 1 {
			t.Errorf("selected %q with %d items", l.Name, l.Len())
		}
	})

	t.Run("read-only operation leaves the store alone", func(t *testing.T) {
		dataDir := t.TempDir()

		a := openApp(t, dataDir, "new")
		a.NewList("work")
		a.Close()

		b := openApp(t, dataDir, "show")
		b.Registry().Add(nbm.NewResourceList("unsaved"))
		b.Close()

		c := openApp(t, dataDir, "show")
		defer c.Close()
		if got := c.Registry().Len(); got != 1 {
			t.Errorf("registry length = %d, want 1", got)
		}
	})
}

func TestNBMApp_IgnoreFile(t *testing.T) {
	dataDir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dataDir, fs.IgnoreFileName), "*.log\n", testutil.BaseTime)
	docs := testutil.WriteTree(t, filepath.Join(t.TempDir(), "docs"), map[string]string{
		"a.txt":     "a",
		"debug.log": "noise",
	})

	a := openApp(t, dataDir, "backup")
	defer a.Close()
	a.NewList("work")
	if _, err := a.AddDir(docs, "", false); err != nil {
		t.Fatalf("AddDir() error = %v", err)
	}

	seq, err := a.Backup(nbm.SpanAll(), nbm.CopyOptions{})
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	for res := range seq {
		if res.Copied != 1 {
			t.Errorf("copied = %d, want 1", res.Copied)
		}
	}

	backup := fs.DefaultDestiny(docs, false)
	if !testutil.Exists(filepath.Join(backup, "a.txt")) {
		t.Error("a.txt was not backed up")
	}
	if testutil.Exists(filepath.Join(backup, "debug.log")) {
		t.Error("debug.log should have been ignored")
	}
}
