package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		DataDir:  "/home/user/.local/share/nbm",
		LogDir:   "/home/user/.local/state/nbm",
		LogLevel: "debug",
		Database: DatabaseConfig{Type: "sqlite", DataDir: "/home/user/.local/share/nbm/db"},
		Backup:   BackupConfig{Strict: true, FailurePolicy: "ignore"},
		Snapshot: SnapshotConfig{ListPath: "/home/user/.local/share/nbm/files"},
		Filesystem: FilesystemConfig{
			Ignore: []string{"*.log", ".git"},
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.DataDir != original.DataDir {
		t.Errorf("DataDir = %q, want %q", got.DataDir, original.DataDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", got.LogLevel, "debug")
	}
	if got.Database != original.Database {
		t.Errorf("Database = %+v, want %+v", got.Database, original.Database)
	}
	if got.Backup != original.Backup {
		t.Errorf("Backup = %+v, want %+v", got.Backup, original.Backup)
	}
	if got.Snapshot.ListPath != original.Snapshot.ListPath {
		t.Errorf("Snapshot.ListPath = %q, want %q", got.Snapshot.ListPath, original.Snapshot.ListPath)
	}
	if len(got.Filesystem.Ignore) != 2 {
		t.Fatalf("len(Filesystem.Ignore) = %d, want 2", len(got.Filesystem.Ignore))
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/nbm")

	if cfg.DataDir != "/data/nbm" {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, "/data/nbm")
	}
	if cfg.LogDir != "/data/nbm/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/nbm/log")
	}
	if cfg.Database.Type != "sqlite" || cfg.Database.DataDir != "/data/nbm" {
		t.Errorf("Database = %+v, want sqlite in /data/nbm", cfg.Database)
	}
	if cfg.Backup.FailurePolicy != "stop" {
		t.Errorf("Backup.FailurePolicy = %q, want %q", cfg.Backup.FailurePolicy, "stop")
	}
	if cfg.Snapshot.ListPath != "/data/nbm/files" {
		t.Errorf("Snapshot.ListPath = %q, want %q", cfg.Snapshot.ListPath, "/data/nbm/files")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"memory database", func(c *Config) { c.Database.Type = "memory" }, ""},
		{"unknown database", func(c *Config) { c.Database.Type = "postgres" }, "database type"},
		{"empty failure policy", func(c *Config) { c.Backup.FailurePolicy = "" }, ""},
		{"unknown failure policy", func(c *Config) { c.Backup.FailurePolicy = "retry" }, "failure policy"},
		{"unknown log level", func(c *Config) { c.LogLevel = "trace" }, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("/data/nbm")
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "nbm.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nbm.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}
		if err := Init(path, cfg); err == nil {
			t.Fatal("second Init() expected error")
		}
	})

	t.Run("refuses invalid config", func(t *testing.T) {
		dir := t.TempDir()
		cfg := NewConfig(dir)
		cfg.Database.Type = "nope"

		if err := Init(filepath.Join(dir, "nbm.toml"), cfg); err == nil {
			t.Fatal("Init() expected error for invalid config")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nbm.toml")
		cfg := NewConfig(dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
		if got.DataDir != dir {
			t.Errorf("DataDir = %q, want %q", got.DataDir, dir)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nbm.toml")
		content := "data_dir = \"/x\"\n[database]\ntype = \"mongo\"\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadFromFile(path); err == nil {
			t.Fatal("ReadFromFile() expected validation error")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		if _, err := ReadFromFile("/nonexistent/path/nbm.toml"); err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
