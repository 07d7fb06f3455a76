package nbm

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"testing"
)

func writeEnvelope(t *testing.T, path string, version int, payload any) {
	t.Helper()

	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(payload); err != nil {
		t.Fatalf("encoding payload: %v", err)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snapshotEnvelope{SchemaVersion: version, Payload: body.Bytes()}); err != nil {
		t.Fatalf("encoding envelope: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_MigratesVersion1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "files")
	writeEnvelope(t, path, 1, listSnapshotV1{
		Name: "legacy",
		Resources: []recordV1{
			{Origin: "/home/u/a.txt", Destiny: "/bk/a.txt", Type: "file"},
			{Origin: "/home/u/docs", Destiny: "/bk/docs", Type: "dir"},
		},
	})

	l := NewResourceList("")
	if err := l.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if l.Name != "legacy" || l.Len() != 2 {
		t.Fatalf("Load() = %q with %d items", l.Name, l.Len())
	}

	d, ok := l.items[1].(*DirResource)
	if !ok {
		t.Fatalf("item 1 is %T, want *DirResource", l.items[1])
	}
	if d.Compress() {
		t.Error("version 1 directories were never compressed")
	}
	if _, ok := d.LastBackup(); ok {
		t.Error("version 1 resources have no backup time")
	}
}

func TestLoad_RejectsFutureVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "files")
	writeEnvelope(t, path, ListSnapshotVersion+1, listSnapshotV2{Name: "future"})

	if err := NewResourceList("").Load(path); err == nil {
		t.Error("Load() of a newer snapshot version expected error")
	}
}

func TestMemberName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"a.txt", "a.txt", false},
		{"sub/./b.txt", "sub/b.txt", false},
		{`win\style.txt`, "win/style.txt", false},
		{"../up.txt", "", true},
		{"/abs.txt", "", true},
		{"sub/../../up.txt", "", true},
		{".", "", true},
	}
	for _, tt := range tests {
		got, err := memberName(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("memberName(%q) = %q, %v", tt.in, got, err)
		}
	}
}
