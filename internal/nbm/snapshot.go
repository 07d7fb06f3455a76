package nbm

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"
)

// ListSnapshotVersion is the schema version written by Save.
const ListSnapshotVersion = 2

// snapshotEnvelope carries the schema version next to the encoded payload so
// that Load can pick the right decoder before migrating.
type snapshotEnvelope struct {
	SchemaVersion int
	Payload       []byte
}

// listSnapshotV1 is the legacy layout: no backup times, no compression.
type listSnapshotV1 struct {
	Name      string
	Resources []recordV1
}

type recordV1 struct {
	Origin  string
	Destiny string
	Type    string
}

type listSnapshotV2 struct {
	Name      string
	Resources []Record
}

// migrateV1 upgrades a version 1 snapshot. Version 1 directories were never
// compressed and nothing had been stamped.
func migrateV1(old listSnapshotV1) listSnapshotV2 {
	out := listSnapshotV2{Name: old.Name, Resources: make([]Record, len(old.Resources))}
	for i, r := range old.Resources {
		rec := Record{Origin: r.Origin, Destiny: r.Destiny, Type: Kind(r.Type)}
		if rec.Type == KindDir {
			compress := false
			rec.Compress = &compress
		}
		out.Resources[i] = rec
	}
	return out
}

// Save writes a binary snapshot of the list to path.
func (l *ResourceList) Save(path string) error {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(listSnapshotV2{Name: l.Name, Resources: l.Records()}); err != nil {
		return fmt.Errorf("encoding list %q: %w", l.Name, err)
	}

	var buf bytes.Buffer
	envelope := snapshotEnvelope{SchemaVersion: ListSnapshotVersion, Payload: payload.Bytes()}
	if err := gob.NewEncoder(&buf).Encode(envelope); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	l.env.logger.Info("saving list", "list", l.Name, "path", path)
	if err := writeFile(path, &buf, 0644, time.Time{}); err != nil {
		return fmt.Errorf("saving list %q: %w", l.Name, err)
	}
	return nil
}

// Load replaces the list's name and contents with the snapshot at path. A
// missing file is not an error and leaves the list untouched.
func (l *ResourceList) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.env.logger.Warn("list snapshot not found, nothing loaded", "path", path)
			return nil
		}
		return fmt.Errorf("opening list snapshot: %w", err)
	}
	defer f.Close()

	snap, err := decodeListSnapshot(f)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	loaded, err := listFromRecords(snap.Name, snap.Resources, l.env)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	l.Name = loaded.Name
	l.items = loaded.items
	l.env.logger.Info("list loaded", "list", l.Name, "path", path, "items", len(l.items))
	return nil
}

// decodeListSnapshot reads an envelope and migrates its payload to the
// current version.
func decodeListSnapshot(r io.Reader) (listSnapshotV2, error) {
	var envelope snapshotEnvelope
	if err := gob.NewDecoder(r).Decode(&envelope); err != nil {
		return listSnapshotV2{}, fmt.Errorf("decoding snapshot envelope: %w", err)
	}

	payload := bytes.NewReader(envelope.Payload)
	switch envelope.SchemaVersion {
	case 1:
		var v1 listSnapshotV1
		if err := gob.NewDecoder(payload).Decode(&v1); err != nil {
			return listSnapshotV2{}, fmt.Errorf("decoding version 1 snapshot: %w", err)
		}
		return migrateV1(v1), nil
	case 2:
		var v2 listSnapshotV2
		if err := gob.NewDecoder(payload).Decode(&v2); err != nil {
			return listSnapshotV2{}, fmt.Errorf("decoding version 2 snapshot: %w", err)
		}
		return v2, nil
	default:
		return listSnapshotV2{}, fmt.Errorf("unsupported snapshot version %d (latest is %d)", envelope.SchemaVersion, ListSnapshotVersion)
	}
}
