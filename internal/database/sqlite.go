package database

import (
	"context"
	"database/sql"
	"fmt"

	"nbm/internal/database/migrations"
	"nbm/internal/nbm"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore persists the list registry in SQLite. It implements nbm.RegistryStore.
type SQLiteStore struct {
	db   *sql.DB
	ids  nbm.IDGenerator
	path string
}

var _ nbm.RegistryStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database at path and migrates it to the latest
// schema. path can be a file path or ":memory:". ids may be nil, in which
// case rows get random UUIDs.
func NewSQLiteStore(path string, ids nbm.IDGenerator) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}

	s := NewSQLiteStoreFromDB(db, ids)
	s.path = path
	return s, nil
}

// NewSQLiteStoreFromDB wraps an existing, already migrated connection.
func NewSQLiteStoreFromDB(db *sql.DB, ids nbm.IDGenerator) *SQLiteStore {
	if ids == nil {
		ids = nbm.UUIDGenerator{}
	}
	return &SQLiteStore{db: db, ids: ids}
}

// OpenConnection opens a SQLite database with foreign keys enabled.
// An in-memory database is limited to one connection, since every new
// connection to ":memory:" would see a separate empty database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

// SaveRegistry replaces every stored list with the lists in snap, in one transaction.
func (s *SQLiteStore) SaveRegistry(snap *nbm.RegistrySnapshot) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM resources"); err != nil {
		return fmt.Errorf("clearing resources: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM lists"); err != nil {
		return fmt.Errorf("clearing lists: %w", err)
	}

	for pos, list := range snap.Lists {
		listID := s.ids.New()
		_, err := tx.ExecContext(ctx,
			"INSERT INTO lists (id, name, position, selected) VALUES (?, ?, ?, ?)",
			listID, list.Name, pos, pos == snap.Selected)
		if err != nil {
			return fmt.Errorf("inserting list %q: %w", list.Name, err)
		}

		for rpos, rec := range list.Resources {
			if err := insertResource(ctx, tx, s.ids.New(), listID, rpos, rec); err != nil {
				return fmt.Errorf("inserting resource %d of list %q: %w", rpos, list.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func insertResource(ctx context.Context, tx *sql.Tx, id, listID string, pos int, rec nbm.Record) error {
	var last sql.NullFloat64
	if rec.Last != nil {
		last = sql.NullFloat64{Float64: *rec.Last, Valid: true}
	}
	var compress sql.NullBool
	if rec.Compress != nil {
		compress = sql.NullBool{Bool: *rec.Compress, Valid: true}
	}
	var atPath sql.NullString
	if rec.AtPath != nil {
		atPath = sql.NullString{String: *rec.AtPath, Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO resources (id, list_id, position, kind, origin, destiny, last_backup, compress, at_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, listID, pos, string(rec.Type), rec.Origin, rec.Destiny, last, compress, atPath)
	return err
}

// LoadRegistry reads every stored list in position order. It returns nil
// when no list has been stored.
func (s *SQLiteStore) LoadRegistry() (*nbm.RegistrySnapshot, error) {
	ctx := context.Background()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, selected FROM lists ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("querying lists: %w", err)
	}
	defer rows.Close()

	snap := &nbm.RegistrySnapshot{Selected: -1}
	var ids []string
	for rows.Next() {
		var (
			id, name string
			selected bool
		)
		if err := rows.Scan(&id, &name, &selected); err != nil {
			return nil, fmt.Errorf("scanning list: %w", err)
		}
		if selected {
			snap.Selected = len(snap.Lists)
		}
		ids = append(ids, id)
		snap.Lists = append(snap.Lists, nbm.ListSnapshot{Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading lists: %w", err)
	}
	if len(snap.Lists) == 0 {
		return nil, nil
	}

	for i, id := range ids {
		recs, err := s.loadResources(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loading list %q: %w", snap.Lists[i].Name, err)
		}
		snap.Lists[i].Resources = recs
	}
	return snap, nil
}

func (s *SQLiteStore) loadResources(ctx context.Context, listID string) ([]nbm.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, origin, destiny, last_backup, compress, at_path
		FROM resources WHERE list_id = ? ORDER BY position`, listID)
	if err != nil {
		return nil, fmt.Errorf("querying resources: %w", err)
	}
	defer rows.Close()

	var recs []nbm.Record
	for rows.Next() {
		var (
			rec      nbm.Record
			kind     string
			last     sql.NullFloat64
			compress sql.NullBool
			atPath   sql.NullString
		)
		if err := rows.Scan(&kind, &rec.Origin, &rec.Destiny, &last, &compress, &atPath); err != nil {
			return nil, fmt.Errorf("scanning resource: %w", err)
		}
		rec.Type = nbm.Kind(kind)
		if last.Valid {
			rec.Last = &last.Float64
		}
		if compress.Valid {
			rec.Compress = &compress.Bool
		}
		if atPath.Valid {
			rec.AtPath = &atPath.String
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteStore) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo writes a complete copy of the database to destPath using VACUUM INTO.
func (s *SQLiteStore) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
