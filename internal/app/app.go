// Package app wires the nbm core to its configuration, storage and logging,
// and exposes the operations the CLI calls with raw string arguments.
package app

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"time"

	"nbm/internal/config"
	"nbm/internal/database"
	"nbm/internal/fs"
	"nbm/internal/nbm"
)

// ErrNoSelection is returned by list-level operations when no list is selected.
var ErrNoSelection = errors.New("no list selected")

// Store is the registry storage the app needs.
type Store interface {
	nbm.RegistryStore
	CheckMigrations() error
	BackupTo(destPath string) error
	Path() string
	Close() error
}

// NBMApp is the application layer between the CLI and the nbm core.
// It owns the process-wide registry: loaded on construction, saved on Close
// when an operation changed it.
type NBMApp struct {
	cfg      *config.Config
	store    Store
	registry *nbm.ListRegistry
	logger   nbm.Logger
	clock    nbm.Clock
	opts     []nbm.Option
	op       *Operation
	logFile  *os.File
}

// NewNBMApp creates a fully wired NBMApp from the given config.
// operation names the CLI command being run. The caller must call Close.
func NewNBMApp(cfg *config.Config, operation string) (*NBMApp, error) {
	clock := nbm.RealClock{}
	op := NewOperation(operation, clock.Now())

	logger, logFile, err := newLogger(cfg.LogDir, cfg.LogLevel, op.ID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	store, err := database.NewStoreFromConfig(cfg.Database, nbm.UUIDGenerator{})
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating store: %w", err)
	}

	a, err := newApp(cfg, store, &slogAdapter{l: logger}, clock, op)
	if err != nil {
		store.Close()
		logFile.Close()
		return nil, err
	}
	a.logFile = logFile
	return a, nil
}

// NewNBMAppWithStore builds an app around an existing store, logger and
// clock. Close closes the store.
func NewNBMAppWithStore(cfg *config.Config, store Store, logger nbm.Logger, clock nbm.Clock, operation string) (*NBMApp, error) {
	return newApp(cfg, store, logger, clock, NewOperation(operation, clock.Now()))
}

func newApp(cfg *config.Config, store Store, logger nbm.Logger, clock nbm.Clock, op *Operation) (*NBMApp, error) {
	if err := store.CheckMigrations(); err != nil {
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	ignore, err := loadIgnore(cfg)
	if err != nil {
		return nil, err
	}

	opts := []nbm.Option{nbm.WithLogger(logger), nbm.WithClock(clock), nbm.WithIgnore(ignore)}
	registry := nbm.NewListRegistry(opts...)
	if err := registry.Load(store); err != nil {
		return nil, err
	}

	logger.Debug("operation started", "operation", op.Name, "lists", registry.Len())
	return &NBMApp{
		cfg:      cfg,
		store:    store,
		registry: registry,
		logger:   logger,
		clock:    clock,
		opts:     opts,
		op:       op,
	}, nil
}

// loadIgnore merges the configured patterns with the data directory's ignore file.
func loadIgnore(cfg *config.Config) (*fs.IgnoreMatcher, error) {
	patterns := append([]string{}, cfg.Filesystem.Ignore...)
	if cfg.DataDir != "" {
		lines, err := fs.ParseIgnoreFile(filepath.Join(cfg.DataDir, fs.IgnoreFileName))
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, lines...)
	}
	return fs.NewIgnoreMatcher(patterns), nil
}

// Registry returns the list registry.
func (a *NBMApp) Registry() *nbm.ListRegistry { return a.registry }

// Operation returns the operation being run.
func (a *NBMApp) Operation() *Operation { return a.op }

// Now returns the app clock's current time.
func (a *NBMApp) Now() time.Time { return a.clock.Now() }

// Selected returns the selected list.
func (a *NBMApp) Selected() (*nbm.ResourceList, error) {
	l := a.registry.Selected()
	if l == nil {
		return nil, ErrNoSelection
	}
	return l, nil
}

// fail records err on the operation and returns it.
func (a *NBMApp) fail(err error) error {
	if err != nil {
		a.op.Fail()
	}
	return err
}

// NewList adds an empty list named name.
func (a *NBMApp) NewList(name string) (*nbm.ResourceList, error) {
	l := nbm.NewResourceList(name, a.opts...)
	if err := a.registry.Add(l); err != nil {
		return nil, a.fail(err)
	}
	a.op.Touch()
	return l, nil
}

// SelectList selects the list at i.
func (a *NBMApp) SelectList(i int) (*nbm.ResourceList, error) {
	l, err := a.registry.Select(i)
	if err != nil {
		return nil, a.fail(err)
	}
	a.op.Touch()
	return l, nil
}

// RemoveList removes the list at i.
func (a *NBMApp) RemoveList(i int) (*nbm.ResourceList, error) {
	l, err := a.registry.Pop(i)
	if err != nil {
		return nil, a.fail(err)
	}
	a.op.Touch()
	return l, nil
}

// CopyList duplicates the list at i.
func (a *NBMApp) CopyList(i int) (*nbm.ResourceList, error) {
	l, err := a.registry.Duplicate(i)
	if err != nil {
		return nil, a.fail(err)
	}
	a.op.Touch()
	return l, nil
}

// RenameList renames the list at i.
func (a *NBMApp) RenameList(i int, name string) error {
	if err := a.registry.Rename(i, name); err != nil {
		return a.fail(err)
	}
	a.op.Touch()
	return nil
}

// ImportLegacy adds the list stored in the legacy snapshot file to the
// registry. The snapshot file is left in place.
func (a *NBMApp) ImportLegacy() (*nbm.ResourceList, error) {
	path := a.cfg.Snapshot.ListPath
	if _, err := os.Stat(path); err != nil {
		return nil, a.fail(fmt.Errorf("%w: no list snapshot at %s", nbm.ErrNotFound, path))
	}

	l := nbm.NewResourceList("", a.opts...)
	if err := l.Load(path); err != nil {
		return nil, a.fail(err)
	}
	if l.Name == "" {
		l.Name = "legacy"
	}
	if err := a.registry.Add(l); err != nil {
		return nil, a.fail(err)
	}
	a.op.Touch()
	return l, nil
}

// SaveLegacy writes the selected list to the legacy snapshot file.
func (a *NBMApp) SaveLegacy() (string, error) {
	l, err := a.Selected()
	if err != nil {
		return "", a.fail(err)
	}
	path := a.cfg.Snapshot.ListPath
	if err := l.Save(path); err != nil {
		return "", a.fail(err)
	}
	return path, nil
}

// AddFile resolves origin, which must be a file, and appends it to the
// selected list. An empty destiny gets the default "[BACKUP] <name>".
func (a *NBMApp) AddFile(origin, destiny string) (nbm.Resource, error) {
	l, err := a.Selected()
	if err != nil {
		return nil, a.fail(err)
	}
	src, err := fs.Resolve(origin, nbm.KindFile)
	if err != nil {
		return nil, a.fail(fmt.Errorf("resolving origin: %w", err))
	}
	dst, err := fs.ResolveDestiny(destiny, src, false)
	if err != nil {
		return nil, a.fail(err)
	}

	r, err := nbm.NewFileResource(src, dst, a.opts...)
	if err != nil {
		return nil, a.fail(err)
	}
	l.Add(r)
	a.op.Touch()
	return r, nil
}

// AddDir resolves origin, which must be a directory, and appends it to the
// selected list.
func (a *NBMApp) AddDir(origin, destiny string, compress bool) (nbm.Resource, error) {
	l, err := a.Selected()
	if err != nil {
		return nil, a.fail(err)
	}
	src, err := fs.Resolve(origin, nbm.KindDir)
	if err != nil {
		return nil, a.fail(fmt.Errorf("resolving origin: %w", err))
	}
	dst, err := fs.ResolveDestiny(destiny, src, compress)
	if err != nil {
		return nil, a.fail(err)
	}

	r, err := nbm.NewDirResource(src, dst, compress, a.opts...)
	if err != nil {
		return nil, a.fail(err)
	}
	l.Add(r)
	a.op.Touch()
	return r, nil
}

// Delete removes the resource at i from the selected list.
func (a *NBMApp) Delete(i int) (nbm.Resource, error) {
	l, err := a.Selected()
	if err != nil {
		return nil, a.fail(err)
	}
	r, err := l.Pop(i)
	if err != nil {
		return nil, a.fail(err)
	}
	a.op.Touch()
	return r, nil
}

// CopyOptions merges command-line flags with the configured defaults: a
// flag can turn strict mode or ignoring failures on but not off.
func (a *NBMApp) CopyOptions(force, strict, ignoreFailures bool) (nbm.CopyOptions, error) {
	policy, err := nbm.ParseFailurePolicy(a.cfg.Backup.FailurePolicy)
	if err != nil {
		return nbm.CopyOptions{}, err
	}
	if ignoreFailures {
		policy = nbm.IgnoreFailures
	}
	return nbm.CopyOptions{
		Force:  force,
		Strict: strict || a.cfg.Backup.Strict,
		Policy: policy,
	}, nil
}

// Status reports which resources of the selected list need a backup.
func (a *NBMApp) Status(strict bool) (iter.Seq2[nbm.Resource, bool], error) {
	l, err := a.Selected()
	if err != nil {
		return nil, a.fail(err)
	}
	return l.Status(strict || a.cfg.Backup.Strict), nil
}

// Backup backs up the span of the selected list. Backup times change, so
// the registry is saved on Close.
func (a *NBMApp) Backup(span nbm.Span, opts nbm.CopyOptions) (iter.Seq2[nbm.Result, nbm.Resource], error) {
	l, err := a.Selected()
	if err != nil {
		return nil, a.fail(err)
	}
	seq, err := l.Backup(span, opts)
	if err != nil {
		return nil, a.fail(err)
	}
	a.op.Touch()
	return a.track(seq), nil
}

// Restore restores the span of the selected list.
func (a *NBMApp) Restore(span nbm.Span, opts nbm.CopyOptions) (iter.Seq2[nbm.Result, nbm.Resource], error) {
	l, err := a.Selected()
	if err != nil {
		return nil, a.fail(err)
	}
	seq, err := l.Restore(span, opts)
	if err != nil {
		return nil, a.fail(err)
	}
	return a.track(seq), nil
}

// track marks the operation failed if any resource fails.
func (a *NBMApp) track(seq iter.Seq2[nbm.Result, nbm.Resource]) iter.Seq2[nbm.Result, nbm.Resource] {
	return func(yield func(nbm.Result, nbm.Resource) bool) {
		for res, r := range seq {
			if !res.OK() {
				a.op.Fail()
			}
			if !yield(res, r) {
				return
			}
		}
	}
}

// Export writes the selected list to path as JSON.
func (a *NBMApp) Export(path string) error {
	l, err := a.Selected()
	if err != nil {
		return a.fail(err)
	}
	return a.fail(l.Export(path))
}

// BackupDatabase writes a copy of the registry database to path and returns
// the path of the database it copied. The registry is saved first when this
// run changed it. An existing file at path is never overwritten.
func (a *NBMApp) BackupDatabase(path string) (string, error) {
	dest, err := filepath.Abs(path)
	if err != nil {
		return "", a.fail(fmt.Errorf("resolving backup path: %w", err))
	}
	if _, err := os.Stat(dest); err == nil {
		return "", a.fail(fmt.Errorf("%w: %s already exists", nbm.ErrValidation, dest))
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", a.fail(fmt.Errorf("creating backup directory: %w", err))
	}
	if a.op.Mutated {
		if err := a.registry.Save(a.store); err != nil {
			return "", a.fail(err)
		}
	}
	if err := a.store.BackupTo(dest); err != nil {
		return "", a.fail(err)
	}
	a.logger.Info("database backed up", "from", a.store.Path(), "to", dest)
	return a.store.Path(), nil
}

// Import reads a JSON list and adds it to the registry.
func (a *NBMApp) Import(path string) (*nbm.ResourceList, error) {
	l, err := nbm.Import(path, a.opts...)
	if err != nil {
		return nil, a.fail(err)
	}
	if err := a.registry.Add(l); err != nil {
		return nil, a.fail(err)
	}
	a.op.Touch()
	return l, nil
}

// Close saves the registry if the operation changed it, then closes the
// store and the log file.
func (a *NBMApp) Close() error {
	var firstErr error

	if a.op.Mutated {
		if err := a.registry.Save(a.store); err != nil {
			firstErr = err
		}
	}
	a.logger.Debug("operation finished", "operation", a.op.Name, "status", a.op.Status, "saved", a.op.Mutated)

	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
