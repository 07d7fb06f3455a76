package nbm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Kind tags the concrete variant of a Resource.
type Kind string

const (
	KindFile Kind = "file"
	KindDir  Kind = "dir"
)

// Outcome is the result of a single backup or restore.
type Outcome int

const (
	// Copied means bytes were written to the target.
	Copied Outcome = iota + 1
	// Skipped means origin and destiny were already in sync.
	Skipped
	// Failed means the operation did not complete.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Copied:
		return "copied"
	case Skipped:
		return "unchanged"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result reports what a backup or restore did. For directory resources the
// counters hold per-member totals; for files exactly one of them is 1.
type Result struct {
	Outcome Outcome
	Copied  int
	Skipped int
	Failed  int
	Err     error
}

// OK reports whether the operation did not fail.
func (r Result) OK() bool { return r.Outcome != Failed }

func copiedResult() Result  { return Result{Outcome: Copied, Copied: 1} }
func skippedResult() Result { return Result{Outcome: Skipped, Skipped: 1} }
func failedResult(err error) Result {
	return Result{Outcome: Failed, Failed: 1, Err: err}
}

// FailurePolicy decides what a directory backup does when a member fails.
type FailurePolicy int

const (
	// StopOnFailure aborts the directory at the first failing member.
	StopOnFailure FailurePolicy = iota
	// IgnoreFailures keeps going and reports success once the walk completes.
	IgnoreFailures
)

// ParseFailurePolicy converts a config value ("stop", "ignore") to a FailurePolicy.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "stop", "":
		return StopOnFailure, nil
	case "ignore":
		return IgnoreFailures, nil
	default:
		return StopOnFailure, fmt.Errorf("unknown failure policy: %q", s)
	}
}

// CopyOptions controls a backup or restore.
type CopyOptions struct {
	// Force copies even when origin and destiny look identical.
	Force bool
	// Strict compares contents when modification times match.
	Strict bool
	// Policy applies to directory members.
	Policy FailurePolicy
}

// Resource is one origin to destiny backup mapping.
type Resource interface {
	Kind() Kind
	// Name is the base name of the origin.
	Name() string
	Origin() string
	Destiny() string
	// LastBackup returns the time of the last successful backup, if any.
	LastBackup() (time.Time, bool)

	// Size returns the origin's size in bytes. An error means the size is
	// unknown, not zero.
	Size() (int64, error)
	// FileCount returns the number of files the resource is made of.
	FileCount() (int, error)

	// AreDifferent reports whether a copy is needed. Missing sides always
	// count as different.
	AreDifferent(strict bool) bool
	Backup(opts CopyOptions) Result
	Restore(opts CopyOptions) Result

	Report(index int) string
	Equal(other Resource) bool
	Record() Record
}

// Option configures a resource at construction.
type Option func(*env)

// WithLogger sets the logger that receives outcomes.
func WithLogger(l Logger) Option {
	return func(e *env) { e.logger = l }
}

// WithClock sets the clock used to stamp backups.
func WithClock(c Clock) Option {
	return func(e *env) { e.clock = c }
}

// WithIgnore sets the matcher for files that directory walks leave out.
func WithIgnore(m Matcher) Option {
	return func(e *env) { e.ignore = m }
}

type env struct {
	logger Logger
	clock  Clock
	ignore Matcher
}

func newEnv(opts []Option) env {
	e := env{logger: NewNopLogger(), clock: RealClock{}}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// base holds the fields shared by both resource variants.
type base struct {
	env
	origin  string
	destiny string
	last    *time.Time
}

func newBase(origin, destiny string, e env) (base, error) {
	if destiny == "" {
		return base{}, fmt.Errorf("%w: destiny is empty", ErrValidation)
	}
	absOrigin, err := filepath.Abs(origin)
	if err != nil {
		return base{}, fmt.Errorf("%w: resolving origin: %v", ErrValidation, err)
	}
	absDestiny, err := filepath.Abs(destiny)
	if err != nil {
		return base{}, fmt.Errorf("%w: resolving destiny: %v", ErrValidation, err)
	}
	return base{env: e, origin: absOrigin, destiny: absDestiny}, nil
}

func (b *base) Name() string    { return filepath.Base(b.origin) }
func (b *base) Origin() string  { return b.origin }
func (b *base) Destiny() string { return b.destiny }

func (b *base) LastBackup() (time.Time, bool) {
	if b.last == nil {
		return time.Time{}, false
	}
	return *b.last, true
}

func (b *base) stamp() {
	now := b.clock.Now()
	b.last = &now
}

// checkOrigin validates that origin exists and matches the wanted kind.
func checkOrigin(origin string, want Kind) error {
	info, err := os.Stat(origin)
	if err != nil {
		return fmt.Errorf("%w: origin %s: %v", ErrValidation, origin, err)
	}
	switch {
	case want == KindFile && !info.Mode().IsRegular():
		return fmt.Errorf("%w: origin %s is not a file", ErrValidation, origin)
	case want == KindDir && !info.IsDir():
		return fmt.Errorf("%w: origin %s is not a directory", ErrValidation, origin)
	}
	return nil
}

// Within reports whether path is root itself or lies below it.
func Within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// sameSecond compares modification times truncated to whole seconds, since
// some filesystems add sub-second jitter on copy.
func sameSecond(a, b time.Time) bool {
	return a.Unix() == b.Unix()
}
