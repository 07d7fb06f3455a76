package nbm

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"
)

// Record is the serialized form of a resource, shared by the JSON
// interchange format, the binary list snapshot and the registry store.
// Optional fields may be absent: Last means "never backed up", Compress
// "not compressed", AtPath "top-level, not a directory member".
type Record struct {
	Origin   string   `json:"origin_path"`
	Destiny  string   `json:"destiny_path"`
	Type     Kind     `json:"type"`
	Last     *float64 `json:"last"`
	Compress *bool    `json:"compress,omitempty"`
	AtPath   *string  `json:"at_path,omitempty"`
}

// FromRecord rebuilds a resource from its record. Origins are not required to
// exist: a stored list must stay usable for restores after the origin is gone.
func FromRecord(rec Record, opts ...Option) (Resource, error) {
	if rec.Origin == "" || rec.Destiny == "" {
		return nil, fmt.Errorf("%w: record needs origin and destiny paths", ErrValidation)
	}

	b := base{
		env:     newEnv(opts),
		origin:  filepath.Clean(rec.Origin),
		destiny: filepath.Clean(rec.Destiny),
		last:    fromEpochSeconds(rec.Last),
	}

	switch rec.Type {
	case KindFile:
		f := &FileResource{base: b}
		if rec.AtPath != nil && *rec.AtPath != "" {
			f.relativePath = *rec.AtPath
			// A loose member's destiny ends with its relative path; an
			// archive member's destiny is the archive itself.
			f.inArchive = !strings.HasSuffix(filepath.ToSlash(f.destiny), "/"+f.relativePath)
		}
		return f, nil
	case KindDir:
		d := &DirResource{base: b}
		if rec.Compress != nil {
			d.compress = *rec.Compress
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%w: unknown resource type %q", ErrValidation, rec.Type)
	}
}

func epochSeconds(t *time.Time) *float64 {
	if t == nil {
		return nil
	}
	secs := float64(t.UnixNano()) / 1e9
	return &secs
}

func fromEpochSeconds(secs *float64) *time.Time {
	if secs == nil || math.IsNaN(*secs) || math.IsInf(*secs, 0) {
		return nil
	}
	whole, frac := math.Modf(*secs)
	t := time.Unix(int64(whole), int64(math.Round(frac*1e9)))
	return &t
}
