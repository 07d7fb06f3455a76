package nbm

import (
	"archive/zip"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Member is one file of a directory resource, addressed by its path relative
// to the directory root. RelativePath always uses forward slashes.
type Member struct {
	RelativePath string
	Size         int64
	ModTime      time.Time
	Mode         fs.FileMode
}

// MemberSource enumerates the files a directory resource is made of. The
// sequence is lazy and restartable: every call to Members scans again.
type MemberSource interface {
	Members() iter.Seq2[Member, error]
}

// Matcher decides which relative paths a tree walk leaves out.
type Matcher interface {
	Match(relativePath string) bool
}

// TreeSource lists the regular files below a loose directory. Paths matched
// by Ignore, if set, are not members; a matched directory is skipped whole.
type TreeSource struct {
	Root   string
	Ignore Matcher
}

var errStopWalk = errors.New("stop walk")

// Members walks Root recursively. Directories, symlinks and other special
// files are not members.
func (s TreeSource) Members() iter.Seq2[Member, error] {
	return func(yield func(Member, error) bool) {
		err := filepath.WalkDir(s.Root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(s.Root, p)
			if err != nil {
				return fmt.Errorf("calculating relative path: %w", err)
			}
			rel = filepath.ToSlash(rel)
			if rel != "." && s.Ignore != nil && s.Ignore.Match(rel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("stat %s: %w", p, err)
			}
			m := Member{
				RelativePath: rel,
				Size:         info.Size(),
				ModTime:      info.ModTime(),
				Mode:         info.Mode(),
			}
			if !yield(m, nil) {
				return errStopWalk
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopWalk) {
			yield(Member{}, fmt.Errorf("walking %s: %w", s.Root, err))
		}
	}
}

// ArchiveSource lists the file entries of a zip archive.
type ArchiveSource struct {
	Path string
}

// Members reads the archive's central directory. Directory entries are skipped.
func (s ArchiveSource) Members() iter.Seq2[Member, error] {
	return func(yield func(Member, error) bool) {
		r, err := zip.OpenReader(s.Path)
		if err != nil {
			yield(Member{}, fmt.Errorf("opening archive %s: %w", s.Path, err))
			return
		}
		defer r.Close()

		for _, f := range r.File {
			if isArchiveDir(f) {
				continue
			}
			rel, err := memberName(f.Name)
			if err != nil {
				yield(Member{}, err)
				return
			}
			m := Member{
				RelativePath: rel,
				Size:         int64(f.UncompressedSize64),
				ModTime:      f.Modified,
				Mode:         f.Mode(),
			}
			if !yield(m, nil) {
				return
			}
		}
	}
}

func isArchiveDir(f *zip.File) bool {
	return strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir()
}

// memberName interprets an archive entry name as a POSIX relative path and
// rejects names that would escape the directory root.
func memberName(name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("unsafe archive member name: %q", name)
	}
	return clean, nil
}

// Side selects which end of a directory resource drives a walk.
type Side int

const (
	// FromOrigin enumerates the live directory (used by backup).
	FromOrigin Side = iota
	// FromDestiny enumerates the backup, loose or archived (used by restore).
	FromDestiny
)

// source returns the enumeration backend for one side of the resource.
// The compress flag decides whether the destiny is an archive.
func (d *DirResource) source(side Side) MemberSource {
	if side == FromOrigin {
		return TreeSource{Root: d.origin, Ignore: d.originIgnore()}
	}
	if d.compress {
		return ArchiveSource{Path: d.ArchivePath()}
	}
	return TreeSource{Root: d.destiny, Ignore: d.ignore}
}

// originIgnore adds the backup itself to the ignore matcher when it lives
// inside origin. Constructors refuse such a destiny, but stored lists may
// still hold one.
func (d *DirResource) originIgnore() Matcher {
	target := d.destiny
	if d.compress {
		target = d.ArchivePath()
	}
	if target == d.origin || !Within(target, d.origin) {
		return d.ignore
	}
	rel, err := filepath.Rel(d.origin, target)
	if err != nil {
		return d.ignore
	}
	skip := skipPath{rel: filepath.ToSlash(rel), next: d.ignore}
	if d.compress {
		skip.tempPrefix = path.Join(path.Dir(skip.rel), archiveTempPrefix)
	}
	return skip
}

// skipPath matches one relative path, the archive temp files next to it
// when tempPrefix is set, and whatever next matches.
type skipPath struct {
	rel        string
	tempPrefix string
	next       Matcher
}

func (s skipPath) Match(rel string) bool {
	if rel == s.rel || (s.tempPrefix != "" && strings.HasPrefix(rel, s.tempPrefix)) {
		return true
	}
	return s.next != nil && s.next.Match(rel)
}

// Walk yields the file resources the directory is made of, driven by the
// chosen side. Each child maps origin-root/rel to destiny-root/rel, or to the
// archive itself with rel as the member key when the directory is compressed.
func (d *DirResource) Walk(side Side) iter.Seq2[*FileResource, error] {
	src := d.source(side)
	return func(yield func(*FileResource, error) bool) {
		for m, err := range src.Members() {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(d.member(m.RelativePath), nil) {
				return
			}
		}
	}
}

// member builds the child resource for a relative path without validating
// that either side exists.
func (d *DirResource) member(rel string) *FileResource {
	f := &FileResource{
		base: base{
			env:    d.env,
			origin: filepath.Join(d.origin, filepath.FromSlash(rel)),
		},
		relativePath: rel,
	}
	if d.compress {
		f.destiny = d.ArchivePath()
		f.inArchive = true
	} else {
		f.destiny = filepath.Join(d.destiny, filepath.FromSlash(rel))
	}
	return f
}
