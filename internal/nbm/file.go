package nbm

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"time"
)

// FileResource backs up a single file. When it is a member of a directory
// resource, relativePath holds its path below the directory root; when that
// directory is compressed, destiny is the archive and relativePath is the
// member key inside it.
type FileResource struct {
	base
	relativePath string
	inArchive    bool
}

var _ Resource = (*FileResource)(nil)

// NewFileResource creates a top-level file resource. origin must be an
// existing regular file.
func NewFileResource(origin, destiny string, opts ...Option) (*FileResource, error) {
	b, err := newBase(origin, destiny, newEnv(opts))
	if err != nil {
		return nil, err
	}
	if err := checkOrigin(b.origin, KindFile); err != nil {
		return nil, err
	}
	return &FileResource{base: b}, nil
}

func (f *FileResource) Kind() Kind { return KindFile }

// RelativePath returns the member path below the parent directory, if the
// resource is a directory member.
func (f *FileResource) RelativePath() (string, bool) {
	return f.relativePath, f.relativePath != ""
}

// InArchive reports whether the destiny is a member of a zip archive.
func (f *FileResource) InArchive() bool { return f.inArchive }

// Backupable is false for archive members, which cannot be written into.
func (f *FileResource) Backupable() bool { return !f.inArchive }

func (f *FileResource) Size() (int64, error) {
	info, err := os.Stat(f.origin)
	if err != nil {
		return 0, fmt.Errorf("stat origin: %w", err)
	}
	return info.Size(), nil
}

func (f *FileResource) FileCount() (int, error) { return 1, nil }

// AreDifferent compares modification times at second granularity. With
// strict, matching times are confirmed by comparing contents.
func (f *FileResource) AreDifferent(strict bool) bool {
	info, err := os.Stat(f.origin)
	if err != nil || !info.Mode().IsRegular() {
		return true
	}
	destMod, err := f.destinyModTime()
	if err != nil {
		return true
	}
	if !sameSecond(info.ModTime(), destMod) {
		return true
	}
	if !strict {
		return false
	}

	same, err := f.sameContent()
	if err != nil {
		f.logger.Warn("content comparison failed", "origin", f.origin, "error", err)
		return true
	}
	return !same
}

// destinyModTime returns the destiny's modification time; for archive
// members this is the member's stored timestamp, not the archive's.
func (f *FileResource) destinyModTime() (time.Time, error) {
	if !f.inArchive {
		info, err := os.Stat(f.destiny)
		if err != nil {
			return time.Time{}, err
		}
		if !info.Mode().IsRegular() {
			return time.Time{}, fmt.Errorf("destiny %s is not a file", f.destiny)
		}
		return info.ModTime(), nil
	}

	r, err := zip.OpenReader(f.destiny)
	if err != nil {
		return time.Time{}, err
	}
	defer r.Close()

	zf, err := findMember(&r.Reader, f.relativePath)
	if err != nil {
		return time.Time{}, err
	}
	return zf.Modified, nil
}

func (f *FileResource) destinyExists() bool {
	_, err := f.destinyModTime()
	return err == nil
}

func (f *FileResource) sameContent() (bool, error) {
	if !f.inArchive {
		return sameFileContent(f.origin, f.destiny)
	}

	src, err := os.Open(f.origin)
	if err != nil {
		return false, err
	}
	defer src.Close()

	rc, err := f.openDestiny()
	if err != nil {
		return false, err
	}
	defer rc.Close()

	return sameContent(src, rc)
}

// openDestiny opens the backup copy for reading, inside the archive if needed.
func (f *FileResource) openDestiny() (io.ReadCloser, error) {
	if !f.inArchive {
		return os.Open(f.destiny)
	}

	r, err := zip.OpenReader(f.destiny)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	zf, err := findMember(&r.Reader, f.relativePath)
	if err != nil {
		r.Close()
		return nil, err
	}
	rc, err := zf.Open()
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("opening archive member %s: %w", f.relativePath, err)
	}
	return &memberReader{ReadCloser: rc, archive: r}, nil
}

// memberReader closes the archive together with the member stream.
type memberReader struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (m *memberReader) Close() error {
	err := m.ReadCloser.Close()
	if cerr := m.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

func findMember(r *zip.Reader, rel string) (*zip.File, error) {
	for _, zf := range r.File {
		if isArchiveDir(zf) {
			continue
		}
		name, err := memberName(zf.Name)
		if err != nil {
			continue
		}
		if name == rel {
			return zf, nil
		}
	}
	return nil, fmt.Errorf("archive member not found: %s", rel)
}

// Backup copies origin to destiny.
func (f *FileResource) Backup(opts CopyOptions) Result {
	if f.inArchive {
		f.logger.Warn("archive members cannot be backed up individually", "destiny", f.destiny, "member", f.relativePath)
		return failedResult(fmt.Errorf("%w: %s is inside an archive", ErrNotBackupable, f.relativePath))
	}
	if !isFile(f.origin) {
		f.logger.Warn("tried to back up a file that doesn't exist", "origin", f.origin)
		return failedResult(fmt.Errorf("origin does not exist: %s", f.origin))
	}
	if !opts.Force && !f.AreDifferent(opts.Strict) {
		f.logger.Debug("file unchanged", "origin", f.origin)
		return skippedResult()
	}

	if err := copyFile(f.origin, f.destiny); err != nil {
		f.logger.Error("backup failed", "origin", f.origin, "destiny", f.destiny, "error", err)
		return failedResult(err)
	}

	f.stamp()
	f.logOK("file backed up", "origin", f.origin, "destiny", f.destiny)
	return copiedResult()
}

// Restore copies destiny back over origin. Archive members are extracted.
func (f *FileResource) Restore(opts CopyOptions) Result {
	if !f.destinyExists() {
		f.logger.Warn("tried to restore a backup that doesn't exist", "destiny", f.destiny, "member", f.relativePath)
		return failedResult(fmt.Errorf("backup does not exist: %s", f.destiny))
	}
	if !opts.Force && !f.AreDifferent(opts.Strict) {
		f.logger.Debug("file unchanged", "origin", f.origin)
		return skippedResult()
	}

	var err error
	if f.inArchive {
		err = f.extract()
	} else {
		err = copyFile(f.destiny, f.origin)
	}
	if err != nil {
		f.logger.Error("restore failed", "origin", f.origin, "destiny", f.destiny, "error", err)
		return failedResult(err)
	}

	f.logOK("file restored", "origin", f.origin, "destiny", f.destiny)
	return copiedResult()
}

func (f *FileResource) extract() error {
	r, err := zip.OpenReader(f.destiny)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer r.Close()

	zf, err := findMember(&r.Reader, f.relativePath)
	if err != nil {
		return err
	}
	return extractMember(zf, f.origin)
}

// logOK logs successes of directory members at debug level so a large
// directory does not flood the log.
func (f *FileResource) logOK(msg string, args ...any) {
	if f.relativePath != "" {
		f.logger.Debug(msg, args...)
		return
	}
	f.logger.Info(msg, args...)
}

func (f *FileResource) Report(index int) string {
	return renderReport(f, index, f.clock.Now(), nil)
}

// Equal reports whether other is a file resource with the same origin and destiny.
func (f *FileResource) Equal(other Resource) bool {
	o, ok := other.(*FileResource)
	return ok && o.origin == f.origin && o.destiny == f.destiny
}

func (f *FileResource) Record() Record {
	rec := Record{
		Origin:  f.origin,
		Destiny: f.destiny,
		Type:    KindFile,
		Last:    epochSeconds(f.last),
	}
	if f.relativePath != "" {
		rel := f.relativePath
		rec.AtPath = &rel
	}
	return rec
}
