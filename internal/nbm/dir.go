package nbm

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// DirResource backs up a directory, either mirrored as a loose tree or
// written as a single zip archive. The compress flag is authoritative; the
// destiny's suffix is cosmetic.
type DirResource struct {
	base
	compress bool
}

var _ Resource = (*DirResource)(nil)

// archiveTempPrefix names the file an archive is written to before it is
// renamed into place.
const archiveTempPrefix = ".nbm-zip-"

// NewDirResource creates a directory resource. origin must be an existing
// directory and destiny must lie outside it. compress cannot be changed
// afterwards.
func NewDirResource(origin, destiny string, compress bool, opts ...Option) (*DirResource, error) {
	b, err := newBase(origin, destiny, newEnv(opts))
	if err != nil {
		return nil, err
	}
	if err := checkOrigin(b.origin, KindDir); err != nil {
		return nil, err
	}
	if Within(b.destiny, b.origin) {
		return nil, fmt.Errorf("%w: destiny %s is inside origin %s", ErrValidation, b.destiny, b.origin)
	}
	return &DirResource{base: b, compress: compress}, nil
}

func (d *DirResource) Kind() Kind { return KindDir }

// Compress reports whether backups are written as a zip archive.
func (d *DirResource) Compress() bool { return d.compress }

// ArchivePath is where a compressed backup lives: destiny itself, or
// destiny/<origin name>.zip when destiny is an existing directory.
func (d *DirResource) ArchivePath() string {
	if isDir(d.destiny) {
		return filepath.Join(d.destiny, d.Name()+".zip")
	}
	return d.destiny
}

// Size sums the sizes of all files below origin.
func (d *DirResource) Size() (int64, error) {
	var size int64
	for m, err := range d.source(FromOrigin).Members() {
		if err != nil {
			return 0, err
		}
		size += m.Size
	}
	return size, nil
}

// FileCount counts the files below origin.
func (d *DirResource) FileCount() (int, error) {
	count := 0
	for _, err := range d.source(FromOrigin).Members() {
		if err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

func (d *DirResource) destinyExists() bool {
	if d.compress {
		return isFile(d.ArchivePath())
	}
	return isDir(d.destiny)
}

// AreDifferent is true when either side is missing or any member of the
// origin differs from its backup.
func (d *DirResource) AreDifferent(strict bool) bool {
	if !isDir(d.origin) || !d.destinyExists() {
		return true
	}
	if d.compress {
		return d.archiveDiffers(strict)
	}
	for child, err := range d.Walk(FromOrigin) {
		if err != nil {
			d.logger.Warn("walking directory failed", "origin", d.origin, "error", err)
			return true
		}
		if child.AreDifferent(strict) {
			return true
		}
	}
	return false
}

// archiveDiffers checks every origin member against the archive, opening
// the archive only once.
func (d *DirResource) archiveDiffers(strict bool) bool {
	r, err := zip.OpenReader(d.ArchivePath())
	if err != nil {
		return true
	}
	defer r.Close()

	index := make(map[string]*zip.File, len(r.File))
	for _, zf := range r.File {
		if isArchiveDir(zf) {
			continue
		}
		if name, err := memberName(zf.Name); err == nil {
			index[name] = zf
		}
	}

	for m, err := range d.source(FromOrigin).Members() {
		if err != nil {
			return true
		}
		zf, ok := index[m.RelativePath]
		if !ok || !sameSecond(m.ModTime, zf.Modified) {
			return true
		}
		if !strict {
			continue
		}
		same, err := sameMemberContent(filepath.Join(d.origin, filepath.FromSlash(m.RelativePath)), zf)
		if err != nil || !same {
			return true
		}
	}
	return false
}

func sameMemberContent(origin string, zf *zip.File) (bool, error) {
	f, err := os.Open(origin)
	if err != nil {
		return false, err
	}
	defer f.Close()

	rc, err := zf.Open()
	if err != nil {
		return false, err
	}
	defer rc.Close()

	return sameContent(f, rc)
}

// Backup copies the directory to its destiny. The last-backup time is only
// stamped when the whole walk completes.
func (d *DirResource) Backup(opts CopyOptions) Result {
	if !isDir(d.origin) {
		d.logger.Warn("tried to back up a directory that doesn't exist", "origin", d.origin)
		return failedResult(fmt.Errorf("origin does not exist: %s", d.origin))
	}
	if !opts.Force && !d.AreDifferent(opts.Strict) {
		d.logger.Info("directory unchanged", "origin", d.origin)
		n, _ := d.FileCount()
		return Result{Outcome: Skipped, Skipped: n}
	}

	var res Result
	if d.compress {
		res = d.backupArchive()
	} else {
		res = d.backupTree(opts)
	}
	if res.Outcome == Failed {
		return res
	}

	d.stamp()
	d.logger.Info("directory backed up", "origin", d.origin, "destiny", d.destiny,
		"copied", res.Copied, "skipped", res.Skipped, "failed", res.Failed)
	return res
}

func (d *DirResource) backupTree(opts CopyOptions) Result {
	if err := os.MkdirAll(d.destiny, 0755); err != nil {
		d.logger.Error("creating destiny failed", "destiny", d.destiny, "error", err)
		return failedResult(err)
	}
	return d.copyMembers(FromOrigin, opts, (*FileResource).Backup)
}

// copyMembers walks one side and applies op to every child, honoring the
// failure policy.
func (d *DirResource) copyMembers(side Side, opts CopyOptions, op func(*FileResource, CopyOptions) Result) Result {
	res := Result{Outcome: Copied}
	for child, err := range d.Walk(side) {
		if err != nil {
			d.logger.Error("walking directory failed", "origin", d.origin, "destiny", d.destiny, "error", err)
			res.Outcome = Failed
			res.Err = err
			return res
		}

		r := op(child, opts)
		res.Copied += r.Copied
		res.Skipped += r.Skipped
		res.Failed += r.Failed
		if r.Outcome != Failed {
			continue
		}
		if opts.Policy == StopOnFailure {
			res.Outcome = Failed
			res.Err = fmt.Errorf("member %s: %w", child.relativePath, r.Err)
			return res
		}
		d.logger.Warn("ignoring failed member", "member", child.relativePath, "error", r.Err)
	}
	return res
}

// backupArchive writes every origin member into a fresh zip archive. The
// archive is built in a temp file and renamed into place, so a failure leaves
// any previous archive intact.
func (d *DirResource) backupArchive() Result {
	archivePath := d.ArchivePath()
	dir := filepath.Dir(archivePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		d.logger.Error("creating archive directory failed", "path", dir, "error", err)
		return failedResult(err)
	}

	tmpFile, err := os.CreateTemp(dir, archiveTempPrefix+"*")
	if err != nil {
		d.logger.Error("creating archive failed", "path", archivePath, "error", err)
		return failedResult(err)
	}
	tmpPath := tmpFile.Name()

	count, err := d.writeArchive(tmpFile)
	if cerr := tmpFile.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing archive: %w", cerr)
	}
	if err == nil {
		err = os.Rename(tmpPath, archivePath)
	}
	if err != nil {
		os.Remove(tmpPath)
		d.logger.Error("writing archive failed", "path", archivePath, "error", err)
		return failedResult(err)
	}

	return Result{Outcome: Copied, Copied: count}
}

func (d *DirResource) writeArchive(w io.Writer) (int, error) {
	zw := zip.NewWriter(w)
	count := 0
	for m, err := range d.source(FromOrigin).Members() {
		if err != nil {
			zw.Close()
			return count, err
		}
		if err := addMember(zw, d.origin, m); err != nil {
			zw.Close()
			return count, err
		}
		count++
	}
	if err := zw.Close(); err != nil {
		return count, fmt.Errorf("finishing archive: %w", err)
	}
	return count, nil
}

func addMember(zw *zip.Writer, root string, m Member) error {
	hdr := &zip.FileHeader{
		Name:     m.RelativePath,
		Method:   zip.Deflate,
		Modified: m.ModTime,
	}
	hdr.SetMode(m.Mode)

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("adding %s: %w", m.RelativePath, err)
	}

	f, err := os.Open(filepath.Join(root, filepath.FromSlash(m.RelativePath)))
	if err != nil {
		return fmt.Errorf("opening %s: %w", m.RelativePath, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("compressing %s: %w", m.RelativePath, err)
	}
	return nil
}

// Restore copies the backup back over origin. A loose tree is restored member
// by member with change detection; an archive is extracted wholesale.
func (d *DirResource) Restore(opts CopyOptions) Result {
	if !d.destinyExists() {
		d.logger.Warn("tried to restore a backup that doesn't exist", "destiny", d.destiny)
		return failedResult(fmt.Errorf("backup does not exist: %s", d.destiny))
	}
	if err := os.MkdirAll(d.origin, 0755); err != nil {
		d.logger.Error("creating origin failed", "origin", d.origin, "error", err)
		return failedResult(err)
	}

	var res Result
	if d.compress {
		res = d.extractArchive()
	} else {
		res = d.copyMembers(FromDestiny, opts, (*FileResource).Restore)
		if res.Outcome == Copied && res.Copied == 0 && res.Failed == 0 {
			res.Outcome = Skipped
		}
	}
	if res.Outcome == Failed {
		return res
	}

	d.logger.Info("directory restored", "origin", d.origin, "destiny", d.destiny,
		"copied", res.Copied, "skipped", res.Skipped, "failed", res.Failed)
	return res
}

func (d *DirResource) extractArchive() Result {
	archivePath := d.ArchivePath()
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		d.logger.Error("opening archive failed", "path", archivePath, "error", err)
		return failedResult(err)
	}
	defer r.Close()

	count := 0
	for _, zf := range r.File {
		name, err := memberName(zf.Name)
		if err != nil {
			d.logger.Error("refusing archive member", "path", archivePath, "error", err)
			return Result{Outcome: Failed, Copied: count, Failed: 1, Err: err}
		}
		target := filepath.Join(d.origin, filepath.FromSlash(name))
		if isArchiveDir(zf) {
			if err := os.MkdirAll(target, 0755); err != nil {
				return Result{Outcome: Failed, Copied: count, Failed: 1, Err: err}
			}
			continue
		}
		if err := extractMember(zf, target); err != nil {
			d.logger.Error("extracting member failed", "member", name, "error", err)
			return Result{Outcome: Failed, Copied: count, Failed: 1, Err: err}
		}
		count++
	}
	return Result{Outcome: Copied, Copied: count}
}

// extractMember writes one archive member to target with its stored mode
// and modification time.
func extractMember(zf *zip.File, target string) error {
	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("opening archive member %s: %w", zf.Name, err)
	}
	defer rc.Close()

	return writeFile(target, rc, zf.Mode().Perm(), zf.Modified)
}

func (d *DirResource) Report(index int) string {
	files := "unavailable"
	if n, err := d.FileCount(); err == nil {
		files = strconv.Itoa(n)
	}
	return renderReport(d, index, d.clock.Now(), [][2]string{
		{"FILES", files},
		{"COMPRESS", strconv.FormatBool(d.compress)},
	})
}

// Equal reports whether other is a directory resource with the same origin,
// destiny and compress flag.
func (d *DirResource) Equal(other Resource) bool {
	o, ok := other.(*DirResource)
	return ok && o.origin == d.origin && o.destiny == d.destiny && o.compress == d.compress
}

func (d *DirResource) Record() Record {
	compress := d.compress
	return Record{
		Origin:   d.origin,
		Destiny:  d.destiny,
		Type:     KindDir,
		Last:     epochSeconds(d.last),
		Compress: &compress,
	}
}
