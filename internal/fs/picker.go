// Package fs resolves the raw paths a user types into validated origins and
// proposes default destinies for them.
package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"nbm/internal/nbm"
)

// BackupPrefix starts the name of a default destiny.
const BackupPrefix = "[BACKUP] "

// Resolve makes rawPath absolute and checks that it names an existing object
// of the wanted kind. Symlinks, devices, pipes and sockets are refused.
func Resolve(rawPath string, want nbm.Kind) (string, error) {
	if strings.TrimSpace(rawPath) == "" {
		return "", fmt.Errorf("%w: empty path", nbm.ErrValidation)
	}
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", nbm.ErrValidation, err)
	}

	mode := info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		return "", fmt.Errorf("%w: symlinks not supported: %s", nbm.ErrValidation, absPath)
	case mode&os.ModeDevice != 0:
		return "", fmt.Errorf("%w: device files not supported: %s", nbm.ErrValidation, absPath)
	case mode&os.ModeNamedPipe != 0:
		return "", fmt.Errorf("%w: named pipes not supported: %s", nbm.ErrValidation, absPath)
	case mode&os.ModeSocket != 0:
		return "", fmt.Errorf("%w: sockets not supported: %s", nbm.ErrValidation, absPath)
	}

	switch want {
	case nbm.KindFile:
		if !mode.IsRegular() {
			return "", fmt.Errorf("%w: not a file: %s", nbm.ErrValidation, absPath)
		}
	case nbm.KindDir:
		if !info.IsDir() {
			return "", fmt.Errorf("%w: not a directory: %s", nbm.ErrValidation, absPath)
		}
	}
	return absPath, nil
}

// DefaultDestiny proposes "[BACKUP] <name>" next to origin, with a .zip
// suffix for compressed directories.
func DefaultDestiny(origin string, compress bool) string {
	name := BackupPrefix + filepath.Base(origin)
	if compress {
		name += ".zip"
	}
	return filepath.Join(filepath.Dir(origin), name)
}

// ResolveDestiny makes a user-supplied destiny absolute, falling back to
// DefaultDestiny when it is empty. The destiny does not need to exist.
func ResolveDestiny(rawPath, origin string, compress bool) (string, error) {
	if strings.TrimSpace(rawPath) == "" {
		return DefaultDestiny(origin, compress), nil
	}
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	if nbm.Within(absPath, origin) {
		return "", fmt.Errorf("%w: destiny %s is the origin or inside it", nbm.ErrValidation, absPath)
	}
	return absPath, nil
}
