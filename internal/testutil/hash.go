package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"path/filepath"
	"testing"
)

// SHA256Hex returns the SHA-256 checksum of data as a lowercase hex string.
func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// TreeDigest maps every regular file below root (slash-separated relative
// path) to the checksum of its contents.
func TreeDigest(t *testing.T, root string) map[string]string {
	t.Helper()

	digest := make(map[string]string)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		digest[filepath.ToSlash(rel)] = SHA256Hex(ReadFile(t, p))
		return nil
	})
	if err != nil {
		t.Fatalf("digesting %s: %v", root, err)
	}
	return digest
}
