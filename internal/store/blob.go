package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const blobsDirName = "blobs"

// saveBlob stores content-addressed data under <dir>/blobs/aa/bb/<hash>.
// If the blob already exists, the call is a no-op.
//
// hash must be a lowercase hex string (typically sha256). The function
// validates and normalizes the storage path but does not recompute the hash.
func saveBlob(dir, hash string, data []byte) error {
	if !isHex(hash) || len(hash) < 6 {
		return errors.New("invalid hash for blob storage")
	}
	p := blobPath(dir, hash)
	// Fast path: if exists, skip.
	if _, err := os.Stat(p); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return writeAtomic(filepath.Dir(p), filepath.Base(p), data)
}

// readBlob loads a blob by content hash from <dir>/blobs/aa/bb/<hash>.
func readBlob(dir, hash string) ([]byte, error) {
	if !isHex(hash) || len(hash) < 6 {
		return nil, errors.New("invalid hash for blob read")
	}
	return os.ReadFile(blobPath(dir, hash))
}

// blobPath returns the canonical path for a content-addressed blob.
// Layout: <dir>/blobs/aa/bb/<hash>
func blobPath(dir, hash string) string {
	h := strings.ToLower(hash)
	return filepath.Join(dir, blobsDirName, h[:2], h[2:4], h)
}

// writeAtomic writes data to <dir>/<name> through a temporary sibling file
// (".tmp-<name>-<rand>") that is synced and then renamed into place.
func writeAtomic(dir, name string, data []byte) error {
	f, err := os.CreateTemp(dir, ".tmp-"+name+"-")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp) // best-effort cleanup
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, name))
}

// isHex checks if s is a lowercase hex string.
func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}
