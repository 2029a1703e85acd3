// Package evidence stores screenshot evidence uploaded by proctoring clients
// and hands back the URLs referenced from cheating logs.
package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// URLPrefix is the path prefix under which stored evidence is served.
const URLPrefix = "/evidence/"

// Store persists uploaded evidence and returns a URL clients embed in their
// violation reports.
type Store interface {
	Save(name string, r io.Reader) (url string, err error)
}

// DiskStore keeps evidence as content-addressed files in one directory.
// Identical uploads collapse to a single file, which matches the set-union
// semantics of screenshot URLs in cheating logs.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the storage directory if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("evidence directory not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create evidence dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the storage directory, for serving files over HTTP.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save writes the upload to a temp file while hashing it, then renames it to
// its digest. The original name only contributes its extension.
func (s *DiskStore) Save(name string, r io.Reader) (string, error) {
	tmp, err := os.CreateTemp(s.dir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("create evidence temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write evidence: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close evidence temp file: %w", err)
	}

	fileName := hex.EncodeToString(h.Sum(nil)) + safeExt(name)
	dest := filepath.Join(s.dir, fileName)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("store evidence: %w", err)
	}
	return URLPrefix + fileName, nil
}

// safeExt extracts a short, lowercase extension from the uploaded name.
// Anything unusual is dropped rather than sanitized.
func safeExt(name string) string {
	ext := strings.ToLower(path.Ext(path.Base(name)))
	if len(ext) > 5 || strings.ContainsAny(ext, `/\`) {
		return ""
	}
	return ext
}
