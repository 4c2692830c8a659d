package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrIO is wrapped by every storage failure returned from the asset
// store, so callers can recognize the kind with errors.Is.
var ErrIO = errors.New("asset storage failed")

// AssetStore writes uploaded binaries under a single root directory
// and hands back stable references that the static /uploads route can
// resolve on its own.
type AssetStore struct {
	root string
}

// NewAssetStore creates an AssetStore rooted at dir. The directory is
// created lazily on the first Save.
func NewAssetStore(dir string) *AssetStore {
	return &AssetStore{root: dir}
}

// Root returns the directory assets are written to.
func (s *AssetStore) Root() string {
	return s.root
}

// Save writes content to a new uniquely named file, preserving the
// extension of originalName, and returns the public reference path
// ("/uploads/<name>"). Existing files are never overwritten or
// removed; each successful call creates exactly one new file.
func (s *AssetStore) Save(content []byte, originalName string) (string, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("%w: create upload dir %s: %v", ErrIO, s.root, err)
	}

	ext := filepath.Ext(originalName)
	name := strings.ReplaceAll(uuid.New().String(), "-", "") + ext
	path := filepath.Join(s.root, name)

	// O_EXCL guards the uuid collision case: fail instead of clobbering.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("%w: create %s: %v", ErrIO, name, err)
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		return "", fmt.Errorf("%w: write %s: %v", ErrIO, name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: close %s: %v", ErrIO, name, err)
	}

	return "/uploads/" + name, nil
}
