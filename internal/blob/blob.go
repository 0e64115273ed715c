// Package blob stores raw media bytes on the local filesystem. Storage
// references returned by Put are opaque to callers; today they are paths
// relative to the store root.
package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store is a filesystem-backed blob store rooted at a single directory.
type Store struct {
	root string
}

// NewStore creates the root directory if needed and returns the store.
func NewStore(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("blob store root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("ensure blob root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// Put streams r into the store under ownerKey and returns the storage
// reference. An existing blob for the same key and name is overwritten.
func (s *Store) Put(r io.Reader, ownerKey, name string) (string, error) {
	ref, err := s.refFor(ownerKey, name)
	if err != nil {
		return "", err
	}
	target := filepath.Join(s.root, ref)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("ensure blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".put-*")
	if err != nil {
		return "", fmt.Errorf("create temp blob: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("finalize blob: %w", err)
	}
	return ref, nil
}

// Open returns a reader for the blob behind ref. The caller closes it.
func (s *Store) Open(ref string) (io.ReadCloser, error) {
	path, err := s.pathFor(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", ref, err)
	}
	return f, nil
}

// Get reads the whole blob behind ref into memory.
func (s *Store) Get(ref string) ([]byte, error) {
	rc, err := s.Open(ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", ref, err)
	}
	return data, nil
}

// Delete removes the blob behind ref. Deleting a missing blob is not an error.
func (s *Store) Delete(ref string) error {
	path, err := s.pathFor(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", ref, err)
	}
	return nil
}

// Path resolves a storage reference to its absolute filesystem path.
func (s *Store) Path(ref string) (string, error) {
	return s.pathFor(ref)
}

func (s *Store) refFor(ownerKey, name string) (string, error) {
	ownerKey = strings.TrimSpace(ownerKey)
	if ownerKey == "" {
		return "", fmt.Errorf("blob owner key is required")
	}
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "blob"
	}
	return filepath.Join(ownerKey, name), nil
}

func (s *Store) pathFor(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("blob reference is required")
	}
	cleaned := filepath.Clean(ref)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("blob reference %q escapes store root", ref)
	}
	return filepath.Join(s.root, cleaned), nil
}
