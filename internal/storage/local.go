package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps objects in a directory served under a base URL.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates a store rooted at dir.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &StorageError{Op: "init", Key: dir, Err: err}
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the root directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if key == "" || clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.dir, clean), nil
}

// Put writes body to the object named key.
func (s *LocalStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	path, err := s.path(key)
	if err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}

	f, err := os.Create(path)
	if err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && size >= 0 && n != size {
		err = fmt.Errorf("wrote %d bytes, expected %d", n, size)
	}
	if err != nil {
		os.Remove(path)
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// Delete removes the object. Missing objects are not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// URL returns the public URL of key.
func (s *LocalStore) URL(key string) string {
	return s.baseURL + "/" + (&url.URL{Path: key}).EscapedPath()
}
