// Package fs stores objects as files under root/<bucket>/<object>.
package fs

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/iota-uz/sentencing-etl/pkg/blob"
)

type Store struct {
	root string
}

// New returns a store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./blobdata"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) Driver() blob.Driver { return blob.DriverFilesystem }

func (s *Store) path(bucket, object string) (string, error) {
	if err := blob.CheckKey(bucket, object); err != nil {
		return "", err
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(object)), nil
}

func (s *Store) Get(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	p, err := s.path(bucket, object)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, blob.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Put writes through a temporary file so readers never see a partial object.
func (s *Store) Put(ctx context.Context, bucket, object string, r io.Reader, _ string) error {
	p, err := s.path(bucket, object)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}
