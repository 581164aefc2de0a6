package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/prochartist/backend/core"
)

// LocalStorage stores uploads on disk. Meant for development, the API serves the directory itself.
type LocalStorage struct {
	dir     string
	baseURL string
}

var _ core.FileStorage = (*LocalStorage)(nil)

func NewLocalStorage(conf *core.Config) *LocalStorage {
	return &LocalStorage{
		dir:     conf.Storage.LocalDir,
		baseURL: strings.TrimRight(conf.Storage.PublicBaseURL, "/"),
	}
}

func (s *LocalStorage) Dir() string { return s.dir }

func (s *LocalStorage) Save(_ context.Context, key, _ string, r io.Reader, _ int64) (string, error) {
	fp := filepath.Join(s.dir, filepath.FromSlash(key))
	if !strings.HasPrefix(fp, filepath.Clean(s.dir)+string(os.PathSeparator)) {
		return "", errors.Errorf("invalid storage key %q", key)
	}
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating upload dir")
	}

	f, err := os.Create(fp)
	if err != nil {
		return "", errors.Wrap(err, "creating upload file")
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(fp)
		return "", errors.Wrap(err, "writing upload file")
	}
	if err = f.Close(); err != nil {
		return "", errors.Wrap(err, "closing upload file")
	}
	return s.baseURL + "/" + key, nil
}
