package cloudsvc

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/report"
)

// LocalUploader writes files under a directory.
type LocalUploader struct {
	dir     string
	baseURL string
}

var (
	_ report.Uploader = (*LocalUploader)(nil)
	_ report.Remover  = (*LocalUploader)(nil)
)

func NewLocalUploader(dir, baseURL string) (*LocalUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", dir)
	}
	return &LocalUploader{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (u *LocalUploader) path(key string) (string, error) {
	fp := filepath.Join(u.dir, filepath.FromSlash(key))
	if !strings.HasPrefix(fp, filepath.Clean(u.dir)+string(filepath.Separator)) {
		return "", errors.Errorf("invalid key %q", key)
	}
	return fp, nil
}

func (u *LocalUploader) Upload(ctx context.Context, key string, r io.Reader, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fp, err := u.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating directory")
	}

	f, err := os.Create(fp)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", errors.Wrap(err, "writing file")
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "closing file")
	}

	if u.baseURL != "" {
		return u.baseURL + "/" + strings.TrimLeft(filepath.ToSlash(key), "/"), nil
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(fp)}).String(), nil
}

// Delete removes an uploaded file. Missing files are not an error.
func (u *LocalUploader) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fp, err := u.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fp); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing file")
	}
	return nil
}
