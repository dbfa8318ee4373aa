package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local writes files under a root directory served at baseURL.
type Local struct {
	root    string
	baseURL string
}

func NewLocal(root, baseURL string) (*Local, error) {
	for _, folder := range []string{FolderBanners, FolderBrands, FolderCategories, FolderProducts} {
		if err := os.MkdirAll(filepath.Join(root, folder), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	return &Local{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root is the directory files are written to.
func (l *Local) Root() string { return l.root }

func (l *Local) Save(ctx context.Context, folder string, img *Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := NewName(folder, img.Extension)
	full, err := l.resolve(name)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, img.Reader); err != nil {
		f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("close file: %w", err)
	}
	return name, nil
}

func (l *Local) Delete(ctx context.Context, path string) error {
	if path == "" || isAbsoluteURL(path) {
		return nil
	}
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (l *Local) PublicURL(path string) string {
	if path == "" || isAbsoluteURL(path) {
		return path
	}
	return l.baseURL + "/" + strings.TrimLeft(path, "/")
}

// resolve maps a storage path to a file under root, rejecting escapes.
func (l *Local) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimLeft(path, "/")))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage path %q", path)
	}
	return filepath.Join(l.root, clean), nil
}
