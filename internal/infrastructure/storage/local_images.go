package storage

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

// LocalImageStore mirrors the staging and public image buckets as
// directories. PublicURL joins the key onto baseURL.
type LocalImageStore struct {
	stagingDir string
	publicDir  string
	baseURL    string
}

// NewLocalImageStore creates an image store under root/staging and root/public
func NewLocalImageStore(root, baseURL string) *LocalImageStore {
	return &LocalImageStore{
		stagingDir: filepath.Join(root, "staging"),
		publicDir:  filepath.Join(root, "public"),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// CopyToPublic implements domain.ImageStore
func (l *LocalImageStore) CopyToPublic(ctx context.Context, stagingKey, publicKey string) error {
	src, err := l.path(l.stagingDir, stagingKey)
	if err != nil {
		return err
	}
	dst, err := l.path(l.publicDir, publicKey)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", stagingKey, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", publicKey, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", stagingKey, err)
	}
	return out.Close()
}

// DeletePublic implements domain.ImageStore
func (l *LocalImageStore) DeletePublic(ctx context.Context, key string) error {
	return l.remove(l.publicDir, key)
}

// DeleteStaging implements domain.ImageStore
func (l *LocalImageStore) DeleteStaging(ctx context.Context, key string) error {
	return l.remove(l.stagingDir, key)
}

// PublicURL implements domain.ImageStore
func (l *LocalImageStore) PublicURL(key string) string {
	return l.baseURL + "/" + escapeKey(key)
}

func (l *LocalImageStore) remove(dir, key string) error {
	if key == "" {
		return nil
	}
	path, err := l.path(dir, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// path resolves key under dir, rejecting keys that escape it
func (l *LocalImageStore) path(dir, key string) (string, error) {
	if !filepath.IsLocal(filepath.FromSlash(key)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(dir, filepath.FromSlash(key)), nil
}
