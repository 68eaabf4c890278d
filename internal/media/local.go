package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vidtube/backend/internal/logging"
)

// LocalUploader copies files into a directory served over HTTP. It stands in
// for object storage during development.
type LocalUploader struct {
	dir     string
	baseURL string
}

// NewLocalUploader creates dir if needed and returns an uploader writing into it.
func NewLocalUploader(dir, baseURL string) (*LocalUploader, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("local uploader: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &LocalUploader{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Dir reports the directory files are written to.
func (l *LocalUploader) Dir() string { return l.dir }

// Upload copies localPath into the media directory.
func (l *LocalUploader) Upload(ctx context.Context, localPath string) (Asset, error) {
	src, err := openSource(localPath, "")
	if err != nil {
		discard(ctx, localPath)
		return Asset{}, err
	}
	defer src.file.Close()

	if err := l.copy(src); err != nil {
		src.file.Close()
		discard(ctx, localPath)
		return Asset{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	logging.FromContext(ctx).Info("stored media", "dir", l.dir, "key", src.key, "size", src.size)

	return Asset{
		URL:         publicURL(l.baseURL, src.key),
		Key:         src.key,
		Size:        src.size,
		ContentType: src.contentType,
	}, nil
}

func (l *LocalUploader) copy(src *source) error {
	dest := filepath.Join(l.dir, filepath.FromSlash(src.key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dest), err)
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, src.file); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("copy to %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("close %s: %w", dest, err)
	}
	return nil
}

// Remove deletes the stored copy of key. Keys that would escape the media
// directory are rejected.
func (l *LocalUploader) Remove(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return fmt.Errorf("remove media: key %q is outside the media directory", key)
	}
	dest := filepath.Join(l.dir, rel)
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", dest, err)
	}
	logging.FromContext(ctx).Info("removed media", "dir", l.dir, "key", key)
	return nil
}

var (
	_ Uploader = (*LocalUploader)(nil)
	_ Remover  = (*LocalUploader)(nil)
)
