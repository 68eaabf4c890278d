// Package media moves uploaded files from local temporary storage to durable
// hosting and reports the public URL.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/logging"
)

// ErrUploadFailed indicates the file could not be hosted. The local file has
// already been removed when it is returned.
var ErrUploadFailed = errors.New("media upload failed")

// Asset describes a hosted file.
type Asset struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// Uploader hosts a local file. On failure the local file is deleted and an
// error wrapping ErrUploadFailed is returned; on success the caller owns the
// local file.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (Asset, error)
}

// Remover deletes a hosted asset by the key Upload reported. Removing a key
// that no longer exists is not an error.
type Remover interface {
	Remove(ctx context.Context, key string) error
}

type source struct {
	file        *os.File
	key         string
	size        int64
	contentType string
}

// openSource opens localPath for upload and sniffs its content type.
func openSource(localPath, prefix string) (*source, error) {
	if strings.TrimSpace(localPath) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrUploadFailed)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUploadFailed, localPath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", ErrUploadFailed, localPath, err)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		f.Close()
		return nil, fmt.Errorf("%w: read %s: %v", ErrUploadFailed, localPath, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: rewind %s: %v", ErrUploadFailed, localPath, err)
	}

	return &source{
		file:        f,
		key:         objectKey(prefix, localPath, time.Now().UTC()),
		size:        info.Size(),
		contentType: http.DetectContentType(head[:n]),
	}, nil
}

// objectKey builds a collision-free key that keeps the original extension.
func objectKey(prefix, localPath string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(localPath))
	name := uuid.NewString() + ext
	return path.Join(strings.Trim(prefix, "/"), now.Format("2006/01/02"), name)
}

// discard removes a local file after a failed upload.
func discard(ctx context.Context, localPath string) {
	if localPath == "" {
		return
	}
	if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.FromContext(ctx).Warn("remove failed upload", "path", localPath, "error", err)
	}
}

func publicURL(baseURL, key string) string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL == "" {
		return key
	}
	return baseURL + "/" + key
}
