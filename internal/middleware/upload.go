package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/logging"
)

// UploadField names a multipart file field and how many files it may carry.
type UploadField struct {
	Name     string
	MaxCount int
}

type uploadsKey struct{}

const multipartMemory = 1 << 20

// Uploads parses a multipart body, copies the declared file fields into
// temporary files under dir and exposes their paths through UploadedFile.
// The temporary files are removed after the handler returns. Requests that
// are not multipart pass through untouched.
func Uploads(dir string, maxBytes int64, fields ...UploadField) func(http.Handler) http.Handler {
	allowed := make(map[string]int, len(fields))
	for _, f := range fields {
		allowed[f.Name] = f.MaxCount
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
				next.ServeHTTP(w, r)
				return
			}

			if maxBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			if err := r.ParseMultipartForm(multipartMemory); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
					apierror.Write(ctx, w, &apierror.Error{
						Kind:       apierror.KindValidation,
						StatusCode: http.StatusRequestEntityTooLarge,
						Message:    fmt.Sprintf("Upload exceeds %d bytes", maxBytes),
					})
					return
				}
				apierror.Write(ctx, w, apierror.Validation("Invalid multipart form", err.Error()))
				return
			}
			defer r.MultipartForm.RemoveAll()

			saved := make(map[string][]string)
			defer removeAll(ctx, saved)

			for name, headers := range r.MultipartForm.File {
				limit, ok := allowed[name]
				if !ok {
					apierror.Write(ctx, w, apierror.Validation("Unexpected file field", name))
					return
				}
				if len(headers) > limit {
					apierror.Write(ctx, w, apierror.Validation("Too many files", fmt.Sprintf("%s accepts at most %d file(s)", name, limit)))
					return
				}
				for _, fh := range headers {
					path, err := saveTemp(dir, fh)
					if err != nil {
						apierror.Write(ctx, w, apierror.Internal("Could not store upload", err))
						return
					}
					saved[name] = append(saved[name], path)
				}
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, uploadsKey{}, saved)))
		})
	}
}

// UploadedFile returns the temporary path of the first file sent in field.
func UploadedFile(ctx context.Context, field string) string {
	saved, _ := ctx.Value(uploadsKey{}).(map[string][]string)
	if len(saved[field]) == 0 {
		return ""
	}
	return saved[field][0]
}

func saveTemp(dir string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(filepath.Base(fh.Filename)))
	dst, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("copy upload %s: %w", fh.Filename, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return dst.Name(), nil
}

func removeAll(ctx context.Context, saved map[string][]string) {
	for _, paths := range saved {
		for _, p := range paths {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				logging.FromContext(ctx).Warn("remove temp upload", "path", p, "error", err)
			}
		}
	}
}
