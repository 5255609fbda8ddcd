package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Upload is an image received from a client.
type Upload struct {
	Filename string
	Data     []byte
}

// ImageStore persists uploaded images and returns their public URL.
type ImageStore interface {
	Save(ctx context.Context, folder string, upload Upload) (string, error)
	Remove(ctx context.Context, url string) error
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ErrNotAnImage is returned for uploads whose content is not a supported image.
var ErrNotAnImage = errors.New("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")

// CheckImage validates the size and content type of an upload and returns
// the file extension for it. A maxSize of zero disables the size check.
func CheckImage(data []byte, maxSize int64) (string, error) {
	if maxSize > 0 && int64(len(data)) > maxSize {
		return "", fmt.Errorf("Ensure the image is at most %d MB.", maxSize>>20)
	}
	ext, ok := imageExtensions[http.DetectContentType(data)]
	if !ok {
		return "", ErrNotAnImage
	}
	return ext, nil
}

// LocalImageStore writes images below a root directory served at baseURL.
type LocalImageStore struct {
	root    string
	baseURL string
	maxSize int64
	now     Clock
}

// NewLocalImageStore creates the root directory when missing.
func NewLocalImageStore(root, baseURL string, maxSize int64) (*LocalImageStore, error) {
	if root == "" {
		return nil, fmt.Errorf("media root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &LocalImageStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
		now:     time.Now,
	}, nil
}

// MaxSize is the largest accepted upload in bytes.
func (s *LocalImageStore) MaxSize() int64 {
	return s.maxSize
}

// Save stores the upload under folder/YYYY/MM with a random name.
func (s *LocalImageStore) Save(ctx context.Context, folder string, upload Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext, err := CheckImage(upload.Data, s.maxSize)
	if err != nil {
		return "", err
	}

	now := s.now()
	rel := path.Join(folder, now.Format("2006"), now.Format("01"), uuid.NewString()+ext)
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(full, upload.Data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return s.baseURL + "/" + rel, nil
}

// Remove deletes a previously saved image. Unknown URLs are ignored.
func (s *LocalImageStore) Remove(ctx context.Context, url string) error {
	rel, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || rel == "" {
		return nil
	}
	full := filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+rel)))
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}
