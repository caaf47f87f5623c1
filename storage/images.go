// Package storage saves uploaded product images to local disk and
// serves them under /uploads.
package storage

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

type ImageStore struct {
	dir     string
	maxSize int64
}

func NewImageStore(dir string, maxSize int64) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &ImageStore{dir: dir, maxSize: maxSize}, nil
}

// Save writes the uploaded file under a random name and returns the
// public URL path.
func (s *ImageStore) Save(c *gin.Context, file *multipart.FileHeader) (string, error) {
	if file.Size > s.maxSize {
		return "", fmt.Errorf("image exceeds maximum size of %d bytes", s.maxSize)
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("unsupported image type %q", ext)
	}

	name := uuid.NewString() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return "/uploads/" + name, nil
}

func (s *ImageStore) Dir() string { return s.dir }
