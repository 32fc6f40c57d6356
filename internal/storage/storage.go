// Package storage persists uploaded images and returns a reference to them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"careshare-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const MaxImageSize = 5 * 1024 * 1024 // 5MB

var (
	ErrUnsupportedType = errors.New("only jpg/jpeg/png/gif/webp images are allowed")
	ErrTooLarge        = errors.New("image too large (max 5MB)")
	ErrForeignRef      = errors.New("image reference does not belong to this storage")
)

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Storage saves an image under a folder and returns its public reference.
// Delete removes an image by that reference.
type Storage interface {
	Save(ctx context.Context, folder, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

// CheckImage validates an upload's name and declared size
func CheckImage(filename string, size int64) error {
	if !allowedExt[strings.ToLower(filepath.Ext(filename))] {
		return ErrUnsupportedType
	}
	if size > MaxImageSize {
		return ErrTooLarge
	}
	return nil
}

// LocalStorage writes images below a directory served at /uploads
type LocalStorage struct {
	dir       string
	urlPrefix string
	logger    *zap.Logger
}

// NewLocalStorage creates the upload directory if needed
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStorage{dir: dir, urlPrefix: "/uploads", logger: util.Component("storage")}, nil
}

// Dir is the root directory images are written to
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Save writes the image as <folder>/<uuid>_<name>
func (s *LocalStorage) Save(ctx context.Context, folder, filename string, r io.Reader) (string, error) {
	if err := CheckImage(filename, 0); err != nil {
		return "", err
	}

	name := uuid.NewString() + "_" + unsafeChars.ReplaceAllString(filepath.Base(filename), "_")
	folderDir := filepath.Join(s.dir, folder)
	if err := os.MkdirAll(folderDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create folder %s: %w", folder, err)
	}

	dst, err := os.Create(filepath.Join(folderDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if written > MaxImageSize {
		os.Remove(dst.Name())
		return "", ErrTooLarge
	}

	ref := path.Join(s.urlPrefix, folder, name)
	s.logger.Debug("Image stored", zap.String("ref", ref), zap.Int64("bytes", written))
	return ref, nil
}

// Delete removes an image previously returned by Save. A missing file is not an error.
func (s *LocalStorage) Delete(ctx context.Context, ref string) error {
	clean := path.Clean("/" + ref)
	rel := strings.TrimPrefix(clean, s.urlPrefix+"/")
	if rel == clean || rel == "" {
		return ErrForeignRef
	}

	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	s.logger.Debug("Image removed", zap.String("ref", ref))
	return nil
}
