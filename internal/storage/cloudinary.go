package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStorage uploads images to Cloudinary
type CloudinaryStorage struct {
	cld        *cloudinary.Cloudinary
	rootFolder string
}

// NewCloudinaryStorage builds a client from a cloudinary:// URL
func NewCloudinaryStorage(cloudinaryURL, rootFolder string) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
	}
	return &CloudinaryStorage{cld: cld, rootFolder: rootFolder}, nil
}

func boolPtr(b bool) *bool {
	return &b
}

// Save uploads the image and returns its secure URL
func (s *CloudinaryStorage) Save(ctx context.Context, folder, filename string, r io.Reader) (string, error) {
	if err := CheckImage(filename, 0); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	res, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:         path.Join(s.rootFolder, folder),
		PublicID:       strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)),
		ResourceType:   "image",
		UniqueFilename: boolPtr(true),
		Overwrite:      boolPtr(false),
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload failed: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload failed: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

// Delete destroys the asset behind a secure URL returned by Save
func (s *CloudinaryStorage) Delete(ctx context.Context, ref string) error {
	publicID, ok := publicIDFromURL(ref)
	if !ok {
		return ErrForeignRef
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "image",
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy failed: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy failed: %s", res.Error.Message)
	}
	return nil
}

// publicIDFromURL extracts "<folder>/<name>" from
// https://res.cloudinary.com/<cloud>/image/upload/v<version>/<folder>/<name>.<ext>
func publicIDFromURL(ref string) (string, bool) {
	_, rest, found := strings.Cut(ref, "/upload/")
	if !found || rest == "" {
		return "", false
	}
	if first, tail, ok := strings.Cut(rest, "/"); ok && isVersion(first) {
		rest = tail
	}
	rest = strings.TrimSuffix(rest, path.Ext(rest))
	return rest, rest != ""
}

func isVersion(segment string) bool {
	if len(segment) < 2 || segment[0] != 'v' {
		return false
	}
	for _, r := range segment[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
