// Package upload stores user-supplied files (category/brand art, banners,
// product photos) and maps the stored paths to public URLs.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	FolderBanners    = "banners"
	FolderBrands     = "brands"
	FolderCategories = "categories"
	FolderProducts   = "products"
)

var ErrUnsupportedType = errors.New("unsupported image type")

var allowedImages = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Handler persists files. Save returns the storage path to keep in the
// database; Delete of a missing path succeeds.
type Handler interface {
	Save(ctx context.Context, folder string, img *Image) (string, error)
	Delete(ctx context.Context, path string) error
	PublicURL(path string) string
}

// Image is a sniffed upload ready to be saved.
type Image struct {
	Reader    io.Reader
	MIME      string
	Extension string
}

// SniffImage detects the real content type from the leading bytes (the
// client header is not trusted) and rewinds the file.
func SniffImage(file io.ReadSeeker) (*Image, error) {
	mt, err := mimetype.DetectReader(file)
	if err != nil {
		return nil, fmt.Errorf("sniff mime: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek reset: %w", err)
	}
	if !allowedImages[mt.String()] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}
	return &Image{Reader: file, MIME: mt.String(), Extension: mt.Extension()}, nil
}

// NewName returns a collision-free object name inside folder.
func NewName(folder, ext string) string {
	return strings.Trim(folder, "/") + "/" + uuid.NewString() + ext
}

func isAbsoluteURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
