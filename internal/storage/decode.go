package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/anime-shed/morph-inspector-go/pkg/models"
)

const (
	// DefaultMaxImageBytes bounds how much of a source is read before decoding
	DefaultMaxImageBytes int64 = 50 << 20

	// DefaultMaxImagePixels bounds width*height of an image before decoding
	DefaultMaxImagePixels = 40_000_000
)

// Limits bounds what a fetcher accepts. Zero fields take the defaults.
type Limits struct {
	MaxBytes  int64
	MaxPixels int
}

func (l Limits) maxBytes() int64 {
	if l.MaxBytes <= 0 {
		return DefaultMaxImageBytes
	}
	return l.MaxBytes
}

func (l Limits) maxPixels() int {
	if l.MaxPixels <= 0 {
		return DefaultMaxImagePixels
	}
	return l.MaxPixels
}

var (
	// ErrImageNotFound indicates the source does not exist
	ErrImageNotFound = errors.New("image not found")

	// ErrUndecodableImage indicates the bytes are not a supported raster image
	ErrUndecodableImage = errors.New("undecodable image")

	// ErrImageTooLarge indicates the source exceeds the configured byte or
	// pixel limit
	ErrImageTooLarge = errors.New("image exceeds size limit")
)

// ImageFetcher loads and decodes an image from a location
type ImageFetcher interface {
	FetchImage(ctx context.Context, location string) (image.Image, *models.ImageMetadata, error)
}

// ReadImage reads at most limits.MaxBytes from r and decodes the result
func ReadImage(r io.Reader, limits Limits) (image.Image, *models.ImageMetadata, error) {
	maxBytes := limits.maxBytes()

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, nil, fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, maxBytes)
	}
	return DecodeImage(data, limits.MaxPixels)
}

// DecodeConfig reads the dimensions from the image header without decoding
// the pixel data
func DecodeConfig(data []byte) (image.Config, string, error) {
	if len(data) == 0 {
		return image.Config{}, "", fmt.Errorf("%w: empty input", ErrUndecodableImage)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}
	return cfg, format, nil
}

// DecodeImage decodes JPEG, PNG, GIF, WEBP, BMP or TIFF bytes. Images whose
// header declares more than maxPixels pixels are rejected before any pixel
// buffer is allocated; maxPixels <= 0 uses DefaultMaxImagePixels.
func DecodeImage(data []byte, maxPixels int) (image.Image, *models.ImageMetadata, error) {
	cfg, format, err := DecodeConfig(data)
	if err != nil {
		return nil, nil, err
	}
	limit := Limits{MaxPixels: maxPixels}.maxPixels()
	if int64(cfg.Width)*int64(cfg.Height) > int64(limit) {
		return nil, nil, fmt.Errorf("%w: %s image is %dx%d, more than %d pixels",
			ErrImageTooLarge, format, cfg.Width, cfg.Height, limit)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, nil, fmt.Errorf("%w: zero-sized %s image", ErrUndecodableImage, format)
	}

	return img, &models.ImageMetadata{
		ContentLength: int64(len(data)),
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
	}, nil
}
