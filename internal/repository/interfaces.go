package repository

import (
	"context"
	"image"

	"github.com/anime-shed/morph-inspector-go/pkg/models"
)

// ImageRepository defines the interface for image data access operations
type ImageRepository interface {
	// FetchImage retrieves and decodes an image from a path or URL
	FetchImage(ctx context.Context, location string) (image.Image, *models.ImageMetadata, error)

	// ValidateLocation validates if the provided location is acceptable
	ValidateLocation(location string) error
}
