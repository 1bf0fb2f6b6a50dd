package repository

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/anime-shed/morph-inspector-go/internal/factory"
	"github.com/anime-shed/morph-inspector-go/internal/storage"
	"github.com/anime-shed/morph-inspector-go/pkg/models"
	"github.com/anime-shed/morph-inspector-go/pkg/validation"
)

// SourceRepository implements ImageRepository by routing each location to
// the storage backend for its kind. Backends are created on first use.
type SourceRepository struct {
	validator *validation.LocationValidator
	storages  factory.StorageFactory

	mu       sync.Mutex
	fetchers map[factory.StorageType]storage.ImageFetcher
}

// NewSourceRepository creates a repository backed by the given storage factory
func NewSourceRepository(storages factory.StorageFactory, validator *validation.LocationValidator) *SourceRepository {
	if validator == nil {
		validator = validation.NewLocationValidator()
	}
	return &SourceRepository{
		validator: validator,
		storages:  storages,
		fetchers:  make(map[factory.StorageType]storage.ImageFetcher),
	}
}

// FetchImage retrieves and decodes the image at location
func (r *SourceRepository) FetchImage(ctx context.Context, location string) (image.Image, *models.ImageMetadata, error) {
	fetcher, err := r.fetcherFor(location)
	if err != nil {
		return nil, nil, err
	}
	return fetcher.FetchImage(ctx, location)
}

// ValidateLocation validates if the provided location is acceptable
func (r *SourceRepository) ValidateLocation(location string) error {
	if _, err := r.validator.Classify(location); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLocation, err)
	}
	return nil
}

func (r *SourceRepository) fetcherFor(location string) (storage.ImageFetcher, error) {
	kind, err := r.validator.Classify(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLocation, err)
	}
	storageType, err := factory.StorageTypeFor(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLocation, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if fetcher, ok := r.fetchers[storageType]; ok {
		return fetcher, nil
	}
	fetcher, err := r.storages.CreateStorage(storageType)
	if err != nil {
		if errors.Is(err, factory.ErrStorageNotConfigured) {
			return nil, fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
		}
		return nil, err
	}
	r.fetchers[storageType] = fetcher
	return fetcher, nil
}
