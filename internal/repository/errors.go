package repository

import (
	"errors"

	"github.com/anime-shed/morph-inspector-go/internal/storage"
)

var (
	// ErrInvalidLocation indicates a location no storage backend accepts
	ErrInvalidLocation = errors.New("invalid image location")

	// ErrImageNotFound indicates the image was not found
	ErrImageNotFound = storage.ErrImageNotFound

	// ErrUndecodableImage indicates the source is not a supported image
	ErrUndecodableImage = storage.ErrUndecodableImage

	// ErrRepositoryUnavailable indicates the backing storage is not configured
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
