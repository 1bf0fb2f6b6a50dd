package factory

import (
	"errors"
	"fmt"
	"time"

	"github.com/anime-shed/morph-inspector-go/internal/analyzer"
	"github.com/anime-shed/morph-inspector-go/internal/storage"
	"github.com/anime-shed/morph-inspector-go/pkg/validation"
)

// DetectorType represents how the analyzers are dispatched
type DetectorType string

const (
	// ParallelDetector runs the analyzers on a worker pool
	ParallelDetector DetectorType = "parallel"
	// SequentialDetector runs the analyzers one after another
	SequentialDetector DetectorType = "sequential"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// LocalStorage for local file system
	LocalStorage StorageType = "local"
)

// ErrStorageNotConfigured indicates a backend without the settings it needs
var ErrStorageNotConfigured = errors.New("storage backend not configured")

// StorageTypeFor maps a validated location kind to its storage backend
func StorageTypeFor(kind validation.LocationKind) (StorageType, error) {
	switch kind {
	case validation.LocationLocal:
		return LocalStorage, nil
	case validation.LocationHTTP:
		return HTTPStorage, nil
	case validation.LocationAzure:
		return AzureStorage, nil
	default:
		return "", fmt.Errorf("unsupported location kind: %s", kind)
	}
}

// DetectorFactory creates morph detectors
type DetectorFactory interface {
	CreateDetector(detectorType DetectorType) (analyzer.MorphDetector, error)
}

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageFetcher, error)
}

// detectorFactory implements DetectorFactory
type detectorFactory struct {
	options analyzer.DetectionOptions
}

// NewDetectorFactory creates a detector factory sharing base options
func NewDetectorFactory(options analyzer.DetectionOptions) DetectorFactory {
	return &detectorFactory{options: options}
}

// CreateDetector creates a detector of the specified type
func (f *detectorFactory) CreateDetector(detectorType DetectorType) (analyzer.MorphDetector, error) {
	switch detectorType {
	case ParallelDetector:
		return analyzer.NewMorphDetector(f.options.WithParallel(true))
	case SequentialDetector:
		return analyzer.NewMorphDetector(f.options.WithParallel(false))
	default:
		return nil, fmt.Errorf("unsupported detector type: %s", detectorType)
	}
}

// StorageConfig holds the settings of every storage backend
type StorageConfig struct {
	FetchTimeout time.Duration
	Limits       storage.Limits
	// URLs validates http(s) redirect targets; nil accepts any host
	URLs         *validation.URLValidator
	LocalRoot    string
	AzureAccount string
	AzureKey     string
}

// storageFactory implements StorageFactory
type storageFactory struct {
	config StorageConfig
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(config StorageConfig) StorageFactory {
	return &storageFactory{config: config}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPImageFetcher(f.config.FetchTimeout, f.config.Limits, f.config.URLs), nil
	case AzureStorage:
		if f.config.AzureAccount == "" {
			return nil, fmt.Errorf("%w: azure storage account is not set", ErrStorageNotConfigured)
		}
		fetcher, err := storage.NewAzureImageFetcher(f.config.AzureAccount, f.config.AzureKey, f.config.Limits)
		if err != nil {
			return nil, err
		}
		return fetcher, nil
	case LocalStorage:
		return storage.NewLocalImageFetcher(f.config.LocalRoot, f.config.Limits), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	DetectorFactory DetectorFactory
	StorageFactory  StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(options analyzer.DetectionOptions, config StorageConfig) *ComponentFactory {
	return &ComponentFactory{
		DetectorFactory: NewDetectorFactory(options),
		StorageFactory:  NewStorageFactory(config),
	}
}
