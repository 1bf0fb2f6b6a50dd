package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/anime-shed/morph-inspector-go/pkg/models"
)

// ErrOutsideRoot indicates a local path escapes the configured root
var ErrOutsideRoot = errors.New("path outside allowed root")

// LocalImageFetcher reads images from the local filesystem
type LocalImageFetcher struct {
	root   string
	limits Limits
}

// NewLocalImageFetcher creates a local fetcher. When root is non-empty,
// only paths inside it are served.
func NewLocalImageFetcher(root string, limits Limits) *LocalImageFetcher {
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	return &LocalImageFetcher{root: root, limits: limits}
}

// FetchImage opens and decodes the file at location (a path or file:// URL)
func (l *LocalImageFetcher) FetchImage(ctx context.Context, location string) (image.Image, *models.ImageMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	path, err := l.resolve(location)
	if err != nil {
		return nil, nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrImageNotFound, location)
		}
		return nil, nil, fmt.Errorf("failed to stat image: %w", err)
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is a directory", ErrImageNotFound, location)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	return ReadImage(f, l.limits)
}

func (l *LocalImageFetcher) resolve(location string) (string, error) {
	path := filepath.Clean(strings.TrimPrefix(location, "file://"))
	if l.root == "" {
		return path, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	rel, err := filepath.Rel(l.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, location)
	}
	return abs, nil
}
