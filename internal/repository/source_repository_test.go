package repository

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/morph-inspector-go/internal/factory"
	"github.com/anime-shed/morph-inspector-go/internal/storage"
	"github.com/anime-shed/morph-inspector-go/pkg/models"
)

// countingFactory records how often each backend is created
type countingFactory struct {
	factory.StorageFactory
	created map[factory.StorageType]int
}

func (c *countingFactory) CreateStorage(storageType factory.StorageType) (storage.ImageFetcher, error) {
	c.created[storageType]++
	return c.StorageFactory.CreateStorage(storageType)
}

func writePNG(t *testing.T, dir string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 9, 9))))
	path := filepath.Join(dir, "img.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestSourceRepository_FetchLocal(t *testing.T) {
	path := writePNG(t, t.TempDir())
	storages := &countingFactory{
		StorageFactory: factory.NewStorageFactory(factory.StorageConfig{}),
		created:        map[factory.StorageType]int{},
	}
	repo := NewSourceRepository(storages, nil)

	for i := 0; i < 2; i++ {
		img, meta, err := repo.FetchImage(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, 9, img.Bounds().Dx())
		assert.Equal(t, &models.ImageMetadata{ContentLength: meta.ContentLength, Width: 9, Height: 9, Format: "png"}, meta)
	}
	assert.Equal(t, 1, storages.created[factory.LocalStorage])
}

func TestSourceRepository_Errors(t *testing.T) {
	repo := NewSourceRepository(factory.NewStorageFactory(factory.StorageConfig{}), nil)

	_, _, err := repo.FetchImage(context.Background(), filepath.Join(t.TempDir(), "nope.png"))
	assert.True(t, errors.Is(err, ErrImageNotFound))

	_, _, err = repo.FetchImage(context.Background(), "ftp://example.com/a.png")
	assert.True(t, errors.Is(err, ErrInvalidLocation))

	_, _, err = repo.FetchImage(context.Background(), "azblob://photos/a.png")
	assert.True(t, errors.Is(err, ErrRepositoryUnavailable))
}

func TestSourceRepository_ValidateLocation(t *testing.T) {
	repo := NewSourceRepository(factory.NewStorageFactory(factory.StorageConfig{}), nil)

	assert.NoError(t, repo.ValidateLocation("/tmp/a.jpg"))
	assert.NoError(t, repo.ValidateLocation("https://example.com/a.jpg"))
	assert.True(t, errors.Is(repo.ValidateLocation(""), ErrInvalidLocation))
}
