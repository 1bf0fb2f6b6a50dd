package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/morph-inspector-go/internal/analyzer"
	"github.com/anime-shed/morph-inspector-go/internal/storage"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddress())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 15*time.Second, cfg.ImageFetchTimeout)
	assert.Equal(t, 20*time.Second, cfg.AnalysisTimeout)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxRequestBodySize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.ParallelAnalyzers)
	assert.Equal(t, analyzer.TextureLBP, cfg.TextureDescriptor)
	assert.Empty(t, cfg.LocalImageRoot)
	assert.Equal(t, storage.DefaultMaxImageBytes, cfg.MaxImageBytes)
	assert.Equal(t, storage.DefaultMaxImagePixels, cfg.MaxImagePixels)
	assert.Empty(t, cfg.AllowedImageHosts)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9090")
	t.Setenv("REQUEST_TIMEOUT", "45s")
	t.Setenv("MAX_REQUEST_BODY_SIZE", "2048")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("PARALLEL_ANALYZERS", "false")
	t.Setenv("MAX_WORKERS", "3")
	t.Setenv("TEXTURE_DESCRIPTOR", "gradient")
	t.Setenv("LOCAL_IMAGE_ROOT", "/srv/images")
	t.Setenv("AZURE_STORAGE_ACCOUNT", "acct")
	t.Setenv("MAX_IMAGE_PIXELS", "1000000")
	t.Setenv("ALLOWED_IMAGE_HOSTS", " images.example.com, ,cdn.example.com:8443")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.ServerAddress())
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, int64(2048), cfg.MaxRequestBodySize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.ParallelAnalyzers)
	assert.Equal(t, 3, cfg.MaxWorkers)
	assert.Equal(t, analyzer.TextureGradient, cfg.TextureDescriptor)
	assert.Equal(t, "/srv/images", cfg.LocalImageRoot)
	assert.Equal(t, "acct", cfg.AzureStorageAccount)
	assert.Equal(t, storage.Limits{MaxBytes: storage.DefaultMaxImageBytes, MaxPixels: 1_000_000}, cfg.ImageLimits())
	assert.Equal(t, []string{"images.example.com", "cdn.example.com:8443"}, cfg.AllowedImageHosts)
	assert.NoError(t, cfg.URLValidator().ValidateImageURL("https://cdn.example.com:8443/a.jpg"))
	assert.Error(t, cfg.URLValidator().ValidateImageURL("https://evil.example.com/a.jpg"))

	opts := cfg.DetectionOptions()
	assert.False(t, opts.Parallel)
	assert.Equal(t, 3, opts.MaxWorkers)
	assert.Equal(t, analyzer.TextureGradient, opts.TextureDescriptor)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PORT", "http"},
		{"PORT", "70000"},
		{"MAX_REQUEST_BODY_SIZE", "0"},
		{"ANALYSIS_TIMEOUT", "-1s"},
		{"TEXTURE_DESCRIPTOR", "sift"},
		{"LOG_LEVEL", "verbose"},
		{"MAX_WORKERS", "-2"},
		{"MAX_IMAGE_PIXELS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadFromEnv()
			assert.Error(t, err)
		})
	}
}
