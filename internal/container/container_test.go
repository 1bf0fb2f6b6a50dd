package container

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/morph-inspector-go/internal/analyzer"
	"github.com/anime-shed/morph-inspector-go/internal/config"
)

func TestNewContainer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{
		Host:               "127.0.0.1",
		Port:               "8080",
		RequestTimeout:     time.Second,
		ImageFetchTimeout:  time.Second,
		AnalysisTimeout:    time.Second,
		MaxRequestBodySize: 1 << 20,
		MaxImageBytes:      1 << 20,
		MaxImagePixels:     1 << 20,
		LogLevel:           "info",
		ParallelAnalyzers:  true,
		MaxWorkers:         2,
		TextureDescriptor:  analyzer.TextureLBP,
	}

	c, err := NewContainer(cfg, log)
	require.NoError(t, err)
	defer c.Close()

	assert.Same(t, cfg, c.Config())
	assert.NotNil(t, c.DetectionService())
	assert.Equal(t, int64(0), c.Metrics()["total_detections"])

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestContainer_HealthReportsStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{
		Host:               "127.0.0.1",
		Port:               "8080",
		RequestTimeout:     time.Second,
		ImageFetchTimeout:  time.Second,
		AnalysisTimeout:    time.Second,
		MaxRequestBodySize: 1 << 20,
		MaxImageBytes:      1 << 20,
		MaxImagePixels:     1 << 20,
		LogLevel:           "info",
		ParallelAnalyzers:  true,
		MaxWorkers:         2,
		TextureDescriptor:  analyzer.TextureLBP,
	}
	c, err := NewContainer(cfg, log)
	require.NoError(t, err)
	defer c.Close()

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status     string                 `json:"status"`
		Detections map[string]interface{} `json:"detections"`
		WorkerPool analyzer.PoolStats     `json:"worker_pool"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "available", body.Status)
	assert.Equal(t, 0.0, body.Detections["total_detections"])
	assert.Equal(t, 0.0, body.Detections["avg_processing_time"])
	assert.Equal(t, 2, body.WorkerPool.Workers)

	cfg.ParallelAnalyzers = false
	sequential, err := NewContainer(cfg, log)
	require.NoError(t, err)
	defer sequential.Close()
	assert.NotContains(t, sequential.Status(), "worker_pool")
}
