package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/anime-shed/morph-inspector-go/internal/errors"
	"github.com/anime-shed/morph-inspector-go/pkg/models"
)

type fakeDetection struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *fakeDetection) DetectMorph(ctx context.Context, path string) (*models.DetectionResponse, error) {
	return f.DetectFromLocation(ctx, path)
}

func (f *fakeDetection) DetectFromLocation(ctx context.Context, location string) (*models.DetectionResponse, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	switch {
	case strings.Contains(location, "missing"):
		return nil, apperrors.NewNotFoundError("image not found", nil)
	case strings.Contains(location, "degraded"):
		return &models.DetectionResponse{ForensicsReport: models.ForensicsReport{
			Success:           true,
			Prediction:        models.PredictionRealPhoto,
			DegradedAnalyzers: []string{"texture"},
		}}, nil
	case strings.Contains(location, "morph"):
		return &models.DetectionResponse{ForensicsReport: models.ForensicsReport{
			Success:    true,
			Prediction: models.PredictionPossiblyMorphed,
		}}, nil
	}
	return &models.DetectionResponse{ForensicsReport: models.ForensicsReport{
		Success:    true,
		Prediction: models.PredictionRealPhoto,
	}}, nil
}

func (f *fakeDetection) DetectFromBytes(ctx context.Context, data []byte, name string) (*models.DetectionResponse, error) {
	return nil, errors.New("not used")
}

func (f *fakeDetection) ValidateLocation(location string) error { return nil }

func TestDetectAll_PreservesOrderAndIsolatesFailures(t *testing.T) {
	svc := NewBatchDetectionService(&fakeDetection{}, 2)

	locations := []string{"/a.png", "/missing.png", "/morph.png", "/degraded.png"}
	items, err := svc.DetectAll(context.Background(), locations)
	require.NoError(t, err)
	require.Len(t, items, len(locations))

	for i, item := range items {
		assert.Equal(t, locations[i], item.Location)
	}
	assert.Equal(t, models.PredictionRealPhoto, items[0].Result.Prediction)
	assert.Nil(t, items[1].Result)
	assert.Contains(t, items[1].Error, "image not found")
	assert.Equal(t, models.PredictionPossiblyMorphed, items[2].Result.Prediction)

	summary := Summarize(items)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Degraded)
	assert.Equal(t, 2, summary.Predictions[models.PredictionRealPhoto])
	assert.Equal(t, 1, summary.Predictions[models.PredictionPossiblyMorphed])
}

func TestDetectAll_RespectsConcurrencyLimit(t *testing.T) {
	fake := &fakeDetection{delay: 20 * time.Millisecond}
	svc := NewBatchDetectionService(fake, 2)

	locations := make([]string, 8)
	for i := range locations {
		locations[i] = "/img.png"
	}
	_, err := svc.DetectAll(context.Background(), locations)
	require.NoError(t, err)
	assert.LessOrEqual(t, fake.peak.Load(), int32(2))
}

func TestDetectAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, err := NewBatchDetectionService(&fakeDetection{}, 1).DetectAll(ctx, []string{"/a.png", "/b.png"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, items, 2)
}

func TestNewBatchDetectionService_DefaultConcurrency(t *testing.T) {
	svc := NewBatchDetectionService(&fakeDetection{}, 0)
	assert.GreaterOrEqual(t, svc.concurrency, 1)
}
