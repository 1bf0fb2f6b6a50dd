package services

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/anime-shed/morph-inspector-go/internal/service"
	"github.com/anime-shed/morph-inspector-go/pkg/models"
)

// BatchDetectionService runs morph detection over many locations at once
type BatchDetectionService struct {
	detection   service.MorphDetectionService
	concurrency int
}

// NewBatchDetectionService creates a batch service. A concurrency below one
// uses the number of CPUs.
func NewBatchDetectionService(detection service.MorphDetectionService, concurrency int) *BatchDetectionService {
	if concurrency < 1 {
		concurrency = runtime.NumCPU()
	}
	return &BatchDetectionService{
		detection:   detection,
		concurrency: concurrency,
	}
}

// DetectAll analyzes every location and returns one item per location in
// input order. A failed location is reported in its item and does not stop
// the others; only cancellation of ctx aborts the batch.
func (s *BatchDetectionService) DetectAll(ctx context.Context, locations []string) ([]models.BatchItem, error) {
	items := make([]models.BatchItem, len(locations))
	for i, location := range locations {
		items[i].Location = location
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)

	for i, location := range locations {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			result, err := s.detection.DetectFromLocation(egCtx, location)
			if err != nil {
				items[i].Error = err.Error()
				return nil
			}
			items[i].Result = result
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return items, fmt.Errorf("batch detection aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return items, fmt.Errorf("batch detection aborted: %w", err)
	}
	return items, nil
}

// Summary counts the predictions of a finished batch
type Summary struct {
	Total       int            `json:"total" yaml:"total"`
	Failed      int            `json:"failed" yaml:"failed"`
	Degraded    int            `json:"degraded" yaml:"degraded"`
	Predictions map[string]int `json:"predictions" yaml:"predictions"`
}

// Summarize tallies items
func Summarize(items []models.BatchItem) Summary {
	summary := Summary{Total: len(items), Predictions: make(map[string]int)}
	for _, item := range items {
		if item.Result == nil {
			summary.Failed++
			continue
		}
		summary.Predictions[item.Result.Prediction]++
		if len(item.Result.DegradedAnalyzers) > 0 {
			summary.Degraded++
		}
	}
	return summary
}
