package analyzer

import (
	"image"

	"github.com/anime-shed/morph-inspector-go/pkg/models"
)

// MorphDetector defines the main interface for morph detection
type MorphDetector interface {
	// Detect runs every analyzer over img and assembles the report.
	// It never fails for a decoded image.
	Detect(img image.Image) models.ForensicsReport

	// Lifecycle management
	Close() error
}

// PoolReporter is implemented by detectors that dispatch analyzers on a
// worker pool
type PoolReporter interface {
	// PoolStats reports the pool counters; ok is false for a sequential
	// detector
	PoolStats() (stats PoolStats, ok bool)
}

// SignalAnalyzer computes one inconsistency score from an image
type SignalAnalyzer interface {
	Name() AnalyzerName
	Analyze(img *Image) (AnalyzerResult, error)
	// Neutral is the documented all-zero result substituted on failure
	Neutral() AnalyzerResult
}

// ScoreAggregator combines the analyzer results into a verdict
type ScoreAggregator interface {
	Aggregate(results map[AnalyzerName]AnalyzerResult) AggregateResult
}
