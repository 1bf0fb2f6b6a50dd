package analyzer

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/morph-inspector-go/pkg/models"
)

const (
	modelName      = "Photo Morph Detector"
	analysisMethod = "multi-analysis"

	highCertaintyAbove   = 0.3
	mediumCertaintyAbove = 0.15
)

// morphDetector implements MorphDetector and orchestrates the analyzers
type morphDetector struct {
	analyzers  []SignalAnalyzer
	aggregator ScoreAggregator
	workerPool *WorkerPool
	logger     logrus.FieldLogger
}

// NewMorphDetector creates a detector running the six standard analyzers
func NewMorphDetector(opts DetectionOptions) (MorphDetector, error) {
	if _, err := ParseTextureDescriptor(string(opts.TextureDescriptor)); err != nil {
		return nil, err
	}
	return newMorphDetector(newSignalAnalyzers(opts), NewAggregator(), opts), nil
}

func newMorphDetector(analyzers []SignalAnalyzer, aggregator ScoreAggregator, opts DetectionOptions) *morphDetector {
	d := &morphDetector{
		analyzers:  analyzers,
		aggregator: aggregator,
		logger:     opts.logger(),
	}
	if opts.Parallel {
		d.workerPool = NewWorkerPool(opts.MaxWorkers)
		d.workerPool.Start()
	}
	return d
}

// outcome is what one analyzer produced for one request
type outcome struct {
	result AnalyzerResult
	err    error
}

// Detect runs every analyzer over img and assembles the report. Analyzer
// failures are folded into neutral results and listed as degraded.
func (d *morphDetector) Detect(img image.Image) models.ForensicsReport {
	raster := NewImage(img)
	outcomes := d.run(raster)

	results := make(map[AnalyzerName]AnalyzerResult, len(d.analyzers))
	var degraded []string
	for i, a := range d.analyzers {
		o := outcomes[i]
		if o.err != nil {
			var failure *AnalyzerFailure
			if !errors.As(o.err, &failure) {
				failure = &AnalyzerFailure{Analyzer: a.Name(), Cause: o.err}
			}
			d.logger.WithFields(logrus.Fields{
				"analyzer": string(a.Name()),
				"width":    raster.Width(),
				"height":   raster.Height(),
			}).WithError(failure.Cause).Warn("Analyzer failed, using neutral result")

			o.result = a.Neutral()
			degraded = append(degraded, string(a.Name()))
		}
		results[a.Name()] = o.result
	}

	for _, name := range AnalyzerNames {
		if _, ok := results[name]; !ok {
			d.logger.WithField("analyzer", string(name)).
				Error("Analyzer result missing, aggregation falls back to the neutral verdict")
		}
	}

	return buildReport(results, d.aggregator.Aggregate(results), degraded)
}

// run dispatches the analyzers and returns their outcomes in analyzer order
func (d *morphDetector) run(raster *Image) []outcome {
	outcomes := make([]outcome, len(d.analyzers))
	if d.workerPool == nil {
		for i, a := range d.analyzers {
			outcomes[i] = analyze(a, raster)
		}
		return outcomes
	}

	var wg sync.WaitGroup
	for i, a := range d.analyzers {
		wg.Add(1)
		job := func() {
			defer wg.Done()
			outcomes[i] = analyze(a, raster)
		}
		if !d.workerPool.Submit(job) {
			job()
		}
	}
	wg.Wait()
	return outcomes
}

// analyze invokes a single analyzer, converting a panic into a failure
func analyze(a SignalAnalyzer, raster *Image) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			o = outcome{err: &AnalyzerFailure{Analyzer: a.Name(), Cause: fmt.Errorf("panic: %v", r)}}
		}
	}()
	result, err := a.Analyze(raster)
	return outcome{result: result, err: err}
}

// PoolStats reports the worker pool counters of a parallel detector
func (d *morphDetector) PoolStats() (PoolStats, bool) {
	if d.workerPool == nil {
		return PoolStats{}, false
	}
	return d.workerPool.GetStats(), true
}

// Close releases the worker pool
func (d *morphDetector) Close() error {
	if d.workerPool != nil {
		d.workerPool.Close()
	}
	return nil
}

func buildReport(results map[AnalyzerName]AnalyzerResult, agg AggregateResult, degraded []string) models.ForensicsReport {
	detailed := make(map[string]map[string]float64, len(results))
	for name, result := range results {
		entry := make(map[string]float64, len(result.Statistics)+1)
		for key, v := range result.Statistics {
			entry[key] = v
		}
		entry["inconsistency"] = result.Inconsistency
		detailed[string(name)] = entry
	}

	morph := roundTo(agg.MorphProbability*100, 1)
	pct := agg.ComponentPercentages

	return models.ForensicsReport{
		Success:          true,
		Prediction:       agg.Classification.String(),
		MorphProbability: roundTo(agg.MorphProbability, 3),
		MorphPercentage:  morph,
		RealPercentage:   roundTo(100-morph, 1),
		Certainty:        Certainty(agg.MorphProbability),
		ComponentScores: models.ComponentScores{
			CompressionArtifacts:  roundTo(pct[Compression], 1),
			NoiseInconsistency:    roundTo(pct[Noise], 1),
			EdgeIrregularities:    roundTo(pct[Edge], 1),
			LightingInconsistency: roundTo(pct[Lighting], 1),
			ColorInconsistency:    roundTo(pct[Color], 1),
			TextureIrregularities: roundTo(pct[Texture], 1),
		},
		DetailedAnalysis:  detailed,
		ModelUsed:         modelName,
		Method:            analysisMethod,
		DegradedAnalyzers: degraded,
	}
}

// Certainty grades how far the probability sits from the 0.5 midpoint
func Certainty(probability float64) string {
	distance := math.Abs(probability - 0.5)
	switch {
	case distance > highCertaintyAbove:
		return models.CertaintyHigh
	case distance > mediumCertaintyAbove:
		return models.CertaintyMedium
	default:
		return models.CertaintyLow
	}
}
