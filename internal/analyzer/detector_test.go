package analyzer

import (
	"bytes"
	"errors"
	"image/color"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/morph-inspector-go/pkg/models"
)

// stubAnalyzer returns a fixed score, an error or panics
type stubAnalyzer struct {
	name   AnalyzerName
	score  float64
	err    error
	panics bool
}

func (s stubAnalyzer) Name() AnalyzerName { return s.name }

func (s stubAnalyzer) Analyze(*Image) (AnalyzerResult, error) {
	if s.panics {
		panic("stub exploded")
	}
	if s.err != nil {
		return AnalyzerResult{}, s.err
	}
	return AnalyzerResult{Inconsistency: s.score, Statistics: map[string]float64{"value": s.score}}, nil
}

func (s stubAnalyzer) Neutral() AnalyzerResult {
	return AnalyzerResult{Statistics: map[string]float64{"value": 0}}
}

func newTestDetector(t *testing.T, opts DetectionOptions) MorphDetector {
	t.Helper()
	detector, err := NewMorphDetector(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = detector.Close() })
	return detector
}

func TestNewMorphDetector_RejectsUnknownDescriptor(t *testing.T) {
	_, err := NewMorphDetector(DefaultOptions().WithTextureDescriptor("glcm"))
	assert.Error(t, err)
}

func TestDetect_FlatImage(t *testing.T) {
	detector := newTestDetector(t, DefaultOptions())

	report := detector.Detect(createTestImage(512, 512, color.RGBA{128, 128, 128, 255}))

	assert.True(t, report.Success)
	assert.Equal(t, models.PredictionRealPhoto, report.Prediction)
	assert.Zero(t, report.MorphProbability)
	assert.Zero(t, report.MorphPercentage)
	assert.Equal(t, 100.0, report.RealPercentage)
	assert.Equal(t, models.CertaintyHigh, report.Certainty)
	assert.Equal(t, models.ComponentScores{}, report.ComponentScores)
	assert.Empty(t, report.DegradedAnalyzers)
	assert.Equal(t, "Photo Morph Detector", report.ModelUsed)
	assert.Equal(t, "multi-analysis", report.Method)

	require.Len(t, report.DetailedAnalysis, len(AnalyzerNames))
	for _, name := range AnalyzerNames {
		entry := report.DetailedAnalysis[string(name)]
		require.Contains(t, entry, "inconsistency", name)
		assert.Zero(t, entry["inconsistency"], name)
	}
}

func TestDetect_SplicedImage(t *testing.T) {
	detector := newTestDetector(t, DefaultOptions())

	flat := detector.Detect(createTestImage(960, 480, color.RGBA{128, 128, 128, 255}))
	spliced := detector.Detect(createSplicedImage(960, 480))

	assert.True(t, spliced.Success)
	assert.NotEqual(t, models.PredictionRealPhoto, spliced.Prediction)
	assert.Greater(t, spliced.MorphProbability, flat.MorphProbability)
	assert.Greater(t, spliced.ComponentScores.LightingInconsistency, flat.ComponentScores.LightingInconsistency)
	assert.Greater(t, spliced.ComponentScores.ColorInconsistency, flat.ComponentScores.ColorInconsistency)
	assert.Greater(t, spliced.ComponentScores.EdgeIrregularities, flat.ComponentScores.EdgeIrregularities)
	assert.InDelta(t, 100, spliced.MorphPercentage+spliced.RealPercentage, 1e-9)
}

func TestDetect_Deterministic(t *testing.T) {
	img := createSplicedImage(192, 96)

	parallel := newTestDetector(t, DefaultOptions())
	sequential := newTestDetector(t, SequentialOptions())

	first := parallel.Detect(img)
	assert.Equal(t, first, parallel.Detect(img))
	assert.Equal(t, first, sequential.Detect(img))
}

func TestPoolStats(t *testing.T) {
	parallel := newTestDetector(t, DefaultOptions().WithMaxWorkers(3))
	parallel.Detect(createTestImage(64, 64, color.RGBA{128, 128, 128, 255}))

	reporter, ok := parallel.(PoolReporter)
	require.True(t, ok)
	stats, ok := reporter.PoolStats()
	require.True(t, ok)
	assert.Equal(t, 3, stats.Workers)
	assert.Equal(t, int64(len(AnalyzerNames)), stats.TotalJobs)
	assert.LessOrEqual(t, stats.CompletedJobs, stats.TotalJobs)

	sequential := newTestDetector(t, SequentialOptions())
	_, ok = sequential.(PoolReporter).PoolStats()
	assert.False(t, ok)
}

func TestDetect_TinyImageDegrades(t *testing.T) {
	detector := newTestDetector(t, DefaultOptions())

	report := detector.Detect(createTestImage(4, 4, color.RGBA{200, 40, 40, 255}))

	assert.True(t, report.Success)
	assert.ElementsMatch(t, []string{"compression", "edge", "lighting", "texture"}, report.DegradedAnalyzers)
	assert.Equal(t, map[string]float64{
		"inconsistency":        0,
		"compression_variance": 0,
		"compression_mean":     0,
	}, report.DetailedAnalysis["compression"])
	assert.GreaterOrEqual(t, report.MorphProbability, 0.0)
	assert.LessOrEqual(t, report.MorphProbability, 1.0)
}

func TestDetect_IsolatesFailures(t *testing.T) {
	var logs bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&logs)
	logger.SetFormatter(&logrus.JSONFormatter{})

	analyzers := []SignalAnalyzer{
		stubAnalyzer{name: Compression, score: 1},
		stubAnalyzer{name: Noise, panics: true},
		stubAnalyzer{name: Edge, err: errors.New("boom")},
		stubAnalyzer{name: Lighting, score: 1},
		stubAnalyzer{name: Color, score: 1},
		stubAnalyzer{name: Texture, score: 1},
	}

	for _, parallel := range []bool{true, false} {
		opts := DefaultOptions().WithParallel(parallel).WithLogger(logger)
		detector := newMorphDetector(analyzers, NewAggregator(), opts)

		report := detector.Detect(createTestImage(16, 16, color.RGBA{1, 2, 3, 255}))
		require.NoError(t, detector.Close())

		assert.True(t, report.Success)
		assert.Equal(t, []string{"noise", "edge"}, report.DegradedAnalyzers)
		assert.Zero(t, report.ComponentScores.NoiseInconsistency)
		assert.Zero(t, report.ComponentScores.EdgeIrregularities)
		assert.Equal(t, 100.0, report.ComponentScores.LightingInconsistency)
		// 0.65 weighted, calibrated (0.65-0.1)*0.7
		assert.InDelta(t, 0.385, report.MorphProbability, 1e-9)
		assert.Equal(t, models.PredictionPossiblyMorphed, report.Prediction)
	}

	assert.Contains(t, logs.String(), "stub exploded")
	assert.Contains(t, logs.String(), `"analyzer":"edge"`)
}

func TestDetect_Rounding(t *testing.T) {
	analyzers := make([]SignalAnalyzer, 0, len(AnalyzerNames))
	for _, name := range AnalyzerNames {
		analyzers = append(analyzers, stubAnalyzer{name: name, score: 0.123456})
	}
	detector := newMorphDetector(analyzers, NewAggregator(), SequentialOptions())

	report := detector.Detect(createTestImage(8, 8, color.RGBA{0, 0, 0, 255}))

	// (0.123456-0.1)*0.7 = 0.0164192
	assert.Equal(t, 0.016, report.MorphProbability)
	assert.Equal(t, 1.6, report.MorphPercentage)
	assert.Equal(t, 98.4, report.RealPercentage)
	assert.Equal(t, 12.3, report.ComponentScores.TextureIrregularities)
	assert.Equal(t, 0.123456, report.DetailedAnalysis["texture"]["inconsistency"])
}
