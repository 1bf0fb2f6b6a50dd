package analyzer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// signal is what an analyzer measures: one or more planes plus
// image-wide values reported alongside the region statistics
type signal struct {
	planes []*Plane
	extras map[string]float64
}

// regionStatistic writes one value per channel for region r into out
type regionStatistic func(s signal, r Region, out []float64)

// dispersion summarizes one channel of per-region statistics
type dispersion struct {
	Mean, Variance float64
}

// Std returns the population standard deviation
func (d dispersion) Std() float64 {
	return math.Sqrt(d.Variance)
}

// signalSpec is the configuration record of one analyzer. Every analyzer
// follows the same shape: partition, per-region statistic, dispersion score.
type signalSpec struct {
	name     AnalyzerName
	channels int
	keys     []string

	granularity func(height, width int) Partition
	extract     func(img *Image) signal
	// newStatistic returns a statistic with its own scratch buffers
	newStatistic func() regionStatistic
	score        func(spread []dispersion, s signal) (float64, map[string]float64)
}

// regionAnalyzer implements SignalAnalyzer for any signalSpec
type regionAnalyzer struct {
	spec signalSpec
}

func newRegionAnalyzer(spec signalSpec) SignalAnalyzer {
	return &regionAnalyzer{spec: spec}
}

// Name returns the analyzer name
func (a *regionAnalyzer) Name() AnalyzerName {
	return a.spec.name
}

// Neutral returns a zero score with every documented statistic set to zero
func (a *regionAnalyzer) Neutral() AnalyzerResult {
	stats := make(map[string]float64, len(a.spec.keys))
	for _, key := range a.spec.keys {
		stats[key] = 0
	}
	return AnalyzerResult{Inconsistency: 0, Statistics: stats}
}

// Analyze computes the inconsistency score of img. Numeric panics are
// recovered and returned as an AnalyzerFailure.
func (a *regionAnalyzer) Analyze(img *Image) (result AnalyzerResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = AnalyzerResult{}
			err = a.fail(fmt.Errorf("panic: %v", r))
		}
	}()

	height, width := img.Height(), img.Width()
	partition := a.spec.granularity(height, width)
	count := partition.Count(height, width)
	if count == 0 {
		return AnalyzerResult{}, a.fail(fmt.Errorf("%w: %dx%d image, %d px regions", ErrNoRegions, width, height, partition.Size))
	}

	sig := a.spec.extract(img)
	measure := a.spec.newStatistic()

	series := make([][]float64, a.spec.channels)
	for c := range series {
		series[c] = make([]float64, 0, count)
	}
	values := make([]float64, a.spec.channels)
	for region := range partition.Regions(height, width) {
		measure(sig, region, values)
		for c, v := range values {
			series[c] = append(series[c], v)
		}
	}

	spread := make([]dispersion, a.spec.channels)
	for c, s := range series {
		mean, variance := stat.PopMeanVariance(s, nil)
		spread[c] = dispersion{Mean: mean, Variance: variance}
	}

	score, stats := a.spec.score(spread, sig)
	if !isFinite(score) {
		return AnalyzerResult{}, a.fail(ErrNonFinite)
	}
	for key, v := range stats {
		if !isFinite(v) {
			return AnalyzerResult{}, a.fail(fmt.Errorf("%w: %s", ErrNonFinite, key))
		}
	}

	return AnalyzerResult{Inconsistency: clamp01(score), Statistics: stats}, nil
}

func (a *regionAnalyzer) fail(cause error) *AnalyzerFailure {
	return &AnalyzerFailure{Analyzer: a.spec.name, Cause: cause}
}

// gather copies the samples of p inside r into buf
func gather(p *Plane, r Region, buf []float64) []float64 {
	buf = buf[:0]
	for y := r.Row; y < r.Row+r.Size; y++ {
		start := y*p.W + r.Col
		buf = append(buf, p.Data[start:start+r.Size]...)
	}
	return buf
}

// regionVariance measures the population variance of every plane
func regionVariance() regionStatistic {
	var buf []float64
	return func(s signal, r Region, out []float64) {
		for c, p := range s.planes {
			buf = gather(p, r, buf)
			out[c] = stat.PopVariance(buf, nil)
		}
	}
}

// regionMean measures the mean of every plane
func regionMean() regionStatistic {
	var buf []float64
	return func(s signal, r Region, out []float64) {
		for c, p := range s.planes {
			buf = gather(p, r, buf)
			out[c] = stat.Mean(buf, nil)
		}
	}
}

// damping converts a (mean, spread) pair into a score. Below the activity
// floor the score is zero; large spreads are square-root damped.
type damping struct {
	meanFloor   float64
	spreadFloor float64
	// quietNeedsBoth requires mean and spread to be below their floors
	quietNeedsBoth bool
	sqrtAbove      float64
	sqrtScale      float64
	linearDivisor  float64
}

func (d damping) apply(mean, spread float64) float64 {
	quiet := mean < d.meanFloor || spread < d.spreadFloor
	if d.quietNeedsBoth {
		quiet = mean < d.meanFloor && spread < d.spreadFloor
	}

	switch {
	case quiet:
		return 0
	case spread > d.sqrtAbove:
		return math.Min(math.Sqrt(spread/(mean+epsilon))*d.sqrtScale, 1)
	default:
		return math.Min(spread/d.linearDivisor, 1)
	}
}

// ratioScore is the undamped std/mean ratio with a low-activity floor
func ratioScore(d dispersion) float64 {
	if d.Mean < activityFloor {
		return 0
	}
	return math.Min(d.Std()/(d.Mean+epsilon), 1)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
