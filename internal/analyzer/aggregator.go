package analyzer

import (
	"math"
)

// weights are the analyzer contributions in hundredths; they sum to 100
var weights = map[AnalyzerName]int{
	Compression: 15,
	Noise:       15,
	Edge:        20,
	Lighting:    20,
	Color:       15,
	Texture:     15,
}

const (
	calibrationOffset = 0.1
	calibrationScale  = 0.7

	possiblyMorphedAt = 0.3
	likelyMorphedAt   = 0.7

	// fallbackProbability is reported when aggregation itself cannot proceed
	fallbackProbability = 0.1
)

// Weight returns the weight of the named analyzer as a fraction
func Weight(name AnalyzerName) float64 {
	return float64(weights[name]) / 100
}

type weightedAggregator struct{}

// NewAggregator returns the weighted, calibrated score aggregator
func NewAggregator() ScoreAggregator {
	return weightedAggregator{}
}

// Aggregate combines analyzer results into a calibrated verdict. A missing
// analyzer or a non-finite score yields the fixed fallback result.
func (weightedAggregator) Aggregate(results map[AnalyzerName]AnalyzerResult) AggregateResult {
	percentages := make(map[AnalyzerName]float64, len(AnalyzerNames))
	var sum float64
	for _, name := range AnalyzerNames {
		result, ok := results[name]
		if !ok || !isFinite(result.Inconsistency) {
			return fallbackResult()
		}
		score := clamp01(result.Inconsistency)
		percentages[name] = score * 100
		sum += Weight(name) * score
	}

	probability := Calibrate(sum)
	return AggregateResult{
		MorphProbability:     probability,
		Classification:       Classify(probability),
		ComponentPercentages: percentages,
	}
}

// Calibrate shifts and compresses the weighted sum so typical real photos
// land in the lower band
func Calibrate(weightedSum float64) float64 {
	return math.Max(0, math.Min(weightedSum-calibrationOffset, 1)) * calibrationScale
}

// Classify maps a probability to its band. Boundaries belong to the upper band.
func Classify(probability float64) Classification {
	switch {
	case probability >= likelyMorphedAt:
		return LikelyMorphed
	case probability >= possiblyMorphedAt:
		return PossiblyMorphed
	default:
		return RealPhoto
	}
}

func fallbackResult() AggregateResult {
	percentages := make(map[AnalyzerName]float64, len(AnalyzerNames))
	for _, name := range AnalyzerNames {
		percentages[name] = 10.0
	}
	return AggregateResult{
		MorphProbability:     fallbackProbability,
		Classification:       RealPhoto,
		ComponentPercentages: percentages,
	}
}
