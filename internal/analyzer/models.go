package analyzer

import (
	"errors"
	"fmt"
)

// AnalyzerName identifies one of the six signal analyzers
type AnalyzerName string

const (
	Compression AnalyzerName = "compression"
	Noise       AnalyzerName = "noise"
	Edge        AnalyzerName = "edge"
	Lighting    AnalyzerName = "lighting"
	Color       AnalyzerName = "color"
	Texture     AnalyzerName = "texture"
)

// AnalyzerNames lists every analyzer in report order
var AnalyzerNames = []AnalyzerName{Compression, Noise, Edge, Lighting, Color, Texture}

// AnalyzerResult is the output of a single analyzer invocation
type AnalyzerResult struct {
	Inconsistency float64
	Statistics    map[string]float64
}

// Classification is the three-band verdict on the calibrated probability
type Classification int

const (
	RealPhoto Classification = iota
	PossiblyMorphed
	LikelyMorphed
)

func (c Classification) String() string {
	switch c {
	case PossiblyMorphed:
		return "Possibly Morphed"
	case LikelyMorphed:
		return "Likely Morphed"
	default:
		return "Real Photo"
	}
}

// AggregateResult is the weighted, calibrated combination of all analyzers
type AggregateResult struct {
	MorphProbability     float64
	Classification       Classification
	ComponentPercentages map[AnalyzerName]float64
}

var (
	// ErrNoRegions is returned when the image is smaller than one region
	ErrNoRegions = errors.New("image smaller than analysis region")

	// ErrNonFinite is returned when a statistic degenerates to NaN or Inf
	ErrNonFinite = errors.New("non-finite statistic")
)

// AnalyzerFailure records why an analyzer could not produce a result.
// The detector folds it into the analyzer's neutral result.
type AnalyzerFailure struct {
	Analyzer AnalyzerName
	Cause    error
}

func (f *AnalyzerFailure) Error() string {
	return fmt.Sprintf("%s analysis failed: %v", f.Analyzer, f.Cause)
}

func (f *AnalyzerFailure) Unwrap() error {
	return f.Cause
}
