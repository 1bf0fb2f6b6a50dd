package models

import "time"

// Prediction labels reported to callers
const (
	PredictionRealPhoto       = "Real Photo"
	PredictionPossiblyMorphed = "Possibly Morphed"
	PredictionLikelyMorphed   = "Likely Morphed"
)

// Certainty labels derived from the distance of the morph probability to 0.5
const (
	CertaintyHigh   = "High"
	CertaintyMedium = "Medium"
	CertaintyLow    = "Low"
)

// ForensicsReport is the externally visible result of one morph detection.
// It is a pure function of the decoded pixels: two runs over the same bytes
// produce identical reports.
type ForensicsReport struct {
	Success          bool            `json:"success"`
	Prediction       string          `json:"prediction"`
	MorphProbability float64         `json:"morph_probability"`
	MorphPercentage  float64         `json:"morph_percentage"`
	RealPercentage   float64         `json:"real_percentage"`
	Certainty        string          `json:"certainty"`
	ComponentScores  ComponentScores `json:"component_scores"`

	// DetailedAnalysis maps analyzer name to its inconsistency and summary statistics
	DetailedAnalysis map[string]map[string]float64 `json:"detailed_analysis"`

	ModelUsed string `json:"model_used"`
	Method    string `json:"method"`

	// DegradedAnalyzers lists analyzers that failed and were replaced by their neutral result
	DegradedAnalyzers []string `json:"degraded_analyzers,omitempty"`
}

// ComponentScores holds the per-analyzer scores as percentages in [0,100].
// They are not recalibrated; only the final verdict is.
type ComponentScores struct {
	CompressionArtifacts  float64 `json:"compression_artifacts"`
	NoiseInconsistency    float64 `json:"noise_inconsistency"`
	EdgeIrregularities    float64 `json:"edge_irregularities"`
	LightingInconsistency float64 `json:"lighting_inconsistency"`
	ColorInconsistency    float64 `json:"color_inconsistency"`
	TextureIrregularities float64 `json:"texture_irregularities"`
}

// ImageMetadata contains metadata about a decoded image
type ImageMetadata struct {
	ContentType   string `json:"content_type,omitempty"`
	ContentLength int64  `json:"content_length"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
}

// DetectionResponse wraps a ForensicsReport with per-request data that is
// deliberately kept out of the deterministic report.
type DetectionResponse struct {
	ForensicsReport

	AnalysisID        string        `json:"analysis_id"`
	Source            string        `json:"source"`
	Timestamp         time.Time     `json:"timestamp"`
	ProcessingTimeSec float64       `json:"processing_time_sec"`
	ImageMetadata     ImageMetadata `json:"image_metadata"`
	Warnings          []string      `json:"warnings,omitempty"`
}
