package validation

import (
	"fmt"
)

// QualityThresholds defines the image sizes the forensic analyzers need
type QualityThresholds struct {
	// MinBlockSide is the smallest side that still holds one 8x8 DCT block
	MinBlockSide int
	// MinRegionSide is the smallest side for which every analyzer has
	// regions of at least 8 pixels (six regions across at min/6)
	MinRegionSide int
	// MaxTotalPixels is the largest image accepted for analysis
	MaxTotalPixels int
}

// DefaultQualityThresholds returns the default thresholds
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MinBlockSide:   8,
		MinRegionSide:  48,
		MaxTotalPixels: 40_000_000,
	}
}

// QualityValidator checks whether an image is large enough for a meaningful analysis
type QualityValidator struct {
	thresholds QualityThresholds
}

// NewQualityValidator creates a new quality validator with default thresholds
func NewQualityValidator() *QualityValidator {
	return &QualityValidator{
		thresholds: DefaultQualityThresholds(),
	}
}

// NewQualityValidatorWithThresholds creates a quality validator with custom thresholds
func NewQualityValidatorWithThresholds(thresholds QualityThresholds) *QualityValidator {
	return &QualityValidator{
		thresholds: thresholds,
	}
}

// QualityIssue represents a quality validation issue
type QualityIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"` // "error", "warning", "info"
	ActualValue float64 `json:"actual_value,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// ValidateDimensions reports size problems. Undersized images only warn,
// since the affected analyzers fall back to neutral scores. Images above
// MaxTotalPixels are an error and must not be decoded.
func (qv *QualityValidator) ValidateDimensions(width, height int) []QualityIssue {
	var issues []QualityIssue
	side := min(width, height)

	switch {
	case side < qv.thresholds.MinBlockSide:
		issues = append(issues, QualityIssue{
			Type:        "too_small",
			Message:     fmt.Sprintf("Image is %dx%d; most analyzers need at least %dpx per side and will report neutral scores", width, height, qv.thresholds.MinBlockSide),
			Severity:    "warning",
			ActualValue: float64(side),
			Threshold:   float64(qv.thresholds.MinBlockSide),
		})
	case side < qv.thresholds.MinRegionSide:
		issues = append(issues, QualityIssue{
			Type:        "low_resolution",
			Message:     fmt.Sprintf("Image is %dx%d; analysis regions are tiny and scores are unreliable", width, height),
			Severity:    "warning",
			ActualValue: float64(side),
			Threshold:   float64(qv.thresholds.MinRegionSide),
		})
	}

	if total := int64(width) * int64(height); qv.thresholds.MaxTotalPixels > 0 && total > int64(qv.thresholds.MaxTotalPixels) {
		issues = append(issues, QualityIssue{
			Type:        "too_many_pixels",
			Message:     fmt.Sprintf("Image is %dx%d (%d pixels); the limit is %d", width, height, total, qv.thresholds.MaxTotalPixels),
			Severity:    "error",
			ActualValue: float64(total),
			Threshold:   float64(qv.thresholds.MaxTotalPixels),
		})
	}

	return issues
}

// ConvertIssuesToMessages converts quality issues to simple messages
func (qv *QualityValidator) ConvertIssuesToMessages(issues []QualityIssue) []string {
	var messages []string
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}

// HasCriticalIssues checks if there are any critical (error severity) issues
func (qv *QualityValidator) HasCriticalIssues(issues []QualityIssue) bool {
	for _, issue := range issues {
		if issue.Severity == "error" {
			return true
		}
	}
	return false
}
