package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/anime-shed/morph-inspector-go/pkg/models"
	"github.com/anime-shed/morph-inspector-go/pkg/services"
)

var (
	infoColor    = color.New(color.FgBlue).SprintFunc()
	successColor = color.New(color.FgGreen).SprintFunc()
	warningColor = color.New(color.FgYellow).SprintFunc()
	errorColor   = color.New(color.FgRed).SprintFunc()
	alertColor   = color.New(color.FgRed, color.Bold).SprintFunc()
)

// Reporter writes the results of a detect run
type Reporter interface {
	Report(items []models.BatchItem) error
}

func newReporter(format string, w io.Writer) (Reporter, error) {
	switch strings.ToLower(format) {
	case "text", "":
		return &textReporter{w: w}, nil
	case "json":
		return &jsonReporter{w: w}, nil
	case "yaml", "yml":
		return &yamlReporter{w: w}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

type batchOutput struct {
	Summary services.Summary   `json:"summary" yaml:"summary"`
	Items   []models.BatchItem `json:"items" yaml:"items"`
}

type jsonReporter struct {
	w io.Writer
}

func (r *jsonReporter) Report(items []models.BatchItem) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(batchOutput{Summary: services.Summarize(items), Items: items})
}

type yamlReporter struct {
	w io.Writer
}

func (r *yamlReporter) Report(items []models.BatchItem) error {
	// Round-trip through JSON so the YAML keys follow the JSON field names
	data, err := json.Marshal(batchOutput{Summary: services.Summarize(items), Items: items})
	if err != nil {
		return err
	}
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}

	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

type textReporter struct {
	w io.Writer
}

func (r *textReporter) Report(items []models.BatchItem) error {
	for _, item := range items {
		if item.Result == nil {
			msg := item.Error
			if msg == "" {
				msg = "not analyzed"
			}
			if _, err := fmt.Fprintf(r.w, "%s %s\n  %s\n", errorColor("✗"), item.Location, msg); err != nil {
				return err
			}
			continue
		}
		if err := r.reportOne(item.Location, item.Result); err != nil {
			return err
		}
	}

	summary := services.Summarize(items)
	_, err := fmt.Fprintf(r.w, "\n%s %d analyzed, %d failed, %d degraded\n",
		infoColor("Summary:"), summary.Total-summary.Failed, summary.Failed, summary.Degraded)
	return err
}

func (r *textReporter) reportOne(location string, result *models.DetectionResponse) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", predictionColor(result.Prediction)("●"), location)
	fmt.Fprintf(&b, "  Prediction:  %s (%s certainty)\n", predictionColor(result.Prediction)(result.Prediction), result.Certainty)
	fmt.Fprintf(&b, "  Morph:       %.1f%%   Real: %.1f%%\n", result.MorphPercentage, result.RealPercentage)

	scores := result.ComponentScores
	fmt.Fprintf(&b, "  Components:  compression %.1f  noise %.1f  edge %.1f\n",
		scores.CompressionArtifacts, scores.NoiseInconsistency, scores.EdgeIrregularities)
	fmt.Fprintf(&b, "               lighting %.1f  color %.1f  texture %.1f\n",
		scores.LightingInconsistency, scores.ColorInconsistency, scores.TextureIrregularities)

	if len(result.DegradedAnalyzers) > 0 {
		fmt.Fprintf(&b, "  %s %s\n", warningColor("Degraded:"), strings.Join(result.DegradedAnalyzers, ", "))
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(&b, "  %s %s\n", warningColor("Warning:"), warning)
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}

func predictionColor(prediction string) func(a ...interface{}) string {
	switch prediction {
	case models.PredictionLikelyMorphed:
		return alertColor
	case models.PredictionPossiblyMorphed:
		return warningColor
	default:
		return successColor
	}
}
