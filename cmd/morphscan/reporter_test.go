package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/anime-shed/morph-inspector-go/pkg/models"
)

func sampleItems() []models.BatchItem {
	return []models.BatchItem{
		{
			Location: "a.jpg",
			Result: &models.DetectionResponse{ForensicsReport: models.ForensicsReport{
				Success:          true,
				Prediction:       models.PredictionPossiblyMorphed,
				MorphProbability: 0.333,
				MorphPercentage:  33.3,
				RealPercentage:   66.7,
				Certainty:        models.CertaintyMedium,
				ComponentScores:  models.ComponentScores{LightingInconsistency: 80.5},
				DegradedAnalyzers: []string{
					"texture",
				},
			}},
		},
		{Location: "missing.jpg", Error: "not_found: image not found"},
	}
}

func TestNewReporter(t *testing.T) {
	for _, format := range []string{"text", "json", "yaml", "YAML", ""} {
		_, err := newReporter(format, &bytes.Buffer{})
		assert.NoError(t, err, format)
	}
	_, err := newReporter("xml", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&jsonReporter{w: &buf}).Report(sampleItems()))

	var out batchOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, 2, out.Summary.Total)
	assert.Equal(t, 1, out.Summary.Failed)
	assert.Equal(t, 0.333, out.Items[0].Result.MorphProbability)
}

func TestYAMLReporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&yamlReporter{w: &buf}).Report(sampleItems()))

	var out map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Contains(t, buf.String(), "morph_probability: 0.333")
	assert.Contains(t, buf.String(), "location: missing.jpg")
	assert.Contains(t, out, "summary")
}

func TestTextReporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&textReporter{w: &buf}).Report(sampleItems()))

	out := buf.String()
	assert.Contains(t, out, "a.jpg")
	assert.Contains(t, out, "Possibly Morphed (Medium certainty)")
	assert.Contains(t, out, "lighting 80.5")
	assert.Contains(t, out, "texture")
	assert.Contains(t, out, "not_found: image not found")
	assert.Contains(t, out, "1 analyzed, 1 failed, 1 degraded")
}
