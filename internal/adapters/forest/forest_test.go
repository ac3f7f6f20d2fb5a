package forest

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two stumps over three features. Tree 0 splits on feature 0, tree 1 on feature 2.
const stumps = `{
	"n_features": 3,
	"classes": [0, 1],
	"positive_class": 1,
	"trees": [
		{
			"children_left": [1, -1, -1],
			"children_right": [2, -1, -1],
			"feature": [0, -2, -2],
			"threshold": [0.5, -2, -2],
			"value": [[10, 10], [9, 1], [1, 9]]
		},
		{
			"children_left": [1, -1, -1],
			"children_right": [2, -1, -1],
			"feature": [2, -2, -2],
			"threshold": [0.25, -2, -2],
			"value": [[0.5, 0.5], [0.8, 0.2], [0.0, 1.0]]
		}
	]
}`

func TestPredictProba(t *testing.T) {
	c, err := Load(strings.NewReader(stumps))
	require.NoError(t, err)
	assert.Equal(t, 3, c.NFeatures())

	tests := []struct {
		name string
		x    Dense
		want float64
	}{
		{"both left", Dense{0, 0, 0}, (0.1 + 0.2) / 2},
		{"both right", Dense{1, 0, 1}, (0.9 + 1.0) / 2},
		{"threshold goes left", Dense{0.5, 0, 0.25}, (0.1 + 0.2) / 2},
		{"mixed", Dense{0.9, 0, 0.1}, (0.9 + 0.2) / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := c.PositiveProba(tt.x, len(tt.x))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, p, 1e-12)

			proba, err := c.PredictProba(tt.x, len(tt.x))
			require.NoError(t, err)
			assert.InDelta(t, 1.0, proba[0]+proba[1], 1e-12)
		})
	}
}

func TestPositiveClassByLabel(t *testing.T) {
	artifact := strings.Replace(stumps, `"classes": [0, 1],`, `"classes": [1, 0],`, 1)
	c, err := Load(strings.NewReader(artifact))
	require.NoError(t, err)

	p, err := c.PositiveProba(Dense{0, 0, 0}, 3)
	require.NoError(t, err)
	assert.InDelta(t, (0.9+0.8)/2, p, 1e-12)
}

func TestPredictProbaRejectsWrongWidth(t *testing.T) {
	c, err := Load(strings.NewReader(stumps))
	require.NoError(t, err)

	_, err = c.PredictProba(Dense{0, 0}, 2)
	assert.ErrorIs(t, err, ErrFeatureIndex)
}

func TestNewRejectsBadArtifacts(t *testing.T) {
	good := TreeArtifact{
		ChildrenLeft:  []int{-1},
		ChildrenRight: []int{-1},
		Feature:       []int{-2},
		Threshold:     []float64{-2},
		Value:         [][]float64{{1, 1}},
	}
	tests := []struct {
		name string
		in   Artifact
	}{
		{"no trees", Artifact{Classes: rawClasses("0", "1")}},
		{"one class", Artifact{Classes: rawClasses("0"), Trees: []TreeArtifact{good}}},
		{"unknown positive", Artifact{Classes: rawClasses("0", "1"), PositiveClass: []byte("7"), Trees: []TreeArtifact{good}}},
		{"ragged arrays", Artifact{Classes: rawClasses("0", "1"), Trees: []TreeArtifact{{
			ChildrenLeft: []int{-1}, ChildrenRight: []int{-1, -1}, Feature: []int{-2}, Threshold: []float64{0}, Value: [][]float64{{1, 0}},
		}}}},
		{"feature beyond width", Artifact{NFeatures: 1, Classes: rawClasses("0", "1"), Trees: []TreeArtifact{{
			ChildrenLeft: []int{1, -1, -1}, ChildrenRight: []int{2, -1, -1}, Feature: []int{4, -2, -2},
			Threshold: []float64{0, 0, 0}, Value: [][]float64{{1, 1}, {1, 0}, {0, 1}},
		}}}},
		{"backwards child", Artifact{Classes: rawClasses("0", "1"), Trees: []TreeArtifact{{
			ChildrenLeft: []int{0, -1}, ChildrenRight: []int{1, -1}, Feature: []int{0, -2},
			Threshold: []float64{0, 0}, Value: [][]float64{{1, 1}, {1, 0}},
		}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.in)
			assert.Error(t, err)
		})
	}
}

func rawClasses(labels ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(labels))
	for i, l := range labels {
		out[i] = json.RawMessage(l)
	}
	return out
}
