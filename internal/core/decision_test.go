package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		lexical    float64
		sequential float64
		verdict    Verdict
		confidence float64
	}{
		{"both high", 0.95, 0.95, VerdictPhishing, 0.95},
		{"exactly threshold is legitimate", 0.9, 0.9, VerdictLegitimate, 0.9},
		{"disagreement averages", 1.0, 0.0, VerdictLegitimate, 0.5},
		{"both zero", 0, 0, VerdictLegitimate, 0},
		{"both one", 1, 1, VerdictPhishing, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, confidence := Decide(tt.lexical, tt.sequential)
			assert.Equal(t, tt.verdict, verdict)
			assert.Equal(t, tt.confidence, confidence)
		})
	}
}

func TestScanIdentifiers(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 999, time.FixedZone("CET", 3600))

	assert.Equal(t, "scan-1709989507", NewScanID(ts))
	assert.Equal(t, "2024-03-09T13:05:07Z", FormatScanTime(ts))
}
