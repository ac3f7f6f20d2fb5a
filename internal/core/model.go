package core

import (
	"fmt"
	"time"
)

// Verdict is the categorical outcome of a scan
type Verdict string

const (
	VerdictPhishing   Verdict = "phishing"
	VerdictLegitimate Verdict = "legitimate"
)

// Email represents an email message received by one of the frontends
type Email struct {
	From    string
	To      []string
	Subject string
	Body    string
	Headers map[string][]string
}

// Content returns the text handed to the detector. The subject is emitted as a
// "Subject: " preamble line so the normalizer can separate it from the body.
func (e *Email) Content() string {
	if e.Subject == "" {
		return e.Body
	}
	return "Subject: " + e.Subject + "\n" + e.Body
}

// Result sources
const (
	SourceEnsemble  = "ensemble"
	SourceCache     = "cache"
	SourceWhitelist = "whitelist"
)

// PredictionResult represents the result of a phishing scan
type PredictionResult struct {
	Prediction Verdict `json:"prediction"`
	Confidence float64 `json:"confidence"`
	ScanID     string  `json:"scan_id"`
	ScanTime   string  `json:"scan_time"`

	LexicalProb    float64       `json:"-"`
	SequentialProb float64       `json:"-"`
	Source         string        `json:"-"`
	Duration       time.Duration `json:"-"`
}

// IsPhishing reports whether the verdict is phishing
func (r *PredictionResult) IsPhishing() bool {
	return r.Prediction == VerdictPhishing
}

// CacheEntry holds the model outputs for one normalized text
type CacheEntry struct {
	Key            string
	LexicalProb    float64
	SequentialProb float64
	LastSeen       time.Time
	ExpiresAt      time.Time
}

const scanTimeLayout = "2006-01-02T15:04:05Z"

// NewScanID builds the second-resolution scan identifier. Two scans within the
// same second share an id.
func NewScanID(t time.Time) string {
	return fmt.Sprintf("scan-%d", t.Unix())
}

// FormatScanTime renders t as ISO-8601 UTC with second resolution
func FormatScanTime(t time.Time) string {
	return t.UTC().Format(scanTimeLayout)
}
