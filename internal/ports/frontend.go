package ports

import (
	"context"

	"github.com/mikey/phishguard/internal/core"
)

// Predictor classifies raw email text
type Predictor interface {
	Predict(ctx context.Context, content string) (*core.PredictionResult, error)
}

// EmailAnalyzer classifies a parsed email message
type EmailAnalyzer interface {
	AnalyzeEmail(ctx context.Context, email *core.Email) (*core.PredictionResult, error)
}

// Frontend is an ingress that feeds content into the detection service
type Frontend interface {
	// Name identifies the frontend in logs
	Name() string

	// Start begins serving in the background
	Start() error

	// Stop shuts the frontend down
	Stop() error
}

// EmailFilter is a frontend that classifies whole email messages
type EmailFilter interface {
	Frontend

	// ProcessEmail classifies an email and returns the result
	ProcessEmail(ctx context.Context, email *core.Email) (*core.PredictionResult, error)
}
