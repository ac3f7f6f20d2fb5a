package filter

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/ports"
	"github.com/mikey/phishguard/internal/utils"
	"go.uber.org/zap"
)

const previewSize = 500

// CliFilter classifies a single message and prints a report
type CliFilter struct {
	analyzer ports.EmailAnalyzer
	logger   *zap.Logger
	out      io.Writer
	verbose  bool
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(analyzer ports.EmailAnalyzer, logger *zap.Logger, out io.Writer, verbose bool) *CliFilter {
	return &CliFilter{
		analyzer: analyzer,
		logger:   logger,
		out:      out,
		verbose:  verbose,
	}
}

// Name identifies the filter in logs
func (f *CliFilter) Name() string {
	return "cli"
}

// ProcessEmail classifies an email and writes the report
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.PredictionResult, error) {
	f.logger.Debug("Processing email", zap.String("sender", email.From))

	fmt.Fprintf(f.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(f.out, "From: %s\n", email.From)
	fmt.Fprintf(f.out, "To: %s\n", strings.Join(email.To, ", "))
	fmt.Fprintf(f.out, "Subject: %s\n", email.Subject)
	fmt.Fprintf(f.out, "Body length: %d bytes\n", len(email.Body))

	if f.verbose {
		preview := email.Body
		if len(preview) > previewSize {
			preview = utils.NewTextProcessor(f.logger).TruncateText(preview, previewSize) + "..."
		}
		fmt.Fprintf(f.out, "\nBody preview:\n%s\n", preview)
	}

	fmt.Fprintf(f.out, "\n=== Analysis ===\n")
	result, err := f.analyzer.AnalyzeEmail(ctx, email)
	if err != nil {
		f.logger.Error("Failed to analyze email", zap.Error(err))
		fmt.Fprintf(f.out, "Error: %v\n", err)
		return nil, err
	}

	fmt.Fprintf(f.out, "\n=== Results ===\n")
	fmt.Fprintf(f.out, "Prediction: %s\n", result.Prediction)
	fmt.Fprintf(f.out, "Confidence: %.4f\n", result.Confidence)
	if result.Source != core.SourceWhitelist {
		fmt.Fprintf(f.out, "Lexical model: %.4f\n", result.LexicalProb)
		fmt.Fprintf(f.out, "Sequential model: %.4f\n", result.SequentialProb)
	}
	fmt.Fprintf(f.out, "Source: %s\n", result.Source)
	fmt.Fprintf(f.out, "Scan ID: %s\n", result.ScanID)
	fmt.Fprintf(f.out, "Scan time: %s\n", result.ScanTime)
	fmt.Fprintf(f.out, "Processing time: %v\n", result.Duration)

	return result, nil
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
