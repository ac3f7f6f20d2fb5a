package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ServiceOptions tunes the detection pipeline
type ServiceOptions struct {
	CacheEnabled   bool
	CacheTTL       time.Duration
	MaxContentSize int
}

// PhishingDetectionService is the core service for phishing detection
type PhishingDetectionService struct {
	lexical       LexicalScorer
	sequential    SequentialScorer
	cache         CacheRepository
	allowlist     SenderAllowlist
	textProcessor TextSanitizer
	logger        *zap.Logger
	opts          ServiceOptions
	now           func() time.Time
}

// NewPhishingDetectionService creates a new phishing detection service.
// cache, allowlist and textProcessor may be nil.
func NewPhishingDetectionService(
	lexical LexicalScorer,
	sequential SequentialScorer,
	cache CacheRepository,
	allowlist SenderAllowlist,
	textProcessor TextSanitizer,
	logger *zap.Logger,
	opts ServiceOptions,
) *PhishingDetectionService {
	if cache == nil {
		opts.CacheEnabled = false
	}
	return &PhishingDetectionService{
		lexical:       lexical,
		sequential:    sequential,
		cache:         cache,
		allowlist:     allowlist,
		textProcessor: textProcessor,
		logger:        logger,
		opts:          opts,
		now:           time.Now,
	}
}

// CacheKey derives the cache key for a cleaned text
func CacheKey(cleaned string) string {
	sum := sha256.Sum256([]byte(cleaned))
	return hex.EncodeToString(sum[:])
}

// Predict classifies raw email text
func (s *PhishingDetectionService) Predict(ctx context.Context, content string) (*PredictionResult, error) {
	start := s.now()

	text := content
	if s.textProcessor != nil {
		text = s.textProcessor.ProcessText(text, s.opts.MaxContentSize)
	}
	cleaned := Normalize(text)

	s.logger.Debug("Normalized email content",
		zap.Int("raw_length", len(content)),
		zap.Int("cleaned_length", len(cleaned)))

	lexicalProb, sequentialProb, source, err := s.score(ctx, cleaned)
	if err != nil {
		return nil, err
	}

	verdict, confidence := Decide(lexicalProb, sequentialProb)
	finished := s.now()

	s.logger.Info("Scan complete",
		zap.Float64("lexical_prob", lexicalProb),
		zap.Float64("sequential_prob", sequentialProb),
		zap.Float64("confidence", confidence),
		zap.String("prediction", string(verdict)),
		zap.String("source", source))

	return &PredictionResult{
		Prediction:     verdict,
		Confidence:     confidence,
		ScanID:         NewScanID(finished),
		ScanTime:       FormatScanTime(finished),
		LexicalProb:    lexicalProb,
		SequentialProb: sequentialProb,
		Source:         source,
		Duration:       finished.Sub(start),
	}, nil
}

// AnalyzeEmail classifies a parsed email, skipping whitelisted senders
func (s *PhishingDetectionService) AnalyzeEmail(ctx context.Context, email *Email) (*PredictionResult, error) {
	if s.allowlist != nil && s.allowlist.IsWhitelisted(email.From) {
		s.logger.Info("Skipping phishing check for whitelisted domain",
			zap.String("sender", email.From),
			zap.String("action", "whitelist_bypass"))

		now := s.now()
		return &PredictionResult{
			Prediction: VerdictLegitimate,
			Confidence: 0,
			ScanID:     NewScanID(now),
			ScanTime:   FormatScanTime(now),
			Source:     SourceWhitelist,
		}, nil
	}

	return s.Predict(ctx, email.Content())
}

func (s *PhishingDetectionService) score(ctx context.Context, cleaned string) (float64, float64, string, error) {
	var key string
	if s.opts.CacheEnabled {
		key = CacheKey(cleaned)
		entry, err := s.cache.Get(ctx, key)
		if err == nil {
			s.logger.Debug("Cache hit for content", zap.String("key", key))
			return entry.LexicalProb, entry.SequentialProb, SourceCache, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("Failed to read cache", zap.Error(err))
		}
	}

	var lexicalProb, sequentialProb float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.lexical.Score(gctx, cleaned)
		if err != nil {
			return fmt.Errorf("lexical model: %w", err)
		}
		lexicalProb = p
		return nil
	})
	g.Go(func() error {
		p, err := s.sequential.Score(gctx, cleaned)
		if err != nil {
			return fmt.Errorf("sequential model: %w", err)
		}
		sequentialProb = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return 0, 0, "", err
	}

	if s.opts.CacheEnabled {
		now := s.now()
		entry := &CacheEntry{
			Key:            key,
			LexicalProb:    lexicalProb,
			SequentialProb: sequentialProb,
			LastSeen:       now,
			ExpiresAt:      now.Add(s.opts.CacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	return lexicalProb, sequentialProb, SourceEnsemble, nil
}
