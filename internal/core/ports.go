package core

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by a CacheRepository when no live entry exists
var ErrCacheMiss = errors.New("cache entry not found")

// Scorer produces the positive-class probability for a cleaned text.
// Implementations only read frozen model state and must be safe for concurrent use.
type Scorer interface {
	Score(ctx context.Context, cleaned string) (float64, error)
}

// LexicalScorer scores TF-IDF features with the tree ensemble
type LexicalScorer interface {
	Scorer
}

// SequentialScorer scores token sequences with the recurrent model
type SequentialScorer interface {
	Scorer
}

// CacheRepository defines the interface for caching model outputs
type CacheRepository interface {
	// Get retrieves a live entry, or ErrCacheMiss
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// SenderAllowlist decides whether a sender skips scanning
type SenderAllowlist interface {
	IsWhitelisted(from string) bool
}

// TextSanitizer prepares raw input before normalization
type TextSanitizer interface {
	ProcessText(text string, maxSize int) string
}
