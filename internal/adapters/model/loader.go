package model

import (
	"context"
	"fmt"
	"io"

	"github.com/mikey/phishguard/internal/adapters/forest"
	"github.com/mikey/phishguard/internal/adapters/keras"
	"github.com/mikey/phishguard/internal/adapters/tfidf"
	"github.com/mikey/phishguard/internal/ports"
	"go.uber.org/zap"
)

// LoadError reports an artifact that could not be loaded at startup
type LoadError struct {
	Artifact string
	Location string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s from %s: %v", e.Artifact, e.Location, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Manifest names the four artifacts inside a store
type Manifest struct {
	Vectorizer string
	Forest     string
	Tokenizer  string
	Sequence   string
	MaxWords   int
}

// Artifacts bundles the loaded, frozen models
type Artifacts struct {
	Vectorizer *tfidf.Vectorizer
	Forest     *forest.Classifier
	Tokenizer  *keras.Tokenizer
	Sequence   *keras.LSTMModel
}

// LoadArtifacts reads and validates all four artifacts. The first failure is
// returned as a *LoadError.
func LoadArtifacts(ctx context.Context, store ports.ArtifactStore, m Manifest, logger *zap.Logger) (*Artifacts, error) {
	var a Artifacts
	steps := []struct {
		kind string
		name string
		load func(io.Reader) error
	}{
		{"vectorizer", m.Vectorizer, func(r io.Reader) (err error) {
			a.Vectorizer, err = tfidf.Load(r)
			return err
		}},
		{"forest", m.Forest, func(r io.Reader) (err error) {
			a.Forest, err = forest.Load(r)
			return err
		}},
		{"tokenizer", m.Tokenizer, func(r io.Reader) (err error) {
			a.Tokenizer, err = keras.LoadTokenizer(r, m.MaxWords)
			return err
		}},
		{"sequence model", m.Sequence, func(r io.Reader) (err error) {
			a.Sequence, err = keras.LoadLSTM(r)
			return err
		}},
	}

	for _, step := range steps {
		location := store.Location(step.name)
		if err := loadOne(ctx, store, step.name, step.load); err != nil {
			logger.Error("Failed to load model artifact",
				zap.String("artifact", step.kind),
				zap.String("location", location),
				zap.Error(err))
			return nil, &LoadError{Artifact: step.kind, Location: location, Err: err}
		}
		logger.Info("Loaded model artifact",
			zap.String("artifact", step.kind),
			zap.String("location", location))
	}

	return &a, nil
}

func loadOne(ctx context.Context, store ports.ArtifactStore, name string, load func(io.Reader) error) error {
	rc, err := store.Open(ctx, name)
	if err != nil {
		return err
	}
	defer rc.Close()
	return load(rc)
}

// NewScorers wires loaded artifacts into the two scorers
func NewScorers(a *Artifacts, maxLen int) (*LexicalScorer, *SequentialScorer, error) {
	lexical, err := NewLexicalScorer(a.Vectorizer, a.Forest)
	if err != nil {
		return nil, nil, &LoadError{Artifact: "forest", Location: "vectorizer", Err: err}
	}
	sequential, err := NewSequentialScorer(a.Tokenizer, a.Sequence, maxLen)
	if err != nil {
		return nil, nil, &LoadError{Artifact: "sequence model", Location: "tokenizer", Err: err}
	}
	return lexical, sequential, nil
}
