package model

import (
	"context"
	"fmt"

	"github.com/mikey/phishguard/internal/adapters/forest"
	"github.com/mikey/phishguard/internal/adapters/keras"
	"github.com/mikey/phishguard/internal/adapters/tfidf"
)

// LexicalScorer runs the TF-IDF + random forest path
type LexicalScorer struct {
	vectorizer *tfidf.Vectorizer
	forest     *forest.Classifier
}

// NewLexicalScorer pairs a vectorizer with the forest fitted on its output
func NewLexicalScorer(vectorizer *tfidf.Vectorizer, classifier *forest.Classifier) (*LexicalScorer, error) {
	if n := classifier.NFeatures(); n > 0 && n != vectorizer.Dim() {
		return nil, fmt.Errorf("forest expects %d features but vectorizer produces %d", n, vectorizer.Dim())
	}
	return &LexicalScorer{
		vectorizer: vectorizer,
		forest:     classifier,
	}, nil
}

// Score returns the forest's phishing probability
func (s *LexicalScorer) Score(ctx context.Context, cleaned string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	features := s.vectorizer.Transform(cleaned)
	return s.forest.PositiveProba(features, features.Dim)
}

// SequentialScorer runs the tokenizer + LSTM path
type SequentialScorer struct {
	tokenizer *keras.Tokenizer
	model     *keras.LSTMModel
	maxLen    int
}

// NewSequentialScorer pairs a tokenizer with the sequence model
func NewSequentialScorer(tokenizer *keras.Tokenizer, model *keras.LSTMModel, maxLen int) (*SequentialScorer, error) {
	if maxLen <= 0 {
		return nil, fmt.Errorf("sequence length must be positive, got %d", maxLen)
	}
	if n := model.InputLength(); n > 0 && n != maxLen {
		return nil, fmt.Errorf("sequence model expects length %d, configured %d", n, maxLen)
	}
	if n := tokenizer.NumWords(); n > model.VocabSize() {
		return nil, fmt.Errorf("tokenizer allows %d words but embedding has %d rows", n, model.VocabSize())
	}
	return &SequentialScorer{
		tokenizer: tokenizer,
		model:     model,
		maxLen:    maxLen,
	}, nil
}

// Score returns the sequence model's phishing probability
func (s *SequentialScorer) Score(ctx context.Context, cleaned string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	seq := keras.PadSequence(s.tokenizer.TextToSequence(cleaned), s.maxLen, 0)
	return s.model.Predict(seq)
}
