// Package keras reproduces inference for the Keras text pipeline: the
// Tokenizer (from Tokenizer.to_json), pad_sequences and an
// Embedding -> LSTM -> Dense classifier.
package keras

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const defaultFilters = "!\"#$%&()*+,-./:;<=>?@[\\]^_`{|}~\t\n"

type tokenizerConfig struct {
	NumWords  json.RawMessage `json:"num_words"`
	Filters   *string         `json:"filters"`
	Lower     *bool           `json:"lower"`
	Split     *string         `json:"split"`
	CharLevel bool            `json:"char_level"`
	OOVToken  *string         `json:"oov_token"`
	WordIndex json.RawMessage `json:"word_index"`
}

type tokenizerJSON struct {
	ClassName string          `json:"class_name"`
	Config    json.RawMessage `json:"config"`
}

// Tokenizer maps text to vocabulary ids. It is immutable after loading.
type Tokenizer struct {
	numWords  int
	filters   map[rune]struct{}
	lower     bool
	split     string
	charLevel bool
	oovIndex  int
	hasOOV    bool
	wordIndex map[string]int
}

// LoadTokenizer decodes the output of Tokenizer.to_json(). When the artifact
// has no num_words key, defaultNumWords caps the vocabulary (0 means no cap).
// An explicit "num_words": null is uncapped, as in Keras.
func LoadTokenizer(r io.Reader, defaultNumWords int) (*Tokenizer, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokenizer: %w", err)
	}

	var wrapper tokenizerJSON
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to decode tokenizer: %w", err)
	}
	body := raw
	if wrapper.ClassName != "" {
		if wrapper.ClassName != "Tokenizer" {
			return nil, fmt.Errorf("unexpected class %q, want Tokenizer", wrapper.ClassName)
		}
		body = wrapper.Config
	}

	var cfg tokenizerConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode tokenizer config: %w", err)
	}

	wordIndex, err := decodeWordIndex(cfg.WordIndex)
	if err != nil {
		return nil, err
	}

	t := &Tokenizer{
		numWords:  defaultNumWords,
		lower:     true,
		split:     " ",
		charLevel: cfg.CharLevel,
		wordIndex: wordIndex,
		filters:   make(map[rune]struct{}),
	}
	if t.numWords, err = decodeNumWords(cfg.NumWords, defaultNumWords); err != nil {
		return nil, err
	}
	if cfg.Lower != nil {
		t.lower = *cfg.Lower
	}
	if cfg.Split != nil {
		if *cfg.Split == "" {
			return nil, fmt.Errorf("tokenizer split must not be empty")
		}
		t.split = *cfg.Split
	}
	filters := defaultFilters
	if cfg.Filters != nil {
		filters = *cfg.Filters
	}
	for _, r := range filters {
		t.filters[r] = struct{}{}
	}
	if cfg.OOVToken != nil {
		t.oovIndex, t.hasOOV = wordIndex[*cfg.OOVToken]
	}
	return t, nil
}

func decodeNumWords(raw json.RawMessage, def int) (int, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0:
		return def, nil
	case string(raw) == "null":
		return 0, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("failed to decode num_words: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("num_words must not be negative, got %d", n)
	}
	return n, nil
}

// word_index is itself JSON-encoded inside to_json() output
func decodeWordIndex(raw json.RawMessage) (map[string]int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("tokenizer has no word_index")
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("failed to decode word_index: %w", err)
		}
		raw = []byte(inner)
	}
	var index map[string]int
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, fmt.Errorf("failed to decode word_index: %w", err)
	}
	if len(index) == 0 {
		return nil, fmt.Errorf("tokenizer has an empty word_index")
	}
	return index, nil
}

// NumWords is the vocabulary cap, 0 when uncapped
func (t *Tokenizer) NumWords() int {
	return t.numWords
}

// WordSequence splits text the way text_to_word_sequence does
func (t *Tokenizer) WordSequence(text string) []string {
	if t.lower {
		text = cases.Lower(language.Und).String(text)
	}
	if t.charLevel {
		seq := make([]string, 0, len(text))
		for _, r := range text {
			seq = append(seq, string(r))
		}
		return seq
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if _, ok := t.filters[r]; ok {
			b.WriteString(t.split)
			continue
		}
		b.WriteRune(r)
	}

	parts := strings.Split(b.String(), t.split)
	seq := parts[:0]
	for _, p := range parts {
		if p != "" {
			seq = append(seq, p)
		}
	}
	return seq
}

// TextToSequence maps text to ids. Words at or beyond the vocabulary cap and
// unknown words become the OOV id, or are dropped when there is no OOV token.
func (t *Tokenizer) TextToSequence(text string) []int {
	words := t.WordSequence(text)
	seq := make([]int, 0, len(words))
	for _, w := range words {
		i, known := t.wordIndex[w]
		switch {
		case known && t.numWords > 0 && i >= t.numWords:
			if t.hasOOV {
				seq = append(seq, t.oovIndex)
			}
		case known:
			seq = append(seq, i)
		case t.hasOOV:
			seq = append(seq, t.oovIndex)
		}
	}
	return seq
}

// PadSequence fixes seq to maxLen ids. Long sequences keep their last maxLen
// ids; short ones are left-padded with value.
func PadSequence(seq []int, maxLen, value int) []int {
	out := make([]int, maxLen)
	if len(seq) >= maxLen {
		copy(out, seq[len(seq)-maxLen:])
		return out
	}
	pad := maxLen - len(seq)
	for i := 0; i < pad; i++ {
		out[i] = value
	}
	copy(out[pad:], seq)
	return out
}
