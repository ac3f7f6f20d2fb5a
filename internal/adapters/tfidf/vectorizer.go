// Package tfidf applies a fitted TF-IDF vocabulary exported from scikit-learn's
// TfidfVectorizer.
package tfidf

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// defaultTokenPattern matches sklearn's default (?u)\b\w\w+\b
const defaultTokenPattern = `[\p{L}\p{N}_]{2,}`

// Artifact is the JSON export of a fitted vectorizer
type Artifact struct {
	Vocabulary   map[string]int `json:"vocabulary"`
	IDF          []float64      `json:"idf"`
	NgramRange   [2]int         `json:"ngram_range"`
	Lowercase    *bool          `json:"lowercase"`
	SublinearTF  bool           `json:"sublinear_tf"`
	Binary       bool           `json:"binary"`
	Norm         *string        `json:"norm"`
	TokenPattern string         `json:"token_pattern"`
	StopWords    []string       `json:"stop_words"`
}

// SparseVector is a row of the document-term matrix, indices ascending
type SparseVector struct {
	Dim     int
	Indices []int
	Values  []float64
}

// At returns the value at feature i, zero when absent
func (v SparseVector) At(i int) float64 {
	k := sort.SearchInts(v.Indices, i)
	if k < len(v.Indices) && v.Indices[k] == i {
		return v.Values[k]
	}
	return 0
}

// Vectorizer maps text to TF-IDF features. It is immutable after Load.
type Vectorizer struct {
	vocabulary  map[string]int
	idf         []float64
	minN, maxN  int
	lowercase   bool
	sublinearTF bool
	binary      bool
	norm        string
	token       *regexp.Regexp
	tokenGroup  int
	stopWords   map[string]struct{}
}

// Load decodes a vectorizer artifact
func Load(r io.Reader) (*Vectorizer, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode vectorizer: %w", err)
	}
	return New(a)
}

// New validates an artifact and builds a Vectorizer
func New(a Artifact) (*Vectorizer, error) {
	if len(a.Vocabulary) == 0 {
		return nil, fmt.Errorf("vectorizer has an empty vocabulary")
	}
	dim := len(a.Vocabulary)
	for term, idx := range a.Vocabulary {
		if idx < 0 || idx >= dim {
			return nil, fmt.Errorf("vocabulary index %d for %q out of range [0,%d)", idx, term, dim)
		}
	}
	if a.IDF != nil && len(a.IDF) != dim {
		return nil, fmt.Errorf("idf has %d weights for %d terms", len(a.IDF), dim)
	}

	minN, maxN := a.NgramRange[0], a.NgramRange[1]
	if minN == 0 && maxN == 0 {
		minN, maxN = 1, 1
	}
	if minN < 1 || maxN < minN {
		return nil, fmt.Errorf("invalid ngram range (%d, %d)", minN, maxN)
	}

	token, group := regexp.MustCompile(defaultTokenPattern), 0
	if a.TokenPattern != "" {
		var err error
		if token, group, err = compileTokenPattern(a.TokenPattern); err != nil {
			return nil, err
		}
	}

	norm := "l2"
	if a.Norm != nil {
		norm = *a.Norm
	}
	switch norm {
	case "l1", "l2", "":
	default:
		return nil, fmt.Errorf("unsupported norm %q", norm)
	}

	lowercase := true
	if a.Lowercase != nil {
		lowercase = *a.Lowercase
	}

	stop := make(map[string]struct{}, len(a.StopWords))
	for _, w := range a.StopWords {
		stop[w] = struct{}{}
	}

	return &Vectorizer{
		vocabulary:  a.Vocabulary,
		idf:         a.IDF,
		minN:        minN,
		maxN:        maxN,
		lowercase:   lowercase,
		sublinearTF: a.SublinearTF,
		binary:      a.Binary,
		norm:        norm,
		token:       token,
		tokenGroup:  group,
		stopWords:   stop,
	}, nil
}

// Dim is the number of features
func (v *Vectorizer) Dim() int {
	return len(v.vocabulary)
}

// Transform computes the TF-IDF row for one document
func (v *Vectorizer) Transform(doc string) SparseVector {
	counts := make(map[int]float64)
	for _, term := range v.terms(doc) {
		if idx, ok := v.vocabulary[term]; ok {
			counts[idx]++
		}
	}

	out := SparseVector{
		Dim:     v.Dim(),
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		out.Indices = append(out.Indices, idx)
	}
	sort.Ints(out.Indices)

	for _, idx := range out.Indices {
		tf := counts[idx]
		switch {
		case v.binary:
			tf = 1
		case v.sublinearTF:
			tf = 1 + math.Log(tf)
		}
		if v.idf != nil {
			tf *= v.idf[idx]
		}
		out.Values = append(out.Values, tf)
	}

	normalize(out.Values, v.norm)
	return out
}

func (v *Vectorizer) terms(doc string) []string {
	if v.lowercase {
		doc = cases.Lower(language.Und).String(doc)
	}
	var tokens []string
	if v.tokenGroup == 0 {
		tokens = v.token.FindAllString(doc, -1)
	} else {
		for _, m := range v.token.FindAllStringSubmatch(doc, -1) {
			tokens = append(tokens, m[v.tokenGroup])
		}
	}
	if len(v.stopWords) > 0 {
		kept := tokens[:0]
		for _, t := range tokens {
			if _, stop := v.stopWords[t]; !stop {
				kept = append(kept, t)
			}
		}
		tokens = kept
	}

	if v.maxN == 1 {
		return tokens
	}

	var terms []string
	if v.minN == 1 {
		terms = append(terms, tokens...)
	}
	start := v.minN
	if start == 1 {
		start = 2
	}
	for n := start; n <= v.maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}

func normalize(values []float64, norm string) {
	var total float64
	switch norm {
	case "l2":
		for _, x := range values {
			total += x * x
		}
		total = math.Sqrt(total)
	case "l1":
		for _, x := range values {
			total += math.Abs(x)
		}
	default:
		return
	}
	if total == 0 {
		return
	}
	for i := range values {
		values[i] /= total
	}
}
