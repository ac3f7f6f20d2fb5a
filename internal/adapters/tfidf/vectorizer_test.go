package tfidf

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleArtifact = `{
	"vocabulary": {"account": 0, "verify": 1, "your": 2, "verify your": 3},
	"idf": [1.5, 2.0, 1.0, 3.0],
	"ngram_range": [1, 2],
	"sublinear_tf": false,
	"norm": "l2"
}`

func TestLoadAndTransform(t *testing.T) {
	v, err := Load(strings.NewReader(sampleArtifact))
	require.NoError(t, err)
	assert.Equal(t, 4, v.Dim())

	row := v.Transform("Verify your account, verify now a")

	// verify:2*2.0, your:1*1.0, account:1*1.5, "verify your":1*3.0
	raw := map[int]float64{0: 1.5, 1: 4.0, 2: 1.0, 3: 3.0}
	var norm float64
	for _, x := range raw {
		norm += x * x
	}
	norm = math.Sqrt(norm)

	assert.Equal(t, []int{0, 1, 2, 3}, row.Indices)
	for idx, x := range raw {
		assert.InDelta(t, x/norm, row.At(idx), 1e-12)
	}
	assert.Zero(t, row.At(42))
}

func TestTransformIgnoresShortAndUnknownTokens(t *testing.T) {
	v, err := Load(strings.NewReader(sampleArtifact))
	require.NoError(t, err)

	row := v.Transform("a b c zebra")
	assert.Empty(t, row.Indices)
	assert.Equal(t, 4, row.Dim)
}

func TestSublinearAndNoNorm(t *testing.T) {
	none := ""
	v, err := New(Artifact{
		Vocabulary:  map[string]int{"click": 0},
		IDF:         []float64{2},
		SublinearTF: true,
		Norm:        &none,
	})
	require.NoError(t, err)

	row := v.Transform("click click click")
	assert.InDelta(t, (1+math.Log(3))*2, row.At(0), 1e-12)
}

func TestStopWordsAndBinary(t *testing.T) {
	none := ""
	v, err := New(Artifact{
		Vocabulary: map[string]int{"free": 0, "the": 1},
		Binary:     true,
		Norm:       &none,
		StopWords:  []string{"the"},
	})
	require.NoError(t, err)

	row := v.Transform("the free free free")
	assert.Equal(t, 1.0, row.At(0))
	assert.Zero(t, row.At(1))
}

func TestNewRejectsBadArtifacts(t *testing.T) {
	tests := []struct {
		name string
		in   Artifact
	}{
		{"empty vocabulary", Artifact{}},
		{"index out of range", Artifact{Vocabulary: map[string]int{"a": 3}}},
		{"idf length", Artifact{Vocabulary: map[string]int{"ab": 0}, IDF: []float64{1, 2}}},
		{"ngram range", Artifact{Vocabulary: map[string]int{"ab": 0}, NgramRange: [2]int{2, 1}}},
		{"token pattern", Artifact{Vocabulary: map[string]int{"ab": 0}, TokenPattern: "("}},
		{"two capture groups", Artifact{Vocabulary: map[string]int{"ab": 0}, TokenPattern: `(\w)(\w+)`}},
		{"inner word boundary", Artifact{Vocabulary: map[string]int{"ab": 0}, TokenPattern: `\w+\b-\b\w+`}},
		{"bounded word boundary", Artifact{Vocabulary: map[string]int{"ab": 0}, TokenPattern: `(?u)\b\w{3}\b`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.in)
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	_, err := Load(strings.NewReader("not json"))
	assert.Error(t, err)
}

func TestCustomTokenPatternIsUnicodeAware(t *testing.T) {
	v, err := New(Artifact{
		Vocabulary:   map[string]int{"über": 0, "straße": 1, "a": 2, "ß": 3},
		TokenPattern: `(?u)\b\w+\b`,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"über", "straße", "a", "ß"}, v.terms("Über Straße a ß"))

	row := v.Transform("Über Straße")
	assert.Equal(t, []int{0, 1}, row.Indices)
}

func TestDefaultTokenPatternSpelledOut(t *testing.T) {
	v, err := New(Artifact{
		Vocabulary:   map[string]int{"ab": 0},
		TokenPattern: `(?u)\b\w\w+\b`,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"école", "naïve", "42"}, v.terms("école x naïve 42"))
}

func TestTokenPatternCaptureGroup(t *testing.T) {
	v, err := New(Artifact{
		Vocabulary:   map[string]int{"paypal": 0},
		TokenPattern: `@(\w+)`,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"paypal", "bank"}, v.terms("login@paypal and @bank"))
}

func TestTokenPatternClassShorthands(t *testing.T) {
	v, err := New(Artifact{
		Vocabulary:   map[string]int{"x": 0},
		TokenPattern: `[\w\-]+|\d`,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"e-mail", "übung"}, v.terms("e-mail, übung!"))
}

func TestLowercaseUsesFinalSigma(t *testing.T) {
	v, err := New(Artifact{Vocabulary: map[string]int{"σοφος": 0}})
	require.NoError(t, err)

	row := v.Transform("ΣΟΦΟΣ")
	assert.Equal(t, []int{0}, row.Indices)
}
