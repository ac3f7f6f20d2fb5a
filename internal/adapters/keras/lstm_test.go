package keras

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyModel(maskZero bool, inputLength int) ModelArtifact {
	return ModelArtifact{
		InputLength: inputLength,
		Embedding: EmbeddingArtifact{
			Weights:  [][]float64{{0.7}, {1.0}, {2.0}},
			MaskZero: maskZero,
		},
		LSTM: LSTMArtifact{
			Units:           1,
			Kernel:          [][]float64{{0.5, 0.5, 1.0, 0.5}},
			RecurrentKernel: [][]float64{{0.1, 0.1, 0.1, 0.1}},
			Bias:            []float64{0, 1, 0, 0},
		},
		Dense: []DenseArtifact{
			{Kernel: [][]float64{{2.0}}, Bias: []float64{-0.5}, Activation: "sigmoid"},
		},
	}
}

func TestLSTMPredict(t *testing.T) {
	m, err := NewLSTM(tinyModel(false, 0))
	require.NoError(t, err)
	assert.Equal(t, 3, m.VocabSize())

	p, err := m.Predict([]int{0, 1, 2})
	require.NoError(t, err)
	assert.InDelta(t, 0.6917397528984154, p, 1e-12)

	p, err = m.Predict([]int{1, 2})
	require.NoError(t, err)
	assert.InDelta(t, 0.6669963109267667, p, 1e-12)
}

func TestLSTMMaskZeroSkipsPadding(t *testing.T) {
	m, err := NewLSTM(tinyModel(true, 4))
	require.NoError(t, err)

	p, err := m.Predict([]int{0, 0, 1, 2})
	require.NoError(t, err)
	assert.InDelta(t, 0.6669963109267667, p, 1e-12)
}

func TestLSTMRejectsBadInput(t *testing.T) {
	m, err := NewLSTM(tinyModel(false, 3))
	require.NoError(t, err)
	assert.Equal(t, 3, m.InputLength())

	_, err = m.Predict([]int{1, 2})
	assert.ErrorIs(t, err, ErrDimension)

	_, err = m.Predict([]int{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimension)
}

func TestLSTMConcurrentPredict(t *testing.T) {
	m, err := NewLSTM(tinyModel(false, 0))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]float64, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = m.Predict([]int{0, 1, 2})
		}(i)
	}
	wg.Wait()

	for _, p := range results {
		assert.InDelta(t, 0.6917397528984154, p, 1e-12)
	}
}

func TestNewLSTMRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ModelArtifact)
	}{
		{"empty embedding", func(a *ModelArtifact) { a.Embedding.Weights = nil }},
		{"ragged embedding", func(a *ModelArtifact) { a.Embedding.Weights[1] = []float64{1, 2} }},
		{"zero units", func(a *ModelArtifact) { a.LSTM.Units = 0 }},
		{"kernel width", func(a *ModelArtifact) { a.LSTM.Kernel = [][]float64{{1, 2, 3}} }},
		{"recurrent shape", func(a *ModelArtifact) { a.LSTM.RecurrentKernel = [][]float64{{1, 2, 3, 4}, {1, 2, 3, 4}} }},
		{"bias length", func(a *ModelArtifact) { a.LSTM.Bias = []float64{0} }},
		{"activation", func(a *ModelArtifact) { a.LSTM.Activation = "swish" }},
		{"no dense", func(a *ModelArtifact) { a.Dense = nil }},
		{"two outputs", func(a *ModelArtifact) {
			a.Dense[0] = DenseArtifact{Kernel: [][]float64{{1, 1}}, Bias: []float64{0, 0}, Activation: "sigmoid"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tinyModel(false, 0)
			tt.mutate(&a)
			_, err := NewLSTM(a)
			assert.Error(t, err)
		})
	}
}

func TestLoadLSTM(t *testing.T) {
	artifact := `{
		"input_length": 2,
		"embedding": {"weights": [[0.7], [1.0], [2.0]]},
		"lstm": {
			"units": 1,
			"kernel": [[0.5, 0.5, 1.0, 0.5]],
			"recurrent_kernel": [[0.1, 0.1, 0.1, 0.1]],
			"bias": [0, 1, 0, 0],
			"activation": "tanh",
			"recurrent_activation": "sigmoid"
		},
		"dense": [{"kernel": [[2.0]], "bias": [-0.5], "activation": "sigmoid"}]
	}`
	m, err := LoadLSTM(strings.NewReader(artifact))
	require.NoError(t, err)

	p, err := m.Predict([]int{1, 2})
	require.NoError(t, err)
	assert.InDelta(t, 0.6669963109267667, p, 1e-12)
}
