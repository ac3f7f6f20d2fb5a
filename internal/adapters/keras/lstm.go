package keras

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDimension is returned when an input does not fit the network
var ErrDimension = errors.New("input does not match model dimensions")

type activation func(float64) float64

var activations = map[string]activation{
	"":             sigmoid,
	"sigmoid":      sigmoid,
	"hard_sigmoid": hardSigmoid,
	"tanh":         math.Tanh,
	"relu":         func(x float64) float64 { return math.Max(0, x) },
	"linear":       func(x float64) float64 { return x },
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func hardSigmoid(x float64) float64 {
	return math.Max(0, math.Min(1, 0.2*x+0.5))
}

// EmbeddingArtifact holds the Embedding layer weights
type EmbeddingArtifact struct {
	Weights  [][]float64 `json:"weights"`
	MaskZero bool        `json:"mask_zero"`
}

// LSTMArtifact holds LSTM weights in Keras layout, gates ordered i, f, c, o
type LSTMArtifact struct {
	Units               int         `json:"units"`
	Kernel              [][]float64 `json:"kernel"`
	RecurrentKernel     [][]float64 `json:"recurrent_kernel"`
	Bias                []float64   `json:"bias"`
	Activation          string      `json:"activation"`
	RecurrentActivation string      `json:"recurrent_activation"`
}

// DenseArtifact holds one Dense layer
type DenseArtifact struct {
	Kernel     [][]float64 `json:"kernel"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
}

// ModelArtifact is the JSON export of the sequence classifier
type ModelArtifact struct {
	InputLength int               `json:"input_length"`
	Embedding   EmbeddingArtifact `json:"embedding"`
	LSTM        LSTMArtifact      `json:"lstm"`
	Dense       []DenseArtifact   `json:"dense"`
}

type denseLayer struct {
	kernel *mat.Dense
	bias   *mat.VecDense
	act    activation
}

// LSTMModel runs Embedding -> LSTM -> Dense* -> sigmoid. Weights are read-only
// after loading, so Predict is safe for concurrent use.
type LSTMModel struct {
	inputLength int
	vocab       int
	units       int
	maskZero    bool
	// embedding rows pre-multiplied by the input kernel, vocab x 4*units
	inputProj *mat.Dense
	recurrent *mat.Dense
	bias      *mat.VecDense
	act       activation
	recAct    activation
	dense     []denseLayer
}

// LoadLSTM decodes a sequence model artifact
func LoadLSTM(r io.Reader) (*LSTMModel, error) {
	var a ModelArtifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode sequence model: %w", err)
	}
	return NewLSTM(a)
}

// NewLSTM validates an artifact and builds the model
func NewLSTM(a ModelArtifact) (*LSTMModel, error) {
	embedding, err := toDense("embedding", a.Embedding.Weights)
	if err != nil {
		return nil, err
	}
	vocab, dim := embedding.Dims()

	units := a.LSTM.Units
	if units <= 0 {
		return nil, fmt.Errorf("lstm units must be positive, got %d", units)
	}
	kernel, err := toDense("lstm kernel", a.LSTM.Kernel)
	if err != nil {
		return nil, err
	}
	if r, c := kernel.Dims(); r != dim || c != 4*units {
		return nil, fmt.Errorf("lstm kernel is %dx%d, want %dx%d", r, c, dim, 4*units)
	}
	recurrent, err := toDense("lstm recurrent kernel", a.LSTM.RecurrentKernel)
	if err != nil {
		return nil, err
	}
	if r, c := recurrent.Dims(); r != units || c != 4*units {
		return nil, fmt.Errorf("lstm recurrent kernel is %dx%d, want %dx%d", r, c, units, 4*units)
	}
	if len(a.LSTM.Bias) != 4*units {
		return nil, fmt.Errorf("lstm bias has %d values, want %d", len(a.LSTM.Bias), 4*units)
	}

	actName := a.LSTM.Activation
	if actName == "" {
		actName = "tanh"
	}
	act, ok := activations[actName]
	if !ok {
		return nil, fmt.Errorf("unsupported lstm activation %q", actName)
	}
	recAct, ok := activations[a.LSTM.RecurrentActivation]
	if !ok {
		return nil, fmt.Errorf("unsupported lstm recurrent activation %q", a.LSTM.RecurrentActivation)
	}

	if len(a.Dense) == 0 {
		return nil, fmt.Errorf("sequence model has no dense layers")
	}
	width := units
	layers := make([]denseLayer, 0, len(a.Dense))
	for i, d := range a.Dense {
		k, err := toDense(fmt.Sprintf("dense %d kernel", i), d.Kernel)
		if err != nil {
			return nil, err
		}
		r, c := k.Dims()
		if r != width || len(d.Bias) != c {
			return nil, fmt.Errorf("dense %d is %dx%d with %d biases, input width %d", i, r, c, len(d.Bias), width)
		}
		name := d.Activation
		if name == "" {
			name = "linear"
		}
		fn, ok := activations[name]
		if !ok {
			return nil, fmt.Errorf("unsupported dense activation %q", d.Activation)
		}
		layers = append(layers, denseLayer{kernel: k, bias: mat.NewVecDense(c, d.Bias), act: fn})
		width = c
	}
	if width != 1 {
		return nil, fmt.Errorf("sequence model outputs %d values, want 1", width)
	}

	var proj mat.Dense
	proj.Mul(embedding, kernel)

	return &LSTMModel{
		inputLength: a.InputLength,
		vocab:       vocab,
		units:       units,
		maskZero:    a.Embedding.MaskZero,
		inputProj:   &proj,
		recurrent:   recurrent,
		bias:        mat.NewVecDense(4*units, a.LSTM.Bias),
		act:         act,
		recAct:      recAct,
		dense:       layers,
	}, nil
}

// InputLength is the fixed sequence length, zero when the model accepts any
func (m *LSTMModel) InputLength() int {
	return m.inputLength
}

// VocabSize is the number of embedding rows
func (m *LSTMModel) VocabSize() int {
	return m.vocab
}

// Predict returns the sigmoid output for one padded sequence
func (m *LSTMModel) Predict(seq []int) (float64, error) {
	if m.inputLength > 0 && len(seq) != m.inputLength {
		return 0, fmt.Errorf("sequence has length %d, want %d: %w", len(seq), m.inputLength, ErrDimension)
	}

	u := m.units
	h := mat.NewVecDense(u, nil)
	c := make([]float64, u)
	z := mat.NewVecDense(4*u, nil)

	for t, id := range seq {
		if id < 0 || id >= m.vocab {
			return 0, fmt.Errorf("token %d at step %d outside vocabulary of %d: %w", id, t, m.vocab, ErrDimension)
		}
		if m.maskZero && id == 0 {
			continue
		}

		z.MulVec(m.recurrent.T(), h)
		z.AddVec(z, m.bias)
		z.AddVec(z, m.inputProj.RowView(id))

		zs := z.RawVector().Data
		hs := h.RawVector().Data
		for j := 0; j < u; j++ {
			in := m.recAct(zs[j])
			forget := m.recAct(zs[u+j])
			cand := m.act(zs[2*u+j])
			out := m.recAct(zs[3*u+j])
			c[j] = forget*c[j] + in*cand
			hs[j] = out * m.act(c[j])
		}
	}

	x := h
	for _, layer := range m.dense {
		_, width := layer.kernel.Dims()
		y := mat.NewVecDense(width, nil)
		y.MulVec(layer.kernel.T(), x)
		y.AddVec(y, layer.bias)
		ys := y.RawVector().Data
		for i := range ys {
			ys[i] = layer.act(ys[i])
		}
		x = y
	}
	return x.AtVec(0), nil
}

func toDense(name string, rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%s is empty", name)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%s row %d has %d columns, want %d", name, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}
