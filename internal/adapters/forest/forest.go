// Package forest evaluates a random forest exported from scikit-learn's fitted
// tree_ arrays.
package forest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const leaf = -1

// ErrFeatureIndex is returned when a sample is narrower than the forest expects
var ErrFeatureIndex = errors.New("feature index out of range")

// Features is read-only access to one sample
type Features interface {
	At(i int) float64
}

// Dense adapts a plain slice to Features
type Dense []float64

// At returns the i-th feature
func (d Dense) At(i int) float64 {
	return d[i]
}

// TreeArtifact mirrors sklearn's Tree arrays
type TreeArtifact struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// Artifact is the JSON export of a fitted classifier
type Artifact struct {
	NFeatures     int               `json:"n_features"`
	Classes       []json.RawMessage `json:"classes"`
	PositiveClass json.RawMessage   `json:"positive_class"`
	Trees         []TreeArtifact    `json:"trees"`
}

type tree struct {
	left, right []int
	feature     []int
	threshold   []float64
	// per-node class distribution, normalized to sum 1
	proba [][]float64
}

// Classifier is an immutable, concurrency-safe random forest
type Classifier struct {
	nFeatures int
	nClasses  int
	positive  int
	trees     []tree
}

// Load decodes a forest artifact
func Load(r io.Reader) (*Classifier, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode forest: %w", err)
	}
	return New(a)
}

// New validates an artifact and builds a Classifier
func New(a Artifact) (*Classifier, error) {
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("forest has no trees")
	}
	nClasses := len(a.Classes)
	if nClasses < 2 {
		return nil, fmt.Errorf("forest needs at least two classes, got %d", nClasses)
	}

	positive := nClasses - 1
	if len(a.PositiveClass) > 0 {
		positive = -1
		for i, c := range a.Classes {
			if string(c) == string(a.PositiveClass) {
				positive = i
			}
		}
		if positive < 0 {
			return nil, fmt.Errorf("positive class %s not among classes", a.PositiveClass)
		}
	}

	c := &Classifier{
		nFeatures: a.NFeatures,
		nClasses:  nClasses,
		positive:  positive,
		trees:     make([]tree, 0, len(a.Trees)),
	}
	for i, ta := range a.Trees {
		t, err := buildTree(ta, a.NFeatures, nClasses)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		c.trees = append(c.trees, t)
	}
	return c, nil
}

func buildTree(ta TreeArtifact, nFeatures, nClasses int) (tree, error) {
	n := len(ta.ChildrenLeft)
	if n == 0 {
		return tree{}, fmt.Errorf("empty tree")
	}
	if len(ta.ChildrenRight) != n || len(ta.Feature) != n || len(ta.Threshold) != n || len(ta.Value) != n {
		return tree{}, fmt.Errorf("node arrays disagree on length %d", n)
	}

	proba := make([][]float64, n)
	for i := 0; i < n; i++ {
		l, r := ta.ChildrenLeft[i], ta.ChildrenRight[i]
		if (l == leaf) != (r == leaf) {
			return tree{}, fmt.Errorf("node %d has one child", i)
		}
		if l != leaf {
			if l <= i || l >= n || r <= i || r >= n {
				return tree{}, fmt.Errorf("node %d has invalid children (%d, %d)", i, l, r)
			}
			if f := ta.Feature[i]; f < 0 || (nFeatures > 0 && f >= nFeatures) {
				return tree{}, fmt.Errorf("node %d splits on feature %d: %w", i, f, ErrFeatureIndex)
			}
		}

		if len(ta.Value[i]) != nClasses {
			return tree{}, fmt.Errorf("node %d has %d class values, want %d", i, len(ta.Value[i]), nClasses)
		}
		var sum float64
		for _, v := range ta.Value[i] {
			sum += v
		}
		p := make([]float64, nClasses)
		for k, v := range ta.Value[i] {
			if sum > 0 {
				p[k] = v / sum
			}
		}
		proba[i] = p
	}

	return tree{
		left:      ta.ChildrenLeft,
		right:     ta.ChildrenRight,
		feature:   ta.Feature,
		threshold: ta.Threshold,
		proba:     proba,
	}, nil
}

// NFeatures is the width the forest was fitted on, zero when unknown
func (c *Classifier) NFeatures() int {
	return c.nFeatures
}

// PredictProba returns the class distribution averaged over all trees
func (c *Classifier) PredictProba(x Features, dim int) ([]float64, error) {
	if c.nFeatures > 0 && dim != c.nFeatures {
		return nil, fmt.Errorf("sample has %d features, forest expects %d: %w", dim, c.nFeatures, ErrFeatureIndex)
	}

	out := make([]float64, c.nClasses)
	for ti := range c.trees {
		t := &c.trees[ti]
		node := 0
		for t.left[node] != leaf {
			f := t.feature[node]
			if f >= dim {
				return nil, fmt.Errorf("tree %d reads feature %d of %d: %w", ti, f, dim, ErrFeatureIndex)
			}
			// sklearn compares in float32
			if float64(float32(x.At(f))) <= t.threshold[node] {
				node = t.left[node]
			} else {
				node = t.right[node]
			}
		}
		for k, p := range t.proba[node] {
			out[k] += p
		}
	}

	for k := range out {
		out[k] /= float64(len(c.trees))
	}
	return out, nil
}

// PositiveProba returns the probability of the positive class
func (c *Classifier) PositiveProba(x Features, dim int) (float64, error) {
	proba, err := c.PredictProba(x, dim)
	if err != nil {
		return 0, err
	}
	return proba[c.positive], nil
}
