package di

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/phishguard/internal/adapters/model"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"
)

var artifactFixtures = map[string]string{
	"tfidf_combined.json": `{"vocabulary": {"verify": 0, "account": 1, "hello": 2}, "norm": "l2"}`,
	"rf_model_combined.json": `{
		"n_features": 3,
		"classes": [0, 1],
		"trees": [{
			"children_left": [1, -1, -1],
			"children_right": [2, -1, -1],
			"feature": [0, -2, -2],
			"threshold": [0.0, -2, -2],
			"value": [[10, 10], [9, 1], [1, 9]]
		}]
	}`,
	"tokenizer_combined.json": `{"class_name": "Tokenizer", "config": {"num_words": 3, "word_index": "{\"verify\": 1, \"account\": 2}"}}`,
	"lstm_model_combined.json": `{
		"input_length": 4,
		"embedding": {"weights": [[0.0], [1.0], [2.0]]},
		"lstm": {
			"units": 1,
			"kernel": [[0.5, 0.5, 1.0, 0.5]],
			"recurrent_kernel": [[0.1, 0.1, 0.1, 0.1]],
			"bias": [0, 1, 0, 0]
		},
		"dense": [{"kernel": [[2.0]], "bias": [-0.5], "activation": "sigmoid"}]
	}`,
}

func writeModels(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range artifactFixtures {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("models:\n  max_len: 4\n"), 0o644))
	return dir, cfgPath
}

func TestBuildCLIContainer(t *testing.T) {
	dir, cfgPath := writeModels(t)
	var out bytes.Buffer

	container, err := BuildCLIContainer(&CLIFlags{
		ConfigFile: cfgPath,
		ModelsDir:  dir,
		Whitelist:  "trusted.example, corp.example",
		Output:     &out,
	})
	require.NoError(t, err)

	err = container.Invoke(func(filter ports.EmailFilter) {
		result, err := filter.ProcessEmail(context.Background(), &core.Email{
			From: "someone@elsewhere.example",
			Body: "verify your account",
		})
		require.NoError(t, err)
		assert.Equal(t, core.VerdictLegitimate, result.Prediction)
		assert.InDelta(t, (0.9+0.6669963109267667)/2, result.Confidence, 1e-12)

		result, err = filter.ProcessEmail(context.Background(), &core.Email{
			From: "boss@corp.example",
			Body: "verify your account",
		})
		require.NoError(t, err)
		assert.Equal(t, core.SourceWhitelist, result.Source)
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Prediction: legitimate")
}

func TestBuildCLIContainerMissingModels(t *testing.T) {
	container, err := BuildCLIContainer(&CLIFlags{ModelsDir: t.TempDir(), Output: &bytes.Buffer{}})
	require.NoError(t, err)

	err = container.Invoke(func(ports.EmailFilter) {})
	require.Error(t, err)

	var loadErr *model.LoadError
	require.True(t, errors.As(dig.RootCause(err), &loadErr))
	assert.Equal(t, "vectorizer", loadErr.Artifact)
}
