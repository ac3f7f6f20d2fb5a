package factory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/phishguard/internal/adapters/artifacts"
	"github.com/mikey/phishguard/internal/adapters/cache"
	"github.com/mikey/phishguard/internal/adapters/model"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type nopScorer struct{}

func (nopScorer) Score(context.Context, string) (float64, error) { return 0, nil }

func newConfig(values map[string]any) *config.Config {
	v := config.NewEmptyViper()
	for k, val := range values {
		v.Set(k, val)
	}
	return config.NewFromViper(v)
}

func TestCreateCacheRepository(t *testing.T) {
	ctx := context.Background()

	// off unless configured
	repo, err := NewCacheFactory(newConfig(nil), zap.NewNop()).CreateCacheRepository(ctx)
	require.NoError(t, err)
	assert.Nil(t, repo)

	repo, err = NewCacheFactory(newConfig(map[string]any{"cache.enabled": true}), zap.NewNop()).CreateCacheRepository(ctx)
	require.NoError(t, err)
	require.IsType(t, &cache.MemoryCache{}, repo)
	repo.(*cache.MemoryCache).Stop()

	dbPath := filepath.Join(t.TempDir(), "nested", "cache.db")
	repo, err = NewCacheFactory(newConfig(map[string]any{
		"cache.enabled":     true,
		"cache.type":        "sqlite",
		"cache.sqlite_path": dbPath,
	}), zap.NewNop()).CreateCacheRepository(ctx)
	require.NoError(t, err)
	require.IsType(t, &cache.SQLiteCache{}, repo)
	repo.(*cache.SQLiteCache).Stop()

	_, err = NewCacheFactory(newConfig(map[string]any{
		"cache.enabled": true,
		"cache.type":    "memcached",
	}), zap.NewNop()).CreateCacheRepository(ctx)
	assert.EqualError(t, err, "unsupported cache type: memcached")
}

func TestConfiguredMemoryCacheStaysBounded(t *testing.T) {
	ctx := context.Background()
	cf := NewCacheFactory(newConfig(map[string]any{
		"cache.enabled":     true,
		"cache.max_entries": 50,
	}), zap.NewNop())

	repo, err := cf.CreateCacheRepository(ctx)
	require.NoError(t, err)
	mem := repo.(*cache.MemoryCache)
	defer mem.Stop()

	opts, err := cf.ServiceOptions()
	require.NoError(t, err)
	service := core.NewPhishingDetectionService(nopScorer{}, nopScorer{}, repo, nil, nil, zap.NewNop(), opts)

	for i := 0; i < 1000; i++ {
		_, err := service.Predict(ctx, fmt.Sprintf("message number %d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 50, mem.Len())
}

func TestServiceOptions(t *testing.T) {
	opts, err := NewCacheFactory(newConfig(map[string]any{
		"cache.enabled":         true,
		"cache.ttl":             "90m",
		"scan.max_content_size": 4096,
	}), zap.NewNop()).ServiceOptions()
	require.NoError(t, err)
	assert.Equal(t, core.ServiceOptions{CacheEnabled: true, CacheTTL: 90 * time.Minute, MaxContentSize: 4096}, opts)
}

func TestCreateArtifactStore(t *testing.T) {
	ctx := context.Background()

	store, err := NewModelFactory(newConfig(map[string]any{"models.dir": "/srv/models"}), zap.NewNop()).CreateArtifactStore(ctx)
	require.NoError(t, err)
	require.IsType(t, &artifacts.FileStore{}, store)
	assert.Equal(t, filepath.Join("/srv/models", "rf_model_combined.json"), store.Location("rf_model_combined.json"))

	_, err = NewModelFactory(newConfig(map[string]any{"models.source": "s3"}), zap.NewNop()).CreateArtifactStore(ctx)
	assert.Error(t, err)

	_, err = NewModelFactory(newConfig(map[string]any{"models.source": "ftp"}), zap.NewNop()).CreateArtifactStore(ctx)
	assert.EqualError(t, err, "unsupported model source: ftp")
}

func TestCreateScorersMissingArtifacts(t *testing.T) {
	f := NewModelFactory(newConfig(map[string]any{"models.dir": t.TempDir()}), zap.NewNop())

	_, _, err := f.CreateScorers(context.Background())
	var loadErr *model.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "vectorizer", loadErr.Artifact)
}

func TestCreateFrontends(t *testing.T) {
	service := core.NewPhishingDetectionService(nopScorer{}, nopScorer{}, nil, nil, nil, zap.NewNop(), core.ServiceOptions{})

	frontends, err := NewFilterFactory(newConfig(nil), zap.NewNop(), service).CreateFrontends()
	require.NoError(t, err)
	require.Len(t, frontends, 1)
	assert.Equal(t, "http", frontends[0].Name())

	frontends, err = NewFilterFactory(newConfig(map[string]any{
		"server.http.enabled": false,
		"smtp.enabled":        true,
	}), zap.NewNop(), service).CreateFrontends()
	require.NoError(t, err)
	require.Len(t, frontends, 1)
	assert.Equal(t, "smtp", frontends[0].Name())
}
