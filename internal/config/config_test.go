package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	httpCfg, err := cfg.GetServer()
	require.NoError(t, err)
	assert.True(t, httpCfg.Enabled)
	assert.Equal(t, "127.0.0.1:5000", httpCfg.ListenAddress)
	assert.Equal(t, 30*time.Second, httpCfg.ReadTimeout)
	assert.Equal(t, "release", httpCfg.Mode)

	models, err := cfg.GetModels()
	require.NoError(t, err)
	assert.Equal(t, "file", models.Source)
	assert.Equal(t, 5000, models.MaxWords)
	assert.Equal(t, 200, models.MaxLen)
	assert.Equal(t, "rf_model_combined.json", models.Forest)

	cache, err := cfg.GetCache()
	require.NoError(t, err)
	assert.False(t, cache.Enabled)
	assert.Equal(t, "memory", cache.Type)
	assert.Equal(t, 24*time.Hour, cache.TTL)
	assert.Equal(t, 10000, cache.MaxEntries)

	smtp := cfg.GetSMTP()
	assert.False(t, smtp.Enabled)
	assert.Equal(t, int64(30*1024*1024), smtp.MaxMessageBytes)
	assert.Equal(t, "X-Phishing-Status", smtp.StatusHeader)
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
models:
  source: s3
  s3:
    bucket: phishguard-models
    prefix: v2
cache:
  type: redis
  ttl: 5m
scan:
  whitelisted_domains: [example.com, corp.example]
`), 0o644))

	cfg, err := NewFromFile(path)
	require.NoError(t, err)

	models, err := cfg.GetModels()
	require.NoError(t, err)
	assert.Equal(t, "s3", models.Source)
	assert.Equal(t, "phishguard-models", models.S3Bucket)
	assert.Equal(t, "v2", models.S3Prefix)
	assert.Equal(t, "tfidf_combined.json", models.Vectorizer)

	cache, err := cfg.GetCache()
	require.NoError(t, err)
	assert.Equal(t, "redis", cache.Type)
	assert.Equal(t, 5*time.Minute, cache.TTL)

	assert.Equal(t, []string{"example.com", "corp.example"}, cfg.GetScan().WhitelistedDomains)
}

func TestInvalidDurations(t *testing.T) {
	v := NewEmptyViper()
	v.Set("cache.ttl", "forever")
	v.Set("server.http.read_timeout", "soon")
	cfg := NewFromViper(v)

	_, err := cfg.GetCache()
	assert.Error(t, err)
	_, err = cfg.GetServer()
	assert.Error(t, err)
}

func TestServerMode(t *testing.T) {
	for _, mode := range []string{"debug", "release", "test"} {
		v := NewEmptyViper()
		v.Set("server.http.mode", mode)
		httpCfg, err := NewFromViper(v).GetServer()
		require.NoError(t, err)
		assert.Equal(t, mode, httpCfg.Mode)
	}

	v := NewEmptyViper()
	v.Set("server.http.mode", "production")
	_, err := NewFromViper(v).GetServer()
	assert.ErrorContains(t, err, `invalid server mode "production"`)
}

func TestNewFromFileMissing(t *testing.T) {
	_, err := NewFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
