package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/phishguard/internal/adapters/cache"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheFactory creates cache repositories based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCacheRepository creates a cache repository based on the configuration.
// It returns a nil repository when caching is disabled.
func (f *CacheFactory) CreateCacheRepository(ctx context.Context) (core.CacheRepository, error) {
	cacheCfg, err := f.cfg.GetCache()
	if err != nil {
		return nil, err
	}
	if !cacheCfg.Enabled {
		f.logger.Info("Result cache disabled")
		return nil, nil
	}

	f.logger.Info("Creating result cache",
		zap.String("type", cacheCfg.Type),
		zap.Duration("ttl", cacheCfg.TTL))

	switch cacheCfg.Type {
	case "memory":
		return cache.NewMemoryCache(f.logger, cacheCfg.CleanupFrequency, cacheCfg.MaxEntries), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cacheCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		repo, err := cache.NewSQLiteCache(cacheCfg.SQLitePath, f.logger, cacheCfg.CleanupFrequency)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "mysql":
		repo, err := cache.NewMySQLCache(cacheCfg.MySQLDSN, f.logger, cacheCfg.CleanupFrequency)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cacheCfg.RedisAddress,
			Password: cacheCfg.RedisPassword,
			DB:       cacheCfg.RedisDB,
		})
		repo, err := cache.NewRedisCache(ctx, client, f.logger)
		if err != nil {
			client.Close()
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheCfg.Type)
	}
}

// ServiceOptions derives the detection service options from the cache and scan settings
func (f *CacheFactory) ServiceOptions() (core.ServiceOptions, error) {
	cacheCfg, err := f.cfg.GetCache()
	if err != nil {
		return core.ServiceOptions{}, err
	}
	return core.ServiceOptions{
		CacheEnabled:   cacheCfg.Enabled,
		CacheTTL:       cacheCfg.TTL,
		MaxContentSize: f.cfg.GetScan().MaxContentSize,
	}, nil
}
