package factory

import (
	"github.com/mikey/phish-screen/internal/adapters/cache"
	"github.com/mikey/phish-screen/internal/config"
	"github.com/mikey/phish-screen/internal/core"
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

// CreateCacheRepository creates the bounded in-memory cache
func (f *CacheFactory) CreateCacheRepository() core.CacheRepository {
	cacheCfg := f.cfg.GetCache()
	f.logger.Info("Result cache configured",
		zap.Bool("enabled", cacheCfg.Enabled),
		zap.Int("max_entries", cacheCfg.MaxEntries),
		zap.Duration("ttl", cacheCfg.TTL))
	return cache.NewMemoryCache(cacheCfg.MaxEntries, cacheCfg.TTL, f.logger)
}

// IsCacheEnabled returns whether caching is enabled
func (f *CacheFactory) IsCacheEnabled() bool {
	return f.cfg.GetCache().Enabled
}
