package cli

import (
	"context"
	"fmt"

	"go-soilsync/config"
	"go-soilsync/engine"
	"go-soilsync/history"
	"go-soilsync/logger"
)

// randomSource 关闭扰动优先于固定种子
func randomSource(cfg config.EngineConfig) engine.RandomSource {
	switch {
	case cfg.DisableJitter:
		return engine.NoJitter
	case cfg.Seed != 0:
		return engine.NewSeededSource(cfg.Seed)
	default:
		return engine.DefaultSource
	}
}

func newPredictor(cfg config.Config, log *logger.Logger) *engine.FallbackPredictor {
	return engine.New(cfg.Predictor.URL, cfg.Predictor.APIKey, cfg.Predictor.Timeout, randomSource(cfg.Engine), log)
}

// openStore 按 storage.driver 打开历史记录存储
func openStore(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (history.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return history.NewMemoryStore(cfg.MaxEntries), nil
	case config.DriverMySQL, config.DriverSQLite:
		db, err := config.OpenDB(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return history.NewSQLStore(db, cfg.MaxEntries), nil
	case config.DriverRedis:
		rdb, err := history.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		return history.NewRedisStore(rdb, cfg.Redis.Prefix, cfg.MaxEntries), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
