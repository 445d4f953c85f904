package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv       = "SOILSYNC_CONFIG"
	serverAddrEnv       = "SERVER_ADDR"
	ginModeEnv          = "GIN_MODE"
	logModeEnv          = "LOG_MODE"
	logLevelEnv         = "LOG_LEVEL"
	jwtSecretEnv        = "JWT_SECRET"
	storageDriverEnv    = "STORAGE_DRIVER"
	databaseDSNEnv      = "DATABASE_DSN"
	redisAddrEnv        = "REDIS_ADDR"
	redisPasswordEnv    = "REDIS_PASSWORD"
	maxEntriesEnv       = "HISTORY_MAX_ENTRIES"
	predictorURLEnv     = "PREDICTOR_URL"
	predictorKeyEnv     = "PREDICTOR_API_KEY"
	predictorTimeoutEnv = "PREDICTOR_TIMEOUT"
	engineSeedEnv       = "ENGINE_SEED"
)

// 存储类型
const (
	DriverMemory = "memory"
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config 服务配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Predictor PredictorConfig `yaml:"predictor"`
	Engine    EngineConfig    `yaml:"engine"`
	Batch     BatchConfig     `yaml:"batch"`
}

// ServerConfig HTTP 服务
type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	Mode        string   `yaml:"mode"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// LogConfig 日志
type LogConfig struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
}

// AuthConfig 外部认证服务签发令牌的 HMAC 密钥，为空时所有请求按匿名处理
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
}

// StorageConfig 历史记录存储
type StorageConfig struct {
	Driver     string      `yaml:"driver"`
	DSN        string      `yaml:"dsn"`
	MaxEntries int         `yaml:"maxEntries"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig Redis 连接
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// PredictorConfig 远程预测服务，URL 为空时只使用规则表
type PredictorConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
}

// EngineConfig 规则引擎
type EngineConfig struct {
	// Seed 非 0 时使用固定种子，便于复现
	Seed          uint64 `yaml:"seed"`
	// DisableJitter 关闭随机扰动
	DisableJitter bool   `yaml:"disableJitter"`
}

// BatchConfig CSV 批量预测
type BatchConfig struct {
	MaxRows     int `yaml:"maxRows"`
	Concurrency int `yaml:"concurrency"`
}

// Default 默认配置
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8080",
			Mode: "release",
			CORSOrigins: []string{
				"http://localhost:3000",
				"http://localhost:5173",
				"http://127.0.0.1:3000",
				"http://127.0.0.1:5173",
			},
		},
		Log:     LogConfig{Mode: "dev", Level: "info"},
		Storage: StorageConfig{Driver: DriverMemory, MaxEntries: 50},
		Predictor: PredictorConfig{
			Timeout: 10 * time.Second,
		},
		Batch: BatchConfig{MaxRows: 1000, Concurrency: 4},
	}
}

// Load 读取 YAML 配置（path 为空时取 SOILSYNC_CONFIG），再应用环境变量覆盖
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	// mysql 未配置连接串时使用本地开发库
	if cfg.Storage.Driver == DriverMySQL && cfg.Storage.DSN == "" {
		cfg.Storage.DSN = DefaultMySQLDSN()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	setString := func(env string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}

	setString(serverAddrEnv, &c.Server.Addr)
	setString(ginModeEnv, &c.Server.Mode)
	setString(logModeEnv, &c.Log.Mode)
	setString(logLevelEnv, &c.Log.Level)
	setString(jwtSecretEnv, &c.Auth.JWTSecret)
	setString(storageDriverEnv, &c.Storage.Driver)
	setString(databaseDSNEnv, &c.Storage.DSN)
	setString(redisAddrEnv, &c.Storage.Redis.Addr)
	setString(redisPasswordEnv, &c.Storage.Redis.Password)
	setString(predictorURLEnv, &c.Predictor.URL)
	setString(predictorKeyEnv, &c.Predictor.APIKey)

	if v := os.Getenv(maxEntriesEnv); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", maxEntriesEnv, err)
		}
		c.Storage.MaxEntries = n
	}
	if v := os.Getenv(predictorTimeoutEnv); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", predictorTimeoutEnv, err)
		}
		c.Predictor.Timeout = d
	}
	if v := os.Getenv(engineSeedEnv); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: %s: %w", engineSeedEnv, err)
		}
		c.Engine.Seed = n
	}
	return nil
}

// Validate 检查配置是否可用
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverMySQL, DriverSQLite:
		if c.Storage.DSN == "" {
			return fmt.Errorf("config: storage.dsn is required for %s", c.Storage.Driver)
		}
	case DriverRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("config: storage.redis.addr is required for redis")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}

	if c.Storage.MaxEntries <= 0 {
		return fmt.Errorf("config: storage.maxEntries must be positive")
	}
	if c.Predictor.Timeout <= 0 {
		return fmt.Errorf("config: predictor.timeout must be positive")
	}
	if c.Batch.MaxRows <= 0 || c.Batch.Concurrency <= 0 {
		return fmt.Errorf("config: batch.maxRows and batch.concurrency must be positive")
	}
	return nil
}
