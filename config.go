package lotto

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Store drivers accepted in store.driver
const (
	StoreDriverMemory = "memory"
	StoreDriverRedis  = "redis"
	StoreDriverSQLite = "sqlite"
)

// Config 配置结构
type Config struct {
	// 开奖页结构选择器
	Selectors *SelectorSet `mapstructure:"selectors"`

	// 抓取配置
	Fetch *FetchConfig `mapstructure:"fetch"`

	// 号码校验配置
	Validation *ValidationConfig `mapstructure:"validation"`

	// 存储配置
	Store *StoreConfig `mapstructure:"store"`

	// Redis 配置
	Redis *RedisConfig `mapstructure:"redis"`

	// 熔断器配置
	CircuitBreaker *CircuitBreakerConfig `mapstructure:"circuit_breaker"`

	// 日志配置
	Log *LogConfig `mapstructure:"log"`
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Selectors == nil || c.Fetch == nil || c.Validation == nil ||
		c.Store == nil || c.Redis == nil || c.CircuitBreaker == nil || c.Log == nil {
		return ErrConfigInvalid.WithDetails("missing section")
	}

	if err := c.Selectors.Validate(); err != nil {
		return ErrConfigInvalid.WithDetails("selectors").WithCause(err)
	}

	if c.Fetch.Workers < 1 || c.Fetch.Workers > MaxFetchWorkers {
		return ErrConfigInvalid.WithDetails(fmt.Sprintf("fetch workers must be between 1 and %d", MaxFetchWorkers))
	}

	switch c.Store.Driver {
	case StoreDriverMemory:
	case StoreDriverSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			return ErrConfigInvalid.WithDetails("sqlite path is required")
		}
	case StoreDriverRedis:
		if c.Redis.Addr == "" {
			return ErrConfigInvalid.WithDetails("redis address is required")
		}
		if c.Redis.PoolSize <= 0 {
			return ErrConfigInvalid.WithDetails("redis pool size must be positive")
		}
	default:
		return ErrConfigInvalid.WithDetails(fmt.Sprintf("unknown store driver %q", c.Store.Driver))
	}

	if c.Store.RetryAttempts < 0 || c.Store.RetryAttempts > MaxRetryAttempts {
		return ErrConfigInvalid.WithDetails(fmt.Sprintf("store retry attempts must be between 0 and %d", MaxRetryAttempts))
	}
	if c.Store.RetryInterval < 0 {
		return ErrConfigInvalid.WithDetails("store retry interval cannot be negative")
	}

	if c.CircuitBreaker.FailureRatio <= 0 || c.CircuitBreaker.FailureRatio > 1 {
		return ErrConfigInvalid.WithDetails("circuit breaker failure ratio must be in (0, 1]")
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return ErrConfigInvalid.WithDetails(fmt.Sprintf("log level %q", c.Log.Level)).WithCause(err)
	}

	return nil
}

// FetchConfig 抓取配置; 开奖页地址固定, 不可配置
type FetchConfig struct {
	UserAgent string `mapstructure:"user_agent"`
	Workers   int    `mapstructure:"workers"`
}

// DefaultFetchConfig 返回默认抓取配置
func DefaultFetchConfig() *FetchConfig {
	return &FetchConfig{
		UserAgent: DefaultUserAgent,
		Workers:   DefaultFetchWorkers,
	}
}

// ValidationConfig 号码校验配置
type ValidationConfig struct {
	// StrictTokens rejects input containing non-numeric tokens instead of dropping them
	StrictTokens bool `mapstructure:"strict_tokens"`
}

// TokenPolicy returns the token policy selected by the configuration
func (vc *ValidationConfig) TokenPolicy() TokenPolicy {
	if vc != nil && vc.StrictTokens {
		return TokenPolicyStrict
	}
	return TokenPolicyPermissive
}

// StoreConfig 存储配置
type StoreConfig struct {
	Driver        string        `mapstructure:"driver"`
	SQLitePath    string        `mapstructure:"sqlite_path"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// DefaultStoreConfig 返回默认存储配置
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Driver:        StoreDriverMemory,
		SQLitePath:    DefaultSQLitePath,
		RetryAttempts: DefaultRetryAttempts,
		RetryInterval: DefaultRetryInterval,
	}
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 连接配置
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// 连接池配置
	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`
	MaxRetries   int `mapstructure:"max_retries"`

	// 超时配置
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
}

// DefaultRedisConfig 返回默认的Redis配置
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         DefaultRedisAddr,
		Password:     DefaultRedisPassword,
		DB:           DefaultRedisDB,
		PoolSize:     DefaultRedisPoolSize,
		MinIdleConns: DefaultRedisMinIdleConns,
		MaxRetries:   DefaultRedisMaxRetries,
		DialTimeout:  DefaultRedisDialTimeout,
		ReadTimeout:  DefaultRedisReadTimeout,
		WriteTimeout: DefaultRedisWriteTimeout,
		PoolTimeout:  DefaultRedisPoolTimeout,
	}
}

// NewRedisClientFromConfig 从配置创建Redis客户端
func NewRedisClientFromConfig(config *RedisConfig) *redis.Client {
	if config == nil {
		config = DefaultRedisConfig()
	}

	return redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		PoolTimeout:  config.PoolTimeout,
	})
}

// CircuitBreakerConfig 熔断器配置
type CircuitBreakerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Name          string        `mapstructure:"name"`
	MaxRequests   uint32        `mapstructure:"max_requests"`
	Interval      time.Duration `mapstructure:"interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
	FailureRatio  float64       `mapstructure:"failure_ratio"`
	MinRequests   uint32        `mapstructure:"min_requests"`
	OnStateChange bool          `mapstructure:"on_state_change"`
}

// DefaultCircuitBreakerConfig 返回默认熔断器配置
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Enabled:       true,
		Name:          DefaultCircuitBreakerName,
		MaxRequests:   DefaultCircuitBreakerMaxRequests,
		Interval:      DefaultCircuitBreakerInterval,
		Timeout:       DefaultCircuitBreakerTimeout,
		FailureRatio:  DefaultCircuitBreakerFailureRatio,
		MinRequests:   DefaultCircuitBreakerMinRequests,
		OnStateChange: DefaultCircuitBreakerOnStateChange,
	}
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console | json
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() *LogConfig {
	return &LogConfig{Level: "info", Format: "console"}
}

// DefaultConfig 返回完整的默认配置
func DefaultConfig() *Config {
	return &Config{
		Selectors:      DefaultSelectors(),
		Fetch:          DefaultFetchConfig(),
		Validation:     &ValidationConfig{},
		Store:          DefaultStoreConfig(),
		Redis:          DefaultRedisConfig(),
		CircuitBreaker: DefaultCircuitBreakerConfig(),
		Log:            DefaultLogConfig(),
	}
}

// ConfigManager 配置管理器
type ConfigManager struct {
	viper *viper.Viper

	mu     sync.RWMutex
	config *Config
}

// NewConfigManager 创建配置管理器
func NewConfigManager() *ConfigManager {
	v := viper.New()

	// 设置配置文件名和路径
	v.SetConfigName("lotto")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/lotto")
	v.AddConfigPath("$HOME/.lotto")

	// 设置环境变量前缀
	v.SetEnvPrefix("LOTTO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &ConfigManager{viper: v}
}

// SetConfigFile 使用指定的配置文件
func (cm *ConfigManager) SetConfigFile(path string) {
	cm.viper.SetConfigFile(path)
}

// LoadConfig 加载配置
func (cm *ConfigManager) LoadConfig() (*Config, error) {
	cm.setDefaults()

	// 读取配置文件, 不存在时使用默认配置
	if err := cm.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config, err := cm.decode()
	if err != nil {
		return nil, err
	}

	cm.mu.Lock()
	cm.config = config
	cm.mu.Unlock()
	return config, nil
}

// decode 解析并验证当前 viper 中的配置
func (cm *ConfigManager) decode() (*Config, error) {
	config := &Config{}
	if err := cm.viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// setDefaults 设置默认配置值
func (cm *ConfigManager) setDefaults() {
	v := cm.viper

	v.SetDefault("selectors.version", DefaultSelectorVersion)
	v.SetDefault("selectors.container", DefaultContainerSelector)
	v.SetDefault("selectors.date", DefaultDateSelector)
	v.SetDefault("selectors.number", DefaultNumberSelector)

	v.SetDefault("fetch.user_agent", DefaultUserAgent)
	v.SetDefault("fetch.workers", DefaultFetchWorkers)

	v.SetDefault("validation.strict_tokens", false)

	v.SetDefault("store.driver", StoreDriverMemory)
	v.SetDefault("store.sqlite_path", DefaultSQLitePath)
	v.SetDefault("store.retry_attempts", DefaultRetryAttempts)
	v.SetDefault("store.retry_interval", "100ms")

	v.SetDefault("redis.addr", DefaultRedisAddr)
	v.SetDefault("redis.password", DefaultRedisPassword)
	v.SetDefault("redis.db", DefaultRedisDB)
	v.SetDefault("redis.pool_size", DefaultRedisPoolSize)
	v.SetDefault("redis.min_idle_conns", DefaultRedisMinIdleConns)
	v.SetDefault("redis.max_retries", DefaultRedisMaxRetries)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.pool_timeout", "4s")

	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.name", DefaultCircuitBreakerName)
	v.SetDefault("circuit_breaker.max_requests", DefaultCircuitBreakerMaxRequests)
	v.SetDefault("circuit_breaker.interval", "60s")
	v.SetDefault("circuit_breaker.timeout", "30s")
	v.SetDefault("circuit_breaker.failure_ratio", DefaultCircuitBreakerFailureRatio)
	v.SetDefault("circuit_breaker.min_requests", DefaultCircuitBreakerMinRequests)
	v.SetDefault("circuit_breaker.on_state_change", DefaultCircuitBreakerOnStateChange)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// WatchConfig 监听配置变化; 无效的新配置被忽略, 继续使用旧配置
func (cm *ConfigManager) WatchConfig(callback func(*Config), logger Logger) {
	if logger == nil {
		logger = NewSilentLogger()
	}

	cm.viper.OnConfigChange(func(e fsnotify.Event) {
		config, err := cm.decode()
		if err != nil {
			logger.Error("Ignoring config change from %s: %v", e.Name, err)
			return
		}

		cm.mu.Lock()
		cm.config = config
		cm.mu.Unlock()

		logger.Info("Config reloaded from %s", e.Name)
		if callback != nil {
			callback(config)
		}
	})
	cm.viper.WatchConfig()
}

// WatchSelectors 配置文件变化时把新的选择器交给解析器
func (cm *ConfigManager) WatchSelectors(parser *ResultParser, logger Logger) {
	if logger == nil {
		logger = NewSilentLogger()
	}

	cm.WatchConfig(func(config *Config) {
		if err := parser.SetSelectors(config.Selectors); err != nil {
			logger.Error("Keeping previous selectors: %v", err)
		}
	}, logger)
}

// GetConfig 获取当前配置
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ReloadConfig 重新加载配置
func (cm *ConfigManager) ReloadConfig() (*Config, error) { return cm.LoadConfig() }

// NewDefaultConfigManager 创建使用默认配置的管理器
func NewDefaultConfigManager() *ConfigManager {
	cm := NewConfigManager()
	cm.setDefaults()
	cm.config = DefaultConfig()
	return cm
}
