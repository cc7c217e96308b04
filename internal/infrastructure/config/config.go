// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App            AppConfig            `mapstructure:"app"`
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	AI             AIConfig             `mapstructure:"ai"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Monitoring     MonitoringConfig     `mapstructure:"monitoring"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string   `mapstructure:"name" validate:"required"`
	Version     string   `mapstructure:"version"`
	Environment string   `mapstructure:"environment" validate:"oneof=development staging production test"`
	Debug       bool     `mapstructure:"debug"`
	LogLevel    string   `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat   string   `mapstructure:"log_format" validate:"oneof=json console"`
	LogOutput   []string `mapstructure:"log_output"`
}

// ServerConfig contains the ops HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver             string        `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	Path               string        `mapstructure:"path"`
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Database           string        `mapstructure:"database"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	SSLMode            string        `mapstructure:"ssl_mode"`
	Replicas           []string      `mapstructure:"replicas"`
	MaxOpenConns       int           `mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel           string        `mapstructure:"log_level" validate:"oneof=silent error warn info"`
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
	AutoMigrate        bool          `mapstructure:"auto_migrate"`
	SeedDemoCatalog    bool          `mapstructure:"seed_demo_catalog"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	MaxRetries   int           `mapstructure:"max_retries"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// AIConfig contains ranking provider configuration
type AIConfig struct {
	Enabled        bool                 `mapstructure:"enabled"`
	Provider       string               `mapstructure:"provider" validate:"oneof=ollama openai gemini"`
	Model          string               `mapstructure:"model" validate:"required"`
	BaseURL        string               `mapstructure:"base_url"`
	APIKey         string               `mapstructure:"api_key"`
	Temperature    float64              `mapstructure:"temperature" validate:"min=0,max=2"`
	Timeout        time.Duration        `mapstructure:"timeout" validate:"min=1ms"`
	MaxRetries     int                  `mapstructure:"max_retries" validate:"min=0,max=10"`
	InitialBackoff time.Duration        `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration        `mapstructure:"max_backoff"`
	RateLimit      float64              `mapstructure:"rate_limit" validate:"min=0"`
	RateBurst      int                  `mapstructure:"rate_burst" validate:"min=1"`
	HealthCacheTTL time.Duration        `mapstructure:"health_cache_ttl"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// CircuitBreakerConfig tunes the breaker around the ranking provider
type CircuitBreakerConfig struct {
	MaxRequests         uint32        `mapstructure:"max_requests" validate:"min=1"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures" validate:"min=1"`
}

// RecommendationConfig contains engine configuration
type RecommendationConfig struct {
	Scorer            string        `mapstructure:"scorer" validate:"oneof=delegated weighted"`
	HistoryWindowDays int           `mapstructure:"history_window_days" validate:"min=0,max=30"`
	CountPerSlot      int           `mapstructure:"count_per_slot" validate:"min=1,max=5"`
	MaxPlanDays       int           `mapstructure:"max_plan_days" validate:"min=1,max=92"`
	SlotTimeout       time.Duration `mapstructure:"slot_timeout" validate:"min=1ms"`
	MealTypes         []string      `mapstructure:"meal_types" validate:"min=1,unique,dive,oneof=breakfast lunch dinner"`
	CatalogCacheTTL   time.Duration `mapstructure:"catalog_cache_ttl"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics bool    `mapstructure:"enable_metrics"`
	EnableTracing bool    `mapstructure:"enable_tracing"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure  bool    `mapstructure:"otlp_insecure"`
	SamplingRate  float64 `mapstructure:"sampling_rate" validate:"min=0,max=1"`
	ServiceName   string  `mapstructure:"service_name"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	cfg, _, err := LoadWithViper(configPath)
	return cfg, err
}

// LoadWithViper is Load but also returns the viper instance so callers can
// watch the file for changes.
func LoadWithViper(configPath string) (*Config, *viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/mealprep")
	}

	v.SetEnvPrefix("MEALPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	config, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return config, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "mealprep-recommender")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")
	v.SetDefault("app.log_output", []string{"stderr"})

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 9090)
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "mealprep.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "mealprep")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.slow_query_threshold", "200ms")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.seed_demo_catalog", false)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.key_prefix", "mealprep:")

	// AI defaults
	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.provider", "ollama")
	v.SetDefault("ai.model", "llama3.2:3b")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.temperature", 0.2)
	v.SetDefault("ai.timeout", "20s")
	v.SetDefault("ai.max_retries", 2)
	v.SetDefault("ai.initial_backoff", "250ms")
	v.SetDefault("ai.max_backoff", "2s")
	v.SetDefault("ai.rate_limit", 5.0)
	v.SetDefault("ai.rate_burst", 5)
	v.SetDefault("ai.health_cache_ttl", "10s")
	v.SetDefault("ai.circuit_breaker.max_requests", 1)
	v.SetDefault("ai.circuit_breaker.interval", "1m")
	v.SetDefault("ai.circuit_breaker.timeout", "30s")
	v.SetDefault("ai.circuit_breaker.consecutive_failures", 5)

	// Recommendation defaults
	v.SetDefault("recommendation.scorer", "delegated")
	v.SetDefault("recommendation.history_window_days", 3)
	v.SetDefault("recommendation.count_per_slot", 1)
	v.SetDefault("recommendation.max_plan_days", 31)
	v.SetDefault("recommendation.slot_timeout", "30s")
	v.SetDefault("recommendation.meal_types", []string{"breakfast", "lunch", "dinner"})
	v.SetDefault("recommendation.catalog_cache_ttl", "5m")

	// Monitoring defaults
	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.enable_tracing", false)
	v.SetDefault("monitoring.otlp_endpoint", "localhost:4318")
	v.SetDefault("monitoring.otlp_insecure", true)
	v.SetDefault("monitoring.sampling_rate", 0.1)
	v.SetDefault("monitoring.service_name", "mealprep-recommender")
}

var validate = validator.New()

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.Database == "" || c.Database.Host == "" {
			return fmt.Errorf("database.host and database.database are required for postgres")
		}
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns must not exceed database.max_open_conns")
	}

	if c.AI.Provider != "ollama" && c.AI.APIKey == "" && c.AI.Enabled {
		return fmt.Errorf("ai.api_key is required for provider %s", c.AI.Provider)
	}

	if c.AI.MaxBackoff > 0 && c.AI.InitialBackoff > c.AI.MaxBackoff {
		return fmt.Errorf("ai.initial_backoff must not exceed ai.max_backoff")
	}

	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// RedisAddr returns host:port of the Redis server
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
