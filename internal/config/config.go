package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

// SMTPConfig supplies deployment defaults for the delivery transport. The
// central dispatch settings row overrides these at runtime. Credentials can
// come from SMTP_* environment variables instead of the config file.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled" envconfig:"ENABLED"`
	Host     string        `mapstructure:"host" envconfig:"HOST"`
	Port     int           `mapstructure:"port" envconfig:"PORT"`
	User     string        `mapstructure:"user" envconfig:"USER"`
	Password string        `mapstructure:"password" envconfig:"PASSWORD"`
	From     string        `mapstructure:"from" envconfig:"FROM"`
	Timeout  time.Duration `mapstructure:"timeout" envconfig:"TIMEOUT"`
}

type DispatchConfig struct {
	HourlyCeiling  int           `mapstructure:"hourly_ceiling"`
	DailyCeiling   int           `mapstructure:"daily_ceiling"`
	JoinBaseURL    string        `mapstructure:"join_base_url"`
	LogPageSize    int           `mapstructure:"log_page_size"`
	RetentionDays  int           `mapstructure:"retention_days"`
	CleanupEvery   time.Duration `mapstructure:"cleanup_interval"`
	JoinCacheTTL   time.Duration `mapstructure:"join_cache_ttl"`
	JoinCacheSweep time.Duration `mapstructure:"join_cache_sweep"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// SMTP credentials may live only in the environment.
	if err := envconfig.Process("SMTP", &config.SMTP); err != nil {
		return nil, fmt.Errorf("failed to process SMTP env config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)
	viper.SetDefault("server.request_timeout", 30*time.Second)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("jwt.expiry_hours", 24)
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.timeout", 10*time.Second)
	viper.SetDefault("dispatch.hourly_ceiling", 20)
	viper.SetDefault("dispatch.daily_ceiling", 100)
	viper.SetDefault("dispatch.log_page_size", 100)
	viper.SetDefault("dispatch.retention_days", 365)
	viper.SetDefault("dispatch.cleanup_interval", time.Hour)
	viper.SetDefault("dispatch.join_cache_ttl", 30*time.Second)
	viper.SetDefault("dispatch.join_cache_sweep", 5*time.Minute)
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests_per_second", 50)
	viper.SetDefault("rate_limit.burst", 100)
}
