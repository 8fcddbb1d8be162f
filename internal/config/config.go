package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the process configuration, read from EXCHANGE_-prefixed
// environment variables with an optional yaml file on top.
type Config struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	LogLevel        string        `mapstructure:"log_level"`
	ExchangeAccount string        `mapstructure:"exchange_account"`
	OperatorAccount string        `mapstructure:"operator_account"`
	PostgresDSN     string        `mapstructure:"postgres_dsn"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	RateInterval    time.Duration `mapstructure:"rate_interval"`
}

// Load reads configuration. file may be empty; environment always applies.
func Load(file string) (*Config, error) {
	v := viper.New()
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("exchange_account", "exchange")
	v.SetDefault("operator_account", "exchange")
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("rate_interval", 100*time.Millisecond)

	v.SetEnvPrefix("EXCHANGE")
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}
