package main

import (
	"time"

	"github.com/cppdbc/cppdbc-go/config"
	"github.com/cppdbc/cppdbc-go/cppdbc"
	"github.com/cppdbc/cppdbc-go/pool"
)

// fileConfig is the on-disk/environment shape of a pool configuration,
// tagged for github.com/cppdbc/cppdbc-go/config's koanf-backed loader
// (YAML/JSON file plus CPPDBC_* environment overrides). It mirrors
// every pool.PoolConfig field except Options, which toPoolConfig leaves
// empty when converting.
type fileConfig struct {
	Name                  string `yaml:"name" json:"name" env:"CPPDBC_NAME" envDefault:"default"`
	URL                   string `yaml:"url" json:"url" env:"CPPDBC_URL"`
	Username              string `yaml:"username" json:"username" env:"CPPDBC_USERNAME"`
	Password              string `yaml:"password" json:"password" env:"CPPDBC_PASSWORD"`
	InitialSize           int    `yaml:"initial_size" json:"initial_size" env:"CPPDBC_INITIAL_SIZE" envDefault:"5"`
	MaxSize               int    `yaml:"max_size" json:"max_size" env:"CPPDBC_MAX_SIZE" envDefault:"20"`
	MinIdle               int    `yaml:"min_idle" json:"min_idle" env:"CPPDBC_MIN_IDLE" envDefault:"3"`
	ConnectionTimeoutMS   int    `yaml:"connection_timeout_ms" json:"connection_timeout_ms" env:"CPPDBC_CONNECTION_TIMEOUT_MS" envDefault:"30000"`
	IdleTimeoutMS         int    `yaml:"idle_timeout_ms" json:"idle_timeout_ms" env:"CPPDBC_IDLE_TIMEOUT_MS" envDefault:"300000"`
	ValidationIntervalMS  int    `yaml:"validation_interval_ms" json:"validation_interval_ms" env:"CPPDBC_VALIDATION_INTERVAL_MS" envDefault:"5000"`
	MaxLifetimeMS         int    `yaml:"max_lifetime_ms" json:"max_lifetime_ms" env:"CPPDBC_MAX_LIFETIME_MS" envDefault:"1800000"`
	TestOnBorrow          bool   `yaml:"test_on_borrow" json:"test_on_borrow" env:"CPPDBC_TEST_ON_BORROW" envDefault:"true"`
	TestOnReturn          bool   `yaml:"test_on_return" json:"test_on_return" env:"CPPDBC_TEST_ON_RETURN" envDefault:"false"`
	ValidationQuery       string `yaml:"validation_query" json:"validation_query" env:"CPPDBC_VALIDATION_QUERY" envDefault:"SELECT 1"`
	TransactionIsolation  string `yaml:"transaction_isolation" json:"transaction_isolation" env:"CPPDBC_TRANSACTION_ISOLATION" envDefault:"read-committed"`
}

// LoadPoolConfig reads path (YAML or JSON, auto-detected by extension) with
// CPPDBC_*-prefixed environment overrides and converts it to pool.PoolConfig.
func LoadPoolConfig(path string) (pool.PoolConfig, error) {
	var fc fileConfig
	if err := config.Load(path, &fc); err != nil {
		return pool.PoolConfig{}, err
	}
	return toPoolConfig(fc), nil
}

func toPoolConfig(fc fileConfig) pool.PoolConfig {
	return pool.PoolConfig{
		Name:                 fc.Name,
		URL:                  fc.URL,
		Username:             fc.Username,
		Password:             fc.Password,
		Options:              cppdbc.Options{},
		InitialSize:          fc.InitialSize,
		MaxSize:              fc.MaxSize,
		MinIdle:              fc.MinIdle,
		ConnectionTimeout:    time.Duration(fc.ConnectionTimeoutMS) * time.Millisecond,
		IdleTimeout:          time.Duration(fc.IdleTimeoutMS) * time.Millisecond,
		ValidationInterval:   time.Duration(fc.ValidationIntervalMS) * time.Millisecond,
		MaxLifetime:          time.Duration(fc.MaxLifetimeMS) * time.Millisecond,
		TestOnBorrow:         fc.TestOnBorrow,
		TestOnReturn:         fc.TestOnReturn,
		ValidationQuery:      fc.ValidationQuery,
		TransactionIsolation: cppdbc.IsolationLevel(fc.TransactionIsolation),
	}
}
