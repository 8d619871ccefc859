package config

import (
	"github.com/vietddude/restcall/pgprops"
	"github.com/vietddude/restcall/rediscache"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Client     ClientConfig      `yaml:"client"`
	Properties PropertiesConfig  `yaml:"properties"`
	Redis      rediscache.Config `yaml:"redis"`
	Breaker    BreakerConfig     `yaml:"breaker"`
	Logging    LoggingConfig     `yaml:"logging"`
}

// ClientConfig holds call dispatch settings.
type ClientConfig struct {
	Endpoint        string `yaml:"endpoint"`
	Group           string `yaml:"group"`
	PrependGroupKey bool   `yaml:"prepend_group_key"`
	Cache           string `yaml:"cache"` // "", "memory", "redis"
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// PropertiesConfig selects the sources feeding request properties, in
// precedence order: postgres, file, then environment.
type PropertiesConfig struct {
	File      string         `yaml:"file"`
	UseEnv    bool           `yaml:"use_env"`
	EnvPrefix string         `yaml:"env_prefix"`
	Postgres  pgprops.Config `yaml:"postgres"`
}

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	Enabled                bool `yaml:"enabled"`
	MaxRequests            int  `yaml:"max_requests"`
	IntervalSeconds        int  `yaml:"interval_seconds"`
	OpenTimeoutSeconds     int  `yaml:"open_timeout_seconds"`
	FailureThreshold       int  `yaml:"failure_threshold"`
	ExecutionTimeoutMillis int  `yaml:"execution_timeout_millis"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
