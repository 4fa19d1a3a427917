package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. MODELGUARD_RUN_STEPS
const EnvPrefix = "MODELGUARD"

// Config represents the complete modelguard configuration
type Config struct {
	Log      LogConfig      `mapstructure:"log" yaml:"log" json:"log"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine" json:"engine"`
	Run      RunConfig      `mapstructure:"run" yaml:"run" json:"run"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing" json:"tracing"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store" json:"store"`
	Shutdown ShutdownConfig `mapstructure:"shutdown" yaml:"shutdown" json:"shutdown"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "text" or "json"
	Dir    string `mapstructure:"dir" yaml:"dir" json:"dir"`          // empty: stdout only
}

type EngineConfig struct {
	Type      string `mapstructure:"type" yaml:"type" json:"type"` // "auto", "native", "cached"
	CacheSize int    `mapstructure:"cache_size" yaml:"cache_size" json:"cache_size"`
}

type RunConfig struct {
	Model          string  `mapstructure:"model" yaml:"model" json:"model"`
	Steps          int     `mapstructure:"steps" yaml:"steps" json:"steps"`
	InputSize      int     `mapstructure:"input_size" yaml:"input_size" json:"input_size"`
	CallsPerSecond float64 `mapstructure:"calls_per_second" yaml:"calls_per_second" json:"calls_per_second"` // 0: unthrottled
	FailEvery      int     `mapstructure:"fail_every" yaml:"fail_every" json:"fail_every"`                   // 0: never
}

type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Addr        string `mapstructure:"addr" yaml:"addr" json:"addr"`
	TLSCert     string `mapstructure:"tls_cert" yaml:"tls_cert" json:"tls_cert"`
	TLSKey      string `mapstructure:"tls_key" yaml:"tls_key" json:"tls_key"`
	TLSClientCA string `mapstructure:"tls_client_ca" yaml:"tls_client_ca" json:"tls_client_ca"` // enables mTLS
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name" json:"service_name"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver" json:"driver"` // "memory", "sqlite", "postgres"
	DSN    string `mapstructure:"dsn" yaml:"dsn" json:"dsn"`
}

type ShutdownConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.dir", "")
	v.SetDefault("engine.type", "auto")
	v.SetDefault("engine.cache_size", 128)
	v.SetDefault("run.model", "linear")
	v.SetDefault("run.steps", 100)
	v.SetDefault("run.input_size", 8)
	v.SetDefault("run.calls_per_second", 0)
	v.SetDefault("run.fail_every", 0)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9464")
	v.SetDefault("metrics.tls_cert", "")
	v.SetDefault("metrics.tls_key", "")
	v.SetDefault("metrics.tls_client_ca", "")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "modelguard")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", DefaultDBPath())
	v.SetDefault("shutdown.timeout", "10s")
}

// DefaultDBPath returns $HOME/.modelguard/runs.db, or ./modelguard.db without a home directory
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "modelguard.db"
	}
	return filepath.Join(home, ".modelguard", "runs.db")
}

// Load reads configuration into v from cfgFile (or $HOME/.modelguard/config.yaml
// when empty) and the environment, then decodes and validates it.
// A missing default config file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".modelguard"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	var errs []error

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	switch c.Engine.Type {
	case "auto", "native", "cached":
	default:
		errs = append(errs, fmt.Errorf("engine.type must be auto, native or cached, got %q", c.Engine.Type))
	}
	if c.Engine.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("engine.cache_size must not be negative"))
	}
	if c.Run.Steps <= 0 {
		errs = append(errs, fmt.Errorf("run.steps must be positive, got %d", c.Run.Steps))
	}
	if c.Run.InputSize <= 0 {
		errs = append(errs, fmt.Errorf("run.input_size must be positive, got %d", c.Run.InputSize))
	}
	if c.Run.CallsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("run.calls_per_second must not be negative"))
	}
	if c.Run.FailEvery < 0 {
		errs = append(errs, fmt.Errorf("run.fail_every must not be negative"))
	}
	switch c.Store.Driver {
	case "memory", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("store.driver must be memory, sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, fmt.Errorf("metrics.addr is required when metrics are enabled"))
	}
	if (c.Metrics.TLSCert == "") != (c.Metrics.TLSKey == "") {
		errs = append(errs, fmt.Errorf("metrics.tls_cert and metrics.tls_key must be set together"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
