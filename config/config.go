package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/justiceautomation/legalops/observe"
)

// Global holds the process-wide resilience settings.
type Global struct {
	// MaxConcurrentOperations is the admission-control ceiling.
	MaxConcurrentOperations int `mapstructure:"max_concurrent_operations"`

	// Feature gates for the individual resilience layers.
	EnableHealthChecks    bool `mapstructure:"enable_health_checks"`
	EnableCircuitBreakers bool `mapstructure:"enable_circuit_breakers"`
	EnableRetries         bool `mapstructure:"enable_retries"`
	EnableFallbacks       bool `mapstructure:"enable_fallbacks"`

	// ShutdownTimeout bounds the wait for in-flight operations to drain.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Dependency holds the per-dependency baseline configuration. The
// orchestrator keeps this immutable and scales a working copy during
// degradation.
type Dependency struct {
	Name                       string        `mapstructure:"name"`
	Timeout                    time.Duration `mapstructure:"timeout"`
	MaxRetries                 int           `mapstructure:"max_retries"`
	CircuitBreakerThreshold    int           `mapstructure:"circuit_breaker_threshold"`
	CircuitBreakerResetTimeout time.Duration `mapstructure:"circuit_breaker_reset_timeout"`
	HealthCheckInterval        time.Duration `mapstructure:"health_check_interval"`
	MaxProbeFailures           int           `mapstructure:"max_probe_failures"`
}

// Config is the full resilience-layer configuration.
type Config struct {
	Service      string         `mapstructure:"service"`
	Version      string         `mapstructure:"version"`
	Global       Global         `mapstructure:"global"`
	Dependencies []Dependency   `mapstructure:"dependencies"`
	Telemetry    observe.Config `mapstructure:"telemetry"`
}

// Default returns the baseline configuration with every layer enabled.
func Default() Config {
	return Config{
		Service: "legalops",
		Global: Global{
			MaxConcurrentOperations: 100,
			EnableHealthChecks:      true,
			EnableCircuitBreakers:   true,
			EnableRetries:           true,
			EnableFallbacks:         true,
			ShutdownTimeout:         30 * time.Second,
		},
	}
}

// DefaultDependency fills the per-dependency zero values.
func DefaultDependency(name string) Dependency {
	return Dependency{
		Name:                       name,
		Timeout:                    30 * time.Second,
		MaxRetries:                 3,
		CircuitBreakerThreshold:    5,
		CircuitBreakerResetTimeout: 30 * time.Second,
		HealthCheckInterval:        30 * time.Second,
		MaxProbeFailures:           3,
	}
}

// Load reads configuration from an optional file plus LEGALOPS_* env
// vars layered on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("service", "legalops")
	v.SetDefault("global.max_concurrent_operations", 100)
	v.SetDefault("global.enable_health_checks", true)
	v.SetDefault("global.enable_circuit_breakers", true)
	v.SetDefault("global.enable_retries", true)
	v.SetDefault("global.enable_fallbacks", true)
	v.SetDefault("global.shutdown_timeout", "30s")

	v.SetEnvPrefix("LEGALOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	for i := range cfg.Dependencies {
		applyDependencyDefaults(&cfg.Dependencies[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDependencyDefaults(d *Dependency) {
	def := DefaultDependency(d.Name)
	if d.Timeout <= 0 {
		d.Timeout = def.Timeout
	}
	if d.CircuitBreakerThreshold <= 0 {
		d.CircuitBreakerThreshold = def.CircuitBreakerThreshold
	}
	if d.CircuitBreakerResetTimeout <= 0 {
		d.CircuitBreakerResetTimeout = def.CircuitBreakerResetTimeout
	}
	if d.HealthCheckInterval <= 0 {
		d.HealthCheckInterval = def.HealthCheckInterval
	}
	if d.MaxProbeFailures <= 0 {
		d.MaxProbeFailures = def.MaxProbeFailures
	}
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.Global.MaxConcurrentOperations < 1 {
		return fmt.Errorf("config: max_concurrent_operations must be >= 1, got %d",
			c.Global.MaxConcurrentOperations)
	}

	seen := make(map[string]bool, len(c.Dependencies))
	for _, d := range c.Dependencies {
		if d.Name == "" {
			return fmt.Errorf("config: dependency with empty name")
		}
		if seen[d.Name] {
			return fmt.Errorf("config: duplicate dependency %q", d.Name)
		}
		seen[d.Name] = true

		if d.Timeout <= 0 {
			return fmt.Errorf("config: dependency %q: timeout must be > 0", d.Name)
		}
		if d.MaxRetries < 0 {
			return fmt.Errorf("config: dependency %q: max_retries must be >= 0", d.Name)
		}
		if d.CircuitBreakerThreshold < 1 {
			return fmt.Errorf("config: dependency %q: circuit_breaker_threshold must be >= 1", d.Name)
		}
		if d.CircuitBreakerResetTimeout <= 0 {
			return fmt.Errorf("config: dependency %q: circuit_breaker_reset_timeout must be > 0", d.Name)
		}
		if d.HealthCheckInterval <= 0 {
			return fmt.Errorf("config: dependency %q: health_check_interval must be > 0", d.Name)
		}
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = c.Service
	}
	return c.Telemetry.Validate()
}
