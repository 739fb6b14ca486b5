// Package config loads service configuration from an optional YAML file
// with environment-variable overrides for deployment settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agrimind/advisor/decision"
)

// Duration decodes YAML scalars like "5s" or "6h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Weather  WeatherConfig  `yaml:"weather"`
	Decision DecisionConfig `yaml:"decision"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port           string   `yaml:"port"`
	RequestTimeout Duration `yaml:"request_timeout"`
}

// DatabaseConfig holds storage settings. An empty URL runs the service on
// the in-memory store, which is fine for development and useless for
// anything else.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// WeatherConfig holds provider settings.
type WeatherConfig struct {
	BaseURL        string   `yaml:"base_url"`
	RequestTimeout Duration `yaml:"request_timeout"`
	CacheStaleness Duration `yaml:"cache_staleness"`
}

// DecisionConfig mirrors the orchestrator settings in YAML-friendly form.
type DecisionConfig struct {
	EvaluatorTimeout Duration                   `yaml:"evaluator_timeout"`
	Confidence       decision.ConfidenceConfig `yaml:"confidence"`
}

// DecisionConfig converts the decision section to the orchestrator's
// own config type.
func (c Config) DecisionConfig() decision.Config {
	return decision.Config{
		EvaluatorTimeout: c.Decision.EvaluatorTimeout.Std(),
		Confidence:       c.Decision.Confidence,
	}
}

// Default returns the configuration used when no file is provided.
func Default() Config {
	def := decision.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Port:           "8080",
			RequestTimeout: Duration(60 * time.Second),
		},
		Weather: WeatherConfig{
			RequestTimeout: Duration(5 * time.Second),
			CacheStaleness: Duration(6 * time.Hour),
		},
		Decision: DecisionConfig{
			EvaluatorTimeout: Duration(def.EvaluatorTimeout),
			Confidence:       def.Confidence,
		},
	}
}

// Load reads a YAML config file over the defaults, then applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("WEATHER_BASE_URL"); v != "" {
		c.Weather.BaseURL = v
	}
}
