package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Weather.CacheStaleness.Std() != 6*time.Hour {
		t.Errorf("cache staleness = %v", cfg.Weather.CacheStaleness)
	}
	if cfg.Decision.EvaluatorTimeout.Std() != 6*time.Second {
		t.Errorf("evaluator timeout = %v", cfg.Decision.EvaluatorTimeout)
	}
}

func TestLoadFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: "9090"
weather:
  base_url: "http://weather.internal"
  cache_staleness: 2h
decision:
  evaluator_timeout: 3s
  confidence:
    floor: 0.2
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Weather.BaseURL != "http://weather.internal" {
		t.Errorf("base url = %q", cfg.Weather.BaseURL)
	}
	if cfg.Weather.CacheStaleness.Std() != 2*time.Hour {
		t.Errorf("cache staleness = %v, want 2h", cfg.Weather.CacheStaleness)
	}
	if cfg.Decision.EvaluatorTimeout.Std() != 3*time.Second {
		t.Errorf("evaluator timeout = %v, want 3s", cfg.Decision.EvaluatorTimeout)
	}
	if cfg.Decision.Confidence.Floor != 0.2 {
		t.Errorf("confidence floor = %v, want 0.2", cfg.Decision.Confidence.Floor)
	}
	// Untouched keys keep their defaults.
	if cfg.Server.RequestTimeout.Std() != 60*time.Second {
		t.Errorf("request timeout = %v, want default", cfg.Server.RequestTimeout)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load should fail for a missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("WEATHER_BASE_URL", "http://env-weather")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("port = %q, want env override", cfg.Server.Port)
	}
	if cfg.Database.URL != "postgres://env/db" {
		t.Errorf("database url = %q", cfg.Database.URL)
	}
	if cfg.Weather.BaseURL != "http://env-weather" {
		t.Errorf("weather base url = %q", cfg.Weather.BaseURL)
	}
}
