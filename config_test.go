package vctrace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Version != 1 {
		t.Errorf("expected version 1, got %d", cfg.Version)
	}
	if cfg.Embedding.Dimensions != VisualEmbeddingDim {
		t.Errorf("expected embedding dimensions %d, got %d", VisualEmbeddingDim, cfg.Embedding.Dimensions)
	}
	if cfg.Cache.TTLMinutes == 0 || cfg.Cache.Capacity == 0 {
		t.Errorf("expected cache defaults, got %+v", cfg.Cache)
	}
	if cfg.Store.Bucket == "" {
		t.Error("expected default store bucket")
	}
	if !SanitizePrompts(cfg) {
		t.Error("expected prompt sanitizing on by default")
	}
}

func TestConfigDirResolution(t *testing.T) {
	t.Setenv("VCTRACE_CONFIG_DIR", "/custom/vctrace")
	if got := ConfigDir(); got != "/custom/vctrace" {
		t.Errorf("expected /custom/vctrace, got %s", got)
	}

	t.Setenv("VCTRACE_CONFIG_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := ConfigDir(); got != "/xdg/vctrace" {
		t.Errorf("expected /xdg/vctrace, got %s", got)
	}
}

func TestLoadConfigMissingReturnsDefaults(t *testing.T) {
	t.Setenv("VCTRACE_CONFIG_DIR", t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Index.M != DefaultConfig().Index.M {
		t.Errorf("expected default index.m, got %d", cfg.Index.M)
	}
}

func TestLoadConfigFillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VCTRACE_CONFIG_DIR", dir)
	content := `{"remote": {"encoder_url": "http://enc"}, "sanitize": {"prompts": false}, "cache": {"ttl_minutes": 5}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	defaults := DefaultConfig()
	if cfg.Remote.EncoderURL != "http://enc" {
		t.Errorf("expected encoder_url from file, got %q", cfg.Remote.EncoderURL)
	}
	if cfg.Cache.TTLMinutes != 5 {
		t.Errorf("expected ttl_minutes 5, got %d", cfg.Cache.TTLMinutes)
	}
	if cfg.Cache.Capacity != defaults.Cache.Capacity {
		t.Errorf("expected default capacity, got %d", cfg.Cache.Capacity)
	}
	if cfg.Embedding.Model != defaults.Embedding.Model {
		t.Errorf("expected default embedding model, got %q", cfg.Embedding.Model)
	}
	if cfg.Remote.TimeoutSeconds != defaults.Remote.TimeoutSeconds {
		t.Errorf("expected default timeout, got %d", cfg.Remote.TimeoutSeconds)
	}
	if SanitizePrompts(cfg) {
		t.Error("expected explicit sanitize=false to survive default filling")
	}
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VCTRACE_CONFIG_DIR", dir)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestResolveEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Remote.EncoderURL = "http://config-enc"
	cfg.Embedding.APIKey = "config-key"

	t.Setenv("VCTRACE_ENCODER_URL", "")
	if got := ResolveEncoderURL(cfg); got != "http://config-enc" {
		t.Errorf("expected config value, got %q", got)
	}
	t.Setenv("VCTRACE_ENCODER_URL", "http://env-enc")
	if got := ResolveEncoderURL(cfg); got != "http://env-enc" {
		t.Errorf("expected env value, got %q", got)
	}

	t.Setenv("VCTRACE_EMBEDDING_API_BASE_URL", "http://embed")
	t.Setenv("VCTRACE_EMBEDDING_API_KEY", "")
	if !EmbeddingEnabled(cfg) {
		t.Error("expected embedding enabled with env base url and config key")
	}
	if EmbeddingEnabled(nil) {
		t.Error("expected embedding disabled for nil config")
	}

	t.Setenv("VCTRACE_STORE_PATH", "/data/traces.db")
	if got := ResolveStorePath(cfg); got != "/data/traces.db" {
		t.Errorf("expected env store path, got %q", got)
	}
}

func TestTextVectorDim(t *testing.T) {
	if got := TextVectorDim(nil); got != VisualEmbeddingDim {
		t.Errorf("nil config: got %d", got)
	}
	cfg := DefaultConfig()
	cfg.Embedding.Dimensions = 768
	if got := TextVectorDim(cfg); got != 768 {
		t.Errorf("expected 768, got %d", got)
	}
	cfg.Embedding.Dimensions = -3
	if got := TextVectorDim(cfg); got != VisualEmbeddingDim {
		t.Errorf("negative dimensions: got %d", got)
	}
}

func TestValidateConfigWarnings(t *testing.T) {
	for _, env := range []string{"VCTRACE_ENCODER_URL", "VCTRACE_GENERATOR_URL", "VCTRACE_EMBEDDING_API_BASE_URL", "VCTRACE_EMBEDDING_API_KEY", "VCTRACE_STORE_PATH"} {
		t.Setenv(env, "")
	}
	if w := ValidateConfig(nil); len(w) != 0 {
		t.Errorf("expected no warnings for nil config, got %v", w)
	}

	warnings := ValidateConfig(DefaultConfig())
	joined := strings.Join(warnings, "\n")
	for _, want := range []string{"generator_url", "zero text vector", "in memory only"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected warning mentioning %q, got %v", want, warnings)
		}
	}

	cfg := DefaultConfig()
	cfg.Remote.EncoderURL = "http://enc"
	cfg.Remote.GeneratorURL = "http://gen"
	cfg.Embedding.BaseURL = "http://embed"
	cfg.Embedding.APIKey = "key"
	cfg.Store.Path = "/tmp/traces.db"
	if w := ValidateConfig(cfg); len(w) != 0 {
		t.Errorf("expected no warnings for complete config, got %v", w)
	}
}

func TestSocketPath(t *testing.T) {
	tests := []struct {
		name     string
		envSetup func(t *testing.T)
		expected string
	}{
		{
			name: "VCTRACE_SOCKET",
			envSetup: func(t *testing.T) {
				t.Setenv("VCTRACE_SOCKET", "/custom/vctrace.sock")
			},
			expected: "/custom/vctrace.sock",
		},
		{
			name: "XDG_RUNTIME_DIR",
			envSetup: func(t *testing.T) {
				t.Setenv("VCTRACE_SOCKET", "")
				t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
			},
			expected: "/run/user/1000/vctrace.sock",
		},
		{
			name: "fallback",
			envSetup: func(t *testing.T) {
				t.Setenv("VCTRACE_SOCKET", "")
				t.Setenv("XDG_RUNTIME_DIR", "")
			},
			expected: fmt.Sprintf("/tmp/vctrace-%d.sock", os.Getuid()),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.envSetup(t)
			if got := SocketPath(); got != tt.expected {
				t.Errorf("SocketPath() = %s, expected %s", got, tt.expected)
			}
		})
	}
}
