package vctrace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	defaults "github.com/Paranoid-AF/vctrace/default"
)

// Config represents the vctrace daemon configuration.
type Config struct {
	Version   int             `json:"version"`
	Remote    RemoteConfig    `json:"remote"`
	Embedding EmbeddingConfig `json:"embedding"`
	Index     IndexConfig     `json:"index"`
	Cache     CacheConfig     `json:"cache"`
	Store     StoreConfig     `json:"store"`
	Sanitize  SanitizeConfig  `json:"sanitize"`
}

// RemoteConfig holds the endpoints of the remote model collaborators.
// The encoder and generator are mandatory for generation; the decoders are optional.
type RemoteConfig struct {
	EncoderURL      string `json:"encoder_url"`
	GeneratorURL    string `json:"generator_url"`
	ImageDecoderURL string `json:"image_decoder_url,omitempty"`
	AssetDecoderURL string `json:"asset_decoder_url,omitempty"`
	APIKey          string `json:"api_key"`
	EncoderModel    string `json:"encoder_model,omitempty"`
	GeneratorModel  string `json:"generator_model,omitempty"`
	TimeoutSeconds  int    `json:"timeout_seconds,omitempty"`
}

// EmbeddingConfig holds settings for the text embedding API.
type EmbeddingConfig struct {
	BaseURL    string `json:"base_url"`
	APIKey     string `json:"api_key"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

// IndexConfig holds HNSW trace index settings.
type IndexConfig struct {
	M            int    `json:"m,omitempty"`
	EfSearch     int    `json:"ef_search,omitempty"`
	SnapshotPath string `json:"snapshot_path,omitempty"`
}

// CacheConfig holds settings for the recent trace cache.
type CacheConfig struct {
	TTLMinutes int    `json:"ttl_minutes,omitempty"`
	Capacity   uint64 `json:"capacity,omitempty"`
}

// StoreConfig holds settings for the persistent sidecar store.
type StoreConfig struct {
	Path   string `json:"path,omitempty"`
	Bucket string `json:"bucket,omitempty"`
}

// SanitizeConfig controls prompt redaction before storage.
type SanitizeConfig struct {
	Prompts *bool `json:"prompts,omitempty"`
}

// ConfigDir returns the config directory path.
// Resolution order: $VCTRACE_CONFIG_DIR > $XDG_CONFIG_HOME/vctrace > ~/.config/vctrace
func ConfigDir() string {
	if dir := os.Getenv("VCTRACE_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "vctrace")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "vctrace-config")
	}
	return filepath.Join(home, ".config", "vctrace")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// SocketPath returns the daemon's Unix socket path.
// Resolution order: $VCTRACE_SOCKET > $XDG_RUNTIME_DIR/vctrace.sock > /tmp/vctrace-<uid>.sock
func SocketPath() string {
	if path := os.Getenv("VCTRACE_SOCKET"); path != "" {
		return path
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "vctrace.sock")
	}
	return fmt.Sprintf("/tmp/vctrace-%d.sock", os.Getuid())
}

// DefaultConfig returns the default configuration from the embedded default_config.json.
func DefaultConfig() *Config {
	var cfg Config
	if err := json.Unmarshal(defaults.DefaultConfigJSON, &cfg); err != nil {
		panic("vctrace: invalid embedded default_config.json: " + err.Error())
	}
	return &cfg
}

// LoadConfig loads config from disk or returns defaults if not found.
func LoadConfig() (*Config, error) {
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	defaults := DefaultConfig()
	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}
	if cfg.Remote.TimeoutSeconds == 0 {
		cfg.Remote.TimeoutSeconds = defaults.Remote.TimeoutSeconds
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = defaults.Embedding.Model
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = defaults.Embedding.Dimensions
	}
	if cfg.Index.M == 0 {
		cfg.Index.M = defaults.Index.M
	}
	if cfg.Index.EfSearch == 0 {
		cfg.Index.EfSearch = defaults.Index.EfSearch
	}
	if cfg.Cache.TTLMinutes == 0 {
		cfg.Cache.TTLMinutes = defaults.Cache.TTLMinutes
	}
	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = defaults.Cache.Capacity
	}
	if cfg.Store.Bucket == "" {
		cfg.Store.Bucket = defaults.Store.Bucket
	}
	if cfg.Sanitize.Prompts == nil {
		cfg.Sanitize.Prompts = defaults.Sanitize.Prompts
	}

	return &cfg, nil
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	if ResolveEncoderURL(cfg) == "" || ResolveGeneratorURL(cfg) == "" {
		warnings = append(warnings, "encoder_url or generator_url is not configured; generate requests will fail")
	}
	if !EmbeddingEnabled(cfg) {
		warnings = append(warnings, "embedding API is not configured; prompts will be conditioned on a zero text vector")
	}
	if cfg.Embedding.Dimensions < 0 {
		warnings = append(warnings, "embedding.dimensions is negative; the default will be used")
	}
	if ResolveStorePath(cfg) == "" && cfg.Index.SnapshotPath == "" {
		warnings = append(warnings, "neither store.path nor index.snapshot_path is set; traces are kept in memory only")
	}
	return warnings
}

// ResolveEncoderURL returns the encoder endpoint.
// Priority: $VCTRACE_ENCODER_URL env > config value.
func ResolveEncoderURL(cfg *Config) string {
	if url := os.Getenv("VCTRACE_ENCODER_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Remote.EncoderURL
	}
	return ""
}

// ResolveGeneratorURL returns the latent generator endpoint.
// Priority: $VCTRACE_GENERATOR_URL env > config value.
func ResolveGeneratorURL(cfg *Config) string {
	if url := os.Getenv("VCTRACE_GENERATOR_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Remote.GeneratorURL
	}
	return ""
}

// ResolveRemoteAPIKey returns the API key sent to the collaborator endpoints.
// Priority: $VCTRACE_API_KEY env > config value.
func ResolveRemoteAPIKey(cfg *Config) string {
	if key := os.Getenv("VCTRACE_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.Remote.APIKey
	}
	return ""
}

// ResolveEmbeddingBaseURL returns the embedding API base URL.
// Priority: $VCTRACE_EMBEDDING_API_BASE_URL env > config value.
func ResolveEmbeddingBaseURL(cfg *Config) string {
	if url := os.Getenv("VCTRACE_EMBEDDING_API_BASE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Embedding.BaseURL
	}
	return ""
}

// ResolveEmbeddingAPIKey returns the embedding API key.
// Priority: $VCTRACE_EMBEDDING_API_KEY env > config value.
func ResolveEmbeddingAPIKey(cfg *Config) string {
	if key := os.Getenv("VCTRACE_EMBEDDING_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.Embedding.APIKey
	}
	return ""
}

// ResolveStorePath returns the sidecar store path, empty when persistence is off.
// Priority: $VCTRACE_STORE_PATH env > config value.
func ResolveStorePath(cfg *Config) string {
	if path := os.Getenv("VCTRACE_STORE_PATH"); path != "" {
		return path
	}
	if cfg != nil {
		return cfg.Store.Path
	}
	return ""
}

// EmbeddingEnabled returns true when both base_url and api_key are configured for embedding.
func EmbeddingEnabled(cfg *Config) bool {
	if cfg == nil {
		return false
	}
	return ResolveEmbeddingBaseURL(cfg) != "" && ResolveEmbeddingAPIKey(cfg) != ""
}

// SanitizePrompts returns whether prompts are redacted before storage.
func SanitizePrompts(cfg *Config) bool {
	if cfg == nil || cfg.Sanitize.Prompts == nil {
		return true // default true
	}
	return *cfg.Sanitize.Prompts
}

// TextVectorDim returns the dimension of the text conditioning vector.
func TextVectorDim(cfg *Config) int {
	if cfg == nil || cfg.Embedding.Dimensions <= 0 {
		return VisualEmbeddingDim
	}
	return cfg.Embedding.Dimensions
}
