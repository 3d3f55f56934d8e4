package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ragchat/internal/domain"
)

// DefaultSystemMessage is the assistant persona used when none is configured.
const DefaultSystemMessage = "You are a helpful and knowledgeable cybersecurity assistant with experience of over 10 years. " +
	"Be aware of context in ongoing conversations. Try to keep responses relevant and ignore input that is offensive or inappropriate. " +
	"Always prioritize user satisfaction by being polite and patient."

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
	Concurrency int    `yaml:"concurrency"`
}

// GeminiConfig holds the Gemini API settings shared by embedder and completer.
type GeminiConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url,omitempty"`
}

// EmbedderConfig selects and configures the text embedder implementation.
// CacheSize and CacheTTLSecs configure the query embedding LRU; zero disables it.
type EmbedderConfig struct {
	Type         string                `yaml:"type"`
	CacheSize    int                   `yaml:"cache_size"`
	CacheTTLSecs int                   `yaml:"cache_ttl_secs"`
	OpenAI       *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Gemini       *GeminiConfig         `yaml:"gemini,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	ChunkSize int `yaml:"chunk_size"`
}

// RetrievalConfig configures per-turn knowledge retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// VectorStoreConfig selects and configures the vector index implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// CompletionConfig selects the completion service and its default generation parameters.
type CompletionConfig struct {
	Provider    string        `yaml:"provider"`
	BaseURL     string        `yaml:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Stop        []string      `yaml:"stop,omitempty"`
	TimeoutSecs int           `yaml:"timeout_secs"`
	Gemini      *GeminiConfig `yaml:"gemini,omitempty"`
}

// SessionConfig configures the conversation.
type SessionConfig struct {
	SystemMessage string `yaml:"system_message"`
}

// RedisConfig configures the optional transcript archive.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	Prefix      string `yaml:"prefix"`
	TTLSecs     int    `yaml:"ttl_secs"`
}

// TranscriptConfig enables transcript archiving when Redis is set.
type TranscriptConfig struct {
	Redis *RedisConfig `yaml:"redis,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Documents   []string          `yaml:"documents,omitempty"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Completion  CompletionConfig  `yaml:"completion"`
	Session     SessionConfig     `yaml:"session"`
	Transcript  TranscriptConfig  `yaml:"transcript"`
	Log         LogConfig         `yaml:"log"`
}

// LoadEnv loads .env and secrets.env from the working directory if present.
// Variables already set in the environment win.
func LoadEnv() error {
	for _, name := range []string{".env", "secrets.env"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML config data and applies defaults.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/ragchat/config.yaml.
// If neither exists, it writes defaults to ~/.config/ragchat/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings that would make chunking or retrieval undefined.
func (c *AppConfig) Validate() error {
	if c.Chunker.ChunkSize <= 0 {
		return fmt.Errorf("chunker.chunk_size must be positive, got %d: %w", c.Chunker.ChunkSize, domain.ErrInvalidArgument)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d: %w", c.Retrieval.TopK, domain.ErrInvalidArgument)
	}
	if c.Completion.MaxTokens < 0 {
		return fmt.Errorf("completion.max_tokens must not be negative: %w", domain.ErrInvalidArgument)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragchat", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Chunker:     ChunkerConfig{ChunkSize: 500},
		Retrieval:   RetrievalConfig{TopK: 3},
		Embedder:    EmbedderConfig{Type: "tfidf", CacheSize: 256, CacheTTLSecs: 600},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Completion:  CompletionConfig{Provider: "openai"},
		Session:     SessionConfig{SystemMessage: DefaultSystemMessage},
		Log:         LogConfig{Level: "warn"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

// applyConfigDefaults fills zero values only where zero is never a meaningful setting.
// chunk_size and top_k stay as decoded when set so Validate can reject bad values.
func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 500
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "tfidf"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
		if o.BatchSize == 0 {
			o.BatchSize = 32
		}
		if o.Concurrency == 0 {
			o.Concurrency = 4
		}
	}
	if cfg.Embedder.Type == "gemini" {
		if cfg.Embedder.Gemini == nil {
			cfg.Embedder.Gemini = &GeminiConfig{}
		}
		applyGeminiDefaults(cfg.Embedder.Gemini, "text-embedding-004")
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant == nil {
		cfg.VectorStore.Qdrant = &QdrantConfig{}
	}
	if q := cfg.VectorStore.Qdrant; q != nil {
		if q.URL == "" {
			q.URL = "http://localhost:6333"
		}
		if q.Collection == "" {
			q.Collection = "ragchat"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	}
	c := &cfg.Completion
	if c.Provider == "" {
		c.Provider = "openai"
	}
	switch c.Provider {
	case "openai":
		if c.BaseURL == "" {
			c.BaseURL = "https://api.groq.com/openai/v1"
		}
		if c.APIKeyEnv == "" {
			c.APIKeyEnv = "GROQ_API_KEY"
		}
		if c.Model == "" {
			c.Model = "llama3-70b-8192"
		}
	case "gemini":
		if c.Gemini == nil {
			c.Gemini = &GeminiConfig{}
		}
		applyGeminiDefaults(c.Gemini, "gemini-2.0-flash")
		if c.Model == "" {
			c.Model = c.Gemini.Model
		}
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1000
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = 90
	}
	if cfg.Session.SystemMessage == "" {
		cfg.Session.SystemMessage = DefaultSystemMessage
	}
	if r := cfg.Transcript.Redis; r != nil && r.Addr == "" {
		r.Addr = "127.0.0.1:6379"
	}
}

func applyGeminiDefaults(g *GeminiConfig, model string) {
	if g.APIKeyEnv == "" {
		g.APIKeyEnv = "GEMINI_API_KEY"
	}
	if g.Model == "" {
		g.Model = model
	}
}
