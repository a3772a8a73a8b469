package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the docs assistant.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Index     IndexConfig     `yaml:"index"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Generate  GenerateConfig  `yaml:"generate"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CorpusConfig selects the documentation files to ingest.
type CorpusConfig struct {
	Root     string   `yaml:"root"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// IndexConfig holds chunking and persistence configuration.
type IndexConfig struct {
	Path         string   `yaml:"path"`
	ChunkSize    int      `yaml:"chunk_size"`    // characters
	ChunkOverlap int      `yaml:"chunk_overlap"` // characters
	Separators   []string `yaml:"separators"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK     int     `yaml:"top_k"`
	MinScore float64 `yaml:"min_score"` // 0 = disabled
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"` // "openai", "ollama", "jina", "hash"
	Model             string  `yaml:"model"`
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Dimension         int     `yaml:"dimension"` // 0 = provider default
	BatchSize         int     `yaml:"batch_size"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
}

// GenerateConfig holds language model configuration.
type GenerateConfig struct {
	Provider           string  `yaml:"provider"` // "groq", "openai", "deepseek", "ollama", "anthropic"
	Model              string  `yaml:"model"`
	BaseURL            string  `yaml:"base_url"`
	APIKeyEnv          string  `yaml:"api_key_env"`
	TimeoutSecs        int     `yaml:"timeout_secs"`
	MaxTokens          int     `yaml:"max_tokens"`
	Temperature        float64 `yaml:"temperature"`
	ContextTokenBudget int     `yaml:"context_token_budget"`
	PromptTemplate     string  `yaml:"prompt_template"` // optional template file
}

// ServerConfig holds query API configuration.
type ServerConfig struct {
	Addr               string `yaml:"addr"`
	QueryShape         string `yaml:"query_shape"` // "object", "string", "auto"
	RequestTimeoutSecs int    `yaml:"request_timeout_secs"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Root:     "docs",
			Includes: []string{"**/*.txt", "**/*.md", "**/*.rst"},
			Excludes: []string{"**/.git/**", "**/node_modules/**", "**/.rag/**"},
		},
		Index: IndexConfig{
			Path:         filepath.Join(".rag", "index.db"),
			ChunkSize:    1000,
			ChunkOverlap: 200,
			Separators:   []string{"\n\n", "\n", ". ", "! ", "? ", " "},
		},
		Retrieve: RetrieveConfig{
			TopK: 4,
		},
		// Model and Dimension stay unset so each provider applies its own.
		Embedding: EmbeddingConfig{
			Provider:    "hash",
			BatchSize:   64,
			TimeoutSecs: 60,
		},
		Generate: GenerateConfig{
			Provider:           "groq",
			Model:              "llama3-8b-8192",
			APIKeyEnv:          "GROQ_API_KEY",
			TimeoutSecs:        60,
			MaxTokens:          1024,
			Temperature:        0.2,
			ContextTokenBudget: 3000,
		},
		Server: ServerConfig{
			Addr:               "127.0.0.1:8000",
			QueryShape:         "object",
			RequestTimeoutSecs: 120,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ConfigError reports an invalid or missing configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// Validate checks the values the core relies on.
func (c *Config) Validate() error {
	switch {
	case c.Index.Path == "":
		return &ConfigError{Field: "index.path", Reason: "must not be empty"}
	case c.Index.ChunkSize <= 0:
		return &ConfigError{Field: "index.chunk_size", Reason: "must be positive"}
	case c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize:
		return &ConfigError{Field: "index.chunk_overlap", Reason: "must be in [0, chunk_size)"}
	case c.Retrieve.TopK <= 0:
		return &ConfigError{Field: "retrieve.top_k", Reason: "must be positive"}
	case c.Retrieve.MinScore < -1 || c.Retrieve.MinScore > 1:
		return &ConfigError{Field: "retrieve.min_score", Reason: "must be a cosine similarity in [-1, 1]"}
	case c.Embedding.Provider == "":
		return &ConfigError{Field: "embedding.provider", Reason: "must not be empty"}
	case c.Embedding.Dimension < 0:
		return &ConfigError{Field: "embedding.dimension", Reason: "must not be negative"}
	case c.Generate.Provider == "":
		return &ConfigError{Field: "generate.provider", Reason: "must not be empty"}
	case c.Generate.ContextTokenBudget <= 0:
		return &ConfigError{Field: "generate.context_token_budget", Reason: "must be positive"}
	}

	switch c.Server.QueryShape {
	case "object", "string", "auto":
	default:
		return &ConfigError{Field: "server.query_shape", Reason: fmt.Sprintf("unknown shape %q", c.Server.QueryShape)}
	}
	return nil
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for rag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "rag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".rag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ResolvePath makes p absolute relative to dir.
func ResolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// IndexPath returns the index location for a project directory.
func (c *Config) IndexPath(dir string) string {
	return ResolvePath(dir, c.Index.Path)
}

// CorpusRoot returns the corpus directory for a project directory.
func (c *Config) CorpusRoot(dir string) string {
	return ResolvePath(dir, c.Corpus.Root)
}
