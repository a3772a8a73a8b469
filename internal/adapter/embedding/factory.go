package embedding

import (
	"fmt"
	"os"
	"time"

	"docsqa/config"
	"docsqa/internal/port"
)

var defaultBaseURLs = map[string]string{
	"openai":   "https://api.openai.com/v1",
	"deepseek": "https://api.deepseek.com/v1",
	"jina":     "https://api.jina.ai/v1",
	"ollama":   "http://localhost:11434/v1",
}

// New builds the embedder selected by cfg.Provider.
// Missing credentials are reported as a *config.ConfigError.
func New(cfg config.EmbeddingConfig) (port.Embedder, error) {
	switch cfg.Provider {
	case "hash":
		return NewHashEmbedder(cfg.Dimension), nil
	case "openai", "deepseek", "jina", "ollama", "custom":
	default:
		return nil, &config.ConfigError{Field: "embedding.provider", Reason: fmt.Sprintf("unknown provider %q", cfg.Provider)}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURLs[cfg.Provider]
	}
	if baseURL == "" {
		return nil, &config.ConfigError{Field: "embedding.base_url", Reason: "required for custom provider"}
	}

	apiKey := ""
	if cfg.Provider == "ollama" {
		apiKey = "ollama"
	}
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, &config.ConfigError{Field: "embedding.api_key_env", Reason: fmt.Sprintf("environment variable %s is not set", cfg.APIKeyEnv)}
		}
	} else if cfg.Provider != "ollama" && cfg.Provider != "custom" {
		return nil, &config.ConfigError{Field: "embedding.api_key_env", Reason: "must name the variable holding the API key"}
	}

	emb, err := NewOpenAICompatibleEmbedder(Options{
		APIKey:            apiKey,
		Model:             cfg.Model,
		BaseURL:           baseURL,
		Dimension:         cfg.Dimension,
		BatchSize:         cfg.BatchSize,
		Timeout:           time.Duration(cfg.TimeoutSecs) * time.Second,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		return nil, &config.ConfigError{Field: "embedding", Reason: err.Error()}
	}
	return emb, nil
}
