package llm

import (
	"fmt"
	"os"
	"time"

	"docsqa/config"
	"docsqa/internal/port"
)

// Provider configurations
var providers = map[string]struct {
	baseURL   string
	keyEnvVar string
}{
	"groq":      {"https://api.groq.com/openai/v1", "GROQ_API_KEY"},
	"openai":    {"https://api.openai.com/v1", "OPENAI_API_KEY"},
	"deepseek":  {"https://api.deepseek.com/v1", "DEEPSEEK_API_KEY"},
	"ollama":    {"http://localhost:11434/v1", ""},
	"anthropic": {"", "ANTHROPIC_API_KEY"},
	"custom":    {"", ""},
}

// New builds the generator selected by cfg.Provider. A missing API key is a
// *config.ConfigError returned to the caller rather than a startup panic.
func New(cfg config.GenerateConfig) (port.LLM, error) {
	p, ok := providers[cfg.Provider]
	if !ok {
		return nil, &config.ConfigError{Field: "generate.provider", Reason: fmt.Sprintf("unknown provider %q", cfg.Provider)}
	}

	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = p.keyEnvVar
	}
	apiKey := ""
	if keyEnv != "" {
		apiKey = os.Getenv(keyEnv)
		if apiKey == "" && cfg.Provider != "ollama" && cfg.Provider != "custom" {
			return nil, &config.ConfigError{Field: "generate.api_key_env", Reason: fmt.Sprintf("environment variable %s is not set", keyEnv)}
		}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = p.baseURL
	}

	opts := Options{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     time.Duration(cfg.TimeoutSecs) * time.Second,
	}

	var (
		gen port.LLM
		err error
	)
	if cfg.Provider == "anthropic" {
		gen, err = NewAnthropicClient(opts)
	} else {
		gen, err = NewChatClient(opts)
	}
	if err != nil {
		return nil, &config.ConfigError{Field: "generate", Reason: err.Error()}
	}
	return gen, nil
}
