package llm

import (
	"fmt"
	"os"
	"strings"
)

// Config holds inference-service configuration.
type Config struct {
	Provider    string // "ollama", "openai", "openrouter", "custom", "cli"
	Model       string // model name (HTTP providers)
	Endpoint    string // full API URL (HTTP providers)
	APIKey      string
	Command     string   // executable (cli provider)
	Args        []string // fixed arguments (cli provider)
	MaxRetries  int      // default: 3
	TimeoutSecs int      // per-request timeout (default: 60)
}

// ParseModelFlag parses "--model provider/model" format.
// Handles model names that themselves contain slashes and colons, like
// "openrouter/google/gemini-2.0-flash-exp:free". The "cli" provider treats
// everything after the first slash as the command to run.
func ParseModelFlag(flag string) (Config, error) {
	if flag == "" {
		return Config{}, fmt.Errorf("empty model flag")
	}

	slashIdx := strings.Index(flag, "/")
	if slashIdx == -1 {
		return Config{}, fmt.Errorf("invalid --model format: expected 'provider/model', got %q", flag)
	}

	provider := flag[:slashIdx]
	model := flag[slashIdx+1:]

	if provider == "" {
		return Config{}, fmt.Errorf("empty provider in --model flag: %q", flag)
	}
	if model == "" {
		return Config{}, fmt.Errorf("empty model in --model flag: %q", flag)
	}

	config := Config{
		Provider:    provider,
		Model:       model,
		MaxRetries:  3,
		TimeoutSecs: 60,
	}

	switch provider {
	case "ollama":
		config.Endpoint = "http://localhost:11434/v1/chat/completions"
		// No API key needed for Ollama
	case "openai":
		config.Endpoint = "https://api.openai.com/v1/chat/completions"
		config.APIKey = os.Getenv("OPENAI_API_KEY")
	case "openrouter":
		config.Endpoint = "https://openrouter.ai/api/v1/chat/completions"
		config.APIKey = os.Getenv("OPENROUTER_API_KEY")
	case "custom":
		config.Endpoint = os.Getenv("DISTILL_LLM_ENDPOINT")
		config.APIKey = os.Getenv("DISTILL_LLM_API_KEY")
	case "cli":
		// "cli/<command>" — the model portion is the executable to run.
		fields := strings.Fields(model)
		if len(fields) == 0 {
			return Config{}, fmt.Errorf("empty command in --model flag: %q", flag)
		}
		config.Command = fields[0]
		config.Args = fields[1:]
		config.Model = ""
	default:
		return Config{}, fmt.Errorf("unknown provider %q. Supported: ollama, openai, openrouter, custom, cli", provider)
	}

	// Allow environment variable overrides
	if endpoint := os.Getenv("DISTILL_LLM_ENDPOINT"); endpoint != "" && provider != "cli" {
		config.Endpoint = endpoint
	}
	if apiKey := os.Getenv("DISTILL_LLM_API_KEY"); apiKey != "" {
		config.APIKey = apiKey
	}

	return config, nil
}

// Validate checks an HTTP provider configuration for completeness.
func (c Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.Provider != "ollama" && c.Provider != "custom" && c.APIKey == "" {
		return fmt.Errorf("API key is required for provider %q (set via environment variable)", c.Provider)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.TimeoutSecs <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
