// Package llm adapts external text-generation services behind a single
// Provider interface. The pipeline treats the service as opaque: it sends a
// prompt and consumes the returned text plus call status, nothing more.
//
// Two adapter families exist:
// - OpenAI-compatible HTTP endpoints (ollama, openai, openrouter, custom)
// - an external command invoked per call with a timeout ("cli")
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Result is the outcome of a single generation call.
type Result struct {
	Text     string
	ExitCode int  // 0 on success; process exit code for the cli provider
	TimedOut bool // call exceeded its per-call timeout
}

// Opts configures a single generation call.
type Opts struct {
	Model       string        // override the provider's default model
	Timeout     time.Duration // per-call timeout (0 = provider default)
	System      string        // system prompt (HTTP providers only)
	Temperature float64
	MaxTokens   int
}

// Provider is the opaque inference-service contract.
type Provider interface {
	Generate(ctx context.Context, prompt string, opts Opts) (Result, error)
	Name() string
}

// NewProvider creates a Provider from resolved configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama", "openai", "openrouter", "custom":
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return newHTTPProvider(cfg), nil
	case "cli":
		if strings.TrimSpace(cfg.Command) == "" {
			return nil, fmt.Errorf("cli provider requires a command")
		}
		return &cliProvider{command: cfg.Command, args: cfg.Args}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: ollama, openai, openrouter, custom, cli)", cfg.Provider)
	}
}
