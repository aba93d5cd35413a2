package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// chatRequest is an OpenAI-compatible chat completion request.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is an OpenAI-compatible chat completion response.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// HTTPError carries status context from a failed API call.
type HTTPError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// httpProvider talks to OpenAI-compatible chat completion endpoints.
type httpProvider struct {
	config Config
	http   *http.Client
}

func newHTTPProvider(cfg Config) *httpProvider {
	return &httpProvider{
		config: cfg,
		// The transport client carries no timeout of its own; each call's
		// deadline comes from the per-call context.
		http: &http.Client{},
	}
}

func (p *httpProvider) Name() string {
	return p.config.Provider + "/" + p.config.Model
}

// Generate sends one prompt and returns the response text. A deadline
// overrun is reported as Result.TimedOut alongside the error so callers can
// distinguish timeouts from transport faults.
func (p *httpProvider) Generate(ctx context.Context, prompt string, opts Opts) (Result, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Duration(p.config.TimeoutSecs) * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model := opts.Model
	if model == "" {
		model = p.config.Model
	}

	messages := make([]chatMessage, 0, 2)
	if opts.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: opts.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	req := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}

	// Retry transport-level failures with exponential backoff; a timeout is
	// final because the per-call budget is already spent.
	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		text, err := p.sendChatRequest(callCtx, req)
		if err == nil {
			return Result{Text: text}, nil
		}
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil {
			return Result{ExitCode: 1, TimedOut: true}, fmt.Errorf("generation timed out after %s: %w", timeout, err)
		}

		lastErr = err
		if attempt == p.config.MaxRetries {
			break
		}

		backoff := time.Duration(1<<attempt) * time.Second
		if httpErr, ok := lastErr.(*HTTPError); ok && httpErr.StatusCode == 429 && httpErr.RetryAfter > 0 {
			backoff = httpErr.RetryAfter
		}

		select {
		case <-callCtx.Done():
			return Result{ExitCode: 1, TimedOut: true}, callCtx.Err()
		case <-time.After(backoff):
		}
	}

	return Result{ExitCode: 1}, fmt.Errorf("generation failed after %d attempts: %w", p.config.MaxRetries+1, lastErr)
}

// sendChatRequest performs a single chat completion attempt.
func (p *httpProvider) sendChatRequest(ctx context.Context, req chatRequest) (string, error) {
	requestBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.config.Endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}
	if p.config.Provider == "openrouter" {
		httpReq.Header.Set("HTTP-Referer", "https://github.com/quarrylab/distill")
		httpReq.Header.Set("X-Title", "Distill")
	}

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != 200 {
		var retryAfter time.Duration
		if header := resp.Header.Get("Retry-After"); header != "" {
			if seconds, err := strconv.Atoi(header); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return "", &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			RetryAfter: retryAfter,
		}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("parsing response JSON: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return chatResp.Choices[0].Message.Content, nil
}
