package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"tutorpy/api/internal/llm"
)

const DefaultBaseURL = "https://api.groq.com/openai/v1"

// Engine talks to Groq through its OpenAI-compatible chat completions API.
type Engine struct {
	APIKey  string
	Model   string
	BaseURL string
	httpc   *http.Client
}

func New(key, model string) *Engine {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}
	return &Engine{
		APIKey:  strings.TrimSpace(key),
		Model:   strings.TrimSpace(model),
		BaseURL: DefaultBaseURL,
		httpc:   &http.Client{Timeout: 60 * time.Second, Transport: tr},
	}
}

// WithHTTPClient overrides the internal HTTP client (e.g., for tests or tracing).
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.httpc = c
	}
	return e
}

// WithBaseURL points the engine at another OpenAI-compatible endpoint.
func (e *Engine) WithBaseURL(u string) *Engine {
	if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
		e.BaseURL = u
	}
	return e
}

func (e *Engine) Name() string     { return "groq" }
func (e *Engine) GetModel() string { return e.Model }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (e *Engine) Complete(ctx context.Context, msgs []llm.Message, p llm.Params) (llm.Completion, error) {
	if e.APIKey == "" {
		return llm.Completion{}, fmt.Errorf("GROQ_API_KEY is empty: API key not configured")
	}
	model := e.Model
	if p.Model != "" {
		model = p.Model
	}
	body := chatRequest{
		Model:     model,
		Messages:  msgs,
		MaxTokens: p.MaxTokens,
	}
	if p.Temperature > 0 {
		t := p.Temperature
		body.Temperature = &t
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return llm.Completion{}, fmt.Errorf("groq: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return llm.Completion{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return llm.Completion{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return llm.Completion{}, providerError(resp.StatusCode, x)
	}

	var raw chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return llm.Completion{}, fmt.Errorf("groq: decode response: %w", err)
	}
	if len(raw.Choices) == 0 {
		return llm.Completion{}, fmt.Errorf("groq: %w", llm.ErrEmptyCompletion)
	}
	txt := strings.TrimSpace(raw.Choices[0].Message.Content)
	if txt == "" {
		return llm.Completion{}, fmt.Errorf("groq: %w", llm.ErrEmptyCompletion)
	}
	if raw.Model != "" {
		model = raw.Model
	}
	return llm.Completion{Content: txt, Engine: e.Name(), Model: model}, nil
}

// providerError extracts {"error":{"message":...}} when present, otherwise
// keeps the raw body.
func providerError(status int, body []byte) error {
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		msg = env.Error.Message
	}
	switch status {
	case http.StatusUnauthorized:
		if !strings.Contains(strings.ToLower(msg), "api key") {
			msg = "invalid API key: " + msg
		}
	case http.StatusTooManyRequests:
		if !strings.Contains(strings.ToLower(msg), "rate limit") {
			msg = "rate limit exceeded: " + msg
		}
	}
	return &llm.ProviderError{Engine: "groq", StatusCode: status, Message: msg}
}
