package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tutorpy/api/internal/llm"
)

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Complete(ctx context.Context, msgs []llm.Message, p llm.Params) (llm.Completion, error) {
	if e.APIKey == "" {
		return llm.Completion{}, errors.New("GEMINI_API_KEY is empty: API key not configured")
	}
	system, history, last, err := splitMessages(msgs)
	if err != nil {
		return llm.Completion{}, err
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return llm.Completion{}, err
	}
	defer cl.Close()

	model := e.Model
	if p.Model != "" {
		model = p.Model
	}
	m := cl.GenerativeModel(model)
	if m == nil {
		return llm.Completion{}, fmt.Errorf("gemini: model is nil")
	}
	if p.Temperature > 0 {
		m.SetTemperature(float32(p.Temperature))
	}
	if p.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(p.MaxTokens))
	}
	if system != nil {
		m.SystemInstruction = system
	}

	cs := m.StartChat()
	cs.History = history
	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return llm.Completion{}, classify(err)
	}
	txt := strings.TrimSpace(firstText(resp))
	if txt == "" {
		return llm.Completion{}, fmt.Errorf("gemini: %w", llm.ErrEmptyCompletion)
	}
	return llm.Completion{Content: txt, Engine: e.Name(), Model: model}, nil
}

// splitMessages maps chat-completions messages onto Gemini's shape: system
// messages become the system instruction, assistant turns become "model"
// turns and the final message is sent separately.
func splitMessages(msgs []llm.Message) (*genai.Content, []*genai.Content, string, error) {
	var (
		sys     []genai.Part
		history []*genai.Content
	)
	for _, m := range msgs {
		switch m.Role {
		case "system":
			sys = append(sys, genai.Text(m.Content))
		case "assistant":
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	if len(history) == 0 {
		return nil, nil, "", errors.New("gemini: no user message")
	}
	lastContent := history[len(history)-1]
	history = history[:len(history)-1]
	var last string
	for _, p := range lastContent.Parts {
		if t, ok := p.(genai.Text); ok {
			last += string(t)
		}
	}
	var system *genai.Content
	if len(sys) > 0 {
		system = &genai.Content{Parts: sys}
	}
	return system, history, last, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

// classify rewrites gRPC status codes into the wording llm.Classify matches.
func classify(err error) error {
	switch status.Code(err) {
	case codes.ResourceExhausted:
		return fmt.Errorf("gemini: rate limit exceeded: %w", err)
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("gemini: invalid API key: %w", err)
	}
	return fmt.Errorf("gemini: %w", err)
}
