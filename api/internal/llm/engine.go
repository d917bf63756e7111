package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Message: сообщение в формате chat completions.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params: параметры генерации. Нулевые значения означают дефолты движка.
type Params struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

type Completion struct {
	Content string
	Engine  string
	Model   string
}

type Engine interface {
	Name() string
	GetModel() string
	Complete(ctx context.Context, msgs []Message, p Params) (Completion, error)
}

var (
	ErrUnknownEngine   = errors.New("unknown llm_name; use 'groq' or 'gemini'")
	// ErrEmptyCompletion: движок ответил без текста.
	ErrEmptyCompletion = errors.New("empty response")
)

// Engines: набор сконфигурированных движков; nil означает «не настроен».
type Engines struct {
	Groq   Engine
	Gemini Engine
	// Default is used when llm_name is empty.
	Default string
}

func (e *Engines) GetEngine(llmName string) (Engine, error) {
	name := strings.ToLower(strings.TrimSpace(llmName))
	if name == "" {
		name = e.Default
	}
	var eng Engine
	switch name {
	case "groq", "llama":
		eng = e.Groq
	case "gemini", "google":
		eng = e.Gemini
	}
	if eng == nil {
		return nil, ErrUnknownEngine
	}
	return eng, nil
}

// Choice: движок и модель для одного запроса. Пустые поля означают
// движок по умолчанию и модель движка.
type Choice struct {
	Engine string
	Model  string
}

type selection struct {
	eng   Engine
	model string
}

// Manager хранит выбранный движок и модель для каждого чата.
// Сами движки общие для всех чатов и не меняются.
type Manager struct {
	def Engine
	m   sync.Map // chatID -> selection
}

func NewManager(defaultEngine Engine) *Manager {
	return &Manager{def: defaultEngine}
}

func (m *Manager) Get(chatID int64) Engine {
	if v, ok := m.m.Load(chatID); ok {
		return v.(selection).eng
	}
	return m.def
}

// Model возвращает модель чата, а если она не выбрана, модель его движка.
func (m *Manager) Model(chatID int64) string {
	if v, ok := m.m.Load(chatID); ok {
		sel := v.(selection)
		if sel.model != "" {
			return sel.model
		}
		return sel.eng.GetModel()
	}
	if m.def == nil {
		return ""
	}
	return m.def.GetModel()
}

// Choice возвращает выбор чата для передачи в запрос.
func (m *Manager) Choice(chatID int64) Choice {
	if v, ok := m.m.Load(chatID); ok {
		sel := v.(selection)
		return Choice{Engine: sel.eng.Name(), Model: sel.model}
	}
	if m.def == nil {
		return Choice{}
	}
	return Choice{Engine: m.def.Name()}
}

// Set выбирает движок для чата; пустая model означает модель движка.
func (m *Manager) Set(chatID int64, e Engine, model string) {
	m.m.Store(chatID, selection{eng: e, model: strings.TrimSpace(model)})
}
