package prompt

import (
	"fmt"
	"strings"

	"tutorpy/api/internal/hint"
	"tutorpy/api/internal/llm"
)

const (
	DefaultMaxHistoryTurns = 10
	DefaultMaxSentences    = 4
	// Editor hints are shorter than chat replies.
	singleShotMaxSentences = 2
)

// Assembler builds the exact message list handed to a completion engine.
type Assembler struct {
	Templates *Templates
	// MaxHistoryTurns caps how many trailing prior turns are replayed.
	MaxHistoryTurns int
	MaxSentences    int
}

func NewAssembler(t *Templates) *Assembler {
	return &Assembler{
		Templates:       t,
		MaxHistoryTurns: DefaultMaxHistoryTurns,
		MaxSentences:    DefaultMaxSentences,
	}
}

type systemData struct {
	Problem      string
	Level        int
	MaxSentences int
	RuntimeError string
}

type hintData struct {
	Problem      string
	Code         string
	History      string
	RuntimeError string
	Level        int
}

// SystemPrompt renders the system message for problem and level.
func (a *Assembler) SystemPrompt(problem string, level hint.Level, runtimeError string, maxSentences int) (string, error) {
	if !level.Valid() {
		return "", fmt.Errorf("level %d: %w", level, hint.ErrLevelOutOfRange)
	}
	return a.Templates.Render(NameSystem, systemData{
		Problem:      strings.TrimSpace(problem),
		Level:        int(level),
		MaxSentences: maxSentences,
		RuntimeError: strings.TrimSpace(runtimeError),
	})
}

// Conversation returns system prompt, the trailing user/assistant turns of
// c.History in original order, and finally c.Message as a user turn.
func (a *Assembler) Conversation(c hint.Context, level hint.Level) ([]llm.Message, error) {
	system, err := a.SystemPrompt(c.Problem, level, c.RuntimeError, a.maxSentences())
	if err != nil {
		return nil, err
	}
	prior := TrailingTurns(c.History, a.MaxHistoryTurns)

	msgs := make([]llm.Message, 0, len(prior)+2)
	msgs = append(msgs, llm.Message{Role: hint.RoleSystem, Content: system})
	for _, t := range prior {
		msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, llm.Message{Role: hint.RoleUser, Content: c.Message})
	return msgs, nil
}

// SingleShot returns the system prompt and one user message that embeds the
// code buffer and rec's hint history. Chat history is never replayed here.
func (a *Assembler) SingleShot(c hint.Context, level hint.Level, rec hint.Record) ([]llm.Message, error) {
	system, err := a.SystemPrompt(c.Problem, level, c.RuntimeError, singleShotMaxSentences)
	if err != nil {
		return nil, err
	}
	user, err := a.Templates.Render(NameHint, hintData{
		Problem:      strings.TrimSpace(c.Problem),
		Code:         strings.TrimRight(c.Code, "\n"),
		History:      hint.HistoryText(rec),
		RuntimeError: strings.TrimSpace(c.RuntimeError),
		Level:        int(level),
	})
	if err != nil {
		return nil, err
	}
	return []llm.Message{
		{Role: hint.RoleSystem, Content: system},
		{Role: hint.RoleUser, Content: user},
	}, nil
}

func (a *Assembler) maxSentences() int {
	if a.MaxSentences > 0 {
		return a.MaxSentences
	}
	return DefaultMaxSentences
}

// TrailingTurns keeps user/assistant turns with non-empty content and returns
// the last max of them (all when max <= 0).
func TrailingTurns(history []hint.Turn, max int) []hint.Turn {
	kept := make([]hint.Turn, 0, len(history))
	for _, t := range history {
		if t.Role != hint.RoleUser && t.Role != hint.RoleAssistant {
			continue
		}
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		kept = append(kept, t)
	}
	if max > 0 && len(kept) > max {
		kept = kept[len(kept)-max:]
	}
	return kept
}
