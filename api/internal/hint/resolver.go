package hint

import (
	"context"
	"regexp"
	"strings"
)

// Resolver выбирает уровень подсказки для запроса.
type Resolver interface {
	Resolve(ctx context.Context, c Context) (Level, error)
}

// Маркер подсказки в тексте ответа тьютора: "hint", опционально с номером.
var hintMarkerRe = regexp.MustCompile(`(?i)\bhint(?:\s*#?\s*\d+)?\b`)

var escalationPhrases = []string{"next hint", "another hint"}

// HistoryResolver derives the level by scanning the transcript. The transcript
// is the only source of truth; nothing is stored.
type HistoryResolver struct{}

func (HistoryResolver) Resolve(_ context.Context, c Context) (Level, error) {
	return ResolveFromHistory(c.History, c.Message), nil
}

// ResolveFromHistory returns min(previousHints+1, 4), bumped by one (still
// clamped) when message asks for the next hint explicitly.
func ResolveFromHistory(history []Turn, message string) Level {
	level := (Level(CountHints(history)) + 1).Clamp()
	if WantsNextHint(message) {
		level = (level + 1).Clamp()
	}
	return level
}

// CountHints counts assistant turns that carry a hint, either through the
// explicit HintLevel marker or through the textual marker.
func CountHints(history []Turn) int {
	n := 0
	for _, t := range history {
		if t.Role != RoleAssistant {
			continue
		}
		if t.HintLevel > 0 || hintMarkerRe.MatchString(t.Content) {
			n++
		}
	}
	return n
}

func WantsNextHint(message string) bool {
	m := strings.ToLower(message)
	for _, p := range escalationPhrases {
		if strings.Contains(m, p) {
			return true
		}
	}
	return false
}

// RecordReader: источник сохранённой истории подсказок.
type RecordReader interface {
	Get(ctx context.Context, problem string) (Record, error)
}

// CounterResolver reads the stored record of the problem and returns the level
// right after it. It refuses once every level was given.
type CounterResolver struct {
	Records RecordReader
}

func NewCounterResolver(rr RecordReader) *CounterResolver {
	return &CounterResolver{Records: rr}
}

func (r *CounterResolver) Resolve(ctx context.Context, c Context) (Level, error) {
	rec, err := r.Records.Get(ctx, c.Problem)
	if err != nil {
		return 0, err
	}
	return NextLevel(rec)
}

// NextLevel is the level the next stored hint for rec will get.
func NextLevel(rec Record) (Level, error) {
	if rec.Exhausted() {
		return 0, ErrHintsExhausted
	}
	return rec.CurrentLevel + 1, nil
}
