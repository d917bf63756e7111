package hint

import (
	"errors"
	"fmt"
	"strings"
)

// Level: ступень прогрессивной подсказки (1..4).
type Level int

const (
	LevelConceptual Level = 1 // что за идея нужна
	LevelSyntax     Level = 2 // какой синтаксический элемент нужен
	LevelLogic      Level = 3 // какого шага логики не хватает
	LevelDebug      Level = 4 // конкретная ошибка

	MinLevel = LevelConceptual
	MaxLevel = LevelDebug
)

var (
	ErrHintsExhausted  = errors.New("all hint levels already given")
	ErrLevelOutOfRange = errors.New("hint level out of range")
)

func (l Level) Valid() bool { return l >= MinLevel && l <= MaxLevel }

// Clamp pins l into [MinLevel, MaxLevel].
func (l Level) Clamp() Level {
	switch {
	case l < MinLevel:
		return MinLevel
	case l > MaxLevel:
		return MaxLevel
	}
	return l
}

func (l Level) String() string {
	switch l {
	case LevelConceptual:
		return "conceptual"
	case LevelSyntax:
		return "syntax"
	case LevelLogic:
		return "logic"
	case LevelDebug:
		return "debug"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn: одна реплика диалога. HintLevel заполняется для ответов тьютора,
// выданных этим сервисом, и служит явной меткой уровня.
type Turn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	HintLevel Level  `json:"hint_level,omitempty"`
}

// Entry: одна выданная подсказка в истории задачи.
type Entry struct {
	Level     Level  `json:"level"`
	Hint      string `json:"hint"`
	Timestamp int64  `json:"timestamp"` // unix ms
}

// Record: история подсказок по одной задаче.
// CurrentLevel == len(Hints) и не превышает MaxLevel.
type Record struct {
	ProblemID    string  `json:"problemId"`
	Problem      string  `json:"problem"`
	Hints        []Entry `json:"hints"`
	CurrentLevel Level   `json:"currentLevel"`
}

// NewRecord returns the zero-value record for problem.
func NewRecord(problem string) Record {
	return Record{
		ProblemID: ProblemID(problem),
		Problem:   problem,
		Hints:     []Entry{},
	}
}

// Exhausted reports whether every level has been handed out.
func (r Record) Exhausted() bool { return r.CurrentLevel >= MaxLevel }

// Validate checks the record invariants.
func (r Record) Validate() error {
	if r.ProblemID != ProblemID(r.Problem) {
		return fmt.Errorf("problem id %q does not match problem text", r.ProblemID)
	}
	if int(r.CurrentLevel) != len(r.Hints) {
		return fmt.Errorf("current level %d != %d hints", r.CurrentLevel, len(r.Hints))
	}
	if r.CurrentLevel < 0 || r.CurrentLevel > MaxLevel {
		return fmt.Errorf("current level %d: %w", r.CurrentLevel, ErrLevelOutOfRange)
	}
	for i, h := range r.Hints {
		if h.Level != Level(i+1) {
			return fmt.Errorf("hint #%d has level %d", i+1, h.Level)
		}
	}
	return nil
}

// Context: всё, что известно о запросе: задача, история, текущее сообщение,
// код из редактора и последняя ошибка выполнения.
type Context struct {
	Problem      string
	History      []Turn
	Message      string
	Code         string
	RuntimeError string
}

// NoHintsText is what HistoryText returns for a record without hints.
const NoHintsText = "No previous hints given."

// HistoryText renders hints as "Level {n}: {text}" lines.
func HistoryText(r Record) string {
	if len(r.Hints) == 0 {
		return NoHintsText
	}
	lines := make([]string, 0, len(r.Hints))
	for _, h := range r.Hints {
		lines = append(lines, fmt.Sprintf("Level %d: %s", h.Level, h.Hint))
	}
	return strings.Join(lines, "\n")
}
