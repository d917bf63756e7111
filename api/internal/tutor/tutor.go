// Package tutor связывает определение уровня подсказки, сборку промпта,
// вызов LLM и хранилище подсказок.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tutorpy/api/internal/hint"
	"tutorpy/api/internal/llm"
	"tutorpy/api/internal/metrics"
	"tutorpy/api/internal/prompt"
	"tutorpy/api/internal/store"
)

var (
	ErrEmptyMessage = errors.New("message is required")
	ErrEmptyProblem = errors.New("problem is required")
)

const (
	FlowChat   = "chat"
	FlowEditor = "editor"
)

type Service struct {
	Engines   *llm.Engines
	Assembler *prompt.Assembler
	// Store: базовое хранилище; для каждого владельца берётся Store.For(owner).
	Store *store.HintStore
	// Params: температура и лимит токенов; пустая модель значит модель движка.
	Params  llm.Params
	Log     zerolog.Logger
	Metrics *metrics.Metrics
}

type ChatReply struct {
	Reply  string     `json:"reply"`
	Level  hint.Level `json:"hint_level"`
	Engine string     `json:"engine,omitempty"`
	Model  string     `json:"model,omitempty"`
}

type HintReply struct {
	Hint   string      `json:"hint"`
	Level  hint.Level  `json:"level"`
	Record hint.Record `json:"record"`
}

// Chat отвечает на реплику ученика. Уровень берётся из истории диалога,
// хранилище подсказок не трогается.
func (s *Service) Chat(ctx context.Context, choice llm.Choice, c hint.Context) (ChatReply, error) {
	c.Message = strings.TrimSpace(c.Message)
	if c.Message == "" {
		return ChatReply{}, ErrEmptyMessage
	}

	level, err := hint.HistoryResolver{}.Resolve(ctx, c)
	if err != nil {
		return ChatReply{}, err
	}
	msgs, err := s.Assembler.Conversation(c, level)
	if err != nil {
		return ChatReply{}, err
	}
	comp, err := s.complete(ctx, choice, msgs)
	if err != nil {
		return ChatReply{}, err
	}
	s.Metrics.RecordHintLevel(FlowChat, int(level))
	s.Log.Info().
		Str("engine", comp.Engine).
		Int("level", int(level)).
		Int("history", len(c.History)).
		Msg("chat reply")

	return ChatReply{Reply: comp.Content, Level: level, Engine: comp.Engine, Model: comp.Model}, nil
}

// NextHint выдаёт следующую подсказку из редактора и сохраняет её.
// После четвёртой подсказки возвращает hint.ErrHintsExhausted без вызова LLM.
func (s *Service) NextHint(ctx context.Context, owner string, choice llm.Choice, c hint.Context) (HintReply, error) {
	if strings.TrimSpace(c.Problem) == "" {
		return HintReply{}, ErrEmptyProblem
	}
	hs := s.Store.For(owner)

	level, err := hint.NewCounterResolver(hs).Resolve(ctx, c)
	if err != nil {
		return HintReply{}, err
	}
	rec, err := hs.Get(ctx, c.Problem)
	if err != nil {
		return HintReply{}, err
	}
	msgs, err := s.Assembler.SingleShot(c, level, rec)
	if err != nil {
		return HintReply{}, err
	}
	comp, err := s.complete(ctx, choice, msgs)
	if err != nil {
		return HintReply{}, err
	}

	rec, err = hs.Append(ctx, c.Problem, comp.Content)
	if err != nil {
		return HintReply{}, err
	}
	s.Metrics.RecordHintLevel(FlowEditor, int(level))
	s.Log.Info().
		Str("owner", owner).
		Str("problem_id", rec.ProblemID).
		Int("level", int(rec.CurrentLevel)).
		Msg("hint stored")

	return HintReply{Hint: comp.Content, Level: rec.CurrentLevel, Record: rec}, nil
}

// Hints возвращает историю подсказок владельца по задаче.
func (s *Service) Hints(ctx context.Context, owner, problem string) (hint.Record, error) {
	if strings.TrimSpace(problem) == "" {
		return hint.Record{}, ErrEmptyProblem
	}
	return s.Store.For(owner).Get(ctx, problem)
}

func (s *Service) Reset(ctx context.Context, owner, problem string) error {
	if strings.TrimSpace(problem) == "" {
		return ErrEmptyProblem
	}
	return s.Store.For(owner).Reset(ctx, problem)
}

// complete вызывает выбранный движок; модель из choice действует только на
// этот запрос.
func (s *Service) complete(ctx context.Context, choice llm.Choice, msgs []llm.Message) (llm.Completion, error) {
	eng, err := s.Engines.GetEngine(choice.Engine)
	if err != nil {
		return llm.Completion{}, err
	}
	p := s.Params
	if m := strings.TrimSpace(choice.Model); m != "" {
		p.Model = m
	}
	start := time.Now()
	comp, err := eng.Complete(ctx, msgs, p)
	if err == nil && strings.TrimSpace(comp.Content) == "" {
		// пустой ответ не должен занять уровень подсказки
		err = llm.ErrEmptyCompletion
	}
	s.Metrics.RecordCompletion(eng.Name(), time.Since(start), err)
	if err != nil {
		s.Log.Error().Err(err).
			Str("engine", eng.Name()).
			Str("kind", llm.Classify(err).String()).
			Msg("completion failed")
		return llm.Completion{}, fmt.Errorf("%s: %w", eng.Name(), err)
	}
	if comp.Engine == "" {
		comp.Engine = eng.Name()
	}
	if comp.Model == "" {
		comp.Model = p.Model
	}
	if comp.Model == "" {
		comp.Model = eng.GetModel()
	}
	return comp, nil
}
