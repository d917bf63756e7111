package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tutorpy/api/internal/hint"
	"tutorpy/api/internal/metrics"
)

const keyPrefix = "tutorpy_hints"

// HintStore хранит историю подсказок по задачам для одного владельца
// (пользователь API или чат Telegram).
type HintStore struct {
	kv      KV
	ns      string
	now     func() time.Time
	log     zerolog.Logger
	metrics *metrics.Metrics
}

type Option func(*HintStore)

func WithClock(now func() time.Time) Option { return func(s *HintStore) { s.now = now } }

func WithLogger(l zerolog.Logger) Option { return func(s *HintStore) { s.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *HintStore) { s.metrics = m } }

// NewHintStore создаёт хранилище для пространства имён ns (например, id пользователя).
func NewHintStore(kv KV, ns string, opts ...Option) *HintStore {
	s := &HintStore{kv: kv, ns: strings.TrimSpace(ns), now: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// For возвращает хранилище того же бэкенда для другого владельца.
func (s *HintStore) For(ns string) *HintStore {
	cp := *s
	cp.ns = strings.TrimSpace(ns)
	return &cp
}

func (s *HintStore) Namespace() string { return s.ns }

// Key: ключ записи в KV: tutorpy_hints:<ns>:problem_<hash>.
func (s *HintStore) Key(problem string) string {
	id := hint.ProblemID(problem)
	if s.ns == "" {
		return keyPrefix + ":" + id
	}
	return keyPrefix + ":" + s.ns + ":" + id
}

// Get возвращает сохранённую запись или пустую, если её нет.
// Битый JSON не ошибка: пишем warn и отдаём пустую запись.
func (s *HintStore) Get(ctx context.Context, problem string) (hint.Record, error) {
	rec, err := s.get(ctx, problem)
	s.metrics.RecordStoreOperation("get", err)
	return rec, err
}

func (s *HintStore) get(ctx context.Context, problem string) (hint.Record, error) {
	key := s.Key(problem)
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return hint.NewRecord(problem), nil
	}
	if err != nil {
		return hint.Record{}, fmt.Errorf("load hints %s: %w", key, err)
	}

	var rec hint.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.corrupt(key, err)
		return hint.NewRecord(problem), nil
	}
	if rec.Hints == nil {
		rec.Hints = []hint.Entry{}
	}
	if err := rec.Validate(); err != nil {
		s.corrupt(key, err)
		return hint.NewRecord(problem), nil
	}
	return rec, nil
}

func (s *HintStore) corrupt(key string, err error) {
	s.metrics.RecordCorruptRecord()
	s.log.Warn().Err(err).Str("key", key).Msg("stored hint record is corrupt, using empty record")
}

// Save проверяет инвариант записи и сохраняет её целиком.
func (s *HintStore) Save(ctx context.Context, rec hint.Record) error {
	err := s.save(ctx, rec)
	s.metrics.RecordStoreOperation("save", err)
	return err
}

func (s *HintStore) save(ctx context.Context, rec hint.Record) error {
	if rec.Hints == nil {
		rec.Hints = []hint.Entry{}
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid hint record: %w", err)
	}
	js, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal hint record: %w", err)
	}
	key := s.Key(rec.Problem)
	if err := s.kv.Set(ctx, key, js); err != nil {
		return fmt.Errorf("save hints %s: %w", key, err)
	}
	return nil
}

// Append добавляет следующую подсказку (уровень currentLevel+1).
// После четвёртой подсказки возвращает hint.ErrHintsExhausted и ничего не пишет.
func (s *HintStore) Append(ctx context.Context, problem, text string) (hint.Record, error) {
	rec, err := s.appendHint(ctx, problem, text)
	s.metrics.RecordStoreOperation("append", err)
	return rec, err
}

func (s *HintStore) appendHint(ctx context.Context, problem, text string) (hint.Record, error) {
	rec, err := s.get(ctx, problem)
	if err != nil {
		return hint.Record{}, err
	}
	level, err := hint.NextLevel(rec)
	if err != nil {
		return rec, err
	}
	rec.Hints = append(rec.Hints, hint.Entry{
		Level:     level,
		Hint:      text,
		Timestamp: s.now().UnixMilli(),
	})
	rec.CurrentLevel = level
	if err := s.save(ctx, rec); err != nil {
		return hint.Record{}, err
	}
	s.log.Debug().Str("problem_id", rec.ProblemID).Int("level", int(level)).Msg("hint appended")
	return rec, nil
}

// Reset удаляет запись; повторный вызов ничего не меняет.
func (s *HintStore) Reset(ctx context.Context, problem string) error {
	key := s.Key(problem)
	err := s.kv.Delete(ctx, key)
	if err != nil {
		err = fmt.Errorf("reset hints %s: %w", key, err)
	}
	s.metrics.RecordStoreOperation("reset", err)
	return err
}

// HistoryText: строки "Level n: text" для подсказок записи.
func (s *HintStore) HistoryText(rec hint.Record) string { return hint.HistoryText(rec) }
