package telegram

import (
	"strconv"
	"sync"

	"tutorpy/api/internal/hint"
)

// maxTurns: сколько реплик чата держим в памяти; в промпт уходят только последние.
const maxTurns = 40

// session: состояние одного чата: текущая задача, код, ошибка и история.
type session struct {
	mu           sync.Mutex
	Problem      string
	Code         string
	RuntimeError string
	History      []hint.Turn
}

func (r *Router) session(chatID int64) *session {
	v, _ := r.sessions.LoadOrStore(chatID, &session{})
	return v.(*session)
}

// snapshot возвращает копию состояния для сборки контекста.
func (s *session) snapshot(message string) hint.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return hint.Context{
		Problem:      s.Problem,
		History:      append([]hint.Turn(nil), s.History...),
		Message:      message,
		Code:         s.Code,
		RuntimeError: s.RuntimeError,
	}
}

func (s *session) addTurns(turns ...hint.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = append(s.History, turns...)
	if len(s.History) > maxTurns {
		s.History = append([]hint.Turn(nil), s.History[len(s.History)-maxTurns:]...)
	}
}

// setProblem начинает новую задачу: код, ошибка и история чата сбрасываются.
func (s *session) setProblem(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Problem = p
	s.Code = ""
	s.RuntimeError = ""
	s.History = nil
}

func (s *session) setCode(code string) {
	s.mu.Lock()
	s.Code = code
	s.mu.Unlock()
}

func (s *session) setError(e string) {
	s.mu.Lock()
	s.RuntimeError = e
	s.mu.Unlock()
}

func (s *session) problem() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Problem
}

// owner: пространство имён хранилища подсказок для чата.
func owner(chatID int64) string { return "tg:" + strconv.FormatInt(chatID, 10) }
