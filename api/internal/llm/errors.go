package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind: класс ошибки провайдера, определяющий ответ клиенту.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindAuth
	KindRateLimit
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate_limit"
	}
	return "other"
}

// ProviderError is returned by engines for non-2xx provider responses.
type ProviderError struct {
	Engine     string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error (HTTP %d): %s", e.Engine, e.StatusCode, e.Message)
}

// Classify maps a provider error onto a kind by its text: "API key" means a
// credentials problem, "rate limit" means quota. Matching ignores case.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindOther
	}
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "api key"):
		return KindAuth
	case strings.Contains(s, "rate limit"):
		return KindRateLimit
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.StatusCode {
		case 401, 403:
			return KindAuth
		case 429:
			return KindRateLimit
		}
	}
	return KindOther
}
