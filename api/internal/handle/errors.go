package handle

import (
	"errors"
	"net/http"

	"tutorpy/api/internal/hint"
	"tutorpy/api/internal/llm"
	"tutorpy/api/internal/tutor"
)

const (
	msgAuthConfig = "LLM API key configuration error."
	msgQuota      = "API quota exceeded. Please try again later."
	msgGeneric    = "Failed to generate response. Please try again."
	msgExhausted  = "All hints for this problem have already been given."
)

// statusFor переводит ошибку сервиса в HTTP-код и текст для клиента.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, tutor.ErrEmptyMessage):
		return http.StatusBadRequest, "Message cannot be empty"
	case errors.Is(err, tutor.ErrEmptyProblem):
		return http.StatusBadRequest, "Problem is required"
	case errors.Is(err, llm.ErrUnknownEngine):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, hint.ErrHintsExhausted):
		return http.StatusConflict, msgExhausted
	}
	switch llm.Classify(err) {
	case llm.KindAuth:
		return http.StatusInternalServerError, msgAuthConfig
	case llm.KindRateLimit:
		return http.StatusServiceUnavailable, msgQuota
	}
	return http.StatusInternalServerError, msgGeneric
}
