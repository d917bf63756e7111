package handle

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"tutorpy/api/internal/auth"
	"tutorpy/api/internal/hint"
	"tutorpy/api/internal/llm"
	"tutorpy/api/internal/tutor"
)

type nextHintRequest struct {
	Problem      string `json:"problem"`
	Code         string `json:"code"`
	RuntimeError string `json:"runtimeError,omitempty"`
	LLMName      string `json:"llm_name,omitempty"`
}

type hintsResponse struct {
	Record  hint.Record `json:"record"`
	History string      `json:"history"`
}

func owner(r *http.Request) string {
	id, _ := auth.UserID(r.Context())
	return id
}

// NextHint: POST /api/hints/next.
func (h *Handle) NextHint(w http.ResponseWriter, r *http.Request) {
	var req nextHintRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	out, err := h.svc.NextHint(ctx, owner(r), llm.Choice{Engine: req.LLMName}, hint.Context{
		Problem:      req.Problem,
		Code:         req.Code,
		RuntimeError: req.RuntimeError,
	})
	if err != nil {
		code, msg := statusFor(err)
		zerolog.Ctx(r.Context()).Error().Err(err).Int("status", code).Msg("next hint failed")
		writeError(w, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Hints: GET /api/hints?problem=...
func (h *Handle) Hints(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rec, err := h.svc.Hints(ctx, owner(r), r.URL.Query().Get("problem"))
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hintsResponse{Record: rec, History: hint.HistoryText(rec)})
}

// ResetHints: DELETE /api/hints?problem=...
func (h *Handle) ResetHints(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	problem := r.URL.Query().Get("problem")
	if err := h.svc.Reset(ctx, owner(r), problem); err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "problemId": hint.ProblemID(problem)})
}

func (h *Handle) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, tutor.ErrEmptyProblem) {
		writeError(w, http.StatusBadRequest, "Problem is required")
		return
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("hint storage failed")
	writeError(w, http.StatusInternalServerError, "Hint storage is unavailable.")
}
