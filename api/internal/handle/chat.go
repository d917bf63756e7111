package handle

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"tutorpy/api/internal/hint"
	"tutorpy/api/internal/llm"
)

type chatRequest struct {
	Message      *string     `json:"message"`
	Problem      string      `json:"problem,omitempty"`
	History      []hint.Turn `json:"history,omitempty"`
	RuntimeError string      `json:"runtimeError,omitempty"`
	LLMName      string      `json:"llm_name,omitempty"`
}

type chatResponse struct {
	Reply     string     `json:"reply"`
	HintLevel hint.Level `json:"hint_level"`
}

// Chat: POST /api/chat.
func (h *Handle) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	if req.Message == nil {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	out, err := h.svc.Chat(ctx, llm.Choice{Engine: req.LLMName}, hint.Context{
		Problem:      req.Problem,
		History:      req.History,
		Message:      *req.Message,
		RuntimeError: req.RuntimeError,
	})
	if err != nil {
		code, msg := statusFor(err)
		zerolog.Ctx(r.Context()).Error().Err(err).Int("status", code).Msg("chat failed")
		writeError(w, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: out.Reply, HintLevel: out.Level})
}
