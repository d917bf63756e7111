package handle

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"tutorpy/api/internal/prompt"
)

// UpdatePrompt: POST /v1/prompts. Сохраняет переопределение шаблона
// промпта в PROMPT_DIR атомарно (temp + rename). Нужен X-Admin-Token.
func (h *Handle) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	if h.adminToken == "" {
		writeError(w, http.StatusForbidden, "prompt updates are disabled")
		return
	}
	got := r.Header.Get("X-Admin-Token")
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.adminToken)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid admin token")
		return
	}

	var req prompt.UpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	path, err := h.templates.Save(req.Name, req.Text)
	switch {
	case errors.Is(err, prompt.ErrNoOverrideDir):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		// битый шаблон или ошибка записи; текст ошибки полезен администратору
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("name", req.Name).Msg("prompt update rejected")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("name", req.Name).Str("path", path).Msg("prompt updated")
	writeJSON(w, http.StatusOK, prompt.UpdateResponse{
		OK:      true,
		Name:    req.Name,
		Path:    path,
		Size:    len(req.Text),
		Updated: time.Now().UTC().Format(time.RFC3339),
	})
}
