package handle

import (
	"context"
	"net/http"
	"time"
)

// Index: GET /.
func (h *Handle) Index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "TutorPy API",
		"endpoints": map[string]string{
			"chat":      "POST /api/chat (requires auth)",
			"next_hint": "POST /api/hints/next (requires auth)",
			"hints":     "GET /api/hints?problem= (requires auth)",
			"reset":     "DELETE /api/hints?problem= (requires auth)",
			"prompts":   "POST /v1/prompts (requires admin token)",
			"health":    "GET /health",
			"metrics":   "GET /metrics",
		},
	})
}

// Health: GET /health. Сервис жив, даже если хранилище недоступно.
func (h *Handle) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok", "storage": "connected"}
	if h.storage == nil {
		resp["storage"] = "not configured"
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp["backend"] = h.storage.Name()

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.storage.Ping(ctx); err != nil {
		resp["storage"] = "disconnected"
	}
	writeJSON(w, http.StatusOK, resp)
}
