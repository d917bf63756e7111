package handle

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"tutorpy/api/internal/prompt"
	"tutorpy/api/internal/store"
	"tutorpy/api/internal/tutor"
)

const maxBodyBytes = 1 << 20 // 1 MiB

type Handle struct {
	svc        *tutor.Service
	templates  *prompt.Templates
	storage    store.KV
	adminToken string
	timeout    time.Duration
	log        zerolog.Logger
}

type Options struct {
	Templates  *prompt.Templates
	Storage    store.KV
	AdminToken string
	// Timeout ограничивает вызовы LLM и хранилища в одном запросе.
	Timeout time.Duration
	Log     zerolog.Logger
}

func New(svc *tutor.Service, o Options) *Handle {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return &Handle{
		svc:        svc,
		templates:  o.Templates,
		storage:    o.Storage,
		adminToken: o.AdminToken,
		timeout:    o.Timeout,
		log:        o.Log,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

var errEmptyBody = errors.New("request body is empty")

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}
