package httpserver

import (
	"context"
	"net/http"
	"time"
)

// Pinger: хранилище, доступность которого показывает /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
	Name() string
}

// Register вешает /healthz и (если задан) /metrics на mux. Для бота это
// DefaultServeMux: туда же ListenForWebhook регистрирует вебхук.
func Register(mux *http.ServeMux, storage Pinger, metrics http.Handler) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := storage.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(storage.Name() + ": not ok\n" + err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("tutorpy telegram bot"))
	})
}

// New возвращает сервер на DefaultServeMux.
func New(addr string) *http.Server {
	return &http.Server{Addr: addr, ReadHeaderTimeout: 10 * time.Second}
}
