package handle

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"tutorpy/api/internal/auth"
	"tutorpy/api/internal/metrics"
)

type RouterConfig struct {
	Verifier *auth.Verifier
	Metrics  *metrics.Metrics
	// MetricsHandler обслуживает /metrics; nil: эндпоинт не регистрируется.
	MetricsHandler http.Handler
	// FrontendURL добавляется к разрешённым CORS-источникам.
	FrontendURL string
}

// Router собирает все маршруты API.
func (h *Handle) Router(rc RouterConfig) *mux.Router {
	router := mux.NewRouter()

	router.Use(h.requestContext)
	router.Use(observe(rc.Metrics))
	router.Use(cors(rc.FrontendURL))

	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodOptions)

	router.HandleFunc("/", h.Index).Methods(http.MethodGet)
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	if rc.MetricsHandler != nil {
		router.Handle("/metrics", rc.MetricsHandler).Methods(http.MethodGet)
	}
	router.HandleFunc("/v1/prompts", h.UpdatePrompt).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(rc.Verifier.Middleware)
	api.HandleFunc("/chat", h.Chat).Methods(http.MethodPost)
	api.HandleFunc("/hints/next", h.NextHint).Methods(http.MethodPost)
	api.HandleFunc("/hints", h.Hints).Methods(http.MethodGet)
	api.HandleFunc("/hints", h.ResetHints).Methods(http.MethodDelete)

	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestContext кладёт в контекст логгер с request id.
func (h *Handle) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		l := h.log.With().Str("request_id", id).Logger()
		next.ServeHTTP(w, r.WithContext(l.WithContext(r.Context())))
	})
}

func observe(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			d := time.Since(start)
			m.RecordHTTPRequest(route, r.Method, rec.status, d)
			zlogFrom(r).Info().
				Str("method", r.Method).
				Str("route", route).
				Int("status", rec.status).
				Dur("duration", d).
				Msg("request")
		})
	}
}

// allowedOrigin: localhost:3000, любой https://*.vercel.app и FRONTEND_URL.
func allowedOrigin(origin, frontend string) bool {
	if origin == "" {
		return false
	}
	if origin == "http://localhost:3000" {
		return true
	}
	if frontend != "" && strings.EqualFold(origin, strings.TrimRight(frontend, "/")) {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Scheme == "https" && strings.HasSuffix(strings.ToLower(u.Hostname()), ".vercel.app")
}

func cors(frontend string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowedOrigin(origin, frontend) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Token, X-Request-ID")
				h.Add("Vary", "Origin")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func zlogFrom(r *http.Request) *zerolog.Logger { return zerolog.Ctx(r.Context()) }
