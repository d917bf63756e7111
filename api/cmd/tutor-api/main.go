package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"tutorpy/api/internal/auth"
	"tutorpy/api/internal/config"
	"tutorpy/api/internal/handle"
	"tutorpy/api/internal/logger"
	"tutorpy/api/internal/metrics"
	"tutorpy/api/internal/prompt"
	"tutorpy/api/internal/store"
	"tutorpy/api/internal/tutor"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "tutor-api"})
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("tutor-api failed")
	}
	log.Info().Msg("tutor-api stopped")
}

// run поднимает API и блокируется до сигнала; ресурсы закрываются на выходе.
func run(cfg *config.Config, log zerolog.Logger) error {
	if err := cfg.RequireAPI(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, closeKV, err := store.Open(ctx, cfg, logger.Component(log, "store"))
	if err != nil {
		return fmt.Errorf("storage %s: %w", cfg.Storage, err)
	}
	defer func() {
		if err := closeKV(); err != nil {
			log.Warn().Err(err).Msg("storage close")
		}
	}()

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)
	tpl := prompt.NewTemplates(cfg.PromptDir)
	svc := tutor.New(cfg, kv, tpl, log, m)

	h := handle.New(svc, handle.Options{
		Templates:  tpl,
		Storage:    kv,
		AdminToken: cfg.AdminToken,
		Timeout:    cfg.RequestTimeout,
		Log:        logger.Component(log, "http"),
	})
	router := h.Router(handle.RouterConfig{
		Verifier:       auth.NewVerifier(cfg.JWTSecret),
		Metrics:        m,
		MetricsHandler: promhttp.Handler(),
		FrontendURL:    cfg.FrontendURL,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", srv.Addr).
		Str("storage", kv.Name()).
		Str("llm_default", svc.Engines.Default).
		Msg("tutor-api listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
