package main

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"net/http"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"tutorpy/api/internal/config"
	"tutorpy/api/internal/httpserver"
	"tutorpy/api/internal/llm"
	"tutorpy/api/internal/logger"
	"tutorpy/api/internal/metrics"
	"tutorpy/api/internal/prompt"
	"tutorpy/api/internal/store"
	"tutorpy/api/internal/telegram"
	"tutorpy/api/internal/tutor"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "tutor-bot"})
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("tutor-bot failed")
	}
	log.Info().Msg("tutor-bot stopped")
}

// run поднимает бота и блокируется до сигнала; ресурсы закрываются на выходе.
func run(cfg *config.Config, log zerolog.Logger) error {
	if err := cfg.RequireBot(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
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
	svc := tutor.New(cfg, kv, prompt.NewTemplates(cfg.PromptDir), log, m)

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("telegram init: %w", err)
	}
	bot.Debug = false

	def, err := svc.Engines.GetEngine("")
	if err != nil {
		return fmt.Errorf("no default llm engine: %w", err)
	}
	r := &telegram.Router{
		Bot:        bot,
		Tutor:      svc,
		Engines:    svc.Engines,
		EngManager: llm.NewManager(def),
		Log:        logger.Component(log, "telegram"),
		Timeout:    cfg.RequestTimeout,
	}

	// --- HTTP (DefaultServeMux) ---
	// ListenForWebhook регистрирует обработчик на DefaultServeMux, поэтому используем его же.
	httpserver.Register(http.DefaultServeMux, kv, promhttp.Handler())
	srv := httpserver.New("0.0.0.0:" + cfg.Port)
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	// --- Choose mode: Webhook vs Polling ---
	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		return startWebhookMode(ctx, log, srv, bot, r, webhookURL)
	}
	return startPollingMode(ctx, log, srv, bot, r)
}

// ---------------- Modes -----------------

func startWebhookMode(ctx context.Context, log zerolog.Logger, srv *http.Server, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string) error {
	// секретный путь вебхука
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return fmt.Errorf("webhook config: %w", err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	updates := bot.ListenForWebhook(path)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					log.Warn().Msg("webhook updates channel closed")
					return
				}
				r.HandleUpdate(upd)
			}
		}
	}()

	log.Info().Str("addr", srv.Addr).Str("path", path).Msg("webhook listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func startPollingMode(ctx context.Context, log zerolog.Logger, srv *http.Server, bot *tgbotapi.BotAPI, r *telegram.Router) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// HTTP нужен только для /healthz и /metrics; его падение останавливает polling
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("health server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
			cancel()
		}
	}()

	// если раньше стоял вебхук, getUpdates вернёт 409
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Warn().Err(err).Msg("delete webhook")
	}
	runPolling(ctx, log, bot, r.HandleUpdate)

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 от Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

// clampDelay держит задержку между baseDelay и maxDelay.
func clampDelay(d time.Duration) time.Duration {
	const (
		baseDelay = 1 * time.Second
		maxDelay  = 15 * time.Second
	)
	if d < baseDelay {
		return baseDelay
	}
	if d > maxDelay {
		return maxDelay
	}
	return d
}

func runPolling(ctx context.Context, log zerolog.Logger, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	offset := 0
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := clampDelay(retryDelayFromError(err))
			log.Warn().Err(err).Dur("retry_in", d).Msg("polling error")
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ---------------- Helpers -----------------

// shortHash: стабильный путь вебхука для токена (FNV-1a), не криптография.
func shortHash(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}
