package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

type Config struct {
	Port string

	GroqAPIKey   string
	GroqModel    string
	GeminiAPIKey string
	GeminiModel  string
	LLMDefault   string
	Temperature  float64
	MaxTokens    int

	JWTSecret   string
	AdminToken  string
	PromptDir   string
	FrontendURL string

	Storage     string
	DatabaseURL string
	RedisURL    string

	TelegramBotToken string
	WebhookURL       string

	LogLevel       string
	LogPretty      bool
	RequestTimeout time.Duration
	HistoryTurns   int
}

// env: источник переменных окружения; в тестах подменяется.
type env func(string) string

func (e env) mustEnv(k string, errs *[]error) string {
	v := strings.TrimSpace(e(k))
	if v == "" {
		*errs = append(*errs, fmt.Errorf("missing required env %s", k))
	}
	return v
}

func (e env) getEnv(k, def string) string {
	if v := strings.TrimSpace(e(k)); v != "" {
		return v
	}
	return def
}

func (e env) getInt(k string, def int, errs *[]error) int {
	v := e.getEnv(k, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("env %s: %w", k, err))
		return def
	}
	return n
}

func (e env) getFloat(k string, def float64, errs *[]error) float64 {
	v := e.getEnv(k, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("env %s: %w", k, err))
		return def
	}
	return f
}

func (e env) getDuration(k string, def time.Duration, errs *[]error) time.Duration {
	v := e.getEnv(k, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("env %s: %w", k, err))
		return def
	}
	return d
}

// FromEnv собирает конфиг из getenv. Все ошибки возвращаются разом.
func FromEnv(getenv func(string) string) (*Config, error) {
	e := env(getenv)
	var errs []error

	c := &Config{
		Port: e.getEnv("PORT", "8000"),

		GroqAPIKey:   e.getEnv("GROQ_API_KEY", ""),
		GroqModel:    e.getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GeminiAPIKey: e.getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  e.getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		LLMDefault:   strings.ToLower(e.getEnv("LLM_DEFAULT", "groq")),
		Temperature:  e.getFloat("LLM_TEMPERATURE", 0.7, &errs),
		MaxTokens:    e.getInt("LLM_MAX_TOKENS", 200, &errs),

		JWTSecret:   e.getEnv("JWT_SECRET", ""),
		AdminToken:  e.getEnv("ADMIN_TOKEN", ""),
		PromptDir:   e.getEnv("PROMPT_DIR", ""),
		FrontendURL: strings.TrimRight(e.getEnv("FRONTEND_URL", ""), "/"),

		Storage:     strings.ToLower(e.getEnv("STORAGE_BACKEND", StorageMemory)),
		DatabaseURL: resolveDSN(e),
		RedisURL:    e.getEnv("REDIS_URL", ""),

		TelegramBotToken: e.getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       e.getEnv("WEBHOOK_URL", ""),

		LogLevel:       e.getEnv("LOG_LEVEL", "info"),
		LogPretty:      e.getEnv("LOG_PRETTY", "") == "1" || strings.EqualFold(e.getEnv("LOG_PRETTY", ""), "true"),
		RequestTimeout: e.getDuration("REQUEST_TIMEOUT", 30*time.Second, &errs),
		HistoryTurns:   e.getInt("HISTORY_TURNS", 10, &errs),
	}

	if c.GroqAPIKey == "" && c.GeminiAPIKey == "" {
		errs = append(errs, errors.New("no LLM configured: set GROQ_API_KEY or GEMINI_API_KEY"))
	}
	switch c.Storage {
	case StorageMemory, StorageRedis:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("STORAGE_BACKEND=postgres needs DATABASE_URL or POSTGRES_* env vars"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage))
	}
	if c.Storage == StorageRedis {
		c.RedisURL = e.mustEnv("REDIS_URL", &errs)
	}
	if c.HistoryTurns <= 0 {
		errs = append(errs, fmt.Errorf("HISTORY_TURNS must be positive, got %d", c.HistoryTurns))
	}

	return c, errors.Join(errs...)
}

// RequireAPI проверяет переменные, без которых HTTP API не стартует.
func (c *Config) RequireAPI() error {
	if c.JWTSecret == "" {
		return errors.New("missing required env JWT_SECRET")
	}
	return nil
}

// RequireBot проверяет переменные Telegram-бота.
func (c *Config) RequireBot() error {
	if c.TelegramBotToken == "" {
		return errors.New("missing required env TELEGRAM_BOT_TOKEN")
	}
	return nil
}

// Load читает .env (если есть) и окружение процесса. Ошибки конфига фатальны.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg(".env not loaded")
	}
	c, err := FromEnv(os.Getenv)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	return c
}

func resolveDSN(e env) string {
	// DATABASE_URL приоритетнее
	if v := e.getEnv("DATABASE_URL", ""); v != "" {
		return v
	}
	pass := e.getEnv("POSTGRES_PASSWORD", "")
	if pass == "" && e.getEnv("PGHOST", "") == "" {
		return ""
	}
	user := e.getEnv("POSTGRES_USER", "tutorpy")
	host := e.getEnv("PGHOST", "db")
	port := e.getEnv("PGPORT", "5432")
	db := e.getEnv("POSTGRES_DB", "tutorpy")

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + db,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// SafeDSNSummary: описание DSN для логов без пароля.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
