package tutor

import (
	"github.com/rs/zerolog"

	"tutorpy/api/internal/config"
	"tutorpy/api/internal/llm"
	"tutorpy/api/internal/llm/gemini"
	"tutorpy/api/internal/llm/groq"
	"tutorpy/api/internal/logger"
	"tutorpy/api/internal/metrics"
	"tutorpy/api/internal/prompt"
	"tutorpy/api/internal/store"
)

// NewEngines создаёт движки, для которых задан API-ключ.
func NewEngines(cfg *config.Config) *llm.Engines {
	engs := &llm.Engines{Default: cfg.LLMDefault}
	if cfg.GroqAPIKey != "" {
		engs.Groq = groq.New(cfg.GroqAPIKey, cfg.GroqModel)
	}
	if cfg.GeminiAPIKey != "" {
		engs.Gemini = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	// дефолт должен указывать на настроенный движок
	if _, err := engs.GetEngine(""); err != nil {
		if engs.Groq != nil {
			engs.Default = "groq"
		} else {
			engs.Default = "gemini"
		}
	}
	return engs
}

// New собирает сервис из конфига и открытого хранилища.
func New(cfg *config.Config, kv store.KV, tpl *prompt.Templates, log zerolog.Logger, m *metrics.Metrics) *Service {
	asm := prompt.NewAssembler(tpl)
	asm.MaxHistoryTurns = cfg.HistoryTurns

	return &Service{
		Engines:   NewEngines(cfg),
		Assembler: asm,
		Store: store.NewHintStore(kv, "",
			store.WithLogger(logger.Component(log, "store")),
			store.WithMetrics(m),
		),
		Params: llm.Params{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
		Log:     logger.Component(log, "tutor"),
		Metrics: m,
	}
}
