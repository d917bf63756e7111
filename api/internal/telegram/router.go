package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tutorpy/api/internal/hint"
	"tutorpy/api/internal/llm"
	"tutorpy/api/internal/tutor"
)

// Sender: часть *tgbotapi.BotAPI, нужная роутеру.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Router struct {
	Bot        Sender
	Tutor      *tutor.Service
	Engines    *llm.Engines
	EngManager *llm.Manager
	Log        zerolog.Logger
	// Timeout на один вызов LLM.
	Timeout time.Duration

	sessions sync.Map // chatID -> *session
}

const helpText = `I'm TutorPy. I help you solve Python problems with hints, never full solutions.

/problem <text> set the problem you're working on
/code <python> share your current code
/error <text> share the error you got when running it
/hint get the next hint for the problem (up to 4)
/hints show the hints you already got
/reset start the hints over
/engine [groq|gemini] [model] switch the LLM

Or just write me a message about your problem.`

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	// callback-кнопки
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	if upd.Message.IsCommand() {
		r.HandleCommand(upd.Message)
		return
	}
	if text := strings.TrimSpace(upd.Message.Text); text != "" {
		r.chat(upd.Message.Chat.ID, text)
	}
}

func (r *Router) HandleCommand(m *tgbotapi.Message) {
	cid := m.Chat.ID
	args := strings.TrimSpace(m.CommandArguments())
	s := r.session(cid)

	switch m.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "problem":
		if args == "" {
			if p := s.problem(); p != "" {
				r.send(cid, "Current problem:\n"+p)
				return
			}
			r.send(cid, "Usage: /problem <problem text>")
			return
		}
		s.setProblem(args)
		r.send(cid, "Got it. Write me when you're stuck, or press /hint.")
	case "code":
		if args == "" {
			r.send(cid, "Usage: /code <your python code>")
			return
		}
		s.setCode(args)
		r.send(cid, "Code saved.")
	case "error":
		s.setError(args)
		if args == "" {
			r.send(cid, "Error cleared.")
			return
		}
		r.send(cid, "Error saved. The next hint will address it.")
	case "hint":
		r.nextHint(cid)
	case "hints":
		r.showHints(cid)
	case "reset":
		r.resetHints(cid)
	case "engine":
		r.handleEngineCommand(cid, args)
	default:
		r.send(cid, "Unknown command. Try /help")
	}
}

// chat: обычная реплика: уровень считается по истории чата, хранилище не трогаем.
func (r *Router) chat(chatID int64, text string) {
	s := r.session(chatID)
	c := s.snapshot(text)

	ctx, cancel := r.ctx()
	defer cancel()

	out, err := r.Tutor.Chat(ctx, r.choice(chatID), c)
	if err != nil {
		r.SendError(chatID, err)
		return
	}
	s.addTurns(
		hint.Turn{Role: hint.RoleUser, Content: text},
		hint.Turn{Role: hint.RoleAssistant, Content: out.Reply, HintLevel: out.Level},
	)
	r.send(chatID, trimForTelegram(out.Reply))
}

func (r *Router) ctx() (context.Context, context.CancelFunc) {
	d := r.Timeout
	if d <= 0 {
		d = 60 * time.Second
	}
	return context.WithTimeout(context.Background(), d)
}

// choice: движок и модель, выбранные в чате.
func (r *Router) choice(chatID int64) llm.Choice {
	if r.EngManager == nil {
		return llm.Choice{}
	}
	return r.EngManager.Choice(chatID)
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram send failed")
	}
}

// SendError сообщает пользователю об ошибке понятным текстом.
func (r *Router) SendError(chatID int64, err error) {
	r.Log.Error().Err(err).Int64("chat_id", chatID).Msg("request failed")
	switch {
	case errors.Is(err, tutor.ErrEmptyProblem):
		r.send(chatID, "Set the problem first: /problem <text>")
		return
	case errors.Is(err, hint.ErrHintsExhausted):
		r.send(chatID, "You've got all 4 hints for this problem. Use /reset to start over.")
		return
	case errors.Is(err, llm.ErrUnknownEngine):
		r.send(chatID, "The selected LLM is not configured. Try /engine")
		return
	}
	switch llm.Classify(err) {
	case llm.KindAuth:
		r.send(chatID, "LLM API key configuration error.")
	case llm.KindRateLimit:
		r.send(chatID, "API quota exceeded. Please try again later.")
	default:
		r.send(chatID, "Failed to generate response. Please try again.")
	}
}

// handleEngineCommand парсит /engine и переключает движок для чата.
// Модель запоминается только для этого чата.
//
//	/engine groq [model]
//	/engine gemini [model]
func (r *Router) handleEngineCommand(chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		name := "none"
		if cur := r.EngManager.Get(chatID); cur != nil {
			name = cur.Name()
		}
		r.send(chatID, fmt.Sprintf("Current engine: %s (%s)\nUsage: /engine groq [model] | /engine gemini [model]", name, r.EngManager.Model(chatID)))
		return
	}

	eng, err := r.Engines.GetEngine(fields[0])
	if err != nil {
		r.send(chatID, "Unknown or unconfigured engine. Available: groq | gemini")
		return
	}
	model := ""
	if len(fields) > 1 {
		model = fields[1]
	}
	r.EngManager.Set(chatID, eng, model)
	r.send(chatID, "✅ Engine: "+eng.Name()+" ("+r.EngManager.Model(chatID)+").")
}
