package telegram

import (
	"context"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorpy/api/internal/hint"
	"tutorpy/api/internal/llm"
	"tutorpy/api/internal/prompt"
	"tutorpy/api/internal/store"
	"tutorpy/api/internal/tutor"
)

type fakeBot struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// texts returns the text of every plain message sent so far.
func (f *fakeBot) texts() []string {
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeBot) last() tgbotapi.MessageConfig {
	for i := len(f.sent) - 1; i >= 0; i-- {
		if m, ok := f.sent[i].(tgbotapi.MessageConfig); ok {
			return m
		}
	}
	return tgbotapi.MessageConfig{}
}

type stubEngine struct {
	name   string
	model  string
	reply  string
	calls  [][]llm.Message
	models []string
}

func (e *stubEngine) Name() string     { return e.name }
func (e *stubEngine) GetModel() string { return e.model }
func (e *stubEngine) Complete(_ context.Context, msgs []llm.Message, p llm.Params) (llm.Completion, error) {
	e.calls = append(e.calls, msgs)
	e.models = append(e.models, p.Model)
	return llm.Completion{Content: e.reply}, nil
}

func newRouter(t *testing.T) (*Router, *fakeBot, *stubEngine, *stubEngine) {
	t.Helper()
	groq := &stubEngine{name: "groq", model: "llama-3.3-70b-versatile", reply: "Hint 1: Think about loops."}
	gem := &stubEngine{name: "gemini", model: "gemini-2.5-flash", reply: "Hint 1: from gemini"}
	engines := &llm.Engines{Groq: groq, Gemini: gem, Default: "groq"}
	svc := &tutor.Service{
		Engines:   engines,
		Assembler: prompt.NewAssembler(prompt.NewTemplates("")),
		Store:     store.NewHintStore(store.NewMemoryKV(), ""),
		Log:       zerolog.Nop(),
	}
	bot := &fakeBot{}
	return &Router{
		Bot:        bot,
		Tutor:      svc,
		Engines:    engines,
		EngManager: llm.NewManager(groq),
		Log:        zerolog.Nop(),
	}, bot, groq, gem
}

func command(chatID int64, text string) tgbotapi.Update {
	cmd := strings.SplitN(strings.Fields(text)[0], "\n", 2)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func text(chatID int64, s string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: s}}
}

func TestRouter_Start(t *testing.T) {
	r, bot, _, _ := newRouter(t)
	r.HandleUpdate(command(1, "/start"))
	require.Len(t, bot.texts(), 1)
	assert.Contains(t, bot.texts()[0], "/hint")
}

func TestRouter_ChatEscalatesWithHistory(t *testing.T) {
	r, _, groq, _ := newRouter(t)

	r.HandleUpdate(command(1, "/problem reverse a string"))
	r.HandleUpdate(text(1, "I'm stuck"))
	r.HandleUpdate(text(1, "another hint please"))

	require.Len(t, groq.calls, 2)
	assert.Contains(t, groq.calls[0][0].Content, "Hint level: 1")
	assert.Contains(t, groq.calls[0][0].Content, "Problem: reverse a string")
	// one prior hint plus an explicit request
	assert.Contains(t, groq.calls[1][0].Content, "Hint level: 3")
	assert.Len(t, groq.calls[1], 4)
}

func TestRouter_NewProblemResetsChatHistory(t *testing.T) {
	r, _, groq, _ := newRouter(t)

	r.HandleUpdate(command(1, "/problem first"))
	r.HandleUpdate(text(1, "help"))
	r.HandleUpdate(command(1, "/problem second"))
	r.HandleUpdate(text(1, "help"))

	require.Len(t, groq.calls, 2)
	assert.Contains(t, groq.calls[1][0].Content, "Hint level: 1")
	assert.Len(t, groq.calls[1], 2)
}

func TestRouter_HintFlow(t *testing.T) {
	r, bot, groq, _ := newRouter(t)
	groq.reply = "Use a slice."

	r.HandleUpdate(command(7, "/hint"))
	assert.Equal(t, "Set the problem first: /problem <text>", bot.last().Text)

	r.HandleUpdate(command(7, "/problem reverse a string"))
	r.HandleUpdate(command(7, "/code s = input()\nprint(s)"))
	r.HandleUpdate(command(7, "/error NameError: name 'x' is not defined"))
	r.HandleUpdate(command(7, "/hint"))

	m := bot.last()
	assert.Contains(t, m.Text, "Hint 1")
	assert.NotNil(t, m.ReplyMarkup)
	last := groq.calls[len(groq.calls)-1]
	assert.Contains(t, last[1].Content, "s = input()\nprint(s)")
	assert.Contains(t, last[1].Content, "NameError")

	// the inline button asks for the following levels
	for i := 2; i <= 4; i++ {
		r.HandleUpdate(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb",
			Data:    cbHintNext,
			Message: &tgbotapi.Message{MessageID: 10, Chat: &tgbotapi.Chat{ID: 7}},
		}})
	}
	m = bot.last()
	assert.Contains(t, m.Text, "Hint 4")
	assert.Nil(t, m.ReplyMarkup)
	assert.Len(t, bot.requests, 3)

	r.HandleUpdate(command(7, "/hint"))
	assert.Contains(t, bot.last().Text, "all 4 hints")

	r.HandleUpdate(command(7, "/hints"))
	assert.Contains(t, bot.last().Text, "Hints so far (4 of 4)")
	assert.Contains(t, bot.last().Text, "Level 4: Use a slice.")

	r.HandleUpdate(command(7, "/reset"))
	rec, err := r.Tutor.Hints(context.Background(), owner(7), "reverse a string")
	require.NoError(t, err)
	assert.Equal(t, hint.Level(0), rec.CurrentLevel)
}

func TestRouter_HintsArePerChat(t *testing.T) {
	r, _, _, _ := newRouter(t)
	r.HandleUpdate(command(1, "/problem p"))
	r.HandleUpdate(command(1, "/hint"))
	r.HandleUpdate(command(2, "/problem p"))

	rec, err := r.Tutor.Hints(context.Background(), owner(2), "p")
	require.NoError(t, err)
	assert.Empty(t, rec.Hints)
	assert.Equal(t, "tg:1", owner(1))
}

func TestRouter_EngineSwitch(t *testing.T) {
	r, bot, groq, gem := newRouter(t)

	r.HandleUpdate(command(3, "/engine"))
	assert.Contains(t, bot.last().Text, "Current engine: groq")

	r.HandleUpdate(command(3, "/engine gemini gemini-2.0-pro"))
	assert.Equal(t, "✅ Engine: gemini (gemini-2.0-pro).", bot.last().Text)

	r.HandleUpdate(text(3, "hello"))
	assert.Len(t, gem.calls, 1)
	assert.Empty(t, groq.calls)

	r.HandleUpdate(command(3, "/engine gpt"))
	assert.Contains(t, bot.last().Text, "Unknown or unconfigured engine")
}

func TestRouter_EngineModelIsPerChat(t *testing.T) {
	r, bot, groq, _ := newRouter(t)

	r.HandleUpdate(command(1, "/engine groq my-private-model"))
	assert.Equal(t, "✅ Engine: groq (my-private-model).", bot.last().Text)

	r.HandleUpdate(command(2, "/engine"))
	assert.Contains(t, bot.last().Text, "Current engine: groq (llama-3.3-70b-versatile)")
	assert.Equal(t, "llama-3.3-70b-versatile", r.EngManager.Model(2))
	assert.Equal(t, "llama-3.3-70b-versatile", groq.GetModel())

	r.HandleUpdate(text(1, "hello"))
	r.HandleUpdate(text(2, "hello"))
	assert.Equal(t, []string{"my-private-model", ""}, groq.models)

	// /hint идёт через тот же выбор
	r.HandleUpdate(command(1, "/problem reverse a string"))
	r.HandleUpdate(command(1, "/hint"))
	assert.Equal(t, "my-private-model", groq.models[len(groq.models)-1])
}

func TestFormatHint(t *testing.T) {
	assert.Equal(t, "💡 *Hint 2* (syntax)\nuse s\\[::-1]", formatHint(2, " use s[::-1] "))
}
