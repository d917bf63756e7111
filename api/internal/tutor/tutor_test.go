package tutor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorpy/api/internal/hint"
	"tutorpy/api/internal/llm"
	"tutorpy/api/internal/metrics"
	"tutorpy/api/internal/prompt"
	"tutorpy/api/internal/store"
)

type stubEngine struct {
	name  string
	reply string
	err   error
	calls [][]llm.Message
	param llm.Params
}

func (e *stubEngine) Name() string     { return e.name }
func (e *stubEngine) GetModel() string { return e.name + "-model" }
func (e *stubEngine) Complete(_ context.Context, msgs []llm.Message, p llm.Params) (llm.Completion, error) {
	e.calls = append(e.calls, msgs)
	e.param = p
	if e.err != nil {
		return llm.Completion{}, e.err
	}
	return llm.Completion{Content: e.reply}, nil
}

func newService(t *testing.T, eng *stubEngine) (*Service, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	return &Service{
		Engines:   &llm.Engines{Groq: eng, Default: "groq"},
		Assembler: prompt.NewAssembler(prompt.NewTemplates("")),
		Store:     store.NewHintStore(store.NewMemoryKV(), ""),
		Params:    llm.Params{Temperature: 0.7, MaxTokens: 200},
		Log:       zerolog.Nop(),
		Metrics:   m,
	}, m
}

func TestChat_FirstTurnIsLevelOne(t *testing.T) {
	eng := &stubEngine{name: "groq", reply: "Hint 1: Think about slicing."}
	s, m := newService(t, eng)

	out, err := s.Chat(context.Background(), llm.Choice{}, hint.Context{Problem: "reverse a string", Message: "I'm stuck"})
	require.NoError(t, err)

	assert.Equal(t, hint.Level(1), out.Level)
	assert.Equal(t, "Hint 1: Think about slicing.", out.Reply)
	assert.Equal(t, "groq", out.Engine)
	assert.Equal(t, "groq-model", out.Model)
	assert.Equal(t, 0.7, eng.param.Temperature)
	assert.Equal(t, 200, eng.param.MaxTokens)

	require.Len(t, eng.calls, 1)
	msgs := eng.calls[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, hint.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Hint level: 1")
	assert.Contains(t, msgs[0].Content, "Problem: reverse a string")
	assert.Equal(t, llm.Message{Role: hint.RoleUser, Content: "I'm stuck"}, msgs[1])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HintLevelsTotal.WithLabelValues(FlowChat, "1")))
}

func TestChat_EscalatesFromHistory(t *testing.T) {
	eng := &stubEngine{name: "groq", reply: "Hint 3: Check the step."}
	s, _ := newService(t, eng)

	history := []hint.Turn{
		{Role: hint.RoleUser, Content: "I'm stuck"},
		{Role: hint.RoleAssistant, Content: "Hint 1: Think about slicing."},
	}
	out, err := s.Chat(context.Background(), llm.Choice{Engine: "groq"}, hint.Context{
		Problem: "reverse a string",
		History: history,
		Message: "can I get the next hint?",
	})
	require.NoError(t, err)
	assert.Equal(t, hint.Level(3), out.Level)
	assert.Contains(t, eng.calls[0][0].Content, "Hint level: 3")
	assert.Len(t, eng.calls[0], 4)
}

func TestChat_DoesNotWriteStore(t *testing.T) {
	eng := &stubEngine{name: "groq", reply: "Hint 1: x"}
	s, _ := newService(t, eng)

	_, err := s.Chat(context.Background(), llm.Choice{}, hint.Context{Problem: "p", Message: "help"})
	require.NoError(t, err)

	rec, err := s.Hints(context.Background(), "", "p")
	require.NoError(t, err)
	assert.Empty(t, rec.Hints)
}

func TestChat_Validation(t *testing.T) {
	eng := &stubEngine{name: "groq"}
	s, _ := newService(t, eng)

	_, err := s.Chat(context.Background(), llm.Choice{}, hint.Context{Message: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = s.Chat(context.Background(), llm.Choice{Engine: "gemini"}, hint.Context{Message: "hi"})
	assert.ErrorIs(t, err, llm.ErrUnknownEngine)
	assert.Empty(t, eng.calls)
}

func TestChat_ProviderErrorIsClassified(t *testing.T) {
	eng := &stubEngine{name: "groq", err: &llm.ProviderError{Engine: "groq", StatusCode: 429, Message: "slow down"}}
	s, m := newService(t, eng)

	_, err := s.Chat(context.Background(), llm.Choice{}, hint.Context{Message: "hi"})
	require.Error(t, err)
	assert.Equal(t, llm.KindRateLimit, llm.Classify(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompletionsTotal.WithLabelValues("groq", "error")))
}

func TestNextHint_FourLevelsThenExhausted(t *testing.T) {
	eng := &stubEngine{name: "groq", reply: "Use a loop."}
	s, _ := newService(t, eng)
	ctx := context.Background()
	c := hint.Context{Problem: "sum a list", Code: "total = 0\n"}

	for i := 1; i <= 4; i++ {
		out, err := s.NextHint(ctx, "u1", llm.Choice{}, c)
		require.NoError(t, err)
		assert.Equal(t, hint.Level(i), out.Level)
		assert.Len(t, out.Record.Hints, i)
		assert.Equal(t, "Use a loop.", out.Hint)
	}
	require.Len(t, eng.calls, 4)

	// single-shot prompt of the last call embeds the three earlier hints
	last := eng.calls[3]
	require.Len(t, last, 2)
	assert.Contains(t, last[0].Content, "Hint level: 4")
	assert.Contains(t, last[1].Content, "Level 3: Use a loop.")
	assert.True(t, strings.HasSuffix(last[1].Content, "Give hint level 4 now:"))

	_, err := s.NextHint(ctx, "u1", llm.Choice{}, c)
	assert.ErrorIs(t, err, hint.ErrHintsExhausted)
	assert.Len(t, eng.calls, 4)

	// another owner starts from level 1
	out, err := s.NextHint(ctx, "u2", llm.Choice{}, c)
	require.NoError(t, err)
	assert.Equal(t, hint.Level(1), out.Level)
}

func TestNextHint_FailedCompletionStoresNothing(t *testing.T) {
	eng := &stubEngine{name: "groq", err: errors.New("invalid API key")}
	s, _ := newService(t, eng)
	ctx := context.Background()

	_, err := s.NextHint(ctx, "u1", llm.Choice{}, hint.Context{Problem: "p"})
	require.Error(t, err)
	assert.Equal(t, llm.KindAuth, llm.Classify(err))

	rec, err := s.Hints(ctx, "u1", "p")
	require.NoError(t, err)
	assert.Empty(t, rec.Hints)
}

func TestNextHint_EmptyCompletionStoresNothing(t *testing.T) {
	eng := &stubEngine{name: "groq", reply: "  \n"}
	s, m := newService(t, eng)
	ctx := context.Background()

	_, err := s.NextHint(ctx, "u1", llm.Choice{}, hint.Context{Problem: "p"})
	require.ErrorIs(t, err, llm.ErrEmptyCompletion)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompletionsTotal.WithLabelValues("groq", "error")))

	rec, err := s.Hints(ctx, "u1", "p")
	require.NoError(t, err)
	assert.Empty(t, rec.Hints)
	assert.Equal(t, hint.Level(0), rec.CurrentLevel)

	// следующий непустой ответ получает первый уровень
	eng.reply = "Think about slicing."
	out, err := s.NextHint(ctx, "u1", llm.Choice{}, hint.Context{Problem: "p"})
	require.NoError(t, err)
	assert.Equal(t, hint.Level(1), out.Level)
}

func TestChat_ChoiceModelAppliesToOneRequest(t *testing.T) {
	eng := &stubEngine{name: "groq", reply: "Hint 1: x"}
	s, _ := newService(t, eng)

	out, err := s.Chat(context.Background(), llm.Choice{Engine: "groq", Model: "my-private-model"}, hint.Context{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "my-private-model", eng.param.Model)
	assert.Equal(t, "my-private-model", out.Model)

	out, err = s.Chat(context.Background(), llm.Choice{}, hint.Context{Message: "hi"})
	require.NoError(t, err)
	assert.Empty(t, eng.param.Model)
	assert.Equal(t, "groq-model", out.Model)
	assert.Empty(t, s.Params.Model)
}

func TestResetAndValidation(t *testing.T) {
	eng := &stubEngine{name: "groq", reply: "h"}
	s, _ := newService(t, eng)
	ctx := context.Background()

	_, err := s.NextHint(ctx, "u1", llm.Choice{}, hint.Context{Problem: "p"})
	require.NoError(t, err)
	require.NoError(t, s.Reset(ctx, "u1", "p"))

	rec, err := s.Hints(ctx, "u1", "p")
	require.NoError(t, err)
	assert.Equal(t, hint.Level(0), rec.CurrentLevel)

	_, err = s.NextHint(ctx, "u1", llm.Choice{}, hint.Context{})
	assert.ErrorIs(t, err, ErrEmptyProblem)
	assert.ErrorIs(t, s.Reset(ctx, "u1", " "), ErrEmptyProblem)
	_, err = s.Hints(ctx, "u1", "")
	assert.ErrorIs(t, err, ErrEmptyProblem)
}
