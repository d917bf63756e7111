package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tutorpy/api/internal/llm"
)

func TestSplitMessages(t *testing.T) {
	msgs := []llm.Message{
		{Role: "system", Content: "be a tutor"},
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "Hint 1: a"},
		{Role: "user", Content: "next hint"},
	}
	sys, hist, last, err := splitMessages(msgs)
	require.NoError(t, err)

	require.NotNil(t, sys)
	assert.Equal(t, []genai.Part{genai.Text("be a tutor")}, sys.Parts)
	require.Len(t, hist, 2)
	assert.Equal(t, "user", hist[0].Role)
	assert.Equal(t, "model", hist[1].Role)
	assert.Equal(t, "next hint", last)
}

func TestSplitMessages_NoUserMessage(t *testing.T) {
	_, _, _, err := splitMessages([]llm.Message{{Role: "system", Content: "x"}})
	assert.Error(t, err)
}

func TestFirstText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []genai.Part{genai.Text("Hint 2: "), genai.Text("use a loop")}}},
	}}
	assert.Equal(t, "Hint 2: use a loop", firstText(resp))
	assert.Equal(t, "", firstText(nil))
}

func TestClassify(t *testing.T) {
	rl := classify(status.Error(codes.ResourceExhausted, "quota"))
	assert.Equal(t, llm.KindRateLimit, llm.Classify(rl))

	auth := classify(status.Error(codes.PermissionDenied, "denied"))
	assert.Equal(t, llm.KindAuth, llm.Classify(auth))

	other := classify(errors.New("connection reset"))
	assert.Equal(t, llm.KindOther, llm.Classify(other))
}

func TestComplete_MissingKey(t *testing.T) {
	_, err := New("", "gemini-2.5-flash").Complete(context.Background(), nil, llm.Params{})
	require.Error(t, err)
	assert.Equal(t, llm.KindAuth, llm.Classify(err))
}
