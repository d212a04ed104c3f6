package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/genai"

	"parsegen/internal/logging"
)

func TestLoggingGenerator(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logging.UseLogger(zap.New(core))
	defer logging.UseLogger(nil)

	var got string
	inner := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		got = prompt
		return "```go\npackage p\n```", nil
	})

	text, err := NewLoggingGenerator(inner, "fake").Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, "```go\npackage p\n```", text)
	assert.Equal(t, 1, logs.FilterMessageSnippet("response:").Len())
	assert.Equal(t, "api", logs.All()[0].LoggerName)
}

func TestLoggingGenerator_Error(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logging.UseLogger(zap.New(core))
	defer logging.UseLogger(nil)

	boom := errors.New("quota exceeded")
	inner := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", boom
	})

	_, err := NewLoggingGenerator(inner, "fake").Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestNewGenAIClient_MissingKey(t *testing.T) {
	_, err := NewGenAIClient(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: genai.RoleModel,
				Parts: []*genai.Part{
					{Text: "thinking about regexes", Thought: true},
					{Text: "```go\n"},
					{Text: "package p\n```"},
				},
			},
		}},
	}
	text, err := ResponseText(resp)
	require.NoError(t, err)
	assert.Equal(t, "```go\npackage p\n```", text)
}

func TestResponseText_NoCandidates(t *testing.T) {
	_, err := ResponseText(&genai.GenerateContentResponse{})
	assert.Error(t, err)

	_, err = ResponseText(nil)
	assert.Error(t, err)

	_, err = ResponseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}})
	assert.Error(t, err)
}
