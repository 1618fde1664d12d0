package models

import (
	"context"
	"errors"
	"testing"

	"github.com/rickchristie/agentloops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeLLM is an llms.Model returning a fixed response or error.
type fakeLLM struct {
	response *llms.ContentResponse
	err      error

	gotMessages []llms.MessageContent
	gotOptions  llms.CallOptions
}

func (f *fakeLLM) GenerateContent(
	ctx context.Context,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	f.gotMessages = messages
	for _, opt := range options {
		opt(&f.gotOptions)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.response, f.err
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func textResponse(content string, info map[string]any) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content, StopReason: "stop", GenerationInfo: info}},
	}
}

func TestLCGWrapper_TokenNormalization(t *testing.T) {
	tests := []struct {
		name string
		info map[string]any
		want agentloops.GenerationInfo
	}{
		{
			name: "openai keys",
			info: map[string]any{
				"PromptTokens":       12,
				"CompletionTokens":   8,
				"TotalTokens":        20,
				"PromptCachedTokens": 4,
				"ReasoningTokens":    3,
			},
			want: agentloops.GenerationInfo{
				InputTokens: 12, OutputTokens: 8, TotalTokens: 20, CachedInputTokens: 4, ReasoningTokens: 3,
			},
		},
		{
			name: "anthropic keys total computed",
			info: map[string]any{"InputTokens": 30, "OutputTokens": 7, "CacheReadInputTokens": 10},
			want: agentloops.GenerationInfo{InputTokens: 30, OutputTokens: 7, TotalTokens: 37, CachedInputTokens: 10},
		},
		{
			name: "snake case floats",
			info: map[string]any{"input_tokens": float64(5), "output_tokens": int64(6), "total_tokens": int32(11)},
			want: agentloops.GenerationInfo{InputTokens: 5, OutputTokens: 6, TotalTokens: 11},
		},
		{
			name: "unknown types ignored",
			info: map[string]any{"PromptTokens": "12"},
			want: agentloops.GenerationInfo{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			model := NewLCGWrapper(&fakeLLM{response: textResponse("hi", tc.info)})
			execCtx := agentloops.NewExecutionContext(context.Background(), "test", nil)

			resp, err := model.GenerateContent(execCtx, []llms.MessageContent{
				llms.TextParts(llms.ChatMessageTypeHuman, "hello"),
			})

			require.NoError(t, err)
			assert.Equal(t, "hi", resp.Text())
			assert.Equal(t, "stop", resp.Choices[0].StopReason)
			assert.Equal(t, tc.want.InputTokens, resp.Info.InputTokens)
			assert.Equal(t, tc.want.OutputTokens, resp.Info.OutputTokens)
			assert.Equal(t, tc.want.TotalTokens, resp.Info.TotalTokens)
			assert.Equal(t, tc.want.CachedInputTokens, resp.Info.CachedInputTokens)
			assert.Equal(t, tc.want.ReasoningTokens, resp.Info.ReasoningTokens)
			assert.Equal(t, tc.info, resp.Info.RawGenerationInfo)
		})
	}
}

func TestLCGWrapper_PublishesEvents(t *testing.T) {
	llm := &fakeLLM{response: textResponse("hi", map[string]any{"PromptTokens": 3, "CompletionTokens": 2})}
	model := NewLCGWrapper(llm).WithModelName("gpt-4o").WithProvider(agentloops.ProviderOpenAI)
	execCtx := agentloops.NewExecutionContext(context.Background(), "test", nil)
	params := agentloops.InferenceParams{Temperature: 0.5, TopK: 4, MaxOutputTokens: 100}

	_, err := model.GenerateContent(execCtx, nil, params.CallOptions()...)
	require.NoError(t, err)

	events := execCtx.Events()
	require.Len(t, events, 2)
	assert.Equal(t, agentloops.EventNameModelCallBefore, events[0].Base().EventName)
	after, ok := events[1].(*agentloops.AfterModelCallEvent)
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", after.Model)
	assert.Equal(t, 3, after.InputTokens)
	assert.Equal(t, 2, after.OutputTokens)
	assert.Equal(t, int64(3), execCtx.Stats().GetCounter(agentloops.KeyInputTokensFor+"gpt-4o"))

	assert.Equal(t, 0.5, llm.gotOptions.Temperature)
	assert.Equal(t, 4, llm.gotOptions.TopK)
	assert.Equal(t, 100, llm.gotOptions.MaxTokens)
	assert.Equal(t, "gpt-4o", model.ModelName())
	assert.Same(t, llm, model.Unwrap())
}

func TestLCGWrapper_Errors(t *testing.T) {
	providerErr := errors.New("502 bad gateway")

	t.Run("provider error is a transport error", func(t *testing.T) {
		model := NewLCGWrapper(&fakeLLM{err: providerErr}).WithProvider(agentloops.ProviderAnthropic)
		execCtx := agentloops.NewExecutionContext(context.Background(), "test", nil)

		resp, err := model.GenerateContent(execCtx, nil)

		assert.Nil(t, resp)
		var te *agentloops.TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, agentloops.ProviderAnthropic, te.Provider)
		assert.Equal(t, "generate", te.Op)
		assert.ErrorIs(t, err, providerErr)
		assert.Equal(t, int64(1), execCtx.Stats().GetCounter(agentloops.KeyModelErrors))
	})

	t.Run("canceled context is returned as is", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		model := NewLCGWrapper(&fakeLLM{response: textResponse("late", nil)})

		_, err := model.GenerateContent(agentloops.NewExecutionContext(ctx, "test", nil), nil)

		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, agentloops.IsTransportError(err))
	})
}
