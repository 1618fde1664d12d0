package models

import (
	"time"

	"github.com/rickchristie/agentloops"
	"github.com/tmc/langchaingo/llms"
)

// LCGWrapper wraps an llms.Model and implements agentloops.Model.
// It normalizes token usage across providers and publishes model call events on the
// ExecutionContext.
//
// Example usage:
//
//	llm, _ := openai.New(openai.WithToken(apiKey))
//	model := models.NewLCGWrapper(llm).WithModelName("gpt-4o").WithProvider("openai")
//
//	response, err := model.GenerateContent(execCtx, messages)
type LCGWrapper struct {
	model     llms.Model
	modelName string
	provider  string
}

// NewLCGWrapper creates a new LCGWrapper wrapping the given llms.Model.
func NewLCGWrapper(model llms.Model) *LCGWrapper {
	return &LCGWrapper{
		model:    model,
		provider: "langchaingo",
	}
}

// WithModelName sets the model name used in events and stats.
func (m *LCGWrapper) WithModelName(name string) *LCGWrapper {
	m.modelName = name
	return m
}

// WithProvider sets the provider name reported in *agentloops.TransportError.
func (m *LCGWrapper) WithProvider(provider string) *LCGWrapper {
	m.provider = provider
	return m
}

// ModelName returns the model name used in events.
func (m *LCGWrapper) ModelName() string {
	return m.modelName
}

// Unwrap returns the underlying llms.Model.
func (m *LCGWrapper) Unwrap() llms.Model {
	return m.model
}

// GenerateContent implements agentloops.Model.
// The call uses execCtx.Context() and is wrapped in BeforeModelCall / AfterModelCall events.
// Provider errors are returned as *agentloops.TransportError; context errors are returned as is.
func (m *LCGWrapper) GenerateContent(
	execCtx *agentloops.ExecutionContext,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*agentloops.ContentResponse, error) {
	execCtx.PublishBeforeModelCall(m.modelName, messages)

	startTime := time.Now()
	lcgResponse, err := m.model.GenerateContent(execCtx.Context(), messages, options...)
	duration := time.Since(startTime)

	var response *agentloops.ContentResponse
	if lcgResponse != nil && err == nil {
		response = convertLCGResponse(lcgResponse, duration)
	}
	if err != nil {
		err = wrapError(execCtx, m.provider, "generate", err)
	}

	execCtx.PublishAfterModelCall(m.modelName, messages, response, duration, err)
	return response, err
}

// wrapError returns err unchanged when the caller's context ended, otherwise as a
// *agentloops.TransportError.
func wrapError(execCtx *agentloops.ExecutionContext, provider, op string, err error) error {
	if execCtx.Context().Err() != nil {
		return err
	}
	return &agentloops.TransportError{Provider: provider, Op: op, Err: err}
}

// convertLCGResponse converts an llms.ContentResponse to agentloops.ContentResponse with
// normalized tokens.
func convertLCGResponse(
	lcgResponse *llms.ContentResponse,
	duration time.Duration,
) *agentloops.ContentResponse {
	response := &agentloops.ContentResponse{
		Choices: make([]*agentloops.ContentChoice, len(lcgResponse.Choices)),
		Info:    &agentloops.GenerationInfo{Duration: duration},
	}

	for i, choice := range lcgResponse.Choices {
		response.Choices[i] = &agentloops.ContentChoice{
			Content:          choice.Content,
			StopReason:       choice.StopReason,
			ReasoningContent: choice.ReasoningContent,
		}
	}

	// Token info lives on the first choice's GenerationInfo.
	if len(lcgResponse.Choices) > 0 && lcgResponse.Choices[0].GenerationInfo != nil {
		rawInfo := lcgResponse.Choices[0].GenerationInfo
		response.Info.RawGenerationInfo = rawInfo
		response.Info.InputTokens = extractInputTokens(rawInfo)
		response.Info.OutputTokens = extractOutputTokens(rawInfo)
		response.Info.TotalTokens = extractTotalTokens(
			rawInfo,
			response.Info.InputTokens,
			response.Info.OutputTokens,
		)
		response.Info.CachedInputTokens = extractCachedInputTokens(rawInfo)
		response.Info.ReasoningTokens = extractReasoningTokens(rawInfo)
	}

	return response
}

// firstInt returns the first positive value among keys. Providers disagree on key names:
// OpenAI and Ollama use PromptTokens/CompletionTokens, Anthropic InputTokens/OutputTokens,
// Google and Bedrock snake_case.
func firstInt(info map[string]any, keys ...string) int {
	for _, key := range keys {
		if v := getIntFromMap(info, key); v > 0 {
			return v
		}
	}
	return 0
}

func extractInputTokens(info map[string]any) int {
	return firstInt(info, "PromptTokens", "InputTokens", "input_tokens")
}

func extractOutputTokens(info map[string]any) int {
	return firstInt(info, "CompletionTokens", "OutputTokens", "output_tokens")
}

func extractTotalTokens(info map[string]any, input, output int) int {
	if v := firstInt(info, "TotalTokens", "total_tokens"); v > 0 {
		return v
	}
	return input + output
}

func extractCachedInputTokens(info map[string]any) int {
	return firstInt(info, "PromptCachedTokens", "CacheReadInputTokens", "CachedTokens")
}

func extractReasoningTokens(info map[string]any) int {
	return firstInt(info, "ReasoningTokens", "CompletionReasoningTokens", "ThinkingTokens")
}

// getIntFromMap extracts an int value from a map, handling various numeric types.
func getIntFromMap(m map[string]any, key string) int {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	default:
		return 0
	}
}

// Compile-time check that LCGWrapper implements agentloops.Model.
var _ agentloops.Model = (*LCGWrapper)(nil)
