package agentloops

import (
	"time"

	"github.com/tmc/langchaingo/llms"
)

// Model is the language model contract used by every loop in this module. It takes LangChainGo
// message types so that any llms.Model can be adapted (see models.LCGWrapper), while returning
// normalized token usage.
//
// Implementations must publish BeforeModelCall and AfterModelCall events on the ExecutionContext
// so that subscribers (loggers, metrics, tracing) observe every call. The Go context used for the
// call is execCtx.Context().
//
// Errors are returned to the caller unchanged in kind. Provider failures should be wrapped in a
// *TransportError. The core never retries; see the resilience package for opt-in retries.
type Model interface {
	GenerateContent(
		execCtx *ExecutionContext,
		messages []llms.MessageContent,
		options ...llms.CallOption,
	) (*ContentResponse, error)
}

// ContentResponse is the response from a GenerateContent call.
type ContentResponse struct {
	// Choices contains the generated content choices.
	Choices []*ContentChoice

	// Info contains generation metadata including normalized token counts.
	Info *GenerationInfo
}

// Text returns the content of the first choice, or "" when there is none.
func (r *ContentResponse) Text() string {
	if r == nil || len(r.Choices) == 0 || r.Choices[0] == nil {
		return ""
	}
	return r.Choices[0].Content
}

// ContentChoice is a single content choice from the model.
type ContentChoice struct {
	// Content is the textual content of the response.
	Content string

	// StopReason is the reason the model stopped generating.
	StopReason string

	// ReasoningContent contains reasoning/thinking content if supported.
	ReasoningContent string
}

// GenerationInfo contains metadata about the generation including normalized token counts.
type GenerationInfo struct {
	// InputTokens is the number of input/prompt tokens used.
	// This is normalized across providers:
	//   - OpenAI: PromptTokens
	//   - Anthropic: InputTokens
	//   - Ollama: PromptTokens
	//   - Bedrock: input_tokens / Usage.InputTokens
	InputTokens int

	// OutputTokens is the number of output/completion tokens generated.
	OutputTokens int

	// TotalTokens is the total token count (InputTokens + OutputTokens).
	// Some providers return this directly; otherwise it's computed.
	TotalTokens int

	// CachedInputTokens is the part of InputTokens served from a provider prompt cache.
	CachedInputTokens int

	// ReasoningTokens is the part of OutputTokens spent on reasoning, when reported.
	ReasoningTokens int

	// RawGenerationInfo contains the original provider-specific GenerationInfo map.
	RawGenerationInfo map[string]any

	// Duration is how long the generation took.
	Duration time.Duration
}
