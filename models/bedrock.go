package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/rickchristie/agentloops"
	"github.com/tmc/langchaingo/llms"
)

// BedrockRuntime is the subset of *bedrockruntime.Client used by Bedrock. Tests pass a fake.
type BedrockRuntime interface {
	Converse(
		ctx context.Context,
		params *bedrockruntime.ConverseInput,
		optFns ...func(*bedrockruntime.Options),
	) (*bedrockruntime.ConverseOutput, error)
}

// Bedrock implements agentloops.Model with the AWS Bedrock Converse API.
//
// System messages become Converse system blocks, human messages user turns, ai messages
// assistant turns. Consecutive messages with the same role are merged into one turn because
// Converse requires alternating roles.
type Bedrock struct {
	runtime BedrockRuntime
	modelID string
}

// NewBedrock creates a Bedrock model for modelID, e.g. agentloops.ModelBedrockNovaPro.
func NewBedrock(runtime BedrockRuntime, modelID string) *Bedrock {
	return &Bedrock{runtime: runtime, modelID: modelID}
}

// ModelName returns the Bedrock model ID.
func (b *Bedrock) ModelName() string {
	return b.modelID
}

// GenerateContent implements agentloops.Model.
func (b *Bedrock) GenerateContent(
	execCtx *agentloops.ExecutionContext,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*agentloops.ContentResponse, error) {
	execCtx.PublishBeforeModelCall(b.modelID, messages)

	input, err := b.buildInput(messages, options)
	if err != nil {
		execCtx.PublishAfterModelCall(b.modelID, messages, nil, 0, err)
		return nil, err
	}

	start := time.Now()
	output, err := b.runtime.Converse(execCtx.Context(), input)
	duration := time.Since(start)

	var response *agentloops.ContentResponse
	if err != nil {
		err = wrapBedrockError(execCtx, err)
	} else if response, err = translateConverseOutput(output); err == nil {
		response.Info.Duration = duration
	}

	execCtx.PublishAfterModelCall(b.modelID, messages, response, duration, err)
	return response, err
}

func (b *Bedrock) buildInput(
	messages []llms.MessageContent,
	options []llms.CallOption,
) (*bedrockruntime.ConverseInput, error) {
	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}

	modelID := b.modelID
	if opts.Model != "" {
		modelID = opts.Model
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:         aws.String(modelID),
		InferenceConfig: &brtypes.InferenceConfiguration{Temperature: aws.Float32(float32(opts.Temperature))},
	}
	if opts.MaxTokens > 0 {
		input.InferenceConfig.MaxTokens = aws.Int32(int32(opts.MaxTokens)) //nolint:gosec // AWS SDK requires int32
	}
	if fields := topKFields(modelID, opts.TopK); fields != nil {
		input.AdditionalModelRequestFields = document.NewLazyDocument(fields)
	}

	for _, m := range messages {
		text := messageText(m)
		switch m.Role {
		case llms.ChatMessageTypeSystem:
			input.System = append(input.System, &brtypes.SystemContentBlockMemberText{Value: text})
		case llms.ChatMessageTypeHuman, llms.ChatMessageTypeGeneric:
			input.Messages = appendTurn(input.Messages, brtypes.ConversationRoleUser, text)
		case llms.ChatMessageTypeAI:
			input.Messages = appendTurn(input.Messages, brtypes.ConversationRoleAssistant, text)
		default:
			return nil, fmt.Errorf("bedrock: unsupported message role %q", m.Role)
		}
	}
	if len(input.Messages) == 0 {
		return nil, errors.New("bedrock: at least one user message is required")
	}
	return input, nil
}

// topKFields returns the model-specific request fields carrying top-k, which the Converse
// InferenceConfiguration lacks. Model IDs may carry a cross-region prefix such as "us.".
// Families without a known top-k field get nil.
func topKFields(modelID string, topK int) map[string]any {
	if topK <= 0 {
		return nil
	}
	switch {
	case strings.Contains(modelID, "amazon.nova"):
		return map[string]any{"inferenceConfig": map[string]any{"topK": topK}}
	case strings.Contains(modelID, "anthropic."), strings.Contains(modelID, "mistral."):
		return map[string]any{"top_k": topK}
	}
	return nil
}

func appendTurn(turns []brtypes.Message, role brtypes.ConversationRole, text string) []brtypes.Message {
	block := &brtypes.ContentBlockMemberText{Value: text}
	if n := len(turns); n > 0 && turns[n-1].Role == role {
		turns[n-1].Content = append(turns[n-1].Content, block)
		return turns
	}
	return append(turns, brtypes.Message{Role: role, Content: []brtypes.ContentBlock{block}})
}

func messageText(m llms.MessageContent) string {
	var sb strings.Builder
	for _, part := range m.Parts {
		if tc, ok := part.(llms.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

func translateConverseOutput(output *bedrockruntime.ConverseOutput) (*agentloops.ContentResponse, error) {
	if output == nil {
		return nil, errors.New("bedrock: response is nil")
	}

	var sb strings.Builder
	if msg, ok := output.Output.(*brtypes.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
				sb.WriteString(text.Value)
			}
		}
	}

	info := &agentloops.GenerationInfo{}
	if usage := output.Usage; usage != nil {
		info.InputTokens = int(aws.ToInt32(usage.InputTokens))
		info.OutputTokens = int(aws.ToInt32(usage.OutputTokens))
		info.TotalTokens = int(aws.ToInt32(usage.TotalTokens))
		info.CachedInputTokens = int(aws.ToInt32(usage.CacheReadInputTokens))
		if info.TotalTokens == 0 {
			info.TotalTokens = info.InputTokens + info.OutputTokens
		}
		info.RawGenerationInfo = map[string]any{
			"input_tokens":  info.InputTokens,
			"output_tokens": info.OutputTokens,
			"total_tokens":  info.TotalTokens,
		}
	}

	return &agentloops.ContentResponse{
		Choices: []*agentloops.ContentChoice{{
			Content:    sb.String(),
			StopReason: string(output.StopReason),
		}},
		Info: info,
	}, nil
}

func wrapBedrockError(execCtx *agentloops.ExecutionContext, err error) error {
	wrapped := wrapError(execCtx, agentloops.ProviderBedrock, "converse", err)
	te, ok := wrapped.(*agentloops.TransportError)
	if !ok {
		return wrapped
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		te.StatusCode = respErr.HTTPStatusCode()
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && te.StatusCode == 0 {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			te.StatusCode = 429
		case "ValidationException":
			te.StatusCode = 400
		case "AccessDeniedException":
			te.StatusCode = 403
		}
	}
	return te
}

var _ agentloops.Model = (*Bedrock)(nil)
