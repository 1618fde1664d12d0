package resilience

import (
	"fmt"

	"github.com/rickchristie/agentloops"
	"github.com/tmc/langchaingo/llms"
	"golang.org/x/time/rate"
)

// RateLimitedModel waits for a token before every call of the wrapped model.
type RateLimitedModel struct {
	model   agentloops.Model
	limiter *rate.Limiter
}

// NewRateLimitedModel allows rps calls per second with the given burst. A burst below 1 is
// raised to 1.
func NewRateLimitedModel(model agentloops.Model, rps float64, burst int) *RateLimitedModel {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedModel{
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// GenerateContent implements agentloops.Model. Waiting respects cancellation of
// execCtx.Context().
func (m *RateLimitedModel) GenerateContent(
	execCtx *agentloops.ExecutionContext,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*agentloops.ContentResponse, error) {
	if err := m.limiter.Wait(execCtx.Context()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return m.model.GenerateContent(execCtx, messages, options...)
}

var _ agentloops.Model = (*RateLimitedModel)(nil)
