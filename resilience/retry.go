// Package resilience wraps models and retrievers with retries and client-side rate limiting.
//
// The loops in this module never retry on their own. Wrap a collaborator to opt in:
//
//	model = resilience.NewRetryModel(model, resilience.RetryConfig{MaxAttempts: 3})
//	model = resilience.NewRateLimitedModel(model, 2, 1)
//
// Only *agentloops.TransportError failures are retried. Context cancellation, missing
// credentials and every other error are returned after the first attempt.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/rickchristie/agentloops"
	"github.com/tmc/langchaingo/llms"
)

// RetryConfig configures exponential backoff.
type RetryConfig struct {
	// MaxAttempts includes the first call. Values below 1 are treated as 1.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// Multiplier defaults to 2.
	Multiplier float64
	Jitter     bool
}

// DefaultRetryConfig returns three attempts starting at 500ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		Jitter:       true,
	}
}

var errPermanent = errors.New("permanent failure")

// permanentError marks a failure fortify must not retry.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string        { return e.err.Error() }
func (e *permanentError) Unwrap() error        { return e.err }
func (e *permanentError) Is(target error) bool { return target == errPermanent }

func newRetry[T any](cfg RetryConfig) retry.Retry[T] {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	multiplier := cfg.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}
	return retry.New[T](retry.Config{
		MaxAttempts:        attempts,
		InitialDelay:       cfg.InitialDelay,
		MaxDelay:           cfg.MaxDelay,
		Multiplier:         multiplier,
		BackoffPolicy:      retry.BackoffExponential,
		Jitter:             cfg.Jitter,
		NonRetryableErrors: []error{errPermanent, context.Canceled, context.DeadlineExceeded},
	})
}

// classify leaves transport failures retryable and marks everything else permanent.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, agentloops.ErrMissingCredential) || !agentloops.IsTransportError(err) {
		return &permanentError{err: err}
	}
	return err
}

// unwrapPermanent returns the original error of a permanent failure.
func unwrapPermanent(err error) error {
	var pe *permanentError
	if errors.As(err, &pe) {
		return pe.err
	}
	return err
}

// RetryModel retries transport failures of the wrapped model. Every attempt is a separate
// model call, so subscribers observe each one.
type RetryModel struct {
	model agentloops.Model
	retry retry.Retry[*agentloops.ContentResponse]
}

// NewRetryModel wraps model with the given backoff.
func NewRetryModel(model agentloops.Model, cfg RetryConfig) *RetryModel {
	return &RetryModel{
		model: model,
		retry: newRetry[*agentloops.ContentResponse](cfg),
	}
}

// GenerateContent implements agentloops.Model.
func (m *RetryModel) GenerateContent(
	execCtx *agentloops.ExecutionContext,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*agentloops.ContentResponse, error) {
	resp, err := m.retry.Do(execCtx.Context(), func(context.Context) (*agentloops.ContentResponse, error) {
		resp, err := m.model.GenerateContent(execCtx, messages, options...)
		return resp, classify(err)
	})
	if err != nil {
		return nil, unwrapPermanent(err)
	}
	return resp, nil
}

// RetryRetriever retries transport failures of the wrapped retriever.
type RetryRetriever struct {
	retriever agentloops.Retriever
	retry     retry.Retry[[]string]
}

// NewRetryRetriever wraps retriever with the given backoff.
func NewRetryRetriever(retriever agentloops.Retriever, cfg RetryConfig) *RetryRetriever {
	return &RetryRetriever{
		retriever: retriever,
		retry:     newRetry[[]string](cfg),
	}
}

// Search implements agentloops.Retriever.
func (r *RetryRetriever) Search(
	execCtx *agentloops.ExecutionContext,
	query string,
	maxResults int,
) ([]string, error) {
	results, err := r.retry.Do(execCtx.Context(), func(context.Context) ([]string, error) {
		results, err := r.retriever.Search(execCtx, query, maxResults)
		return results, classify(err)
	})
	if err != nil {
		return nil, unwrapPermanent(err)
	}
	return results, nil
}

var (
	_ agentloops.Model     = (*RetryModel)(nil)
	_ agentloops.Retriever = (*RetryRetriever)(nil)
)
