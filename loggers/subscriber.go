package loggers

import (
	"fmt"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/rickchristie/agentloops"
	"github.com/tmc/langchaingo/llms"
	"gopkg.in/yaml.v3"
)

// Subscriber logs every lifecycle event of a run. Nothing is truncated: when bodies are
// enabled, full requests and responses are logged as YAML.
type Subscriber struct {
	logger *bolt.Logger
	bodies bool
}

// NewSubscriber creates a Subscriber writing to logger.
func NewSubscriber(logger *bolt.Logger) *Subscriber {
	return &Subscriber{logger: logger}
}

// WithBodies enables YAML dumps of model requests and responses at trace level.
func (s *Subscriber) WithBodies(enabled bool) *Subscriber {
	s.bodies = enabled
	return s
}

func (s *Subscriber) base(e *bolt.Event, execCtx *agentloops.ExecutionContext) *bolt.Event {
	return e.Str("execution", execCtx.Name()).Int("iteration", execCtx.Iteration())
}

// OnBeforeExecution implements agentloops.BeforeExecutionSubscriber.
func (s *Subscriber) OnBeforeExecution(execCtx *agentloops.ExecutionContext, _ *agentloops.BeforeExecutionEvent) {
	e := s.base(s.logger.Info(), execCtx)
	if data := execCtx.Data(); data != nil {
		e = e.Str("task", data.GetTask())
	}
	e.Msg("execution started")
}

// OnAfterExecution implements agentloops.AfterExecutionSubscriber.
func (s *Subscriber) OnAfterExecution(execCtx *agentloops.ExecutionContext, event *agentloops.AfterExecutionEvent) {
	stats := execCtx.Stats()
	e := s.logger.Info()
	if event.Error != nil {
		e = s.logger.Error().Err(event.Error)
	}
	s.base(e, execCtx).
		Str("termination", string(event.TerminationReason)).
		Int64("duration_ms", event.Duration.Milliseconds()).
		Int64("model_calls", stats.GetModelCallCount()).
		Int64("input_tokens", stats.GetTotalInputTokens()).
		Int64("output_tokens", stats.GetTotalOutputTokens()).
		Int64("action_calls", stats.GetActionCallCount()).
		Int64("retrievals", stats.GetRetrievalCount()).
		Msg("execution finished")
}

// OnBeforeIteration implements agentloops.BeforeIterationSubscriber.
func (s *Subscriber) OnBeforeIteration(execCtx *agentloops.ExecutionContext, _ *agentloops.BeforeIterationEvent) {
	s.base(s.logger.Debug(), execCtx).Msg("turn started")
}

// OnAfterIteration implements agentloops.AfterIterationSubscriber.
func (s *Subscriber) OnAfterIteration(execCtx *agentloops.ExecutionContext, event *agentloops.AfterIterationEvent) {
	e := s.base(s.logger.Debug(), execCtx).Int64("duration_ms", event.Duration.Milliseconds())
	if event.Result != nil {
		e = e.Str("action", string(event.Result.Action))
	}
	e.Msg("turn finished")
}

// OnBeforeModelCall implements agentloops.BeforeModelCallSubscriber.
func (s *Subscriber) OnBeforeModelCall(execCtx *agentloops.ExecutionContext, event *agentloops.BeforeModelCallEvent) {
	s.base(s.logger.Debug(), execCtx).Str("model", event.Model).Msg("model call")
	if s.bodies {
		s.base(s.logger.Trace(), execCtx).Str("request", dumpYAML(requestView(event.Request))).Msg("model request")
	}
}

// OnAfterModelCall implements agentloops.AfterModelCallSubscriber.
func (s *Subscriber) OnAfterModelCall(execCtx *agentloops.ExecutionContext, event *agentloops.AfterModelCallEvent) {
	e := s.logger.Info()
	if event.Error != nil {
		e = s.logger.Warn().Err(event.Error)
	}
	s.base(e, execCtx).
		Str("model", event.Model).
		Int("input_tokens", event.InputTokens).
		Int("output_tokens", event.OutputTokens).
		Int64("duration_ms", event.Duration.Milliseconds()).
		Msg("model call finished")

	if s.bodies && event.Response != nil {
		s.base(s.logger.Trace(), execCtx).Str("response", dumpYAML(responseView(event.Response))).Msg("model response")
	}
}

// OnBeforeActionCall implements agentloops.BeforeActionCallSubscriber.
func (s *Subscriber) OnBeforeActionCall(execCtx *agentloops.ExecutionContext, event *agentloops.BeforeActionCallEvent) {
	s.base(s.logger.Debug(), execCtx).Str("action", event.Name).Str("argument", event.Argument).Msg("action call")
}

// OnAfterActionCall implements agentloops.AfterActionCallSubscriber.
func (s *Subscriber) OnAfterActionCall(execCtx *agentloops.ExecutionContext, event *agentloops.AfterActionCallEvent) {
	e := s.logger.Info()
	if event.Error != nil {
		e = s.logger.Warn().Err(event.Error)
	}
	s.base(e, execCtx).
		Str("action", event.Name).
		Str("argument", event.Argument).
		Str("observation", event.Observation).
		Int64("duration_ms", event.Duration.Milliseconds()).
		Msg("action call finished")
}

// OnBeforeRetrieval implements agentloops.BeforeRetrievalSubscriber.
func (s *Subscriber) OnBeforeRetrieval(execCtx *agentloops.ExecutionContext, event *agentloops.BeforeRetrievalEvent) {
	s.base(s.logger.Debug(), execCtx).
		Str("provider", event.Provider).
		Str("query", event.Query).
		Int("max_results", event.MaxResults).
		Msg("retrieval")
}

// OnAfterRetrieval implements agentloops.AfterRetrievalSubscriber.
func (s *Subscriber) OnAfterRetrieval(execCtx *agentloops.ExecutionContext, event *agentloops.AfterRetrievalEvent) {
	e := s.logger.Info()
	if event.Error != nil {
		e = s.logger.Warn().Err(event.Error)
	}
	s.base(e, execCtx).
		Str("provider", event.Provider).
		Str("query", event.Query).
		Int("results", len(event.Results)).
		Int64("duration_ms", event.Duration.Milliseconds()).
		Msg("retrieval finished")
}

// OnBeforeNode implements agentloops.BeforeNodeSubscriber.
func (s *Subscriber) OnBeforeNode(execCtx *agentloops.ExecutionContext, event *agentloops.BeforeNodeEvent) {
	s.base(s.logger.Debug(), execCtx).
		Str("run_id", event.RunID).
		Str("node", event.Node).
		Int("step", event.Step).
		Msg("node started")
}

// OnAfterNode implements agentloops.AfterNodeSubscriber.
func (s *Subscriber) OnAfterNode(execCtx *agentloops.ExecutionContext, event *agentloops.AfterNodeEvent) {
	e := s.logger.Info()
	if event.Error != nil {
		e = s.logger.Warn().Err(event.Error)
	}
	s.base(e, execCtx).
		Str("run_id", event.RunID).
		Str("node", event.Node).
		Int("step", event.Step).
		Str("next", event.Next).
		Int64("duration_ms", event.Duration.Milliseconds()).
		Msg("node finished")
}

// OnError implements agentloops.ErrorSubscriber.
func (s *Subscriber) OnError(execCtx *agentloops.ExecutionContext, event *agentloops.ErrorEvent) {
	s.base(s.logger.Error(), execCtx).Err(event.Err).Msg("execution failed")
}

type messageView struct {
	Role string `yaml:"role"`
	Text string `yaml:"text"`
}

func requestView(request any) any {
	messages, ok := request.([]llms.MessageContent)
	if !ok {
		return request
	}
	views := make([]messageView, len(messages))
	for i, m := range messages {
		var text string
		for _, part := range m.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				text += tc.Text
			}
		}
		views[i] = messageView{Role: string(m.Role), Text: text}
	}
	return views
}

func responseView(resp *agentloops.ContentResponse) any {
	view := map[string]any{"text": resp.Text()}
	if resp.Info != nil {
		view["input_tokens"] = resp.Info.InputTokens
		view["output_tokens"] = resp.Info.OutputTokens
		view["total_tokens"] = resp.Info.TotalTokens
	}
	if len(resp.Choices) > 0 && resp.Choices[0] != nil {
		view["stop_reason"] = resp.Choices[0].StopReason
	}
	return view
}

func dumpYAML(v any) string {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("(failed to marshal: %v)", err)
	}
	return string(data)
}

var (
	_ agentloops.BeforeExecutionSubscriber  = (*Subscriber)(nil)
	_ agentloops.AfterExecutionSubscriber   = (*Subscriber)(nil)
	_ agentloops.BeforeIterationSubscriber  = (*Subscriber)(nil)
	_ agentloops.AfterIterationSubscriber   = (*Subscriber)(nil)
	_ agentloops.BeforeModelCallSubscriber  = (*Subscriber)(nil)
	_ agentloops.AfterModelCallSubscriber   = (*Subscriber)(nil)
	_ agentloops.BeforeActionCallSubscriber = (*Subscriber)(nil)
	_ agentloops.AfterActionCallSubscriber  = (*Subscriber)(nil)
	_ agentloops.BeforeRetrievalSubscriber  = (*Subscriber)(nil)
	_ agentloops.AfterRetrievalSubscriber   = (*Subscriber)(nil)
	_ agentloops.BeforeNodeSubscriber       = (*Subscriber)(nil)
	_ agentloops.AfterNodeSubscriber        = (*Subscriber)(nil)
	_ agentloops.ErrorSubscriber            = (*Subscriber)(nil)
)
