// Package tracing turns run events into OpenTelemetry spans.
//
// Every execution gets a root span. ReAct turns and graph nodes are children of it, and model
// calls, action calls and retrievals are children of the innermost open turn or node.
package tracing

import (
	"context"
	"sync"

	"github.com/rickchristie/agentloops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTracerName is used when New is given no tracer.
const DefaultTracerName = "github.com/rickchristie/agentloops"

// spans holds the open spans of one execution.
type spans struct {
	execution trace.Span
	ctx       context.Context
	scope     trace.Span
	scopeCtx  context.Context
	model     trace.Span
	action    trace.Span
	retrieval trace.Span
}

func (s *spans) parent() context.Context {
	if s.scope != nil {
		return s.scopeCtx
	}
	return s.ctx
}

// Subscriber creates spans from events. Safe for concurrent executions.
type Subscriber struct {
	tracer trace.Tracer

	mu   sync.Mutex
	open map[*agentloops.ExecutionContext]*spans
}

// New creates a Subscriber. A nil tracer uses the global provider.
func New(tracer trace.Tracer) *Subscriber {
	if tracer == nil {
		tracer = otel.Tracer(DefaultTracerName)
	}
	return &Subscriber{tracer: tracer, open: make(map[*agentloops.ExecutionContext]*spans)}
}

func (s *Subscriber) get(execCtx *agentloops.ExecutionContext) *spans {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open[execCtx]
}

func end(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// OnBeforeExecution implements agentloops.BeforeExecutionSubscriber.
func (s *Subscriber) OnBeforeExecution(execCtx *agentloops.ExecutionContext, _ *agentloops.BeforeExecutionEvent) {
	attrs := []attribute.KeyValue{attribute.String("agentloops.execution", execCtx.Name())}
	if data := execCtx.Data(); data != nil {
		attrs = append(attrs, attribute.String("agentloops.task", data.GetTask()))
	}
	ctx, span := s.tracer.Start(execCtx.Context(), "agentloops."+execCtx.Name(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)

	s.mu.Lock()
	s.open[execCtx] = &spans{execution: span, ctx: ctx}
	s.mu.Unlock()
}

// OnAfterExecution implements agentloops.AfterExecutionSubscriber.
func (s *Subscriber) OnAfterExecution(execCtx *agentloops.ExecutionContext, event *agentloops.AfterExecutionEvent) {
	s.mu.Lock()
	open := s.open[execCtx]
	delete(s.open, execCtx)
	s.mu.Unlock()
	if open == nil {
		return
	}

	end(open.model, nil)
	end(open.action, nil)
	end(open.retrieval, nil)
	end(open.scope, nil)

	stats := execCtx.Stats()
	open.execution.SetAttributes(
		attribute.String("agentloops.termination", string(event.TerminationReason)),
		attribute.Int64("agentloops.model_calls", stats.GetModelCallCount()),
		attribute.Int64("agentloops.input_tokens", stats.GetTotalInputTokens()),
		attribute.Int64("agentloops.output_tokens", stats.GetTotalOutputTokens()),
	)
	end(open.execution, event.Error)
}

// OnBeforeIteration implements agentloops.BeforeIterationSubscriber.
func (s *Subscriber) OnBeforeIteration(execCtx *agentloops.ExecutionContext, _ *agentloops.BeforeIterationEvent) {
	open := s.get(execCtx)
	if open == nil {
		return
	}
	open.scopeCtx, open.scope = s.tracer.Start(open.ctx, "agentloops.turn",
		trace.WithAttributes(attribute.Int("agentloops.iteration", execCtx.Iteration())),
	)
}

// OnAfterIteration implements agentloops.AfterIterationSubscriber.
func (s *Subscriber) OnAfterIteration(execCtx *agentloops.ExecutionContext, event *agentloops.AfterIterationEvent) {
	open := s.get(execCtx)
	if open == nil || open.scope == nil {
		return
	}
	if event.Result != nil {
		open.scope.SetAttributes(attribute.String("agentloops.action", string(event.Result.Action)))
	}
	end(open.scope, nil)
	open.scope = nil
}

// OnBeforeNode implements agentloops.BeforeNodeSubscriber.
func (s *Subscriber) OnBeforeNode(execCtx *agentloops.ExecutionContext, event *agentloops.BeforeNodeEvent) {
	open := s.get(execCtx)
	if open == nil {
		return
	}
	open.scopeCtx, open.scope = s.tracer.Start(open.ctx, "agentloops.node."+event.Node,
		trace.WithAttributes(
			attribute.String("agentloops.run_id", event.RunID),
			attribute.String("agentloops.node", event.Node),
			attribute.Int("agentloops.step", event.Step),
		),
	)
}

// OnAfterNode implements agentloops.AfterNodeSubscriber.
func (s *Subscriber) OnAfterNode(execCtx *agentloops.ExecutionContext, event *agentloops.AfterNodeEvent) {
	open := s.get(execCtx)
	if open == nil || open.scope == nil {
		return
	}
	open.scope.SetAttributes(attribute.String("agentloops.next", event.Next))
	end(open.scope, event.Error)
	open.scope = nil
}

// OnBeforeModelCall implements agentloops.BeforeModelCallSubscriber.
func (s *Subscriber) OnBeforeModelCall(execCtx *agentloops.ExecutionContext, event *agentloops.BeforeModelCallEvent) {
	open := s.get(execCtx)
	if open == nil {
		return
	}
	_, open.model = s.tracer.Start(open.parent(), "agentloops.model",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("agentloops.model", event.Model)),
	)
}

// OnAfterModelCall implements agentloops.AfterModelCallSubscriber.
func (s *Subscriber) OnAfterModelCall(execCtx *agentloops.ExecutionContext, event *agentloops.AfterModelCallEvent) {
	open := s.get(execCtx)
	if open == nil || open.model == nil {
		return
	}
	open.model.SetAttributes(
		attribute.Int("agentloops.input_tokens", event.InputTokens),
		attribute.Int("agentloops.output_tokens", event.OutputTokens),
	)
	end(open.model, event.Error)
	open.model = nil
}

// OnBeforeActionCall implements agentloops.BeforeActionCallSubscriber.
func (s *Subscriber) OnBeforeActionCall(execCtx *agentloops.ExecutionContext, event *agentloops.BeforeActionCallEvent) {
	open := s.get(execCtx)
	if open == nil {
		return
	}
	_, open.action = s.tracer.Start(open.parent(), "agentloops.action."+event.Name,
		trace.WithAttributes(
			attribute.String("agentloops.action", event.Name),
			attribute.String("agentloops.argument", event.Argument),
		),
	)
}

// OnAfterActionCall implements agentloops.AfterActionCallSubscriber.
func (s *Subscriber) OnAfterActionCall(execCtx *agentloops.ExecutionContext, event *agentloops.AfterActionCallEvent) {
	open := s.get(execCtx)
	if open == nil || open.action == nil {
		return
	}
	open.action.SetAttributes(attribute.String("agentloops.observation", event.Observation))
	end(open.action, event.Error)
	open.action = nil
}

// OnBeforeRetrieval implements agentloops.BeforeRetrievalSubscriber.
func (s *Subscriber) OnBeforeRetrieval(execCtx *agentloops.ExecutionContext, event *agentloops.BeforeRetrievalEvent) {
	open := s.get(execCtx)
	if open == nil {
		return
	}
	_, open.retrieval = s.tracer.Start(open.parent(), "agentloops.retrieval",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("agentloops.provider", event.Provider),
			attribute.String("agentloops.query", event.Query),
			attribute.Int("agentloops.max_results", event.MaxResults),
		),
	)
}

// OnAfterRetrieval implements agentloops.AfterRetrievalSubscriber.
func (s *Subscriber) OnAfterRetrieval(execCtx *agentloops.ExecutionContext, event *agentloops.AfterRetrievalEvent) {
	open := s.get(execCtx)
	if open == nil || open.retrieval == nil {
		return
	}
	open.retrieval.SetAttributes(attribute.Int("agentloops.results", len(event.Results)))
	end(open.retrieval, event.Error)
	open.retrieval = nil
}

var (
	_ agentloops.BeforeExecutionSubscriber  = (*Subscriber)(nil)
	_ agentloops.AfterExecutionSubscriber   = (*Subscriber)(nil)
	_ agentloops.BeforeIterationSubscriber  = (*Subscriber)(nil)
	_ agentloops.AfterIterationSubscriber   = (*Subscriber)(nil)
	_ agentloops.BeforeNodeSubscriber       = (*Subscriber)(nil)
	_ agentloops.AfterNodeSubscriber        = (*Subscriber)(nil)
	_ agentloops.BeforeModelCallSubscriber  = (*Subscriber)(nil)
	_ agentloops.AfterModelCallSubscriber   = (*Subscriber)(nil)
	_ agentloops.BeforeActionCallSubscriber = (*Subscriber)(nil)
	_ agentloops.AfterActionCallSubscriber  = (*Subscriber)(nil)
	_ agentloops.BeforeRetrievalSubscriber  = (*Subscriber)(nil)
	_ agentloops.AfterRetrievalSubscriber   = (*Subscriber)(nil)
)
