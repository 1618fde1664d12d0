package agentloops

import (
	"context"
	"sync"
	"time"
)

// ExecutionContext is the ambient context passed through everything in the module. It carries
// the Go context for cancellation, the run's LoopData, stats, the event log, and the event
// dispatcher.
//
// All components (Model, Retriever, actions.Registry, graph.Compiled) receive the
// ExecutionContext and publish events on it, so subscribers see every call without manual
// wiring.
type ExecutionContext struct {
	mu sync.RWMutex

	ctx  context.Context
	data LoopData
	name string

	// Current position (auto-tracked)
	iteration int

	stats      *ExecutionStats
	events     []Event
	dispatcher EventDispatcher

	startTime time.Time
	endTime   time.Time

	terminationReason TerminationReason
	finalResult       string
	err               error
}

// NewExecutionContext creates an ExecutionContext. data may be nil for runs that are not agent
// loops, such as workflow graph invocations.
func NewExecutionContext(ctx context.Context, name string, data LoopData) *ExecutionContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ExecutionContext{
		ctx:       ctx,
		name:      name,
		data:      data,
		stats:     NewExecutionStats(),
		events:    make([]Event, 0),
		startTime: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Data Access
// -----------------------------------------------------------------------------

// Context returns the Go context for blocking calls made on behalf of this execution.
func (ctx *ExecutionContext) Context() context.Context {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.ctx
}

// Data returns the LoopData, nil for graph runs.
func (ctx *ExecutionContext) Data() LoopData {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.data
}

// Name returns the name of this execution context.
func (ctx *ExecutionContext) Name() string {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.name
}

// Stats returns the live stats of this execution.
func (ctx *ExecutionContext) Stats() *ExecutionStats {
	return ctx.stats
}

// SetDispatcher sets the event dispatcher. Called by the executor and the graph engine.
func (ctx *ExecutionContext) SetDispatcher(d EventDispatcher) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.dispatcher = d
}

// -----------------------------------------------------------------------------
// Iteration Management
// -----------------------------------------------------------------------------

// Iteration returns the current iteration number (1-indexed).
// Returns 0 if no iteration has started.
func (ctx *ExecutionContext) Iteration() int {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.iteration
}

// StartIteration begins a new iteration. Called by the Executor at the start of each iteration.
func (ctx *ExecutionContext) StartIteration() {
	ctx.mu.Lock()
	ctx.iteration++
	ctx.mu.Unlock()
	ctx.stats.IncrCounter(KeyIterations, 1)
}

// -----------------------------------------------------------------------------
// Event Publishing
// -----------------------------------------------------------------------------

// Publish records a custom event and dispatches it to subscribers.
func (ctx *ExecutionContext) Publish(name string, event Event) {
	ctx.publish(name, event)
}

func (ctx *ExecutionContext) publish(name string, event Event) {
	ctx.mu.Lock()
	base := event.Base()
	base.EventName = name
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	base.Iteration = ctx.iteration
	ctx.events = append(ctx.events, event)
	dispatcher := ctx.dispatcher
	ctx.mu.Unlock()

	ctx.updateStats(event)

	if dispatcher != nil {
		dispatcher.Dispatch(ctx, event)
	}
}

func (ctx *ExecutionContext) updateStats(event Event) {
	switch e := event.(type) {
	case *AfterModelCallEvent:
		ctx.stats.IncrCounter(KeyModelCalls, 1)
		ctx.stats.IncrCounter(KeyInputTokens, int64(e.InputTokens))
		ctx.stats.IncrCounter(KeyOutputTokens, int64(e.OutputTokens))
		if e.Model != "" {
			ctx.stats.IncrCounter(KeyInputTokensFor+e.Model, int64(e.InputTokens))
			ctx.stats.IncrCounter(KeyOutputTokensFor+e.Model, int64(e.OutputTokens))
		}
		if e.Error != nil {
			ctx.stats.IncrCounter(KeyModelErrors, 1)
		}
	case *AfterActionCallEvent:
		ctx.stats.IncrCounter(KeyActionCalls, 1)
		ctx.stats.IncrCounter(KeyActionCallsFor+e.Name, 1)
		if e.Error != nil {
			ctx.stats.IncrCounter(KeyActionCallsErrors, 1)
		}
	case *AfterRetrievalEvent:
		ctx.stats.IncrCounter(KeyRetrievals, 1)
		ctx.stats.IncrCounter(KeyRetrievalSnippets, int64(len(e.Results)))
		if e.Error != nil {
			ctx.stats.IncrCounter(KeyRetrievalErrors, 1)
		}
	case *BeforeNodeEvent:
		ctx.stats.IncrCounter(KeyNodeRuns, 1)
		ctx.stats.IncrCounter(KeyNodeRunsFor+e.Node, 1)
	}
}

// PublishBeforeExecution publishes a BeforeExecutionEvent.
func (ctx *ExecutionContext) PublishBeforeExecution() {
	ctx.publish(EventNameExecutionBefore, &BeforeExecutionEvent{})
}

// PublishAfterExecution publishes an AfterExecutionEvent using the recorded termination.
func (ctx *ExecutionContext) PublishAfterExecution() {
	ctx.publish(EventNameExecutionAfter, &AfterExecutionEvent{
		TerminationReason: ctx.TerminationReason(),
		Error:             ctx.Error(),
		Duration:          ctx.Duration(),
	})
}

// PublishBeforeIteration publishes a BeforeIterationEvent.
func (ctx *ExecutionContext) PublishBeforeIteration() {
	ctx.publish(EventNameIterationBefore, &BeforeIterationEvent{})
}

// PublishAfterIteration publishes an AfterIterationEvent.
func (ctx *ExecutionContext) PublishAfterIteration(result *AgentLoopResult, duration time.Duration) {
	ctx.publish(EventNameIterationAfter, &AfterIterationEvent{
		Result:   result,
		Duration: duration,
	})
}

// PublishBeforeModelCall publishes a BeforeModelCallEvent.
func (ctx *ExecutionContext) PublishBeforeModelCall(model string, request any) {
	ctx.publish(EventNameModelCallBefore, &BeforeModelCallEvent{
		Model:   model,
		Request: request,
	})
}

// PublishAfterModelCall publishes an AfterModelCallEvent and aggregates token usage.
func (ctx *ExecutionContext) PublishAfterModelCall(
	model string,
	request any,
	response *ContentResponse,
	duration time.Duration,
	err error,
) {
	event := &AfterModelCallEvent{
		Model:    model,
		Request:  request,
		Response: response,
		Duration: duration,
		Error:    err,
	}
	if response != nil && response.Info != nil {
		event.InputTokens = response.Info.InputTokens
		event.OutputTokens = response.Info.OutputTokens
	}
	ctx.publish(EventNameModelCallAfter, event)
}

// PublishBeforeActionCall publishes a BeforeActionCallEvent.
func (ctx *ExecutionContext) PublishBeforeActionCall(name, argument string) {
	ctx.publish(EventNameActionCallBefore, &BeforeActionCallEvent{
		Name:     name,
		Argument: argument,
	})
}

// PublishAfterActionCall publishes an AfterActionCallEvent.
func (ctx *ExecutionContext) PublishAfterActionCall(
	name string,
	argument string,
	observation string,
	duration time.Duration,
	err error,
) {
	ctx.publish(EventNameActionCallAfter, &AfterActionCallEvent{
		Name:        name,
		Argument:    argument,
		Observation: observation,
		Duration:    duration,
		Error:       err,
	})
}

// PublishBeforeRetrieval publishes a BeforeRetrievalEvent.
func (ctx *ExecutionContext) PublishBeforeRetrieval(provider, query string, maxResults int) {
	ctx.publish(EventNameRetrievalBefore, &BeforeRetrievalEvent{
		Provider:   provider,
		Query:      query,
		MaxResults: maxResults,
	})
}

// PublishAfterRetrieval publishes an AfterRetrievalEvent.
func (ctx *ExecutionContext) PublishAfterRetrieval(
	provider string,
	query string,
	results []string,
	duration time.Duration,
	err error,
) {
	ctx.publish(EventNameRetrievalAfter, &AfterRetrievalEvent{
		Provider: provider,
		Query:    query,
		Results:  results,
		Duration: duration,
		Error:    err,
	})
}

// PublishBeforeNode publishes a BeforeNodeEvent.
func (ctx *ExecutionContext) PublishBeforeNode(runID, node string, step int) {
	ctx.publish(EventNameNodeBefore, &BeforeNodeEvent{
		RunID: runID,
		Node:  node,
		Step:  step,
	})
}

// PublishAfterNode publishes an AfterNodeEvent.
func (ctx *ExecutionContext) PublishAfterNode(
	runID string,
	node string,
	step int,
	next string,
	duration time.Duration,
	err error,
) {
	ctx.publish(EventNameNodeAfter, &AfterNodeEvent{
		RunID:    runID,
		Node:     node,
		Step:     step,
		Next:     next,
		Duration: duration,
		Error:    err,
	})
}

// PublishError publishes an ErrorEvent.
func (ctx *ExecutionContext) PublishError(err error) {
	ctx.publish(EventNameError, &ErrorEvent{Err: err})
}

// Events returns a copy of all recorded events.
func (ctx *ExecutionContext) Events() []Event {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	result := make([]Event, len(ctx.events))
	copy(result, ctx.events)
	return result
}

// -----------------------------------------------------------------------------
// Termination
// -----------------------------------------------------------------------------

// SetTermination sets the termination reason and final result.
// Called by the Executor when execution ends.
func (ctx *ExecutionContext) SetTermination(reason TerminationReason, result string, err error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.terminationReason = reason
	ctx.finalResult = result
	ctx.err = err
	ctx.endTime = time.Now()
}

// TerminationReason returns why execution terminated.
func (ctx *ExecutionContext) TerminationReason() TerminationReason {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.terminationReason
}

// FinalResult returns the final result (if terminated successfully).
func (ctx *ExecutionContext) FinalResult() string {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.finalResult
}

// Error returns the error (if terminated with error).
func (ctx *ExecutionContext) Error() error {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.err
}

// StartTime returns when execution began.
func (ctx *ExecutionContext) StartTime() time.Time {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.startTime
}

// Duration returns the total execution duration.
// If execution is still in progress, returns duration since start.
func (ctx *ExecutionContext) Duration() time.Duration {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	if ctx.endTime.IsZero() {
		return time.Since(ctx.startTime)
	}
	return ctx.endTime.Sub(ctx.startTime)
}
