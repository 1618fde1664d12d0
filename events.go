package agentloops

import "time"

// -----------------------------------------------------------------------------
// Event Interface
// -----------------------------------------------------------------------------

// Event is implemented by every event published on an ExecutionContext.
type Event interface {
	// Base returns the common fields populated at publish time.
	Base() *BaseEvent
}

// BaseEvent holds the fields shared by all events. They are filled in by the ExecutionContext
// when the event is published.
type BaseEvent struct {
	EventName string
	Timestamp time.Time
	Iteration int
}

func (e *BaseEvent) Base() *BaseEvent { return e }

// -----------------------------------------------------------------------------
// Executor Events
// -----------------------------------------------------------------------------

// BeforeExecutionEvent is emitted once before the first iteration begins.
type BeforeExecutionEvent struct {
	BaseEvent
}

// AfterExecutionEvent is emitted once after execution terminates.
type AfterExecutionEvent struct {
	BaseEvent

	// TerminationReason indicates why execution ended.
	TerminationReason TerminationReason

	// Error is the error if execution failed (nil on success or turn limit).
	Error error

	Duration time.Duration
}

// BeforeIterationEvent is emitted before each AgentLoop.Next call.
type BeforeIterationEvent struct {
	BaseEvent
}

// AfterIterationEvent is emitted after each successful AgentLoop.Next call.
type AfterIterationEvent struct {
	BaseEvent

	// Result is the AgentLoopResult from this iteration.
	Result *AgentLoopResult

	// Duration is how long this iteration took.
	Duration time.Duration
}

// ErrorEvent is emitted when a component reports a fatal error.
type ErrorEvent struct {
	BaseEvent

	Err error
}

// -----------------------------------------------------------------------------
// Model Call Events
// -----------------------------------------------------------------------------

// BeforeModelCallEvent is emitted before each model API call.
type BeforeModelCallEvent struct {
	BaseEvent

	// Model is the model identifier.
	Model string

	// Request contains the messages being sent to the model.
	Request any
}

// AfterModelCallEvent is emitted after each model API call completes.
type AfterModelCallEvent struct {
	BaseEvent

	Model    string
	Request  any
	Response *ContentResponse

	// InputTokens and OutputTokens are copied from Response.Info for convenience.
	InputTokens  int
	OutputTokens int

	Duration time.Duration

	// Error is any error that occurred (nil if successful).
	Error error
}

// -----------------------------------------------------------------------------
// Action Events
// -----------------------------------------------------------------------------

// BeforeActionCallEvent is emitted before an action runs.
type BeforeActionCallEvent struct {
	BaseEvent

	Name     string
	Argument string
}

// AfterActionCallEvent is emitted after an action returns, or after a lookup miss.
type AfterActionCallEvent struct {
	BaseEvent

	Name        string
	Argument    string
	Observation string
	Duration    time.Duration
	Error       error
}

// -----------------------------------------------------------------------------
// Retrieval Events
// -----------------------------------------------------------------------------

// BeforeRetrievalEvent is emitted before a search call.
type BeforeRetrievalEvent struct {
	BaseEvent

	Provider   string
	Query      string
	MaxResults int
}

// AfterRetrievalEvent is emitted after a search call completes.
type AfterRetrievalEvent struct {
	BaseEvent

	Provider string
	Query    string
	Results  []string
	Duration time.Duration
	Error    error
}

// -----------------------------------------------------------------------------
// Workflow Node Events
// -----------------------------------------------------------------------------

// BeforeNodeEvent is emitted before a workflow graph node runs.
type BeforeNodeEvent struct {
	BaseEvent

	RunID string
	Node  string

	// Step is the 1-indexed position of this node execution within the run.
	Step int
}

// AfterNodeEvent is emitted after a workflow graph node runs and its successor is resolved.
type AfterNodeEvent struct {
	BaseEvent

	RunID string
	Node  string
	Step  int

	// Next is the resolved successor. Empty when the node failed.
	Next string

	Duration time.Duration
	Error    error
}
