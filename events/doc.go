// Package events provides the event subscription registry.
//
// Events are published via ExecutionContext.PublishXXX() methods and subscribers registered
// with a Registry receive them through type-safe interfaces.
//
// # Quick Start
//
//	type ActionCounter struct{ n int }
//
//	func (s *ActionCounter) OnAfterActionCall(
//	    execCtx *agentloops.ExecutionContext,
//	    event *agentloops.AfterActionCallEvent,
//	) {
//	    s.n++
//	}
//
//	registry := events.NewRegistry()
//	registry.Subscribe(&ActionCounter{})
//	exec := executor.New(agent, executor.DefaultConfig()).WithEvents(registry)
//
// # Event Types
//
//   - BeforeExecutionEvent, AfterExecutionEvent: executor lifecycle
//   - BeforeIterationEvent, AfterIterationEvent: one ReAct turn
//   - BeforeModelCallEvent, AfterModelCallEvent: model API calls
//   - BeforeActionCallEvent, AfterActionCallEvent: action dispatch
//   - BeforeRetrievalEvent, AfterRetrievalEvent: search calls
//   - BeforeNodeEvent, AfterNodeEvent: workflow graph nodes
//   - ErrorEvent: fatal errors
//
// Subscribers are called synchronously, in registration order, on the goroutine that published
// the event.
package events
