// Package tt provides test helpers shared by the module's tests.
package tt

import (
	"sync"

	"github.com/rickchristie/agentloops"
)

// -----------------------------------------------------------------------------
// AgentLoopResult Helpers
// -----------------------------------------------------------------------------

// ContinueWithPrompt creates an AgentLoopResult with LAContinue action and specified NextPrompt.
func ContinueWithPrompt(nextPrompt string) *agentloops.AgentLoopResult {
	return &agentloops.AgentLoopResult{
		Action:     agentloops.LAContinue,
		NextPrompt: nextPrompt,
	}
}

// Observation builds the user-role observation message fed back to the ReAct loop.
func Observation(content string) string {
	return "Observation: " + content
}

// Terminate creates an AgentLoopResult with LATerminate action and the given result.
func Terminate(text string) *agentloops.AgentLoopResult {
	return &agentloops.AgentLoopResult{
		Action: agentloops.LATerminate,
		Result: text,
	}
}

// -----------------------------------------------------------------------------
// Recorder - captures dispatched events
// -----------------------------------------------------------------------------

// Recorder is an EventDispatcher that records every event it receives. Use it directly with
// ExecutionContext.SetDispatcher, or as a subscriber for the node events only.
type Recorder struct {
	mu     sync.Mutex
	events []agentloops.Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Dispatch implements agentloops.EventDispatcher.
func (r *Recorder) Dispatch(_ *agentloops.ExecutionContext, event agentloops.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// OnBeforeNode implements agentloops.BeforeNodeSubscriber.
func (r *Recorder) OnBeforeNode(execCtx *agentloops.ExecutionContext, e *agentloops.BeforeNodeEvent) {
	r.Dispatch(execCtx, e)
}

// OnAfterNode implements agentloops.AfterNodeSubscriber.
func (r *Recorder) OnAfterNode(execCtx *agentloops.ExecutionContext, e *agentloops.AfterNodeEvent) {
	r.Dispatch(execCtx, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []agentloops.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]agentloops.Event, len(r.events))
	copy(result, r.events)
	return result
}

// Names returns the EventName of every recorded event, in order.
func (r *Recorder) Names() []string {
	events := r.Events()
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Base().EventName
	}
	return names
}

// Nodes returns the node name of every recorded BeforeNodeEvent, in order.
func (r *Recorder) Nodes() []string {
	var nodes []string
	for _, e := range r.Events() {
		if n, ok := e.(*agentloops.BeforeNodeEvent); ok {
			nodes = append(nodes, n.Node)
		}
	}
	return nodes
}
