package events

import (
	"github.com/rickchristie/agentloops"
)

// Registry manages event subscribers and dispatches events to them.
//
// Subscribers can implement any combination of subscriber interfaces; they only receive events
// for the interfaces they implement.
//
//	registry := events.NewRegistry()
//	registry.Subscribe(loggers.NewSubscriber(logger))
//	registry.Subscribe(metrics.New(promRegistry))
//
// Registry is NOT safe for concurrent Subscribe calls. Register all subscribers before starting
// execution. Dispatch may be called concurrently once registration is done.
type Registry struct {
	subscribers []any
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		subscribers: make([]any, 0),
	}
}

// Subscribe adds a subscriber to the registry. Subscribers are called in the order they are
// registered.
func (r *Registry) Subscribe(subscriber any) *Registry {
	r.subscribers = append(r.subscribers, subscriber)
	return r
}

// Len returns the number of registered subscribers.
func (r *Registry) Len() int {
	return len(r.subscribers)
}

// Dispatch sends an event to all matching subscribers.
// This is called by ExecutionContext after recording the event and updating stats.
func (r *Registry) Dispatch(execCtx *agentloops.ExecutionContext, event agentloops.Event) {
	switch e := event.(type) {
	case *agentloops.BeforeExecutionEvent:
		for _, s := range r.subscribers {
			if sub, ok := s.(agentloops.BeforeExecutionSubscriber); ok {
				sub.OnBeforeExecution(execCtx, e)
			}
		}
	case *agentloops.AfterExecutionEvent:
		for _, s := range r.subscribers {
			if sub, ok := s.(agentloops.AfterExecutionSubscriber); ok {
				sub.OnAfterExecution(execCtx, e)
			}
		}
	case *agentloops.BeforeIterationEvent:
		for _, s := range r.subscribers {
			if sub, ok := s.(agentloops.BeforeIterationSubscriber); ok {
				sub.OnBeforeIteration(execCtx, e)
			}
		}
	case *agentloops.AfterIterationEvent:
		for _, s := range r.subscribers {
			if sub, ok := s.(agentloops.AfterIterationSubscriber); ok {
				sub.OnAfterIteration(execCtx, e)
			}
		}
	case *agentloops.BeforeModelCallEvent:
		for _, s := range r.subscribers {
			if sub, ok := s.(agentloops.BeforeModelCallSubscriber); ok {
				sub.OnBeforeModelCall(execCtx, e)
			}
		}
	case *agentloops.AfterModelCallEvent:
		for _, s := range r.subscribers {
			if sub, ok := s.(agentloops.AfterModelCallSubscriber); ok {
				sub.OnAfterModelCall(execCtx, e)
			}
		}
	case *agentloops.BeforeActionCallEvent:
		for _, s := range r.subscribers {
			if sub, ok := s.(agentloops.BeforeActionCallSubscriber); ok {
				sub.OnBeforeActionCall(execCtx, e)
			}
		}
	case *agentloops.AfterActionCallEvent:
		for _, s := range r.subscribers {
			if sub, ok := s.(agentloops.AfterActionCallSubscriber); ok {
				sub.OnAfterActionCall(execCtx, e)
			}
		}
	case *agentloops.BeforeRetrievalEvent:
		for _, s := range r.subscribers {
			if sub, ok := s.(agentloops.BeforeRetrievalSubscriber); ok {
				sub.OnBeforeRetrieval(execCtx, e)
			}
		}
	case *agentloops.AfterRetrievalEvent:
		for _, s := range r.subscribers {
			if sub, ok := s.(agentloops.AfterRetrievalSubscriber); ok {
				sub.OnAfterRetrieval(execCtx, e)
			}
		}
	case *agentloops.BeforeNodeEvent:
		for _, s := range r.subscribers {
			if sub, ok := s.(agentloops.BeforeNodeSubscriber); ok {
				sub.OnBeforeNode(execCtx, e)
			}
		}
	case *agentloops.AfterNodeEvent:
		for _, s := range r.subscribers {
			if sub, ok := s.(agentloops.AfterNodeSubscriber); ok {
				sub.OnAfterNode(execCtx, e)
			}
		}
	case *agentloops.ErrorEvent:
		for _, s := range r.subscribers {
			if sub, ok := s.(agentloops.ErrorSubscriber); ok {
				sub.OnError(execCtx, e)
			}
		}
	}
}

var _ agentloops.EventDispatcher = (*Registry)(nil)
