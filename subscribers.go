package agentloops

// Subscriber interfaces define type-safe event subscriptions.
//
// Implement any combination of these interfaces on a single struct to receive multiple event
// types. The events.Registry detects which interfaces a subscriber implements and calls the
// matching methods.
//
//	type LoggingSubscriber struct {
//	    logger *bolt.Logger
//	}
//
//	func (s *LoggingSubscriber) OnAfterModelCall(
//	    execCtx *ExecutionContext,
//	    event *AfterModelCallEvent,
//	) {
//	    s.logger.Info().Str("model", event.Model).Int("input_tokens", event.InputTokens).Send()
//	}
//
//	registry := events.NewRegistry()
//	registry.Subscribe(&LoggingSubscriber{logger: logger})

// BeforeExecutionSubscriber receives BeforeExecutionEvent events.
type BeforeExecutionSubscriber interface {
	OnBeforeExecution(execCtx *ExecutionContext, event *BeforeExecutionEvent)
}

// AfterExecutionSubscriber receives AfterExecutionEvent events.
type AfterExecutionSubscriber interface {
	OnAfterExecution(execCtx *ExecutionContext, event *AfterExecutionEvent)
}

// BeforeIterationSubscriber receives BeforeIterationEvent events.
type BeforeIterationSubscriber interface {
	OnBeforeIteration(execCtx *ExecutionContext, event *BeforeIterationEvent)
}

// AfterIterationSubscriber receives AfterIterationEvent events.
type AfterIterationSubscriber interface {
	OnAfterIteration(execCtx *ExecutionContext, event *AfterIterationEvent)
}

// BeforeModelCallSubscriber receives BeforeModelCallEvent events.
type BeforeModelCallSubscriber interface {
	OnBeforeModelCall(execCtx *ExecutionContext, event *BeforeModelCallEvent)
}

// AfterModelCallSubscriber receives AfterModelCallEvent events.
type AfterModelCallSubscriber interface {
	OnAfterModelCall(execCtx *ExecutionContext, event *AfterModelCallEvent)
}

// BeforeActionCallSubscriber receives BeforeActionCallEvent events.
type BeforeActionCallSubscriber interface {
	OnBeforeActionCall(execCtx *ExecutionContext, event *BeforeActionCallEvent)
}

// AfterActionCallSubscriber receives AfterActionCallEvent events.
type AfterActionCallSubscriber interface {
	OnAfterActionCall(execCtx *ExecutionContext, event *AfterActionCallEvent)
}

// BeforeRetrievalSubscriber receives BeforeRetrievalEvent events.
type BeforeRetrievalSubscriber interface {
	OnBeforeRetrieval(execCtx *ExecutionContext, event *BeforeRetrievalEvent)
}

// AfterRetrievalSubscriber receives AfterRetrievalEvent events.
type AfterRetrievalSubscriber interface {
	OnAfterRetrieval(execCtx *ExecutionContext, event *AfterRetrievalEvent)
}

// BeforeNodeSubscriber receives BeforeNodeEvent events.
type BeforeNodeSubscriber interface {
	OnBeforeNode(execCtx *ExecutionContext, event *BeforeNodeEvent)
}

// AfterNodeSubscriber receives AfterNodeEvent events.
type AfterNodeSubscriber interface {
	OnAfterNode(execCtx *ExecutionContext, event *AfterNodeEvent)
}

// ErrorSubscriber receives ErrorEvent events.
type ErrorSubscriber interface {
	OnError(execCtx *ExecutionContext, event *ErrorEvent)
}

// EventDispatcher delivers published events to subscribers. events.Registry implements it.
type EventDispatcher interface {
	Dispatch(execCtx *ExecutionContext, event Event)
}
