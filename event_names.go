package agentloops

// Event name constants define the EventName values for framework events.
//
// Event names follow the pattern "namespace:category:timing". Timing is omitted for single
// events.
//
//	agentloops:iteration:before
//	agentloops:model_call:after
//	agentloops:error
const (
	// Execution lifecycle
	EventNameExecutionBefore = "agentloops:execution:before"
	EventNameExecutionAfter  = "agentloops:execution:after"

	// Iteration lifecycle
	EventNameIterationBefore = "agentloops:iteration:before"
	EventNameIterationAfter  = "agentloops:iteration:after"

	// Model calls
	EventNameModelCallBefore = "agentloops:model_call:before"
	EventNameModelCallAfter  = "agentloops:model_call:after"

	// Action calls
	EventNameActionCallBefore = "agentloops:action_call:before"
	EventNameActionCallAfter  = "agentloops:action_call:after"

	// Retrieval calls
	EventNameRetrievalBefore = "agentloops:retrieval:before"
	EventNameRetrievalAfter  = "agentloops:retrieval:after"

	// Workflow graph nodes
	EventNameNodeBefore = "agentloops:node:before"
	EventNameNodeAfter  = "agentloops:node:after"

	EventNameError = "agentloops:error"
)
