package agentloops

// TerminationReason indicates why execution terminated.
type TerminationReason string

const (
	// TerminationSuccess means the AgentLoop returned LATerminate.
	TerminationSuccess TerminationReason = "success"

	// TerminationTurnLimit means the turn limit was reached before the loop terminated.
	// This is not an error: the run is reported as incomplete.
	TerminationTurnLimit TerminationReason = "turn_limit"

	// TerminationError means an error occurred.
	TerminationError TerminationReason = "error"

	// TerminationContextCanceled means the context was canceled.
	TerminationContextCanceled TerminationReason = "context_canceled"
)

// TerminationInterrupted means a workflow graph paused after an interrupt node and can be
// resumed.
const TerminationInterrupted TerminationReason = "interrupted"
