package agentloops

// AgentLoop is responsible for:
//  1. Constructing the messages to be sent to the model.
//  2. Calling the model with those messages.
//  3. Parsing model output and acting on it (action dispatch, termination).
//  4. Deciding whether to continue the loop or terminate with a result.
//
// The executor calls [AgentLoop.Next] repeatedly until it returns [LATerminate], an error, or the
// turn limit is reached.
type AgentLoop[Data LoopData] interface {
	// Next performs one iteration of the agent loop.
	// The ExecutionContext provides access to LoopData via execCtx.Data() and carries the Go
	// context and event dispatcher for every component called during the iteration.
	Next(execCtx *ExecutionContext) (*AgentLoopResult, error)
}

// LoopData is the state passed through each AgentLoop iteration. The methods here let generic
// subscribers (loggers, metrics) inspect a run without knowing the concrete loop.
type LoopData interface {
	// GetTask returns the input that started the run.
	GetTask() string

	// GetSession returns the conversation state of the run.
	GetSession() *Session
}

type LoopAction string

const (
	LAContinue  LoopAction = "c"
	LATerminate LoopAction = "t"
)

type AgentLoopResult struct {
	// Action indicates whether to continue or terminate the loop.
	Action LoopAction

	// NextPrompt is only set when Action is [LAContinue]. It is the user-role input for the
	// next iteration.
	NextPrompt string

	// Result is only set when Action is [LATerminate].
	Result string
}
