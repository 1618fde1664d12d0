package agentloops

// KeyPrefix is the prefix for all standard keys. Custom counters should use their own prefix.
const KeyPrefix = "agentloops:"

// Iteration tracking. Only the executor increments this counter.
const KeyIterations = "agentloops:iterations"

// Token and model call tracking keys.
const (
	KeyModelCalls      = "agentloops:model_calls"
	KeyInputTokens     = "agentloops:input_tokens"
	KeyInputTokensFor  = "agentloops:input_tokens:" // + model name
	KeyOutputTokens    = "agentloops:output_tokens"
	KeyOutputTokensFor = "agentloops:output_tokens:" // + model name
	KeyModelErrors     = "agentloops:model_errors"
)

// Action call tracking keys.
const (
	KeyActionCalls       = "agentloops:action_calls"
	KeyActionCallsFor    = "agentloops:action_calls:" // + action name
	KeyActionCallsErrors = "agentloops:action_calls_errors"
)

// Retrieval tracking keys.
const (
	KeyRetrievals        = "agentloops:retrievals"
	KeyRetrievalSnippets = "agentloops:retrieval_snippets"
	KeyRetrievalErrors   = "agentloops:retrieval_errors"
)

// Workflow node tracking keys.
const (
	KeyNodeRuns    = "agentloops:node_runs"
	KeyNodeRunsFor = "agentloops:node_runs:" // + node name
)
