package agentloops

// Retriever runs a web search for one query and returns at most maxResults text snippets.
//
// Implementations publish BeforeRetrieval and AfterRetrieval events on the ExecutionContext and
// wrap provider failures in a *TransportError. A missing credential must be reported when the
// retriever is constructed, never on the first call.
type Retriever interface {
	Search(execCtx *ExecutionContext, query string, maxResults int) ([]string, error)
}
