package tt

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rickchristie/agentloops"
	"github.com/tmc/langchaingo/llms"
)

// -----------------------------------------------------------------------------
// MockModel - implements agentloops.Model with proper event publishing
// -----------------------------------------------------------------------------

// MockModel is a configurable mock that implements agentloops.Model.
// It publishes BeforeModelCall and AfterModelCall events as required by the interface.
//
// Queued responses are returned in order. Once the queue is exhausted the responder (if set)
// is used, otherwise the default response "done".
type MockModel struct {
	mu        sync.Mutex
	name      string
	responses []*agentloops.ContentResponse
	errors    []error
	responder func(messages []llms.MessageContent) string
	callCount int

	// CapturedMessages stores the messages passed to each GenerateContent call.
	CapturedMessages [][]llms.MessageContent

	// CapturedOptions stores the number of call options passed to each call.
	CapturedOptions []int
}

// NewMockModel creates a new MockModel with the default name "test-model".
func NewMockModel() *MockModel {
	return &MockModel{name: "test-model"}
}

// WithName sets the model name used for event publishing.
func (m *MockModel) WithName(name string) *MockModel {
	m.name = name
	return m
}

// WithResponder sets a function used to build responses once the queue is exhausted.
func (m *MockModel) WithResponder(fn func(messages []llms.MessageContent) string) *MockModel {
	m.responder = fn
	return m
}

// AddResponse queues a response with the specified content and token counts.
func (m *MockModel) AddResponse(content string, inputTokens, outputTokens int) *MockModel {
	m.responses = append(m.responses, &agentloops.ContentResponse{
		Choices: []*agentloops.ContentChoice{{Content: content}},
		Info: &agentloops.GenerationInfo{
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		},
	})
	return m
}

// AddText queues a response with the given content and fixed token counts.
func (m *MockModel) AddText(contents ...string) *MockModel {
	for _, c := range contents {
		m.AddResponse(c, 10, 5)
	}
	return m
}

// AddError queues an error for the next call.
func (m *MockModel) AddError(err error) *MockModel {
	for len(m.errors) < len(m.responses) {
		m.errors = append(m.errors, nil)
	}
	m.errors = append(m.errors, err)
	m.responses = append(m.responses, nil)
	return m
}

// CallCount returns the number of times GenerateContent has been called.
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// GenerateContent implements agentloops.Model with proper event publishing.
func (m *MockModel) GenerateContent(
	execCtx *agentloops.ExecutionContext,
	messages []llms.MessageContent,
	opts ...llms.CallOption,
) (*agentloops.ContentResponse, error) {
	m.mu.Lock()
	idx := m.callCount
	m.callCount++
	m.CapturedMessages = append(m.CapturedMessages, messages)
	m.CapturedOptions = append(m.CapturedOptions, len(opts))
	m.mu.Unlock()

	if execCtx != nil {
		execCtx.PublishBeforeModelCall(m.name, messages)
	}
	startTime := time.Now()

	var err error
	if idx < len(m.errors) && m.errors[idx] != nil {
		err = m.errors[idx]
	}

	var resp *agentloops.ContentResponse
	if err == nil {
		switch {
		case idx < len(m.responses) && m.responses[idx] != nil:
			resp = m.responses[idx]
		case m.responder != nil:
			resp = &agentloops.ContentResponse{
				Choices: []*agentloops.ContentChoice{{Content: m.responder(messages)}},
				Info:    &agentloops.GenerationInfo{InputTokens: 10, OutputTokens: 5},
			}
		default:
			resp = &agentloops.ContentResponse{
				Choices: []*agentloops.ContentChoice{{Content: "done"}},
				Info:    &agentloops.GenerationInfo{InputTokens: 10, OutputTokens: 5},
			}
		}
	}

	if execCtx != nil {
		execCtx.PublishAfterModelCall(m.name, messages, resp, time.Since(startTime), err)
	}
	return resp, err
}

var _ agentloops.Model = (*MockModel)(nil)

// -----------------------------------------------------------------------------
// MockRetriever - implements agentloops.Retriever
// -----------------------------------------------------------------------------

// MockRetriever returns deterministic snippets "<query> #1", "<query> #2", ... bounded by
// maxResults, unless results or errors are registered for a query.
type MockRetriever struct {
	mu      sync.Mutex
	results map[string][]string
	errors  map[string]error

	// Queries records every query in call order.
	Queries []string

	// MaxResults records the maxResults argument of every call.
	MaxResults []int
}

// NewMockRetriever creates an empty MockRetriever.
func NewMockRetriever() *MockRetriever {
	return &MockRetriever{
		results: make(map[string][]string),
		errors:  make(map[string]error),
	}
}

// WithResults registers the snippets returned for query.
func (r *MockRetriever) WithResults(query string, snippets ...string) *MockRetriever {
	r.results[query] = snippets
	return r
}

// WithError registers an error returned for query.
func (r *MockRetriever) WithError(query string, err error) *MockRetriever {
	r.errors[query] = err
	return r
}

// Search implements agentloops.Retriever.
func (r *MockRetriever) Search(
	execCtx *agentloops.ExecutionContext,
	query string,
	maxResults int,
) ([]string, error) {
	r.mu.Lock()
	r.Queries = append(r.Queries, query)
	r.MaxResults = append(r.MaxResults, maxResults)
	snippets, ok := r.results[query]
	err := r.errors[query]
	r.mu.Unlock()

	execCtx.PublishBeforeRetrieval("mock", query, maxResults)
	start := time.Now()

	if err != nil {
		execCtx.PublishAfterRetrieval("mock", query, nil, time.Since(start), err)
		return nil, err
	}
	if !ok {
		snippets = make([]string, 0, maxResults)
		for i := 1; i <= maxResults; i++ {
			snippets = append(snippets, fmt.Sprintf("%s #%d", query, i))
		}
	}
	if len(snippets) > maxResults {
		snippets = snippets[:maxResults]
	}
	execCtx.PublishAfterRetrieval("mock", query, snippets, time.Since(start), nil)
	return snippets, nil
}

// CallCount returns the number of Search calls.
func (r *MockRetriever) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Queries)
}

var _ agentloops.Retriever = (*MockRetriever)(nil)

// -----------------------------------------------------------------------------
// Message helpers
// -----------------------------------------------------------------------------

// MessageText joins the text parts of a message.
func MessageText(m llms.MessageContent) string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if tc, ok := p.(llms.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

// SystemText returns the text of the first system message, or "".
func SystemText(messages []llms.MessageContent) string {
	for _, m := range messages {
		if m.Role == llms.ChatMessageTypeSystem {
			return MessageText(m)
		}
	}
	return ""
}

// LastText returns the text of the last message, or "".
func LastText(messages []llms.MessageContent) string {
	if len(messages) == 0 {
		return ""
	}
	return MessageText(messages[len(messages)-1])
}
