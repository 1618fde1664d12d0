package essay

import (
	"context"
	"errors"
	"fmt"
	"text/template"

	"github.com/rickchristie/agentloops"
	"github.com/rickchristie/agentloops/graph"
	"github.com/tmc/langchaingo/llms"
)

// DefaultMaxResults is the number of snippets requested per research query.
const DefaultMaxResults = 2

// Writer holds the collaborators of the essay workflow and provides its nodes.
type Writer struct {
	model             agentloops.Model
	retriever         agentloops.Retriever
	prompts           Prompts
	params            agentloops.InferenceParams
	maxQueries        int
	maxResults        int
	structuredRetries int
}

// NewWriter creates a Writer with default prompts and bounds.
func NewWriter(model agentloops.Model, retriever agentloops.Retriever) *Writer {
	return &Writer{
		model:      model,
		retriever:  retriever,
		prompts:    DefaultPrompts(),
		params:     agentloops.DefaultInferenceParams(),
		maxQueries: DefaultMaxQueries,
		maxResults: DefaultMaxResults,
	}
}

// WithPrompts replaces the node prompts. Nil templates keep their default.
func (w *Writer) WithPrompts(p Prompts) *Writer {
	defaults := DefaultPrompts()
	if p.Plan == nil {
		p.Plan = defaults.Plan
	}
	if p.Writer == nil {
		p.Writer = defaults.Writer
	}
	if p.Reflection == nil {
		p.Reflection = defaults.Reflection
	}
	if p.ResearchPlan == nil {
		p.ResearchPlan = defaults.ResearchPlan
	}
	if p.ResearchCritique == nil {
		p.ResearchCritique = defaults.ResearchCritique
	}
	w.prompts = p
	return w
}

// WithInferenceParams sets the parameters used for every model call.
func (w *Writer) WithInferenceParams(params agentloops.InferenceParams) *Writer {
	w.params = params
	return w
}

// WithMaxQueries bounds the queries kept from one research payload.
func (w *Writer) WithMaxQueries(n int) *Writer {
	w.maxQueries = n
	return w
}

// WithMaxResults sets the snippets requested per query.
func (w *Writer) WithMaxResults(n int) *Writer {
	w.maxResults = n
	return w
}

// WithStructuredOutputRetries re-asks the model up to n times when a research payload is
// malformed. The default is 0: a malformed payload fails the node.
func (w *Writer) WithStructuredOutputRetries(n int) *Writer {
	w.structuredRetries = n
	return w
}

// Graph builds the uncompiled essay workflow:
//
//	planner -> research_plan -> generate
//	generate -> (RevisionNumber > MaxRevisions ? End : reflect)
//	reflect -> research_critique -> generate
func (w *Writer) Graph() *graph.Graph[State, Update] {
	return graph.New(Merge).
		AddNode(NodePlanner, w.Plan).
		AddNode(NodeResearchPlan, w.ResearchPlan).
		AddNode(NodeGenerate, w.Generate).
		AddNode(NodeReflect, w.Reflect).
		AddNode(NodeResearchCritique, w.ResearchCritique).
		AddEdge(NodePlanner, NodeResearchPlan).
		AddEdge(NodeResearchPlan, NodeGenerate).
		AddConditionalEdges(NodeGenerate, ShouldContinue, graph.End, NodeReflect).
		AddEdge(NodeReflect, NodeResearchCritique).
		AddEdge(NodeResearchCritique, NodeGenerate).
		SetEntryPoint(NodePlanner)
}

// Compile builds and compiles the workflow.
func (w *Writer) Compile(opts ...graph.Option) (*graph.Compiled[State, Update], error) {
	return w.Graph().Compile(opts...)
}

// Run writes an essay in a single uninterrupted run with a random run ID.
func (w *Writer) Run(ctx context.Context, task string, maxRevisions int) (*graph.RunResult[State], error) {
	compiled, err := w.Compile()
	if err != nil {
		return nil, err
	}
	execCtx := agentloops.NewExecutionContext(ctx, "essay", nil)
	return compiled.Invoke(execCtx, "", NewState(task, maxRevisions))
}

// -----------------------------------------------------------------------------
// Nodes
// -----------------------------------------------------------------------------

// Plan writes the outline from the task.
func (w *Writer) Plan(execCtx *agentloops.ExecutionContext, state State) (Update, error) {
	text, err := w.complete(execCtx, w.prompts.Plan, PromptData{}, state.Task)
	if err != nil {
		return Update{}, err
	}
	return Update{Plan: &text}, nil
}

// ResearchPlan searches for the queries the model derives from the task.
func (w *Writer) ResearchPlan(execCtx *agentloops.ExecutionContext, state State) (Update, error) {
	content, err := w.research(execCtx, w.prompts.ResearchPlan, state.Task)
	if err != nil {
		return Update{}, err
	}
	return Update{AppendContent: content}, nil
}

// Generate writes a draft from the task, plan and research, and increments the revision number.
func (w *Writer) Generate(execCtx *agentloops.ExecutionContext, state State) (Update, error) {
	input := fmt.Sprintf("%s\n\nHere is my plan:\n\n%s", state.Task, state.Plan)
	text, err := w.complete(execCtx, w.prompts.Writer, PromptData{Content: state.Content}, input)
	if err != nil {
		return Update{}, err
	}
	revision := state.RevisionNumber + 1
	return Update{Draft: &text, RevisionNumber: &revision}, nil
}

// Reflect critiques the current draft.
func (w *Writer) Reflect(execCtx *agentloops.ExecutionContext, state State) (Update, error) {
	text, err := w.complete(execCtx, w.prompts.Reflection, PromptData{}, state.Draft)
	if err != nil {
		return Update{}, err
	}
	return Update{Critique: &text}, nil
}

// ResearchCritique searches for the queries the model derives from the critique.
func (w *Writer) ResearchCritique(execCtx *agentloops.ExecutionContext, state State) (Update, error) {
	content, err := w.research(execCtx, w.prompts.ResearchCritique, state.Critique)
	if err != nil {
		return Update{}, err
	}
	return Update{AppendContent: content}, nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func systemAndInput(system, input string) []llms.MessageContent {
	return []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, input),
	}
}

func (w *Writer) complete(
	execCtx *agentloops.ExecutionContext,
	tmpl *template.Template,
	data PromptData,
	input string,
) (string, error) {
	system, err := render(tmpl, data)
	if err != nil {
		return "", err
	}
	return w.generate(execCtx, systemAndInput(system, input))
}

func (w *Writer) generate(execCtx *agentloops.ExecutionContext, messages []llms.MessageContent) (string, error) {
	response, err := w.model.GenerateContent(execCtx, messages, w.params.CallOptions()...)
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	return response.Text(), nil
}

// research asks the model for queries and retrieves snippets for each, in query order.
func (w *Writer) research(
	execCtx *agentloops.ExecutionContext,
	tmpl *template.Template,
	input string,
) ([]string, error) {
	system, err := render(tmpl, PromptData{MaxQueries: w.maxQueries})
	if err != nil {
		return nil, err
	}

	messages := systemAndInput(system, input)
	var queries []string
	for attempt := 0; ; attempt++ {
		text, err := w.generate(execCtx, messages)
		if err != nil {
			return nil, err
		}
		queries, err = ParseQueries(text, w.maxQueries)
		if err == nil {
			break
		}
		if !errors.Is(err, agentloops.ErrMalformedOutput) || attempt >= w.structuredRetries {
			return nil, err
		}
		messages = append(messages,
			llms.TextParts(llms.ChatMessageTypeAI, text),
			llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(
				"Your response could not be used (%v). "+
					`Respond only with a JSON object of the form {"queries": ["..."]}.`, err)),
		)
	}

	content := make([]string, 0, len(queries)*w.maxResults)
	for _, q := range queries {
		snippets, err := w.retriever.Search(execCtx, q, w.maxResults)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", q, err)
		}
		content = append(content, snippets...)
	}
	return content, nil
}
