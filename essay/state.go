package essay

import (
	"slices"

	"github.com/rickchristie/agentloops/graph"
)

// Node names of the essay workflow.
const (
	NodePlanner          = "planner"
	NodeResearchPlan     = "research_plan"
	NodeGenerate         = "generate"
	NodeReflect          = "reflect"
	NodeResearchCritique = "research_critique"
)

// DefaultRevisionNumber is the revision a run starts at unless the caller says otherwise.
const DefaultRevisionNumber = 1

// State is the workflow state of one essay run.
type State struct {
	Task     string `json:"task" yaml:"task"`
	Plan     string `json:"plan" yaml:"plan"`
	Draft    string `json:"draft" yaml:"draft"`
	Critique string `json:"critique" yaml:"critique"`

	// Content holds every retrieved snippet, in retrieval order. Append-only within a run.
	Content []string `json:"content" yaml:"content"`

	// RevisionNumber is incremented once per generate execution.
	RevisionNumber int `json:"revision_number" yaml:"revision_number"`
	MaxRevisions   int `json:"max_revisions" yaml:"max_revisions"`
}

// NewState creates the initial state of a run starting at DefaultRevisionNumber.
func NewState(task string, maxRevisions int) State {
	return State{
		Task:           task,
		Content:        make([]string, 0),
		RevisionNumber: DefaultRevisionNumber,
		MaxRevisions:   maxRevisions,
	}
}

// Update is a partial state update returned by a node. Nil fields are left unchanged.
type Update struct {
	Plan           *string `json:"plan,omitempty"`
	Draft          *string `json:"draft,omitempty"`
	Critique       *string `json:"critique,omitempty"`
	RevisionNumber *int    `json:"revision_number,omitempty"`

	// AppendContent is added to the end of State.Content.
	AppendContent []string `json:"append_content,omitempty"`
}

// Merge applies an update and returns the new state. The previous state's Content backing array
// is never written to.
func Merge(state State, update Update) State {
	next := state
	if update.Plan != nil {
		next.Plan = *update.Plan
	}
	if update.Draft != nil {
		next.Draft = *update.Draft
	}
	if update.Critique != nil {
		next.Critique = *update.Critique
	}
	if update.RevisionNumber != nil {
		next.RevisionNumber = *update.RevisionNumber
	}
	if len(update.AppendContent) > 0 {
		content := make([]string, 0, len(state.Content)+len(update.AppendContent))
		content = append(content, state.Content...)
		next.Content = append(content, update.AppendContent...)
	} else {
		next.Content = slices.Clone(state.Content)
	}
	return next
}

// ShouldContinue routes after generate: End once RevisionNumber exceeds MaxRevisions, reflect
// otherwise. Equality still routes to reflect.
func ShouldContinue(state State) string {
	if state.RevisionNumber > state.MaxRevisions {
		return graph.End
	}
	return NodeReflect
}
