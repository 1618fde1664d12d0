package agentloops

import "context"

// Action is a local function the ReAct loop can invoke by name. Both the argument and the
// observation are plain strings.
type Action interface {
	Name() string
	Run(ctx context.Context, argument string) (string, error)
}

// ActionDescriber is implemented by actions that describe their usage for the system prompt.
type ActionDescriber interface {
	Description() string
}

// ActionFunc adapts a plain function into an Action.
type ActionFunc struct {
	name        string
	description string
	fn          func(ctx context.Context, argument string) (string, error)
}

// NewActionFunc creates an Action named name backed by fn.
func NewActionFunc(
	name string,
	fn func(ctx context.Context, argument string) (string, error),
) *ActionFunc {
	return &ActionFunc{name: name, fn: fn}
}

// Name implements Action.
func (a *ActionFunc) Name() string {
	return a.name
}

// WithDescription sets the usage text shown to the model.
func (a *ActionFunc) WithDescription(description string) *ActionFunc {
	a.description = description
	return a
}

// Description implements ActionDescriber.
func (a *ActionFunc) Description() string {
	return a.description
}

// Run implements Action.
func (a *ActionFunc) Run(ctx context.Context, argument string) (string, error) {
	return a.fn(ctx, argument)
}

var (
	_ Action          = (*ActionFunc)(nil)
	_ ActionDescriber = (*ActionFunc)(nil)
)
