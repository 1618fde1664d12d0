package react

import (
	"context"
	"errors"
	"fmt"
	"text/template"

	"github.com/rickchristie/agentloops"
	"github.com/rickchristie/agentloops/actions"
	"github.com/rickchristie/agentloops/events"
	"github.com/rickchristie/agentloops/executor"
)

// LoopData implements agentloops.LoopData for the ReAct agent loop.
type LoopData struct {
	task      string
	session   *agentloops.Session
	nextInput string
}

// NewLoopData creates a new LoopData. The task is the first turn's input.
func NewLoopData(task string, session *agentloops.Session) *LoopData {
	return &LoopData{
		task:      task,
		session:   session,
		nextInput: task,
	}
}

// GetTask returns the original input provided by the user.
func (d *LoopData) GetTask() string {
	return d.task
}

// GetSession returns the session the loop appends to.
func (d *LoopData) GetSession() *agentloops.Session {
	return d.session
}

// NextInput returns the user-role input for the next turn.
func (d *LoopData) NextInput() string {
	return d.nextInput
}

// SetNextInput sets the user-role input for the next turn.
func (d *LoopData) SetNextInput(input string) {
	d.nextInput = input
}

// Compile-time check that LoopData implements agentloops.LoopData.
var _ agentloops.LoopData = (*LoopData)(nil)

// ----------------------------------------------------------------------------
// Result
// ----------------------------------------------------------------------------

// Status is the outcome of a ReAct run.
type Status string

const (
	// StatusFinal means the model produced a response without an action directive.
	StatusFinal Status = "final"

	// StatusIncomplete means the turn limit was reached first. It is not an error.
	StatusIncomplete Status = "incomplete"
)

// Result is the outcome of Agent.Run.
type Result struct {
	Status Status `json:"status"`

	// Answer is the full text of the final model response. Empty for StatusIncomplete.
	Answer string `json:"answer"`

	// Turns is the number of model calls made.
	Turns int `json:"turns"`

	Session *agentloops.Session `json:"-"`
}

// ----------------------------------------------------------------------------
// Agent - ReAct AgentLoop Implementation
// ----------------------------------------------------------------------------

// Agent implements the ReAct (Reasoning and Acting) agent loop.
// Flow: Think -> Act -> Observe -> Repeat until the model answers without an action.
//
// Every turn appends two messages to the session: the user-role input (task or observation)
// and the assistant response.
type Agent struct {
	model          agentloops.Model
	registry       *actions.Registry
	instructions   string
	systemTemplate *template.Template
	params         agentloops.InferenceParams
	events         *events.Registry
}

// NewAgent creates a new Agent with the given model and action registry.
// Defaults:
//   - SystemTemplate: DefaultSystemTemplate
//   - InferenceParams: agentloops.DefaultInferenceParams()
func NewAgent(model agentloops.Model, registry *actions.Registry) *Agent {
	if registry == nil {
		registry = actions.MustRegistry()
	}
	return &Agent{
		model:          model,
		registry:       registry,
		systemTemplate: DefaultSystemTemplate,
		params:         agentloops.DefaultInferenceParams(),
		events:         events.NewRegistry(),
	}
}

// WithInstructions sets behavior instructions included in the system prompt.
// This is added to the default ReAct instructions, not a replacement.
func (r *Agent) WithInstructions(instructions string) *Agent {
	r.instructions = instructions
	return r
}

// WithSystemTemplate sets a custom system prompt template.
// See DefaultSystemTemplate for the expected template structure.
func (r *Agent) WithSystemTemplate(tmpl *template.Template) *Agent {
	r.systemTemplate = tmpl
	return r
}

// WithSystemTemplateString sets a custom system prompt template from a string.
// The string is parsed as a Go text/template with access to SystemPromptData fields:
//   - {{.Instructions}} - text from WithInstructions()
//   - {{.Actions}} - registered actions, each with .Name and .Description
//
// Returns error if the template string is invalid.
func (r *Agent) WithSystemTemplateString(tmplStr string) (*Agent, error) {
	tmpl, err := template.New("react_system").Parse(tmplStr)
	if err != nil {
		return r, fmt.Errorf("failed to parse template: %w", err)
	}
	r.systemTemplate = tmpl
	return r, nil
}

// WithInferenceParams sets the parameters used for every model call.
func (r *Agent) WithInferenceParams(params agentloops.InferenceParams) *Agent {
	r.params = params
	return r
}

// WithEvents replaces the event registry used by Run and RunSession.
func (r *Agent) WithEvents(registry *events.Registry) *Agent {
	r.events = registry
	return r
}

// Subscribe adds a subscriber to the agent's event registry.
func (r *Agent) Subscribe(subscriber any) *Agent {
	r.events.Subscribe(subscriber)
	return r
}

// Registry returns the action registry.
func (r *Agent) Registry() *actions.Registry {
	return r.registry
}

// SystemPrompt renders the system template with the registered actions.
func (r *Agent) SystemPrompt() (string, error) {
	prompt, err := ExecuteTemplate(r.systemTemplate, SystemPromptData{
		Instructions: r.instructions,
		Actions:      r.registry.Descriptors(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute system template: %w", err)
	}
	return prompt, nil
}

// NewSession creates an empty session carrying the rendered system prompt.
func (r *Agent) NewSession() (*agentloops.Session, error) {
	prompt, err := r.SystemPrompt()
	if err != nil {
		return nil, err
	}
	return agentloops.NewSession(prompt), nil
}

// Next performs one ReAct turn: exactly one model call, then at most one action.
func (r *Agent) Next(execCtx *agentloops.ExecutionContext) (*agentloops.AgentLoopResult, error) {
	data, ok := execCtx.Data().(*LoopData)
	if !ok {
		return nil, fmt.Errorf("react: unexpected loop data %T", execCtx.Data())
	}
	session := data.GetSession()

	session.Append(agentloops.RoleUser, data.NextInput())

	response, err := r.model.GenerateContent(
		execCtx,
		session.MessageContents(),
		r.params.CallOptions()...,
	)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	text := response.Text()
	session.Append(agentloops.RoleAssistant, text)

	invocation, found := actions.ParseFirst(text)
	if !found {
		return &agentloops.AgentLoopResult{
			Action: agentloops.LATerminate,
			Result: text,
		}, nil
	}

	observation, err := r.registry.Dispatch(execCtx, invocation)
	if err != nil {
		return nil, err
	}

	next := "Observation: " + observation
	data.SetNextInput(next)
	return &agentloops.AgentLoopResult{
		Action:     agentloops.LAContinue,
		NextPrompt: next,
	}, nil
}

// Run answers a task in a fresh session, making at most turnLimit model calls.
func (r *Agent) Run(ctx context.Context, task string, turnLimit int) (*Result, error) {
	session, err := r.NewSession()
	if err != nil {
		return nil, err
	}
	return r.RunSession(ctx, session, task, turnLimit)
}

// RunSession continues an existing session with a new task.
func (r *Agent) RunSession(
	ctx context.Context,
	session *agentloops.Session,
	task string,
	turnLimit int,
) (*Result, error) {
	execCtx := agentloops.NewExecutionContext(ctx, "react", NewLoopData(task, session))
	return r.Execute(execCtx, turnLimit)
}

// Execute drives the loop on a prepared ExecutionContext, whose data must be a *LoopData.
// Use it when the caller needs the ExecutionContext afterwards (stats, events).
func (r *Agent) Execute(execCtx *agentloops.ExecutionContext, turnLimit int) (*Result, error) {
	if turnLimit < 1 {
		return nil, fmt.Errorf("react: turn limit must be at least 1, got %d", turnLimit)
	}
	data, ok := execCtx.Data().(*LoopData)
	if !ok {
		return nil, errors.New("react: execution context has no *react.LoopData")
	}

	executor.New[*LoopData](r, executor.Config{MaxIterations: turnLimit}).
		WithEvents(r.events).
		Execute(execCtx)

	result := &Result{
		Turns:   int(execCtx.Stats().GetModelCallCount()),
		Session: data.GetSession(),
	}
	switch execCtx.TerminationReason() {
	case agentloops.TerminationSuccess:
		result.Status = StatusFinal
		result.Answer = execCtx.FinalResult()
		return result, nil
	case agentloops.TerminationTurnLimit:
		result.Status = StatusIncomplete
		return result, nil
	default:
		return result, execCtx.Error()
	}
}

var _ agentloops.AgentLoop[*LoopData] = (*Agent)(nil)
