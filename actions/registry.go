package actions

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rickchristie/agentloops"
)

// Registry maps action names to actions. It is immutable after construction and safe for
// concurrent use.
type Registry struct {
	actions map[string]agentloops.Action
}

// NewRegistry creates a registry from the given actions. Names must be unique and match the
// directive grammar ([A-Za-z0-9_]+).
func NewRegistry(actions ...agentloops.Action) (*Registry, error) {
	r := &Registry{actions: make(map[string]agentloops.Action, len(actions))}
	for _, a := range actions {
		name := a.Name()
		if !validName(name) {
			return nil, fmt.Errorf("invalid action name %q", name)
		}
		if _, exists := r.actions[name]; exists {
			return nil, fmt.Errorf("%w: %s", agentloops.ErrDuplicateAction, name)
		}
		r.actions[name] = a
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
func MustRegistry(actions ...agentloops.Action) *Registry {
	r, err := NewRegistry(actions...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the action registered under name. Matching is exact and case-sensitive.
func (r *Registry) Lookup(name string) (agentloops.Action, bool) {
	a, ok := r.actions[name]
	return a, ok
}

// Names returns the registered action names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptor is the prompt-facing view of a registered action.
type Descriptor struct {
	Name        string
	Description string
}

// Descriptors returns a Descriptor per action, sorted by name. Actions that do not implement
// [agentloops.ActionDescriber] have an empty Description.
func (r *Registry) Descriptors() []Descriptor {
	names := r.Names()
	result := make([]Descriptor, 0, len(names))
	for _, name := range names {
		d := Descriptor{Name: name}
		if describer, ok := r.actions[name].(agentloops.ActionDescriber); ok {
			d.Description = describer.Description()
		}
		result = append(result, d)
	}
	return result
}

// Dispatch runs the action named by inv synchronously and returns its observation.
//
// An unregistered name returns an error wrapping [agentloops.ErrUnknownAction]. An error from
// the action itself is wrapped with the action name and returned.
func (r *Registry) Dispatch(
	execCtx *agentloops.ExecutionContext,
	inv Invocation,
) (string, error) {
	execCtx.PublishBeforeActionCall(inv.Name, inv.Argument)
	start := time.Now()

	action, ok := r.Lookup(inv.Name)
	if !ok {
		err := fmt.Errorf("%w: %s", agentloops.ErrUnknownAction, inv.Name)
		execCtx.PublishAfterActionCall(inv.Name, inv.Argument, "", time.Since(start), err)
		return "", err
	}

	observation, err := action.Run(execCtx.Context(), inv.Argument)
	execCtx.PublishAfterActionCall(inv.Name, inv.Argument, observation, time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("action %s: %w", inv.Name, err)
	}
	return observation, nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	return strings.IndexFunc(name, func(r rune) bool {
		return !(r == '_' ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9'))
	}) < 0
}
