package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rickchristie/agentloops"
)

// End is the terminal destination. It is not a node and cannot be registered as one.
const End = "__end__"

var (
	// ErrInvalidGraph is returned by Compile when the graph structure is invalid.
	ErrInvalidGraph = errors.New("invalid graph")

	// ErrInvalidRoute is returned when a router selects a destination it did not declare.
	ErrInvalidRoute = errors.New("invalid route")

	// ErrStepLimit is returned when a run executes more nodes than the configured step limit.
	ErrStepLimit = errors.New("step limit exceeded")

	// ErrRunNotFound is returned when no checkpoint exists for a run ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrNotInterrupted is returned by Resume when the run's latest checkpoint is not an
	// interrupt.
	ErrNotInterrupted = errors.New("run is not interrupted")

	// ErrRunExists is returned by Invoke when the run ID already has checkpoints.
	ErrRunExists = errors.New("run already exists")
)

// NodeFunc is one step of the workflow. It receives a copy of the state and returns a partial
// update, merged into the state by the graph's MergeFunc.
type NodeFunc[S, U any] func(execCtx *agentloops.ExecutionContext, state S) (U, error)

// RouterFunc selects the next destination of a conditional edge from the merged state.
type RouterFunc[S any] func(state S) string

// MergeFunc applies a partial update to a state and returns the new state. It must not mutate
// the backing arrays of the previous state.
type MergeFunc[S, U any] func(state S, update U) S

type conditionalEdge[S any] struct {
	router       RouterFunc[S]
	destinations []string
}

// Graph is a builder for a cyclic workflow over state S with partial updates U. Structural
// errors are collected while building and reported by Compile.
//
//	g := graph.New(essay.Merge).
//	    AddNode("planner", planner).
//	    AddNode("generate", generate).
//	    AddEdge("planner", "generate").
//	    AddConditionalEdges("generate", shouldContinue, graph.End, "planner").
//	    SetEntryPoint("planner")
//	compiled, err := g.Compile(graph.WithStepLimit(20))
type Graph[S, U any] struct {
	merge       MergeFunc[S, U]
	nodes       map[string]NodeFunc[S, U]
	order       []string
	edges       map[string]string
	conditional map[string]conditionalEdge[S]
	entry       string
	errs        []error
}

// New creates an empty graph using merge to apply node updates.
func New[S, U any](merge MergeFunc[S, U]) *Graph[S, U] {
	return &Graph[S, U]{
		merge:       merge,
		nodes:       make(map[string]NodeFunc[S, U]),
		edges:       make(map[string]string),
		conditional: make(map[string]conditionalEdge[S]),
	}
}

// AddNode registers a node. Names must be unique, non-empty, and not End.
func (g *Graph[S, U]) AddNode(name string, fn NodeFunc[S, U]) *Graph[S, U] {
	switch {
	case name == "":
		g.errs = append(g.errs, errors.New("node name is empty"))
	case name == End:
		g.errs = append(g.errs, fmt.Errorf("node name %q is reserved", End))
	case fn == nil:
		g.errs = append(g.errs, fmt.Errorf("node %q has no function", name))
	default:
		if _, exists := g.nodes[name]; exists {
			g.errs = append(g.errs, fmt.Errorf("duplicate node %q", name))
			return g
		}
		g.nodes[name] = fn
		g.order = append(g.order, name)
	}
	return g
}

// AddEdge adds a fixed transition from source to target. target may be End.
func (g *Graph[S, U]) AddEdge(source, target string) *Graph[S, U] {
	if g.hasTransition(source) {
		g.errs = append(g.errs, fmt.Errorf("node %q already has an outgoing transition", source))
		return g
	}
	g.edges[source] = target
	return g
}

// AddConditionalEdges adds a routed transition from source. The router must return one of
// destinations; anything else fails the run with ErrInvalidRoute.
func (g *Graph[S, U]) AddConditionalEdges(
	source string,
	router RouterFunc[S],
	destinations ...string,
) *Graph[S, U] {
	switch {
	case router == nil:
		g.errs = append(g.errs, fmt.Errorf("conditional edge from %q has no router", source))
	case len(destinations) == 0:
		g.errs = append(g.errs, fmt.Errorf("conditional edge from %q declares no destinations", source))
	case g.hasTransition(source):
		g.errs = append(g.errs, fmt.Errorf("node %q already has an outgoing transition", source))
	default:
		g.conditional[source] = conditionalEdge[S]{
			router:       router,
			destinations: append([]string(nil), destinations...),
		}
	}
	return g
}

// SetEntryPoint sets the first node of every run.
func (g *Graph[S, U]) SetEntryPoint(name string) *Graph[S, U] {
	g.entry = name
	return g
}

func (g *Graph[S, U]) hasTransition(source string) bool {
	_, fixed := g.edges[source]
	_, routed := g.conditional[source]
	return fixed || routed
}

func (g *Graph[S, U]) isTarget(name string) bool {
	if name == End {
		return true
	}
	_, ok := g.nodes[name]
	return ok
}

// validate checks the structure and returns every problem found.
func (g *Graph[S, U]) validate() error {
	errs := append([]error(nil), g.errs...)

	if g.merge == nil {
		errs = append(errs, errors.New("merge function is nil"))
	}
	if g.entry == "" {
		errs = append(errs, errors.New("entry point is not set"))
	} else if _, ok := g.nodes[g.entry]; !ok {
		errs = append(errs, fmt.Errorf("entry point %q is not a node", g.entry))
	}

	for _, name := range g.order {
		if !g.hasTransition(name) {
			errs = append(errs, fmt.Errorf("node %q has no outgoing transition", name))
		}
	}

	sources := make([]string, 0, len(g.edges)+len(g.conditional))
	for source := range g.edges {
		sources = append(sources, source)
	}
	for source := range g.conditional {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	for _, source := range sources {
		if _, ok := g.nodes[source]; !ok {
			errs = append(errs, fmt.Errorf("edge source %q is not a node", source))
		}
		if target, ok := g.edges[source]; ok && !g.isTarget(target) {
			errs = append(errs, fmt.Errorf("edge %q -> %q: unknown target", source, target))
		}
		if edge, ok := g.conditional[source]; ok {
			seen := make(map[string]bool, len(edge.destinations))
			for _, dest := range edge.destinations {
				if seen[dest] {
					errs = append(errs, fmt.Errorf("conditional edge %q: duplicate destination %q", source, dest))
				}
				seen[dest] = true
				if !g.isTarget(dest) {
					errs = append(errs, fmt.Errorf("conditional edge %q -> %q: unknown target", source, dest))
				}
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidGraph, errors.Join(errs...))
}

// Compile validates the graph and returns a runnable workflow. The returned error wraps
// ErrInvalidGraph and lists every structural problem.
func (g *Graph[S, U]) Compile(opts ...Option) (*Compiled[S, U], error) {
	if err := g.validate(); err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	for _, name := range cfg.interruptAfter {
		if _, ok := g.nodes[name]; !ok {
			return nil, fmt.Errorf("%w: interrupt node %q is not a node", ErrInvalidGraph, name)
		}
	}
	if len(cfg.interruptAfter) > 0 && cfg.checkpointer == nil {
		return nil, fmt.Errorf("%w: interrupts require a checkpointer", ErrInvalidGraph)
	}

	nodes := make(map[string]NodeFunc[S, U], len(g.nodes))
	for k, v := range g.nodes {
		nodes[k] = v
	}
	edges := make(map[string]string, len(g.edges))
	for k, v := range g.edges {
		edges[k] = v
	}
	conditional := make(map[string]conditionalEdge[S], len(g.conditional))
	for k, v := range g.conditional {
		conditional[k] = v
	}

	interrupts := make(map[string]bool, len(cfg.interruptAfter))
	for _, name := range cfg.interruptAfter {
		interrupts[name] = true
	}

	return &Compiled[S, U]{
		merge:       g.merge,
		nodes:       nodes,
		edges:       edges,
		conditional: conditional,
		entry:       g.entry,
		config:      cfg,
		interrupts:  interrupts,
		locks:       newKeyedMutex(),
	}, nil
}
