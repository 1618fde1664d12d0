package graph

import "github.com/rickchristie/agentloops/events"

type config struct {
	checkpointer   Checkpointer
	locker         Locker
	events         *events.Registry
	interruptAfter []string
	stepLimit      int
}

func defaultConfig() config {
	return config{}
}

// Option configures a compiled graph.
type Option func(*config)

// WithCheckpointer saves a checkpoint after every node. Required for interrupts, State,
// History, UpdateState and Resume.
func WithCheckpointer(c Checkpointer) Option {
	return func(cfg *config) {
		cfg.checkpointer = c
	}
}

// WithInterruptAfter pauses runs after the named nodes. The run can then be edited with
// UpdateState and continued with Resume.
func WithInterruptAfter(nodes ...string) Option {
	return func(cfg *config) {
		cfg.interruptAfter = append(cfg.interruptAfter, nodes...)
	}
}

// WithStepLimit bounds the node executions of one Invoke or Resume call. Zero means unlimited.
func WithStepLimit(n int) Option {
	return func(cfg *config) {
		cfg.stepLimit = n
	}
}

// WithLocker adds a distributed lock taken around every run, in addition to the in-process
// per-run lock.
func WithLocker(l Locker) Option {
	return func(cfg *config) {
		cfg.locker = l
	}
}

// WithEvents sets the registry that receives execution and node events.
func WithEvents(r *events.Registry) Option {
	return func(cfg *config) {
		cfg.events = r
	}
}
