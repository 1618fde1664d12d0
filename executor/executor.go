package executor

import (
	"fmt"
	"time"

	"github.com/rickchristie/agentloops"
	"github.com/rickchristie/agentloops/events"
)

// Config holds configuration options for the Executor.
type Config struct {
	// MaxIterations is the turn limit: the maximum number of AgentLoop.Next calls. Reaching it
	// ends the run with [agentloops.TerminationTurnLimit] and no error. Zero means unlimited.
	MaxIterations int
}

// DefaultMaxIterations is the turn limit used by DefaultConfig.
const DefaultMaxIterations = 5

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{MaxIterations: DefaultMaxIterations}
}

// Executor orchestrates the execution of an AgentLoop, managing the lifecycle, events, and
// termination via ExecutionContext.
//
// The Executor is responsible for:
//   - Running the AgentLoop repeatedly until it returns [agentloops.LATerminate]
//   - Stopping at the turn limit without treating it as an error
//   - Publishing execution and iteration events
//   - Handling context cancellation
type Executor[Data agentloops.LoopData] struct {
	loop   agentloops.AgentLoop[Data]
	config Config
	events *events.Registry
}

// New creates a new Executor with the given AgentLoop and configuration.
func New[Data agentloops.LoopData](loop agentloops.AgentLoop[Data], config Config) *Executor[Data] {
	return &Executor[Data]{
		loop:   loop,
		config: config,
		events: events.NewRegistry(),
	}
}

// WithEvents replaces the executor's event registry with the provided one.
// Use this when you need to share a registry across multiple executors.
//
//	shared := events.NewRegistry()
//	shared.Subscribe(loggers.NewSubscriber(logger))
//
//	exec1 := executor.New(loop1, config).WithEvents(shared)
//	exec2 := executor.New(loop2, config).WithEvents(shared)
func (e *Executor[Data]) WithEvents(r *events.Registry) *Executor[Data] {
	e.events = r
	return e
}

// Subscribe adds a subscriber to the executor's existing event registry.
func (e *Executor[Data]) Subscribe(subscriber any) *Executor[Data] {
	e.events.Subscribe(subscriber)
	return e
}

// Execute runs the AgentLoop until termination.
//
// The execution flow:
//  1. Publish BeforeExecution
//  2. Repeatedly call AgentLoop.Next until:
//     - It returns LATerminate
//     - The turn limit is reached
//     - The context is canceled
//     - An error occurs
//  3. Publish AfterExecution
//
// The outcome is stored on execCtx: TerminationReason(), FinalResult() and Error().
//
//	execCtx := agentloops.NewExecutionContext(ctx, "react", data)
//	executor.New(agent, executor.Config{MaxIterations: 5}).Execute(execCtx)
//	if err := execCtx.Error(); err != nil {
//	    // handle error
//	}
func (e *Executor[Data]) Execute(execCtx *agentloops.ExecutionContext) {
	if e.events != nil {
		execCtx.SetDispatcher(e.events)
	}

	execCtx.PublishBeforeExecution()
	defer execCtx.PublishAfterExecution()

	for {
		goCtx := execCtx.Context()
		if goCtx.Err() != nil {
			execCtx.SetTermination(agentloops.TerminationContextCanceled, "", goCtx.Err())
			return
		}

		if e.config.MaxIterations > 0 && execCtx.Iteration() >= e.config.MaxIterations {
			execCtx.SetTermination(agentloops.TerminationTurnLimit, "", nil)
			return
		}

		execCtx.StartIteration()
		iterStart := time.Now()
		execCtx.PublishBeforeIteration()

		loopResult, loopErr := e.loop.Next(execCtx)
		iterDuration := time.Since(iterStart)

		if loopErr != nil {
			if goCtx.Err() != nil {
				execCtx.SetTermination(agentloops.TerminationContextCanceled, "", goCtx.Err())
				return
			}
			execErr := fmt.Errorf(
				"AgentLoop.Next (iteration %d): %w",
				execCtx.Iteration(),
				loopErr,
			)
			execCtx.PublishError(execErr)
			execCtx.SetTermination(agentloops.TerminationError, "", execErr)
			return
		}

		execCtx.PublishAfterIteration(loopResult, iterDuration)

		if loopResult.Action == agentloops.LATerminate {
			execCtx.SetTermination(agentloops.TerminationSuccess, loopResult.Result, nil)
			return
		}

		// Continue - the AgentLoop is responsible for carrying NextPrompt into its LoopData.
	}
}
