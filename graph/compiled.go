package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rickchristie/agentloops"
)

// RunResult is the outcome of Invoke or Resume.
type RunResult[S any] struct {
	RunID string `json:"run_id"`

	// State is the state after the last executed node.
	State S `json:"state"`

	// Steps lists the nodes executed by this call, in order.
	Steps []string `json:"steps"`

	// Status is StatusDone or StatusInterrupted.
	Status Status `json:"status"`

	// Next is the pending node of an interrupted run, End otherwise.
	Next string `json:"next"`
}

// Compiled is a validated, immutable workflow. It is safe for concurrent use; runs with the same
// ID are serialised.
type Compiled[S, U any] struct {
	merge       MergeFunc[S, U]
	nodes       map[string]NodeFunc[S, U]
	edges       map[string]string
	conditional map[string]conditionalEdge[S]
	entry       string
	config      config
	interrupts  map[string]bool
	locks       *keyedMutex
}

// Invoke runs the workflow from the entry point with the given initial state. An empty runID is
// replaced with a random UUID. With a checkpointer, a run ID that already has checkpoints fails
// with ErrRunExists; use Resume to continue it.
//
// Node errors, routing errors and the step limit fail the run; the returned result still carries
// the state and steps reached so far.
func (c *Compiled[S, U]) Invoke(
	execCtx *agentloops.ExecutionContext,
	runID string,
	state S,
) (*RunResult[S], error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	unlock, err := c.acquire(execCtx.Context(), runID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if c.config.checkpointer != nil {
		_, err := c.config.checkpointer.Latest(execCtx.Context(), runID)
		switch {
		case err == nil:
			return nil, fmt.Errorf("%w: %s", ErrRunExists, runID)
		case !errors.Is(err, ErrRunNotFound):
			return nil, err
		}
	}
	return c.run(execCtx, runID, state, c.entry, 0)
}

// Resume continues an interrupted run from its pending node, using the latest checkpoint
// (including any UpdateState edit) as the state.
func (c *Compiled[S, U]) Resume(
	execCtx *agentloops.ExecutionContext,
	runID string,
) (*RunResult[S], error) {
	if c.config.checkpointer == nil {
		return nil, fmt.Errorf("%w: %s (no checkpointer configured)", ErrRunNotFound, runID)
	}
	unlock, err := c.acquire(execCtx.Context(), runID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, err := c.config.checkpointer.Latest(execCtx.Context(), runID)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusInterrupted {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotInterrupted, runID, rec.Status)
	}
	cp, err := decodeRecord[S](rec)
	if err != nil {
		return nil, err
	}
	return c.run(execCtx, runID, cp.State, rec.Next, rec.Step)
}

// UpdateState merges update into the latest checkpoint of a run and saves the result as a new
// checkpoint. The run's position is unchanged, so a following Resume sees the edited state.
func (c *Compiled[S, U]) UpdateState(ctx context.Context, runID string, update U) (*Checkpoint[S], error) {
	if c.config.checkpointer == nil {
		return nil, fmt.Errorf("%w: %s (no checkpointer configured)", ErrRunNotFound, runID)
	}
	unlock, err := c.acquire(ctx, runID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, err := c.config.checkpointer.Latest(ctx, runID)
	if err != nil {
		return nil, err
	}
	cp, err := decodeRecord[S](rec)
	if err != nil {
		return nil, err
	}
	cp.State = c.merge(cp.State, update)
	cp.Edited = true

	saved, err := c.save(ctx, runID, rec.Step, rec.Node, rec.Next, rec.Status, true, cp.State)
	if err != nil {
		return nil, err
	}
	cp.CreatedAt = saved.CreatedAt
	return &cp, nil
}

// State returns the latest checkpoint of a run.
func (c *Compiled[S, U]) State(ctx context.Context, runID string) (*Checkpoint[S], error) {
	if c.config.checkpointer == nil {
		return nil, fmt.Errorf("%w: %s (no checkpointer configured)", ErrRunNotFound, runID)
	}
	rec, err := c.config.checkpointer.Latest(ctx, runID)
	if err != nil {
		return nil, err
	}
	cp, err := decodeRecord[S](rec)
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// History returns every checkpoint of a run, oldest first.
func (c *Compiled[S, U]) History(ctx context.Context, runID string) ([]Checkpoint[S], error) {
	if c.config.checkpointer == nil {
		return nil, fmt.Errorf("%w: %s (no checkpointer configured)", ErrRunNotFound, runID)
	}
	records, err := c.config.checkpointer.List(ctx, runID)
	if err != nil {
		return nil, err
	}
	result := make([]Checkpoint[S], 0, len(records))
	for _, rec := range records {
		cp, err := decodeRecord[S](rec)
		if err != nil {
			return nil, err
		}
		result = append(result, cp)
	}
	return result, nil
}

func (c *Compiled[S, U]) acquire(ctx context.Context, runID string) (func(), error) {
	unlockLocal, err := c.locks.lock(ctx, runID)
	if err != nil {
		return nil, err
	}
	if c.config.locker == nil {
		return unlockLocal, nil
	}
	unlockRemote, err := c.config.locker.Lock(ctx, runID)
	if err != nil {
		unlockLocal()
		return nil, fmt.Errorf("lock run %s: %w", runID, err)
	}
	return func() {
		unlockRemote()
		unlockLocal()
	}, nil
}

// run drives the execution lifecycle around loop, recording the outcome on execCtx.
func (c *Compiled[S, U]) run(
	execCtx *agentloops.ExecutionContext,
	runID string,
	state S,
	start string,
	step int,
) (*RunResult[S], error) {
	if c.config.events != nil {
		execCtx.SetDispatcher(c.config.events)
	}
	execCtx.PublishBeforeExecution()
	defer execCtx.PublishAfterExecution()

	result, err := c.loop(execCtx, runID, state, start, step)
	goCtx := execCtx.Context()
	switch {
	case err != nil && goCtx.Err() != nil && errors.Is(err, goCtx.Err()):
		execCtx.SetTermination(agentloops.TerminationContextCanceled, "", err)
	case err != nil:
		execCtx.PublishError(err)
		execCtx.SetTermination(agentloops.TerminationError, "", err)
	case result.Status == StatusInterrupted:
		execCtx.SetTermination(agentloops.TerminationInterrupted, "", nil)
	default:
		execCtx.SetTermination(agentloops.TerminationSuccess, "", nil)
	}
	return result, err
}

func (c *Compiled[S, U]) loop(
	execCtx *agentloops.ExecutionContext,
	runID string,
	state S,
	current string,
	step int,
) (*RunResult[S], error) {
	result := &RunResult[S]{
		RunID:  runID,
		State:  state,
		Steps:  make([]string, 0),
		Status: StatusRunning,
	}

	executed := 0
	for current != End {
		ctx := execCtx.Context()
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if c.config.stepLimit > 0 && executed >= c.config.stepLimit {
			return result, fmt.Errorf("%w: %d nodes executed, next was %q", ErrStepLimit, executed, current)
		}
		node, ok := c.nodes[current]
		if !ok {
			return result, fmt.Errorf("%w: unknown node %q", ErrInvalidRoute, current)
		}

		step++
		executed++
		execCtx.PublishBeforeNode(runID, current, step)
		start := time.Now()

		update, err := node(execCtx, result.State)
		if err != nil {
			execCtx.PublishAfterNode(runID, current, step, "", time.Since(start), err)
			return result, fmt.Errorf("node %s: %w", current, err)
		}
		result.State = c.merge(result.State, update)

		next, err := c.route(current, result.State)
		execCtx.PublishAfterNode(runID, current, step, next, time.Since(start), err)
		if err != nil {
			return result, err
		}
		result.Steps = append(result.Steps, current)

		status := StatusRunning
		switch {
		case next == End:
			status = StatusDone
		case c.interrupts[current]:
			status = StatusInterrupted
		}
		if _, err := c.save(ctx, runID, step, current, next, status, false, result.State); err != nil {
			return result, err
		}
		if status == StatusInterrupted {
			result.Status = StatusInterrupted
			result.Next = next
			return result, nil
		}
		current = next
	}

	result.Status = StatusDone
	result.Next = End
	return result, nil
}

func (c *Compiled[S, U]) route(current string, state S) (string, error) {
	if target, ok := c.edges[current]; ok {
		return target, nil
	}
	edge := c.conditional[current]
	dest := edge.router(state)
	if !slices.Contains(edge.destinations, dest) {
		return "", fmt.Errorf(
			"%w: node %q routed to %q, declared %v",
			ErrInvalidRoute, current, dest, edge.destinations,
		)
	}
	return dest, nil
}

func (c *Compiled[S, U]) save(
	ctx context.Context,
	runID string,
	step int,
	node string,
	next string,
	status Status,
	edited bool,
	state S,
) (Record, error) {
	if c.config.checkpointer == nil {
		return Record{}, nil
	}
	encoded, err := json.Marshal(state)
	if err != nil {
		return Record{}, fmt.Errorf("encode state of run %s: %w", runID, err)
	}
	rec := Record{
		RunID:     runID,
		Step:      step,
		Node:      node,
		Next:      next,
		Status:    status,
		Edited:    edited,
		State:     encoded,
		CreatedAt: time.Now(),
	}
	if err := c.config.checkpointer.Put(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("save checkpoint %s/%d: %w", runID, step, err)
	}
	return rec, nil
}
