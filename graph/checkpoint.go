package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Status is the state of a run after a node.
type Status string

const (
	StatusRunning     Status = "running"
	StatusInterrupted Status = "interrupted"
	StatusDone        Status = "done"
)

// Record is a stored checkpoint. State is the JSON encoding of the workflow state, so any
// store that can hold bytes can implement Checkpointer.
type Record struct {
	RunID     string          `json:"run_id"`
	Step      int             `json:"step"`
	Node      string          `json:"node"`
	Next      string          `json:"next"`
	Status    Status          `json:"status"`
	Edited    bool            `json:"edited,omitempty"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// Checkpoint is a decoded Record.
type Checkpoint[S any] struct {
	RunID string `json:"run_id"`

	// Step is the 1-indexed number of node executions in the run so far.
	Step int `json:"step"`

	// Node is the node that produced this checkpoint.
	Node string `json:"node"`

	// Next is the node that runs next, or End.
	Next string `json:"next"`

	Status Status `json:"status"`

	// Edited is true for checkpoints written by UpdateState.
	Edited bool `json:"edited,omitempty"`

	State     S         `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

func decodeRecord[S any](rec Record) (Checkpoint[S], error) {
	cp := Checkpoint[S]{
		RunID:     rec.RunID,
		Step:      rec.Step,
		Node:      rec.Node,
		Next:      rec.Next,
		Status:    rec.Status,
		Edited:    rec.Edited,
		CreatedAt: rec.CreatedAt,
	}
	if err := json.Unmarshal(rec.State, &cp.State); err != nil {
		return Checkpoint[S]{}, fmt.Errorf("decode checkpoint %s/%d: %w", rec.RunID, rec.Step, err)
	}
	return cp, nil
}

// Checkpointer persists checkpoints. Latest and List return an error wrapping ErrRunNotFound
// for unknown run IDs.
type Checkpointer interface {
	Put(ctx context.Context, rec Record) error
	Latest(ctx context.Context, runID string) (Record, error)
	List(ctx context.Context, runID string) ([]Record, error)
}

// MemoryCheckpointer keeps checkpoints in process memory. Safe for concurrent use.
type MemoryCheckpointer struct {
	mu   sync.RWMutex
	runs map[string][]Record
}

// NewMemoryCheckpointer creates an empty MemoryCheckpointer.
func NewMemoryCheckpointer() *MemoryCheckpointer {
	return &MemoryCheckpointer{runs: make(map[string][]Record)}
}

// Put implements Checkpointer.
func (m *MemoryCheckpointer) Put(_ context.Context, rec Record) error {
	rec.State = append(json.RawMessage(nil), rec.State...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[rec.RunID] = append(m.runs[rec.RunID], rec)
	return nil
}

// Latest implements Checkpointer.
func (m *MemoryCheckpointer) Latest(_ context.Context, runID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := m.runs[runID]
	if len(records) == 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return records[len(records)-1], nil
}

// List implements Checkpointer.
func (m *MemoryCheckpointer) List(_ context.Context, runID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := m.runs[runID]
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return append([]Record(nil), records...), nil
}

// Runs returns the IDs of every stored run.
func (m *MemoryCheckpointer) Runs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.runs))
	for id := range m.runs {
		ids = append(ids, id)
	}
	return ids
}

var _ Checkpointer = (*MemoryCheckpointer)(nil)
