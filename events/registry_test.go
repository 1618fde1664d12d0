package events

import (
	"context"
	"errors"
	"testing"

	"github.com/rickchristie/agentloops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Test Subscribers
// -----------------------------------------------------------------------------

type orderRecorder struct {
	name  string
	order *[]string
}

func (s *orderRecorder) OnBeforeIteration(
	_ *agentloops.ExecutionContext,
	_ *agentloops.BeforeIterationEvent,
) {
	*s.order = append(*s.order, s.name)
}

type actionSubscriber struct {
	before []*agentloops.BeforeActionCallEvent
	after  []*agentloops.AfterActionCallEvent
}

func (s *actionSubscriber) OnBeforeActionCall(
	_ *agentloops.ExecutionContext,
	e *agentloops.BeforeActionCallEvent,
) {
	s.before = append(s.before, e)
}

func (s *actionSubscriber) OnAfterActionCall(
	_ *agentloops.ExecutionContext,
	e *agentloops.AfterActionCallEvent,
) {
	s.after = append(s.after, e)
}

type nodeSubscriber struct {
	nodes []string
}

func (s *nodeSubscriber) OnAfterNode(
	_ *agentloops.ExecutionContext,
	e *agentloops.AfterNodeEvent,
) {
	s.nodes = append(s.nodes, e.Node+"->"+e.Next)
}

type errorSubscriber struct {
	errs []error
}

func (s *errorSubscriber) OnError(_ *agentloops.ExecutionContext, e *agentloops.ErrorEvent) {
	s.errs = append(s.errs, e.Err)
}

// -----------------------------------------------------------------------------
// Tests
// -----------------------------------------------------------------------------

func newExecCtx(r *Registry) *agentloops.ExecutionContext {
	execCtx := agentloops.NewExecutionContext(context.Background(), "test", nil)
	execCtx.SetDispatcher(r)
	return execCtx
}

func TestRegistry_DispatchOrder(t *testing.T) {
	var order []string
	r := NewRegistry().
		Subscribe(&orderRecorder{name: "first", order: &order}).
		Subscribe(&orderRecorder{name: "second", order: &order}).
		Subscribe(&orderRecorder{name: "third", order: &order})

	newExecCtx(r).PublishBeforeIteration()

	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_DispatchByInterface(t *testing.T) {
	actions := &actionSubscriber{}
	nodes := &nodeSubscriber{}
	errs := &errorSubscriber{}
	r := NewRegistry().Subscribe(actions).Subscribe(nodes).Subscribe(errs)
	execCtx := newExecCtx(r)

	execCtx.PublishBeforeActionCall("calculate", "4 * 7")
	execCtx.PublishAfterActionCall("calculate", "4 * 7", "28", 0, nil)
	execCtx.PublishAfterNode("run-1", "generate", 3, "reflect", 0, nil)
	execCtx.PublishError(errors.New("boom"))

	require.Len(t, actions.before, 1)
	require.Len(t, actions.after, 1)
	assert.Equal(t, "calculate", actions.before[0].Name)
	assert.Equal(t, "4 * 7", actions.before[0].Argument)
	assert.Equal(t, "28", actions.after[0].Observation)
	assert.Equal(t, agentloops.EventNameActionCallAfter, actions.after[0].EventName)

	assert.Equal(t, []string{"generate->reflect"}, nodes.nodes)

	require.Len(t, errs.errs, 1)
	assert.EqualError(t, errs.errs[0], "boom")
}

func TestRegistry_IgnoresNonSubscribers(t *testing.T) {
	r := NewRegistry().Subscribe(struct{}{}).Subscribe("not a subscriber")
	execCtx := newExecCtx(r)

	assert.NotPanics(t, func() {
		execCtx.PublishBeforeExecution()
		execCtx.PublishBeforeModelCall("m", nil)
		execCtx.PublishAfterRetrieval("tavily", "q", []string{"a"}, 0, nil)
	})
	assert.Len(t, execCtx.Events(), 3)
}
