package redis_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rickchristie/agentloops"
	"github.com/rickchristie/agentloops/config"
	"github.com/rickchristie/agentloops/graph"
	"github.com/rickchristie/agentloops/store/redis"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(config.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func record(runID string, step int, node string) graph.Record {
	return graph.Record{
		RunID:     runID,
		Step:      step,
		Node:      node,
		Next:      "next",
		Status:    graph.StatusRunning,
		State:     json.RawMessage(fmt.Sprintf(`{"step":%d}`, step)),
		CreatedAt: time.Date(2024, 1, 1, 0, 0, step, 0, time.UTC),
	}
}

func TestCheckpointer_PutLatestList(t *testing.T) {
	mr, client := setup(t)
	cp := redis.NewCheckpointer(client, redis.WithPrefix("test"))
	ctx := context.Background()

	require.NoError(t, cp.Put(ctx, record("run-1", 1, "planner")))
	require.NoError(t, cp.Put(ctx, record("run-1", 2, "research_plan")))
	require.NoError(t, cp.Put(ctx, record("run-2", 1, "planner")))

	latest, err := cp.Latest(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Step)
	assert.Equal(t, "research_plan", latest.Node)
	assert.JSONEq(t, `{"step":2}`, string(latest.State))

	all, err := cp.List(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "planner", all[0].Node)
	assert.True(t, all[0].CreatedAt.Equal(record("run-1", 1, "planner").CreatedAt))

	runs, err := cp.Runs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"run-1", "run-2"}, runs)
	assert.True(t, mr.Exists("test:run:run-1"))

	require.NoError(t, cp.Delete(ctx, "run-2"))
	runs, err = cp.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, runs)
}

func TestCheckpointer_NotFound(t *testing.T) {
	_, client := setup(t)
	cp := redis.NewCheckpointer(client)
	ctx := context.Background()

	_, err := cp.Latest(ctx, "missing")
	assert.ErrorIs(t, err, graph.ErrRunNotFound)

	_, err = cp.List(ctx, "missing")
	assert.ErrorIs(t, err, graph.ErrRunNotFound)
}

func TestCheckpointer_TTL(t *testing.T) {
	mr, client := setup(t)
	cp := redis.NewCheckpointer(client, redis.WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, cp.Put(ctx, record("run-ttl", 1, "planner")))
	assert.Equal(t, time.Minute, mr.TTL("agentloops:run:run-ttl"))

	mr.FastForward(2 * time.Minute)

	_, err := cp.Latest(ctx, "run-ttl")
	assert.ErrorIs(t, err, graph.ErrRunNotFound)
}

func TestCheckpointer_RunsPrunesExpired(t *testing.T) {
	_, client := setup(t)
	cp := redis.NewCheckpointer(client)
	ctx := context.Background()

	require.NoError(t, cp.Put(ctx, record("live", 1, "planner")))
	past := float64(time.Now().Add(-time.Hour).Unix())
	require.NoError(t, client.ZAdd(ctx, "agentloops:runs", backend.Z{Score: past, Member: "stale"}).Err())

	runs, err := cp.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, runs)
}

type countState struct {
	Count int `json:"count"`
}

func TestCheckpointer_WithGraph(t *testing.T) {
	_, client := setup(t)
	cp := redis.NewCheckpointer(client, redis.WithTTL(time.Hour))
	locker := redis.NewLocker(client, "agentloops", time.Minute)

	compiled, err := graph.New(func(s countState, incr int) countState {
		s.Count += incr
		return s
	}).
		AddNode("incr", func(_ *agentloops.ExecutionContext, _ countState) (int, error) { return 1, nil }).
		AddNode("double", func(_ *agentloops.ExecutionContext, s countState) (int, error) { return s.Count, nil }).
		AddEdge("incr", "double").
		AddEdge("double", graph.End).
		SetEntryPoint("incr").
		Compile(graph.WithCheckpointer(cp), graph.WithLocker(locker), graph.WithInterruptAfter("incr"))
	require.NoError(t, err)

	ctx := context.Background()
	first, err := compiled.Invoke(agentloops.NewExecutionContext(ctx, "count", nil), "run-g", countState{})
	require.NoError(t, err)
	assert.Equal(t, graph.StatusInterrupted, first.Status)
	assert.Equal(t, "double", first.Next)

	resumed, err := compiled.Resume(agentloops.NewExecutionContext(ctx, "count", nil), "run-g")
	require.NoError(t, err)
	assert.Equal(t, graph.StatusDone, resumed.Status)
	assert.Equal(t, 2, resumed.State.Count)

	history, err := compiled.History(ctx, "run-g")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "incr", history[0].Node)
	assert.Equal(t, 1, history[0].State.Count)
	assert.Equal(t, "double", history[1].Node)
}
