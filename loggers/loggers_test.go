package loggers

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/rickchristie/agentloops"
	"github.com/rickchristie/agentloops/actions"
	"github.com/rickchristie/agentloops/agents/react"
	"github.com/rickchristie/agentloops/events"
	"github.com/rickchristie/agentloops/internal/tt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected bolt.Level
	}{
		{input: "trace", expected: bolt.TRACE},
		{input: "DEBUG", expected: bolt.DEBUG},
		{input: " info ", expected: bolt.INFO},
		{input: "warn", expected: bolt.WARN},
		{input: "error", expected: bolt.ERROR},
		{input: "loud", expected: bolt.INFO},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseLevel(tc.input))
		})
	}
}

func runReact(t *testing.T, level string, bodies bool) string {
	t.Helper()
	buf := &bytes.Buffer{}
	logger := New(Config{Level: level, Format: "json", Output: buf})

	model := tt.NewMockModel().AddText("Action: calculate: 2 + 2\nPAUSE", "Answer: 4")
	agent := react.NewAgent(model, actions.MustRegistry(actions.Calculate())).
		WithEvents(events.NewRegistry().Subscribe(NewSubscriber(logger).WithBodies(bodies)))

	result, err := agent.Run(context.Background(), "what is 2 + 2?", 3)
	require.NoError(t, err)
	require.Equal(t, react.StatusFinal, result.Status)
	return buf.String()
}

func TestSubscriber_LogsRun(t *testing.T) {
	out := runReact(t, "debug", false)

	assert.Contains(t, out, `"task":"what is 2 + 2?"`)
	assert.Contains(t, out, `"model":"test-model"`)
	assert.Contains(t, out, `"action":"calculate"`)
	assert.Contains(t, out, `"observation":"4"`)
	assert.Contains(t, out, `"termination":"success"`)
	assert.Contains(t, out, `"model_calls":2`)
	assert.NotContains(t, out, "role: system")
}

func TestSubscriber_InfoHidesDebug(t *testing.T) {
	out := runReact(t, "info", true)

	assert.Contains(t, out, `"observation":"4"`)
	assert.NotContains(t, out, "turn started")
	assert.NotContains(t, out, "role: system")
}

func TestSubscriber_TraceDumpsBodies(t *testing.T) {
	out := runReact(t, "trace", true)

	assert.Contains(t, out, "role: system")
	assert.Contains(t, out, "role: human")
	assert.Contains(t, out, "stop_reason")
}

func TestSubscriber_Errors(t *testing.T) {
	buf := &bytes.Buffer{}
	sub := NewSubscriber(New(Config{Level: "info", Format: "json", Output: buf}))
	execCtx := agentloops.NewExecutionContext(context.Background(), "essay", nil)
	execCtx.SetDispatcher(events.NewRegistry().Subscribe(sub))

	execCtx.PublishAfterRetrieval("tavily", "go", nil, 0, errors.New("search down"))
	execCtx.PublishAfterNode("run-1", "research_plan", 2, "", 0, errors.New("node broke"))
	execCtx.PublishError(errors.New("fatal"))

	out := buf.String()
	assert.Contains(t, out, `"error":"search down"`)
	assert.Contains(t, out, `"run_id":"run-1"`)
	assert.Contains(t, out, `"node":"research_plan"`)
	assert.Contains(t, out, `"error":"node broke"`)
	assert.Contains(t, out, `"error":"fatal"`)
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard().Info().Str("k", "v").Msg("nothing")
	})
}
