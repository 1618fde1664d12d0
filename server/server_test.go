package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rickchristie/agentloops"
	"github.com/rickchristie/agentloops/actions"
	"github.com/rickchristie/agentloops/agents/react"
	"github.com/rickchristie/agentloops/config"
	"github.com/rickchristie/agentloops/essay"
	"github.com/rickchristie/agentloops/events"
	"github.com/rickchristie/agentloops/graph"
	"github.com/rickchristie/agentloops/internal/tt"
	"github.com/rickchristie/agentloops/loggers"
	"github.com/rickchristie/agentloops/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func essayResponder() func([]llms.MessageContent) string {
	drafts := 0
	return func(messages []llms.MessageContent) string {
		system := tt.SystemText(messages)
		switch {
		case strings.Contains(system, "high level outline"):
			return "outline"
		case strings.Contains(system, "researcher"):
			return `{"queries": ["q1"]}`
		case strings.Contains(system, "essay assistant"):
			drafts++
			return fmt.Sprintf("draft %d", drafts)
		case strings.Contains(system, "grading an essay"):
			return "critique"
		}
		return "unexpected"
	}
}

func newTestServer(t *testing.T, reactModel *tt.MockModel, interruptAfter ...string) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	registry := events.NewRegistry().Subscribe(metrics.New(reg))

	essayModel := tt.NewMockModel().WithResponder(essayResponder())
	compiled, err := essay.NewWriter(essayModel, tt.NewMockRetriever()).Compile(
		graph.WithCheckpointer(graph.NewMemoryCheckpointer()),
		graph.WithInterruptAfter(interruptAfter...),
		graph.WithEvents(registry),
	)
	require.NoError(t, err)

	srv := New(Options{
		Agent:   react.NewAgent(reactModel, actions.MustRegistry(actions.Calculate())).WithEvents(registry),
		Essays:  compiled,
		React:   config.ReactConfig{TurnLimit: 5},
		Essay:   config.EssayConfig{MaxRevisions: 1, RevisionNumber: 1},
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:  loggers.Discard(),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp.StatusCode, decoded
}

func TestServer_React(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		model      *tt.MockModel
		wantStatus int
		wantBody   map[string]any
	}{
		{
			name:       "final answer",
			body:       `{"task": "what is 2 + 3?"}`,
			model:      tt.NewMockModel().AddText("Action: calculate: 2 + 3\nPAUSE", "Answer: 5"),
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"status": "final", "answer": "Answer: 5", "turns": float64(2)},
		},
		{
			name:       "turn limit",
			body:       `{"task": "loop", "turn_limit": 1}`,
			model:      tt.NewMockModel().AddText("Action: calculate: 1 + 1"),
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"status": "incomplete", "answer": "", "turns": float64(1)},
		},
		{
			name:       "malformed json",
			body:       `{"task": `,
			model:      tt.NewMockModel(),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "schema violation",
			body:       `{"task": "x", "turn_limit": 0}`,
			model:      tt.NewMockModel(),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown action",
			body:       `{"task": "fly"}`,
			model:      tt.NewMockModel().AddText("Action: fly: away"),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "provider failure",
			body: `{"task": "x"}`,
			model: tt.NewMockModel().AddError(&agentloops.TransportError{
				Provider: agentloops.ProviderOpenAI, Op: "generate", Err: errors.New("503"),
			}),
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, tc.model)

			status, body := do(t, http.MethodPost, ts.URL+"/v1/react", tc.body)

			assert.Equal(t, tc.wantStatus, status)
			if tc.wantBody != nil {
				assert.Equal(t, tc.wantBody, body)
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestServer_EssayLifecycle(t *testing.T) {
	ts := newTestServer(t, tt.NewMockModel(), essay.NodePlanner)
	base := ts.URL + "/v1/essays"

	status, created := do(t, http.MethodPost, base, `{"task": "go vs rust", "run_id": "run-1"}`)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "interrupted", created["status"])
	assert.Equal(t, essay.NodeResearchPlan, created["next"])

	status, patched := do(t, http.MethodPatch, base+"/run-1", `{"plan": "edited outline"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, patched["edited"])

	status, resumed := do(t, http.MethodPost, base+"/run-1/resume", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "done", resumed["status"])
	state := resumed["state"].(map[string]any)
	assert.Equal(t, "edited outline", state["plan"])
	assert.Equal(t, "draft 1", state["draft"])

	status, latest := do(t, http.MethodGet, base+"/run-1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, essay.NodeGenerate, latest["node"])

	req, err := http.NewRequest(http.MethodGet, base+"/run-1/history", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var history []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	// planner, edit, research_plan, generate
	assert.Len(t, history, 4)

	status, _ = do(t, http.MethodPost, base+"/run-1/resume", "")
	assert.Equal(t, http.StatusConflict, status)
}

func TestServer_EssayRevisionNumber(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantDraft    string
		wantRevision float64
	}{
		{
			name:         "config default starts at one",
			body:         `{"task": "t", "max_revisions": 1}`,
			wantDraft:    "draft 1",
			wantRevision: 2,
		},
		{
			name:         "zero gives one extra draft",
			body:         `{"task": "t", "max_revisions": 1, "revision_number": 0}`,
			wantDraft:    "draft 2",
			wantRevision: 2,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, tt.NewMockModel())

			status, created := do(t, http.MethodPost, ts.URL+"/v1/essays", tc.body)

			require.Equal(t, http.StatusCreated, status)
			state := created["state"].(map[string]any)
			assert.Equal(t, tc.wantDraft, state["draft"])
			assert.Equal(t, tc.wantRevision, state["revision_number"])
		})
	}
}

func TestServer_EssayRunIDTaken(t *testing.T) {
	ts := newTestServer(t, tt.NewMockModel())
	body := `{"task": "t", "run_id": "run-1", "max_revisions": 1}`

	status, _ := do(t, http.MethodPost, ts.URL+"/v1/essays", body)
	require.Equal(t, http.StatusCreated, status)

	status, resp := do(t, http.MethodPost, ts.URL+"/v1/essays", body)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, resp["error"], "run already exists")
}

func TestServer_EssayErrors(t *testing.T) {
	ts := newTestServer(t, tt.NewMockModel())

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{name: "missing task", method: http.MethodPost, path: "/v1/essays", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "negative revisions", method: http.MethodPost, path: "/v1/essays", body: `{"task": "t", "max_revisions": -1}`, wantStatus: http.StatusBadRequest},
		{name: "negative revision number", method: http.MethodPost, path: "/v1/essays", body: `{"task": "t", "revision_number": -1}`, wantStatus: http.StatusBadRequest},
		{name: "unknown run", method: http.MethodGet, path: "/v1/essays/nope", wantStatus: http.StatusNotFound},
		{name: "unknown history", method: http.MethodGet, path: "/v1/essays/nope/history", wantStatus: http.StatusNotFound},
		{name: "patch unknown run", method: http.MethodPatch, path: "/v1/essays/nope", body: `{"draft": "d"}`, wantStatus: http.StatusNotFound},
		{name: "patch wrong type", method: http.MethodPatch, path: "/v1/essays/nope", body: `{"draft": 3}`, wantStatus: http.StatusBadRequest},
		{name: "resume unknown run", method: http.MethodPost, path: "/v1/essays/nope/resume", wantStatus: http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := do(t, tc.method, ts.URL+tc.path, tc.body)
			assert.Equal(t, tc.wantStatus, status)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestServer_HealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, tt.NewMockModel().AddText("Answer: hi"))

	status, body := do(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, _ = do(t, http.MethodPost, ts.URL+"/v1/react", `{"task": "hi"}`)
	require.Equal(t, http.StatusOK, status)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `agentloops_model_calls_total{model="test-model",outcome="ok"} 1`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: fmt.Errorf("%w: x", errBadRequest), want: http.StatusBadRequest},
		{err: fmt.Errorf("%w: run", graph.ErrRunNotFound), want: http.StatusNotFound},
		{err: graph.ErrNotInterrupted, want: http.StatusConflict},
		{err: fmt.Errorf("%w: run-1", graph.ErrRunExists), want: http.StatusConflict},
		{err: agentloops.ErrMalformedOutput, want: http.StatusUnprocessableEntity},
		{err: &agentloops.TransportError{Provider: "tavily", Err: errors.New("x")}, want: http.StatusBadGateway},
		{err: graph.ErrStepLimit, want: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.want, statusFor(tc.err))
		})
	}
}
