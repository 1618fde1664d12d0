// Package metrics exports run events as Prometheus metrics.
//
//	m := metrics.New(prometheus.DefaultRegisterer)
//	registry := events.NewRegistry().Subscribe(m)
//	http.Handle("/metrics", promhttp.Handler())
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rickchristie/agentloops"
)

const namespace = "agentloops"

// Subscriber records counters and latency histograms for model calls, actions, retrievals,
// graph nodes and executions.
type Subscriber struct {
	executions        *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	modelCalls        *prometheus.CounterVec
	modelDuration     *prometheus.HistogramVec
	tokens            *prometheus.CounterVec
	actionCalls       *prometheus.CounterVec
	actionDuration    *prometheus.HistogramVec
	retrievals        *prometheus.CounterVec
	retrievalDuration *prometheus.HistogramVec
	nodeRuns          *prometheus.CounterVec
	nodeDuration      *prometheus.HistogramVec
}

// New creates a Subscriber and registers its collectors with reg. It panics if a collector
// is already registered, like prometheus.MustRegister.
func New(reg prometheus.Registerer) *Subscriber {
	s := &Subscriber{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Finished executions by name and termination reason.",
		}, []string{"execution", "termination"}),
		executionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Duration of executions.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"execution"}),
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Model calls by model and outcome.",
		}, []string{"model", "outcome"}),
		modelDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Duration of model calls.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"model"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Tokens consumed by model and direction.",
		}, []string{"model", "direction"}),
		actionCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_calls_total",
			Help:      "Action calls by action and outcome.",
		}, []string{"action", "outcome"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_call_duration_seconds",
			Help:      "Duration of action calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Retrieval calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		retrievalDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Duration of retrieval calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		nodeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_runs_total",
			Help:      "Graph node executions by node and outcome.",
		}, []string{"node", "outcome"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_duration_seconds",
			Help:      "Duration of graph node executions.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"node"}),
	}

	reg.MustRegister(
		s.executions,
		s.executionDuration,
		s.modelCalls,
		s.modelDuration,
		s.tokens,
		s.actionCalls,
		s.actionDuration,
		s.retrievals,
		s.retrievalDuration,
		s.nodeRuns,
		s.nodeDuration,
	)
	return s
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// OnAfterExecution implements agentloops.AfterExecutionSubscriber.
func (s *Subscriber) OnAfterExecution(execCtx *agentloops.ExecutionContext, event *agentloops.AfterExecutionEvent) {
	s.executions.WithLabelValues(execCtx.Name(), string(event.TerminationReason)).Inc()
	s.executionDuration.WithLabelValues(execCtx.Name()).Observe(event.Duration.Seconds())
}

// OnAfterModelCall implements agentloops.AfterModelCallSubscriber.
func (s *Subscriber) OnAfterModelCall(_ *agentloops.ExecutionContext, event *agentloops.AfterModelCallEvent) {
	s.modelCalls.WithLabelValues(event.Model, outcome(event.Error)).Inc()
	s.modelDuration.WithLabelValues(event.Model).Observe(event.Duration.Seconds())
	s.tokens.WithLabelValues(event.Model, "input").Add(float64(event.InputTokens))
	s.tokens.WithLabelValues(event.Model, "output").Add(float64(event.OutputTokens))
}

// OnAfterActionCall implements agentloops.AfterActionCallSubscriber.
func (s *Subscriber) OnAfterActionCall(_ *agentloops.ExecutionContext, event *agentloops.AfterActionCallEvent) {
	s.actionCalls.WithLabelValues(event.Name, outcome(event.Error)).Inc()
	s.actionDuration.WithLabelValues(event.Name).Observe(event.Duration.Seconds())
}

// OnAfterRetrieval implements agentloops.AfterRetrievalSubscriber.
func (s *Subscriber) OnAfterRetrieval(_ *agentloops.ExecutionContext, event *agentloops.AfterRetrievalEvent) {
	s.retrievals.WithLabelValues(event.Provider, outcome(event.Error)).Inc()
	s.retrievalDuration.WithLabelValues(event.Provider).Observe(event.Duration.Seconds())
}

// OnAfterNode implements agentloops.AfterNodeSubscriber.
func (s *Subscriber) OnAfterNode(_ *agentloops.ExecutionContext, event *agentloops.AfterNodeEvent) {
	s.nodeRuns.WithLabelValues(event.Node, outcome(event.Error)).Inc()
	s.nodeDuration.WithLabelValues(event.Node).Observe(event.Duration.Seconds())
}

var (
	_ agentloops.AfterExecutionSubscriber  = (*Subscriber)(nil)
	_ agentloops.AfterModelCallSubscriber  = (*Subscriber)(nil)
	_ agentloops.AfterActionCallSubscriber = (*Subscriber)(nil)
	_ agentloops.AfterRetrievalSubscriber  = (*Subscriber)(nil)
	_ agentloops.AfterNodeSubscriber       = (*Subscriber)(nil)
)
