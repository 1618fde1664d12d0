package main

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rickchristie/agentloops"
	"github.com/rickchristie/agentloops/actions"
	"github.com/rickchristie/agentloops/agents/react"
	"github.com/rickchristie/agentloops/config"
	"github.com/rickchristie/agentloops/essay"
	"github.com/rickchristie/agentloops/events"
	"github.com/rickchristie/agentloops/graph"
	"github.com/rickchristie/agentloops/loggers"
	"github.com/rickchristie/agentloops/metrics"
	"github.com/rickchristie/agentloops/models"
	"github.com/rickchristie/agentloops/resilience"
	"github.com/rickchristie/agentloops/search"
	"github.com/rickchristie/agentloops/secrets"
	"github.com/rickchristie/agentloops/store/redis"
	"github.com/rickchristie/agentloops/tracing"
)

// app wires the configured collaborators for one command.
type app struct {
	cfg      *config.Config
	logger   *bolt.Logger
	resolver *secrets.Resolver
	events   *events.Registry
	registry *prometheus.Registry

	checkpointer graph.Checkpointer
	locker       graph.Locker

	// newModel and newRetriever are replaced in tests.
	newModel     func(ctx context.Context) (agentloops.Model, error)
	newRetriever func(ctx context.Context) (agentloops.Retriever, error)
}

func newApp(ctx context.Context, configPath, logLevel string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger := loggers.New(loggers.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	resolver := secrets.NewResolver(nil, logger)
	if cfg.Secrets.Enabled {
		resolver, err = secrets.NewAWSResolver(ctx, cfg.Secrets.Region, logger)
		if err != nil {
			return nil, err
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a := &app{
		cfg:      cfg,
		logger:   logger,
		resolver: resolver,
		registry: registry,
		events: events.NewRegistry().
			Subscribe(loggers.NewSubscriber(logger).WithBodies(true)).
			Subscribe(metrics.New(registry)).
			Subscribe(tracing.New(nil)),
	}
	a.checkpointer, a.locker = a.store()
	a.newModel = a.buildModel
	a.newRetriever = a.buildRetriever
	return a, nil
}

func (a *app) retryConfig() resilience.RetryConfig {
	r := a.cfg.Retry
	return resilience.RetryConfig{
		MaxAttempts:  r.MaxAttempts,
		InitialDelay: r.InitialDelay,
		MaxDelay:     r.MaxDelay,
		Multiplier:   r.Multiplier,
		Jitter:       r.Jitter,
	}
}

func (a *app) buildModel(ctx context.Context) (agentloops.Model, error) {
	mc := a.cfg.Model
	var apiKey string
	if mc.Provider != agentloops.ProviderBedrock && mc.Provider != agentloops.ProviderOllama {
		key, err := a.resolver.Get(ctx, mc.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		apiKey = key
	}

	model, err := models.NewFromConfig(ctx, mc, apiKey)
	if err != nil {
		return nil, err
	}
	if mc.RequestsPerSecond > 0 {
		model = resilience.NewRateLimitedModel(model, mc.RequestsPerSecond, mc.Burst)
	}
	return resilience.NewRetryModel(model, a.retryConfig()), nil
}

func (a *app) buildRetriever(ctx context.Context) (agentloops.Retriever, error) {
	sc := a.cfg.Search
	key, err := a.resolver.Get(ctx, sc.APIKeyEnv)
	if err != nil {
		return nil, err
	}
	tavily, err := search.NewTavily(search.TavilyConfig{
		APIKey:      key,
		BaseURL:     sc.BaseURL,
		SearchDepth: sc.SearchDepth,
		Timeout:     sc.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return resilience.NewRetryRetriever(tavily, a.retryConfig()), nil
}

func (a *app) agent(ctx context.Context) (*react.Agent, error) {
	model, err := a.newModel(ctx)
	if err != nil {
		return nil, err
	}
	return react.NewAgent(model, actions.MustRegistry(actions.Calculate(), actions.AverageDogWeight())).
		WithInstructions(a.cfg.React.Instructions).
		WithInferenceParams(a.cfg.Model.Params).
		WithEvents(a.events), nil
}

// store returns the configured checkpointer and, for redis, the run lock.
func (a *app) store() (graph.Checkpointer, graph.Locker) {
	if a.cfg.Store.Backend != config.StoreRedis {
		return graph.NewMemoryCheckpointer(), nil
	}
	rc := a.cfg.Store.Redis
	client := redis.NewClient(rc)
	return redis.NewCheckpointer(client, redis.WithPrefix(rc.KeyPrefix), redis.WithTTL(rc.TTL)),
		redis.NewLocker(client, rc.KeyPrefix, rc.LockTTL)
}

// requirePersistentStore fails for commands that read runs written by another process.
func (a *app) requirePersistentStore() error {
	if a.cfg.Store.Backend != config.StoreRedis {
		return fmt.Errorf("this command needs store.backend %q, got %q", config.StoreRedis, a.cfg.Store.Backend)
	}
	return nil
}

func (a *app) essays(
	ctx context.Context,
	interruptAfter []string,
) (*graph.Compiled[essay.State, essay.Update], error) {
	model, err := a.newModel(ctx)
	if err != nil {
		return nil, err
	}
	retriever, err := a.newRetriever(ctx)
	if err != nil {
		return nil, err
	}

	ec := a.cfg.Essay
	writer := essay.NewWriter(model, retriever).
		WithInferenceParams(a.cfg.Model.Params).
		WithMaxQueries(ec.MaxQueries).
		WithMaxResults(ec.MaxResults).
		WithStructuredOutputRetries(ec.StructuredOutputRetries)

	opts := []graph.Option{
		graph.WithCheckpointer(a.checkpointer),
		graph.WithInterruptAfter(interruptAfter...),
		graph.WithStepLimit(ec.StepLimit),
		graph.WithEvents(a.events),
	}
	if a.locker != nil {
		opts = append(opts, graph.WithLocker(a.locker))
	}
	return writer.Compile(opts...)
}
