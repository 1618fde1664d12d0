// Package redis stores graph checkpoints in Redis and provides a Redis-backed run lock, so
// several processes can share interrupted essay runs.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rickchristie/agentloops/config"
	"github.com/rickchristie/agentloops/graph"
	backend "github.com/redis/go-redis/v9"
)

// noExpiry is the index score of runs without a TTL (2100-01-01).
const noExpiry = 4102444800

// NewClient creates a go-redis client from cfg.
func NewClient(cfg config.RedisConfig) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Checkpointer implements graph.Checkpointer. Each run is a list of JSON records; an index
// sorted set scored by expiry time tracks the known runs.
type Checkpointer struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Checkpointer)

// WithTTL expires a run's checkpoints ttl after its last write. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *Checkpointer) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *Checkpointer) {
		c.prefix = prefix
	}
}

// NewCheckpointer creates a Checkpointer on an existing client.
func NewCheckpointer(client *backend.Client, opts ...Option) *Checkpointer {
	c := &Checkpointer{
		client: client,
		prefix: "agentloops",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Checkpointer) key(runID string) string {
	return c.prefix + ":run:" + runID
}

func (c *Checkpointer) indexKey() string {
	return c.prefix + ":runs"
}

// Put implements graph.Checkpointer.
func (c *Checkpointer) Put(ctx context.Context, rec graph.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	score := float64(noExpiry)
	if c.ttl > 0 {
		score = float64(time.Now().Add(c.ttl).Unix())
	}

	pipe := c.client.TxPipeline()
	pipe.RPush(ctx, c.key(rec.RunID), data)
	if c.ttl > 0 {
		pipe.Expire(ctx, c.key(rec.RunID), c.ttl)
	}
	pipe.ZAdd(ctx, c.indexKey(), backend.Z{Score: score, Member: rec.RunID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save checkpoint to redis: %w", err)
	}
	return nil
}

// Latest implements graph.Checkpointer.
func (c *Checkpointer) Latest(ctx context.Context, runID string) (graph.Record, error) {
	val, err := c.client.LIndex(ctx, c.key(runID), -1).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return graph.Record{}, fmt.Errorf("%w: %s", graph.ErrRunNotFound, runID)
		}
		return graph.Record{}, fmt.Errorf("failed to get checkpoint from redis: %w", err)
	}
	return decode(val)
}

// List implements graph.Checkpointer.
func (c *Checkpointer) List(ctx context.Context, runID string) ([]graph.Record, error) {
	vals, err := c.client.LRange(ctx, c.key(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints from redis: %w", err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("%w: %s", graph.ErrRunNotFound, runID)
	}

	records := make([]graph.Record, 0, len(vals))
	for _, val := range vals {
		rec, err := decode(val)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Runs returns the IDs of runs that have not expired. Expired entries are pruned from the
// index first.
func (c *Checkpointer) Runs(ctx context.Context) ([]string, error) {
	now := fmt.Sprintf("%d", time.Now().Unix())
	if err := c.client.ZRemRangeByScore(ctx, c.indexKey(), "-inf", "("+now).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired runs: %w", err)
	}
	runs, err := c.client.ZRange(ctx, c.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Delete removes every checkpoint of a run.
func (c *Checkpointer) Delete(ctx context.Context, runID string) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, c.key(runID))
	pipe.ZRem(ctx, c.indexKey(), runID)
	_, err := pipe.Exec(ctx)
	return err
}

func decode(val string) (graph.Record, error) {
	var rec graph.Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return graph.Record{}, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return rec, nil
}

var _ graph.Checkpointer = (*Checkpointer)(nil)
