package agentloops

import "sync"

// ExecutionStats contains counters and gauges for one execution. Standard keys are prefixed
// with "agentloops:" (see stats_keys.go); subscribers may keep their own keys alongside.
//
// Counters only go up. Gauges can go up and down and are meant for values that reset, such as
// the current revision number of a workflow run.
//
// All methods are safe for concurrent use.
type ExecutionStats struct {
	mu       sync.RWMutex
	counters map[string]int64
	gauges   map[string]float64
}

// NewExecutionStats creates an empty ExecutionStats.
func NewExecutionStats() *ExecutionStats {
	return &ExecutionStats{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
	}
}

// IncrCounter increments a counter by delta. Panics if delta is negative.
func (s *ExecutionStats) IncrCounter(key string, delta int64) {
	if delta < 0 {
		panic("agentloops: counter delta must not be negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key] += delta
}

// GetCounter returns the current value of a counter, zero if unset.
func (s *ExecutionStats) GetCounter(key string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters[key]
}

// SetGauge sets a gauge to value.
func (s *ExecutionStats) SetGauge(key string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gauges[key] = value
}

// IncrGauge adds delta to a gauge.
func (s *ExecutionStats) IncrGauge(key string, delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gauges[key] += delta
}

// GetGauge returns the current value of a gauge, zero if unset.
func (s *ExecutionStats) GetGauge(key string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gauges[key]
}

// Counters returns a copy of all counters.
func (s *ExecutionStats) Counters() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]int64, len(s.counters))
	for k, v := range s.counters {
		result[k] = v
	}
	return result
}

// Gauges returns a copy of all gauges.
func (s *ExecutionStats) Gauges() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]float64, len(s.gauges))
	for k, v := range s.gauges {
		result[k] = v
	}
	return result
}

// GetTotalInputTokens returns the total input tokens across all models.
func (s *ExecutionStats) GetTotalInputTokens() int64 {
	return s.GetCounter(KeyInputTokens)
}

// GetTotalOutputTokens returns the total output tokens across all models.
func (s *ExecutionStats) GetTotalOutputTokens() int64 {
	return s.GetCounter(KeyOutputTokens)
}

// GetModelCallCount returns the number of model calls.
func (s *ExecutionStats) GetModelCallCount() int64 {
	return s.GetCounter(KeyModelCalls)
}

// GetActionCallCount returns the number of action calls.
func (s *ExecutionStats) GetActionCallCount() int64 {
	return s.GetCounter(KeyActionCalls)
}

// GetRetrievalCount returns the number of retrieval calls.
func (s *ExecutionStats) GetRetrievalCount() int64 {
	return s.GetCounter(KeyRetrievals)
}

// GetIterations returns the number of iterations started.
func (s *ExecutionStats) GetIterations() int64 {
	return s.GetCounter(KeyIterations)
}
