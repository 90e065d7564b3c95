package plclink

import (
	"sync"
	"time"
)

// MetricsCollector collects operation metrics including counts, errors, and durations
// It is safe for concurrent use.
//
// Example:
//
//	metrics := plclink.NewMetricsCollector()
//	client.SetInterceptor(metrics.Interceptor())
//
//	client.Read(ctx, "D100", plclink.Word, 5)
//
//	count, errors, avgDuration := metrics.GetStats(plclink.OpRead)
//	log.Printf("Read: %d calls, %d errors, avg: %v", count, errors, avgDuration)
type MetricsCollector struct {
	mu             sync.RWMutex
	OperationCount map[OperationType]int64
	ErrorCount     map[OperationType]int64
	TotalDuration  map[OperationType]time.Duration
	KindCount      map[ErrorKind]int64
}

// OperationStats is a per-operation snapshot returned by GetAllStats.
type OperationStats struct {
	Count       int64
	Errors      int64
	AvgDuration time.Duration
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	m := &MetricsCollector{}
	m.Reset()
	return m
}

// Interceptor returns an interceptor that collects metrics
func (m *MetricsCollector) Interceptor() Interceptor {
	return func(c *InterceptorCtx) (interface{}, error) {
		start := time.Now()

		result, err := c.Invoke(nil)

		duration := time.Since(start)

		m.mu.Lock()
		op := c.Info().Operation
		m.OperationCount[op]++
		m.TotalDuration[op] += duration
		if err != nil {
			m.ErrorCount[op]++
			m.KindCount[KindOf(err)]++
		}
		m.mu.Unlock()

		return result, err
	}
}

// GetStats returns statistics for a specific operation
// Returns: count, errors, avgDuration
func (m *MetricsCollector) GetStats(op OperationType) (count int64, errors int64, avgDuration time.Duration) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count = m.OperationCount[op]
	errors = m.ErrorCount[op]
	if count > 0 {
		avgDuration = m.TotalDuration[op] / time.Duration(count)
	}
	return
}

// ErrorsOfKind returns how many failed operations were classified as kind.
func (m *MetricsCollector) ErrorsOfKind(kind ErrorKind) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.KindCount[kind]
}

// Reset clears all collected metrics
func (m *MetricsCollector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.OperationCount = make(map[OperationType]int64)
	m.ErrorCount = make(map[OperationType]int64)
	m.TotalDuration = make(map[OperationType]time.Duration)
	m.KindCount = make(map[ErrorKind]int64)
}

// GetAllStats returns statistics for all operations
func (m *MetricsCollector) GetAllStats() map[OperationType]OperationStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[OperationType]OperationStats, len(m.OperationCount))
	for op, count := range m.OperationCount {
		var avgDuration time.Duration
		if count > 0 {
			avgDuration = m.TotalDuration[op] / time.Duration(count)
		}
		stats[op] = OperationStats{
			Count:       count,
			Errors:      m.ErrorCount[op],
			AvgDuration: avgDuration,
		}
	}

	return stats
}
