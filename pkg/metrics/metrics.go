// Package metrics keeps process counters and gauges in memory and appends
// every change to a tstorage time series under workdir/data/metrics.
package metrics

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
	"github.com/pkg/errors"
)

const (
	PublishTotal      = "beckn_publish_total"
	PublishFailed     = "beckn_publish_failed"
	NetworkItems      = "beckn_network_items"
	SubscribersActive = "beckn_subscribers"
	SystemCPUUse      = "system_cpuuse"
	SystemMemUse      = "system_memuse"
	ProcessCPUUse     = "becknmart_cpuuse"
	ProcessMemUse     = "becknmart_memuse"
)

var (
	mu      sync.Mutex
	values  = make(map[string]int64)
	storage tstorage.Storage
)

// InitMetrics opens the time series store under workdir
func InitMetrics(workdir string) error {
	mu.Lock()
	defer mu.Unlock()
	if storage != nil {
		return nil
	}
	s, err := tstorage.NewStorage(
		tstorage.WithDataPath(filepath.Join(workdir, "data", "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithRetention(7*24*time.Hour),
	)
	if err != nil {
		return errors.Wrap(err, "metrics: open storage")
	}
	storage = s
	return nil
}

func record(name string, v int64) {
	if storage == nil {
		return
	}
	_ = storage.InsertRows([]tstorage.Row{{
		Metric:    name,
		DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: float64(v)},
	}})
}

// SetGauge replaces the current value
func SetGauge(name string, v int64) {
	mu.Lock()
	defer mu.Unlock()
	values[name] = v
	record(name, v)
}

// Incr adds delta and returns the new value
func Incr(name string, delta int64) int64 {
	mu.Lock()
	defer mu.Unlock()
	values[name] += delta
	v := values[name]
	record(name, v)
	return v
}

// Get the current value, zero when never set
func Get(name string) int64 {
	mu.Lock()
	defer mu.Unlock()
	return values[name]
}

// Snapshot a copy of all current values
func Snapshot() map[string]int64 {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]int64, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

// Query recorded points of name in [start, end) as unix seconds
func Query(name string, start, end int64) ([]*tstorage.DataPoint, error) {
	mu.Lock()
	s := storage
	mu.Unlock()
	if s == nil {
		return nil, nil
	}
	points, err := s.Select(name, nil, start, end)
	if errors.Is(err, tstorage.ErrNoDataPoints) {
		return nil, nil
	}
	return points, err
}

// Close flushes the time series store
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}
