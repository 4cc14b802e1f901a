package server

import (
	"encoding/json"
	gometrics "github.com/rcrowley/go-metrics"
	"sort"
	"strings"
	"time"
)

const (
	timerPrefix   = "calls."
	failurePrefix = "failures."
)

// serverStats collects per function call statistics in a go-metrics registry
type serverStats struct {
	registry gometrics.Registry
	unknown  gometrics.Counter
}

func newServerStats() *serverStats {
	registry := gometrics.NewRegistry()
	return &serverStats{
		registry: registry,
		unknown:  gometrics.GetOrRegisterCounter("unknown_functions", registry),
	}
}

// observe records one handled call
func (s *serverStats) observe(function string, start time.Time, err error) {
	gometrics.GetOrRegisterTimer(timerPrefix+function, s.registry).UpdateSince(start)
	if err != nil {
		gometrics.GetOrRegisterCounter(failurePrefix+function, s.registry).Inc(1)
	}
}

// FunctionStat is the statistic of one function as returned by the stats function
type FunctionStat struct {
	Calls    int64   `json:"calls"`
	Failures int64   `json:"failures"`
	MeanMs   float64 `json:"mean_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// Stats is the result of the built-in stats function
type Stats struct {
	UptimeSeconds    int64                   `json:"uptime_seconds"`
	UnknownFunctions int64                   `json:"unknown_functions"`
	Functions        map[string]FunctionStat `json:"functions"`
}

// snapshot reads the current values of all metrics
func (s *serverStats) snapshot(started time.Time) Stats {
	stats := Stats{
		UptimeSeconds:    int64(time.Since(started).Seconds()),
		UnknownFunctions: s.unknown.Count(),
		Functions:        make(map[string]FunctionStat),
	}

	s.registry.Each(func(name string, metric interface{}) {
		switch m := metric.(type) {
		case gometrics.Timer:
			function := strings.TrimPrefix(name, timerPrefix)
			t := m.Snapshot()
			fs := stats.Functions[function]
			fs.Calls = t.Count()
			fs.MeanMs = t.Mean() / float64(time.Millisecond)
			fs.P99Ms = t.Percentile(0.99) / float64(time.Millisecond)
			stats.Functions[function] = fs
		case gometrics.Counter:
			if !strings.HasPrefix(name, failurePrefix) {
				return
			}
			function := strings.TrimPrefix(name, failurePrefix)
			fs := stats.Functions[function]
			fs.Failures = m.Count()
			stats.Functions[function] = fs
		}
	})
	return stats
}

// encode returns the statistic as json
func (s Stats) encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeStats parses the result of the stats function
func DecodeStats(data []byte) (Stats, error) {
	var stats Stats
	err := json.Unmarshal(data, &stats)
	return stats, err
}

// FunctionNames returns the names of all functions with statistics, sorted
func (s Stats) FunctionNames() []string {
	names := make([]string, 0, len(s.Functions))
	for name := range s.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
