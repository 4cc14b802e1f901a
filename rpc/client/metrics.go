package client

import (
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"io"
	"time"
)

// clientMetrics holds the metrics of one client. Every client owns its own set, so several
// clients in one process (e.g. a wrapper dial inside the main instance) never collide.
type clientMetrics struct {
	set          *metrics.Set
	calls        *metrics.Counter
	failures     *metrics.Counter
	sendFailures *metrics.Counter
	abandoned    *metrics.Counter
	unmatched    *metrics.Counter
	reconnects   *metrics.Counter
	latency      *metrics.Histogram
}

func newClientMetrics(variant string, pending func() float64) *clientMetrics {
	set := metrics.NewSet()
	name := func(metric string) string {
		return fmt.Sprintf(`dipc_client_%s{variant=%q}`, metric, variant)
	}

	set.NewGauge(name("pending_calls"), pending)

	return &clientMetrics{
		set:          set,
		calls:        set.NewCounter(name("calls_total")),
		failures:     set.NewCounter(name("remote_failures_total")),
		sendFailures: set.NewCounter(name("send_failures_total")),
		abandoned:    set.NewCounter(name("abandoned_calls_total")),
		unmatched:    set.NewCounter(name("unmatched_responses_total")),
		reconnects:   set.NewCounter(name("reconnects_total")),
		latency:      set.NewHistogram(name("call_duration_seconds")),
	}
}

// observe records the outcome of a completed call
func (m *clientMetrics) observe(start time.Time, err error) {
	m.latency.Update(time.Since(start).Seconds())
	if err != nil {
		m.failures.Inc()
	}
}

// WritePrometheus writes the client metrics in Prometheus text format to w
func (c *Client) WritePrometheus(w io.Writer) {
	c.metrics.set.WritePrometheus(w)
}
