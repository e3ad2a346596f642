package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		relayTicksTotal,
		relayTickDuration,
		relayMessagesForwardedTotal,
		relayBindingFailuresTotal,
		relayCursorSeq,
		relayBindings,
	)
}

var (
	relayTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_ticks_total",
			Help: "Forward loop ticks, labeled by outcome.",
		},
		[]string{"result"}, // 'ok', 'partial', 'failed'
	)

	relayTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_tick_duration_seconds",
			Help:    "Wall time of one forward loop tick.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	relayMessagesForwardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_forwarded_total",
			Help: "Channel posts forwarded into groups, per source channel.",
		},
		[]string{"channel"},
	)

	relayBindingFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_binding_failures_total",
			Help: "Bindings skipped for a tick, labeled by failing stage.",
		},
		[]string{"stage"}, // 'fetch', 'forward', 'cursor'
	)

	relayCursorSeq = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_cursor_seq",
			Help: "Last forwarded sequence number per channel.",
		},
		[]string{"channel"},
	)

	relayBindings = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_bindings",
			Help: "Bindings seen by the last tick.",
		},
	)
)

func ObserveTick(result string, took time.Duration, bindings int) {
	relayTicksTotal.WithLabelValues(norm(result)).Inc()
	relayTickDuration.Observe(took.Seconds())
	relayBindings.Set(float64(bindings))
}

// IncTickSkipped counts ticks left to another replica holding the tick lock.
func IncTickSkipped() {
	relayTicksTotal.WithLabelValues("skipped").Inc()
}

func AddForwarded(channel string, n int) {
	relayMessagesForwardedTotal.WithLabelValues(norm(channel)).Add(float64(n))
}

func IncBindingFailure(stage string) {
	relayBindingFailuresTotal.WithLabelValues(norm(stage)).Inc()
}

func SetCursor(channel string, seq int64) {
	relayCursorSeq.WithLabelValues(norm(channel)).Set(float64(seq))
}
