package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "callboard_"

var (
	registerOnce sync.Once

	callsTotal         *prometheus.CounterVec
	callLatency        prometheus.Histogram
	broadcastsTotal    *prometheus.CounterVec
	subscribers        prometheus.Gauge
	droppedTotal       prometheus.Counter
	registrationsTotal *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpLatency        *prometheus.HistogramVec
)

// Init registers all metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		callsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "calls_total",
				Help: "Committed ticket calls by origin",
			},
			[]string{"origin"},
		)
		callLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "call_commit_seconds",
				Help:    "Call commit latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		)
		broadcastsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "broadcast_events_total",
				Help: "Events fanned out to subscribers by event name",
			},
			[]string{"event"},
		)
		subscribers = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "stream_subscribers",
				Help: "Currently connected stream subscribers",
			},
		)
		droppedTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "stream_dropped_subscribers_total",
				Help: "Subscribers dropped by the slow-consumer policy",
			},
		)
		registrationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "device_registrations_total",
				Help: "Device registration attempts by result",
			},
			[]string{"result"},
		)
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by method and status",
			},
			[]string{"method", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_latency_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		)

		prometheus.MustRegister(
			callsTotal,
			callLatency,
			broadcastsTotal,
			subscribers,
			droppedTotal,
			registrationsTotal,
			httpRequests,
			httpLatency,
		)
	})
}

// IncCall counts one committed call. Origin is "console" or "button".
func IncCall(origin string) {
	if callsTotal != nil {
		callsTotal.WithLabelValues(origin).Inc()
	}
}

// ObserveCallCommit records one call commit duration.
func ObserveCallCommit(d time.Duration) {
	if callLatency != nil {
		callLatency.Observe(d.Seconds())
	}
}

// IncBroadcast counts one fan-out by event name.
func IncBroadcast(event string) {
	if broadcastsTotal != nil {
		broadcastsTotal.WithLabelValues(event).Inc()
	}
}

// SetSubscribers records the current subscriber count.
func SetSubscribers(count int) {
	if subscribers != nil {
		subscribers.Set(float64(count))
	}
}

// IncDroppedSubscriber counts one slow-consumer drop.
func IncDroppedSubscriber() {
	if droppedTotal != nil {
		droppedTotal.Inc()
	}
}

// IncRegistration counts one registration attempt by result.
func IncRegistration(result string) {
	if registrationsTotal != nil {
		registrationsTotal.WithLabelValues(result).Inc()
	}
}

// ObserveHTTP records one served HTTP request.
func ObserveHTTP(method, status string, d time.Duration) {
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, status).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method).Observe(d.Seconds())
	}
}
