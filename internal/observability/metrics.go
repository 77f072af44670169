package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "can2mqtt"

// Frame results.
const (
	ResultForwarded       = "forwarded"
	ResultUnmapped        = "unmapped"
	ResultConversionError = "conversion_error"
	ResultFiltered        = "filtered"
)

// Frame directions.
const (
	DirectionToBroker = "to_broker"
	DirectionToBus    = "to_bus"
)

var (
	registerOnce sync.Once

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames and messages handled by the bridge, by direction and result.",
		},
		[]string{"direction", "result"},
	)
	brokerOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_ops_total",
			Help:      "Broker subscribe, unsubscribe and publish calls by result.",
		},
		[]string{"op", "result"},
	)
	reloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Route file reload attempts by result.",
		},
		[]string{"result"},
	)
	routeEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "route_entries",
			Help:      "Routes in the last adopted generation.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesTotal, brokerOps, reloadsTotal, routeEntries, httpRequests, httpDuration)
	})
}

func RecordFrame(direction, result string) {
	RegisterMetrics()
	framesTotal.WithLabelValues(direction, result).Inc()
}

func RecordBrokerOp(op string, err error) {
	RegisterMetrics()
	brokerOps.WithLabelValues(op, resultLabel(err)).Inc()
}

// RecordReload counts one reload attempt; entries is only applied on success.
func RecordReload(err error, entries int) {
	RegisterMetrics()
	reloadsTotal.WithLabelValues(resultLabel(err)).Inc()
	if err == nil {
		routeEntries.Set(float64(entries))
	}
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
