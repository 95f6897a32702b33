package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Registry holds every collector exported on the metrics listener.
var Registry = prometheus.NewRegistry()

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_http_requests_total",
			Help: "Requests served by the task list server, by method and status.",
		},
		[]string{"method", "status"},
	)

	requestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "todo_http_request_duration_seconds",
			Help:    "Time from accept to connection close.",
			Buckets: prometheus.DefBuckets,
		},
	)

	readFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "todo_http_read_failures_total",
			Help: "Connections dropped because the request could not be read.",
		},
	)

	tasksGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "todo_tasks",
			Help: "Number of tasks currently loaded.",
		},
	)

	remindersSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_reminders_total",
			Help: "Reminder notifications by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		requestsTotal,
		requestDuration,
		readFailures,
		tasksGauge,
		remindersSent,
	)
}

// knownMethods bounds the method label; the request line is client input.
var knownMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true,
	"DELETE": true, "PATCH": true, "OPTIONS": true,
}

func methodLabel(method string) string {
	switch {
	case method == "":
		return "none"
	case knownMethods[method]:
		return method
	default:
		return "other"
	}
}

// ObserveRequest records one served request.
func ObserveRequest(method string, status int, d time.Duration) {
	requestsTotal.WithLabelValues(methodLabel(method), strconv.Itoa(status)).Inc()
	requestDuration.Observe(d.Seconds())
}

// ObserveReadFailure records a connection dropped on a read error.
func ObserveReadFailure() { readFailures.Inc() }

// SetTasks records the size of the task list after a load.
func SetTasks(n int) { tasksGauge.Set(float64(n)) }

// ObserveReminder records a reminder outcome: "sent", "failed" or "limited".
func ObserveReminder(outcome string) { remindersSent.WithLabelValues(outcome).Inc() }

// Handler exposes Registry in the Prometheus text format as a fasthttp handler.
func Handler() fasthttp.RequestHandler {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return fasthttpadaptor.NewFastHTTPHandler(h)
}
