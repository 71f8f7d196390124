// Package metrics exposes the Prometheus collectors of the service. One
// Registry implements the metric hooks of the query and command handlers,
// the event bus, the scheduler and the HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bolao"

// Registry owns a private prometheus.Registry and the service collectors.
type Registry struct {
	reg *prometheus.Registry

	queries      *prometheus.CounterVec
	queryLatency *prometheus.HistogramVec
	cache        *prometheus.CounterVec

	commands       *prometheus.CounterVec
	commandLatency *prometheus.HistogramVec

	published      *prometheus.CounterVec
	handled        *prometheus.CounterVec
	handlerLatency *prometheus.HistogramVec

	jobs       *prometheus.CounterVec
	jobLatency *prometheus.HistogramVec

	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// NewRegistry creates the registry with Go runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "runs_total",
			Help: "Read-side view computations by view and outcome.",
		}, []string{"view", "outcome"}),
		queryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "duration_seconds",
			Help:    "Load plus compute time of a view.",
			Buckets: prometheus.DefBuckets,
		}, []string{"view"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "standings_cache", Name: "lookups_total",
			Help: "Standings cache lookups by result.",
		}, []string{"result"}),

		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "commands", Name: "total",
			Help: "Write commands by name and outcome.",
		}, []string{"command", "outcome"}),
		commandLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "commands", Name: "duration_seconds",
			Help:    "Write command latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),

		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "events", Name: "published_total",
			Help: "Events published on the bus.",
		}, []string{"event_type"}),
		handled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "events", Name: "handled_total",
			Help: "Event deliveries by outcome.",
		}, []string{"event_type", "outcome"}),
		handlerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "events", Name: "handler_duration_seconds",
			Help:    "Event handler latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"event_type"}),

		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "jobs", Name: "runs_total",
			Help: "Scheduled job runs by outcome.",
		}, []string{"job", "outcome"}),
		jobLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "jobs", Name: "duration_seconds",
			Help:    "Scheduled job duration.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"job"}),

		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.queries, r.queryLatency, r.cache,
		r.commands, r.commandLatency,
		r.published, r.handled, r.handlerLatency,
		r.jobs, r.jobLatency,
		r.requests, r.requestLatency,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer returns the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveQuery implements query.Metrics.
func (r *Registry) ObserveQuery(name string, d time.Duration, err error) {
	r.queries.WithLabelValues(name, outcome(err)).Inc()
	r.queryLatency.WithLabelValues(name).Observe(d.Seconds())
}

// ObserveCache implements query.Metrics.
func (r *Registry) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(result).Inc()
}

// ObserveCommand implements command.Metrics.
func (r *Registry) ObserveCommand(name string, d time.Duration, err error) {
	r.commands.WithLabelValues(name, outcome(err)).Inc()
	r.commandLatency.WithLabelValues(name).Observe(d.Seconds())
}

// ObservePublish implements messaging.Metrics.
func (r *Registry) ObservePublish(eventType string) {
	r.published.WithLabelValues(eventType).Inc()
}

// ObserveHandler implements messaging.Metrics.
func (r *Registry) ObserveHandler(eventType string, d time.Duration, err error) {
	r.handled.WithLabelValues(eventType, outcome(err)).Inc()
	r.handlerLatency.WithLabelValues(eventType).Observe(d.Seconds())
}

// ObserveJob implements scheduler.Metrics.
func (r *Registry) ObserveJob(name string, d time.Duration, err error) {
	r.jobs.WithLabelValues(name, outcome(err)).Inc()
	r.jobLatency.WithLabelValues(name).Observe(d.Seconds())
}

// ObserveHTTP records one served request. route is the chi route pattern,
// never the raw path, to keep label cardinality bounded.
func (r *Registry) ObserveHTTP(method, route string, status int, d time.Duration) {
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.requestLatency.WithLabelValues(method, route).Observe(d.Seconds())
}
