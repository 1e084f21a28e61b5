package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics of the service. Each collector owns
// its registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	AnswerChanges     prometheus.Counter
	VisibilityChanges prometheus.Counter
	AnswersCleared    prometheus.Counter
	CleanupFailures   prometheus.Counter

	Verifications *prometheus.CounterVec
	Submissions   *prometheus.CounterVec
	Collaborator  *prometheus.HistogramVec

	DefinitionCache *prometheus.CounterVec
}

// NewCollector creates and registers every metric under namespace
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		AnswerChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answer_changes_total",
			Help:      "Answer edits processed by the skip-logic controller",
		}),
		VisibilityChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visibility_changes_total",
			Help:      "Edits that changed the visible question set",
		}),
		AnswersCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_cleared_total",
			Help:      "Answers wiped because their question became hidden",
		}),
		CleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answer_cleanup_failures_total",
			Help:      "Hidden-answer cleanups the store rejected",
		}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Verification requests by outcome",
		}, []string{"result"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Submissions by outcome",
		}, []string{"status"}),
		Collaborator: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collaborator_request_duration_seconds",
			Help:      "Latency of calls to verification and submission services",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collaborator", "outcome"}),
		DefinitionCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "definition_cache_total",
			Help:      "Survey definition cache lookups",
		}, []string{"result"}),
	}

	c.registry.MustRegister(
		c.HTTPRequests, c.HTTPDuration,
		c.AnswerChanges, c.VisibilityChanges, c.AnswersCleared, c.CleanupFailures,
		c.Verifications, c.Submissions, c.Collaborator, c.DefinitionCache,
	)
	return c
}

// Handler exposes the registry for scraping
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveCollaborator records one outbound call
func (c *Collector) ObserveCollaborator(name string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.Collaborator.WithLabelValues(name, outcome).Observe(time.Since(start).Seconds())
}
