package metrics

import (
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the process-wide collectors of the resource pipeline.
type Metrics struct {
	CreateAttempts *prometheus.CounterVec
	CreateChunks   *prometheus.CounterVec
	RowStatuses    *prometheus.CounterVec
	Jobs           *prometheus.CounterVec
	JobDuration    *prometheus.HistogramVec
	Emits          *prometheus.CounterVec
}

var singleton = sync.OnceValue(func() *Metrics {
	return &Metrics{
		CreateAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "project_factory",
			Name:      "create_attempts_total",
			Help:      "Total number of bulk create requests, including retries.",
		}, []string{"type", "result"}),
		CreateChunks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "project_factory",
			Name:      "create_chunks_total",
			Help:      "Total number of bulk create chunks by final outcome.",
		}, []string{"type", "result"}),
		RowStatuses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "project_factory",
			Name:      "row_status_total",
			Help:      "Row statuses produced by validation and reconciliation.",
		}, []string{"type", "status"}),
		Jobs: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "project_factory",
			Name:      "jobs_total",
			Help:      "Resource jobs by terminal status.",
		}, []string{"type", "action", "status"}),
		JobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "project_factory",
			Name:      "job_duration_seconds",
			Help:      "Wall time from acceptance to terminal status.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}, []string{"type", "status"}),
		Emits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "project_factory",
			Name:      "emit_total",
			Help:      "Event emissions by topic and result.",
		}, []string{"topic", "result"}),
	}
})

// Get returns the shared collectors.
func Get() *Metrics {
	return singleton()
}

// Register mounts the scrape endpoint on r.
func Register(r *mux.Router, path string) {
	if path == "" {
		path = "/metrics"
	}
	r.Handle(path, promhttp.Handler()).Methods(http.MethodGet)
}

// ResultUndelivered labels an emission queued but never acknowledged.
const ResultUndelivered = "undelivered"

// Result labels an outcome.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
