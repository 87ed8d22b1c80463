package status

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lsiudut/yaffmpegp/lib/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// workerJSON is the wire shape for the optional /status endpoint: a JSON
// projection of worker.Telemetry for operators who'd rather curl than
// scrape stdout.
type workerJSON struct {
	Host           string   `json:"host"`
	Status         string   `json:"status"`
	Send           string   `json:"send_status"`
	Transcode      string   `json:"transcode_status"`
	Fetch          string   `json:"fetch_status"`
	Stale          bool     `json:"stale"`
	FPS            float64  `json:"fps"`
	TranscodeTime  string   `json:"transcode_time"`
	ProcessedCount int      `json:"processed_count"`
	RetryCount     int      `json:"retry_count"`
	ProducedPaths  []string `json:"produced_paths"`
}

func toJSON(t *worker.Telemetry) workerJSON {
	return workerJSON{
		Host:           t.Host.Endpoint,
		Status:         string(t.Status),
		Send:           string(t.Send.State),
		Transcode:      string(t.Transcode.State),
		Fetch:          string(t.Fetch.State),
		Stale:          t.Stale,
		FPS:            t.FPS,
		TranscodeTime:  t.TranscodeTime,
		ProcessedCount: t.ProcessedCount,
		RetryCount:     t.RetryCount,
		ProducedPaths:  t.ProducedPaths,
	}
}

// Metrics holds the Prometheus collectors the HTTP surface publishes.
// Registered against a private Registry so tests (and multiple Reporters
// in one process) don't collide on prometheus's default global registry.
type Metrics struct {
	registry       *prometheus.Registry
	fps            *prometheus.GaugeVec
	processedCount *prometheus.GaugeVec
	retryCount     *prometheus.GaugeVec
	stale          *prometheus.GaugeVec
}

// NewMetrics constructs a Metrics with its own private Registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		fps: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "yaffmpegp_worker_fps",
			Help: "Last observed transcoder frames/sec for this worker.",
		}, []string{"host"}),
		processedCount: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "yaffmpegp_worker_processed_segments_total",
			Help: "Segments this worker has fully processed.",
		}, []string{"host"}),
		retryCount: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "yaffmpegp_worker_retry_count",
			Help: "Upload retries this worker has performed.",
		}, []string{"host"}),
		stale: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "yaffmpegp_worker_stale",
			Help: "1 if this worker's active stage has made no progress recently.",
		}, []string{"host"}),
	}
}

// Update refreshes every gauge from a fresh telemetry snapshot.
func (m *Metrics) Update(snaps []*worker.Telemetry) {
	for _, t := range snaps {
		host := t.Host.Endpoint
		m.fps.WithLabelValues(host).Set(t.FPS)
		m.processedCount.WithLabelValues(host).Set(float64(t.ProcessedCount))
		m.retryCount.WithLabelValues(host).Set(float64(t.RetryCount))
		stale := 0.0
		if t.Stale {
			stale = 1
		}
		m.stale.WithLabelValues(host).Set(stale)
	}
}

// NewHTTPHandler builds the optional operator-facing HTTP surface: GET
// /status (JSON telemetry) and GET /metrics (Prometheus, if metrics is
// non-nil). Both are additive to the spec §6.3 stdout telemetry, not a
// replacement for it.
func NewHTTPHandler(source Source, metrics *Metrics) http.Handler {
	r := chi.NewRouter()
	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		snaps := source()
		out := make([]workerJSON, len(snaps))
		for i, t := range snaps {
			out[i] = toJSON(t)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})
	if metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{}))
	}
	return r
}
