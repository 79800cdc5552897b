package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fleetdesk"

type collectors struct {
	moveTotal     *prometheus.CounterVec
	commitLatency *prometheus.HistogramVec

	presetTotal  *prometheus.CounterVec
	refetchTotal *prometheus.CounterVec
	uploadTotal  *prometheus.CounterVec

	openBoards prometheus.Gauge
}

var singleton = sync.OnceValue(func() *collectors {
	return &collectors{
		moveTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "move_total",
			Help:      "Drag-and-drop moves by outcome.",
		}, []string{"outcome"}),
		commitLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "commit_latency_seconds",
			Help:      "Latency of driver assignment commits.",
			Buckets: []float64{
				0.005, 0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5,
			},
		}, []string{"result"}),
		presetTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presets",
			Name:      "operations_total",
			Help:      "Filter preset saves and applies.",
		}, []string{"operation"}),
		refetchTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "querycache",
			Name:      "refetch_total",
			Help:      "Snapshot refetches by result.",
		}, []string{"result"}),
		uploadTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "upload_total",
			Help:      "Stored uploads by kind and result.",
		}, []string{"kind", "result"}),
		openBoards: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "open_boards",
			Help:      "Dispatch boards currently open.",
		}),
	}
})

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func MoveOutcome(outcome string) {
	singleton().moveTotal.WithLabelValues(outcome).Inc()
}

// ObserveCommit records one assignment commit that started at start.
func ObserveCommit(start time.Time, err error) {
	singleton().commitLatency.WithLabelValues(result(err)).Observe(time.Since(start).Seconds())
}

func PresetSaved() {
	singleton().presetTotal.WithLabelValues("save").Inc()
}

func PresetApplied() {
	singleton().presetTotal.WithLabelValues("apply").Inc()
}

func Refetch(err error) {
	singleton().refetchTotal.WithLabelValues(result(err)).Inc()
}

func UploadStored(kind string, err error) {
	singleton().uploadTotal.WithLabelValues(kind, result(err)).Inc()
}

func SetOpenBoards(n int) {
	singleton().openBoards.Set(float64(n))
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
