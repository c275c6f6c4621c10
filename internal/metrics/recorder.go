package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes stream counters on a Prometheus registerer. It satisfies
// processor.Observer.
type Recorder struct {
	consumed   *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	emitted    *prometheus.CounterVec
	mirrorFail *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		consumed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stream_events_consumed_total",
			Help: "Input records read from a source topic.",
		}, []string{"source"}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stream_events_dropped_total",
			Help: "Input records dropped without output, by reason.",
		}, []string{"source", "reason"}),
		emitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stream_predictions_emitted_total",
			Help: "Predictions published to the output topic.",
		}, []string{"source", "alert_level"}),
		mirrorFail: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stream_mirror_failures_total",
			Help: "Best-effort mirror writes that failed.",
		}, []string{"mirror"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stream_processing_seconds",
			Help:    "Time spent handling one input record, publish included.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"source"}),
	}
}

func (r *Recorder) Consumed(source string) {
	r.consumed.WithLabelValues(source).Inc()
}

func (r *Recorder) Dropped(source, reason string) {
	r.dropped.WithLabelValues(source, reason).Inc()
}

func (r *Recorder) Emitted(source, level string) {
	r.emitted.WithLabelValues(source, level).Inc()
}

func (r *Recorder) Processed(source string, d time.Duration) {
	r.latency.WithLabelValues(source).Observe(d.Seconds())
}

func (r *Recorder) MirrorFailed(mirror string) {
	r.mirrorFail.WithLabelValues(mirror).Inc()
}
