package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recorder = (&prometheusRecorder{}).init(prometheus.DefaultRegisterer)
)

type prometheusRecorder struct {
	scanCounter       *prometheus.CounterVec
	scanDuration      prometheus.Histogram
	scansRunning      prometheus.Gauge
	findingCounter    *prometheus.CounterVec
	inventoryWarnings prometheus.Counter
}

func (in *prometheusRecorder) ScanStarted() {
	in.scansRunning.Inc()
}

func (in *prometheusRecorder) ScanFinished(status string, duration time.Duration) {
	in.scansRunning.Dec()
	in.scanCounter.WithLabelValues(status).Inc()
	in.scanDuration.Observe(duration.Seconds())
}

func (in *prometheusRecorder) FindingEvaluated(controlID, status string) {
	in.findingCounter.WithLabelValues(controlID, status).Inc()
}

func (in *prometheusRecorder) InventoryWarnings(count int) {
	if count <= 0 {
		return
	}
	in.inventoryWarnings.Add(float64(count))
}

func (in *prometheusRecorder) init(reg prometheus.Registerer) Recorder {
	factory := promauto.With(reg)

	in.scanCounter = factory.NewCounterVec(prometheus.CounterOpts{
		Name: ScanCompletedMetricName,
		Help: ScanCompletedMetricDescription,
	}, []string{ScanMetricLabelStatus})

	in.scanDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    ScanDurationMetricName,
		Help:    ScanDurationMetricDescription,
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	in.scansRunning = factory.NewGauge(prometheus.GaugeOpts{
		Name: ScansRunningMetricName,
		Help: ScansRunningMetricDescription,
	})

	in.findingCounter = factory.NewCounterVec(prometheus.CounterOpts{
		Name: FindingEvaluatedMetricName,
		Help: FindingEvaluatedMetricDescription,
	}, []string{FindingMetricLabelControlID, FindingMetricLabelStatus})

	in.inventoryWarnings = factory.NewCounter(prometheus.CounterOpts{
		Name: InventoryWarningMetricName,
		Help: InventoryWarningMetricDescription,
	})

	return in
}

// NewRecorder registers a fresh set of collectors on reg.
func NewRecorder(reg prometheus.Registerer) Recorder {
	return (&prometheusRecorder{}).init(reg)
}

func Record() Recorder {
	return recorder
}
