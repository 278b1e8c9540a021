// Package metrics provides Prometheus instrumentation of a camera adapter.
// Every recording method is safe to call on a nil *Camera
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Capture modes used as label values
const (
	ModeSnap   = "snap"
	ModeStream = "stream"
)

// Camera contains the Prometheus metrics of one camera
type Camera struct {
	framesTotal  *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	trashTotal   prometheus.Counter
	resyncsTotal *prometheus.CounterVec
	streaming    prometheus.Gauge
	snapDuration prometheus.Histogram
}

// NewCamera creates the metrics of a camera and registers them.  The
// camera label distinguishes several adapters in one process
func NewCamera(registry prometheus.Registerer, camera string) (*Camera, error) {
	m := &Camera{}
	m.initMetrics(prometheus.Labels{"camera": camera})
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Camera) initMetrics(constLabels prometheus.Labels) {
	m.framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "camera_frames_total",
			Help:        "Total number of frames delivered",
			ConstLabels: constLabels,
		},
		[]string{"mode"}, // mode: snap, stream
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "camera_capture_errors_total",
			Help:        "Total number of failed captures",
			ConstLabels: constLabels,
		},
		[]string{"mode", "error_type"},
	)

	m.trashTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "camera_trash_frames_total",
			Help:        "Total number of frames that landed in the trash buffer",
			ConstLabels: constLabels,
		},
	)

	m.resyncsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "camera_resource_rebuilds_total",
			Help:        "Total number of acquisition resource rebuilds",
			ConstLabels: constLabels,
		},
		[]string{"status"}, // status: success, error
	)

	m.streaming = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "camera_streaming",
			Help:        "1 while a frame sequence is running",
			ConstLabels: constLabels,
		},
	)

	m.snapDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "camera_snap_duration_seconds",
			Help:        "Time from snap request to frame arrival",
			ConstLabels: constLabels,
			// 1ms to ~16s covers short exposures up to the snap timeout
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
	)
}

// Describe implements the Collector interface
func (m *Camera) Describe(ch chan<- *prometheus.Desc) {
	m.framesTotal.Describe(ch)
	m.errorsTotal.Describe(ch)
	m.trashTotal.Describe(ch)
	m.resyncsTotal.Describe(ch)
	m.streaming.Describe(ch)
	m.snapDuration.Describe(ch)
}

// Collect implements the Collector interface
func (m *Camera) Collect(ch chan<- prometheus.Metric) {
	m.framesTotal.Collect(ch)
	m.errorsTotal.Collect(ch)
	m.trashTotal.Collect(ch)
	m.resyncsTotal.Collect(ch)
	m.streaming.Collect(ch)
	m.snapDuration.Collect(ch)
}

// RecordFrame counts a delivered frame
func (m *Camera) RecordFrame(mode string) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(mode).Inc()
}

// RecordSnap observes the duration of a successful snap
func (m *Camera) RecordSnap(d time.Duration) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(ModeSnap).Inc()
	m.snapDuration.Observe(d.Seconds())
}

// RecordError counts a failed capture
func (m *Camera) RecordError(mode, errorType string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(mode, errorType).Inc()
}

// RecordTrash counts a frame dropped into the trash buffer
func (m *Camera) RecordTrash() {
	if m == nil {
		return
	}
	m.trashTotal.Inc()
}

// RecordRebuild counts a resource rebuild
func (m *Camera) RecordRebuild(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.resyncsTotal.WithLabelValues(status).Inc()
}

// SetStreaming updates the streaming gauge
func (m *Camera) SetStreaming(on bool) {
	if m == nil {
		return
	}
	if on {
		m.streaming.Set(1)
	} else {
		m.streaming.Set(0)
	}
}
