// Package metrics provides Prometheus metrics for camera measuring sessions.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smazurov/camspeed/internal/events"
)

var (
	cameraFPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camspeed",
		Subsystem: "camera",
		Name:      "fps",
		Help:      "Frames counted in the last complete interval, per second",
	}, []string{"serial"})

	cameraFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camspeed",
		Subsystem: "camera",
		Name:      "frames_total",
		Help:      "Total frames acquired",
	}, []string{"serial"})

	cameraReports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camspeed",
		Subsystem: "camera",
		Name:      "reports_total",
		Help:      "Total interval reports emitted",
	}, []string{"serial"})

	cameraAcquisitionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camspeed",
		Subsystem: "camera",
		Name:      "acquisition_errors_total",
		Help:      "Total fatal acquisition errors",
	}, []string{"serial"})

	cameraIncompleteFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camspeed",
		Subsystem: "camera",
		Name:      "incomplete_frames_total",
		Help:      "Total frames delivered incomplete",
	}, []string{"serial"})

	sessionStreaming = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camspeed",
		Subsystem: "session",
		Name:      "streaming",
		Help:      "1 while the camera is acquiring",
	}, []string{"serial"})

	// Local cache for the status API.
	cameraCache   = make(map[string]*CameraMetrics)
	cameraCacheMu sync.RWMutex
)

// CameraMetrics holds current metric values for a camera.
type CameraMetrics struct {
	FPS               float64
	Frames            uint64
	Reports           uint64
	AcquisitionErrors uint64
	IncompleteFrames  uint64
	Streaming         bool
}

// FrameCounter returns the frame counter of serial so the acquisition loop
// can skip the label lookup per frame.
func FrameCounter(serial string) *FrameTally {
	return &FrameTally{serial: serial, counter: cameraFrames.WithLabelValues(serial)}
}

// FrameTally counts frames for one camera.
type FrameTally struct {
	serial  string
	counter prometheus.Counter
}

// Inc records one acquired frame.
func (f *FrameTally) Inc() {
	f.counter.Inc()
	updateCache(f.serial, func(m *CameraMetrics) { m.Frames++ })
}

// IncIncomplete records one incomplete frame.
func (f *FrameTally) IncIncomplete() {
	cameraIncompleteFrames.WithLabelValues(f.serial).Inc()
	updateCache(f.serial, func(m *CameraMetrics) { m.IncompleteFrames++ })
}

// ObserveReport records an interval report.
func ObserveReport(serial string, fps float64) {
	cameraFPS.WithLabelValues(serial).Set(fps)
	cameraReports.WithLabelValues(serial).Inc()
	updateCache(serial, func(m *CameraMetrics) {
		m.FPS = fps
		m.Reports++
	})
}

// IncAcquisitionErrors records a fatal acquisition error.
func IncAcquisitionErrors(serial string) {
	cameraAcquisitionErrors.WithLabelValues(serial).Inc()
	updateCache(serial, func(m *CameraMetrics) { m.AcquisitionErrors++ })
}

// SetStreaming marks whether serial is acquiring.
func SetStreaming(serial string, streaming bool) {
	v := 0.0
	if streaming {
		v = 1
	}
	sessionStreaming.WithLabelValues(serial).Set(v)
	updateCache(serial, func(m *CameraMetrics) { m.Streaming = streaming })
}

// DeleteCameraMetrics removes all metrics for a camera.
func DeleteCameraMetrics(serial string) {
	cameraFPS.DeleteLabelValues(serial)
	cameraFrames.DeleteLabelValues(serial)
	cameraReports.DeleteLabelValues(serial)
	cameraAcquisitionErrors.DeleteLabelValues(serial)
	cameraIncompleteFrames.DeleteLabelValues(serial)
	sessionStreaming.DeleteLabelValues(serial)

	cameraCacheMu.Lock()
	delete(cameraCache, serial)
	cameraCacheMu.Unlock()
}

// GetCameraMetrics returns a copy of the cached metrics for a camera.
func GetCameraMetrics(serial string) *CameraMetrics {
	cameraCacheMu.RLock()
	defer cameraCacheMu.RUnlock()
	if m, ok := cameraCache[serial]; ok {
		c := *m
		return &c
	}
	return nil
}

func updateCache(serial string, fn func(*CameraMetrics)) {
	cameraCacheMu.Lock()
	defer cameraCacheMu.Unlock()
	m, ok := cameraCache[serial]
	if !ok {
		m = &CameraMetrics{}
		cameraCache[serial] = m
	}
	fn(m)
}

// Attach feeds report and session state events of bus into the metrics.
func Attach(bus *events.Bus) func() {
	unsubReport := events.Subscribe(bus, func(e events.ReportEvent) {
		ObserveReport(e.Serial, e.FPS)
	})
	unsubState := events.Subscribe(bus, func(e events.SessionStateEvent) {
		if e.Serial == "" {
			return
		}
		switch e.State {
		case events.StateStreaming:
			SetStreaming(e.Serial, true)
		case events.StateStopped, events.StateFailed:
			SetStreaming(e.Serial, false)
		}
	})
	return func() {
		unsubReport()
		unsubState()
	}
}

// HTTPHandler returns the Prometheus metrics HTTP handler.
func HTTPHandler() http.Handler {
	return promhttp.Handler()
}
