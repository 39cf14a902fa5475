package api

import (
	"sync"
	"time"

	"github.com/smazurov/camspeed/internal/api/models"
	"github.com/smazurov/camspeed/internal/camera"
	"github.com/smazurov/camspeed/internal/events"
	"github.com/smazurov/camspeed/internal/metrics"
)

// StateIdle is reported before any session started.
const StateIdle = "idle"

// Status tracks the measuring session from bus events.
type Status struct {
	mu   sync.RWMutex
	data models.StatusData

	// device and set belong to deviceSession, which may be ahead of
	// data.SessionID because bus delivery is asynchronous.
	deviceSession string
	device        *camera.DeviceInfo
	set           *camera.Settings
}

// NewStatus returns an idle status.
func NewStatus() *Status {
	return &Status{data: models.StatusData{State: StateIdle, Since: time.Now()}}
}

// Attach follows the session, report and settings events of bus.
func (s *Status) Attach(bus *events.Bus) func() {
	unsubs := []func(){
		events.Subscribe(bus, s.onState),
		events.Subscribe(bus, s.onReport),
		events.Subscribe(bus, s.onSettings),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// SetDevice records what session sessionID read back from the camera.
func (s *Status) SetDevice(sessionID string, info camera.DeviceInfo, settings camera.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceSession = sessionID
	s.device = &info
	s.set = &settings
}

func (s *Status) onState(e events.SessionStateEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.follow(e.SessionID)
	if e.Serial != "" {
		s.data.Serial = e.Serial
	}
	s.data.State = e.State
	s.data.Error = e.Error
	s.data.Since = e.Timestamp
}

func (s *Status) onReport(e events.ReportEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.follow(e.SessionID)
	s.data.LastReport = &models.ReportData{
		Seq:        e.Seq,
		Frames:     e.Frames,
		FPS:        e.FPS,
		IntervalMs: e.Interval.Milliseconds(),
		Timestamp:  e.Timestamp,
	}
}

func (s *Status) onSettings(e events.SettingsAppliedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.follow(e.SessionID)
	s.data.SettingsError = e.Error
	if e.Live && e.Error == "" {
		s.data.LiveReloads++
	}
}

// follow resets the status when events of another session arrive.
// Event types are delivered independently, so any of them may be first.
// Callers hold mu.
func (s *Status) follow(sessionID string) {
	if sessionID != s.data.SessionID {
		s.data = models.StatusData{SessionID: sessionID, State: events.StateStarting, Since: time.Now()}
	}
}

// Snapshot returns a copy of the current status.
func (s *Status) Snapshot() models.StatusData {
	s.mu.RLock()
	data := s.data
	if s.device != nil && s.deviceSession == data.SessionID {
		info := *s.device
		data.Device = &info
	}
	if s.set != nil {
		set := *s.set
		data.Settings = &set
	}
	if data.LastReport != nil {
		r := *data.LastReport
		data.LastReport = &r
	}
	s.mu.RUnlock()

	if data.Serial != "" {
		if m := metrics.GetCameraMetrics(data.Serial); m != nil {
			data.Counters = &models.CountersData{
				Frames:            m.Frames,
				Reports:           m.Reports,
				IncompleteFrames:  m.IncompleteFrames,
				AcquisitionErrors: m.AcquisitionErrors,
			}
		}
	}
	return data
}
