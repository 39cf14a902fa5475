// Package session runs one frame rate measurement against a camera.
//
// Run acquires the SDK system and the selected camera, applies settings,
// prints the device blocks and then polls NextImage until the context is
// cancelled or acquisition fails. Every acquired resource is released on
// every exit path.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/smazurov/camspeed/internal/camera"
	"github.com/smazurov/camspeed/internal/events"
	"github.com/smazurov/camspeed/internal/fps"
	"github.com/smazurov/camspeed/internal/logging"
	"github.com/smazurov/camspeed/internal/metrics"
)

// Options configures a session.
type Options struct {
	Driver       string
	DriverParams map[string]string
	// Open overrides camera.Open(Driver, DriverParams).
	Open func() (camera.System, error)

	Serial   string // empty selects the first camera
	Settings camera.Settings

	Reporter fps.Reporter
	Interval time.Duration
	Policy   fps.Policy
	Now      func() time.Time

	Output io.Writer // device blocks and headers, io.Discard when nil
	Logger logging.Logger
	Bus    *events.Bus

	// OnStart is called once acquisition has begun.
	OnStart func(Started)
}

// Started describes a session that began streaming.
type Started struct {
	SessionID string
	Info      camera.DeviceInfo
	Settings  camera.Settings
}

// Session is a single measurement run.
type Session struct {
	opts   Options
	id     string
	serial string
	live   chan camera.Settings
	logger logging.Logger
}

// New creates a session with a fresh ID.
func New(opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetLogger("session")
	}
	if opts.Open == nil {
		driver, params := opts.Driver, opts.DriverParams
		opts.Open = func() (camera.System, error) { return camera.Open(driver, params) }
	}
	return &Session{
		opts:   opts,
		id:     uuid.NewString(),
		live:   make(chan camera.Settings, 1),
		logger: opts.Logger,
	}
}

// Run is shorthand for New(opts).Run(ctx).
func Run(ctx context.Context, opts Options) error {
	return New(opts).Run(ctx)
}

// ID returns the session ID carried by published events.
func (s *Session) ID() string { return s.id }

// UpdateLive queues live settings for the acquisition loop. Only the latest
// pending update is kept.
func (s *Session) UpdateLive(settings camera.Settings) {
	for {
		select {
		case s.live <- settings.Live():
			return
		default:
		}
		select {
		case <-s.live:
		default:
		}
	}
}

// Run measures until ctx is cancelled, returning nil, or until acquisition
// fails.
func (s *Session) Run(ctx context.Context) (err error) {
	s.publishState(events.StateStarting, nil)
	defer func() {
		if err != nil {
			s.publishState(events.StateFailed, err)
			return
		}
		s.publishState(events.StateStopped, nil)
	}()

	return withCamera(s.opts.Open, s.opts.Serial, func(cam camera.Camera) error {
		return s.stream(ctx, cam)
	})
}

func (s *Session) stream(ctx context.Context, cam camera.Camera) (err error) {
	nm := cam.NodeMap()
	applyErr := camera.ApplySettings(nm, s.opts.Settings)
	info := camera.ReadInfo(nm)
	s.serial = info.SerialNumber
	s.publishSettings(false, applyErr)
	if applyErr != nil {
		return fmt.Errorf("configure camera %s: %w", s.serial, applyErr)
	}
	settings := camera.ReadSettings(nm)

	camera.WriteInfo(s.opts.Output, info)
	camera.WriteSettings(s.opts.Output, settings)
	camera.WriteHeader(s.opts.Output, "Camera fps measuring")

	if err := cam.BeginAcquisition(); err != nil {
		return fmt.Errorf("begin acquisition: %w", err)
	}
	defer func() {
		if endErr := cam.EndAcquisition(); endErr != nil {
			err = errors.Join(err, fmt.Errorf("end acquisition: %w", endErr))
		}
	}()

	s.logger.Info("Acquisition started", "session_id", s.id, "serial", s.serial,
		"interval", s.interval(), "policy", s.opts.Policy)
	s.publishState(events.StateStreaming, nil)
	if s.opts.OnStart != nil {
		s.opts.OnStart(Started{SessionID: s.id, Info: info, Settings: settings})
	}

	return s.loop(ctx, cam)
}

func (s *Session) loop(ctx context.Context, cam camera.Camera) error {
	nm := cam.NodeMap()
	tally := metrics.FrameCounter(s.serial)
	mon := fps.New(s.opts.Now(), s.reporter(),
		fps.WithInterval(s.opts.Interval), fps.WithPolicy(s.opts.Policy))

	for ctx.Err() == nil {
		select {
		case live := <-s.live:
			s.applyLive(nm, live)
		default:
		}

		img, err := cam.NextImage()
		if err != nil {
			metrics.IncAcquisitionErrors(s.serial)
			return acquisitionError(err)
		}
		incomplete := img.Incomplete()
		img.Release()

		mon.Tick(s.opts.Now())
		mon.FrameArrived()
		tally.Inc()
		if incomplete {
			tally.IncIncomplete()
		}
	}

	s.logger.Info("Acquisition stopped", "session_id", s.id, "serial", s.serial, "reports", mon.Reports())
	return nil
}

func (s *Session) applyLive(nm camera.NodeMap, live camera.Settings) {
	err := camera.ApplyLiveSettings(nm, live)
	if err != nil {
		s.logger.Warn("Failed to apply live settings", "serial", s.serial, "error", err)
	} else {
		s.logger.Info("Applied live settings", "serial", s.serial)
	}
	s.publishSettings(true, err)
}

func (s *Session) reporter() fps.Reporter {
	return fps.ReporterFunc(func(r fps.Report) {
		if s.opts.Reporter != nil {
			s.opts.Reporter.Report(r)
		}
		if s.opts.Bus != nil {
			events.Publish(s.opts.Bus, events.ReportEvent{
				SessionID: s.id,
				Serial:    s.serial,
				Seq:       r.Seq,
				Frames:    r.Frames,
				FPS:       r.Rate(),
				Interval:  r.Interval,
				Timestamp: r.End,
			})
		}
	})
}

func (s *Session) interval() time.Duration {
	if s.opts.Interval > 0 {
		return s.opts.Interval
	}
	return fps.DefaultInterval
}

func (s *Session) publishState(state string, err error) {
	if s.opts.Bus == nil {
		return
	}
	ev := events.SessionStateEvent{
		SessionID: s.id,
		Serial:    s.serial,
		State:     state,
		Timestamp: s.opts.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	events.Publish(s.opts.Bus, ev)
}

func (s *Session) publishSettings(live bool, err error) {
	if s.opts.Bus == nil {
		return
	}
	ev := events.SettingsAppliedEvent{
		SessionID: s.id,
		Serial:    s.serial,
		Live:      live,
		Timestamp: s.opts.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	events.Publish(s.opts.Bus, ev)
}

// acquisitionError makes sure err carries the ACQUISITION code.
func acquisitionError(err error) error {
	var camErr *camera.Error
	if errors.As(err, &camErr) && camErr.Code == camera.CodeAcquisition {
		return err
	}
	return camera.NewError(camera.CodeAcquisition, "acquire image", err)
}
