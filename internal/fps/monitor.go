package fps

import (
	"fmt"
	"time"
)

// DefaultInterval is the length of one measurement interval.
const DefaultInterval = time.Second

// Policy selects how the next interval start is derived after a rollover.
type Policy int

const (
	// PolicyFixed measures fixed-length intervals from the previous boundary.
	PolicyFixed Policy = iota
	// PolicyElastic restarts the interval at the observed rollover time.
	PolicyElastic
)

func (p Policy) String() string {
	switch p {
	case PolicyFixed:
		return "fixed"
	case PolicyElastic:
		return "elastic"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts "fixed" or "elastic" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "fixed", "":
		return PolicyFixed, nil
	case "elastic":
		return PolicyElastic, nil
	default:
		return PolicyFixed, fmt.Errorf("unknown interval policy %q (want fixed or elastic)", s)
	}
}

// Report is the measurement of one completed, non-warm-up interval.
type Report struct {
	Seq      int           // 1 for the first report after warm-up
	Frames   int           // frames observed during the interval
	Interval time.Duration // nominal interval length
	Start    time.Time
	End      time.Time
}

// Rate returns frames per second for the interval.
func (r Report) Rate() float64 {
	if r.Interval <= 0 {
		return 0
	}
	return float64(r.Frames) / r.Interval.Seconds()
}

// Reporter receives one Report per completed interval after warm-up.
type Reporter interface {
	Report(Report)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(Report)

// Report calls f(r).
func (f ReporterFunc) Report(r Report) { f(r) }

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the interval length. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithPolicy sets the boundary policy.
func WithPolicy(p Policy) Option {
	return func(m *Monitor) {
		m.policy = p
	}
}

// Monitor holds the state of one streaming session's rate measurement.
type Monitor struct {
	reporter Reporter
	interval time.Duration
	policy   Policy

	intervalStart time.Time
	frameCount    int
	warmedUp      bool
	reports       int
}

// New creates a monitor whose first interval starts at start.
// A nil reporter discards reports.
func New(start time.Time, reporter Reporter, opts ...Option) *Monitor {
	if reporter == nil {
		reporter = ReporterFunc(func(Report) {})
	}
	m := &Monitor{
		reporter:      reporter,
		interval:      DefaultInterval,
		policy:        PolicyFixed,
		intervalStart: start,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FrameArrived records one received frame in the current interval.
func (m *Monitor) FrameArrived() {
	m.frameCount++
}

// Tick closes every interval that ended at or before now and returns the
// number of reports emitted. Repeated calls with the same now are no-ops.
func (m *Monitor) Tick(now time.Time) int {
	emitted := 0
	for now.Sub(m.intervalStart) >= m.interval {
		end := m.intervalStart.Add(m.interval)
		if m.policy == PolicyElastic {
			end = now
		}

		if m.warmedUp {
			m.reports++
			emitted++
			m.reporter.Report(Report{
				Seq:      m.reports,
				Frames:   m.frameCount,
				Interval: m.interval,
				Start:    m.intervalStart,
				End:      end,
			})
		} else {
			m.warmedUp = true
		}

		m.frameCount = 0
		m.intervalStart = end
	}
	return emitted
}

// Frames returns the number of frames counted in the current interval.
func (m *Monitor) Frames() int { return m.frameCount }

// WarmedUp reports whether the warm-up interval has been discarded.
func (m *Monitor) WarmedUp() bool { return m.warmedUp }

// IntervalStart returns the start of the current interval.
func (m *Monitor) IntervalStart() time.Time { return m.intervalStart }

// Reports returns the number of reports emitted so far.
func (m *Monitor) Reports() int { return m.reports }

// Interval returns the configured interval length.
func (m *Monitor) Interval() time.Duration { return m.interval }

// Policy returns the configured boundary policy.
func (m *Monitor) Policy() Policy { return m.policy }
