// Package sim is a simulated GenICam camera driver.
//
// Each simulated camera exposes the standard acquisition features and
// delivers frames at the rate its configuration would achieve on real
// hardware: the lowest of the link throughput, the sensor readout rate for
// the chosen height and ADC depth, and the exposure time.
//
// The driver registers itself as "sim". Recognized params:
//
//	cameras        number of cameras to expose (default 1)
//	max_fps        cap on the frame rate (default none)
//	link_bandwidth usable link payload in bytes/s (default 380e6)
package sim

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/smazurov/camspeed/internal/camera"
)

// DriverName is the registry name of this driver.
const DriverName = "sim"

func init() {
	camera.Register(DriverName, Open)
}

// Config configures a simulated system.
type Config struct {
	Cameras       int
	MaxFPS        float64
	LinkBandwidth float64

	// FailAfter makes NextImage fail once this many frames were delivered.
	FailAfter uint64
	// StallAfter delays the frame after this many frames by StallFor.
	StallAfter uint64
	StallFor   time.Duration
	// IncompleteEvery marks every n-th frame incomplete.
	IncompleteEvery uint64

	Now   func() time.Time
	Sleep func(time.Duration)
}

func (c *Config) setDefaults() {
	if c.Cameras <= 0 {
		c.Cameras = 1
	}
	if c.LinkBandwidth <= 0 {
		c.LinkBandwidth = defaultLinkBps
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
}

// Open parses params and opens a simulated system. It is the registered
// camera.OpenFunc.
func Open(params map[string]string) (camera.System, error) {
	var cfg Config
	for key, value := range params {
		var err error
		switch key {
		case "cameras":
			cfg.Cameras, err = strconv.Atoi(value)
		case "max_fps":
			cfg.MaxFPS, err = strconv.ParseFloat(value, 64)
		case "link_bandwidth":
			cfg.LinkBandwidth, err = strconv.ParseFloat(value, 64)
		default:
			return nil, fmt.Errorf("sim: unknown driver param %q", key)
		}
		if err != nil {
			return nil, fmt.Errorf("sim: invalid %s %q: %w", key, value, err)
		}
	}
	return New(cfg), nil
}

// System is a simulated SDK handle.
type System struct {
	mu       sync.Mutex
	cameras  []*Camera
	released bool
}

// New creates a simulated system.
func New(cfg Config) *System {
	cfg.setDefaults()
	sys := &System{}
	for i := 0; i < cfg.Cameras; i++ {
		sys.cameras = append(sys.cameras, newCamera(fmt.Sprintf("SIM%05d", 20001+i), cfg))
	}
	return sys
}

// Cameras returns the simulated cameras.
func (s *System) Cameras() ([]camera.Camera, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, camera.NewError(camera.CodeNotInitialized, "system already released", nil)
	}
	cams := make([]camera.Camera, len(s.cameras))
	for i, c := range s.cameras {
		cams[i] = c
	}
	return cams, nil
}

// Release releases the system. It fails while any camera is initialized.
func (s *System) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cameras {
		if c.Initialized() {
			return camera.NewError(camera.CodeNotInitialized, "camera "+c.serial+" still initialized", nil)
		}
	}
	s.released = true
	return nil
}

// Released reports whether Release succeeded.
func (s *System) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Camera returns the i-th simulated camera.
func (s *System) Camera(i int) *Camera {
	return s.cameras[i]
}
