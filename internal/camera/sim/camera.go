package sim

import (
	"sync"
	"time"

	"github.com/smazurov/camspeed/internal/camera"
)

// Camera is one simulated device. Its node map may be read at any time but
// only written between Init and DeInit. Region of interest and pixel format
// are locked while acquiring.
type Camera struct {
	serial string
	cfg    Config
	nodes  *nodeMap

	mu          sync.Mutex
	initialized bool
	acquiring   bool
	period      time.Duration
	deadline    time.Time
	delivered   uint64 // frames handed out in this acquisition
	frameID     uint64 // device frame counter including dropped frames
	stalled     bool
	remaining   int64 // frames left in SingleFrame/MultiFrame mode, -1 = unbounded
	outstanding int
}

func newCamera(serial string, cfg Config) *Camera {
	c := &Camera{serial: serial, cfg: cfg}
	c.nodes = c.buildNodeMap()
	return c
}

func (c *Camera) buildNodeMap() *nodeMap {
	m := &nodeMap{
		integers:     make(map[string]*intNode),
		floats:       make(map[string]camera.FloatNode),
		enumerations: make(map[string]*enumNode),
		strings:      make(map[string]*stringNode),
	}
	constant := func(v int64) func() int64 { return func() int64 { return v } }

	m.integers[camera.NodeWidth] = &intNode{
		name: camera.NodeWidth, value: sensorWidth, inc: widthInc, guard: c.streamLocked,
		min: constant(minWidth),
		max: func() int64 { return sensorWidth - m.intValue(camera.NodeOffsetX) },
	}
	m.integers[camera.NodeHeight] = &intNode{
		name: camera.NodeHeight, value: sensorHeight, inc: heightInc, guard: c.streamLocked,
		min: constant(minHeight),
		max: func() int64 { return sensorHeight - m.intValue(camera.NodeOffsetY) },
	}
	m.integers[camera.NodeOffsetX] = &intNode{
		name: camera.NodeOffsetX, inc: widthInc, guard: c.streamLocked,
		min: constant(0),
		max: func() int64 { return sensorWidth - m.intValue(camera.NodeWidth) },
	}
	m.integers[camera.NodeOffsetY] = &intNode{
		name: camera.NodeOffsetY, inc: heightInc, guard: c.streamLocked,
		min: constant(0),
		max: func() int64 { return sensorHeight - m.intValue(camera.NodeHeight) },
	}
	m.integers[camera.NodeAcquisitionFrameCount] = &intNode{
		name: camera.NodeAcquisitionFrameCount, value: 10, inc: 1, guard: c.streamLocked,
		min: constant(1), max: constant(65535),
	}

	m.floats[camera.NodeExposureTime] = &floatNode{
		name: camera.NodeExposureTime, unit: "us", value: 4000,
		min: minExposureUS, max: maxExposureUS,
		guard: c.manualOnly(m, camera.NodeExposureAuto),
	}
	m.floats[camera.NodeGain] = &floatNode{
		name: camera.NodeGain, unit: "dB", min: 0, max: maxGainDB,
		guard: c.manualOnly(m, camera.NodeGainAuto),
	}
	m.floats[camera.NodeResultingFrameRate] = &readOnlyFloat{
		name: camera.NodeResultingFrameRate, unit: "Hz",
		value: func() float64 { return c.limits().rate() },
	}

	auto := []string{"Off", "Once", "Continuous"}
	enums := []*enumNode{
		{name: camera.NodePixelFormat, entries: pixelFormats, current: "Mono8", guard: c.streamLocked},
		{name: camera.NodeAcquisitionMode, entries: []string{"Continuous", "SingleFrame", "MultiFrame"}, current: "Continuous", guard: c.streamLocked},
		{name: camera.NodeAdcBitDepth, entries: []string{"Bit8", "Bit10", "Bit12"}, current: "Bit10", guard: c.streamLocked},
		{name: camera.NodeExposureAuto, entries: auto, current: "Off", guard: c.writable},
		{name: camera.NodeGainAuto, entries: auto, current: "Off", guard: c.writable},
		{name: camera.NodeBalanceWhiteAuto, entries: auto, current: "Off", guard: c.writable},
	}
	for _, e := range enums {
		m.enumerations[e.name] = e
	}

	for name, value := range map[string]string{
		camera.NodeDeviceVendorName:      "camspeed",
		camera.NodeDeviceModelName:       "Simulated GigaPixel 16S2C",
		camera.NodeDeviceFirmwareVersion: "1.0.0.0",
		camera.NodeDeviceSerialNumber:    c.serial,
	} {
		m.strings[name] = &stringNode{name: name, value: value}
	}
	return m
}

// writable allows writes only on an initialized camera.
func (c *Camera) writable(string) error {
	if !c.initialized {
		return camera.ErrNotInitialized
	}
	return nil
}

// streamLocked additionally rejects writes during acquisition.
func (c *Camera) streamLocked(name string) error {
	if err := c.writable(name); err != nil {
		return err
	}
	if c.acquiring {
		return camera.NewNodeError(camera.CodeNotWritable, name, "locked while acquiring")
	}
	return nil
}

// manualOnly rejects writes while the named auto feature is active.
func (c *Camera) manualOnly(m *nodeMap, autoNode string) guard {
	return func(name string) error {
		if err := c.writable(name); err != nil {
			return err
		}
		if mode := m.enumValue(autoNode); mode != "Off" {
			return camera.NewNodeError(camera.CodeNotWritable, name, autoNode+" is "+mode)
		}
		return nil
	}
}

func (c *Camera) limits() frameLimits {
	return limits(modelInput{
		width:       c.nodes.intValue(camera.NodeWidth),
		height:      c.nodes.intValue(camera.NodeHeight),
		pixelFormat: c.nodes.enumValue(camera.NodePixelFormat),
		adcBitDepth: c.nodes.enumValue(camera.NodeAdcBitDepth),
		exposureUS:  c.nodes.floatValue(camera.NodeExposureTime),
		linkBps:     c.cfg.LinkBandwidth,
		maxFPS:      c.cfg.MaxFPS,
	})
}

// Serial returns the device serial number.
func (c *Camera) Serial() string { return c.serial }

// FrameRate returns the frame rate the current configuration achieves.
func (c *Camera) FrameRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limits().rate()
}

// Initialized reports whether Init was called without a matching DeInit.
func (c *Camera) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// Acquiring reports whether acquisition is running.
func (c *Camera) Acquiring() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquiring
}

// Outstanding returns the number of delivered images not yet released.
func (c *Camera) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outstanding
}

// Init implements camera.Camera.
func (c *Camera) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initialized = true
	return nil
}

// DeInit implements camera.Camera. Acquisition must be stopped first.
func (c *Camera) DeInit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.acquiring {
		return camera.NewError(camera.CodeAcquisition, "camera is still acquiring", nil)
	}
	c.initialized = false
	return nil
}

// NodeMap implements camera.Camera.
func (c *Camera) NodeMap() camera.NodeMap {
	return c.nodes
}

// BeginAcquisition implements camera.Camera.
func (c *Camera) BeginAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return camera.ErrNotInitialized
	}
	if c.acquiring {
		return camera.NewError(camera.CodeAcquisition, "acquisition already started", nil)
	}

	c.period = framePeriod(c.limits().rate())
	c.deadline = c.cfg.Now().Add(c.period)
	c.delivered = 0
	c.stalled = false
	switch c.nodes.enumValue(camera.NodeAcquisitionMode) {
	case "SingleFrame":
		c.remaining = 1
	case "MultiFrame":
		c.remaining = c.nodes.intValue(camera.NodeAcquisitionFrameCount)
	default:
		c.remaining = -1
	}
	c.acquiring = true
	return nil
}

// EndAcquisition implements camera.Camera.
func (c *Camera) EndAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.acquiring {
		return camera.NewError(camera.CodeAcquisition, "acquisition not started", nil)
	}
	c.acquiring = false
	return nil
}

// NextImage blocks until the next frame deadline. Frames whose deadline
// passed while the caller was busy are dropped, as a device with a
// newest-only buffer would.
func (c *Camera) NextImage() (camera.Image, error) {
	c.mu.Lock()
	if !c.acquiring {
		c.mu.Unlock()
		return nil, camera.NewError(camera.CodeAcquisition, "acquisition not started", nil)
	}
	if c.remaining == 0 {
		c.mu.Unlock()
		return nil, camera.NewError(camera.CodeAcquisition, "acquisition stopped after requested frames", nil)
	}
	if c.cfg.FailAfter > 0 && c.delivered >= c.cfg.FailAfter {
		c.mu.Unlock()
		return nil, camera.NewError(camera.CodeAcquisition, "image transfer failed", nil)
	}

	if c.cfg.StallAfter > 0 && c.delivered == c.cfg.StallAfter && !c.stalled {
		c.stalled = true
		c.deadline = c.deadline.Add(c.cfg.StallFor)
	}

	now := c.cfg.Now()
	if late := now.Sub(c.deadline); late > c.period {
		dropped := int64(late / c.period)
		c.frameID += uint64(dropped)
		c.deadline = c.deadline.Add(time.Duration(dropped) * c.period)
	}
	deadline := c.deadline
	wait := deadline.Sub(now)

	c.deadline = deadline.Add(c.period)
	c.delivered++
	c.frameID++
	if c.remaining > 0 {
		c.remaining--
	}
	c.outstanding++

	img := &image{
		cam:        c,
		id:         c.frameID,
		ts:         deadline,
		width:      int(c.nodes.intValue(camera.NodeWidth)),
		height:     int(c.nodes.intValue(camera.NodeHeight)),
		format:     c.nodes.enumValue(camera.NodePixelFormat),
		incomplete: c.cfg.IncompleteEvery > 0 && c.delivered%c.cfg.IncompleteEvery == 0,
	}
	c.mu.Unlock()

	if wait > 0 {
		c.cfg.Sleep(wait)
	}
	return img, nil
}

func (c *Camera) release() {
	c.mu.Lock()
	c.outstanding--
	c.mu.Unlock()
}

type image struct {
	cam        *Camera
	once       sync.Once
	id         uint64
	ts         time.Time
	width      int
	height     int
	format     string
	incomplete bool
}

func (i *image) FrameID() uint64      { return i.id }
func (i *image) Timestamp() time.Time { return i.ts }
func (i *image) Width() int           { return i.width }
func (i *image) Height() int          { return i.height }
func (i *image) PixelFormat() string  { return i.format }
func (i *image) Incomplete() bool     { return i.incomplete }

// Release returns the buffer. Calling it more than once is a no-op.
func (i *image) Release() {
	i.once.Do(i.cam.release)
}
