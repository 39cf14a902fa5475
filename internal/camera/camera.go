// Package camera defines the contract between camspeed and a camera SDK.
//
// A driver exposes a System, the process-wide handle of the SDK, which lists
// Cameras. A Camera must be initialized before its node map can be written
// and before acquisition can begin. NextImage blocks until the device
// delivers the next frame; callers release every image immediately after
// use.
//
// Drivers register themselves by name, usually from an init function:
//
//	func init() {
//		camera.Register("sim", Open)
//	}
package camera

import (
	"slices"
	"sync"
	"time"
)

// System is the SDK handle. It must be released after all cameras obtained
// from it are de-initialized.
type System interface {
	Cameras() ([]Camera, error)
	Release() error
}

// Camera is a single device.
type Camera interface {
	Init() error
	DeInit() error
	NodeMap() NodeMap
	BeginAcquisition() error
	EndAcquisition() error
	// NextImage blocks until the next frame is available. It is not
	// interruptible.
	NextImage() (Image, error)
}

// Image is one acquired frame. Release returns its buffer to the driver.
type Image interface {
	FrameID() uint64
	Timestamp() time.Time
	Width() int
	Height() int
	PixelFormat() string
	Incomplete() bool
	Release()
}

// OpenFunc opens a driver's System. Params carry driver specific options.
type OpenFunc func(params map[string]string) (System, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]OpenFunc)
)

// Register makes a driver available by name. It panics if called twice with
// the same name or with a nil OpenFunc.
func Register(name string, open OpenFunc) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if open == nil {
		panic("camera: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("camera: Register called twice for driver " + name)
	}
	drivers[name] = open
}

// Drivers returns the sorted names of registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Open opens the System of the named driver.
func Open(name string, params map[string]string) (System, error) {
	driversMu.RLock()
	open, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, NewError(CodeUnknownDriver, "driver "+name+" is not registered", nil)
	}
	return open(params)
}

// Select returns the camera with the given serial number, or the first
// camera when serial is empty.
func Select(cams []Camera, serial string) (Camera, error) {
	if len(cams) == 0 {
		return nil, ErrNoCamera
	}
	if serial == "" {
		return cams[0], nil
	}
	for _, cam := range cams {
		if node, err := cam.NodeMap().String(NodeDeviceSerialNumber); err == nil && node.Value() == serial {
			return cam, nil
		}
	}
	return nil, NewError(CodeNoCamera, "no camera with serial "+serial, nil)
}
