package session

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/smazurov/camspeed/internal/camera"
)

// withCamera opens the system, selects and initializes a camera, runs fn and
// releases everything in reverse order. Cleanup errors are joined with the
// error of fn.
func withCamera(open func() (camera.System, error), serial string, fn func(camera.Camera) error) (err error) {
	sys, err := open()
	if err != nil {
		return fmt.Errorf("open camera system: %w", err)
	}
	defer func() {
		if relErr := sys.Release(); relErr != nil {
			err = errors.Join(err, fmt.Errorf("release camera system: %w", relErr))
		}
	}()

	cams, err := sys.Cameras()
	if err != nil {
		return fmt.Errorf("list cameras: %w", err)
	}
	cam, err := camera.Select(cams, serial)
	if err != nil {
		return err
	}

	if err := cam.Init(); err != nil {
		return fmt.Errorf("init camera: %w", err)
	}
	defer func() {
		if deErr := cam.DeInit(); deErr != nil {
			err = errors.Join(err, fmt.Errorf("deinit camera: %w", deErr))
		}
	}()

	return fn(cam)
}

// Device is one enumerated camera.
type Device struct {
	Index int               `json:"index"`
	Info  camera.DeviceInfo `json:"info"`
}

// List enumerates the cameras of the system without initializing them.
func List(open func() (camera.System, error)) (devices []Device, err error) {
	sys, err := open()
	if err != nil {
		return nil, fmt.Errorf("open camera system: %w", err)
	}
	defer func() {
		if relErr := sys.Release(); relErr != nil {
			err = errors.Join(err, fmt.Errorf("release camera system: %w", relErr))
		}
	}()

	cams, err := sys.Cameras()
	if err != nil {
		return nil, fmt.Errorf("list cameras: %w", err)
	}
	for i, cam := range cams {
		devices = append(devices, Device{Index: i, Info: camera.ReadInfo(cam.NodeMap())})
	}
	return devices, nil
}

// WriteDevices prints one line per device.
func WriteDevices(w io.Writer, devices []Device) {
	for _, d := range devices {
		fmt.Fprintf(w, "%d: %s (serial %s)\n", d.Index, strings.TrimSpace(d.Info.Vendor+" "+d.Info.Model), d.Info.SerialNumber)
	}
}

// Inspect selects and initializes the camera, applies settings when apply is
// set, writes the device information and settings blocks to opts.Output and
// returns what it printed. It never starts acquisition.
func Inspect(opts Options, apply bool) (Started, error) {
	s := New(opts)
	var out Started
	err := withCamera(s.opts.Open, s.opts.Serial, func(cam camera.Camera) error {
		nm := cam.NodeMap()
		if apply {
			if err := camera.ApplySettings(nm, s.opts.Settings); err != nil {
				return fmt.Errorf("configure camera: %w", err)
			}
		}
		out = Started{SessionID: s.id, Info: camera.ReadInfo(nm), Settings: camera.ReadSettings(nm)}
		camera.WriteInfo(s.opts.Output, out.Info)
		camera.WriteSettings(s.opts.Output, out.Settings)
		return nil
	})
	return out, err
}
