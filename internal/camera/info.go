package camera

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DeviceInfo describes a camera model and its limits.
type DeviceInfo struct {
	Vendor          string  `json:"vendor,omitempty"`
	Model           string  `json:"model"`
	FirmwareVersion string  `json:"firmware_version"`
	SerialNumber    string  `json:"serial_number"`
	MaxWidth        int64   `json:"max_width"`
	MaxHeight       int64   `json:"max_height"`
	MinExposureTime float64 `json:"min_exposure_time"`
	MaxExposureTime float64 `json:"max_exposure_time"`
}

// ReadInfo reads device information from the node map. Missing features
// are left zero.
func ReadInfo(nm NodeMap) DeviceInfo {
	var info DeviceInfo
	info.Vendor = readString(nm, NodeDeviceVendorName)
	info.Model = readString(nm, NodeDeviceModelName)
	info.FirmwareVersion = readString(nm, NodeDeviceFirmwareVersion)
	info.SerialNumber = readString(nm, NodeDeviceSerialNumber)
	if node, err := nm.Integer(NodeWidth); err == nil {
		info.MaxWidth = node.Max()
	}
	if node, err := nm.Integer(NodeHeight); err == nil {
		info.MaxHeight = node.Max()
	}
	if node, err := nm.Float(NodeExposureTime); err == nil {
		info.MinExposureTime = node.Min()
		info.MaxExposureTime = node.Max()
	}
	return info
}

func readString(nm NodeMap, name string) string {
	if node, err := nm.String(name); err == nil {
		return node.Value()
	}
	return ""
}

// LabelWidth is the column the values of Label-formatted lines start at.
const LabelWidth = 20

// Label pads s to LabelWidth and appends ": ".
func Label(s string) string {
	if len(s) < LabelWidth {
		s += strings.Repeat(" ", LabelWidth-len(s))
	}
	return s + ": "
}

// WriteHeader writes title underlined with '='.
func WriteHeader(w io.Writer, title string) {
	fmt.Fprintf(w, "%s\n%s\n", title, strings.Repeat("=", len(title)))
}

// WriteInfo writes the device information block.
func WriteInfo(w io.Writer, info DeviceInfo) {
	WriteHeader(w, "Camera device information")
	if info.Vendor != "" {
		fmt.Fprintf(w, "%s%s\n", Label("Vendor"), info.Vendor)
	}
	fmt.Fprintf(w, "%s%s\n", Label("Model"), info.Model)
	fmt.Fprintf(w, "%s%s\n", Label("Firmware version"), info.FirmwareVersion)
	fmt.Fprintf(w, "%s%s\n", Label("Serial number"), info.SerialNumber)
	fmt.Fprintf(w, "%s%d x %d\n", Label("Max resolution"), info.MaxWidth, info.MaxHeight)
	fmt.Fprintf(w, "%s%s\n", Label("Min exposure time"), formatFloat(info.MinExposureTime))
	fmt.Fprintln(w)
}

// WriteSettings writes the current settings block. Features the device
// lacks are shown as n/a.
func WriteSettings(w io.Writer, s Settings) {
	WriteHeader(w, "Camera device settings")
	rows := []struct {
		label string
		value string
	}{
		{"Acquisition mode", str(s.AcquisitionMode)},
		{"Pixel format", str(s.PixelFormat)},
		{"ADC bit depth", str(s.AdcBitDepth)},
		{"Auto white balance", str(s.AutoWhiteBalance)},
		{"Auto gain", str(s.AutoGain)},
		{"Gain", float(s.Gain)},
		{"Auto exposure", str(s.AutoExposure)},
		{"Exposure time", float(s.ExposureTime)},
		{"Width", integer(s.Width)},
		{"Height", integer(s.Height)},
		{"Offset X", integer(s.OffsetX)},
		{"Offset Y", integer(s.OffsetY)},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s%s\n", Label(row.label), row.value)
	}
	fmt.Fprintln(w)
}

const notAvailable = "n/a"

func str(v *string) string {
	if v == nil {
		return notAvailable
	}
	return *v
}

func integer(v *int64) string {
	if v == nil {
		return notAvailable
	}
	return strconv.FormatInt(*v, 10)
}

func float(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
