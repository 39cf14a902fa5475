package camera

import (
	"errors"
	"fmt"
)

// Settings are the acquisition parameters applied before streaming.
// Nil fields leave the device value untouched, except Width and Height which
// default to the sensor maximum.
type Settings struct {
	Width            *int64   `toml:"width,omitempty" json:"width,omitempty"`
	Height           *int64   `toml:"height,omitempty" json:"height,omitempty"`
	OffsetX          *int64   `toml:"offset_x,omitempty" json:"offset_x,omitempty"`
	OffsetY          *int64   `toml:"offset_y,omitempty" json:"offset_y,omitempty"`
	ExposureTime     *float64 `toml:"exposure_time,omitempty" json:"exposure_time,omitempty"` // microseconds
	Gain             *float64 `toml:"gain,omitempty" json:"gain,omitempty"`                   // dB
	PixelFormat      *string  `toml:"pixel_format,omitempty" json:"pixel_format,omitempty"`
	AcquisitionMode  *string  `toml:"acquisition_mode,omitempty" json:"acquisition_mode,omitempty"`
	AutoExposure     *string  `toml:"auto_exposure,omitempty" json:"auto_exposure,omitempty"`
	AutoGain         *string  `toml:"auto_gain,omitempty" json:"auto_gain,omitempty"`
	AutoWhiteBalance *string  `toml:"auto_white_balance,omitempty" json:"auto_white_balance,omitempty"`
	AdcBitDepth      *string  `toml:"adc_bit_depth,omitempty" json:"adc_bit_depth,omitempty"`
}

// DefaultSettings returns the settings used when no config file is given:
// full sensor resolution, BayerRG8, continuous acquisition.
func DefaultSettings() Settings {
	return Settings{
		PixelFormat:     Ptr("BayerRG8"),
		AcquisitionMode: Ptr("Continuous"),
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Live returns only the settings that may change while acquiring.
func (s Settings) Live() Settings {
	return Settings{
		ExposureTime:     s.ExposureTime,
		Gain:             s.Gain,
		AutoExposure:     s.AutoExposure,
		AutoGain:         s.AutoGain,
		AutoWhiteBalance: s.AutoWhiteBalance,
	}
}

// ApplySettings writes s to the node map. Offsets are zeroed first so the
// requested size is reachable regardless of the previous region of interest.
// The first failing node aborts the sequence.
func ApplySettings(nm NodeMap, s Settings) error {
	for _, name := range []string{NodeOffsetX, NodeOffsetY} {
		if node, err := nm.Integer(name); err == nil && node.Value() != 0 {
			if err := node.SetValue(0); err != nil {
				return fmt.Errorf("reset %s: %w", name, err)
			}
		}
	}

	if err := setIntegerOrMax(nm, NodeWidth, s.Width); err != nil {
		return err
	}
	if err := setIntegerOrMax(nm, NodeHeight, s.Height); err != nil {
		return err
	}
	if err := setInteger(nm, NodeOffsetX, s.OffsetX); err != nil {
		return err
	}
	if err := setInteger(nm, NodeOffsetY, s.OffsetY); err != nil {
		return err
	}

	enums := []struct {
		node  string
		entry *string
	}{
		{NodeBalanceWhiteAuto, s.AutoWhiteBalance},
		{NodeGainAuto, s.AutoGain},
		{NodeAdcBitDepth, s.AdcBitDepth},
		{NodeAcquisitionMode, s.AcquisitionMode},
		{NodePixelFormat, s.PixelFormat},
		{NodeExposureAuto, s.AutoExposure},
	}
	for _, e := range enums {
		if err := setEnumeration(nm, e.node, e.entry); err != nil {
			return err
		}
	}

	if err := setFloat(nm, NodeExposureTime, s.ExposureTime); err != nil {
		return err
	}
	return setFloat(nm, NodeGain, s.Gain)
}

// ApplyLiveSettings writes the exposure, gain and white balance parts of s.
// All nodes are attempted; failures are joined.
func ApplyLiveSettings(nm NodeMap, s Settings) error {
	live := s.Live()
	return errors.Join(
		setEnumeration(nm, NodeBalanceWhiteAuto, live.AutoWhiteBalance),
		setEnumeration(nm, NodeGainAuto, live.AutoGain),
		setEnumeration(nm, NodeExposureAuto, live.AutoExposure),
		setFloat(nm, NodeExposureTime, live.ExposureTime),
		setFloat(nm, NodeGain, live.Gain),
	)
}

// ReadSettings returns the current device values of every feature Settings
// covers. Features the device lacks stay nil.
func ReadSettings(nm NodeMap) Settings {
	var s Settings
	s.Width = readInteger(nm, NodeWidth)
	s.Height = readInteger(nm, NodeHeight)
	s.OffsetX = readInteger(nm, NodeOffsetX)
	s.OffsetY = readInteger(nm, NodeOffsetY)
	s.ExposureTime = readFloat(nm, NodeExposureTime)
	s.Gain = readFloat(nm, NodeGain)
	s.PixelFormat = readEnumeration(nm, NodePixelFormat)
	s.AcquisitionMode = readEnumeration(nm, NodeAcquisitionMode)
	s.AutoExposure = readEnumeration(nm, NodeExposureAuto)
	s.AutoGain = readEnumeration(nm, NodeGainAuto)
	s.AutoWhiteBalance = readEnumeration(nm, NodeBalanceWhiteAuto)
	s.AdcBitDepth = readEnumeration(nm, NodeAdcBitDepth)
	return s
}

func setIntegerOrMax(nm NodeMap, name string, v *int64) error {
	node, err := nm.Integer(name)
	if err != nil {
		return err
	}
	value := node.Max()
	if v != nil {
		value = *v
	}
	if err := node.SetValue(value); err != nil {
		return fmt.Errorf("set %s to %d: %w", name, value, err)
	}
	return nil
}

func setInteger(nm NodeMap, name string, v *int64) error {
	if v == nil {
		return nil
	}
	node, err := nm.Integer(name)
	if err != nil {
		return err
	}
	if err := node.SetValue(*v); err != nil {
		return fmt.Errorf("set %s to %d: %w", name, *v, err)
	}
	return nil
}

func setFloat(nm NodeMap, name string, v *float64) error {
	if v == nil {
		return nil
	}
	node, err := nm.Float(name)
	if err != nil {
		return err
	}
	if err := node.SetValue(*v); err != nil {
		return fmt.Errorf("set %s to %g: %w", name, *v, err)
	}
	return nil
}

func setEnumeration(nm NodeMap, name string, entry *string) error {
	if entry == nil {
		return nil
	}
	node, err := nm.Enumeration(name)
	if err != nil {
		return err
	}
	if err := node.SetSymbolic(*entry); err != nil {
		return fmt.Errorf("set %s to %s: %w", name, *entry, err)
	}
	return nil
}

func readInteger(nm NodeMap, name string) *int64 {
	if node, err := nm.Integer(name); err == nil {
		return Ptr(node.Value())
	}
	return nil
}

func readFloat(nm NodeMap, name string) *float64 {
	if node, err := nm.Float(name); err == nil {
		return Ptr(node.Value())
	}
	return nil
}

func readEnumeration(nm NodeMap, name string) *string {
	if node, err := nm.Enumeration(name); err == nil {
		return Ptr(node.Symbolic())
	}
	return nil
}
