package camera

// Standard feature names used by this tool.
const (
	NodeWidth                 = "Width"
	NodeHeight                = "Height"
	NodeOffsetX               = "OffsetX"
	NodeOffsetY               = "OffsetY"
	NodePixelFormat           = "PixelFormat"
	NodeAcquisitionMode       = "AcquisitionMode"
	NodeAcquisitionFrameCount = "AcquisitionFrameCount"
	NodeResultingFrameRate    = "AcquisitionResultingFrameRate"
	NodeExposureAuto          = "ExposureAuto"
	NodeExposureTime          = "ExposureTime"
	NodeGainAuto              = "GainAuto"
	NodeGain                  = "Gain"
	NodeBalanceWhiteAuto      = "BalanceWhiteAuto"
	NodeAdcBitDepth           = "AdcBitDepth"
	NodeDeviceVendorName      = "DeviceVendorName"
	NodeDeviceModelName       = "DeviceModelName"
	NodeDeviceFirmwareVersion = "DeviceFirmwareVersion"
	NodeDeviceSerialNumber    = "DeviceSerialNumber"
)

// Node is a named feature of a camera.
type Node interface {
	Name() string
}

// IntegerNode is an integer feature with bounds and increment.
type IntegerNode interface {
	Node
	Value() int64
	Min() int64
	Max() int64
	Inc() int64
	SetValue(v int64) error
}

// FloatNode is a floating point feature with bounds.
type FloatNode interface {
	Node
	Value() float64
	Min() float64
	Max() float64
	Unit() string
	SetValue(v float64) error
}

// EnumerationNode is a feature selecting one of a set of named entries.
type EnumerationNode interface {
	Node
	Symbolic() string
	Entries() []string
	SetSymbolic(entry string) error
}

// StringNode is a read-only text feature.
type StringNode interface {
	Node
	Value() string
}

// NodeMap gives typed access to camera features. Lookups of features the
// device does not implement return an error matching ErrNodeNotFound.
type NodeMap interface {
	Integer(name string) (IntegerNode, error)
	Float(name string) (FloatNode, error)
	Enumeration(name string) (EnumerationNode, error)
	String(name string) (StringNode, error)
}
