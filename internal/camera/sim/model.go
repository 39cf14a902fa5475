package sim

import (
	"math"
	"strconv"
	"time"
)

// Sensor geometry and timing of the simulated model, loosely based on a
// 1.6 MP global shutter USB3 Vision camera.
const (
	sensorWidth    = 1440
	sensorHeight   = 1080
	widthInc       = 4
	heightInc      = 2
	minWidth       = 8
	minHeight      = 6
	blankingRows   = 16
	rowTime10Bit   = 4.05 * float64(time.Microsecond) // per sensor row at 10-bit ADC
	minExposureUS  = 6.0
	maxExposureUS  = 30_000_000.0
	maxGainDB      = 47.99
	defaultLinkBps = 380_000_000.0 // usable USB3 Vision payload bandwidth, bytes/s
)

var pixelFormats = []string{"Mono8", "Mono16", "BayerRG8", "BayerRG16", "RGB8"}

var bytesPerPixel = map[string]float64{
	"Mono8":     1,
	"BayerRG8":  1,
	"Mono16":    2,
	"BayerRG16": 2,
	"RGB8":      3,
}

// adcRowScale scales the sensor row time for the ADC bit depth.
var adcRowScale = map[string]float64{
	"Bit8":  0.8,
	"Bit10": 1.0,
	"Bit12": 1.5,
}

// frameLimits are the individual frame rate ceilings of a configuration.
type frameLimits struct {
	link     float64
	sensor   float64
	exposure float64
	ceiling  float64
}

// rate returns the lowest ceiling in frames per second.
func (l frameLimits) rate() float64 {
	fps := math.Min(l.link, math.Min(l.sensor, l.exposure))
	if l.ceiling > 0 {
		fps = math.Min(fps, l.ceiling)
	}
	return fps
}

type modelInput struct {
	width, height int64
	pixelFormat   string
	adcBitDepth   string
	exposureUS    float64
	linkBps       float64
	maxFPS        float64
}

func limits(in modelInput) frameLimits {
	frameBytes := float64(in.width*in.height) * bytesPerPixel[in.pixelFormat]
	rowTime := rowTime10Bit * adcRowScale[in.adcBitDepth]
	readout := rowTime * float64(in.height+blankingRows)

	return frameLimits{
		link:     in.linkBps / frameBytes,
		sensor:   float64(time.Second) / readout,
		exposure: 1e6 / in.exposureUS,
		ceiling:  in.maxFPS,
	}
}

// framePeriod converts a frame rate to the interval between frames.
func framePeriod(fps float64) time.Duration {
	if fps <= 0 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(float64(time.Second) / fps)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
