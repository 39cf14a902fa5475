// Package report provides sinks for frame rate reports.
package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/smazurov/camspeed/internal/fps"
)

// Format selects the console line layout.
type Format string

// Console formats.
const (
	FormatSuffix Format = "fps"   // "30fps"
	FormatLabel  Format = "label" // "FPS: 30"
)

// ParseFormat validates a console format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatSuffix, "":
		return FormatSuffix, nil
	case FormatLabel:
		return FormatLabel, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want fps or label)", s)
	}
}

// Console prints one line per report.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	format Format
}

// NewConsole creates a console reporter writing to w.
func NewConsole(w io.Writer, format Format) *Console {
	return &Console{w: w, format: format}
}

// Report implements fps.Reporter.
func (c *Console) Report(r fps.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.format == FormatLabel {
		fmt.Fprintf(c.w, "FPS: %d\n", r.Frames)
		return
	}
	fmt.Fprintf(c.w, "%dfps\n", r.Frames)
}

// Multi fans a report out to several reporters in order.
type Multi []fps.Reporter

// Report implements fps.Reporter.
func (m Multi) Report(r fps.Report) {
	for _, rep := range m {
		if rep != nil {
			rep.Report(r)
		}
	}
}
