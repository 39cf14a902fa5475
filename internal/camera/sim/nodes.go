package sim

import (
	"math"
	"slices"
	"strings"

	"github.com/smazurov/camspeed/internal/camera"
)

// guard returns an error when a node may not be written right now.
type guard func(name string) error

type intNode struct {
	name  string
	value int64
	min   func() int64
	max   func() int64
	inc   int64
	guard guard
}

func (n *intNode) Name() string { return n.name }
func (n *intNode) Value() int64 { return n.value }
func (n *intNode) Min() int64   { return n.min() }
func (n *intNode) Max() int64   { return n.max() }
func (n *intNode) Inc() int64   { return n.inc }

func (n *intNode) SetValue(v int64) error {
	if err := n.guard(n.name); err != nil {
		return err
	}
	if v < n.min() || v > n.max() {
		return camera.NewNodeError(camera.CodeOutOfRange, n.name, rangeMessage(float64(v), float64(n.min()), float64(n.max())))
	}
	if n.inc > 1 && (v-n.min())%n.inc != 0 {
		return camera.NewNodeError(camera.CodeOutOfRange, n.name, "value is not a multiple of the increment")
	}
	n.value = v
	return nil
}

type floatNode struct {
	name  string
	unit  string
	value float64
	min   float64
	max   float64
	guard guard
}

func (n *floatNode) Name() string   { return n.name }
func (n *floatNode) Value() float64 { return n.value }
func (n *floatNode) Min() float64   { return n.min }
func (n *floatNode) Max() float64   { return n.max }
func (n *floatNode) Unit() string   { return n.unit }

func (n *floatNode) SetValue(v float64) error {
	if err := n.guard(n.name); err != nil {
		return err
	}
	if math.IsNaN(v) || v < n.min || v > n.max {
		return camera.NewNodeError(camera.CodeOutOfRange, n.name, rangeMessage(v, n.min, n.max))
	}
	n.value = v
	return nil
}

// readOnlyFloat is a computed float feature.
type readOnlyFloat struct {
	name  string
	unit  string
	value func() float64
}

func (n *readOnlyFloat) Name() string   { return n.name }
func (n *readOnlyFloat) Value() float64 { return n.value() }
func (n *readOnlyFloat) Min() float64   { return 0 }
func (n *readOnlyFloat) Max() float64   { return math.MaxFloat64 }
func (n *readOnlyFloat) Unit() string   { return n.unit }

func (n *readOnlyFloat) SetValue(float64) error {
	return camera.NewNodeError(camera.CodeNotWritable, n.name, "node is read-only")
}

type enumNode struct {
	name    string
	entries []string
	current string
	guard   guard
}

func (n *enumNode) Name() string      { return n.name }
func (n *enumNode) Symbolic() string  { return n.current }
func (n *enumNode) Entries() []string { return slices.Clone(n.entries) }

func (n *enumNode) SetSymbolic(entry string) error {
	if !slices.Contains(n.entries, entry) {
		return camera.NewNodeError(camera.CodeInvalidEntry, n.name,
			"unknown entry "+entry+" (valid: "+strings.Join(n.entries, ", ")+")")
	}
	if err := n.guard(n.name); err != nil {
		return err
	}
	n.current = entry
	return nil
}

type stringNode struct {
	name  string
	value string
}

func (n *stringNode) Name() string  { return n.name }
func (n *stringNode) Value() string { return n.value }

// nodeMap is the feature tree of one simulated camera.
type nodeMap struct {
	integers     map[string]*intNode
	floats       map[string]camera.FloatNode
	enumerations map[string]*enumNode
	strings      map[string]*stringNode
}

func (m *nodeMap) Integer(name string) (camera.IntegerNode, error) {
	if n, ok := m.integers[name]; ok {
		return n, nil
	}
	return nil, notFound(name)
}

func (m *nodeMap) Float(name string) (camera.FloatNode, error) {
	if n, ok := m.floats[name]; ok {
		return n, nil
	}
	return nil, notFound(name)
}

func (m *nodeMap) Enumeration(name string) (camera.EnumerationNode, error) {
	if n, ok := m.enumerations[name]; ok {
		return n, nil
	}
	return nil, notFound(name)
}

func (m *nodeMap) String(name string) (camera.StringNode, error) {
	if n, ok := m.strings[name]; ok {
		return n, nil
	}
	return nil, notFound(name)
}

func (m *nodeMap) intValue(name string) int64 { return m.integers[name].value }

func (m *nodeMap) floatValue(name string) float64 { return m.floats[name].Value() }

func (m *nodeMap) enumValue(name string) string { return m.enumerations[name].current }

func notFound(name string) error {
	return camera.NewNodeError(camera.CodeNodeNotFound, name, "feature not implemented by device")
}

func rangeMessage(v, lo, hi float64) string {
	return "value " + formatNumber(v) + " outside [" + formatNumber(lo) + ", " + formatNumber(hi) + "]"
}
