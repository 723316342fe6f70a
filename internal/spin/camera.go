// Package spin provides access to the camera's GenICam-style property node
// map. Two implementations exist: SerialCamera talks to a real camera over
// its UART control channel, and SimCamera is an in-memory device model used
// for dev mode and tests.
//
// Node minimum/maximum values are dynamic: the device recomputes them whenever
// a related property changes. Callers must re-fetch a node after any related
// Set before relying on its bounds.
package spin

import (
	"errors"
	"math"
)

var (
	// ErrUnknownNode is returned for a name not present in the node map.
	ErrUnknownNode = errors.New("unknown node")
	// ErrNodeNotWritable is returned by Set on a read-only node.
	ErrNodeNotWritable = errors.New("node is not writable")
	// ErrBusy is returned when a geometry node is written while acquisition
	// is running.
	ErrBusy = errors.New("node is locked while acquiring")
	// ErrBadValueType is returned when the value passed to Set does not
	// match the node's kind.
	ErrBadValueType = errors.New("value type does not match node kind")
)

// NodeKind describes the value type of a node.
type NodeKind int

const (
	KindInt NodeKind = iota
	KindFloat
	KindBool
	KindEnum
)

// Node is a snapshot of a single property: its current value and the bounds
// that were valid at the moment it was read. Numeric kinds use Value; enum
// kinds use Enum; bool kinds use Value as 0 or 1.
type Node struct {
	Name     string
	Kind     NodeKind
	Value    float64
	Enum     string
	Min, Max float64
}

// Int returns the node value rounded to an int64.
func (n Node) Int() int64 { return int64(math.Round(n.Value)) }

// Bool returns the node value interpreted as a boolean.
func (n Node) Bool() bool { return n.Value != 0 }

// Camera is the device-side property interface. Set may clamp numeric values
// into the momentarily valid range without reporting an error; that is the
// documented device behaviour, not a transport defect.
type Camera interface {
	// Node reads the named property together with its current bounds.
	Node(name string) (Node, error)
	// Set writes a property. Accepted value types are int, int64 and
	// float64 for numeric nodes, bool for boolean nodes, and string for
	// enumeration nodes.
	Set(name string, value any) error
	// StartAcquisition begins streaming frames.
	StartAcquisition() error
	// StopAcquisition halts streaming.
	StopAcquisition() error
	// Acquiring reports whether the device is streaming.
	Acquiring() bool
	// Close releases the transport.
	Close() error
}
