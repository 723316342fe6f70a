package spin

import (
	"fmt"
	"math"
	"sync"
)

const (
	// minDimension is the smallest width/height the device accepts.
	minDimension = 4
	// baseFrameRate is the full-frame frame-rate ceiling; readout of a
	// smaller window raises the ceiling proportionally.
	baseFrameRate = 30.0
	// readoutOverheadUS is subtracted from the frame period to form the
	// exposure-time ceiling.
	readoutOverheadUS = 100.0
	exposureMinUS     = 10.0
)

// JournalEntry records one device operation. Requested/Applied/Clamped are
// populated for numeric sets only.
type JournalEntry struct {
	Op        string // "set", "start" or "stop"
	Name      string
	Requested float64
	Applied   float64
	Clamped   bool
}

// SimOption customises a SimCamera.
type SimOption func(*SimCamera)

// WithStuckDefectCorrection makes the defect-pixel correction node ignore
// writes, reproducing the firmware fault the bring-up verification exists to
// catch.
func WithStuckDefectCorrection() SimOption {
	return func(c *SimCamera) { c.stuckDefectCorrection = true }
}

// SimCamera is an in-memory device model implementing Camera. It reproduces
// the coupled dynamic ranges of the real sensor: each geometry node's bounds
// depend on the current value of its companion, the exposure ceiling follows
// the frame rate, and the frame-rate ceiling follows the window area. Numeric
// writes outside the momentarily valid range are silently clamped, exactly as
// the hardware does, and every operation is journaled so tests can assert on
// write order and clamping.
type SimCamera struct {
	mu sync.Mutex

	chipW, chipH int64

	offsetX, offsetY, width, height int64
	frameRate, blackLevel, gain     float64
	exposure                        float64

	enums map[string]string
	flags map[string]bool

	stuckDefectCorrection bool
	acquiring             bool
	journal               []JournalEntry
}

// NewSimCamera returns a device model with the given chip dimensions, a
// full-frame window, and factory-default modes (auto features on, on-board
// processing on).
func NewSimCamera(chipWidth, chipHeight int, opts ...SimOption) *SimCamera {
	c := &SimCamera{
		chipW:     int64(chipWidth),
		chipH:     int64(chipHeight),
		width:     int64(chipWidth),
		height:    int64(chipHeight),
		frameRate: 10,
		enums: map[string]string{
			"VideoMode":                "Mode0",
			"PixelFormat":              "Mono8",
			"AcquisitionFrameRateAuto": "Continuous",
			"ExposureAuto":             "Continuous",
			"GainAuto":                 "Continuous",
			"ExposureCompensationAuto": "Continuous",
		},
		flags: map[string]bool{
			"pgrDefectPixelCorrectionEnable": true,
			"BlackLevelClampingEnable":       true,
			"SharpnessEnabled":               true,
			"GammaEnabled":                   true,
			"OnBoardColorProcessEnabled":     true,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.exposure = c.exposureCeiling()
	return c
}

// rangeFor returns the momentarily valid bounds for a numeric node. Callers
// must hold mu.
func (c *SimCamera) rangeFor(name string) (min, max float64) {
	switch name {
	case "OffsetX":
		return 0, float64(c.chipW - c.width)
	case "OffsetY":
		return 0, float64(c.chipH - c.height)
	case "Width":
		return minDimension, float64(c.chipW - c.offsetX)
	case "Height":
		return minDimension, float64(c.chipH - c.offsetY)
	case "AcquisitionFrameRate":
		return 1, c.frameRateCeiling()
	case "BlackLevel":
		return 0, 25
	case "Gain":
		return 0, 47.99
	case "ExposureTime":
		return exposureMinUS, c.exposureCeiling()
	case "WidthMax":
		return float64(c.chipW), float64(c.chipW)
	case "HeightMax":
		return float64(c.chipH), float64(c.chipH)
	}
	return 0, 0
}

func (c *SimCamera) frameRateCeiling() float64 {
	chipArea := float64(c.chipW * c.chipH)
	roiArea := float64(c.width * c.height)
	return baseFrameRate * chipArea / roiArea
}

func (c *SimCamera) exposureCeiling() float64 {
	return 1e6/c.frameRate - readoutOverheadUS
}

// valueFor returns the current value of a numeric node. Callers must hold mu.
func (c *SimCamera) valueFor(name string) float64 {
	switch name {
	case "OffsetX":
		return float64(c.offsetX)
	case "OffsetY":
		return float64(c.offsetY)
	case "Width":
		return float64(c.width)
	case "Height":
		return float64(c.height)
	case "AcquisitionFrameRate":
		return c.frameRate
	case "BlackLevel":
		return c.blackLevel
	case "Gain":
		return c.gain
	case "ExposureTime":
		return c.exposure
	case "WidthMax":
		return float64(c.chipW)
	case "HeightMax":
		return float64(c.chipH)
	}
	return 0
}

// Node implements Camera.
func (c *SimCamera) Node(name string) (Node, error) {
	spec, ok := lookupNode(name)
	if !ok {
		return Node{}, fmt.Errorf("%w: %q", ErrUnknownNode, name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	n := Node{Name: name, Kind: spec.kind}
	switch spec.kind {
	case KindEnum:
		n.Enum = c.enums[name]
	case KindBool:
		if c.flags[name] {
			n.Value = 1
		}
	default:
		n.Value = c.valueFor(name)
		n.Min, n.Max = c.rangeFor(name)
	}
	return n, nil
}

// Set implements Camera. Numeric values outside the momentarily valid range
// are clamped without error.
func (c *SimCamera) Set(name string, value any) error {
	spec, ok := lookupNode(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, name)
	}
	if !spec.writable {
		return fmt.Errorf("%w: %q", ErrNodeNotWritable, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if spec.streamLocked && c.acquiring {
		return fmt.Errorf("%w: %q", ErrBusy, name)
	}

	switch spec.kind {
	case KindEnum:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %q wants string, got %T", ErrBadValueType, name, value)
		}
		c.enums[name] = s
		return nil

	case KindBool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: %q wants bool, got %T", ErrBadValueType, name, value)
		}
		if name == "pgrDefectPixelCorrectionEnable" && c.stuckDefectCorrection {
			// Firmware fault mode: the write is acknowledged but the
			// node keeps its previous value.
			return nil
		}
		c.flags[name] = b
		return nil
	}

	v, err := numericValue(value)
	if err != nil {
		return fmt.Errorf("node %q: %w", name, err)
	}
	if spec.kind == KindInt {
		v = math.Round(v)
	}

	min, max := c.rangeFor(name)
	applied := v
	if applied < min {
		applied = min
	}
	if applied > max {
		applied = max
	}
	if spec.kind == KindInt {
		applied = math.Round(applied)
	}

	c.journal = append(c.journal, JournalEntry{
		Op:        "set",
		Name:      name,
		Requested: v,
		Applied:   applied,
		Clamped:   applied != v,
	})

	switch name {
	case "OffsetX":
		c.offsetX = int64(applied)
	case "OffsetY":
		c.offsetY = int64(applied)
	case "Width":
		c.width = int64(applied)
	case "Height":
		c.height = int64(applied)
	case "AcquisitionFrameRate":
		c.frameRate = applied
		// The device re-clamps the exposure into the new frame period.
		if ceil := c.exposureCeiling(); c.exposure > ceil {
			c.exposure = ceil
		}
	case "BlackLevel":
		c.blackLevel = applied
	case "Gain":
		c.gain = applied
	case "ExposureTime":
		c.exposure = applied
	}
	return nil
}

// StartAcquisition implements Camera.
func (c *SimCamera) StartAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquiring = true
	c.journal = append(c.journal, JournalEntry{Op: "start"})
	return nil
}

// StopAcquisition implements Camera.
func (c *SimCamera) StopAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquiring = false
	c.journal = append(c.journal, JournalEntry{Op: "stop"})
	return nil
}

// Acquiring implements Camera.
func (c *SimCamera) Acquiring() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquiring
}

// Close implements Camera.
func (c *SimCamera) Close() error { return nil }

// Journal returns a copy of the recorded operations.
func (c *SimCamera) Journal() []JournalEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]JournalEntry, len(c.journal))
	copy(out, c.journal)
	return out
}

// ResetJournal clears the recorded operations.
func (c *SimCamera) ResetJournal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.journal = nil
}

// ClampedWrites returns the number of journaled sets the device clamped.
func (c *SimCamera) ClampedWrites() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.journal {
		if e.Clamped {
			n++
		}
	}
	return n
}

// numericValue coerces the accepted numeric Set types to float64.
func numericValue(value any) (float64, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	}
	return 0, fmt.Errorf("%w: got %T", ErrBadValueType, value)
}
