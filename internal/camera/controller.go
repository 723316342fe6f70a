// Package camera ties the hardware property interface and the parameter
// store together. The controller owns device bring-up, the geometry
// reconciliation protocol, and the republishing of hardware ranges into the
// store after every accepted configuration change.
package camera

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rigel-imaging/camerad/internal/aoi"
	"github.com/rigel-imaging/camerad/internal/eventlog"
	"github.com/rigel-imaging/camerad/internal/monitoring"
	"github.com/rigel-imaging/camerad/internal/params"
	"github.com/rigel-imaging/camerad/internal/spin"
	"github.com/rigel-imaging/camerad/internal/timeutil"
	"github.com/rigel-imaging/camerad/internal/units"
)

// ErrDefectCorrectionStuck is returned by NewController when the camera
// acknowledges disabling defect-pixel correction but the node still reads
// enabled. Downstream image correctness depends on the feature being off, so
// bring-up refuses to continue.
var ErrDefectCorrectionStuck = errors.New("defect pixel correction did not disable")

// trackedProperties lists the device-backed parameters this controller keeps
// synchronized with the store, in hardware write order. Fixed at bring-up.
var trackedProperties = []string{
	"AcquisitionFrameRate",
	"BlackLevel",
	"Gain",
	"Height",
	"OffsetX",
	"OffsetY",
	"Width",
}

// initRangeExempt names the parameters whose store bounds keep their
// bring-up values during the initializing pass. Settings files loaded later
// are validated against these bounds; narrowing them to the hardware's
// post-reset ranges would reject configurations that are perfectly reachable.
var initRangeExempt = map[string]bool{
	"AcquisitionFrameRate": true,
	"Height":               true,
	"OffsetX":              true,
	"OffsetY":              true,
	"Width":                true,
}

// immutableParams are locked against external editing at bring-up; they are
// derived from other parameters or from hardware read-back.
var immutableParams = []string{
	"exposure_time", "x_bin", "x_end", "x_start", "y_end", "y_start", "y_bin",
}

// clampCounter is implemented by transports that can report device-side
// clamping (the SimCamera journal). Real cameras clamp silently.
type clampCounter interface {
	ClampedWrites() int
}

// Options configures optional controller collaborators.
type Options struct {
	// Clock times reconciliations for the event log. Nil uses real time.
	Clock timeutil.Clock
	// EventLog, when set, receives one record per completed
	// reconciliation.
	EventLog *eventlog.DB
}

// Controller manages one camera. All exported methods are safe for
// concurrent use; a reconfiguration runs to completion before the next may
// begin.
type Controller struct {
	mu    sync.Mutex
	cam   spin.Camera
	store *params.Store
	clock timeutil.Clock
	log   *eventlog.DB

	chipWidth, chipHeight int
	running               bool
	prevClamped           int

	subMu       sync.Mutex
	subscribers map[string]chan struct{}
}

// NewController brings up the device and performs the initial full hardware
// sync. Bring-up is fail-fast: any error aborts construction and the camera
// is left stopped. The store must contain the base parameter set (see
// NewBaseStore); the device-backed parameters are registered here.
func NewController(cam spin.Camera, store *params.Store, opts Options) (*Controller, error) {
	c := &Controller{
		cam:         cam,
		store:       store,
		clock:       opts.Clock,
		log:         opts.EventLog,
		subscribers: make(map[string]chan struct{}),
	}
	if c.clock == nil {
		c.clock = timeutil.NewRealClock()
	}

	if err := c.bringUp(); err != nil {
		return nil, err
	}

	if err := c.ApplyParameters(c.store, true); err != nil {
		return nil, fmt.Errorf("initial hardware sync: %w", err)
	}
	return c, nil
}

// bringUp fixes the one-time device modes and registers the device-backed
// parameters. None of this is revisited during steady-state reconfiguration.
func (c *Controller) bringUp() error {
	// Defect-pixel correction is only reachable in the base video mode.
	if err := c.setNode("VideoMode", "Mode0"); err != nil {
		return err
	}
	if err := c.setNode("pgrDefectPixelCorrectionEnable", false); err != nil {
		return err
	}
	n, err := c.cam.Node("pgrDefectPixelCorrectionEnable")
	if err != nil {
		return fmt.Errorf("reading back defect correction: %w", err)
	}
	if n.Bool() {
		return ErrDefectCorrectionStuck
	}

	if err := c.setNode("PixelFormat", "Mono12Packed"); err != nil {
		return err
	}
	if err := c.setNode("VideoMode", "Mode7"); err != nil {
		return err
	}

	// All automatic features off: the store drives these values.
	for _, name := range []string{
		"AcquisitionFrameRateAuto", "ExposureAuto", "GainAuto", "ExposureCompensationAuto",
	} {
		if err := c.setNode(name, "Off"); err != nil {
			return err
		}
	}
	for _, name := range []string{
		"BlackLevelClampingEnable", "SharpnessEnabled", "GammaEnabled", "OnBoardColorProcessEnabled",
	} {
		if err := c.setNode(name, false); err != nil {
			return err
		}
	}

	// Verify every tracked node is present before registering parameters.
	for _, name := range trackedProperties {
		if _, err := c.cam.Node(name); err != nil {
			return fmt.Errorf("probing tracked node: %w", err)
		}
	}

	// 12-bit acquisition.
	if err := c.store.SetV("max_intensity", 1<<12); err != nil {
		return err
	}

	chipW, err := c.cam.Node("WidthMax")
	if err != nil {
		return fmt.Errorf("reading chip width: %w", err)
	}
	chipH, err := c.cam.Node("HeightMax")
	if err != nil {
		return fmt.Errorf("reading chip height: %w", err)
	}
	c.chipWidth = int(chipW.Int())
	c.chipHeight = int(chipH.Int())

	if err := c.store.SetV("x_chip", float64(c.chipWidth)); err != nil {
		return err
	}
	for _, name := range []string{"x_start", "x_end"} {
		p, err := c.store.GetP(name)
		if err != nil {
			return err
		}
		p.SetMaximum(float64(c.chipWidth))
	}
	if err := c.store.SetV("y_chip", float64(c.chipHeight)); err != nil {
		return err
	}
	for _, name := range []string{"y_start", "y_end"} {
		p, err := c.store.GetP(name)
		if err != nil {
			return err
		}
		p.SetMaximum(float64(c.chipHeight))
	}

	// Reset the window offsets so the offset parameters register with their
	// widest ranges; otherwise the initial ranges would reflect whatever
	// window the device was left with.
	if err := c.setNode("OffsetX", 0); err != nil {
		return err
	}
	if err := c.setNode("OffsetY", 0); err != nil {
		return err
	}

	rateNode, err := c.cam.Node("AcquisitionFrameRate")
	if err != nil {
		return fmt.Errorf("reading frame rate range: %w", err)
	}
	blackNode, err := c.cam.Node("BlackLevel")
	if err != nil {
		return fmt.Errorf("reading black level range: %w", err)
	}
	gainNode, err := c.cam.Node("Gain")
	if err != nil {
		return fmt.Errorf("reading gain range: %w", err)
	}

	specs := []params.Spec{
		// The frame-rate ceiling is a fixed cap rather than the hardware's
		// current maximum: this parameter's bounds survive initialization
		// (see initRangeExempt), and the hardware maximum at full frame
		// would reject the higher rates a smaller window can reach.
		{Name: "AcquisitionFrameRate", Description: "Acquisition frame rate (FPS)", Kind: params.Float,
			Value: 10, Min: rateNode.Min, Max: 500, Mutable: true},
		{Name: "BlackLevel", Description: "Black level", Kind: params.Float,
			Value: 1, Min: blackNode.Min, Max: blackNode.Max, Mutable: true},
		{Name: "Gain", Description: "Gain", Kind: params.Float,
			Value: 10, Min: gainNode.Min, Max: gainNode.Max, Mutable: true},
		{Name: "Height", Description: "AOI height", Kind: params.Int,
			Value: float64(c.chipHeight), Min: aoi.MinDimension, Max: float64(c.chipHeight), Mutable: true},
		{Name: "OffsetX", Description: "AOI x offset", Kind: params.Int,
			Value: 0, Min: 0, Max: float64(c.chipWidth - aoi.MinDimension), Mutable: true},
		{Name: "OffsetY", Description: "AOI y offset", Kind: params.Int,
			Value: 0, Min: 0, Max: float64(c.chipHeight - aoi.MinDimension), Mutable: true},
		{Name: "Width", Description: "AOI width", Kind: params.Int,
			Value: float64(c.chipWidth), Min: aoi.MinDimension, Max: float64(c.chipWidth), Mutable: true},
	}
	for _, spec := range specs {
		if err := c.store.Add(spec); err != nil {
			return err
		}
	}

	for _, name := range immutableParams {
		p, err := c.store.GetP(name)
		if err != nil {
			return err
		}
		p.SetMutable(false)
	}
	return nil
}

// setNode writes a hardware node with error context.
func (c *Controller) setNode(name string, v any) error {
	if err := c.cam.Set(name, v); err != nil {
		return fmt.Errorf("writing node %s: %w", name, err)
	}
	return nil
}

// ApplyParameters reconciles a requested parameter snapshot against the
// hardware. When initializing is true every tracked property is treated as
// changed, forcing a full sync regardless of equality.
//
// If at least one tracked property differs: acquisition is stopped when
// running, the changed properties are written in a hazard-free order,
// hardware ranges are republished into the store, acquisition is restarted
// if it was running, and subscribers are notified exactly once. If nothing
// differs the hardware is not touched and no notification fires. Errors
// propagate to the caller; a failure mid-sequence leaves the device stopped.
func (c *Controller) ApplyParameters(requested *params.Store, initializing bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.clock.Now()

	g, err := geometryFromStore(requested)
	if err != nil {
		return err
	}
	if err := g.Validate(c.chipWidth, c.chipHeight); err != nil {
		return err
	}

	// Re-derive the translated window coordinates before any hardware
	// write. These are computed, never independently settable.
	if err := applyDerived(requested, g.Derived()); err != nil {
		return err
	}

	current := make(map[string]float64, len(trackedProperties))
	requestedVals := make(map[string]float64, len(trackedProperties))
	var changed []string
	for _, name := range trackedProperties {
		cur, err := c.store.Get(name)
		if err != nil {
			return err
		}
		req, err := requested.Get(name)
		if err != nil {
			return err
		}
		current[name] = cur
		requestedVals[name] = req
		if initializing || cur != req {
			changed = append(changed, name)
		}
	}

	if len(changed) == 0 {
		return nil
	}

	running := c.running
	if running {
		if err := c.cam.StopAcquisition(); err != nil {
			return fmt.Errorf("stopping acquisition: %w", err)
		}
		c.running = false
	}

	plan := aoi.PlanWrites(changed, current, requestedVals)
	for _, w := range plan {
		if err := c.setNode(w.Name, w.Value); err != nil {
			return err
		}
	}

	// The snapshot is now the hardware state; adopt its window into the
	// live store before republishing hardware values on top.
	if err := applyDerived(c.store, g.Derived()); err != nil {
		return err
	}

	if err := c.republishRanges(initializing); err != nil {
		return err
	}

	if running {
		if err := c.cam.StartAcquisition(); err != nil {
			return fmt.Errorf("restarting acquisition: %w", err)
		}
		c.running = true
	}

	c.recordReconciliation(g, len(changed), initializing, start)
	c.notifyParametersChanged()
	return nil
}

// republishRanges refreshes the store's declared bounds for every tracked
// property from the hardware's momentary ranges and pushes the hardware's
// current value back into the store. During the initializing pass the five
// exempt parameters keep their bring-up bounds (their hardware values were
// still written).
func (c *Controller) republishRanges(initializing bool) error {
	for _, name := range trackedProperties {
		if initializing && initRangeExempt[name] {
			continue
		}
		node, err := c.cam.Node(name)
		if err != nil {
			return fmt.Errorf("refreshing range of %s: %w", name, err)
		}
		p, err := c.store.GetP(name)
		if err != nil {
			return err
		}
		p.SetMaximum(node.Max)
		p.SetMinimum(node.Min)
		if err := p.SetValue(node.Value); err != nil {
			return fmt.Errorf("republishing %s: %w", name, err)
		}
	}

	// Use the longest exposure the current frame rate allows, then read
	// back what the device actually settled on.
	expo, err := c.cam.Node("ExposureTime")
	if err != nil {
		return fmt.Errorf("reading exposure range: %w", err)
	}
	if err := c.setNode("ExposureTime", expo.Max); err != nil {
		return err
	}
	expo, err = c.cam.Node("ExposureTime")
	if err != nil {
		return fmt.Errorf("reading back exposure: %w", err)
	}
	if err := c.store.SetV("exposure_time", units.MicrosecondsToSeconds(expo.Value)); err != nil {
		return err
	}

	rate, err := c.cam.Node("AcquisitionFrameRate")
	if err != nil {
		return fmt.Errorf("reading back frame rate: %w", err)
	}
	if err := c.store.SetV("fps", rate.Value); err != nil {
		return err
	}
	return nil
}

// recordReconciliation appends an event log record; logging failures are
// reported but never fail the reconciliation itself.
func (c *Controller) recordReconciliation(g aoi.Geometry, changed int, initializing bool, start time.Time) {
	if c.log == nil {
		return
	}
	clamped := 0
	if cc, ok := c.cam.(clampCounter); ok {
		total := cc.ClampedWrites()
		clamped = total - c.prevClamped
		c.prevClamped = total
	}
	err := c.log.RecordReconciliation(eventlog.Record{
		Changed:      changed,
		Clamped:      clamped,
		DurationMS:   float64(c.clock.Since(start)) / float64(time.Millisecond),
		Geometry:     fmt.Sprintf("%dx%d+%d+%d", g.Width, g.Height, g.OffsetX, g.OffsetY),
		Initializing: initializing,
	})
	if err != nil {
		monitoring.Logf("failed to record reconciliation: %v", err)
	}
}

// notifyParametersChanged emits the zero-argument change notification to all
// subscribers without blocking.
func (c *Controller) notifyParametersChanged() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribe registers for parameters-changed notifications. The returned
// channel receives one (possibly coalesced) signal per completed
// reconciliation.
func (c *Controller) Subscribe() (string, <-chan struct{}) {
	id := uuid.NewString()
	ch := make(chan struct{}, 1)
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a notification subscriber.
func (c *Controller) Unsubscribe(id string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if ch, ok := c.subscribers[id]; ok {
		close(ch)
		delete(c.subscribers, id)
	}
}

// StartAcquisition begins streaming.
func (c *Controller) StartAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}
	if err := c.cam.StartAcquisition(); err != nil {
		return fmt.Errorf("starting acquisition: %w", err)
	}
	c.running = true
	return nil
}

// StopAcquisition halts streaming.
func (c *Controller) StopAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	if err := c.cam.StopAcquisition(); err != nil {
		return fmt.Errorf("stopping acquisition: %w", err)
	}
	c.running = false
	return nil
}

// Running reports whether acquisition is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Snapshot returns an editable copy of the live parameter store.
func (c *Controller) Snapshot() *params.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Clone()
}

// ChipSize returns the fixed sensor dimensions.
func (c *Controller) ChipSize() (width, height int) {
	return c.chipWidth, c.chipHeight
}

// Close releases the camera transport.
func (c *Controller) Close() error {
	return c.cam.Close()
}

// geometryFromStore assembles the window from the four geometry parameters.
func geometryFromStore(s *params.Store) (aoi.Geometry, error) {
	var g aoi.Geometry
	var err error
	if g.OffsetX, err = s.GetInt("OffsetX"); err != nil {
		return g, err
	}
	if g.OffsetY, err = s.GetInt("OffsetY"); err != nil {
		return g, err
	}
	if g.Width, err = s.GetInt("Width"); err != nil {
		return g, err
	}
	if g.Height, err = s.GetInt("Height"); err != nil {
		return g, err
	}
	return g, nil
}

// applyDerived writes the translated window coordinates into a store.
func applyDerived(s *params.Store, d aoi.Derived) error {
	for _, kv := range []struct {
		name  string
		value int
	}{
		{"x_end", d.XEnd},
		{"x_pixels", d.XPixels},
		{"x_start", d.XStart},
		{"y_end", d.YEnd},
		{"y_pixels", d.YPixels},
		{"y_start", d.YStart},
	} {
		if err := s.SetV(kv.name, float64(kv.value)); err != nil {
			return err
		}
	}
	return nil
}
