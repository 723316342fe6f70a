package camera

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rigel-imaging/camerad/internal/aoi"
	"github.com/rigel-imaging/camerad/internal/eventlog"
	"github.com/rigel-imaging/camerad/internal/params"
	"github.com/rigel-imaging/camerad/internal/spin"
	"github.com/rigel-imaging/camerad/internal/timeutil"
)

const testChip = 2048

func newTestController(t *testing.T, opts Options, simOpts ...spin.SimOption) (*Controller, *spin.SimCamera) {
	t.Helper()
	cam := spin.NewSimCamera(testChip, testChip, simOpts...)
	ctrl, err := NewController(cam, NewBaseStore(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { ctrl.Close() })
	cam.ResetJournal()
	return ctrl, cam
}

// geometrySets filters a device journal down to the window-property writes.
func geometrySets(journal []spin.JournalEntry) []aoi.Write {
	geometry := map[string]bool{
		aoi.PropOffsetX: true, aoi.PropOffsetY: true,
		aoi.PropWidth: true, aoi.PropHeight: true,
	}
	var out []aoi.Write
	for _, e := range journal {
		if e.Op == "set" && geometry[e.Name] {
			out = append(out, aoi.Write{Name: e.Name, Value: e.Requested})
		}
	}
	return out
}

// setAll applies the given values to a snapshot.
func setAll(t *testing.T, snap *params.Store, values map[string]float64) {
	t.Helper()
	for name, v := range values {
		require.NoError(t, snap.SetV(name, v), "setting %s", name)
	}
}

func TestBringUp(t *testing.T) {
	ctrl, cam := newTestController(t, Options{})

	w, h := ctrl.ChipSize()
	assert.Equal(t, testChip, w)
	assert.Equal(t, testChip, h)

	snap := ctrl.Snapshot()

	intVal := func(name string) int {
		v, err := snap.GetInt(name)
		require.NoError(t, err, name)
		return v
	}
	assert.Equal(t, 4096, intVal("max_intensity"))
	assert.Equal(t, testChip, intVal("x_chip"))
	assert.Equal(t, testChip, intVal("y_chip"))
	assert.Equal(t, testChip, intVal("Width"))
	assert.Equal(t, 0, intVal("OffsetX"))
	assert.Equal(t, 1, intVal("x_start"))
	assert.Equal(t, testChip-1, intVal("x_end"))
	assert.Equal(t, testChip, intVal("x_pixels"))

	// Bring-up hands the device its one-time configuration.
	for node, want := range map[string]string{
		"VideoMode":   "Mode7",
		"PixelFormat": "Mono12Packed",
		"GainAuto":    "Off",
	} {
		n, err := cam.Node(node)
		require.NoError(t, err)
		assert.Equal(t, want, n.Enum, node)
	}
	for _, node := range []string{
		"pgrDefectPixelCorrectionEnable", "SharpnessEnabled", "GammaEnabled",
	} {
		n, err := cam.Node(node)
		require.NoError(t, err)
		assert.False(t, n.Bool(), node)
	}

	// Derived and hardware-backed parameters are locked against editing.
	for _, name := range []string{"exposure_time", "x_start", "x_end", "x_bin"} {
		p, err := snap.GetP(name)
		require.NoError(t, err)
		assert.False(t, p.Mutable(), name)
	}
	for _, name := range []string{"Width", "OffsetX", "AcquisitionFrameRate", "Gain"} {
		p, err := snap.GetP(name)
		require.NoError(t, err)
		assert.True(t, p.Mutable(), name)
	}

	// The exposure is maximized within the 10 fps frame period and mirrored
	// into the store in seconds.
	expo, err := snap.Get("exposure_time")
	require.NoError(t, err)
	assert.InDelta(t, 0.0999, expo, 1e-9)
	fps, err := snap.Get("fps")
	require.NoError(t, err)
	assert.Equal(t, 10.0, fps)
}

func TestBringUpDefectCorrectionStuck(t *testing.T) {
	cam := spin.NewSimCamera(testChip, testChip, spin.WithStuckDefectCorrection())
	_, err := NewController(cam, NewBaseStore(), Options{})
	assert.ErrorIs(t, err, ErrDefectCorrectionStuck)
}

func TestInitRangeExemption(t *testing.T) {
	ctrl, _ := newTestController(t, Options{})

	// After the initializing pass the frame-rate parameter keeps its wide
	// bring-up ceiling even though the hardware's full-frame ceiling is far
	// lower; settings written for a small window must still validate.
	snap := ctrl.Snapshot()
	rate, err := snap.GetP("AcquisitionFrameRate")
	require.NoError(t, err)
	assert.Equal(t, 500.0, rate.Maximum())

	// A steady-state reconciliation republishes the hardware's momentary
	// ceiling instead.
	setAll(t, snap, map[string]float64{
		"OffsetX": 100, "OffsetY": 100, "Width": 500, "Height": 500,
	})
	require.NoError(t, ctrl.ApplyParameters(snap, false))

	after := ctrl.Snapshot()
	rate, err = after.GetP("AcquisitionFrameRate")
	require.NoError(t, err)
	wantCeiling := 30.0 * testChip * testChip / (500.0 * 500.0)
	assert.InDelta(t, wantCeiling, rate.Maximum(), 1e-9)
}

func TestApplyGeometryWriteOrder(t *testing.T) {
	ctrl, cam := newTestController(t, Options{})

	snap := ctrl.Snapshot()
	setAll(t, snap, map[string]float64{
		"OffsetX": 100, "OffsetY": 100, "Width": 500, "Height": 500,
	})
	require.NoError(t, ctrl.ApplyParameters(snap, false))

	// Growing properties get their companion written first; the resulting
	// repeats are idempotent. No write may be clamped by the device.
	want := []aoi.Write{
		{Name: "Height", Value: 500},
		{Name: "Width", Value: 500},
		{Name: "OffsetX", Value: 100},
		{Name: "Height", Value: 500},
		{Name: "OffsetY", Value: 100},
		{Name: "Width", Value: 500},
	}
	if diff := cmp.Diff(want, geometrySets(cam.Journal())); diff != "" {
		t.Errorf("geometry write order mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, cam.ClampedWrites(), "device clamped a write")

	// The store now reflects the new window, its derived coordinates, and
	// the republished coupled bounds.
	after := ctrl.Snapshot()
	for name, wantV := range map[string]int{
		"Width": 500, "Height": 500, "OffsetX": 100, "OffsetY": 100,
		"x_start": 101, "x_end": 599, "x_pixels": 500,
		"y_start": 101, "y_end": 599, "y_pixels": 500,
	} {
		got, err := after.GetInt(name)
		require.NoError(t, err, name)
		assert.Equal(t, wantV, got, name)
	}
	width, err := after.GetP("Width")
	require.NoError(t, err)
	assert.Equal(t, float64(testChip-100), width.Maximum())
	offX, err := after.GetP("OffsetX")
	require.NoError(t, err)
	assert.Equal(t, float64(testChip-500), offX.Maximum())
}

func TestApplyNoChangeTouchesNothing(t *testing.T) {
	ctrl, cam := newTestController(t, Options{})
	_, ch := ctrl.Subscribe()

	require.NoError(t, ctrl.ApplyParameters(ctrl.Snapshot(), false))

	assert.Empty(t, cam.Journal(), "no-op apply touched the device")
	select {
	case <-ch:
		t.Error("no-op apply notified subscribers")
	default:
	}
}

func TestApplyNotifiesExactlyOnce(t *testing.T) {
	ctrl, _ := newTestController(t, Options{})
	id, ch := ctrl.Subscribe()

	snap := ctrl.Snapshot()
	setAll(t, snap, map[string]float64{"Gain": 20})
	require.NoError(t, ctrl.ApplyParameters(snap, false))

	select {
	case <-ch:
	default:
		t.Fatal("no notification after a completed reconciliation")
	}
	select {
	case <-ch:
		t.Error("second notification for a single reconciliation")
	default:
	}

	// After unsubscribing the channel is closed and no further signals
	// arrive.
	ctrl.Unsubscribe(id)
	if _, open := <-ch; open {
		t.Error("channel still open after Unsubscribe")
	}
}

func TestApplyBracketsAcquisition(t *testing.T) {
	ctrl, cam := newTestController(t, Options{})
	require.NoError(t, ctrl.StartAcquisition())
	cam.ResetJournal()

	snap := ctrl.Snapshot()
	setAll(t, snap, map[string]float64{"Width": 1024, "Height": 1024})
	require.NoError(t, ctrl.ApplyParameters(snap, false))

	journal := cam.Journal()
	require.NotEmpty(t, journal)
	assert.Equal(t, "stop", journal[0].Op, "writes must be preceded by a stop")
	assert.Equal(t, "start", journal[len(journal)-1].Op, "acquisition must resume last")
	for _, e := range journal[1 : len(journal)-1] {
		assert.Equal(t, "set", e.Op)
	}
	assert.True(t, ctrl.Running())
}

func TestApplyLeavesStoppedCameraStopped(t *testing.T) {
	ctrl, cam := newTestController(t, Options{})

	snap := ctrl.Snapshot()
	setAll(t, snap, map[string]float64{"Width": 1024})
	require.NoError(t, ctrl.ApplyParameters(snap, false))

	for _, e := range cam.Journal() {
		assert.Equal(t, "set", e.Op, "stopped camera saw a %s", e.Op)
	}
	assert.False(t, ctrl.Running())
}

func TestApplyInvalidGeometry(t *testing.T) {
	ctrl, cam := newTestController(t, Options{})

	snap := ctrl.Snapshot()
	setAll(t, snap, map[string]float64{"OffsetX": 1600, "Width": 500})
	err := ctrl.ApplyParameters(snap, false)
	assert.ErrorIs(t, err, aoi.ErrInvalidGeometry)
	assert.Empty(t, cam.Journal(), "invalid request reached the device")
}

func TestApplyFrameRateChange(t *testing.T) {
	ctrl, cam := newTestController(t, Options{})

	snap := ctrl.Snapshot()
	setAll(t, snap, map[string]float64{"AcquisitionFrameRate": 20})
	require.NoError(t, ctrl.ApplyParameters(snap, false))

	var rateWrites int
	for _, e := range cam.Journal() {
		if e.Op == "set" && e.Name == "AcquisitionFrameRate" {
			rateWrites++
			assert.Equal(t, 20.0, e.Requested)
			assert.False(t, e.Clamped)
		}
	}
	assert.Equal(t, 1, rateWrites)

	// The exposure follows the shorter frame period, stored in seconds.
	after := ctrl.Snapshot()
	expo, err := after.Get("exposure_time")
	require.NoError(t, err)
	assert.InDelta(t, 0.0499, expo, 1e-9)
	fps, err := after.Get("fps")
	require.NoError(t, err)
	assert.Equal(t, 20.0, fps)
}

func TestApplyIsIdempotent(t *testing.T) {
	ctrl, cam := newTestController(t, Options{})

	snap := ctrl.Snapshot()
	setAll(t, snap, map[string]float64{
		"OffsetX": 100, "OffsetY": 100, "Width": 500, "Height": 500,
	})
	require.NoError(t, ctrl.ApplyParameters(snap, false))
	cam.ResetJournal()

	// The same values again: nothing differs, nothing is written.
	require.NoError(t, ctrl.ApplyParameters(ctrl.Snapshot(), false))
	assert.Empty(t, cam.Journal())
}

func TestStartStopIdempotent(t *testing.T) {
	ctrl, cam := newTestController(t, Options{})

	require.NoError(t, ctrl.StartAcquisition())
	require.NoError(t, ctrl.StartAcquisition())
	require.NoError(t, ctrl.StopAcquisition())
	require.NoError(t, ctrl.StopAcquisition())

	want := []spin.JournalEntry{{Op: "start"}, {Op: "stop"}}
	if diff := cmp.Diff(want, cam.Journal()); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}
}

func TestReconciliationEventLog(t *testing.T) {
	log, err := eventlog.Open(":memory:")
	require.NoError(t, err)
	defer log.Close()

	clock := timeutil.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctrl, _ := newTestController(t, Options{Clock: clock, EventLog: log})

	snap := ctrl.Snapshot()
	setAll(t, snap, map[string]float64{
		"OffsetX": 100, "OffsetY": 100, "Width": 500, "Height": 500,
	})
	require.NoError(t, ctrl.ApplyParameters(snap, false))

	records, err := log.Recent(1)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, 4, r.Changed)
	assert.Equal(t, 0, r.Clamped)
	assert.Equal(t, "500x500+100+100", r.Geometry)
	assert.False(t, r.Initializing)

	// The initializing pass was recorded too.
	all, err := log.Recent(10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.True(t, all[1].Initializing)
}
