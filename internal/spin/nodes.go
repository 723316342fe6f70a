package spin

// nodeSpec describes a single entry in the camera's node map.
type nodeSpec struct {
	kind NodeKind
	// writable is false for nodes the device computes itself.
	writable bool
	// streamLocked nodes reject writes while acquisition is running.
	streamLocked bool
}

// nodeTable is the set of nodes the controller touches. Names follow the
// vendor node map.
var nodeTable = map[string]nodeSpec{
	// One-time device modes, set during bring-up only.
	"VideoMode":   {kind: KindEnum, writable: true}, // readout mode; Mode0 required to reach defect correction
	"PixelFormat": {kind: KindEnum, writable: true}, // Mono12Packed for 12-bit acquisition

	// Automatic features; all forced Off so the store drives the values.
	"AcquisitionFrameRateAuto": {kind: KindEnum, writable: true},
	"ExposureAuto":             {kind: KindEnum, writable: true},
	"GainAuto":                 {kind: KindEnum, writable: true},
	"ExposureCompensationAuto": {kind: KindEnum, writable: true},

	// On-board processing; disabled at bring-up. Defect correction must
	// read back false afterwards.
	"pgrDefectPixelCorrectionEnable": {kind: KindBool, writable: true},
	"BlackLevelClampingEnable":       {kind: KindBool, writable: true},
	"SharpnessEnabled":               {kind: KindBool, writable: true},
	"GammaEnabled":                   {kind: KindBool, writable: true},
	"OnBoardColorProcessEnabled":     {kind: KindBool, writable: true},

	// Tracked properties, synchronized with the parameter store.
	"AcquisitionFrameRate": {kind: KindFloat, writable: true},
	"BlackLevel":           {kind: KindFloat, writable: true},
	"Gain":                 {kind: KindFloat, writable: true},
	"Height":               {kind: KindInt, writable: true, streamLocked: true},
	"OffsetX":              {kind: KindInt, writable: true, streamLocked: true},
	"OffsetY":              {kind: KindInt, writable: true, streamLocked: true},
	"Width":                {kind: KindInt, writable: true, streamLocked: true},

	// Device-computed values.
	"WidthMax":     {kind: KindInt},
	"HeightMax":    {kind: KindInt},
	"ExposureTime": {kind: KindFloat, writable: true}, // microseconds
}

// lookupNode returns the node map entry for a name.
func lookupNode(name string) (nodeSpec, bool) {
	spec, ok := nodeTable[name]
	return spec, ok
}
