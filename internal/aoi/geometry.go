// Package aoi models the camera's area-of-interest geometry and plans a
// hazard-free order for writing geometry changes to hardware.
//
// The four geometry properties are coupled: the hardware recomputes the valid
// range of each one whenever another changes (for example Width's maximum is
// the chip width minus the current OffsetX). A naive write order can push a
// property outside its momentarily valid range and have the device silently
// clamp it. PlanWrites encodes the ordering rules that avoid that.
package aoi

import (
	"errors"
	"fmt"
)

// Geometry property names as exposed by the camera's node map.
const (
	PropOffsetX = "OffsetX"
	PropOffsetY = "OffsetY"
	PropWidth   = "Width"
	PropHeight  = "Height"
)

// MinDimension is the smallest width or height the sensor will accept.
const MinDimension = 4

// ErrInvalidGeometry is wrapped by all Validate failures.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Geometry is a rectangular readout window on the sensor. Offsets are the
// top-left corner of the window within the full frame.
type Geometry struct {
	OffsetX int
	OffsetY int
	Width   int
	Height  int
}

// Derived holds the translated window coordinates used by the parameter
// store. Start/end are one-based and inclusive.
type Derived struct {
	XStart, XEnd, XPixels int
	YStart, YEnd, YPixels int
}

// Validate checks the window against the fixed chip dimensions.
func (g Geometry) Validate(chipWidth, chipHeight int) error {
	if g.OffsetX < 0 || g.OffsetY < 0 {
		return fmt.Errorf("%w: negative offset (%d, %d)", ErrInvalidGeometry, g.OffsetX, g.OffsetY)
	}
	if g.Width < MinDimension || g.Height < MinDimension {
		return fmt.Errorf("%w: window %dx%d below minimum %d", ErrInvalidGeometry, g.Width, g.Height, MinDimension)
	}
	if g.OffsetX+g.Width > chipWidth {
		return fmt.Errorf("%w: offset %d + width %d exceeds chip width %d", ErrInvalidGeometry, g.OffsetX, g.Width, chipWidth)
	}
	if g.OffsetY+g.Height > chipHeight {
		return fmt.Errorf("%w: offset %d + height %d exceeds chip height %d", ErrInvalidGeometry, g.OffsetY, g.Height, chipHeight)
	}
	return nil
}

// Derived translates the window into the start/end/pixels coordinates kept in
// the parameter store. These are recomputed from the window before every
// hardware write; they are never independently settable.
func (g Geometry) Derived() Derived {
	return Derived{
		XStart:  g.OffsetX + 1,
		XEnd:    g.OffsetX + g.Width - 1,
		XPixels: g.Width,
		YStart:  g.OffsetY + 1,
		YEnd:    g.OffsetY + g.Height - 1,
		YPixels: g.Height,
	}
}
