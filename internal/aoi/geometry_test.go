package aoi

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	const chipW, chipH = 2048, 1536

	tests := []struct {
		name string
		g    Geometry
		ok   bool
	}{
		{"full frame", Geometry{0, 0, 2048, 1536}, true},
		{"interior window", Geometry{100, 100, 500, 500}, true},
		{"minimum window", Geometry{2044, 1532, 4, 4}, true},
		{"negative offset", Geometry{-1, 0, 500, 500}, false},
		{"width below minimum", Geometry{0, 0, 2, 500}, false},
		{"height below minimum", Geometry{0, 0, 500, 3}, false},
		{"overflows right edge", Geometry{1600, 0, 500, 500}, false},
		{"overflows bottom edge", Geometry{0, 1100, 500, 500}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.g.Validate(chipW, chipH)
			if tt.ok && err != nil {
				t.Errorf("Validate(%+v) = %v, want nil", tt.g, err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatalf("Validate(%+v) = nil, want error", tt.g)
				}
				if !errors.Is(err, ErrInvalidGeometry) {
					t.Errorf("Validate(%+v) = %v, not wrapped in ErrInvalidGeometry", tt.g, err)
				}
			}
		})
	}
}

func TestDerived(t *testing.T) {
	d := Geometry{OffsetX: 100, OffsetY: 200, Width: 500, Height: 300}.Derived()

	want := Derived{
		XStart: 101, XEnd: 599, XPixels: 500,
		YStart: 201, YEnd: 499, YPixels: 300,
	}
	if d != want {
		t.Errorf("Derived() = %+v, want %+v", d, want)
	}
}

func TestDerivedFullFrame(t *testing.T) {
	d := Geometry{Width: 2048, Height: 2048}.Derived()
	if d.XStart != 1 || d.YStart != 1 {
		t.Errorf("full-frame start = (%d, %d), want (1, 1)", d.XStart, d.YStart)
	}
	if d.XEnd != 2047 || d.YEnd != 2047 {
		t.Errorf("full-frame end = (%d, %d), want (2047, 2047)", d.XEnd, d.YEnd)
	}
}
