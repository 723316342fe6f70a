package camera

import (
	"fmt"

	"github.com/rigel-imaging/camerad/internal/params"
)

// placeholderChip bounds the window coordinate parameters until bring-up has
// read the real chip dimensions from hardware.
const placeholderChip = 65536

// NewBaseStore builds the generic camera parameter set the surrounding
// application expects from every camera type. The controller registers the
// device-backed parameters on top of these during bring-up and tightens the
// coordinate bounds to the real chip size.
func NewBaseStore() *params.Store {
	s := params.NewStore()
	specs := []params.Spec{
		{Name: "max_intensity", Description: "Maximum pixel intensity", Kind: params.Int, Value: 255, Min: 0, Max: placeholderChip, Mutable: false},
		{Name: "x_chip", Description: "Sensor chip width", Kind: params.Int, Value: 0, Min: 0, Max: placeholderChip, Mutable: false},
		{Name: "y_chip", Description: "Sensor chip height", Kind: params.Int, Value: 0, Min: 0, Max: placeholderChip, Mutable: false},
		{Name: "exposure_time", Description: "Exposure time (seconds)", Kind: params.Float, Value: 0.1, Min: 0, Max: 1000, Mutable: true},
		{Name: "fps", Description: "Acquisition rate (frames/second)", Kind: params.Float, Value: 10, Min: 0, Max: 10000, Mutable: true},
		{Name: "x_start", Description: "AOI x start", Kind: params.Int, Value: 1, Min: 1, Max: placeholderChip, Mutable: true},
		{Name: "x_end", Description: "AOI x end", Kind: params.Int, Value: 512, Min: 1, Max: placeholderChip, Mutable: true},
		{Name: "y_start", Description: "AOI y start", Kind: params.Int, Value: 1, Min: 1, Max: placeholderChip, Mutable: true},
		{Name: "y_end", Description: "AOI y end", Kind: params.Int, Value: 512, Min: 1, Max: placeholderChip, Mutable: true},
		{Name: "x_pixels", Description: "AOI width in pixels", Kind: params.Int, Value: 512, Min: 0, Max: placeholderChip, Mutable: false},
		{Name: "y_pixels", Description: "AOI height in pixels", Kind: params.Int, Value: 512, Min: 0, Max: placeholderChip, Mutable: false},
		{Name: "x_bin", Description: "AOI x binning", Kind: params.Int, Value: 1, Min: 1, Max: 4, Mutable: true},
		{Name: "y_bin", Description: "AOI y binning", Kind: params.Int, Value: 1, Min: 1, Max: 4, Mutable: true},
	}
	for _, spec := range specs {
		if err := s.Add(spec); err != nil {
			// The set above is static; a failure here is a programming error.
			panic(fmt.Sprintf("registering base parameter: %v", err))
		}
	}
	return s
}
