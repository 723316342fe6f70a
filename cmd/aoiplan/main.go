// Command aoiplan prints the hazard-free hardware write order for a window
// change, for bench debugging of geometry reconfiguration.
//
// Usage:
//
//	aoiplan -chip 2048x2048 -from 0,0,2048,2048 -to 100,100,500,500
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/rigel-imaging/camerad/internal/aoi"
)

var (
	chipFlag = flag.String("chip", "2048x2048", "Chip dimensions as WxH")
	fromFlag = flag.String("from", "", "Current window as offsetX,offsetY,width,height")
	toFlag   = flag.String("to", "", "Requested window as offsetX,offsetY,width,height")
)

func parseChip(s string) (int, int, error) {
	var w, h int
	if _, err := fmt.Sscanf(s, "%dx%d", &w, &h); err != nil {
		return 0, 0, fmt.Errorf("invalid chip %q: %w", s, err)
	}
	return w, h, nil
}

func parseGeometry(s string) (aoi.Geometry, error) {
	var g aoi.Geometry
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return g, fmt.Errorf("invalid window %q: want offsetX,offsetY,width,height", s)
	}
	if _, err := fmt.Sscanf(s, "%d,%d,%d,%d", &g.OffsetX, &g.OffsetY, &g.Width, &g.Height); err != nil {
		return g, fmt.Errorf("invalid window %q: %w", s, err)
	}
	return g, nil
}

func geometryValues(g aoi.Geometry) map[string]float64 {
	return map[string]float64{
		aoi.PropOffsetX: float64(g.OffsetX),
		aoi.PropOffsetY: float64(g.OffsetY),
		aoi.PropWidth:   float64(g.Width),
		aoi.PropHeight:  float64(g.Height),
	}
}

func main() {
	flag.Parse()

	chipW, chipH, err := parseChip(*chipFlag)
	if err != nil {
		log.Fatal(err)
	}
	from, err := parseGeometry(*fromFlag)
	if err != nil {
		log.Fatal(err)
	}
	to, err := parseGeometry(*toFlag)
	if err != nil {
		log.Fatal(err)
	}
	if err := to.Validate(chipW, chipH); err != nil {
		log.Fatalf("requested window is not reachable: %v", err)
	}

	current := geometryValues(from)
	requested := geometryValues(to)

	// Geometry properties in the store's write order.
	var changed []string
	for _, name := range []string{aoi.PropHeight, aoi.PropOffsetX, aoi.PropOffsetY, aoi.PropWidth} {
		if current[name] != requested[name] {
			changed = append(changed, name)
		}
	}

	if len(changed) == 0 {
		fmt.Println("no geometry change; no writes required")
		return
	}

	d := to.Derived()
	fmt.Printf("window %d,%d,%d,%d -> %d,%d,%d,%d (x %d..%d, y %d..%d)\n",
		from.OffsetX, from.OffsetY, from.Width, from.Height,
		to.OffsetX, to.OffsetY, to.Width, to.Height,
		d.XStart, d.XEnd, d.YStart, d.YEnd)
	for i, w := range aoi.PlanWrites(changed, current, requested) {
		fmt.Printf("%2d. %s = %g\n", i+1, w.Name, w.Value)
	}
}
