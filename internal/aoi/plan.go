package aoi

// Write is a single hardware property write.
type Write struct {
	Name  string
	Value float64
}

// companions maps each geometry property to the property that must be written
// first when the geometry property is growing. Enlarging a dimension or moving
// an offset outward is only legal once the companion has already been moved or
// resized to its requested value; shrinking needs no preparation.
var companions = map[string]string{
	PropHeight:  PropOffsetY,
	PropOffsetX: PropWidth,
	PropOffsetY: PropHeight,
	PropWidth:   PropOffsetX,
}

// PlanWrites computes the ordered hardware writes for a configuration change.
//
// changed lists the properties whose requested value differs from the current
// one, in the parameter store's natural order; current and requested supply
// values for every changed property and for the four geometry properties
// (companion pre-writes may reference a geometry property that did not itself
// change). Properties are written in the given order. A geometry property
// whose requested value exceeds its current value gets its companion written
// immediately beforehand, at the companion's requested value. Repeat writes of
// the same value are harmless and are not deduplicated.
func PlanWrites(changed []string, current, requested map[string]float64) []Write {
	plan := make([]Write, 0, len(changed)+2)
	for _, name := range changed {
		if companion, ok := companions[name]; ok {
			if requested[name] > current[name] {
				plan = append(plan, Write{Name: companion, Value: requested[companion]})
			}
		}
		plan = append(plan, Write{Name: name, Value: requested[name]})
	}
	return plan
}
