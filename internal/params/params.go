// Package params implements the typed parameter store shared between the
// camera controller and the surrounding application. Every parameter carries
// declared minimum/maximum bounds and a mutability flag. SetValue enforces the
// bounds; the mutability flag only gates external editing surfaces and is never
// consulted by SetValue itself.
//
// The store preserves insertion order. Iteration order matters to the camera
// controller: hardware writes are issued in the store's natural order.
package params

import (
	"errors"
	"fmt"
	"math"
)

// Kind describes the value type of a parameter.
type Kind int

const (
	// Int parameters round to the nearest integer on SetValue.
	Int Kind = iota
	// Float parameters store the value as provided.
	Float
)

// ErrUnknownParameter is returned when a name has not been registered.
var ErrUnknownParameter = errors.New("unknown parameter")

// ErrDuplicateParameter is returned by Add when the name is already registered.
var ErrDuplicateParameter = errors.New("parameter already registered")

// RangeError reports an attempt to set a value outside a parameter's declared
// bounds.
type RangeError struct {
	Name     string
	Value    float64
	Min, Max float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("value %v for parameter %q outside range [%v, %v]", e.Value, e.Name, e.Min, e.Max)
}

// Spec describes a parameter to register with a Store.
type Spec struct {
	Name        string
	Description string
	Kind        Kind
	Value       float64
	Min, Max    float64
	Mutable     bool
}

// Parameter is a single registered entry. Bounds may be adjusted after
// registration; the camera controller republishes them whenever the hardware's
// valid ranges shift.
type Parameter struct {
	name        string
	description string
	kind        Kind
	value       float64
	min, max    float64
	mutable     bool
}

// Name returns the parameter name.
func (p *Parameter) Name() string { return p.name }

// Description returns the human-readable description.
func (p *Parameter) Description() string { return p.description }

// Kind returns the parameter's value kind.
func (p *Parameter) Kind() Kind { return p.kind }

// Value returns the current value.
func (p *Parameter) Value() float64 { return p.value }

// IntValue returns the current value rounded to an int.
func (p *Parameter) IntValue() int { return int(math.Round(p.value)) }

// Minimum returns the declared lower bound.
func (p *Parameter) Minimum() float64 { return p.min }

// Maximum returns the declared upper bound.
func (p *Parameter) Maximum() float64 { return p.max }

// Mutable reports whether external editors may change this parameter.
func (p *Parameter) Mutable() bool { return p.mutable }

// SetValue updates the value after checking it against the declared bounds.
// Int parameters are rounded to the nearest integer before the check.
func (p *Parameter) SetValue(v float64) error {
	if p.kind == Int {
		v = math.Round(v)
	}
	if v < p.min || v > p.max {
		return &RangeError{Name: p.name, Value: v, Min: p.min, Max: p.max}
	}
	p.value = v
	return nil
}

// SetMaximum replaces the declared upper bound. The current value is left
// untouched even if it now falls outside the bounds.
func (p *Parameter) SetMaximum(v float64) { p.max = v }

// SetMinimum replaces the declared lower bound.
func (p *Parameter) SetMinimum(v float64) { p.min = v }

// SetMutable updates the mutability flag.
func (p *Parameter) SetMutable(b bool) { p.mutable = b }

// Store is an ordered collection of parameters.
type Store struct {
	order  []string
	byName map[string]*Parameter
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{byName: make(map[string]*Parameter)}
}

// Add registers a new parameter. The initial value must fall inside the
// declared bounds.
func (s *Store) Add(spec Spec) error {
	if _, ok := s.byName[spec.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateParameter, spec.Name)
	}
	p := &Parameter{
		name:        spec.Name,
		description: spec.Description,
		kind:        spec.Kind,
		min:         spec.Min,
		max:         spec.Max,
		mutable:     spec.Mutable,
	}
	if err := p.SetValue(spec.Value); err != nil {
		return fmt.Errorf("registering %q: %w", spec.Name, err)
	}
	s.order = append(s.order, spec.Name)
	s.byName[spec.Name] = p
	return nil
}

// Has reports whether the name is registered.
func (s *Store) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// GetP returns the parameter registered under name.
func (s *Store) GetP(name string) (*Parameter, error) {
	p, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	return p, nil
}

// Get returns the current value of the named parameter.
func (s *Store) Get(name string) (float64, error) {
	p, err := s.GetP(name)
	if err != nil {
		return 0, err
	}
	return p.Value(), nil
}

// GetInt returns the current value of the named parameter rounded to an int.
func (s *Store) GetInt(name string) (int, error) {
	p, err := s.GetP(name)
	if err != nil {
		return 0, err
	}
	return p.IntValue(), nil
}

// SetV sets the value of the named parameter, enforcing its bounds.
func (s *Store) SetV(name string, v float64) error {
	p, err := s.GetP(name)
	if err != nil {
		return err
	}
	return p.SetValue(v)
}

// Names returns the registered names in insertion order.
func (s *Store) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Clone returns a deep copy of the store. Snapshots handed to the camera
// controller are clones so that edits do not alter the live store until a
// reconciliation completes.
func (s *Store) Clone() *Store {
	out := NewStore()
	for _, name := range s.order {
		p := *s.byName[name]
		out.order = append(out.order, name)
		out.byName[name] = &p
	}
	return out
}
