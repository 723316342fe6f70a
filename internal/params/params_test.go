package params

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	specs := []Spec{
		{Name: "fps", Kind: Float, Value: 10, Min: 1, Max: 30, Mutable: true},
		{Name: "Width", Kind: Int, Value: 2048, Min: 4, Max: 2048, Mutable: true},
		{Name: "x_start", Kind: Int, Value: 1, Min: 1, Max: 2048},
	}
	for _, spec := range specs {
		if err := s.Add(spec); err != nil {
			t.Fatalf("Add(%q): %v", spec.Name, err)
		}
	}
	return s
}

func TestStoreOrderPreserved(t *testing.T) {
	s := newTestStore(t)
	want := []string{"fps", "Width", "x_start"}
	if diff := cmp.Diff(want, s.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestAddDuplicate(t *testing.T) {
	s := newTestStore(t)
	err := s.Add(Spec{Name: "fps", Kind: Float, Value: 5, Min: 1, Max: 30})
	if !errors.Is(err, ErrDuplicateParameter) {
		t.Errorf("Add duplicate = %v, want ErrDuplicateParameter", err)
	}
}

func TestAddInitialValueOutOfRange(t *testing.T) {
	s := NewStore()
	err := s.Add(Spec{Name: "Gain", Kind: Float, Value: 100, Min: 0, Max: 47.99})
	var re *RangeError
	if !errors.As(err, &re) {
		t.Fatalf("Add out-of-range initial value = %v, want RangeError", err)
	}
	if s.Has("Gain") {
		t.Error("failed Add still registered the parameter")
	}
}

func TestSetValueBounds(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetV("fps", 25); err != nil {
		t.Fatalf("SetV in range: %v", err)
	}
	got, err := s.Get("fps")
	if err != nil || got != 25 {
		t.Errorf("Get(fps) = %v, %v, want 25, nil", got, err)
	}

	err = s.SetV("fps", 31)
	var re *RangeError
	if !errors.As(err, &re) {
		t.Fatalf("SetV(31) = %v, want RangeError", err)
	}
	if re.Name != "fps" || re.Value != 31 || re.Min != 1 || re.Max != 30 {
		t.Errorf("RangeError = %+v", re)
	}
	if got, _ := s.Get("fps"); got != 25 {
		t.Errorf("value changed after rejected set: %v", got)
	}
}

func TestIntRounding(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetV("Width", 1023.6); err != nil {
		t.Fatalf("SetV: %v", err)
	}
	got, err := s.GetInt("Width")
	if err != nil || got != 1024 {
		t.Errorf("GetInt(Width) = %v, %v, want 1024, nil", got, err)
	}

	// Rounding happens before the bounds check: 2048.4 rounds to the maximum.
	if err := s.SetV("Width", 2048.4); err != nil {
		t.Errorf("SetV(2048.4) = %v, want nil after rounding to 2048", err)
	}
}

func TestUnknownParameter(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("nope"); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("Get(nope) = %v, want ErrUnknownParameter", err)
	}
	if err := s.SetV("nope", 1); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("SetV(nope) = %v, want ErrUnknownParameter", err)
	}
}

func TestBoundsUpdateLeavesValue(t *testing.T) {
	s := newTestStore(t)
	p, err := s.GetP("Width")
	if err != nil {
		t.Fatal(err)
	}
	p.SetMaximum(1024)
	if p.Value() != 2048 {
		t.Errorf("value changed on SetMaximum: %v", p.Value())
	}
	// The stale value stands until the next SetValue, which enforces the
	// new bound.
	if err := p.SetValue(2048); err == nil {
		t.Error("SetValue above the new maximum succeeded")
	}
	p.SetMinimum(100)
	if err := p.SetValue(50); err == nil {
		t.Error("SetValue below the new minimum succeeded")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := newTestStore(t)
	c := s.Clone()

	if err := c.SetV("fps", 2); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get("fps"); got != 10 {
		t.Errorf("clone edit leaked into original: fps = %v", got)
	}
	if diff := cmp.Diff(s.Names(), c.Names()); diff != "" {
		t.Errorf("clone order mismatch (-orig +clone):\n%s", diff)
	}

	p, _ := c.GetP("Width")
	p.SetMaximum(512)
	orig, _ := s.GetP("Width")
	if orig.Maximum() != 2048 {
		t.Errorf("clone bound edit leaked into original: max = %v", orig.Maximum())
	}
}

func TestMutableFlag(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.GetP("x_start")
	if p.Mutable() {
		t.Error("x_start registered mutable")
	}
	// Mutability gates editors, not SetValue.
	if err := p.SetValue(5); err != nil {
		t.Errorf("SetValue on immutable parameter: %v", err)
	}
	p.SetMutable(true)
	if !p.Mutable() {
		t.Error("SetMutable(true) not applied")
	}
}
