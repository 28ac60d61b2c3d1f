package tnplot

import (
	"errors"
	"testing"
)

func TestCutAndCountWindow_Boundaries(t *testing.T) {
	w := CutAndCountWindow(30)

	cases := []struct {
		mass float64
		want bool
	}{
		{91.1876, true},
		{91.0, true},
		{62.0, true},
		{121.0, true},
		{61.1876, false},  // exactly on the lower bound
		{121.1876, false}, // exactly on the upper bound
		{61.1877, true},
		{50.0, false},
		{130.0, false},
	}
	for _, c := range cases {
		if got := w.InWindow(c.mass); got != c.want {
			t.Errorf("InWindow(%v) = %v, want %v", c.mass, got, c.want)
		}
	}
}

func TestMassRange_Boundaries(t *testing.T) {
	w := MassRange(50, 130)

	cases := []struct {
		mass float64
		want bool
	}{
		{91.1876, true},
		{50.0001, true},
		{129.9999, true},
		{50.0, false},
		{130.0, false},
		{49.0, false},
		{131.0, false},
	}
	for _, c := range cases {
		if got := w.InWindow(c.mass); got != c.want {
			t.Errorf("InWindow(%v) = %v, want %v", c.mass, got, c.want)
		}
	}
}

func TestResolveMassWindow_Defaults(t *testing.T) {
	w, err := resolveMassWindow(true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !w.CutAndCount() {
		t.Error("default cut-and-count window is not cut-and-count")
	}
	if lo, hi := w.Bounds(); lo != ZMass-30 || hi != ZMass+30 {
		t.Errorf("default cut-and-count bounds = (%v, %v)", lo, hi)
	}

	w, err = resolveMassWindow(false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if w.CutAndCount() {
		t.Error("default range window is cut-and-count")
	}
	if lo, hi := w.Bounds(); lo != 50 || hi != 130 {
		t.Errorf("default range bounds = (%v, %v)", lo, hi)
	}
}

func TestResolveMassWindow_ShapeMismatch(t *testing.T) {
	rangeWindow := MassRange(60, 120)
	if _, err := resolveMassWindow(true, &rangeWindow); err == nil {
		t.Error("cut and count with a range window did not fail")
	} else {
		var cerr *ConfigError
		if !errors.As(err, &cerr) {
			t.Errorf("got %T, want *ConfigError", err)
		}
	}

	scalar := CutAndCountWindow(30)
	if _, err := resolveMassWindow(false, &scalar); err == nil {
		t.Error("range mode with a scalar window did not fail")
	}
}

func TestMassWindow_Validate(t *testing.T) {
	if _, err := resolveMassWindow(true, &MassWindow{kind: windowScalar, width: -1}); err == nil {
		t.Error("negative width did not fail")
	}
	bad := MassRange(130, 50)
	if _, err := resolveMassWindow(false, &bad); err == nil {
		t.Error("inverted range did not fail")
	}
}
