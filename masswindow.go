package tnplot

import (
	"fmt"
	"math"
)

// ZMass is the nominal Z boson mass in GeV.
const ZMass = 91.1876

// Defaults applied when no mass window is given: a 30 GeV window around the
// Z mass for cut-and-count efficiencies, the 50-130 GeV range otherwise.
const (
	DefaultMassWindowWidth = 30.0
	DefaultMassRangeLo     = 50.0
	DefaultMassRangeHi     = 130.0
)

type windowKind int

const (
	windowScalar windowKind = iota
	windowRange
)

// MassWindow decides whether a tag-probe pair mass is consistent with the
// reference resonance. A window is either a symmetric half-width around the
// Z mass (cut-and-count mode) or an explicit range with strict bounds.
type MassWindow struct {
	kind   windowKind
	width  float64
	lo, hi float64
}

// CutAndCountWindow returns a symmetric window of the given half-width
// around the Z mass.
func CutAndCountWindow(width float64) MassWindow {
	return MassWindow{kind: windowScalar, width: width}
}

// MassRange returns a (lo, hi) mass range with strict bounds.
func MassRange(lo, hi float64) MassWindow {
	return MassWindow{kind: windowRange, lo: lo, hi: hi}
}

// CutAndCount reports whether the window is a cut-and-count window.
func (w MassWindow) CutAndCount() bool { return w.kind == windowScalar }

// Bounds returns the mass range covered by the window.
func (w MassWindow) Bounds() (lo, hi float64) {
	if w.kind == windowScalar {
		return ZMass - w.width, ZMass + w.width
	}
	return w.lo, w.hi
}

// InWindow classifies a pair mass. Both modes use strict inequalities, so
// masses exactly on a bound classify as false.
func (w MassWindow) InWindow(mass float64) bool {
	if w.kind == windowScalar {
		return math.Abs(mass-ZMass) < w.width
	}
	return mass > w.lo && mass < w.hi
}

func (w MassWindow) validate() error {
	switch w.kind {
	case windowScalar:
		if w.width <= 0 {
			return configErrorf("cut and count mass window must have a positive width, got %v", w.width)
		}
	case windowRange:
		if w.lo >= w.hi {
			return configErrorf("mass range bounds must satisfy lo < hi, got (%v, %v)", w.lo, w.hi)
		}
	}
	return nil
}

// resolveMassWindow applies per-query defaults and rejects a window whose
// shape does not match the requested mode. The mismatch is a configuration
// error raised before any dataset is touched.
func resolveMassWindow(cutAndCount bool, window *MassWindow) (MassWindow, error) {
	if window == nil {
		if cutAndCount {
			return CutAndCountWindow(DefaultMassWindowWidth), nil
		}
		return MassRange(DefaultMassRangeLo, DefaultMassRangeHi), nil
	}
	w := *window
	if cutAndCount && w.kind != windowScalar {
		return MassWindow{}, configErrorf("cut and count efficiencies take a single mass window width around the Z mass, not a range")
	}
	if !cutAndCount && w.kind != windowRange {
		return MassWindow{}, configErrorf("invariant mass efficiencies take a (lo, hi) mass range, not a single width")
	}
	if err := w.validate(); err != nil {
		return MassWindow{}, err
	}
	return w, nil
}

// ConfigError reports an invalid query or selector configuration. It is
// raised synchronously at query construction, never per dataset.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return "tnplot: invalid configuration: " + e.msg }

func configErrorf(format string, args ...interface{}) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}
