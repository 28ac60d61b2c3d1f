package tnplot

import (
	"math"
	"strings"

	"go-hep.org/x/hep/hbook"
)

// AxisBinning describes the binning of one histogram axis: either N uniform
// bins over [Lo, Hi), or explicit bin edges when Edges is set.
type AxisBinning struct {
	Name   string
	N      int
	Lo, Hi float64
	Edges  []float64
}

func (a AxisBinning) validate() error {
	if len(a.Edges) > 0 {
		if len(a.Edges) < 2 {
			return configErrorf("axis %q needs at least two bin edges", a.Name)
		}
		for i := 1; i < len(a.Edges); i++ {
			if a.Edges[i] <= a.Edges[i-1] {
				return configErrorf("axis %q has non-increasing bin edges", a.Name)
			}
		}
		return nil
	}
	if a.N <= 0 || a.Lo >= a.Hi {
		return configErrorf("axis %q has invalid binning (%d bins over [%v, %v))", a.Name, a.N, a.Lo, a.Hi)
	}
	return nil
}

func (a AxisBinning) newH1D() *hbook.H1D {
	if len(a.Edges) > 0 {
		return hbook.NewH1DFromEdges(a.Edges)
	}
	return hbook.NewH1D(a.N, a.Lo, a.Hi)
}

func (a AxisBinning) edges() []float64 {
	if len(a.Edges) > 0 {
		return a.Edges
	}
	edges := make([]float64, a.N+1)
	width := (a.Hi - a.Lo) / float64(a.N)
	for i := range edges {
		edges[i] = a.Lo + float64(i)*width
	}
	edges[a.N] = a.Hi
	return edges
}

// defaultPtEdges is the standard turn-on binning for probe pt in GeV.
var defaultPtEdges = []float64{5, 10, 15, 20, 22, 26, 28, 30, 32, 34, 36, 38, 40, 45, 50, 60, 80, 100, 150, 250, 400}

// DefaultBinning returns the fixed binning tied to a kinematic variable,
// keyed by field-name suffix: non-uniform turn-on edges for pt/et, fifty
// uniform bins over the acceptance for eta, fifty bins over [-pi, pi) for
// phi. Default binnings never depend on the data.
func DefaultBinning(varName string) (AxisBinning, bool) {
	switch {
	case strings.HasSuffix(varName, "_pt"), strings.HasSuffix(varName, "_et"):
		return AxisBinning{Name: varName, Edges: defaultPtEdges}, true
	case strings.HasSuffix(varName, "_eta"):
		return AxisBinning{Name: varName, N: 50, Lo: -2.5, Hi: 2.5}, true
	case strings.HasSuffix(varName, "_phi"):
		return AxisBinning{Name: varName, N: 50, Lo: -math.Pi, Hi: math.Pi}, true
	}
	return AxisBinning{}, false
}

// massAxisBins is the number of bins on the pair-mass axis of N-dimensional
// histograms filled in range mode.
const massAxisBins = 80

func resolveBinning(varName string, binnings map[string]AxisBinning) (AxisBinning, error) {
	if b, ok := binnings[varName]; ok {
		b.Name = varName
		if err := b.validate(); err != nil {
			return AxisBinning{}, err
		}
		return b, nil
	}
	b, ok := DefaultBinning(varName)
	if !ok {
		return AxisBinning{}, configErrorf("no default binning for variable %q; provide one explicitly", varName)
	}
	return b, nil
}

// PassFailH1D holds the passing and failing histograms of one variable in
// one eta region.
type PassFailH1D struct {
	Passing, Failing *hbook.H1D
}

// Hists1D maps variable name, then region name, to a passing/failing
// histogram pair.
type Hists1D map[string]map[string]PassFailH1D

// Hist1DOptions configures 1-D histogram aggregation.
type Hist1DOptions struct {
	// PlateauCut restricts the eta and phi histograms to probes above this
	// pt, keeping them on the efficiency plateau. It never applies to the
	// pt histograms, which must show the full turn-on curve.
	PlateauCut float64

	// Region sets per variable; nil selects the defaults (barrel/endcap
	// for pt, the entire acceptance for eta and phi).
	RegionsPt, RegionsEta, RegionsPhi EtaRegions

	// Binnings overrides the default per-variable binning.
	Binnings map[string]AxisBinning
}

func (o Hist1DOptions) validate() error {
	for _, rs := range []EtaRegions{o.RegionsPt, o.RegionsEta, o.RegionsPhi} {
		if err := rs.validate(); err != nil {
			return err
		}
	}
	if o.PlateauCut < 0 {
		return configErrorf("plateau cut must not be negative, got %v", o.PlateauCut)
	}
	return nil
}

// FillHists1D bins already-split probes into per-variable, per-region
// passing and failing histograms. vars must name the probe pt, eta and phi
// fields in that order; the eta field decides region membership for all
// three variables. Pileup weights attached to the probes are used as fill
// weights.
func FillHists1D(passing, failing *Probes, vars []string, opts Hist1DOptions) (Hists1D, error) {
	if len(vars) != 3 {
		return nil, configErrorf("1-D histograms need the pt, eta and phi variables in order, got %d variables", len(vars))
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	regionSets := []EtaRegions{opts.RegionsPt, opts.RegionsEta, opts.RegionsPhi}
	if regionSets[0] == nil {
		regionSets[0] = DefaultPtRegions()
	}
	for i := 1; i < 3; i++ {
		if regionSets[i] == nil {
			regionSets[i] = DefaultWideRegion()
		}
	}

	out := make(Hists1D, len(vars))
	for i, varName := range vars {
		binning, err := resolveBinning(varName, opts.Binnings)
		if err != nil {
			return nil, err
		}
		byRegion := make(map[string]PassFailH1D, len(regionSets[i]))
		for name, region := range regionSets[i] {
			pf := PassFailH1D{Passing: binning.newH1D(), Failing: binning.newH1D()}
			plateau := 0.0
			if i > 0 {
				plateau = opts.PlateauCut
			}
			if err := fill1D(pf.Passing, passing, varName, vars[0], vars[1], region, plateau); err != nil {
				return nil, err
			}
			if err := fill1D(pf.Failing, failing, varName, vars[0], vars[1], region, plateau); err != nil {
				return nil, err
			}
			byRegion[name] = pf
		}
		out[varName] = byRegion
	}
	return out, nil
}

func fill1D(h *hbook.H1D, probes *Probes, varName, ptVar, etaVar string, region EtaRegion, plateauCut float64) error {
	vals, err := probes.Column(varName)
	if err != nil {
		return err
	}
	etas, err := probes.Column(etaVar)
	if err != nil {
		return err
	}
	pts, err := probes.Column(ptVar)
	if err != nil {
		return err
	}
	for j := range vals {
		if plateauCut > 0 && pts[j] < plateauCut {
			continue
		}
		if !region.Contains(etas[j]) {
			continue
		}
		h.Fill(vals[j], probes.Weight(j))
	}
	return nil
}

// PassFailND holds a joint N-dimensional histogram filled from the passing
// probes and one filled from the failing probes.
type PassFailND struct {
	Passing, Failing *HistND
}

// FillHistsND bins already-split probes into one joint histogram over all
// requested variables, plus a pair-mass axis when the window is a range.
// There is no regional splitting in N-D mode.
func FillHistsND(passing, failing *Probes, vars []string, window MassWindow, binnings map[string]AxisBinning) (PassFailND, error) {
	if len(vars) == 0 {
		return PassFailND{}, configErrorf("N-dimensional histograms need at least one variable")
	}
	axes := make([]AxisBinning, 0, len(vars)+1)
	for _, varName := range vars {
		b, err := resolveBinning(varName, binnings)
		if err != nil {
			return PassFailND{}, err
		}
		axes = append(axes, b)
	}
	if !window.CutAndCount() {
		lo, hi := window.Bounds()
		axes = append(axes, AxisBinning{Name: pairMassField, N: massAxisBins, Lo: lo, Hi: hi})
	}

	out := PassFailND{}
	var err error
	if out.Passing, err = fillND(passing, axes); err != nil {
		return PassFailND{}, err
	}
	if out.Failing, err = fillND(failing, axes); err != nil {
		return PassFailND{}, err
	}
	return out, nil
}

func fillND(probes *Probes, axes []AxisBinning) (*HistND, error) {
	h, err := NewHistND(axes...)
	if err != nil {
		return nil, err
	}
	cols := make([][]float64, len(axes))
	for i, axis := range axes {
		col, err := probes.Column(axis.Name)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	coords := make([]float64, len(axes))
	for j := 0; j < probes.Len(); j++ {
		for i := range cols {
			coords[i] = cols[i][j]
		}
		h.Fill(coords, probes.Weight(j))
	}
	return h, nil
}
