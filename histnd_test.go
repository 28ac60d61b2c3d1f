package tnplot

import "testing"

func TestFillHistsND_TwoProbes(t *testing.T) {
	vars := []string{"el_pt", "el_eta"}
	passing := probesFrom(map[string][]float64{
		"el_pt":  {40},
		"el_eta": {1.0},
	}, vars, nil)
	failing := probesFrom(map[string][]float64{
		"el_pt":  {25},
		"el_eta": {2.0},
	}, vars, nil)

	hists, err := FillHistsND(passing, failing, vars, CutAndCountWindow(DefaultMassWindowWidth), nil)
	if err != nil {
		t.Fatal(err)
	}

	if got := hists.Passing.Entries() + hists.Failing.Entries(); got != 2 {
		t.Fatalf("total entries = %d, want 2", got)
	}
	if got := hists.Passing.Entries(); got != 1 {
		t.Errorf("passing entries = %d, want 1", got)
	}
	if got := hists.Failing.Entries(); got != 1 {
		t.Errorf("failing entries = %d, want 1", got)
	}

	// pt=40 sits on a turn-on bin edge, eta=1.0 in bin 35 of 50 over [-2.5, 2.5).
	if got := hists.Passing.SumW(12, 35); got != 1 {
		t.Errorf("passing bin (40, 1.0) sumw = %v, want 1", got)
	}
	if got := hists.Failing.SumW(4, 45); got != 1 {
		t.Errorf("failing bin (25, 2.0) sumw = %v, want 1", got)
	}
}

func TestFillHistsND_RangeModeAddsMassAxis(t *testing.T) {
	vars := []string{"el_pt", "el_eta"}
	passing := probesFrom(map[string][]float64{
		"el_pt":     {40},
		"el_eta":    {1.0},
		"pair_mass": {91},
	}, vars, nil)
	failing := probesFrom(map[string][]float64{
		"el_pt":     {},
		"el_eta":    {},
		"pair_mass": {},
	}, vars, nil)

	hists, err := FillHistsND(passing, failing, vars, MassRange(60, 120), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := hists.Passing.Rank(); got != 3 {
		t.Fatalf("rank = %d, want 3", got)
	}
	names := hists.Passing.AxisNames()
	if names[2] != "pair_mass" {
		t.Errorf("last axis = %q, want pair_mass", names[2])
	}
	edges := hists.Passing.AxisEdges(2)
	if edges[0] != 60 || edges[len(edges)-1] != 120 {
		t.Errorf("mass axis spans [%v, %v], want [60, 120]", edges[0], edges[len(edges)-1])
	}
	if got := hists.Passing.Entries(); got != 1 {
		t.Errorf("passing entries = %d, want 1", got)
	}
}

func TestHistNDBinIndex(t *testing.T) {
	edges := []float64{0, 1, 2, 4}
	for _, tc := range []struct {
		x   float64
		bin int
		ok  bool
	}{
		{0, 0, true},
		{0.5, 0, true},
		{1, 1, true}, // exact interior edge belongs to the upper bin
		{3.9, 2, true},
		{4, 0, false}, // upper edge is exclusive
		{-0.1, 0, false},
	} {
		bin, ok := binIndex(edges, tc.x)
		if bin != tc.bin || ok != tc.ok {
			t.Errorf("binIndex(%v) = (%d, %v), want (%d, %v)", tc.x, bin, ok, tc.bin, tc.ok)
		}
	}
}

func TestHistNDOverflow(t *testing.T) {
	h, err := NewHistND(AxisBinning{Name: "x", N: 2, Lo: 0, Hi: 2})
	if err != nil {
		t.Fatal(err)
	}
	h.Fill([]float64{0.5}, 1)
	h.Fill([]float64{5}, 1)
	if h.Entries() != 1 || h.Overflow() != 1 {
		t.Errorf("entries=%d overflow=%d, want 1 and 1", h.Entries(), h.Overflow())
	}
	if got := h.SumW(0); got != 1 {
		t.Errorf("sumw(0) = %v, want 1", got)
	}
}
