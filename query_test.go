package tnplot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// stubLoader serves canned batches keyed by a dataset's first file, so
// query tests run without ROOT files.
type stubLoader struct {
	batches map[string]*Batch
	errs    map[string]error

	mu    sync.Mutex
	calls int
}

func (l *stubLoader) Load(ctx context.Context, ds Dataset, columns []string, withIDs bool) (*Batch, []FileError, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	key := ds.Files[0]
	if err, ok := l.errs[key]; ok {
		return nil, []FileError{{File: key, Err: err}}, err
	}
	return l.batches[key], nil, nil
}

func scenarioTNP(t *testing.T, fs Fileset, loader Loader) *TagNProbe {
	t.Helper()
	tnp, err := New(scenarioSelector(), fs)
	if err != nil {
		t.Fatal(err)
	}
	return tnp.WithLoader(loader)
}

func TestCompute_DatasetIsolation(t *testing.T) {
	loader := &stubLoader{
		batches: map[string]*Batch{"good.root": scenarioBatch(t)},
		errs:    map[string]error{"bad.root": errors.New("no such file")},
	}
	fs := Fileset{
		"data":   {Files: []string{"good.root"}},
		"broken": {Files: []string{"bad.root"}},
	}
	tnp := scenarioTNP(t, fs, loader)

	q, err := tnp.SelectProbes(true, nil)
	if err != nil {
		t.Fatal(err)
	}
	results, err := q.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if res := results["data"]; res.Report.Failed() {
		t.Errorf("good dataset failed: %v", res.Report.Err)
	} else if res.Probes.Len() != 1 {
		t.Errorf("good dataset probes = %d, want 1", res.Probes.Len())
	}

	res := results["broken"]
	if !res.Report.Failed() {
		t.Error("broken dataset did not fail")
	}
	if res.Probes != nil {
		t.Error("broken dataset produced probes")
	}
	if len(res.Report.Files) != 1 || res.Report.Files[0].File != "bad.root" {
		t.Errorf("file errors = %v, want one for bad.root", res.Report.Files)
	}
}

func TestCompute_ExtraFilterErrorFailsDataset(t *testing.T) {
	errBroken := errors.New("broken ntuple shape")
	sel := scenarioSelector()
	sel.ExtraFilter = func(b *Batch) (*Batch, error) {
		return nil, errBroken
	}

	loader := &stubLoader{batches: map[string]*Batch{"good.root": scenarioBatch(t)}}
	tnp, err := New(sel, Fileset{"data": {Files: []string{"good.root"}}})
	if err != nil {
		t.Fatal(err)
	}
	tnp = tnp.WithLoader(loader)

	q, err := tnp.SelectProbes(true, nil)
	if err != nil {
		t.Fatal(err)
	}
	results, err := q.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	res := results["data"]
	if !res.Report.Failed() {
		t.Fatal("erroring batch filter did not fail the dataset")
	}
	if !errors.Is(res.Report.Err, errBroken) {
		t.Errorf("report error = %v, want the filter error", res.Report.Err)
	}
}

func TestQueryConstruction_FailsFast(t *testing.T) {
	loader := &stubLoader{batches: map[string]*Batch{"good.root": scenarioBatch(t)}}
	tnp := scenarioTNP(t, Fileset{"data": {Files: []string{"good.root"}}}, loader)

	var cerr *ConfigError

	rangeWin := MassRange(60, 120)
	if _, err := tnp.SelectProbes(true, &rangeWin); !errors.As(err, &cerr) {
		t.Errorf("mode/shape mismatch error = %v, want ConfigError", err)
	}
	if _, err := tnp.PassingFailingProbes("noSuchFilter", true, nil); !errors.As(err, &cerr) {
		t.Errorf("unknown filter error = %v, want ConfigError", err)
	}
	if _, err := tnp.Histograms1D(testFilter, true, nil, Hist1DOptions{}, "el_pt", "el_eta"); !errors.As(err, &cerr) {
		t.Errorf("two-variable 1-D query error = %v, want ConfigError", err)
	}
	if _, err := tnp.HistogramsND(testFilter, true, nil, nil, "no_default_binning"); !errors.As(err, &cerr) {
		t.Errorf("unbinnable variable error = %v, want ConfigError", err)
	}

	if loader.calls != 0 {
		t.Errorf("invalid queries touched the loader %d times", loader.calls)
	}
}

func TestHistograms1D_Compute(t *testing.T) {
	loader := &stubLoader{batches: map[string]*Batch{"good.root": scenarioBatch(t)}}
	tnp := scenarioTNP(t, Fileset{"data": {Files: []string{"good.root"}}}, loader)

	q, err := tnp.Histograms1D(testFilter, true, nil, Hist1DOptions{})
	if err != nil {
		t.Fatal(err)
	}
	results, err := q.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	res := results["data"]
	if res.Report.Failed() {
		t.Fatal(res.Report.Err)
	}

	// The surviving probe passes the filter at eta 1.0, in the barrel.
	pf := res.Hists["el_pt"]["barrel"]
	if got := pf.Passing.Entries(); got != 1 {
		t.Errorf("barrel passing entries = %d, want 1", got)
	}
	if got := pf.Failing.Entries(); got != 0 {
		t.Errorf("barrel failing entries = %d, want 0", got)
	}
}

func TestHistogramsND_Compute(t *testing.T) {
	loader := &stubLoader{batches: map[string]*Batch{"good.root": scenarioBatch(t)}}
	tnp := scenarioTNP(t, Fileset{"data": {Files: []string{"good.root"}}}, loader)

	q, err := tnp.HistogramsND(testFilter, true, nil, nil, "el_pt", "el_eta")
	if err != nil {
		t.Fatal(err)
	}
	results, err := q.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	res := results["data"]
	if res.Report.Failed() {
		t.Fatal(res.Report.Err)
	}
	if got := res.Hists.Passing.Entries() + res.Hists.Failing.Entries(); got != 1 {
		t.Errorf("total entries = %d, want 1", got)
	}
}

func TestCompute_AttachesPileupWeights(t *testing.T) {
	puJSON := filepath.Join(t.TempDir(), "pu.json")
	doc := `{"edges": [0, 50], "weights": [0.75]}`
	if err := os.WriteFile(puJSON, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	b := scenarioBatch(t)
	b, err := b.WithColumn("truePU", []float64{20, 20, 20, 20})
	if err != nil {
		t.Fatal(err)
	}
	loader := &stubLoader{batches: map[string]*Batch{"mc.root": b}}
	fs := Fileset{"dy": {Files: []string{"mc.root"}, IsMC: true, PileupJSON: puJSON}}
	tnp := scenarioTNP(t, fs, loader)

	q, err := tnp.SelectProbes(true, nil)
	if err != nil {
		t.Fatal(err)
	}
	results, err := q.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	res := results["dy"]
	if res.Report.Failed() {
		t.Fatal(res.Report.Err)
	}
	if res.Probes.HasColumn("truePU") {
		t.Error("truth-pileup column not dropped")
	}
	if got := res.Probes.Weight(0); got != 0.75 {
		t.Errorf("probe weight = %v, want 0.75", got)
	}
}

func TestColumnsFor(t *testing.T) {
	sel := scenarioSelector()
	sel.CutBasedID = "passingCutBasedTight"
	sel.ExtraColumns = []string{"el_missHits"}
	tnp, err := New(sel, Fileset{"data": {Files: []string{"f.root"}}})
	if err != nil {
		t.Fatal(err)
	}

	columns := tnp.columnsFor(sel.DefaultVars())
	set := make(map[string]bool, len(columns))
	for _, c := range columns {
		set[c] = true
	}
	for _, want := range []string{
		"el_pt", "el_eta", "el_phi", "el_q",
		"tag_Ele_pt", "tag_Ele_eta", "tag_Ele_q",
		"pair_mass", testFilter, "passingCutBasedTight", "el_missHits",
	} {
		if !set[want] {
			t.Errorf("columns missing %q", want)
		}
	}
}

func TestCompute_Cancelled(t *testing.T) {
	loader := &stubLoader{batches: map[string]*Batch{"good.root": scenarioBatch(t)}}
	tnp := scenarioTNP(t, Fileset{"data": {Files: []string{"good.root"}}}, loader)

	q, err := tnp.SelectProbes(true, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.Compute(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
