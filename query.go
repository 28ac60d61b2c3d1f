package tnplot

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// TagNProbe maps a selector over a fileset. Queries come in two phases:
// the query constructors validate all configuration and return a deferred
// query without touching any dataset, and Compute materializes it. A
// dataset's failure is recorded in its report and never aborts or corrupts
// sibling datasets.
type TagNProbe struct {
	sel     *Selector
	fileset Fileset
	loader  Loader
}

// New validates the selector and fileset and binds them together.
func New(sel *Selector, fs Fileset) (*TagNProbe, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	if err := fs.Validate(); err != nil {
		return nil, err
	}
	return &TagNProbe{sel: sel, fileset: fs, loader: NTupleLoader{}}, nil
}

// WithLoader replaces the ntuple loader, mainly for tests.
func (t *TagNProbe) WithLoader(l Loader) *TagNProbe {
	t.loader = l
	return t
}

// Report describes the processing issues of one dataset: per-file access
// errors, and the fatal error if the dataset failed outright.
type Report struct {
	Dataset string
	Files   []FileError
	Err     error
}

// Failed reports whether the dataset failed to produce a result.
func (r Report) Failed() bool { return r.Err != nil }

// ProbesQuery is a deferred probe-record selection over every dataset.
type ProbesQuery struct {
	tnp    *TagNProbe
	window MassWindow
	vars   []string
}

// ProbesResult is one dataset's labeled probe records and its report.
type ProbesResult struct {
	Probes *Probes
	Report Report
}

// SelectProbes builds a deferred selection of labeled probe records. A nil
// window selects the mode's default; a window whose shape does not match
// cutAndCount is rejected here, before any dataset is touched.
func (t *TagNProbe) SelectProbes(cutAndCount bool, window *MassWindow, vars ...string) (*ProbesQuery, error) {
	w, err := resolveMassWindow(cutAndCount, window)
	if err != nil {
		return nil, err
	}
	if len(vars) == 0 {
		vars = t.sel.DefaultVars()
	}
	return &ProbesQuery{tnp: t, window: w, vars: vars}, nil
}

// Compute materializes the selection, one result per dataset.
func (q *ProbesQuery) Compute(ctx context.Context) (map[string]ProbesResult, error) {
	return materialize(ctx, q.tnp, func(ctx context.Context, name string, ds Dataset) ProbesResult {
		probes, report := q.tnp.selectDataset(ctx, name, ds, q.window, q.vars)
		return ProbesResult{Probes: probes, Report: report}
	})
}

// SplitQuery is a deferred passing/failing split for one filter.
type SplitQuery struct {
	probes *ProbesQuery
	filter string
}

// SplitResult is one dataset's passing and failing probe records.
type SplitResult struct {
	Passing, Failing *Probes
	Report           Report
}

// PassingFailingProbes builds a deferred selection split into the probes
// passing and failing the named filter.
func (t *TagNProbe) PassingFailingProbes(filter string, cutAndCount bool, window *MassWindow, vars ...string) (*SplitQuery, error) {
	if err := t.checkFilter(filter); err != nil {
		return nil, err
	}
	pq, err := t.SelectProbes(cutAndCount, window, vars...)
	if err != nil {
		return nil, err
	}
	return &SplitQuery{probes: pq, filter: filter}, nil
}

// Compute materializes the split, one result per dataset.
func (q *SplitQuery) Compute(ctx context.Context) (map[string]SplitResult, error) {
	return materialize(ctx, q.probes.tnp, func(ctx context.Context, name string, ds Dataset) SplitResult {
		probes, report := q.probes.tnp.selectDataset(ctx, name, ds, q.probes.window, q.probes.vars)
		if report.Failed() {
			return SplitResult{Report: report}
		}
		passing, failing, err := probes.Split(q.filter)
		if err != nil {
			report.Err = err
			return SplitResult{Report: report}
		}
		return SplitResult{Passing: passing, Failing: failing, Report: report}
	})
}

// Hists1DQuery is a deferred 1-D histogram aggregation.
type Hists1DQuery struct {
	split *SplitQuery
	opts  Hist1DOptions
}

// Hists1DResult is one dataset's per-variable, per-region histograms.
type Hists1DResult struct {
	Hists  Hists1D
	Report Report
}

// Histograms1D builds a deferred aggregation into pt, eta and phi
// histograms of the probes passing and failing the named filter, split by
// eta region. vars must name the probe pt, eta and phi fields in that
// order; by default the selector's flavor defaults are used.
func (t *TagNProbe) Histograms1D(filter string, cutAndCount bool, window *MassWindow, opts Hist1DOptions, vars ...string) (*Hists1DQuery, error) {
	if len(vars) == 0 {
		vars = t.sel.DefaultVars()
	}
	if len(vars) != 3 {
		return nil, configErrorf("1-D histograms need the pt, eta and phi variables in order, got %d variables", len(vars))
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	sq, err := t.PassingFailingProbes(filter, cutAndCount, window, vars...)
	if err != nil {
		return nil, err
	}
	return &Hists1DQuery{split: sq, opts: opts}, nil
}

// Compute materializes the histograms, one result per dataset.
func (q *Hists1DQuery) Compute(ctx context.Context) (map[string]Hists1DResult, error) {
	pq := q.split.probes
	return materialize(ctx, pq.tnp, func(ctx context.Context, name string, ds Dataset) Hists1DResult {
		probes, report := pq.tnp.selectDataset(ctx, name, ds, pq.window, pq.vars)
		if report.Failed() {
			return Hists1DResult{Report: report}
		}
		passing, failing, err := probes.Split(q.split.filter)
		if err != nil {
			report.Err = err
			return Hists1DResult{Report: report}
		}
		hists, err := FillHists1D(passing, failing, pq.vars, q.opts)
		if err != nil {
			report.Err = err
			return Hists1DResult{Report: report}
		}
		return Hists1DResult{Hists: hists, Report: report}
	})
}

// HistsNDQuery is a deferred N-dimensional histogram aggregation.
type HistsNDQuery struct {
	split    *SplitQuery
	binnings map[string]AxisBinning
}

// HistsNDResult is one dataset's joint passing and failing histograms.
type HistsNDResult struct {
	Hists  PassFailND
	Report Report
}

// HistogramsND builds a deferred aggregation into one joint histogram over
// all requested variables (plus a pair-mass axis in range mode), filled
// from the probes passing and from the probes failing the named filter.
func (t *TagNProbe) HistogramsND(filter string, cutAndCount bool, window *MassWindow, binnings map[string]AxisBinning, vars ...string) (*HistsNDQuery, error) {
	if len(vars) == 0 {
		vars = t.sel.DefaultVars()
	}
	for _, v := range vars {
		if _, err := resolveBinning(v, binnings); err != nil {
			return nil, err
		}
	}
	sq, err := t.PassingFailingProbes(filter, cutAndCount, window, vars...)
	if err != nil {
		return nil, err
	}
	return &HistsNDQuery{split: sq, binnings: binnings}, nil
}

// Compute materializes the histograms, one result per dataset.
func (q *HistsNDQuery) Compute(ctx context.Context) (map[string]HistsNDResult, error) {
	pq := q.split.probes
	return materialize(ctx, pq.tnp, func(ctx context.Context, name string, ds Dataset) HistsNDResult {
		probes, report := pq.tnp.selectDataset(ctx, name, ds, pq.window, pq.vars)
		if report.Failed() {
			return HistsNDResult{Report: report}
		}
		passing, failing, err := probes.Split(q.split.filter)
		if err != nil {
			report.Err = err
			return HistsNDResult{Report: report}
		}
		hists, err := FillHistsND(passing, failing, probes.Vars(), pq.window, q.binnings)
		if err != nil {
			report.Err = err
			return HistsNDResult{Report: report}
		}
		return HistsNDResult{Hists: hists, Report: report}
	})
}

func (t *TagNProbe) checkFilter(filter string) error {
	for _, f := range t.sel.Filters {
		if f == filter {
			return nil
		}
	}
	return configErrorf("filter %q is not configured on the selector", filter)
}

// selectDataset runs the full per-dataset pipeline: load, select, and for
// simulation attach pileup weights. Errors are folded into the report.
func (t *TagNProbe) selectDataset(ctx context.Context, name string, ds Dataset, window MassWindow, vars []string) (*Probes, Report) {
	report := Report{Dataset: name}

	vars = append([]string(nil), vars...)
	puVar := ""
	if ds.IsMC && ds.hasPileupSources() {
		puVar = ds.truePUVar()
		vars = append(vars, puVar)
	}

	b, ferrs, err := t.loader.Load(ctx, ds, t.columnsFor(vars), t.sel.LumiMask != nil)
	report.Files = ferrs
	if err != nil {
		report.Err = err
		return nil, report
	}

	probes, err := t.sel.FindProbes(b, window, vars)
	if err != nil {
		report.Err = err
		return nil, report
	}

	if puVar != "" {
		corr, err := ds.pileupCorrection()
		if err != nil {
			report.Err = err
			return nil, report
		}
		probes, err = AttachPileupWeights(probes, corr, puVar)
		if err != nil {
			report.Err = err
			return nil, report
		}
	}
	return probes, report
}

// columnsFor lists every ntuple branch a query needs: the requested
// variables plus everything the cut pipeline reads.
func (t *TagNProbe) columnsFor(vars []string) []string {
	f := t.sel.schema()
	set := make(map[string]bool)
	add := func(names ...string) {
		for _, n := range names {
			if n != "" {
				set[n] = true
			}
		}
	}
	add(vars...)
	add(f.pt, f.eta, f.tagPt, f.tagEta, pairMassField)
	if t.sel.UseSCEta {
		add(f.scEta, f.tagSCEta)
	}
	if t.sel.UseSCPhi {
		add(f.phi, f.scPhi)
	}
	if t.sel.Flavor == Electron {
		add(f.charge, f.tagCharge)
	}
	add(t.sel.Filters...)
	add(t.sel.CutBasedID)
	add(t.sel.ExtraColumns...)

	columns := make([]string, 0, len(set))
	for c := range set {
		columns = append(columns, c)
	}
	sort.Strings(columns)
	return columns
}

// materialize fans the per-dataset pipeline out across the fileset. Each
// dataset runs in its own goroutine; results and failures stay isolated
// per dataset, so only context cancellation surfaces as an error here.
func materialize[T any](ctx context.Context, t *TagNProbe, run func(ctx context.Context, name string, ds Dataset) T) (map[string]T, error) {
	names := make([]string, 0, len(t.fileset))
	for name := range t.fileset {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]T, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			results[i] = run(gctx, name, t.fileset[name])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]T, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out, nil
}
