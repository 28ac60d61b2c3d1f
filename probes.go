package tnplot

import "fmt"

// Probes is the labeled probe record collection produced by a selector: one
// column per retained variable, one boolean pass column per configured
// filter, and an optional per-probe weight attached by pileup reweighting.
// For every filter the passing and failing subsets partition the collection
// exactly.
type Probes struct {
	n       int
	vars    []string
	cols    map[string][]float64
	filters []string
	pass    map[string][]bool
	weights []float64
}

func zipProbes(b *Batch, vars, filters []string, pass map[string][]bool, withMass bool) (*Probes, error) {
	cols := make(map[string][]float64, len(vars)+1)
	for _, v := range vars {
		col, err := b.Column(v)
		if err != nil {
			return nil, err
		}
		cols[v] = col
	}
	if withMass {
		col, err := b.Column(pairMassField)
		if err != nil {
			return nil, err
		}
		cols[pairMassField] = col
	}
	return &Probes{
		n:       b.Len(),
		vars:    append([]string(nil), vars...),
		cols:    cols,
		filters: append([]string(nil), filters...),
		pass:    pass,
	}, nil
}

// Len returns the number of probes.
func (p *Probes) Len() int { return p.n }

// Vars returns the retained variable names in request order.
func (p *Probes) Vars() []string { return append([]string(nil), p.vars...) }

// Filters returns the configured filter names in request order.
func (p *Probes) Filters() []string { return append([]string(nil), p.filters...) }

// Column returns the values of a retained variable (or pair_mass).
func (p *Probes) Column(name string) ([]float64, error) {
	col, ok := p.cols[name]
	if !ok {
		return nil, fmt.Errorf("tnplot: %w: probe variable %q", ErrMissingField, name)
	}
	return col, nil
}

// HasColumn reports whether the named probe variable exists.
func (p *Probes) HasColumn(name string) bool {
	_, ok := p.cols[name]
	return ok
}

// Pass returns the boolean label column for a filter.
func (p *Probes) Pass(filter string) ([]bool, error) {
	labels, ok := p.pass[filter]
	if !ok {
		return nil, configErrorf("filter %q is not configured on this selection", filter)
	}
	return labels, nil
}

// Weight returns the fill weight of probe i: the attached pileup weight, or
// unit weight when none is attached.
func (p *Probes) Weight(i int) float64 {
	if p.weights == nil {
		return 1
	}
	return p.weights[i]
}

// Weighted reports whether pileup weights are attached.
func (p *Probes) Weighted() bool { return p.weights != nil }

// Split returns the passing and failing subsets for a filter. The filter
// label columns themselves are dropped from the subsets.
func (p *Probes) Split(filter string) (passing, failing *Probes, err error) {
	labels, err := p.Pass(filter)
	if err != nil {
		return nil, nil, err
	}
	return p.subset(labels, false), p.subset(labels, true), nil
}

func (p *Probes) subset(labels []bool, invert bool) *Probes {
	kept := 0
	for _, l := range labels {
		if l != invert {
			kept++
		}
	}
	cols := make(map[string][]float64, len(p.cols))
	for name, col := range p.cols {
		out := make([]float64, 0, kept)
		for i, l := range labels {
			if l != invert {
				out = append(out, col[i])
			}
		}
		cols[name] = out
	}
	sub := &Probes{
		n:    kept,
		vars: append([]string(nil), p.vars...),
		cols: cols,
		pass: map[string][]bool{},
	}
	if p.weights != nil {
		sub.weights = make([]float64, 0, kept)
		for i, l := range labels {
			if l != invert {
				sub.weights = append(sub.weights, p.weights[i])
			}
		}
	}
	return sub
}
