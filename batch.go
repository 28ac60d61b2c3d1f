package tnplot

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMissingField reports a column that was expected on a batch but is not
// present. It is a per-dataset data error, not a configuration error.
var ErrMissingField = errors.New("missing field")

// Batch is a columnar slice of events read from a flat ntuple. All columns
// have the same length. Batches are never mutated in place: masking and
// column substitution return fresh batches, so a batch handed to a selector
// can safely be shared across concurrent queries.
type Batch struct {
	n     int
	cols  map[string][]float64
	runs  []uint32
	lumis []uint32
}

// NewBatch builds a batch from named columns. All columns must have equal
// length and there must be at least one column.
func NewBatch(cols map[string][]float64) (*Batch, error) {
	if len(cols) == 0 {
		return nil, errors.New("tnplot: batch has no columns")
	}
	n := -1
	for name, col := range cols {
		if n < 0 {
			n = len(col)
			continue
		}
		if len(col) != n {
			return nil, fmt.Errorf("tnplot: column %q has %d entries, want %d", name, len(col), n)
		}
	}
	return &Batch{n: n, cols: cols}, nil
}

// WithIDs returns a batch carrying run and luminosity-block identifiers,
// used by luminosity masking. Both slices must match the batch length.
func (b *Batch) WithIDs(runs, lumis []uint32) (*Batch, error) {
	if len(runs) != b.n || len(lumis) != b.n {
		return nil, fmt.Errorf("tnplot: run/lumi columns have %d/%d entries, want %d", len(runs), len(lumis), b.n)
	}
	nb := b.shallow()
	nb.runs = runs
	nb.lumis = lumis
	return nb, nil
}

// Len returns the number of events in the batch.
func (b *Batch) Len() int { return b.n }

// Column returns the named column. A missing column wraps ErrMissingField.
func (b *Batch) Column(name string) ([]float64, error) {
	col, ok := b.cols[name]
	if !ok {
		return nil, fmt.Errorf("tnplot: %w: %q", ErrMissingField, name)
	}
	return col, nil
}

// HasColumn reports whether the named column exists.
func (b *Batch) HasColumn(name string) bool {
	_, ok := b.cols[name]
	return ok
}

// Fields returns the column names in sorted order.
func (b *Batch) Fields() []string {
	fields := make([]string, 0, len(b.cols))
	for name := range b.cols {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields
}

// IDs returns the run and luminosity-block identifier columns, or an error
// wrapping ErrMissingField if the batch was built without them.
func (b *Batch) IDs() (runs, lumis []uint32, err error) {
	if b.runs == nil || b.lumis == nil {
		return nil, nil, fmt.Errorf("tnplot: %w: run/lumi identifiers", ErrMissingField)
	}
	return b.runs, b.lumis, nil
}

// WithColumn returns a new batch in which the named column holds vals. The
// receiver is left untouched. The column length must match the batch.
func (b *Batch) WithColumn(name string, vals []float64) (*Batch, error) {
	if len(vals) != b.n {
		return nil, fmt.Errorf("tnplot: column %q has %d entries, want %d", name, len(vals), b.n)
	}
	nb := b.shallow()
	nb.cols[name] = vals
	return nb, nil
}

// Where returns a new batch containing only the events for which mask is
// true. All columns, including run/lumi identifiers, are compacted.
func (b *Batch) Where(mask []bool) (*Batch, error) {
	if len(mask) != b.n {
		return nil, fmt.Errorf("tnplot: mask has %d entries, want %d", len(mask), b.n)
	}
	kept := 0
	for _, keep := range mask {
		if keep {
			kept++
		}
	}
	cols := make(map[string][]float64, len(b.cols))
	for name, col := range b.cols {
		out := make([]float64, 0, kept)
		for i, keep := range mask {
			if keep {
				out = append(out, col[i])
			}
		}
		cols[name] = out
	}
	nb := &Batch{n: kept, cols: cols}
	if b.runs != nil {
		nb.runs = make([]uint32, 0, kept)
		nb.lumis = make([]uint32, 0, kept)
		for i, keep := range mask {
			if keep {
				nb.runs = append(nb.runs, b.runs[i])
				nb.lumis = append(nb.lumis, b.lumis[i])
			}
		}
	}
	return nb, nil
}

func (b *Batch) shallow() *Batch {
	cols := make(map[string][]float64, len(b.cols))
	for name, col := range b.cols {
		cols[name] = col
	}
	return &Batch{n: b.n, cols: cols, runs: b.runs, lumis: b.lumis}
}

func andMask(dst, src []bool) {
	for i := range dst {
		dst[i] = dst[i] && src[i]
	}
}

func trueMask(n int) []bool {
	mask := make([]bool, n)
	for i := range mask {
		mask[i] = true
	}
	return mask
}
