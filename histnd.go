package tnplot

import (
	"encoding/json"
	"sort"
)

// HistND is an N-dimensional count accumulator with per-bin sum of weights
// and sum of squared weights. hbook caps at two dimensions, so joint
// pt-eta-phi(-mass) histograms use this type; 1-D aggregation stays on
// hbook.H1D.
//
// Fills outside the axis ranges are counted as overflow entries but not
// binned. A HistND is never mutated after being returned to the caller.
type HistND struct {
	axes     []histAxis
	sumw     []float64
	sumw2    []float64
	entries  int64
	overflow int64
}

type histAxis struct {
	name  string
	edges []float64
}

// NewHistND builds an empty histogram with the given axes.
func NewHistND(axes ...AxisBinning) (*HistND, error) {
	if len(axes) == 0 {
		return nil, configErrorf("N-dimensional histogram needs at least one axis")
	}
	h := &HistND{axes: make([]histAxis, len(axes))}
	nbins := 1
	for i, a := range axes {
		if err := a.validate(); err != nil {
			return nil, err
		}
		edges := a.edges()
		h.axes[i] = histAxis{name: a.Name, edges: edges}
		nbins *= len(edges) - 1
	}
	h.sumw = make([]float64, nbins)
	h.sumw2 = make([]float64, nbins)
	return h, nil
}

// Rank returns the number of axes.
func (h *HistND) Rank() int { return len(h.axes) }

// AxisNames returns the axis names in order.
func (h *HistND) AxisNames() []string {
	names := make([]string, len(h.axes))
	for i, a := range h.axes {
		names[i] = a.name
	}
	return names
}

// AxisEdges returns the bin edges of axis i.
func (h *HistND) AxisEdges(i int) []float64 {
	return append([]float64(nil), h.axes[i].edges...)
}

// Bins returns the number of bins along axis i.
func (h *HistND) Bins(i int) int { return len(h.axes[i].edges) - 1 }

// Entries returns the number of in-range fills.
func (h *HistND) Entries() int64 { return h.entries }

// Overflow returns the number of fills that fell outside the axis ranges.
func (h *HistND) Overflow() int64 { return h.overflow }

// Fill adds a weighted entry at the given coordinates, one per axis.
func (h *HistND) Fill(coords []float64, w float64) {
	idx, ok := h.index(coords)
	if !ok {
		h.overflow++
		return
	}
	h.sumw[idx] += w
	h.sumw2[idx] += w * w
	h.entries++
}

// SumW returns the sum of weights in the bin addressed by per-axis indices.
func (h *HistND) SumW(bins ...int) float64 {
	return h.sumw[h.flat(bins)]
}

// SumW2 returns the sum of squared weights in the bin addressed by per-axis
// indices.
func (h *HistND) SumW2(bins ...int) float64 {
	return h.sumw2[h.flat(bins)]
}

func (h *HistND) flat(bins []int) int {
	idx := 0
	for i, a := range h.axes {
		idx = idx*(len(a.edges)-1) + bins[i]
	}
	return idx
}

func (h *HistND) index(coords []float64) (int, bool) {
	idx := 0
	for i, a := range h.axes {
		bin, ok := binIndex(a.edges, coords[i])
		if !ok {
			return 0, false
		}
		idx = idx*(len(a.edges)-1) + bin
	}
	return idx, true
}

// binIndex locates x in half-open bins [edges[i], edges[i+1]).
func binIndex(edges []float64, x float64) (int, bool) {
	if x < edges[0] || x >= edges[len(edges)-1] {
		return 0, false
	}
	i := sort.SearchFloat64s(edges, x)
	if i < len(edges) && edges[i] == x {
		return i, true
	}
	return i - 1, true
}

// MarshalJSON serializes the histogram with its axes and per-bin sums, for
// writing N-dimensional results to disk.
func (h *HistND) MarshalJSON() ([]byte, error) {
	type axisJSON struct {
		Name  string    `json:"name"`
		Edges []float64 `json:"edges"`
	}
	out := struct {
		Axes     []axisJSON `json:"axes"`
		SumW     []float64  `json:"sumw"`
		SumW2    []float64  `json:"sumw2"`
		Entries  int64      `json:"entries"`
		Overflow int64      `json:"overflow"`
	}{
		SumW:     h.sumw,
		SumW2:    h.sumw2,
		Entries:  h.entries,
		Overflow: h.overflow,
	}
	for _, a := range h.axes {
		out.Axes = append(out.Axes, axisJSON{Name: a.name, Edges: a.edges})
	}
	return json.Marshal(out)
}
