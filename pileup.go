package tnplot

import (
	"encoding/json"
	"fmt"
	"os"

	"go-hep.org/x/hep/hbook"
)

// PileupCorrection maps a simulation-truth pileup count to a per-probe
// weight. It is consumed only for simulated datasets.
type PileupCorrection interface {
	Weight(truePU float64) float64
}

// binnedCorrection is a lookup over fixed pileup bins. Out-of-range pileup
// counts get unit weight.
type binnedCorrection struct {
	edges   []float64
	weights []float64
}

func (c *binnedCorrection) Weight(truePU float64) float64 {
	bin, ok := binIndex(c.edges, truePU)
	if !ok {
		return 1
	}
	return c.weights[bin]
}

// LoadPileupCorrection reads a precomputed correction resource: a JSON
// document with "edges" (N+1 bin edges) and "weights" (N per-bin weights).
func LoadPileupCorrection(path string) (PileupCorrection, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tnplot: reading pileup correction: %w", err)
	}
	var doc struct {
		Edges   []float64 `json:"edges"`
		Weights []float64 `json:"weights"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("tnplot: parsing pileup correction %s: %w", path, err)
	}
	if len(doc.Edges) != len(doc.Weights)+1 {
		return nil, fmt.Errorf("tnplot: pileup correction %s: %d edges for %d weights", path, len(doc.Edges), len(doc.Weights))
	}
	for i := 1; i < len(doc.Edges); i++ {
		if doc.Edges[i] <= doc.Edges[i-1] {
			return nil, fmt.Errorf("tnplot: pileup correction %s: non-increasing bin edges", path)
		}
	}
	return &binnedCorrection{edges: doc.Edges, weights: doc.Weights}, nil
}

// NewPileupCorrection builds a correction from two reference pileup
// distributions: the per-bin ratio of the normalized data density over the
// normalized simulation density. Both histograms must share a binning.
// Bins with no simulated events get zero weight.
func NewPileupCorrection(data, mc *hbook.H1D) (PileupCorrection, error) {
	nd := len(data.Binning.Bins)
	nm := len(mc.Binning.Bins)
	if nd != nm || data.XMin() != mc.XMin() || data.XMax() != mc.XMax() {
		return nil, fmt.Errorf("tnplot: pileup reference histograms have different binnings (%d bins over [%v, %v] vs %d over [%v, %v])",
			nd, data.XMin(), data.XMax(), nm, mc.XMin(), mc.XMax())
	}
	dataSum := data.Integral()
	mcSum := mc.Integral()
	if dataSum <= 0 || mcSum <= 0 {
		return nil, fmt.Errorf("tnplot: pileup reference histograms must not be empty")
	}
	edges := make([]float64, nd+1)
	weights := make([]float64, nd)
	for i, bin := range data.Binning.Bins {
		edges[i] = bin.XMin()
		mcDensity := mc.Binning.Bins[i].SumW() / mcSum
		if mcDensity > 0 {
			weights[i] = (bin.SumW() / dataSum) / mcDensity
		}
	}
	edges[nd] = data.XMax()
	return &binnedCorrection{edges: edges, weights: weights}, nil
}

// AttachPileupWeights returns a copy of the probe records with a per-probe
// weight computed from the truth-pileup column named by puVar. The column
// is consumed: it was only a lookup key and is dropped from the output
// variables.
func AttachPileupWeights(p *Probes, corr PileupCorrection, puVar string) (*Probes, error) {
	pu, err := p.Column(puVar)
	if err != nil {
		return nil, err
	}
	weights := make([]float64, len(pu))
	for i, v := range pu {
		weights[i] = corr.Weight(v)
	}

	cols := make(map[string][]float64, len(p.cols))
	for name, col := range p.cols {
		if name == puVar {
			continue
		}
		cols[name] = col
	}
	vars := make([]string, 0, len(p.vars))
	for _, v := range p.vars {
		if v == puVar {
			continue
		}
		vars = append(vars, v)
	}
	return &Probes{
		n:       p.n,
		vars:    vars,
		cols:    cols,
		filters: p.filters,
		pass:    p.pass,
		weights: weights,
	}, nil
}
