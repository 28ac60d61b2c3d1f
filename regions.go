package tnplot

import "math"

// EtaRegion is a named interval [Lo, Hi) over absolute pseudorapidity.
type EtaRegion struct {
	Lo, Hi float64
}

// Contains reports whether |eta| falls inside the region.
func (r EtaRegion) Contains(eta float64) bool {
	a := math.Abs(eta)
	return a >= r.Lo && a < r.Hi
}

// EtaRegions maps region names to absolute-eta intervals. Regions are
// evaluated independently: they need not tile the detector and may overlap,
// in which case a probe populates every region it falls in.
type EtaRegions map[string]EtaRegion

func (rs EtaRegions) validate() error {
	for name, r := range rs {
		if r.Lo >= r.Hi {
			return configErrorf("eta region %q must satisfy lo < hi, got [%v, %v)", name, r.Lo, r.Hi)
		}
	}
	return nil
}

// DefaultPtRegions splits pt histograms into barrel and endcap, excluding
// the ECAL transition band.
func DefaultPtRegions() EtaRegions {
	return EtaRegions{
		"barrel": {0, ECALGapLo},
		"endcap": {ECALGapHi, 2.5},
	}
}

// DefaultWideRegion covers the full |eta| < 2.5 acceptance as one region,
// the default for eta and phi histograms.
func DefaultWideRegion() EtaRegions {
	return EtaRegions{"entire": {0, 2.5}}
}
