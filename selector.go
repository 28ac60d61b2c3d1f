package tnplot

import (
	"math"
	"regexp"
	"strconv"
)

// ECAL transition band in absolute pseudorapidity. Objects falling in the
// band have degraded reconstruction quality and can be vetoed.
const (
	ECALGapLo = 1.4442
	ECALGapHi = 1.566
)

// Flavor selects the probe object type and with it the ntuple field schema.
type Flavor int

const (
	Electron Flavor = iota
	Photon
)

// LumiMasker certifies (run, lumi) pairs as good for data taking. LumiMask
// implements it from a golden JSON file.
type LumiMasker interface {
	Mask(runs, lumis []uint32) []bool
}

// BatchFilter is an arbitrary user-supplied transform applied to the whole
// batch before any built-in cut.
type BatchFilter func(b *Batch) (*Batch, error)

// fieldSchema names the ntuple branches a selector reads for one flavor.
type fieldSchema struct {
	pt, eta, phi  string
	scEta, scPhi  string
	charge        string
	tagPt, tagEta string
	tagSCEta      string
	tagCharge     string
}

var electronFields = fieldSchema{
	pt: "el_pt", eta: "el_eta", phi: "el_phi",
	scEta: "el_sc_eta", scPhi: "el_sc_phi",
	charge:    "el_q",
	tagPt:     "tag_Ele_pt",
	tagEta:    "tag_Ele_eta",
	tagSCEta:  "tag_sc_eta",
	tagCharge: "tag_Ele_q",
}

var photonFields = fieldSchema{
	pt: "ph_et", eta: "ph_eta", phi: "ph_phi",
	scEta: "ph_sc_eta", scPhi: "ph_sc_phi",
	tagPt:    "tag_Ele_pt",
	tagEta:   "tag_Ele_eta",
	tagSCEta: "tag_sc_eta",
}

// pairMassField carries the tag-probe invariant mass in the ntuple.
const pairMassField = "pair_mass"

// Selector is the tag-and-probe cut pipeline. It applies kinematic and
// identification cuts to tags and probes, optional external predicates,
// optional luminosity masking and ECAL transition vetoes, then labels each
// surviving probe against every configured filter.
//
// Selectors hold configuration only; FindProbes reads its input batch and
// writes freshly allocated output, so one selector can serve concurrent
// queries.
type Selector struct {
	Flavor  Flavor
	Filters []string

	TagsPtCut       float64
	ProbesPtCut     float64 // 0 means inferred from the filter name, or 5 for several filters
	TagsAbsEtaCut   float64
	ProbesAbsEtaCut float64

	CutBasedID string // ntuple field equal to 1 for probes passing the ID; empty to skip

	ExtraTagsMask   Predicate
	ExtraProbesMask Predicate
	ExtraFilter     BatchFilter
	LumiMask        LumiMasker

	// ExtraColumns names additional ntuple branches read by ExtraFilter or
	// the extra predicates, so the loader fetches them.
	ExtraColumns []string

	UseSCEta bool
	UseSCPhi bool

	AvoidECALTransitionTags   bool
	AvoidECALTransitionProbes bool
}

// NewSelector returns a selector with the standard tag-and-probe defaults:
// tag pt above 35 GeV, tag and probe |eta| below 2.5, and the ECAL
// transition band vetoed for tags but kept for probes.
func NewSelector(flavor Flavor, filters []string) *Selector {
	return &Selector{
		Flavor:                  flavor,
		Filters:                 filters,
		TagsPtCut:               35,
		TagsAbsEtaCut:           2.5,
		ProbesAbsEtaCut:         2.5,
		AvoidECALTransitionTags: true,
	}
}

// DefaultVars returns the probe kinematic fields retained when the caller
// does not request any, in pt, eta, phi order.
func (s *Selector) DefaultVars() []string {
	f := s.schema()
	return []string{f.pt, f.eta, f.phi}
}

func (s *Selector) schema() fieldSchema {
	if s.Flavor == Photon {
		return photonFields
	}
	return electronFields
}

var filterPtRe = regexp.MustCompile(`(?i)(?:ele|pho)(\d+)`)

// findPtThreshold extracts the pt threshold embedded in a filter name such
// as HLT_Ele32_WPTight_Gsf.
func findPtThreshold(filter string) (float64, bool) {
	m := filterPtRe.FindStringSubmatch(filter)
	if m == nil {
		return 0, false
	}
	pt, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return pt, true
}

// probesPtCut resolves the probe pt threshold: the explicit cut if set, the
// single filter's embedded threshold minus 3 GeV otherwise, or 5 GeV when
// several filters are configured.
func (s *Selector) probesPtCut() (float64, error) {
	if s.ProbesPtCut != 0 {
		return s.ProbesPtCut, nil
	}
	if len(s.Filters) == 1 {
		pt, ok := findPtThreshold(s.Filters[0])
		if !ok {
			return 0, configErrorf("cannot infer a probe pt threshold from filter %q; set ProbesPtCut", s.Filters[0])
		}
		return pt - 3, nil
	}
	return 5, nil
}

// Validate checks the selector configuration. It is called once at query
// construction, before any dataset is touched.
func (s *Selector) Validate() error {
	if len(s.Filters) == 0 {
		return configErrorf("at least one filter is required")
	}
	seen := make(map[string]bool, len(s.Filters))
	for _, f := range s.Filters {
		if f == "" {
			return configErrorf("empty filter name")
		}
		if seen[f] {
			return configErrorf("duplicate filter %q", f)
		}
		seen[f] = true
	}
	if s.TagsPtCut <= 0 {
		return configErrorf("tag pt cut must be positive, got %v", s.TagsPtCut)
	}
	if s.TagsAbsEtaCut <= 0 || s.ProbesAbsEtaCut <= 0 {
		return configErrorf("absolute eta cuts must be positive")
	}
	if _, err := s.probesPtCut(); err != nil {
		return err
	}
	return nil
}

// FindProbes runs the cut pipeline on a batch and returns the surviving
// probe records: one column per requested variable, one boolean column per
// configured filter, and the pair mass when the window is a range.
//
// The pipeline order is fixed. Supercluster coordinate substitution comes
// first so every later eta cut reads the substituted values, the external
// filter and luminosity mask run before any built-in cut, and the per-filter
// labels are computed last, over the surviving probes only.
func (s *Selector) FindProbes(b *Batch, window MassWindow, vars []string) (*Probes, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := window.validate(); err != nil {
		return nil, err
	}
	if len(vars) == 0 {
		vars = s.DefaultVars()
	}
	f := s.schema()

	// Coordinate substitution.
	if s.UseSCEta {
		scEta, err := b.Column(f.scEta)
		if err != nil {
			return nil, err
		}
		tagSCEta, err := b.Column(f.tagSCEta)
		if err != nil {
			return nil, err
		}
		if b, err = b.WithColumn(f.eta, scEta); err != nil {
			return nil, err
		}
		if b, err = b.WithColumn(f.tagEta, tagSCEta); err != nil {
			return nil, err
		}
	}
	if s.UseSCPhi {
		scPhi, err := b.Column(f.scPhi)
		if err != nil {
			return nil, err
		}
		var err2 error
		if b, err2 = b.WithColumn(f.phi, scPhi); err2 != nil {
			return nil, err2
		}
	}

	// External batch filter.
	if s.ExtraFilter != nil {
		fb, err := s.ExtraFilter(b)
		if err != nil {
			return nil, err
		}
		b = fb
	}

	// Luminosity masking.
	if s.LumiMask != nil {
		runs, lumis, err := b.IDs()
		if err != nil {
			return nil, err
		}
		if b, err = b.Where(s.LumiMask.Mask(runs, lumis)); err != nil {
			return nil, err
		}
	}

	// ECAL transition vetoes.
	if s.AvoidECALTransitionTags {
		var err error
		if b, err = s.vetoECALGap(b, f.tagEta); err != nil {
			return nil, err
		}
	}
	if s.AvoidECALTransitionProbes {
		var err error
		if b, err = s.vetoECALGap(b, f.eta); err != nil {
			return nil, err
		}
	}

	// Tag and probe kinematic cuts, charge and extra predicates.
	mask := trueMask(b.Len())
	if err := andFieldMask(mask, b, f.tagPt, func(v float64) bool { return v > s.TagsPtCut }); err != nil {
		return nil, err
	}
	if err := andFieldMask(mask, b, f.tagEta, func(v float64) bool { return math.Abs(v) < s.TagsAbsEtaCut }); err != nil {
		return nil, err
	}
	if err := andFieldMask(mask, b, f.eta, func(v float64) bool { return math.Abs(v) < s.ProbesAbsEtaCut }); err != nil {
		return nil, err
	}
	if s.Flavor == Electron {
		opposite := PairCmp{Left: f.tagCharge, Arith: ArithMul, Right: f.charge, Op: CmpEQ, Value: -1}
		m, err := opposite.Mask(b)
		if err != nil {
			return nil, err
		}
		andMask(mask, m)
	}
	if s.ExtraTagsMask != nil {
		m, err := s.ExtraTagsMask.Mask(b)
		if err != nil {
			return nil, err
		}
		andMask(mask, m)
	}
	if s.ExtraProbesMask != nil {
		m, err := s.ExtraProbesMask.Mask(b)
		if err != nil {
			return nil, err
		}
		andMask(mask, m)
	}
	b, err := b.Where(mask)
	if err != nil {
		return nil, err
	}

	// Probe pt, cut-based ID and mass window.
	ptCut, err := s.probesPtCut()
	if err != nil {
		return nil, err
	}
	mask = trueMask(b.Len())
	if err := andFieldMask(mask, b, f.pt, func(v float64) bool { return v > ptCut }); err != nil {
		return nil, err
	}
	if s.CutBasedID != "" {
		if err := andFieldMask(mask, b, s.CutBasedID, func(v float64) bool { return v == 1 }); err != nil {
			return nil, err
		}
	}
	if err := andFieldMask(mask, b, pairMassField, window.InWindow); err != nil {
		return nil, err
	}
	if b, err = b.Where(mask); err != nil {
		return nil, err
	}

	// Per-filter labels over the surviving probes.
	pass := make(map[string][]bool, len(s.Filters))
	for _, filter := range s.Filters {
		col, err := b.Column(filter)
		if err != nil {
			return nil, err
		}
		labels := make([]bool, len(col))
		for i, v := range col {
			labels[i] = v == 1
		}
		pass[filter] = labels
	}

	return zipProbes(b, vars, s.Filters, pass, !window.CutAndCount())
}

func (s *Selector) vetoECALGap(b *Batch, etaField string) (*Batch, error) {
	mask := trueMask(b.Len())
	err := andFieldMask(mask, b, etaField, func(v float64) bool {
		a := math.Abs(v)
		return a < ECALGapLo || a > ECALGapHi
	})
	if err != nil {
		return nil, err
	}
	return b.Where(mask)
}

func andFieldMask(mask []bool, b *Batch, field string, keep func(float64) bool) error {
	col, err := b.Column(field)
	if err != nil {
		return err
	}
	for i, v := range col {
		mask[i] = mask[i] && keep(v)
	}
	return nil
}
