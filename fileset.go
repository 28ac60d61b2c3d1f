package tnplot

import (
	"encoding/json"
	"fmt"
	"os"

	"go-hep.org/x/hep/hbook"
)

// DefaultTreeName is the tree read from ntuple files when a dataset does
// not name one.
const DefaultTreeName = "fitter_tree"

// defaultTruePUVar is the truth-pileup branch used as the pileup-weight
// lookup key when a dataset does not name one. NanoAOD-derived ntuples
// carry it as Pileup_nTrueInt instead, set TruePUVar on those datasets.
const defaultTruePUVar = "truePU"

// Dataset describes one input dataset: its files and the metadata that
// drives per-dataset behavior. All optional behavior is named explicitly
// here and validated once, at query construction.
type Dataset struct {
	Files []string `json:"files"`
	Tree  string   `json:"tree,omitempty"`
	IsMC  bool     `json:"isMC,omitempty"`

	// Pileup correction sources, simulation only. Either a precomputed
	// correction resource, or two reference distributions (data and
	// simulation) as YODA histograms. PileupJSON wins when both are set.
	PileupJSON string `json:"pileupJSON,omitempty"`
	PileupData string `json:"pileupData,omitempty"`
	PileupMC   string `json:"pileupMC,omitempty"`

	// TruePUVar is the truth-pileup branch name; defaults to truePU.
	TruePUVar string `json:"truePUVar,omitempty"`
}

func (ds Dataset) tree() string {
	if ds.Tree == "" {
		return DefaultTreeName
	}
	return ds.Tree
}

func (ds Dataset) truePUVar() string {
	if ds.TruePUVar == "" {
		return defaultTruePUVar
	}
	return ds.TruePUVar
}

func (ds Dataset) hasPileupSources() bool {
	return ds.PileupJSON != "" || (ds.PileupData != "" && ds.PileupMC != "")
}

func (ds Dataset) validate(name string) error {
	if len(ds.Files) == 0 {
		return configErrorf("dataset %q has no files", name)
	}
	if (ds.PileupData == "") != (ds.PileupMC == "") {
		return configErrorf("dataset %q must set both pileupData and pileupMC or neither", name)
	}
	if !ds.IsMC && ds.hasPileupSources() {
		return configErrorf("dataset %q has pileup correction sources but is not simulation", name)
	}
	return nil
}

// pileupCorrection loads the dataset's pileup correction. It returns nil
// when the dataset carries no correction sources.
func (ds Dataset) pileupCorrection() (PileupCorrection, error) {
	switch {
	case ds.PileupJSON != "":
		return LoadPileupCorrection(ds.PileupJSON)
	case ds.PileupData != "" && ds.PileupMC != "":
		data, err := loadRefHist(ds.PileupData)
		if err != nil {
			return nil, err
		}
		mc, err := loadRefHist(ds.PileupMC)
		if err != nil {
			return nil, err
		}
		return NewPileupCorrection(data, mc)
	}
	return nil, nil
}

func loadRefHist(path string) (*hbook.H1D, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tnplot: reading pileup reference: %w", err)
	}
	var h hbook.H1D
	if err := h.UnmarshalYODA(raw); err != nil {
		return nil, fmt.Errorf("tnplot: parsing pileup reference %s: %w", path, err)
	}
	return &h, nil
}

// Fileset maps dataset names to their descriptors.
type Fileset map[string]Dataset

// Validate checks every dataset descriptor.
func (fs Fileset) Validate() error {
	if len(fs) == 0 {
		return configErrorf("empty fileset")
	}
	for name, ds := range fs {
		if err := ds.validate(name); err != nil {
			return err
		}
	}
	return nil
}

// LoadFileset reads a fileset from a JSON document mapping dataset names
// to descriptors.
func LoadFileset(path string) (Fileset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tnplot: reading fileset: %w", err)
	}
	var fs Fileset
	if err := json.Unmarshal(raw, &fs); err != nil {
		return nil, fmt.Errorf("tnplot: parsing fileset %s: %w", path, err)
	}
	return fs, nil
}
