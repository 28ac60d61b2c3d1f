package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/profile"
	"go-hep.org/x/hep/hbook"

	"github.com/decibelcooper/tnplot"
)

var (
	filters    tnplot.StringArrayFlags
	flavor     = flag.String("flavor", "electron", "probe flavor: electron or photon")
	filterName = flag.String("filter", "", "filter to split on (defaults to the first -filters entry)")
	nd         = flag.Bool("nd", false, "fill one joint N-dimensional histogram instead of 1-D histograms")
	tagsPt     = flag.Float64("tagspt", 35, "tag pt cut")
	probesPt   = flag.Float64("probespt", 0, "probe pt cut (0: infer from the filter name)")
	tagsEta    = flag.Float64("tagseta", 2.5, "tag |eta| cut")
	probesEta  = flag.Float64("probeseta", 2.5, "probe |eta| cut")
	cutBasedID = flag.String("id", "", "cut-based ID field required on the probes")
	goldenJSON = flag.String("goldenjson", "", "golden json for luminosity masking")
	scEta      = flag.Bool("sceta", false, "use supercluster eta")
	scPhi      = flag.Bool("scphi", false, "use supercluster phi")
	gapTags    = flag.Bool("gaptags", true, "veto the ECAL transition region for tags")
	gapProbes  = flag.Bool("gapprobes", false, "veto the ECAL transition region for probes")
	cutNCount  = flag.Bool("cutncount", true, "cut and count instead of mass-range selection")
	window     = flag.Float64("window", 30, "mass window width around the Z mass (cut and count)")
	massLo     = flag.Float64("masslo", 50, "mass range lower bound")
	massHi     = flag.Float64("masshi", 130, "mass range upper bound")
	plateau    = flag.Float64("plateau", 0, "plateau pt cut for eta and phi histograms")
	outDir     = flag.String("outdir", ".", "output directory")
	doProfile  = flag.Bool("profile", false, "write a cpu profile")
)

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: `+os.Args[0]+` [options] <fileset.json>

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	flag.Var(&filters, "filters", "filter to label probes against (repeatable)")
	flag.Usage = printUsage
	flag.Parse()
	if flag.NArg() != 1 || len(filters.Array) == 0 {
		printUsage()
		log.Fatal("Invalid arguments")
	}
	if *doProfile {
		defer profile.Start().Stop()
	}

	fileset, err := tnplot.LoadFileset(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	sel := newSelector()
	tnp, err := tnplot.New(sel, fileset)
	if err != nil {
		log.Fatal(err)
	}

	filter := *filterName
	if filter == "" {
		filter = filters.Array[0]
	}

	if *nd {
		writeND(tnp, filter)
		return
	}
	write1D(tnp, filter)
}

func write1D(tnp *tnplot.TagNProbe, filter string) {
	query, err := tnp.Histograms1D(filter, *cutNCount, massWindow(), tnplot.Hist1DOptions{PlateauCut: *plateau})
	if err != nil {
		log.Fatal(err)
	}
	results, err := query.Compute(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	for name, result := range results {
		if reportIssues(result.Report) {
			continue
		}
		for varName, byRegion := range result.Hists {
			for region, pf := range byRegion {
				writeYODA(fmt.Sprintf("%s_%s_%s_passing.yoda", name, varName, region), pf.Passing)
				writeYODA(fmt.Sprintf("%s_%s_%s_failing.yoda", name, varName, region), pf.Failing)
			}
		}
	}
}

func writeND(tnp *tnplot.TagNProbe, filter string) {
	query, err := tnp.HistogramsND(filter, *cutNCount, massWindow(), nil)
	if err != nil {
		log.Fatal(err)
	}
	results, err := query.Compute(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	for name, result := range results {
		if reportIssues(result.Report) {
			continue
		}
		writeJSON(name+"_passing.json", result.Hists.Passing)
		writeJSON(name+"_failing.json", result.Hists.Failing)
	}
}

func reportIssues(report tnplot.Report) bool {
	for _, fe := range report.Files {
		log.Printf("dataset %s: skipped %v", report.Dataset, fe)
	}
	if report.Failed() {
		log.Printf("dataset %s failed: %v", report.Dataset, report.Err)
		return true
	}
	return false
}

func writeYODA(name string, h *hbook.H1D) {
	raw, err := h.MarshalYODA()
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(*outDir, name), raw, 0644); err != nil {
		log.Fatal(err)
	}
}

func writeJSON(name string, h *tnplot.HistND) {
	raw, err := json.Marshal(h)
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(*outDir, name), raw, 0644); err != nil {
		log.Fatal(err)
	}
}

func newSelector() *tnplot.Selector {
	fl := tnplot.Electron
	if *flavor == "photon" {
		fl = tnplot.Photon
	}
	sel := tnplot.NewSelector(fl, filters.Array)
	sel.TagsPtCut = *tagsPt
	sel.ProbesPtCut = *probesPt
	sel.TagsAbsEtaCut = *tagsEta
	sel.ProbesAbsEtaCut = *probesEta
	sel.CutBasedID = *cutBasedID
	sel.UseSCEta = *scEta
	sel.UseSCPhi = *scPhi
	sel.AvoidECALTransitionTags = *gapTags
	sel.AvoidECALTransitionProbes = *gapProbes
	if *goldenJSON != "" {
		mask, err := tnplot.LoadLumiMask(*goldenJSON)
		if err != nil {
			log.Fatal(err)
		}
		sel.LumiMask = mask
	}
	return sel
}

func massWindow() *tnplot.MassWindow {
	var w tnplot.MassWindow
	if *cutNCount {
		w = tnplot.CutAndCountWindow(*window)
	} else {
		w = tnplot.MassRange(*massLo, *massHi)
	}
	return &w
}
