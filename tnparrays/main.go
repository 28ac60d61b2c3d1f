package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"go-hep.org/x/hep/csvutil"

	"github.com/decibelcooper/tnplot"
)

var (
	filters    tnplot.StringArrayFlags
	vars       tnplot.StringArrayFlags
	flavor     = flag.String("flavor", "electron", "probe flavor: electron or photon")
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
	outDir     = flag.String("outdir", ".", "output directory")
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
	flag.Var(&vars, "vars", "probe variable to retain (repeatable)")
	flag.Usage = printUsage
	flag.Parse()
	if flag.NArg() != 1 || len(filters.Array) == 0 {
		printUsage()
		log.Fatal("Invalid arguments")
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

	query, err := tnp.SelectProbes(*cutNCount, massWindow(), vars.Array...)
	if err != nil {
		log.Fatal(err)
	}
	results, err := query.Compute(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	for name, result := range results {
		for _, fe := range result.Report.Files {
			log.Printf("dataset %s: skipped %v", name, fe)
		}
		if result.Report.Failed() {
			log.Printf("dataset %s failed: %v", name, result.Report.Err)
			continue
		}
		if err := writeCSV(name, result.Probes); err != nil {
			log.Fatal(err)
		}
	}
}

func writeCSV(dataset string, probes *tnplot.Probes) error {
	columns := probes.Vars()
	if probes.HasColumn("pair_mass") {
		columns = append(columns, "pair_mass")
	}
	filters := probes.Filters()

	tbl, err := csvutil.Create(filepath.Join(*outDir, dataset+".csv"))
	if err != nil {
		return err
	}
	defer tbl.Close()
	tbl.Writer.Comma = ','

	header := strings.Join(append(append([]string{}, columns...), filters...), ",")
	if err := tbl.WriteHeader("# " + header + "\n"); err != nil {
		return err
	}

	cols := make([][]float64, len(columns))
	for i, c := range columns {
		if cols[i], err = probes.Column(c); err != nil {
			return err
		}
	}
	labels := make([][]bool, len(filters))
	for i, f := range filters {
		if labels[i], err = probes.Pass(f); err != nil {
			return err
		}
	}

	for j := 0; j < probes.Len(); j++ {
		row := make([]interface{}, 0, len(cols)+len(labels))
		for _, col := range cols {
			row = append(row, col[j])
		}
		for _, label := range labels {
			row = append(row, label[j])
		}
		if err := tbl.WriteRow(row...); err != nil {
			return err
		}
	}
	return nil
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
