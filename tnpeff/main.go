package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"

	"go-hep.org/x/hep/hbook"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/decibelcooper/tnplot"
)

var (
	filters    tnplot.StringArrayFlags
	regions    tnplot.RegionFlags
	binEdges   tnplot.FloatArrayFlags
	flavor     = flag.String("flavor", "electron", "probe flavor: electron or photon")
	filterName = flag.String("filter", "", "filter to plot the efficiency of (defaults to the first -filters entry)")
	variable   = flag.String("var", "pt", "variable to plot against: pt, eta or phi")
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
	title      = flag.String("title", "", "plot title")
	prefix     = flag.String("prefix", "out", "output file prefix")
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
	flag.Var(&regions, "region", "eta region as name:etamin:etamax (repeatable)")
	flag.Var(&binEdges, "binedge", "histogram bin edge (repeatable)")
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

	filter := *filterName
	if filter == "" {
		filter = filters.Array[0]
	}

	vars := sel.DefaultVars()
	varIndex := map[string]int{"pt": 0, "eta": 1, "phi": 2}[*variable]
	plotVar := vars[varIndex]

	opts := tnplot.Hist1DOptions{PlateauCut: *plateau}
	switch *variable {
	case "pt":
		opts.RegionsPt = regions.Regions
	case "eta":
		opts.RegionsEta = regions.Regions
	case "phi":
		opts.RegionsPhi = regions.Regions
	default:
		log.Fatalf("unknown variable %q", *variable)
	}
	if len(binEdges.Array) > 0 {
		opts.Binnings = map[string]tnplot.AxisBinning{plotVar: {Edges: binEdges.Array}}
	}

	query, err := tnp.Histograms1D(filter, *cutNCount, massWindow(), opts, vars...)
	if err != nil {
		log.Fatal(err)
	}
	results, err := query.Compute(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	p := plot.New()
	p.Title.Text = *title
	p.X.Label.Text = plotVar
	p.Y.Label.Text = "efficiency"
	p.X.Tick.Marker = tnplot.PreciseTicks{NSuggestedTicks: 5}
	p.Y.Tick.Marker = tnplot.PreciseTicks{NSuggestedTicks: 5}
	p.Y.Min = 0
	p.Y.Max = 1.05

	i := 0
	for name, result := range results {
		if result.Report.Failed() {
			log.Printf("dataset %s failed: %v", name, result.Report.Err)
			continue
		}
		for _, fe := range result.Report.Files {
			log.Printf("dataset %s: skipped %v", name, fe)
		}
		for region, pf := range result.Hists[plotVar] {
			errPoints := efficiencyPoints(pf.Passing, pf.Failing)
			xerr, _ := plotter.NewXErrorBars(errPoints)
			yerr, _ := plotter.NewYErrorBars(errPoints)

			pointColor := color.RGBA{A: 255}
			switch i {
			case 1:
				pointColor = color.RGBA{G: 255, A: 255}
			case 2:
				pointColor = color.RGBA{B: 255, A: 255}
			case 3:
				pointColor = color.RGBA{R: 255, B: 127, G: 127, A: 255}
			}
			xerr.LineStyle.Color = pointColor
			yerr.LineStyle.Color = pointColor

			p.Add(xerr)
			p.Add(yerr)
			p.Legend.Add(name + " " + region)
			i++
		}
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, *prefix+".pdf"); err != nil {
		log.Fatal(err)
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, *prefix+".png"); err != nil {
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

// efficiencyPoints turns a passing/failing histogram pair into per-bin
// efficiencies with 68% Clopper-Pearson intervals.
func efficiencyPoints(passing, failing *hbook.H1D) plotutil.ErrorPoints {
	const alpha = 0.32

	nbins := len(passing.Binning.Bins)
	points := make(plotter.XYs, nbins)
	xErrors := make(plotter.XErrors, nbins)
	yErrors := make(plotter.YErrors, nbins)
	for i, bin := range passing.Binning.Bins {
		k := bin.SumW()
		n := k + failing.Binning.Bins[i].SumW()

		points[i].X = bin.XMid()
		xErrors[i].Low = bin.XWidth() / 2
		xErrors[i].High = bin.XWidth() / 2

		if n <= 0 {
			continue
		}
		eff := k / n
		points[i].Y = eff

		lo := 0.0
		if k > 0 {
			lo = distuv.Beta{Alpha: k, Beta: n - k + 1}.Quantile(alpha / 2)
		}
		hi := 1.0
		if k < n {
			hi = distuv.Beta{Alpha: k + 1, Beta: n - k}.Quantile(1 - alpha/2)
		}
		yErrors[i].Low = eff - lo
		yErrors[i].High = hi - eff
	}
	return plotutil.ErrorPoints{XYs: points, XErrors: xErrors, YErrors: yErrors}
}
