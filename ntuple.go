package tnplot

import (
	"context"
	"fmt"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"
)

// FileError records a failed read of one input file. File errors are
// diagnostics, not fatal: a dataset fails only when none of its files can
// be read.
type FileError struct {
	File string
	Err  error
}

func (e FileError) Error() string { return e.File + ": " + e.Err.Error() }

// Loader reads a dataset's files into one columnar batch. withIDs asks for
// the run and lumi identifier branches, needed for luminosity masking.
type Loader interface {
	Load(ctx context.Context, ds Dataset, columns []string, withIDs bool) (*Batch, []FileError, error)
}

// NTupleLoader reads flat tag-and-probe ntuples from ROOT files. Variable
// and flag branches are expected as Float_t, run and lumi as UInt_t.
type NTupleLoader struct{}

func (NTupleLoader) Load(ctx context.Context, ds Dataset, columns []string, withIDs bool) (*Batch, []FileError, error) {
	cols := make(map[string][]float64, len(columns))
	for _, c := range columns {
		cols[c] = []float64{}
	}
	var (
		runs, lumis []uint32
		ferrs       []FileError
	)
	readAny := false
	for _, fname := range ds.Files {
		select {
		case <-ctx.Done():
			return nil, ferrs, ctx.Err()
		default:
		}
		// Each file is read into its own slices and spliced in only after
		// a clean read, so a file that fails partway contributes nothing.
		fd, err := readNTuple(fname, ds.tree(), columns, withIDs)
		if err != nil {
			ferrs = append(ferrs, FileError{File: fname, Err: err})
			continue
		}
		for i, c := range columns {
			cols[c] = append(cols[c], fd.cols[i]...)
		}
		runs = append(runs, fd.runs...)
		lumis = append(lumis, fd.lumis...)
		readAny = true
	}
	if !readAny {
		return nil, ferrs, fmt.Errorf("tnplot: no readable files in dataset (%d failed)", len(ferrs))
	}
	b, err := NewBatch(cols)
	if err != nil {
		return nil, ferrs, err
	}
	if withIDs {
		if b, err = b.WithIDs(runs, lumis); err != nil {
			return nil, ferrs, err
		}
	}
	return b, ferrs, nil
}

// fileData holds one file's events, in column request order, until the file
// is known to have read cleanly.
type fileData struct {
	cols  [][]float64
	runs  []uint32
	lumis []uint32
}

func readNTuple(fname, treeName string, columns []string, withIDs bool) (*fileData, error) {
	f, err := groot.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	obj, err := f.Get(treeName)
	if err != nil {
		return nil, err
	}
	tree, ok := obj.(rtree.Tree)
	if !ok {
		return nil, fmt.Errorf("object %q is not a tree", treeName)
	}

	vals := make([]float32, len(columns))
	rvars := make([]rtree.ReadVar, 0, len(columns)+2)
	for i, col := range columns {
		rvars = append(rvars, rtree.ReadVar{Name: col, Value: &vals[i]})
	}
	var run, lumi uint32
	if withIDs {
		rvars = append(rvars,
			rtree.ReadVar{Name: "run", Value: &run},
			rtree.ReadVar{Name: "lumi", Value: &lumi},
		)
	}

	r, err := rtree.NewReader(tree, rvars)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	fd := &fileData{cols: make([][]float64, len(columns))}
	err = r.Read(func(rctx rtree.RCtx) error {
		for i := range columns {
			fd.cols[i] = append(fd.cols[i], float64(vals[i]))
		}
		if withIDs {
			fd.runs = append(fd.runs, run)
			fd.lumis = append(fd.lumis, lumi)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fd, nil
}
