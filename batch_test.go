package tnplot

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewBatch_UnequalColumns(t *testing.T) {
	_, err := NewBatch(map[string][]float64{"a": {1, 2}, "b": {1}})
	if err == nil {
		t.Error("unequal column lengths accepted")
	}
	if _, err := NewBatch(nil); err == nil {
		t.Error("empty batch accepted")
	}
}

func TestBatchWhere(t *testing.T) {
	b, err := NewBatch(map[string][]float64{"a": {1, 2, 3}, "b": {4, 5, 6}})
	if err != nil {
		t.Fatal(err)
	}
	b, err = b.WithIDs([]uint32{10, 11, 12}, []uint32{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}

	out, err := b.Where([]bool{true, false, true})
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 2 {
		t.Fatalf("len = %d, want 2", out.Len())
	}
	a, _ := out.Column("a")
	if diff := cmp.Diff([]float64{1, 3}, a); diff != "" {
		t.Errorf("column a (-want +got):\n%s", diff)
	}
	runs, lumis, err := out.IDs()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint32{10, 12}, runs); diff != "" {
		t.Errorf("runs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint32{1, 3}, lumis); diff != "" {
		t.Errorf("lumis (-want +got):\n%s", diff)
	}

	// The input batch is untouched.
	if b.Len() != 3 {
		t.Errorf("input batch len = %d, want 3", b.Len())
	}

	if _, err := b.Where([]bool{true}); err == nil {
		t.Error("short mask accepted")
	}
}

func TestBatchWithColumn_LeavesReceiver(t *testing.T) {
	b, err := NewBatch(map[string][]float64{"a": {1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	out, err := b.WithColumn("b", []float64{3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if !out.HasColumn("b") {
		t.Error("new batch missing added column")
	}
	if b.HasColumn("b") {
		t.Error("receiver gained the column")
	}
	if _, err := b.WithColumn("b", []float64{3}); err == nil {
		t.Error("short column accepted")
	}
}

func TestBatchColumn_Missing(t *testing.T) {
	b, err := NewBatch(map[string][]float64{"a": {1}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Column("nope"); !errors.Is(err, ErrMissingField) {
		t.Errorf("err = %v, want ErrMissingField", err)
	}
	if _, _, err := b.IDs(); !errors.Is(err, ErrMissingField) {
		t.Errorf("IDs err = %v, want ErrMissingField", err)
	}
}
