package tnplot

import "math"

// Predicate is a boolean expression over a batch, producing one decision per
// event. Predicates replace free-form mask strings: selections that used to
// be written as "events.<field> > x & events.<field2> == y" are composed
// from FieldCmp, PairCmp and And/Or/Not values instead.
type Predicate interface {
	Mask(b *Batch) ([]bool, error)
}

// CmpOp is a comparison operator used by predicates.
type CmpOp int

const (
	CmpLT CmpOp = iota
	CmpLE
	CmpGT
	CmpGE
	CmpEQ
	CmpNE
)

func (op CmpOp) eval(a, b float64) bool {
	switch op {
	case CmpLT:
		return a < b
	case CmpLE:
		return a <= b
	case CmpGT:
		return a > b
	case CmpGE:
		return a >= b
	case CmpEQ:
		return a == b
	default:
		return a != b
	}
}

// ArithOp is a binary arithmetic operator combining two fields in a PairCmp.
type ArithOp int

const (
	ArithAdd ArithOp = iota
	ArithSub
	ArithMul
	ArithDiv
)

func (op ArithOp) eval(a, b float64) float64 {
	switch op {
	case ArithAdd:
		return a + b
	case ArithSub:
		return a - b
	case ArithMul:
		return a * b
	default:
		return a / b
	}
}

// FieldCmp compares a single field against a constant. With Abs set the
// absolute value of the field is compared.
type FieldCmp struct {
	Field string
	Op    CmpOp
	Value float64
	Abs   bool
}

func (p FieldCmp) Mask(b *Batch) ([]bool, error) {
	col, err := b.Column(p.Field)
	if err != nil {
		return nil, err
	}
	mask := make([]bool, len(col))
	for i, v := range col {
		if p.Abs {
			v = math.Abs(v)
		}
		mask[i] = p.Op.eval(v, p.Value)
	}
	return mask, nil
}

// PairCmp combines two fields with an arithmetic operator and compares the
// result against a constant, e.g. tag charge times probe charge equals -1.
type PairCmp struct {
	Left  string
	Arith ArithOp
	Right string
	Op    CmpOp
	Value float64
}

func (p PairCmp) Mask(b *Batch) ([]bool, error) {
	left, err := b.Column(p.Left)
	if err != nil {
		return nil, err
	}
	right, err := b.Column(p.Right)
	if err != nil {
		return nil, err
	}
	mask := make([]bool, len(left))
	for i := range left {
		mask[i] = p.Op.eval(p.Arith.eval(left[i], right[i]), p.Value)
	}
	return mask, nil
}

type andPred []Predicate

func (ps andPred) Mask(b *Batch) ([]bool, error) {
	mask := trueMask(b.Len())
	for _, p := range ps {
		m, err := p.Mask(b)
		if err != nil {
			return nil, err
		}
		andMask(mask, m)
	}
	return mask, nil
}

type orPred []Predicate

func (ps orPred) Mask(b *Batch) ([]bool, error) {
	mask := make([]bool, b.Len())
	for _, p := range ps {
		m, err := p.Mask(b)
		if err != nil {
			return nil, err
		}
		for i := range mask {
			mask[i] = mask[i] || m[i]
		}
	}
	return mask, nil
}

type notPred struct{ p Predicate }

func (np notPred) Mask(b *Batch) ([]bool, error) {
	m, err := np.p.Mask(b)
	if err != nil {
		return nil, err
	}
	for i := range m {
		m[i] = !m[i]
	}
	return m, nil
}

// And returns a predicate true where all sub-predicates are true.
func And(ps ...Predicate) Predicate { return andPred(ps) }

// Or returns a predicate true where any sub-predicate is true.
func Or(ps ...Predicate) Predicate { return orPred(ps) }

// Not negates a predicate.
func Not(p Predicate) Predicate { return notPred{p} }

// PredicateFunc adapts a function to the Predicate interface.
type PredicateFunc func(b *Batch) ([]bool, error)

func (f PredicateFunc) Mask(b *Batch) ([]bool, error) { return f(b) }
