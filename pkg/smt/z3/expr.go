package z3

import (
	"github.com/aclements/go-z3/z3"

	"github.com/fprime/bpfwcet/pkg/smt"
)

type bv struct {
	s     *Solver
	ast   z3.BV
	width int
}

func (b bv) Width() int { return b.width }

func (b bv) wrap(ast z3.BV) bv { return bv{s: b.s, ast: ast, width: b.width} }

func (b bv) Add(o smt.BV) smt.BV  { return b.wrap(b.ast.Add(o.(bv).ast)) }
func (b bv) Sub(o smt.BV) smt.BV  { return b.wrap(b.ast.Sub(o.(bv).ast)) }
func (b bv) Mul(o smt.BV) smt.BV  { return b.wrap(b.ast.Mul(o.(bv).ast)) }
func (b bv) UDiv(o smt.BV) smt.BV { return b.wrap(b.ast.UDiv(o.(bv).ast)) }
func (b bv) SDiv(o smt.BV) smt.BV { return b.wrap(b.ast.SDiv(o.(bv).ast)) }
func (b bv) URem(o smt.BV) smt.BV { return b.wrap(b.ast.URem(o.(bv).ast)) }
func (b bv) SRem(o smt.BV) smt.BV { return b.wrap(b.ast.SRem(o.(bv).ast)) }

func (b bv) And(o smt.BV) smt.BV { return b.wrap(b.ast.And(o.(bv).ast)) }
func (b bv) Or(o smt.BV) smt.BV  { return b.wrap(b.ast.Or(o.(bv).ast)) }
func (b bv) Xor(o smt.BV) smt.BV { return b.wrap(b.ast.Xor(o.(bv).ast)) }
func (b bv) Not() smt.BV         { return b.wrap(b.ast.Not()) }
func (b bv) Neg() smt.BV         { return b.wrap(b.ast.Neg()) }

func (b bv) Shl(o smt.BV) smt.BV  { return b.wrap(b.ast.Lsh(o.(bv).ast)) }
func (b bv) LShr(o smt.BV) smt.BV { return b.wrap(b.ast.URsh(o.(bv).ast)) }
func (b bv) AShr(o smt.BV) smt.BV { return b.wrap(b.ast.SRsh(o.(bv).ast)) }

func (b bv) ZeroExtend(toWidth int) smt.BV {
	return bv{s: b.s, ast: b.ast.ZeroExt(toWidth - b.width), width: toWidth}
}
func (b bv) SignExtend(toWidth int) smt.BV {
	return bv{s: b.s, ast: b.ast.SignExt(toWidth - b.width), width: toWidth}
}
func (b bv) Extract(hi, lo int) smt.BV {
	return bv{s: b.s, ast: b.ast.Extract(hi, lo), width: hi - lo + 1}
}
func (b bv) ByteSwap() smt.BV {
	// Reassemble byte-reversed by extracting and concatenating each byte
	// lane; width must be a multiple of 8.
	nbytes := b.width / 8
	out := b.ast.Extract(7, 0)
	for i := 1; i < nbytes; i++ {
		lane := b.ast.Extract((i+1)*8-1, i*8)
		out = out.Concat(lane)
	}
	return bv{s: b.s, ast: out, width: b.width}
}

func (b bv) Eq(o smt.BV) smt.Bool  { return boolExpr{s: b.s, ast: b.ast.Eq(o.(bv).ast)} }
func (b bv) Ne(o smt.BV) smt.Bool  { return boolExpr{s: b.s, ast: b.ast.Eq(o.(bv).ast).Not()} }
func (b bv) Ult(o smt.BV) smt.Bool { return boolExpr{s: b.s, ast: b.ast.ULT(o.(bv).ast)} }
func (b bv) Ule(o smt.BV) smt.Bool { return boolExpr{s: b.s, ast: b.ast.ULE(o.(bv).ast)} }
func (b bv) Ugt(o smt.BV) smt.Bool { return boolExpr{s: b.s, ast: b.ast.UGT(o.(bv).ast)} }
func (b bv) Uge(o smt.BV) smt.Bool { return boolExpr{s: b.s, ast: b.ast.UGE(o.(bv).ast)} }
func (b bv) Slt(o smt.BV) smt.Bool { return boolExpr{s: b.s, ast: b.ast.SLT(o.(bv).ast)} }
func (b bv) Sle(o smt.BV) smt.Bool { return boolExpr{s: b.s, ast: b.ast.SLE(o.(bv).ast)} }
func (b bv) Sgt(o smt.BV) smt.Bool { return boolExpr{s: b.s, ast: b.ast.SGT(o.(bv).ast)} }
func (b bv) Sge(o smt.BV) smt.Bool { return boolExpr{s: b.s, ast: b.ast.SGE(o.(bv).ast)} }

func (b bv) Key() string { return b.ast.String() }

// AbsDiffGT builds `|this - other| > k` using the "min(a-b,b-a) unsigned
// compare" idiom: the absolute difference exceeds k only when both
// wrapped differences do, avoiding a separate abs operator.
func (b bv) AbsDiffGT(other smt.BV, k uint64) smt.Bool {
	o := other.(bv)
	diff1 := b.ast.Sub(o.ast)
	diff2 := o.ast.Sub(b.ast)
	kConst := b.s.ctx.FromInt(int64(k), b.s.ctx.BVSort(b.width))
	cond1 := diff1.UGT(kConst)
	cond2 := diff2.UGT(kConst)
	return boolExpr{s: b.s, ast: cond1.And(cond2)}
}

type real struct {
	s   *Solver
	ast z3.Real
}

func (r real) Add(o smt.Real) smt.Real { return real{s: r.s, ast: r.ast.Add(o.(real).ast)} }
func (r real) Sub(o smt.Real) smt.Real { return real{s: r.s, ast: r.ast.Sub(o.(real).ast)} }
func (r real) Mul(o smt.Real) smt.Real { return real{s: r.s, ast: r.ast.Mul(o.(real).ast)} }
func (r real) Div(o smt.Real) smt.Real { return real{s: r.s, ast: r.ast.Div(o.(real).ast)} }
func (r real) Neg() smt.Real           { return real{s: r.s, ast: r.ast.Neg()} }

func (r real) Eq(o smt.Real) smt.Bool { return boolExpr{s: r.s, ast: r.ast.Eq(o.(real).ast)} }
func (r real) Lt(o smt.Real) smt.Bool { return boolExpr{s: r.s, ast: r.ast.LT(o.(real).ast)} }
func (r real) Le(o smt.Real) smt.Bool { return boolExpr{s: r.s, ast: r.ast.LE(o.(real).ast)} }
func (r real) Gt(o smt.Real) smt.Bool { return boolExpr{s: r.s, ast: r.ast.GT(o.(real).ast)} }
func (r real) Ge(o smt.Real) smt.Bool { return boolExpr{s: r.s, ast: r.ast.GE(o.(real).ast)} }

type boolExpr struct {
	s   *Solver
	ast z3.Bool
}

func (b boolExpr) And(o smt.Bool) smt.Bool { return boolExpr{s: b.s, ast: b.ast.And(o.(boolExpr).ast)} }
func (b boolExpr) Or(o smt.Bool) smt.Bool  { return boolExpr{s: b.s, ast: b.ast.Or(o.(boolExpr).ast)} }
func (b boolExpr) Not() smt.Bool           { return boolExpr{s: b.s, ast: b.ast.Not()} }
func (b boolExpr) Xor(o smt.Bool) smt.Bool { return boolExpr{s: b.s, ast: b.ast.Xor(o.(boolExpr).ast)} }

func (b boolExpr) IsConstTrue() bool {
	v, isConst := b.ast.AsBool()
	return isConst && v
}
func (b boolExpr) IsConstFalse() bool {
	v, isConst := b.ast.AsBool()
	return isConst && !v
}
