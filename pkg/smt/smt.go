// Package smt abstracts the SMT solver behind push/pop/assert/check so
// the rest of the analyzer never depends on a concrete backend.
package smt

// Satisfiability is the three-valued result of a solver Check().
type Satisfiability int

const (
	Sat Satisfiability = iota
	Unsat
	Unknown
)

func (s Satisfiability) String() string {
	switch s {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	case Unknown:
		return "unknown"
	default:
		return "?"
	}
}

// BV is an opaque fixed-width bit-vector expression (GP registers, memory
// addresses). Every method returns a new expression; BVs are immutable.
type BV interface {
	Width() int

	Add(BV) BV
	Sub(BV) BV
	Mul(BV) BV
	UDiv(BV) BV
	SDiv(BV) BV
	URem(BV) BV
	SRem(BV) BV

	And(BV) BV
	Or(BV) BV
	Xor(BV) BV
	Not() BV
	Neg() BV

	Shl(BV) BV
	LShr(BV) BV
	AShr(BV) BV

	ZeroExtend(toWidth int) BV
	SignExtend(toWidth int) BV
	Extract(hi, lo int) BV
	ByteSwap() BV

	Eq(BV) Bool
	Ne(BV) Bool
	Ult(BV) Bool
	Ule(BV) Bool
	Ugt(BV) Bool
	Uge(BV) Bool
	Slt(BV) Bool
	Sle(BV) Bool
	Sgt(BV) Bool
	Sge(BV) Bool

	// AbsDiffGT builds `|this - other| > k`, the cache model's near-access
	// query, as unsigned arithmetic over the two's-complement difference.
	AbsDiffGT(other BV, k uint64) Bool

	// Key returns a canonical syntactic representation of this expression,
	// used as a memory map key: the data model overwrites and reads back
	// memory by exact expression equality, not by solver-assisted aliasing.
	Key() string
}

// Real is an opaque real-valued expression (FP registers). No NaN or
// rounding is modeled; see the symbolic executor's documented limitation.
type Real interface {
	Add(Real) Real
	Sub(Real) Real
	Mul(Real) Real
	Div(Real) Real
	Neg() Real

	Eq(Real) Bool
	Lt(Real) Bool
	Le(Real) Bool
	Gt(Real) Bool
	Ge(Real) Bool
}

// Bool is an opaque boolean expression (branch conditions, path
// constraints).
type Bool interface {
	And(Bool) Bool
	Or(Bool) Bool
	Not() Bool
	Xor(Bool) Bool

	// IsConstTrue/IsConstFalse report whether this Bool is a known literal,
	// letting callers skip a solver round trip for trivially-resolved
	// conditions (e.g. an unconditional JA has no branch condition at all,
	// but some transfer functions synthesize constant guards).
	IsConstTrue() bool
	IsConstFalse() bool
}

// Solver is the push/pop/assert/check interface every backend implements.
// Every Push must be matched by a Pop on the same return path; the path
// explorer (pkg/explorer) relies on this discipline to mirror DFS
// recursion depth.
type Solver interface {
	// NewBV creates a fresh, unconstrained named bit-vector of the given
	// width (64 for GP registers/addresses).
	NewBV(name string, width int) BV
	// BVConst creates a literal bit-vector.
	BVConst(value uint64, width int) BV

	// NewReal creates a fresh, unconstrained named real.
	NewReal(name string) Real
	// RealConst creates a literal real.
	RealConst(value float64) Real

	BoolConst(value bool) Bool

	// IteBV/IteReal build a conditional expression, used for the division
	// and modulo guards the symbolic executor's transfer functions need
	// (divisor zero).
	IteBV(cond Bool, then, els BV) BV
	IteReal(cond Bool, then, els Real) Real

	Push()
	Pop(n int)
	Assert(Bool)
	Check() (Satisfiability, error)
	Close()
}
