// Package z3 implements pkg/smt.Solver on top of github.com/aclements/go-z3,
// the Go ecosystem's Z3 binding. No component outside this package imports
// go-z3 directly; everything else depends only on pkg/smt's interfaces.
package z3

import (
	"github.com/aclements/go-z3/z3"

	"github.com/fprime/bpfwcet/pkg/smt"
)

// Solver wraps one z3.Context and z3.Solver. It is not safe for concurrent
// use — the analyzer is single-threaded by design.
type Solver struct {
	ctx    *z3.Context
	solver *z3.Solver
}

// New creates a Solver with a fresh z3 context.
func New() *Solver {
	ctx := z3.NewContext(nil)
	return &Solver{ctx: ctx, solver: z3.NewSolver(ctx)}
}

func (s *Solver) NewBV(name string, width int) smt.BV {
	sort := s.ctx.BVSort(width)
	return bv{s: s, ast: s.ctx.Const(name, sort), width: width}
}

func (s *Solver) BVConst(value uint64, width int) smt.BV {
	return bv{s: s, ast: s.ctx.FromInt(int64(value), s.ctx.BVSort(width)), width: width}
}

func (s *Solver) NewReal(name string) smt.Real {
	return real{s: s, ast: s.ctx.Const(name, s.ctx.RealSort())}
}

func (s *Solver) RealConst(value float64) smt.Real {
	return real{s: s, ast: s.ctx.FromFloat64(value, s.ctx.RealSort())}
}

func (s *Solver) BoolConst(value bool) smt.Bool {
	if value {
		return boolExpr{s: s, ast: s.ctx.BoolConst(true)}
	}
	return boolExpr{s: s, ast: s.ctx.BoolConst(false)}
}

func (s *Solver) IteBV(cond smt.Bool, then, els smt.BV) smt.BV {
	t, e := then.(bv), els.(bv)
	return bv{s: s, ast: cond.(boolExpr).ast.IfThenElse(t.ast, e.ast).(z3.BV), width: t.width}
}

func (s *Solver) IteReal(cond smt.Bool, then, els smt.Real) smt.Real {
	t, e := then.(real), els.(real)
	return real{s: s, ast: cond.(boolExpr).ast.IfThenElse(t.ast, e.ast).(z3.Real)}
}

func (s *Solver) Push() { s.solver.Push() }

func (s *Solver) Pop(n int) { s.solver.Pop(n) }

func (s *Solver) Assert(b smt.Bool) {
	s.solver.Assert(b.(boolExpr).ast)
}

func (s *Solver) Check() (smt.Satisfiability, error) {
	sat, err := s.solver.Check()
	if err != nil {
		return smt.Unknown, err
	}
	switch sat {
	case z3.True:
		return smt.Sat, nil
	case z3.False:
		return smt.Unsat, nil
	default:
		return smt.Unknown, nil
	}
}

func (s *Solver) Close() {
	s.solver.Close()
	s.ctx.Close()
}
