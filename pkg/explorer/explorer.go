// Package explorer drives DFS path exploration over a control-flow
// graph: one shared SMT solver, per-block push/pop, feasibility pruning,
// and a pluggable loop policy for back-edges.
package explorer

import (
	"github.com/sirupsen/logrus"

	"github.com/fprime/bpfwcet/pkg/cache"
	"github.com/fprime/bpfwcet/pkg/cfg"
	"github.com/fprime/bpfwcet/pkg/smt"
	"github.com/fprime/bpfwcet/pkg/symexec"
)

// Diagnostic is a non-fatal condition recorded during exploration. Only
// SolverUnknown conditions are recorded here; LoopDetected back-edge cuts
// are logged through Log and are not recorded as Diagnostics.
type Diagnostic struct {
	Kind       string
	BlockID    cfg.BlockID
	InstrIndex int
	Message    string
}

// PathResult is one completed (EXIT-terminated) path.
type PathResult struct {
	Cost      int
	Accesses  []*symexec.Access
}

// Result is the outcome of exploring an entire CFG.
type Result struct {
	MaxBound    int
	Paths       []PathResult
	Diagnostics []Diagnostic
}

// Explorer ties together the CFG, the symbolic executor, and the cache
// model under one shared solver.
type Explorer struct {
	CFG    *cfg.CFG
	Exec   *symexec.Executor
	Solver smt.Solver
	Cache  cache.Config
	Policy LoopPolicy
	Log    *logrus.Logger
}

// New builds an Explorer with the given components. If policy is nil,
// SingleIterationPolicy is used (the documented default). If log is nil,
// a standard logrus.Logger is created.
func New(c *cfg.CFG, exec *symexec.Executor, sol smt.Solver, cacheCfg cache.Config, policy LoopPolicy, log *logrus.Logger) *Explorer {
	if policy == nil {
		policy = SingleIterationPolicy{}
	}
	if log == nil {
		log = logrus.New()
	}
	return &Explorer{CFG: c, Exec: exec, Solver: sol, Cache: cacheCfg, Policy: policy, Log: log}
}

// Explore runs the DFS to completion and returns the maximum cycle bound
// across every feasible, finite path.
func (e *Explorer) Explore() (*Result, error) {
	res := &Result{}
	if len(e.CFG.Blocks) == 0 {
		return res, nil
	}
	entry, ok := e.CFG.Entry()
	if !ok {
		return res, nil
	}
	st := symexec.NewEntryState(e.Solver)
	onPath := map[cfg.BlockID]int{}
	if err := e.dfs(entry, st, 0, nil, onPath, res); err != nil {
		return nil, err
	}
	return res, nil
}

func cloneAccesses(accesses []*symexec.Access) []*symexec.Access {
	out := make([]*symexec.Access, len(accesses))
	copy(out, accesses)
	return out
}

func (e *Explorer) dfs(id cfg.BlockID, st symexec.State, cost int, accesses []*symexec.Access, onPath map[cfg.BlockID]int, res *Result) error {
	onPath[id]++
	defer func() { onPath[id]-- }()

	e.Solver.Push()
	defer e.Solver.Pop(1)

	block := e.CFG.Blocks[id]
	var lastCond smt.Bool
	for idx := block.Start; idx < block.End; idx++ {
		step, err := e.Exec.Step(st, e.CFG.Prog[idx], idx)
		if err != nil {
			return err
		}
		st = step.State
		cost += step.BaseCycles
		if step.Access != nil {
			accesses = append(accesses, step.Access)
		}
		if step.Cond != nil {
			lastCond = step.Cond
		}
	}

	switch len(block.Succs) {
	case 0:
		return e.complete(cost, accesses, res)

	case 1:
		next := block.Succs[0]
		if !e.admit(next, id, onPath, block.End-1) {
			return nil
		}
		return e.dfs(next, st, cost, accesses, onPath, res)

	case 2:
		taken, fall := block.Succs[0], block.Succs[1]
		if lastCond == nil {
			e.Log.WithField("block", int(id)).Warn("conditional block produced no branch condition; treating both successors as feasible")
			lastCond = e.Solver.BoolConst(true)
		}

		if e.admit(taken, id, onPath, block.End-1) {
			e.Solver.Push()
			e.Solver.Assert(lastCond)
			sat, err := e.Solver.Check()
			if err != nil {
				e.Solver.Pop(1)
				return err
			}
			if sat == smt.Unknown {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{Kind: "SolverUnknown", BlockID: id, Message: "taken-branch feasibility unknown; treated as feasible"})
			}
			if sat != smt.Unsat {
				if err := e.dfs(taken, st.Fork(), cost, cloneAccesses(accesses), onPath, res); err != nil {
					e.Solver.Pop(1)
					return err
				}
			}
			e.Solver.Pop(1)
		}

		if e.admit(fall, id, onPath, block.End-1) {
			e.Solver.Push()
			e.Solver.Assert(lastCond.Not())
			sat, err := e.Solver.Check()
			if err != nil {
				e.Solver.Pop(1)
				return err
			}
			if sat == smt.Unknown {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{Kind: "SolverUnknown", BlockID: id, Message: "fall-through feasibility unknown; treated as feasible"})
			}
			if sat != smt.Unsat {
				if err := e.dfs(fall, st.Fork(), cost, cloneAccesses(accesses), onPath, res); err != nil {
					e.Solver.Pop(1)
					return err
				}
			}
			e.Solver.Pop(1)
		}
		return nil

	default:
		return nil
	}
}

// admit reports whether successor next may be entered from block from,
// consulting the loop policy when next is already active on this path
// (a back-edge) and logging LoopDetected when the policy cuts it.
func (e *Explorer) admit(next, from cfg.BlockID, onPath map[cfg.BlockID]int, atInstr int) bool {
	if onPath[next] == 0 {
		return true
	}
	if e.Policy.Allow(onPath, next) {
		return true
	}
	e.Log.WithFields(logrus.Fields{"from_block": int(from), "to_block": int(next), "instr": atInstr}).
		Warn("back-edge detected; cutting further iteration (LoopDetected)")
	return false
}

func (e *Explorer) complete(cost int, accesses []*symexec.Access, res *Result) error {
	pathAccesses := cloneAccesses(accesses)
	unknownAt := map[int]bool{}
	if err := cache.Apply(e.Solver, pathAccesses, e.Cache, func(i int) { unknownAt[i] = true }); err != nil {
		return err
	}
	for i := range unknownAt {
		idx := 0
		if i < len(pathAccesses) {
			idx = pathAccesses[i].InstrIndex
		}
		res.Diagnostics = append(res.Diagnostics, Diagnostic{Kind: "SolverUnknown", InstrIndex: idx, Message: "cache-locality query unknown; DRAM penalty retained"})
	}
	total := cost + cache.TotalDRAMPenalty(pathAccesses)
	res.Paths = append(res.Paths, PathResult{Cost: total, Accesses: pathAccesses})
	if total > res.MaxBound {
		res.MaxBound = total
	}
	return nil
}

