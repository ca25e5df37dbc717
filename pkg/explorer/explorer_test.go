package explorer

import (
	"testing"

	"github.com/fprime/bpfwcet/pkg/cache"
	"github.com/fprime/bpfwcet/pkg/cfg"
	"github.com/fprime/bpfwcet/pkg/inst"
	"github.com/fprime/bpfwcet/pkg/smt/z3"
	"github.com/fprime/bpfwcet/pkg/symexec"
)

func explore(t *testing.T, prog []inst.Instruction) *Result {
	t.Helper()
	graph, err := cfg.Build(prog)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sol := z3.New()
	defer sol.Close()
	exec := symexec.New(sol, cache.DefaultConfig().DRAMCycles)
	exp := New(graph, exec, sol, cache.DefaultConfig(), nil, nil)
	res, err := exp.Explore()
	if err != nil {
		t.Fatalf("Explore: %v", err)
	}
	return res
}

// Scenario 1: a single EXIT costs just its own latency.
func TestScenarioSingleExit(t *testing.T) {
	res := explore(t, []inst.Instruction{exitInsn()})
	if res.MaxBound != 2 {
		t.Fatalf("expected bound 2, got %d", res.MaxBound)
	}
}

// Scenario 2: MOV64 R1, 7 followed by EXIT costs 4 + 2 = 6.
func TestScenarioMovThenExit(t *testing.T) {
	res := explore(t, []inst.Instruction{mov64Imm(1, 7), exitInsn()})
	if res.MaxBound != 6 {
		t.Fatalf("expected bound 6, got %d", res.MaxBound)
	}
}

// Scenario 3: a branch whose condition is a compile-time-false constant
// comparison is pruned; the surviving path costs 4+4+7+4+2 = 21.
//
// The branch is written as a K-form JEQ (register vs. immediate) rather
// than an X-form one, because only the K-form's latency (7) reproduces
// the expected total — see DESIGN.md's "Scenario-3 catalog resolution"
// entry.
func TestScenarioUnreachedBranchPruned(t *testing.T) {
	prog := []inst.Instruction{
		mov64Imm(1, 1),
		mov64Imm(2, 2),
		jeqK(1, 5, 1), // R1 (=1) == 5 is unsat: taken side pruned (imm bit 1 clear keeps it an integer branch)
		mov64Imm(3, 3),
		exitInsn(),
	}
	res := explore(t, prog)
	if res.MaxBound != 21 {
		t.Fatalf("expected bound 21, got %d", res.MaxBound)
	}
}

// Scenario 4: both sides of a branch on two unconstrained registers are
// reachable; the bound is the max of the two paths, and the heavier path
// goes through a 14-cycle K-form MUL64.
func TestScenarioBothBranchesReachable(t *testing.T) {
	prog := []inst.Instruction{
		jeqX(1, 2, 2),     // 0: skip to index 3 if R1 == R2
		mov64Imm(3, 1),    // 1: fall-through path
		exitInsn(),        // 2
		mul64Imm(3, 5),    // 3: taken path
		exitInsn(),        // 4
	}
	res := explore(t, prog)
	// fall-through: JEQ_X(3) + MOV64(4) + EXIT(2) = 9
	// taken:        JEQ_X(3) + MUL64_K(14) + EXIT(2) = 19
	if res.MaxBound != 19 {
		t.Fatalf("expected bound 19, got %d", res.MaxBound)
	}
	if len(res.Paths) != 2 {
		t.Fatalf("expected 2 completed paths, got %d", len(res.Paths))
	}
}

// Scenario 5: two loads within the near-bytes threshold share one DRAM
// charge: (11+87) + 11 + 2 = 111.
func TestScenarioNearLoadsShareDRAMPenalty(t *testing.T) {
	prog := []inst.Instruction{
		ldxW(1, 10, 0),
		ldxW(2, 10, 2),
		exitInsn(),
	}
	res := explore(t, prog)
	if res.MaxBound != 111 {
		t.Fatalf("expected bound 111, got %d", res.MaxBound)
	}
}

// Scenario 6: two loads far enough apart each pay their own DRAM charge:
// (11+87)*2 + 2 = 198.
func TestScenarioFarLoadsEachPayDRAMPenalty(t *testing.T) {
	prog := []inst.Instruction{
		ldxW(1, 10, 0),
		ldxW(2, 10, 100),
		exitInsn(),
	}
	res := explore(t, prog)
	if res.MaxBound != 198 {
		t.Fatalf("expected bound 198, got %d", res.MaxBound)
	}
}
