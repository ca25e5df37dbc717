package cache

import (
	"testing"

	"github.com/fprime/bpfwcet/pkg/smt/z3"
	"github.com/fprime/bpfwcet/pkg/symexec"
)

func TestApplyZeroesNearAccessPenalty(t *testing.T) {
	sol := z3.New()
	defer sol.Close()

	base := sol.BVConst(1000, 64)
	near := base.Add(sol.BVConst(2, 64))

	accesses := []*symexec.Access{
		{InstrIndex: 0, Category: symexec.CategoryLoad, Addr: base, DRAMPenalty: 87},
		{InstrIndex: 1, Category: symexec.CategoryLoad, Addr: near, DRAMPenalty: 87},
	}

	var unknownSeen bool
	if err := Apply(sol, accesses, DefaultConfig(), func(i int) { unknownSeen = true }); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if unknownSeen {
		t.Fatalf("did not expect an Unknown query for two constant addresses")
	}
	if accesses[0].DRAMPenalty != 87 {
		t.Fatalf("first access should keep its DRAM penalty, got %d", accesses[0].DRAMPenalty)
	}
	if accesses[1].DRAMPenalty != 0 {
		t.Fatalf("second access should be zeroed as near, got %d", accesses[1].DRAMPenalty)
	}
}

func TestApplyKeepsPenaltyForFarAccess(t *testing.T) {
	sol := z3.New()
	defer sol.Close()

	base := sol.BVConst(1000, 64)
	far := sol.BVConst(1100, 64)

	accesses := []*symexec.Access{
		{InstrIndex: 0, Category: symexec.CategoryLoad, Addr: base, DRAMPenalty: 87},
		{InstrIndex: 1, Category: symexec.CategoryLoad, Addr: far, DRAMPenalty: 87},
	}

	if err := Apply(sol, accesses, DefaultConfig(), nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if TotalDRAMPenalty(accesses) != 174 {
		t.Fatalf("expected both penalties retained (174), got %d", TotalDRAMPenalty(accesses))
	}
}

func TestApplyIgnoresDifferentCategories(t *testing.T) {
	sol := z3.New()
	defer sol.Close()

	addr := sol.BVConst(2000, 64)
	accesses := []*symexec.Access{
		{InstrIndex: 0, Category: symexec.CategoryLoad, Addr: addr, DRAMPenalty: 87},
		{InstrIndex: 1, Category: symexec.CategoryStore, Addr: addr, DRAMPenalty: 87},
	}
	if err := Apply(sol, accesses, DefaultConfig(), nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if TotalDRAMPenalty(accesses) != 174 {
		t.Fatalf("a store must never clear a load's penalty (or vice versa); got %d", TotalDRAMPenalty(accesses))
	}
}

func TestApplyRespectsWindow(t *testing.T) {
	sol := z3.New()
	defer sol.Close()

	addr := sol.BVConst(3000, 64)
	cfg := Config{Window: 1, NearBytes: 4, DRAMCycles: 87}

	accesses := []*symexec.Access{
		{InstrIndex: 0, Category: symexec.CategoryLoad, Addr: addr, DRAMPenalty: 87},
		{InstrIndex: 1, Category: symexec.CategoryLoad, Addr: sol.BVConst(4000, 64), DRAMPenalty: 87},
		{InstrIndex: 2, Category: symexec.CategoryLoad, Addr: addr, DRAMPenalty: 87},
	}
	if err := Apply(sol, accesses, cfg, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	// access 2 is the same address as access 0, but window=1 only looks
	// back at access 1 (a different, far address), so the penalty stays.
	if accesses[2].DRAMPenalty != 87 {
		t.Fatalf("expected window to prevent the match, got penalty %d", accesses[2].DRAMPenalty)
	}
}
