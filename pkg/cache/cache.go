// Package cache implements the bounded-window data-locality model applied
// to a completed path's memory-access list.
package cache

import (
	"github.com/fprime/bpfwcet/pkg/smt"
	"github.com/fprime/bpfwcet/pkg/symexec"
)

// Config holds the model's tunable knobs: these are heuristics, not
// universal truths, and are expected to be tuned per target.
type Config struct {
	Window      int // W, default 5
	NearBytes   uint64 // K, default 4
	DRAMCycles  int    // default 87, charged by symexec.Access already
}

// DefaultConfig returns the model's documented defaults.
func DefaultConfig() Config {
	return Config{Window: 5, NearBytes: 4, DRAMCycles: 87}
}

// Apply walks accesses in program order and, for each access whose
// category is one of the memory categories, looks back over the
// cfg.Window prior accesses and compares it with those of the same
// category. If an SMT query proves the two addresses are never more than
// cfg.NearBytes apart, the later access's DRAM penalty is zeroed and the
// scan for that access stops.
//
// onUnknown is invoked whenever a query returns smt.Unknown; the cache
// model treats that pair conservatively as not near and goes on with the
// remaining prior accesses.
func Apply(sol smt.Solver, accesses []*symexec.Access, cfg Config, onUnknown func(i int)) error {
	for i, a := range accesses {
		if !isMemCategory(a.Category) {
			continue
		}
		lo := i - cfg.Window
		if lo < 0 {
			lo = 0
		}
		for j := i - 1; j >= lo; j-- {
			b := accesses[j]
			if b.Category != a.Category {
				continue
			}
			near, unknown, err := queryNear(sol, a.Addr, b.Addr, cfg.NearBytes)
			if err != nil {
				return err
			}
			if unknown {
				if onUnknown != nil {
					onUnknown(i)
				}
				continue
			}
			if near {
				a.DRAMPenalty = 0
				break
			}
		}
	}
	return nil
}

func isMemCategory(c symexec.Category) bool {
	switch c {
	case symexec.CategoryLoad, symexec.CategoryStore, symexec.CategoryFPLoad, symexec.CategoryFPStore:
		return true
	default:
		return false
	}
}

// queryNear asks whether a and b are provably within k bytes of each
// other: it issues `|a-b| > k` and treats an unsat result as "near".
func queryNear(sol smt.Solver, a, b smt.BV, k uint64) (near bool, unknown bool, err error) {
	sol.Push()
	defer sol.Pop(1)
	sol.Assert(a.AbsDiffGT(b, k))
	sat, err := sol.Check()
	if err != nil {
		return false, false, err
	}
	switch sat {
	case smt.Unsat:
		return true, false, nil
	case smt.Unknown:
		return false, true, nil
	default:
		return false, false, nil
	}
}

// TotalDRAMPenalty sums the DRAM penalty remaining on every access after
// Apply has run.
func TotalDRAMPenalty(accesses []*symexec.Access) int {
	total := 0
	for _, a := range accesses {
		total += a.DRAMPenalty
	}
	return total
}
