package symexec

import "github.com/fprime/bpfwcet/pkg/smt"

// Category classifies a memory access for the cache model (pkg/cache),
// which only compares accesses within the same category.
type Category int

const (
	CategoryLoad Category = iota
	CategoryStore
	CategoryFPLoad
	CategoryFPStore
	CategoryMapHelper
)

func (c Category) String() string {
	switch c {
	case CategoryLoad:
		return "load"
	case CategoryStore:
		return "store"
	case CategoryFPLoad:
		return "fp-load"
	case CategoryFPStore:
		return "fp-store"
	case CategoryMapHelper:
		return "map"
	default:
		return "?"
	}
}

// Access is one memory access record accumulated along a DFS path.
type Access struct {
	InstrIndex  int
	Category    Category
	Addr        smt.BV
	SizeBytes   int
	BaseLatency int

	// DRAMPenalty starts at the DRAM constant and may be zeroed by the
	// cache model (pkg/cache) once a near prior access is proven.
	DRAMPenalty int
}
