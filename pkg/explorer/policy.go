package explorer

import "github.com/fprime/bpfwcet/pkg/cfg"

// LoopPolicy decides whether a DFS may follow a back-edge into a block
// already active on the current path. The default is unsound for
// multi-iteration loops; this interface lets a caller opt into a
// different, still-unsound-but-more-complete policy without changing
// that default.
type LoopPolicy interface {
	// Allow reports whether block id may be (re)entered, given onPath's
	// current active-visit counts for this DFS path.
	Allow(onPath map[cfg.BlockID]int, id cfg.BlockID) bool
}

// SingleIterationPolicy cuts on the first back-edge, matching the
// documented default: a loop body runs once, then the explorer stops
// following it and logs a diagnostic.
type SingleIterationPolicy struct{}

func (SingleIterationPolicy) Allow(onPath map[cfg.BlockID]int, id cfg.BlockID) bool {
	return onPath[id] == 0
}

// BoundedIterationPolicy allows following a back-edge up to N times
// before cutting, for programs with a known small trip count. Still
// unsound in general — it does not prove a bound on loop iteration, it
// just widens the single-iteration default by a fixed factor.
type BoundedIterationPolicy struct{ N int }

func (p BoundedIterationPolicy) Allow(onPath map[cfg.BlockID]int, id cfg.BlockID) bool {
	return onPath[id] <= p.N
}
