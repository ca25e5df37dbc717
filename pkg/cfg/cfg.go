// Package cfg recovers a basic-block control-flow graph from a decoded
// eBPF+ instruction stream.
package cfg

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/fprime/bpfwcet/pkg/inst"
)

// BlockID addresses a Block within a CFG's arena. Blocks never hold
// pointers to each other; successors are BlockIDs, keeping per-path state
// (pkg/explorer) cheap to copy on fork.
type BlockID int

// Block is a contiguous, half-open instruction range [Start, End) with
// exactly one entry (its first instruction) and one exit.
type Block struct {
	ID    BlockID
	Start int
	End   int // exclusive
	Succs []BlockID
}

// CFG is the arena of blocks recovered from one instruction stream.
type CFG struct {
	Prog   []inst.Instruction
	Blocks []Block

	leaderBlock map[int]BlockID
}

// ErrUnreachableCFG marks a jump-class instruction the builder does not
// know how to wire.
var ErrUnreachableCFG = errors.New("unreachable CFG: opcode not wired")

func isTerminator(i inst.Instruction) bool {
	return i.Class().IsJump() && !i.IsHelperCall()
}

// Build recovers the CFG for prog via the standard two-pass leader
// partition: pass 1 collects leaders (program start, every jump target,
// and every instruction following a terminator); pass 2 carves blocks
// between consecutive leaders and wires successors by terminator kind.
func Build(prog []inst.Instruction) (*CFG, error) {
	n := len(prog)
	c := &CFG{Prog: prog, leaderBlock: map[int]BlockID{}}
	if n == 0 {
		return c, nil
	}

	leaders := map[int]bool{0: true}
	for i, ins := range prog {
		if !isTerminator(ins) {
			continue
		}
		if target, ok := terminatorTarget(ins, i); ok && target >= 0 && target < n {
			leaders[target] = true
		}
		if i+1 < n {
			leaders[i+1] = true
		}
	}

	sorted := make([]int, 0, len(leaders))
	for l := range leaders {
		sorted = append(sorted, l)
	}
	sort.Ints(sorted)

	for idx, start := range sorted {
		nextLeader := n
		if idx+1 < len(sorted) {
			nextLeader = sorted[idx+1]
		}
		end := nextLeader
		for j := start; j < nextLeader; j++ {
			if isTerminator(prog[j]) {
				end = j + 1
				break
			}
		}
		id := BlockID(len(c.Blocks))
		c.leaderBlock[start] = id
		c.Blocks = append(c.Blocks, Block{ID: id, Start: start, End: end})
	}

	for bi := range c.Blocks {
		b := &c.Blocks[bi]
		last := prog[b.End-1]
		succs, err := c.wireSuccessors(b, last)
		if err != nil {
			return nil, err
		}
		b.Succs = succs
	}

	return c, nil
}

// terminatorTarget returns the absolute instruction index a terminator at
// program index i jumps to, when it names one (EXIT and helper calls do
// not).
func terminatorTarget(i inst.Instruction, idx int) (int, bool) {
	switch {
	case i.IsExit():
		return 0, false
	case i.IsSubroutineCall():
		return i.JumpTarget(idx), true
	case i.IsUnconditionalJump():
		return i.JumpTarget(idx), true
	case i.IsConditionalJump():
		return i.JumpTarget(idx), true
	default:
		return 0, false
	}
}

func (c *CFG) wireSuccessors(b *Block, last inst.Instruction) ([]BlockID, error) {
	fallThrough := func() []BlockID {
		if b.End < len(c.Prog) {
			return []BlockID{c.leaderBlock[b.End]}
		}
		return nil
	}

	if !isTerminator(last) {
		// Non-terminator final: block ended because the next leader was
		// reached, not because of a terminator instruction.
		return fallThrough(), nil
	}

	switch {
	case last.IsExit():
		return nil, nil
	case last.IsUnconditionalJump():
		target, _ := terminatorTarget(last, b.End-1)
		id, ok := c.leaderBlock[target]
		if !ok {
			return nil, errors.Wrapf(ErrUnreachableCFG, "JA target %d has no block", target)
		}
		return []BlockID{id}, nil
	case last.IsSubroutineCall():
		target, _ := terminatorTarget(last, b.End-1)
		id, ok := c.leaderBlock[target]
		if !ok {
			return nil, errors.Wrapf(ErrUnreachableCFG, "CALL target %d has no block", target)
		}
		return []BlockID{id}, nil
	case last.IsConditionalJump():
		target, _ := terminatorTarget(last, b.End-1)
		takenID, ok := c.leaderBlock[target]
		if !ok {
			return nil, errors.Wrapf(ErrUnreachableCFG, "branch target %d has no block", target)
		}
		fall := fallThrough()
		if fall == nil {
			return nil, errors.Wrapf(ErrUnreachableCFG, "conditional branch at block ending %d has no fall-through", b.End)
		}
		return []BlockID{takenID, fall[0]}, nil
	default:
		return nil, errors.Wrapf(ErrUnreachableCFG, "unhandled terminator class %s code %d", last.Class(), last.Code())
	}
}

// BlockFor returns the block beginning at instruction index start, if one
// exists (start must be a leader).
func (c *CFG) BlockFor(start int) (BlockID, bool) {
	id, ok := c.leaderBlock[start]
	return id, ok
}

// Entry returns the CFG's entry block (always the block starting at
// instruction 0), or false for an empty program.
func (c *CFG) Entry() (BlockID, bool) {
	return c.BlockFor(0)
}
