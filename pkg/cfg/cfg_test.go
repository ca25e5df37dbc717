package cfg

import (
	"testing"

	"github.com/fprime/bpfwcet/pkg/inst"
)

func mov64Imm(dst uint8, imm int64) inst.Instruction {
	op := uint8(inst.ClassALU64) | uint8(inst.CodeALUMov)<<4
	return inst.Instruction{Op: op, Dst: dst, Imm: imm}
}

func exit() inst.Instruction {
	op := uint8(inst.ClassJMP) | uint8(inst.CodeJmpEXIT)<<4
	return inst.Instruction{Op: op}
}

func jeqX(dst, src uint8, offset int16) inst.Instruction {
	op := uint8(inst.ClassJMP) | 0x08 | uint8(inst.CodeJmpJEQ)<<4
	return inst.Instruction{Op: op, Dst: dst, Src: src, Offset: offset}
}

func TestBuildEmptyProgram(t *testing.T) {
	c, err := Build(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Blocks) != 0 {
		t.Fatalf("expected no blocks, got %d", len(c.Blocks))
	}
}

func TestBuildSingleExit(t *testing.T) {
	c, err := Build([]inst.Instruction{exit()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(c.Blocks))
	}
	if len(c.Blocks[0].Succs) != 0 {
		t.Fatalf("EXIT block should have no successors, got %v", c.Blocks[0].Succs)
	}
}

func TestBuildStraightLine(t *testing.T) {
	prog := []inst.Instruction{mov64Imm(1, 7), exit()}
	c, err := Build(prog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Blocks) != 1 {
		t.Fatalf("expected a single fall-through block, got %d", len(c.Blocks))
	}
}

func TestBuildConditionalBranchWiresTwoSuccessors(t *testing.T) {
	prog := []inst.Instruction{
		mov64Imm(1, 1),
		mov64Imm(2, 2),
		jeqX(1, 2, 1), // skip the next instruction if R1==R2
		mov64Imm(3, 3),
		exit(),
	}
	c, err := Build(prog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry, ok := c.Entry()
	if !ok {
		t.Fatalf("expected entry block")
	}
	var branchBlock *Block
	for i := range c.Blocks {
		if c.Blocks[i].End-1 == 2 {
			branchBlock = &c.Blocks[i]
		}
	}
	if branchBlock == nil {
		t.Fatalf("expected a block ending at the JEQ instruction")
	}
	if len(branchBlock.Succs) != 2 {
		t.Fatalf("expected 2 successors from conditional branch, got %d", len(branchBlock.Succs))
	}
	_ = entry
}

func TestBlockRangesPartitionProgram(t *testing.T) {
	prog := []inst.Instruction{
		mov64Imm(1, 1),
		mov64Imm(2, 2),
		jeqX(1, 2, 1),
		mov64Imm(3, 3),
		exit(),
	}
	c, err := Build(prog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	covered := make([]bool, len(prog))
	for _, b := range c.Blocks {
		for i := b.Start; i < b.End; i++ {
			if covered[i] {
				t.Fatalf("instruction %d covered by more than one block", i)
			}
			covered[i] = true
		}
	}
	for i, ok := range covered {
		if !ok {
			t.Fatalf("instruction %d not covered by any block", i)
		}
	}
}
