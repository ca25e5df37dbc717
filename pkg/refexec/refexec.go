// Package refexec is a concrete (non-symbolic) reference interpreter for
// eBPF+, used only as a test oracle: it runs the same per-opcode
// semantics as pkg/symexec but over plain uint64/float64 values, so unit
// tests can assert the symbolic transfer functions agree with concrete
// execution for a fixed input assignment.
package refexec

import (
	"fmt"
	"math"

	"github.com/fprime/bpfwcet/pkg/inst"
)

// State is the concrete register file. R10 is the frame pointer; Mem maps
// concrete addresses to concrete 64-bit values.
type State struct {
	R   [11]uint64
	F   [11]float64
	Mem map[uint64]uint64
}

// NewState returns a zeroed state with R10 bound to base (the concrete
// stand-in for the symbolic frame pointer a test vector wants to use).
func NewState(base uint64) State {
	st := State{Mem: map[uint64]uint64{}}
	st.R[10] = base
	return st
}

// Step executes one instruction against st in place and returns the
// instruction's own catalog latency (no DRAM charge: refexec has no
// notion of a cache model, it only checks semantics).
func Step(st *State, i inst.Instruction) (int, error) {
	switch {
	case i.Class().IsALU():
		return stepALU(st, i)
	case i.Class().IsJump():
		return stepJump(st, i)
	case i.Class().IsLoadStore():
		return stepMem(st, i)
	default:
		return 0, fmt.Errorf("%w: opcode 0x%02x", inst.ErrUnknownOpcode, i.Op)
	}
}

// RunSeq executes prog in strict sequence (no branching) starting from
// st, summing each instruction's latency. It is meant for straight-line
// test vectors only.
func RunSeq(st *State, prog []inst.Instruction) (int, error) {
	total := 0
	for _, i := range prog {
		lat, err := Step(st, i)
		if err != nil {
			return total, err
		}
		total += lat
	}
	return total, nil
}

func stepALU(st *State, i inst.Instruction) (int, error) {
	if i.IsFPU() {
		return stepFPU(st, i)
	}
	info, err := inst.Cost(i)
	if err != nil {
		return 0, err
	}
	width64 := i.Class() == inst.ClassALU64
	var operand uint64
	if i.ALUSource() == inst.SrcK {
		operand = uint64(i.Imm)
	} else {
		operand = st.R[i.Src]
	}
	dst := st.R[i.Dst]
	if !width64 {
		dst = dst & 0xFFFFFFFF
		operand = operand & 0xFFFFFFFF
	}

	var result uint64
	switch i.Code() {
	case inst.CodeALUAdd:
		result = dst + operand
	case inst.CodeALUSub:
		result = dst - operand
	case inst.CodeALUMul:
		result = dst * operand
	case inst.CodeALUDiv:
		if operand == 0 {
			result = 0
		} else {
			result = dst / operand
		}
	case inst.CodeALUMod:
		if operand == 0 {
			result = dst
		} else {
			result = dst % operand
		}
	case inst.CodeALUOr:
		result = dst | operand
	case inst.CodeALUAnd:
		result = dst & operand
	case inst.CodeALULsh:
		result = shiftedLsh(dst, operand, width64)
	case inst.CodeALURsh:
		result = shiftedRsh(dst, operand, width64)
	case inst.CodeALUNeg:
		result = -dst
	case inst.CodeALUXor:
		result = dst ^ operand
	case inst.CodeALUMov:
		result = operand
	case inst.CodeALUArsh:
		result = arshift(dst, operand, width64)
	case inst.CodeALUEnd:
		result = byteSwap(dst, width64)
	default:
		return 0, fmt.Errorf("%w: alu code %d", inst.ErrUnknownOpcode, i.Code())
	}

	if !width64 {
		result &= 0xFFFFFFFF
	}
	st.R[i.Dst] = result
	return info.Latency, nil
}

func shiftedLsh(dst, amount uint64, w64 bool) uint64 {
	mask := uint64(0x1F)
	if w64 {
		mask = 0x3F
	}
	return dst << (amount & mask)
}

func shiftedRsh(dst, amount uint64, w64 bool) uint64 {
	mask := uint64(0x1F)
	if w64 {
		mask = 0x3F
	}
	return dst >> (amount & mask)
}

func arshift(dst, amount uint64, w64 bool) uint64 {
	mask := uint64(0x1F)
	if w64 {
		return uint64(int64(dst) >> (amount & 0x3F))
	}
	return uint64(uint32(int32(uint32(dst)) >> (amount & mask)))
}

func byteSwap(v uint64, w64 bool) uint64 {
	if w64 {
		var out uint64
		for i := 0; i < 8; i++ {
			out = (out << 8) | ((v >> (uint(i) * 8)) & 0xFF)
		}
		return out
	}
	v32 := uint32(v)
	var out uint32
	for i := 0; i < 4; i++ {
		out = (out << 8) | ((v32 >> (uint(i) * 8)) & 0xFF)
	}
	return uint64(out)
}

func stepFPU(st *State, i inst.Instruction) (int, error) {
	info, err := inst.CostFPU(i)
	if err != nil {
		return 0, err
	}
	var operand float64
	if i.ALUSource() == inst.SrcK {
		operand = float64(int32(i.Imm))
	} else {
		operand = st.F[i.Src]
	}
	dst := st.F[i.Dst]
	var result float64
	switch i.Code() {
	case inst.CodeALUAdd:
		result = dst + operand
	case inst.CodeALUSub:
		result = dst - operand
	case inst.CodeALUMul:
		result = dst * operand
	case inst.CodeALUDiv:
		if operand == 0 {
			result = 0
		} else {
			result = dst / operand
		}
	case inst.CodeALUNeg:
		result = -dst
	case inst.CodeALUMov:
		result = operand
	default:
		return 0, fmt.Errorf("%w: fpu code %d", inst.ErrUnknownOpcode, i.Code())
	}
	st.F[i.Dst] = result
	return info.Latency, nil
}

func stepJump(st *State, i inst.Instruction) (int, error) {
	info, err := inst.Latency(i)
	if err != nil {
		return 0, err
	}
	return info.Latency, nil
}

func stepMem(st *State, i inst.Instruction) (int, error) {
	var info inst.Info
	var err error
	if i.IsFPU() {
		info, err = inst.CostFPU(i)
	} else {
		info, err = inst.Cost(i)
	}
	if err != nil {
		return 0, err
	}

	sizeBits := i.MemSize().Bytes() * 8
	mask := uint64(math.MaxUint64)
	if sizeBits < 64 {
		mask = (uint64(1) << uint(sizeBits)) - 1
	}

	switch i.Class() {
	case inst.ClassLD:
		if i.MemMode() == inst.ModeIMM {
			st.R[i.Dst] = uint64(i.Imm)
		}
	case inst.ClassLDX:
		addr := effectiveAddress(st, i, false)
		st.R[i.Dst] = st.Mem[addr] & mask
	case inst.ClassST:
		addr := effectiveAddress(st, i, true)
		st.Mem[addr] = uint64(i.Imm) & mask
	case inst.ClassSTX:
		addr := effectiveAddress(st, i, true)
		if i.MemMode() == inst.ModeATOMIC {
			cur := st.Mem[addr]
			src := st.R[i.Src]
			switch i.AtomicSubOp() & inst.AtomicOpMask {
			case inst.AtomicADD:
				st.Mem[addr] = cur + src
			case inst.AtomicAND:
				st.Mem[addr] = cur & src
			case inst.AtomicOR:
				st.Mem[addr] = cur | src
			case inst.AtomicXOR:
				st.Mem[addr] = cur ^ src
			}
			if i.AtomicSubOp()&inst.AtomicFetch != 0 {
				st.R[i.Src] = cur
			}
		} else {
			st.Mem[addr] = st.R[i.Src] & mask
		}
	}
	return info.Latency, nil
}

func effectiveAddress(st *State, i inst.Instruction, isStore bool) uint64 {
	switch i.MemMode() {
	case inst.ModeABS:
		return uint64(i.Imm)
	case inst.ModeIND:
		return st.R[i.Src] + uint64(i.Imm)
	default:
		base := st.R[i.Src]
		if isStore {
			base = st.R[i.Dst]
		}
		return base + uint64(int64(i.Offset))
	}
}
