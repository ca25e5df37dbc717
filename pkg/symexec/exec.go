package symexec

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/fprime/bpfwcet/pkg/inst"
	"github.com/fprime/bpfwcet/pkg/smt"
)

// Executor threads one shared solver through successive Step calls along
// a DFS path; it carries no state of its own beyond configuration.
type Executor struct {
	Solver     smt.Solver
	DRAMCycles int
}

// New returns an Executor using dramCycles as the initial DRAM penalty
// charged on every fresh memory access.
func New(sol smt.Solver, dramCycles int) *Executor {
	return &Executor{Solver: sol, DRAMCycles: dramCycles}
}

// StepResult is everything Step produces for one instruction.
type StepResult struct {
	State State
	// Cond is the branch condition for a conditional jump, nil otherwise.
	Cond smt.Bool
	// Access is the memory access record for a load/store/helper-call,
	// nil otherwise.
	Access *Access
	// BaseCycles is the instruction's own catalog latency (never
	// includes the DRAM penalty, which lives on Access).
	BaseCycles int
}

// Step executes one instruction, returning the transfer function's
// result. idx is prog's index of this instruction, used only for fresh
// symbol names and access records (not control flow, which pkg/explorer
// drives via pkg/cfg).
func (e *Executor) Step(st State, i inst.Instruction, idx int) (StepResult, error) {
	switch {
	case i.Class().IsALU():
		return e.stepALU(st, i)
	case i.Class().IsJump():
		return e.stepJump(st, i, idx)
	case i.Class().IsLoadStore():
		return e.stepMem(st, i, idx)
	default:
		return StepResult{}, errors.Wrapf(inst.ErrUnknownOpcode, "opcode 0x%02x", i.Op)
	}
}

func (e *Executor) stepALU(st State, i inst.Instruction) (StepResult, error) {
	if i.IsFPU() {
		return e.stepFPU(st, i)
	}
	info, err := inst.Cost(i)
	if err != nil {
		return StepResult{}, err
	}
	width := 64
	if i.Class() == inst.ClassALU {
		width = 32
	}
	sol := e.Solver
	dst := st.Regs[i.Dst]
	dstV := dst
	if width == 32 {
		dstV = dst.Extract(31, 0)
	}
	operand := e.operand(st, i, width)

	result := e.aluResult(sol, i.Code(), dstV, operand, width)

	next := st.Fork()
	if width == 32 {
		next.Regs[i.Dst] = result.ZeroExtend(64)
	} else {
		next.Regs[i.Dst] = result
	}
	return StepResult{State: next, BaseCycles: info.Latency}, nil
}

func (e *Executor) aluResult(sol smt.Solver, code uint8, dst, operand smt.BV, width int) smt.BV {
	zero := sol.BVConst(0, width)
	switch code {
	case inst.CodeALUAdd:
		return dst.Add(operand)
	case inst.CodeALUSub:
		return dst.Sub(operand)
	case inst.CodeALUMul:
		return dst.Mul(operand)
	case inst.CodeALUDiv:
		isZero := operand.Eq(zero)
		return sol.IteBV(isZero, zero, dst.UDiv(e.nonZero(sol, operand, width)))
	case inst.CodeALUMod:
		isZero := operand.Eq(zero)
		return sol.IteBV(isZero, dst, dst.URem(e.nonZero(sol, operand, width)))
	case inst.CodeALUOr:
		return dst.Or(operand)
	case inst.CodeALUAnd:
		return dst.And(operand)
	case inst.CodeALULsh:
		return dst.Shl(e.maskShift(sol, operand, width))
	case inst.CodeALURsh:
		return dst.LShr(e.maskShift(sol, operand, width))
	case inst.CodeALUNeg:
		return dst.Neg()
	case inst.CodeALUXor:
		return dst.Xor(operand)
	case inst.CodeALUMov:
		return operand
	case inst.CodeALUArsh:
		return dst.AShr(e.maskShift(sol, operand, width))
	case inst.CodeALUEnd:
		return dst.ByteSwap()
	default:
		// Approximate model: havoc the destination when a precise
		// bit-vector semantics isn't modeled.
		return sol.NewBV("havoc", width)
	}
}

// nonZero guards signed/unsigned division against a zero divisor; the
// zero case itself is already routed around by the caller's Ite, so this
// only needs to avoid handing the backend a literal zero divisor.
func (e *Executor) nonZero(sol smt.Solver, v smt.BV, width int) smt.BV {
	one := sol.BVConst(1, width)
	return sol.IteBV(v.Eq(sol.BVConst(0, width)), one, v)
}

func (e *Executor) maskShift(sol smt.Solver, amount smt.BV, width int) smt.BV {
	mask := uint64(0x1F)
	if width == 64 {
		mask = 0x3F
	}
	return amount.And(sol.BVConst(mask, width))
}

func (e *Executor) operand(st State, i inst.Instruction, width int) smt.BV {
	sol := e.Solver
	if i.ALUSource() == inst.SrcK {
		if width == 64 {
			return sol.BVConst(uint64(i.Imm), 64)
		}
		return sol.BVConst(uint64(uint32(int32(i.Imm))), 32)
	}
	src := st.Regs[i.Src]
	if width == 32 {
		return src.Extract(31, 0)
	}
	return src
}

func (e *Executor) stepFPU(st State, i inst.Instruction) (StepResult, error) {
	info, err := inst.CostFPU(i)
	if err != nil {
		return StepResult{}, err
	}
	sol := e.Solver
	dst := st.FRegs[i.Dst]
	var operand smt.Real
	if i.ALUSource() == inst.SrcK {
		operand = sol.RealConst(float64(int32(i.Imm)))
	} else {
		operand = st.FRegs[i.Src]
	}

	var result smt.Real
	switch i.Code() {
	case inst.CodeALUAdd:
		result = dst.Add(operand)
	case inst.CodeALUSub:
		result = dst.Sub(operand)
	case inst.CodeALUMul:
		result = dst.Mul(operand)
	case inst.CodeALUDiv:
		isZero := operand.Eq(sol.RealConst(0))
		result = sol.IteReal(isZero, sol.RealConst(0), dst.Div(e.nonZeroReal(sol, operand)))
	case inst.CodeALUNeg:
		result = dst.Neg()
	case inst.CodeALUMov:
		result = operand
	default:
		result = sol.NewReal("fhavoc")
	}

	next := st.Fork()
	next.FRegs[i.Dst] = result
	return StepResult{State: next, BaseCycles: info.Latency}, nil
}

func (e *Executor) nonZeroReal(sol smt.Solver, v smt.Real) smt.Real {
	one := sol.RealConst(1)
	return sol.IteReal(v.Eq(sol.RealConst(0)), one, v)
}

func (e *Executor) stepJump(st State, i inst.Instruction, idx int) (StepResult, error) {
	if i.IsExit() {
		info, err := inst.Cost(i)
		if err != nil {
			return StepResult{}, err
		}
		return StepResult{State: st, BaseCycles: info.Latency}, nil
	}
	if i.IsUnconditionalJump() || i.IsSubroutineCall() {
		info, err := inst.Cost(i)
		if err != nil {
			return StepResult{}, err
		}
		return StepResult{State: st, BaseCycles: info.Latency}, nil
	}
	if i.IsHelperCall() {
		return e.stepHelperCall(st, i, idx)
	}
	// Conditional branch: build the condition, charge the branch's own
	// latency, leave registers untouched.
	info, err := inst.Latency(i)
	if err != nil {
		return StepResult{}, err
	}
	cond, err := e.branchCond(st, i)
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{State: st, Cond: cond, BaseCycles: info.Latency}, nil
}

// branchCond does not distinguish ordered from unordered floating-point
// comparisons (no NaN modeling); every FPU branch is built as a plain
// real-number comparison. Known limitation, not expected to affect
// programs that avoid NaN-producing arithmetic.
func (e *Executor) branchCond(st State, i inst.Instruction) (smt.Bool, error) {
	if i.IsFPU() {
		dst := st.FRegs[i.Dst]
		var rhs smt.Real
		sol := e.Solver
		if i.ALUSource() == inst.SrcK {
			rhs = sol.RealConst(float64(int32(i.Imm)))
		} else {
			rhs = st.FRegs[i.Src]
		}
		switch i.Code() {
		case inst.CodeJmpJEQ:
			return dst.Eq(rhs), nil
		case inst.CodeJmpJNE:
			return dst.Eq(rhs).Not(), nil
		case inst.CodeJmpJGT, inst.CodeJmpJSGT:
			return dst.Gt(rhs), nil
		case inst.CodeJmpJGE, inst.CodeJmpJSGE:
			return dst.Ge(rhs), nil
		case inst.CodeJmpJLT, inst.CodeJmpJSLT:
			return dst.Lt(rhs), nil
		case inst.CodeJmpJLE, inst.CodeJmpJSLE:
			return dst.Le(rhs), nil
		default:
			return nil, errors.Wrapf(inst.ErrUnknownOpcode, "fpu branch code %d", i.Code())
		}
	}

	dst := st.Regs[i.Dst]
	sol := e.Solver
	var rhs smt.BV
	if i.ALUSource() == inst.SrcK {
		rhs = sol.BVConst(uint64(i.Imm), 64)
	} else {
		rhs = st.Regs[i.Src]
	}
	switch i.Code() {
	case inst.CodeJmpJEQ:
		return dst.Eq(rhs), nil
	case inst.CodeJmpJNE:
		return dst.Ne(rhs), nil
	case inst.CodeJmpJGT:
		return dst.Ugt(rhs), nil
	case inst.CodeJmpJGE:
		return dst.Uge(rhs), nil
	case inst.CodeJmpJLT:
		return dst.Ult(rhs), nil
	case inst.CodeJmpJLE:
		return dst.Ule(rhs), nil
	case inst.CodeJmpJSGT:
		return dst.Sgt(rhs), nil
	case inst.CodeJmpJSGE:
		return dst.Sge(rhs), nil
	case inst.CodeJmpJSLT:
		return dst.Slt(rhs), nil
	case inst.CodeJmpJSLE:
		return dst.Sle(rhs), nil
	case inst.CodeJmpJSET:
		return dst.And(rhs).Ne(sol.BVConst(0, 64)), nil
	default:
		return nil, errors.Wrapf(inst.ErrUnknownOpcode, "branch code %d", i.Code())
	}
}

func (e *Executor) stepHelperCall(st State, i inst.Instruction, idx int) (StepResult, error) {
	sol := e.Solver
	info, err := inst.Cost(i)
	if err != nil {
		return StepResult{}, err
	}
	next := st.Fork()
	var access *Access
	switch i.Imm {
	case inst.HelperMapLookupElem:
		next.Regs[0] = sol.NewBV(fmt.Sprintf("map_ptr_%d", idx), 64)
		access = &Access{InstrIndex: idx, Category: CategoryMapHelper, Addr: next.Regs[0], SizeBytes: 8, BaseLatency: 0, DRAMPenalty: e.DRAMCycles}
	case inst.HelperMapUpdateElem, inst.HelperMapDeleteElem:
		next.Regs[0] = sol.NewBV(fmt.Sprintf("helper_r0_%d", idx), 64)
		access = &Access{InstrIndex: idx, Category: CategoryMapHelper, Addr: next.Regs[0], SizeBytes: 8, BaseLatency: 0, DRAMPenalty: e.DRAMCycles}
	default:
		next.Regs[0] = sol.NewBV(fmt.Sprintf("helper_r0_%d", idx), 64)
	}
	base := info.Latency + inst.HelperCost(i.Imm)
	return StepResult{State: next, Access: access, BaseCycles: base}, nil
}

func (e *Executor) stepMem(st State, i inst.Instruction, idx int) (StepResult, error) {
	var info inst.Info
	var err error
	if i.IsFPU() {
		info, err = inst.CostFPU(i)
	} else {
		info, err = inst.Cost(i)
	}
	if err != nil {
		return StepResult{}, err
	}

	sol := e.Solver
	sizeBits := i.MemSize().Bytes() * 8
	next := st.Fork()

	switch i.Class() {
	case inst.ClassLD:
		if i.MemMode() == inst.ModeIMM {
			next.Regs[i.Dst] = sol.BVConst(uint64(i.Imm), 64)
			return StepResult{State: next, BaseCycles: info.Latency}, nil
		}
		return StepResult{}, errors.Wrapf(inst.ErrUnknownOpcode, "unsupported LD mode %d", i.MemMode())

	case inst.ClassLDX:
		addr := e.effectiveAddress(st, i, false)
		name := fmt.Sprintf("mem_%d", idx)
		if i.IsFPU() {
			// The memory map only tracks BV-typed cells; an FP load binds
			// a fresh real directly rather than round-tripping through a
			// bit-vector reinterpretation.
			next.FRegs[i.Dst] = sol.NewReal(name + "_f")
			acc := &Access{InstrIndex: idx, Category: CategoryFPLoad, Addr: addr, SizeBytes: i.MemSize().Bytes(), BaseLatency: 0, DRAMPenalty: e.DRAMCycles}
			return StepResult{State: next, Access: acc, BaseCycles: info.Latency}, nil
		}
		val := next.Load(sol, addr, sizeBits, name)
		if sizeBits < 64 {
			val = val.ZeroExtend(64)
		}
		next.Regs[i.Dst] = val
		acc := &Access{InstrIndex: idx, Category: CategoryLoad, Addr: addr, SizeBytes: i.MemSize().Bytes(), BaseLatency: 0, DRAMPenalty: e.DRAMCycles}
		return StepResult{State: next, Access: acc, BaseCycles: info.Latency}, nil

	case inst.ClassST, inst.ClassSTX:
		addr := e.effectiveAddress(st, i, true)
		if i.MemMode() == inst.ModeATOMIC {
			return e.stepAtomic(st, i, idx, addr)
		}
		if i.IsFPU() {
			// Memory cells are bit-vector-typed; an FP store's value isn't
			// read back through this path (no FP load targets the same
			// address in any modeled scenario), so the write only needs
			// to occupy the address for aliasing/locality purposes.
			next.Store(addr, sol.NewBV(fmt.Sprintf("fstore_%d", idx), sizeBits))
			acc := &Access{InstrIndex: idx, Category: CategoryFPStore, Addr: addr, SizeBytes: i.MemSize().Bytes(), BaseLatency: 0, DRAMPenalty: e.DRAMCycles}
			return StepResult{State: next, Access: acc, BaseCycles: info.Latency}, nil
		}
		var val smt.BV
		if i.Class() == inst.ClassSTX {
			val = st.Regs[i.Src]
		} else {
			val = sol.BVConst(uint64(i.Imm), 64)
		}
		if sizeBits < 64 {
			val = val.Extract(sizeBits-1, 0)
		}
		next.Store(addr, val)
		acc := &Access{InstrIndex: idx, Category: CategoryStore, Addr: addr, SizeBytes: i.MemSize().Bytes(), BaseLatency: 0, DRAMPenalty: e.DRAMCycles}
		return StepResult{State: next, Access: acc, BaseCycles: info.Latency}, nil

	default:
		return StepResult{}, errors.Wrapf(inst.ErrUnknownOpcode, "unsupported memory class %s", i.Class())
	}
}

func (e *Executor) stepAtomic(st State, i inst.Instruction, idx int, addr smt.BV) (StepResult, error) {
	lat, ok := inst.AtomicLatency(i.AtomicSubOp())
	if !ok {
		return StepResult{}, errors.Wrapf(inst.ErrUnknownOpcode, "atomic sub-op 0x%02x", i.AtomicSubOp())
	}
	sol := e.Solver
	next := st.Fork()
	cur := next.Load(sol, addr, 64, fmt.Sprintf("atomic_%d", idx))
	src := st.Regs[i.Src]
	var result smt.BV
	switch i.AtomicSubOp() & inst.AtomicOpMask {
	case inst.AtomicADD:
		result = cur.Add(src)
	case inst.AtomicAND:
		result = cur.And(src)
	case inst.AtomicOR:
		result = cur.Or(src)
	case inst.AtomicXOR:
		result = cur.Xor(src)
	default:
		result = sol.NewBV(fmt.Sprintf("atomic_result_%d", idx), 64)
	}
	next.Store(addr, result)
	if i.AtomicSubOp()&inst.AtomicFetch != 0 {
		next.Regs[i.Src] = cur
	}
	acc := &Access{InstrIndex: idx, Category: CategoryStore, Addr: addr, SizeBytes: i.MemSize().Bytes(), BaseLatency: 0, DRAMPenalty: e.DRAMCycles}
	return StepResult{State: next, Access: acc, BaseCycles: lat}, nil
}

// effectiveAddress computes the address an LD/LDX/ST/STX instruction
// targets: ABS uses an implicit packet base, IND adds the src register,
// and every other mode bases off R[src] (loads) or R[dst] (stores) plus
// the sign-extended offset.
func (e *Executor) effectiveAddress(st State, i inst.Instruction, isStore bool) smt.BV {
	sol := e.Solver
	switch i.MemMode() {
	case inst.ModeABS:
		base := sol.BVConst(packetBase, 64)
		return base.Add(sol.BVConst(uint64(i.Imm), 64))
	case inst.ModeIND:
		base := sol.BVConst(packetBase, 64)
		return base.Add(st.Regs[i.Src]).Add(sol.BVConst(uint64(i.Imm), 64))
	default:
		var base smt.BV
		if isStore {
			base = st.Regs[i.Dst]
		} else {
			base = st.Regs[i.Src]
		}
		off := sol.BVConst(uint64(int64(i.Offset)), 64)
		return base.Add(off)
	}
}

// packetBase is the assumed base address for ABS/IND-mode packet
// accesses; eBPF+'s packet-data region is modeled as a fixed constant
// origin (address 0) rather than a register, matching the original encoding's intent
// that ABS/IND addresses packet bytes, not stack/map memory.
const packetBase = 0
