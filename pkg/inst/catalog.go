package inst

import "fmt"

// Info describes the cost and mnemonic of one decoded opcode.
type Info struct {
	Mnemonic string
	Latency  int
	Valid    bool
}

func opALU(code uint8, class Class, src Source) uint8 {
	op := uint8(class)
	if src == SrcX {
		op |= 0x08
	}
	op |= code << 4
	return op
}

func opMem(class Class, mode Mode, size Size) uint8 {
	return uint8(class) | uint8(size)<<3 | uint8(mode)<<5
}

// catalog and fpuCatalog are indexed by the raw opcode byte. ATOMIC-mode
// STX entries are valid at the opcode level; their final latency also
// depends on the atomic sub-op, resolved by AtomicLatency.
var catalog [256]Info
var fpuCatalog [256]Info

func setALU(code uint8, mnemonicK, mnemonicX string, latK, latX int) {
	catalog[opALU(code, ClassALU, SrcK)] = Info{mnemonicK, latK, true}
	catalog[opALU(code, ClassALU, SrcX)] = Info{mnemonicX, latX, true}
}

func setALU64(code uint8, mnemonicK, mnemonicX string, latK, latX int) {
	catalog[opALU(code, ClassALU64, SrcK)] = Info{mnemonicK, latK, true}
	catalog[opALU(code, ClassALU64, SrcX)] = Info{mnemonicX, latX, true}
}

func setJmp(class Class, code uint8, mnemonicK, mnemonicX string, latK, latX int) {
	catalog[opALU(code, class, SrcK)] = Info{mnemonicK, latK, true}
	catalog[opALU(code, class, SrcX)] = Info{mnemonicX, latX, true}
}

func setFPU(code uint8, class Class, mnemonicK, mnemonicX string, latK, latX int) {
	fpuCatalog[opALU(code, class, SrcK)] = Info{mnemonicK, latK, true}
	fpuCatalog[opALU(code, class, SrcX)] = Info{mnemonicX, latX, true}
}

func setFPUCmp(class Class, code uint8, mnemonicK, mnemonicX string, latK, latX int) {
	fpuCatalog[opALU(code, class, SrcK)] = Info{mnemonicK, latK, true}
	fpuCatalog[opALU(code, class, SrcX)] = Info{mnemonicX, latX, true}
}

// DefaultDRAMLatency is the flat external-memory penalty charged on every
// memory access before the cache model (pkg/cache) has a chance to zero
// it for a proven-near prior access. It is not folded into the catalog
// entries below: those carry only the opcode's own base latency, and the
// DRAM charge is tracked separately per symexec.Access so it can be
// reduced independently of the instruction's fixed cost.
const DefaultDRAMLatency = 87

func init() {
	// ALU (32-bit)
	setALU(CodeALUAdd, "ADD32", "ADD32", 5, 1)
	setALU(CodeALUSub, "SUB32", "SUB32", 5, 1)
	setALU(CodeALUMul, "MUL32", "MUL32", 14, 10)
	setALU(CodeALUDiv, "DIV32", "DIV32", 38, 34)
	setALU(CodeALUOr, "OR32", "OR32", 5, 1)
	setALU(CodeALUAnd, "AND32", "AND32", 5, 1)
	setALU(CodeALULsh, "LSH32", "LSH32", 5, 1)
	setALU(CodeALURsh, "RSH32", "RSH32", 5, 1)
	setALU(CodeALUNeg, "NEG32", "NEG32", 4, 4)
	setALU(CodeALUMod, "MOD32", "MOD32", 38, 34)
	setALU(CodeALUXor, "XOR32", "XOR32", 5, 1)
	setALU(CodeALUMov, "MOV32", "MOV32", 4, 4)
	setALU(CodeALUArsh, "ARSH32", "ARSH32", 5, 1)
	setALU(CodeALUEnd, "END32", "END32", 4, 4)

	// ALU64
	setALU64(CodeALUAdd, "ADD64", "ADD64", 5, 1)
	setALU64(CodeALUSub, "SUB64", "SUB64", 5, 1)
	setALU64(CodeALUMul, "MUL64", "MUL64", 14, 10)
	setALU64(CodeALUDiv, "DIV64", "DIV64", 38, 34)
	setALU64(CodeALUOr, "OR64", "OR64", 5, 1)
	setALU64(CodeALUAnd, "AND64", "AND64", 5, 1)
	setALU64(CodeALULsh, "LSH64", "LSH64", 5, 1)
	setALU64(CodeALURsh, "RSH64", "RSH64", 5, 1)
	setALU64(CodeALUNeg, "NEG64", "NEG64", 4, 4)
	setALU64(CodeALUMod, "MOD64", "MOD64", 38, 34)
	setALU64(CodeALUXor, "XOR64", "XOR64", 5, 1)
	setALU64(CodeALUMov, "MOV64", "MOV64", 4, 4)
	setALU64(CodeALUArsh, "ARSH64", "ARSH64", 5, 1)
	setALU64(CodeALUEnd, "END64", "END64", 4, 4)

	// JMP / JMP32 branches. JA and CALL/EXIT have no K/X split but are
	// stored under the K slot; the X slot is left invalid.
	ja := Info{"JA", 2, true}
	catalog[opALU(CodeJmpJA, ClassJMP, SrcK)] = ja
	catalog[opALU(CodeJmpJA, ClassJMP32, SrcK)] = ja
	call := Info{"CALL", 11, true}
	catalog[opALU(CodeJmpCALL, ClassJMP, SrcK)] = call
	exit := Info{"EXIT", 2, true}
	catalog[opALU(CodeJmpEXIT, ClassJMP, SrcK)] = exit

	for _, cls := range []Class{ClassJMP, ClassJMP32} {
		setJmp(cls, CodeJmpJEQ, "JEQ", "JEQ", 7, 3)
		setJmp(cls, CodeJmpJGT, "JGT", "JGT", 7, 3)
		setJmp(cls, CodeJmpJGE, "JGE", "JGE", 7, 3)
		setJmp(cls, CodeJmpJSET, "JSET", "JSET", 8, 4)
		setJmp(cls, CodeJmpJNE, "JNE", "JNE", 7, 3)
		setJmp(cls, CodeJmpJSGT, "JSGT", "JSGT", 7, 3)
		setJmp(cls, CodeJmpJSGE, "JSGE", "JSGE", 7, 3)
		setJmp(cls, CodeJmpJLT, "JLT", "JLT", 7, 3)
		setJmp(cls, CodeJmpJLE, "JLE", "JLE", 7, 3)
		setJmp(cls, CodeJmpJSLT, "JSLT", "JSLT", 7, 3)
		setJmp(cls, CodeJmpJSLE, "JSLE", "JSLE", 7, 3)
	}

	// LD / LDX / ST / STX memory forms. Only MEM/FMEM/ATOMIC, MEMSX for
	// LDX (and the LD_IMM/LDDW special case) are valid per the source
	// data; ABS/IND combinations used by the original encoding are not
	// costed (Valid stays false, surfacing as UnknownOpcode if ever
	// decoded).
	catalog[opMem(ClassLD, ModeIMM, SizeDW)] = Info{"LDDW", 4, true}
	catalog[opMem(ClassLD, ModeIMM, SizeW)] = Info{"LD_IMM", 4, true}

	for _, size := range []Size{SizeW, SizeH, SizeB, SizeDW} {
		catalog[opMem(ClassLDX, ModeMEM, size)] = Info{"LDX_" + sizeName(size), 11, true}
		catalog[opMem(ClassLDX, ModeMEMSX, size)] = Info{"LDX_SX_" + sizeName(size), 11, true}
		catalog[opMem(ClassST, ModeMEM, size)] = Info{"ST_" + sizeName(size), 11, true}
		catalog[opMem(ClassSTX, ModeMEM, size)] = Info{"STX_" + sizeName(size), 7, true}

		fpuCatalog[opMem(ClassLDX, ModeFMEM, size)] = Info{"FLDX_" + sizeName(size), 3, true}
		fpuCatalog[opMem(ClassST, ModeFMEM, size)] = Info{"FST_" + sizeName(size), 1, true}
		fpuCatalog[opMem(ClassSTX, ModeFMEM, size)] = Info{"FSTX_" + sizeName(size), 1, true}
	}

	// ATOMIC: opcode-level validity; exact latency resolved via
	// AtomicLatency (flat 8 cycles for every defined sub-op).
	for _, size := range []Size{SizeW, SizeDW} {
		catalog[opMem(ClassSTX, ModeATOMIC, size)] = Info{"ATOMIC_" + sizeName(size), 8, true}
	}

	// FPU ALU (32-bit, ALU class)
	setFPU(CodeALUAdd, ClassALU, "FADD", "FADD", 12, 5)
	setFPU(CodeALUSub, ClassALU, "FSUB", "FSUB", 12, 5)
	setFPU(CodeALUMul, ClassALU, "FMUL", "FMUL", 12, 5)
	setFPU(CodeALUDiv, ClassALU, "FDIV", "FDIV", 27, 20)
	setFPU(CodeALUNeg, ClassALU, "FNEG", "FNEG", 3, 3)
	setFPU(CodeALUMov, ClassALU, "FMOV", "FMOV", 7, 7)

	// FPU ALU64
	setFPU(CodeALUAdd, ClassALU64, "FADD64", "FADD64", 14, 7)
	setFPU(CodeALUSub, ClassALU64, "FSUB64", "FSUB64", 14, 7)
	setFPU(CodeALUMul, ClassALU64, "FMUL64", "FMUL64", 14, 7)
	setFPU(CodeALUDiv, ClassALU64, "FDIV64", "FDIV64", 27, 20)
	setFPU(CodeALUNeg, ClassALU64, "FNEG64", "FNEG64", 3, 3)
	setFPU(CodeALUMov, ClassALU64, "FMOV64", "FMOV64", 7, 7)

	// FPU branches (JMP and JMP32 classes)
	for _, cls := range []Class{ClassJMP, ClassJMP32} {
		setFPUCmp(cls, CodeJmpJEQ, "JFEQ", "JFEQ", 10, 3)
		setFPUCmp(cls, CodeJmpJGT, "JFOGT", "JFOGT", 10, 3)
		setFPUCmp(cls, CodeJmpJGE, "JFOGE", "JFOGE", 10, 3)
		setFPUCmp(cls, CodeJmpJLT, "JFOLT", "JFOLT", 10, 3)
		setFPUCmp(cls, CodeJmpJLE, "JFOLE", "JFOLE", 10, 3)
		setFPUCmp(cls, CodeJmpJSGT, "JFUGT", "JFUGT", 15, 8)
		setFPUCmp(cls, CodeJmpJSGE, "JFUGE", "JFUGE", 15, 8)
		setFPUCmp(cls, CodeJmpJSLT, "JFULT", "JFULT", 15, 8)
		setFPUCmp(cls, CodeJmpJSLE, "JFULE", "JFULE", 15, 8)
	}
}

func sizeName(s Size) string {
	switch s {
	case SizeW:
		return "W"
	case SizeH:
		return "H"
	case SizeB:
		return "B"
	case SizeDW:
		return "DW"
	default:
		return "?"
	}
}

// IsFPU reports whether i is costed out of the floating-point catalog
// rather than the integer one:
//   - ALU/ALU64: FPU iff bit 1 of the 16-bit offset is set.
//   - JMP/JMP32, excluding CALL/EXIT: FPU iff bit 1 of the immediate is set.
//   - memory classes: FPU iff the addressing mode is FMEM.
func (i Instruction) IsFPU() bool {
	switch {
	case i.Class().IsALU():
		return uint16(i.Offset)&0x2 != 0
	case i.Class().IsJump() && !i.IsExit() && i.Code() != CodeJmpCALL:
		return uint32(i.Imm)&0x2 != 0
	case i.Class().IsLoadStore():
		return i.MemMode() == ModeFMEM
	default:
		return false
	}
}

// AtomicLatency returns the catalog latency for STX+ATOMIC instructions,
// which is flat across every defined sub-op.
func AtomicLatency(subop uint8) (int, bool) {
	switch subop & AtomicOpMask {
	case AtomicADD, AtomicAND, AtomicOR, AtomicXOR:
		return 8, true
	default:
		if op := subop &^ AtomicFetch; op == AtomicXCHG || op == AtomicCMPXCHG {
			return 8, true
		}
		return 0, false
	}
}

// Cost returns the integer-catalog latency for i, or UnknownOpcode if i's
// opcode has no entry.
func Cost(i Instruction) (Info, error) {
	if i.Class().IsLoadStore() && i.MemMode() == ModeATOMIC {
		lat, ok := AtomicLatency(i.AtomicSubOp())
		if !ok {
			return Info{}, fmt.Errorf("%w: atomic sub-op 0x%02x", ErrUnknownOpcode, i.AtomicSubOp())
		}
		return Info{Mnemonic: "ATOMIC", Latency: lat, Valid: true}, nil
	}
	info := catalog[i.Op]
	if !info.Valid {
		return Info{}, fmt.Errorf("%w: opcode 0x%02x", ErrUnknownOpcode, i.Op)
	}
	return info, nil
}

// CostFPU returns the floating-point-catalog latency for i.
func CostFPU(i Instruction) (Info, error) {
	info := fpuCatalog[i.Op]
	if !info.Valid {
		return Info{}, fmt.Errorf("%w: fpu opcode 0x%02x", ErrUnknownOpcode, i.Op)
	}
	return info, nil
}

// Latency dispatches to Cost or CostFPU per the FPU discriminator and
// returns whichever applies to i.
func Latency(i Instruction) (Info, error) {
	if i.IsFPU() {
		return CostFPU(i)
	}
	return Cost(i)
}

// HelperCost returns the static cost charged for invoking helper id, per
// the Open Question resolution recorded in DESIGN.md: the
// three named helpers get the specified treatment (folded into the CALL
// opcode's own latency, so the extra charge here is zero), anything else
// is charged a flat default.
func HelperCost(id int64) int {
	switch id {
	case HelperMapLookupElem, HelperMapUpdateElem, HelperMapDeleteElem:
		return 0
	default:
		return 100
	}
}
