package explorer

import "github.com/fprime/bpfwcet/pkg/inst"

func mov64Imm(dst uint8, imm int64) inst.Instruction {
	op := uint8(inst.ClassALU64) | uint8(inst.CodeALUMov)<<4
	return inst.Instruction{Op: op, Dst: dst, Imm: imm}
}

func mul64Imm(dst uint8, imm int64) inst.Instruction {
	op := uint8(inst.ClassALU64) | uint8(inst.CodeALUMul)<<4
	return inst.Instruction{Op: op, Dst: dst, Imm: imm}
}

func add64Imm(dst uint8, imm int64) inst.Instruction {
	op := uint8(inst.ClassALU64) | uint8(inst.CodeALUAdd)<<4
	return inst.Instruction{Op: op, Dst: dst, Imm: imm}
}

func exitInsn() inst.Instruction {
	op := uint8(inst.ClassJMP) | uint8(inst.CodeJmpEXIT)<<4
	return inst.Instruction{Op: op}
}

func jeqK(dst uint8, imm int64, offset int16) inst.Instruction {
	op := uint8(inst.ClassJMP) | uint8(inst.CodeJmpJEQ)<<4
	return inst.Instruction{Op: op, Dst: dst, Imm: imm, Offset: offset}
}

func jeqX(dst, src uint8, offset int16) inst.Instruction {
	op := uint8(inst.ClassJMP) | 0x08 | uint8(inst.CodeJmpJEQ)<<4
	return inst.Instruction{Op: op, Dst: dst, Src: src, Offset: offset}
}

func ldxW(dst, src uint8, offset int16) inst.Instruction {
	op := uint8(inst.ClassLDX) | uint8(inst.SizeW)<<3 | uint8(inst.ModeMEM)<<5
	return inst.Instruction{Op: op, Dst: dst, Src: src, Offset: offset}
}
