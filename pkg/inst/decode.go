package inst

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

const (
	wordSize = 8
	// An LD/ST-class instruction in IMM mode occupies two consecutive
	// 8-byte words: the second word's high 32 bits (its imm field) hold
	// the upper half of a 64-bit immediate, its low 32 bits the reserved
	// field.
	shiftImm    = 32
	shiftOffset = 16
	shiftSrc    = 12
	shiftDst    = 8
	shiftSZ     = 3
	shiftCode   = 4
	shiftMode   = 5
)

// Decode reads one instruction (and its second word, if wide) from b,
// returning the instruction and the number of bytes consumed.
func Decode(b []byte) (Instruction, int, error) {
	if len(b) < wordSize {
		return Instruction{}, 0, errors.Wrapf(ErrMalformedInstruction, "short read: %d bytes", len(b))
	}
	word := binary.LittleEndian.Uint64(b[:wordSize])

	var ins Instruction
	ins.Op = uint8(word)
	ins.Dst = uint8((word >> shiftDst) & 0xF)
	ins.Src = uint8((word >> shiftSrc) & 0xF)
	ins.Offset = int16((word >> shiftOffset) & 0xFFFF)
	ins.Imm = int64(int32((word >> shiftImm) & 0xFFFFFFFF))

	if (ins.Class() == ClassLD || ins.Class() == ClassST) && ins.MemMode() == ModeIMM {
		if len(b) < 2*wordSize {
			return Instruction{}, 0, errors.Wrapf(ErrMalformedInstruction, "truncated wide instruction")
		}
		word2 := binary.LittleEndian.Uint64(b[wordSize : 2*wordSize])
		nextImm := int64(int32(word2 >> shiftImm))
		ins.Reserved = uint32(word2 & 0xFFFFFFFF)
		ins.Imm = (nextImm << 32) | (ins.Imm & 0xFFFFFFFF)
		ins.Wide = true
		return ins, 2 * wordSize, nil
	}
	return ins, wordSize, nil
}

// DecodeAll decodes every instruction in b, in program order.
func DecodeAll(b []byte) ([]Instruction, error) {
	var out []Instruction
	off := 0
	for off < len(b) {
		ins, n, err := Decode(b[off:])
		if err != nil {
			return nil, errors.Wrapf(err, "at byte offset %d", off)
		}
		out = append(out, ins)
		off += n
	}
	return out, nil
}

// Format renders i as a mnemonic line, dispatching to whichever catalog
// the FPU discriminator selects.
func Format(i Instruction) string {
	info, err := Latency(i)
	if err != nil {
		return fmt.Sprintf("0x%02x dst=r%d src=r%d off=%d imm=%d  ; %v", i.Op, i.Dst, i.Src, i.Offset, i.Imm, err)
	}
	switch {
	case i.Class().IsJump() && !i.IsExit():
		return fmt.Sprintf("%-8s r%d, r%d, +%d  ; imm=%d", info.Mnemonic, i.Dst, i.Src, i.Offset, i.Imm)
	case i.Class().IsLoadStore():
		return fmt.Sprintf("%-8s r%d, [r%d%+d]  ; imm=%d", info.Mnemonic, i.Dst, i.Src, i.Offset, i.Imm)
	default:
		return fmt.Sprintf("%-8s r%d, r%d  ; imm=%d", info.Mnemonic, i.Dst, i.Src, i.Imm)
	}
}

// Disassemble formats a whole decoded program, one line per instruction,
// prefixed with its index.
func Disassemble(prog []Instruction) []string {
	lines := make([]string, len(prog))
	for idx, i := range prog {
		lines[idx] = fmt.Sprintf("%4d: %s", idx, Format(i))
	}
	return lines
}
