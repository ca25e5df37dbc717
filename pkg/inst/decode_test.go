package inst

import (
	"encoding/binary"
	"testing"
)

func encodeWord(op uint8, dst, src uint8, off int16, imm int32) []byte {
	word := uint64(op)
	word |= uint64(dst&0xF) << shiftDst
	word |= uint64(src&0xF) << shiftSrc
	word |= uint64(uint16(off)) << shiftOffset
	word |= uint64(uint32(imm)) << shiftImm
	b := make([]byte, wordSize)
	binary.LittleEndian.PutUint64(b, word)
	return b
}

func TestDecodeExit(t *testing.T) {
	op := opALU(CodeJmpEXIT, ClassJMP, SrcK)
	b := encodeWord(op, 0, 0, 0, 0)
	ins, n, err := Decode(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != wordSize {
		t.Fatalf("expected %d bytes consumed, got %d", wordSize, n)
	}
	if !ins.IsExit() {
		t.Fatalf("expected EXIT, got class=%s code=%d", ins.Class(), ins.Code())
	}
}

func TestDecodeSignExtension(t *testing.T) {
	op := opALU(CodeALUMov, ClassALU64, SrcK)
	b := encodeWord(op, 1, 0, -5, -100)
	ins, _, err := Decode(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ins.Offset != -5 {
		t.Fatalf("expected offset -5, got %d", ins.Offset)
	}
	if ins.Imm != -100 {
		t.Fatalf("expected imm -100, got %d", ins.Imm)
	}
}

func TestDecodeWideLoadImm(t *testing.T) {
	op := opMem(ClassLD, ModeIMM, SizeDW)
	low := encodeWord(op, 3, 0, 0, 0x11223344)
	high := make([]byte, wordSize)
	binary.LittleEndian.PutUint64(high, uint64(uint32(0x55667788))<<shiftImm)
	buf := append(low, high...)

	ins, n, err := Decode(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2*wordSize {
		t.Fatalf("expected wide instruction to consume %d bytes, got %d", 2*wordSize, n)
	}
	if !ins.Wide {
		t.Fatalf("expected Wide=true")
	}
	want := int64(0x55667788)<<32 | int64(0x11223344)
	if ins.Imm != want {
		t.Fatalf("expected assembled imm %#x, got %#x", want, ins.Imm)
	}
}

func TestDecodeShortReadError(t *testing.T) {
	_, _, err := Decode([]byte{0, 1, 2})
	if err == nil {
		t.Fatalf("expected error on short input")
	}
}

func TestDecodeAllSequence(t *testing.T) {
	movOp := opALU(CodeALUMov, ClassALU64, SrcK)
	exitOp := opALU(CodeJmpEXIT, ClassJMP, SrcK)
	buf := append(encodeWord(movOp, 0, 0, 0, 7), encodeWord(exitOp, 0, 0, 0, 0)...)

	prog, err := DecodeAll(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(prog))
	}
	if !prog[1].IsExit() {
		t.Fatalf("expected second instruction to be EXIT")
	}
}

func TestCostKnownOpcodes(t *testing.T) {
	exitOp := opALU(CodeJmpEXIT, ClassJMP, SrcK)
	info, err := Cost(Instruction{Op: exitOp})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Latency != 2 {
		t.Fatalf("expected EXIT latency 2, got %d", info.Latency)
	}

	movOp := opALU(CodeALUMov, ClassALU64, SrcK)
	info, err = Cost(Instruction{Op: movOp})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Mnemonic != "MOV64" || info.Latency != 4 {
		t.Fatalf("unexpected MOV64 info: %+v", info)
	}
}

func TestCostUnknownOpcode(t *testing.T) {
	badOp := opMem(ClassLD, ModeABS, SizeW)
	if _, err := Cost(Instruction{Op: badOp}); err == nil {
		t.Fatalf("expected UnknownOpcode for unmapped ABS-mode opcode")
	}
}

func TestDisassembleFormatsEveryLine(t *testing.T) {
	movOp := opALU(CodeALUMov, ClassALU64, SrcK)
	exitOp := opALU(CodeJmpEXIT, ClassJMP, SrcK)
	prog := []Instruction{{Op: movOp, Dst: 0, Imm: 7}, {Op: exitOp}}
	lines := Disassemble(prog)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
}
