package cpu

import (
	"fmt"
)

// Opcode is a single 16-bit CHIP-8 instruction word, stored big-endian
// in RAM (high byte first).
type Opcode uint16

// Hi returns the top nibble, the primary dispatch group.
func (op Opcode) Hi() int {
	return int(op>>12) & 0xf
}

// X returns the second nibble, a register index.
func (op Opcode) X() int {
	return int(op>>8) & 0xf
}

// Y returns the third nibble, a register index.
func (op Opcode) Y() int {
	return int(op>>4) & 0xf
}

// N returns the low nibble.
func (op Opcode) N() uint8 {
	return uint8(op) & 0xf
}

// NN returns the low byte immediate.
func (op Opcode) NN() uint8 {
	return uint8(op)
}

// NNN returns the 12-bit address field.
func (op Opcode) NNN() uint16 {
	return uint16(op) & 0xfff
}

// aluNames maps the 8XY_ low nibble to its mnemonic.
var aluNames = map[uint8]string{
	0x0: "ld", 0x1: "or", 0x2: "and", 0x3: "xor",
	0x4: "add", 0x5: "sub", 0x6: "shr", 0x7: "subn", 0xE: "shl",
}

// String returns the canonical mnemonic for the instruction word.
func (op Opcode) String() (out string) {
	x := op.X()
	y := op.Y()

	switch op.Hi() {
	case 0x0:
		switch op {
		case 0x00E0:
			out = "cls"
		case 0x00EE:
			out = "ret"
		}
	case 0x1:
		out = fmt.Sprintf("jp 0x%03x", op.NNN())
	case 0x2:
		out = fmt.Sprintf("call 0x%03x", op.NNN())
	case 0x3:
		out = fmt.Sprintf("se v%x %#02x", x, op.NN())
	case 0x4:
		out = fmt.Sprintf("sne v%x %#02x", x, op.NN())
	case 0x5:
		if op.N() == 0 {
			out = fmt.Sprintf("se v%x v%x", x, y)
		}
	case 0x6:
		out = fmt.Sprintf("ld v%x %#02x", x, op.NN())
	case 0x7:
		out = fmt.Sprintf("add v%x %#02x", x, op.NN())
	case 0x8:
		name, ok := aluNames[op.N()]
		if ok {
			out = fmt.Sprintf("%s v%x v%x", name, x, y)
		}
	case 0x9:
		if op.N() == 0 {
			out = fmt.Sprintf("sne v%x v%x", x, y)
		}
	case 0xA:
		out = fmt.Sprintf("ld i 0x%03x", op.NNN())
	case 0xB:
		out = fmt.Sprintf("jp v0 0x%03x", op.NNN())
	case 0xC:
		out = fmt.Sprintf("rnd v%x %#02x", x, op.NN())
	case 0xD:
		out = fmt.Sprintf("drw v%x v%x %d", x, y, op.N())
	case 0xE:
		switch op.NN() {
		case 0x9E:
			out = fmt.Sprintf("skp v%x", x)
		case 0xA1:
			out = fmt.Sprintf("sknp v%x", x)
		}
	case 0xF:
		switch op.NN() {
		case 0x07:
			out = fmt.Sprintf("ld v%x dt", x)
		case 0x0A:
			out = fmt.Sprintf("ld v%x k", x)
		case 0x15:
			out = fmt.Sprintf("ld dt v%x", x)
		case 0x18:
			out = fmt.Sprintf("ld st v%x", x)
		case 0x1E:
			out = fmt.Sprintf("add i v%x", x)
		case 0x29:
			out = fmt.Sprintf("ld f v%x", x)
		case 0x33:
			out = fmt.Sprintf("ld b v%x", x)
		case 0x55:
			out = fmt.Sprintf("ld [i] v%x", x)
		case 0x65:
			out = fmt.Sprintf("ld v%x [i]", x)
		}
	}

	if len(out) == 0 {
		out = fmt.Sprintf("dw 0x%04x", uint16(op))
	}

	return
}
