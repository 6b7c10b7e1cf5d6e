// Package cpu implements the CHIP-8 virtual machine and assembler.
//
// The machine consists of a 16-bit program counter, 4KB of RAM with the
// glyph font at address 0 and program text at 0x200, sixteen 8-bit
// registers (v0-vf), a 16-bit index register (i), a 16-deep call stack,
// a 64x32 monochrome packed-bit display, a 16-key keypad bitfield, and
// two countdown timers. One Tick is one fetch/decode/execute cycle plus
// one timer step; the host drives ticks and owns the state between them.
//
// The assembler provides the classic CHIP-8 mnemonics with labels,
// equates, and compile-time expression evaluation.
package cpu
