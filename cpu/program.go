package cpu

import (
	"iter"
)

// Line represents a line of assembled source with its emitted bytes.
type Line struct {
	LineNo    int      // Source line number.
	Addr      int      // Absolute RAM address of the first emitted byte.
	Words     []string // Parsed source words.
	Data      []byte   // Emitted bytes.
	LinkLabel string   // Label patched into the address field after parse.
}

// Program is an assembled listing, addressable for debug lookups and
// flattenable to a loadable ROM image.
type Program struct {
	Lines []Line
}

// Debug locates the source line covering an address.
type Debug struct {
	*Line
	Offset int
}

func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, line := range prog.Lines {
		if int(addr) >= line.Addr && int(addr) < line.Addr+len(line.Data) {
			dbg = Debug{
				Line:   &prog.Lines[n],
				Offset: int(addr) - line.Addr,
			}
			break
		}
	}

	return
}

// Binary flattens the listing to a ROM image based at START_ADDR.
// Gaps left by .org are zero filled.
func (prog *Program) Binary() (rom []byte) {
	for addr, data := range prog.Bytes() {
		offset := int(addr) - START_ADDR
		for offset >= len(rom) {
			rom = append(rom, 0)
		}
		rom[offset] = data
	}

	return
}

// Bytes iterates the emitted bytes in address order.
func (prog *Program) Bytes() iter.Seq2[uint16, byte] {
	return func(yield func(addr uint16, data byte) bool) {
		for _, line := range prog.Lines {
			for n, data := range line.Data {
				if !yield(uint16(line.Addr+n), data) {
					return
				}
			}
		}
	}
}
