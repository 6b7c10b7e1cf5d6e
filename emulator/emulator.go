// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"iter"
	"maps"
	"math/rand/v2"
	"os"

	"github.com/ezrec/uchip8/cpu"
	"github.com/ezrec/uchip8/internal"
)

const (
	BEEP_BACKLOG = 8       // Beep tokens buffered between ticks.
	TICK_LIMIT   = 1 << 20 // Default bound on a Run call.
)

var _emulator_defines = map[string]string{
	"TICK_LIMIT": fmt.Sprintf("%v", TICK_LIMIT),
}

// Emulator is the host adapter around the CHIP-8 core. It owns the
// machine state, injects the randomness source the rnd opcode needs,
// and drains the core's beep channel into a counter.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the machine state.
	Program  *cpu.Program // Reference to the currently loaded program listing.

	Beeps int // Sound-timer beep edges observed since reset.

	beep chan struct{}
}

// NewEmulator creates a new emulator with a seeded randomness source.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Program: &cpu.Program{},
		beep:    make(chan struct{}, BEEP_BACKLOG),
	}

	emu.Cpu.Rand = func() uint8 { return uint8(rand.UintN(256)) }
	emu.Cpu.Beep = emu.beep

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Reset reinitializes the machine to the font-loaded baseline and
// reinstalls the current program listing, if any.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose
	emu.drain()
	emu.Beeps = 0

	emu.Cpu.Reset()

	rom := emu.Program.Binary()
	if len(rom) > 0 {
		err = emu.Cpu.LoadProgram(rom)
	}

	return
}

// Load resets the machine and installs a raw ROM image. The reset
// first keeps loads deterministic regardless of prior machine state.
func (emu *Emulator) Load(rom []byte) (err error) {
	emu.Program = &cpu.Program{}
	emu.drain()
	emu.Beeps = 0

	emu.Cpu.Reset()
	err = emu.Cpu.LoadProgram(rom)

	return
}

// LoadFile installs a ROM image from a file.
func (emu *Emulator) LoadFile(path string) (err error) {
	rom, err := os.ReadFile(path)
	if err != nil {
		return
	}

	return emu.Load(rom)
}

// LineNo returns the source line number for the next instruction, when
// the loaded program came from the assembler.
func (emu *Emulator) LineNo() (lineno int) {
	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Line != nil {
		lineno = dbg.Line.LineNo
	}

	return
}

// drain collects any pending beep tokens.
func (emu *Emulator) drain() {
	for {
		select {
		case <-emu.beep:
			emu.Beeps += 1
		default:
			return
		}
	}
}

// Tick performs a single tick of the emulator.
func (emu *Emulator) Tick() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	pc := emu.Cpu.Pc
	lineno := emu.LineNo()

	err = emu.Cpu.Tick()
	emu.drain()

	if err != nil {
		err = &ErrRuntime{Pc: pc, LineNo: lineno, Err: err}
	}

	return
}

// Run ticks the machine up to maxTicks times, stopping at the first
// error. A non-positive maxTicks runs up to TICK_LIMIT.
func (emu *Emulator) Run(maxTicks int) (ticks int, err error) {
	if maxTicks <= 0 {
		maxTicks = TICK_LIMIT
	}

	for ticks < maxTicks {
		err = emu.Tick()
		if err != nil {
			return
		}
		ticks += 1
	}

	return
}
