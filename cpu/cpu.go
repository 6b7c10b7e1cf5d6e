package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
)

const (
	RAM_SIZE   = 4096  // Addressable memory in bytes.
	START_ADDR = 0x200 // Load address of program text.
	REG_COUNT  = 16    // General purpose registers v0-vf.
	FLAG_REG   = 0xF   // vf doubles as the carry/collision flag.
)

// RunState is the tick-cycle state of the machine.
type RunState int

//go:generate go tool stringer -linecomment -type=RunState
const (
	STATE_IDLE    = RunState(0) // idle
	STATE_RUNNING = RunState(1) // running
	STATE_HALTED  = RunState(2) // halted
)

var _cpu_defines = map[string]string{
	"RAM_SIZE":      fmt.Sprintf("%d", RAM_SIZE),
	"START_ADDR":    fmt.Sprintf("0x%x", START_ADDR),
	"FONT_ADDR":     fmt.Sprintf("0x%x", FONT_ADDR),
	"GLYPH_BYTES":   fmt.Sprintf("%d", GLYPH_BYTES),
	"SCREEN_WIDTH":  fmt.Sprintf("%d", SCREEN_WIDTH),
	"SCREEN_HEIGHT": fmt.Sprintf("%d", SCREEN_HEIGHT),
	"STACK_LIMIT":   fmt.Sprintf("%d", STACK_LIMIT),
	"KEY_COUNT":     fmt.Sprintf("%d", KEY_COUNT),
}

// Cpu is the CHIP-8 machine state. A single host goroutine owns the
// value and serializes all calls against it; Tick advances exactly one
// instruction and one timer step.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Pc          uint16              // Program counter.
	Ram         [RAM_SIZE]byte      // Font, program text, and scratch memory.
	Screen      Display             // Packed 64x32 framebuffer.
	V           [REG_COUNT]uint8    // Register bank.
	I           uint16              // Index register.
	Stack       Stack               // Subroutine return stack.
	Keys        Keypad              // Keypad bitfield.
	DelayTimer  uint8               // Delay countdown, one step per tick.
	SoundTimer  uint8               // Sound countdown, one step per tick.
	ProgramSize int                 // Bytes of loaded program, zero when idle.

	State    RunState // Tick-cycle state.
	AwaitKey int      // Register waiting on a key press, or -1.

	Rand func() uint8  // Randomness source for the rnd opcode. Host injected.
	Beep chan struct{} // Receives one token per sound-timer 1->0 edge.

	Ticks int // Instruction cycles since reset.
}

// NewCpu creates a machine in the reset baseline state.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}
	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// String returns the current machine state as a string.
func (cpu *Cpu) String() (text string) {
	text = fmt.Sprintf("   pc: 0x%03x  i: 0x%03x  sp: %d\n", cpu.Pc, cpu.I, cpu.Stack.Sp)
	for n := range REG_COUNT {
		text += fmt.Sprintf("   v%x: 0x%02x", n, cpu.V[n])
		if n%4 == 3 {
			text += "\n"
		}
	}
	text += fmt.Sprintf("   dt: %d  st: %d  keys: %016b\n", cpu.DelayTimer, cpu.SoundTimer, uint16(cpu.Keys))

	return
}

// Reset the machine state.
// - Clears registers, stack, timers, keys, and the framebuffer.
// - Reloads the glyph font and sets the program counter to START_ADDR.
// - Discards any loaded program and returns to the idle state.
// The Rand source and Beep channel survive a reset.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Ram[:])
	clear(cpu.V[:])
	cpu.Screen.Clear()
	cpu.Stack.Reset()
	cpu.Keys.Reset()
	cpu.I = 0
	cpu.DelayTimer = 0
	cpu.SoundTimer = 0
	cpu.ProgramSize = 0
	cpu.Ticks = 0
	cpu.AwaitKey = -1
	cpu.State = STATE_IDLE

	copy(cpu.Ram[FONT_ADDR:], fontset[:])
	cpu.Pc = START_ADDR
}

// LoadProgram installs program text at START_ADDR and moves the machine
// to the running state. Only program memory and the program size are
// touched; callers wanting a clean register file should Reset first.
func (cpu *Cpu) LoadProgram(data []byte) (err error) {
	if START_ADDR+len(data) > RAM_SIZE {
		err = ErrProgramTooLarge
		return
	}

	copy(cpu.Ram[START_ADDR:], data)
	cpu.ProgramSize = len(data)
	if cpu.ProgramSize > 0 {
		cpu.State = STATE_RUNNING
	}

	if cpu.Verbose {
		log.Printf("cpu: loaded %d byte program", len(data))
	}

	return
}

// Fetch reads the big-endian instruction word at the program counter
// and advances past it. The program counter is untouched on failure.
func (cpu *Cpu) Fetch() (op Opcode, err error) {
	if int(cpu.Pc)+1 >= RAM_SIZE {
		err = ErrMemoryBounds
		return
	}

	op = Opcode(cpu.Ram[cpu.Pc])<<8 | Opcode(cpu.Ram[cpu.Pc+1])
	cpu.Pc += 2

	return
}

// Tick executes a single machine cycle: one fetch, one decode/execute,
// one timer step. While a key wait is pending, fetch and execute are
// skipped and the keypad is polled instead. Any execution failure moves
// the machine to the halted state; only Reset leaves it.
func (cpu *Cpu) Tick() (err error) {
	switch cpu.State {
	case STATE_IDLE:
		err = ErrProgramEmpty
		return
	case STATE_HALTED:
		err = ErrHalted
		return
	}

	if cpu.AwaitKey >= 0 {
		key, ok := cpu.Keys.FirstPressed()
		if ok {
			cpu.V[cpu.AwaitKey] = key
			cpu.AwaitKey = -1
		}
		cpu.TickTimers()
		return
	}

	op, err := cpu.Fetch()
	if err == nil {
		err = cpu.Execute(op)
	}
	if err != nil {
		cpu.State = STATE_HALTED
		return
	}

	cpu.Ticks += 1
	cpu.TickTimers()

	return
}

// TickTimers steps both countdown timers. Timers saturate at zero, and
// the sound timer's 1->0 transition emits a non-blocking beep token.
func (cpu *Cpu) TickTimers() {
	if cpu.DelayTimer > 0 {
		cpu.DelayTimer -= 1
	}

	if cpu.SoundTimer > 0 {
		cpu.SoundTimer -= 1
		if cpu.SoundTimer == 0 && cpu.Beep != nil {
			select {
			case cpu.Beep <- struct{}{}:
			default:
			}
		}
	}
}

// skip advances past the next instruction for the skip-if opcodes.
func (cpu *Cpu) skip() {
	cpu.Pc += 2
}

// flag writes the carry/collision flag register.
func (cpu *Cpu) flag(set bool) {
	if set {
		cpu.V[FLAG_REG] = 1
	} else {
		cpu.V[FLAG_REG] = 0
	}
}

// rand returns one byte from the injected randomness source.
func (cpu *Cpu) rand() (value uint8) {
	if cpu.Rand != nil {
		value = cpu.Rand()
	}
	return
}

// Execute decodes and executes a single instruction word.
func (cpu *Cpu) Execute(op Opcode) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode(op), err)
		}
	}()
	if cpu.Verbose {
		log.Printf("%03x: %v", cpu.Pc-2, op)
	}

	x := op.X()
	y := op.Y()

	switch op.Hi() {
	case 0x0:
		switch op {
		case 0x00E0:
			cpu.Screen.Clear()
		case 0x00EE:
			addr, ok := cpu.Stack.Pop()
			if !ok {
				err = ErrStackUnderflow
				return
			}
			cpu.Pc = addr
		default:
			err = ErrUnknownOpcode
			return
		}
	case 0x1:
		cpu.Pc = op.NNN()
	case 0x2:
		if !cpu.Stack.Push(cpu.Pc) {
			err = ErrStackOverflow
			return
		}
		cpu.Pc = op.NNN()
	case 0x3:
		if cpu.V[x] == op.NN() {
			cpu.skip()
		}
	case 0x4:
		if cpu.V[x] != op.NN() {
			cpu.skip()
		}
	case 0x5:
		if op.N() != 0 {
			err = ErrUnknownOpcode
			return
		}
		if cpu.V[x] == cpu.V[y] {
			cpu.skip()
		}
	case 0x6:
		cpu.V[x] = op.NN()
	case 0x7:
		cpu.V[x] += op.NN()
	case 0x8:
		err = cpu.alu(op)
	case 0x9:
		if op.N() != 0 {
			err = ErrUnknownOpcode
			return
		}
		if cpu.V[x] != cpu.V[y] {
			cpu.skip()
		}
	case 0xA:
		cpu.I = op.NNN()
	case 0xB:
		cpu.Pc = op.NNN() + uint16(cpu.V[0])
	case 0xC:
		cpu.V[x] = cpu.rand() & op.NN()
	case 0xD:
		err = cpu.draw(op)
	case 0xE:
		switch op.NN() {
		case 0x9E:
			if cpu.Keys.Pressed(int(cpu.V[x] & 0xf)) {
				cpu.skip()
			}
		case 0xA1:
			if !cpu.Keys.Pressed(int(cpu.V[x] & 0xf)) {
				cpu.skip()
			}
		default:
			err = ErrUnknownOpcode
			return
		}
	case 0xF:
		err = cpu.misc(op)
	}

	return
}

// alu executes the 8XY_ register-to-register operation group.
func (cpu *Cpu) alu(op Opcode) (err error) {
	x := op.X()
	y := op.Y()

	switch op.N() {
	case 0x0:
		cpu.V[x] = cpu.V[y]
	case 0x1:
		cpu.V[x] |= cpu.V[y]
	case 0x2:
		cpu.V[x] &= cpu.V[y]
	case 0x3:
		cpu.V[x] ^= cpu.V[y]
	case 0x4:
		sum := uint16(cpu.V[x]) + uint16(cpu.V[y])
		cpu.V[x] = uint8(sum)
		cpu.flag(sum > 0xff)
	case 0x5:
		borrow := cpu.V[y] > cpu.V[x]
		cpu.V[x] -= cpu.V[y]
		cpu.flag(!borrow)
	case 0x6:
		bit := cpu.V[x] & 1
		cpu.V[x] >>= 1
		cpu.flag(bit != 0)
	case 0x7:
		borrow := cpu.V[x] > cpu.V[y]
		cpu.V[x] = cpu.V[y] - cpu.V[x]
		cpu.flag(!borrow)
	case 0xE:
		bit := cpu.V[x] >> 7
		cpu.V[x] <<= 1
		cpu.flag(bit != 0)
	default:
		err = ErrUnknownOpcode
	}

	return
}

// draw executes DXYN: XOR an N-row sprite from RAM at the index
// register onto the framebuffer at (vx, vy), collision into vf.
func (cpu *Cpu) draw(op Opcode) (err error) {
	start := int(cpu.I)
	end := start + int(op.N())
	if end > RAM_SIZE {
		err = ErrMemoryBounds
		return
	}

	collision := cpu.Screen.Draw(int(cpu.V[op.X()]), int(cpu.V[op.Y()]), cpu.Ram[start:end])
	cpu.flag(collision)

	return
}

// misc executes the FX__ operation group.
func (cpu *Cpu) misc(op Opcode) (err error) {
	x := op.X()

	switch op.NN() {
	case 0x07:
		cpu.V[x] = cpu.DelayTimer
	case 0x0A:
		cpu.AwaitKey = x
	case 0x15:
		cpu.DelayTimer = cpu.V[x]
	case 0x18:
		cpu.SoundTimer = cpu.V[x]
	case 0x1E:
		cpu.I += uint16(cpu.V[x])
	case 0x29:
		cpu.I = GlyphAddr(cpu.V[x])
	case 0x33:
		if int(cpu.I)+3 > RAM_SIZE {
			err = ErrMemoryBounds
			return
		}
		value := cpu.V[x]
		cpu.Ram[cpu.I+0] = value / 100
		cpu.Ram[cpu.I+1] = (value / 10) % 10
		cpu.Ram[cpu.I+2] = value % 10
	case 0x55:
		end := int(cpu.I) + x + 1
		if end > RAM_SIZE {
			err = ErrMemoryBounds
			return
		}
		copy(cpu.Ram[cpu.I:end], cpu.V[:x+1])
	case 0x65:
		end := int(cpu.I) + x + 1
		if end > RAM_SIZE {
			err = ErrMemoryBounds
			return
		}
		copy(cpu.V[:x+1], cpu.Ram[cpu.I:end])
	default:
		err = ErrUnknownOpcode
	}

	return
}
