package cpu

// Validated accessors for the host's state queries and genesis writes.
// Index failures are local to the call and never halt the machine.

// Register returns register vn.
func (cpu *Cpu) Register(index int) (value uint8, err error) {
	if index < 0 || index >= REG_COUNT {
		err = ErrIndexRange
		return
	}
	value = cpu.V[index]
	return
}

// SetRegister writes register vn.
func (cpu *Cpu) SetRegister(index int, value uint8) (err error) {
	if index < 0 || index >= REG_COUNT {
		err = ErrIndexRange
		return
	}
	cpu.V[index] = value
	return
}

// MemoryAt returns the RAM byte at an address.
func (cpu *Cpu) MemoryAt(addr int) (value byte, err error) {
	if addr < 0 || addr >= RAM_SIZE {
		err = ErrIndexRange
		return
	}
	value = cpu.Ram[addr]
	return
}

// SetMemoryAt writes the RAM byte at an address.
func (cpu *Cpu) SetMemoryAt(addr int, value byte) (err error) {
	if addr < 0 || addr >= RAM_SIZE {
		err = ErrIndexRange
		return
	}
	cpu.Ram[addr] = value
	return
}

// StackAt returns the stack slot at an index, pushed or not.
func (cpu *Cpu) StackAt(index int) (value uint16, err error) {
	if index < 0 || index >= STACK_LIMIT {
		err = ErrIndexRange
		return
	}
	value = cpu.Stack.Data[index]
	return
}

// SetStackAt writes the stack slot at an index.
func (cpu *Cpu) SetStackAt(index int, value uint16) (err error) {
	if index < 0 || index >= STACK_LIMIT {
		err = ErrIndexRange
		return
	}
	cpu.Stack.Data[index] = value
	return
}

// SetStackPointer forces the stack depth.
func (cpu *Cpu) SetStackPointer(sp int) (err error) {
	if sp < 0 || sp > STACK_LIMIT {
		err = ErrIndexRange
		return
	}
	cpu.Stack.Sp = sp
	return
}

// Key reports whether a keypad key is held.
func (cpu *Cpu) Key(index int) (pressed bool, err error) {
	if index < 0 || index >= KEY_COUNT {
		err = ErrIndexRange
		return
	}
	pressed = cpu.Keys.Pressed(index)
	return
}

// SetKey presses or releases a keypad key. This is the only keypad
// mutator; opcode key reads are pure reads of the bitfield.
func (cpu *Cpu) SetKey(index int, pressed bool) (err error) {
	return cpu.Keys.Set(index, pressed)
}

// Pixel returns the framebuffer pixel at a linear index in [0, SCREEN_PIXELS).
func (cpu *Cpu) Pixel(index int) (on bool, err error) {
	return cpu.Screen.Pixel(index)
}

// SetPixel forces the framebuffer pixel at a linear index.
func (cpu *Cpu) SetPixel(index int, on bool) (err error) {
	return cpu.Screen.SetPixel(index, on)
}
