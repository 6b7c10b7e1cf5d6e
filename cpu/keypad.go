package cpu

const (
	KEY_COUNT = 16 // Number of keypad keys.
)

// Keypad is the 16-key hex keypad state, bit k set iff key k is held.
type Keypad uint16

// Set sets or clears the held state of a key.
func (k *Keypad) Set(index int, pressed bool) (err error) {
	if index < 0 || index >= KEY_COUNT {
		err = ErrIndexRange
		return
	}

	if pressed {
		*k |= 1 << index
	} else {
		*k &^= 1 << index
	}
	return
}

// Pressed reports whether a key is held. Out-of-range keys read as released.
func (k Keypad) Pressed(index int) bool {
	if index < 0 || index >= KEY_COUNT {
		return false
	}
	return (k & (1 << index)) != 0
}

// FirstPressed returns the lowest held key index, if any key is held.
func (k Keypad) FirstPressed() (key uint8, ok bool) {
	for index := range KEY_COUNT {
		if (k & (1 << index)) != 0 {
			return uint8(index), true
		}
	}
	return
}

// Reset releases all keys.
func (k *Keypad) Reset() {
	*k = 0
}
