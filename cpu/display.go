package cpu

import (
	"fmt"
	"io"
	"iter"
)

const (
	SCREEN_WIDTH  = 64                                // Display width in pixels.
	SCREEN_HEIGHT = 32                                // Display height in pixels.
	SCREEN_PIXELS = SCREEN_WIDTH * SCREEN_HEIGHT      // Total addressable pixels.
	SCREEN_BYTES  = SCREEN_WIDTH * SCREEN_HEIGHT / 8  // Packed framebuffer size.
)

// Display is the 64x32 monochrome framebuffer, packed 8 pixels per byte,
// row-major, MSB first. Pixel (x, y) lives in byte y*8 + x/8 at bit 7 - x%8.
type Display struct {
	Data [SCREEN_BYTES]byte
}

// Clear zeros the framebuffer.
func (d *Display) Clear() {
	clear(d.Data[:])
}

// Cleared reports whether every pixel is off.
func (d *Display) Cleared() bool {
	for _, b := range d.Data {
		if b != 0 {
			return false
		}
	}
	return true
}

// locate decomposes a linear pixel index into byte index and bit mask.
func locate(index int) (byteIndex int, mask byte) {
	return index >> 3, 0x80 >> (index & 7)
}

// Pixel returns the state of the pixel at a linear index in [0, SCREEN_PIXELS).
func (d *Display) Pixel(index int) (on bool, err error) {
	if index < 0 || index >= SCREEN_PIXELS {
		err = ErrIndexRange
		return
	}

	byteIndex, mask := locate(index)
	on = (d.Data[byteIndex] & mask) != 0
	return
}

// SetPixel forces the pixel at a linear index on or off.
func (d *Display) SetPixel(index int, on bool) (err error) {
	if index < 0 || index >= SCREEN_PIXELS {
		err = ErrIndexRange
		return
	}

	byteIndex, mask := locate(index)
	if on {
		d.Data[byteIndex] |= mask
	} else {
		d.Data[byteIndex] &^= mask
	}
	return
}

// flip XORs the pixel at (x, y), wrapping both coordinates, and reports
// whether a lit pixel was cleared.
func (d *Display) flip(x, y int) (collision bool) {
	x &= SCREEN_WIDTH - 1
	y &= SCREEN_HEIGHT - 1

	byteIndex, mask := locate(y*SCREEN_WIDTH + x)
	collision = (d.Data[byteIndex] & mask) != 0
	d.Data[byteIndex] ^= mask
	return
}

// Draw XORs a sprite onto the framebuffer at (x, y), one byte per row,
// MSB leftmost, wrapping at both edges. Returns true if any lit pixel
// was cleared by the draw.
func (d *Display) Draw(x, y int, sprite []byte) (collision bool) {
	for row, pattern := range sprite {
		for bit := range 8 {
			if (pattern & (0x80 >> bit)) == 0 {
				continue
			}
			if d.flip(x+bit, y+row) {
				collision = true
			}
		}
	}
	return
}

// Pixels iterates over every pixel in linear order.
func (d *Display) Pixels() iter.Seq2[int, bool] {
	return func(yield func(index int, on bool) bool) {
		for index := range SCREEN_PIXELS {
			byteIndex, mask := locate(index)
			if !yield(index, (d.Data[byteIndex]&mask) != 0) {
				return
			}
		}
	}
}

// Render writes an ASCII rendition of the framebuffer, one line per row.
func (d *Display) Render(w io.Writer) (err error) {
	line := make([]byte, SCREEN_WIDTH)
	for y := range SCREEN_HEIGHT {
		for x := range SCREEN_WIDTH {
			byteIndex, mask := locate(y*SCREEN_WIDTH + x)
			if (d.Data[byteIndex] & mask) != 0 {
				line[x] = '#'
			} else {
				line[x] = '.'
			}
		}
		_, err = fmt.Fprintf(w, "%s\n", line)
		if err != nil {
			return
		}
	}
	return
}
