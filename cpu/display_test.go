package cpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplay_Clear(t *testing.T) {
	assert := assert.New(t)

	d := &Display{}
	d.Data[0] = 0xFF
	d.Data[SCREEN_BYTES-1] = 0x01
	assert.False(d.Cleared())

	d.Clear()
	assert.True(d.Cleared())
	for _, b := range d.Data {
		assert.Equal(byte(0), b)
	}
}

func TestDisplay_Pixel(t *testing.T) {
	assert := assert.New(t)

	d := &Display{}

	// Pixel 10 of row 0 lives in byte 1, bit 5.
	err := d.SetPixel(10, true)
	assert.NoError(err)
	assert.Equal(byte(0x20), d.Data[1])

	on, err := d.Pixel(10)
	assert.NoError(err)
	assert.True(on)

	err = d.SetPixel(10, false)
	assert.NoError(err)
	on, err = d.Pixel(10)
	assert.NoError(err)
	assert.False(on)
}

func TestDisplay_Pixel_Range(t *testing.T) {
	assert := assert.New(t)

	d := &Display{}

	_, err := d.Pixel(SCREEN_PIXELS)
	assert.ErrorIs(err, ErrIndexRange)
	_, err = d.Pixel(-1)
	assert.ErrorIs(err, ErrIndexRange)
	err = d.SetPixel(SCREEN_PIXELS, true)
	assert.ErrorIs(err, ErrIndexRange)

	// Last valid pixel is the bottom-right corner, byte 255 bit 0.
	err = d.SetPixel(SCREEN_PIXELS-1, true)
	assert.NoError(err)
	assert.Equal(byte(0x01), d.Data[SCREEN_BYTES-1])
}

func TestDisplay_Draw(t *testing.T) {
	assert := assert.New(t)

	d := &Display{}

	glyph := []byte{0xF0, 0x90, 0x90, 0x90, 0xF0}

	collision := d.Draw(0, 0, glyph)
	assert.False(collision)
	for row, pattern := range glyph {
		assert.Equal(pattern, d.Data[row*8])
	}

	// XOR idempotence: the same draw erases itself.
	collision = d.Draw(0, 0, glyph)
	assert.True(collision)
	assert.True(d.Cleared())
}

func TestDisplay_Draw_Offset(t *testing.T) {
	assert := assert.New(t)

	d := &Display{}

	// A single-row sprite at x=4 straddles two bytes.
	collision := d.Draw(4, 3, []byte{0xFF})
	assert.False(collision)
	assert.Equal(byte(0x0F), d.Data[3*8+0])
	assert.Equal(byte(0xF0), d.Data[3*8+1])
}

func TestDisplay_Draw_Wrap(t *testing.T) {
	assert := assert.New(t)

	d := &Display{}

	// x=60 wraps horizontally into the row's first byte, y=31 wraps
	// vertically onto row 1.
	collision := d.Draw(60, 31, []byte{0xFF, 0xFF})
	assert.False(collision)
	assert.Equal(byte(0x0F), d.Data[31*8+7])
	assert.Equal(byte(0xF0), d.Data[31*8+0])
	assert.Equal(byte(0x0F), d.Data[0*8+7])
	assert.Equal(byte(0xF0), d.Data[0*8+0])
}

func TestDisplay_Draw_Collision(t *testing.T) {
	assert := assert.New(t)

	d := &Display{}

	d.Draw(0, 0, []byte{0x80})
	collision := d.Draw(0, 0, []byte{0x01})
	assert.False(collision)
	collision = d.Draw(0, 0, []byte{0x80})
	assert.True(collision)
}

func TestDisplay_Pixels(t *testing.T) {
	assert := assert.New(t)

	d := &Display{}
	d.SetPixel(77, true)

	count := 0
	for index, on := range d.Pixels() {
		if on {
			assert.Equal(77, index)
			count += 1
		}
	}
	assert.Equal(1, count)
}

func TestDisplay_Render(t *testing.T) {
	assert := assert.New(t)

	d := &Display{}
	d.SetPixel(0, true)

	sb := &strings.Builder{}
	err := d.Render(sb)
	assert.NoError(err)

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	assert.Equal(SCREEN_HEIGHT, len(lines))
	assert.Equal(SCREEN_WIDTH, len(lines[0]))
	assert.Equal(byte('#'), lines[0][0])
	assert.Equal(byte('.'), lines[0][1])
}
