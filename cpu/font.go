package cpu

const (
	FONT_ADDR   = 0x000 // RAM address of the glyph font.
	GLYPH_BYTES = 5     // Height in bytes of one glyph sprite.
)

// fontset holds the 8x5 sprites for the hex digits 0-F, one row per byte.
var fontset = [16 * GLYPH_BYTES]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// GlyphAddr returns the RAM address of the font sprite for a hex digit.
// Only the low nibble of digit is significant.
func GlyphAddr(digit uint8) uint16 {
	return FONT_ADDR + uint16(digit&0xf)*GLYPH_BYTES
}
