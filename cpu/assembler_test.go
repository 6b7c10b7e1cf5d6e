package cpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doAssemble(t *testing.T, lines ...string) (prog *Program) {
	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	return
}

func TestAssembler_Encodings(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		source string
		want   uint16
	}{
		{"cls", 0x00E0},
		{"ret", 0x00EE},
		{"jp 0x345", 0x1345},
		{"call 0x456", 0x2456},
		{"se v1 0x42", 0x3142},
		{"sne v1 0x42", 0x4142},
		{"se v1 v2", 0x5120},
		{"sne v1 v2", 0x9120},
		{"ld v1 0x42", 0x6142},
		{"add v1 0x42", 0x7142},
		{"ld v1 v2", 0x8120},
		{"or v1 v2", 0x8121},
		{"and v1 v2", 0x8122},
		{"xor v1 v2", 0x8123},
		{"add v1 v2", 0x8124},
		{"sub v1 v2", 0x8125},
		{"shr v1", 0x8106},
		{"shr v1 v2", 0x8126},
		{"subn v1 v2", 0x8127},
		{"shl v1", 0x810E},
		{"ld i 0x234", 0xA234},
		{"jp v0 0x234", 0xB234},
		{"rnd v1 0x0F", 0xC10F},
		{"drw v1 v2 5", 0xD125},
		{"skp v1", 0xE19E},
		{"sknp v1", 0xE1A1},
		{"ld v1 dt", 0xF107},
		{"ld v1 k", 0xF10A},
		{"ld dt v1", 0xF115},
		{"ld st v1", 0xF118},
		{"add i v1", 0xF11E},
		{"ld f v1", 0xF129},
		{"ld b v1", 0xF133},
		{"ld [i] v1", 0xF155},
		{"ld v1 [i]", 0xF165},
		{"dw 0x7123", 0x7123},
		{"LD V1, 0x42", 0x6142}, // mnemonics are case insensitive
	}

	for _, entry := range table {
		prog := doAssemble(t, entry.source)
		rom := prog.Binary()
		require.Equal(t, 2, len(rom), entry.source)
		assert.Equal(entry.want, uint16(rom[0])<<8|uint16(rom[1]), entry.source)
	}
}

func TestAssembler_Labels(t *testing.T) {
	assert := assert.New(t)

	prog := doAssemble(t,
		"start: ld v0 0",
		"loop:  add v0 1",
		"       jp loop",
	)

	rom := prog.Binary()
	assert.Equal([]byte{0x60, 0x00, 0x70, 0x01, 0x12, 0x02}, rom)
}

func TestAssembler_ForwardLabel(t *testing.T) {
	assert := assert.New(t)

	prog := doAssemble(t,
		"jp main",
		"table: .db 1 2 3",
		".org 0x210",
		"main: cls",
	)

	rom := prog.Binary()
	assert.Equal(0x212-START_ADDR, len(rom))
	assert.Equal([]byte{0x12, 0x10}, rom[0:2])
	assert.Equal([]byte{1, 2, 3}, rom[2:5])
	// .org gaps are zero filled.
	assert.Equal([]byte{0, 0, 0}, rom[5:8])
	assert.Equal([]byte{0x00, 0xE0}, rom[0x10:0x12])
}

func TestAssembler_Equates(t *testing.T) {
	assert := assert.New(t)

	prog := doAssemble(t,
		".equ SPEED 7",
		"ld v1 SPEED       ; equate substitution",
		"ld v2 $(SPEED * 2)",
	)

	rom := prog.Binary()
	assert.Equal([]byte{0x61, 0x07, 0x62, 0x0E}, rom)
}

func TestAssembler_Predefines(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	asm := &Assembler{}
	for key, value := range cpu.Defines() {
		asm.Predefine(key, value)
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join([]string{
		"ld i FONT_ADDR",
		"ld v1 SCREEN_WIDTH",
		"ld v2 $(GLYPH_BYTES * 3)",
	}, "\n")))
	require.NoError(t, err)

	rom := prog.Binary()
	assert.Equal([]byte{0xA0, 0x00, 0x61, 0x40, 0x62, 0x0F}, rom)
}

func TestAssembler_Debug(t *testing.T) {
	assert := assert.New(t)

	prog := doAssemble(t,
		"; leading comment",
		"cls",
		"sprite: .db 0xF0 0x90",
	)

	dbg := prog.Debug(START_ADDR)
	require.NotNil(t, dbg.Line)
	assert.Equal(2, dbg.Line.LineNo)
	assert.Equal(0, dbg.Offset)

	dbg = prog.Debug(START_ADDR + 3)
	require.NotNil(t, dbg.Line)
	assert.Equal(3, dbg.Line.LineNo)
	assert.Equal(1, dbg.Offset)

	dbg = prog.Debug(0x400)
	assert.Nil(dbg.Line)
}

func TestAssembler_Errors(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		name   string
		source []string
		err    error
	}{
		{"bad_mnemonic", []string{"bogus v1"}, ErrOpcodeInvalid},
		{"bad_operand", []string{"ld v1 ="}, ErrOperandInvalid},
		{"byte_range", []string{"ld v1 0x100"}, ErrByteRange},
		{"addr_range", []string{"jp 0x1000"}, ErrAddrRange},
		{"nibble_range", []string{"drw v1 v2 16"}, ErrNibbleRange},
		{"operand_count", []string{"cls v1"}, ErrOperandCount},
		{"equ_syntax", []string{".equ ONLY"}, ErrEquateSyntax},
		{"equ_duplicate", []string{".equ A 1", ".equ A 2"}, ErrEquateDuplicate},
		{"label_duplicate", []string{"here: cls", "here: ret"}, ErrLabelDuplicate},
		{"label_missing", []string{"jp nowhere"}, ErrLabelMissing("nowhere")},
		{"org_backward", []string{"cls", ".org 0x200"}, ErrOrgBackward},
		{"db_empty", []string{".db"}, ErrDataSyntax},
	}

	for _, entry := range table {
		asm := &Assembler{}
		_, err := asm.Parse(strings.NewReader(strings.Join(entry.source, "\n")))
		assert.ErrorIs(err, entry.err, entry.name)

		var serr *ErrSyntax
		assert.ErrorAs(err, &serr, entry.name)
	}
}

func TestAssembler_Reuse(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader("here: jp here"))
	require.NoError(t, err)
	assert.Equal([]byte{0x12, 0x00}, prog.Binary())

	// Labels and equates do not leak between parses.
	_, err = asm.Parse(strings.NewReader("jp here"))
	assert.ErrorIs(err, ErrLabelMissing("here"))

	prog, err = asm.Parse(strings.NewReader("again: jp again"))
	require.NoError(t, err)
	assert.Equal([]byte{0x12, 0x00}, prog.Binary())
}
