// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

// Assembler is a single pass assembler for the CHIP-8 instruction set.
// Labels are linked after the parse completes.
type Assembler struct {
	Verbose bool   // If set, verbosely logs the assembler actions.
	Lines   []Line // List of generated lines.

	predefine map[string]string // Predefines
	Label     map[string]int    // Map of jump labels to RAM addresses.
	Equate    map[string]string // Map of equates.

	addr int // Next emission address.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple numeric word.
func (asm *Assembler) valueOf(word string) (value uint16, err error) {
	v64, err := strconv.ParseInt(word, 0, 32)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 < 0 || v64 > 0xffff {
		err = ErrParseNumber(word)
		return
	}

	value = uint16(v64)

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint16, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value16 uint16
		value16, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(int(value16))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint16(st_int64)
	return
}

// parseLine parses a single source line into words, handling equates
// and label definitions.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do $() evaluations
	re := regexp.MustCompile(`\$\([^\$]*\)`)
	line = re.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	// Operand commas are decorative.
	line = strings.ReplaceAll(line, ",", " ")

	words = slices.DeleteFunc(strings.Split(line, " "), func(a string) bool { return len(a) == 0 })

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.addr
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	return
}

// emit records an assembled line and advances the emission address.
func (asm *Assembler) emit(lineno int, words []string, data []byte, link string) {
	asm.Lines = append(asm.Lines, Line{
		LineNo:    lineno,
		Addr:      asm.addr,
		Words:     slices.Clone(words),
		Data:      data,
		LinkLabel: link,
	})
	asm.addr += len(data)
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	// no-op
	if len(words) == 0 {
		return
	}

	switch words[0] {
	case ".org":
		if len(words) != 2 {
			err = ErrOrgSyntax
			return
		}
		var addr uint16
		addr, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		if int(addr) < asm.addr {
			err = ErrOrgBackward
			return
		}
		asm.addr = int(addr)
		return
	case ".db":
		if len(words) < 2 {
			err = ErrDataSyntax
			return
		}
		var data []byte
		for _, word := range words[1:] {
			var value uint16
			value, err = asm.valueOf(word)
			if err != nil {
				return
			}
			if value > 0xff {
				err = ErrByteRange
				return
			}
			data = append(data, byte(value))
		}
		asm.emit(lineno, words, data, "")
		return
	}

	word, link, err := asm.encode(words)
	if err != nil {
		return
	}

	asm.emit(lineno, words, []byte{byte(word >> 8), byte(word)}, link)

	return
}

// Parse parses an input stream into a Program containing assembled lines.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Lines = asm.Lines[:0]
	asm.addr = START_ADDR
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])

		var words []string
		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	// Final linking of jump labels.
	for n := range asm.Lines {
		ln := &asm.Lines[n]

		if len(ln.LinkLabel) == 0 {
			continue
		}
		addr, ok := asm.Label[ln.LinkLabel]
		if !ok {
			err = ErrLabelMissing(ln.LinkLabel)
			lineno = ln.LineNo
			line = strings.Join(ln.Words, " ")
			return
		}
		if addr > 0xfff {
			err = ErrAddrRange
			lineno = ln.LineNo
			line = strings.Join(ln.Words, " ")
			return
		}
		ln.Data[0] |= byte(addr>>8) & 0xf
		ln.Data[1] = byte(addr)
	}

	prog = &Program{
		Lines: slices.Clone(asm.Lines),
	}

	return
}

// operandKind classifies a parsed instruction operand.
type operandKind int

const (
	OPERAND_REG   = operandKind(iota) // vx register
	OPERAND_VALUE                     // numeric value
	OPERAND_LABEL                     // unresolved label
	OPERAND_I                         // index register
	OPERAND_I_REF                     // [i] memory reference
	OPERAND_DT                        // delay timer
	OPERAND_ST                        // sound timer
	OPERAND_KEY                       // key wait
	OPERAND_FONT                      // font glyph address
	OPERAND_BCD                       // bcd conversion
)

type operand struct {
	kind  operandKind
	reg   int
	value uint16
	label string
}

// aluCodes maps the two-register ALU mnemonics to the 8XY_ low nibble.
var aluCodes = map[string]uint16{
	"or": 0x1, "and": 0x2, "xor": 0x3, "sub": 0x5, "subn": 0x7,
}

// labelRe matches a plausible jump label reference.
var labelRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// classify determines the kind of a single operand word.
func (asm *Assembler) classify(word string) (op operand, err error) {
	lower := strings.ToLower(word)

	switch lower {
	case "i":
		op.kind = OPERAND_I
		return
	case "[i]":
		op.kind = OPERAND_I_REF
		return
	case "dt":
		op.kind = OPERAND_DT
		return
	case "st":
		op.kind = OPERAND_ST
		return
	case "k":
		op.kind = OPERAND_KEY
		return
	case "f":
		op.kind = OPERAND_FONT
		return
	case "b":
		op.kind = OPERAND_BCD
		return
	}

	if len(lower) == 2 && lower[0] == 'v' {
		reg := strings.IndexByte("0123456789abcdef", lower[1])
		if reg >= 0 {
			op.kind = OPERAND_REG
			op.reg = reg
			return
		}
	}

	value, verr := asm.valueOf(word)
	if verr == nil {
		op.kind = OPERAND_VALUE
		op.value = value
		return
	}

	if labelRe.MatchString(word) {
		op.kind = OPERAND_LABEL
		op.label = word
		return
	}

	err = ErrOperandInvalid
	return
}

// classifyAll classifies every operand word after the mnemonic.
func (asm *Assembler) classifyAll(words []string) (ops []operand, err error) {
	for _, word := range words {
		var op operand
		op, err = asm.classify(word)
		if err != nil {
			return
		}
		ops = append(ops, op)
	}
	return
}

// addrOf encodes an address operand, deferring labels to link time.
func addrOf(op operand) (addr uint16, link string, err error) {
	switch op.kind {
	case OPERAND_VALUE:
		if op.value > 0xfff {
			err = ErrAddrRange
			return
		}
		addr = op.value
	case OPERAND_LABEL:
		link = op.label
	default:
		err = ErrOperandInvalid
	}
	return
}

// byteOf encodes a byte immediate operand.
func byteOf(op operand) (value uint8, err error) {
	if op.kind != OPERAND_VALUE {
		err = ErrOperandInvalid
		return
	}
	if op.value > 0xff {
		err = ErrByteRange
		return
	}
	value = uint8(op.value)
	return
}

// encode translates one mnemonic with operands into an instruction word.
func (asm *Assembler) encode(words []string) (word uint16, link string, err error) {
	mnemonic := strings.ToLower(words[0])
	ops, err := asm.classifyAll(words[1:])
	if err != nil {
		return
	}

	// match reports whether the operand kinds match the pattern.
	match := func(kinds ...operandKind) bool {
		if len(ops) != len(kinds) {
			return false
		}
		for n, kind := range kinds {
			if ops[n].kind != kind {
				return false
			}
		}
		return true
	}

	x := func(n int) uint16 { return uint16(ops[n].reg) << 8 }
	y := func(n int) uint16 { return uint16(ops[n].reg) << 4 }

	switch mnemonic {
	case "cls":
		if len(ops) != 0 {
			err = ErrOperandCount
			return
		}
		word = 0x00E0
	case "ret":
		if len(ops) != 0 {
			err = ErrOperandCount
			return
		}
		word = 0x00EE
	case "jp":
		switch {
		case len(ops) == 1:
			var addr uint16
			addr, link, err = addrOf(ops[0])
			word = 0x1000 | addr
		case len(ops) == 2 && ops[0].kind == OPERAND_REG && ops[0].reg == 0:
			var addr uint16
			addr, link, err = addrOf(ops[1])
			word = 0xB000 | addr
		default:
			err = ErrOperandInvalid
		}
	case "call":
		if len(ops) != 1 {
			err = ErrOperandCount
			return
		}
		var addr uint16
		addr, link, err = addrOf(ops[0])
		word = 0x2000 | addr
	case "se":
		switch {
		case match(OPERAND_REG, OPERAND_VALUE):
			var nn uint8
			nn, err = byteOf(ops[1])
			word = 0x3000 | x(0) | uint16(nn)
		case match(OPERAND_REG, OPERAND_REG):
			word = 0x5000 | x(0) | y(1)
		default:
			err = ErrOperandInvalid
		}
	case "sne":
		switch {
		case match(OPERAND_REG, OPERAND_VALUE):
			var nn uint8
			nn, err = byteOf(ops[1])
			word = 0x4000 | x(0) | uint16(nn)
		case match(OPERAND_REG, OPERAND_REG):
			word = 0x9000 | x(0) | y(1)
		default:
			err = ErrOperandInvalid
		}
	case "ld":
		switch {
		case match(OPERAND_REG, OPERAND_VALUE):
			var nn uint8
			nn, err = byteOf(ops[1])
			word = 0x6000 | x(0) | uint16(nn)
		case match(OPERAND_REG, OPERAND_REG):
			word = 0x8000 | x(0) | y(1)
		case len(ops) == 2 && ops[0].kind == OPERAND_I:
			var addr uint16
			addr, link, err = addrOf(ops[1])
			word = 0xA000 | addr
		case match(OPERAND_REG, OPERAND_DT):
			word = 0xF007 | x(0)
		case match(OPERAND_DT, OPERAND_REG):
			word = 0xF015 | x(1)
		case match(OPERAND_ST, OPERAND_REG):
			word = 0xF018 | x(1)
		case match(OPERAND_REG, OPERAND_KEY):
			word = 0xF00A | x(0)
		case match(OPERAND_FONT, OPERAND_REG):
			word = 0xF029 | x(1)
		case match(OPERAND_BCD, OPERAND_REG):
			word = 0xF033 | x(1)
		case match(OPERAND_I_REF, OPERAND_REG):
			word = 0xF055 | x(1)
		case match(OPERAND_REG, OPERAND_I_REF):
			word = 0xF065 | x(0)
		default:
			err = ErrOperandInvalid
		}
	case "add":
		switch {
		case match(OPERAND_REG, OPERAND_VALUE):
			var nn uint8
			nn, err = byteOf(ops[1])
			word = 0x7000 | x(0) | uint16(nn)
		case match(OPERAND_REG, OPERAND_REG):
			word = 0x8004 | x(0) | y(1)
		case match(OPERAND_I, OPERAND_REG):
			word = 0xF01E | x(1)
		default:
			err = ErrOperandInvalid
		}
	case "or", "and", "xor", "sub", "subn":
		if !match(OPERAND_REG, OPERAND_REG) {
			err = ErrOperandInvalid
			return
		}
		word = 0x8000 | x(0) | y(1) | aluCodes[mnemonic]
	case "shr", "shl":
		low := uint16(0x6)
		if mnemonic == "shl" {
			low = 0xE
		}
		switch {
		case match(OPERAND_REG):
			word = 0x8000 | x(0) | low
		case match(OPERAND_REG, OPERAND_REG):
			word = 0x8000 | x(0) | y(1) | low
		default:
			err = ErrOperandInvalid
		}
	case "rnd":
		if !match(OPERAND_REG, OPERAND_VALUE) {
			err = ErrOperandInvalid
			return
		}
		var nn uint8
		nn, err = byteOf(ops[1])
		word = 0xC000 | x(0) | uint16(nn)
	case "drw":
		if !match(OPERAND_REG, OPERAND_REG, OPERAND_VALUE) {
			err = ErrOperandInvalid
			return
		}
		if ops[2].value > 0xf {
			err = ErrNibbleRange
			return
		}
		word = 0xD000 | x(0) | y(1) | ops[2].value
	case "skp":
		if !match(OPERAND_REG) {
			err = ErrOperandInvalid
			return
		}
		word = 0xE09E | x(0)
	case "sknp":
		if !match(OPERAND_REG) {
			err = ErrOperandInvalid
			return
		}
		word = 0xE0A1 | x(0)
	case "dw":
		if !match(OPERAND_VALUE) {
			err = ErrOperandInvalid
			return
		}
		word = ops[0].value
	default:
		err = ErrOpcodeInvalid
	}

	return
}
