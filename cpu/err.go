package cpu

import (
	"errors"

	"github.com/ezrec/uchip8/translate"
)

var f = translate.From

var (
	// Execution errors. Any of these halts the machine.
	ErrMemoryBounds    = errors.New(f("memory out of bounds"))
	ErrStackOverflow   = errors.New(f("stack overflow"))
	ErrStackUnderflow  = errors.New(f("stack underflow"))
	ErrProgramTooLarge = errors.New(f("program too large"))
	ErrProgramEmpty    = errors.New(f("program size zero"))
	ErrUnknownOpcode   = errors.New(f("unknown opcode"))
	ErrHalted          = errors.New(f("halted on error"))

	// Accessor errors. Pure validation failures, never halt the machine.
	ErrIndexRange = errors.New(f("index out of range"))

	// Assembler errors
	ErrEquateSyntax    = errors.New(f(".equ syntax"))
	ErrEquateDuplicate = errors.New(f(".equ duplicated"))
	ErrOrgSyntax       = errors.New(f(".org syntax"))
	ErrOrgBackward     = errors.New(f(".org behind emitted code"))
	ErrDataSyntax      = errors.New(f(".db syntax"))
	ErrLabelDuplicate  = errors.New(f("label duplicated"))
	ErrOpcodeMissing   = errors.New(f("opcode missing"))
	ErrOpcodeInvalid   = errors.New(f("opcode invalid"))
	ErrOperandInvalid  = errors.New(f("operand invalid"))
	ErrOperandCount    = errors.New(f("operand count"))
	ErrAddrRange       = errors.New(f("address exceeds 12 bits"))
	ErrByteRange       = errors.New(f("value exceeds 8 bits"))
	ErrNibbleRange     = errors.New(f("value exceeds 4 bits"))
)

// ErrOpcode carries the instruction word of a failed decode or execute.
type ErrOpcode Opcode

func (eo ErrOpcode) Error() string {
	return f("bad opcode 0x%04x", uint16(eo))
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
