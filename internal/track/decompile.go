package track

import (
	"fmt"

	"github.com/mjr/dcsexplorer-go/internal/romset"
)

// Instruction is one decoded track-program instruction, as produced by
// Decompile.
type Instruction struct {
	ByteOffset       int // offset from program start
	NestingLevel     int
	EnclosingLoop    int // index into Instructions of the enclosing LoopBegin, or -1
	Delay            uint16
	Opcode           Opcode
	Operands         []byte
	MalformedLoopEnd bool // true for an unmatched 0x0F (spec §9)
	UnknownOpcode    bool // true when Opcode isn't in the known set
}

// String renders a short disassembly-style line for diagnostics.
func (ins Instruction) String() string {
	name := opcodeName(ins.Opcode)
	if ins.MalformedLoopEnd {
		name += " (unmatched)"
	}
	if ins.UnknownOpcode {
		name = fmt.Sprintf("??? ($%02X)", byte(ins.Opcode))
	}
	return fmt.Sprintf("+%04X delay=%d %s %X", ins.ByteOffset, ins.Delay, name, ins.Operands)
}

func opcodeName(op Opcode) string {
	switch op {
	case OpEnd:
		return "End"
	case OpPlayStream:
		return "PlayStream"
	case OpStopChannel:
		return "StopChannel"
	case OpQueueTrack:
		return "QueueTrack"
	case OpWriteDataPort:
		return "WriteDataPort"
	case OpStartDeferred:
		return "StartDeferred"
	case OpSetVariable:
		return "SetVariable"
	case OpMixSet:
		return "MixSet"
	case OpMixIncrease:
		return "MixIncrease"
	case OpMixDecrease:
		return "MixDecrease"
	case OpMixFadeSet:
		return "MixFadeSet"
	case OpMixFadeIncrease:
		return "MixFadeIncrease"
	case OpMixFadeDecrease:
		return "MixFadeDecrease"
	case OpNop:
		return "Nop"
	case OpLoopBegin:
		return "LoopBegin"
	case OpLoopEnd:
		return "LoopEnd"
	case OpReserved10, OpReserved11, OpReserved12:
		return "Reserved"
	default:
		return "Unknown"
	}
}

// Program is the decompiled form of a type-1 track body.
type Program struct {
	Instructions []Instruction
	// ProgramBytes holds exactly the bytes consumed through the
	// terminator, for the decompile/recompose round-trip property (spec
	// §8 item 6).
	ProgramBytes []byte
}

// Decompile parses a type-1 track body starting at body into a linear
// instruction list. os93a selects the opcode-0x04 operand-width variant
// (spec §4.5).
func Decompile(body romset.Pointer, os93a bool) Program {
	var prog Program
	var loopStack []int // indices into prog.Instructions of open LoopBegins
	p := body
	offset := 0

	for {
		delay, next := p.NextU16()
		opByte, next2 := next.NextU8()
		op := Opcode(opByte)

		ins := Instruction{
			ByteOffset:    offset,
			NestingLevel:  len(loopStack),
			Delay:         delay,
			Opcode:        op,
			EnclosingLoop: -1,
		}
		if len(loopStack) > 0 {
			ins.EnclosingLoop = loopStack[len(loopStack)-1]
		}

		appendBytes := func(n int) {
			b := make([]byte, n)
			cur := next2
			for i := 0; i < n; i++ {
				b[i], cur = cur.NextU8()
			}
			ins.Operands = b
			next2 = cur
		}

		// An unrecognized opcode leaves the operand width unknowable, so
		// the instruction is recorded with whatever's been read (delay +
		// opcode byte, no operands) and decompilation stops there.
		n, known := OperandLen(op, os93a)
		if !known {
			ins.UnknownOpcode = true
			prog.Instructions = append(prog.Instructions, ins)
			prog.ProgramBytes = appendConsumed(prog.ProgramBytes, body, offset, 3)
			return prog
		}

		switch op {
		case OpLoopBegin:
			appendBytes(n)
			loopStack = append(loopStack, len(prog.Instructions))
		case OpLoopEnd:
			appendBytes(n)
			if len(loopStack) == 0 {
				ins.MalformedLoopEnd = true
			} else {
				loopStack = loopStack[:len(loopStack)-1]
			}
		default:
			appendBytes(n)
		}
		prog.Instructions = append(prog.Instructions, ins)

		consumedLen := 3 + len(ins.Operands)
		prog.ProgramBytes = appendConsumed(prog.ProgramBytes, body, offset, consumedLen)
		offset += consumedLen

		// Both a delay of 0xFFFF (infinite wait) and opcode 0x00 (End)
		// terminate the program; the full instruction — including its
		// operands — is still part of the decompiled output (spec §3).
		if delay == DelayInfinite || op == OpEnd {
			return prog
		}

		p = next2
	}
}

// appendConsumed re-reads n bytes starting at program-relative offset off
// from base and appends them to acc. Re-reading (rather than threading a
// byte slice through) keeps Decompile's control flow simple and mirrors
// how a ROM pointer is the only "cursor" type in this codebase.
func appendConsumed(acc []byte, base romset.Pointer, off int, n int) []byte {
	p := base.Add(uint32(off))
	for i := 0; i < n; i++ {
		b, next := p.NextU8()
		acc = append(acc, b)
		p = next
	}
	return acc
}
