package engine

import (
	"github.com/mjr/dcsexplorer-go/internal/track"
)

// maxStepsPerFrame bounds how many zero-delay opcodes runProgram will
// execute within a single Step() call. A count==0 (infinite) LoopBegin
// whose body carries no net delay would otherwise branch forever inside
// one call; real programs never chain anywhere near this many zero-delay
// opcodes back to back (spec §5's bounded-work guarantee).
const maxStepsPerFrame = 10000

// runProgram executes a channel's byte-code program starting at its
// current pointer, one opcode at a time, until either an opcode leaves a
// non-zero delay (the channel then waits that many frames before the
// next opcode) or the program terminates (spec §4.6 step 2).
func (e *Engine) runProgram(chIdx int) error {
	ch := &e.channels[chIdx]

	for steps := 0; ch.programActive; steps++ {
		if steps >= maxStepsPerFrame {
			// A zero-delay infinite loop: treat it like an opcode that
			// waits forever rather than spinning this Step() call.
			ch.waitForever = true
			return nil
		}
		delay, next := ch.programPtr.NextU16()
		opByte, next2 := next.NextU8()
		op := track.Opcode(opByte)

		n, known := track.OperandLen(op, e.os93a())
		if !known {
			return &DecodeFault{Channel: chIdx, Opcode: opByte}
		}
		operands := make([]byte, n)
		cur := next2
		for i := 0; i < n; i++ {
			operands[i], cur = cur.NextU8()
		}
		ch.programPtr = cur

		terminate := e.execOpcode(chIdx, op, operands)

		if delay == track.DelayInfinite {
			ch.waitForever = true
			return nil
		}
		if terminate {
			ch.programActive = false
			return nil
		}
		if delay > 0 {
			ch.countdown = delay
			return nil
		}
		// delay == 0: keep executing within this same frame.
	}
	return nil
}

// os93a reports whether this ROM set uses the OS93a wide write_data_port
// operand; exposed via the catalog so the engine doesn't need its own
// copy of the OS-variant flag.
func (e *Engine) os93a() bool { return e.cat.OS93a() }

// execOpcode applies one already-decoded instruction's effect. Returns
// true if the program should terminate (opcode 0x00).
func (e *Engine) execOpcode(chIdx int, op track.Opcode, operands []byte) bool {
	switch op {
	case track.OpEnd:
		return true

	case track.OpPlayStream:
		ch := operands[0]
		addr := uint32(operands[1])<<16 | uint32(operands[2])<<8 | uint32(operands[3])
		repeat := operands[4]
		if int(ch) < e.numChannels {
			p := e.cat.ROMPointer(addr)
			e.loadStream(int(ch), p, repeat)
		}

	case track.OpStopChannel:
		ch := int(operands[0])
		if ch < e.numChannels {
			e.channels[ch].streamActive = false
			e.decoder.Clear(ch)
		}

	case track.OpQueueTrack:
		trackNo := int(operands[0])<<8 | int(operands[1])
		e.loadTrack(trackNo)

	case track.OpWriteDataPort:
		// operands[0] is the status byte; OS93a's extra U16BE
		// channel-timer counter (operands[1:3]) has no effect this
		// core models (spec §3's opcode table: "accepted").
		if operands[0] != 0 && e.host != nil {
			e.host.ReceiveDataPort(operands[0])
		}

	case track.OpStartDeferred:
		e.startDeferred(int(operands[0]))

	case track.OpSetVariable:
		e.variables[operands[0]] = operands[1]

	case track.OpMixSet:
		e.setMix(int(operands[0]), operands[1])
	case track.OpMixIncrease:
		e.adjustMix(int(operands[0]), int(operands[1]))
	case track.OpMixDecrease:
		e.adjustMix(int(operands[0]), -int(operands[1]))

	case track.OpMixFadeSet:
		e.startFade(int(operands[0]), operands[1], operands[2], operands[3])
	case track.OpMixFadeIncrease:
		e.startFadeRelative(int(operands[0]), int(operands[1]), operands[2], operands[3])
	case track.OpMixFadeDecrease:
		e.startFadeRelative(int(operands[0]), -int(operands[1]), operands[2], operands[3])

	case track.OpNop, track.OpReserved10, track.OpReserved11, track.OpReserved12:
		// Accepted, no visible effect (spec §3).

	case track.OpLoopBegin:
		e.loopBegin(chIdx, operands[0])
	case track.OpLoopEnd:
		e.loopEnd(chIdx)
	}
	return false
}

func (e *Engine) setMix(chIdx int, level byte) {
	if chIdx < 0 || chIdx >= e.numChannels {
		return
	}
	e.channels[chIdx].level = level
	e.channels[chIdx].fadeActive = false
}

func (e *Engine) adjustMix(chIdx int, delta int) {
	if chIdx < 0 || chIdx >= e.numChannels {
		return
	}
	ch := &e.channels[chIdx]
	ch.level = clampLevel(int(ch.level) + delta)
	ch.fadeActive = false
}

func (e *Engine) startFade(chIdx int, target byte, stepsHi, stepsLo byte) {
	if chIdx < 0 || chIdx >= e.numChannels {
		return
	}
	ch := &e.channels[chIdx]
	ch.fadeTarget = target
	ch.fadeStepsLeft = int(stepsHi)<<8 | int(stepsLo)
	ch.fadeActive = ch.fadeStepsLeft > 0
}

func (e *Engine) startFadeRelative(chIdx int, delta int, stepsHi, stepsLo byte) {
	if chIdx < 0 || chIdx >= e.numChannels {
		return
	}
	ch := &e.channels[chIdx]
	e.startFade(chIdx, clampLevel(int(ch.level)+delta), stepsHi, stepsLo)
}

func (e *Engine) loopBegin(chIdx int, countByte byte) {
	ch := &e.channels[chIdx]
	remaining := int(countByte)
	if countByte == 0 {
		remaining = -1
	}
	ch.loopStack = append(ch.loopStack, loopFrame{remaining: remaining, bodyStart: ch.programPtr})
}

// loopEnd decrements the innermost open loop and branches back to its
// body start while iterations remain; an unmatched 0x0F is tolerated as a
// silent no-op (spec §3, §9).
func (e *Engine) loopEnd(chIdx int) {
	ch := &e.channels[chIdx]
	if len(ch.loopStack) == 0 {
		return
	}
	top := &ch.loopStack[len(ch.loopStack)-1]
	if top.remaining < 0 {
		ch.programPtr = top.bodyStart
		return
	}
	top.remaining--
	if top.remaining > 0 {
		ch.programPtr = top.bodyStart
		return
	}
	ch.loopStack = ch.loopStack[:len(ch.loopStack)-1]
}
