package track

// StreamFrames resolves the playback frame count of the audio stream
// starting at linearAddr. EstimateTime calls this only for a PlayStream
// instruction with repeat == 0 (infinite repeat), since that's the only
// case where a stream's own length feeds into the estimate rather than
// being dominated by the channel simply moving on. Satisfied in practice
// by internal/streamdec; kept as a function type here so this package
// never needs to import it.
type StreamFrames func(linearAddr uint32) int

// frame is one level of the loop-nesting stack walked by EstimateTime:
// the current loop body's own (single-iteration) accumulated time, its
// repeat count, and whether it has turned out to run forever.
type frame struct {
	programTime           int
	nLoops                int // repeat count from the LoopBegin operand; 0 means infinite
	looping               bool
	lastLoopingStreamTime int
}

func (f *frame) absorbInfiniteRun() {
	if f.looping {
		return
	}
	f.programTime += f.lastLoopingStreamTime
	f.looping = true
}

// EstimateTime statically estimates a decompiled program's playback time
// in frames, and reports whether it loops forever (spec §4.5). It walks
// prog.Instructions once, maintaining a stack of frame contexts: each
// 0x0E (LoopBegin) pushes a fresh frame, each 0x0F (LoopEnd) pops one and
// folds its contribution into its parent — either nLoops repetitions of
// the body's time, or (for an infinite loop, or a loop whose body turned
// out to loop forever itself) a single representative iteration, with the
// looping flag propagated upward.
//
// A 0x01 (PlayStream) with repeat == 0 doesn't contribute time directly;
// it remembers the stream's own frame count as the current frame's
// lastLoopingStreamTime, in case the frame never finishes (an immediately
// following delay of 0xFFFF, or the enclosing loop itself being infinite)
// and that stream length becomes the frame's standing-in-for-forever time.
func EstimateTime(prog Program, streamFrames StreamFrames) (timeFrames int, looping bool) {
	stack := []frame{{nLoops: 1}}
	top := func() *frame { return &stack[len(stack)-1] }

	addDelay := func(f *frame, delay uint16) {
		if delay == DelayInfinite {
			f.absorbInfiniteRun()
			return
		}
		f.programTime += int(delay)
	}

	for _, ins := range prog.Instructions {
		switch ins.Opcode {
		case OpPlayStream:
			if len(ins.Operands) == 5 && ins.Operands[4] == 0 && streamFrames != nil {
				addr := uint32(ins.Operands[1])<<16 | uint32(ins.Operands[2])<<8 | uint32(ins.Operands[3])
				top().lastLoopingStreamTime = streamFrames(addr)
			}
			addDelay(top(), ins.Delay)

		case OpLoopBegin:
			// The LoopBegin instruction's own delay is a one-time wait
			// before the loop starts, so it belongs to the enclosing
			// frame, not the body being multiplied.
			addDelay(top(), ins.Delay)
			count := 0
			if len(ins.Operands) == 1 {
				count = int(ins.Operands[0])
			}
			stack = append(stack, frame{nLoops: count})

		case OpLoopEnd:
			if ins.MalformedLoopEnd || len(stack) == 1 {
				addDelay(top(), ins.Delay)
				continue
			}
			popped := &stack[len(stack)-1]
			// LoopEnd's delay is paid once per iteration, so it's part
			// of the body being multiplied.
			addDelay(popped, ins.Delay)
			if popped.nLoops == 0 {
				popped.absorbInfiniteRun()
			}

			multiplier := popped.nLoops
			if popped.looping {
				multiplier = 1
			}
			contribution := multiplier * popped.programTime
			loopLooping := popped.looping
			loopStreamTime := popped.lastLoopingStreamTime

			stack = stack[:len(stack)-1]
			top().programTime += contribution
			if loopLooping {
				top().looping = true
				top().lastLoopingStreamTime = loopStreamTime
			}

		default:
			addDelay(top(), ins.Delay)
		}
	}

	final := stack[0]
	return final.programTime, final.looping
}
