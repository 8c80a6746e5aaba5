package engine

// commandHandler consumes complete commands from the data-port queue,
// per spec §6's host command grammar:
//
//	AA BB            (AA <= 0x54): load and play track (AA<<8)|BB.
//	55 AA vol ~vol                : set master volume.
//	55 Ax level ~level (x: channel): set channel mixing level.
//	55 Bx byte ~byte   (x: channel): set the channel's reserved byte (stored only).
//	55 C2                          : reply with the nominal version's major byte.
//	55 C3                          : reply with the nominal version's minor byte.
//
// A lead byte above 0x55 is dropped on its own; a 0x55 followed by an
// unrecognized second byte is dropped as the two-byte pair (spec §7:
// "silently ignored after their envelope length is consumed"). Invoked
// once per frame, at the start of Step, so bytes queued between frames are
// handled at the next frame boundary rather than on every sample pull.
func (e *Engine) commandHandler() {
	for len(e.dataPort) > 0 {
		if !e.tryConsumeCommand() {
			return // incomplete envelope; wait for more bytes
		}
	}
}

// tryConsumeCommand attempts to consume exactly one command from the
// front of the queue. Returns false (consuming nothing) if the queue
// doesn't yet hold a full envelope for the command it starts.
func (e *Engine) tryConsumeCommand() bool {
	b0 := e.dataPort[0]

	if b0 <= 0x54 {
		if len(e.dataPort) < 2 {
			return false
		}
		trackNo := int(b0)<<8 | int(e.dataPort[1])
		e.consume(2)
		e.loadTrack(trackNo)
		return true
	}

	if b0 != 0x55 {
		e.consume(1)
		return true
	}

	if len(e.dataPort) < 2 {
		return false
	}
	b1 := e.dataPort[1]

	switch {
	case b1 == 0xAA:
		if len(e.dataPort) < 4 {
			return false
		}
		vol, notVol := e.dataPort[2], e.dataPort[3]
		e.consume(4)
		if notVol == ^vol {
			e.SetMasterVolume(vol)
		}

	case b1&0xF0 == 0xA0:
		if len(e.dataPort) < 4 {
			return false
		}
		level, notLevel := e.dataPort[2], e.dataPort[3]
		ch := int(b1 & 0x0F)
		e.consume(4)
		if notLevel == ^level {
			e.setMix(ch, level)
		}

	case b1&0xF0 == 0xB0:
		if len(e.dataPort) < 4 {
			return false
		}
		// Reserved per-channel byte: stored, no observable effect
		// (spec §6). Nothing to wire it to, so just consume it.
		e.consume(4)

	case b1 == 0xC2:
		e.consume(2)
		if e.host != nil {
			e.host.ReceiveDataPort(byte(e.nominalVersion >> 8))
		}

	case b1 == 0xC3:
		e.consume(2)
		if e.host != nil {
			e.host.ReceiveDataPort(byte(e.nominalVersion))
		}

	default:
		e.consume(2)
	}
	return true
}

func (e *Engine) consume(n int) {
	e.dataPort = e.dataPort[n:]
}
