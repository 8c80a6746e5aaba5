// Package engine implements the playback engine (C7): per-channel state,
// mixing and fades, deferred and deferred-indirect dispatch, the variable
// store, data-port command handling, and the per-frame step that drives
// it all from a ROM catalog and an external stream decoder.
package engine

import (
	"github.com/charmbracelet/log"

	"github.com/mjr/dcsexplorer-go/internal/catalog"
	"github.com/mjr/dcsexplorer-go/internal/romset"
)

// FrameSamples is the number of samples in one engine frame (240 samples
// at 31 250 Hz, spec §3/§4.6).
const FrameSamples = 240

// StreamDecoder is the external collaborator that turns a stream's ROM
// bytes into PCM (spec §6's "stream decoder contract"). The engine owns
// channel assignment and mixing; it never interprets compressed audio
// itself.
type StreamDecoder interface {
	Load(channel int, body romset.Pointer, initialLevel byte)
	Clear(channel int)
	// NextFrame fills out (length FrameSamples) at the given mix level
	// and reports whether the stream has finished (so the engine can
	// advance repeat or stop the channel).
	NextFrame(channel int, out []int16, level byte) (done bool)
}

// HostPort is the external collaborator status bytes and query replies
// are sent to (spec §6's "host interface contract").
type HostPort interface {
	ReceiveDataPort(b byte)
}

// Engine holds all playback state for one ROM set's worth of channels.
type Engine struct {
	cat     *catalog.Catalog
	decoder StreamDecoder
	host    HostPort

	numChannels int
	channels    []channel
	variables   [256]byte

	dataPort       []byte
	masterVolume   byte
	defaultVolume  byte
	nominalVersion uint16

	indirect map[int]catalog.IndirectTableInfo
}

// New builds an Engine over cat (already identified and located) with
// numChannels playback channels (spec §3: N ∈ {4,6,8}, from
// ident.Info.NumChannels), nominalVersion for the 55/C2/C3 host version
// query, driving decoder and reporting status to host.
func New(cat *catalog.Catalog, numChannels int, nominalVersion uint16, decoder StreamDecoder, host HostPort) *Engine {
	e := &Engine{
		cat:            cat,
		decoder:        decoder,
		host:           host,
		numChannels:    numChannels,
		nominalVersion: nominalVersion,
	}
	e.channels = make([]channel, numChannels)
	for i := range e.channels {
		e.channels[i] = newChannel()
	}
	e.indirect = cat.HarvestDeferredIndirectTables()
	return e
}

// WriteDataPort enqueues one host command byte (spec §4.6).
func (e *Engine) WriteDataPort(b byte) {
	e.dataPort = append(e.dataPort, b)
}

// ClearDataPort drains the queue without processing it (spec §4.6, called
// on hard-boot).
func (e *Engine) ClearDataPort() {
	e.dataPort = e.dataPort[:0]
}

// SetDefaultVolume records the post-soft-boot master volume (spec §4.6).
func (e *Engine) SetDefaultVolume(v byte) { e.defaultVolume = v }

// SetMasterVolume changes the master volume immediately (spec §4.6).
func (e *Engine) SetMasterVolume(v byte) { e.masterVolume = v }

// Reset clears the variable store and every channel's runtime state and
// applies the default volume, as part of soft_boot() (spec §4.8).
func (e *Engine) Reset() {
	e.variables = [256]byte{}
	for i := range e.channels {
		e.channels[i].reset()
		e.decoder.Clear(i)
	}
	e.masterVolume = e.defaultVolume
}

// Step runs one 240-sample frame: draining the data port, advancing
// channel programs, pulling and mixing stream audio, per spec §4.6's
// per-frame update. out must have length FrameSamples; it is overwritten,
// not accumulated into. Returns a *DecodeFault if a channel's program hit
// an opcode outside the known set.
func (e *Engine) Step(out []int16) error {
	e.commandHandler()

	for i := range e.channels {
		ch := &e.channels[i]
		if ch.waitForever {
			continue
		}
		if ch.countdown > 0 {
			ch.countdown--
			continue
		}
		if ch.programActive {
			if err := e.runProgram(i); err != nil {
				return err
			}
		}
	}

	for i := range out {
		out[i] = 0
	}
	var mixBuf [FrameSamples]int16
	for i := range e.channels {
		ch := &e.channels[i]
		if !ch.streamActive {
			continue
		}
		done := e.decoder.NextFrame(i, mixBuf[:], ch.level)
		for s := 0; s < FrameSamples && s < len(out); s++ {
			sum := int32(out[s]) + int32(mixBuf[s])
			out[s] = clampSample(sum)
		}
		e.stepFade(ch)
		if done {
			e.advanceRepeat(i)
		}
	}

	return nil
}

func clampSample(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func (e *Engine) stepFade(ch *channel) {
	if !ch.fadeActive {
		return
	}
	if ch.fadeStepsLeft <= 0 {
		ch.fadeActive = false
		return
	}
	ch.fadeStepsLeft--
	switch {
	case ch.level < ch.fadeTarget:
		ch.level++
	case ch.level > ch.fadeTarget:
		ch.level--
	}
	if ch.level == ch.fadeTarget {
		ch.fadeActive = false
	}
}

// advanceRepeat handles a stream reaching its end: repeat<0 means
// infinite (the decoder just keeps being asked for more and loops
// internally); otherwise decrement and stop the channel once exhausted.
func (e *Engine) advanceRepeat(chIdx int) {
	ch := &e.channels[chIdx]
	if ch.repeat < 0 {
		return
	}
	ch.repeat--
	if ch.repeat <= 0 {
		ch.streamActive = false
		e.decoder.Clear(chIdx)
	}
}

func (e *Engine) loadStream(chIdx int, addr romset.Pointer, repeatByte byte) {
	ch := &e.channels[chIdx]
	ch.streamActive = true
	ch.streamAddr = addr
	if repeatByte == 0 {
		ch.repeat = -1
	} else {
		ch.repeat = int(repeatByte)
	}
	e.decoder.Load(chIdx, addr, ch.level)
}

// loadTrack resolves trackNo via the catalog and applies it per spec
// §4.6's QueueTrack semantics: a type-1 track starts immediately on its
// own embedded channel (not necessarily the caller's channel); type 2/3
// install a deferred dispatch on that track's channel.
func (e *Engine) loadTrack(trackNo int) {
	info, err := e.cat.TrackInfo(trackNo)
	if err != nil || info.Type == catalog.TrackAbsent {
		log.Debug("engine: loadTrack on absent/invalid track", "track", trackNo)
		return
	}
	if info.Channel < 0 || info.Channel >= e.numChannels {
		return
	}
	ch := &e.channels[info.Channel]

	switch info.Type {
	case catalog.TrackProgram:
		ch.programActive = true
		ch.programPtr = info.Body
		ch.countdown = 0
		ch.waitForever = false
		ch.loopStack = ch.loopStack[:0]
	case catalog.TrackDefer:
		ch.deferredKind = catalog.TrackDefer
		ch.deferredKey = info.DeferTrack
	case catalog.TrackDeferIndirect:
		ch.deferredKind = catalog.TrackDeferIndirect
		ch.deferredKey = info.DeferIndirectKey
	}
}

// startDeferred resolves and activates the deferred track previously
// installed on chIdx by loadTrack (spec §4.6 opcode 0x05).
func (e *Engine) startDeferred(chIdx int) {
	if chIdx < 0 || chIdx >= e.numChannels {
		return
	}
	ch := &e.channels[chIdx]
	switch ch.deferredKind {
	case catalog.TrackDefer:
		e.loadTrack(int(ch.deferredKey))
	case catalog.TrackDeferIndirect:
		tableIndex := int(ch.deferredKey >> 8)
		varIndex := int(ch.deferredKey & 0xFF)
		info, ok := e.indirect[tableIndex]
		value := int(e.variables[varIndex])
		if !ok || value >= info.Length {
			// Undefined table or out-of-range variable: clear the
			// channel, treating it as an absent track (spec §4.6).
			ch.streamActive = false
			ch.programActive = false
			e.decoder.Clear(chIdx)
			return
		}
		e.loadTrack(int(info.Entries[value]))
	}
}
