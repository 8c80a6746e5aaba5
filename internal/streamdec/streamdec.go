// Package streamdec defines the playback engine's external stream-decoder
// contract (C9: spec §6's "stream decoder contract") and provides a
// silence-generating stub that honors a stream object's declared frame
// count without decoding any audio, used by cmd/dcsplay and as a
// documented extension point for the real (out-of-scope) codec.
package streamdec

import (
	"github.com/mjr/dcsexplorer-go/internal/engine"
	"github.com/mjr/dcsexplorer-go/internal/romset"
)

// FrameHeaderLen is the size of a stream object's header: a single U16BE
// frame count (spec §6's "Stream object header").
const FrameHeaderLen = 2

// FrameCount reads a stream object's declared frame count directly from
// ROM, without touching the bytes that follow (spec §6: "remaining bytes
// are opaque to this core"). Exposed standalone so internal/catalog's
// static time estimator can resolve a repeat-forever PlayStream
// instruction's stream length without depending on a full decoder.
func FrameCount(body romset.Pointer) int {
	return int(body.ReadU16())
}

// Stub is a StreamDecoder that produces silence for exactly as many
// frames as a stream's header declares, then reports done. It never reads
// the compressed payload past the header, so it is valid against any
// well-formed stream object regardless of the real codec's format.
type Stub struct {
	active map[int]*stubStream
}

type stubStream struct {
	framesLeft int
}

// NewStub returns a ready-to-use silence-generating decoder.
func NewStub() *Stub {
	return &Stub{active: make(map[int]*stubStream)}
}

var _ engine.StreamDecoder = (*Stub)(nil)

// Load binds a stream to a channel, reading only its frame-count header.
func (s *Stub) Load(channel int, body romset.Pointer, initialLevel byte) {
	s.active[channel] = &stubStream{framesLeft: FrameCount(body)}
}

// Clear stops a channel's stream.
func (s *Stub) Clear(channel int) {
	delete(s.active, channel)
}

// NextFrame fills out with silence and reports done once the declared
// frame count is exhausted. A channel with no bound stream is treated as
// already done, so a caller that forgets to Load first doesn't spin.
func (s *Stub) NextFrame(channel int, out []int16, level byte) bool {
	for i := range out {
		out[i] = 0
	}
	st, ok := s.active[channel]
	if !ok {
		return true
	}
	if st.framesLeft <= 0 {
		return true
	}
	st.framesLeft--
	return st.framesLeft <= 0
}
