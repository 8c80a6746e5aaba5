package engine

import (
	"github.com/mjr/dcsexplorer-go/internal/catalog"
	"github.com/mjr/dcsexplorer-go/internal/romset"
)

// defaultMixLevel is a channel's mixing level after soft-boot (spec §3).
const defaultMixLevel = 0x64

// loopFrame is one entry of a channel's runtime loop stack (spec §3's
// "loop stack, at least 4 deep").
type loopFrame struct {
	remaining int // iterations left; -1 means infinite (count==0 at LoopBegin)
	bodyStart romset.Pointer
}

// channel is the per-channel playback state (spec §4.6 "Active state").
type channel struct {
	// Stream playback.
	streamActive bool
	streamAddr   romset.Pointer
	repeat       int // remaining iterations; -1 means infinite

	// Mixing.
	level         byte
	fadeTarget    byte
	fadeStepsLeft int
	fadeActive    bool

	// Program execution.
	programActive bool
	programPtr    romset.Pointer
	countdown     uint16
	waitForever   bool
	loopStack     []loopFrame

	// Deferred dispatch (spec §3, §4.6 opcode 0x05).
	deferredKind catalog.TrackType // TrackAbsent, TrackDefer, or TrackDeferIndirect
	deferredKey  uint16            // DeferTrack or DeferIndirectKey, per deferredKind
}

func newChannel() channel {
	return channel{level: defaultMixLevel}
}

// reset clears a channel back to its post-soft-boot state.
func (c *channel) reset() {
	*c = newChannel()
}

// clampLevel keeps a mixing level within 0..255 (spec §3 invariant); the
// type is already a byte so this only matters for the math that produces
// one, which callers do in int before converting back.
func clampLevel(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
