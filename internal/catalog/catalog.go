// Package catalog reads the ROM-resident catalog, track index, and
// deferred-indirect index located via internal/ident, and resolves
// individual track index entries.
package catalog

import (
	"errors"

	"github.com/mjr/dcsexplorer-go/internal/romset"
	"github.com/mjr/dcsexplorer-go/internal/track"
)

// Offsets of fields within the catalog, relative to its base offset.
const (
	trackIndexPtrOffset    = 0x40
	indirectIndexPtrOffset = 0x43
	nTracksOffset          = 0x46
)

// TrackType identifies what kind of track body a catalog entry points to.
type TrackType int

const (
	// TrackAbsent means the index entry's high byte was 0xFF.
	TrackAbsent TrackType = iota
	// TrackProgram is type 1: a byte-code program on a channel.
	TrackProgram
	// TrackDefer is type 2: a direct defer-code (another track number).
	TrackDefer
	// TrackDeferIndirect is type 3: a variable-indexed deferred lookup.
	TrackDeferIndirect
)

// ErrInvalidTrack is returned for an out-of-range track number.
var ErrInvalidTrack = errors.New("catalog: track number out of range")

// maxChannel is the highest valid channel index a track index entry may
// name (spec §4.4: channel ∈ 0..7).
const maxChannel = 7

// Catalog exposes the located catalog, track index and deferred-indirect
// index for one ROM set, using the hardware variant already determined by
// internal/ident to decode linear ROM addresses.
type Catalog struct {
	set          *romset.ROMSet
	variant      romset.HWVariant
	os93a        bool
	offset       uint32
	nTracks      int
	streamFrames track.StreamFrames
}

// SetStreamFrames installs the stream-length resolver TrackInfo passes to
// track.EstimateTime for a repeat-forever PlayStream instruction (spec
// §4.5). Without it, such a track's estimated time omits the looping
// stream's own contribution; wired by cmd/dcsplay using
// internal/streamdec's frame header.
func (c *Catalog) SetStreamFrames(f track.StreamFrames) { c.streamFrames = f }

// New builds a Catalog view given the catalog offset (from
// ident.Info.CatalogOffset), the hardware variant (from
// ident.Info.HW.ROMVariant()), and whether the identified OS release uses
// the OS93a wide write_data_port operand (ident.Info.OS.UsesWideWriteDataPort()).
func New(set *romset.ROMSet, variant romset.HWVariant, os93a bool, catalogOffset uint32) *Catalog {
	nTracks := int(set.NewPointer(2, catalogOffset+nTracksOffset).ReadU16())
	return &Catalog{set: set, variant: variant, os93a: os93a, offset: catalogOffset, nTracks: nTracks}
}

// Offset returns the catalog's base offset within U2.
func (c *Catalog) Offset() uint32 { return c.offset }

// OS93a reports whether this ROM set uses the OS93a wide write_data_port
// operand (spec §4.5), as supplied to New.
func (c *Catalog) OS93a() bool { return c.os93a }

// ROMPointer decodes a linear ROM address using this catalog's hardware
// variant, for callers (internal/engine) that only ever see linear
// addresses embedded in track-program operands.
func (c *Catalog) ROMPointer(linearAddr uint32) romset.Pointer {
	return c.set.MakeROMPointer(c.variant, linearAddr)
}

// NumTracks returns the catalog's track count.
func (c *Catalog) NumTracks() int { return c.nTracks }

func (c *Catalog) trackIndexPointer() romset.Pointer {
	addr := c.set.NewPointer(2, c.offset+trackIndexPtrOffset).ReadU24()
	return c.set.MakeROMPointer(c.variant, addr)
}

func (c *Catalog) indirectIndexPointer() romset.Pointer {
	addr := c.set.NewPointer(2, c.offset+indirectIndexPtrOffset).ReadU24()
	return c.set.MakeROMPointer(c.variant, addr)
}

// TrackInfo is the decoded form of one track-index entry.
type TrackInfo struct {
	Number  int
	Type    TrackType
	Channel int // valid for Program, Defer, DeferIndirect

	// Program: body start pointer.
	Body romset.Pointer

	// Defer: track number to load when triggered.
	DeferTrack uint16

	// DeferIndirect: packed (tableIndex<<8)|varIndex, per spec §4.4.
	DeferIndirectKey uint16

	// Program only: static playback-time estimate and looping flag.
	TimeFrames int
	Looping    bool
}

// TrackInfo resolves one entry of the track index. Returns ErrInvalidTrack
// if trackNumber is out of bounds; returns a TrackInfo with Type ==
// TrackAbsent (no error) if the index entry's high byte is 0xFF.
func (c *Catalog) TrackInfo(trackNumber int) (TrackInfo, error) {
	if trackNumber < 0 || trackNumber >= c.nTracks {
		return TrackInfo{}, ErrInvalidTrack
	}

	entryPtr := c.trackIndexPointer().Add(uint32(trackNumber) * 3)
	linearAddr := entryPtr.ReadU24()
	if linearAddr>>16 == 0xFF {
		return TrackInfo{Number: trackNumber, Type: TrackAbsent}, nil
	}

	body := c.set.MakeROMPointer(c.variant, linearAddr)
	typeByte, body := body.NextU8()
	channel, body := body.NextU8()
	if channel > maxChannel {
		// Out of the 0..7 range spec §4.4 allows: treat like an absent
		// track rather than letting a corrupt index entry propagate a
		// bogus channel number into the engine.
		return TrackInfo{Number: trackNumber, Type: TrackAbsent}, nil
	}

	info := TrackInfo{Number: trackNumber, Channel: int(channel)}

	switch typeByte {
	case 1:
		info.Type = TrackProgram
		info.Body = body
		prog := track.Decompile(body, c.os93a)
		info.TimeFrames, info.Looping = track.EstimateTime(prog, c.streamFrames)
	case 2:
		info.Type = TrackDefer
		info.DeferTrack, _ = body.NextU16()
	case 3:
		info.Type = TrackDeferIndirect
		varIndex, rest := body.NextU8()
		tableIndex, _ := rest.NextU8()
		info.DeferIndirectKey = uint16(tableIndex)<<8 | uint16(varIndex)
	default:
		// Not one of {1,2,3}: spec §4.4/§7 treats this as absent rather
		// than as a hard error.
		return TrackInfo{Number: trackNumber, Type: TrackAbsent}, nil
	}

	return info, nil
}

// IndirectTable reads one deferred-indirect table: length entries of
// U16BE track numbers, starting at the table pointed to by the
// deferred-indirect index's tableIndex-th 3-byte entry.
func (c *Catalog) IndirectTable(tableIndex int, length int) []uint16 {
	entryPtr := c.indirectIndexPointer().Add(uint32(tableIndex) * 3)
	linearAddr := entryPtr.ReadU24()
	p := c.set.MakeROMPointer(c.variant, linearAddr)

	out := make([]uint16, length)
	for i := range out {
		v, next := p.NextU16()
		out[i] = v
		p = next
	}
	return out
}
