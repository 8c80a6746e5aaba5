package catalog

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjr/dcsexplorer-go/internal/romset"
)

// buildU2 lays out a minimal catalog header at catalogOffset: nTracks, and
// the track-index and deferred-indirect-index pointer fields set to
// trackIndexAddr and indirectIndexAddr. The index entries themselves are
// left as $FF filler for each test to fill in.
func buildU2(size int, catalogOffset, trackIndexAddr, indirectIndexAddr uint32, nTracks int) []byte {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0xFF
	}
	binary.BigEndian.PutUint16(buf[catalogOffset+0x46:], uint16(nTracks))

	put24 := func(off uint32, v uint32) {
		buf[off] = byte(v >> 16)
		buf[off+1] = byte(v >> 8)
		buf[off+2] = byte(v)
	}
	put24(catalogOffset+0x40, trackIndexAddr)
	put24(catalogOffset+0x43, indirectIndexAddr)
	return buf
}

func putTrackEntry(buf []byte, trackIndexAddr uint32, trackNumber int, linearAddr uint32) {
	off := trackIndexAddr + uint32(trackNumber)*3
	buf[off] = byte(linearAddr >> 16)
	buf[off+1] = byte(linearAddr >> 8)
	buf[off+2] = byte(linearAddr)
}

func TestTrackInfoAbsent(t *testing.T) {
	size := 0x8000
	catalogOffset := uint32(0x4000)
	trackIndexAddr := uint32(0x100) // pre-95 linear: chip=0(U2), offset=0x100
	data := buildU2(size, catalogOffset, trackIndexAddr, 0x200, 2)
	putTrackEntry(data, 0x100, 0, 0xFF0000) // absent marker

	set := romset.New()
	set.AddROM(2, data)
	c := New(set, romset.HWVariantPre95, false, catalogOffset)

	info, err := c.TrackInfo(0)
	require.NoError(t, err)
	assert.Equal(t, TrackAbsent, info.Type)
}

func TestTrackInfoOutOfRange(t *testing.T) {
	size := 0x8000
	catalogOffset := uint32(0x4000)
	data := buildU2(size, catalogOffset, 0x100, 0x200, 1)
	set := romset.New()
	set.AddROM(2, data)
	c := New(set, romset.HWVariantPre95, false, catalogOffset)

	_, err := c.TrackInfo(5)
	assert.ErrorIs(t, err, ErrInvalidTrack)
}

func TestTrackInfoDeferDirect(t *testing.T) {
	size := 0x8000
	catalogOffset := uint32(0x4000)
	trackIndexAddr := uint32(0x100)
	bodyLinear := uint32(0x500)
	data := buildU2(size, catalogOffset, trackIndexAddr, 0x200, 1)
	putTrackEntry(data, trackIndexAddr, 0, bodyLinear)
	data[0x500] = 2    // type 2: defer
	data[0x501] = 0x03 // channel
	binary.BigEndian.PutUint16(data[0x502:], 0x0042)

	set := romset.New()
	set.AddROM(2, data)
	c := New(set, romset.HWVariantPre95, false, catalogOffset)

	info, err := c.TrackInfo(0)
	require.NoError(t, err)
	assert.Equal(t, TrackDefer, info.Type)
	assert.Equal(t, 3, info.Channel)
	assert.Equal(t, uint16(0x0042), info.DeferTrack)
}

func TestTrackInfoDeferIndirect(t *testing.T) {
	size := 0x8000
	catalogOffset := uint32(0x4000)
	trackIndexAddr := uint32(0x100)
	bodyLinear := uint32(0x500)
	data := buildU2(size, catalogOffset, trackIndexAddr, 0x200, 1)
	putTrackEntry(data, trackIndexAddr, 0, bodyLinear)
	data[0x500] = 3    // type 3: defer-indirect
	data[0x501] = 0x01 // channel
	data[0x502] = 0x07 // variable index
	data[0x503] = 0x01 // table index

	set := romset.New()
	set.AddROM(2, data)
	c := New(set, romset.HWVariantPre95, false, catalogOffset)

	info, err := c.TrackInfo(0)
	require.NoError(t, err)
	assert.Equal(t, TrackDeferIndirect, info.Type)
	assert.Equal(t, uint16(0x0107), info.DeferIndirectKey)
}

func TestTrackInfoProgramDecompilesBody(t *testing.T) {
	size := 0x8000
	catalogOffset := uint32(0x4000)
	trackIndexAddr := uint32(0x100)
	bodyLinear := uint32(0x500)
	data := buildU2(size, catalogOffset, trackIndexAddr, 0x200, 1)
	putTrackEntry(data, trackIndexAddr, 0, bodyLinear)
	data[0x500] = 1    // type 1: program
	data[0x501] = 0x02 // channel

	prog := []byte{
		0x00, 0x00, 0x00, // delay=0, End
	}
	copy(data[0x502:], prog)

	set := romset.New()
	set.AddROM(2, data)
	c := New(set, romset.HWVariantPre95, false, catalogOffset)

	info, err := c.TrackInfo(0)
	require.NoError(t, err)
	assert.Equal(t, TrackProgram, info.Type)
	assert.Equal(t, 2, info.Channel)
	assert.Equal(t, 0, info.TimeFrames)
	assert.False(t, info.Looping)
}

func TestTrackInfoChannelOutOfRangeIsAbsent(t *testing.T) {
	size := 0x8000
	catalogOffset := uint32(0x4000)
	trackIndexAddr := uint32(0x100)
	bodyLinear := uint32(0x500)
	data := buildU2(size, catalogOffset, trackIndexAddr, 0x200, 1)
	putTrackEntry(data, trackIndexAddr, 0, bodyLinear)
	data[0x500] = 1    // type 1: program
	data[0x501] = 0x08 // channel 8: out of the 0..7 range

	set := romset.New()
	set.AddROM(2, data)
	c := New(set, romset.HWVariantPre95, false, catalogOffset)

	info, err := c.TrackInfo(0)
	require.NoError(t, err)
	assert.Equal(t, TrackAbsent, info.Type)
}

func TestIndirectTable(t *testing.T) {
	size := 0x8000
	catalogOffset := uint32(0x4000)
	indirectIndexAddr := uint32(0x200)
	tableAddr := uint32(0x600)
	data := buildU2(size, catalogOffset, 0x100, indirectIndexAddr, 0)

	off := indirectIndexAddr + 1*3 // table index 1
	data[off] = byte(tableAddr >> 16)
	data[off+1] = byte(tableAddr >> 8)
	data[off+2] = byte(tableAddr)

	binary.BigEndian.PutUint16(data[tableAddr:], 0x0101)
	binary.BigEndian.PutUint16(data[tableAddr+2:], 0x0102)
	binary.BigEndian.PutUint16(data[tableAddr+4:], 0x0103)

	set := romset.New()
	set.AddROM(2, data)
	c := New(set, romset.HWVariantPre95, false, catalogOffset)

	got := c.IndirectTable(1, 3)
	assert.Equal(t, []uint16{0x0101, 0x0102, 0x0103}, got)
}

func TestHarvestDeferredIndirectTables(t *testing.T) {
	size := 0x8000
	catalogOffset := uint32(0x4000)
	trackIndexAddr := uint32(0x100)
	indirectIndexAddr := uint32(0x200)
	tableAddr := uint32(0x600)
	nTracks := 2
	data := buildU2(size, catalogOffset, trackIndexAddr, indirectIndexAddr, nTracks)

	off := indirectIndexAddr + 1*3 // table index 1
	data[off] = byte(tableAddr >> 16)
	data[off+1] = byte(tableAddr >> 8)
	data[off+2] = byte(tableAddr)
	binary.BigEndian.PutUint16(data[tableAddr:], 0x0101)
	binary.BigEndian.PutUint16(data[tableAddr+2:], 0x0102)
	binary.BigEndian.PutUint16(data[tableAddr+4:], 0x0103)

	// Track 0: type 1 program that writes variable 7 = 2.
	bodyLinear := uint32(0x500)
	putTrackEntry(data, trackIndexAddr, 0, bodyLinear)
	data[bodyLinear] = 1
	data[bodyLinear+1] = 0
	copy(data[bodyLinear+2:], []byte{
		0x00, 0x00, 0x06, 0x07, 0x02, // SetVariable(varIndex=7, value=2)
		0x00, 0x00, 0x00, // End
	})

	// Track 1: type 3, variable index 7, table index 1.
	deferLinear := uint32(0x700)
	putTrackEntry(data, trackIndexAddr, 1, deferLinear)
	data[deferLinear] = 3
	data[deferLinear+1] = 2
	data[deferLinear+2] = 7
	data[deferLinear+3] = 1

	set := romset.New()
	set.AddROM(2, data)
	c := New(set, romset.HWVariantPre95, false, catalogOffset)

	tables := c.HarvestDeferredIndirectTables()
	require.Contains(t, tables, 1)
	assert.Equal(t, 3, tables[1].Length)
	assert.Equal(t, []uint16{0x0101, 0x0102, 0x0103}, tables[1].Entries)

	assert.Equal(t, uint16(0x0103), c.IndirectEntry(1, 2))
}
