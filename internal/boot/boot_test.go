package boot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjr/dcsexplorer-go/internal/catalog"
	"github.com/mjr/dcsexplorer-go/internal/engine"
	"github.com/mjr/dcsexplorer-go/internal/romset"
)

type fakeHost struct {
	received  []byte
	timerSet  bool
	timerSets []bool
}

func (h *fakeHost) ReceiveDataPort(b byte)  { h.received = append(h.received, b) }
func (h *fakeHost) ClearDataPort()          { h.received = h.received[:0] }
func (h *fakeHost) BootTimerControl(set bool) {
	h.timerSet = set
	h.timerSets = append(h.timerSets, set)
}

type silentDecoder struct{}

func (silentDecoder) Load(int, romset.Pointer, byte)      {}
func (silentDecoder) Clear(int)                           {}
func (silentDecoder) NextFrame(int, []int16, byte) bool   { return false }

// buildFaultingEngine returns a minimal Engine with one track (number 0,
// channel 0) whose program consists solely of an opcode outside the known
// set, for exercising DecodeFault / self-reset. engineHost receives the
// engine's own status-byte traffic (version queries, track opcode 0x04),
// distinct from the boot.Core's host passed to New.
func buildFaultingEngine(engineHost engine.HostPort) *engine.Engine {
	buf := make([]byte, 0x10000)
	for i := range buf {
		buf[i] = 0xFF
	}
	catalogOffset := uint32(0x4000)
	trackIndexAddr := uint32(0x100)
	put24 := func(off uint32, v uint32) {
		buf[off] = byte(v >> 16)
		buf[off+1] = byte(v >> 8)
		buf[off+2] = byte(v)
	}
	put24(catalogOffset+0x40, trackIndexAddr)
	put24(catalogOffset+0x43, 0x200)
	buf[catalogOffset+0x46] = 0
	buf[catalogOffset+0x47] = 1 // nTracks = 1

	bodyAddr := uint32(0x500)
	put24(trackIndexAddr, bodyAddr)
	buf[bodyAddr] = 1   // type 1
	buf[bodyAddr+1] = 0 // channel 0
	copy(buf[bodyAddr+2:], []byte{0x00, 0x00, 0x7F})

	set := romset.New()
	set.AddROM(2, buf)
	cat := catalog.New(set, romset.HWVariantPre95, false, catalogOffset)
	return engine.New(cat, 4, 0x0104, silentDecoder{}, engineHost)
}

func TestHardBootToBongToRunning(t *testing.T) {
	eng := buildFaultingEngine(&fakeHost{}) // program never reached before soft_boot
	h := &fakeHost{}
	c := New(eng, h, 1, false) // selfTestStatus=1 (pass), fast-boot disabled

	assert.Equal(t, StateHardBoot, c.State())
	assert.True(t, h.timerSet)

	for i := 0; i < hardBootSamples-1; i++ {
		c.NextSample()
	}
	assert.Equal(t, StateHardBoot, c.State(), "must not transition before the window elapses")

	c.NextSample() // the 7812th sample crosses the threshold
	assert.Equal(t, StateBong, c.State())
	assert.False(t, h.timerSet)
	assert.Equal(t, []byte{0x79, 0x01}, h.received)

	for i := 0; i < bongCycleSamples; i++ {
		c.NextSample()
	}
	assert.Equal(t, StateRunning, c.State())
}

func TestHardBootDataPortShortCircuitsToRunning(t *testing.T) {
	eng := buildFaultingEngine(&fakeHost{})
	h := &fakeHost{}
	c := New(eng, h, 1, false)

	c.WriteDataPort(0x42)
	assert.Equal(t, StateRunning, c.State())
	assert.False(t, h.timerSet)
}

func TestFastBootSkipsBong(t *testing.T) {
	eng := buildFaultingEngine(&fakeHost{})
	h := &fakeHost{}
	c := New(eng, h, 1, true)

	for i := 0; i < hardBootSamples; i++ {
		c.NextSample()
	}
	assert.Equal(t, StateRunning, c.State())
}

func TestBongTimingExactly23437Samples(t *testing.T) {
	eng := buildFaultingEngine(&fakeHost{})
	h := &fakeHost{}
	c := New(eng, h, 1, false)
	for i := 0; i < hardBootSamples; i++ {
		c.NextSample()
	}
	require.Equal(t, StateBong, c.State())

	for i := 0; i < bongCycleSamples-1; i++ {
		c.NextSample()
		require.Equal(t, StateBong, c.State())
	}
	c.NextSample()
	assert.Equal(t, StateRunning, c.State())
}

func TestSelfResetCapTransitionsOnFourthFault(t *testing.T) {
	eng := buildFaultingEngine(&fakeHost{})
	h := &fakeHost{}
	c := New(eng, h, 1, true)
	c.WriteDataPort(0x00) // short-circuits HardBoot straight to Running
	require.Equal(t, StateRunning, c.State())

	for i := 0; i < 3; i++ {
		eng.WriteDataPort(0x00)
		eng.WriteDataPort(0x00) // reload track 0 (its program faults immediately)
		c.stepFrame()
		assert.Equal(t, StateRunning, c.State(), "fault %d should self-heal, not go fatal", i+1)
	}

	eng.WriteDataPort(0x00)
	eng.WriteDataPort(0x00)
	c.stepFrame()
	assert.Equal(t, StateDecoderFatalError, c.State())
}

func TestFIFODataPortOrderThroughCore(t *testing.T) {
	engineHost := &fakeHost{}
	eng := buildFaultingEngine(engineHost)
	h := &fakeHost{}
	c := New(eng, h, 1, true)
	c.WriteDataPort(0x41) // short-circuits HardBoot straight to Running
	require.Equal(t, StateRunning, c.State())

	// Two version queries, back to back: the major byte (0x01) must be
	// observed before the minor byte (0x04), since the engine's data port
	// is a FIFO queue drained in enqueue order (spec §8 property 10).
	c.WriteDataPort(0x55)
	c.WriteDataPort(0xC2)
	c.WriteDataPort(0x55)
	c.WriteDataPort(0xC3)
	// Drive a frame so the engine's command handler drains the queue.
	var out [engine.FrameSamples]int16
	require.NoError(t, eng.Step(out[:]))

	assert.Equal(t, []byte{0x01, 0x04}, engineHost.received)
}

func TestNewInitializationError(t *testing.T) {
	h := &fakeHost{}
	c := NewInitializationError(h, "missing ROM U2")
	assert.Equal(t, StateInitializationError, c.State())
	assert.Equal(t, "missing ROM U2", c.ErrorMessage())
	assert.Equal(t, int16(0), c.NextSample())
}
