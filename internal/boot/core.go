package boot

import (
	"github.com/charmbracelet/log"

	"github.com/mjr/dcsexplorer-go/internal/engine"
	"github.com/mjr/dcsexplorer-go/internal/host"
)

// maxConsecutiveResets bounds self-healing from runtime decode faults
// before giving up and entering DecoderFatalError (spec §4.8, §5).
const maxConsecutiveResets = 3

// Core drives a playback engine through the boot/command/output state
// machine, exposing the single sample-pull API a host uses to get audio
// and feed it data-port bytes (spec §4.8).
type Core struct {
	eng  *engine.Engine
	host host.Port

	state          State
	fastBoot       bool
	selfTestStatus byte
	errorMessage   string

	sampleCounter int // position within the current HardBoot/Bong window
	bongRepsLeft  int
	bong          *bongGenerator

	frameBuf          [engine.FrameSamples]int16
	frameIdx          int
	consecutiveResets int
}

// New constructs a Core over an already-built Engine and enters HardBoot.
// selfTestStatus is the self-test status byte emitted after the hard-boot
// window (spec §6: 1 = pass, 2..9 = failing chip number) — typically
// ident.Info.ChecksumStatus from whatever identified the ROM set this
// engine was built over. fastBoot skips the startup bong.
func New(eng *engine.Engine, hostPort host.Port, selfTestStatus byte, fastBoot bool) *Core {
	c := &Core{
		eng:            eng,
		host:           hostPort,
		selfTestStatus: selfTestStatus,
		fastBoot:       fastBoot,
	}
	c.hardBoot()
	return c
}

// NewInitializationError constructs a Core that starts directly in
// InitializationError, for a caller whose upstream ROM identification or
// cataloging already failed (spec §7: MissingROM/IncompatibleROM "fails
// soft_boot()" before an Engine could even be built).
func NewInitializationError(hostPort host.Port, message string) *Core {
	return &Core{host: hostPort, state: StateInitializationError, errorMessage: message}
}

// State returns the state machine's current state.
func (c *Core) State() State { return c.state }

// ErrorMessage returns the detail recorded when entering an error state,
// or "" outside of one.
func (c *Core) ErrorMessage() string { return c.errorMessage }

func (c *Core) hardBoot() {
	c.state = StateHardBoot
	c.host.ClearDataPort()
	if c.eng != nil {
		c.eng.ClearDataPort()
	}
	c.sampleCounter = 0
	c.host.BootTimerControl(true)
}

// WriteDataPort enqueues one host byte (spec §4.8). During HardBoot, any
// byte short-circuits straight to soft_boot() (the hard-boot window is a
// fast-boot override the host can trigger at will) rather than being
// treated as a command. In Bong or Running, the byte is forwarded
// straight to the engine's own data-port queue, which Running drains once
// per frame via Engine.Step — so a byte written during Bong simply waits
// there until soft_boot() hands control to Running.
func (c *Core) WriteDataPort(b byte) {
	if c.state == StateHardBoot {
		c.host.BootTimerControl(false)
		c.softBoot()
		return
	}
	if c.eng != nil {
		c.eng.WriteDataPort(b)
	}
}

// FireBootTimer drives the HardBoot->self-test transition from a real
// 250ms host timer instead of from NextSample's own sample counting; a
// caller using one or the other (never both) is fine, since whichever
// fires first wins and the other's counting becomes moot once the state
// has moved on.
func (c *Core) FireBootTimer() {
	if c.state == StateHardBoot {
		c.startSelfTests()
	}
}

func (c *Core) startSelfTests() {
	c.host.BootTimerControl(false)
	c.host.ReceiveDataPort(0x79)
	c.host.ReceiveDataPort(c.selfTestStatus)

	if c.fastBoot {
		c.softBoot()
		return
	}

	c.state = StateBong
	c.bongRepsLeft = int(c.selfTestStatus)
	if c.bongRepsLeft < 1 {
		c.bongRepsLeft = 1
	}
	c.sampleCounter = 0
	c.bong = newBongGenerator()
}

func (c *Core) softBoot() {
	if c.eng == nil {
		c.state = StateInitializationError
		c.errorMessage = "soft_boot: no engine (ROM identification failed)"
		return
	}
	c.eng.Reset()
	c.state = StateRunning
	c.frameIdx = len(c.frameBuf)
	c.consecutiveResets = 0
}

// NextSample advances the state machine by exactly one sample and returns
// it (spec §4.8's get_next_sample). In HardBoot and Bong this is silence
// or the bong waveform and a sample counter; in Running it refills a
// 240-sample frame via the engine when exhausted (Engine.Step drains the
// data port at the start of each frame, so queued bytes are handled at the
// next frame boundary, not on every sample), self-healing (bounded at
// maxConsecutiveResets) from a decode fault.
func (c *Core) NextSample() int16 {
	switch c.state {
	case StateHardBoot:
		c.sampleCounter++
		if c.sampleCounter >= hardBootSamples {
			c.startSelfTests()
		}
		return 0

	case StateBong:
		s := c.bong.next()
		c.sampleCounter++
		if c.sampleCounter >= bongCycleSamples {
			c.bongRepsLeft--
			c.sampleCounter = 0
			c.bong = newBongGenerator()
			if c.bongRepsLeft <= 0 {
				c.softBoot()
			}
		}
		return s

	case StateRunning:
		return c.nextRunningSample()

	default: // DecoderFatalError, InitializationError
		return 0
	}
}

func (c *Core) nextRunningSample() int16 {
	if c.frameIdx >= len(c.frameBuf) {
		c.stepFrame()
		c.frameIdx = 0
	}
	if c.state != StateRunning {
		return 0
	}
	s := c.frameBuf[c.frameIdx]
	c.frameIdx++
	return s
}

// stepFrame advances the engine by one 240-sample frame. A decode fault
// counts against the consecutive-reset cap and resets the engine; the
// frame that faulted is reported as silence. Each call is one "pull" for
// the purposes of the reset cap (spec §8 property 9): three consecutive
// faulted frames are tolerated, the fourth one transitions to
// DecoderFatalError rather than resetting again.
func (c *Core) stepFrame() {
	if err := c.eng.Step(c.frameBuf[:]); err != nil {
		log.Warn("boot: decode fault, resetting", "error", err)
		c.consecutiveResets++
		c.eng.Reset()
		for i := range c.frameBuf {
			c.frameBuf[i] = 0
		}
		if c.consecutiveResets > maxConsecutiveResets {
			c.state = StateDecoderFatalError
			c.errorMessage = err.Error()
		}
		return
	}
	c.consecutiveResets = 0
}
