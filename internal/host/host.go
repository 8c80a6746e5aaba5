// Package host defines the boot/output state machine's external host
// contract (C10: spec §6's "host interface contract") and provides a
// buffering reference implementation used by cmd/dcsplay: it
// records every status byte the core emits and lets a caller drive the
// boot timer manually instead of from a real 250 ms wall-clock timer.
package host

// Port is the callback surface the boot state machine drives (spec §6).
type Port interface {
	// ReceiveDataPort handles or ignores one status byte from the core.
	ReceiveDataPort(b byte)
	// ClearDataPort is invoked on hard-boot.
	ClearDataPort()
	// BootTimerControl starts (set=true) or cancels (set=false) the
	// 250 ms hard-boot timer. On expiry, a real implementation calls
	// back into the core's self-test entry point; a sample-driven
	// caller (the CLI, tests) doesn't need a real timer at all, since
	// internal/boot also advances its own hard-boot sample counter and
	// transitions on that independently of this callback.
	BootTimerControl(set bool)
}

// Buffering is a Port that records every received status byte and leaves
// the boot timer's firing under the caller's control, for hosts (the CLI,
// tests) that drive the core by feeding samples rather than by running a
// real timer thread.
type Buffering struct {
	Received []byte
	timerSet bool
}

var _ Port = (*Buffering)(nil)

// NewBuffering returns a ready-to-use Buffering host.
func NewBuffering() *Buffering { return &Buffering{} }

// ReceiveDataPort appends b to Received.
func (b *Buffering) ReceiveDataPort(v byte) { b.Received = append(b.Received, v) }

// ClearDataPort discards any buffered status bytes.
func (b *Buffering) ClearDataPort() { b.Received = b.Received[:0] }

// BootTimerControl records whether the hard-boot timer is armed.
func (b *Buffering) BootTimerControl(set bool) { b.timerSet = set }

// TimerArmed reports whether the core currently wants the 250 ms timer
// running (for a caller that drives it from a real clock).
func (b *Buffering) TimerArmed() bool { return b.timerSet }

// Drain returns and clears the buffered status bytes.
func (b *Buffering) Drain() []byte {
	out := b.Received
	b.Received = nil
	return out
}

