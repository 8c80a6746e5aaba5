package engine

import "fmt"

// DecodeFault reports a run-time track-program fault: an opcode the
// engine doesn't recognize on a channel's active program (spec §4.6,
// §7). The caller (internal/boot) catches this, performs a self-reset,
// and retries, capping consecutive resets.
type DecodeFault struct {
	Channel int
	Opcode  byte
}

func (f *DecodeFault) Error() string {
	return fmt.Sprintf("engine: decode fault on channel %d: unknown opcode $%02X", f.Channel, f.Opcode)
}
