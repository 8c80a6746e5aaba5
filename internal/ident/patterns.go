package ident

import (
	"github.com/mjr/dcsexplorer-go/internal/fingerprint"
	"github.com/mjr/dcsexplorer-go/internal/romset"
)

// The opcode idioms below are the DSP instruction sequences a given OS
// release's U2 code is known to contain at a fixed location; they are the
// only reliable way to tell OS sub-variants apart since none of these
// ROMs carries an explicit version byte (spec §4.3, §9). Patterns and
// search regions are transcribed from the original decoder's
// SearchForOpcodes call sites, not rediscovered: each probe below cites
// the exact literal pattern and (base offset, opcode count) it searches,
// matching the reference implementation opcode-for-opcode. They're kept
// behind Pattern so they're compiled once (spec §9) rather than re-parsed
// per search.

// opcodeSource builds an OpcodeSource over nOpcodes 24-bit words of U2
// starting at byte offset baseByte, mirroring a single SearchForOpcodes
// call's (p, len) arguments.
func opcodeSource(set *romset.ROMSet, baseByte, nOpcodes int) fingerprint.ROMOpcodeSource {
	return fingerprint.ROMOpcodeSource{
		Bytes:    set.NewPointer(2, 0).Reader(),
		NOpcodes: nOpcodes,
		BaseByte: baseByte,
	}
}

// os93bBase/os93bOpcodes bound the search for the 1993-software idiom:
// U2 $1000 + $100*4, length $180*4 bytes.
const (
	os93bBase    = 0x1000 + 0x100*4
	os93bOpcodes = 0x180
)

// os93bProbe recognizes an idiom present in every 1993 ROM (IJ:TPA, JD,
// ST:TNG) and absent from the mainstream 1994 software; its absence
// means OS94.
var os93bProbe = fingerprint.Compile("380026 3C1005 0C00C0")

// os93aBase/os93aOpcodes bound the further OS93a/OS93b distinguishing
// search, only run once os93bProbe has matched: U2 $2000 + $200*4,
// length $100*4 bytes.
const (
	os93aBase    = 0x2000 + 0x200*4
	os93aOpcodes = 0x100
)

// os93aDistinguishProbe recognizes an idiom unique to the earlier of the
// two 1993 releases (IJ:TPA, JD); its absence when os93bProbe matched
// means the later 1993 release (ST:TNG).
var os93aDistinguishProbe = fingerprint.Compile("47FFF2 47C946")

func findOS93Variant(set *romset.ROMSet) (OSVariant, error) {
	if pos, _ := os93bProbe.Search(opcodeSource(set, os93bBase, os93bOpcodes), 0); pos >= 0 {
		if pos2, _ := os93aDistinguishProbe.Search(opcodeSource(set, os93aBase, os93aOpcodes), 0); pos2 >= 0 {
			return OS93a, nil
		}
		return OS93b, nil
	}
	return OS94, probeOS94(set)
}

// probeOS94 has no negative case to report in this corpus: absence of
// the OS93b idiom on a pre-95 board means OS94 by elimination, per spec
// §4.3. Kept as a named function so a future corpus addition that needs a
// genuine "probes failed, OS unknown" path has a single place to wire it,
// per spec §9's explicit caution against silently guessing.
func probeOS94(set *romset.ROMSet) error {
	return nil
}

// versionBase/versionOpcodes bound the 95-variant version-number idiom
// search: U2 $2000 + $300*4, length $180*4 bytes.
const (
	versionBase    = 0x2000 + 0x300*4
	versionOpcodes = 0x180
)

// versionIdiomPattern recognizes the 9-opcode idiom the IRQ2 55C2/55C3
// command handler uses to load the nominal MM.mm version as an
// immediate; the captured variable 'v' is the 16-bit version value
// itself (the 'w' capture repeats the same value a second time in the
// idiom and is left unused).
var versionIdiomPattern = fingerprint.Compile(
	"4vvvvE 0F16F8 93300E 18***F 4wwwwE 0F1608 0F16F8 93300E 18***F",
)

// defaultNominalVersion is used when the version idiom is absent: the
// earliest 95-variant releases predate the first labelled version, per
// spec §4.3.
const defaultNominalVersion = 0x0102

func findNominalVersion(set *romset.ROMSet) uint16 {
	_, caps := versionIdiomPattern.Search(opcodeSource(set, versionBase, versionOpcodes), 0)
	if caps == nil {
		return defaultNominalVersion
	}
	return uint16(caps['v'])
}

// channelOpcodes bounds the channel-count loop search: the full U2
// region up to $6000, from byte 0.
const channelOpcodes = 0x6000 / 4

// channelLoopPattern recognizes the per-channel track-execution loop:
// captures the channel-count immediate 'n' and the channel-mask
// immediate 'm'. Only accepted when m == (1<<n)-1, which rules out
// spurious matches against unrelated bounded loops using the same
// opcode shape.
var channelLoopPattern = fingerprint.Compile("22200F 4000n4 26E20F 221800 9****A 8****A 400mm4 26E20F 18***1")

func findChannelCount(set *romset.ROMSet) int {
	_, caps := channelLoopPattern.Search(opcodeSource(set, 0, channelOpcodes), 0)
	if caps == nil {
		return 0
	}
	n := caps['n']
	m := caps['m']
	if n > 0 && n <= 8 && m == (uint32(1)<<n)-1 {
		return int(n)
	}
	return 0
}
