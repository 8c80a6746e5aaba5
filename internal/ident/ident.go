// Package ident identifies which DCS hardware/software variant a ROM set
// targets: the hardware board revision, OS release, nominal version, and
// channel count, plus the catalog's location in U2. The ROMs carry no
// explicit version marker, so identification proceeds by locating and
// validating the self-describing catalog, then (for the harder-to-pin-down
// OS sub-variants) searching for characteristic DSP opcode idioms.
package ident

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/mjr/dcsexplorer-go/internal/romset"
)

// HWVariant names the hardware board revision.
type HWVariant int

const (
	HWUnknown HWVariant = iota
	HWPre95             // original audio-only DCS board
	HW95                // DCS-95 audio/video board
)

// ROMVariant converts to the romset package's hardware-variant type, which
// only distinguishes the two linear-address encodings (romset has no
// notion of "unknown"; callers only reach this after a successful
// Identify, which never returns HWUnknown).
func (h HWVariant) ROMVariant() romset.HWVariant {
	if h == HW95 {
		return romset.HWVariant95
	}
	return romset.HWVariantPre95
}

func (h HWVariant) String() string {
	switch h {
	case HWPre95:
		return "DCS93"
	case HW95:
		return "DCS95"
	default:
		return "unknown"
	}
}

// OSVariant names the software release family, which determines frame
// format, opcode operand widths (see spec §4.5's OS93a/0x04 special case)
// and mixing-level math.
type OSVariant int

const (
	OSUnknown OSVariant = iota
	OS93a
	OS93b
	OS94
	OS95
)

// UsesWideWriteDataPort reports whether this OS release uses the 3-byte
// operand variant of opcode 0x04 (spec §4.5) rather than the usual 1-byte
// form: true only for the very first 1993 release.
func (o OSVariant) UsesWideWriteDataPort() bool {
	return o == OS93a
}

func (o OSVariant) String() string {
	switch o {
	case OS93a:
		return "OS93a"
	case OS93b:
		return "OS93b"
	case OS94:
		return "OS94"
	case OS95:
		return "OS95"
	default:
		return "unknown"
	}
}

// Catalog offsets tried in order, per spec §4.3.
var catalogOffsets = [...]uint32{0x3000, 0x4000, 0x6000}

// catalog95Offset is the one catalog location unique to the 95-variant.
const catalog95Offset = 0x6000

// Errors returned by Identify, matching spec §7's identification-error kinds.
var (
	ErrMissingROM       = errors.New("ident: U2 is missing")
	ErrNotADCSROM       = errors.New("ident: U2 signature is not a valid DCS signature")
	ErrNoCatalog        = errors.New("ident: no candidate offset validated a catalog")
	ErrUnknownOSVariant = errors.New("ident: OS variant probes did not match a known pattern")
)

// ChecksumStatus is the result of validating a ROM set against its own
// catalog's ROM-index table.
type ChecksumStatus int

const (
	// StatusOK (1): every populated slot matches its index entry, and no
	// index entry refers to an absent slot.
	StatusOK ChecksumStatus = 1
	// StatusMissingOrNoCandidateCatalog (2): U2 is absent, or no
	// candidate catalog offset validated any entry.
	StatusMissingOrNoCandidateCatalog ChecksumStatus = 2
)

// Info is the outcome of successfully identifying a ROM set.
type Info struct {
	Signature      string
	HW             HWVariant
	OS             OSVariant
	NominalVersion uint16 // MM.mm packed as 0xMMmm; 0 on pre-95 hardware, 0x0102 on 95 hardware without the version idiom
	NumChannels    int    // 0 if undetermined
	CatalogOffset  uint32
	ChecksumStatus ChecksumStatus
	BadChip        int // chip number of first checksum mismatch, else 0
}

// String renders a short diagnostic summary, e.g. "HW=DCS95 OS=OS95 v1.04".
func (i Info) String() string {
	if i.NominalVersion == 0 {
		return fmt.Sprintf("HW=%s OS=%s", i.HW, i.OS)
	}
	return fmt.Sprintf("HW=%s OS=%s v%d.%02d", i.HW, i.OS, i.NominalVersion>>8, i.NominalVersion&0xFF)
}

// u2SignatureMaxLen bounds the printable signature scan per spec §4.3.
const u2SignatureMaxLen = 120

// jumpOpcodeMask/jumpOpcodeValue recognize a JUMP instruction encoded in
// the first 3 bytes of U2, used to validate the signature is present.
const (
	jumpOpcodeMask  = 0xFC000F
	jumpOpcodeValue = 0x18000F
)

// Identify runs ROM fingerprinting and cataloguing against set, which
// must already have U2 (chip 2) populated via romset.AddROM.
func Identify(set *romset.ROMSet) (Info, error) {
	var info Info

	if !set.HasSlot(2) {
		log.Debug("ident: U2 not populated")
		return Info{ChecksumStatus: StatusMissingOrNoCandidateCatalog}, ErrMissingROM
	}

	sig, ok := readSignature(set)
	if !ok {
		return Info{}, ErrNotADCSROM
	}
	info.Signature = sig
	log.Debug("ident: signature", "value", sig)

	offset, ok := findCatalog(set)
	if !ok {
		log.Warn("ident: no catalog offset validated")
		return Info{ChecksumStatus: StatusMissingOrNoCandidateCatalog}, ErrNoCatalog
	}
	info.CatalogOffset = offset
	log.Info("ident: catalog located", "offset", fmt.Sprintf("$%04X", offset))

	if offset == catalog95Offset {
		info.HW = HW95
	} else {
		info.HW = HWPre95
	}

	status, badChip := validateROMIndex(set, offset, info.HW)
	info.ChecksumStatus = status
	info.BadChip = badChip
	if status != StatusOK {
		log.Warn("ident: checksum mismatch", "chip", badChip)
	}

	nTracks := set.NewPointer(2, offset+0x46).ReadU16()
	_ = nTracks // exposed via the catalog package, not duplicated here

	if info.HW == HW95 {
		info.OS = OS95
		info.NominalVersion = findNominalVersion(set)
	} else {
		os, err := findOS93Variant(set)
		if err != nil {
			log.Warn("ident: OS variant undetermined", "error", err)
			return info, ErrUnknownOSVariant
		}
		info.OS = os
	}

	info.NumChannels = findChannelCount(set)
	if info.NumChannels == 0 {
		log.Warn("ident: channel count undetermined")
	}

	return info, nil
}

func readSignature(set *romset.ROMSet) (string, bool) {
	// The opcode at ROM address 0 occupies the first 3 bytes (a 24-bit
	// DSP instruction word); the 4th byte of its 4-byte-aligned slot is
	// unused padding, matching the opcode-source convention in
	// internal/fingerprint.
	head := set.NewPointer(2, 0).ReadU24()
	if head&jumpOpcodeMask != jumpOpcodeValue {
		return "", false
	}
	var b []byte
	p := set.NewPointer(2, 4)
	for i := 0; i < u2SignatureMaxLen; i++ {
		c, next := p.NextU8()
		p = next
		if c == 0 {
			break
		}
		if c < 0x20 || c > 0x7E {
			return "", false
		}
		b = append(b, c)
	}
	if len(b) == 0 {
		return "", false
	}
	return string(b), true
}

// findCatalog tries each candidate offset in order and returns the first
// that self-identifies correctly, per spec §4.3.
func findCatalog(set *romset.ROMSet) (uint32, bool) {
	u2Size := uint32(set.SlotSize(2))
	for _, off := range catalogOffsets {
		p := set.NewPointer(2, off)
		sizeIn4K := p.ReadU16()
		chipSel := p.Add(2).ReadU16()
		checksum := p.Add(4).ReadU16()
		if chipSel == 0 && checksum == 0 && uint32(sizeIn4K)*4096 == u2Size {
			return off, true
		}
	}
	return 0, false
}

// validateROMIndex reads the ROM-index table adjacent to the catalog
// self-descriptor and compares every entry against the actually loaded
// slots, per spec §4.3.
func validateROMIndex(set *romset.ROMSet, catalogOffset uint32, hw HWVariant) (ChecksumStatus, int) {
	const maxEntries = 9
	p := set.NewPointer(2, catalogOffset)
	anyCandidateValidated := false
	seenChip := make(map[int]bool)

	for i := 0; i < maxEntries; i++ {
		sizeIn4K := p.ReadU16()
		p = p.Add(2)
		if sizeIn4K == 0 {
			break
		}
		chipSelByte := p.ReadU16()
		p = p.Add(2)
		checksum := p.ReadU16()
		p = p.Add(2)

		chipSel := byte(chipSelByte >> 8)
		if hw == HW95 {
			chipSel >>= 1
		}
		chipNum := int(chipSel) + romset.FirstChipNumber
		seenChip[chipNum] = true

		expectedSize := uint32(sizeIn4K) * 4096
		anyCandidateValidated = true

		if !set.HasSlot(chipNum) {
			return ChecksumStatus(chipNum), chipNum
		}
		actualSize := uint32(set.SlotSize(chipNum))
		actualChecksum := set.Checksum(chipNum)
		if actualSize != expectedSize || actualChecksum != checksum {
			return ChecksumStatus(chipNum), chipNum
		}
	}

	if !anyCandidateValidated {
		return StatusMissingOrNoCandidateCatalog, 0
	}

	for chipNum := romset.FirstChipNumber; chipNum < romset.FirstChipNumber+romset.NumSlots; chipNum++ {
		if set.HasSlot(chipNum) && !seenChip[chipNum] {
			// A populated slot the index never mentions is not itself a
			// documented failure mode in spec §4.3; only mismatches and
			// index entries referring to absent slots are. Left as OK.
			_ = chipNum
		}
	}

	return StatusOK, 0
}
