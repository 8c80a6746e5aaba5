package fingerprint

// ByteReader supplies raw bytes by absolute offset, matching
// romset.Pointer's read surface without creating a package dependency.
type ByteReader interface {
	ByteAt(offset int) byte
}

// ROMOpcodeSource adapts raw ROM bytes into an OpcodeSource, where each
// 24-bit opcode occupies 4 consecutive bytes with the fourth byte unused:
// opcode = bytes[0..2] big-endian, bytes[3] skipped.
type ROMOpcodeSource struct {
	Bytes     ByteReader
	NOpcodes  int
	BaseByte  int // byte offset of opcode 0
}

func (s ROMOpcodeSource) Len() int { return s.NOpcodes }

func (s ROMOpcodeSource) Opcode(i int) uint32 {
	base := s.BaseByte + i*4
	b0 := s.Bytes.ByteAt(base)
	b1 := s.Bytes.ByteAt(base + 1)
	b2 := s.Bytes.ByteAt(base + 2)
	return uint32(b0)<<16 | uint32(b1)<<8 | uint32(b2)
}
