// Package fingerprint implements the opcode pattern matcher used to
// identify DCS ROM variants by recognizing characteristic machine-code
// idioms, since the ROMs carry no explicit version marker.
//
// A pattern is a space-separated sequence of six-character tokens. Each
// token encodes one 24-bit opcode template: hex digits are literal 4-bit
// fields, '*' is a don't-care field, and any other letter is a don't-care
// field that also binds to a named capture variable. Consecutive nibbles
// using the same letter extend one capture; a different letter starts a
// new one.
package fingerprint

import (
	"fmt"
	"strings"
)

const nibblesPerToken = 6

// nibble describes how one 4-bit field of a token is matched.
type nibbleKind int

const (
	nibbleLiteral nibbleKind = iota
	nibbleWildcard
	nibbleCapture
)

type nibbleSpec struct {
	kind    nibbleKind
	literal uint8 // 0..0xF, valid when kind == nibbleLiteral
	letter  byte  // valid when kind == nibbleCapture
}

// capture describes one named variable's position within a compiled
// pattern: which token, which contiguous nibble range within that token.
type capture struct {
	letter       byte
	tokenIndex   int
	nibbleOffset int // 0..5, high nibble first
	width        int // number of nibbles
}

// Pattern is a compiled opcode template, ready for repeated searching.
// Compile a Pattern once and reuse it; do not re-parse the source string
// on every search.
type Pattern struct {
	tokens   [][nibblesPerToken]nibbleSpec
	literals [][2]uint32 // per-token (value, mask) over the 24-bit opcode
	captures []capture
}

// Compile parses a pattern string into a Pattern. It panics on malformed
// input: callers are expected to compile fixed, compile-time-known
// pattern strings, not arbitrary runtime data.
func Compile(pattern string) *Pattern {
	fields := strings.Fields(pattern)
	p := &Pattern{
		tokens:   make([][nibblesPerToken]nibbleSpec, len(fields)),
		literals: make([][2]uint32, len(fields)),
	}

	var openCapture *capture

	for ti, tok := range fields {
		if len(tok) != nibblesPerToken {
			panic(fmt.Sprintf("fingerprint: token %q must be %d characters", tok, nibblesPerToken))
		}
		var value, mask uint32
		for ni := 0; ni < nibblesPerToken; ni++ {
			c := tok[ni]
			shift := uint((nibblesPerToken - 1 - ni) * 4)
			var spec nibbleSpec
			switch {
			case isHexDigit(c):
				v := hexVal(c)
				spec = nibbleSpec{kind: nibbleLiteral, literal: v}
				value |= uint32(v) << shift
				mask |= 0xF << shift
			case c == '*':
				spec = nibbleSpec{kind: nibbleWildcard}
			case isCaptureLetter(c):
				spec = nibbleSpec{kind: nibbleCapture, letter: c}
			default:
				panic(fmt.Sprintf("fingerprint: invalid character %q in token %q", c, tok))
			}
			p.tokens[ti][ni] = spec

			if spec.kind == nibbleCapture {
				if openCapture != nil && openCapture.letter == c &&
					openCapture.tokenIndex == ti && openCapture.nibbleOffset+openCapture.width == ni {
					openCapture.width++
				} else {
					if openCapture != nil {
						p.captures = append(p.captures, *openCapture)
					}
					openCapture = &capture{letter: c, tokenIndex: ti, nibbleOffset: ni, width: 1}
				}
			} else if openCapture != nil {
				p.captures = append(p.captures, *openCapture)
				openCapture = nil
			}
		}
		p.literals[ti] = [2]uint32{value, mask}
	}
	if openCapture != nil {
		p.captures = append(p.captures, *openCapture)
	}

	return p
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func isCaptureLetter(c byte) bool {
	isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	return isLetter && !isHexDigit(c)
}

// NTokens returns the number of opcode-wide tokens the pattern spans.
func (p *Pattern) NTokens() int { return len(p.tokens) }

// OpcodeSource supplies successive 24-bit opcode values for searching,
// abstracting over raw ROM bytes (4 bytes per opcode, 4th byte unused) and
// an in-memory array of already-decoded 24-bit values.
type OpcodeSource interface {
	// Len returns the number of opcodes available from position 0.
	Len() int
	// Opcode returns the 24-bit value at opcode position i.
	Opcode(i int) uint32
}

// Captures maps a pattern's named variables to the bits extracted from a
// successful match.
type Captures map[byte]uint32

// Search scans src for the first position >= start where every literal
// token of p matches, returning that position and the bound captures.
// Returns (-1, nil) if no position matches.
func (p *Pattern) Search(src OpcodeSource, start int) (int, Captures) {
	n := src.Len()
	span := len(p.tokens)
	if span == 0 {
		return -1, nil
	}
	for pos := start; pos+span <= n; pos++ {
		if caps, ok := p.matchAt(src, pos); ok {
			return pos, caps
		}
	}
	return -1, nil
}

func (p *Pattern) matchAt(src OpcodeSource, pos int) (Captures, bool) {
	opcodes := make([]uint32, len(p.tokens))
	for i := range p.tokens {
		op := src.Opcode(pos + i)
		value, mask := p.literals[i][0], p.literals[i][1]
		if op&mask != value {
			return nil, false
		}
		opcodes[i] = op
	}

	if len(p.captures) == 0 {
		return nil, true
	}

	caps := make(Captures, len(p.captures))
	for _, c := range p.captures {
		shift := uint((nibblesPerToken - c.nibbleOffset - c.width) * 4)
		width := uint(c.width * 4)
		var capMask uint32
		if width >= 32 {
			capMask = 0xFFFFFFFF
		} else {
			capMask = (uint32(1) << width) - 1
		}
		bits := (opcodes[c.tokenIndex] >> shift) & capMask
		caps[c.letter] = (caps[c.letter] << (c.width * 4)) | bits
		// Support a variable split across multiple tokens (rare, but the
		// accumulation above makes repeated letters in later tokens
		// compose in encounter order).
	}
	return caps, true
}
