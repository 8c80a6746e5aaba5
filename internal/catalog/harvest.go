package catalog

import "github.com/mjr/dcsexplorer-go/internal/track"

// IndirectTableInfo is the harvested shape of one deferred-indirect table:
// the length needed to cover every variable observed indexing it, and its
// contents (U16BE track numbers read straight from ROM).
type IndirectTableInfo struct {
	Length  int
	Entries []uint16
}

// IndirectEntry reads a single deferred-indirect table entry (the
// runtime lookup StartDeferred needs, without requiring the table's
// harvested length): table[tableIndex][index].
func (c *Catalog) IndirectEntry(tableIndex int, index int) uint16 {
	entryPtr := c.indirectIndexPointer().Add(uint32(tableIndex) * 3)
	linearAddr := entryPtr.ReadU24()
	p := c.set.MakeROMPointer(c.variant, linearAddr).Add(uint32(index) * 2)
	return p.ReadU16()
}

// HarvestDeferredIndirectTables scans every track's program for writes to
// the variable store (opcode 0x06) and every type-3 (deferred-indirect)
// track for the variable that indexes a given table, then derives each
// referenced table's length as the maximum observed value (+1) of any
// variable that indexes it, and reads that many U16BE entries from ROM
// (spec §4.7). This is a static/tooling operation — internal/engine's
// runtime StartDeferred path uses IndirectEntry directly instead, since it
// only ever needs one entry at a time.
func (c *Catalog) HarvestDeferredIndirectTables() map[int]IndirectTableInfo {
	varMax := make(map[int]int)
	tableVars := make(map[int][]int)

	for n := 0; n < c.nTracks; n++ {
		info, err := c.TrackInfo(n)
		if err != nil || info.Type == TrackAbsent {
			continue
		}

		switch info.Type {
		case TrackProgram:
			prog := track.Decompile(info.Body, c.os93a)
			for _, ins := range prog.Instructions {
				if ins.Opcode != track.OpSetVariable || len(ins.Operands) != 2 {
					continue
				}
				varIndex := int(ins.Operands[0])
				value := int(ins.Operands[1])
				if value > varMax[varIndex] {
					varMax[varIndex] = value
				}
			}
		case TrackDeferIndirect:
			tableIndex := int(info.DeferIndirectKey >> 8)
			varIndex := int(info.DeferIndirectKey & 0xFF)
			tableVars[tableIndex] = append(tableVars[tableIndex], varIndex)
		}
	}

	out := make(map[int]IndirectTableInfo, len(tableVars))
	for tableIndex, vars := range tableVars {
		length := 0
		for _, v := range vars {
			if m := varMax[v] + 1; m > length {
				length = m
			}
		}
		out[tableIndex] = IndirectTableInfo{
			Length:  length,
			Entries: c.IndirectTable(tableIndex, length),
		}
	}
	return out
}
