package adfs

import (
	"fmt"

	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

// read24 returns the little-endian 24-bit value at off
func read24(buf []byte, off int) uint32 {
	return uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16
}

// ParseOldMap decodes and validates the old free space map held in the first
// 512 bytes of the disc. Both halves must carry a valid check byte, the
// reserved byte must be zero, every free space entry must fit the 21-bit
// address range and the free end pointer must be a multiple of 3.
func ParseOldMap(buf []byte) (*types.OldMap, error) {
	if len(buf) < 2*types.OldMapSectorSize {
		return nil, fmt.Errorf("old map needs %d bytes, got %d", 2*types.OldMapSectorSize, len(buf))
	}

	if buf[types.OldMapReserved] != 0 {
		return nil, fmt.Errorf("old map reserved byte is 0x%02X", buf[types.OldMapReserved])
	}

	check0 := OldMapChecksum(buf[:types.OldMapSectorSize], types.OldMapSectorSize)
	if check0 != buf[types.OldMapCheck0] {
		return nil, fmt.Errorf("%w: old map sector 0 check 0x%02X, stored 0x%02X", types.ErrBadChecksum, check0, buf[types.OldMapCheck0])
	}
	check1 := OldMapChecksum(buf[types.OldMapSectorSize:], types.OldMapSectorSize)
	if check1 != buf[types.OldMapCheck1] {
		return nil, fmt.Errorf("%w: old map sector 1 check 0x%02X, stored 0x%02X", types.ErrBadChecksum, check1, buf[types.OldMapCheck1])
	}

	m := &types.OldMap{
		SectorCount: read24(buf, types.OldMapSize),
		DiscID:      uint16(buf[types.OldMapDiscID]) | uint16(buf[types.OldMapDiscID+1])<<8,
		BootOption:  buf[types.OldMapBoot],
		FreeEnd:     buf[types.OldMapFreeEnd],
		Check0:      buf[types.OldMapCheck0],
		Check1:      buf[types.OldMapCheck1],
	}

	var bits uint32
	for i := 0; i < types.OldMapEntries; i++ {
		m.FreeStart[i] = read24(buf, types.OldMapFreeStart+i*3)
		m.FreeLength[i] = read24(buf, types.OldMapFreeLen+i*3)
		bits |= m.FreeStart[i] | m.FreeLength[i]
	}
	if bits&types.OldMapFreeMask != 0 {
		return nil, fmt.Errorf("old map free space entry out of range")
	}

	if m.FreeEnd%3 != 0 {
		return nil, fmt.Errorf("old map free end 0x%02X is not a multiple of 3", m.FreeEnd)
	}

	m.Title = oldMapTitle(buf)
	return m, nil
}

// oldMapTitle interleaves the two five-byte halves of the disc name
func oldMapTitle(buf []byte) string {
	var name []byte
	for i := 0; i < 5; i++ {
		c := buf[types.OldMapName0+i]
		if c == 0 {
			break
		}
		name = append(name, c&0x7F)

		c = buf[types.OldMapName1+i]
		if c == 0 {
			break
		}
		name = append(name, c&0x7F)
	}
	return decodeName(name)
}

// OldMapFormat maps the sector count of a valid old map onto a format
func OldMapFormat(m *types.OldMap) types.ADFSFormat {
	if f, ok := types.OldMapSectorCounts[m.SectorCount]; ok {
		return f
	}
	return types.FormatUnknown
}
