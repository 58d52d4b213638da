package adfs

import (
	"encoding/binary"
	"fmt"

	log "github.com/dsoprea/go-logging"
	"github.com/go-restruct/restruct"

	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

var mapLogger = log.NewLogger("adfs.newmap")

const (
	// discRecordBits is the number of map bits taken by the disc record in zone 0
	discRecordBits = types.DiscRecordSize * 8

	// zoneHeaderBits covers the check byte, free link and cross check of each zone
	zoneHeaderBits = 32

	// rootFragment is the fragment id shared by the map and the root directory
	rootFragment = 2
)

// ParseDiscRecord decodes the disc record at offset 4 of zone 0
func ParseDiscRecord(zone0 []byte) (*types.DiscRecord, error) {
	if len(zone0) < types.DiscRecordOffset+types.DiscRecordSize {
		return nil, fmt.Errorf("zone 0 too short for a disc record: %d bytes", len(zone0))
	}

	var dr types.DiscRecord
	raw := zone0[types.DiscRecordOffset : types.DiscRecordOffset+types.DiscRecordSize]
	if err := restruct.Unpack(raw, binary.LittleEndian, &dr); err != nil {
		return nil, fmt.Errorf("failed to unpack disc record: %w", err)
	}
	return &dr, nil
}

// zoneLayout places one zone of the map on the disc
type zoneLayout struct {
	startBlock int64
	startBit   int
	endBit     int
}

// NewMap is a loaded new-style (fragment) map.
type NewMap struct {
	Record *types.DiscRecord

	zones      [][]byte
	layout     []zoneLayout
	idsPerZone int
	map2blk    int
}

func zoneSize(dr *types.DiscRecord) int {
	return (8 << dr.Log2SecSize) - int(dr.ZoneSpare)
}

// MapAddress returns the byte offset of the first map zone
func MapAddress(dr *types.DiscRecord) int64 {
	zones := dr.Zones()
	addr := int64(zones>>1) * int64(zoneSize(dr))
	if zones > 1 {
		addr -= discRecordBits
	}
	return shift(addr, int(dr.Log2BPMB)-int(dr.Log2SecSize)) << dr.Log2SecSize
}

// shift is a left shift for positive n and a right shift for negative n
func shift(v int64, n int) int64 {
	if n >= 0 {
		return v << uint(n)
	}
	return v >> uint(-n)
}

// LoadNewMap checks every zone of the map and lays the zones out over the
// disc. mapData holds Zones() sectors read from MapAddress.
func LoadNewMap(dr *types.DiscRecord, mapData []byte) (*NewMap, error) {
	zones := dr.Zones()
	secSize := dr.SectorSize()
	if zones < 1 {
		return nil, fmt.Errorf("disc record has no zones")
	}
	if len(mapData) < zones*secSize {
		return nil, fmt.Errorf("map needs %d bytes, got %d", zones*secSize, len(mapData))
	}
	if dr.IDLen == 0 || dr.IDLen > 21 {
		return nil, fmt.Errorf("invalid fragment id length %d", dr.IDLen)
	}

	var cross byte
	m := &NewMap{
		Record:     dr,
		idsPerZone: zoneSize(dr) / (int(dr.IDLen) + 1),
		map2blk:    int(dr.Log2BPMB) - int(dr.Log2SecSize),
	}

	for z := 0; z < zones; z++ {
		if check := ZoneCheck(mapData, dr.Log2SecSize, z); check != mapData[z*secSize] {
			return nil, fmt.Errorf("%w: zone %d check 0x%02X, stored 0x%02X", types.ErrBadChecksum, z, check, mapData[z*secSize])
		}
		m.zones = append(m.zones, mapData[z*secSize:(z+1)*secSize])
		cross ^= mapData[z*secSize+3]
	}
	if cross != 0xFF {
		mapLogger.Warningf(nil, "Map cross check is 0x%02X", cross)
	}

	size := zoneSize(dr)
	m.layout = make([]zoneLayout, zones)
	m.layout[0] = zoneLayout{startBlock: 0, startBit: zoneHeaderBits + discRecordBits, endBit: zoneHeaderBits + size}
	for z := 1; z < zones; z++ {
		m.layout[z] = zoneLayout{
			startBlock: int64(z*size - discRecordBits),
			startBit:   zoneHeaderBits,
			endBit:     zoneHeaderBits + size,
		}
	}

	last := dr.Size() >> dr.Log2BPMB
	last -= int64((zones-1)*size - discRecordBits)
	m.layout[zones-1].endBit = zoneHeaderBits + int(last)
	if m.layout[zones-1].endBit > secSize*8 {
		return nil, fmt.Errorf("last zone ends at bit %d beyond the map sector", m.layout[zones-1].endBit)
	}

	return m, nil
}

// fragID reads an id of the given mask at a bit offset of a zone
func fragID(zone []byte, bit int, mask uint32) uint32 {
	var v uint32
	for i := 0; i < 4 && bit/8+i < len(zone); i++ {
		v |= uint32(zone[bit/8+i]) << (8 * i)
	}
	return (v >> uint(bit&7)) & mask
}

// nextSetBit returns the first set bit at or after from and before end, or end
func nextSetBit(zone []byte, from, end int) int {
	for bit := from; bit < end && bit/8 < len(zone); bit++ {
		if zone[bit/8]&(1<<uint(bit&7)) != 0 {
			return bit
		}
	}
	return end
}

// lookupZone searches one zone for the map bit at offset bits into the fragment
func (m *NewMap) lookupZone(z int, frag uint32, offset *int64) (int, bool) {
	zone := m.zones[z]
	lay := m.layout[z]
	idlen := int(m.Record.IDLen)
	mask := uint32(1)<<idlen - 1

	freelink := 0
	if f := fragID(zone, 8, mask&0x7FFF); f != 0 {
		freelink = 8 + int(f)
	}

	for start := lay.startBit; start < lay.endBit; {
		id := fragID(zone, start, mask)
		end := nextSetBit(zone, start+idlen, lay.endBit)
		if end >= lay.endBit {
			return 0, false
		}

		if start == freelink {
			freelink += int(id & 0x7FFF)
		} else if id == frag {
			length := int64(end + 1 - start)
			if *offset < length {
				return start + int(*offset), true
			}
			*offset -= length
		}
		start = end + 1
	}
	return 0, false
}

// Lookup resolves an indirect disc address into a sector number
func (m *NewMap) Lookup(indirect uint32) (int64, error) {
	frag := indirect >> 8
	var block int64
	if share := indirect & 0xFF; share != 0 {
		block = int64(share-1) << m.Record.Log2ShareSize
	}

	zones := len(m.zones)
	zone := 0
	if frag == rootFragment {
		zone = zones >> 1
	} else if m.idsPerZone > 0 {
		zone = int(frag) / m.idsPerZone
	}
	if zone >= zones {
		return 0, fmt.Errorf("%w: fragment 0x%X beyond %d zones", types.ErrFragmentNotFound, frag, zones)
	}

	mapOffset := shift(block, -m.map2blk)
	remaining := mapOffset
	for n := 0; n < zones; n++ {
		z := (zone + n) % zones
		bit, ok := m.lookupZone(z, frag, &remaining)
		if !ok {
			continue
		}

		result := int64(bit-m.layout[z].startBit) + m.layout[z].startBlock
		secOffset := block - shift(mapOffset, m.map2blk)
		return secOffset + shift(result, m.map2blk), nil
	}

	return 0, fmt.Errorf("%w: fragment 0x%X", types.ErrFragmentNotFound, frag)
}

// FreeSectors follows the free chain of every zone and returns the free space in sectors
func (m *NewMap) FreeSectors() uint32 {
	idlen := int(m.Record.IDLen)
	fragLen := min(idlen, 15)
	mask := uint32(1)<<fragLen - 1

	var total int64
	for z, zone := range m.zones {
		lay := m.layout[z]
		start := 8
		frag := fragID(zone, start, mask)
		if frag == 0 {
			continue
		}

		for {
			start += int(frag)
			frag = fragID(zone, start, mask)
			end := nextSetBit(zone, start+idlen, lay.endBit)
			if end >= lay.endBit {
				mapLogger.Warningf(nil, "Free chain of zone %d runs off the map", z)
				break
			}
			total += int64(end + 1 - start)
			if frag < uint32(idlen+1) {
				break
			}
		}
	}

	return uint32(shift(total, m.map2blk))
}
