package adfs

// OldMapChecksum computes the check byte of one old map sector. Bytes
// [size-2] down to [0] are summed with end-around carry, seeded with 255 for
// 256-byte sectors and 0 for 1024-byte sectors.
func OldMapChecksum(buf []byte, sectorSize int) byte {
	if sectorSize < 2 || len(buf) < sectorSize {
		return 0
	}

	sum := uint32(255)
	if sectorSize == 1024 {
		sum = 0
	}
	carry := uint32(0)

	for i := sectorSize - 2; i >= 0; i-- {
		sum += uint32(buf[i]) + carry
		carry = 0
		if sum > 255 {
			carry = 1
		}
		sum &= 0xFF
	}

	return byte(sum)
}

// ZoneCheck computes the check byte of a new map zone. The zone occupies one
// sector of the map; its first byte is the stored check value and is excluded.
func ZoneCheck(mapData []byte, log2SectorSize uint8, zone int) byte {
	if log2SectorSize < 8 || log2SectorSize > 10 {
		return 0
	}

	start := zone << log2SectorSize
	end := (zone + 1) << log2SectorSize
	if start < 0 || end > len(mapData) {
		return 0
	}

	var s0, s1, s2, s3 uint32
	rover := end - 4
	for ; rover > start; rover -= 4 {
		s0 += uint32(mapData[rover]) + (s3 >> 8)
		s3 &= 0xFF
		s1 += uint32(mapData[rover+1]) + (s0 >> 8)
		s0 &= 0xFF
		s2 += uint32(mapData[rover+2]) + (s1 >> 8)
		s1 &= 0xFF
		s3 += uint32(mapData[rover+3]) + (s2 >> 8)
		s2 &= 0xFF
	}

	// first word: the check byte itself is left out
	s0 += s3 >> 8
	s1 += uint32(mapData[rover+1]) + (s0 >> 8)
	s2 += uint32(mapData[rover+2]) + (s1 >> 8)
	s3 += uint32(mapData[rover+3]) + (s2 >> 8)

	return byte((s0 ^ s1 ^ s2 ^ s3) & 0xFF)
}
