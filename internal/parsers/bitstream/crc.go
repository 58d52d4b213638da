package bitstream

import "github.com/snksoft/crc"

// crc16Table is CRC16-CCITT (poly 1021, seed FFFF), the CRC of FM and MFM ID and data blocks
var crc16Table = crc.NewTable(crc.CCITT)

// CRC16 returns the CRC16-CCITT of the concatenated chunks, seeded with 0xFFFF
func CRC16(chunks ...[]byte) uint16 {
	v := crc16Table.InitCrc()
	for _, chunk := range chunks {
		v = crc16Table.UpdateCrc(v, chunk)
	}
	return uint16(crc16Table.CRC(v))
}

// XOR8 returns the XOR of all bytes, the checksum used by the GCR schemes
func XOR8(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum ^= b
	}
	return sum
}
