package adfs

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// decodeName converts a RISC OS name field to a string. The field ends at the
// first control character; trailing spaces are dropped.
func decodeName(raw []byte) string {
	end := len(raw)
	for i, c := range raw {
		if c < 0x20 || c == 0x7F {
			end = i
			break
		}
	}

	s, err := charmap.ISO8859_1.NewDecoder().Bytes(raw[:end])
	if err != nil {
		return strings.TrimRight(string(raw[:end]), " ")
	}
	return strings.TrimRight(string(s), " ")
}

// entryName converts a 10-byte directory entry name. Characters are 7-bit and
// the name ends at a control character or space.
func entryName(raw []byte) string {
	var sb strings.Builder
	for _, c := range raw {
		c &= 0x7F
		if c <= 0x20 || c == 0x7F {
			break
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
