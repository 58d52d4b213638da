package bitstream

import (
	"github.com/deploymenttheory/go-fluxdisk/internal/interfaces"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

// Apple II prologue and field sizes
const (
	applePrologue1    = 0xD5
	applePrologue2    = 0xAA
	appleAddressMark  = 0x96
	appleDataMark     = 0xAD
	appleSelfSync     = 0xFF
	appleIDBlockSize  = 9   // mark, volume, track, sector, checksum as 4-and-4 pairs
	appleDataNibbles  = 342 // 86 auxiliary + 256 primary six-bit values
	appleDataBlock    = 1 + appleDataNibbles + 1
	appleAuxNibbles   = 86
	appleSizeCode     = 1
	appleSectorLength = 256
)

// Nibble62 maps six-bit values onto disk nibbles for 6-and-2 encoding
var Nibble62 = [64]byte{
	0x96, 0x97, 0x9a, 0x9b, 0x9d, 0x9e, 0x9f, 0xa6,
	0xa7, 0xab, 0xac, 0xad, 0xae, 0xaf, 0xb2, 0xb3,
	0xb4, 0xb5, 0xb6, 0xb7, 0xb9, 0xba, 0xbb, 0xbc,
	0xbd, 0xbe, 0xbf, 0xcb, 0xcd, 0xce, 0xcf, 0xd3,
	0xd6, 0xd7, 0xd9, 0xda, 0xdb, 0xdc, 0xdd, 0xde,
	0xdf, 0xe5, 0xe6, 0xe7, 0xe9, 0xea, 0xeb, 0xec,
	0xed, 0xee, 0xef, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6,
	0xf7, 0xf9, 0xfa, 0xfb, 0xfc, 0xfd, 0xfe, 0xff,
}

// nibble62Decode maps disk nibbles back to six-bit values, 0xFF for illegal nibbles
var nibble62Decode = func() [256]byte {
	var table [256]byte
	for i := range table {
		table[i] = 0xFF
	}
	for v, n := range Nibble62 {
		table[n] = byte(v)
	}
	return table
}()

var appleMarkPatterns = []types.MarkPattern{
	{Mark: types.MarkID, Pattern: applePrologue1<<16 | applePrologue2<<8 | appleAddressMark, Cells: 24, Value: appleAddressMark},
	{Mark: types.MarkData, Pattern: applePrologue1<<16 | applePrologue2<<8 | appleDataMark, Cells: 24, Value: appleDataMark},
}

// AppleGCR is Apple II 6-and-2 group coded recording.
type AppleGCR struct{}

// NewAppleGCR returns the Apple GCR modulation
func NewAppleGCR() *AppleGCR {
	return &AppleGCR{}
}

func (m *AppleGCR) Kind() types.Modulation { return types.ModulationAppleGCR }

func (m *AppleGCR) MinCells() int { return 1 }

func (m *AppleGCR) TrackBase() int { return 0 }

func (m *AppleGCR) AddressMarkPatterns() []types.MarkPattern { return appleMarkPatterns }

// SeparateClockData has no clock to separate; the low byte is returned as data
func (m *AppleGCR) SeparateClockData(cells uint16) (byte, byte) { return 0, byte(cells) }

func (m *AppleGCR) IDBlockSize() int { return appleIDBlockSize }

func (m *AppleGCR) BlockOverheadSize() int { return appleDataBlock - appleSectorLength }

func (m *AppleGCR) NewFramer() interfaces.Framer {
	return &appleFramer{}
}

// Decode44 joins a 4-and-4 encoded pair
func Decode44(odd, even byte) byte {
	return ((odd << 1) | 1) & even
}

// Encode44 splits a byte into its 4-and-4 encoded pair
func Encode44(v byte) (odd, even byte) {
	return (v >> 1) | 0xAA, v | 0xAA
}

// DecodeID checks the address field checksum over volume, track and sector
func (m *AppleGCR) DecodeID(block []byte) (types.SectorID, bool) {
	if len(block) != appleIDBlockSize {
		return types.SectorID{}, false
	}

	volume := Decode44(block[1], block[2])
	track := Decode44(block[3], block[4])
	sector := Decode44(block[5], block[6])
	checksum := Decode44(block[7], block[8])

	id := types.SectorID{
		Track:    int(track),
		Sector:   int(sector),
		SizeCode: appleSizeCode,
		Quality:  types.QualityGood,
	}

	if volume^track^sector != checksum {
		id.Quality = types.QualityBad
		return id, false
	}
	return id, true
}

// DecodeData undoes the running XOR over the 343 nibbles and reassembles the
// 256 bytes from the primary and auxiliary six-bit values
func (m *AppleGCR) DecodeData(block []byte, _ *types.SectorID) ([]byte, bool) {
	if len(block) != appleDataBlock {
		return nil, false
	}
	return Denibblize62(block[1:])
}

// Nibblize62 encodes a 256-byte sector into 343 disk nibbles (342 values and the checksum)
func Nibblize62(data []byte) []byte {
	var aux [appleAuxNibbles]byte
	var primary [appleSectorLength]byte

	for i := 0; i < appleAuxNibbles; i++ {
		hi := data[(0x01-i)&0xFF]
		med := data[(0xAB-i)&0xFF]
		low := data[(0x55-i)&0xFF]
		aux[i] = swapPair(hi)<<4 | swapPair(med)<<2 | swapPair(low)
	}
	for i := 0; i < appleSectorLength; i++ {
		primary[i] = data[i] >> 2
	}

	out := make([]byte, 0, appleDataNibbles+1)
	var prev byte
	for i := appleAuxNibbles - 1; i >= 0; i-- {
		out = append(out, Nibble62[aux[i]^prev])
		prev = aux[i]
	}
	for i := 0; i < appleSectorLength; i++ {
		out = append(out, Nibble62[primary[i]^prev])
		prev = primary[i]
	}
	return append(out, Nibble62[prev])
}

// Denibblize62 decodes 343 disk nibbles into a sector, reporting checksum and nibble errors
func Denibblize62(nibbles []byte) ([]byte, bool) {
	if len(nibbles) != appleDataNibbles+1 {
		return nil, false
	}

	var aux [appleAuxNibbles]byte
	var primary [appleSectorLength]byte
	ok := true
	var prev byte

	next := func(n byte) byte {
		v := nibble62Decode[n]
		if v == 0xFF {
			ok = false
			v = 0
		}
		prev ^= v
		return prev
	}

	for i := appleAuxNibbles - 1; i >= 0; i-- {
		aux[i] = next(nibbles[appleAuxNibbles-1-i])
	}
	for i := 0; i < appleSectorLength; i++ {
		primary[i] = next(nibbles[appleAuxNibbles+i])
	}
	if next(nibbles[appleDataNibbles]) != 0 {
		ok = false
	}

	data := make([]byte, appleSectorLength)
	for i := 0; i < appleSectorLength; i++ {
		data[i] = primary[i] << 2
	}
	// later passes win for bytes 0 and 1, which the first pass also covers
	for i := 0; i < appleAuxNibbles; i++ {
		data[(0x01-i)&0xFF] = data[(0x01-i)&0xFF]&0xFC | swapPair(aux[i]>>4)
	}
	for i := 0; i < appleAuxNibbles; i++ {
		data[(0xAB-i)&0xFF] = data[(0xAB-i)&0xFF]&0xFC | swapPair(aux[i]>>2)
	}
	for i := 0; i < appleAuxNibbles; i++ {
		data[(0x55-i)&0xFF] = data[(0x55-i)&0xFF]&0xFC | swapPair(aux[i])
	}

	return data, ok
}

// swapPair exchanges the two low bits of v
func swapPair(v byte) byte {
	return (v&0x01)<<1 | (v&0x02)>>1
}

// appleFramer latches a nibble whenever the top bit of the shift register is set
// and watches for the three-nibble prologues.
type appleFramer struct {
	reg  byte
	prev [2]byte
}

func (f *appleFramer) Shift(cell byte) (types.Symbol, bool) {
	f.reg = f.reg<<1 | (cell & 1)
	if f.reg&0x80 == 0 {
		return types.Symbol{}, false
	}
	nibble := f.reg
	f.reg = 0

	prologue := f.prev[0] == applePrologue1 && f.prev[1] == applePrologue2
	f.prev[0], f.prev[1] = f.prev[1], nibble

	if prologue {
		for _, p := range appleMarkPatterns {
			if nibble == p.Value {
				return types.Symbol{Kind: types.SymbolMark, Mark: p.Mark, Value: nibble}, true
			}
		}
	}

	if nibble == appleSelfSync {
		return types.Symbol{Kind: types.SymbolGap, Value: nibble}, true
	}
	return types.Symbol{Kind: types.SymbolByte, Value: nibble}, true
}

func (f *appleFramer) Unlock() {
	f.prev = [2]byte{}
}
