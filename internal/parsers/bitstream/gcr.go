package bitstream

import (
	"github.com/deploymenttheory/go-fluxdisk/internal/interfaces"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

// Commodore GCR framing constants
const (
	gcrSyncOnes      = 10
	gcrHeaderID      = 0x08
	gcrDataID        = 0x07
	gcrHeaderBytes   = 8   // 08, checksum, sector, track, id2, id1, 0F, 0F
	gcrDataBlockSize = 258 // 07, 256 payload bytes, checksum
	gcrGroupCells    = 10
	gcrSizeCode      = 1
)

// GCREncode maps a nibble onto its 5-bit group code
var GCREncode = [16]byte{
	0x0A, 0x0B, 0x12, 0x13, 0x0E, 0x0F, 0x16, 0x17,
	0x09, 0x19, 0x1A, 0x1B, 0x0D, 0x1D, 0x1E, 0x15,
}

// gcrDecode maps a 5-bit group back to its nibble, 0xFF for illegal groups
var gcrDecode = func() [32]byte {
	var table [32]byte
	for i := range table {
		table[i] = 0xFF
	}
	for nibble, code := range GCREncode {
		table[code] = byte(nibble)
	}
	return table
}()

var gcrMarkPatterns = []types.MarkPattern{
	{Mark: types.MarkID, Pattern: 0xFFC00 | uint32(GCREncode[0])<<5 | uint32(GCREncode[gcrHeaderID]), Cells: 20, Value: gcrHeaderID},
	{Mark: types.MarkData, Pattern: 0xFFC00 | uint32(GCREncode[0])<<5 | uint32(GCREncode[gcrDataID]), Cells: 20, Value: gcrDataID},
}

// GCR is Commodore 4-to-5 group coded recording.
type GCR struct{}

// NewGCR returns the Commodore GCR modulation
func NewGCR() *GCR {
	return &GCR{}
}

func (m *GCR) Kind() types.Modulation { return types.ModulationGCR }

func (m *GCR) MinCells() int { return 1 }

// TrackBase is 1: Commodore headers number tracks from one
func (m *GCR) TrackBase() int { return 1 }

func (m *GCR) AddressMarkPatterns() []types.MarkPattern { return gcrMarkPatterns }

// SeparateClockData has no clock to separate; the low byte is returned as data
func (m *GCR) SeparateClockData(cells uint16) (byte, byte) { return 0, byte(cells) }

func (m *GCR) IDBlockSize() int { return gcrHeaderBytes }

func (m *GCR) BlockOverheadSize() int { return gcrDataBlockSize - 256 }

func (m *GCR) NewFramer() interfaces.Framer {
	return &gcrFramer{}
}

// DecodeID checks the header XOR checksum over sector, track and the two id bytes
func (m *GCR) DecodeID(block []byte) (types.SectorID, bool) {
	if len(block) != gcrHeaderBytes {
		return types.SectorID{}, false
	}

	id := types.SectorID{
		Track:    int(block[3]),
		Sector:   int(block[2]),
		SizeCode: gcrSizeCode,
		Quality:  types.QualityGood,
	}

	if XOR8(block[2:6]) != block[1] {
		id.Quality = types.QualityBad
		return id, false
	}
	return id, true
}

// DecodeData checks the XOR checksum following the payload
func (m *GCR) DecodeData(block []byte, _ *types.SectorID) ([]byte, bool) {
	if len(block) != gcrDataBlockSize {
		return nil, false
	}

	payload := make([]byte, 256)
	copy(payload, block[1:257])
	return payload, XOR8(payload) == block[257]
}

// decodeGCRGroup turns 10 cells into a byte, reporting illegal groups
func decodeGCRGroup(raw uint16) (byte, bool) {
	hi := gcrDecode[(raw>>5)&0x1F]
	lo := gcrDecode[raw&0x1F]
	if hi == 0xFF || lo == 0xFF {
		return 0, false
	}
	return hi<<4 | lo, true
}

// gcrFramer waits for a sync run of ones, then frames 10-cell groups. The
// first group after a sync selects header or data.
type gcrFramer struct {
	ones   int
	inSync bool
	locked bool
	first  bool
	reg    uint16
	bits   int
}

func (f *gcrFramer) Shift(cell byte) (types.Symbol, bool) {
	cell &= 1

	if cell == 1 {
		f.ones++
		if f.ones >= gcrSyncOnes {
			f.inSync = true
			f.locked = false
			return types.Symbol{}, false
		}
	} else {
		if f.inSync {
			f.inSync = false
			f.locked = true
			f.first = true
			f.bits = 0
			f.reg = 0
		}
		f.ones = 0
	}

	if !f.locked {
		return types.Symbol{}, false
	}

	f.reg = (f.reg<<1 | uint16(cell)) & 0x3FF
	f.bits++
	if f.bits < gcrGroupCells {
		return types.Symbol{}, false
	}
	f.bits = 0

	value, ok := decodeGCRGroup(f.reg)

	if f.first {
		f.first = false
		switch {
		case ok && value == gcrHeaderID:
			return types.Symbol{Kind: types.SymbolMark, Mark: types.MarkID, Value: value}, true
		case ok && value == gcrDataID:
			return types.Symbol{Kind: types.SymbolMark, Mark: types.MarkData, Value: value}, true
		}
		f.locked = false
		return types.Symbol{}, false
	}

	if f.reg == 0x155 || f.reg == 0x2AA {
		return types.Symbol{Kind: types.SymbolGap, Value: value, Invalid: !ok}, true
	}
	return types.Symbol{Kind: types.SymbolByte, Value: value, Invalid: !ok}, true
}

func (f *gcrFramer) Unlock() {
	f.locked = false
	f.first = false
	f.bits = 0
}
