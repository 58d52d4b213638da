package bitstream

import (
	"encoding/binary"

	"github.com/deploymenttheory/go-fluxdisk/internal/interfaces"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

// FM clock/data mark patterns: clock byte and data byte interleaved, clock first
const (
	fmIndexMark   = 0xF77A // clock D7, data FC
	fmIDMark      = 0xF57E // clock C7, data FE
	fmDataMark    = 0xF56F // clock C7, data FB
	fmDeletedMark = 0xF56A // clock C7, data F8

	// fmBlockOverhead is the mark byte and the two CRC bytes around a payload
	fmBlockOverhead = 3

	// idBlockSize is mark, track, head, sector, size code and CRC
	idBlockSize = 7
)

var fmMarkPatterns = []types.MarkPattern{
	{Mark: types.MarkIndex, Pattern: fmIndexMark, Cells: 16, Value: 0xFC},
	{Mark: types.MarkID, Pattern: fmIDMark, Cells: 16, Value: 0xFE},
	{Mark: types.MarkData, Pattern: fmDataMark, Cells: 16, Value: 0xFB},
	{Mark: types.MarkDeletedData, Pattern: fmDeletedMark, Cells: 16, Value: 0xF8},
}

// SeparateClockData splits 16 cells into the clock byte (odd cells, counting from
// the MSB) and the data byte (even cells)
func SeparateClockData(cells uint16) (clock, data byte) {
	for i := 0; i < 8; i++ {
		clock <<= 1
		data <<= 1
		if cells&(0x8000>>(2*i)) != 0 {
			clock |= 1
		}
		if cells&(0x4000>>(2*i)) != 0 {
			data |= 1
		}
	}
	return clock, data
}

// FM is single density frequency modulation.
type FM struct{}

// NewFM returns the FM modulation
func NewFM() *FM {
	return &FM{}
}

func (m *FM) Kind() types.Modulation { return types.ModulationFM }

func (m *FM) MinCells() int { return 1 }

func (m *FM) TrackBase() int { return 0 }

func (m *FM) AddressMarkPatterns() []types.MarkPattern { return fmMarkPatterns }

func (m *FM) SeparateClockData(cells uint16) (byte, byte) { return SeparateClockData(cells) }

func (m *FM) IDBlockSize() int { return idBlockSize }

func (m *FM) BlockOverheadSize() int { return fmBlockOverhead }

func (m *FM) NewFramer() interfaces.Framer {
	return &fmFramer{}
}

// DecodeID checks the CRC over mark, track, head, sector and size code
func (m *FM) DecodeID(block []byte) (types.SectorID, bool) {
	return decodeCRCID(block, nil)
}

// DecodeData checks the CRC over mark and payload
func (m *FM) DecodeData(block []byte, _ *types.SectorID) ([]byte, bool) {
	return decodeCRCData(block, nil)
}

// decodeCRCID parses a 7-byte ID block whose CRC covers prefix and the first five bytes
func decodeCRCID(block, prefix []byte) (types.SectorID, bool) {
	if len(block) != idBlockSize {
		return types.SectorID{}, false
	}

	id := types.SectorID{
		Track:    int(block[1]),
		Head:     int(block[2]),
		Sector:   int(block[3]),
		SizeCode: block[4],
		Quality:  types.QualityGood,
	}

	if CRC16(prefix, block[:5]) != binary.BigEndian.Uint16(block[5:7]) {
		id.Quality = types.QualityBad
		return id, false
	}
	return id, true
}

// decodeCRCData returns the payload of a mark+payload+CRC block and whether the CRC matched
func decodeCRCData(block, prefix []byte) ([]byte, bool) {
	if len(block) < fmBlockOverhead {
		return nil, false
	}

	end := len(block) - 2
	payload := make([]byte, end-1)
	copy(payload, block[1:end])

	return payload, CRC16(prefix, block[:end]) == binary.BigEndian.Uint16(block[end:])
}

// fmFramer finds clock/data marks on every cell and frames bytes every 16 cells
// once locked.
type fmFramer struct {
	reg    uint16
	locked bool
	bits   int
}

func (f *fmFramer) Shift(cell byte) (types.Symbol, bool) {
	f.reg = f.reg<<1 | uint16(cell&1)

	for _, p := range fmMarkPatterns {
		if uint32(f.reg) == p.Pattern {
			f.locked = true
			f.bits = 0
			return types.Symbol{Kind: types.SymbolMark, Mark: p.Mark, Value: p.Value}, true
		}
	}

	if !f.locked {
		return types.Symbol{}, false
	}

	f.bits++
	if f.bits < 16 {
		return types.Symbol{}, false
	}
	f.bits = 0

	clock, data := SeparateClockData(f.reg)
	if clock == 0xFF && data == 0xFF {
		return types.Symbol{Kind: types.SymbolGap, Value: data}, true
	}
	return types.Symbol{Kind: types.SymbolByte, Value: data}, true
}

func (f *fmFramer) Unlock() {
	f.locked = false
	f.bits = 0
}
