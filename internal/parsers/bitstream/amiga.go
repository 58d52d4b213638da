package bitstream

import (
	"encoding/binary"

	"github.com/deploymenttheory/go-fluxdisk/internal/interfaces"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

// Amiga sector layout, in data bytes after the double sync word
const (
	amigaSync        = 0x44894489
	amigaInfoOffset  = 0  // odd word, even word
	amigaLabelOffset = 4  // 4 odd words, 4 even words
	amigaHdrSum      = 20 // odd word, even word
	amigaDataSum     = 24 // odd word, even word
	amigaHeaderBytes = 28
	amigaSectorBytes = 512
	amigaFormatByte  = 0xFF
	amigaSizeCode    = 2
)

var amigaMarkPatterns = []types.MarkPattern{
	{Mark: types.MarkID, Pattern: amigaSync, Cells: 32},
	{Mark: types.MarkData, Pattern: amigaSync, Cells: 32},
}

// AmigaMFM is MFM with the trackdisk odd/even long layout.
type AmigaMFM struct{}

// NewAmigaMFM returns the Amiga MFM modulation
func NewAmigaMFM() *AmigaMFM {
	return &AmigaMFM{}
}

func (m *AmigaMFM) Kind() types.Modulation { return types.ModulationAmigaMFM }

func (m *AmigaMFM) MinCells() int { return 2 }

func (m *AmigaMFM) TrackBase() int { return 0 }

func (m *AmigaMFM) AddressMarkPatterns() []types.MarkPattern { return amigaMarkPatterns }

func (m *AmigaMFM) SeparateClockData(cells uint16) (byte, byte) { return SeparateClockData(cells) }

// IDBlockSize covers the placeholder mark byte and the 28 header bytes
func (m *AmigaMFM) IDBlockSize() int { return 1 + amigaHeaderBytes }

func (m *AmigaMFM) BlockOverheadSize() int { return 1 }

func (m *AmigaMFM) NewFramer() interfaces.Framer {
	return &amigaFramer{}
}

// spreadWord moves bit i of w to bit 2i
func spreadWord(w uint16) uint32 {
	var out uint32
	for i := 0; i < 16; i++ {
		if w&(1<<i) != 0 {
			out |= 1 << (2 * i)
		}
	}
	return out
}

// decodeLong joins the odd and even halves of a long
func decodeLong(odd, even []byte) uint32 {
	return spreadWord(binary.BigEndian.Uint16(odd))<<1 | spreadWord(binary.BigEndian.Uint16(even))
}

// amigaChecksum is the XOR of the encoded longs masked to their data bits
func amigaChecksum(words []byte) uint32 {
	var sum uint16
	for i := 0; i+1 < len(words); i += 2 {
		sum ^= binary.BigEndian.Uint16(words[i:])
	}
	return spreadWord(sum)
}

// DecodeID checks the header checksum and unpacks the info long
func (m *AmigaMFM) DecodeID(block []byte) (types.SectorID, bool) {
	if len(block) != m.IDBlockSize() {
		return types.SectorID{}, false
	}
	hdr := block[1:]

	info := decodeLong(hdr[amigaInfoOffset:], hdr[amigaInfoOffset+2:])
	trackHead := int((info >> 16) & 0xFF)

	id := types.SectorID{
		Track:        trackHead >> 1,
		Head:         trackHead & 1,
		Sector:       int((info >> 8) & 0xFF),
		SizeCode:     amigaSizeCode,
		Quality:      types.QualityGood,
		DataChecksum: decodeLong(hdr[amigaDataSum:], hdr[amigaDataSum+2:]),
	}

	stored := decodeLong(hdr[amigaHdrSum:], hdr[amigaHdrSum+2:])
	if info>>24 != amigaFormatByte || amigaChecksum(hdr[:amigaHdrSum]) != stored {
		id.Quality = types.QualityBad
		return id, false
	}
	return id, true
}

// DecodeData joins the odd and even halves of the payload and checks them
// against the data checksum carried by the header
func (m *AmigaMFM) DecodeData(block []byte, id *types.SectorID) ([]byte, bool) {
	if len(block) != 1+amigaSectorBytes {
		return nil, false
	}
	raw := block[1:]
	odd := raw[:amigaSectorBytes/2]
	even := raw[amigaSectorBytes/2:]

	payload := make([]byte, amigaSectorBytes)
	for k := 0; k < amigaSectorBytes/4; k++ {
		binary.BigEndian.PutUint32(payload[4*k:], decodeLong(odd[2*k:], even[2*k:]))
	}

	if id == nil {
		return payload, false
	}
	return payload, amigaChecksum(raw) == id.DataChecksum
}

// amigaFramer locks on the double sync word, frames 16-cell data bytes and
// emits a data mark once the header has been read.
type amigaFramer struct {
	reg         uint32
	locked      bool
	bits        int
	count       int
	pendingData bool
}

func (f *amigaFramer) Shift(cell byte) (types.Symbol, bool) {
	f.reg = f.reg<<1 | uint32(cell&1)

	if f.reg == amigaSync {
		f.locked = true
		f.bits = 0
		f.count = 0
		f.pendingData = false
		return types.Symbol{Kind: types.SymbolMark, Mark: types.MarkID}, true
	}

	if !f.locked {
		return types.Symbol{}, false
	}

	f.bits++
	if f.pendingData {
		f.pendingData = false
		return types.Symbol{Kind: types.SymbolMark, Mark: types.MarkData}, true
	}
	if f.bits < 16 {
		return types.Symbol{}, false
	}
	f.bits = 0

	clock, data := SeparateClockData(uint16(f.reg))
	f.count++
	if f.count == amigaHeaderBytes {
		f.pendingData = true
	}

	if clock == 0xFF && data == 0x00 {
		return types.Symbol{Kind: types.SymbolGap, Value: data}, true
	}
	return types.Symbol{Kind: types.SymbolByte, Value: data}, true
}

func (f *amigaFramer) Unlock() {
	f.locked = false
	f.bits = 0
	f.pendingData = false
}
