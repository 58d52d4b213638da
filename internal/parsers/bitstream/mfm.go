package bitstream

import (
	"github.com/deploymenttheory/go-fluxdisk/internal/interfaces"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

// MFM sync words: A1 and C2 with a missing clock bit
const (
	mfmSyncA1 = 0x4489
	mfmSyncC2 = 0x5224

	// mfmGapByte fills the gaps between blocks
	mfmGapByte = 0x4E
)

// mfmSyncPrefix is folded into every MFM CRC
var mfmSyncPrefix = []byte{0xA1, 0xA1, 0xA1}

var mfmMarkPatterns = []types.MarkPattern{
	{Mark: types.MarkIndex, Pattern: mfmSyncC2, Cells: 16, Value: 0xFC},
	{Mark: types.MarkID, Pattern: mfmSyncA1, Cells: 16, Value: 0xFE},
	{Mark: types.MarkData, Pattern: mfmSyncA1, Cells: 16, Value: 0xFB},
	{Mark: types.MarkDeletedData, Pattern: mfmSyncA1, Cells: 16, Value: 0xF8},
}

// MFM is double/high/extra density modified frequency modulation with IBM framing.
type MFM struct{}

// NewMFM returns the MFM modulation
func NewMFM() *MFM {
	return &MFM{}
}

func (m *MFM) Kind() types.Modulation { return types.ModulationMFM }

func (m *MFM) MinCells() int { return 2 }

func (m *MFM) TrackBase() int { return 0 }

func (m *MFM) AddressMarkPatterns() []types.MarkPattern { return mfmMarkPatterns }

func (m *MFM) SeparateClockData(cells uint16) (byte, byte) { return SeparateClockData(cells) }

func (m *MFM) IDBlockSize() int { return idBlockSize }

func (m *MFM) BlockOverheadSize() int { return fmBlockOverhead }

func (m *MFM) NewFramer() interfaces.Framer {
	return &mfmFramer{}
}

// DecodeID checks the CRC over the three sync bytes, mark and address
func (m *MFM) DecodeID(block []byte) (types.SectorID, bool) {
	return decodeCRCID(block, mfmSyncPrefix)
}

// DecodeData checks the CRC over the three sync bytes, mark and payload
func (m *MFM) DecodeData(block []byte, _ *types.SectorID) ([]byte, bool) {
	return decodeCRCData(block, mfmSyncPrefix)
}

// mfmFramer locks on sync words and turns the byte following a run of syncs
// into an address mark.
type mfmFramer struct {
	reg    uint16
	locked bool
	bits   int
	sync   uint16
	syncs  int
}

func (f *mfmFramer) Shift(cell byte) (types.Symbol, bool) {
	f.reg = f.reg<<1 | uint16(cell&1)

	if f.reg == mfmSyncA1 || f.reg == mfmSyncC2 {
		if f.reg != f.sync {
			f.syncs = 0
		}
		f.sync = f.reg
		f.syncs++
		f.locked = true
		f.bits = 0
		return types.Symbol{}, false
	}

	if !f.locked {
		return types.Symbol{}, false
	}

	f.bits++
	if f.bits < 16 {
		return types.Symbol{}, false
	}
	f.bits = 0

	_, data := SeparateClockData(f.reg)

	if f.syncs > 0 {
		sync := f.sync
		f.syncs = 0
		f.sync = 0

		for _, p := range mfmMarkPatterns {
			if uint32(sync) == p.Pattern && data == p.Value {
				return types.Symbol{Kind: types.SymbolMark, Mark: p.Mark, Value: data}, true
			}
		}
		f.locked = false
		return types.Symbol{}, false
	}

	if data == mfmGapByte {
		return types.Symbol{Kind: types.SymbolGap, Value: data}, true
	}
	return types.Symbol{Kind: types.SymbolByte, Value: data}, true
}

func (f *mfmFramer) Unlock() {
	f.locked = false
	f.bits = 0
	f.syncs = 0
	f.sync = 0
}
