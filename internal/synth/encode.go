package synth

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-fluxdisk/internal/parsers/bitstream"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

// Sector describes one sector to lay down on a synthetic track.
type Sector struct {
	Track    int
	Head     int
	Sector   int
	SizeCode uint8
	Data     []byte

	Deleted    bool
	BadIDCRC   bool
	BadDataCRC bool
	OmitData   bool
}

// Track describes a synthetic track capture.
type Track struct {
	Modulation types.Modulation
	SampleRate int

	// CellMicros overrides the nominal cell width of the modulation
	CellMicros float64

	// Speed scales the cell width, 1.0 is nominal
	Speed float64

	// Index writes an index address mark before the first sector
	Index bool

	// DiskID is written into Commodore headers
	DiskID [2]byte

	// Volume is written into Apple address fields
	Volume byte

	Sectors []Sector
}

// DefaultCellMicros returns the nominal cell width of a modulation in microseconds
func DefaultCellMicros(m types.Modulation) float64 {
	switch m {
	case types.ModulationFM, types.ModulationGCR, types.ModulationAppleGCR:
		return 4
	default:
		return 2
	}
}

// Encode lays the sectors down in the track's modulation and renders the
// resulting cell stream into flux samples.
func Encode(t Track) ([]byte, error) {
	cells, err := EncodeCells(t)
	if err != nil {
		return nil, err
	}

	rate := t.SampleRate
	if rate == 0 {
		rate = types.DefaultSampleRate
	}
	micros := t.CellMicros
	if micros == 0 {
		micros = DefaultCellMicros(t.Modulation)
	}
	cellSamples := micros * float64(rate) / types.MicrosPerSecond

	return Render(cells, cellSamples, t.Speed), nil
}

// EncodeCells returns the cell stream of the track without rendering it
func EncodeCells(t Track) ([]byte, error) {
	w := &CellWriter{}

	switch t.Modulation {
	case types.ModulationFM:
		encodeFM(w, t)
	case types.ModulationMFM:
		encodeMFM(w, t)
	case types.ModulationAmigaMFM:
		encodeAmiga(w, t)
	case types.ModulationGCR:
		encodeGCR(w, t)
	case types.ModulationAppleGCR:
		encodeApple(w, t)
	default:
		return nil, fmt.Errorf("unsupported modulation %s", t.Modulation)
	}

	return w.Cells(), nil
}

// sectorBytes mirrors the decoder: untrusted size codes are written as 256 bytes
func sectorBytes(code uint8) int {
	if code > types.MaxSizeCode {
		return types.SectorBytes(types.FallbackSizeCode)
	}
	return types.SectorBytes(code)
}

func payload(s Sector, size int) []byte {
	data := make([]byte, size)
	copy(data, s.Data)
	return data
}

func putCRC(block []byte, crc uint16, corrupt bool) []byte {
	if corrupt {
		crc ^= 0xFFFF
	}
	return binary.BigEndian.AppendUint16(block, crc)
}

func encodeFM(w *CellWriter, t Track) {
	fill := func(clock, data byte, n int) {
		for i := 0; i < n; i++ {
			w.FMByte(clock, data)
		}
	}

	fill(0xFF, 0xFF, 40)
	if t.Index {
		fill(0xFF, 0x00, 6)
		w.FMByte(0xD7, 0xFC)
		fill(0xFF, 0xFF, 26)
	}

	for _, s := range t.Sectors {
		fill(0xFF, 0x00, 6)
		id := []byte{0xFE, byte(s.Track), byte(s.Head), byte(s.Sector), s.SizeCode}
		id = putCRC(id, bitstream.CRC16(id), s.BadIDCRC)
		w.FMByte(0xC7, id[0])
		for _, b := range id[1:] {
			w.FMByte(0xFF, b)
		}

		fill(0xFF, 0xFF, 11)
		if !s.OmitData {
			fill(0xFF, 0x00, 6)
			mark := byte(0xFB)
			if s.Deleted {
				mark = 0xF8
			}
			block := append([]byte{mark}, payload(s, sectorBytes(s.SizeCode))...)
			block = putCRC(block, bitstream.CRC16(block), s.BadDataCRC)
			w.FMByte(0xC7, block[0])
			for _, b := range block[1:] {
				w.FMByte(0xFF, b)
			}
		}
		fill(0xFF, 0xFF, 27)
	}
	fill(0xFF, 0xFF, 40)
}

func encodeMFM(w *CellWriter, t Track) {
	fill := func(data byte, n int) {
		for i := 0; i < n; i++ {
			w.MFMByte(data)
		}
	}
	a1 := []byte{0xA1, 0xA1, 0xA1}

	fill(0x4E, 80)
	if t.Index {
		fill(0x00, 12)
		for i := 0; i < 3; i++ {
			w.MFMSync(0x5224)
		}
		w.MFMByte(0xFC)
		fill(0x4E, 50)
	}

	for _, s := range t.Sectors {
		fill(0x00, 12)
		for i := 0; i < 3; i++ {
			w.MFMSync(0x4489)
		}
		id := []byte{0xFE, byte(s.Track), byte(s.Head), byte(s.Sector), s.SizeCode}
		id = putCRC(id, bitstream.CRC16(a1, id), s.BadIDCRC)
		for _, b := range id {
			w.MFMByte(b)
		}

		fill(0x4E, 22)
		if !s.OmitData {
			fill(0x00, 12)
			for i := 0; i < 3; i++ {
				w.MFMSync(0x4489)
			}
			mark := byte(0xFB)
			if s.Deleted {
				mark = 0xF8
			}
			block := append([]byte{mark}, payload(s, sectorBytes(s.SizeCode))...)
			block = putCRC(block, bitstream.CRC16(a1, block), s.BadDataCRC)
			for _, b := range block {
				w.MFMByte(b)
			}
		}
		fill(0x4E, 54)
	}
	fill(0x4E, 100)
}

// compressWord gathers the even-position bits of v into a 16-bit word
func compressWord(v uint32) uint16 {
	var out uint16
	for i := 0; i < 16; i++ {
		if v&(1<<(2*i)) != 0 {
			out |= 1 << i
		}
	}
	return out
}

func appendLong(dst []byte, v uint32) []byte {
	dst = binary.BigEndian.AppendUint16(dst, compressWord(v>>1))
	return binary.BigEndian.AppendUint16(dst, compressWord(v))
}

func xorWords(data []byte) uint32 {
	var sum uint16
	for i := 0; i+1 < len(data); i += 2 {
		sum ^= binary.BigEndian.Uint16(data[i:])
	}
	var out uint32
	for i := 0; i < 16; i++ {
		if sum&(1<<i) != 0 {
			out |= 1 << (2 * i)
		}
	}
	return out
}

func encodeAmiga(w *CellWriter, t Track) {
	for i := 0; i < 60; i++ {
		w.MFMByte(0x00)
	}

	for i, s := range t.Sectors {
		data := payload(s, 512)

		var odd, even []byte
		for k := 0; k < 128; k++ {
			long := binary.BigEndian.Uint32(data[4*k:])
			odd = binary.BigEndian.AppendUint16(odd, compressWord(long>>1))
			even = binary.BigEndian.AppendUint16(even, compressWord(long))
		}
		body := append(odd, even...)

		info := uint32(0xFF)<<24 | uint32(s.Track*2+s.Head)<<16 | uint32(s.Sector)<<8 | uint32(len(t.Sectors)-i)
		hdr := appendLong(nil, info)
		hdr = append(hdr, make([]byte, 16)...)

		hdrSum := xorWords(hdr)
		if s.BadIDCRC {
			hdrSum ^= 0x1
		}
		dataSum := xorWords(body)
		if s.BadDataCRC {
			dataSum ^= 0x1
		}
		hdr = appendLong(hdr, hdrSum)
		hdr = appendLong(hdr, dataSum)

		w.MFMByte(0x00)
		w.MFMByte(0x00)
		w.MFMSync(0x4489)
		w.MFMSync(0x4489)
		for _, b := range hdr {
			w.MFMByte(b)
		}
		for _, b := range body {
			w.MFMByte(b)
		}
	}

	for i := 0; i < 100; i++ {
		w.MFMByte(0x00)
	}
}

func encodeGCR(w *CellWriter, t Track) {
	sync := func() {
		w.Raw(0xFFFFFFFF, 32)
		w.Raw(0xFF, 8)
	}
	gap := func(n int) {
		for i := 0; i < n; i++ {
			w.Raw(0x55, 8)
		}
	}

	gap(20)
	for _, s := range t.Sectors {
		sum := byte(s.Sector) ^ byte(s.Track) ^ t.DiskID[1] ^ t.DiskID[0]
		if s.BadIDCRC {
			sum ^= 0xFF
		}
		sync()
		for _, b := range []byte{0x08, sum, byte(s.Sector), byte(s.Track), t.DiskID[1], t.DiskID[0], 0x0F, 0x0F} {
			w.GCRByte(b)
		}
		gap(9)

		if !s.OmitData {
			data := payload(s, 256)
			check := bitstream.XOR8(data)
			if s.BadDataCRC {
				check ^= 0xFF
			}
			sync()
			w.GCRByte(0x07)
			for _, b := range data {
				w.GCRByte(b)
			}
			w.GCRByte(check)
			w.GCRByte(0x00)
			w.GCRByte(0x00)
		}
		gap(8)
	}
	gap(20)
}

func encodeApple(w *CellWriter, t Track) {
	epilogue := func() {
		w.Nibble(0xDE)
		w.Nibble(0xAA)
		w.Nibble(0xEB)
	}

	w.SelfSync(40)
	for _, s := range t.Sectors {
		check := t.Volume ^ byte(s.Track) ^ byte(s.Sector)
		if s.BadIDCRC {
			check ^= 0xFF
		}

		w.Nibble(0xD5)
		w.Nibble(0xAA)
		w.Nibble(0x96)
		for _, v := range []byte{t.Volume, byte(s.Track), byte(s.Sector), check} {
			odd, even := bitstream.Encode44(v)
			w.Nibble(odd)
			w.Nibble(even)
		}
		epilogue()
		w.SelfSync(6)

		if !s.OmitData {
			nibbles := bitstream.Nibblize62(payload(s, 256))
			if s.BadDataCRC {
				last := len(nibbles) - 1
				if nibbles[last] == bitstream.Nibble62[0] {
					nibbles[last] = bitstream.Nibble62[1]
				} else {
					nibbles[last] = bitstream.Nibble62[0]
				}
			}
			w.Nibble(0xD5)
			w.Nibble(0xAA)
			w.Nibble(0xAD)
			for _, n := range nibbles {
				w.Nibble(n)
			}
			epilogue()
		}
		w.SelfSync(20)
	}
}
