package synth

import (
	"math"

	"github.com/deploymenttheory/go-fluxdisk/internal/parsers/bitstream"
)

// CellWriter accumulates a cell stream (1 = flux transition) for a track.
type CellWriter struct {
	cells    []byte
	lastData byte
}

// Cells returns the written cells
func (w *CellWriter) Cells() []byte {
	return w.cells
}

// Raw appends the low n bits of pattern, MSB first
func (w *CellWriter) Raw(pattern uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		w.cells = append(w.cells, byte(pattern>>i)&1)
	}
}

// FMByte appends a byte with an explicit clock byte
func (w *CellWriter) FMByte(clock, data byte) {
	for i := 7; i >= 0; i-- {
		w.cells = append(w.cells, (clock>>i)&1, (data>>i)&1)
	}
}

// MFMByte appends a byte with clock bits set between consecutive zero data bits
func (w *CellWriter) MFMByte(data byte) {
	for i := 7; i >= 0; i-- {
		bit := (data >> i) & 1
		var clock byte
		if bit == 0 && w.lastData == 0 {
			clock = 1
		}
		w.cells = append(w.cells, clock, bit)
		w.lastData = bit
	}
}

// MFMSync appends a raw sync word, remembering the last data bit it carries
func (w *CellWriter) MFMSync(word uint16) {
	w.Raw(uint32(word), 16)
	w.lastData = byte(word & 1)
}

// GCRByte appends a byte as two 5-bit groups
func (w *CellWriter) GCRByte(b byte) {
	w.Raw(uint32(bitstream.GCREncode[b>>4]), 5)
	w.Raw(uint32(bitstream.GCREncode[b&0x0F]), 5)
}

// Nibble appends an Apple disk nibble
func (w *CellWriter) Nibble(n byte) {
	w.Raw(uint32(n), 8)
}

// SelfSync appends Apple self-sync nibbles (FF followed by two zero cells)
func (w *CellWriter) SelfSync(count int) {
	for i := 0; i < count; i++ {
		w.Raw(0x3FC, 10)
	}
}

// Render converts cells into an MSB-first sample stream with cellSamples
// sample periods per cell. Each transition becomes a one-sample pulse. speed
// scales every cell to model a drive running fast or slow.
func Render(cells []byte, cellSamples, speed float64) []byte {
	if speed <= 0 {
		speed = 1
	}
	width := cellSamples * speed

	// lead-in and lead-out of a few cells without transitions
	total := int(math.Ceil(float64(len(cells)+8)*width)) + 16
	out := make([]byte, (total+7)/8)

	t := 4 * width
	for _, c := range cells {
		t += width
		if c == 0 {
			continue
		}
		pos := int(t + 0.5)
		if pos/8 < len(out) {
			out[pos/8] |= 0x80 >> (pos % 8)
		}
	}
	return out
}
