// File: internal/interfaces/modulation.go
package interfaces

import "github.com/deploymenttheory/go-fluxdisk/internal/types"

// Modulation is one bit-cell encoding scheme: framing, clock/data separation and block validation
type Modulation interface {
	// Kind returns the modulation identifier
	Kind() types.Modulation

	// MinCells returns the shortest transition spacing of the scheme in cells
	MinCells() int

	// TrackBase returns the number recorded in ID blocks for drive track 0
	TrackBase() int

	// AddressMarkPatterns returns the encoded address marks searched for in the cell stream
	AddressMarkPatterns() []types.MarkPattern

	// SeparateClockData splits a 16-cell window into its clock and data bytes
	SeparateClockData(cells uint16) (clock, data byte)

	// IDBlockSize returns the length of an ID block including its mark byte
	IDBlockSize() int

	// BlockOverheadSize returns the bytes of a data block that are not payload
	BlockOverheadSize() int

	// NewFramer returns a fresh framer for one decoding session
	NewFramer() Framer

	// DecodeID validates an ID block and returns the address it carries
	DecodeID(block []byte) (types.SectorID, bool)

	// DecodeData validates a data block against its header and returns the payload
	DecodeData(block []byte, id *types.SectorID) ([]byte, bool)
}

// Framer turns a cell stream into symbols
type Framer interface {
	// Shift feeds one cell and returns a symbol when one completes
	Shift(cell byte) (types.Symbol, bool)

	// Unlock drops byte synchronisation and any partial mark state
	Unlock()
}

// CellClock converts flux intervals in samples into cell counts
type CellClock interface {
	// Cells returns the number of cells spanned by the interval, the last one holding the transition
	Cells(interval int) int

	// Reset restores the nominal cell width
	Reset()
}
