package types

import "fmt"

// AddressMark is the kind of block an address mark introduces.
type AddressMark int

const (
	MarkNone AddressMark = iota
	MarkIndex
	MarkID
	MarkData
	MarkDeletedData
)

// String returns a short name for the mark
func (m AddressMark) String() string {
	switch m {
	case MarkIndex:
		return "index"
	case MarkID:
		return "id"
	case MarkData:
		return "data"
	case MarkDeletedData:
		return "deleted"
	default:
		return "none"
	}
}

// IsData reports whether the mark introduces a data block, deleted or not
func (m AddressMark) IsData() bool {
	return m == MarkData || m == MarkDeletedData
}

// Quality is the CRC verdict of a block. Ordering is significant: a higher
// value always wins when sectors are reconciled.
type Quality int

const (
	QualityAbsent Quality = iota
	QualityBad
	QualityGood
)

// String returns a short name for the quality
func (q Quality) String() string {
	switch q {
	case QualityBad:
		return "bad"
	case QualityGood:
		return "good"
	default:
		return "absent"
	}
}

// Sector size codes
const (
	// MaxSizeCode is the largest size code trusted from an ID block
	MaxSizeCode = 3

	// FallbackSizeCode replaces untrusted size codes and addresses orphan data blocks
	FallbackSizeCode = 1
)

// SectorBytes returns the payload length for a size code (128 << code)
func SectorBytes(sizeCode uint8) int {
	return 128 << sizeCode
}

// PhysicalAddress locates a sector by the mechanism position and the ID sector number.
type PhysicalAddress struct {
	Track  int
	Head   int
	Sector int
}

// String returns "track/head/sector"
func (a PhysicalAddress) String() string {
	return fmt.Sprintf("%d/%d/%d", a.Track, a.Head, a.Sector)
}

// LogicalAddress is the address recorded inside the ID block.
type LogicalAddress struct {
	Track    int
	Head     int
	Sector   int
	SizeCode uint8
}

// String returns "track/head/sector:size"
func (a LogicalAddress) String() string {
	return fmt.Sprintf("%d/%d/%d:%d", a.Track, a.Head, a.Sector, SectorBytes(a.SizeCode))
}

// SectorID is a validated ID block waiting for its data block.
type SectorID struct {
	Track    int
	Head     int
	Sector   int
	SizeCode uint8

	// LowConfidence is set when the recorded size code was replaced
	LowConfidence bool

	// Quality of the ID block CRC
	Quality Quality

	// DataChecksum is carried by schemes that store the data checksum in the header
	DataChecksum uint32

	// Position is the sample offset of the ID mark within the track
	Position int64
}

// Sector is a decoded sector. It is never mutated once handed to the store.
type Sector struct {
	Physical PhysicalAddress
	Logical  LogicalAddress

	IDQuality   Quality
	DataQuality Quality

	Modulation    Modulation
	Deleted       bool
	TrackMismatch bool
	LowConfidence bool

	// Sample offsets of the ID and data marks and the sample length of the track
	IDPosition   int64
	DataPosition int64
	TrackLength  int64

	Data []byte
}

// Good reports whether both ID and data CRCs were verified
func (s *Sector) Good() bool {
	return s.IDQuality == QualityGood && s.DataQuality == QualityGood
}

// String returns a one-line description of the sector
func (s *Sector) String() string {
	return fmt.Sprintf("%s %s [%s] id=%s data=%s", s.Physical, s.Logical, s.Modulation, s.IDQuality, s.DataQuality)
}

// SymbolKind classifies the framing output of a modulation.
type SymbolKind int

const (
	SymbolByte SymbolKind = iota
	SymbolMark
	SymbolGap
)

// Symbol is one framed unit emitted by a modulation: an address mark, a data
// byte or a gap byte.
type Symbol struct {
	Kind SymbolKind

	// Mark is set for SymbolMark
	Mark AddressMark

	// Value is the decoded byte, or the mark byte for SymbolMark
	Value byte

	// Invalid flags a byte that could not be decoded (illegal code group)
	Invalid bool
}

// MarkPattern is an encoded address mark as it appears in the cell stream.
type MarkPattern struct {
	Mark    AddressMark
	Pattern uint32
	Cells   int
	Value   byte
}
