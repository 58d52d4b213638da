package types

import (
	"fmt"
	"strings"
	"time"
)

// ADFS on-disk constants
const (
	// OldMapSectorSize is the byte length of each half of the old free space map
	OldMapSectorSize = 256

	// OldMapEntries is the number of 3-byte free space entries in each half
	OldMapEntries = 82

	// Old map field offsets within the 512-byte sniff buffer (sectors 0 and 1)
	OldMapFreeStart = 0x000
	OldMapReserved  = 0x0F6
	OldMapName0     = 0x0F7
	OldMapSize      = 0x0FC
	OldMapCheck0    = 0x0FF
	OldMapFreeLen   = 0x100
	OldMapName1     = 0x1F6
	OldMapDiscID    = 0x1FB
	OldMapBoot      = 0x1FD
	OldMapFreeEnd   = 0x1FE
	OldMapCheck1    = 0x1FF

	// OldMapFreeMask flags bits that must be clear in every 24-bit free space entry
	OldMapFreeMask = 0xE00000

	// DiscRecordOffset is the offset of the disc record inside zone 0 of a new map
	DiscRecordOffset = 4

	// DiscRecordSize is the byte length of a disc record
	DiscRecordSize = 60

	// DirEntrySize is the byte length of one directory entry
	DirEntrySize = 26

	// Directory header length: master sequence number and four-byte name
	DirHeaderSize = 5

	OldDirEntries  = 47
	OldDirSize     = 1280
	OldDirTailSize = 53

	NewDirEntries  = 77
	NewDirSize     = 2048
	NewDirTailSize = 41

	// Directory signatures
	OldDirName = "Hugo"
	NewDirName = "Nick"

	// StampedMask selects the load address bits that mark a filetype/date stamped file
	StampedMask = 0xFFF00000

	// RiscOSEpochOffset is the number of seconds between 1900-01-01 and 1970-01-01
	RiscOSEpochOffset = 2208988800
)

// ADFS attribute bits
const (
	AttrOwnerRead   uint8 = 0x01
	AttrOwnerWrite  uint8 = 0x02
	AttrLocked      uint8 = 0x04
	AttrDirectory   uint8 = 0x08
	AttrExecuteOnly uint8 = 0x10
	AttrPublicRead  uint8 = 0x20
	AttrPublicWrite uint8 = 0x40
)

// oldDirAttrLetters names attribute bits 0 to 6
const oldDirAttrLetters = "RWLDErw"

// AttributeString renders attribute bits as the usual "DLWR/wr" letters
func AttributeString(attrs uint8) string {
	var sb strings.Builder
	for i := 0; i < len(oldDirAttrLetters); i++ {
		if attrs&(1<<i) != 0 {
			sb.WriteByte(oldDirAttrLetters[i])
		}
	}
	return sb.String()
}

// ADFSFormat identifies an ADFS variant.
type ADFSFormat int

const (
	FormatUnknown ADFSFormat = iota
	FormatS
	FormatM
	FormatL
	FormatD
	FormatE
	FormatF
)

// String returns the single letter name of the format
func (f ADFSFormat) String() string {
	switch f {
	case FormatS:
		return "S"
	case FormatM:
		return "M"
	case FormatL:
		return "L"
	case FormatD:
		return "D"
	case FormatE:
		return "E"
	case FormatF:
		return "F"
	default:
		return "unknown"
	}
}

// FormatGeometry describes the layout and root location of an ADFS format
type FormatGeometry struct {
	Format          ADFSFormat
	NewMap          bool
	NewDir          bool
	SectorSize      int
	SectorsPerTrack int
	Heads           int
	Tracks          int

	// RootOffset is the byte offset of the root directory for fixed-root formats
	RootOffset int64
}

// Geometry returns the linear image geometry with heads interleaved by track
func (g FormatGeometry) Geometry() Geometry {
	return Geometry{
		Tracks:          g.Tracks,
		Heads:           g.Heads,
		SectorsPerTrack: g.SectorsPerTrack,
		SectorSize:      g.SectorSize,
		Interleaved:     true,
	}
}

// DirSize returns the byte length of a directory in this format
func (g FormatGeometry) DirSize() int {
	if g.NewDir {
		return NewDirSize
	}
	return OldDirSize
}

// FormatGeometries holds the known ADFS variants
var FormatGeometries = map[ADFSFormat]FormatGeometry{
	FormatS: {Format: FormatS, SectorSize: 256, SectorsPerTrack: 16, Heads: 1, Tracks: 40, RootOffset: 0x200},
	FormatM: {Format: FormatM, SectorSize: 256, SectorsPerTrack: 16, Heads: 1, Tracks: 80, RootOffset: 0x200},
	FormatL: {Format: FormatL, SectorSize: 256, SectorsPerTrack: 16, Heads: 2, Tracks: 80, RootOffset: 0x200},
	FormatD: {Format: FormatD, NewDir: true, SectorSize: 1024, SectorsPerTrack: 5, Heads: 2, Tracks: 80, RootOffset: 0x400},
	FormatE: {Format: FormatE, NewMap: true, NewDir: true, SectorSize: 1024, SectorsPerTrack: 5, Heads: 2, Tracks: 80},
	FormatF: {Format: FormatF, NewMap: true, NewDir: true, SectorSize: 1024, SectorsPerTrack: 10, Heads: 2, Tracks: 80},
}

// OldMapSectorCounts maps the old map total sector count onto a format
var OldMapSectorCounts = map[uint32]ADFSFormat{
	640:  FormatS,
	1280: FormatM,
	2560: FormatL,
	3200: FormatD,
}

// OldMap is the decoded old-style free space map held in sectors 0 and 1.
type OldMap struct {
	FreeStart   [OldMapEntries]uint32
	FreeLength  [OldMapEntries]uint32
	Title       string
	SectorCount uint32
	DiscID      uint16
	BootOption  uint8
	FreeEnd     uint8
	Check0      uint8
	Check1      uint8
}

// FreeEntries returns the number of populated free space entries
func (m *OldMap) FreeEntries() int {
	return int(m.FreeEnd) / 3
}

// FreeSectors sums the populated free space lengths
func (m *OldMap) FreeSectors() uint32 {
	var total uint32
	for i := 0; i < m.FreeEntries() && i < OldMapEntries; i++ {
		total += m.FreeLength[i]
	}
	return total
}

// DiscRecord is the new map disc record held at offset 4 of zone 0.
type DiscRecord struct {
	Log2SecSize   uint8
	SecsPerTrack  uint8
	Heads         uint8
	Density       uint8
	IDLen         uint8
	Log2BPMB      uint8
	Skew          uint8
	BootOption    uint8
	LowSector     uint8
	NZones        uint8
	ZoneSpare     uint16
	Root          uint32
	DiscSize      uint32
	DiscID        uint16
	DiscName      [10]byte
	DiscType      uint32
	DiscSizeHigh  uint32
	Log2ShareSize uint8
	BigFlag       uint8
	NZonesHigh    uint8
	Reserved      uint8
	FormatVersion uint32
	RootSize      uint32
	Reserved2     [8]byte
}

// Zones returns the total zone count including the high byte used by big discs
func (d *DiscRecord) Zones() int {
	return int(d.NZones) | int(d.NZonesHigh)<<8
}

// SectorSize returns 1 << Log2SecSize
func (d *DiscRecord) SectorSize() int {
	return 1 << d.Log2SecSize
}

// Size returns the disc size in bytes
func (d *DiscRecord) Size() int64 {
	return int64(d.DiscSize) | int64(d.DiscSizeHigh)<<32
}

// RawDirEntry is a 26-byte directory entry as stored on disk.
type RawDirEntry struct {
	Name       [10]byte
	Load       uint32
	Exec       uint32
	Length     uint32
	IndAddress [3]byte
	Attributes uint8
}

// OldDirTail closes a "Hugo" directory.
type OldDirTail struct {
	LastMark  uint8
	Name      [10]byte
	Parent    [3]byte
	Title     [19]byte
	Reserved  [14]byte
	EndMasSeq uint8
	EndName   [4]byte
	CheckByte uint8
}

// NewDirTail closes a "Nick" directory.
type NewDirTail struct {
	LastMark  uint8
	Reserved  [2]byte
	Parent    [3]byte
	Title     [19]byte
	Name      [10]byte
	EndMasSeq uint8
	EndName   [4]byte
	CheckByte uint8
}

// DirectoryEntry is a decoded catalogue entry; directories carry their children.
type DirectoryEntry struct {
	Name            string     `json:"name" yaml:"name"`
	Attributes      uint8      `json:"attributes" yaml:"attributes"`
	Load            uint32     `json:"load" yaml:"load"`
	Exec            uint32     `json:"exec" yaml:"exec"`
	Length          uint32     `json:"length" yaml:"length"`
	IndirectAddress uint32     `json:"indirect_address" yaml:"indirect_address"`
	Sequence        uint8      `json:"sequence" yaml:"sequence"`
	Stamped         bool       `json:"stamped" yaml:"stamped"`
	FileType        uint16     `json:"filetype,omitempty" yaml:"filetype,omitempty"`
	Timestamp       *time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Directory       *Directory `json:"directory,omitempty" yaml:"directory,omitempty"`
	Error           string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// IsDir reports whether the entry has the directory attribute
func (e *DirectoryEntry) IsDir() bool {
	return e.Attributes&AttrDirectory != 0
}

// AttributeString renders the entry attributes
func (e *DirectoryEntry) AttributeString() string {
	return AttributeString(e.Attributes)
}

// Describe returns the load/exec or filetype/date column for listings
func (e *DirectoryEntry) Describe() string {
	if e.Stamped {
		if e.Timestamp != nil {
			return fmt.Sprintf("%03X %s", e.FileType, e.Timestamp.Format("2006-01-02 15:04:05"))
		}
		return fmt.Sprintf("%03X", e.FileType)
	}
	return fmt.Sprintf("%08X %08X", e.Load, e.Exec)
}

// Directory is a decoded ADFS directory.
type Directory struct {
	Name      string            `json:"name" yaml:"name"`
	Title     string            `json:"title" yaml:"title"`
	Address   uint32            `json:"address" yaml:"address"`
	Parent    uint32            `json:"parent" yaml:"parent"`
	Sequence  uint8             `json:"sequence" yaml:"sequence"`
	NewFormat bool              `json:"new_format" yaml:"new_format"`
	Entries   []*DirectoryEntry `json:"entries" yaml:"entries"`
}

// Catalogue is the decoded filesystem of a disk: format, map summary and root directory.
type Catalogue struct {
	Format      string     `json:"format" yaml:"format"`
	Title       string     `json:"title" yaml:"title"`
	DiscID      uint16     `json:"disc_id" yaml:"disc_id"`
	BootOption  uint8      `json:"boot_option" yaml:"boot_option"`
	SectorCount uint32     `json:"sector_count" yaml:"sector_count"`
	FreeSectors uint32     `json:"free_sectors" yaml:"free_sectors"`
	Root        *Directory `json:"root,omitempty" yaml:"root,omitempty"`

	// DFS holds one catalogue per readable side
	DFS []*DFSCatalogue `json:"dfs,omitempty" yaml:"dfs,omitempty"`
}
