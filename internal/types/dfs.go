package types

// Acorn DFS catalogue constants
const (
	// DFSSectorSize is the byte length of a DFS sector
	DFSSectorSize = 256

	// DFSSectorsPerTrack is the number of sectors on a DFS track
	DFSSectorsPerTrack = 10

	// DFSMaxFiles is the number of catalogue slots in sectors 0 and 1
	DFSMaxFiles = 31

	// DFSMaxSectors bounds the sector count of an 80 track side
	DFSMaxSectors = 800
)

// DFSFile is one catalogue entry of an Acorn DFS disk.
type DFSFile struct {
	Name        string `json:"name" yaml:"name"`
	Directory   string `json:"directory" yaml:"directory"`
	Locked      bool   `json:"locked" yaml:"locked"`
	Load        uint32 `json:"load" yaml:"load"`
	Exec        uint32 `json:"exec" yaml:"exec"`
	Length      uint32 `json:"length" yaml:"length"`
	StartSector uint16 `json:"start_sector" yaml:"start_sector"`
}

// FullName returns "D.NAME"
func (f *DFSFile) FullName() string {
	return f.Directory + "." + f.Name
}

// DFSCatalogue is the decoded catalogue held in sectors 0 and 1 of track 0.
type DFSCatalogue struct {
	Title       string    `json:"title" yaml:"title"`
	WriteCycles uint8     `json:"write_cycles" yaml:"write_cycles"`
	BootOption  uint8     `json:"boot_option" yaml:"boot_option"`
	SectorCount uint16    `json:"sector_count" yaml:"sector_count"`
	Files       []DFSFile `json:"files" yaml:"files"`
}

// Geometry returns the image layout of a DFS disk with the given number of
// sides. Two sided images interleave the sides track by track.
func (c *DFSCatalogue) Geometry(sides int) Geometry {
	tracks := (int(c.SectorCount) + DFSSectorsPerTrack - 1) / DFSSectorsPerTrack
	return Geometry{
		Tracks:          tracks,
		Heads:           sides,
		SectorsPerTrack: DFSSectorsPerTrack,
		SectorSize:      DFSSectorSize,
		Interleaved:     sides > 1,
	}
}
