package dfs

import (
	"fmt"
	"strings"

	log "github.com/dsoprea/go-logging"
	"golang.org/x/text/encoding/charmap"

	"github.com/deploymenttheory/go-fluxdisk/internal/interfaces"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

var catalogueLogger = log.NewLogger("dfs.catalogue")

// BootOptionNames describes the *OPT 4 settings
var BootOptionNames = map[uint8]string{
	0: "None",
	1: "*LOAD !BOOT",
	2: "*RUN !BOOT",
	3: "*EXEC !BOOT",
}

// Read decodes the catalogue of one side from sectors 0 and 1 of track 0
func Read(loc interfaces.SectorLocator, head int) (*types.DFSCatalogue, error) {
	s0 := loc.FindByPhysical(0, head, 0)
	s1 := loc.FindByPhysical(0, head, 1)
	if s0 == nil || s1 == nil {
		return nil, fmt.Errorf("%w: catalogue sectors of head %d", types.ErrSectorMissing, head)
	}
	return Parse(s0.Data, s1.Data)
}

// Parse decodes and sanity checks a catalogue. Anything that cannot be a DFS
// catalogue is reported as ErrUnknownFormat.
func Parse(sector0, sector1 []byte) (*types.DFSCatalogue, error) {
	if len(sector0) != types.DFSSectorSize || len(sector1) != types.DFSSectorSize {
		return nil, fmt.Errorf("%w: catalogue sectors are %d and %d bytes", types.ErrUnknownFormat, len(sector0), len(sector1))
	}

	entries := sector1[5]
	if entries%8 != 0 || int(entries/8) > types.DFSMaxFiles {
		return nil, fmt.Errorf("%w: catalogue entry count byte 0x%02X", types.ErrUnknownFormat, entries)
	}

	cat := &types.DFSCatalogue{
		Title:       title(sector0[:8], sector1[:4]),
		WriteCycles: sector1[4],
		BootOption:  (sector1[6] >> 4) & 0x03,
		SectorCount: uint16(sector1[6]&0x03)<<8 | uint16(sector1[7]),
	}
	if cat.SectorCount < 2 || cat.SectorCount > types.DFSMaxSectors {
		return nil, fmt.Errorf("%w: disc size of %d sectors", types.ErrUnknownFormat, cat.SectorCount)
	}

	for i := 1; i <= int(entries/8); i++ {
		f, err := parseFile(sector0[i*8:i*8+8], sector1[i*8:i*8+8])
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", types.ErrUnknownFormat, i, err)
		}
		if f.StartSector < 2 || uint32(f.StartSector)+sectorsFor(f.Length) > uint32(cat.SectorCount) {
			return nil, fmt.Errorf("%w: entry %d occupies sectors beyond the disc", types.ErrUnknownFormat, i)
		}
		cat.Files = append(cat.Files, f)
	}

	catalogueLogger.Debugf(nil, "DFS catalogue %q with %d files on %d sectors", cat.Title, len(cat.Files), cat.SectorCount)
	return cat, nil
}

// parseFile decodes one name slot and its matching address slot
func parseFile(name, addr []byte) (types.DFSFile, error) {
	f := types.DFSFile{
		Directory: string(rune(name[7] & 0x7F)),
		Locked:    name[7]&0x80 != 0,
	}

	var sb strings.Builder
	for _, c := range name[:7] {
		c &= 0x7F
		if c == ' ' {
			break
		}
		if c < 0x20 || c == 0x7F {
			return f, fmt.Errorf("control character 0x%02X in file name", c)
		}
		sb.WriteByte(c)
	}
	if sb.Len() == 0 {
		return f, fmt.Errorf("empty file name")
	}
	if d := name[7] & 0x7F; d < 0x20 || d == 0x7F {
		return f, fmt.Errorf("control character 0x%02X as directory", d)
	}
	f.Name = sb.String()

	mixed := addr[6]
	f.Load = highBits(uint32(mixed>>2)&0x03, addr[0], addr[1])
	f.Exec = highBits(uint32(mixed>>6)&0x03, addr[2], addr[3])
	f.Length = uint32(mixed>>4&0x03)<<16 | uint32(addr[5])<<8 | uint32(addr[4])
	f.StartSector = uint16(mixed&0x03)<<8 | uint16(addr[7])
	return f, nil
}

// highBits builds an 18-bit address. Both top bits set marks an I/O processor
// address, which widens to 0xFFxxxx.
func highBits(top uint32, lo, mid byte) uint32 {
	v := top<<16 | uint32(mid)<<8 | uint32(lo)
	if v&0x30000 == 0x30000 {
		v |= 0xFF0000
	}
	return v
}

func sectorsFor(length uint32) uint32 {
	return (length + types.DFSSectorSize - 1) / types.DFSSectorSize
}

// title joins the eight title bytes of sector 0 with the four of sector 1
func title(first, second []byte) string {
	raw := make([]byte, 0, 12)
	for _, part := range [][]byte{first, second} {
		for _, c := range part {
			if c == 0 {
				break
			}
			raw = append(raw, c)
		}
	}

	s, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		s = raw
	}
	return strings.TrimRight(strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7F {
			return -1
		}
		return r
	}, string(s)), " ")
}

// UsedSectors counts the catalogue sectors plus the sectors taken by files
func UsedSectors(cat *types.DFSCatalogue) uint32 {
	used := uint32(2)
	for _, f := range cat.Files {
		used += sectorsFor(f.Length)
	}
	return used
}

// FreeSectors returns the sectors not taken by the catalogue or files
func FreeSectors(cat *types.DFSCatalogue) uint32 {
	used := UsedSectors(cat)
	if used > uint32(cat.SectorCount) {
		return 0
	}
	return uint32(cat.SectorCount) - used
}
