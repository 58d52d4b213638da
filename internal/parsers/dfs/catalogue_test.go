package dfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

type testFile struct {
	dir    byte
	name   string
	locked bool
	load   uint32
	exec   uint32
	length uint32
	start  uint16
}

func buildCatalogue(title string, boot uint8, sectors uint16, files []testFile) ([]byte, []byte) {
	s0 := make([]byte, 256)
	s1 := make([]byte, 256)

	for i := 0; i < 12 && i < len(title); i++ {
		if i < 8 {
			s0[i] = title[i]
		} else {
			s1[i-8] = title[i]
		}
	}
	s1[4] = 0x17
	s1[5] = byte(len(files) * 8)
	s1[6] = boot<<4 | byte(sectors>>8)&0x03
	s1[7] = byte(sectors)

	for n, f := range files {
		i := (n + 1) * 8
		copy(s0[i:i+7], []byte("       "))
		copy(s0[i:i+7], f.name)
		s0[i+7] = f.dir
		if f.locked {
			s0[i+7] |= 0x80
		}

		s1[i] = byte(f.load)
		s1[i+1] = byte(f.load >> 8)
		s1[i+2] = byte(f.exec)
		s1[i+3] = byte(f.exec >> 8)
		s1[i+4] = byte(f.length)
		s1[i+5] = byte(f.length >> 8)
		s1[i+6] = byte(f.exec>>16&3)<<6 | byte(f.length>>16&3)<<4 | byte(f.load>>16&3)<<2 | byte(f.start>>8&3)
		s1[i+7] = byte(f.start)
	}
	return s0, s1
}

func TestParseCatalogue(t *testing.T) {
	s0, s1 := buildCatalogue("GAMESDISK12", 3, 800, []testFile{
		{dir: '$', name: "!BOOT", locked: true, load: 0x1900, exec: 0x8023, length: 0x300, start: 2},
		{dir: 'B', name: "ELITE", load: 0x31900, exec: 0x31F1F, length: 0x11234, start: 5},
	})

	cat, err := Parse(s0, s1)
	require.NoError(t, err)
	assert.Equal(t, "GAMESDISK12", cat.Title)
	assert.Equal(t, uint8(3), cat.BootOption)
	assert.Equal(t, uint8(0x17), cat.WriteCycles)
	assert.Equal(t, uint16(800), cat.SectorCount)
	require.Len(t, cat.Files, 2)

	boot := cat.Files[0]
	assert.Equal(t, "$.!BOOT", boot.FullName())
	assert.True(t, boot.Locked)
	assert.Equal(t, uint32(0x1900), boot.Load)
	assert.Equal(t, uint32(0x8023), boot.Exec)
	assert.Equal(t, uint32(0x300), boot.Length)
	assert.Equal(t, uint16(2), boot.StartSector)

	elite := cat.Files[1]
	assert.Equal(t, "B.ELITE", elite.FullName())
	assert.False(t, elite.Locked)
	assert.Equal(t, uint32(0xFF1900), elite.Load)
	assert.Equal(t, uint32(0xFF1F1F), elite.Exec)
	assert.Equal(t, uint32(0x11234), elite.Length)

	// 2 catalogue + 3 + 275
	assert.Equal(t, uint32(280), UsedSectors(cat))
	assert.Equal(t, uint32(520), FreeSectors(cat))
	assert.Equal(t, "*EXEC !BOOT", BootOptionNames[cat.BootOption])
}

func TestParseAddressWidening(t *testing.T) {
	s0, s1 := buildCatalogue("ADDR", 0, 800, []testFile{
		{dir: '$', name: "SECOND", load: 0x11900, exec: 0x2801F, length: 0x100, start: 2},
		{dir: '$', name: "HOST", load: 0x31900, exec: 0x38023, length: 0x100, start: 3},
	})

	cat, err := Parse(s0, s1)
	require.NoError(t, err)
	require.Len(t, cat.Files, 2)

	assert.Equal(t, uint32(0x11900), cat.Files[0].Load)
	assert.Equal(t, uint32(0x2801F), cat.Files[0].Exec)
	assert.Equal(t, uint32(0xFF1900), cat.Files[1].Load)
	assert.Equal(t, uint32(0xFF8023), cat.Files[1].Exec)
}

func TestParseShortTitle(t *testing.T) {
	s0, s1 := buildCatalogue("ABC", 0, 400, nil)
	cat, err := Parse(s0, s1)
	require.NoError(t, err)
	assert.Equal(t, "ABC", cat.Title)
	assert.Empty(t, cat.Files)
}

func TestParseLatin1Title(t *testing.T) {
	s0, s1 := buildCatalogue("\xA3SAVER", 0, 400, nil)
	cat, err := Parse(s0, s1)
	require.NoError(t, err)
	assert.Equal(t, "\u00A3SAVER", cat.Title)
}

func TestParseRejectsNonCatalogues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s0, s1 []byte)
	}{
		{"entry count not a multiple of 8", func(_, s1 []byte) { s1[5] = 9 }},
		{"disc too small", func(_, s1 []byte) { s1[6], s1[7] = 0, 1 }},
		{"control character in name", func(s0, _ []byte) { s0[9] = 0x01 }},
		{"empty name", func(s0, _ []byte) { copy(s0[8:15], "       ") }},
		{"file past the disc", func(_, s1 []byte) { s1[15] = 0xFF; s1[14] |= 0x03 }},
		{"file inside the catalogue", func(_, s1 []byte) { s1[15] = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s0, s1 := buildCatalogue("T", 0, 800, []testFile{{dir: '$', name: "A", length: 256, start: 2}})
			tt.mutate(s0, s1)
			_, err := Parse(s0, s1)
			assert.ErrorIs(t, err, types.ErrUnknownFormat)
		})
	}

	_, err := Parse(make([]byte, 128), make([]byte, 256))
	assert.ErrorIs(t, err, types.ErrUnknownFormat)
}

type stubLocator map[types.PhysicalAddress]*types.Sector

func (l stubLocator) FindByPhysical(track, head, sector int) *types.Sector {
	return l[types.PhysicalAddress{Track: track, Head: head, Sector: sector}]
}

func (l stubLocator) FindByLogical(track, head, sector int) *types.Sector {
	return l.FindByPhysical(track, head, sector)
}

func TestReadFromLocator(t *testing.T) {
	s0, s1 := buildCatalogue("SIDE1", 0, 400, nil)
	loc := stubLocator{
		{Head: 1, Sector: 0}: {Data: s0},
		{Head: 1, Sector: 1}: {Data: s1},
	}

	cat, err := Read(loc, 1)
	require.NoError(t, err)
	assert.Equal(t, "SIDE1", cat.Title)

	_, err = Read(loc, 0)
	assert.ErrorIs(t, err, types.ErrSectorMissing)
}
