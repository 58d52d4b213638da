package adfs

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/go-restruct/restruct"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

type testEntry struct {
	name     string
	attrs    uint8
	load     uint32
	exec     uint32
	length   uint32
	indirect uint32
}

func put24(buf []byte, off int, v uint32) {
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
	buf[off+2] = byte(v >> 16)
}

// buildDir lays out a "Hugo" or "Nick" directory
func buildDir(t *testing.T, newFormat bool, seq byte, name, title string, parent uint32, entries []testEntry) []byte {
	t.Helper()

	layout := oldDirLayout
	if newFormat {
		layout = newDirLayout
	}
	buf := make([]byte, layout.size)
	buf[0] = seq
	copy(buf[1:], layout.name)

	for i, e := range entries {
		raw := types.RawDirEntry{Load: e.load, Exec: e.exec, Length: e.length}
		n := copy(raw.Name[:], e.name)
		if n < len(raw.Name) {
			raw.Name[n] = 0x0D
		}
		put24(raw.IndAddress[:], 0, e.indirect)
		if newFormat {
			raw.Attributes = e.attrs
		} else {
			for b := 0; b < 7; b++ {
				if e.attrs&(1<<uint(b)) != 0 {
					raw.Name[b] |= 0x80
				}
			}
			raw.Attributes = seq
		}

		packed, err := restruct.Pack(binary.LittleEndian, &raw)
		require.NoError(t, err)
		copy(buf[types.DirHeaderSize+i*types.DirEntrySize:], packed)
	}

	tail := buf[layout.size-layout.tailSize:]
	if newFormat {
		nt := types.NewDirTail{EndMasSeq: seq}
		put24(nt.Parent[:], 0, parent)
		copy(nt.Title[:], title)
		copy(nt.Name[:], name)
		copy(nt.EndName[:], layout.name)
		packed, err := restruct.Pack(binary.LittleEndian, &nt)
		require.NoError(t, err)
		copy(tail, packed)
	} else {
		ot := types.OldDirTail{EndMasSeq: seq}
		put24(ot.Parent[:], 0, parent)
		copy(ot.Title[:], title)
		copy(ot.Name[:], name)
		copy(ot.EndName[:], layout.name)
		packed, err := restruct.Pack(binary.LittleEndian, &ot)
		require.NoError(t, err)
		copy(tail, packed)
	}
	return buf
}

// buildOldMap writes a valid old map for a disc of the given sector count
func buildOldMap(title string, sectors uint32) []byte {
	buf := make([]byte, 512)
	put24(buf, types.OldMapFreeStart, 20)
	put24(buf, types.OldMapFreeLen, sectors-20)
	buf[types.OldMapFreeEnd] = 3

	for i := 0; i < 5; i++ {
		if 2*i < len(title) {
			buf[types.OldMapName0+i] = title[2*i]
		}
		if 2*i+1 < len(title) {
			buf[types.OldMapName1+i] = title[2*i+1]
		}
	}
	put24(buf, types.OldMapSize, sectors)
	buf[types.OldMapDiscID] = 0x34
	buf[types.OldMapDiscID+1] = 0x12
	buf[types.OldMapBoot] = 2

	resumOldMap(buf)
	return buf
}

func resumOldMap(buf []byte) {
	buf[types.OldMapCheck0] = OldMapChecksum(buf[:256], 256)
	buf[types.OldMapCheck1] = OldMapChecksum(buf[256:], 256)
}

func stamp(t time.Time, filetype uint32) (load, exec uint32) {
	csec := uint64(t.Unix()+types.RiscOSEpochOffset) * 100
	return 0xFFF00000 | filetype<<8 | uint32(csec>>32), uint32(csec)
}

// buildOldImage returns an ADFS S image with a root, a subdirectory that
// loops back to the root, a corrupt directory and one out of range
func buildOldImage(t *testing.T) []byte {
	img := make([]byte, 640*256)
	copy(img, buildOldMap("TESTDISC", 640))

	load, exec := stamp(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), 0xFFF)
	root := buildDir(t, false, 1, "$", "Root title", 2, []testEntry{
		{name: "!BOOT", attrs: types.AttrOwnerRead | types.AttrOwnerWrite, load: load, exec: exec, length: 42, indirect: 12},
		{name: "SUB", attrs: types.AttrDirectory | types.AttrOwnerRead, indirect: 7},
		{name: "BROKEN", attrs: types.AttrDirectory, indirect: 100},
		{name: "FAR", attrs: types.AttrDirectory, indirect: 0xFFFF},
		{name: "Prog", attrs: types.AttrLocked | types.AttrOwnerRead, load: 0x1900, exec: 0x8023, length: 512, indirect: 14},
	})
	copy(img[0x200:], root)

	sub := buildDir(t, false, 3, "SUB", "Sub title", 2, []testEntry{
		{name: "UP", attrs: types.AttrDirectory, indirect: 2},
		{name: "Data", attrs: types.AttrOwnerRead, load: 0xFFFF0E00, exec: 0xFFFF0E00, length: 10, indirect: 16},
	})
	copy(img[0x700:], sub)
	return img
}

func TestOldMapChecksum(t *testing.T) {
	buf := buildOldMap("TESTDISC", 640)
	m, err := ParseOldMap(buf)
	require.NoError(t, err)
	assert.Equal(t, "TESTDISC", m.Title)
	assert.Equal(t, uint32(640), m.SectorCount)
	assert.Equal(t, uint16(0x1234), m.DiscID)
	assert.Equal(t, uint8(2), m.BootOption)
	assert.Equal(t, 1, m.FreeEntries())
	assert.Equal(t, uint32(620), m.FreeSectors())
	assert.Equal(t, types.FormatS, OldMapFormat(m))

	// seed differs for 1024 byte sectors
	zero := make([]byte, 1024)
	assert.Equal(t, byte(255), OldMapChecksum(zero, 256))
	assert.Equal(t, byte(0), OldMapChecksum(zero, 1024))
}

func TestOldMapCorruptionDetected(t *testing.T) {
	for _, off := range []int{0x10, 0x150} {
		buf := buildOldMap("TESTDISC", 640)
		buf[off] ^= 0x01

		_, err := ParseOldMap(buf)
		assert.ErrorIs(t, err, types.ErrBadChecksum)

		sniffBuf := make([]byte, 1024)
		copy(sniffBuf, buf)
		_, err = DetectBuffer(sniffBuf, 256)
		assert.ErrorIs(t, err, types.ErrUnknownFormat)
	}
}

func TestOldMapStructuralChecks(t *testing.T) {
	buf := buildOldMap("TESTDISC", 640)
	put24(buf, types.OldMapFreeStart+3, 0x200000)
	resumOldMap(buf)
	_, err := ParseOldMap(buf)
	assert.Error(t, err)

	buf = buildOldMap("TESTDISC", 640)
	buf[types.OldMapFreeEnd] = 4
	resumOldMap(buf)
	_, err = ParseOldMap(buf)
	assert.Error(t, err)

	buf = buildOldMap("TESTDISC", 640)
	buf[types.OldMapReserved] = 1
	resumOldMap(buf)
	_, err = ParseOldMap(buf)
	assert.Error(t, err)

	// valid map, unknown size: no geometry guessing
	sniffBuf := make([]byte, 1024)
	copy(sniffBuf, buildOldMap("ODD", 1000))
	_, err = DetectBuffer(sniffBuf, 256)
	assert.ErrorIs(t, err, types.ErrUnknownFormat)
}

type stubLocator struct {
	sectors map[types.PhysicalAddress]*types.Sector
}

func (l *stubLocator) FindByPhysical(track, head, sector int) *types.Sector {
	return l.sectors[types.PhysicalAddress{Track: track, Head: head, Sector: sector}]
}

func (l *stubLocator) FindByLogical(track, head, sector int) *types.Sector {
	return l.FindByPhysical(track, head, sector)
}

func locatorFor(img []byte, sectorSize int) *stubLocator {
	l := &stubLocator{sectors: make(map[types.PhysicalAddress]*types.Sector)}
	for i := 0; i < 2; i++ {
		addr := types.PhysicalAddress{Sector: i}
		l.sectors[addr] = &types.Sector{Physical: addr, Data: img[i*sectorSize : (i+1)*sectorSize]}
	}
	return l
}

func TestDetectOldMapFormats(t *testing.T) {
	for sectors, want := range map[uint32]types.ADFSFormat{640: types.FormatS, 1280: types.FormatM, 2560: types.FormatL} {
		img := buildOldMap("X", sectors)
		det, err := Detect(locatorFor(img, 256))
		require.NoError(t, err)
		assert.Equal(t, want, det.Format)
		assert.NotNil(t, det.OldMap)
	}

	// D format keeps the old map inside a 1024 byte sector
	img := make([]byte, 2048)
	copy(img, buildOldMap("DDISC", 3200))
	det, err := Detect(locatorFor(img, 1024))
	require.NoError(t, err)
	assert.Equal(t, types.FormatD, det.Format)
	assert.True(t, det.Geometry.NewDir)
}

func TestDetectRequiresMatchingSectorSizes(t *testing.T) {
	l := locatorFor(buildOldMap("X", 640), 256)
	l.sectors[types.PhysicalAddress{Sector: 1}].Data = make([]byte, 512)
	_, err := Detect(l)
	assert.ErrorIs(t, err, types.ErrUnknownFormat)

	delete(l.sectors, types.PhysicalAddress{Sector: 1})
	_, err = Detect(l)
	assert.ErrorIs(t, err, types.ErrSectorMissing)
}

func TestWalkOldDirectories(t *testing.T) {
	img := buildOldImage(t)
	det, err := Detect(locatorFor(img, 256))
	require.NoError(t, err)
	require.Equal(t, types.FormatS, det.Format)

	cat, err := ReadCatalogue(det, bytes.NewReader(img), int64(len(img)))
	require.NoError(t, err)
	assert.Equal(t, "ADFS S", cat.Format)
	assert.Equal(t, "TESTDISC", cat.Title)
	assert.Equal(t, uint32(620), cat.FreeSectors)

	root := cat.Root
	require.NotNil(t, root)
	assert.Equal(t, "$", root.Name)
	assert.Equal(t, "Root title", root.Title)
	assert.Equal(t, uint32(2), root.Address)
	require.Len(t, root.Entries, 5)

	boot := root.Entries[0]
	assert.Equal(t, "!BOOT", boot.Name)
	assert.Equal(t, "RW", boot.AttributeString())
	assert.True(t, boot.Stamped)
	assert.Equal(t, uint16(0xFFF), boot.FileType)
	require.NotNil(t, boot.Timestamp)
	assert.Equal(t, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), *boot.Timestamp)
	assert.Equal(t, uint8(1), boot.Sequence)

	sub := root.Entries[1]
	assert.True(t, sub.IsDir())
	require.NotNil(t, sub.Directory)
	assert.Equal(t, "Sub title", sub.Directory.Title)
	require.Len(t, sub.Directory.Entries, 2)
	assert.Contains(t, sub.Directory.Entries[0].Error, "loop")
	assert.Nil(t, sub.Directory.Entries[0].Directory)

	data := sub.Directory.Entries[1]
	assert.True(t, data.Stamped)
	assert.Equal(t, uint16(0xF0E), data.FileType)
	assert.Nil(t, data.Timestamp, "stamps before 1970 are not converted")

	assert.Contains(t, root.Entries[2].Error, types.ErrCorruptDirectory.Error())
	assert.Contains(t, root.Entries[3].Error, types.ErrAddressOutOfRange.Error())

	prog := root.Entries[4]
	assert.False(t, prog.Stamped)
	assert.Equal(t, "RL", prog.AttributeString())
	assert.Equal(t, "00001900 00008023", prog.Describe())
}

func TestWalkIsIdempotent(t *testing.T) {
	img := buildOldImage(t)
	det, err := Detect(locatorFor(img, 256))
	require.NoError(t, err)

	w, err := NewWalker(det, bytes.NewReader(img), int64(len(img)))
	require.NoError(t, err)

	first, err := w.Walk()
	require.NoError(t, err)
	second, err := w.Walk()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseDirectoryRejectsMismatchedTail(t *testing.T) {
	dir := buildDir(t, true, 5, "$", "T", 0x203, nil)
	_, err := ParseDirectory(dir, true)
	require.NoError(t, err)

	dir[len(dir)-6] = 6 // tail sequence
	_, err = ParseDirectory(dir, true)
	assert.ErrorIs(t, err, types.ErrCorruptDirectory)

	_, err = ParseDirectory(dir, false)
	assert.ErrorIs(t, err, types.ErrCorruptDirectory)
}

// setBits writes a little-endian bit field into a zone
func setBits(zone []byte, bit, width int, v uint32) {
	for i := 0; i < width; i++ {
		if v&(1<<uint(i)) != 0 {
			zone[(bit+i)/8] |= 1 << uint((bit+i)%8)
		}
	}
}

// fragment writes an id and its end bit
func fragment(zone []byte, start, length int, id uint32) {
	setBits(zone, start, 15, id)
	setBits(zone, start+length-1, 1, 1)
}

// buildNewImage returns an ADFS E image: map and root in fragment 2, a
// subdirectory in fragment 3 and one free fragment
func buildNewImage(t *testing.T) []byte {
	img := make([]byte, 819200)

	dr := types.DiscRecord{
		Log2SecSize:  10,
		SecsPerTrack: 5,
		Heads:        2,
		Density:      2,
		IDLen:        15,
		Log2BPMB:     7,
		Skew:         1,
		NZones:       1,
		ZoneSpare:    0x520,
		Root:         0x203,
		DiscSize:     819200,
		DiscID:       0x4321,
	}
	copy(dr.DiscName[:], "NEWDISC   ")
	packed, err := restruct.Pack(binary.LittleEndian, &dr)
	require.NoError(t, err)
	require.Len(t, packed, types.DiscRecordSize)

	zone := img[:1024]
	copy(zone[types.DiscRecordOffset:], packed)
	setBits(zone, 8, 15, 576-8) // free link
	zone[3] = 0xFF
	fragment(zone, 512, 32, 2)
	fragment(zone, 544, 32, 3)
	fragment(zone, 576, 32, 0)
	fragment(zone, 608, 6912-608, 4)
	zone[0] = ZoneCheck(zone, 10, 0)
	copy(img[1024:2048], zone)

	root := buildDir(t, true, 9, "$", "New root", 0x203, []testEntry{
		{name: "Docs", attrs: types.AttrDirectory | types.AttrOwnerRead, indirect: 0x300},
		{name: "Lost", attrs: types.AttrDirectory, indirect: 0x500},
	})
	copy(img[2048:], root)

	docs := buildDir(t, true, 1, "Docs", "Documents", 0x203, []testEntry{
		{name: "ReadMe", attrs: types.AttrOwnerRead | types.AttrOwnerWrite | types.AttrPublicRead, length: 100, indirect: 0x401},
	})
	copy(img[4096:], docs)
	return img
}

func TestNewMapDetectionAndLookup(t *testing.T) {
	img := buildNewImage(t)

	det, err := Detect(locatorFor(img, 1024))
	require.NoError(t, err)
	assert.Equal(t, types.FormatE, det.Format)
	require.NotNil(t, det.DiscRecord)
	assert.Equal(t, 1024, det.DiscRecord.SectorSize())
	assert.Equal(t, int64(0), MapAddress(det.DiscRecord))

	m, err := LoadNewMap(det.DiscRecord, img[:1024])
	require.NoError(t, err)

	sector, err := m.Lookup(0x203)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sector)

	sector, err = m.Lookup(0x300)
	require.NoError(t, err)
	assert.Equal(t, int64(4), sector)

	_, err = m.Lookup(0x500)
	assert.ErrorIs(t, err, types.ErrFragmentNotFound)

	assert.Equal(t, uint32(4), m.FreeSectors())
}

func TestNewMapZoneCorruption(t *testing.T) {
	img := buildNewImage(t)
	img[700] ^= 0x10

	det, err := DetectBuffer(img[:1024], 1024)
	assert.Nil(t, det)
	assert.ErrorIs(t, err, types.ErrUnknownFormat)
}

func TestWalkNewMap(t *testing.T) {
	img := buildNewImage(t)
	det, err := Detect(locatorFor(img, 1024))
	require.NoError(t, err)

	cat, err := ReadCatalogue(det, bytes.NewReader(img), int64(len(img)))
	require.NoError(t, err)
	assert.Equal(t, "ADFS E", cat.Format)
	assert.Equal(t, "NEWDISC", cat.Title)
	assert.Equal(t, uint16(0x4321), cat.DiscID)
	assert.Equal(t, uint32(800), cat.SectorCount)
	assert.Equal(t, uint32(4), cat.FreeSectors)

	require.Len(t, cat.Root.Entries, 2)
	docs := cat.Root.Entries[0]
	require.NotNil(t, docs.Directory)
	assert.Equal(t, "Documents", docs.Directory.Title)
	require.Len(t, docs.Directory.Entries, 1)
	assert.Equal(t, "RWr", docs.Directory.Entries[0].AttributeString())

	lost := cat.Root.Entries[1]
	assert.Nil(t, lost.Directory)
	assert.Contains(t, lost.Error, types.ErrFragmentNotFound.Error())
}
