package adfs

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-restruct/restruct"

	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

// dirLayout describes the size and tail of a directory format
type dirLayout struct {
	name     string
	size     int
	entries  int
	tailSize int
}

var (
	oldDirLayout = dirLayout{name: types.OldDirName, size: types.OldDirSize, entries: types.OldDirEntries, tailSize: types.OldDirTailSize}
	newDirLayout = dirLayout{name: types.NewDirName, size: types.NewDirSize, entries: types.NewDirEntries, tailSize: types.NewDirTailSize}
)

// ParseDirectory decodes one directory. The header and tail must carry the
// same "Hugo" or "Nick" name and master sequence number.
func ParseDirectory(buf []byte, newFormat bool) (*types.Directory, error) {
	layout := oldDirLayout
	if newFormat {
		layout = newDirLayout
	}
	if len(buf) < layout.size {
		return nil, fmt.Errorf("%w: %d bytes, need %d", types.ErrCorruptDirectory, len(buf), layout.size)
	}

	startSeq := buf[0]
	startName := string(buf[1:types.DirHeaderSize])
	if startName != layout.name {
		return nil, fmt.Errorf("%w: header name %q", types.ErrCorruptDirectory, startName)
	}

	dir := &types.Directory{Sequence: startSeq, NewFormat: newFormat}

	tail := buf[layout.size-layout.tailSize : layout.size]
	if newFormat {
		var nt types.NewDirTail
		if err := restruct.Unpack(tail, binary.LittleEndian, &nt); err != nil {
			return nil, fmt.Errorf("failed to unpack directory tail: %w", err)
		}
		if err := checkTail(startSeq, nt.EndMasSeq, nt.EndName[:], layout.name); err != nil {
			return nil, err
		}
		dir.Name = entryName(nt.Name[:])
		dir.Title = decodeName(nt.Title[:])
		dir.Parent = read24(nt.Parent[:], 0)
	} else {
		var ot types.OldDirTail
		if err := restruct.Unpack(tail, binary.LittleEndian, &ot); err != nil {
			return nil, fmt.Errorf("failed to unpack directory tail: %w", err)
		}
		if err := checkTail(startSeq, ot.EndMasSeq, ot.EndName[:], layout.name); err != nil {
			return nil, err
		}
		dir.Name = entryName(ot.Name[:])
		dir.Title = decodeName(ot.Title[:])
		dir.Parent = read24(ot.Parent[:], 0)
	}

	entriesEnd := layout.size - layout.tailSize
	for i := 0; i < layout.entries; i++ {
		off := types.DirHeaderSize + i*types.DirEntrySize
		if off+types.DirEntrySize > entriesEnd {
			break
		}
		raw := buf[off : off+types.DirEntrySize]
		if raw[0] == 0 {
			break
		}

		var de types.RawDirEntry
		if err := restruct.Unpack(raw, binary.LittleEndian, &de); err != nil {
			return nil, fmt.Errorf("failed to unpack directory entry %d: %w", i, err)
		}
		dir.Entries = append(dir.Entries, decodeEntry(&de, newFormat))
	}

	return dir, nil
}

func checkTail(startSeq, endSeq byte, endName []byte, want string) error {
	if string(endName) != want {
		return fmt.Errorf("%w: tail name %q", types.ErrCorruptDirectory, string(endName))
	}
	if startSeq != endSeq {
		return fmt.Errorf("%w: sequence %d at head, %d at tail", types.ErrCorruptDirectory, startSeq, endSeq)
	}
	return nil
}

// decodeEntry converts a raw entry. Old directories keep the attributes in
// the top bits of the first seven name characters and the last byte is the
// object sequence number.
func decodeEntry(de *types.RawDirEntry, newFormat bool) *types.DirectoryEntry {
	e := &types.DirectoryEntry{
		Name:            entryName(de.Name[:]),
		Load:            de.Load,
		Exec:            de.Exec,
		Length:          de.Length,
		IndirectAddress: read24(de.IndAddress[:], 0),
	}

	if newFormat {
		e.Attributes = de.Attributes
	} else {
		for i := 0; i < 7; i++ {
			if de.Name[i]&0x80 != 0 {
				e.Attributes |= 1 << uint(i)
			}
		}
		e.Sequence = de.Attributes
	}

	if e.Load&types.StampedMask == types.StampedMask {
		e.Stamped = true
		e.FileType = uint16((e.Load >> 8) & 0xFFF)
		e.Timestamp = stampTime(e.Load, e.Exec)
	}

	return e
}

// stampTime converts the 40-bit centisecond count since 1900 carried by a
// stamped entry. Stamps before the Unix epoch yield nil.
func stampTime(load, exec uint32) *time.Time {
	csec := uint64(load&0xFF)<<32 | uint64(exec)
	secs := csec / 100
	if secs < types.RiscOSEpochOffset {
		return nil
	}
	t := time.Unix(int64(secs-types.RiscOSEpochOffset), int64(csec%100)*int64(10*time.Millisecond)).UTC()
	return &t
}
