package adfs

import (
	"errors"
	"fmt"
	"io"

	log "github.com/dsoprea/go-logging"

	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

var walkLogger = log.NewLogger("adfs.walk")

// Walker reads the directory tree of a detected ADFS disc through a linear reader.
type Walker struct {
	reader    io.ReaderAt
	size      int64
	detection *Detection
	newMap    *NewMap
	visited   map[int64]bool
}

// NewWalker prepares a tree walk. New map discs have their map loaded and
// checked here.
func NewWalker(det *Detection, reader io.ReaderAt, size int64) (*Walker, error) {
	w := &Walker{reader: reader, size: size, detection: det}

	if det.DiscRecord != nil {
		dr := det.DiscRecord
		mapData := make([]byte, dr.Zones()*dr.SectorSize())
		if _, err := reader.ReadAt(mapData, MapAddress(dr)); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read map: %w", err)
		}
		m, err := LoadNewMap(dr, mapData)
		if err != nil {
			return nil, fmt.Errorf("failed to load map: %w", err)
		}
		w.newMap = m
	}

	return w, nil
}

// Map returns the loaded new map, nil for old map discs
func (w *Walker) Map() *NewMap {
	return w.newMap
}

// RootAddress returns the indirect address of the root directory
func (w *Walker) RootAddress() uint32 {
	if w.detection.DiscRecord != nil {
		return w.detection.DiscRecord.Root
	}
	return uint32(w.detection.Geometry.RootOffset / types.OldMapSectorSize)
}

// Offset converts an indirect disc address into a byte offset
func (w *Walker) Offset(indirect uint32) (int64, error) {
	if w.newMap != nil {
		sector, err := w.newMap.Lookup(indirect)
		if err != nil {
			return 0, err
		}
		return sector << w.detection.DiscRecord.Log2SecSize, nil
	}
	return int64(indirect) * types.OldMapSectorSize, nil
}

// ReadDirectory loads and decodes the directory at an indirect address
func (w *Walker) ReadDirectory(indirect uint32) (*types.Directory, error) {
	offset, err := w.Offset(indirect)
	if err != nil {
		return nil, err
	}

	dirSize := int64(w.detection.Geometry.DirSize())
	if offset < 0 || offset+dirSize > w.size {
		return nil, fmt.Errorf("%w: directory at 0x%X", types.ErrAddressOutOfRange, offset)
	}

	buf := make([]byte, dirSize)
	if _, err := w.reader.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("failed to read directory at 0x%X: %w", offset, err)
	}

	dir, err := ParseDirectory(buf, w.detection.Geometry.NewDir)
	if err != nil {
		return nil, err
	}
	dir.Address = indirect
	return dir, nil
}

// Walk reads the whole tree from the root. A branch that cannot be read is
// recorded on its entry and the walk carries on.
func (w *Walker) Walk() (*types.Directory, error) {
	w.visited = make(map[int64]bool)

	root, err := w.ReadDirectory(w.RootAddress())
	if err != nil {
		return nil, fmt.Errorf("failed to read root directory: %w", err)
	}
	if root.Name == "" {
		root.Name = "$"
	}

	if off, err := w.Offset(root.Address); err == nil {
		w.visited[off] = true
	}
	w.descend(root, "$")
	return root, nil
}

func (w *Walker) descend(dir *types.Directory, path string) {
	for _, entry := range dir.Entries {
		if !entry.IsDir() {
			continue
		}
		childPath := path + "." + entry.Name

		offset, err := w.Offset(entry.IndirectAddress)
		if err != nil {
			entry.Error = err.Error()
			walkLogger.Warningf(nil, "Directory %s: %v", childPath, err)
			continue
		}
		if w.visited[offset] {
			entry.Error = fmt.Sprintf("directory loop at 0x%X", offset)
			walkLogger.Warningf(nil, "Directory %s loops back to 0x%X", childPath, offset)
			continue
		}
		w.visited[offset] = true

		child, err := w.ReadDirectory(entry.IndirectAddress)
		if err != nil {
			entry.Error = err.Error()
			walkLogger.Warningf(nil, "Directory %s: %v", childPath, err)
			continue
		}
		if child.Parent != dir.Address {
			walkLogger.Debugf(nil, "Directory %s names parent 0x%X, reached from 0x%X", childPath, child.Parent, dir.Address)
		}

		entry.Directory = child
		w.descend(child, childPath)
	}
}

// ReadCatalogue walks the disc and summarises its map
func ReadCatalogue(det *Detection, reader io.ReaderAt, size int64) (*types.Catalogue, error) {
	w, err := NewWalker(det, reader, size)
	if err != nil {
		return nil, err
	}

	cat := &types.Catalogue{Format: "ADFS " + det.Format.String()}
	if det.OldMap != nil {
		cat.Title = det.OldMap.Title
		cat.DiscID = det.OldMap.DiscID
		cat.BootOption = det.OldMap.BootOption
		cat.SectorCount = det.OldMap.SectorCount
		cat.FreeSectors = det.OldMap.FreeSectors()
	} else {
		dr := det.DiscRecord
		cat.Title = decodeName(dr.DiscName[:])
		cat.DiscID = dr.DiscID
		cat.BootOption = dr.BootOption
		cat.SectorCount = uint32(dr.Size() >> dr.Log2SecSize)
		cat.FreeSectors = w.Map().FreeSectors()
	}

	root, err := w.Walk()
	if err != nil {
		return cat, err
	}
	cat.Root = root
	if cat.Title == "" {
		cat.Title = root.Title
	}
	return cat, nil
}
