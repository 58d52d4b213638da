package disk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/dsoprea/go-logging"
	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

var imageLogger = log.NewLogger("disk.image")

// ImageGeometry adjusts a geometry to the conventions of an image file
// extension. .ssd holds one side, .dsd, .adl and .adf interleave the heads
// track by track, anything else keeps the given layout.
func ImageGeometry(path string, base types.Geometry) types.Geometry {
	g := base
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ssd":
		g.Heads = 1
		g.Interleaved = false
	case ".dsd", ".adl", ".adf":
		g.Interleaved = true
	}
	return g
}

// FlatImage writes sector payloads into a linear image. Sectors never written
// stay zero filled.
type FlatImage struct {
	file     afero.File
	geometry types.Geometry
	written  int
}

// CreateFlatImage creates an image file sized for the geometry
func CreateFlatImage(fs afero.Fs, path string, geometry types.Geometry) (*FlatImage, error) {
	file, err := fs.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create image file: %w", err)
	}
	if err := file.Truncate(geometry.Size()); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to size image file: %w", err)
	}

	return &FlatImage{file: file, geometry: geometry}, nil
}

// Offset returns the byte offset of a sector within the image
func (f *FlatImage) Offset(track, head, sector int) (int64, error) {
	g := f.geometry
	index := sector - g.FirstSector
	if track < 0 || track >= g.Tracks || head < 0 || head >= g.Heads || index < 0 || index >= g.SectorsPerTrack {
		return 0, fmt.Errorf("%w: track %d head %d sector %d", types.ErrAddressOutOfRange, track, head, sector)
	}

	var side int64
	if g.Interleaved {
		side = int64(track*g.Heads + head)
	} else {
		side = int64(head*g.Tracks + track)
	}
	return side*int64(g.TrackBytes()) + int64(index*g.SectorSize), nil
}

// WriteSector stores one payload, padded or truncated to the image sector size
func (f *FlatImage) WriteSector(track, head, sector int, data []byte) error {
	off, err := f.Offset(track, head, sector)
	if err != nil {
		return err
	}

	buf := make([]byte, f.geometry.SectorSize)
	if n := copy(buf, data); n != len(data) {
		imageLogger.Warningf(nil, "Sector %d/%d/%d truncated from %d to %d bytes", track, head, sector, len(data), n)
	}
	if _, err := f.file.WriteAt(buf, off); err != nil {
		return fmt.Errorf("failed to write sector %d/%d/%d: %w", track, head, sector, err)
	}
	f.written++
	return nil
}

// Written returns the number of sectors stored so far
func (f *FlatImage) Written() int {
	return f.written
}

// Close closes the image file
func (f *FlatImage) Close() error {
	imageLogger.Debugf(nil, "Image closed after %d of %d sectors", f.written, f.geometry.Tracks*f.geometry.Heads*f.geometry.SectorsPerTrack)
	return f.file.Close()
}
