package adfs

import (
	"fmt"

	log "github.com/dsoprea/go-logging"

	"github.com/deploymenttheory/go-fluxdisk/internal/interfaces"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

var detectLogger = log.NewLogger("adfs.detect")

// Detection is the outcome of format detection on the first two sectors.
type Detection struct {
	Format   types.ADFSFormat
	Geometry types.FormatGeometry

	// OldMap is set for S, M, L and D formats
	OldMap *types.OldMap

	// DiscRecord is set for E and F formats
	DiscRecord *types.DiscRecord
}

// sniff assembles the first 1024 bytes of the disc from sectors 0 and 1 of track 0
func sniff(loc interfaces.SectorLocator) ([]byte, int, error) {
	s0 := loc.FindByPhysical(0, 0, 0)
	s1 := loc.FindByPhysical(0, 0, 1)
	if s0 == nil || s1 == nil {
		return nil, 0, fmt.Errorf("%w: track 0 sectors 0 and 1 are required", types.ErrSectorMissing)
	}

	size0, size1 := len(s0.Data), len(s1.Data)
	if size0 != size1 || (size0 != 256 && size0 != 1024) {
		return nil, 0, fmt.Errorf("%w: sector sizes %d and %d", types.ErrUnknownFormat, size0, size1)
	}

	buf := make([]byte, 1024)
	copy(buf, s0.Data)
	if size0 == 256 {
		copy(buf[256:], s1.Data)
	}
	return buf, size0, nil
}

// Detect identifies the ADFS format from sectors 0 and 1 of track 0. The old
// map is tried first, then the zone 0 check of a new map. Anything else is
// reported as ErrUnknownFormat.
func Detect(loc interfaces.SectorLocator) (*Detection, error) {
	buf, sectorSize, err := sniff(loc)
	if err != nil {
		return nil, err
	}
	return DetectBuffer(buf, sectorSize)
}

// DetectBuffer runs detection on the first 1024 bytes of a disc whose first
// two sectors are sectorSize bytes long
func DetectBuffer(buf []byte, sectorSize int) (*Detection, error) {
	if len(buf) < 1024 {
		return nil, fmt.Errorf("detection needs 1024 bytes, got %d", len(buf))
	}

	oldMap, err := ParseOldMap(buf[:2*types.OldMapSectorSize])
	if err == nil {
		if format := OldMapFormat(oldMap); format != types.FormatUnknown {
			detectLogger.Debugf(nil, "Old map with %d sectors: ADFS %s", oldMap.SectorCount, format)
			return &Detection{Format: format, Geometry: types.FormatGeometries[format], OldMap: oldMap}, nil
		}
		detectLogger.Debugf(nil, "Old map valid but sector count %d is not a known format", oldMap.SectorCount)
	} else {
		detectLogger.Debugf(nil, "Not an old map: %v", err)
	}

	if sectorSize == 1024 {
		log2 := buf[types.DiscRecordOffset]
		if ZoneCheck(buf, log2, 0) == buf[0] {
			dr, err := ParseDiscRecord(buf)
			if err != nil {
				return nil, err
			}

			var format types.ADFSFormat
			if dr.SectorSize() == 1024 {
				switch dr.SecsPerTrack {
				case 5:
					format = types.FormatE
				case 10:
					format = types.FormatF
				}
			}
			if format != types.FormatUnknown {
				detectLogger.Debugf(nil, "New map zone 0 valid: ADFS %s", format)
				return &Detection{Format: format, Geometry: types.FormatGeometries[format], DiscRecord: dr}, nil
			}
			detectLogger.Debugf(nil, "New map zone 0 valid with %d byte sectors and %d per track", dr.SectorSize(), dr.SecsPerTrack)
		}
	}

	return nil, types.ErrUnknownFormat
}
