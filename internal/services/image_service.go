package services

import (
	"fmt"

	log "github.com/dsoprea/go-logging"

	"github.com/deploymenttheory/go-fluxdisk/internal/diskstore"
	"github.com/deploymenttheory/go-fluxdisk/internal/interfaces"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

var imageLogger = log.NewLogger("services.image")

// ImageServiceImpl writes the best copy of every sector of a geometry to a sink
type ImageServiceImpl struct {
	store *diskstore.Store
}

// NewImageService creates an image service over a store
func NewImageService(store *diskstore.Store) (*ImageServiceImpl, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	return &ImageServiceImpl{store: store}, nil
}

// Export walks the geometry in track, head, sector order. BAD copies are
// written and counted, missing sectors are left to the sink.
func (s *ImageServiceImpl) Export(sink interfaces.ImageSink, geometry types.Geometry) (*ExportReport, error) {
	if sink == nil {
		return nil, fmt.Errorf("sink cannot be nil")
	}

	report := &ExportReport{}
	for track := 0; track < geometry.Tracks; track++ {
		for head := 0; head < geometry.Heads; head++ {
			for i := 0; i < geometry.SectorsPerTrack; i++ {
				id := geometry.FirstSector + i
				sector := s.store.FindByPhysical(track, head, id)
				if sector == nil {
					report.Missing = append(report.Missing, types.PhysicalAddress{Track: track, Head: head, Sector: id}.String())
					continue
				}
				if err := sink.WriteSector(track, head, id, sector.Data); err != nil {
					return report, fmt.Errorf("failed to export sector %s: %w", sector.Physical, err)
				}
				report.Written++
				if sector.DataQuality != types.QualityGood {
					report.Bad++
				}
			}
		}
	}

	if len(report.Missing) > 0 || report.Bad > 0 {
		imageLogger.Warningf(nil, "Image exported with %d bad and %d missing sectors", report.Bad, len(report.Missing))
	}
	return report, sink.Close()
}
