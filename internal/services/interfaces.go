package services

import (
	"context"

	"github.com/deploymenttheory/go-fluxdisk/internal/diskstore"
	"github.com/deploymenttheory/go-fluxdisk/internal/interfaces"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

// CaptureService drives a sampler across the disk and fills the sector store
type CaptureService interface {
	Capture(ctx context.Context) (*CaptureReport, error)
	CaptureTrack(ctx context.Context, track, head int) (*TrackReport, error)
	FetchTrack(ctx context.Context, track, head int) error
	AnalyzeTrack(ctx context.Context, track, head int) (*TrackAnalysis, error)
	StatusGrid() *diskstore.Grid
	Store() *diskstore.Store
}

// CatalogService validates the recovered disk and decodes its catalogue
type CatalogService interface {
	ReadCatalogue(ctx context.Context) (*types.Catalogue, error)
	ImageGeometry() (types.Geometry, error)
}

// ImageService exports the recovered sectors through an image sink
type ImageService interface {
	Export(sink interfaces.ImageSink, geometry types.Geometry) (*ExportReport, error)
}
