package services

import (
	core "github.com/deploymenttheory/go-fluxdisk/internal/services"
)

// Service interfaces exposed to library users
type (
	CaptureService = core.CaptureService
	CatalogService = core.CatalogService
	ImageService   = core.ImageService
)

// Report types returned by the services
type (
	CaptureReport = core.CaptureReport
	TrackReport   = core.TrackReport
	TrackAnalysis = core.TrackAnalysis
	ExportReport  = core.ExportReport
	SynthOptions  = core.SynthOptions
	SynthReport   = core.SynthReport
)
