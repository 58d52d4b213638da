package analyze

import (
	"github.com/deploymenttheory/go-fluxdisk/pkg/services"
	"github.com/deploymenttheory/go-fluxdisk/pkg/app"
)

// AllTracks selects every track or head of the capture
const AllTracks = -1

// Request represents a flux analysis request
type Request struct {
	Target app.CaptureTarget
	Track  int
	Head   int
}

// Response holds one analysis per sampled track side
type Response struct {
	Tracks []*services.TrackAnalysis `json:"tracks" yaml:"tracks"`
}
