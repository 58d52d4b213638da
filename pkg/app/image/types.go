package image

import (
	"time"

	"github.com/deploymenttheory/go-fluxdisk/pkg/services"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
	"github.com/deploymenttheory/go-fluxdisk/pkg/app"
)

// Request represents an image export request
type Request struct {
	Target     app.CaptureTarget
	OutputPath string

	// ConfigGeometry skips format detection and uses the capture configuration
	ConfigGeometry bool

	// Strict fails the export when any sector is bad or missing
	Strict bool
}

// Response represents a written disk image
type Response struct {
	OutputPath string                  `json:"output_path" yaml:"output_path"`
	Format     string                  `json:"format,omitempty" yaml:"format,omitempty"`
	Geometry   types.Geometry          `json:"geometry" yaml:"geometry"`
	Capture    *services.CaptureReport `json:"capture" yaml:"capture"`
	Export     *services.ExportReport  `json:"export" yaml:"export"`
	WriteTime  time.Duration           `json:"write_time" yaml:"write_time"`
}

// Complete reports whether every sector of the geometry was written GOOD
func (r *Response) Complete() bool {
	return r.Export != nil && r.Export.Bad == 0 && len(r.Export.Missing) == 0
}
