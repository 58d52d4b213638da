// Package synth renders flat sector images as raw flux captures, for testing
// the decoder without a drive.
package synth

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-fluxdisk/internal/disk"
	"github.com/deploymenttheory/go-fluxdisk/pkg/services"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
	"github.com/deploymenttheory/go-fluxdisk/pkg/app"
)

// Request represents a synthesis request. Zero geometry fields fall back to
// the image extension and then the capture configuration.
type Request struct {
	ImagePath       string
	RawPath         string
	Modulation      string
	Tracks          int
	Heads           int
	SectorsPerTrack int
	SectorSize      int
	Speed           float64
}

// Response describes the rendered capture
type Response struct {
	RawPath    string                `json:"raw_path" yaml:"raw_path"`
	Modulation string                `json:"modulation" yaml:"modulation"`
	Geometry   types.Geometry        `json:"geometry" yaml:"geometry"`
	Report     *services.SynthReport `json:"report" yaml:"report"`
}

// Validate validates a synthesis request
func (r *Request) Validate() error {
	if r.ImagePath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "image path is required", nil)
	}
	if r.RawPath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "capture output path is required", nil)
	}
	if r.ImagePath == r.RawPath {
		return app.NewError(app.ErrCodeInvalidInput, "capture output would overwrite the image", nil)
	}
	if _, err := types.ParseModulation(r.Modulation); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid modulation", err)
	}
	if r.Tracks < 0 || r.Heads < 0 || r.Heads > 2 || r.SectorsPerTrack < 0 || r.SectorSize < 0 {
		return app.NewError(app.ErrCodeInvalidInput, "geometry values cannot be negative", nil)
	}
	if r.Speed < 0 {
		return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("invalid speed %v", r.Speed), nil)
	}
	return nil
}

// Geometry resolves the image layout for a configuration
func (r *Request) Geometry(config *types.CaptureConfig) types.Geometry {
	g := disk.ImageGeometry(r.ImagePath, types.Geometry{
		Tracks:          config.Tracks,
		Heads:           config.Heads,
		SectorsPerTrack: config.SectorsPerTrack,
		SectorSize:      types.DFSSectorSize,
		FirstSector:     config.FirstSector,
	})
	if r.Tracks > 0 {
		g.Tracks = r.Tracks
	}
	if r.Heads > 0 {
		g.Heads = r.Heads
	}
	if r.SectorsPerTrack > 0 {
		g.SectorsPerTrack = r.SectorsPerTrack
	}
	if r.SectorSize > 0 {
		g.SectorSize = r.SectorSize
	}
	return g
}

// Handle renders the image into a raw capture file
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	config, err := ctx.LoadConfig()
	if err != nil {
		return nil, err
	}
	modulation, _ := types.ParseModulation(req.Modulation)

	response := &Response{RawPath: req.RawPath, Modulation: modulation.String(), Geometry: req.Geometry(config)}
	ctx.Log(fmt.Sprintf("Rendering %s as %s flux", req.ImagePath, response.Modulation))

	response.Report, err = services.RenderImage(ctx.Fs, req.ImagePath, req.RawPath, config, services.SynthOptions{
		Modulation: modulation,
		Geometry:   response.Geometry,
		Speed:      req.Speed,
	})
	if err != nil {
		return nil, app.NewError(app.ErrCodeCaptureAccess, "failed to render image", err)
	}
	return response, nil
}

// FormatOutput writes the synthesis summary in the requested output format
func FormatOutput(w io.Writer, response *Response, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(response)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		encoder.SetIndent(2)
		return encoder.Encode(response)
	case "table":
		r := response.Report
		fmt.Fprintf(w, "Capture:  %s\n", response.RawPath)
		fmt.Fprintf(w, "Encoding: %s\n", response.Modulation)
		fmt.Fprintf(w, "Rendered: %d sectors on %d tracks, %d heads\n", r.Sectors, r.Tracks, r.Heads)
		fmt.Fprintf(w, "Longest:  %d bytes\n", r.LongestTrack)
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
