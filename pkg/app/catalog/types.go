package catalog

import (
	"time"

	"github.com/deploymenttheory/go-fluxdisk/pkg/services"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
	"github.com/deploymenttheory/go-fluxdisk/pkg/app"
)

// Request represents a catalogue request
type Request struct {
	Target app.CaptureTarget

	// Refetch re-captures tracks holding missing directory sectors
	Refetch bool

	// MaxDepth limits the directory levels shown, 0 shows all
	MaxDepth int
}

// Response represents the decoded catalogue and the capture behind it
type Response struct {
	Capture   *services.CaptureReport `json:"capture" yaml:"capture"`
	Catalogue *types.Catalogue        `json:"catalogue" yaml:"catalogue"`
	ReadTime  time.Duration           `json:"read_time" yaml:"read_time"`
	MaxDepth  int                     `json:"-" yaml:"-"`
}

// Line is one row of the flattened directory tree
type Line struct {
	Path       string
	Depth      int
	Attributes string
	Info       string
	Length     uint32
	Address    uint32
	Error      string
}

// Lines flattens the directory tree depth first. Entries below maxDepth are
// left out when maxDepth is positive.
func (r *Response) Lines() []Line {
	if r.Catalogue == nil || r.Catalogue.Root == nil {
		return nil
	}
	var lines []Line
	var walk func(dir *types.Directory, path string, depth int)
	walk = func(dir *types.Directory, path string, depth int) {
		for _, e := range dir.Entries {
			line := Line{
				Path:       path + "." + e.Name,
				Depth:      depth,
				Attributes: e.AttributeString(),
				Info:       e.Describe(),
				Length:     e.Length,
				Address:    e.IndirectAddress,
				Error:      e.Error,
			}
			lines = append(lines, line)
			if e.Directory != nil && (r.MaxDepth <= 0 || depth+1 < r.MaxDepth) {
				walk(e.Directory, line.Path, depth+1)
			}
		}
	}
	walk(r.Catalogue.Root, "$", 0)
	return lines
}
