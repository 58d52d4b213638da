// Package status captures a disk and reports the quality of every sector.
package status

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-fluxdisk/internal/diskstore"
	"github.com/deploymenttheory/go-fluxdisk/pkg/services"
	"github.com/deploymenttheory/go-fluxdisk/pkg/app"
)

// Request represents a status request
type Request struct {
	Target app.CaptureTarget
}

// Validate validates a status request
func (r *Request) Validate() error {
	return r.Target.Validate()
}

// Response carries the capture report and its quality grid
type Response struct {
	Capture *services.CaptureReport `json:"capture" yaml:"capture"`
	Grid    *diskstore.Grid         `json:"grid" yaml:"grid"`
	Stats   Stats                   `json:"stats" yaml:"stats"`
}

// Stats are the capture counters of the run
type Stats struct {
	Attempts   int64 `json:"attempts" yaml:"attempts"`
	Candidates int64 `json:"candidates" yaml:"candidates"`
	Accepted   int64 `json:"accepted" yaml:"accepted"`
}

// Handle captures the disk and builds its status grid
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	session, err := app.OpenSession(ctx, &req.Target)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	report, err := session.Run(ctx)
	if err != nil {
		return nil, err
	}

	stats := session.Capture.Stats()
	return &Response{
		Capture: report,
		Grid:    session.Capture.StatusGrid(),
		Stats: Stats{
			Attempts:   stats.Attempts.Load(),
			Candidates: stats.Candidates.Load(),
			Accepted:   stats.Accepted.Load(),
		},
	}, nil
}

// FormatOutput writes the status in the requested output format
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
		return formatGrid(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// formatGrid prints one row per track side, '#' good, '?' bad, '.' absent
func formatGrid(w io.Writer, response *Response) error {
	g := response.Grid
	for i, row := range g.Rows {
		fmt.Fprintf(w, "%02d.%d %s\n", i/g.Heads, i%g.Heads, row)
	}

	r := response.Capture
	fmt.Fprintf(w, "\n%d good, %d bad of %d sectors in %v (%d attempts)\n",
		r.Summary.Good, r.Summary.Bad, g.Tracks*g.Heads*g.Sectors, r.Duration.Round(time.Millisecond), response.Stats.Attempts)
	if r.SingleSided {
		fmt.Fprintln(w, "Single sided disc")
	}
	if incomplete := r.IncompleteTracks(); len(incomplete) > 0 {
		fmt.Fprintf(w, "%d incomplete track sides\n", len(incomplete))
	}
	return nil
}
