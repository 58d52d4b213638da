package services

import (
	"time"

	"github.com/deploymenttheory/go-fluxdisk/internal/diskstore"
	"github.com/deploymenttheory/go-fluxdisk/internal/parsers/bitstream"
	"github.com/deploymenttheory/go-fluxdisk/internal/parsers/flux"
)

// TrackReport describes the capture of one track side
type TrackReport struct {
	Track    int            `json:"track" yaml:"track"`
	Head     int            `json:"head" yaml:"head"`
	Attempts int            `json:"attempts" yaml:"attempts"`
	Density  string         `json:"density" yaml:"density"`
	Fallback bool           `json:"fallback" yaml:"fallback"`
	Sectors  int            `json:"sectors" yaml:"sectors"`
	Complete bool           `json:"complete" yaml:"complete"`
	Missing  []int          `json:"missing,omitempty" yaml:"missing,omitempty"`
	Accepted map[string]int `json:"accepted" yaml:"accepted"`
}

// CaptureReport summarises a whole capture run
type CaptureReport struct {
	ID          string            `json:"id" yaml:"id"`
	StartedAt   time.Time         `json:"started_at" yaml:"started_at"`
	Duration    time.Duration     `json:"duration" yaml:"duration"`
	Tracks      int               `json:"tracks" yaml:"tracks"`
	Heads       int               `json:"heads" yaml:"heads"`
	SingleSided bool              `json:"single_sided" yaml:"single_sided"`
	CatalogOnly bool              `json:"catalog_only" yaml:"catalog_only"`
	Attempts    int64             `json:"attempts" yaml:"attempts"`
	Summary     diskstore.Summary `json:"summary" yaml:"summary"`
	Checksums   []uint32          `json:"checksums" yaml:"checksums"`
	TrackList   []*TrackReport    `json:"track_list" yaml:"track_list"`
	Errors      []string          `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// IncompleteTracks returns the reports of tracks left with missing sectors
func (r *CaptureReport) IncompleteTracks() []*TrackReport {
	var out []*TrackReport
	for _, t := range r.TrackList {
		if !t.Complete {
			out = append(out, t)
		}
	}
	return out
}

// TrackAnalysis is the classifier and decoder view of a single capture,
// without touching the store
type TrackAnalysis struct {
	Track    int                               `json:"track" yaml:"track"`
	Head     int                               `json:"head" yaml:"head"`
	Flux     *flux.Analysis                    `json:"flux" yaml:"flux"`
	Sessions map[string]bitstream.SessionStats `json:"sessions" yaml:"sessions"`
}

// ExportReport describes an image export
type ExportReport struct {
	Written int      `json:"written" yaml:"written"`
	Bad     int      `json:"bad" yaml:"bad"`
	Missing []string `json:"missing,omitempty" yaml:"missing,omitempty"`
}
