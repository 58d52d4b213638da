package services

import (
	"fmt"

	log "github.com/dsoprea/go-logging"
	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-fluxdisk/internal/disk"
	"github.com/deploymenttheory/go-fluxdisk/internal/parsers/bitstream"
	"github.com/deploymenttheory/go-fluxdisk/internal/synth"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

var synthLogger = log.NewLogger("services.synth")

// SynthOptions selects how a sector image is laid down as flux
type SynthOptions struct {
	Modulation types.Modulation
	Geometry   types.Geometry

	// Speed scales every cell, 1.0 is a nominal drive
	Speed float64
}

// SynthReport describes a rendered capture file
type SynthReport struct {
	Tracks       int `json:"tracks" yaml:"tracks"`
	Heads        int `json:"heads" yaml:"heads"`
	Sectors      int `json:"sectors" yaml:"sectors"`
	LongestTrack int `json:"longest_track" yaml:"longest_track"`
}

// sizeCodeFor returns the ID size code of a sector length
func sizeCodeFor(size int) (uint8, error) {
	for code := uint8(0); code <= types.MaxSizeCode; code++ {
		if types.SectorBytes(code) == size {
			return code, nil
		}
	}
	return 0, fmt.Errorf("sector size %d has no size code", size)
}

// RenderImage encodes a flat sector image into a raw capture file readable by
// the capture pipeline. Images shorter than the geometry are zero padded.
func RenderImage(fs afero.Fs, imagePath, rawPath string, config *types.CaptureConfig, opts SynthOptions) (*SynthReport, error) {
	g := opts.Geometry
	code, err := sizeCodeFor(g.SectorSize)
	if err != nil {
		return nil, err
	}
	mod, err := bitstream.NewModulation(opts.Modulation)
	if err != nil {
		return nil, err
	}

	image, err := afero.ReadFile(fs, imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(image)) < g.Size() {
		synthLogger.Warningf(nil, "Image %s holds %d of %d bytes, padding with zeros", imagePath, len(image), g.Size())
		image = append(image, make([]byte, g.Size()-int64(len(image)))...)
	}

	rawConfig := *config
	rawConfig.Tracks = g.Tracks
	rawConfig.Heads = g.Heads
	w, err := disk.CreateRawCapture(fs, rawPath, &rawConfig)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	report := &SynthReport{Tracks: g.Tracks, Heads: g.Heads}
	for track := 0; track < g.Tracks; track++ {
		for head := 0; head < g.Heads; head++ {
			t := synth.Track{
				Modulation: opts.Modulation,
				SampleRate: config.SampleRate,
				Speed:      opts.Speed,
				Index:      true,
				Volume:     254,
			}
			for i := 0; i < g.SectorsPerTrack; i++ {
				var off int64
				if g.Interleaved {
					off = int64(track*g.Heads + head)
				} else {
					off = int64(head*g.Tracks + track)
				}
				off = off*int64(g.TrackBytes()) + int64(i*g.SectorSize)

				t.Sectors = append(t.Sectors, synth.Sector{
					Track:    track + mod.TrackBase(),
					Head:     head,
					Sector:   g.FirstSector + i,
					SizeCode: code,
					Data:     image[off : off+int64(g.SectorSize)],
				})
			}

			samples, err := synth.Encode(t)
			if err != nil {
				return nil, fmt.Errorf("failed to encode track %d head %d: %w", track, head, err)
			}
			if len(samples) > config.TrackBytes {
				return nil, fmt.Errorf("track %d head %d needs %d bytes, track_bytes is %d", track, head, len(samples), config.TrackBytes)
			}
			if err := w.WriteTrack(track, head, samples); err != nil {
				return nil, err
			}

			report.Sectors += len(t.Sectors)
			report.LongestTrack = max(report.LongestTrack, len(samples))
		}
	}

	synthLogger.Debugf(nil, "Rendered %d sectors of %s into %s", report.Sectors, imagePath, rawPath)
	return report, w.Close()
}
