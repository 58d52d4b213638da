// File: internal/interfaces/capture.go
package interfaces

import (
	"context"

	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

// HardwareSampler provides raw flux captures from a drive or a capture file
type HardwareSampler interface {
	// Seek moves the head to the specified physical track
	Seek(track int) error

	// SelectSide selects the active head
	SelectSide(side int) error

	// SampleTrack captures one revolution set of the current track as a bit stream (MSB first)
	SampleTrack(ctx context.Context) ([]byte, error)

	// SampleRate returns the capture rate in samples per second
	SampleRate() int
}

// ImageSink receives recovered sector payloads
type ImageSink interface {
	// WriteSector stores the payload of one sector at its physical address
	WriteSector(track, head, sector int, data []byte) error

	// Close flushes pending output
	Close() error
}

// TrackFetcher re-captures a track on demand, for walks that hit a missing sector
type TrackFetcher interface {
	// FetchTrack captures the track and merges its sectors into the store
	FetchTrack(ctx context.Context, track, head int) error
}

// SectorLocator provides sector lookups for the catalogue decoders
type SectorLocator interface {
	// FindByPhysical looks a sector up by drive track, head and ID sector number
	FindByPhysical(track, head, sector int) *types.Sector

	// FindByLogical looks a sector up by the address recorded in its ID block
	FindByLogical(track, head, sector int) *types.Sector
}
