package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/dsoprea/go-logging"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/deploymenttheory/go-fluxdisk/internal/diskstore"
	"github.com/deploymenttheory/go-fluxdisk/internal/interfaces"
	"github.com/deploymenttheory/go-fluxdisk/internal/parsers/bitstream"
	"github.com/deploymenttheory/go-fluxdisk/internal/parsers/flux"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

var captureLogger = log.NewLogger("services.capture")

// CaptureStatistics counts the work done by a capture service
type CaptureStatistics struct {
	Attempts   atomic.Int64
	Candidates atomic.Int64
	Accepted   atomic.Int64
}

// trackCounter is implemented by samplers that know how many tracks and heads they hold
type trackCounter interface {
	Tracks() int
	Heads() int
}

// CaptureServiceImpl runs the classifier and every configured modulation over
// each capture of each track and reconciles the results in a sector store
type CaptureServiceImpl struct {
	sampler     interfaces.HardwareSampler
	config      *types.CaptureConfig
	store       *diskstore.Store
	modulations []interfaces.Modulation
	fallback    types.Density
	geometry    types.Geometry
	stats       *CaptureStatistics

	// mu serialises sampler use between a capture run and on-demand fetches
	mu       sync.Mutex
	progress func(message string, percent int)
}

// NewCaptureService creates a capture service over a sampler
func NewCaptureService(sampler interfaces.HardwareSampler, config *types.CaptureConfig) (*CaptureServiceImpl, error) {
	if sampler == nil {
		return nil, fmt.Errorf("sampler cannot be nil")
	}
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid capture config: %w", err)
	}

	kinds, err := types.ParseModulations(config.Modulations)
	if err != nil {
		return nil, err
	}
	modulations := make([]interfaces.Modulation, 0, len(kinds))
	for _, kind := range kinds {
		mod, err := bitstream.NewModulation(kind)
		if err != nil {
			return nil, fmt.Errorf("failed to create modulation %s: %w", kind, err)
		}
		modulations = append(modulations, mod)
	}

	fallback, err := types.ParseDensity(config.DefaultDensity)
	if err != nil {
		return nil, err
	}

	geometry := types.Geometry{
		Tracks:          config.Tracks,
		Heads:           config.Heads,
		SectorsPerTrack: config.SectorsPerTrack,
		SectorSize:      types.SectorBytes(types.FallbackSizeCode),
		FirstSector:     config.FirstSector,
	}
	if counter, ok := sampler.(trackCounter); ok {
		geometry.Tracks = min(geometry.Tracks, counter.Tracks())
		geometry.Heads = min(geometry.Heads, counter.Heads())
	}

	store := diskstore.NewStore()
	store.SortByIDOrder(config.Rotations)

	return &CaptureServiceImpl{
		sampler:     sampler,
		config:      config,
		store:       store,
		modulations: modulations,
		fallback:    fallback,
		geometry:    geometry,
		stats:       &CaptureStatistics{},
	}, nil
}

// SetProgress sets the callback receiving per-track progress
func (c *CaptureServiceImpl) SetProgress(callback func(string, int)) {
	c.progress = callback
}

// Store returns the sector store filled by the service
func (c *CaptureServiceImpl) Store() *diskstore.Store {
	return c.store
}

// Geometry returns the track, head and sector range the service captures
func (c *CaptureServiceImpl) Geometry() types.Geometry {
	return c.geometry
}

// Stats returns the capture counters
func (c *CaptureServiceImpl) Stats() *CaptureStatistics {
	return c.stats
}

// StatusGrid returns the per-sector quality map of the captured range
func (c *CaptureServiceImpl) StatusGrid() *diskstore.Grid {
	return c.store.StatusGrid(c.geometry)
}

// decode classifies one capture and runs a fresh session per modulation.
// Sessions share nothing, so they run in parallel when configured.
func (c *CaptureServiceImpl) decode(samples []byte, track, head int) (*flux.Analysis, []*bitstream.Session, error) {
	analysis, err := flux.Analyse(samples, c.sampler.SampleRate(), c.config.HistogramSize, c.fallback)
	if err != nil {
		return nil, nil, err
	}

	sessions := make([]*bitstream.Session, len(c.modulations))
	if c.config.ParallelDecode && len(c.modulations) > 1 {
		var wg conc.WaitGroup
		for i, mod := range c.modulations {
			i, mod := i, mod
			wg.Go(func() {
				sessions[i] = bitstream.Decode(samples, analysis, mod, c.config.UsePLL, track, head)
			})
		}
		wg.Wait()
	} else {
		for i, mod := range c.modulations {
			sessions[i] = bitstream.Decode(samples, analysis, mod, c.config.UsePLL, track, head)
		}
	}

	return analysis, sessions, nil
}

// position seeks and selects the side to capture
func (c *CaptureServiceImpl) position(track, head int) error {
	if err := c.sampler.Seek(track); err != nil {
		return fmt.Errorf("failed to seek to track %d: %w", track, err)
	}
	if err := c.sampler.SelectSide(head); err != nil {
		return fmt.Errorf("failed to select side %d: %w", head, err)
	}
	return nil
}

// CaptureTrack samples a track side until every sector has a GOOD copy or the
// retries run out. Candidates are added in the configured modulation order.
func (c *CaptureServiceImpl) CaptureTrack(ctx context.Context, track, head int) (*TrackReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.position(track, head); err != nil {
		return nil, err
	}

	report := &TrackReport{Track: track, Head: head, Accepted: make(map[string]int)}
	for attempt := 1; attempt <= c.config.Retries; attempt++ {
		samples, err := c.sampler.SampleTrack(ctx)
		if err != nil {
			return report, fmt.Errorf("failed to sample track %d head %d: %w", track, head, err)
		}
		c.stats.Attempts.Inc()
		report.Attempts = attempt

		analysis, sessions, err := c.decode(samples, track, head)
		if err != nil {
			captureLogger.Warningf(nil, "Track %d head %d attempt %d: %v", track, head, attempt, err)
			continue
		}
		report.Density = analysis.DensityName
		report.Fallback = analysis.Fallback

		for _, session := range sessions {
			for _, sector := range session.Sectors() {
				c.stats.Candidates.Inc()
				if c.store.Add(sector) {
					c.stats.Accepted.Inc()
					report.Accepted[session.Modulation().String()]++
				}
			}
		}

		if c.store.TrackComplete(track, head, c.geometry) {
			report.Complete = true
			break
		}
		if attempt < c.config.Retries {
			captureLogger.Debugf(nil, "Track %d head %d incomplete after attempt %d, retrying", track, head, attempt)
		}
	}

	report.Sectors = c.store.Count(track, head)
	if !report.Complete {
		report.Missing = c.store.MissingSectors(track, head, c.geometry)
		captureLogger.Warningf(nil, "Track %d head %d: sectors %v missing after %d attempts", track, head, report.Missing, report.Attempts)
		return report, fmt.Errorf("%w: track %d head %d after %d attempts, missing sectors %v",
			types.ErrRetriesExhausted, track, head, report.Attempts, report.Missing)
	}
	return report, nil
}

// FetchTrack captures a track on demand, merging what it finds into the store
func (c *CaptureServiceImpl) FetchTrack(ctx context.Context, track, head int) error {
	_, err := c.CaptureTrack(ctx, track, head)
	return err
}

// Capture clears the store and captures every track side. A track that runs
// out of retries is reported and the capture carries on; sampler failures
// and cancellation stop it.
func (c *CaptureServiceImpl) Capture(ctx context.Context) (*CaptureReport, error) {
	c.store.Reset()

	tracks := c.geometry.Tracks
	if c.config.CatalogOnly {
		tracks = 1
	}
	report := &CaptureReport{
		ID:          uuid.NewString(),
		StartedAt:   time.Now(),
		Tracks:      tracks,
		Heads:       c.geometry.Heads,
		CatalogOnly: c.config.CatalogOnly,
	}
	attemptsBefore := c.stats.Attempts.Load()

	captureLogger.Infof(nil, "Capture %s: %d tracks, %d heads, modulations %v", report.ID, tracks, report.Heads, c.config.Modulations)

	var errs error
	total := tracks * report.Heads
	done := 0
	for track := 0; track < tracks; track++ {
		for head := 0; head < report.Heads; head++ {
			if head == 1 && report.SingleSided {
				continue
			}

			tr, err := c.CaptureTrack(ctx, track, head)
			if tr != nil {
				report.TrackList = append(report.TrackList, tr)
			}
			if err != nil && !errors.Is(err, types.ErrRetriesExhausted) {
				errs = multierr.Append(errs, err)
				report.finish(c, attemptsBefore, errs)
				return report, errs
			}

			if track == 0 && head == 1 && c.store.Count(0, 1) == 0 {
				captureLogger.Infof(nil, "No sectors on track 0 head 1, treating the disk as single sided")
				report.SingleSided = true
				total -= tracks - 1
				err = nil
			}
			errs = multierr.Append(errs, err)

			done++
			if c.progress != nil {
				c.progress(fmt.Sprintf("Track %d head %d: %d sectors", track, head, c.store.Count(track, head)), done*100/total)
			}
		}
	}
	if report.SingleSided {
		report.Heads = 1
	}

	report.finish(c, attemptsBefore, errs)
	captureLogger.Infof(nil, "Capture %s finished in %v: %d sectors, %d good", report.ID, report.Duration, report.Summary.Sectors, report.Summary.Good)
	return report, errs
}

func (r *CaptureReport) finish(c *CaptureServiceImpl, attemptsBefore int64, errs error) {
	r.Duration = time.Since(r.StartedAt)
	r.Attempts = c.stats.Attempts.Load() - attemptsBefore
	r.Summary = c.store.Summary()
	r.Checksums = make([]uint32, r.Heads)
	for head := range r.Checksums {
		r.Checksums[head] = c.store.VolumeChecksum(head)
	}
	r.Errors = nil
	for _, err := range multierr.Errors(errs) {
		r.Errors = append(r.Errors, err.Error())
	}
}

// AnalyzeTrack samples a track side once and reports the classifier verdict
// and the decoding statistics of every modulation. The store is left alone.
func (c *CaptureServiceImpl) AnalyzeTrack(ctx context.Context, track, head int) (*TrackAnalysis, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.position(track, head); err != nil {
		return nil, err
	}
	samples, err := c.sampler.SampleTrack(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sample track %d head %d: %w", track, head, err)
	}

	analysis, sessions, err := c.decode(samples, track, head)
	if err != nil {
		return nil, fmt.Errorf("failed to analyse track %d head %d: %w", track, head, err)
	}

	result := &TrackAnalysis{
		Track:    track,
		Head:     head,
		Flux:     analysis,
		Sessions: make(map[string]bitstream.SessionStats, len(sessions)),
	}
	for _, session := range sessions {
		result.Sessions[session.Modulation().String()] = session.Stats()
	}
	return result, nil
}
