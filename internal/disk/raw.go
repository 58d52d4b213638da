package disk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	log "github.com/dsoprea/go-logging"
	"github.com/spf13/afero"
	"go.uber.org/atomic"

	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

var rawLogger = log.NewLogger("disk.raw")

// RawCapture replays a flux capture file as a drive. The file holds a fixed
// number of sample bytes per track side, laid out sequenced or interleaved.
type RawCapture struct {
	file       afero.File
	size       int64
	trackBytes int
	tracks     int
	heads      int
	layout     types.RawLayout
	sampleRate int

	track int
	side  int

	cache      map[int][]byte
	cacheMutex sync.RWMutex
	stats      *RawStatistics
}

// RawStatistics tracks capture file access
type RawStatistics struct {
	TracksRead  atomic.Int64
	BytesRead   atomic.Int64
	CacheHits   atomic.Int64
	CacheMisses atomic.Int64
}

// OpenRawCapture opens a capture file. The number of tracks is derived from
// the file size, the track length and the configured head count.
func OpenRawCapture(fs afero.Fs, path string, config *types.CaptureConfig) (*RawCapture, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat capture file: %w", err)
	}

	perTrack := int64(config.TrackBytes) * int64(config.Heads)
	tracks := int(stat.Size() / perTrack)
	if tracks == 0 {
		file.Close()
		return nil, fmt.Errorf("%w: %s holds %d bytes, one track needs %d", types.ErrNoFluxData, path, stat.Size(), perTrack)
	}
	if stat.Size()%perTrack != 0 {
		rawLogger.Warningf(nil, "Capture file %s has %d trailing bytes", path, stat.Size()%perTrack)
	}

	rawLogger.Debugf(nil, "Opened %s: %d tracks, %d heads, %d bytes per track, %s", path, tracks, config.Heads, config.TrackBytes, config.RawLayout)

	return &RawCapture{
		file:       file,
		size:       stat.Size(),
		trackBytes: config.TrackBytes,
		tracks:     tracks,
		heads:      config.Heads,
		layout:     types.RawLayout(config.RawLayout),
		sampleRate: config.SampleRate,
		cache:      make(map[int][]byte),
		stats:      &RawStatistics{},
	}, nil
}

// Seek moves to a physical track
func (r *RawCapture) Seek(track int) error {
	if track < 0 || track >= r.tracks {
		return fmt.Errorf("%w: track %d, capture holds %d", types.ErrAddressOutOfRange, track, r.tracks)
	}
	r.track = track
	return nil
}

// SelectSide selects the head to sample
func (r *RawCapture) SelectSide(side int) error {
	if side < 0 || side >= r.heads {
		return fmt.Errorf("%w: side %d, capture holds %d", types.ErrAddressOutOfRange, side, r.heads)
	}
	r.side = side
	return nil
}

// SampleRate returns the rate the capture was taken at
func (r *RawCapture) SampleRate() int {
	return r.sampleRate
}

// Tracks returns the number of tracks in the capture
func (r *RawCapture) Tracks() int {
	return r.tracks
}

// Heads returns the number of heads in the capture
func (r *RawCapture) Heads() int {
	return r.heads
}

func (r *RawCapture) index(track, side int) int {
	if r.layout == types.LayoutInterleaved {
		return track*r.heads + side
	}
	return side*r.tracks + track
}

// SampleTrack returns the samples of the current track and side. Repeated
// reads of the same track are served from the cache.
func (r *RawCapture) SampleTrack(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := r.index(r.track, r.side)

	r.cacheMutex.RLock()
	if cached, ok := r.cache[idx]; ok {
		r.cacheMutex.RUnlock()
		r.stats.CacheHits.Inc()
		return append([]byte(nil), cached...), nil
	}
	r.cacheMutex.RUnlock()
	r.stats.CacheMisses.Inc()

	buf := make([]byte, r.trackBytes)
	n, err := r.file.ReadAt(buf, int64(idx)*int64(r.trackBytes))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read track %d side %d: %w", r.track, r.side, err)
	}
	buf = buf[:n]

	r.stats.TracksRead.Inc()
	r.stats.BytesRead.Add(int64(n))

	r.cacheMutex.Lock()
	r.cache[idx] = buf
	r.cacheMutex.Unlock()

	return append([]byte(nil), buf...), nil
}

// Stats returns the access counters
func (r *RawCapture) Stats() *RawStatistics {
	return r.stats
}

// CacheHitRate returns the cache hit rate as a percentage
func (r *RawCapture) CacheHitRate() float64 {
	hits := r.stats.CacheHits.Load()
	total := hits + r.stats.CacheMisses.Load()
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total) * 100.0
}

// ClearCache drops every cached track
func (r *RawCapture) ClearCache() {
	r.cacheMutex.Lock()
	defer r.cacheMutex.Unlock()
	r.cache = make(map[int][]byte)
}

// Close closes the capture file
func (r *RawCapture) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// RawWriter builds a capture file track by track, padding or truncating each
// track to the fixed length.
type RawWriter struct {
	file       afero.File
	trackBytes int
	tracks     int
	heads      int
	layout     types.RawLayout
}

// CreateRawCapture creates a capture file sized for the given tracks and heads
func CreateRawCapture(fs afero.Fs, path string, config *types.CaptureConfig) (*RawWriter, error) {
	file, err := fs.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture file: %w", err)
	}

	w := &RawWriter{
		file:       file,
		trackBytes: config.TrackBytes,
		tracks:     config.Tracks,
		heads:      config.Heads,
		layout:     types.RawLayout(config.RawLayout),
	}
	if err := file.Truncate(int64(w.tracks) * int64(w.heads) * int64(w.trackBytes)); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to size capture file: %w", err)
	}
	return w, nil
}

// WriteTrack stores the samples of one track side
func (w *RawWriter) WriteTrack(track, head int, samples []byte) error {
	if track < 0 || track >= w.tracks || head < 0 || head >= w.heads {
		return fmt.Errorf("%w: track %d head %d", types.ErrAddressOutOfRange, track, head)
	}
	if len(samples) > w.trackBytes {
		rawLogger.Warningf(nil, "Track %d head %d truncated from %d to %d bytes", track, head, len(samples), w.trackBytes)
		samples = samples[:w.trackBytes]
	}

	idx := head*w.tracks + track
	if w.layout == types.LayoutInterleaved {
		idx = track*w.heads + head
	}

	buf := make([]byte, w.trackBytes)
	copy(buf, samples)
	if _, err := w.file.WriteAt(buf, int64(idx)*int64(w.trackBytes)); err != nil {
		return fmt.Errorf("failed to write track %d head %d: %w", track, head, err)
	}
	return nil
}

// Close closes the capture file
func (w *RawWriter) Close() error {
	return w.file.Close()
}
