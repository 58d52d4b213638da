package diskstore

import (
	"context"
	"fmt"
	"io"

	"github.com/deploymenttheory/go-fluxdisk/internal/interfaces"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

// AbsoluteReader presents the store as a linear image of the given geometry.
// Sectors are looked up by physical address.
type AbsoluteReader struct {
	store    *Store
	geometry types.Geometry

	ctx     context.Context
	fetcher interfaces.TrackFetcher
	fetched map[[2]int]bool
}

// NewAbsoluteReader returns a reader over the store laid out as geometry
func NewAbsoluteReader(store *Store, geometry types.Geometry) *AbsoluteReader {
	return &AbsoluteReader{
		store:    store,
		geometry: geometry,
		ctx:      context.Background(),
	}
}

// WithFetcher lets the reader re-capture a track once when one of its sectors is missing
func (r *AbsoluteReader) WithFetcher(ctx context.Context, fetcher interfaces.TrackFetcher) *AbsoluteReader {
	r.ctx = ctx
	r.fetcher = fetcher
	r.fetched = make(map[[2]int]bool)
	return r
}

// Geometry returns the layout the reader was built with
func (r *AbsoluteReader) Geometry() types.Geometry {
	return r.geometry
}

// Size returns the byte length of the image
func (r *AbsoluteReader) Size() int64 {
	return r.geometry.Size()
}

// lookup finds a sector, re-capturing its track through the fetcher at most once
func (r *AbsoluteReader) lookup(track, head, sector int) *types.Sector {
	if found := r.store.FindByPhysical(track, head, sector); found != nil {
		return found
	}
	if r.fetcher == nil {
		return nil
	}

	key := [2]int{track, head}
	if r.fetched[key] {
		return nil
	}
	r.fetched[key] = true

	if err := r.fetcher.FetchTrack(r.ctx, track, head); err != nil {
		storeLogger.Warningf(nil, "Fetching track %d head %d failed: %v", track, head, err)
	}
	return r.store.FindByPhysical(track, head, sector)
}

// ReadAt implements io.ReaderAt. A read that reaches a missing sector returns
// the bytes read so far with ErrSectorMissing.
func (r *AbsoluteReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	size := r.geometry.Size()
	if off >= size {
		return 0, io.EOF
	}

	n := 0
	for n < len(p) {
		pos := off + int64(n)
		if pos >= size {
			return n, io.EOF
		}

		track, head, sector, within := r.geometry.Locate(pos)
		found := r.lookup(track, head, sector)
		if found == nil || within >= len(found.Data) {
			return n, fmt.Errorf("%w: track %d head %d sector %d", types.ErrSectorMissing, track, head, sector)
		}

		avail := min(len(found.Data), r.geometry.SectorSize) - within
		if avail <= 0 {
			return n, fmt.Errorf("%w: track %d head %d sector %d", types.ErrSectorMissing, track, head, sector)
		}
		n += copy(p[n:], found.Data[within:within+avail])
	}

	return n, nil
}
