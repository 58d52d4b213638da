package diskstore

import (
	"cmp"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

// SortOrder selects how sectors within a track are ordered for listings and Nth lookups.
type SortOrder int

const (
	// SortByID orders by the sector number recorded in the ID block
	SortByID SortOrder = iota
	// SortByPosition orders by where the ID mark was seen within one rotation
	SortByPosition
)

// String returns the name of the ordering
func (o SortOrder) String() string {
	if o == SortByPosition {
		return "position"
	}
	return "id"
}

// SortByIDOrder orders each track by ID sector number
func (s *Store) SortByIDOrder(rotations int) {
	s.setOrder(SortByID, rotations)
}

// SortByPositionOrder orders each track by angular position. The capture is
// assumed to span the given number of rotations.
func (s *Store) SortByPositionOrder(rotations int) {
	s.setOrder(SortByPosition, rotations)
}

func (s *Store) setOrder(order SortOrder, rotations int) {
	if rotations < 1 {
		rotations = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = order
	s.rotations = rotations
}

// rotationOffset folds a sample position into the first rotation of the capture
func rotationOffset(sector *types.Sector, rotations int) int64 {
	if sector.TrackLength <= 0 {
		return sector.IDPosition
	}
	rotation := sector.TrackLength / int64(rotations)
	if rotation <= 0 {
		return sector.IDPosition
	}
	return sector.IDPosition % rotation
}

// compare orders two sectors of the same track under the current ordering
func (s *Store) compare(a, b *types.Sector) int {
	if s.order == SortByPosition {
		if c := cmp.Compare(rotationOffset(a, s.rotations), rotationOffset(b, s.rotations)); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(a.Physical.Sector, b.Physical.Sector); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Logical.SizeCode, b.Logical.SizeCode); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Logical.Track, b.Logical.Track); c != 0 {
		return c
	}
	return cmp.Compare(s.arrival[keyOf(a)], s.arrival[keyOf(b)])
}

// compareDisk orders by physical track, then head, then the track ordering
func (s *Store) compareDisk(a, b *types.Sector) int {
	if c := cmp.Compare(a.Physical.Track, b.Physical.Track); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Physical.Head, b.Physical.Head); c != 0 {
		return c
	}
	return s.compare(a, b)
}

// Sectors returns every stored sector ordered by track, head and the current ordering
func (s *Store) Sectors() []*types.Sector {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := maps.Values(s.slots)
	slices.SortFunc(all, s.compareDisk)
	return all
}

// Track returns the sectors of one physical track and head in the current ordering
func (s *Store) Track(track, head int) []*types.Sector {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.Sector
	for key, sector := range s.slots {
		if key.physical.Track == track && key.physical.Head == head {
			out = append(out, sector)
		}
	}
	slices.SortFunc(out, s.compare)
	return out
}

// Nth returns the n-th sector (zero based) of a physical track and head in the
// current ordering, or nil.
func (s *Store) Nth(track, head, n int) *types.Sector {
	sectors := s.Track(track, head)
	if n < 0 || n >= len(sectors) {
		return nil
	}
	return sectors[n]
}

// BadSectors returns the physical addresses whose best copy failed its data CRC
func (s *Store) BadSectors() []types.PhysicalAddress {
	good := make(map[types.PhysicalAddress]bool)
	for _, sector := range s.Sectors() {
		if sector.DataQuality == types.QualityGood {
			good[sector.Physical] = true
		} else if _, seen := good[sector.Physical]; !seen {
			good[sector.Physical] = false
		}
	}

	var bad []types.PhysicalAddress
	for addr, ok := range good {
		if !ok {
			bad = append(bad, addr)
		}
	}
	slices.SortFunc(bad, func(a, b types.PhysicalAddress) int {
		if c := cmp.Compare(a.Track, b.Track); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Head, b.Head); c != 0 {
			return c
		}
		return cmp.Compare(a.Sector, b.Sector)
	})
	return bad
}
