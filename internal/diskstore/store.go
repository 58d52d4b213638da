package diskstore

import (
	"sync"

	log "github.com/dsoprea/go-logging"
	"go.uber.org/atomic"

	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

var storeLogger = log.NewLogger("diskstore.store")

// slotKey identifies one reconciled copy of a sector. The same physical sector
// read with a different ID block occupies its own slot.
type slotKey struct {
	physical types.PhysicalAddress
	logical  types.LogicalAddress
}

// StoreStatistics counts what happened to candidates offered to the store
type StoreStatistics struct {
	Offered  atomic.Int64
	Added    atomic.Int64
	Upgraded atomic.Int64
	Rejected atomic.Int64
}

// Store holds every decoded sector of a disk, reconciled so that each slot
// keeps its best copy. Sectors are immutable once added.
type Store struct {
	mu      sync.RWMutex
	slots   map[slotKey]*types.Sector
	arrival map[slotKey]uint64
	next    uint64

	order     SortOrder
	rotations int

	stats *StoreStatistics
}

// NewStore returns an empty store ordered by sector ID
func NewStore() *Store {
	return &Store{
		slots:     make(map[slotKey]*types.Sector),
		arrival:   make(map[slotKey]uint64),
		order:     SortByID,
		rotations: 1,
		stats:     &StoreStatistics{},
	}
}

func keyOf(s *types.Sector) slotKey {
	return slotKey{physical: s.Physical, logical: s.Logical}
}

// Add offers a candidate sector. It is accepted when its slot is empty or holds
// a copy of strictly lower data quality, and the accepted copy replaces it.
func (s *Store) Add(sector *types.Sector) bool {
	if sector == nil || sector.IDQuality != types.QualityGood {
		return false
	}
	s.stats.Offered.Inc()

	key := keyOf(sector)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.slots[key]
	if ok && existing.DataQuality >= sector.DataQuality {
		s.stats.Rejected.Inc()
		return false
	}

	s.slots[key] = sector
	if ok {
		s.stats.Upgraded.Inc()
		storeLogger.Debugf(nil, "Sector %s upgraded from %s to %s", sector.Physical, existing.DataQuality, sector.DataQuality)
	} else {
		s.arrival[key] = s.next
		s.next++
		s.stats.Added.Inc()
	}
	return true
}

// Reset empties the store before a new capture
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots = make(map[slotKey]*types.Sector)
	s.arrival = make(map[slotKey]uint64)
	s.next = 0
	s.stats = &StoreStatistics{}
}

// Stats returns the store counters
func (s *Store) Stats() *StoreStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Len returns the number of occupied slots
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}

// better reports whether a should be preferred over b when several slots answer a lookup
func (s *Store) better(a, b *types.Sector) bool {
	if b == nil {
		return true
	}
	if a.DataQuality != b.DataQuality {
		return a.DataQuality > b.DataQuality
	}
	return s.arrival[keyOf(a)] < s.arrival[keyOf(b)]
}

func (s *Store) find(match func(*types.Sector) bool) *types.Sector {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *types.Sector
	for _, sector := range s.slots {
		if match(sector) && s.better(sector, best) {
			best = sector
		}
	}
	return best
}

// FindByPhysical returns the best sector read on the given drive track and head
// whose ID block carried the given sector number, or nil.
func (s *Store) FindByPhysical(track, head, sector int) *types.Sector {
	return s.find(func(c *types.Sector) bool {
		return c.Physical.Track == track && c.Physical.Head == head && c.Physical.Sector == sector
	})
}

// FindByLogical returns the best sector whose ID block names the given address, or nil.
func (s *Store) FindByLogical(track, head, sector int) *types.Sector {
	return s.find(func(c *types.Sector) bool {
		return c.Logical.Track == track && c.Logical.Head == head && c.Logical.Sector == sector
	})
}

// Count returns the number of slots recorded on a physical track and head
func (s *Store) Count(track, head int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for key := range s.slots {
		if key.physical.Track == track && key.physical.Head == head {
			n++
		}
	}
	return n
}

// CountByModulation returns the number of slots decoded with a modulation
func (s *Store) CountByModulation(m types.Modulation) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, sector := range s.slots {
		if sector.Modulation == m {
			n++
		}
	}
	return n
}

// Summary describes the extent of the stored sectors.
type Summary struct {
	Sectors       int `json:"sectors" yaml:"sectors"`
	Good          int `json:"good" yaml:"good"`
	Bad           int `json:"bad" yaml:"bad"`
	MinTrack      int `json:"min_track" yaml:"min_track"`
	MaxTrack      int `json:"max_track" yaml:"max_track"`
	MinHead       int `json:"min_head" yaml:"min_head"`
	MaxHead       int `json:"max_head" yaml:"max_head"`
	MinSectorID   int `json:"min_sector_id" yaml:"min_sector_id"`
	MaxSectorID   int `json:"max_sector_id" yaml:"max_sector_id"`
	MinSectorSize int `json:"min_sector_size" yaml:"min_sector_size"`
	MaxSectorSize int `json:"max_sector_size" yaml:"max_sector_size"`
}

// Summary returns the track, head, sector id and size ranges of the store
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{Sectors: len(s.slots)}
	first := true
	for _, sector := range s.slots {
		size := types.SectorBytes(sector.Logical.SizeCode)
		if first {
			sum.MinTrack, sum.MaxTrack = sector.Physical.Track, sector.Physical.Track
			sum.MinHead, sum.MaxHead = sector.Physical.Head, sector.Physical.Head
			sum.MinSectorID, sum.MaxSectorID = sector.Physical.Sector, sector.Physical.Sector
			sum.MinSectorSize, sum.MaxSectorSize = size, size
			first = false
		}
		sum.MinTrack = min(sum.MinTrack, sector.Physical.Track)
		sum.MaxTrack = max(sum.MaxTrack, sector.Physical.Track)
		sum.MinHead = min(sum.MinHead, sector.Physical.Head)
		sum.MaxHead = max(sum.MaxHead, sector.Physical.Head)
		sum.MinSectorID = min(sum.MinSectorID, sector.Physical.Sector)
		sum.MaxSectorID = max(sum.MaxSectorID, sector.Physical.Sector)
		sum.MinSectorSize = min(sum.MinSectorSize, size)
		sum.MaxSectorSize = max(sum.MaxSectorSize, size)

		if sector.DataQuality == types.QualityGood {
			sum.Good++
		} else {
			sum.Bad++
		}
	}
	return sum
}
