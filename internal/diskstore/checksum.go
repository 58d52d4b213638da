package diskstore

import (
	"cmp"

	"github.com/snksoft/crc"
	"golang.org/x/exp/slices"

	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

var crc32Table = crc.NewTable(crc.CRC32)

// addresses returns the distinct physical addresses recorded on a head in
// track then sector order
func (s *Store) addresses(head int) []types.PhysicalAddress {
	s.mu.RLock()
	seen := make(map[types.PhysicalAddress]struct{})
	for key := range s.slots {
		if key.physical.Head == head {
			seen[key.physical] = struct{}{}
		}
	}
	s.mu.RUnlock()

	out := make([]types.PhysicalAddress, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	slices.SortFunc(out, func(a, b types.PhysicalAddress) int {
		if c := cmp.Compare(a.Track, b.Track); c != 0 {
			return c
		}
		return cmp.Compare(a.Sector, b.Sector)
	})
	return out
}

// VolumeChecksum returns the CRC-32 of every sector payload recorded on a head,
// taken in physical track then sector order. Only the best copy of each
// physical sector contributes.
func (s *Store) VolumeChecksum(head int) uint32 {
	v := crc32Table.InitCrc()
	for _, addr := range s.addresses(head) {
		if best := s.FindByPhysical(addr.Track, addr.Head, addr.Sector); best != nil {
			v = crc32Table.UpdateCrc(v, best.Data)
		}
	}
	return uint32(crc32Table.CRC(v))
}
