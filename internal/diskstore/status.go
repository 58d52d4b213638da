package diskstore

import (
	"strings"

	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

// Status returns the best data quality recorded for a physical sector
func (s *Store) Status(track, head, sector int) types.Quality {
	found := s.FindByPhysical(track, head, sector)
	if found == nil {
		return types.QualityAbsent
	}
	return found.DataQuality
}

// TrackComplete reports whether every sector of a track side has a GOOD copy
func (s *Store) TrackComplete(track, head int, geometry types.Geometry) bool {
	for i := 0; i < geometry.SectorsPerTrack; i++ {
		if s.Status(track, head, geometry.FirstSector+i) != types.QualityGood {
			return false
		}
	}
	return true
}

// MissingSectors lists the sector numbers of a track side without a GOOD copy
func (s *Store) MissingSectors(track, head int, geometry types.Geometry) []int {
	var missing []int
	for i := 0; i < geometry.SectorsPerTrack; i++ {
		if s.Status(track, head, geometry.FirstSector+i) != types.QualityGood {
			missing = append(missing, geometry.FirstSector+i)
		}
	}
	return missing
}

// Grid is a per-sector quality map of a disk.
type Grid struct {
	Tracks      int               `json:"tracks" yaml:"tracks"`
	Heads       int               `json:"heads" yaml:"heads"`
	Sectors     int               `json:"sectors" yaml:"sectors"`
	FirstSector int               `json:"first_sector" yaml:"first_sector"`
	Cells       [][]types.Quality `json:"-" yaml:"-"`
	Rows        []string          `json:"rows" yaml:"rows"`
}

// Grid status characters
const (
	GridGood   = '#'
	GridBad    = '?'
	GridAbsent = '.'
)

// StatusGrid builds the quality map for a geometry, one row per track side
// ordered track then head
func (s *Store) StatusGrid(geometry types.Geometry) *Grid {
	g := &Grid{
		Tracks:      geometry.Tracks,
		Heads:       geometry.Heads,
		Sectors:     geometry.SectorsPerTrack,
		FirstSector: geometry.FirstSector,
	}

	for track := 0; track < geometry.Tracks; track++ {
		for head := 0; head < geometry.Heads; head++ {
			cells := make([]types.Quality, geometry.SectorsPerTrack)
			var sb strings.Builder
			for i := range cells {
				cells[i] = s.Status(track, head, geometry.FirstSector+i)
				sb.WriteByte(qualityChar(cells[i]))
			}
			g.Cells = append(g.Cells, cells)
			g.Rows = append(g.Rows, sb.String())
		}
	}
	return g
}

// Row returns the cells of one track side
func (g *Grid) Row(track, head int) []types.Quality {
	i := track*g.Heads + head
	if i < 0 || i >= len(g.Cells) {
		return nil
	}
	return g.Cells[i]
}

func qualityChar(q types.Quality) byte {
	switch q {
	case types.QualityGood:
		return GridGood
	case types.QualityBad:
		return GridBad
	default:
		return GridAbsent
	}
}
