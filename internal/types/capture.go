package types

import "fmt"

// RawLayout is the order of tracks inside a raw flux capture file.
type RawLayout string

const (
	// LayoutSequenced stores every track of side 0, then every track of side 1
	LayoutSequenced RawLayout = "sequenced"
	// LayoutInterleaved stores track 0 side 0, track 0 side 1, track 1 side 0, ...
	LayoutInterleaved RawLayout = "interleaved"
)

// CaptureConfig holds the tunables of a capture run
type CaptureConfig struct {
	SampleRate      int      `mapstructure:"sample_rate" json:"sample_rate" yaml:"sample_rate"`
	Retries         int      `mapstructure:"retries" json:"retries" yaml:"retries"`
	Tracks          int      `mapstructure:"tracks" json:"tracks" yaml:"tracks"`
	Heads           int      `mapstructure:"heads" json:"heads" yaml:"heads"`
	SectorsPerTrack int      `mapstructure:"sectors_per_track" json:"sectors_per_track" yaml:"sectors_per_track"`
	FirstSector     int      `mapstructure:"first_sector" json:"first_sector" yaml:"first_sector"`
	HistogramSize   int      `mapstructure:"histogram_size" json:"histogram_size" yaml:"histogram_size"`
	DefaultDensity  string   `mapstructure:"default_density" json:"default_density" yaml:"default_density"`
	UsePLL          bool     `mapstructure:"use_pll" json:"use_pll" yaml:"use_pll"`
	Modulations     []string `mapstructure:"modulations" json:"modulations" yaml:"modulations"`
	Rotations       int      `mapstructure:"rotations" json:"rotations" yaml:"rotations"`
	TrackBytes      int      `mapstructure:"track_bytes" json:"track_bytes" yaml:"track_bytes"`
	RawLayout       string   `mapstructure:"raw_layout" json:"raw_layout" yaml:"raw_layout"`
	CatalogOnly     bool     `mapstructure:"catalog_only" json:"catalog_only" yaml:"catalog_only"`
	ParallelDecode  bool     `mapstructure:"parallel_decode" json:"parallel_decode" yaml:"parallel_decode"`
}

// DefaultCaptureConfig returns the configuration used when no file or environment overrides exist
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:      DefaultSampleRate,
		Retries:         10,
		Tracks:          80,
		Heads:           2,
		SectorsPerTrack: 10,
		FirstSector:     0,
		HistogramSize:   DefaultHistogramSize,
		DefaultDensity:  DensityFMSD.String(),
		UsePLL:          false,
		Modulations:     []string{"fm", "mfm", "amigamfm", "gcr", "applegcr"},
		Rotations:       1,
		TrackBytes:      1 << 20,
		RawLayout:       string(LayoutSequenced),
		CatalogOnly:     false,
		ParallelDecode:  true,
	}
}

// Validate checks the configuration for values the pipeline cannot work with
func (c *CaptureConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Retries < 1 {
		return fmt.Errorf("retries must be at least 1, got %d", c.Retries)
	}
	if c.Tracks < 1 || c.Tracks > 84 {
		return fmt.Errorf("tracks must be between 1 and 84, got %d", c.Tracks)
	}
	if c.Heads != 1 && c.Heads != 2 {
		return fmt.Errorf("heads must be 1 or 2, got %d", c.Heads)
	}
	if c.SectorsPerTrack < 1 {
		return fmt.Errorf("sectors_per_track must be positive, got %d", c.SectorsPerTrack)
	}
	if c.HistogramSize < 16 {
		return fmt.Errorf("histogram_size must be at least 16, got %d", c.HistogramSize)
	}
	if c.Rotations < 1 {
		return fmt.Errorf("rotations must be at least 1, got %d", c.Rotations)
	}
	if c.TrackBytes < 1 {
		return fmt.Errorf("track_bytes must be positive, got %d", c.TrackBytes)
	}
	if _, err := ParseDensity(c.DefaultDensity); err != nil {
		return err
	}
	if len(c.Modulations) == 0 {
		return fmt.Errorf("at least one modulation is required")
	}
	if _, err := ParseModulations(c.Modulations); err != nil {
		return err
	}
	switch RawLayout(c.RawLayout) {
	case LayoutSequenced, LayoutInterleaved:
	default:
		return fmt.Errorf("raw_layout must be %q or %q, got %q", LayoutSequenced, LayoutInterleaved, c.RawLayout)
	}
	return nil
}

// Geometry describes the linear layout of a disk image.
type Geometry struct {
	Tracks          int
	Heads           int
	SectorsPerTrack int
	SectorSize      int
	FirstSector     int

	// Interleaved heads place track t side 1 after track t side 0.
	// Otherwise every track of side 0 precedes side 1.
	Interleaved bool
}

// TrackBytes returns the byte length of one track side
func (g Geometry) TrackBytes() int {
	return g.SectorsPerTrack * g.SectorSize
}

// Size returns the byte length of the whole image
func (g Geometry) Size() int64 {
	return int64(g.Tracks) * int64(g.Heads) * int64(g.TrackBytes())
}

// Locate maps a linear byte offset onto a track, head, sector and offset within the sector.
func (g Geometry) Locate(offset int64) (track, head, sector, within int) {
	trackBytes := int64(g.TrackBytes())
	index := offset / trackBytes
	rest := offset % trackBytes

	if g.Interleaved {
		track = int(index) / g.Heads
		head = int(index) % g.Heads
	} else {
		head = int(index / int64(g.Tracks))
		track = int(index % int64(g.Tracks))
	}
	sector = int(rest)/g.SectorSize + g.FirstSector
	within = int(rest) % g.SectorSize
	return track, head, sector, within
}
