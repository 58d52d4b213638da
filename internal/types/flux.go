package types

import (
	"fmt"
	"strings"
)

// Flux sampling and histogram constants
const (
	// DefaultSampleRate is the capture rate of the flux sampler in samples per second
	DefaultSampleRate = 12500000

	// DefaultHistogramSize is the number of run-length buckets kept by the classifier
	DefaultHistogramSize = 1024

	// MicrosPerSecond converts sample counts into microseconds
	MicrosPerSecond = 1000000

	// PeakTolerance is the relative window a nominal value may sit inside a peak
	PeakTolerance = 0.10

	// NoiseFloorDivisor sets the noise floor to max bucket / NoiseFloorDivisor
	NoiseFloorDivisor = 20
)

// Density is the recording density inferred from flux timings.
type Density int

const (
	DensityUnknown Density = iota
	DensityFMSD
	DensityMFMDD
	DensityMFMHD
	DensityMFMED
	DensityAppleGCR
)

// ClassificationOrder is the order in which densities are tested against histogram peaks.
// The first density whose nominal values all match a peak wins.
var ClassificationOrder = []Density{
	DensityAppleGCR,
	DensityMFMED,
	DensityMFMHD,
	DensityMFMDD,
	DensityFMSD,
}

var densityNames = map[Density]string{
	DensityUnknown:  "unknown",
	DensityFMSD:     "fmsd",
	DensityMFMDD:    "mfmdd",
	DensityMFMHD:    "mfmhd",
	DensityMFMED:    "mfmed",
	DensityAppleGCR: "applegcr",
}

// String returns the configuration name of the density
func (d Density) String() string {
	if name, ok := densityNames[d]; ok {
		return name
	}
	return fmt.Sprintf("density(%d)", int(d))
}

// NominalPeaks returns the canonical transition spacings in microseconds.
func (d Density) NominalPeaks() []float64 {
	switch d {
	case DensityFMSD:
		return []float64{4, 8}
	case DensityMFMDD:
		return []float64{4, 6, 8}
	case DensityMFMHD:
		return []float64{2, 3, 4}
	case DensityMFMED:
		return []float64{1, 1.5, 2}
	case DensityAppleGCR:
		return []float64{4, 8, 12}
	default:
		return nil
	}
}

// ParseDensity maps a configuration name onto a Density
func ParseDensity(name string) (Density, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for d, n := range densityNames {
		if n == needle {
			return d, nil
		}
	}
	return DensityUnknown, fmt.Errorf("unknown density %q", name)
}

// Modulation identifies a bit-cell encoding scheme.
type Modulation int

const (
	ModulationFM Modulation = iota
	ModulationMFM
	ModulationAmigaMFM
	ModulationGCR
	ModulationAppleGCR
)

// AllModulations lists every scheme in the order sessions are merged into the store
var AllModulations = []Modulation{
	ModulationFM,
	ModulationMFM,
	ModulationAmigaMFM,
	ModulationGCR,
	ModulationAppleGCR,
}

var modulationNames = map[Modulation]string{
	ModulationFM:       "fm",
	ModulationMFM:      "mfm",
	ModulationAmigaMFM: "amigamfm",
	ModulationGCR:      "gcr",
	ModulationAppleGCR: "applegcr",
}

// String returns the configuration name of the modulation
func (m Modulation) String() string {
	if name, ok := modulationNames[m]; ok {
		return name
	}
	return fmt.Sprintf("modulation(%d)", int(m))
}

// ParseModulation maps a configuration name onto a Modulation
func ParseModulation(name string) (Modulation, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for m, n := range modulationNames {
		if n == needle {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown modulation %q", name)
}

// ParseModulations parses a list of modulation names, rejecting duplicates.
func ParseModulations(names []string) ([]Modulation, error) {
	seen := make(map[Modulation]bool, len(names))
	mods := make([]Modulation, 0, len(names))
	for _, n := range names {
		m, err := ParseModulation(n)
		if err != nil {
			return nil, err
		}
		if seen[m] {
			return nil, fmt.Errorf("modulation %q listed twice", n)
		}
		seen[m] = true
		mods = append(mods, m)
	}
	return mods, nil
}
