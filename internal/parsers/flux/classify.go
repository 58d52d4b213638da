package flux

import (
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

// SamplesToMicros converts a sample count into microseconds at the given rate
func SamplesToMicros(samples float64, sampleRate int) float64 {
	return samples * types.MicrosPerSecond / float64(sampleRate)
}

// MicrosToSamples converts microseconds into a sample count at the given rate
func MicrosToSamples(micros float64, sampleRate int) float64 {
	return micros * float64(sampleRate) / types.MicrosPerSecond
}

// HasPeak reports whether a nominal spacing in microseconds lies within
// tolerance of any peak
func HasPeak(peaks []int, sampleRate int, micros float64) bool {
	for _, p := range peaks {
		peakMicros := SamplesToMicros(float64(p), sampleRate)
		if micros >= peakMicros*(1-types.PeakTolerance) && micros <= peakMicros*(1+types.PeakTolerance) {
			return true
		}
	}
	return false
}

// Classify returns the first density, in classification order, whose nominal
// spacings all match a peak. DensityUnknown when none do.
func Classify(peaks []int, sampleRate int) types.Density {
	for _, d := range types.ClassificationOrder {
		matched := true
		for _, nominal := range d.NominalPeaks() {
			if !HasPeak(peaks, sampleRate, nominal) {
				matched = false
				break
			}
		}
		if matched {
			return d
		}
	}
	return types.DensityUnknown
}

// Analysis is the classifier verdict for one track capture.
type Analysis struct {
	SampleRate  int           `json:"sample_rate" yaml:"sample_rate"`
	Samples     int64         `json:"samples" yaml:"samples"`
	Transitions int           `json:"transitions" yaml:"transitions"`
	Peaks       []int         `json:"peaks" yaml:"peaks"`
	PeakMicros  []float64     `json:"peak_micros" yaml:"peak_micros"`
	Density     types.Density `json:"-" yaml:"-"`
	DensityName string        `json:"density" yaml:"density"`
	Fallback    bool          `json:"fallback" yaml:"fallback"`
}

// Analyse builds the histogram of a capture, finds its peaks and classifies the
// density. When no density matches, fallback is used and Fallback is set.
func Analyse(samples []byte, sampleRate, histogramSize int, fallback types.Density) (*Analysis, error) {
	h, err := BuildHistogram(samples, histogramSize)
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		SampleRate:  sampleRate,
		Samples:     h.Samples,
		Transitions: h.Transitions,
		Peaks:       h.FindPeaks(),
	}
	for _, p := range a.Peaks {
		a.PeakMicros = append(a.PeakMicros, SamplesToMicros(float64(p), sampleRate))
	}

	a.Density = Classify(a.Peaks, sampleRate)
	if a.Density == types.DensityUnknown {
		a.Density = fallback
		a.Fallback = true
		fluxLogger.Debugf(nil, "No density matched peaks %v, falling back to %s", a.PeakMicros, fallback)
	}
	a.DensityName = a.Density.String()

	return a, nil
}

// CellSamples derives the width of one cell in samples for a modulation whose
// shortest transition spans minCells cells. The shortest peak is used when
// present, otherwise the nominal shortest spacing of the density.
func (a *Analysis) CellSamples(minCells int) float64 {
	if minCells < 1 {
		minCells = 1
	}

	if len(a.Peaks) > 0 {
		return float64(a.Peaks[0]) / float64(minCells)
	}

	nominal := a.Density.NominalPeaks()
	if len(nominal) == 0 {
		nominal = types.DensityFMSD.NominalPeaks()
	}
	return MicrosToSamples(nominal[0], a.SampleRate) / float64(minCells)
}
