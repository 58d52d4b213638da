package flux

import (
	"fmt"

	log "github.com/dsoprea/go-logging"

	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

var fluxLogger = log.NewLogger("flux.histogram")

// WalkTransitions calls fn for every rising edge in the sample stream with the
// number of sample periods since the previous rising edge and the sample index
// of the edge. Bits are read MSB first.
func WalkTransitions(samples []byte, fn func(interval int, position int64)) int {
	if len(samples) == 0 {
		return 0
	}

	level := (samples[0] & 0x80) >> 7
	count := 0
	edges := 0

	for i, c := range samples {
		for j := 0; j < 8; j++ {
			bit := (c & 0x80) >> 7
			count++

			if bit != level {
				level = bit
				if level == 1 {
					fn(count, int64(i)*8+int64(j))
					edges++
					count = 0
				}
			}
			c <<= 1
		}
	}

	return edges
}

// Histogram counts transition intervals by length in sample periods.
type Histogram struct {
	Buckets     []uint32
	Transitions int
	Samples     int64
}

// BuildHistogram counts every rising-edge interval shorter than size into its bucket
func BuildHistogram(samples []byte, size int) (*Histogram, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid histogram size %d", size)
	}

	h := &Histogram{
		Buckets: make([]uint32, size),
		Samples: int64(len(samples)) * 8,
	}

	h.Transitions = WalkTransitions(samples, func(interval int, _ int64) {
		if interval < size {
			h.Buckets[interval]++
		}
	})

	if h.Transitions == 0 {
		return h, types.ErrNoFluxData
	}

	fluxLogger.Debugf(nil, "Built histogram from %d samples: %d transitions", h.Samples, h.Transitions)
	return h, nil
}

// Max returns the index and count of the first highest bucket
func (h *Histogram) Max() (int, uint32) {
	best := 0
	for i, v := range h.Buckets {
		if v > h.Buckets[best] {
			best = i
		}
	}
	return best, h.Buckets[best]
}

// FindPeaks returns the sample lengths of the histogram peaks in ascending order.
//
// Buckets at or below 1/20 of the global maximum are treated as noise. Each
// remaining run of non-zero buckets contributes its first highest bucket.
func (h *Histogram) FindPeaks() []int {
	_, maxCount := h.Max()
	threshold := maxCount / types.NoiseFloorDivisor

	filtered := make([]uint32, len(h.Buckets))
	for i, v := range h.Buckets {
		if v > threshold {
			filtered[i] = v
		}
	}

	var peaks []int
	inPeak := false
	best := 0

	for i, v := range filtered {
		if v != 0 {
			if !inPeak {
				inPeak = true
				best = i
			} else if v > filtered[best] {
				best = i
			}
			continue
		}

		if inPeak {
			peaks = append(peaks, best)
			inPeak = false
		}
	}

	if inPeak {
		peaks = append(peaks, best)
	}

	return peaks
}
