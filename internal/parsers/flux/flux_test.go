package flux

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

const testRate = types.DefaultSampleRate

// pulseTrain renders one-sample pulses separated by the given intervals,
// starting at sample 10.
func pulseTrain(intervals []int) []byte {
	total := 10 + 64
	for _, iv := range intervals {
		total += iv
	}

	out := make([]byte, total/8+1)
	pos := 10
	set := func(p int) { out[p/8] |= 0x80 >> uint(p%8) }
	set(pos)
	for _, iv := range intervals {
		pos += iv
		set(pos)
	}
	return out
}

func repeat(interval, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = interval
	}
	return out
}

func TestWalkTransitionsCountsRisingEdges(t *testing.T) {
	samples := pulseTrain([]int{50, 100, 75})

	var intervals []int
	var positions []int64
	edges := WalkTransitions(samples, func(interval int, position int64) {
		intervals = append(intervals, interval)
		positions = append(positions, position)
	})

	assert.Equal(t, 4, edges)
	assert.Equal(t, []int{11, 50, 100, 75}, intervals)
	assert.Equal(t, []int64{10, 60, 160, 235}, positions)
}

func TestBuildHistogramWithoutFlux(t *testing.T) {
	h, err := BuildHistogram(make([]byte, 128), 64)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNoFluxData))
	assert.Equal(t, 0, h.Transitions)

	_, err = BuildHistogram([]byte{0xFF}, 0)
	assert.Error(t, err)

	_, err = Analyse(nil, testRate, 64, types.DensityFMSD)
	assert.ErrorIs(t, err, types.ErrNoFluxData)
}

func TestBuildHistogramDropsLongIntervals(t *testing.T) {
	samples := pulseTrain(append(repeat(20, 10), 200))

	h, err := BuildHistogram(samples, 64)
	require.NoError(t, err)
	assert.Equal(t, 12, h.Transitions)
	assert.Equal(t, uint32(10), h.Buckets[20])
	assert.Equal(t, uint32(1), h.Buckets[11])
}

func TestFindPeaks(t *testing.T) {
	h := &Histogram{Buckets: make([]uint32, 16)}
	h.Buckets[3] = 100
	h.Buckets[4] = 120
	h.Buckets[5] = 30
	h.Buckets[9] = 80
	h.Buckets[10] = 80
	h.Buckets[12] = 6 // at the noise floor
	h.Buckets[15] = 50

	idx, count := h.Max()
	assert.Equal(t, 4, idx)
	assert.Equal(t, uint32(120), count)

	// first highest bucket of a flat group wins; trailing group is kept
	assert.Equal(t, []int{4, 9, 15}, h.FindPeaks())
}

func TestFindPeaksEmpty(t *testing.T) {
	h := &Histogram{Buckets: make([]uint32, 8)}
	assert.Empty(t, h.FindPeaks())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		peaks []int
		want  types.Density
	}{
		{"fm single density", []int{50, 100}, types.DensityFMSD},
		{"mfm double density", []int{50, 75, 100}, types.DensityMFMDD},
		{"mfm high density", []int{25, 37, 50}, types.DensityMFMHD},
		{"mfm extra density", []int{12, 19, 25}, types.DensityMFMED},
		{"apple gcr", []int{50, 100, 150}, types.DensityAppleGCR},
		{"slightly fast fm", []int{46, 93}, types.DensityFMSD},
		{"no peaks", nil, types.DensityUnknown},
		{"unrelated peak", []int{30}, types.DensityUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.peaks, testRate))
		})
	}
}

func TestAnalyseSeparatesFMFromMFM(t *testing.T) {
	fm := pulseTrain(append(repeat(50, 200), repeat(100, 100)...))
	a, err := Analyse(fm, testRate, types.DefaultHistogramSize, types.DensityUnknown)
	require.NoError(t, err)
	assert.Equal(t, []int{50, 100}, a.Peaks)
	assert.Equal(t, types.DensityFMSD, a.Density)
	assert.False(t, a.Fallback)
	assert.Equal(t, 50.0, a.CellSamples(1))

	intervals := append(repeat(50, 200), repeat(75, 120)...)
	intervals = append(intervals, repeat(100, 100)...)
	mfm := pulseTrain(intervals)
	a, err = Analyse(mfm, testRate, types.DefaultHistogramSize, types.DensityUnknown)
	require.NoError(t, err)
	assert.Equal(t, []int{50, 75, 100}, a.Peaks)
	assert.Equal(t, types.DensityMFMDD, a.Density)
	assert.Equal(t, "mfmdd", a.DensityName)
	assert.Equal(t, 25.0, a.CellSamples(2))
	assert.InDelta(t, 6.0, a.PeakMicros[1], 0.001)
}

func TestAnalyseFallsBack(t *testing.T) {
	a, err := Analyse(pulseTrain(repeat(30, 100)), testRate, 64, types.DensityMFMDD)
	require.NoError(t, err)
	assert.True(t, a.Fallback)
	assert.Equal(t, types.DensityMFMDD, a.Density)
	assert.Equal(t, 30.0, a.CellSamples(1))
}

func TestCellSamplesWithoutPeaks(t *testing.T) {
	a := &Analysis{SampleRate: testRate, Density: types.DensityMFMDD}
	assert.Equal(t, 25.0, a.CellSamples(2))

	a = &Analysis{SampleRate: testRate, Density: types.DensityUnknown}
	assert.Equal(t, 50.0, a.CellSamples(0))
}
