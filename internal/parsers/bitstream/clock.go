package bitstream

// maxIntervalCells caps the cells produced by a single interval so a dropout
// cannot flood the framer
const maxIntervalCells = 32

// PLL constants, as percentages of the nominal period
const (
	pllClockMaxAdj = 10 // period clamped to 90%-110% of nominal
	pllPeriodAdj   = 5  // fraction of phase error applied to the period
	pllPhaseAdj    = 60 // fraction of phase error removed per transition
	pllMaxZeros    = 3  // clocked zeros tolerated before the loop is considered out of sync
)

// FixedClock rounds every interval to the nearest whole number of nominal cells.
type FixedClock struct {
	cellSamples float64
}

// NewFixedClock returns a clock with the given cell width in samples
func NewFixedClock(cellSamples float64) *FixedClock {
	return &FixedClock{cellSamples: cellSamples}
}

// Cells rounds interval / cell width, never returning less than one cell
func (c *FixedClock) Cells(interval int) int {
	cells := int(float64(interval)/c.cellSamples + 0.5)
	if cells < 1 {
		cells = 1
	}
	if cells > maxIntervalCells {
		cells = maxIntervalCells
	}
	return cells
}

// Reset is a no-op for the fixed window
func (c *FixedClock) Reset() {}

// PLL is a software phase-locked loop that tracks drift in the cell period.
// It nudges the period by a fraction of each phase error while in sync, and
// pulls it back toward nominal after a run of clocked zeros.
type PLL struct {
	ideal        float64
	period       float64
	flux         float64
	clockedZeros int
}

// NewPLL returns a loop centred on the given cell width in samples
func NewPLL(cellSamples float64) *PLL {
	p := &PLL{ideal: cellSamples}
	p.Reset()
	return p
}

// Reset restores the nominal period and clears accumulated phase
func (p *PLL) Reset() {
	p.period = p.ideal
	p.flux = 0
	p.clockedZeros = 0
}

// Period returns the current cell period in samples
func (p *PLL) Period() float64 {
	return p.period
}

// Cells clocks the interval through the loop. Intervals shorter than half a
// period are merged into the next one and yield zero cells.
func (p *PLL) Cells(interval int) int {
	p.flux += float64(interval)
	if p.flux < p.period/2 {
		return 0
	}

	cells := 0
	for {
		p.flux -= p.period
		cells++
		if p.flux < p.period/2 || cells >= maxIntervalCells {
			break
		}
		p.clockedZeros++
	}

	if p.clockedZeros <= pllMaxZeros {
		p.period += p.flux * pllPeriodAdj / 100
	} else {
		p.period += (p.ideal - p.period) * pllPeriodAdj / 100
	}

	pMin := p.ideal * (100 - pllClockMaxAdj) / 100
	pMax := p.ideal * (100 + pllClockMaxAdj) / 100
	if p.period < pMin {
		p.period = pMin
	}
	if p.period > pMax {
		p.period = pMax
	}

	p.flux = p.flux * (100 - pllPhaseAdj) / 100
	p.clockedZeros = 0

	return cells
}
