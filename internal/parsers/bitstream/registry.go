package bitstream

import (
	"fmt"

	"github.com/deploymenttheory/go-fluxdisk/internal/interfaces"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

// NewModulation returns the implementation of a modulation kind
func NewModulation(kind types.Modulation) (interfaces.Modulation, error) {
	switch kind {
	case types.ModulationFM:
		return NewFM(), nil
	case types.ModulationMFM:
		return NewMFM(), nil
	case types.ModulationAmigaMFM:
		return NewAmigaMFM(), nil
	case types.ModulationGCR:
		return NewGCR(), nil
	case types.ModulationAppleGCR:
		return NewAppleGCR(), nil
	default:
		return nil, fmt.Errorf("unsupported modulation %d", int(kind))
	}
}

// NewCellClock returns a PLL or a fixed window clock for the given cell width
func NewCellClock(cellSamples float64, usePLL bool) interfaces.CellClock {
	if usePLL {
		return NewPLL(cellSamples)
	}
	return NewFixedClock(cellSamples)
}
