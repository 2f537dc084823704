// SPDX-License-Identifier: MIT
package core

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidBarCount is returned when fewer than one bar is requested.
var ErrInvalidBarCount = errors.New("bar count must be at least 1")

// contrastExponent pushes quiet bars toward zero more than loud ones.
const contrastExponent = 1.5

// CalculateSpectrum splits freqData into numBars equal chunks of
// len(freqData)/numBars bins and returns (mean/255)^1.5 for each chunk.
//
// Bins left over by the integer division are ignored. When freqData is
// shorter than numBars the chunks are empty and every bar is NaN; callers
// that draw the bars must treat NaN as silence.
func CalculateSpectrum(freqData []uint8, numBars int) ([]float32, error) {
	if numBars <= 0 {
		return nil, fmt.Errorf("calculate spectrum with %d bars: %w", numBars, ErrInvalidBarCount)
	}

	chunkSize := len(freqData) / numBars
	bars := make([]float32, numBars)

	for i := range bars {
		chunk := freqData[i*chunkSize : (i+1)*chunkSize]

		var sum float32
		for _, v := range chunk {
			sum += float32(v)
		}
		// 0/0 for an empty chunk, which yields NaN.
		avg := sum / float32(chunkSize)

		bars[i] = float32(math.Pow(float64(avg/255.0), contrastExponent))
	}

	return bars, nil
}
