// SPDX-License-Identifier: MIT
/*
Package core is the audio post-processing core consumed by the host:

  - Gain stage with a hard limiter that clamps every sample to [-1, 1]
  - Peak tracking of the last processed quantum for level meters
  - Spectrum reduction of byte magnitude frames into visualizer bars

Thread Safety:
  - Engine does no internal locking. The host confines each Engine to one
    audio goroutine or serializes access itself.
  - ProcessAudio does not allocate; CalculateSpectrum allocates only the
    returned bars.
*/
package core

import (
	"math"

	applog "github.com/sonyaz93/Divaparadise-ai/internal/log"
)

const (
	MinGain     = 0.0
	MaxGain     = 2.0
	DefaultGain = 1.0

	// Hard limiter bounds.
	limitHigh float32 = 1.0
	limitLow  float32 = -1.0
)

// Engine holds the gain setting and the peak of the last processed buffer.
type Engine struct {
	gain float64 // Always within [MinGain, MaxGain].
	peak float32 // Max |sample| after limiting, from the last ProcessAudio.
}

// New returns an engine at unity gain with a zero peak.
func New() *Engine {
	return &Engine{gain: DefaultGain}
}

// InitEngine is the one-time startup hook. It only announces the engine on
// the log and has no effect on any Engine.
func InitEngine() {
	applog.Infof("Divaparadises Core Engine (Go) Initialized")
}

// SetGain stores value clamped to [0.0, 2.0]. Out-of-range values are
// corrected silently; NaN is stored as 0.0.
func (e *Engine) SetGain(value float64) {
	switch {
	case math.IsNaN(value):
		value = MinGain
	case value < MinGain:
		value = MinGain
	case value > MaxGain:
		value = MaxGain
	}
	e.gain = value
}

// Gain returns the current linear gain.
func (e *Engine) Gain() float64 {
	return e.gain
}

// ProcessAudio applies gain and the hard limiter to buf in place and records
// the largest absolute sample as the new peak.
//
// The limiter uses two independent comparisons, so a NaN sample fails both
// and is left as NaN. NaN samples never raise the peak. An empty buffer
// resets the peak to 0.
func (e *Engine) ProcessAudio(buf []float32) {
	gain := float32(e.gain)
	var localMax float32

	for i := range buf {
		sample := buf[i] * gain

		if sample > limitHigh {
			sample = limitHigh
		}
		if sample < limitLow {
			sample = limitLow
		}
		buf[i] = sample

		if sample < 0 {
			sample = -sample
		}
		if sample > localMax {
			localMax = sample
		}
	}

	e.peak = localMax
}

// Peak returns the peak recorded by the last ProcessAudio call.
func (e *Engine) Peak() float32 {
	return e.peak
}

// CalculateSpectrum reduces freqData into numBars bars. It reads no engine
// state; see the package-level CalculateSpectrum.
func (e *Engine) CalculateSpectrum(freqData []uint8, numBars int) ([]float32, error) {
	return CalculateSpectrum(freqData, numBars)
}
