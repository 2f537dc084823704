// SPDX-License-Identifier: MIT
/*
Package analysis turns a stream of mono samples into the byte
frequency-magnitude frames consumed by the core spectrum reducer. It
follows the browser AnalyserNode model the visualizer was tuned on:

 1. Keep the most recent fftSize samples in a ring.
 2. Window them and run a real FFT.
 3. Smooth |X[k]|/N over time with a single-pole filter.
 4. Convert to decibels and map [minDB, maxDB] onto 0..255.

After construction Write and ByteFrequencyData do not allocate.
*/
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	applog "github.com/sonyaz93/Divaparadise-ai/internal/log"
	"github.com/sonyaz93/Divaparadise-ai/pkg/bitint"
	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	DefaultFFTSize     = 256
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
)

// ErrBufferSize is returned when a destination slice does not match
// FrequencyBinCount.
var ErrBufferSize = errors.New("destination length does not match frequency bin count")

// Options configures an Analyser. A zero FFTSize or a zero decibel range
// selects the default, and the zero Window is Blackman.
type Options struct {
	FFTSize     int
	Window      WindowFunc
	Smoothing   float64
	MinDecibels float64
	MaxDecibels float64
}

// DefaultOptions returns the settings of a default browser analyser with a
// 256 point FFT.
func DefaultOptions() Options {
	return Options{
		FFTSize:     DefaultFFTSize,
		Window:      Blackman,
		Smoothing:   DefaultSmoothing,
		MinDecibels: DefaultMinDecibels,
		MaxDecibels: DefaultMaxDecibels,
	}
}

// Pre-allocated buffers for FFT calculations.
type workspace struct {
	ring      []float32    // Last fftSize samples, oldest at ringPos.
	input     []float64    // Windowed samples in time order.
	fftOutput []complex128 // fftSize/2 + 1 coefficients.
	smoothed  []float64    // Smoothed magnitudes per bin.
	window    []float64    // Window coefficients.
}

// Analyser produces byte frequency data from written samples. It is not safe
// for concurrent use; the pipeline owns one per audio goroutine.
type Analyser struct {
	fft       *fourier.FFT
	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64
	ringPos   int
	workspace workspace
}

// NewAnalyser validates opts and pre-allocates every buffer.
func NewAnalyser(opts Options) (*Analyser, error) {
	if opts.FFTSize == 0 {
		opts.FFTSize = DefaultFFTSize
	}
	if !bitint.IsPowerOfTwo(opts.FFTSize) || opts.FFTSize < 2 {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", opts.FFTSize)
	}
	if !(opts.Smoothing >= 0 && opts.Smoothing < 1) {
		return nil, fmt.Errorf("smoothing must be in [0, 1), got %v", opts.Smoothing)
	}
	if opts.MinDecibels == 0 && opts.MaxDecibels == 0 {
		opts.MinDecibels, opts.MaxDecibels = DefaultMinDecibels, DefaultMaxDecibels
	}
	if opts.MinDecibels >= opts.MaxDecibels {
		return nil, fmt.Errorf("min decibels (%v) must be below max decibels (%v)", opts.MinDecibels, opts.MaxDecibels)
	}

	applog.Infof("Analysis: Initializing Analyser (Size: %d, Window: %v, Smoothing: %.2f, Range: %.0f..%.0f dB)",
		opts.FFTSize, opts.Window, opts.Smoothing, opts.MinDecibels, opts.MaxDecibels)

	bins := opts.FFTSize/2 + 1
	return &Analyser{
		fft:       fourier.NewFFT(opts.FFTSize),
		fftSize:   opts.FFTSize,
		smoothing: opts.Smoothing,
		minDB:     opts.MinDecibels,
		maxDB:     opts.MaxDecibels,
		workspace: workspace{
			ring:      make([]float32, opts.FFTSize),
			input:     make([]float64, opts.FFTSize),
			fftOutput: make([]complex128, bins),
			smoothed:  make([]float64, bins),
			window:    windowCoefficients(opts.Window, opts.FFTSize),
		},
	}, nil
}

// FFTSize returns the number of points of the transform.
func (a *Analyser) FFTSize() int {
	return a.fftSize
}

// FrequencyBinCount returns the number of bytes ByteFrequencyData writes,
// half the FFT size.
func (a *Analyser) FrequencyBinCount() int {
	return a.fftSize / 2
}

// Write appends samples to the time-domain ring, dropping the oldest ones.
func (a *Analyser) Write(samples []float32) {
	ring := a.workspace.ring
	// Only the tail can survive in the ring.
	if len(samples) > len(ring) {
		samples = samples[len(samples)-len(ring):]
	}
	for len(samples) > 0 {
		n := copy(ring[a.ringPos:], samples)
		samples = samples[n:]
		a.ringPos = (a.ringPos + n) % len(ring)
	}
}

// Reset clears the sample history and the smoothing state.
func (a *Analyser) Reset() {
	clear(a.workspace.ring)
	clear(a.workspace.smoothed)
	a.ringPos = 0
}

// ByteFrequencyData computes the current spectrum into dst, which must have
// FrequencyBinCount elements.
func (a *Analyser) ByteFrequencyData(dst []uint8) error {
	if len(dst) != a.FrequencyBinCount() {
		return fmt.Errorf("%w: got %d, want %d", ErrBufferSize, len(dst), a.FrequencyBinCount())
	}

	ws := &a.workspace

	// --- 1. Unroll the ring oldest-first and apply the window ---
	n := a.fftSize
	for i := range n {
		s := ws.ring[(a.ringPos+i)%n]
		// NaN or infinite samples would poison the smoothing state.
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			s = 0
		}
		ws.input[i] = float64(s) * ws.window[i]
	}

	// --- 2. FFT ---
	a.fft.Coefficients(ws.fftOutput, ws.input)

	// --- 3. Smooth and map to bytes ---
	scale := 255.0 / (a.maxDB - a.minDB)
	for k := range dst {
		mag := cmplx.Abs(ws.fftOutput[k]) / float64(n)
		ws.smoothed[k] = a.smoothing*ws.smoothed[k] + (1-a.smoothing)*mag

		db := 20 * math.Log10(ws.smoothed[k]) // -Inf for silence
		v := math.Floor(scale * (db - a.minDB))
		switch {
		case v < 0 || math.IsNaN(v):
			dst[k] = 0
		case v > 255:
			dst[k] = 255
		default:
			dst[k] = uint8(v)
		}
	}

	return nil
}

// FrequencyForBin returns the centre frequency in Hz of bin k for the given
// sample rate.
func (a *Analyser) FrequencyForBin(k int, sampleRate float64) float64 {
	if k < 0 || k > a.fftSize/2 {
		return 0
	}
	return a.fft.Freq(k) * sampleRate
}
