// SPDX-License-Identifier: MIT
package core

import (
	"errors"
	"math"
	"strconv"
	"testing"
)

func TestCalculateSpectrumDeterministic(t *testing.T) {
	bars, err := New().CalculateSpectrum([]uint8{0, 255, 0, 255}, 2)
	if err != nil {
		t.Fatalf("CalculateSpectrum error: %v", err)
	}

	want := math.Pow(0.5, 1.5) // ~0.3536
	if len(bars) != 2 {
		t.Fatalf("Bar count: got %d, want 2", len(bars))
	}
	for i, bar := range bars {
		if absFloat(float64(bar)-want) > 1e-6 {
			t.Errorf("Bar %d: got %v, want %v", i, bar, want)
		}
	}
}

func TestCalculateSpectrumValues(t *testing.T) {
	tests := []struct {
		desc    string
		data    []uint8
		numBars int
		want    []float64
	}{
		{"Silence", []uint8{0, 0, 0, 0}, 2, []float64{0, 0}},
		{"Full scale", []uint8{255, 255, 255}, 3, []float64{1, 1, 1}},
		{"Single bar averages everything", []uint8{0, 255}, 1, []float64{math.Pow(0.5, 1.5)}},
		{"Ramp", []uint8{51, 51, 102, 102}, 2, []float64{math.Pow(0.2, 1.5), math.Pow(0.4, 1.5)}},
		// 5/2 = 2, so the trailing 255 belongs to no bar.
		{"Remainder dropped", []uint8{0, 0, 0, 0, 255}, 2, []float64{0, 0}},
		{"Remainder dropped from last bar", []uint8{255, 255, 255, 0, 0, 255, 255}, 2, []float64{1, math.Pow(1.0/3.0, 1.5)}},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			bars, err := CalculateSpectrum(tt.data, tt.numBars)
			if err != nil {
				t.Fatalf("CalculateSpectrum error: %v", err)
			}
			if len(bars) != len(tt.want) {
				t.Fatalf("Bar count: got %d, want %d", len(bars), len(tt.want))
			}
			for i := range bars {
				if absFloat(float64(bars[i])-tt.want[i]) > 1e-5 {
					t.Errorf("Bar %d: got %v, want %v", i, bars[i], tt.want[i])
				}
			}
		})
	}
}

func TestCalculateSpectrumInvalidBarCount(t *testing.T) {
	for _, n := range []int{0, -1, -64} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			bars, err := CalculateSpectrum([]uint8{1, 2, 3, 4}, n)
			if !errors.Is(err, ErrInvalidBarCount) {
				t.Errorf("Expected ErrInvalidBarCount, got %v", err)
			}
			if bars != nil {
				t.Errorf("Expected nil bars on error, got %v", bars)
			}
		})
	}
}

func TestCalculateSpectrumShortInputYieldsNaN(t *testing.T) {
	tests := []struct {
		desc    string
		data    []uint8
		numBars int
	}{
		{"Shorter than bar count", []uint8{200, 100}, 4},
		{"Empty input", nil, 3},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			bars, err := CalculateSpectrum(tt.data, tt.numBars)
			if err != nil {
				t.Fatalf("Short input must not be an error, got %v", err)
			}
			if len(bars) != tt.numBars {
				t.Fatalf("Bar count: got %d, want %d", len(bars), tt.numBars)
			}
			for i, bar := range bars {
				if !math.IsNaN(float64(bar)) {
					t.Errorf("Bar %d: got %v, want NaN", i, bar)
				}
			}
		})
	}
}

func TestCalculateSpectrumBounds(t *testing.T) {
	data := make([]uint8, 128)
	for i := range data {
		data[i] = uint8((i * 37) % 256)
	}

	for _, n := range []int{1, 2, 7, 16, 32, 64, 128} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			bars, err := CalculateSpectrum(data, n)
			if err != nil {
				t.Fatalf("CalculateSpectrum error: %v", err)
			}
			if len(bars) != n {
				t.Fatalf("Bar count: got %d, want %d", len(bars), n)
			}
			for i, bar := range bars {
				if bar < 0 || bar > 1 {
					t.Errorf("Bar %d out of [0, 1]: %v", i, bar)
				}
			}
		})
	}
}

func TestCalculateSpectrumDoesNotTouchEngineOrInput(t *testing.T) {
	engine := New()
	engine.SetGain(0.25)
	engine.ProcessAudio([]float32{0.8})
	peak := engine.Peak()

	data := []uint8{10, 20, 30, 40}
	if _, err := engine.CalculateSpectrum(data, 2); err != nil {
		t.Fatalf("CalculateSpectrum error: %v", err)
	}

	if engine.Gain() != 0.25 || engine.Peak() != peak {
		t.Errorf("Engine state changed: gain=%v peak=%v", engine.Gain(), engine.Peak())
	}
	if data[0] != 10 || data[3] != 40 {
		t.Errorf("Input mutated: %v", data)
	}
}

func TestCalculateSpectrumSingleAllocation(t *testing.T) {
	data := make([]uint8, 1024)
	for i := range data {
		data[i] = uint8(i)
	}

	allocs := testing.AllocsPerRun(100, func() {
		_, _ = CalculateSpectrum(data, 32)
	})

	if allocs != 1 {
		t.Errorf("Expected exactly one allocation for the bars, got %.1f", allocs)
	}
}

func BenchmarkCalculateSpectrum(b *testing.B) {
	data := make([]uint8, 1024)
	for i := range data {
		data[i] = uint8(i * 7)
	}

	for _, n := range []int{16, 32, 64} {
		b.Run(strconv.Itoa(n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				_, _ = CalculateSpectrum(data, n)
			}
		})
	}
}
