// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"testing"

	"github.com/sonyaz93/Divaparadise-ai/internal/transport"
)

const (
	testSize       = 1024
	testSampleRate = 44100
	testFrequency  = 440.0 // A4 note
)

func TestMockTransport(t *testing.T) {
	mt := &MockTransport{}
	if _, ok := mt.Last(); ok {
		t.Fatal("Last() on empty transport should report false")
	}

	bars := []float32{0.1, 0.2}
	if err := mt.Send(transport.Frame{Seq: 1, Peak: 0.5, Bars: bars}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	bars[0] = 999 // Modify original.

	last, ok := mt.Last()
	if !ok || last.Seq != 1 || last.Peak != 0.5 {
		t.Fatalf("Last() = %+v, %v", last, ok)
	}
	if last.Bars[0] != 0.1 {
		t.Error("Send() stored a reference instead of a copy")
	}

	if err := mt.Close(); err != nil || !mt.Closed {
		t.Errorf("Close() = %v, closed=%v", err, mt.Closed)
	}
}

func TestGenerateComplexWave(t *testing.T) {
	result := GenerateComplexWave(testSize, testSampleRate, 0.8)
	if len(result) != testSize {
		t.Fatalf("buffer size = %d, want %d", len(result), testSize)
	}

	var peak float64
	for _, v := range result {
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	if peak == 0 || peak > 0.8+1e-6 {
		t.Errorf("peak = %v, want in (0, 0.8]", peak)
	}
}

func TestGenerateSineWave(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		frequency  float64
	}{
		{"A4 Note", 44100, 440.0},
		{"Middle C", 44100, 261.63},
		{"High Sample Rate", 192000, 440.0},
		{"Low Sample Rate", 8000, 440.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateSineWave(testSize, tt.sampleRate, tt.frequency, 1.0)

			crossCount := 0
			for i := 1; i < testSize; i++ {
				if (result[i-1] < 0 && result[i] >= 0) || (result[i-1] >= 0 && result[i] < 0) {
					crossCount++
				}
			}

			// Two crossings per cycle, with 20% slack for phase alignment.
			expected := float64(testSize) / (tt.sampleRate / tt.frequency / 2)
			if math.Abs(float64(crossCount)-expected) > 0.2*expected {
				t.Errorf("zero crossings = %d, expected approximately %.1f", crossCount, expected)
			}
		})
	}
}

func TestFindPeakBin(t *testing.T) {
	mags := []uint8{0, 10, 200, 30, 250, 5}

	tests := []struct {
		name       string
		start, end int
		want       int
	}{
		{"Whole range", 0, 5, 4},
		{"Sub range", 0, 3, 2},
		{"Clamped", -3, 99, 4},
		{"Single bin", 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(mags, tt.start, tt.end); got != tt.want {
				t.Errorf("FindPeakBin(%d, %d) = %d, want %d", tt.start, tt.end, got, tt.want)
			}
		})
	}

	if got := FindPeakBin(nil, 0, 10); got != 0 {
		t.Errorf("FindPeakBin(nil) = %d, want 0", got)
	}
}
