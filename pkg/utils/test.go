// Package utils holds signal generators and a recording transport shared by
// the tests of the engine host packages.
package utils

import (
	"math"
	"sync"

	"github.com/sonyaz93/Divaparadise-ai/internal/transport"
)

// MockTransport records every frame it is sent.
type MockTransport struct {
	mu     sync.Mutex
	Frames []transport.Frame
	Closed bool
}

// Send stores a deep copy of frame for later inspection.
func (m *MockTransport) Send(frame transport.Frame) error {
	frame.Bars = append([]float32(nil), frame.Bars...)
	m.mu.Lock()
	m.Frames = append(m.Frames, frame)
	m.mu.Unlock()
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	return nil
}

// Last returns the most recent frame and whether any frame was sent.
func (m *MockTransport) Last() (transport.Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Frames) == 0 {
		return transport.Frame{}, false
	}
	return m.Frames[len(m.Frames)-1], true
}

// GenerateComplexWave returns a 440 Hz tone with two harmonics at the given
// peak amplitude.
func GenerateComplexWave(size int, sampleRate, amplitude float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = float32(signal * amplitude)
	}
	return buffer
}

// GenerateSineWave returns a pure tone at the given peak amplitude.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * amplitude)
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude in
// magnitudes[startBin:endBin+1], clamping the range to the slice.
func FindPeakBin(magnitudes []uint8, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}
