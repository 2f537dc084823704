// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"math"
)

// Frame is one visualizer update: the peak of the last processed quantum and
// the bars of the last spectrum.
type Frame struct {
	Seq       uint32    `json:"seq"`
	Timestamp int64     `json:"ts"` // Unix nanoseconds.
	Gain      float64   `json:"gain"`
	Peak      float32   `json:"peak"`
	Gated     bool      `json:"gated,omitempty"`
	Bars      []float32 `json:"bars"`
}

// JSONBars returns Bars with NaN replaced by 0, since JSON has no NaN.
// The degenerate reducer output is treated as silence on the wire.
func (f Frame) JSONBars() []float32 {
	out := make([]float32, len(f.Bars))
	for i, v := range f.Bars {
		if !math.IsNaN(float64(v)) {
			out[i] = v
		}
	}
	return out
}

// Transport delivers frames to visualizer clients.
// Implementations must be safe for concurrent use and must not block the
// audio goroutine for long.
type Transport interface {
	Send(frame Frame) error
	Close() error
}

// MultiTransport fans each frame out to every wrapped transport.
type MultiTransport []Transport

// Send delivers frame to all transports and joins their errors.
func (m MultiTransport) Send(frame Frame) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes all transports and joins their errors.
func (m MultiTransport) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = MultiTransport(nil)
