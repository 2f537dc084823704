// SPDX-License-Identifier: MIT
package pipeline

func (p *Pipeline) EnableGate() {
	p.gateEnabled = true
}

func (p *Pipeline) DisableGate() {
	p.gateEnabled = false
}

// GateEnabled reports whether the gate is active.
func (p *Pipeline) GateEnabled() bool {
	return p.gateEnabled
}

// SetGateThreshold adjusts the gate threshold against the engine peak.
// The value is in the range of 0.0-1.0 where 0=closed only on silence,
// 1=always closed. NaN is treated as 0.
func (p *Pipeline) SetGateThreshold(threshold float64) {
	if !(threshold >= 0.0) {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}

	p.gateThreshold = threshold
}

// GateThreshold returns the current gate threshold.
func (p *Pipeline) GateThreshold() float64 {
	return p.gateThreshold
}
