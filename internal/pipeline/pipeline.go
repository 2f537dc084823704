// SPDX-License-Identifier: MIT
/*
Package pipeline drives one core engine, one analyser and one transport.

Audio side (per quantum):
  - ProcessQuantum applies gain and the hard limiter in place, feeds the
    analyser ring and updates the running statistics.

Visual side (per frame):
  - RenderFrame reduces the analyser's byte spectrum into bars, or decays
    the previous bars while the gate is closed.
  - Publish renders a frame and hands it to the transport.

Thread Safety:
  - ProcessQuantum, RenderFrame and Publish must be called from one
    goroutine.
  - LatestFrame and Stats may be called from any goroutine.
*/
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sonyaz93/Divaparadise-ai/internal/analysis"
	applog "github.com/sonyaz93/Divaparadise-ai/internal/log"
	"github.com/sonyaz93/Divaparadise-ai/internal/transport"
	"github.com/sonyaz93/Divaparadise-ai/pkg/core"
)

const (
	DefaultNumBars       = 32
	DefaultGateThreshold = 0.001
	DefaultDecay         = 0.9
)

// Options configures a Pipeline. Zero NumBars selects DefaultNumBars.
type Options struct {
	NumBars       int
	GateEnabled   bool
	GateThreshold float64 // Peak at or below this closes the gate, [0, 1].
	Decay         float64 // Bar multiplier per gated frame, [0, 1].
}

// DefaultOptions returns the visualizer defaults with the gate disabled.
func DefaultOptions() Options {
	return Options{
		NumBars:       DefaultNumBars,
		GateThreshold: DefaultGateThreshold,
		Decay:         DefaultDecay,
	}
}

// Stats summarizes everything processed so far.
type Stats struct {
	Quanta         uint64
	Samples        uint64
	MaxPeak        float32
	ClippedSamples uint64 // Samples whose gained value exceeded +-1.
	Frames         uint64
	GatedFrames    uint64
}

type Pipeline struct {
	engine    *core.Engine
	analyser  *analysis.Analyser
	transport transport.Transport

	numBars int
	decay   float32

	// Noise gate for the visual side.
	gateEnabled   bool
	gateThreshold float64

	freqData []uint8   // Analyser output, FrequencyBinCount bytes.
	lastBars []float32 // Bars of the previous frame, never mutated.
	seq      uint32
	now      func() time.Time

	mu     sync.Mutex // Protects stats and latest.
	stats  Stats
	latest transport.Frame
	ready  bool
}

// New wires engine, analyser and t together. A nil transport is allowed for
// offline processing; Publish then only renders.
func New(engine *core.Engine, analyser *analysis.Analyser, t transport.Transport, opts Options) (*Pipeline, error) {
	if engine == nil || analyser == nil {
		return nil, fmt.Errorf("pipeline: engine and analyser are required")
	}
	if opts.NumBars == 0 {
		opts.NumBars = DefaultNumBars
	}
	if opts.NumBars < 0 {
		return nil, fmt.Errorf("pipeline with %d bars: %w", opts.NumBars, core.ErrInvalidBarCount)
	}
	if !(opts.Decay >= 0 && opts.Decay <= 1) {
		return nil, fmt.Errorf("pipeline: decay must be in [0, 1], got %v", opts.Decay)
	}

	p := &Pipeline{
		engine:      engine,
		analyser:    analyser,
		transport:   t,
		numBars:     opts.NumBars,
		decay:       float32(opts.Decay),
		gateEnabled: opts.GateEnabled,
		freqData:    make([]uint8, analyser.FrequencyBinCount()),
		now:         time.Now,
	}
	p.SetGateThreshold(opts.GateThreshold)

	applog.Infof("Pipeline: %d bars from %d bins (gate: %v, threshold: %.4f, decay: %.2f)",
		p.numBars, len(p.freqData), p.gateEnabled, p.gateThreshold, opts.Decay)
	return p, nil
}

// NumBars returns the number of bars per frame.
func (p *Pipeline) NumBars() int {
	return p.numBars
}

// ProcessQuantum runs buf through the engine in place and feeds the result
// to the analyser.
func (p *Pipeline) ProcessQuantum(buf []float32) {
	// Counted before limiting, a sample already at full scale is not clipped.
	gain := float32(p.engine.Gain())
	var clipped uint64
	for _, s := range buf {
		if v := s * gain; v > 1 || v < -1 {
			clipped++
		}
	}

	p.engine.ProcessAudio(buf)
	p.analyser.Write(buf)
	peak := p.engine.Peak()

	p.mu.Lock()
	p.stats.Quanta++
	p.stats.Samples += uint64(len(buf))
	p.stats.ClippedSamples += clipped
	if peak > p.stats.MaxPeak {
		p.stats.MaxPeak = peak
	}
	p.mu.Unlock()
}

// RenderFrame produces the next frame. With the gate enabled and the last
// peak at or below the threshold, the previous bars are decayed instead of
// recomputed.
func (p *Pipeline) RenderFrame() (transport.Frame, error) {
	peak := p.engine.Peak()
	gated := p.gateEnabled && float64(peak) <= p.gateThreshold

	var bars []float32
	if gated {
		// Published slices are shared with transports, so decay into a new one.
		bars = make([]float32, p.numBars)
		for i := range min(len(bars), len(p.lastBars)) {
			bars[i] = p.lastBars[i] * p.decay
		}
	} else {
		if err := p.analyser.ByteFrequencyData(p.freqData); err != nil {
			return transport.Frame{}, fmt.Errorf("render frame: %w", err)
		}
		var err error
		bars, err = p.engine.CalculateSpectrum(p.freqData, p.numBars)
		if err != nil {
			return transport.Frame{}, fmt.Errorf("render frame: %w", err)
		}
	}
	p.lastBars = bars
	p.seq++

	frame := transport.Frame{
		Seq:       p.seq,
		Timestamp: p.now().UnixNano(),
		Gain:      p.engine.Gain(),
		Peak:      peak,
		Gated:     gated,
		Bars:      bars,
	}

	p.mu.Lock()
	p.stats.Frames++
	if gated {
		p.stats.GatedFrames++
	}
	p.latest, p.ready = frame, true
	p.mu.Unlock()

	return frame, nil
}

// Publish renders a frame and sends it to the transport.
func (p *Pipeline) Publish(ctx context.Context) (transport.Frame, error) {
	if err := ctx.Err(); err != nil {
		return transport.Frame{}, err
	}
	frame, err := p.RenderFrame()
	if err != nil {
		return frame, err
	}
	if p.transport != nil {
		if err := p.transport.Send(frame); err != nil {
			return frame, fmt.Errorf("publish frame %d: %w", frame.Seq, err)
		}
	}
	return frame, nil
}

// LatestFrame returns the most recently rendered frame. It reports false
// before the first frame.
func (p *Pipeline) LatestFrame() (transport.Frame, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest, p.ready
}

// Stats returns a snapshot of the running statistics.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Reset clears the analyser, the bar history, the latest frame and the
// statistics. Engine gain is kept. Frame sequence numbers keep counting so
// consumers never see a number twice.
func (p *Pipeline) Reset() {
	p.analyser.Reset()
	p.lastBars = nil
	p.mu.Lock()
	p.stats = Stats{}
	p.latest, p.ready = transport.Frame{}, false
	p.mu.Unlock()
}
