// SPDX-License-Identifier: MIT
package pipeline

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/sonyaz93/Divaparadise-ai/internal/analysis"
	"github.com/sonyaz93/Divaparadise-ai/pkg/core"
	"github.com/sonyaz93/Divaparadise-ai/pkg/utils"
)

const (
	testSampleRate = 44100
	testQuantum    = 128
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestPipeline(t *testing.T, opts Options) (*Pipeline, *utils.MockTransport) {
	t.Helper()
	a, err := analysis.NewAnalyser(analysis.DefaultOptions())
	if err != nil {
		t.Fatalf("NewAnalyser error: %v", err)
	}
	mock := &utils.MockTransport{}
	p, err := New(core.New(), a, mock, opts)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	p.now = func() time.Time { return fixedTime }
	return p, mock
}

func feed(p *Pipeline, samples []float32) {
	for len(samples) > 0 {
		n := min(testQuantum, len(samples))
		p.ProcessQuantum(samples[:n])
		samples = samples[n:]
	}
}

func anyAbove(bars []float32, v float32) bool {
	for _, b := range bars {
		if b > v {
			return true
		}
	}
	return false
}

func TestNewValidation(t *testing.T) {
	a, err := analysis.NewAnalyser(analysis.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		desc    string
		engine  *core.Engine
		opts    Options
		wantErr bool
	}{
		{"Defaults", core.New(), DefaultOptions(), false},
		{"Zero bars selects default", core.New(), Options{}, false},
		{"Nil engine", nil, DefaultOptions(), true},
		{"Negative bars", core.New(), Options{NumBars: -1}, true},
		{"Decay above one", core.New(), Options{Decay: 1.5}, true},
		{"Negative decay", core.New(), Options{Decay: -0.5}, true},
		{"NaN decay", core.New(), Options{Decay: math.NaN()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := New(tt.engine, a, nil, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("New error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if _, err := New(core.New(), a, nil, Options{NumBars: -3}); !errors.Is(err, core.ErrInvalidBarCount) {
		t.Errorf("Negative bars should wrap ErrInvalidBarCount, got %v", err)
	}
}

func TestProcessQuantumStats(t *testing.T) {
	p, _ := newTestPipeline(t, DefaultOptions())
	p.engine.SetGain(2.0)

	buf := []float32{0.25, 0.75, -0.8, 0.1}
	p.ProcessQuantum(buf)

	want := []float32{0.5, 1, -1, 0.2}
	for i := range want {
		if buf[i] != want[i] {
			t.Errorf("Sample %d: got %v, want %v", i, buf[i], want[i])
		}
	}

	p.ProcessQuantum([]float32{0.1, -0.1})
	stats := p.Stats()
	if stats.Quanta != 2 || stats.Samples != 6 {
		t.Errorf("Quanta=%d Samples=%d, want 2 and 6", stats.Quanta, stats.Samples)
	}
	if stats.ClippedSamples != 2 {
		t.Errorf("ClippedSamples: got %d, want 2", stats.ClippedSamples)
	}
	if stats.MaxPeak != 1 {
		t.Errorf("MaxPeak should survive quieter quanta: got %v", stats.MaxPeak)
	}
}

func TestClippedSamplesFullScale(t *testing.T) {
	tests := []struct {
		desc        string
		gain        float64
		buf         []float32
		wantClipped uint64
	}{
		{"Full scale at unity gain", 1, []float32{1, -1, 0.5}, 0},
		{"Gained exactly to full scale", 2, []float32{0.5, -0.5}, 0},
		{"Gained past full scale", 2, []float32{0.5001, -0.75, 0.1}, 2},
		{"NaN is not clipped", 1, []float32{float32(math.NaN())}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			p, _ := newTestPipeline(t, DefaultOptions())
			p.engine.SetGain(tt.gain)
			p.ProcessQuantum(tt.buf)
			if got := p.Stats().ClippedSamples; got != tt.wantClipped {
				t.Errorf("ClippedSamples: got %d, want %d", got, tt.wantClipped)
			}
		})
	}
}

func TestRenderFrameSilence(t *testing.T) {
	p, _ := newTestPipeline(t, DefaultOptions())

	if _, ok := p.LatestFrame(); ok {
		t.Error("LatestFrame should report false before the first frame")
	}

	feed(p, make([]float32, 512))
	frame, err := p.RenderFrame()
	if err != nil {
		t.Fatalf("RenderFrame error: %v", err)
	}

	if frame.Seq != 1 || frame.Gated || frame.Peak != 0 || frame.Gain != core.DefaultGain {
		t.Errorf("Unexpected frame header: %+v", frame)
	}
	if frame.Timestamp != fixedTime.UnixNano() {
		t.Errorf("Timestamp: got %d, want %d", frame.Timestamp, fixedTime.UnixNano())
	}
	if len(frame.Bars) != DefaultNumBars {
		t.Fatalf("Bars: got %d, want %d", len(frame.Bars), DefaultNumBars)
	}
	for i, b := range frame.Bars {
		if b != 0 {
			t.Errorf("Bar %d: got %v, want 0 for silence", i, b)
		}
	}

	latest, ok := p.LatestFrame()
	if !ok || latest.Seq != frame.Seq {
		t.Errorf("LatestFrame = %+v, %v", latest, ok)
	}
}

func TestRenderFrameTone(t *testing.T) {
	p, _ := newTestPipeline(t, DefaultOptions())
	feed(p, utils.GenerateSineWave(1024, testSampleRate, 2000, 0.5))

	frame, err := p.RenderFrame()
	if err != nil {
		t.Fatal(err)
	}
	if !anyAbove(frame.Bars, 0) {
		t.Errorf("A tone should light at least one bar: %v", frame.Bars)
	}
	for i, b := range frame.Bars {
		if b < 0 || b > 1 {
			t.Errorf("Bar %d out of [0, 1]: %v", i, b)
		}
	}
	if frame.Peak < 0.49 || frame.Peak > 0.5 {
		t.Errorf("Peak: got %v, want about 0.5", frame.Peak)
	}
}

func TestRenderFrameMoreBarsThanBins(t *testing.T) {
	// 128 bins cannot fill 200 bars; every bar is 0/0.
	p, _ := newTestPipeline(t, Options{NumBars: 200})
	feed(p, utils.GenerateSineWave(256, testSampleRate, 1000, 0.5))

	frame, err := p.RenderFrame()
	if err != nil {
		t.Fatalf("RenderFrame error: %v", err)
	}
	if len(frame.Bars) != 200 {
		t.Fatalf("Bars: got %d, want 200", len(frame.Bars))
	}
	for i, b := range frame.Bars {
		if !math.IsNaN(float64(b)) {
			t.Fatalf("Bar %d: got %v, want NaN", i, b)
		}
	}
}

func TestGateDecay(t *testing.T) {
	opts := DefaultOptions()
	opts.GateEnabled = true
	opts.GateThreshold = 0.1
	p, mock := newTestPipeline(t, opts)
	ctx := context.Background()

	feed(p, utils.GenerateSineWave(1024, testSampleRate, 2000, 0.5))
	open, err := p.Publish(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if open.Gated || !anyAbove(open.Bars, 0) {
		t.Fatalf("Loud input should render live bars: %+v", open)
	}
	snapshot := append([]float32(nil), open.Bars...)

	// Silence closes the gate; bars fade by the decay factor per frame.
	p.ProcessQuantum(make([]float32, testQuantum))
	for step := 1; step <= 2; step++ {
		frame, err := p.Publish(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !frame.Gated {
			t.Fatalf("Step %d: frame should be gated", step)
		}
		factor := float32(math.Pow(DefaultDecay, float64(step)))
		for i := range snapshot {
			want := snapshot[i] * factor
			if math.Abs(float64(frame.Bars[i]-want)) > 1e-6 {
				t.Errorf("Step %d bar %d: got %v, want %v", step, i, frame.Bars[i], want)
			}
		}
	}

	for i := range snapshot {
		if open.Bars[i] != snapshot[i] {
			t.Fatalf("Published bars were mutated at %d", i)
		}
	}
	if len(mock.Frames) != 3 {
		t.Errorf("Transport received %d frames, want 3", len(mock.Frames))
	}
	if stats := p.Stats(); stats.Frames != 3 || stats.GatedFrames != 2 {
		t.Errorf("Frames=%d GatedFrames=%d", stats.Frames, stats.GatedFrames)
	}

	// With the gate disabled silence renders live (zero) bars again.
	p.DisableGate()
	frame, err := p.RenderFrame()
	if err != nil {
		t.Fatal(err)
	}
	if frame.Gated {
		t.Error("Frame should not be gated once the gate is disabled")
	}
}

func TestGateClosedFromStart(t *testing.T) {
	opts := DefaultOptions()
	opts.GateEnabled = true
	p, _ := newTestPipeline(t, opts)

	frame, err := p.RenderFrame()
	if err != nil {
		t.Fatal(err)
	}
	if !frame.Gated || len(frame.Bars) != DefaultNumBars {
		t.Fatalf("Unexpected frame: %+v", frame)
	}
	for i, b := range frame.Bars {
		if b != 0 {
			t.Errorf("Bar %d: got %v, want 0 with no history", i, b)
		}
	}
}

func TestGateEnable(t *testing.T) {
	p, _ := newTestPipeline(t, DefaultOptions())

	if p.GateEnabled() {
		t.Error("Gate should be disabled by default")
	}

	p.EnableGate()
	p.EnableGate() // Multiple calls should be idempotent
	if !p.GateEnabled() {
		t.Error("Gate should be enabled after EnableGate()")
	}

	p.DisableGate()
	p.DisableGate()
	if p.GateEnabled() {
		t.Error("Gate should be disabled after DisableGate()")
	}
}

func TestGateThresholdBoundaries(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{-0.1, 0.0}, // Below min
		{0.0, 0.0},  // Minimum
		{0.5, 0.5},  // Middle
		{1.0, 1.0},  // Maximum
		{1.5, 1.0},  // Above max
		{math.NaN(), 0.0},
	}

	p, _ := newTestPipeline(t, DefaultOptions())
	for _, tt := range tests {
		t.Run(strconv.FormatFloat(tt.input, 'f', -1, 64), func(t *testing.T) {
			p.SetGateThreshold(tt.input)
			if got := p.GateThreshold(); got != tt.expected {
				t.Errorf("Gate threshold: got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPublishCanceled(t *testing.T) {
	p, mock := newTestPipeline(t, DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Publish(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Publish error = %v, want context.Canceled", err)
	}
	if len(mock.Frames) != 0 {
		t.Error("Nothing should be sent after cancellation")
	}
}

func TestPublishSequence(t *testing.T) {
	p, mock := newTestPipeline(t, DefaultOptions())
	ctx := context.Background()

	for range 3 {
		feed(p, utils.GenerateComplexWave(testQuantum, testSampleRate, 0.3))
		if _, err := p.Publish(ctx); err != nil {
			t.Fatal(err)
		}
	}

	for i, f := range mock.Frames {
		if f.Seq != uint32(i+1) {
			t.Errorf("Frame %d: seq %d", i, f.Seq)
		}
	}
}

func TestReset(t *testing.T) {
	p, _ := newTestPipeline(t, DefaultOptions())
	feed(p, utils.GenerateSineWave(512, testSampleRate, 1000, 0.8))
	if _, err := p.RenderFrame(); err != nil {
		t.Fatal(err)
	}

	before, _ := p.LatestFrame()

	p.Reset()
	if stats := p.Stats(); stats != (Stats{}) {
		t.Errorf("Stats after Reset: %+v", stats)
	}
	if f, ok := p.LatestFrame(); ok {
		t.Errorf("LatestFrame after Reset: got frame %d, want none", f.Seq)
	}
	// Peak is engine state and is refreshed by the next quantum.
	p.ProcessQuantum(make([]float32, testQuantum))
	frame, err := p.RenderFrame()
	if err != nil {
		t.Fatal(err)
	}
	if anyAbove(frame.Bars, 0) {
		t.Errorf("Bars after Reset and silence: %v", frame.Bars)
	}
	if frame.Seq <= before.Seq {
		t.Errorf("Seq after Reset: got %d, want above %d", frame.Seq, before.Seq)
	}
	if latest, ok := p.LatestFrame(); !ok || latest.Seq != frame.Seq {
		t.Errorf("LatestFrame after render: got (%d, %v), want (%d, true)", latest.Seq, ok, frame.Seq)
	}
}

func BenchmarkProcessQuantum(b *testing.B) {
	a, err := analysis.NewAnalyser(analysis.DefaultOptions())
	if err != nil {
		b.Fatal(err)
	}
	p, err := New(core.New(), a, nil, DefaultOptions())
	if err != nil {
		b.Fatal(err)
	}
	quantum := utils.GenerateComplexWave(testQuantum, testSampleRate, 0.5)

	b.ReportAllocs()
	for b.Loop() {
		p.ProcessQuantum(quantum)
	}
}
