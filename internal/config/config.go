// SPDX-License-Identifier: MIT
package config

import (
	"time"

	"github.com/sonyaz93/Divaparadise-ai/pkg/core"
)

// Defaults and limits for the engine host. The analyser values mirror the
// browser AnalyserNode the visualizer was tuned against.
const (
	DefaultLogLevel = "info"

	DefaultGain    = core.DefaultGain
	DefaultNumBars = 32 // Bars drawn by the player visualizer

	DefaultFFTSize     = 256        // 128 frequency bins
	DefaultWindow      = "Blackman" // Same window as the browser analyser
	DefaultSmoothing   = 0.8        // Temporal smoothing time constant
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
	DefaultQuantum     = 128 // Samples per ProcessAudio call

	DefaultGateEnabled   = false
	DefaultGateThreshold = 0.001 // Peak at or below this counts as silence
	DefaultGateDecay     = 0.9   // Per-frame bar fade while gated

	DefaultWebSocketAddr    = ":8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond
	DefaultFrameInterval    = 16 * time.Millisecond // ~60 visual frames per second

	MinFFTSize = 32
	MaxFFTSize = 32768
	MaxNumBars = 1024
	MaxQuantum = 8192
)

// Config holds all runtime configuration options for the engine host.
// It is built from defaults, an optional YAML file and ENV_* overrides.
type Config struct {
	LogLevel  string          `yaml:"log_level"` // "debug", "info", "warn" or "error".
	Engine    EngineConfig    `yaml:"engine"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Gate      GateConfig      `yaml:"gate"`
	Transport TransportConfig `yaml:"transport"`
}

// EngineConfig holds the core engine settings.
type EngineConfig struct {
	Gain    float64 `yaml:"gain"`     // Linear gain, clamped by the engine to [0, 2].
	NumBars int     `yaml:"num_bars"` // Visualizer bars per frame.
}

// AnalysisConfig configures the analyser that turns samples into byte
// frequency-magnitude frames.
type AnalysisConfig struct {
	FFTSize     int     `yaml:"fft_size"`     // Power of two.
	Window      string  `yaml:"window"`       // Window function name (e.g., "Hann", "Blackman").
	Smoothing   float64 `yaml:"smoothing"`    // 0 (none) to just below 1.
	MinDecibels float64 `yaml:"min_decibels"` // Mapped to byte 0.
	MaxDecibels float64 `yaml:"max_decibels"` // Mapped to byte 255.
	Quantum     int     `yaml:"quantum"`      // Samples per processing call.
}

// GateConfig controls bar decay while the input is silent.
type GateConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"` // Peak threshold in [0, 1].
	Decay     float64 `yaml:"decay"`     // Bar multiplier per gated frame, [0, 1].
}

// TransportConfig holds settings for publishing frames to visualizers.
type TransportConfig struct {
	WebSocketAddr    string        `yaml:"websocket_addr"`     // Listen address for /ws, empty to disable.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable binary frame packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // host:port of the UDP receiver.
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.
	FrameInterval    time.Duration `yaml:"frame_interval"`     // Interval between rendered frames.
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Engine: EngineConfig{
			Gain:    DefaultGain,
			NumBars: DefaultNumBars,
		},
		Analysis: AnalysisConfig{
			FFTSize:     DefaultFFTSize,
			Window:      DefaultWindow,
			Smoothing:   DefaultSmoothing,
			MinDecibels: DefaultMinDecibels,
			MaxDecibels: DefaultMaxDecibels,
			Quantum:     DefaultQuantum,
		},
		Gate: GateConfig{
			Enabled:   DefaultGateEnabled,
			Threshold: DefaultGateThreshold,
			Decay:     DefaultGateDecay,
		},
		Transport: TransportConfig{
			WebSocketAddr:    DefaultWebSocketAddr,
			UDPEnabled:       false,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
			FrameInterval:    DefaultFrameInterval,
		},
	}
}
