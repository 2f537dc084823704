// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sonyaz93/Divaparadise-ai/internal/analysis"
	applog "github.com/sonyaz93/Divaparadise-ai/internal/log"
	"github.com/sonyaz93/Divaparadise-ai/pkg/bitint"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no path is
// given.
const DefaultConfigFile = "diva.yaml"

// LoadConfig loads configuration from the YAML file at path. If path is
// empty it tries DefaultConfigFile and falls back to built-in defaults when
// that does not exist. Environment overrides are applied last, then the
// result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("configuration: loaded %s", path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks every section and returns all problems joined together.
// Gain is not checked: the engine clamps it.
func (c *Config) Validate() error {
	var errs []error

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}

	if c.Engine.NumBars < 1 || c.Engine.NumBars > MaxNumBars {
		errs = append(errs, fmt.Errorf("engine.num_bars must be in [1, %d], got %d", MaxNumBars, c.Engine.NumBars))
	}

	a := c.Analysis
	if !bitint.IsPowerOfTwo(a.FFTSize) || a.FFTSize < MinFFTSize || a.FFTSize > MaxFFTSize {
		errs = append(errs, fmt.Errorf("analysis.fft_size must be a power of two in [%d, %d], got %d (nearest: %d)",
			MinFFTSize, MaxFFTSize, a.FFTSize, bitint.NextPowerOfTwo(a.FFTSize)))
	}
	if _, err := analysis.ParseWindowFunc(a.Window); err != nil {
		errs = append(errs, fmt.Errorf("analysis.window: %w", err))
	}
	if !(a.Smoothing >= 0 && a.Smoothing < 1) {
		errs = append(errs, fmt.Errorf("analysis.smoothing must be in [0, 1), got %v", a.Smoothing))
	}
	if a.MinDecibels >= a.MaxDecibels {
		errs = append(errs, fmt.Errorf("analysis.min_decibels (%v) must be below max_decibels (%v)", a.MinDecibels, a.MaxDecibels))
	}
	if a.Quantum < 1 || a.Quantum > MaxQuantum {
		errs = append(errs, fmt.Errorf("analysis.quantum must be in [1, %d], got %d", MaxQuantum, a.Quantum))
	}

	if !(c.Gate.Threshold >= 0 && c.Gate.Threshold <= 1) {
		errs = append(errs, fmt.Errorf("gate.threshold must be in [0, 1], got %v", c.Gate.Threshold))
	}
	if !(c.Gate.Decay >= 0 && c.Gate.Decay <= 1) {
		errs = append(errs, fmt.Errorf("gate.decay must be in [0, 1], got %v", c.Gate.Decay))
	}

	t := c.Transport
	if t.UDPEnabled {
		if t.UDPTargetAddress == "" {
			errs = append(errs, errors.New("transport.udp_target_address must be set when UDP is enabled"))
		}
		if t.UDPSendInterval <= 0 {
			errs = append(errs, errors.New("transport.udp_send_interval must be positive when UDP is enabled"))
		}
	}
	if t.FrameInterval <= 0 {
		errs = append(errs, errors.New("transport.frame_interval must be positive"))
	}

	return errors.Join(errs...)
}

// applyEnvOverrides applies ENV_* variables on top of file or default
// values. Unparseable values are logged and ignored.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		applog.Infof("configuration: overriding log_level from env: %s", val)
	}

	// ENV_ENGINE_{...}
	if val, ok := os.LookupEnv("ENV_ENGINE_GAIN"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Engine.Gain = f
			applog.Infof("configuration: overriding engine.gain from env: %v", f)
		} else {
			applog.Warnf("configuration: ignoring ENV_ENGINE_GAIN=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("ENV_ENGINE_NUM_BARS"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Engine.NumBars = n
			applog.Infof("configuration: overriding engine.num_bars from env: %d", n)
		} else {
			applog.Warnf("configuration: ignoring ENV_ENGINE_NUM_BARS=%q: %v", val, err)
		}
	}

	// ENV_GATE_{...}
	if val, ok := os.LookupEnv("ENV_GATE_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Gate.Enabled = b
			applog.Infof("configuration: overriding gate.enabled from env: %v", b)
		}
	}

	// ENV_WS_{...} and ENV_UDP_{...}
	if val, ok := os.LookupEnv("ENV_WS_ADDR"); ok {
		c.Transport.WebSocketAddr = val
		applog.Infof("configuration: overriding transport.websocket_addr from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
			applog.Infof("configuration: overriding transport.udp_enabled from env: %v", b)
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		applog.Infof("configuration: overriding transport.udp_target_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			applog.Infof("configuration: overriding transport.udp_send_interval from env: %s", dur)
		}
	}
}
