// SPDX-License-Identifier: MIT
package transport

import (
	applog "github.com/sonyaz93/Divaparadise-ai/internal/log"
)

// LoggingTransport writes each frame to the debug log. It is the fallback
// when no network transport is configured.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the frame at debug level.
func (lt *LoggingTransport) Send(frame Frame) error {
	if applog.Enabled(applog.LevelDebug) {
		applog.Debugf("Transport: frame %d peak=%.3f bars=%.3f", frame.Seq, frame.Peak, frame.Bars)
	}
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("Transport: LoggingTransport closed")
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
