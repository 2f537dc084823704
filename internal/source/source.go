// SPDX-License-Identifier: MIT
/*
Package source decodes audio files into mono float32 quanta for the
pipeline. Multi-channel files are reduced to their first channel, and
integer PCM is scaled by its bit depth into [-1, 1].

Supported containers: WAV (PCM), FLAC, MP3 and Ogg Vorbis.
*/
package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrUnsupportedFormat is returned by Open for unknown file extensions.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrInvalidWAV is returned for files that are not PCM WAV.
	ErrInvalidWAV = errors.New("invalid WAV file")
)

// Reader yields mono sample quanta from a decoded file.
type Reader interface {
	// ReadQuantum fills dst with up to len(dst) mono samples and returns
	// how many were written. It returns io.EOF once no samples remain.
	ReadQuantum(dst []float32) (int, error)
	SampleRate() int
	Channels() int
	Duration() time.Duration
	Close() error
}

// Open picks a decoder from the file extension.
func Open(path string) (Reader, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav", ".wave":
		return OpenWAV(path)
	case ".flac":
		return OpenFLAC(path)
	case ".mp3":
		return OpenMP3(path)
	case ".ogg", ".oga":
		return OpenOGG(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// framesDuration converts a frame count at sampleRate into a duration.
func framesDuration(frames int64, sampleRate int) time.Duration {
	if sampleRate <= 0 || frames <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

// intScale returns the factor mapping signed PCM of bitDepth onto [-1, 1).
func intScale(bitDepth int) float32 {
	return 1 / float32(int64(1)<<(bitDepth-1))
}
