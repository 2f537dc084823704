// SPDX-License-Identifier: MIT
package source

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	applog "github.com/sonyaz93/Divaparadise-ai/internal/log"
)

const wavFormatPCM = 1

// WAVReader streams PCM WAV files.
type WAVReader struct {
	file       *os.File
	decoder    *wav.Decoder
	sampleBuf  *audio.IntBuffer // Reusable buffer for format conversion
	sampleRate int
	channels   int
	bitDepth   int
	frames     int64
	scale      float32
	offset     int // 8-bit WAV is unsigned
}

// OpenWAV opens path and positions the decoder at the PCM data.
func OpenWAV(path string) (*WAVReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidWAV)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		file.Close()
		return nil, fmt.Errorf("%s: %w: audio format %d is not PCM", path, ErrInvalidWAV, dec.WavAudioFormat)
	}
	if err := dec.FwdToPCM(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		file.Close()
		return nil, fmt.Errorf("%s: %w: unsupported bit depth %d", path, ErrInvalidWAV, bitDepth)
	}

	r := &WAVReader{
		file:       file,
		decoder:    dec,
		sampleRate: int(dec.SampleRate),
		channels:   channels,
		bitDepth:   bitDepth,
		frames:     dec.PCMLen() / int64(channels*bitDepth/8),
		scale:      intScale(bitDepth),
		sampleBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  int(dec.SampleRate),
			},
		},
	}
	if bitDepth == 8 {
		r.offset = 128
	}

	applog.Debugf("Source: Opened %s (%d Hz, %d ch, %d bit, %s)", path, r.sampleRate, r.channels, r.bitDepth, r.Duration())
	return r, nil
}

func (r *WAVReader) SampleRate() int { return r.sampleRate }
func (r *WAVReader) Channels() int   { return r.channels }
func (r *WAVReader) BitDepth() int   { return r.bitDepth }

// Duration is derived from the size of the PCM chunk.
func (r *WAVReader) Duration() time.Duration {
	return framesDuration(r.frames, r.sampleRate)
}

func (r *WAVReader) ReadQuantum(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	need := len(dst) * r.channels
	if cap(r.sampleBuf.Data) < need {
		r.sampleBuf.Data = make([]int, need)
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:need]

	n, err := r.decoder.PCMBuffer(r.sampleBuf)
	frames := n / r.channels
	if frames == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, err
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}

	data := r.sampleBuf.Data
	for i := range frames {
		dst[i] = float32(data[i*r.channels]-r.offset) * r.scale
	}
	return frames, nil
}

func (r *WAVReader) Close() error {
	return r.file.Close()
}

// WAVWriter writes mono processed output as integer PCM.
type WAVWriter struct {
	file      *os.File
	encoder   *wav.Encoder
	sampleBuf *audio.IntBuffer
	maxValue  float64
	frames    int64
	closed    bool
}

// CreateWAV creates path as a mono WAV file with the given format. The bit
// depth must be 16, 24 or 32.
func CreateWAV(path string, sampleRate, bitDepth int) (*WAVWriter, error) {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported output bit depth %d", bitDepth)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	return &WAVWriter{
		file:    file,
		encoder: wav.NewEncoder(file, sampleRate, bitDepth, 1, wavFormatPCM),
		sampleBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: 1,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: bitDepth,
		},
		maxValue: float64(int64(1)<<(bitDepth-1) - 1),
	}, nil
}

// WriteQuantum converts samples to integer PCM and appends them. Values
// outside [-1, 1] are clamped and NaN is written as silence.
func (w *WAVWriter) WriteQuantum(samples []float32) error {
	if w.closed {
		return os.ErrClosed
	}
	if cap(w.sampleBuf.Data) < len(samples) {
		w.sampleBuf.Data = make([]int, len(samples))
	}
	w.sampleBuf.Data = w.sampleBuf.Data[:len(samples)]

	for i, s := range samples {
		v := float64(s)
		switch {
		case math.IsNaN(v):
			v = 0
		case v > 1:
			v = 1
		case v < -1:
			v = -1
		}
		w.sampleBuf.Data[i] = int(math.Round(v * w.maxValue))
	}

	if err := w.encoder.Write(w.sampleBuf); err != nil {
		return fmt.Errorf("error writing to WAV file: %w", err)
	}
	w.frames += int64(len(samples))
	return nil
}

// Frames returns how many samples have been written.
func (w *WAVWriter) Frames() int64 {
	return w.frames
}

// Close finalizes the WAV header and closes the file. Further calls are
// no-ops.
func (w *WAVWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.encoder.Close(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
