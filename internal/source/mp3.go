// SPDX-License-Identifier: MIT
package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// The MP3 decoder always produces 16-bit little-endian stereo.
const (
	mp3Channels  = 2
	mp3FrameSize = mp3Channels * 2
)

// MP3Reader streams MPEG-1/2 Layer III files.
type MP3Reader struct {
	file    *os.File
	decoder *mp3.Decoder
	raw     []byte
	scale   float32
}

func OpenMP3(path string) (*MP3Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := mp3.NewDecoder(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("decoding MP3: %w", err)
	}
	return &MP3Reader{file: file, decoder: dec, scale: intScale(16)}, nil
}

func (r *MP3Reader) SampleRate() int { return r.decoder.SampleRate() }
func (r *MP3Reader) Channels() int   { return mp3Channels }

// Duration is exact for seekable input and zero when the length is unknown.
func (r *MP3Reader) Duration() time.Duration {
	return framesDuration(r.decoder.Length()/mp3FrameSize, r.decoder.SampleRate())
}

func (r *MP3Reader) ReadQuantum(dst []float32) (int, error) {
	need := len(dst) * mp3FrameSize
	if cap(r.raw) < need {
		r.raw = make([]byte, need)
	}
	r.raw = r.raw[:need]

	n, err := io.ReadFull(r.decoder, r.raw)
	frames := n / mp3FrameSize
	if frames == 0 {
		if err == nil || errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return 0, err
	}
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, err
	}

	for i := range frames {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(r.raw[i*mp3FrameSize:]))) * r.scale
	}
	return frames, nil
}

func (r *MP3Reader) Close() error {
	return r.file.Close()
}
