// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"io"
	"time"

	"github.com/mewkiz/flac"
)

// FLACReader streams FLAC files frame by frame.
type FLACReader struct {
	stream     *flac.Stream
	pending    []int32 // Undelivered samples of the current frame, channel 0.
	decoded    int64   // Samples per channel parsed so far.
	sampleRate int
	channels   int
	frames     int64
	scale      float32
}

func OpenFLAC(path string) (*FLACReader, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}

	info := stream.Info
	return &FLACReader{
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		frames:     int64(info.NSamples),
		scale:      intScale(int(info.BitsPerSample)),
	}, nil
}

func (r *FLACReader) SampleRate() int { return r.sampleRate }
func (r *FLACReader) Channels() int   { return r.channels }

func (r *FLACReader) Duration() time.Duration {
	return framesDuration(r.frames, r.sampleRate)
}

func (r *FLACReader) ReadQuantum(dst []float32) (int, error) {
	n := 0
	for n < len(dst) {
		if len(r.pending) == 0 {
			// Trailing tags after the last frame are not audio.
			if r.frames > 0 && r.decoded >= r.frames {
				return n, eofIfEmpty(n)
			}
			frame, err := r.stream.ParseNext()
			if err == io.ErrUnexpectedEOF && r.frames == 0 && r.decoded > 0 {
				err = io.EOF
			}
			if err != nil {
				if err == io.EOF {
					return n, eofIfEmpty(n)
				}
				return n, err
			}
			r.pending = frame.Subframes[0].Samples
			r.decoded += int64(len(r.pending))
			continue
		}

		m := min(len(dst)-n, len(r.pending))
		for i, s := range r.pending[:m] {
			dst[n+i] = float32(s) * r.scale
		}
		r.pending = r.pending[m:]
		n += m
	}
	return n, nil
}

func eofIfEmpty(n int) error {
	if n == 0 {
		return io.EOF
	}
	return nil
}

func (r *FLACReader) Close() error {
	return r.stream.Close()
}
