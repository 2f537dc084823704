// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jfreymuth/oggvorbis"
)

// OGGReader streams Ogg Vorbis files. Vorbis decodes to float samples, so
// no scaling is applied.
type OGGReader struct {
	file    *os.File
	reader  *oggvorbis.Reader
	samples []float32 // Interleaved
}

func OpenOGG(path string) (*OGGReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	reader, err := oggvorbis.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("decoding OGG: %w", err)
	}
	return &OGGReader{file: file, reader: reader}, nil
}

func (r *OGGReader) SampleRate() int { return r.reader.SampleRate() }
func (r *OGGReader) Channels() int   { return r.reader.Channels() }

func (r *OGGReader) Duration() time.Duration {
	return framesDuration(r.reader.Length(), r.reader.SampleRate())
}

func (r *OGGReader) ReadQuantum(dst []float32) (int, error) {
	channels := r.reader.Channels()
	need := len(dst) * channels
	if cap(r.samples) < need {
		r.samples = make([]float32, need)
	}
	r.samples = r.samples[:need]

	// Vorbis packets can be shorter than a quantum.
	total := 0
	for total < need {
		n, err := r.reader.Read(r.samples[total:])
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		if n == 0 {
			break
		}
	}

	frames := total / channels
	if frames == 0 {
		return 0, io.EOF
	}
	for i := range frames {
		dst[i] = r.samples[i*channels]
	}
	return frames, nil
}

func (r *OGGReader) Close() error {
	return r.file.Close()
}
