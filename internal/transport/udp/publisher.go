// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	applog "github.com/sonyaz93/Divaparadise-ai/internal/log"
	"github.com/sonyaz93/Divaparadise-ai/internal/transport"
)

const (
	headerSize = 4 + 8 + 4 + 2
	maxBars    = math.MaxUint16
)

// ErrShortPacket is returned by DecodePacket for truncated input.
var ErrShortPacket = errors.New("udp packet too short")

// FrameSource provides the most recent rendered frame.
type FrameSource interface {
	LatestFrame() (transport.Frame, bool)
}

// PacketSender is the subset of Sender used by the publisher.
type PacketSender interface {
	Send(data []byte) error
}

// Publisher periodically takes the latest frame from a FrameSource, packs
// it into the binary layout below and sends it with a Sender. It runs in
// its own goroutine between Start and Stop.
type Publisher struct {
	sender   PacketSender
	source   FrameSource
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum  uint32
	lastFrameSeq uint32
	packetBuffer *bytes.Buffer
}

// NewPublisher creates a publisher. An interval <= 0 defaults to 16ms.
func NewPublisher(interval time.Duration, sender PacketSender, source FrameSource) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("UDPPublisher: frame source cannot be nil")
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	applog.Infof("UDPPublisher: Initializing (Interval: %s)", interval)
	return &Publisher{
		sender:       sender,
		source:       source,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start launches the publishing goroutine. Calling Start while running is a
// no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	ticker, doneChan := p.ticker, p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the goroutine to exit and waits for it. Safe to call more
// than once.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	close(p.doneChan)
	p.ticker.Stop()
	p.ticker = nil
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("UDPPublisher: Stopped after %d packets.", p.sequenceNum)
	return nil
}

// Close implements io.Closer.
func (p *Publisher) Close() error {
	return p.Stop()
}

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------+
| Field           | Data Type | Size (Bytes) | Description          |
|-----------------|-----------|--------------|----------------------|
| Sequence Number | uint32    | 4            | Per-packet counter   |
| Timestamp       | int64     | 8            | Frame time, Unix ns  |
| Peak            | float32   | 4            | Last quantum peak    |
| Bar Count       | uint16    | 2            | Number of bars (N)   |
| Bars            | []float32 | N * 4        | Bar values, NaN kept |
+-----------------------------------------------------------------+
*/

// publish sends the latest frame unless it was already sent.
func (p *Publisher) publish() {
	frame, ok := p.source.LatestFrame()
	if !ok || (frame.Seq == p.lastFrameSeq && p.sequenceNum > 0) {
		return
	}

	p.sequenceNum++
	if err := EncodePacket(p.packetBuffer, p.sequenceNum, frame); err != nil {
		applog.Errorf("UDPPublisher: Error packing frame %d: %v", frame.Seq, err)
		return
	}
	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		applog.Warnf("UDPPublisher: Error sending packet %d: %v", p.sequenceNum, err)
		return
	}
	p.lastFrameSeq = frame.Seq
	applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
}

// EncodePacket resets buf and writes frame in the packet layout.
func EncodePacket(buf *bytes.Buffer, seq uint32, frame transport.Frame) error {
	if len(frame.Bars) > maxBars {
		return fmt.Errorf("too many bars for one packet: %d", len(frame.Bars))
	}

	buf.Reset()
	buf.Grow(headerSize + 4*len(frame.Bars))

	var hdr [headerSize]byte
	binary.BigEndian.PutUint32(hdr[0:4], seq)
	binary.BigEndian.PutUint64(hdr[4:12], uint64(frame.Timestamp))
	binary.BigEndian.PutUint32(hdr[12:16], math.Float32bits(frame.Peak))
	binary.BigEndian.PutUint16(hdr[16:18], uint16(len(frame.Bars)))
	buf.Write(hdr[:])

	var word [4]byte
	for _, bar := range frame.Bars {
		binary.BigEndian.PutUint32(word[:], math.Float32bits(bar))
		buf.Write(word[:])
	}
	return nil
}

// DecodePacket parses a packet produced by EncodePacket.
func DecodePacket(data []byte) (seq uint32, frame transport.Frame, err error) {
	if len(data) < headerSize {
		return 0, frame, ErrShortPacket
	}
	seq = binary.BigEndian.Uint32(data[0:4])
	frame.Timestamp = int64(binary.BigEndian.Uint64(data[4:12]))
	frame.Peak = math.Float32frombits(binary.BigEndian.Uint32(data[12:16]))
	n := int(binary.BigEndian.Uint16(data[16:18]))

	body := data[headerSize:]
	if len(body) < 4*n {
		return 0, transport.Frame{}, fmt.Errorf("%w: want %d bars, have %d bytes", ErrShortPacket, n, len(body))
	}
	frame.Bars = make([]float32, n)
	for i := range frame.Bars {
		frame.Bars[i] = math.Float32frombits(binary.BigEndian.Uint32(body[4*i:]))
	}
	return seq, frame, nil
}
