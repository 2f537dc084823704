// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sonyaz93/Divaparadise-ai/internal/config"
	applog "github.com/sonyaz93/Divaparadise-ai/internal/log"
	"github.com/sonyaz93/Divaparadise-ai/internal/pipeline"
	"github.com/sonyaz93/Divaparadise-ai/internal/source"
	"github.com/sonyaz93/Divaparadise-ai/internal/transport"
	"github.com/sonyaz93/Divaparadise-ai/internal/transport/udp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Decoded quanta buffered ahead of playback.
const quantumQueue = 64

func newServeCmd(opts *options) *cobra.Command {
	var (
		listenAddr string
		udpTarget  string
		loop       bool
	)

	cmd := &cobra.Command{
		Use:   "serve <input>",
		Short: "Play a file in real time and stream frames to visualizers",
		Long: `Serve paces the input at its sample rate through the engine and publishes
{peak, bars} frames as JSON on ws://<listen>/ws, and as binary packets over
UDP when --udp is set. It runs until the file ends (or forever with --loop)
or the process is interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("listen") {
				cfg.Transport.WebSocketAddr = listenAddr
			}
			if udpTarget != "" {
				cfg.Transport.UDPEnabled = true
				cfg.Transport.UDPTargetAddress = udpTarget
			}
			return runServe(cmd.Context(), cfg, args[0], loop)
		},
	}

	cmd.Flags().StringVarP(&listenAddr, "listen", "l", config.DefaultWebSocketAddr,
		"WebSocket listen address")
	cmd.Flags().StringVar(&udpTarget, "udp", "",
		"Also send binary frames to this UDP host:port")
	cmd.Flags().BoolVar(&loop, "loop", false,
		"Restart the input when it ends")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, inputFile string, loop bool) error {
	reader, err := source.Open(inputFile)
	if err != nil {
		return err
	}
	sampleRate := reader.SampleRate()
	if sampleRate <= 0 {
		reader.Close()
		return fmt.Errorf("%s: invalid sample rate %d", inputFile, sampleRate)
	}

	transports := transport.MultiTransport{}
	if cfg.Transport.WebSocketAddr != "" {
		ws := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr)
		if err := ws.Start(); err != nil {
			ws.Close()
			reader.Close()
			return fmt.Errorf("failed to start websocket transport: %w", err)
		}
		transports = append(transports, ws)
	}
	if applog.Enabled(applog.LevelDebug) {
		transports = append(transports, transport.NewLoggingTransport())
	}
	defer func() {
		if err := transports.Close(); err != nil {
			applog.Warnf("Error closing transports: %v", err)
		}
	}()

	p, err := newPipeline(cfg, transports)
	if err != nil {
		reader.Close()
		return err
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			reader.Close()
			return err
		}
		defer sender.Close()

		publisher, err := udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, p)
		if err != nil {
			reader.Close()
			return err
		}
		publisher.Start()
		defer publisher.Stop()
	}

	quantum := cfg.Analysis.Quantum
	applog.Infof("Serve: Playing %s (%s, %d Hz, quantum %d)", inputFile, reader.Duration(), sampleRate, quantum)

	quanta := make(chan []float32, quantumQueue)
	g, ctx := errgroup.WithContext(ctx)

	// Decoder: reads ahead of playback and reopens the input when looping.
	g.Go(func() error {
		defer close(quanta)
		defer func() { reader.Close() }()

		read := 0
		for {
			buf := make([]float32, quantum)
			n, err := reader.ReadQuantum(buf)
			if errors.Is(err, io.EOF) {
				if !loop {
					return nil
				}
				if read == 0 {
					return fmt.Errorf("%s: no samples to loop", inputFile)
				}
				next, err := source.Open(inputFile)
				if err != nil {
					return err
				}
				reader.Close()
				reader, read = next, 0
				applog.Debugf("Serve: Looping %s", inputFile)
				continue
			}
			if err != nil {
				return fmt.Errorf("reading %s: %w", inputFile, err)
			}
			read += n

			select {
			case quanta <- buf[:n]:
			case <-ctx.Done():
				return nil
			}
		}
	})

	// Playback: one quantum per quantum duration, one frame per frame
	// interval, both on this goroutine.
	g.Go(func() error {
		return play(ctx, p, quanta, quantumDuration(quantum, sampleRate), cfg.Transport.FrameInterval)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	stats := p.Stats()
	applog.Infof("Serve: Done, %d samples, %d frames, max peak %.4f, clipped %d",
		stats.Samples, stats.Frames, stats.MaxPeak, stats.ClippedSamples)
	return nil
}

func play(ctx context.Context, p *pipeline.Pipeline, quanta <-chan []float32, quantumEvery, frameEvery time.Duration) error {
	quantumTicker := time.NewTicker(quantumEvery)
	defer quantumTicker.Stop()
	frameTicker := time.NewTicker(frameEvery)
	defer frameTicker.Stop()

	publish := func() {
		if _, err := p.Publish(ctx); err != nil && !errors.Is(err, context.Canceled) {
			applog.Warnf("Serve: %v", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-frameTicker.C:
			publish()
		case <-quantumTicker.C:
			buf, ok := <-quanta
			if !ok {
				publish()
				return nil
			}
			p.ProcessQuantum(buf)
		}
	}
}

// quantumDuration is the playback time of quantum samples at sampleRate.
func quantumDuration(quantum, sampleRate int) time.Duration {
	return time.Duration(quantum) * time.Second / time.Duration(sampleRate)
}
