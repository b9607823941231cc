// Package audio handles capture-device access and loudness metering
package audio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/sawt-voice/sawt/internal/errors"
)

// frameBuffer is the depth of the capture channel. When the consumer lags
// behind the device by more than this many frames, new frames are dropped.
const frameBuffer = 64

// Frame is one render quantum of mono samples from the capture device.
// Data is an ownership-transferred copy; the capture loop never aliases it.
type Frame struct {
	Data      []float32
	Timestamp int64
}

// Capturer owns exclusive access to the default input device for the
// lifetime of a session.
type Capturer struct {
	outCh        chan Frame
	sampleRate   int
	framesPerBuf int

	mu      sync.Mutex
	stream  *portaudio.Stream
	cancel  context.CancelFunc
	running bool
}

// NewCapturer creates a capturer for the default input device.
func NewCapturer(sampleRate, framesPerBuf int) *Capturer {
	return &Capturer{
		outCh:        make(chan Frame, frameBuffer),
		sampleRate:   sampleRate,
		framesPerBuf: framesPerBuf,
	}
}

// Frames returns the channel of captured frames.
func (c *Capturer) Frames() <-chan Frame { return c.outCh }

// Start acquires the default input device and begins the capture loop.
// Acquisition failure is terminal: no retry is attempted.
func (c *Capturer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return errors.Wrap(err, errors.CodeDeviceFailed, "portaudio init")
	}

	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		_ = portaudio.Terminate()
		return errors.Wrap(err, errors.CodeDeviceDenied, "no input device")
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(c.sampleRate),
		FramesPerBuffer: c.framesPerBuf,
	}

	buf := make([]float32, c.framesPerBuf)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return errors.Wrap(err, errors.CodeDeviceDenied, "open input stream")
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return errors.Wrap(err, errors.CodeDeviceFailed, "start input stream")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.stream = stream
	c.cancel = cancel
	c.running = true
	slog.Info("capture started", "device", dev.Name, "sample_rate", c.sampleRate, "frames_per_buffer", c.framesPerBuf)

	go c.readLoop(loopCtx, stream, buf)
	return nil
}

func (c *Capturer) readLoop(ctx context.Context, stream *portaudio.Stream, buf []float32) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := stream.Read(); err != nil {
			slog.Debug("capture read error", "error", err)
			return
		}

		frame := Frame{
			Data:      append([]float32(nil), buf...),
			Timestamp: time.Now().UnixNano(),
		}

		// Drop-newest: the capture loop never waits on a slow consumer.
		select {
		case c.outCh <- frame:
		default:
			slog.Debug("frame buffer full, dropping frame")
		}
	}
}

// Stop releases the device. Safe to call when not running.
func (c *Capturer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.cancel()
	_ = c.stream.Stop()
	_ = c.stream.Close()
	c.stream = nil
	c.running = false
	_ = portaudio.Terminate()
}
