package playback

import (
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/sawt-voice/sawt/internal/errors"
)

// PortAudioSink plays mixed output through the default output device.
type PortAudioSink struct {
	framesPerBuf int

	mu     sync.Mutex
	stream *portaudio.Stream
	done   chan struct{}
}

// NewPortAudioSink creates a sink pulling framesPerBuf samples per write.
func NewPortAudioSink(framesPerBuf int) *PortAudioSink {
	return &PortAudioSink{framesPerBuf: framesPerBuf}
}

// Start opens the default output stream and pulls frames from mix until Stop.
func (s *PortAudioSink) Start(mix func(out []float32)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return errors.Wrap(err, errors.CodeDeviceFailed, "portaudio init")
	}

	buf := make([]float32, s.framesPerBuf)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(SampleRate), s.framesPerBuf, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return errors.Wrap(err, errors.CodeDeviceFailed, "open output stream")
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return errors.Wrap(err, errors.CodeDeviceFailed, "start output stream")
	}

	s.stream = stream
	s.done = make(chan struct{})
	slog.Info("playback started", "sample_rate", SampleRate, "frames_per_buffer", s.framesPerBuf)

	go s.writeLoop(stream, buf, mix)
	return nil
}

func (s *PortAudioSink) writeLoop(stream *portaudio.Stream, buf []float32, mix func([]float32)) {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		mix(buf)
		if err := stream.Write(); err != nil {
			// Underflow is routine when sources drain; keep going.
			slog.Debug("output write error", "error", err)
		}
	}
}

// Stop closes the output stream. Safe to call with no stream open.
func (s *PortAudioSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return
	}
	close(s.done)
	_ = s.stream.Stop()
	_ = s.stream.Close()
	s.stream = nil
	_ = portaudio.Terminate()
}
