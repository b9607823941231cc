// Package mic composes device capture and voice activity detection into a
// transmitting microphone session.
package mic

import (
	"context"
	"encoding/binary"
	"log/slog"

	"github.com/sawt-voice/sawt/internal/audio"
	"github.com/sawt-voice/sawt/internal/syncx"
	"github.com/sawt-voice/sawt/internal/vad"
)

// Source supplies capture frames. Implemented by audio.Capturer.
type Source interface {
	Start(ctx context.Context) error
	Frames() <-chan audio.Frame
	Stop()
}

// Sender receives outbound utterance traffic. Implemented by transport.Session.
type Sender interface {
	SendAudio(pcm []byte)
	SendStop()
}

// state is the observable microphone state.
type state struct {
	granted      bool
	muted        bool
	transmitting bool
	level        float64
}

// Session owns the capture device for its lifetime and gates the detector's
// event stream into the sender. Mute drops audio but keeps detection running,
// so the server always sees well-formed utterance boundaries.
type Session struct {
	src    Source
	det    *vad.Detector
	sender Sender
	st     *syncx.Guard[state]
}

// NewSession creates a microphone session.
func NewSession(src Source, det *vad.Detector, sender Sender) *Session {
	return &Session{src: src, det: det, sender: sender, st: syncx.NewGuard(state{})}
}

// Run acquires the device and processes frames until ctx ends or the source
// closes. Acquisition failure is terminal: the session reports not-granted
// and returns the error without retrying.
func (s *Session) Run(ctx context.Context) error {
	if err := s.src.Start(ctx); err != nil {
		slog.Error("microphone not granted", "error", err)
		return err
	}
	s.st.Update(func(st *state) { st.granted = true })
	defer s.src.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-s.src.Frames():
			if !ok {
				return nil
			}
			s.processFrame(frame)
		}
	}
}

func (s *Session) processFrame(frame audio.Frame) {
	lvl := audio.Level(frame.Data)
	s.st.Update(func(st *state) { st.level = lvl })

	for _, ev := range s.det.ProcessFrame(frame.Data) {
		switch ev.Kind {
		case vad.KindStart:
			s.st.Update(func(st *state) { st.transmitting = true })
			slog.Debug("utterance start")
		case vad.KindStop:
			s.sendStop()
		case vad.KindAudio:
			st := s.st.Get()
			if st.transmitting && !st.muted {
				s.sender.SendAudio(pcmBytes(ev.PCM))
			}
		}
	}
}

// sendStop emits the utterance-end signal once. Stopping while already not
// transmitting is a no-op.
func (s *Session) sendStop() {
	stopped := false
	s.st.Update(func(st *state) {
		if st.transmitting {
			st.transmitting = false
			stopped = true
		}
	})
	if stopped {
		s.sender.SendStop()
		slog.Debug("utterance stop")
	}
}

// ToggleMute flips the mute flag and returns the new value. Muting
// mid-utterance ends the utterance exactly like a detected stop.
func (s *Session) ToggleMute() bool {
	var muted bool
	s.st.Update(func(st *state) {
		st.muted = !st.muted
		muted = st.muted
	})
	if muted {
		s.sendStop()
	}
	slog.Info("mute toggled", "muted", muted)
	return muted
}

// Granted reports whether the capture device was acquired.
func (s *Session) Granted() bool { return s.st.Get().granted }

// Muted reports the mute flag.
func (s *Session) Muted() bool { return s.st.Get().muted }

// Transmitting reports whether an utterance is in progress.
func (s *Session) Transmitting() bool { return s.st.Get().transmitting }

// Level returns the latest capture loudness for UI feedback.
func (s *Session) Level() float64 { return s.st.Get().level }

// pcmBytes serializes samples as little-endian int16, the wire format.
func pcmBytes(pcm []int16) []byte {
	b := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	return b
}
