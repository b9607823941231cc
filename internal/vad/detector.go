// Package vad implements per-frame voice activity detection with
// pre-buffering and hysteresis.
package vad

import (
	"math"
	"time"
)

// TargetRate is the output sample rate of the downsampler.
const TargetRate = 16000

// EventKind tags a detector emission.
type EventKind int

const (
	// KindStart marks the beginning of an utterance.
	KindStart EventKind = iota
	// KindStop marks the end of an utterance.
	KindStop
	// KindAudio carries one downsampled PCM16 frame.
	KindAudio
)

// Event is one detector emission. PCM is set only for KindAudio.
type Event struct {
	Kind EventKind
	PCM  []int16
}

// Config holds the detector tunables.
type Config struct {
	SampleRate     int           // native capture rate
	FrameSize      int           // samples per render quantum
	VoiceThreshold float64       // RMS loudness that counts as voice
	SilenceTimeout time.Duration // silence that ends an utterance
	PreBuffer      time.Duration // audio retained before speech onset
	SpeakingGrace  time.Duration // window after a stop that resumes speech without a new start
}

// DefaultConfig returns the standard tunables for the given capture format.
// The grace window is deliberately shorter than the silence timeout: it only
// has to absorb boundary flicker, not pauses in speech.
func DefaultConfig(sampleRate, frameSize int) Config {
	return Config{
		SampleRate:     sampleRate,
		FrameSize:      frameSize,
		VoiceThreshold: 0.06,
		SilenceTimeout: time.Second,
		PreBuffer:      500 * time.Millisecond,
		SpeakingGrace:  250 * time.Millisecond,
	}
}

// Detector classifies each capture frame as speech or silence, emitting
// utterance boundary events and downsampled audio. ProcessFrame is the sole
// mutator, must be called from one goroutine, and never blocks: it has to
// finish well inside one frame period.
//
// Time is the audio clock derived from processed sample counts, not the wall
// clock, so a frame sequence always yields the same events.
type Detector struct {
	cfg  Config
	step int
	pre  *Ring

	speaking  bool
	clock     time.Duration // audio time at the start of the next frame
	lastVoice time.Duration
}

// New creates a detector. The pre-buffer capacity is ceil(PreBuffer/frameDur).
func New(cfg Config) *Detector {
	step := int(math.Round(float64(cfg.SampleRate) / TargetRate))
	if step < 1 {
		step = 1
	}
	frameDur := time.Duration(cfg.FrameSize) * time.Second / time.Duration(cfg.SampleRate)
	capacity := int(math.Ceil(float64(cfg.PreBuffer) / float64(frameDur)))
	return &Detector{
		cfg:  cfg,
		step: step,
		pre:  NewRing(capacity),
		// Sentinel: the first utterance must emit Start even at clock zero.
		lastVoice: -cfg.SpeakingGrace,
	}
}

// Speaking reports whether the detector is inside an utterance.
func (d *Detector) Speaking() bool { return d.speaking }

// ProcessFrame consumes one capture frame and returns the events it produced,
// in emission order.
func (d *Detector) ProcessFrame(frame []float32) []Event {
	now := d.clock
	d.clock += time.Duration(len(frame)) * time.Second / time.Duration(d.cfg.SampleRate)

	loudness := rms(frame)
	pcm := d.downsample(frame)

	if d.speaking {
		events := []Event{{Kind: KindAudio, PCM: pcm}}
		if loudness > d.cfg.VoiceThreshold {
			d.lastVoice = now
		} else if now-d.lastVoice > d.cfg.SilenceTimeout {
			d.speaking = false
			events = append(events, Event{Kind: KindStop})
		}
		return events
	}

	d.pre.Push(pcm)
	if loudness <= d.cfg.VoiceThreshold {
		return nil
	}

	d.speaking = true
	if now-d.lastVoice < d.cfg.SpeakingGrace {
		// A very recent stop: resume without re-signaling the boundary.
		return []Event{{Kind: KindAudio, PCM: pcm}}
	}

	d.lastVoice = now
	events := []Event{{Kind: KindStart}}
	for _, buffered := range d.pre.Drain() {
		events = append(events, Event{Kind: KindAudio, PCM: buffered})
	}
	return append(events, Event{Kind: KindAudio, PCM: pcm})
}

// rms is the root-mean-square loudness of a frame.
func rms(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// downsample decimates to TargetRate by nearest-neighbor stepping, clipping
// each kept sample to [-1, 1] and scaling to the signed 16-bit range.
func (d *Detector) downsample(frame []float32) []int16 {
	out := make([]int16, 0, (len(frame)+d.step-1)/d.step)
	for i := 0; i < len(frame); i += d.step {
		s := frame[i]
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out = append(out, int16(s*0x7fff))
	}
	return out
}
