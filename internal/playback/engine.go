package playback

import (
	"log/slog"
	"sync"

	"github.com/sawt-voice/sawt/internal/audio"
)

// source is one in-flight clip with a playback cursor.
type source struct {
	samples []float32
	pos     int
}

// Sink consumes mixed output. Start begins pulling frames via mix; Stop ends
// the pull loop.
type Sink interface {
	Start(mix func(out []float32)) error
	Stop()
}

// Engine schedules decoded clips as overlapping live sources and mixes them
// into the output sink. The live set is mutated only under e.mu, which makes
// StopAll safe against natural completion inside Mix.
type Engine struct {
	sink Sink

	mu      sync.Mutex
	sources []*source
	level   float64
}

// NewEngine creates an engine feeding sink. A nil sink is allowed for
// sessions without an output device; Mix can then be driven directly.
func NewEngine(sink Sink) *Engine {
	return &Engine{sink: sink}
}

// Start opens the output path.
func (e *Engine) Start() error {
	if e.sink == nil {
		return nil
	}
	return e.sink.Start(e.Mix)
}

// Stop halts output and drops all live sources.
func (e *Engine) Stop() {
	if e.sink != nil {
		e.sink.Stop()
	}
	e.StopAll()
}

// Play decodes a clip and schedules it immediately alongside any sources
// already playing. Undecodable clips are dropped with a log line only.
func (e *Engine) Play(clip []byte) {
	samples, err := decodeClip(clip)
	if err != nil {
		slog.Warn("dropping undecodable clip", "bytes", len(clip), "error", err)
		return
	}

	e.mu.Lock()
	e.sources = append(e.sources, &source{samples: samples})
	live := len(e.sources)
	e.mu.Unlock()
	slog.Debug("clip scheduled", "samples", len(samples), "live_sources", live)
}

// StopAll forcibly halts every in-flight source. No-op when none are live.
func (e *Engine) StopAll() {
	e.mu.Lock()
	e.sources = nil
	e.mu.Unlock()
}

// Live returns the number of in-flight sources.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sources)
}

// Level returns the loudness of the most recent mixed output frame.
func (e *Engine) Level() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.level
}

// Mix fills out with the sum of all live sources, clamped to [-1, 1].
// Sources that reach their end are removed; each is halted exactly once
// whether it completes here or through StopAll.
func (e *Engine) Mix(out []float32) {
	for i := range out {
		out[i] = 0
	}

	e.mu.Lock()
	live := e.sources[:0]
	for _, src := range e.sources {
		remaining := len(src.samples) - src.pos
		n := min(len(out), remaining)
		for i := 0; i < n; i++ {
			out[i] += src.samples[src.pos+i]
		}
		src.pos += n
		if src.pos < len(src.samples) {
			live = append(live, src)
		}
	}
	e.sources = live

	for i, s := range out {
		if s > 1 {
			out[i] = 1
		} else if s < -1 {
			out[i] = -1
		}
	}
	e.level = audio.Level(out)
	e.mu.Unlock()
}
