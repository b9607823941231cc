package vad

// Ring is a fixed-capacity ring buffer of PCM16 frames. Push overwrites the
// oldest entry once full; Drain yields the retained frames oldest-first and
// logically clears the buffer.
type Ring struct {
	frames [][]int16
	pos    int // next write index
	filled int // number of valid entries
}

// NewRing creates a ring buffer holding at most capacity frames.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{frames: make([][]int16, capacity)}
}

// Push stores one frame, evicting the oldest when full.
func (r *Ring) Push(frame []int16) {
	r.frames[r.pos] = frame
	r.pos = (r.pos + 1) % len(r.frames)
	if r.filled < len(r.frames) {
		r.filled++
	}
}

// Len returns the number of retained frames.
func (r *Ring) Len() int { return r.filled }

// Cap returns the maximum number of retained frames.
func (r *Ring) Cap() int { return len(r.frames) }

// Drain returns the retained frames oldest-first and clears the buffer.
// Slots are not zeroed; eviction order makes reuse safe.
func (r *Ring) Drain() [][]int16 {
	out := make([][]int16, 0, r.filled)
	start := (r.pos - r.filled + len(r.frames)) % len(r.frames)
	for i := 0; i < r.filled; i++ {
		out = append(out, r.frames[(start+i)%len(r.frames)])
	}
	r.filled = 0
	return out
}
