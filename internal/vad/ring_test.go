package vad

import "testing"

func frame(v int16) []int16 { return []int16{v} }

func TestRingPushAndDrain(t *testing.T) {
	r := NewRing(3)

	r.Push(frame(1))
	r.Push(frame(2))

	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}

	got := r.Drain()
	if len(got) != 2 {
		t.Fatalf("Drain() returned %d frames, want 2", len(got))
	}
	if got[0][0] != 1 || got[1][0] != 2 {
		t.Errorf("Drain() order = [%d %d], want [1 2]", got[0][0], got[1][0])
	}
	if r.Len() != 0 {
		t.Errorf("Len() after drain = %d, want 0", r.Len())
	}
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(3)

	// Capacity+1 pushes must evict exactly the oldest frame.
	for v := int16(1); v <= 4; v++ {
		r.Push(frame(v))
	}

	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}

	got := r.Drain()
	want := []int16{2, 3, 4}
	for i, w := range want {
		if got[i][0] != w {
			t.Errorf("Drain()[%d] = %d, want %d", i, got[i][0], w)
		}
	}
}

func TestRingWrapsRepeatedly(t *testing.T) {
	r := NewRing(2)

	for v := int16(1); v <= 7; v++ {
		r.Push(frame(v))
	}

	got := r.Drain()
	if len(got) != 2 || got[0][0] != 6 || got[1][0] != 7 {
		t.Errorf("Drain() = %v, want the two newest frames [6 7]", got)
	}
}

func TestRingReusableAfterDrain(t *testing.T) {
	r := NewRing(2)
	r.Push(frame(1))
	_ = r.Drain()

	r.Push(frame(9))
	got := r.Drain()
	if len(got) != 1 || got[0][0] != 9 {
		t.Errorf("Drain() after reuse = %v, want [9]", got)
	}
}

func TestRingMinimumCapacity(t *testing.T) {
	r := NewRing(0)
	if r.Cap() != 1 {
		t.Errorf("Cap() = %d, want 1", r.Cap())
	}
}
