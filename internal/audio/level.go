package audio

import "math"

// Level reduces all samples across the given frames to a single RMS loudness
// scalar. Stateless; used for UI feedback only, independent of speech
// detection.
func Level(frames ...[]float32) float64 {
	var sumSq float64
	var count int
	for _, frame := range frames {
		for _, s := range frame {
			sumSq += float64(s) * float64(s)
		}
		count += len(frame)
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(sumSq / float64(count))
}
