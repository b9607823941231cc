package playback

import (
	"encoding/binary"
	"math"
	"testing"
)

// wavClip builds a minimal RIFF/WAVE container around interleaved PCM16.
func wavClip(t *testing.T, rate, numCh int, samples []int16) []byte {
	t.Helper()
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}

	blockAlign := numCh * 2
	buf := make([]byte, 0, 44+len(data))
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+len(data)))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, uint16(numCh))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(rate))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(rate*blockAlign))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(blockAlign))
	buf = binary.LittleEndian.AppendUint16(buf, 16) // bits
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

func pcmBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestDecodeRawPCM(t *testing.T) {
	got, err := decodeRawPCM(pcmBytes([]int16{0, 0x7fff, -0x7fff, 0x4000}))
	if err != nil {
		t.Fatalf("decodeRawPCM: %v", err)
	}
	want := []float32{0, 1, -1, float32(0x4000) / 0x7fff}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecodeRawPCMTooShort(t *testing.T) {
	if _, err := decodeRawPCM([]byte{0x01}); err == nil {
		t.Error("decodeRawPCM accepted a 1-byte clip")
	}
	if _, err := decodeRawPCM(nil); err == nil {
		t.Error("decodeRawPCM accepted an empty clip")
	}
}

func TestDecodeWAVMono(t *testing.T) {
	clip := wavClip(t, SampleRate, 1, []int16{0, 0x7fff, -0x7fff})
	got, err := decodeWAV(clip)
	if err != nil {
		t.Fatalf("decodeWAV: %v", err)
	}
	want := []float32{0, 1, -1}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecodeWAVStereoAveraged(t *testing.T) {
	// L/R pairs collapse to their average.
	clip := wavClip(t, SampleRate, 2, []int16{1000, 3000, -2000, 2000})
	got, err := decodeWAV(clip)
	if err != nil {
		t.Fatalf("decodeWAV: %v", err)
	}
	want := []float32{2000.0 / 0x7fff, 0}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecodeWAVResamples(t *testing.T) {
	samples := make([]int16, 480) // 10ms at 48kHz
	clip := wavClip(t, 48000, 1, samples)
	got, err := decodeWAV(clip)
	if err != nil {
		t.Fatalf("decodeWAV: %v", err)
	}
	if len(got) != 160 { // 10ms at 16kHz
		t.Errorf("resampled len = %d, want 160", len(got))
	}
}

func TestDecodeWAVRejectsNonPCM(t *testing.T) {
	clip := wavClip(t, SampleRate, 1, []int16{0, 0})
	clip[20] = 3 // format tag: IEEE float
	if _, err := decodeWAV(clip); err == nil {
		t.Error("decodeWAV accepted a non-PCM format tag")
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, err := decodeWAV([]byte("RIFFxxxxWAVE")); err == nil {
		t.Error("decodeWAV accepted a headerless container")
	}
	if _, err := decodeWAV(pcmBytes(make([]int16, 100))); err == nil {
		t.Error("decodeWAV accepted raw PCM")
	}
}

func TestDecodeClipFallsBackToRawPCM(t *testing.T) {
	// Large enough that it cannot be a single opus packet.
	samples := make([]int16, 2000)
	for i := range samples {
		samples[i] = 0x2000
	}
	got, err := decodeClip(pcmBytes(samples))
	if err != nil {
		t.Fatalf("decodeClip: %v", err)
	}
	if len(got) != 2000 {
		t.Fatalf("len = %d, want 2000", len(got))
	}
	want := float32(0x2000) / 0x7fff
	if math.Abs(float64(got[0]-want)) > 1e-6 {
		t.Errorf("sample 0 = %v, want %v", got[0], want)
	}
}

func TestDecodeClipPrefersWAV(t *testing.T) {
	clip := wavClip(t, SampleRate, 1, []int16{0x1000, 0x1000})
	got, err := decodeClip(clip)
	if err != nil {
		t.Fatalf("decodeClip: %v", err)
	}
	// WAV parse strips the 44-byte header; a raw interpretation would not.
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestResample(t *testing.T) {
	tests := []struct {
		name    string
		src     int
		dst     int
		in      int
		wantLen int
	}{
		{"identity", 16000, 16000, 160, 160},
		{"downsample 3x", 48000, 16000, 480, 160},
		{"upsample 2x", 8000, 16000, 80, 160},
		{"empty", 48000, 16000, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resample(make([]float32, tt.in), tt.src, tt.dst)
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestResampleInterpolates(t *testing.T) {
	got := resample([]float32{0, 1}, 8000, 16000)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0] != 0 {
		t.Errorf("got[0] = %v, want 0", got[0])
	}
	if math.Abs(float64(got[1]-0.5)) > 1e-6 {
		t.Errorf("got[1] = %v, want 0.5", got[1])
	}
}
