// Package playback turns inbound audio clips into audible, cancellable output.
package playback

import (
	"encoding/binary"

	"layeh.com/gopus"

	"github.com/sawt-voice/sawt/internal/errors"
)

// Output format of every decoded clip.
const (
	SampleRate = 16000
	channels   = 1
)

// opusMaxFrame is the largest opus frame at 16 kHz (120 ms).
const opusMaxFrame = SampleRate * 120 / 1000

// maxOpusPacket is the largest possible opus packet (RFC 6716). Anything
// bigger cannot be a single packet and skips straight to the PCM fallback.
const maxOpusPacket = 1275

// decodeClip converts an inbound clip to mono float32 at SampleRate.
// Native decodes are attempted first (WAV container, then a single opus
// packet); anything else is interpreted as raw little-endian PCM16.
func decodeClip(clip []byte) ([]float32, error) {
	if samples, err := decodeWAV(clip); err == nil {
		return samples, nil
	}
	if len(clip) <= maxOpusPacket {
		if samples, err := decodeOpus(clip); err == nil {
			return samples, nil
		}
	}
	return decodeRawPCM(clip)
}

// decodeWAV parses a RIFF/WAVE container holding PCM16 audio, averages the
// channels down to mono, and resamples to SampleRate.
func decodeWAV(clip []byte) ([]float32, error) {
	if len(clip) < 44 || string(clip[0:4]) != "RIFF" || string(clip[8:12]) != "WAVE" {
		return nil, errors.New(errors.CodeDecodeFailed, "not a RIFF/WAVE container")
	}

	var format, numCh, rate, bits int
	var data []byte

	off := 12
	for off+8 <= len(clip) {
		id := string(clip[off : off+4])
		size := int(binary.LittleEndian.Uint32(clip[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(clip) {
			return nil, errors.New(errors.CodeDecodeFailed, "truncated chunk")
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, errors.New(errors.CodeDecodeFailed, "short fmt chunk")
			}
			format = int(binary.LittleEndian.Uint16(clip[body:]))
			numCh = int(binary.LittleEndian.Uint16(clip[body+2:]))
			rate = int(binary.LittleEndian.Uint32(clip[body+4:]))
			bits = int(binary.LittleEndian.Uint16(clip[body+14:]))
		case "data":
			data = clip[body : body+size]
		}
		off = body + size + size%2 // chunks are word-aligned
	}

	if format != 1 || bits != 16 || numCh < 1 || rate <= 0 || len(data) < 2 {
		return nil, errors.Newf(errors.CodeDecodeFailed, "unsupported wav encoding (format=%d bits=%d channels=%d)", format, bits, numCh)
	}

	samples := make([]float32, 0, len(data)/(2*numCh))
	for i := 0; i+2*numCh <= len(data); i += 2 * numCh {
		var sum int
		for ch := 0; ch < numCh; ch++ {
			sum += int(int16(binary.LittleEndian.Uint16(data[i+2*ch:])))
		}
		samples = append(samples, float32(sum/numCh)/0x7fff)
	}
	return resample(samples, rate, SampleRate), nil
}

// decodeOpus treats the clip as a single opus packet at the wire format.
func decodeOpus(clip []byte) ([]float32, error) {
	if len(clip) == 0 {
		return nil, errors.New(errors.CodeDecodeFailed, "empty clip")
	}
	dec, err := gopus.NewDecoder(SampleRate, channels)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDecodeFailed, "create opus decoder")
	}
	pcm, err := dec.Decode(clip, opusMaxFrame, false)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDecodeFailed, "opus decode")
	}
	samples := make([]float32, len(pcm))
	for i, s := range pcm {
		samples[i] = float32(s) / 0x7fff
	}
	return samples, nil
}

// decodeRawPCM is the last-resort interpretation: 16-bit little-endian mono
// PCM at SampleRate, normalized to [-1, 1]. Only this path failing makes a
// clip undecodable.
func decodeRawPCM(clip []byte) ([]float32, error) {
	if len(clip) < 2 {
		return nil, errors.New(errors.CodeDecodeFailed, "clip too short for pcm16")
	}
	samples := make([]float32, len(clip)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(clip[i*2:]))) / 0x7fff
	}
	return samples, nil
}

// resample converts samples between rates with linear interpolation.
func resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}
	n := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if n == 0 {
		return nil
	}
	out := make([]float32, n)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		s0 := samples[idx]
		s1 := s0
		if idx+1 < len(samples) {
			s1 = samples[idx+1]
		}
		out[i] = float32(float64(s0)*(1-frac) + float64(s1)*frac)
	}
	return out
}
