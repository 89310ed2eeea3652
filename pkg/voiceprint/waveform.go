package voiceprint

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Prepare validates raw samples and returns a Waveform suitable for
// extraction.
//
// Empty input and input containing NaN or ±Inf are rejected with
// ErrInvalidAudio. Input shorter than MinSamples is right-padded with
// zeros to exactly MinSamples; longer input is returned as a copy,
// unchanged.
func Prepare(raw []float32) (Waveform, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty sample buffer", ErrInvalidAudio)
	}
	for i, s := range raw {
		f := float64(s)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: non-finite sample at index %d", ErrInvalidAudio, i)
		}
	}

	n := max(len(raw), MinSamples)
	w := make(Waveform, n)
	copy(w, raw)
	return w, nil
}

// DecodeFloat32LE converts a little-endian float32 byte buffer into samples.
// This is the wire format of enrollment and verification recordings.
func DecodeFloat32LE(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: float32 buffer length %d is not a multiple of 4", ErrInvalidAudio, len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, nil
}

// EncodeFloat32LE is the inverse of DecodeFloat32LE.
func EncodeFloat32LE(samples []float32) []byte {
	out := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(s))
	}
	return out
}

// DecodePCM16LE converts PCM16 signed little-endian audio into float32
// samples in [-1, 1).
func DecodePCM16LE(b []byte) ([]float32, error) {
	if len(b)%2 != 0 {
		return nil, fmt.Errorf("%w: pcm16 buffer length %d is odd", ErrInvalidAudio, len(b))
	}
	out := make([]float32, len(b)/2)
	for i := range out {
		s := int16(b[2*i]) | int16(b[2*i+1])<<8
		out[i] = float32(s) / 32768
	}
	return out, nil
}
