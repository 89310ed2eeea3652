package voiceprint

import (
	"errors"
	"math"
	"testing"
)

func TestPrepareIdentity(t *testing.T) {
	for _, n := range []int{3, 4, 100, 16000} {
		raw := make([]float32, n)
		for i := range raw {
			raw[i] = float32(math.Sin(float64(i) * 0.01))
		}
		w, err := Prepare(raw)
		if err != nil {
			t.Fatalf("Prepare(len=%d): %v", n, err)
		}
		if len(w) != n {
			t.Fatalf("len = %d, want %d", len(w), n)
		}
		for i := range raw {
			if w[i] != raw[i] {
				t.Fatalf("w[%d] = %v, want %v", i, w[i], raw[i])
			}
		}
	}
}

func TestPreparePadsShortInput(t *testing.T) {
	for _, raw := range [][]float32{{0.5}, {0.5, -0.25}} {
		w, err := Prepare(raw)
		if err != nil {
			t.Fatalf("Prepare(%v): %v", raw, err)
		}
		if len(w) != MinSamples {
			t.Fatalf("len = %d, want %d", len(w), MinSamples)
		}
		for i := range raw {
			if w[i] != raw[i] {
				t.Errorf("w[%d] = %v, want %v", i, w[i], raw[i])
			}
		}
		for i := len(raw); i < MinSamples; i++ {
			if w[i] != 0 {
				t.Errorf("w[%d] = %v, want 0", i, w[i])
			}
		}
	}
}

func TestPrepareDoesNotAlias(t *testing.T) {
	raw := []float32{1, 2, 3, 4}
	w, err := Prepare(raw)
	if err != nil {
		t.Fatal(err)
	}
	w[0] = 42
	if raw[0] != 1 {
		t.Fatalf("Prepare aliased its input: raw[0] = %v", raw[0])
	}
}

func TestPrepareRejectsInvalid(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	cases := map[string][]float32{
		"empty": {},
		"nil":   nil,
		"nan":   {0, nan, 0, 0},
		"inf":   {inf},
		"-inf":  {0, 0, 0, -inf},
	}
	for name, raw := range cases {
		if _, err := Prepare(raw); !errors.Is(err, ErrInvalidAudio) {
			t.Errorf("%s: err = %v, want ErrInvalidAudio", name, err)
		}
	}
}

func TestFloat32LERoundTrip(t *testing.T) {
	samples := []float32{0, 1, -1, 0.5, -0.125, 3.25e-5}
	got, err := DecodeFloat32LE(EncodeFloat32LE(samples))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(samples) {
		t.Fatalf("len = %d, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], samples[i])
		}
	}
}

func TestDecodeFloat32LEBadLength(t *testing.T) {
	if _, err := DecodeFloat32LE([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidAudio) {
		t.Fatalf("err = %v, want ErrInvalidAudio", err)
	}
}

func TestDecodePCM16LE(t *testing.T) {
	// 0x4000 = 16384 → 0.5, 0xC000 = -16384 → -0.5, 0x8000 → -1.
	got, err := DecodePCM16LE([]byte{0x00, 0x40, 0x00, 0xC0, 0x00, 0x80})
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{0.5, -0.5, -1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if _, err := DecodePCM16LE([]byte{1}); !errors.Is(err, ErrInvalidAudio) {
		t.Fatalf("odd length: err = %v, want ErrInvalidAudio", err)
	}
}

func TestWaveformDuration(t *testing.T) {
	w := make(Waveform, SampleRate/2)
	if d := w.Duration(); d.Milliseconds() != 500 {
		t.Fatalf("Duration = %v, want 500ms", d)
	}
}
