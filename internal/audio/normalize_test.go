package audio

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalizeWAVPassThrough(t *testing.T) {
	n := NewNormalizer(16000, testLogger())

	samples := makeSine(16000, 0.25, 440.0)
	wavData, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	wf, err := n.Normalize(Blob{Data: wavData, ContentType: "audio/wav"})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if wf.SampleRate != 16000 {
		t.Errorf("Expected 16000 Hz, got %d", wf.SampleRate)
	}

	if len(wf.Samples) != len(samples) {
		t.Errorf("Expected %d samples, got %d", len(samples), len(wf.Samples))
	}

	for _, s := range wf.Samples {
		if s < -1.0 || s > 1.0 {
			t.Fatalf("Sample %f outside [-1, 1]", s)
		}
	}
}

func TestNormalizeDownmixesStereo(t *testing.T) {
	n := NewNormalizer(16000, testLogger())

	// Left channel at +8000, right at -8000: the average is silence.
	pcm := make([]int16, 400)
	for i := 0; i < len(pcm); i += 2 {
		pcm[i] = 8000
		pcm[i+1] = -8000
	}
	data := buildWAV(t, 2, 16000, false, pcm)

	wf, err := n.Normalize(Blob{Data: data, ContentType: "audio/wav"})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if len(wf.Samples) != 200 {
		t.Fatalf("Expected 200 mono frames, got %d", len(wf.Samples))
	}

	for i, s := range wf.Samples {
		if math.Abs(float64(s)) > 1e-6 {
			t.Fatalf("Frame %d: expected silence after downmix, got %f", i, s)
		}
	}
}

func TestNormalizeResamples(t *testing.T) {
	n := NewNormalizer(16000, testLogger())

	// One second at 8kHz should become roughly one second at 16kHz.
	samples := makeSine(8000, 1.0, 200.0)
	wavData, err := EncodeWAV(samples, 8000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	wf, err := n.Normalize(Blob{Data: wavData, ContentType: "audio/wav"})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if wf.SampleRate != 16000 {
		t.Errorf("Expected 16000 Hz, got %d", wf.SampleRate)
	}

	expected := 16000
	if diff := len(wf.Samples) - expected; diff < -2 || diff > 2 {
		t.Errorf("Expected ~%d samples after resampling, got %d", expected, len(wf.Samples))
	}

	if math.Abs(wf.Duration().Seconds()-1.0) > 0.01 {
		t.Errorf("Expected ~1s duration, got %v", wf.Duration())
	}
}

func TestNormalizeRejectsEmptyBlob(t *testing.T) {
	n := NewNormalizer(16000, testLogger())

	_, err := n.Normalize(Blob{Data: nil, ContentType: "audio/wav"})
	if !errors.Is(err, ErrInvalidAudio) {
		t.Errorf("Expected ErrInvalidAudio for empty blob, got %v", err)
	}
}

func TestNormalizeRejectsCorruptBlob(t *testing.T) {
	n := NewNormalizer(16000, testLogger())

	corrupt := []byte("RIFFgarbageWAVEgarbagegarbagegarbage")
	_, err := n.Normalize(Blob{Data: corrupt, ContentType: "audio/wav"})
	if !errors.Is(err, ErrInvalidAudio) {
		t.Errorf("Expected ErrInvalidAudio for corrupt blob, got %v", err)
	}
}

func TestNormalizeRejectsUnknownContainer(t *testing.T) {
	n := NewNormalizer(16000, testLogger())

	_, err := n.Normalize(Blob{Data: []byte("not audio at all"), ContentType: "text/plain"})
	if !errors.Is(err, ErrInvalidAudio) {
		t.Errorf("Expected ErrInvalidAudio for unknown container, got %v", err)
	}
}

func TestSniffFormat(t *testing.T) {
	wavData, err := EncodeWAV([]int16{1, 2, 3}, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	tests := []struct {
		name        string
		data        []byte
		contentType string
		expected    containerFormat
	}{
		{name: "wav magic", data: wavData, contentType: "", expected: formatWAV},
		{name: "id3 tag", data: []byte("ID3\x04\x00rest"), contentType: "", expected: formatMP3},
		{name: "mpeg frame sync", data: []byte{0xFF, 0xFB, 0x90, 0x00}, contentType: "", expected: formatMP3},
		{name: "content type fallback wav", data: []byte{0, 0, 0, 0}, contentType: "audio/x-wav", expected: formatWAV},
		{name: "content type fallback mp3", data: []byte{0, 0, 0, 0}, contentType: "audio/mpeg", expected: formatMP3},
		{name: "unknown", data: []byte{0, 0, 0, 0}, contentType: "application/octet-stream", expected: formatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sniffFormat(tt.data, tt.contentType); got != tt.expected {
				t.Errorf("sniffFormat: expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestResampleLinearIdentity(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := resampleLinear(in, 16000, 16000)

	if len(out) != len(in) {
		t.Fatalf("Identity resample changed length: %d -> %d", len(in), len(out))
	}
}

func TestClampInPlace(t *testing.T) {
	samples := []float32{-2.0, -1.0, 0.0, 0.5, 1.5}
	clampInPlace(samples)

	expected := []float32{-1.0, -1.0, 0.0, 0.5, 1.0}
	for i := range expected {
		if samples[i] != expected[i] {
			t.Errorf("Sample %d: expected %f, got %f", i, expected[i], samples[i])
		}
	}
}
