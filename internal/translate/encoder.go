package translate

import (
	"fmt"

	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/audio"
)

// Encoder turns a synthesized waveform into a playable container.
type Encoder interface {
	// Encode serializes the waveform. The returned blob carries the
	// container's content type.
	Encode(wf audio.Waveform) (audio.Blob, error)

	// Format returns the short container name ("wav", "mp3").
	Format() string
}

// NewEncoder returns the encoder for a configured output format.
func NewEncoder(format string) (Encoder, error) {
	switch format {
	case "wav", "":
		return WAVEncoder{}, nil
	case "mp3":
		return MP3Encoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// WAVEncoder writes 16-bit mono PCM WAV, the default response container.
type WAVEncoder struct{}

func (WAVEncoder) Format() string { return "wav" }

func (WAVEncoder) Encode(wf audio.Waveform) (audio.Blob, error) {
	data, err := audio.EncodeWAV(quantizePCM16(wf.Samples), wf.SampleRate)
	if err != nil {
		return audio.Blob{}, err
	}
	return audio.Blob{Data: data, ContentType: "audio/wav"}, nil
}

// MP3Encoder writes mono MP3 for callers that prefer a compressed response.
type MP3Encoder struct{}

func (MP3Encoder) Format() string { return "mp3" }

func (MP3Encoder) Encode(wf audio.Waveform) (audio.Blob, error) {
	data, err := audio.EncodeMP3(quantizePCM16(wf.Samples), wf.SampleRate)
	if err != nil {
		return audio.Blob{}, err
	}
	return audio.Blob{Data: data, ContentType: "audio/mpeg"}, nil
}

// quantizePCM16 converts [-1, 1] float samples to 16-bit PCM, clamping any
// value the model pushed out of range.
func quantizePCM16(samples []float32) []int16 {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		pcm[i] = int16(s * 32767)
	}
	return pcm
}
