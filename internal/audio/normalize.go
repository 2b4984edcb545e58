package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrInvalidAudio indicates an empty, oversized, or undecodable audio blob.
var ErrInvalidAudio = errors.New("invalid audio")

// Normalizer decodes uploaded audio blobs into the canonical mono waveform
// the translation model expects. It is stateless and safe for concurrent
// use; it never writes to disk.
type Normalizer struct {
	targetRate int
	logger     *slog.Logger
}

// NewNormalizer creates a normalizer producing waveforms at targetRate Hz.
func NewNormalizer(targetRate int, logger *slog.Logger) *Normalizer {
	return &Normalizer{
		targetRate: targetRate,
		logger:     logger,
	}
}

// TargetRate returns the canonical output sample rate.
func (n *Normalizer) TargetRate() int {
	return n.targetRate
}

// Normalize decodes the blob, downmixes to mono, resamples to the target
// rate, and clamps samples to [-1, 1].
func (n *Normalizer) Normalize(blob Blob) (Waveform, error) {
	if len(blob.Data) == 0 {
		return Waveform{}, fmt.Errorf("%w: empty blob", ErrInvalidAudio)
	}

	var (
		samples  []int16
		channels int
		rate     int
		err      error
	)

	switch sniffFormat(blob.Data, blob.ContentType) {
	case formatWAV:
		samples, channels, rate, err = DecodeWAV(blob.Data)
	case formatMP3:
		samples, channels, rate, err = DecodeMP3(blob.Data)
	default:
		return Waveform{}, fmt.Errorf("%w: unrecognized container (content type %q)", ErrInvalidAudio, blob.ContentType)
	}

	if err != nil {
		return Waveform{}, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}

	mono := downmixToMono(samples, channels)
	if len(mono) == 0 {
		return Waveform{}, fmt.Errorf("%w: no samples after decoding", ErrInvalidAudio)
	}

	if rate != n.targetRate {
		n.logger.Debug("Resampling input audio",
			slog.Int("source_rate", rate),
			slog.Int("target_rate", n.targetRate),
			slog.Int("source_samples", len(mono)),
		)
		mono = resampleLinear(mono, rate, n.targetRate)
	}

	clampInPlace(mono)

	return Waveform{Samples: mono, SampleRate: n.targetRate}, nil
}

type containerFormat int

const (
	formatUnknown containerFormat = iota
	formatWAV
	formatMP3
)

// sniffFormat identifies the container from magic bytes, falling back to
// the caller-declared content type. Browsers are inconsistent about the
// content type of recorded blobs, so the bytes win.
func sniffFormat(data []byte, contentType string) containerFormat {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE" {
		return formatWAV
	}

	if len(data) >= 3 && string(data[0:3]) == "ID3" {
		return formatMP3
	}

	// Raw MPEG frame sync: 11 set bits.
	if len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return formatMP3
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "wav"):
		return formatWAV
	case strings.Contains(ct, "mpeg"), strings.Contains(ct, "mp3"):
		return formatMP3
	}

	return formatUnknown
}

// downmixToMono converts interleaved PCM-16 samples to mono float32 by
// averaging channels frame by frame.
func downmixToMono(samples []int16, channels int) []float32 {
	if channels <= 0 {
		return nil
	}

	frames := len(samples) / channels
	mono := make([]float32, frames)

	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += float32(samples[i*channels+ch])
		}
		mono[i] = sum / float32(channels) / 32768.0
	}

	return mono
}

// resampleLinear converts between sample rates by linear interpolation.
// It is deterministic and never amplifies the signal, so the [-1, 1]
// range is preserved.
func resampleLinear(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(srcRate) / float64(dstRate)
	newLen := int(float64(len(samples)) / ratio)
	if newLen < 1 {
		newLen = 1
	}

	resampled := make([]float32, newLen)
	for i := 0; i < newLen; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))

		if srcIdx+1 < len(samples) {
			resampled[i] = samples[srcIdx]*(1-frac) + samples[srcIdx+1]*frac
		} else if srcIdx < len(samples) {
			resampled[i] = samples[srcIdx]
		}
	}

	return resampled
}

// clampInPlace bounds every sample to the valid [-1, 1] float range.
func clampInPlace(samples []float32) {
	for i, s := range samples {
		if s > 1.0 {
			samples[i] = 1.0
		} else if s < -1.0 {
			samples[i] = -1.0
		}
	}
}
