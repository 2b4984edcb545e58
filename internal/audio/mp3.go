package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	shine "github.com/braheezy/shine-mp3/pkg/mp3"
	gomp3 "github.com/hajimehoshi/go-mp3"
)

// mp3GranuleSize is the number of samples per channel in an MP3 Layer III
// granule; encoders consume input in whole granules.
const mp3GranuleSize = 1152

// DecodeMP3 decodes an MP3 blob into interleaved PCM-16 samples. go-mp3
// always produces 16-bit stereo at the source sample rate.
func DecodeMP3(data []byte) (samples []int16, channels int, sampleRate int, err error) {
	decoder, err := gomp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to create MP3 decoder: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode MP3 data: %w", err)
	}

	numSamples := len(pcm) / 2 // 2 bytes per sample, channels interleaved
	if numSamples <= 0 {
		return nil, 0, 0, fmt.Errorf("no audio data found in MP3")
	}

	samples = make([]int16, numSamples)
	for i := 0; i < numSamples; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
	}

	return samples, 2, decoder.SampleRate(), nil
}

// EncodeMP3 encodes mono PCM-16 samples into an MP3 blob using the shine
// encoder. Input is zero-padded to a whole number of granules, which adds
// at most 72 ms of trailing silence at 16 kHz.
func EncodeMP3(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio samples")
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	padded := samples
	if rem := len(samples) % mp3GranuleSize; rem != 0 {
		padded = make([]int16, len(samples)+mp3GranuleSize-rem)
		copy(padded, samples)
	}

	encoder := shine.NewEncoder(sampleRate, 1)

	var buf bytes.Buffer
	if err := encoder.Write(&buf, padded); err != nil {
		return nil, fmt.Errorf("failed to encode MP3 data: %w", err)
	}

	if buf.Len() == 0 {
		return nil, fmt.Errorf("MP3 encoder produced no output")
	}

	return buf.Bytes(), nil
}
