package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// WAVHeader represents the canonical 44-byte header written for mono PCM-16
// output. Decoding does not rely on this fixed layout; see DecodeWAV.
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// EncodeWAV encodes mono PCM-16 samples into WAV format.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio samples")
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	numChannels := uint16(1)             // Mono
	bitsPerSample := uint16(16)          // 16-bit PCM
	dataSize := uint32(len(samples) * 2) // 2 bytes per sample
	fileSize := 36 + dataSize            // Header is 44 bytes, data starts at offset 44

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     fileSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(samples)*2))

	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeWAV decodes WAV data into interleaved PCM-16 samples. It accepts
// any channel count and sample rate, and walks the RIFF chunk list instead
// of assuming a fixed 44-byte layout: browser recorders routinely insert
// LIST/fact chunks between "fmt " and "data".
func DecodeWAV(data []byte) (samples []int16, channels int, sampleRate int, err error) {
	if len(data) < 12 {
		return nil, 0, 0, fmt.Errorf("WAV data too short: need at least 12 bytes, got %d", len(data))
	}

	if string(data[0:4]) != "RIFF" {
		return nil, 0, 0, fmt.Errorf("invalid WAV file: missing RIFF header")
	}

	if string(data[8:12]) != "WAVE" {
		return nil, 0, 0, fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	var (
		fmtFound      bool
		audioFormat   uint16
		numChannels   uint16
		rate          uint32
		bitsPerSample uint16
		pcmData       []byte
	)

	// Walk the chunk list. Each chunk is id(4) + size(4) + payload, with
	// payloads padded to even length.
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		if chunkSize < 0 || body+chunkSize > len(data) {
			// Some recorders stream the data chunk and leave an inflated
			// size field behind; take the bytes actually present.
			if chunkID == "data" && body < len(data) {
				chunkSize = len(data) - body
			} else {
				return nil, 0, 0, fmt.Errorf("invalid WAV file: chunk %q exceeds file size", chunkID)
			}
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, 0, fmt.Errorf("invalid WAV file: fmt chunk too short (%d bytes)", chunkSize)
			}
			audioFormat = binary.LittleEndian.Uint16(data[body : body+2])
			numChannels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			rate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			bitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			fmtFound = true
		case "data":
			pcmData = data[body : body+chunkSize]
		}

		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++ // pad byte
		}
	}

	if !fmtFound {
		return nil, 0, 0, fmt.Errorf("invalid WAV file: missing fmt chunk")
	}

	if pcmData == nil {
		return nil, 0, 0, fmt.Errorf("invalid WAV file: missing data chunk")
	}

	if audioFormat != 1 {
		return nil, 0, 0, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", audioFormat)
	}

	if bitsPerSample != 16 {
		return nil, 0, 0, fmt.Errorf("unsupported bit depth: %d (only 16-bit is supported)", bitsPerSample)
	}

	if numChannels < 1 {
		return nil, 0, 0, fmt.Errorf("invalid channel count: %d", numChannels)
	}

	if rate == 0 {
		return nil, 0, 0, fmt.Errorf("invalid sample rate: 0")
	}

	numSamples := len(pcmData) / 2 // 2 bytes per sample
	if numSamples <= 0 {
		return nil, 0, 0, fmt.Errorf("no audio data found")
	}

	samples = make([]int16, numSamples)
	if err := binary.Read(bytes.NewReader(pcmData[:numSamples*2]), binary.LittleEndian, samples); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read audio samples: %w", err)
	}

	return samples, int(numChannels), int(rate), nil
}

// WAVInfo carries basic metadata about a WAV file.
type WAVInfo struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Duration   float64 `json:"duration_seconds"`
	NumSamples int     `json:"num_samples"` // per channel
}

// GetWAVInfo extracts metadata from a WAV file.
func GetWAVInfo(data []byte) (*WAVInfo, error) {
	samples, channels, sampleRate, err := DecodeWAV(data)
	if err != nil {
		return nil, err
	}

	perChannel := len(samples) / channels
	return &WAVInfo{
		SampleRate: sampleRate,
		Channels:   channels,
		Duration:   float64(perChannel) / float64(sampleRate),
		NumSamples: perChannel,
	}, nil
}
