// Package audio handles audio container decoding/encoding and waveform
// normalization. It decodes uploaded WAV/MP3 blobs into PCM samples,
// downmixes and resamples them into the canonical mono waveform the
// translation model expects, and encodes output waveforms back into
// playable containers.
package audio
