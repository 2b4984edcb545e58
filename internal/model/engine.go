package model

import (
	"errors"
	"log/slog"

	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/language"
)

// ErrUnavailable indicates the model is not loaded yet or its last load
// attempt failed. Callers may retry by resubmitting.
var ErrUnavailable = errors.New("translation model unavailable")

// ErrInference indicates the loaded model failed to produce output, e.g.
// resource exhaustion or an internal numeric fault.
var ErrInference = errors.New("inference failure")

// Engine is a loaded speech-to-speech translation model. Implementations
// are NOT safe for concurrent Translate calls; the Manager serializes
// access.
type Engine interface {
	// Translate runs a single forward pass over a mono waveform at the
	// engine's sample rate and returns the translated waveform at the same
	// rate. Decoding is deterministic and single-best-hypothesis.
	Translate(samples []float32, src, tgt language.Code) ([]float32, error)

	// SampleRate returns the fixed input/output sample rate in Hz.
	SampleRate() int

	// Device returns the compute device the engine was loaded on.
	Device() string

	// Precision returns the numeric precision locked in at load time.
	Precision() string

	// Close releases model resources.
	Close() error
}

// EngineFactory constructs an Engine from the model configuration. The
// Manager takes a factory rather than an Engine so tests can substitute a
// lightweight model.
type EngineFactory func(cfg Config, logger *slog.Logger) (Engine, error)

// Config contains the model manager configuration.
type Config struct {
	Dir          string // directory holding the exported model files
	Device       string // "auto", "cuda", or "cpu"
	SampleRate   int    // canonical waveform rate, fixed by the model export
	MaxNewTokens int    // greedy decoding length cap
	LibraryPath  string // onnxruntime shared library; empty means search
}
