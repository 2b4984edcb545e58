package model

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/audio"
	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/language"
	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/metrics"
)

// State is the model lifecycle state.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateReady    State = "ready"
)

// Manager owns the translation model lifecycle and serializes access to it.
// The model loads lazily on the first Translate call (or eagerly via
// Warmup); a failed load reverts to StateUnloaded so a later call retries.
// Device and precision are resolved once at load and never renegotiated.
type Manager struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	factory EngineFactory

	// mu guards lifecycle state and the engine pointer.
	mu     sync.Mutex
	state  State
	engine Engine

	// inferMu serializes inference: the underlying model tolerates exactly
	// one in-flight call. Under contention Go's mutex hands the lock to
	// waiters in arrival order, which gives FIFO service.
	inferMu sync.Mutex

	// statsMu guards the counters below.
	statsMu       sync.RWMutex
	totalRequests uint64
	totalFailures uint64
	lastInference time.Duration
	lastQueueWait time.Duration
	loadDuration  time.Duration
}

// ManagerStats is a point-in-time snapshot for health and stats endpoints.
type ManagerStats struct {
	State          State         `json:"state"`
	Device         string        `json:"device,omitempty"`
	Precision      string        `json:"precision,omitempty"`
	TotalRequests  uint64        `json:"total_requests"`
	TotalFailures  uint64        `json:"total_failures"`
	LastInference  time.Duration `json:"last_inference"`
	LastQueueWait  time.Duration `json:"last_queue_wait"`
	LoadDuration   time.Duration `json:"load_duration"`
}

// NewManager creates a manager that builds its engine through factory. Pass
// NewONNXEngine in production; tests inject lightweight fakes. Lifecycle
// metrics are recorded here so lazy loads count the same as warm-up loads;
// m may be nil.
func NewManager(cfg Config, logger *slog.Logger, m *metrics.Metrics, factory EngineFactory) *Manager {
	return &Manager{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		factory: factory,
		state:   StateUnloaded,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Ready reports whether the model is loaded and serving.
func (m *Manager) Ready() bool {
	return m.State() == StateReady
}

// SampleRate returns the canonical waveform rate the model expects.
func (m *Manager) SampleRate() int {
	return m.cfg.SampleRate
}

// Warmup loads the model eagerly so the first request does not pay the
// load cost. Safe to skip: the lazy path remains.
func (m *Manager) Warmup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.ensureLoaded()
	return err
}

// ensureLoaded transitions Unloaded -> Loading -> Ready on the first call.
// Callers arriving while another goroutine is loading get ErrUnavailable
// immediately rather than queueing behind a multi-second load.
func (m *Manager) ensureLoaded() (Engine, error) {
	m.mu.Lock()
	switch m.state {
	case StateReady:
		engine := m.engine
		m.mu.Unlock()
		return engine, nil
	case StateLoading:
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: model is still loading", ErrUnavailable)
	}
	m.state = StateLoading
	m.mu.Unlock()

	m.logger.Info("Loading translation model",
		slog.String("dir", m.cfg.Dir),
		slog.String("device", m.cfg.Device),
	)

	start := time.Now()
	engine, err := m.factory(m.cfg, m.logger)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		// Terminal for this attempt; the next call retries from Unloaded.
		m.state = StateUnloaded
		if m.metrics != nil {
			m.metrics.RecordModelLoad(time.Since(start).Seconds(), false)
		}
		m.logger.Error("Model load failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	loadDuration := time.Since(start)
	m.engine = engine
	m.state = StateReady

	m.statsMu.Lock()
	m.loadDuration = loadDuration
	m.statsMu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordModelLoad(loadDuration.Seconds(), true)
		m.metrics.SetModelReady(true)
	}

	m.logger.Info("Translation model ready",
		slog.Duration("load_duration", loadDuration),
		slog.String("device", engine.Device()),
		slog.String("precision", engine.Precision()),
	)

	return engine, nil
}

// Translate runs one serialized inference over a normalized waveform.
// Translating a language to itself is valid and runs full inference, the
// same as any other pair. Once inference starts it runs to completion;
// there are no internal retries.
func (m *Manager) Translate(ctx context.Context, wf audio.Waveform, src, tgt language.Code) (audio.Waveform, error) {
	// Validate the pair before touching the model or its lock.
	if err := language.ValidatePair(src, tgt); err != nil {
		return audio.Waveform{}, err
	}

	if wf.Empty() {
		return audio.Waveform{}, fmt.Errorf("%w: empty waveform", ErrInference)
	}

	if wf.SampleRate != m.cfg.SampleRate {
		return audio.Waveform{}, fmt.Errorf("%w: waveform rate %d does not match model rate %d",
			ErrInference, wf.SampleRate, m.cfg.SampleRate)
	}

	engine, err := m.ensureLoaded()
	if err != nil {
		return audio.Waveform{}, err
	}

	queueStart := time.Now()
	m.inferMu.Lock()
	defer m.inferMu.Unlock()
	queueWait := time.Since(queueStart)

	// A caller that gave up while queued is not worth an inference slot,
	// but an in-flight inference is never interrupted.
	if err := ctx.Err(); err != nil {
		return audio.Waveform{}, fmt.Errorf("request abandoned before inference: %w", err)
	}

	inferStart := time.Now()
	out, err := engine.Translate(wf.Samples, src, tgt)
	elapsed := time.Since(inferStart)

	m.statsMu.Lock()
	m.totalRequests++
	m.lastQueueWait = queueWait
	if err != nil || len(out) == 0 {
		m.totalFailures++
	} else {
		m.lastInference = elapsed
	}
	m.statsMu.Unlock()

	if err != nil {
		return audio.Waveform{}, fmt.Errorf("%w: %v", ErrInference, err)
	}

	if len(out) == 0 {
		return audio.Waveform{}, fmt.Errorf("%w: model produced empty audio", ErrInference)
	}

	m.logger.Debug("Inference complete",
		slog.String("src", src.String()),
		slog.String("tgt", tgt.String()),
		slog.Duration("queue_wait", queueWait),
		slog.Duration("inference", elapsed),
		slog.Int("output_samples", len(out)),
	)

	return audio.Waveform{Samples: out, SampleRate: m.cfg.SampleRate}, nil
}

// Stats returns a snapshot of lifecycle and usage counters.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	state := m.state
	engine := m.engine
	m.mu.Unlock()

	stats := ManagerStats{State: state}
	if engine != nil {
		stats.Device = engine.Device()
		stats.Precision = engine.Precision()
	}

	m.statsMu.RLock()
	stats.TotalRequests = m.totalRequests
	stats.TotalFailures = m.totalFailures
	stats.LastInference = m.lastInference
	stats.LastQueueWait = m.lastQueueWait
	stats.LoadDuration = m.loadDuration
	m.statsMu.RUnlock()

	return stats
}

// Close releases the engine if one was loaded.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine != nil {
		err := m.engine.Close()
		m.engine = nil
		m.state = StateUnloaded
		if m.metrics != nil {
			m.metrics.SetModelReady(false)
		}
		return err
	}

	return nil
}
