package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/audio"
	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/language"
	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		Dir:          "./models",
		Device:       "cpu",
		SampleRate:   16000,
		MaxNewTokens: 256,
	}
}

// fakeEngine is a lightweight engine double. It asserts that Translate is
// never invoked reentrantly and counts invocations.
type fakeEngine struct {
	sampleRate   int
	delay        time.Duration
	translateErr error
	emptyOutput  bool

	calls    atomic.Int64
	inFlight atomic.Int32
	overlaps atomic.Int64
	closed   atomic.Bool
}

func (f *fakeEngine) Translate(samples []float32, src, tgt language.Code) ([]float32, error) {
	if f.inFlight.Add(1) > 1 {
		f.overlaps.Add(1)
	}
	defer f.inFlight.Add(-1)

	f.calls.Add(1)

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	if f.translateErr != nil {
		return nil, f.translateErr
	}

	if f.emptyOutput {
		return []float32{}, nil
	}

	out := make([]float32, len(samples))
	copy(out, samples)
	return out, nil
}

func (f *fakeEngine) SampleRate() int   { return f.sampleRate }
func (f *fakeEngine) Device() string    { return "cpu" }
func (f *fakeEngine) Precision() string { return "fp32" }
func (f *fakeEngine) Close() error {
	f.closed.Store(true)
	return nil
}

func fakeFactory(engine *fakeEngine) EngineFactory {
	return func(cfg Config, logger *slog.Logger) (Engine, error) {
		return engine, nil
	}
}

func testWaveform(n int) audio.Waveform {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.1
	}
	return audio.Waveform{Samples: samples, SampleRate: 16000}
}

func TestManagerLazyLoad(t *testing.T) {
	engine := &fakeEngine{sampleRate: 16000}
	m := NewManager(testConfig(), testLogger(), nil, fakeFactory(engine))

	if m.State() != StateUnloaded {
		t.Fatalf("expected initial state unloaded, got %s", m.State())
	}

	out, err := m.Translate(context.Background(), testWaveform(1600), language.English, language.Spanish)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if m.State() != StateReady {
		t.Errorf("expected state ready after first translate, got %s", m.State())
	}

	if out.Empty() {
		t.Error("expected non-empty output waveform")
	}

	if out.SampleRate != 16000 {
		t.Errorf("expected output at 16000 Hz, got %d", out.SampleRate)
	}

	// Second call reuses the loaded engine.
	if _, err := m.Translate(context.Background(), testWaveform(1600), language.English, language.French); err != nil {
		t.Fatalf("second Translate failed: %v", err)
	}

	if got := engine.calls.Load(); got != 2 {
		t.Errorf("expected 2 engine calls, got %d", got)
	}
}

func TestManagerWarmup(t *testing.T) {
	engine := &fakeEngine{sampleRate: 16000}
	m := NewManager(testConfig(), testLogger(), nil, fakeFactory(engine))

	if err := m.Warmup(context.Background()); err != nil {
		t.Fatalf("Warmup failed: %v", err)
	}

	if m.State() != StateReady {
		t.Errorf("expected state ready after warmup, got %s", m.State())
	}

	if got := engine.calls.Load(); got != 0 {
		t.Errorf("warmup should not run inference, got %d calls", got)
	}
}

func TestManagerLoadFailureIsRetryable(t *testing.T) {
	attempts := 0
	engine := &fakeEngine{sampleRate: 16000}
	factory := func(cfg Config, logger *slog.Logger) (Engine, error) {
		attempts++
		if attempts == 1 {
			return nil, fmt.Errorf("weights missing")
		}
		return engine, nil
	}

	m := NewManager(testConfig(), testLogger(), nil, factory)

	_, err := m.Translate(context.Background(), testWaveform(1600), language.English, language.Spanish)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on failed load, got %v", err)
	}

	// A failed attempt reverts to unloaded so the process keeps serving.
	if m.State() != StateUnloaded {
		t.Fatalf("expected state unloaded after failed load, got %s", m.State())
	}

	if _, err := m.Translate(context.Background(), testWaveform(1600), language.English, language.Spanish); err != nil {
		t.Fatalf("retry after failed load should succeed: %v", err)
	}

	if attempts != 2 {
		t.Errorf("expected 2 load attempts, got %d", attempts)
	}
}

func TestManagerUnsupportedPairBeforeLoad(t *testing.T) {
	loads := 0
	factory := func(cfg Config, logger *slog.Logger) (Engine, error) {
		loads++
		return &fakeEngine{sampleRate: 16000}, nil
	}

	m := NewManager(testConfig(), testLogger(), nil, factory)

	_, err := m.Translate(context.Background(), testWaveform(1600), language.English, language.Code("zzz"))
	if !errors.Is(err, language.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}

	if loads != 0 {
		t.Error("invalid language pair must be rejected before loading the model")
	}

	if m.State() != StateUnloaded {
		t.Errorf("expected state unloaded, got %s", m.State())
	}
}

func TestManagerIdentityPairRunsInference(t *testing.T) {
	engine := &fakeEngine{sampleRate: 16000}
	m := NewManager(testConfig(), testLogger(), nil, fakeFactory(engine))

	if _, err := m.Translate(context.Background(), testWaveform(1600), language.German, language.German); err != nil {
		t.Fatalf("identity pair should be valid: %v", err)
	}

	if got := engine.calls.Load(); got != 1 {
		t.Errorf("identity pair should run full inference, got %d calls", got)
	}
}

func TestManagerRejectsEmptyWaveform(t *testing.T) {
	engine := &fakeEngine{sampleRate: 16000}
	m := NewManager(testConfig(), testLogger(), nil, fakeFactory(engine))

	_, err := m.Translate(context.Background(), audio.Waveform{SampleRate: 16000}, language.English, language.Spanish)
	if !errors.Is(err, ErrInference) {
		t.Errorf("expected ErrInference for empty waveform, got %v", err)
	}
}

func TestManagerRejectsWrongSampleRate(t *testing.T) {
	engine := &fakeEngine{sampleRate: 16000}
	m := NewManager(testConfig(), testLogger(), nil, fakeFactory(engine))

	wf := audio.Waveform{Samples: []float32{0.1, 0.2}, SampleRate: 8000}
	if _, err := m.Translate(context.Background(), wf, language.English, language.Spanish); !errors.Is(err, ErrInference) {
		t.Errorf("expected ErrInference for rate mismatch, got %v", err)
	}
}

func TestManagerSurfacesInferenceFailure(t *testing.T) {
	engine := &fakeEngine{sampleRate: 16000, translateErr: fmt.Errorf("out of memory")}
	m := NewManager(testConfig(), testLogger(), nil, fakeFactory(engine))

	_, err := m.Translate(context.Background(), testWaveform(1600), language.English, language.Spanish)
	if !errors.Is(err, ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}

	// No internal retry: exactly one engine call.
	if got := engine.calls.Load(); got != 1 {
		t.Errorf("expected 1 engine call (no retries), got %d", got)
	}

	stats := m.Stats()
	if stats.TotalFailures != 1 {
		t.Errorf("expected 1 recorded failure, got %d", stats.TotalFailures)
	}
}

func TestManagerRejectsEmptyModelOutput(t *testing.T) {
	engine := &fakeEngine{sampleRate: 16000, emptyOutput: true}
	m := NewManager(testConfig(), testLogger(), nil, fakeFactory(engine))

	_, err := m.Translate(context.Background(), testWaveform(1600), language.English, language.Spanish)
	if !errors.Is(err, ErrInference) {
		t.Errorf("expected ErrInference for empty model output, got %v", err)
	}
}

func TestManagerSerializesInference(t *testing.T) {
	engine := &fakeEngine{sampleRate: 16000, delay: 5 * time.Millisecond}
	m := NewManager(testConfig(), testLogger(), nil, fakeFactory(engine))

	const workers = 16

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Translate(context.Background(), testWaveform(1600), language.English, language.Spanish)
			// The first worker triggers the load; others may race it and
			// see "still loading", which is a defined, retryable outcome.
			if err != nil && !errors.Is(err, ErrUnavailable) {
				t.Errorf("unexpected translate error: %v", err)
			}
		}()
	}
	wg.Wait()

	if overlaps := engine.overlaps.Load(); overlaps != 0 {
		t.Fatalf("observed %d overlapping inference calls; inference must be serialized", overlaps)
	}
}

func TestManagerStats(t *testing.T) {
	engine := &fakeEngine{sampleRate: 16000}
	m := NewManager(testConfig(), testLogger(), nil, fakeFactory(engine))

	stats := m.Stats()
	if stats.State != StateUnloaded {
		t.Errorf("expected unloaded state in stats, got %s", stats.State)
	}
	if stats.Device != "" {
		t.Errorf("expected no device before load, got %q", stats.Device)
	}

	if _, err := m.Translate(context.Background(), testWaveform(1600), language.English, language.Spanish); err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	stats = m.Stats()
	if stats.State != StateReady {
		t.Errorf("expected ready state in stats, got %s", stats.State)
	}
	if stats.Device != "cpu" || stats.Precision != "fp32" {
		t.Errorf("expected cpu/fp32 in stats, got %s/%s", stats.Device, stats.Precision)
	}
	if stats.TotalRequests != 1 {
		t.Errorf("expected 1 total request, got %d", stats.TotalRequests)
	}
}

func TestManagerRecordsLoadMetricsOnLazyLoad(t *testing.T) {
	appMetrics := metrics.NewMetrics()

	attempts := 0
	engine := &fakeEngine{sampleRate: 16000}
	factory := func(cfg Config, logger *slog.Logger) (Engine, error) {
		attempts++
		if attempts == 1 {
			return nil, fmt.Errorf("weights missing")
		}
		return engine, nil
	}

	m := NewManager(testConfig(), testLogger(), appMetrics, factory)

	// Failed lazy load: counted as an attempt and a failure, gauge stays down.
	if _, err := m.Translate(context.Background(), testWaveform(1600), language.English, language.Spanish); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on failed load, got %v", err)
	}
	if got := testutil.ToFloat64(appMetrics.ModelLoadAttempts); got != 1 {
		t.Errorf("expected 1 load attempt after failed load, got %v", got)
	}
	if got := testutil.ToFloat64(appMetrics.ModelLoadFailures); got != 1 {
		t.Errorf("expected 1 load failure, got %v", got)
	}
	if got := testutil.ToFloat64(appMetrics.ModelReady); got != 0 {
		t.Errorf("expected ready gauge 0 after failed load, got %v", got)
	}

	// Successful lazy load flips the gauge without any warm-up call.
	if _, err := m.Translate(context.Background(), testWaveform(1600), language.English, language.Spanish); err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if got := testutil.ToFloat64(appMetrics.ModelLoadAttempts); got != 2 {
		t.Errorf("expected 2 load attempts, got %v", got)
	}
	if got := testutil.ToFloat64(appMetrics.ModelLoadFailures); got != 1 {
		t.Errorf("expected failures unchanged at 1, got %v", got)
	}
	if got := testutil.ToFloat64(appMetrics.ModelReady); got != 1 {
		t.Errorf("expected ready gauge 1 after lazy load, got %v", got)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if got := testutil.ToFloat64(appMetrics.ModelReady); got != 0 {
		t.Errorf("expected ready gauge 0 after close, got %v", got)
	}
}

func TestManagerClose(t *testing.T) {
	engine := &fakeEngine{sampleRate: 16000}
	m := NewManager(testConfig(), testLogger(), nil, fakeFactory(engine))

	if err := m.Warmup(context.Background()); err != nil {
		t.Fatalf("Warmup failed: %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if !engine.closed.Load() {
		t.Error("engine was not closed")
	}

	if m.State() != StateUnloaded {
		t.Errorf("expected unloaded after close, got %s", m.State())
	}
}
