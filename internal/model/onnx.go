package model

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/language"
)

// langTokenIDs maps supported language codes to the vocabulary token IDs
// baked into the exported model. The IDs come from the export manifest and
// must stay in sync with it.
var langTokenIDs = map[language.Code]int64{
	language.English:    256047,
	language.Spanish:    256163,
	language.French:     256057,
	language.German:     256042,
	language.Italian:    256082,
	language.Portuguese: 256145,
	language.Russian:    256147,
	language.Mandarin:   256200,
	language.Japanese:   256085,
	language.Korean:     256098,
	language.Arabic:     256011,
	language.Hindi:      256067,
}

// Model graph input/output names, fixed by the export.
var (
	onnxInputNames  = []string{"features", "src_lang", "tgt_lang", "max_len"}
	onnxOutputNames = []string{"waveform"}
)

// ONNXEngine runs the exported speech-to-speech translation model through
// onnxruntime. A single session instance is not safe for concurrent Run
// calls; the Manager serializes access.
type ONNXEngine struct {
	session  *ort.DynamicAdvancedSession
	frontEnd *melFrontEnd
	policy   DevicePolicy
	cfg      Config
	logger   *slog.Logger
}

// onnxruntime environment is process-global and initialized once.
var (
	onnxInitialized bool
	onnxInitMu      sync.Mutex
)

func initONNXRuntime(libraryPath string, logger *slog.Logger) error {
	onnxInitMu.Lock()
	defer onnxInitMu.Unlock()

	if onnxInitialized {
		return nil
	}

	libPath := libraryPath
	if libPath == "" {
		libPath = os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")
	}

	if libPath == "" {
		searchPaths := []string{
			"./libonnxruntime.so",
			"./libonnxruntime.dylib",
			"/usr/local/lib/libonnxruntime.so",
			"/usr/lib/libonnxruntime.so",
		}

		for _, path := range searchPaths {
			if _, err := os.Stat(path); err == nil {
				libPath = path
				break
			}
		}
	}

	if libPath == "" {
		return fmt.Errorf("onnxruntime shared library not found; set model.library_path or ONNXRUNTIME_SHARED_LIBRARY_PATH")
	}

	logger.Info("Using ONNX Runtime library", slog.String("path", libPath))
	ort.SetSharedLibraryPath(libPath)

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}

	onnxInitialized = true
	return nil
}

// NewONNXEngine loads the translation model, resolving the compute device
// and precision once for the engine's lifetime. It is the production
// EngineFactory.
func NewONNXEngine(cfg Config, logger *slog.Logger) (Engine, error) {
	if err := initONNXRuntime(cfg.LibraryPath, logger); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	policy, err := resolveDevicePolicy(cfg.Device, options, logger)
	if err != nil {
		return nil, err
	}

	modelPath := filepath.Join(cfg.Dir, policy.ModelFile)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, onnxInputNames, onnxOutputNames, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	logger.Info("Translation model loaded",
		slog.String("model_path", modelPath),
		slog.String("device", policy.Device),
		slog.String("precision", policy.Precision),
	)

	return &ONNXEngine{
		session:  session,
		frontEnd: newMelFrontEnd(cfg.SampleRate),
		policy:   policy,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Translate runs one greedy, single-best-hypothesis forward pass. The
// decoding strategy is baked into the exported graph; max_len caps the
// generated length to keep latency bounded.
func (e *ONNXEngine) Translate(samples []float32, src, tgt language.Code) ([]float32, error) {
	srcID, ok := langTokenIDs[src]
	if !ok {
		return nil, fmt.Errorf("%w: %q", language.ErrUnsupported, src)
	}
	tgtID, ok := langTokenIDs[tgt]
	if !ok {
		return nil, fmt.Errorf("%w: %q", language.ErrUnsupported, tgt)
	}

	features, frames := e.frontEnd.Compute(samples)
	if frames == 0 {
		return nil, fmt.Errorf("audio shorter than one analysis window (%d samples)", e.frontEnd.winLength)
	}

	featShape := ort.NewShape(1, int64(frames), numMels)
	featTensor, err := ort.NewTensor(featShape, features)
	if err != nil {
		return nil, fmt.Errorf("failed to create feature tensor: %w", err)
	}
	defer featTensor.Destroy()

	scalarShape := ort.NewShape(1)

	srcTensor, err := ort.NewTensor(scalarShape, []int64{srcID})
	if err != nil {
		return nil, fmt.Errorf("failed to create src_lang tensor: %w", err)
	}
	defer srcTensor.Destroy()

	tgtTensor, err := ort.NewTensor(scalarShape, []int64{tgtID})
	if err != nil {
		return nil, fmt.Errorf("failed to create tgt_lang tensor: %w", err)
	}
	defer tgtTensor.Destroy()

	maxLenTensor, err := ort.NewTensor(scalarShape, []int64{int64(e.cfg.MaxNewTokens)})
	if err != nil {
		return nil, fmt.Errorf("failed to create max_len tensor: %w", err)
	}
	defer maxLenTensor.Destroy()

	outputs := []ort.Value{nil}
	err = e.session.Run([]ort.Value{featTensor, srcTensor, tgtTensor, maxLenTensor}, outputs)
	if err != nil {
		return nil, fmt.Errorf("failed to run inference: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	waveTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected waveform output type %T", outputs[0])
	}

	// Copy out of the runtime-owned buffer before the tensor is destroyed.
	data := waveTensor.GetData()
	out := make([]float32, len(data))
	copy(out, data)

	return out, nil
}

// SampleRate returns the fixed model sample rate.
func (e *ONNXEngine) SampleRate() int {
	return e.cfg.SampleRate
}

// Device returns the resolved compute device.
func (e *ONNXEngine) Device() string {
	return e.policy.Device
}

// Precision returns the resolved numeric precision.
func (e *ONNXEngine) Precision() string {
	return e.policy.Precision
}

// Close releases the ONNX session.
func (e *ONNXEngine) Close() error {
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	return nil
}
