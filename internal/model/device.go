package model

import (
	"fmt"
	"log/slog"

	ort "github.com/yalue/onnxruntime_go"
)

// DevicePolicy is the compute device and numeric precision resolved once at
// load time and fixed for the process lifetime. Precision follows the
// device: reduced precision on accelerators for throughput, full precision
// on CPU for stability. onnxruntime fixes tensor dtypes per graph, so the
// precision choice selects a model file variant.
type DevicePolicy struct {
	Device    string // "cuda" or "cpu"
	Precision string // "fp16" or "fp32"
	ModelFile string // model file name for the chosen precision
}

const (
	deviceAuto = "auto"
	deviceCUDA = "cuda"
	deviceCPU  = "cpu"

	modelFileFP16 = "model_fp16.onnx"
	modelFileFP32 = "model_fp32.onnx"
)

// resolveDevicePolicy configures the session options for the requested
// device and returns the resulting policy. With "auto", CUDA is attempted
// first and CPU is the fallback; with "cuda", failure to enable the
// provider is an error.
func resolveDevicePolicy(requested string, options *ort.SessionOptions, logger *slog.Logger) (DevicePolicy, error) {
	switch requested {
	case deviceAuto, deviceCUDA:
		if err := appendCUDAProvider(options); err != nil {
			if requested == deviceCUDA {
				return DevicePolicy{}, fmt.Errorf("CUDA execution provider requested but unavailable: %w", err)
			}
			logger.Warn("CUDA execution provider unavailable, falling back to CPU",
				slog.String("error", err.Error()),
			)
			break
		}
		return DevicePolicy{Device: deviceCUDA, Precision: "fp16", ModelFile: modelFileFP16}, nil
	case deviceCPU:
		// explicit CPU request, nothing to configure
	default:
		return DevicePolicy{}, fmt.Errorf("unknown device %q (want auto, cuda, or cpu)", requested)
	}

	return DevicePolicy{Device: deviceCPU, Precision: "fp32", ModelFile: modelFileFP32}, nil
}

// appendCUDAProvider registers the CUDA execution provider on the session
// options. It fails on machines without a usable CUDA runtime, which is
// how availability is detected.
func appendCUDAProvider(options *ort.SessionOptions) error {
	cudaOptions, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return fmt.Errorf("failed to create CUDA provider options: %w", err)
	}
	defer cudaOptions.Destroy()

	if err := cudaOptions.Update(map[string]string{"device_id": "0"}); err != nil {
		return fmt.Errorf("failed to configure CUDA provider: %w", err)
	}

	if err := options.AppendExecutionProviderCUDA(cudaOptions); err != nil {
		return fmt.Errorf("failed to append CUDA provider: %w", err)
	}

	return nil
}
