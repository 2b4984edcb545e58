package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/audio"
	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/language"
	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/metrics"
	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/model"
)

// Result describes a completed translation for logging and response headers.
type Result struct {
	RequestID      string
	SourceLang     language.Code
	TargetLang     language.Code
	InputDuration  time.Duration
	OutputDuration time.Duration
	Elapsed        time.Duration
	Format         string
}

// Handler runs the full request pipeline. It is stateless and safe for
// concurrent use; the model manager serializes the inference stage.
type Handler struct {
	maxUploadBytes int64
	normalizer     *audio.Normalizer
	manager        *model.Manager
	encoder        Encoder
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// NewHandler wires the pipeline stages together. maxUploadBytes of zero
// disables the size check.
func NewHandler(maxUploadBytes int64, normalizer *audio.Normalizer, manager *model.Manager, encoder Encoder, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		maxUploadBytes: maxUploadBytes,
		normalizer:     normalizer,
		manager:        manager,
		encoder:        encoder,
		logger:         logger,
		metrics:        m,
	}
}

// Handle validates, normalizes, translates, and encodes one request.
// Language validation runs first so a bad pair is rejected before any audio
// work, and invalid input never touches the model.
func (h *Handler) Handle(ctx context.Context, blob audio.Blob, srcRaw, tgtRaw string) (audio.Blob, *Result, error) {
	requestID := uuid.NewString()
	start := time.Now()

	src, err := language.Parse(srcRaw)
	if err != nil {
		h.fail(requestID, "unsupported_language", err)
		return audio.Blob{}, nil, err
	}

	tgt, err := language.Parse(tgtRaw)
	if err != nil {
		h.fail(requestID, "unsupported_language", err)
		return audio.Blob{}, nil, err
	}

	if len(blob.Data) == 0 {
		err := fmt.Errorf("%w: no audio payload", audio.ErrInvalidAudio)
		h.fail(requestID, "invalid_audio", err)
		return audio.Blob{}, nil, err
	}

	if h.maxUploadBytes > 0 && int64(len(blob.Data)) > h.maxUploadBytes {
		err := fmt.Errorf("%w: payload of %d bytes exceeds limit of %d",
			audio.ErrInvalidAudio, len(blob.Data), h.maxUploadBytes)
		h.fail(requestID, "invalid_audio", err)
		return audio.Blob{}, nil, err
	}

	h.logger.Info("Translation request received",
		slog.String("request_id", requestID),
		slog.String("src_lang", src.String()),
		slog.String("tgt_lang", tgt.String()),
		slog.Int("payload_bytes", len(blob.Data)),
	)

	normalizeStart := time.Now()
	wf, err := h.normalizer.Normalize(blob)
	if err != nil {
		h.fail(requestID, "invalid_audio", err)
		return audio.Blob{}, nil, err
	}
	if h.metrics != nil {
		h.metrics.RecordNormalize(time.Since(normalizeStart).Seconds(), wf.Duration().Seconds())
	}

	inferStart := time.Now()
	out, err := h.manager.Translate(ctx, wf, src, tgt)
	if err != nil {
		h.fail(requestID, failureReason(err), err)
		return audio.Blob{}, nil, err
	}
	inferElapsed := time.Since(inferStart)

	encodeStart := time.Now()
	response, err := h.encoder.Encode(out)
	if err != nil {
		err = fmt.Errorf("%w: encoding response: %v", model.ErrInference, err)
		h.fail(requestID, "inference_failure", err)
		return audio.Blob{}, nil, err
	}

	if h.metrics != nil {
		stats := h.manager.Stats()
		h.metrics.RecordInference(inferElapsed.Seconds(), stats.LastQueueWait.Seconds(), out.Duration().Seconds())
		h.metrics.RecordEncode(time.Since(encodeStart).Seconds())
		h.metrics.RecordTranslateRequest(src.String(), tgt.String())
	}

	result := &Result{
		RequestID:      requestID,
		SourceLang:     src,
		TargetLang:     tgt,
		InputDuration:  wf.Duration(),
		OutputDuration: out.Duration(),
		Elapsed:        time.Since(start),
		Format:         h.encoder.Format(),
	}

	h.logger.Info("Translation complete",
		slog.String("request_id", requestID),
		slog.String("src_lang", src.String()),
		slog.String("tgt_lang", tgt.String()),
		slog.Duration("input_audio", result.InputDuration),
		slog.Duration("output_audio", result.OutputDuration),
		slog.Duration("elapsed", result.Elapsed),
		slog.Int("response_bytes", len(response.Data)),
	)

	return response, result, nil
}

func (h *Handler) fail(requestID, reason string, err error) {
	if h.metrics != nil {
		h.metrics.RecordTranslateFailure(reason)
	}
	h.logger.Warn("Translation request failed",
		slog.String("request_id", requestID),
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	)
}

// failureReason maps a pipeline error onto the failure taxonomy used for
// metrics labels.
func failureReason(err error) string {
	switch {
	case errors.Is(err, language.ErrUnsupported):
		return "unsupported_language"
	case errors.Is(err, audio.ErrInvalidAudio):
		return "invalid_audio"
	case errors.Is(err, model.ErrUnavailable):
		return "model_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The caller gave up while queued; not a model fault.
		return "client_abandoned"
	default:
		return "inference_failure"
	}
}
