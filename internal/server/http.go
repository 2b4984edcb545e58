package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/audio"
	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/config"
	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/language"
	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/metrics"
	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/model"
	"github.com/bhargav1000/Live-Translate-Xu-Yuan-STS/internal/translate"
)

// HTTPServer provides the translation API and monitoring endpoints
type HTTPServer struct {
	server  *http.Server
	logger  *slog.Logger
	config  *config.Config
	handler *translate.Handler
	manager *model.Manager
	metrics *metrics.Metrics

	startTime time.Time
}

// errorResponse is the JSON body returned for every failed request
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(appConfig *config.Config, logger *slog.Logger,
	handler *translate.Handler, manager *model.Manager, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    appConfig,
		handler:   handler,
		manager:   manager,
		metrics:   m,
		startTime: time.Now(),
	}

	// Create HTTP server with routes
	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", appConfig.Server.Address, appConfig.Server.Port),
		Handler:      mux,
		ReadTimeout:  appConfig.Server.GetReadTimeoutDuration(),
		WriteTimeout: appConfig.Server.GetWriteTimeoutDuration(),
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Translation endpoint
	mux.HandleFunc("/translate", h.withMetrics("/translate", h.withCORS(h.handleTranslate)))

	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.withCORS(h.handleHealth)))

	// Supported languages endpoint
	mux.HandleFunc("/languages", h.withMetrics("/languages", h.handleLanguages))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Statistics endpoint
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		// Call the original handler
		handler(ww, r)

		// Record metrics
		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		// Record error if status code indicates an error
		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// withCORS allows browser clients to call the API from another origin
func (h *HTTPServer) withCORS(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		handler(w, r)
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// writeError sends the JSON error body with the taxonomy code
func (h *HTTPServer) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message, Code: code})
}

// statusClientClosedRequest is the nginx convention for a request the
// client abandoned before a response was written.
const statusClientClosedRequest = 499

// statusForError maps pipeline errors onto the HTTP contract:
// bad input is 400, a model that cannot serve yet is 503, an abandoned
// request is 499, and everything else is an internal 500.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, language.ErrUnsupported):
		return http.StatusBadRequest, "unsupported_language"
	case errors.Is(err, audio.ErrInvalidAudio):
		return http.StatusBadRequest, "invalid_audio"
	case errors.Is(err, model.ErrUnavailable):
		return http.StatusServiceUnavailable, "model_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return statusClientClosedRequest, "client_abandoned"
	default:
		return http.StatusInternalServerError, "inference_failure"
	}
}

// handleTranslate implements POST /translate
func (h *HTTPServer) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST with multipart form data")
		return
	}

	// Bound the request body before parsing; multipart framing adds a
	// little overhead on top of the audio payload itself.
	maxBytes := h.config.Server.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+64*1024)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_audio",
			fmt.Sprintf("failed to parse multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	srcLang := r.FormValue("src_lang")
	tgtLang := r.FormValue("tgt_lang")

	file, header, err := r.FormFile("audio")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_audio", "missing 'audio' form file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_audio",
			fmt.Sprintf("failed to read audio payload: %v", err))
		return
	}

	blob := audio.Blob{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
	}

	response, result, err := h.handler.Handle(r.Context(), blob, srcLang, tgtLang)
	if err != nil {
		status, code := statusForError(err)
		h.writeError(w, status, code, err.Error())
		return
	}

	w.Header().Set("Content-Type", response.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(response.Data)))
	w.Header().Set("X-Request-ID", result.RequestID)
	w.Header().Set("X-Target-Lang", result.TargetLang.String())
	w.Header().Set("X-Elapsed-Ms", strconv.FormatInt(result.Elapsed.Milliseconds(), 10))
	w.Write(response.Data)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	stats := h.manager.Stats()
	uptime := time.Since(h.startTime)

	health := map[string]interface{}{
		"status":         "healthy",
		"timestamp":      time.Now().UTC(),
		"uptime":         uptime.String(),
		"model_state":    stats.State,
		"model_loaded":   stats.State == model.StateReady,
		"total_requests": stats.TotalRequests,
		"total_failures": stats.TotalFailures,
		"service": map[string]interface{}{
			"name":    "live-translate-sts",
			"version": "1.0.0",
		},
	}

	if stats.State == model.StateReady {
		health["device"] = stats.Device
		health["precision"] = stats.Precision
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleLanguages implements the /languages endpoint
func (h *HTTPServer) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	codes := language.Supported()
	languages := make([]string, len(codes))
	for i, c := range codes {
		languages[i] = c.String()
	}

	response := map[string]interface{}{
		"languages": languages,
		"count":     len(languages),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	// Return sanitized configuration (no filesystem paths)
	sanitizedConfig := map[string]interface{}{
		"server": map[string]interface{}{
			"port":          h.config.Server.Port,
			"address":       h.config.Server.Address,
			"read_timeout":  h.config.Server.ReadTimeout,
			"write_timeout": h.config.Server.WriteTimeout,
			"max_upload_mb": h.config.Server.MaxUploadMB,
		},
		"model": map[string]interface{}{
			"device":         h.config.Model.Device,
			"sample_rate":    h.config.Model.SampleRate,
			"max_new_tokens": h.config.Model.MaxNewTokens,
			"warmup":         h.config.Model.Warmup,
		},
		"encoding": map[string]interface{}{
			"format": h.config.Encoding.Format,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	modelStats := h.manager.Stats()
	uptime := time.Since(h.startTime)

	stats := map[string]interface{}{
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC(),
		"model":     modelStats,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Live Translate Speech-to-Speech Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"POST /translate": "Translate speech (multipart: audio, src_lang, tgt_lang)",
			"GET /health":     "Service health and model state",
			"GET /languages":  "List supported language codes",
			"GET /config":     "Get service configuration",
			"GET /stats":      "Get service statistics",
			"GET /metrics":    "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
