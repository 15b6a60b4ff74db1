package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"pricerange/internal/features"
	"pricerange/internal/schema"
	"pricerange/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	requestIDField     = "request_id"
	maxRequestBody     = 64 << 10
	defaultHistorySpan = 24 * time.Hour
)

// HistoryStore persists served predictions.
type HistoryStore interface {
	SavePrediction(rec storage.PredictionRecord) error
	GetPredictionsInRange(start, end time.Time) ([]storage.PredictionRecord, error)
}

// RequestObserver counts HTTP responses.
type RequestObserver interface {
	RequestObserve(path string, code int)
}

// ModelServer provides the HTTP API for price range predictions.
type ModelServer struct {
	predictor PredictorInterface
	bundle    *Bundle
	history   HistoryStore
	observer  RequestObserver
	limiter   *rate.Limiter
	server    *http.Server
}

// PredictionResponse is the body returned by /predict.
type PredictionResponse struct {
	RequestID     string             `json:"request_id"`
	Label         string             `json:"label"`
	Probabilities map[string]float64 `json:"probabilities"`
	ModelVersion  string             `json:"model_version"`
	Latency       float64            `json:"latency_ms"`
	Timestamp     time.Time          `json:"timestamp"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// ServerOption configures optional collaborators of the server.
type ServerOption func(*ModelServer)

// WithHistory records every successful prediction in store.
func WithHistory(store HistoryStore) ServerOption {
	return func(ms *ModelServer) { ms.history = store }
}

// WithRequestObserver reports every response status to o.
func WithRequestObserver(o RequestObserver) ServerOption {
	return func(ms *ModelServer) { ms.observer = o }
}

// WithRateLimit caps /predict at rps requests per second with the given
// burst. A non-positive rps disables the limit.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(ms *ModelServer) {
		if rps > 0 {
			ms.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// NewModelServer creates a new HTTP server for model serving.
func NewModelServer(predictor PredictorInterface, bundle *Bundle, port int, timeout time.Duration, opts ...ServerOption) *ModelServer {
	ms := &ModelServer{
		predictor: predictor,
		bundle:    bundle,
	}
	for _, opt := range opts {
		opt(ms)
	}

	ms.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           ms.Handler(),
		ReadHeaderTimeout: timeout,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
		IdleTimeout:       120 * time.Second,
	}

	return ms
}

// Handler returns the API routes.
func (ms *ModelServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/predict", ms.handlePredict)
	mux.HandleFunc("/options", ms.handleOptions)
	mux.HandleFunc("/health", ms.handleHealth)
	mux.HandleFunc("/model/info", ms.handleModelInfo)
	mux.HandleFunc("/history", ms.handleHistory)
	return mux
}

// Start begins serving HTTP requests.
func (ms *ModelServer) Start() error {
	log.Info().Str("addr", ms.server.Addr).Msg("starting model server")
	return ms.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (ms *ModelServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

func (ms *ModelServer) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ms.writeError(w, r, http.StatusMethodNotAllowed, "method", errors.New("method not allowed"))
		return
	}

	if ms.limiter != nil && !ms.limiter.Allow() {
		ms.writeError(w, r, http.StatusTooManyRequests, "rate_limited", errors.New("too many requests"))
		return
	}

	start := time.Now()

	var input features.RawInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&input); err != nil {
		ms.writeError(w, r, http.StatusBadRequest, "request", fmt.Errorf("invalid request: %w", err))
		return
	}
	if input == nil {
		ms.writeError(w, r, http.StatusBadRequest, "request", errors.New("request body must be a JSON object"))
		return
	}

	requestID, _ := input[requestIDField].(string)
	delete(input, requestIDField)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	pred, err := ms.predictor.Predict(input)
	if err != nil {
		status, kind := classifyError(err)
		log.Warn().Err(err).Str("request_id", requestID).Str("kind", kind).Msg("prediction failed")
		ms.writeError(w, r, status, kind, err)
		return
	}

	resp := PredictionResponse{
		RequestID:     requestID,
		Label:         pred.Label,
		Probabilities: pred.Probabilities,
		ModelVersion:  ms.modelVersion(),
		Latency:       float64(time.Since(start).Microseconds()) / 1000,
		Timestamp:     time.Now().UTC(),
	}

	if ms.history != nil {
		rec := storage.PredictionRecord{
			RequestID:     requestID,
			Timestamp:     resp.Timestamp,
			Input:         input,
			Label:         pred.Label,
			Probabilities: pred.Probabilities,
			ModelVersion:  resp.ModelVersion,
		}
		if err := ms.history.SavePrediction(rec); err != nil {
			log.Error().Err(err).Str("request_id", requestID).Msg("failed to store prediction")
		}
	}

	ms.writeJSON(w, r, http.StatusOK, resp)
}

func (ms *ModelServer) handleOptions(w http.ResponseWriter, r *http.Request) {
	ms.writeJSON(w, r, http.StatusOK, schema.GetInputOptions())
}

func (ms *ModelServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := ms.predictor.Health()

	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	ms.writeJSON(w, r, status, health)
}

func (ms *ModelServer) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if ms.bundle == nil {
		ms.writeError(w, r, http.StatusServiceUnavailable, "model", errors.New("no model loaded"))
		return
	}
	info := map[string]interface{}{
		"version":        ms.bundle.Metadata.Version,
		"trained_at":     ms.bundle.Metadata.TrainedAt,
		"classes":        ms.bundle.Engine.Classes(),
		"features":       ms.bundle.Info.FinalFeatureList,
		"cols_to_onehot": ms.bundle.Info.ColsToOnehot,
		"model_age_s":    ms.bundle.ModelAge().Seconds(),
	}
	ms.writeJSON(w, r, http.StatusOK, info)
}

func (ms *ModelServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if ms.history == nil {
		ms.writeError(w, r, http.StatusNotFound, "history", errors.New("history store not configured"))
		return
	}

	until := time.Now()
	since := until.Add(-defaultHistorySpan)
	var err error
	if v := r.URL.Query().Get("since"); v != "" {
		if since, err = time.Parse(time.RFC3339, v); err != nil {
			ms.writeError(w, r, http.StatusBadRequest, "request", fmt.Errorf("invalid since: %w", err))
			return
		}
	}
	if v := r.URL.Query().Get("until"); v != "" {
		if until, err = time.Parse(time.RFC3339, v); err != nil {
			ms.writeError(w, r, http.StatusBadRequest, "request", fmt.Errorf("invalid until: %w", err))
			return
		}
	}

	records, err := ms.history.GetPredictionsInRange(since, until)
	if err != nil {
		ms.writeError(w, r, http.StatusInternalServerError, "history", err)
		return
	}
	if records == nil {
		records = []storage.PredictionRecord{}
	}
	ms.writeJSON(w, r, http.StatusOK, records)
}

func (ms *ModelServer) modelVersion() string {
	if ms.bundle == nil || ms.bundle.Metadata == nil {
		return "unknown"
	}
	return ms.bundle.Metadata.Version
}

// classifyError maps pipeline errors to an HTTP status: input the caller can
// correct is 422, everything else is a server-side artifact problem.
func classifyError(err error) (int, string) {
	var combo *features.InvalidCombinationError
	var unknown *schema.UnknownValueError
	var shape *ModelInputShapeError
	switch {
	case errors.As(err, &combo):
		return http.StatusUnprocessableEntity, "invalid_combination"
	case errors.As(err, &unknown):
		return http.StatusUnprocessableEntity, "unknown_value"
	case errors.As(err, &shape):
		return http.StatusInternalServerError, "model_input_shape"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (ms *ModelServer) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write response")
	}
	if ms.observer != nil {
		ms.observer.RequestObserve(r.URL.Path, status)
	}
}

func (ms *ModelServer) writeError(w http.ResponseWriter, r *http.Request, status int, kind string, err error) {
	ms.writeJSON(w, r, status, ErrorResponse{Error: err.Error(), Kind: kind})
}
