package ml

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"pricerange/internal/schema"
	"pricerange/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu    sync.Mutex
	codes map[string][]int
}

func (o *recordingObserver) RequestObserve(path string, code int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.codes == nil {
		o.codes = make(map[string][]int)
	}
	o.codes[path] = append(o.codes[path], code)
}

func newTestServer(t *testing.T, opts ...ServerOption) (*httptest.Server, *Pipeline) {
	t.Helper()
	bundle := newTestBundle(t)
	p := NewPipeline(bundle, &MockMetrics{}, false)
	ms := NewModelServer(p, bundle, 0, 5*time.Second, opts...)
	srv := httptest.NewServer(ms.Handler())
	t.Cleanup(srv.Close)
	return srv, p
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestModelServer_Predict(t *testing.T) {
	observer := &recordingObserver{}
	srv, _ := newTestServer(t, WithRequestObserver(observer))

	input := schema.ExampleRecord()
	input["request_id"] = "req-1"
	resp := postJSON(t, srv.URL+"/predict", input)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out PredictionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "req-1", out.RequestID)
	assert.Equal(t, "150-200", out.Label)
	assert.Len(t, out.Probabilities, 4)
	assert.Equal(t, "test", out.ModelVersion)
	assert.False(t, out.Timestamp.IsZero())

	assert.Equal(t, []int{http.StatusOK}, observer.codes["/predict"])
}

func TestModelServer_PredictGeneratesRequestID(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/predict", schema.ExampleRecord())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out PredictionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out.RequestID, 36)
}

func TestModelServer_PredictErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	senior := schema.ExampleRecord()
	senior[schema.FieldAge] = 60
	senior[schema.FieldOccupation] = schema.OccupationStudent

	tests := []struct {
		name     string
		body     string
		status   int
		wantKind string
	}{
		{"malformed json", `{"age": `, http.StatusBadRequest, "request"},
		{"not an object", `[1, 2]`, http.StatusBadRequest, "request"},
		{"null body", `null`, http.StatusBadRequest, "request"},
		{"senior student", mustJSON(t, senior), http.StatusUnprocessableEntity, "invalid_combination"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/predict", "application/json", bytes.NewBufferString(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			var out ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.Equal(t, tt.wantKind, out.Kind)
			assert.NotEmpty(t, out.Error)
		})
	}
}

func TestModelServer_PredictStrictDomain(t *testing.T) {
	bundle := newTestBundle(t)
	ms := NewModelServer(NewPipeline(bundle, nil, true), bundle, 0, time.Second)
	srv := httptest.NewServer(ms.Handler())
	defer srv.Close()

	input := schema.ExampleRecord()
	input[schema.FieldZone] = "Suburban"
	resp := postJSON(t, srv.URL+"/predict", input)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestModelServer_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/predict")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestModelServer_Options(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/options")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out schema.InputOptions
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, schema.GetInputOptions(), out)
}

func TestModelServer_HealthAndInfo(t *testing.T) {
	srv, _ := newTestServer(t)

	postJSON(t, srv.URL+"/predict", schema.ExampleRecord())

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.True(t, health.Healthy)
	assert.Equal(t, int64(1), health.PredictionCount)
	assert.Equal(t, "test", health.ModelVersion)

	resp2, err := http.Get(srv.URL + "/model/info")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var info map[string]any
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&info))
	assert.Equal(t, "test", info["version"])
	assert.Len(t, info["features"], 25)
	assert.Len(t, info["classes"], 4)
}

func TestModelServer_History(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	srv, _ := newTestServer(t, WithHistory(store))

	for _, id := range []string{"a", "b"} {
		input := schema.ExampleRecord()
		input["request_id"] = id
		resp := postJSON(t, srv.URL+"/predict", input)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	resp, err := http.Get(srv.URL + "/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []storage.PredictionRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].RequestID)
	assert.Equal(t, "150-200", records[1].Label)
	assert.NotContains(t, records[0].Input, "request_id")

	bad, err := http.Get(srv.URL + "/history?since=yesterday")
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestModelServer_HistoryNotConfigured(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestModelServer_RateLimit(t *testing.T) {
	srv, _ := newTestServer(t, WithRateLimit(0.001, 2))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp := postJSON(t, srv.URL+"/predict", schema.ExampleRecord())
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Other endpoints are not limited.
	resp, err := http.Get(srv.URL + "/options")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWithRateLimit_Disabled(t *testing.T) {
	ms := NewModelServer(nil, nil, 0, time.Second, WithRateLimit(0, 5))
	assert.Nil(t, ms.limiter)
}
