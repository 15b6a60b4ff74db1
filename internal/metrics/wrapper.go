package metrics

import "strconv"

// MetricsWrapper adapts Metrics to the interfaces the pipeline and the
// server report through.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) PredictionsInc(label string) {
	w.m.PredictionsTotal.Inc()
	w.m.PredictedLabels.WithLabelValues(label).Inc()
}

func (w *MetricsWrapper) FailuresInc(reason string) {
	w.m.PredictionFailures.WithLabelValues(reason).Inc()
}

func (w *MetricsWrapper) InvalidInputsInc() {
	w.m.InvalidInputs.Inc()
}

func (w *MetricsWrapper) UnknownValueInc(field string) {
	w.m.UnknownValues.WithLabelValues(field).Inc()
}

func (w *MetricsWrapper) LatencyObserve(seconds float64) {
	w.m.PredictionLatency.Observe(seconds)
}

func (w *MetricsWrapper) ModelAgeSet(seconds float64) {
	w.m.ModelAge.Set(seconds)
}

func (w *MetricsWrapper) RequestObserve(path string, code int) {
	w.m.HTTPRequests.WithLabelValues(path, strconv.Itoa(code)).Inc()
}
