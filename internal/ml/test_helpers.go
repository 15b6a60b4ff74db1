package ml

import "sync"

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu            sync.Mutex
	predictions   int
	labels        map[string]int
	failures      map[string]int
	invalidInputs int
	unknownValues map[string]int
	latencyCount  int
	latencySum    float64
}

func (m *MockMetrics) PredictionsInc(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
	if m.labels == nil {
		m.labels = make(map[string]int)
	}
	m.labels[label]++
}

func (m *MockMetrics) FailuresInc(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = make(map[string]int)
	}
	m.failures[reason]++
}

func (m *MockMetrics) InvalidInputsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidInputs++
}

func (m *MockMetrics) UnknownValueInc(field string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unknownValues == nil {
		m.unknownValues = make(map[string]int)
	}
	m.unknownValues[field]++
}

func (m *MockMetrics) LatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencyCount++
	m.latencySum += v
}

func (m *MockMetrics) Failures(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[reason]
}

func (m *MockMetrics) Predictions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.predictions
}
