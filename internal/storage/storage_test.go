package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	require.NoError(t, err)
	defer store.Close()

	assert.NotNil(t, store.db)

	// Check if database file was created
	_, err = os.Stat(filepath.Join(tempDir, dbFile))
	assert.NoError(t, err)
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "dir"))
	assert.Error(t, err)
}

func TestOpenReadOnly(t *testing.T) {
	dir := t.TempDir()

	store, err := New(dir)
	require.NoError(t, err)
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SavePrediction(PredictionRecord{RequestID: "r0", Timestamp: ts, Label: "150-200"}))
	require.NoError(t, store.Close())

	ro, err := OpenReadOnly(dir)
	require.NoError(t, err)
	defer ro.Close()

	n, err := ro.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := ro.GetPredictionsInRange(ts, ts)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "r0", records[0].RequestID)

	err = ro.SavePrediction(PredictionRecord{RequestID: "r1", Timestamp: ts})
	assert.Error(t, err)
}

func TestOpenReadOnly_MissingDatabase(t *testing.T) {
	dir := t.TempDir()

	_, err := OpenReadOnly(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	// Nothing may be created as a side effect.
	_, err = os.Stat(filepath.Join(dir, dbFile))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestStore_SaveAndRange(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"r0", "r1", "r2", "r3"} {
		err := store.SavePrediction(PredictionRecord{
			RequestID:     id,
			Timestamp:     base.Add(time.Duration(i) * time.Minute),
			Input:         map[string]any{"zone": "Metro"},
			Label:         "150-200",
			Probabilities: map[string]float64{"150-200": 0.7, "100-150": 0.3},
			ModelVersion:  "v1",
		})
		require.NoError(t, err)
	}

	tests := []struct {
		name       string
		start, end time.Time
		want       []string
	}{
		{"all", base.Add(-time.Hour), base.Add(time.Hour), []string{"r0", "r1", "r2", "r3"}},
		{"inclusive bounds", base.Add(time.Minute), base.Add(2 * time.Minute), []string{"r1", "r2"}},
		{"single instant", base, base, []string{"r0"}},
		{"before everything", base.Add(-2 * time.Hour), base.Add(-time.Hour), nil},
		{"after everything", base.Add(time.Hour), base.Add(2 * time.Hour), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := store.GetPredictionsInRange(tt.start, tt.end)
			require.NoError(t, err)

			var ids []string
			for _, r := range records {
				ids = append(ids, r.RequestID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestStore_RecordRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := PredictionRecord{
		RequestID:     "abc",
		Timestamp:     ts,
		Input:         map[string]any{"age": 30.0, "zone": "Metro", "gender": nil},
		Label:         "200-250",
		Probabilities: map[string]float64{"200-250": 1},
	}
	require.NoError(t, store.SavePrediction(rec))

	records, err := store.GetPredictionsInRange(ts, ts)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.Input, records[0].Input)
	assert.Equal(t, rec.Label, records[0].Label)
	assert.True(t, ts.Equal(records[0].Timestamp))
}

func TestStore_DefaultTimestamp(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	before := time.Now()
	require.NoError(t, store.SavePrediction(PredictionRecord{RequestID: "x", Label: "50-100"}))

	records, err := store.GetPredictionsInRange(before, time.Now())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Timestamp.IsZero())
}

func TestStore_Persistence(t *testing.T) {
	dir := t.TempDir()

	store, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, store.SavePrediction(PredictionRecord{RequestID: "keep", Label: "50-100", Timestamp: time.Now()}))
	require.NoError(t, store.Close())

	reopened, err := New(dir)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
