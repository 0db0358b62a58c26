package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volley/internal/report"
	"volley/internal/runner"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(savedAt time.Time) Record {
	return Record{
		ID:      uuid.New().String(),
		SavedAt: savedAt,
		Config:  runner.Config{Method: "echo", TotalCalls: 10, Concurrency: 2},
		Report: &report.Report{
			Count:      10,
			WallTime:   time.Second,
			Average:    5 * time.Millisecond,
			Fastest:    time.Millisecond,
			Slowest:    9 * time.Millisecond,
			Rps:        10,
			StatusDist: map[string]int{"OK": 10},
			ErrorDist:  map[string]int{},
		},
	}
}

func TestStoreSaveAndGet(t *testing.T) {
	s := openTestStore(t)

	rec := sampleRecord(time.Now())
	require.NoError(t, s.Save(rec))

	got, err := s.Get(rec.ID)
	require.NoError(t, err)

	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "echo", got.Config.Method)
	assert.Equal(t, 10, got.Report.Count)
	assert.Equal(t, map[string]int{"OK": 10}, got.Report.StatusDist)
	assert.Equal(t, time.Second, got.Report.WallTime)
}

func TestStoreListNewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().Add(-time.Hour)
	oldest := sampleRecord(base)
	middle := sampleRecord(base.Add(10 * time.Minute))
	newest := sampleRecord(base.Add(20 * time.Minute))

	require.NoError(t, s.Save(middle))
	require.NoError(t, s.Save(newest))
	require.NoError(t, s.Save(oldest))

	items, err := s.List()
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, newest.ID, items[0].ID)
	assert.Equal(t, middle.ID, items[1].ID)
	assert.Equal(t, oldest.ID, items[2].ID)
}

func TestStoreGetMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get("no-such-run")
	assert.Error(t, err)
}

func TestStoreSaveRequiresID(t *testing.T) {
	s := openTestStore(t)

	rec := sampleRecord(time.Now())
	rec.ID = ""
	assert.Error(t, s.Save(rec))
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	rec := sampleRecord(time.Now())
	require.NoError(t, s.Save(rec))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Report.Rps, got.Report.Rps)
}
