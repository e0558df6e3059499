package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()

	store := NewSqliteStore(filepath.Join(t.TempDir(), "spectrogram.db"))
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func readAll(t *testing.T, reader *RowReader) []*Row {
	t.Helper()

	var rows []*Row
	for reader.Next(context.Background()) {
		rows = append(rows, reader.Current())
	}
	require.NoError(t, reader.Error())
	require.NoError(t, reader.Close())
	return rows
}

func TestSqliteStore_Sessions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first, err := store.CreateSession(ctx, "Gyros.x(deg/s)", 64, map[string]any{"timeHorizon": 60})
	require.NoError(t, err)
	second, err := store.CreateSession(ctx, "Gyros.y(deg/s)", 32, nil)
	require.NoError(t, err)
	assert.Greater(t, second, first)

	sessions, err := store.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, first, sessions[0].ID)
	assert.Equal(t, "Gyros.x(deg/s)", sessions[0].Label)
	assert.Equal(t, 64, sessions[0].WindowWidth)
	require.NotNil(t, sessions[0].Config)
	assert.JSONEq(t, `{"timeHorizon": 60}`, *sessions[0].Config)
	assert.False(t, sessions[0].StartTime.IsZero())

	assert.Nil(t, sessions[1].Config)

	sess, err := store.Session(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, 32, sess.WindowWidth)

	_, err = store.CreateSession(ctx, "bad", 0, nil)
	assert.Error(t, err)
}

func TestSqliteStore_StoreAndReadRows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	const width = 450 // spans three insert chunks
	sessionID, err := store.CreateSession(ctx, "Spectrum.Power", width, "{}")
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	for i := range 3 {
		values := make([]float64, width)
		for bin := range values {
			values[bin] = float64(i*1000 + bin)
		}
		require.NoError(t, store.StoreRow(ctx, sessionID, base.Add(time.Duration(i)*time.Second), values))
	}

	reader, err := store.ReadRows(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, width, reader.Session().WindowWidth)

	rows := readAll(t, reader)
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.True(t, row.Timestamp.Equal(base.Add(time.Duration(i)*time.Second)), "row %d timestamp %s", i, row.Timestamp)
		require.Len(t, row.Values, width)
		assert.Equal(t, float64(i*1000), row.Values[0])
		assert.Equal(t, float64(i*1000+width-1), row.Values[width-1])
	}
}

func TestSqliteStore_ReadRowsTimeRange(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sessionID, err := store.CreateSession(ctx, "Gyros.z", 2, nil)
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := range 5 {
		require.NoError(t, store.StoreRow(ctx, sessionID, base.Add(time.Duration(i)*time.Second), []float64{float64(i), float64(-i)}))
	}

	tests := []struct {
		name    string
		options []ReaderOption
		want    []float64
	}{
		{
			name: "all rows",
			want: []float64{0, 1, 2, 3, 4},
		},
		{
			name:    "start time",
			options: []ReaderOption{WithStartTime(base.Add(3 * time.Second))},
			want:    []float64{3, 4},
		},
		{
			name:    "end time",
			options: []ReaderOption{WithEndTime(base.Add(time.Second))},
			want:    []float64{0, 1},
		},
		{
			name:    "time range",
			options: []ReaderOption{WithTimeRange(base.Add(time.Second), base.Add(3*time.Second))},
			want:    []float64{1, 2, 3},
		},
		{
			name:    "empty range",
			options: []ReaderOption{WithStartTime(base.Add(time.Hour))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := store.ReadRows(ctx, sessionID, tt.options...)
			require.NoError(t, err)

			var got []float64
			for _, row := range readAll(t, reader) {
				got = append(got, row.Values[0])
				assert.Equal(t, -row.Values[0], row.Values[1])
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = store.ReadRows(ctx, sessionID, WithTimeRange(base.Add(time.Second), base))
	assert.Error(t, err)

	_, err = store.ReadRows(ctx, 0)
	assert.Error(t, err)
}

func TestSqliteStore_ReadRowsCanceled(t *testing.T) {
	store := newTestStore(t)

	sessionID, err := store.CreateSession(context.Background(), "Gyros.x", 1, nil)
	require.NoError(t, err)
	require.NoError(t, store.StoreRow(context.Background(), sessionID, time.Now(), []float64{1}))

	reader, err := store.ReadRows(context.Background(), sessionID)
	require.NoError(t, err)
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, reader.Next(ctx))
	assert.ErrorIs(t, reader.Error(), context.Canceled)
}

type fakeRowStore struct {
	mu   sync.Mutex
	rows [][]float64
	fail bool
}

func (f *fakeRowStore) StoreRow(_ context.Context, _ int64, _ time.Time, values []float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("disk full")
	}
	f.rows = append(f.rows, values)
	return nil
}

func (f *fakeRowStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func TestRecorder_Run(t *testing.T) {
	store := &fakeRowStore{}
	rec := NewRecorder(store, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- rec.Run(ctx)
	}()

	row := []float64{1, 2, 3}
	rec.Record(time.Now(), row)
	row[0] = 100 // the recorder owns a copy

	require.Eventually(t, func() bool { return store.count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, []float64{1, 2, 3}, store.rows[0])
	assert.Equal(t, uint64(1), rec.Stored())
	assert.Zero(t, rec.Dropped())
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	store := &fakeRowStore{}
	rec := NewRecorder(store, 1, WithQueueSize(2))

	for i := range 5 {
		rec.Record(time.Now(), []float64{float64(i)})
	}
	assert.Equal(t, uint64(3), rec.Dropped())

	// Queued rows are flushed on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, rec.Run(ctx), context.Canceled)
	assert.Equal(t, 2, store.count())
	assert.Equal(t, uint64(2), rec.Stored())
}

func TestRecorder_StoreErrors(t *testing.T) {
	store := &fakeRowStore{fail: true}
	rec := NewRecorder(store, 1)

	rec.Record(time.Now(), []float64{1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, rec.Run(ctx), context.Canceled)
	assert.Zero(t, rec.Stored())
}

func TestRecorder_WithSqliteStore(t *testing.T) {
	store := newTestStore(t)

	sessionID, err := store.CreateSession(context.Background(), "Gyros.x", 3, nil)
	require.NoError(t, err)

	rec := NewRecorder(store, sessionID)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec.Record(base, []float64{1, 2, 3})
	rec.Record(base.Add(time.Second), []float64{4, 5, 6})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, rec.Run(ctx), context.Canceled)

	reader, err := store.ReadRows(context.Background(), sessionID)
	require.NoError(t, err)
	rows := readAll(t, reader)
	require.Len(t, rows, 2)
	assert.Equal(t, []float64{4, 5, 6}, rows[1].Values)
}
