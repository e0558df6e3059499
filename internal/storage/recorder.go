package storage

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"
)

const defaultQueueSize = 64

// RowStore persists spectrogram rows of a session
type RowStore interface {
	StoreRow(ctx context.Context, sessionID int64, ts time.Time, values []float64) error
}

// WithRecorderLogger sets the logger for the recorder
func WithRecorderLogger(logger *slog.Logger) func(*Recorder) {
	return func(r *Recorder) {
		r.logger = logger.With(slog.String("component", "recorder"))
	}
}

// WithQueueSize sets the number of rows buffered before new rows are dropped
func WithQueueSize(size int) func(*Recorder) {
	return func(r *Recorder) {
		if size > 0 {
			r.queueSize = size
		}
	}
}

type queuedRow struct {
	ts     time.Time
	values []float64
}

// Recorder moves rows produced by a spectrogram series into a RowStore on its
// own goroutine. Record never blocks: rows are dropped while the queue is full.
type Recorder struct {
	store     RowStore
	sessionID int64
	queueSize int
	queue     chan queuedRow

	stored  atomic.Uint64
	dropped atomic.Uint64

	logger *slog.Logger
}

// NewRecorder creates a recorder writing into the given session
func NewRecorder(store RowStore, sessionID int64, options ...func(*Recorder)) *Recorder {
	r := Recorder{
		store:     store,
		sessionID: sessionID,
		queueSize: defaultQueueSize,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&r)
	}

	r.queue = make(chan queuedRow, r.queueSize)
	return &r
}

// Record queues a row for storage. The row is copied.
func (r *Recorder) Record(ts time.Time, values []float64) {
	select {
	case r.queue <- queuedRow{ts: ts, values: slices.Clone(values)}:
	default:
		if r.dropped.Add(1) == 1 {
			r.logger.Warn("recorder queue is full, dropping rows", slog.Int("queueSize", r.queueSize))
		}
	}
}

// Run stores queued rows until ctx is done, then flushes the rows still queued.
// Rows accepted by Record are stored even when ctx is canceled mid-write.
func (r *Recorder) Run(ctx context.Context) error {
	storeCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			r.flush(storeCtx)
			return ctx.Err()

		case row := <-r.queue:
			r.storeRow(storeCtx, row)
		}
	}
}

func (r *Recorder) flush(ctx context.Context) {
	for {
		select {
		case row := <-r.queue:
			r.storeRow(ctx, row)
		default:
			return
		}
	}
}

func (r *Recorder) storeRow(ctx context.Context, row queuedRow) {
	if err := r.store.StoreRow(ctx, r.sessionID, row.ts, row.values); err != nil {
		r.logger.Error("storing row", slog.Any("error", err))
		return
	}
	r.stored.Add(1)
}

// Stored returns the number of rows written to the store
func (r *Recorder) Stored() uint64 {
	return r.stored.Load()
}

// Dropped returns the number of rows lost to a full queue
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}
