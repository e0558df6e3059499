package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ReaderOption configures a RowReader
type ReaderOption func(*RowReader)

// WithStartTime skips rows recorded before t
func WithStartTime(t time.Time) ReaderOption {
	return func(r *RowReader) {
		r.startTime = &t
	}
}

// WithEndTime skips rows recorded after t
func WithEndTime(t time.Time) ReaderOption {
	return func(r *RowReader) {
		r.endTime = &t
	}
}

// WithTimeRange limits rows to [startTime, endTime]
func WithTimeRange(startTime, endTime time.Time) ReaderOption {
	return func(r *RowReader) {
		r.startTime = &startTime
		r.endTime = &endTime
	}
}

// RowReader iterates over the recorded rows of a session. Bins missing from
// the database read as zero.
//
//	for reader.Next(ctx) {
//		row := reader.Current()
//	}
//	err := reader.Error()
type RowReader struct {
	db        *sql.DB
	sessionID int64
	session   *Session

	startTime *time.Time
	endTime   *time.Time

	rows    *sql.Rows
	current *Row

	pending    bool // A sample of the next row has been read
	pendingTS  int64
	pendingBin int
	pendingVal float64
	err        error
}

func newRowReader(ctx context.Context, db *sql.DB, sessionID int64, opts ...ReaderOption) (*RowReader, error) {
	r := &RowReader{
		db:        db,
		sessionID: sessionID,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return r, nil
}

func (r *RowReader) init(ctx context.Context) error {
	if r.sessionID <= 0 {
		return errors.New("session ID required")
	}
	if r.startTime != nil && r.endTime != nil && r.startTime.After(*r.endTime) {
		return fmt.Errorf("start time %s is after end time %s", r.startTime, r.endTime)
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading session", fn: r.loadSession},
		{msg: "initializing query", fn: r.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (r *RowReader) loadSession(ctx context.Context) (err error) {
	stmt, err := r.db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if r.session, err = scanSession(stmt.QueryRowContext(ctx, r.sessionID)); err != nil {
		return fmt.Errorf("querying session: %w", err)
	}
	return nil
}

func (r *RowReader) initQuery(ctx context.Context) error {
	lo, hi := timeBounds(r.startTime, r.endTime)

	rows, err := r.db.QueryContext(ctx, selectSamplesSQL, r.sessionID, lo, hi)
	if err != nil {
		return fmt.Errorf("querying samples: %w", err)
	}
	r.rows = rows
	return nil
}

// Session returns the session being read
func (r *RowReader) Session() *Session {
	return r.session
}

// Next advances to the next row. It returns false when there are no more
// rows, the context is done or an error occurred.
func (r *RowReader) Next(ctx context.Context) bool {
	if r.err != nil || r.rows == nil {
		return false
	}

	var row *Row
	var rowTS int64
	if r.pending {
		rowTS = r.pendingTS
		row = r.newRow(rowTS)
		r.set(row, r.pendingBin, r.pendingVal)
		r.pending = false
	}

	for {
		select {
		case <-ctx.Done():
			r.err = ctx.Err()
			return false
		default:
		}

		if !r.rows.Next() {
			if row != nil {
				r.current = row
				return true
			}
			r.current = nil
			return false
		}

		var ts int64
		var bin int
		var value float64
		if err := r.rows.Scan(&ts, &bin, &value); err != nil {
			r.err = fmt.Errorf("scanning sample: %w", err)
			return false
		}

		if row == nil {
			rowTS = ts
			row = r.newRow(ts)
		}

		// Timestamp changed, complete the current row
		if ts != rowTS {
			r.pending = true
			r.pendingTS, r.pendingBin, r.pendingVal = ts, bin, value
			r.current = row
			return true
		}

		r.set(row, bin, value)
	}
}

func (r *RowReader) newRow(ts int64) *Row {
	return &Row{
		Timestamp: fromTimestamp(ts),
		Values:    make([]float64, r.session.WindowWidth),
	}
}

func (r *RowReader) set(row *Row, bin int, value float64) {
	if bin >= 0 && bin < len(row.Values) {
		row.Values[bin] = value
	}
}

// Current returns the row read by the last successful Next
func (r *RowReader) Current() *Row {
	return r.current
}

// Error returns the first error encountered during iteration
func (r *RowReader) Error() error {
	if r.err != nil {
		return r.err
	}
	if r.rows != nil {
		return r.rows.Err()
	}
	return nil
}

// Close releases the database resources held by the reader
func (r *RowReader) Close() error {
	if r.rows != nil {
		err := r.rows.Close()
		r.rows = nil
		r.current = nil
		r.pending = false
		return err
	}
	return nil
}
