package storage

import (
	"database/sql"
	"errors"
	"math"
	"time"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	// Rollback after a successful commit returns sql.ErrTxDone
	if rErr := rb.Rollback(); rErr != nil && *err == nil && !errors.Is(rErr, sql.ErrTxDone) {
		*err = rErr
	}
}

// toTimestamp converts a time to the stored representation, UTC nanoseconds
func toTimestamp(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromTimestamp(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

func timeBounds(start, end *time.Time) (int64, int64) {
	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if start != nil {
		lo = toTimestamp(*start)
	}
	if end != nil {
		hi = toTimestamp(*end)
	}
	return lo, hi
}
