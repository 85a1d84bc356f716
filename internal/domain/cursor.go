package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cursor marks the last row of a page: rows strictly before (TS, ID)
// in (ts DESC, id DESC) order form the next page.
type Cursor struct {
	TS time.Time
	ID int64
}

// String encodes the cursor as "<RFC3339 timestamp>,<id>".
func (c Cursor) String() string {
	return c.TS.UTC().Format(time.RFC3339Nano) + "," + strconv.FormatInt(c.ID, 10)
}

// ParseCursor decodes a cursor produced by Cursor.String.
// Returns a validation error for malformed input.
func ParseCursor(s string) (*Cursor, error) {
	tsRaw, idRaw, ok := strings.Cut(s, ",")
	if !ok {
		return nil, Invalid("invalid cursor")
	}
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(tsRaw))
	if err != nil {
		return nil, Invalid("invalid cursor")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(idRaw), 10, 64)
	if err != nil {
		return nil, Invalid("invalid cursor")
	}
	return &Cursor{TS: ts, ID: id}, nil
}

// Before reports whether the row (ts, id) sorts after the cursor in
// descending order, i.e. (ts, id) < (c.TS, c.ID).
func (c Cursor) Before(ts time.Time, id int64) bool {
	if ts.Equal(c.TS) {
		return id < c.ID
	}
	return ts.Before(c.TS)
}

// NextCursor returns the cursor for the following page, or nil when
// the page was not full.
func NextCursor(rows, limit int, last Cursor) *string {
	if limit <= 0 || rows != limit {
		return nil
	}
	s := last.String()
	return &s
}

// ClampLimit applies a default and an upper bound to a page size.
func ClampLimit(limit, def, max int) (int, error) {
	if limit == 0 {
		return def, nil
	}
	if limit < 1 || limit > max {
		return 0, Invalid(fmt.Sprintf("limit must be between 1 and %d", max))
	}
	return limit, nil
}
