// Package rowsource provides the append-only tabular store that stands in for
// a database: a spreadsheet in production, a SQL table for local runs.
package rowsource

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrNotConfigured is returned by every operation of a store that has no
// credentials or identifier.
var ErrNotConfigured = errors.New("row source not configured")

// RowSource reads whole columns and appends rows. There is no transactional
// isolation between a read and a later append.
type RowSource interface {
	// ReadColumn returns every cell of column (e.g. "A") in row order,
	// header included. Missing cells are returned as "".
	ReadColumn(ctx context.Context, column string) ([]string, error)
	// AppendRow writes one row after the last populated row.
	AppendRow(ctx context.Context, values []any) (AppendResult, error)
}

// AppendResult describes where an appended row landed.
type AppendResult struct {
	// Row is the 1-based sheet row of the write, 0 when the store did not say.
	Row   int
	Range string
}

// HasRow reports whether the store reported a row position.
func (r AppendResult) HasRow() bool {
	return r.Row > 0
}

// Unconfigured is the store used when no backend could be set up.
type Unconfigured struct{}

func (Unconfigured) ReadColumn(context.Context, string) ([]string, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) AppendRow(context.Context, []any) (AppendResult, error) {
	return AppendResult{}, ErrNotConfigured
}

// RemoteError wraps a failed call to the backing service.
type RemoteError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

var rangeRowPattern = regexp.MustCompile(`![A-Za-z]+(\d+)`)

// RowFromRange extracts the first row number of an A1 range such as
// "Sheet1!A7:P7". It returns 0 when the range carries no row.
func RowFromRange(a1 string) int {
	m := rangeRowPattern.FindStringSubmatch(a1)
	if len(m) != 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
