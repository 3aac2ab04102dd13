// Package importer provides bulk incident import from delimited tabular
// input. Rows are decoded lazily and applied one at a time: a row that
// fails validation is skipped and counted, it never aborts the batch and
// never rolls back previously created incidents.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Errors reported for the input as a whole. Malformed input fails the
// request once; it is never reported per row.
var (
	ErrBadHeader    = errors.New("invalid csv header")
	ErrMalformedCSV = errors.New("malformed csv")
	ErrTooManyRows  = errors.New("too many rows")
)

// Required column names. Header order is not significant.
var requiredColumns = []string{"title", "description", "category", "severity"}

// Row is one decoded entry from an import input, prior to validation.
type Row map[string]string

// RowReader lazily decodes rows from a CSV stream with a header row.
type RowReader struct {
	reader  *csv.Reader
	columns []string
}

// NewRowReader reads and checks the header row. The header must contain
// exactly the required columns; names are matched case-insensitively.
func NewRowReader(r io.Reader) (*RowReader, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrBadHeader)
		}
		return nil, fmt.Errorf("%w: %s", ErrMalformedCSV, err)
	}

	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(name))
		seen[columns[i]] = true
	}

	if len(header) != len(requiredColumns) {
		return nil, fmt.Errorf("%w: expected columns %s", ErrBadHeader, strings.Join(requiredColumns, ","))
	}
	for _, want := range requiredColumns {
		if !seen[want] {
			return nil, fmt.Errorf("%w: missing column %q", ErrBadHeader, want)
		}
	}

	return &RowReader{reader: cr, columns: columns}, nil
}

// Next returns the next row, or io.EOF when the input is exhausted. A
// structural CSV error (e.g. wrong field count) is returned wrapped in
// ErrMalformedCSV and ends the iteration.
func (rr *RowReader) Next() (Row, error) {
	record, err := rr.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %s", ErrMalformedCSV, err)
	}

	row := make(Row, len(rr.columns))
	for i, col := range rr.columns {
		row[col] = record[i]
	}
	return row, nil
}
