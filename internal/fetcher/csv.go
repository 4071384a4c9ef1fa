// Package fetcher downloads portal files and decodes the ZIP and CSV payloads they carry.
package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
)

// CSVOptions configures StreamCSV.
type CSVOptions struct {
	Delimiter rune // defaults to ','
	// Encoding is the source charset. Nil means the input is UTF-8.
	Encoding   encoding.Encoding
	LazyQuotes bool
}

// CSVStream is a delimited file parsed by a background goroutine.
//
// Header yields the first record, with names trimmed, and is then closed. It
// is closed without a value when the input is empty or the first record
// cannot be parsed. Rows carries the remaining records. Err yields at most
// one error and is closed after Rows.
type CSVStream struct {
	Header <-chan []string
	Rows   <-chan []string
	Err    <-chan error
}

// StreamCSV starts parsing r. The caller must drain Rows or cancel ctx.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) *CSVStream {
	header := make(chan []string, 1)
	rows := make(chan []string, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(rows)

		cr := newCSVReader(r, opts)
		names, err := cr.Read()
		if err != nil {
			close(header)
			if err != io.EOF {
				errs <- eris.Wrap(err, "csv: read header")
			}
			return
		}
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
		header <- names
		close(header)

		for {
			if err := ctx.Err(); err != nil {
				errs <- eris.Wrap(err, "csv: cancelled")
				return
			}
			rec, err := cr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errs <- eris.Wrap(err, "csv: read row")
				return
			}
			select {
			case rows <- rec:
			case <-ctx.Done():
				errs <- eris.Wrap(ctx.Err(), "csv: cancelled")
				return
			}
		}
	}()

	return &CSVStream{Header: header, Rows: rows, Err: errs}
}

func newCSVReader(r io.Reader, opts CSVOptions) *csv.Reader {
	if opts.Encoding != nil {
		r = opts.Encoding.NewDecoder().Reader(r)
	}
	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.LazyQuotes = opts.LazyQuotes
	// CVM files occasionally carry trailing separators on some rows.
	cr.FieldsPerRecord = -1
	return cr
}
