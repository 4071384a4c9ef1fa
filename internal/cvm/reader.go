package cvm

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"

	"github.com/sells-group/cvm-report/internal/fetcher"
)

type readOptions struct {
	companyID string
}

// ReadOption narrows what ReadTable keeps.
type ReadOption func(*readOptions)

// ForCompany keeps only rows whose CNPJ_CIA equals companyID exactly. Other
// rows are dropped before their values are parsed.
func ForCompany(companyID string) ReadOption {
	return func(o *readOptions) { o.companyID = companyID }
}

// ReadTable loads a ';'-delimited, ISO-8859-1 encoded CVM CSV into memory.
// It fails with ErrNotFound, ErrEmptyFile, or ErrUnreadable.
func ReadTable(ctx context.Context, path string, opts ...ReadOption) (*StatementTable, error) {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrNotFound, "%s", path)
		}
		return nil, eris.Wrapf(ErrUnreadable, "open %s: %v", path, err)
	}
	defer f.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{
		Delimiter:  ';',
		Encoding:   charmap.ISO8859_1,
		LazyQuotes: true,
	})

	header, ok := <-stream.Header
	if !ok {
		if err := <-stream.Err; err != nil {
			return nil, eris.Wrapf(ErrUnreadable, "%s: %v", path, err)
		}
		return nil, eris.Wrapf(ErrEmptyFile, "%s", path)
	}
	cols := newColumns(header)
	if err := checkColumns(cols); err != nil {
		return nil, eris.Wrapf(ErrUnreadable, "%s: %v", path, err)
	}

	idx := cols.pos[ColCompanyID]
	var rows []StatementRow
	for rec := range stream.Rows {
		if o.companyID != "" && (idx >= len(rec) || rec[idx] != o.companyID) {
			continue
		}
		rows = append(rows, newStatementRow(cols, rec))
	}
	if err := <-stream.Err; err != nil {
		return nil, eris.Wrapf(ErrUnreadable, "%s: %v", path, err)
	}

	return &StatementTable{Columns: cols.names, Rows: rows}, nil
}

func checkColumns(cols *columns) error {
	for _, name := range requiredColumns {
		if _, ok := cols.pos[name]; !ok {
			return eris.Errorf("missing column %s", name)
		}
	}
	return nil
}
