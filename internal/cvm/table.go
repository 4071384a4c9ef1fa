package cvm

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Column names interpreted by the resolver. Every other column is carried through untouched.
const (
	ColCompanyID   = "CNPJ_CIA"
	ColAccountCode = "CD_CONTA"
	ColAccountDesc = "DS_CONTA"
	ColValue       = "VL_CONTA"
	ColVersion     = "VERSAO"
	ColPeriodEnd   = "DT_FIM_EXERC"
)

var requiredColumns = []string{ColCompanyID, ColAccountCode, ColVersion, ColPeriodEnd}

const periodLayout = "2006-01-02"

// columns maps column names to positions within a row.
type columns struct {
	names []string
	pos   map[string]int
}

func newColumns(header []string) *columns {
	c := &columns{names: header, pos: make(map[string]int, len(header))}
	for i, name := range header {
		c.pos[name] = i
	}
	return c
}

// StatementRow is one row of a statement CSV.
type StatementRow struct {
	CompanyID          string
	AccountCode        string
	AccountDescription string
	Value              decimal.Decimal
	Version            int
	PeriodEnd          time.Time

	cols   *columns
	values []string
}

func newStatementRow(cols *columns, values []string) StatementRow {
	r := StatementRow{cols: cols, values: values}
	r.CompanyID = r.Field(ColCompanyID)
	r.AccountCode = r.Field(ColAccountCode)
	r.AccountDescription = r.Field(ColAccountDesc)
	r.Value = parseDecimalOr(r.Field(ColValue), decimal.Zero)
	r.Version = parseIntOr(r.Field(ColVersion), 0)
	r.PeriodEnd = parseDateOr(r.Field(ColPeriodEnd), time.Time{})
	return r
}

// Field returns the raw value of the named column, or "" when absent.
func (r StatementRow) Field(name string) string {
	if r.cols == nil {
		return ""
	}
	i, ok := r.cols.pos[name]
	if !ok || i >= len(r.values) {
		return ""
	}
	return r.values[i]
}

// Fields returns every column of the row keyed by column name.
func (r StatementRow) Fields() map[string]string {
	out := make(map[string]string, len(r.values))
	if r.cols == nil {
		return out
	}
	for i, name := range r.cols.names {
		if i < len(r.values) {
			out[name] = r.values[i]
		}
	}
	return out
}

// MarshalJSON encodes the row as an object of column name to raw value.
func (r StatementRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

// MarshalYAML encodes the row as a mapping of column name to raw value.
func (r StatementRow) MarshalYAML() (any, error) {
	return r.Fields(), nil
}

// StatementTable is a statement CSV loaded in memory.
type StatementTable struct {
	Columns []string
	Rows    []StatementRow
}

// Len returns the number of rows.
func (t *StatementTable) Len() int { return len(t.Rows) }

// MarshalJSON encodes the table as a list of row objects.
func (t *StatementTable) MarshalJSON() ([]byte, error) {
	if t.Rows == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.Rows)
}

// MarshalYAML encodes the table as a sequence of row mappings.
func (t *StatementTable) MarshalYAML() (any, error) {
	return t.Rows, nil
}

func (t *StatementTable) derive(rows []StatementRow) *StatementTable {
	return &StatementTable{Columns: t.Columns, Rows: rows}
}

// LatestByAccount reduces rows per account code in two stages: keep rows at the
// group's highest version, then among those keep rows at the latest period end.
// Rows tied on both maxima all survive. Input order is preserved.
func (t *StatementTable) LatestByAccount() *StatementTable {
	maxVersion := make(map[string]int)
	for _, r := range t.Rows {
		if v, ok := maxVersion[r.AccountCode]; !ok || r.Version > v {
			maxVersion[r.AccountCode] = r.Version
		}
	}

	maxPeriod := make(map[string]time.Time)
	for _, r := range t.Rows {
		if r.Version != maxVersion[r.AccountCode] {
			continue
		}
		if p, ok := maxPeriod[r.AccountCode]; !ok || r.PeriodEnd.After(p) {
			maxPeriod[r.AccountCode] = r.PeriodEnd
		}
	}

	rows := make([]StatementRow, 0, len(maxPeriod))
	for _, r := range t.Rows {
		if r.Version == maxVersion[r.AccountCode] && r.PeriodEnd.Equal(maxPeriod[r.AccountCode]) {
			rows = append(rows, r)
		}
	}
	return t.derive(rows)
}

// parseIntOr parses s as an integer, returning def if parsing fails or s is empty.
func parseIntOr(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// parseDecimalOr parses s as a decimal, returning def if parsing fails or s is empty.
func parseDecimalOr(s string, def decimal.Decimal) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return def
	}
	return v
}

// parseDateOr parses s as YYYY-MM-DD, returning def if parsing fails.
func parseDateOr(s string, def time.Time) time.Time {
	v, err := time.Parse(periodLayout, strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}
