// Package cvm locates, materializes and resolves CVM open-data financial statements.
package cvm

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// DocType is a CVM regulatory filing category.
type DocType string

const (
	ITR DocType = "ITR" // quarterly information
	FRE DocType = "FRE" // annual reference form
)

// ParseDocType converts a case-insensitive document type into a DocType.
func ParseDocType(s string) (DocType, error) {
	switch DocType(strings.ToUpper(strings.TrimSpace(s))) {
	case ITR:
		return ITR, nil
	case FRE:
		return FRE, nil
	default:
		return "", eris.Wrapf(ErrUnknownDocType, "%q (valid: ITR, FRE)", s)
	}
}

// Lower returns the lowercase form used in CSV filenames.
func (d DocType) Lower() string {
	return strings.ToLower(string(d))
}

// DataPath returns the portal path that lists the archives for d.
func (d DocType) DataPath() string {
	return "CIA_ABERTA/DOC/" + string(d) + "/DADOS/"
}

// Statement names one financial-reporting table within a filing.
type Statement string

const (
	BPA   Statement = "BPA"    // balance sheet, assets
	BPP   Statement = "BPP"    // balance sheet, liabilities
	DRE   Statement = "DRE"    // income statement
	DFCMI Statement = "DFC_MI" // cash flow, indirect method
)

// Consolidated statement filename patterns.
var statementFiles = []struct {
	name    Statement
	pattern string
}{
	{BPA, "{doc_type}_cia_aberta_BPA_con_{year}.csv"},
	{BPP, "{doc_type}_cia_aberta_BPP_con_{year}.csv"},
	{DRE, "{doc_type}_cia_aberta_DRE_con_{year}.csv"},
	{DFCMI, "{doc_type}_cia_aberta_DFC_MI_con_{year}.csv"},
}

// KnownStatements returns every statement in the filename table, in table order.
func KnownStatements() []Statement {
	out := make([]Statement, len(statementFiles))
	for i, sf := range statementFiles {
		out[i] = sf.name
	}
	return out
}

// ParseStatement reports whether name is a known statement. Matching is exact.
func ParseStatement(name string) (Statement, bool) {
	for _, sf := range statementFiles {
		if string(sf.name) == name {
			return sf.name, true
		}
	}
	return "", false
}

// FileName returns the CSV filename holding statement s for the given document type and year.
func (s Statement) FileName(doc DocType, year int) string {
	for _, sf := range statementFiles {
		if sf.name == s {
			r := strings.NewReplacer("{doc_type}", doc.Lower(), "{year}", strconv.Itoa(year))
			return r.Replace(sf.pattern)
		}
	}
	return ""
}
