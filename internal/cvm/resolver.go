package cvm

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status classifies the outcome of a resolution.
type Status int

const (
	// StatusOK means at least one statement resolved.
	StatusOK Status = iota
	// StatusEmpty means there is no data for the request: no archive for the
	// period, no statement files, or no rows for the company.
	StatusEmpty
	// StatusFetchFailed means the archive could not be listed, downloaded, or extracted.
	StatusFetchFailed
)

// String returns the human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusFetchFailed:
		return "fetch_failed"
	default:
		return "unknown"
	}
}

// ResolvedStatementSet maps statement names to one company's reduced rows.
type ResolvedStatementSet map[Statement]*StatementTable

// Names returns the resolved statement names in filename-table order.
func (s ResolvedStatementSet) Names() []Statement {
	var out []Statement
	for _, name := range KnownStatements() {
		if _, ok := s[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Resolution is the result of Resolver.Resolve. Statements is never nil.
type Resolution struct {
	Status     Status
	Statements ResolvedStatementSet
	// Err holds the underlying cause for StatusFetchFailed and for StatusEmpty
	// when no archive was found.
	Err error
}

// ArchiveFinder locates the archive holding a document type and year.
type ArchiveFinder interface {
	Find(ctx context.Context, doc DocType, year int) (string, error)
}

// ArchiveMaterializer extracts an archive into the local store.
type ArchiveMaterializer interface {
	Materialize(ctx context.Context, doc DocType, fileName string) (string, error)
}

// Resolver produces the authoritative statement rows for one company.
type Resolver struct {
	store        *Store
	finder       ArchiveFinder
	materializer ArchiveMaterializer
	concurrency  int
}

// NewResolver creates a Resolver over the given store and archive collaborators.
func NewResolver(store *Store, finder ArchiveFinder, materializer ArchiveMaterializer) *Resolver {
	return &Resolver{
		store:        store,
		finder:       finder,
		materializer: materializer,
		concurrency:  4,
	}
}

// Resolve returns the given company's rows for each requested statement,
// downloading the (docType, year) archive first when it is not stored locally.
// A nil or empty statements list selects every known statement; unknown names
// are logged and skipped. Statements whose file is missing, unreadable, or has
// no rows for companyID are omitted.
func (r *Resolver) Resolve(ctx context.Context, docType string, year int, companyID string, statements []string) *Resolution {
	res := &Resolution{Statements: make(ResolvedStatementSet)}
	log := zap.L().With(
		zap.String("component", "cvm.resolver"),
		zap.String("doc_type", docType),
		zap.Int("year", year),
		zap.String("cnpj", companyID),
	)

	doc, err := ParseDocType(docType)
	if err != nil {
		log.Warn("rejecting document type", zap.Error(err))
		res.Status = StatusEmpty
		res.Err = err
		return res
	}

	if status, err := r.ensureAvailable(ctx, doc, year); err != nil {
		log.Warn("statements unavailable", zap.Stringer("status", status), zap.Error(err))
		res.Status = status
		res.Err = err
		return res
	}

	selected := selectStatements(statements, log)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(r.concurrency)
	for _, st := range selected {
		g.Go(func() error {
			table := r.resolveStatement(ctx, doc, year, companyID, st, log)
			if table == nil {
				return nil
			}
			mu.Lock()
			res.Statements[st] = table
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(res.Statements) == 0 {
		log.Info("no statement data for company")
		res.Status = StatusEmpty
		return res
	}

	log.Info("statements resolved", zap.Int("count", len(res.Statements)))
	res.Status = StatusOK
	return res
}

// ensureAvailable materializes the archive for doc and year unless its directory already exists.
func (r *Resolver) ensureAvailable(ctx context.Context, doc DocType, year int) (Status, error) {
	if r.store.Has(doc, year) {
		return StatusOK, nil
	}

	zap.L().Info("data not stored locally, downloading",
		zap.String("doc_type", string(doc)),
		zap.Int("year", year),
	)

	archive, err := r.finder.Find(ctx, doc, year)
	switch {
	case err == nil:
	case IsNotFound(err):
		return StatusEmpty, err
	default:
		return StatusFetchFailed, err
	}

	if _, err := r.materializer.Materialize(ctx, doc, archive); err != nil {
		return StatusFetchFailed, err
	}
	return StatusOK, nil
}

func (r *Resolver) resolveStatement(ctx context.Context, doc DocType, year int, companyID string, st Statement, log *zap.Logger) *StatementTable {
	log = log.With(zap.String("statement", string(st)))

	path := r.store.StatementPath(doc, year, st)
	if _, err := os.Stat(path); err != nil {
		log.Warn("statement file not found, skipping", zap.String("path", path))
		return nil
	}

	company, err := ReadTable(ctx, path, ForCompany(companyID))
	if err != nil {
		log.Warn("could not read statement, skipping", zap.Error(err))
		return nil
	}

	if company.Len() == 0 {
		log.Debug("no rows for company", zap.String("path", path))
		return nil
	}

	latest := company.LatestByAccount()
	log.Debug("statement resolved",
		zap.Int("company_rows", company.Len()),
		zap.Int("rows", latest.Len()),
	)
	return latest
}

func selectStatements(names []string, log *zap.Logger) []Statement {
	if len(names) == 0 {
		return KnownStatements()
	}
	var out []Statement
	for _, name := range names {
		st, ok := ParseStatement(name)
		if !ok {
			log.Warn("unknown statement, ignoring", zap.String("statement", name))
			continue
		}
		out = append(out, st)
	}
	return out
}
