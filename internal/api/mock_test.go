package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/cvm-report/internal/cvm"
	"github.com/sells-group/cvm-report/internal/report"
)

// --- Archive finder mock ---

type mockFinder struct {
	mock.Mock
}

func (m *mockFinder) Find(ctx context.Context, doc cvm.DocType, year int) (string, error) {
	args := m.Called(ctx, doc, year)
	return args.String(0), args.Error(1)
}

// --- Materializer mock ---

type mockMaterializer struct {
	mock.Mock
}

func (m *mockMaterializer) Materialize(ctx context.Context, doc cvm.DocType, fileName string) (string, error) {
	args := m.Called(ctx, doc, fileName)
	return args.String(0), args.Error(1)
}

// --- Resolver mock ---

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, docType string, year int, companyID string, statements []string) *cvm.Resolution {
	args := m.Called(ctx, docType, year, companyID, statements)
	return args.Get(0).(*cvm.Resolution)
}

// --- Report generator mock ---

type mockReports struct {
	mock.Mock
}

func (m *mockReports) Generate(ctx context.Context, subject report.Subject, set cvm.ResolvedStatementSet) (*report.Report, error) {
	args := m.Called(ctx, subject, set)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.Report), args.Error(1)
}
