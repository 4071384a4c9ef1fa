package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cvm-report/internal/chart"
	"github.com/sells-group/cvm-report/internal/cvm"
	"github.com/sells-group/cvm-report/internal/report"
)

type processResponse struct {
	Message       string `json:"message"`
	ExtractedPath string `json:"extracted_path"`
}

type statementsResponse struct {
	CompanyCNPJ string                   `json:"company_cnpj"`
	DocType     string                   `json:"doc_type"`
	Year        int                      `json:"year"`
	Statements  cvm.ResolvedStatementSet `json:"statements"`
}

type reportRequest struct {
	CNPJ    string `json:"cnpj"`
	Year    int    `json:"year"`
	DocType string `json:"doc_type"`
}

type reportResponse struct {
	CompanyCNPJ      string             `json:"company_cnpj"`
	Year             int                `json:"year"`
	Report           string             `json:"report"`
	FinancialSummary map[string]float64 `json:"financial_summary"`
}

type chartRequest struct {
	FinancialSummary map[string]float64 `json:"financial_summary"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": WelcomeMessage})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleProcess locates the archive for a document type and year and extracts it.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	doc, err := parseDocType(chi.URLParam(r, "doc_type"))
	if err != nil {
		writeValidationError(w, err)
		return
	}
	year, err := parseYear(chi.URLParam(r, "year"))
	if err != nil {
		writeValidationError(w, err)
		return
	}

	name, err := s.deps.Finder.Find(r.Context(), doc, year)
	switch {
	case eris.Is(err, cvm.ErrNoArchives):
		writeError(w, http.StatusNotFound, fmt.Sprintf("Nenhum arquivo encontrado para %s.", doc))
		return
	case eris.Is(err, cvm.ErrArchiveNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("Nenhum arquivo encontrado para %s no ano de %d.", doc, year))
		return
	case err != nil:
		zap.L().Error("api: listing failed", zap.String("doc_type", string(doc)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Falha ao consultar os arquivos disponíveis para %s.", doc))
		return
	}

	path, err := s.deps.Materializer.Materialize(r.Context(), doc, name)
	if err != nil {
		zap.L().Error("api: materialize failed", zap.String("archive", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Falha ao baixar ou descompactar o arquivo %s.", name))
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		Message:       "Processamento concluído com sucesso.",
		ExtractedPath: path,
	})
}

// handleStatements returns the company's latest rows per statement.
func (s *Server) handleStatements(w http.ResponseWriter, r *http.Request) {
	cnpj, err := parseCNPJ(chi.URLParam(r, "cnpj"))
	if err != nil {
		writeValidationError(w, err)
		return
	}
	doc, err := parseDocType(chi.URLParam(r, "doc_type"))
	if err != nil {
		writeValidationError(w, err)
		return
	}
	year, err := parseYear(chi.URLParam(r, "year"))
	if err != nil {
		writeValidationError(w, err)
		return
	}

	res := s.deps.Resolver.Resolve(r.Context(), string(doc), year, cnpj, parseStatements(r.URL.Query()["statements"]))
	if !writeResolutionError(w, res, cnpj, doc, year) {
		return
	}

	writeJSON(w, http.StatusOK, statementsResponse{
		CompanyCNPJ: cnpj,
		DocType:     string(doc),
		Year:        year,
		Statements:  res.Statements,
	})
}

// handleGenerateReport resolves every statement for the company and asks
// the configured model for an analysis.
func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cnpj, err := parseCNPJ(req.CNPJ)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	doc, err := parseDocType(req.DocType)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	if err := checkYear(req.Year); err != nil {
		writeValidationError(w, err)
		return
	}

	if s.deps.Reports == nil {
		writeError(w, http.StatusServiceUnavailable, "Serviço de IA não configurado.")
		return
	}

	res := s.deps.Resolver.Resolve(r.Context(), string(doc), req.Year, cnpj, nil)
	if !writeResolutionError(w, res, cnpj, doc, req.Year) {
		return
	}

	rep, err := s.deps.Reports.Generate(r.Context(), report.Subject{
		CompanyID: cnpj,
		DocType:   string(doc),
		Year:      req.Year,
	}, res.Statements)
	if err != nil {
		zap.L().Error("api: report generation failed", zap.String("cnpj", cnpj), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Ocorreu um erro no serviço de IA ao tentar gerar a análise.")
		return
	}

	writeJSON(w, http.StatusOK, reportResponse{
		CompanyCNPJ:      cnpj,
		Year:             req.Year,
		Report:           rep.Text,
		FinancialSummary: rep.FinancialSummary,
	})
}

// handleChart renders a financial summary as a PNG bar chart.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	var req chartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.FinancialSummary) == 0 {
		writeValidationError(w, &validationError{field: "financial_summary", msg: "não pode ser vazio"})
		return
	}

	png, err := chart.RenderSummary(req.FinancialSummary)
	if err != nil {
		zap.L().Error("api: chart rendering failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Falha ao gerar o gráfico.")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// writeResolutionError maps a non-OK resolution to 404 or 500 and reports
// whether the caller may continue.
func writeResolutionError(w http.ResponseWriter, res *cvm.Resolution, cnpj string, doc cvm.DocType, year int) bool {
	switch res.Status {
	case cvm.StatusOK:
		return true
	case cvm.StatusFetchFailed:
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("Falha ao obter os arquivos da CVM para %s de %d.", doc, year))
	default:
		writeError(w, http.StatusNotFound,
			fmt.Sprintf("Não foi possível encontrar dados financeiros para o CNPJ %s para %s de %d.", cnpj, doc, year))
	}
	return false
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verr *validationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusUnprocessableEntity, verr.Error())
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
