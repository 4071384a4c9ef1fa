package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/cvm-report/internal/cvm"
	"github.com/sells-group/cvm-report/internal/report"
)

const cannedReport = `{"report": "## Visão Geral\nEmpresa sólida.", "financial_summary": {"Ativo Total": 1100, "Ativo Circulante": 400}}`

func TestRunListing(t *testing.T) {
	portal := newTestPortal(t)
	env, err := initEnv(context.Background(), testConfig(t, portal.srv.URL+"/"), "fetch")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runListing(context.Background(), &out, env, "itr"))

	got := lines(out.String())
	require.Len(t, got, 4)
	assert.Contains(t, got[0], "ARCHIVE")
	assert.Contains(t, got[2], "itr_cia_aberta_2022.zip")
	assert.Contains(t, got[2], "2022")
	assert.Contains(t, got[3], "itr_cia_aberta_2023.zip")
}

func TestRunListing_UnknownDocType(t *testing.T) {
	portal := newTestPortal(t)
	env, err := initEnv(context.Background(), testConfig(t, portal.srv.URL+"/"), "fetch")
	require.NoError(t, err)

	err = runListing(context.Background(), &bytes.Buffer{}, env, "DFP")
	assert.ErrorIs(t, err, cvm.ErrUnknownDocType)
}

func TestRunProcess(t *testing.T) {
	portal := newTestPortal(t)
	c := testConfig(t, portal.srv.URL+"/")
	env, err := initEnv(context.Background(), c, "fetch")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runProcess(context.Background(), &out, env, "ITR", "2023"))

	dir := filepath.Join(c.CVM.DataDir, "ITR", "2023")
	assert.Contains(t, out.String(), dir)
	assert.FileExists(t, filepath.Join(dir, "itr_cia_aberta_BPA_con_2023.csv"))
	assert.Equal(t, int32(1), portal.archiveHits.Load())
}

func TestRunProcess_NoArchiveForYear(t *testing.T) {
	portal := newTestPortal(t)
	env, err := initEnv(context.Background(), testConfig(t, portal.srv.URL+"/"), "fetch")
	require.NoError(t, err)

	err = runProcess(context.Background(), &bytes.Buffer{}, env, "ITR", "2015")
	assert.ErrorIs(t, err, cvm.ErrArchiveNotFound)
}

func TestRunStatements_JSON(t *testing.T) {
	portal := newTestPortal(t)
	env, err := initEnv(context.Background(), testConfig(t, portal.srv.URL+"/"), "fetch")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runStatements(context.Background(), &out, env, statementsQuery{
		CNPJ: testCNPJ, DocType: "itr", Year: "2023", Format: "json",
	}))

	var got struct {
		CompanyCNPJ string                         `json:"company_cnpj"`
		DocType     string                         `json:"doc_type"`
		Year        int                            `json:"year"`
		Statements  map[string][]map[string]string `json:"statements"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, testCNPJ, got.CompanyCNPJ)
	assert.Equal(t, "ITR", got.DocType)
	assert.Equal(t, 2023, got.Year)
	require.Len(t, got.Statements["BPA"], 2)
	assert.Equal(t, "1100", got.Statements["BPA"][0]["VL_CONTA"])
	assert.Equal(t, "PETRÓLEO BRASILEIRO S.A.", got.Statements["BPA"][0]["DENOM_CIA"])
}

func TestRunStatements_YAML(t *testing.T) {
	portal := newTestPortal(t)
	env, err := initEnv(context.Background(), testConfig(t, portal.srv.URL+"/"), "fetch")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runStatements(context.Background(), &out, env, statementsQuery{
		CNPJ: testCNPJ, DocType: "ITR", Year: "2023", Statements: []string{"BPA"}, Format: "yaml",
	}))

	var got struct {
		CompanyCNPJ string                         `yaml:"company_cnpj"`
		Statements  map[string][]map[string]string `yaml:"statements"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, testCNPJ, got.CompanyCNPJ)
	require.Len(t, got.Statements["BPA"], 2)
	assert.Equal(t, "Ativo Circulante", got.Statements["BPA"][1]["DS_CONTA"])
}

func TestRunStatements_UnknownCompany(t *testing.T) {
	portal := newTestPortal(t)
	env, err := initEnv(context.Background(), testConfig(t, portal.srv.URL+"/"), "fetch")
	require.NoError(t, err)

	err = runStatements(context.Background(), &bytes.Buffer{}, env, statementsQuery{
		CNPJ: "00.000.000/0001-00", DocType: "ITR", Year: "2023", Format: "json",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no financial data")
}

func TestRunStatements_PortalDown(t *testing.T) {
	c := testConfig(t, "http://127.0.0.1:1/")
	env, err := initEnv(context.Background(), c, "fetch")
	require.NoError(t, err)

	err = runStatements(context.Background(), &bytes.Buffer{}, env, statementsQuery{
		CNPJ: testCNPJ, DocType: "ITR", Year: "2023", Format: "json",
	})
	assert.ErrorIs(t, err, cvm.ErrUpstream)
}

func TestRunStatements_BadFormat(t *testing.T) {
	env, err := initEnv(context.Background(), testConfig(t, ""), "fetch")
	require.NoError(t, err)

	err = runStatements(context.Background(), &bytes.Buffer{}, env, statementsQuery{
		CNPJ: testCNPJ, DocType: "ITR", Year: "2023", Format: "xml",
	})
	assert.Error(t, err)
}

func TestRunReport_Text(t *testing.T) {
	portal := newTestPortal(t)
	env, gen := newEnvWithReports(t, testConfig(t, portal.srv.URL+"/"), cannedReport)

	var out bytes.Buffer
	require.NoError(t, runReport(context.Background(), &out, env, reportQuery{
		CNPJ: testCNPJ, DocType: "ITR", Year: "2023", Format: "text",
	}))

	assert.Contains(t, out.String(), "Empresa sólida.")
	assert.Contains(t, out.String(), "Ativo Circulante")
	assert.Contains(t, out.String(), "R$ 1.10k")
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Ativo Total")
}

func TestRunReport_JSONAndChart(t *testing.T) {
	portal := newTestPortal(t)
	env, _ := newEnvWithReports(t, testConfig(t, portal.srv.URL+"/"), cannedReport)
	chartPath := filepath.Join(t.TempDir(), "summary.png")

	var out bytes.Buffer
	require.NoError(t, runReport(context.Background(), &out, env, reportQuery{
		CNPJ: testCNPJ, DocType: "ITR", Year: "2023", Format: "json", ChartPath: chartPath,
	}))

	var got reportOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, testCNPJ, got.CompanyCNPJ)
	assert.Equal(t, 2023, got.Year)
	assert.InDelta(t, 1100, got.FinancialSummary["Ativo Total"], 0.001)

	f, err := os.Open(chartPath)
	require.NoError(t, err)
	defer f.Close()
	_, err = png.Decode(f)
	require.NoError(t, err)
}

func TestRunReport_BadModelAnswer(t *testing.T) {
	portal := newTestPortal(t)
	env, _ := newEnvWithReports(t, testConfig(t, portal.srv.URL+"/"), `{"report": "só texto"}`)

	err := runReport(context.Background(), &bytes.Buffer{}, env, reportQuery{
		CNPJ: testCNPJ, DocType: "ITR", Year: "2023", Format: "text",
	})
	assert.ErrorIs(t, err, report.ErrBadResponse)
}

func TestRunReport_NotConfigured(t *testing.T) {
	env, err := initEnv(context.Background(), testConfig(t, ""), "fetch")
	require.NoError(t, err)

	err = runReport(context.Background(), &bytes.Buffer{}, env, reportQuery{
		CNPJ: testCNPJ, DocType: "ITR", Year: "2023", Format: "text",
	})
	assert.ErrorIs(t, err, report.ErrNotConfigured)
}
