package main

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/sells-group/cvm-report/internal/config"
	"github.com/sells-group/cvm-report/internal/report"
)

const testCNPJ = "33.000.167/0001-01"

const itrBPA2023 = "CNPJ_CIA;DT_REFER;VERSAO;DENOM_CIA;ORDEM_EXERC;DT_FIM_EXERC;CD_CONTA;DS_CONTA;VL_CONTA\n" +
	testCNPJ + ";2023-09-30;1;PETRÓLEO BRASILEIRO S.A.;ÚLTIMO;2023-09-30;1;Ativo Total;1000\n" +
	testCNPJ + ";2023-09-30;2;PETRÓLEO BRASILEIRO S.A.;ÚLTIMO;2023-09-30;1;Ativo Total;1100\n" +
	testCNPJ + ";2023-09-30;2;PETRÓLEO BRASILEIRO S.A.;ÚLTIMO;2023-09-30;1.01;Ativo Circulante;400\n" +
	"60.746.948/0001-12;2023-09-30;1;BANCO BRADESCO S.A.;ÚLTIMO;2023-09-30;1;Ativo Total;9\n"

// testPortal serves one ITR listing with a 2023 archive.
type testPortal struct {
	srv         *httptest.Server
	archiveHits atomic.Int32
	archive     []byte
}

func newTestPortal(t *testing.T) *testPortal {
	t.Helper()
	p := &testPortal{archive: buildArchive(t, map[string]string{
		"itr_cia_aberta_BPA_con_2023.csv": itrBPA2023,
	})}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/CIA_ABERTA/DOC/ITR/DADOS/":
			fmt.Fprint(w, `<html><body><pre><a href="../">../</a>`+
				`<a href="itr_cia_aberta_2022.zip">itr_cia_aberta_2022.zip</a>`+
				`<a href="itr_cia_aberta_2023.zip">itr_cia_aberta_2023.zip</a></pre></body></html>`)
		case "/CIA_ABERTA/DOC/ITR/DADOS/itr_cia_aberta_2023.zip":
			p.archiveHits.Add(1)
			w.Write(p.archive) //nolint:errcheck
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func buildArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := zw.Create(name)
		require.NoError(t, err)
		encoded, err := charmap.ISO8859_1.NewEncoder().String(content)
		require.NoError(t, err)
		_, err = fw.Write([]byte(encoded))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// testConfig returns a configuration pointing at baseURL with a temporary store.
func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		CVM: config.CVMConfig{
			BaseURL:             baseURL,
			DataDir:             t.TempDir(),
			ListingTimeoutSecs:  5,
			DownloadTimeoutSecs: 5,
			UserAgent:           "cvm-report-test",
		},
		LLM:    config.LLMConfig{Provider: config.ProviderGemini, TimeoutSecs: 5},
		Gemini: config.GeminiConfig{Model: "gemini-test"},
		Server: config.ServerConfig{Port: 8000, CORSOrigins: []string{"*"}},
		Log:    config.LogConfig{Level: "info", Format: "json"},
	}
}

// cannedGenerator answers every prompt with the same text.
type cannedGenerator struct {
	answer  string
	prompts []string
}

func (g *cannedGenerator) Generate(_ context.Context, _, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.answer, nil
}

func newEnvWithReports(t *testing.T, c *config.Config, answer string) (*appEnv, *cannedGenerator) {
	t.Helper()
	env, err := initEnv(context.Background(), c, "fetch")
	require.NoError(t, err)
	gen := &cannedGenerator{answer: answer}
	env.Synthesizer = report.NewSynthesizer(gen)
	return env, gen
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}
