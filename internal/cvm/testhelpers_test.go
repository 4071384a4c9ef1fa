package cvm

import (
	"archive/zip"
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/sells-group/cvm-report/internal/fetcher"
)

const (
	testCNPJ  = "33.000.167/0001-01"
	otherCNPJ = "60.746.948/0001-12"
)

const statementHeader = "CNPJ_CIA;DT_REFER;VERSAO;DENOM_CIA;ORDEM_EXERC;DT_FIM_EXERC;CD_CONTA;DS_CONTA;VL_CONTA"

// csvRow holds the columns of a statement row that tests care about.
type csvRow struct {
	cnpj, version, periodEnd, code, desc, value string
}

func statementCSV(rows ...csvRow) string {
	var sb strings.Builder
	sb.WriteString(statementHeader + "\n")
	for _, r := range rows {
		fmt.Fprintf(&sb, "%s;%s;%s;EMPRESA TESTE S.A.;ÚLTIMO;%s;%s;%s;%s\n",
			r.cnpj, r.periodEnd, r.version, r.periodEnd, r.code, r.desc, r.value)
	}
	return sb.String()
}

func latin1(t *testing.T, s string) []byte {
	t.Helper()
	out, err := charmap.ISO8859_1.NewEncoder().String(s)
	require.NoError(t, err)
	return []byte(out)
}

// buildZIP returns an in-memory ZIP whose members are ISO-8859-1 encoded.
func buildZIP(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write(latin1(t, content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func writeLatin1(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, latin1(t, content), 0o644))
}

// fakePortal serves directory listings and archives the way dados.cvm.gov.br does.
type fakePortal struct {
	srv         *httptest.Server
	listingHits atomic.Int32
	archiveHits atomic.Int32

	listings map[DocType][]string
	archives map[string][]byte
	// release, when non-nil, holds archive responses until closed.
	release chan struct{}
	down    atomic.Bool
}

func newFakePortal(t *testing.T) *fakePortal {
	t.Helper()
	p := &fakePortal{
		listings: make(map[DocType][]string),
		archives: make(map[string][]byte),
	}
	p.srv = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *fakePortal) addArchive(doc DocType, name string, data []byte) {
	p.listings[doc] = append(p.listings[doc], name)
	p.archives[doc.DataPath()+name] = data
}

func (p *fakePortal) serve(w http.ResponseWriter, r *http.Request) {
	if p.down.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/")
	for doc, names := range p.listings {
		if path == doc.DataPath() {
			p.listingHits.Add(1)
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html><head><title>Index</title></head><body><pre>\n")
			fmt.Fprint(w, `<a href="../">../</a>`+"\n")
			fmt.Fprint(w, `<a href="README.txt">README.txt</a>`+"\n")
			for _, name := range names {
				fmt.Fprintf(w, "<a href=\"%s\">%s</a>  01-Jan-2024 10:00  1M\n", name, name)
			}
			fmt.Fprint(w, "</pre></body></html>")
			return
		}
	}
	if data, ok := p.archives[path]; ok {
		p.archiveHits.Add(1)
		if p.release != nil {
			<-p.release
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Write(data) //nolint:errcheck
		return
	}
	http.NotFound(w, r)
}

func (p *fakePortal) baseURL() string { return p.srv.URL + "/" }

func newTestHTTPFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent: "test-agent",
		Timeout:   5 * time.Second,
	})
}

// testEnv wires a store, locator, materializer and resolver against a fake portal.
type testEnv struct {
	portal       *fakePortal
	store        *Store
	locator      *Locator
	materializer *Materializer
	resolver     *Resolver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	portal := newFakePortal(t)
	f := newTestHTTPFetcher()
	store := NewStore(t.TempDir())
	locator := NewLocator(f, portal.baseURL(), 5*time.Second)
	materializer := NewMaterializer(f, store, portal.baseURL(), 5*time.Second)
	return &testEnv{
		portal:       portal,
		store:        store,
		locator:      locator,
		materializer: materializer,
		resolver:     NewResolver(store, locator, materializer),
	}
}
