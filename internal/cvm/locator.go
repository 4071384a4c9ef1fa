package cvm

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cvm-report/internal/fetcher"
)

// DefaultBaseURL is the root of the CVM open-data portal.
const DefaultBaseURL = "https://dados.cvm.gov.br/dados/"

// Locator reads the portal's directory listings to find archive filenames.
type Locator struct {
	fetcher fetcher.Fetcher
	baseURL string
	timeout time.Duration
}

// NewLocator creates a Locator. A zero timeout means one minute.
func NewLocator(f fetcher.Fetcher, baseURL string, timeout time.Duration) *Locator {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if timeout == 0 {
		timeout = time.Minute
	}
	return &Locator{fetcher: f, baseURL: baseURL, timeout: timeout}
}

// ListingURL returns the directory listing URL for doc.
func (l *Locator) ListingURL(doc DocType) string {
	return l.baseURL + doc.DataPath()
}

// List returns the ZIP filenames advertised for docType, in listing order.
// The document type is matched case-insensitively; an unknown type fails
// with ErrUnknownDocType before any request is made.
func (l *Locator) List(ctx context.Context, docType string) ([]string, error) {
	doc, err := ParseDocType(docType)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("component", "cvm.locator"), zap.String("doc_type", string(doc)))

	listingURL := l.ListingURL(doc)
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	log.Debug("fetching directory listing", zap.String("url", listingURL))
	body, err := l.fetcher.Download(ctx, listingURL)
	if err != nil {
		log.Warn("directory listing unavailable", zap.String("url", listingURL), zap.Error(err))
		return nil, eris.Wrapf(ErrUpstream, "listing %s: %v", listingURL, err)
	}
	defer body.Close() //nolint:errcheck

	page, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, eris.Wrapf(ErrUpstream, "parse listing %s: %v", listingURL, err)
	}

	var archives []string
	page.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if strings.HasSuffix(strings.ToLower(href), ".zip") {
			archives = append(archives, href)
		}
	})

	if len(archives) == 0 {
		log.Warn("no zip archives in listing", zap.String("url", listingURL))
		return nil, eris.Wrapf(ErrNoArchives, "listing %s", listingURL)
	}

	log.Debug("listed archives", zap.Int("count", len(archives)))
	return archives, nil
}

// Find returns the first listed archive whose name contains year as a substring.
// A combined multi-year archive sharing the digits can match first; this is the
// portal's naming convention and is left as-is.
func (l *Locator) Find(ctx context.Context, doc DocType, year int) (string, error) {
	archives, err := l.List(ctx, string(doc))
	if err != nil {
		return "", err
	}
	y := strconv.Itoa(year)
	for _, name := range archives {
		if strings.Contains(name, y) {
			return name, nil
		}
	}
	return "", eris.Wrapf(ErrArchiveNotFound, "%s %d", doc, year)
}
