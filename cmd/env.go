package main

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/cvm-report/internal/api"
	"github.com/sells-group/cvm-report/internal/config"
	"github.com/sells-group/cvm-report/internal/cvm"
	"github.com/sells-group/cvm-report/internal/fetcher"
	"github.com/sells-group/cvm-report/internal/report"
)

// appEnv holds the components shared by every command.
type appEnv struct {
	Store        *cvm.Store
	Locator      *cvm.Locator
	Materializer *cvm.Materializer
	Resolver     *cvm.Resolver
	// Synthesizer is nil when no LLM provider is configured.
	Synthesizer *report.Synthesizer
}

// initEnv validates c for mode and wires the fetcher, store, locator,
// materializer, resolver, and (when configured) the report synthesizer.
func initEnv(ctx context.Context, c *config.Config, mode string) (*appEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    c.CVM.UserAgent,
		Timeout:      secs(c.CVM.DownloadTimeoutSecs),
		MaxAttempts:  c.CVM.MaxRetries + 1,
		RateLimiters: portalLimiters(c.CVM),
	})

	store := cvm.NewStore(c.CVM.DataDir)
	locator := cvm.NewLocator(f, c.CVM.BaseURL, secs(c.CVM.ListingTimeoutSecs))
	materializer := cvm.NewMaterializer(f, store, c.CVM.BaseURL, secs(c.CVM.DownloadTimeoutSecs))

	env := &appEnv{
		Store:        store,
		Locator:      locator,
		Materializer: materializer,
		Resolver:     cvm.NewResolver(store, locator, materializer),
	}

	if mode == "report" || c.LLMConfigured() {
		gen, err := report.NewGenerator(ctx, c)
		switch {
		case err == nil:
			env.Synthesizer = report.NewSynthesizer(gen,
				report.WithTimeout(secs(c.LLM.TimeoutSecs)),
				report.WithMaxPromptBytes(c.LLM.MaxPromptBytes),
			)
		case mode == "report":
			return nil, eris.Wrap(err, "init report generator")
		default:
			zap.L().Warn("report generation disabled", zap.Error(err))
		}
	}

	zap.L().Debug("environment ready",
		zap.String("mode", mode),
		zap.String("data_dir", store.Root()),
		zap.Bool("reports", env.Synthesizer != nil),
	)
	return env, nil
}

// apiDeps adapts the environment to the HTTP handlers.
func (e *appEnv) apiDeps(corsOrigins []string) api.Deps {
	deps := api.Deps{
		Finder:       e.Locator,
		Materializer: e.Materializer,
		Resolver:     e.Resolver,
		CORSOrigins:  corsOrigins,
	}
	if e.Synthesizer != nil {
		deps.Reports = e.Synthesizer
	}
	return deps
}

// portalLimiters returns a rate limiter for the configured portal host.
// A zero rate leaves the portal unthrottled.
func portalLimiters(c config.CVMConfig) map[string]*rate.Limiter {
	base := c.BaseURL
	if base == "" {
		base = cvm.DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Hostname() == "" {
		return fetcher.DefaultRateLimiters()
	}
	if c.RateLimit <= 0 {
		return map[string]*rate.Limiter{u.Hostname(): rate.NewLimiter(rate.Inf, 1)}
	}
	burst := int(math.Ceil(c.RateLimit))
	return map[string]*rate.Limiter{u.Hostname(): rate.NewLimiter(rate.Limit(c.RateLimit), burst)}
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// parseFiling validates the <doc_type> <year> argument pair.
func parseFiling(docArg, yearArg string) (cvm.DocType, int, error) {
	doc, err := cvm.ParseDocType(docArg)
	if err != nil {
		return "", 0, err
	}
	year, err := strconv.Atoi(yearArg)
	if err != nil {
		return "", 0, eris.Errorf("invalid year %q", yearArg)
	}
	if year < api.MinYear {
		return "", 0, eris.Errorf("year must be %d or later, got %d", api.MinYear, year)
	}
	return doc, year, nil
}
