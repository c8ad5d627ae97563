// Package control wires the pool, retry controller, driver, extractor,
// deduplicator and writers into one scraping run.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"placewatch/internal/browser"
	"placewatch/internal/core/config"
	"placewatch/internal/core/domain"
	"placewatch/internal/dedup"
	"placewatch/internal/extract"
	"placewatch/internal/metrics"
	"placewatch/internal/output"
	"placewatch/internal/proxy"
	"placewatch/internal/scrape"
)

// Runner owns all state for one scraping run. Nothing in here is shared
// across runs; independent keyword/location pairs run as independent
// processes.
type Runner struct {
	cfg        *config.AppConfig
	run        domain.Run
	pool       *proxy.Pool
	controller *scrape.Controller
	driver     *browser.Driver
	extractor  *extract.Extractor
	dedup      *dedup.Deduplicator
	writer     *output.Multi

	session *browser.Session
}

// NewRunner validates configuration and assembles a run.
func NewRunner(ctx context.Context, cfg *config.AppConfig) (*Runner, error) {
	if strings.TrimSpace(cfg.Search.Keyword) == "" || strings.TrimSpace(cfg.Search.Location) == "" {
		return nil, fmt.Errorf("keyword and location are required")
	}

	var pool *proxy.Pool
	if cfg.Proxy.RotationEnabled {
		if cfg.Proxy.File == "" {
			return nil, fmt.Errorf("identity rotation requested: %w", proxy.ErrNoIdentities)
		}
		p, err := proxy.LoadFile(cfg.Proxy.File, cfg.Proxy.DeadThreshold)
		if err != nil {
			return nil, fmt.Errorf("identity rotation requested: %w", err)
		}
		pool = p
	}

	controller := scrape.NewController(pool, scrape.RetryOptions{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialDelay:    cfg.Retry.InitialDelay(),
		MaxDelay:        cfg.Retry.MaxDelay(),
		BackoffMultiple: cfg.Retry.BackoffMultiple,
		RotateEvery:     cfg.Proxy.RotateEvery,
	})

	writer, err := buildWriters(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:        cfg,
		run:        domain.NewRun(cfg.Search.Keyword, cfg.Search.Location),
		pool:       pool,
		controller: controller,
		driver:     browser.NewDriver(cfg.Browser, cfg.Selectors),
		extractor: extract.NewExtractor(extract.Blacklist{
			LocalParts: cfg.Email.Blacklist.LocalParts,
			Domains:    cfg.Email.Blacklist.Domains,
			Extensions: cfg.Email.Blacklist.Extensions,
		}),
		dedup:  dedup.New(cfg.Dedup.ToleranceMeters),
		writer: writer,
	}, nil
}

// Run executes the scraping session and reports the number of admitted
// records.
func (r *Runner) Run(ctx context.Context) (int, error) {
	slog.Info("Run starting",
		"run_id", r.run.ID,
		"keyword", r.run.Keyword,
		"location", r.run.Location,
		"max_results", r.cfg.Search.MaxResults,
		"rotation", r.pool != nil)

	var metricsSrv *metrics.Server
	if addr := r.cfg.Metrics.ListenAddr; addr != "" {
		metricsSrv = metrics.NewServer(addr)
		go func() {
			if err := metricsSrv.Start(); err != nil {
				slog.Debug("Metrics server stopped", "error", err)
			}
		}()
	}

	defer func() {
		if r.session != nil {
			r.session.Close()
		}
		if err := r.writer.Close(); err != nil {
			slog.Error("Error closing writers", "error", err)
		}
		if metricsSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Stop(shutdownCtx)
		}
		r.logSummary()
	}()

	links, err := r.collectLinks(ctx)
	if err != nil {
		return 0, err
	}

	admitted := 0
	for i, link := range links {
		if admitted >= r.cfg.Search.MaxResults {
			slog.Info("Reached max results", "max", r.cfg.Search.MaxResults)
			break
		}
		slog.Info("Processing result", "index", i+1, "total", len(links))

		parsed, err := r.scrapePlace(ctx, link)
		if err != nil {
			var failure *scrape.Failure
			if errors.As(err, &failure) && failure.Reason == scrape.ReasonRetriesExceeded {
				slog.Warn("Giving up on result", "index", i+1, "cause", failure.Error())
				continue
			}
			return admitted, err
		}

		place := r.refineEmails(ctx, parsed)

		decision := r.dedup.Admit(place)
		if !decision.Admitted {
			slog.Debug("Duplicate rejected",
				"name", place.Name,
				"existing", decision.Duplicate.Name)
			continue
		}

		if err := r.writer.Write(place); err != nil {
			return admitted, fmt.Errorf("failed to write record: %w", err)
		}
		admitted++
		slog.Info("Admitted place", "name", place.Name, "emails", place.EmailColumn())
	}

	return admitted, nil
}

// collectLinks runs the search operation under the retry controller and
// returns the place links to visit.
func (r *Runner) collectLinks(ctx context.Context) ([]string, error) {
	payload, err := r.controller.Execute(ctx, "search", func(ctx context.Context, ident *proxy.Identity) (any, error) {
		sess, err := r.sessionFor(ident)
		if err != nil {
			return nil, err
		}
		if err := sess.Search(ctx, r.run.Query()); err != nil {
			return nil, err
		}
		// Collect extra links to cover later duplicate rejections.
		return sess.CollectLinks(ctx, r.cfg.Search.MaxResults*2)
	})
	if err != nil {
		return nil, err
	}
	return payload.([]string), nil
}

// scrapePlace parses one place page under the retry controller.
func (r *Runner) scrapePlace(ctx context.Context, link string) (*browser.Parsed, error) {
	payload, err := r.controller.Execute(ctx, "place", func(ctx context.Context, ident *proxy.Identity) (any, error) {
		sess, err := r.sessionFor(ident)
		if err != nil {
			return nil, err
		}
		return sess.ParsePlace(ctx, link)
	})
	if err != nil {
		return nil, err
	}
	return payload.(*browser.Parsed), nil
}

// refineEmails finalizes the record's email set from the place page and,
// when enabled, the business website.
func (r *Runner) refineEmails(ctx context.Context, parsed *browser.Parsed) *domain.Place {
	place := parsed.Place

	emails := r.extractor.Extract(parsed.Text)
	extract.Merge(emails, r.extractor.ExtractHTML(parsed.HTML))

	if r.cfg.Email.CrawlWebsites && place.Website != "" && r.session != nil {
		blobs := r.session.FetchWebsite(ctx, place.Website, r.cfg.Email.MaxContactLinks)
		for _, blob := range blobs {
			extract.Merge(emails, r.extractor.ExtractHTML(blob))
		}
	}

	place.SetEmails(emails)
	return &place
}

// sessionFor returns a live session bound to the identity, relaunching
// the browser when the identity changed since the last operation.
func (r *Runner) sessionFor(ident *proxy.Identity) (*browser.Session, error) {
	if r.session != nil && r.session.Identity() == ident {
		return r.session, nil
	}
	if r.session != nil {
		r.session.Close()
		r.session = nil
	}
	sess, err := r.driver.Session(ident)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser session: %w", err)
	}
	r.session = sess
	return sess, nil
}

// logSummary reports run totals and per-identity diagnostics, dead
// identities included.
func (r *Runner) logSummary() {
	slog.Info("Run finished",
		"run_id", r.run.ID,
		"admitted", r.dedup.Size(),
		"elapsed", time.Since(r.run.StartedAt).Round(time.Second))

	if r.pool == nil {
		return
	}
	for _, id := range r.pool.Identities() {
		slog.Info("Identity diagnostics",
			"identity", id.Address,
			"uses", id.TotalUses,
			"consecutive_errors", id.ConsecutiveErrors,
			"dead", id.Dead)
	}
}

// buildWriters assembles the configured outputs; with nothing configured
// it falls back to timestamped CSV and JSONL files.
func buildWriters(ctx context.Context, cfg *config.AppConfig) (*output.Multi, error) {
	csvPath := cfg.Output.CSV
	jsonlPath := cfg.Output.JSONL
	if csvPath == "" && jsonlPath == "" && !cfg.Output.Postgres.Enabled() {
		base := fmt.Sprintf("results_%s_%s_%s",
			sanitize(cfg.Search.Keyword),
			sanitize(cfg.Search.Location),
			time.Now().Format("20060102_150405"))
		csvPath = base + ".csv"
		jsonlPath = base + ".jsonl"
	}

	var writers []output.Writer
	if csvPath != "" {
		w, err := output.NewCSVWriter(csvPath)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
		slog.Info("Writing CSV output", "path", csvPath)
	}
	if jsonlPath != "" {
		w, err := output.NewJSONLWriter(jsonlPath)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
		slog.Info("Writing JSONL output", "path", jsonlPath)
	}
	if cfg.Output.Postgres.Enabled() {
		w, err := output.NewPostgresWriter(ctx, cfg.Output.Postgres)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
		slog.Info("Writing to Postgres")
	}

	return output.Combine(writers...), nil
}

func sanitize(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
}
