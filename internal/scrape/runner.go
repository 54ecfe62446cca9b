// Package scrape collects internship postings from job search pages and
// stores the new ones.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"internflow-engine/internal/domain"
	"internflow-engine/internal/metrics"

	"golang.org/x/sync/errgroup"
)

// JobSink stores scraped postings; added is false for a URL already stored.
type JobSink interface {
	AddJobPost(ctx context.Context, j domain.NewJobPost) (id int64, added bool, err error)
}

type Config struct {
	SearchURLs        []string
	MaxPerSource      int
	RequestsPerSecond float64
	UserAgent         string
	Timeout           time.Duration
	// Parallel bounds concurrent page fetches.
	Parallel int
}

type Runner struct {
	sink JobSink
	hc   *http.Client
	log  *slog.Logger

	plan atomic.Pointer[plan]
}

// plan is the config a run works from, with the limiter built for it.
type plan struct {
	cfg     Config
	limiter *HostLimiter
}

func (c Config) withDefaults() Config {
	if c.MaxPerSource <= 0 {
		c.MaxPerSource = 10
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 0.5
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.Parallel <= 0 {
		c.Parallel = 4
	}
	return c
}

func NewRunner(cfg Config, sink JobSink, hc *http.Client, log *slog.Logger) *Runner {
	if hc == nil {
		hc = &http.Client{}
	}
	if log == nil {
		log = slog.Default()
	}
	r := &Runner{sink: sink, hc: hc, log: log.With("component", "scrape")}
	r.Reconfigure(cfg)
	return r
}

// Reconfigure replaces the search config for the next run. Host budgets
// carry over unless the request rate changed.
func (r *Runner) Reconfigure(cfg Config) {
	cfg = cfg.withDefaults()
	next := &plan{cfg: cfg}
	if cur := r.plan.Load(); cur != nil && cur.cfg.RequestsPerSecond == cfg.RequestsPerSecond {
		next.limiter = cur.limiter
	} else {
		next.limiter = NewHostLimiter(cfg.RequestsPerSecond, 1)
	}
	r.plan.Store(next)
}

// Config returns the config the next run uses.
func (r *Runner) Config() Config { return r.plan.Load().cfg }

type Result struct {
	Found  int                 `json:"found"`
	Added  int                 `json:"newJobsFound"`
	Jobs   []domain.NewJobPost `json:"jobs"`
	Errors []string            `json:"errors,omitempty"`
}

// Run scrapes every search URL. A page that fails is reported in
// Result.Errors and does not stop the others; only a store outage aborts
// the run.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	p := r.plan.Load()
	res := Result{Jobs: []domain.NewJobPost{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Parallel)

	for _, raw := range p.cfg.SearchURLs {
		g.Go(func() error {
			posts, err := r.fetchPage(gctx, p, raw)
			if err != nil {
				metrics.ScrapeErrors.WithLabelValues(SourceLinkedIn).Inc()
				r.log.WarnContext(gctx, "scrape page failed", "url", raw, "err", err)
				mu.Lock()
				res.Errors = append(res.Errors, err.Error())
				mu.Unlock()
				return nil
			}

			for _, post := range posts {
				_, added, err := r.sink.AddJobPost(gctx, post)
				if err != nil {
					return fmt.Errorf("store job post %s: %w", post.URL, err)
				}
				result := "duplicate"
				mu.Lock()
				res.Found++
				if added {
					result = "added"
					res.Added++
					res.Jobs = append(res.Jobs, post)
				}
				mu.Unlock()
				metrics.JobPostsScraped.WithLabelValues(post.Source, result).Inc()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}
	r.log.InfoContext(ctx, "scrape finished", "found", res.Found, "added", res.Added, "errors", len(res.Errors))
	return res, nil
}

func (r *Runner) fetchPage(ctx context.Context, p *plan, raw string) ([]domain.NewJobPost, error) {
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("bad search url %q: %w", raw, err)
	}
	if err := p.limiter.WaitURL(ctx, raw); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)

	res, err := r.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", base.Host, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("get %s: status %d", base.Host, res.StatusCode)
	}

	return ParseLinkedInSearch(res.Body, base, p.cfg.MaxPerSource)
}
