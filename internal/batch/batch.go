// Package batch runs several independent crawls with bounded concurrency.
//
// Each crawl stays strictly sequential inside: one request at a time with
// the configured delay. Only different crawls, usually of different sites,
// run side by side. The default concurrency is 1, which runs the jobs one
// after another.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/pagewalk/internal/model"
)

// Job is one named crawl.
type Job struct {
	// Name identifies the job in logs and results, usually the site name.
	Name string

	// Run performs the crawl. It returns the (possibly partial) result
	// and the error that ended the crawl, if any.
	Run func(ctx context.Context) (*model.CrawlResult, error)
}

// Result is the outcome of one job.
type Result struct {
	// Name is the job name.
	Name string

	// Crawl is the crawl result. It may be nil when the job never started.
	Crawl *model.CrawlResult

	// Err is the error returned by the job.
	Err error
}

// Processor runs jobs concurrently.
type Processor struct {
	// concurrency is the maximum number of concurrent jobs.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets a custom logger for batch processing.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent jobs.
// Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewProcessor creates a new Processor.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		concurrency: 1,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// Concurrency returns the configured concurrency limit.
func (p *Processor) Concurrency() int {
	return p.concurrency
}

// Process runs all jobs and returns their results in job order.
//
// A failing job does not stop the others; its error is recorded in its
// Result. When ctx is cancelled, jobs that have not started are skipped
// with ctx.Err() and Process returns ctx.Err().
func (p *Processor) Process(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))
	var mu sync.Mutex

	err := p.ProcessWithCallback(ctx, jobs, func(r Result, index int) {
		mu.Lock()
		results[index] = r
		mu.Unlock()
	})

	return results, err
}

// ProcessWithCallback runs all jobs and calls callback as each one
// finishes. This is useful for streaming results.
//
// The callback is called from the goroutine that ran the job, so it must
// be safe for concurrent use when the concurrency is above 1.
func (p *Processor) ProcessWithCallback(ctx context.Context, jobs []Job, callback func(r Result, index int)) error {
	p.logger.Info("starting batch",
		"jobs", len(jobs),
		"concurrency", p.concurrency,
	)

	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				callback(Result{Name: job.Name, Err: err}, i)
				return nil
			}

			p.logger.Info("starting crawl",
				"site", job.Name,
				"index", i+1,
				"total", len(jobs),
			)

			crawl, err := job.Run(ctx)
			if err != nil {
				p.logger.Warn("crawl failed",
					"site", job.Name,
					"error", err,
				)
			} else {
				p.logger.Info("crawl completed",
					"site", job.Name,
					"sections", crawl.Count(),
				)
			}

			callback(Result{Name: job.Name, Crawl: crawl, Err: err}, i)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // jobs never return errors to the group

	p.logger.Info("batch complete",
		"jobs", len(jobs),
		"elapsed", time.Since(startTime),
	)

	return ctx.Err()
}
