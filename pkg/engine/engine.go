package engine

import (
	"context"
	"errors"
	"fmt"

	"gpfetch/internal/downloader"
	"gpfetch/pkg/gopro"
	"gpfetch/pkg/logger"
	"gpfetch/pkg/ratelimit"
)

// PageFetcher supplies one listing page at a time. An empty result
// signals end-of-stream.
type PageFetcher interface {
	FetchMediaPage(ctx context.Context, page, perPage int) ([]gopro.MediaRecord, error)
}

// Options control one engine run
type Options struct {
	PerPage     int
	MaxPages    int // 0 means no cap
	MaxRecords  int // 0 means no cap
	Concurrency int
	DryRun      bool
}

// Summary is the always-produced outcome of a run. Partial failure is
// the normal case: failed jobs are collected here, not propagated.
type Summary struct {
	PagesFetched int
	RecordsSeen  int
	NoCandidate  int
	JobsQueued   int
	Downloaded   int
	Skipped      int
	Failed       int
	Failures     []downloader.DownloadResult
}

// Engine drives the paginated-fetch plus concurrent-download pipeline:
// sequential enumeration of listing pages, one download job per record
// (first candidate only), then dispatch of the fully built job list to a
// bounded worker pool.
type Engine struct {
	fetcher PageFetcher
	client  downloader.MediaDownloader
	storage downloader.MediaStorage
	limiter ratelimit.Limiter
	logger  logger.Logger
}

// New creates an engine. limiter may be nil to disable client-side
// download rate limiting.
func New(
	fetcher PageFetcher,
	client downloader.MediaDownloader,
	storage downloader.MediaStorage,
	limiter ratelimit.Limiter,
	log logger.Logger,
) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Engine{
		fetcher: fetcher,
		client:  client,
		storage: storage,
		limiter: limiter,
		logger:  log,
	}
}

// Run enumerates all pages, builds the job list, and executes it. A
// listing fetch failure aborts the run and is returned alongside the
// partial summary; download failures only ever land in the summary.
func (e *Engine) Run(ctx context.Context, opts Options) (*Summary, error) {
	summary := &Summary{}

	jobs, err := e.enumerate(ctx, opts, summary)
	if err != nil {
		return summary, err
	}

	summary.JobsQueued = len(jobs)

	if len(jobs) == 0 {
		e.logger.Info("no downloadable media found")
		return summary, nil
	}

	if opts.DryRun {
		for _, job := range jobs {
			e.logger.InfoWithFields("dry-run: would download", map[string]interface{}{
				"url":         job.URL,
				"destination": e.storage.Path(job.Filename),
			})
		}
		return summary, nil
	}

	e.dispatch(jobs, opts.Concurrency, summary)
	return summary, nil
}

// enumerate pages through the listing sequentially and builds the job
// list. Enumeration is strictly one page at a time: the API's ordering
// and rate limits leave nothing to gain from parallel listing fetches.
func (e *Engine) enumerate(ctx context.Context, opts Options, summary *Summary) ([]downloader.DownloadJob, error) {
	var jobs []downloader.DownloadJob

	for page := 1; ; page++ {
		if opts.MaxPages > 0 && page > opts.MaxPages {
			e.logger.InfoWithFields("reached max-pages cap, stopping enumeration", map[string]interface{}{
				"max_pages": opts.MaxPages,
			})
			break
		}

		records, err := e.fetcher.FetchMediaPage(ctx, page, opts.PerPage)
		if err != nil {
			if errors.Is(err, gopro.ErrUnrecognizedShape) {
				// On the first page an unknown shape means the session or
				// API contract is wrong; mid-stream it is treated as the
				// end of the listing.
				if page == 1 {
					return jobs, fmt.Errorf("unrecognized listing response on first page, check credentials: %w", err)
				}
				e.logger.WarnWithFields("unrecognized listing shape mid-stream, treating as end of listing", map[string]interface{}{
					"page": page,
				})
				break
			}
			return jobs, err
		}

		if len(records) == 0 {
			break
		}

		summary.PagesFetched++
		e.logger.InfoWithFields("fetched listing page", map[string]interface{}{
			"page":    page,
			"records": len(records),
		})

		capped := false
		for _, record := range records {
			if opts.MaxRecords > 0 && summary.RecordsSeen >= opts.MaxRecords {
				capped = true
				break
			}
			summary.RecordsSeen++

			// One file per record by policy: only the first candidate is
			// scheduled, additional variants are ignored.
			candidate, ok := gopro.FirstCandidate(record)
			if !ok {
				summary.NoCandidate++
				e.logger.WarnWithFields("no download candidate for record, skipping", map[string]interface{}{
					"record_id": record.ID(),
				})
				continue
			}

			jobs = append(jobs, downloader.DownloadJob{
				URL:      candidate.URL,
				Filename: candidate.Filename,
				RecordID: record.ID(),
			})
		}

		if capped {
			e.logger.InfoWithFields("reached max-records cap, stopping enumeration", map[string]interface{}{
				"max_records": opts.MaxRecords,
			})
			break
		}
	}

	return jobs, nil
}

// dispatch runs the fully built job list on a bounded worker pool and
// folds results into the summary.
func (e *Engine) dispatch(jobs []downloader.DownloadJob, concurrency int, summary *Summary) {
	if concurrency <= 0 {
		concurrency = 1
	}

	pool := downloader.NewWorkerPool(concurrency, e.client, e.storage, e.limiter, e.logger)
	pool.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range pool.Results() {
			switch {
			case result.Skipped:
				summary.Skipped++
			case result.Success:
				summary.Downloaded++
			default:
				summary.Failed++
				summary.Failures = append(summary.Failures, result)
			}
		}
	}()

	for _, job := range jobs {
		if err := pool.Submit(job); err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, downloader.DownloadResult{
				Job:   job,
				Error: err,
			})
		}
	}

	pool.Stop()
	<-done
}
