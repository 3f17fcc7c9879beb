package downloader

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	errs "gpfetch/pkg/errors"
	"gpfetch/pkg/logger"
	"gpfetch/pkg/ratelimit"
)

// DownloadJob is a scheduled (URL, destination filename) unit of work.
// The destination path uniquely identifies the job for idempotence.
type DownloadJob struct {
	URL      string
	Filename string
	RecordID string
}

// DownloadResult represents the outcome of one download job. Skipped
// means the destination already existed and no network call was made.
type DownloadResult struct {
	Job      DownloadJob
	Success  bool
	Skipped  bool
	Error    error
	Duration time.Duration
	Size     int64
}

// MediaDownloader opens an authorized streaming GET to a media URL
type MediaDownloader interface {
	Download(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// MediaStorage answers existence checks and streams bodies to disk
type MediaStorage interface {
	Exists(filename string) bool
	Save(r io.Reader, filename string) (int64, error)
	Path(filename string) string
}

// WorkerPool manages concurrent download workers. Jobs are independent:
// one job's failure never cancels or affects its siblings, and no
// ordering is guaranteed between concurrently executing jobs.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan DownloadJob
	resultQueue chan DownloadResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	client      MediaDownloader
	storage     MediaStorage
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

// NewWorkerPool creates a new download worker pool
func NewWorkerPool(
	numWorkers int,
	client MediaDownloader,
	storage MediaStorage,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.GetLogger()
	}
	if rateLimiter == nil {
		rateLimiter = ratelimit.Unlimited{}
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan DownloadJob, numWorkers*2),
		resultQueue: make(chan DownloadResult, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		client:      client,
		storage:     storage,
		rateLimiter: rateLimiter,
		logger:      log,
	}
}

// Start initializes and starts all workers
func (wp *WorkerPool) Start() {
	wp.logger.InfoWithFields("starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the job queue, waits for in-flight jobs to finish, and
// closes the result queue.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	wp.logger.Info("worker pool stopped")
}

// Submit adds a new download job to the queue
func (wp *WorkerPool) Submit(job DownloadJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the result channel for consuming download results
func (wp *WorkerPool) Results() <-chan DownloadResult {
	return wp.resultQueue
}

// QueueSize returns the current number of jobs waiting in the queue
func (wp *WorkerPool) QueueSize() int {
	return len(wp.jobQueue)
}

// worker is the main worker routine
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			return
		default:
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob handles a single download job. Every failure is captured in
// the result; nothing propagates out of the worker.
func (wp *WorkerPool) processJob(job DownloadJob, workerID int) DownloadResult {
	start := time.Now()
	result := DownloadResult{Job: job}

	// Skip-if-exists makes reruns after partial failure safe and cheap.
	// Presence only: truncated files are not detected.
	if wp.storage.Exists(job.Filename) {
		wp.logger.DebugWithFields("destination exists, skipping", map[string]interface{}{
			"worker_id": workerID,
			"filename":  job.Filename,
		})
		result.Success = true
		result.Skipped = true
		result.Duration = time.Since(start)
		return result
	}

	if !wp.rateLimiter.Allow() {
		wp.rateLimiter.Wait()
	}

	body, _, err := wp.client.Download(wp.ctx, job.URL)
	if err != nil {
		result.Error = &errs.DownloadError{
			URL:         job.URL,
			Destination: wp.storage.Path(job.Filename),
			Err:         err,
		}
		result.Duration = time.Since(start)

		wp.logger.ErrorWithFields("download failed", map[string]interface{}{
			"worker_id": workerID,
			"url":       job.URL,
			"filename":  job.Filename,
			"error":     err.Error(),
		})

		return result
	}

	size, err := wp.storage.Save(body, job.Filename)
	body.Close()
	if err != nil {
		result.Error = &errs.DownloadError{
			URL:         job.URL,
			Destination: wp.storage.Path(job.Filename),
			Err:         err,
		}
		result.Duration = time.Since(start)

		wp.logger.ErrorWithFields("failed to save download", map[string]interface{}{
			"worker_id": workerID,
			"filename":  job.Filename,
			"error":     err.Error(),
		})

		return result
	}

	result.Success = true
	result.Size = size
	result.Duration = time.Since(start)

	wp.logger.DebugWithFields("download completed", map[string]interface{}{
		"worker_id": workerID,
		"filename":  job.Filename,
		"size":      size,
		"duration":  result.Duration,
	})

	return result
}
