package downloader

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gpfetch/pkg/ratelimit"
)

// MockClient is a mock implementation of the media downloader
type MockClient struct {
	downloadDelay   time.Duration
	downloadError   error
	downloadCounter int32
}

func (m *MockClient) Download(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	atomic.AddInt32(&m.downloadCounter, 1)
	if m.downloadDelay > 0 {
		time.Sleep(m.downloadDelay)
	}
	if m.downloadError != nil {
		return nil, 0, m.downloadError
	}
	body := "mock media data"
	return io.NopCloser(strings.NewReader(body)), int64(len(body)), nil
}

func (m *MockClient) GetDownloadCount() int {
	return int(atomic.LoadInt32(&m.downloadCounter))
}

// MockStorage is a mock implementation of the storage manager
type MockStorage struct {
	savedFiles map[string]bool
	saveError  error
	mu         sync.Mutex
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		savedFiles: make(map[string]bool),
	}
}

func (m *MockStorage) Exists(filename string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.savedFiles[filename]
}

func (m *MockStorage) Save(r io.Reader, filename string) (int64, error) {
	if m.saveError != nil {
		return 0, m.saveError
	}
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return n, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.savedFiles[filename] = true
	return n, nil
}

func (m *MockStorage) Path(filename string) string {
	return filepath.Join("/tmp/test", filename)
}

func (m *MockStorage) GetSavedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.savedFiles)
}

func collectResults(pool *WorkerPool, results *[]DownloadResult) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range pool.Results() {
			*results = append(*results, result)
		}
	}()
	return &wg
}

func TestWorkerPoolBasicFunctionality(t *testing.T) {
	mockClient := &MockClient{downloadDelay: 10 * time.Millisecond}
	mockStorage := NewMockStorage()
	rateLimiter := ratelimit.NewTokenBucket(100, time.Second)

	pool := NewWorkerPool(3, mockClient, mockStorage, rateLimiter, nil)
	pool.Start()

	var results []DownloadResult
	wg := collectResults(pool, &results)

	numJobs := 10
	for i := 0; i < numJobs; i++ {
		job := DownloadJob{
			URL:      fmt.Sprintf("https://example.com/media%d.mp4", i),
			Filename: fmt.Sprintf("media%d.mp4", i),
			RecordID: fmt.Sprintf("record%d", i),
		}
		if err := pool.Submit(job); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	pool.Stop()
	wg.Wait()

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}

	successCount := 0
	for _, result := range results {
		if result.Success {
			successCount++
		}
		if result.Skipped {
			t.Errorf("Unexpected skip for %s", result.Job.Filename)
		}
	}

	if successCount != numJobs {
		t.Errorf("Expected %d successful downloads, got %d", numJobs, successCount)
	}

	if mockClient.GetDownloadCount() != numJobs {
		t.Errorf("Expected %d download calls, got %d", numJobs, mockClient.GetDownloadCount())
	}

	if mockStorage.GetSavedCount() != numJobs {
		t.Errorf("Expected %d saved files, got %d", numJobs, mockStorage.GetSavedCount())
	}
}

func TestWorkerPoolWithErrors(t *testing.T) {
	mockClient := &MockClient{
		downloadError: fmt.Errorf("download error"),
	}
	mockStorage := NewMockStorage()
	rateLimiter := ratelimit.NewTokenBucket(100, time.Second)

	pool := NewWorkerPool(2, mockClient, mockStorage, rateLimiter, nil)
	pool.Start()

	var results []DownloadResult
	wg := collectResults(pool, &results)

	numJobs := 5
	for i := 0; i < numJobs; i++ {
		job := DownloadJob{
			URL:      fmt.Sprintf("https://example.com/media%d.mp4", i),
			Filename: fmt.Sprintf("media%d.mp4", i),
		}
		if err := pool.Submit(job); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	pool.Stop()
	wg.Wait()

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}

	for _, result := range results {
		if result.Success {
			t.Error("Expected all downloads to fail")
		}
		if result.Error == nil {
			t.Error("Expected error in result")
		}
	}
}

func TestWorkerPoolConcurrency(t *testing.T) {
	mockClient := &MockClient{downloadDelay: 100 * time.Millisecond}
	mockStorage := NewMockStorage()
	rateLimiter := ratelimit.NewTokenBucket(100, time.Second)

	pool := NewWorkerPool(5, mockClient, mockStorage, rateLimiter, nil)
	pool.Start()

	var results []DownloadResult
	wg := collectResults(pool, &results)

	numJobs := 10
	startTime := time.Now()

	for i := 0; i < numJobs; i++ {
		job := DownloadJob{
			URL:      fmt.Sprintf("https://example.com/media%d.mp4", i),
			Filename: fmt.Sprintf("media%d.mp4", i),
		}
		if err := pool.Submit(job); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	pool.Stop()
	wg.Wait()

	elapsed := time.Since(startTime)

	// With 5 workers and 10 jobs taking 100ms each, it should take ~200ms.
	// Allow some buffer for overhead.
	expectedTime := 300 * time.Millisecond
	if elapsed > expectedTime {
		t.Errorf("Downloads took too long: %v (expected < %v)", elapsed, expectedTime)
	}

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}
}

func TestWorkerPoolSkipsExistingFiles(t *testing.T) {
	mockClient := &MockClient{}
	mockStorage := NewMockStorage()

	// Pre-populate already downloaded files
	mockStorage.savedFiles["existing1.mp4"] = true
	mockStorage.savedFiles["existing2.mp4"] = true

	rateLimiter := ratelimit.NewTokenBucket(100, time.Second)

	pool := NewWorkerPool(2, mockClient, mockStorage, rateLimiter, nil)
	pool.Start()

	var results []DownloadResult
	wg := collectResults(pool, &results)

	jobs := []DownloadJob{
		{URL: "https://example.com/new1.mp4", Filename: "new1.mp4"},
		{URL: "https://example.com/existing1.mp4", Filename: "existing1.mp4"},
		{URL: "https://example.com/new2.mp4", Filename: "new2.mp4"},
		{URL: "https://example.com/existing2.mp4", Filename: "existing2.mp4"},
	}

	for _, job := range jobs {
		if err := pool.Submit(job); err != nil {
			t.Errorf("Failed to submit job: %v", err)
		}
	}

	pool.Stop()
	wg.Wait()

	if len(results) != len(jobs) {
		t.Errorf("Expected %d results, got %d", len(jobs), len(results))
	}

	// Existing files must not trigger any network calls
	expectedDownloads := 2
	if mockClient.GetDownloadCount() != expectedDownloads {
		t.Errorf("Expected %d downloads, got %d", expectedDownloads, mockClient.GetDownloadCount())
	}

	skipped := 0
	for _, result := range results {
		if !result.Success {
			t.Errorf("Expected success for %s, got error %v", result.Job.Filename, result.Error)
		}
		if result.Skipped {
			skipped++
		}
	}
	if skipped != 2 {
		t.Errorf("Expected 2 skipped results, got %d", skipped)
	}

	// Total saved should be 4 (2 existing + 2 new)
	if mockStorage.GetSavedCount() != 4 {
		t.Errorf("Expected 4 saved files, got %d", mockStorage.GetSavedCount())
	}
}
