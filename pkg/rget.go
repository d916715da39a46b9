package rget

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rget/rget/pkg/cli"
	"github.com/rget/rget/pkg/download"
	"github.com/rget/rget/pkg/logging"
	"github.com/rget/rget/pkg/output"
)

const DefaultWorkers = 4

// Getter downloads one resource with one concurrent range request per worker.
type Getter struct {
	Client  *http.Client
	Workers int
	// BufferSize is the per-worker read buffer, see download.Fetcher.
	BufferSize int
	// EchoHeaders logs the probe response headers.
	EchoHeaders bool
	// NewProgress, when set, is called once the resource size is known and receives every
	// committed byte count.
	NewProgress func(total int64) output.Progress
}

// DownloadJob describes a single download once the resource has been probed.
type DownloadJob struct {
	ID      string
	URL     string
	Size    int64
	Workers int
	Dest    string
}

// RangeFailure records a range that did not complete. Written bytes are already in the output.
type RangeFailure struct {
	Range   download.ByteRange
	Written int64
	Err     error
}

type Result struct {
	JobID        string
	Dest         string
	Size         int64
	BytesWritten int64
	// Failed is sorted by range index. A non-empty list means the output is incomplete.
	Failed  []RangeFailure
	Elapsed time.Duration
}

func (r *Result) Complete() bool {
	return len(r.Failed) == 0
}

// DownloadFile fetches url into dest, or into a name derived from url when dest is empty.
//
// Failing to probe the resource, learn its size or open dest is fatal and returned as an error. A
// failed range is not: it is logged, the other ranges carry on and the failure is listed in
// Result.Failed.
func (g *Getter) DownloadFile(ctx context.Context, url string, dest string) (*Result, error) {
	logger := logging.GetLogger()
	startTime := time.Now()

	if url == "" {
		return nil, &download.ConfigurationError{Field: "url", Reason: "missing"}
	}
	workers := g.Workers
	if workers == 0 {
		workers = DefaultWorkers
	}
	if workers < 0 {
		return nil, &download.ConfigurationError{Field: "worker count", Reason: fmt.Sprintf("%d is not positive", workers)}
	}
	if dest == "" {
		dest = cli.DestinationFromURL(url)
	}
	httpClient := g.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	prober := &download.Prober{Client: httpClient, EchoHeaders: g.EchoHeaders}
	size, err := prober.Probe(ctx, url)
	if err != nil {
		return nil, err
	}
	if !size.Known {
		return nil, &download.NetworkError{Op: "probe", URL: url, Err: download.ErrUnknownSize}
	}

	job := DownloadJob{
		ID:      uuid.NewString(),
		URL:     size.URL,
		Size:    size.Length,
		Workers: workers,
		Dest:    dest,
	}

	out, err := output.Open(job.Dest)
	if err != nil {
		return nil, &download.FileSystemError{Op: "open", Path: job.Dest, Err: err}
	}
	if g.NewProgress != nil {
		out.SetProgress(g.NewProgress(job.Size))
	}

	var ranges []download.ByteRange
	if job.Size > 0 {
		ranges, err = download.Partition(job.Size, job.Workers)
		if err != nil {
			_ = out.Close()
			return nil, err
		}
	}

	logger.Debug().
		Str("job_id", job.ID).
		Str("url", job.URL).
		Str("dest", job.Dest).
		Int64("size", job.Size).
		Int("workers", job.Workers).
		Msg("Downloading")

	failed, written := g.fetchRanges(ctx, job, ranges, out)

	if err := out.Close(); err != nil {
		return nil, &download.FileSystemError{Op: "close", Path: job.Dest, Err: err}
	}

	result := &Result{
		JobID:        job.ID,
		Dest:         job.Dest,
		Size:         job.Size,
		BytesWritten: written,
		Failed:       failed,
		Elapsed:      time.Since(startTime),
	}
	logResult(job, result)
	return result, nil
}

// fetchRanges runs one fetcher per non-empty range and waits for all of them. Fetchers never fail
// the group, so one broken range cannot stop the others.
func (g *Getter) fetchRanges(ctx context.Context, job DownloadJob, ranges []download.ByteRange, out *output.SharedFile) ([]RangeFailure, int64) {
	logger := logging.GetLogger()
	fetcher := &download.Fetcher{Client: g.Client, BufferSize: g.BufferSize}
	if fetcher.Client == nil {
		fetcher.Client = http.DefaultClient
	}

	var (
		group    errgroup.Group
		mu       sync.Mutex
		failures []RangeFailure
		written  atomic.Int64
	)
	for _, r := range ranges {
		if r.Len() == 0 {
			logger.Debug().Str("job_id", job.ID).Int("range", r.Index).Msg("Skipping empty range")
			continue
		}
		group.Go(func() error {
			n, err := fetcher.Fetch(ctx, job.URL, r, out)
			written.Add(n)
			if err != nil {
				logger.Error().
					Err(err).
					Str("job_id", job.ID).
					Int("range", r.Index).
					Str("bytes", r.String()).
					Int64("written", n).
					Msg("Range failed")
				mu.Lock()
				failures = append(failures, RangeFailure{Range: r, Written: n, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()

	sort.Slice(failures, func(i, j int) bool {
		return failures[i].Range.Index < failures[j].Range.Index
	})
	return failures, written.Load()
}

func logResult(job DownloadJob, result *Result) {
	logger := logging.GetLogger()
	throughput := humanize.Bytes(uint64(float64(result.BytesWritten) / result.Elapsed.Seconds()))
	if !result.Complete() {
		missing := job.Size - result.BytesWritten
		logger.Warn().
			Str("job_id", job.ID).
			Str("dest", job.Dest).
			Int("failed_ranges", len(result.Failed)).
			Str("missing", humanize.Bytes(uint64(missing))).
			Msg("Incomplete")
		return
	}
	logger.Info().
		Str("job_id", job.ID).
		Str("dest", job.Dest).
		Str("size", humanize.Bytes(uint64(job.Size))).
		Str("throughput", fmt.Sprintf("%s/s", throughput)).
		Str("elapsed", fmt.Sprintf("%.3fs", result.Elapsed.Seconds())).
		Msg("Complete")
}
