// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package pipeline wires enumerators, workers, and the datastore writer
// into a bounded-channel scheduler: enumerators feed a work channel, N
// workers scan and feed a result channel, and a single writer drains it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kraklabs/noseyparker/pkg/blob"
	"github.com/kraklabs/noseyparker/pkg/matcher"
	"github.com/kraklabs/noseyparker/pkg/provenance"
)

// CancelToken is the shared cancellation flag polled at every channel
// operation and between blobs inside a worker.
type CancelToken struct {
	cancelled atomic.Bool
}

// NewCancelToken returns an armed, not-yet-cancelled token.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel marks the token cancelled. Safe to call more than once.
func (c *CancelToken) Cancel() {
	c.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (c *CancelToken) Cancelled() bool {
	return c.cancelled.Load()
}

// EmitFunc is called once per (content, provenance) observation by a
// Source. Returning an error aborts that source's enumeration.
type EmitFunc func(content []byte, prov provenance.Provenance) error

// Source is implemented by every enumerator (pkg/enum.Filesystem,
// GitRepository, GitURL, GitHub, External). Defined here, not imported from
// pkg/enum, so pipeline has no dependency on enumerator implementations —
// any type with this method satisfies it.
type Source interface {
	Enumerate(ctx context.Context, cancel *CancelToken, emit EmitFunc) error
}

// ResultKind discriminates the three item shapes carried on the result
// channel.
type ResultKind int

const (
	// KindMatches carries a worker's matches for one blob (may be empty if
	// the blob scanned clean).
	KindMatches ResultKind = iota
	// KindProvenanceOnly records a new provenance observation for a blob
	// already scanned earlier in this run; no rescan is needed.
	KindProvenanceOnly
	// KindBlobSeen is a pure telemetry event: the same (blob, provenance)
	// pair was observed again: not even a new provenance link is needed.
	KindBlobSeen
)

// ResultItem is one unit handed from a worker (or the scheduler's dedup
// check) to the writer.
type ResultItem struct {
	Kind       ResultKind
	BlobID     blob.ID
	BlobSize   int
	Provenance []provenance.Provenance
	Matches    []matcher.RawMatch
}

// Writer is the single consumer of the result channel. Implementations
// (pkg/datastore.Writer) own the datastore's write handle exclusively.
type Writer interface {
	Write(ResultItem) error
	// Flush commits any still-open batch. Called once, after the result
	// channel has drained, as the final step of the scan-completion
	// barrier.
	Flush() error
}

// WorkerFactory builds one matcher.Worker per pipeline worker goroutine.
// Each worker owns its Worker exclusively and closes it on exit.
type WorkerFactory func() (*matcher.Worker, error)

// Options configures a Scheduler.
type Options struct {
	// Workers is the number of scanning goroutines. Zero means
	// runtime.GOMAXPROCS(0).
	Workers int
	// WorkChanSize and ResultChanSize bound the two channels, providing
	// backpressure between enumerators, workers, and the writer.
	WorkChanSize   int
	ResultChanSize int
	Logger         *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// workItem is dispatched to a worker goroutine for scanning.
type workItem struct {
	blobID blob.ID
	size   int
	content []byte
	prov   provenance.Provenance
}

// Scheduler drains a Source into a worker pool and a single writer,
// honoring the scan-completion barrier and failure policy below.
type Scheduler struct {
	opts    Options
	cancel  *CancelToken
	factory WorkerFactory
	writer  Writer

	blobSeen *blob.SeenSet

	provMu   sync.Mutex
	provSeen map[string]bool

	metrics *schedulerMetrics
}

// NewScheduler builds a Scheduler. factory is called once per worker
// goroutine; writer is the single result-channel consumer.
func NewScheduler(opts Options, cancel *CancelToken, factory WorkerFactory, writer Writer) *Scheduler {
	if cancel == nil {
		cancel = NewCancelToken()
	}
	if opts.WorkChanSize <= 0 {
		opts.WorkChanSize = 256
	}
	if opts.ResultChanSize <= 0 {
		opts.ResultChanSize = 256
	}
	return &Scheduler{
		opts:     opts,
		cancel:   cancel,
		factory:  factory,
		writer:   writer,
		blobSeen: blob.NewSeenSet(0),
		provSeen: make(map[string]bool),
		metrics:  newSchedulerMetrics(),
	}
}

// CancelToken returns the scheduler's cancel token, so callers (signal
// handlers) can cancel an in-flight Run.
func (s *Scheduler) CancelToken() *CancelToken {
	return s.cancel
}

// Run drains src through the worker pool and writer, and blocks until the
// scan-completion barrier is satisfied: the work channel drains, every
// worker goes idle, and the writer commits its final batch. It returns a
// *nperrors-compatible error only on a fatal writer failure or
// cancellation; individual worker/enumerator failures are logged and
// otherwise swallowed.
func (s *Scheduler) Run(ctx context.Context, src Source) error {
	workers := s.opts.Workers
	if workers <= 0 {
		workers = defaultWorkerCount()
	}

	workCh := make(chan workItem, s.opts.WorkChanSize)
	resultCh := make(chan ResultItem, s.opts.ResultChanSize)

	var writeErr error
	var writeErrOnce sync.Once
	recordWriteErr := func(err error) {
		writeErrOnce.Do(func() {
			writeErr = err
			s.cancel.Cancel()
		})
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for item := range resultCh {
			if err := s.writer.Write(item); err != nil {
				s.opts.logger().Error("datastore write failed", "error", err)
				recordWriteErr(err)
				continue
			}
			s.metrics.recordResult(item)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerIdx int) {
			defer wg.Done()
			w, err := s.factory()
			if err != nil {
				s.opts.logger().Error("failed to start worker", "worker", workerIdx, "error", err)
				return
			}
			defer w.Close()

			for item := range workCh {
				if s.cancel.Cancelled() {
					continue
				}
				matches, err := w.Scan(item.blobID, item.content)
				if err != nil {
					s.opts.logger().Warn("scan.worker.error",
						"blob_id", item.blobID.String(), "error", err)
				}
				select {
				case resultCh <- ResultItem{
					Kind:       KindMatches,
					BlobID:     item.blobID,
					BlobSize:   item.size,
					Provenance: []provenance.Provenance{item.prov},
					Matches:    matches,
				}:
				case <-ctx.Done():
				}
			}
		}(i)
	}

	emit := func(content []byte, prov provenance.Provenance) error {
		if s.cancel.Cancelled() {
			return errCancelled
		}
		id := blob.ComputeID(content)
		provKey := fmt.Sprintf("%s|%s", id, prov.Key())

		if s.provenanceAlreadySeen(provKey) {
			select {
			case resultCh <- ResultItem{Kind: KindBlobSeen, BlobID: id}:
			case <-ctx.Done():
				return errCancelled
			}
			return nil
		}

		if wasNew := s.blobSeen.Insert(id); !wasNew {
			select {
			case resultCh <- ResultItem{Kind: KindProvenanceOnly, BlobID: id, Provenance: []provenance.Provenance{prov}}:
			case <-ctx.Done():
				return errCancelled
			}
			return nil
		}

		select {
		case workCh <- workItem{blobID: id, size: len(content), content: content, prov: prov}:
			return nil
		case <-ctx.Done():
			return errCancelled
		}
	}

	enumErr := src.Enumerate(ctx, s.cancel, emit)
	if enumErr != nil && enumErr != errCancelled {
		s.opts.logger().Warn("scan.enumerator.error", "error", enumErr)
	}

	close(workCh)
	wg.Wait()
	close(resultCh)
	<-writerDone

	if writeErr != nil {
		return fmt.Errorf("pipeline: datastore write failed: %w", writeErr)
	}
	if s.cancel.Cancelled() {
		if err := s.writer.Flush(); err != nil {
			return fmt.Errorf("pipeline: flushing final batch after cancellation: %w", err)
		}
		return errCancelled
	}

	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("pipeline: flushing final batch: %w", err)
	}
	return nil
}

func (s *Scheduler) provenanceAlreadySeen(key string) bool {
	s.provMu.Lock()
	defer s.provMu.Unlock()
	if s.provSeen[key] {
		return true
	}
	s.provSeen[key] = true
	return false
}
