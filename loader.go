package meshes

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// fetchJob represents a unit of work for the fetch worker pool.
type fetchJob struct {
	// stump is the request being served.
	stump MeshStump

	// address is where the mesh file is fetched from.
	address string

	// requestID correlates log lines of one fetch.
	requestID string
}

// fetchQueue hands fetch jobs to a pool of workers. Intake is unbounded so
// that push never blocks the caller.
type fetchQueue struct {
	// fetcher retrieves mesh files.
	fetcher Fetcher

	// logger receives diagnostic messages. May be nil.
	logger Logger

	// timeout bounds a single fetch. Zero disables it.
	timeout time.Duration

	// deliver receives decoded payloads.
	deliver func(Payload)

	// fail receives fetch errors.
	fail func(job fetchJob, err error)

	// mu protects pending and closed.
	mu      sync.Mutex
	cond    *sync.Cond
	pending []fetchJob
	closed  bool

	// ctx is cancelled by close to abort fetches in progress.
	ctx    context.Context
	cancel context.CancelFunc

	// wg tracks active workers for graceful shutdown.
	wg sync.WaitGroup

	// active counts fetches currently running.
	active int64
}

// newFetchQueue creates a fetch queue. Workers are started by start.
func newFetchQueue(fetcher Fetcher, logger Logger, timeout time.Duration, deliver func(Payload), fail func(fetchJob, error)) *fetchQueue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &fetchQueue{
		fetcher: fetcher,
		logger:  logger,
		timeout: timeout,
		deliver: deliver,
		fail:    fail,
		ctx:     ctx,
		cancel:  cancel,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// start launches n workers.
func (q *fetchQueue) start(n int) {
	for i := 0; i < n; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

// push queues a job. Returns ErrClosed after close.
func (q *fetchQueue) push(job fetchJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.pending = append(q.pending, job)
	q.cond.Signal()
	return nil
}

// next blocks until a job is available or the queue is closed.
func (q *fetchQueue) next() (fetchJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.pending) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return fetchJob{}, false
	}

	job := q.pending[0]
	q.pending[0] = fetchJob{}
	q.pending = q.pending[1:]
	return job, true
}

// queued returns the number of jobs not yet picked up by a worker.
func (q *fetchQueue) queued() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// inProgress returns the number of fetches currently running.
func (q *fetchQueue) inProgress() int {
	return int(atomic.LoadInt64(&q.active))
}

// worker processes fetch jobs until the queue is closed.
func (q *fetchQueue) worker() {
	defer q.wg.Done()

	for {
		job, ok := q.next()
		if !ok {
			return
		}
		q.run(job)
	}
}

// run fetches one mesh and hands the result on.
func (q *fetchQueue) run(job fetchJob) {
	atomic.AddInt64(&q.active, 1)
	defer atomic.AddInt64(&q.active, -1)

	ctx := q.ctx
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	if q.logger != nil {
		q.logger.Debug("fetching mesh", "name", job.stump.Name, "address", job.address, "request", job.requestID)
	}

	data, err := q.fetcher.Fetch(ctx, job.address)
	if err != nil {
		if q.ctx.Err() != nil {
			// Shutting down; the manager no longer reports failures.
			if q.logger != nil {
				q.logger.Debug("fetch abandoned", "name", job.stump.Name, "request", job.requestID)
			}
			return
		}
		q.fail(job, err)
		return
	}

	q.deliver(Payload{
		Name:      job.stump.Name,
		ContextID: job.stump.ContextID,
		Ready:     true,
		RequestID: job.requestID,
		Data:      data,
	})
}

// close stops intake, aborts running fetches and waits for the workers.
// Jobs still queued are dropped.
func (q *fetchQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	dropped := len(q.pending)
	q.pending = nil
	q.cond.Broadcast()
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()

	if dropped > 0 && q.logger != nil {
		q.logger.Debug("fetch queue closed", "dropped", dropped)
	}
}
