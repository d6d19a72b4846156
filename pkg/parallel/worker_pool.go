package parallel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
)

// WorkerPool runs submitted tasks on a fixed set of goroutines
type WorkerPool struct {
	workers   int
	taskQueue chan func() error
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // guards taskQueue against close during send
	closed    bool

	errMu    sync.Mutex
	firstErr error
}

// ErrTooManyWorkers is returned when the worker count exceeds MaxWorkers.
var ErrTooManyWorkers = errors.New("worker count exceeds maximum")

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool is closed")

// MaxWorkers bounds the pool size so the queue buffer cannot overflow.
const MaxWorkers = math.MaxInt / 2

// DefaultWorkers resolves a configured worker count: values <= 0 mean GOMAXPROCS.
func DefaultWorkers(workers int) int {
	if workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return workers
}

// NewWorkerPool starts a pool with the given number of workers.
func NewWorkerPool(workers int) (*WorkerPool, error) {
	workers = DefaultWorkers(workers)
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}

	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func() error, workers*2),
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}
	return pool, nil
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		if err := runTask(task); err != nil {
			wp.recordErr(err)
		}
	}
}

// runTask converts a panicking task into an error so one bad node cannot kill a worker.
func runTask(task func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task()
}

func (wp *WorkerPool) recordErr(err error) {
	wp.errMu.Lock()
	defer wp.errMu.Unlock()
	if wp.firstErr == nil {
		wp.firstErr = err
	}
}

// Submit queues a task. It blocks while the queue is full and fails once the pool is closed.
func (wp *WorkerPool) Submit(task func() error) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return ErrPoolClosed
	}
	wp.taskQueue <- task
	return nil
}

// Close stops accepting tasks and waits for queued ones to finish.
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}

// Wait closes the pool and returns the first task error, if any.
func (wp *WorkerPool) Wait() error {
	wp.Close()
	return wp.Err()
}

// Err returns the first error reported by a task.
func (wp *WorkerPool) Err() error {
	wp.errMu.Lock()
	defer wp.errMu.Unlock()
	return wp.firstErr
}

// Workers returns the pool size.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// ForEach calls fn for every id, spreading the ids over workers in contiguous
// chunks. fn must be safe for concurrent use; it is never called twice for the
// same id. The first error (or the context error) is returned once all
// started chunks have finished.
func ForEach(ctx context.Context, ids []int64, workers int, fn func(id int64) error) error {
	if len(ids) == 0 {
		return ctx.Err()
	}

	workers = DefaultWorkers(workers)
	if workers > len(ids) {
		workers = len(ids)
	}

	pool, err := NewWorkerPool(workers)
	if err != nil {
		return err
	}

	chunk := (len(ids) + workers - 1) / workers
	for start := 0; start < len(ids); start += chunk {
		end := min(start+chunk, len(ids))
		part := ids[start:end]

		if ctx.Err() != nil {
			break
		}
		if err := pool.Submit(func() error {
			for _, id := range part {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := fn(id); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			pool.Close()
			return err
		}
	}

	if err := pool.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
