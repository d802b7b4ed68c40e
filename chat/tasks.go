package chat

import (
	"context"
	"log"
	"sync"
	"time"
)

// Task is one unit of background post-stream work. Fn is retried on
// error; Cleanup, if set, runs exactly once after the final attempt,
// successful or not.
type Task struct {
	Name    string
	Fn      func(ctx context.Context) error
	Cleanup func()
}

// Runner executes background tasks on a small worker pool with bounded
// retries. Tasks that still fail after the last attempt are dead-lettered
// to the log; they are never allowed to panic the process.
type Runner struct {
	queue   chan Task
	workers sync.WaitGroup
	pending sync.WaitGroup

	maxAttempts int
	backoff     time.Duration
}

// NewRunner starts a runner with the given number of workers.
func NewRunner(workers int) *Runner {
	r := &Runner{
		queue:       make(chan Task, 64),
		maxAttempts: 3,
		backoff:     500 * time.Millisecond,
	}
	for i := 0; i < workers; i++ {
		r.workers.Add(1)
		go r.worker()
	}
	return r
}

// Submit enqueues a task. It blocks when the queue is full.
func (r *Runner) Submit(task Task) {
	r.pending.Add(1)
	r.queue <- task
}

// Drain blocks until every submitted task has reached a final
// disposition.
func (r *Runner) Drain() {
	r.pending.Wait()
}

// Shutdown drains the queue and stops the workers. Submit must not be
// called afterwards.
func (r *Runner) Shutdown() {
	r.Drain()
	close(r.queue)
	r.workers.Wait()
}

func (r *Runner) worker() {
	defer r.workers.Done()
	for task := range r.queue {
		r.run(task)
	}
}

func (r *Runner) run(task Task) {
	defer r.pending.Done()
	defer func() {
		if task.Cleanup != nil {
			task.Cleanup()
		}
	}()
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("ERROR: task %s panicked: %v", task.Name, rec)
		}
	}()

	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err = task.Fn(context.Background())
		if err == nil {
			return
		}
		if attempt < r.maxAttempts {
			log.Printf("WARN: task %s attempt %d failed: %v", task.Name, attempt, err)
			time.Sleep(time.Duration(attempt) * r.backoff)
		}
	}
	log.Printf("ERROR: task %s dead-lettered after %d attempts: %v", task.Name, r.maxAttempts, err)
}
