package workqueue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Queue runs tasks on a fixed pool of workers draining a bounded channel.
// Each task is an independent unit of work: failure of one does not affect
// the others, and no ordering is guaranteed between tasks.
type Queue struct {
	tasks  chan Task
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// New creates a queue with the given number of workers and queue depth, and
// starts the workers immediately.
func New(logger *zap.Logger, workers, depth int) *Queue {
	if workers < 1 {
		workers = 1
	}
	if depth < 1 {
		depth = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		tasks:  make(chan Task, depth),
		logger: logger.Named("workqueue"),
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	return q
}

// TryEnqueue adds a task without blocking. It returns false if the queue is
// full or stopped; callers treat a refused task as deferred, not failed -
// the producing job will naturally resubmit equivalent work later.
func (q *Queue) TryEnqueue(task Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		q.logger.Warn("queue stopped, refusing task",
			zap.String("task_id", task.ID()),
			zap.String("task_name", task.Name()))
		return false
	}

	select {
	case q.tasks <- task:
		q.logger.Info("task enqueued",
			zap.String("task_id", task.ID()),
			zap.String("task_name", task.Name()))
		return true
	default:
		q.logger.Warn("queue full, refusing task",
			zap.String("task_id", task.ID()),
			zap.String("task_name", task.Name()))
		return false
	}
}

// Stop cancels running tasks and stops the workers. It does not wait for
// in-flight tasks to acknowledge the cancellation.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()

	q.cancel()
}

// Wait blocks until all workers have exited. Tests use it to observe a clean
// shutdown; the server itself stops without waiting.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			q.runTask(id, task)
		}
	}
}

func (q *Queue) runTask(workerID int, task Task) {
	start := time.Now()
	q.logger.Info("task started",
		zap.Int("worker", workerID),
		zap.String("task_id", task.ID()),
		zap.String("task_name", task.Name()))

	if err := task.Execute(q.ctx); err != nil {
		q.logger.Error("task failed",
			zap.Int("worker", workerID),
			zap.String("task_id", task.ID()),
			zap.String("task_name", task.Name()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}

	q.logger.Info("task completed",
		zap.Int("worker", workerID),
		zap.String("task_id", task.ID()),
		zap.String("task_name", task.Name()),
		zap.Duration("duration", time.Since(start)))
}
