package service

import (
	"context"
	"sync"
	"time"

	"github.com/asavelyev/notesync/internal/config"
	"github.com/asavelyev/notesync/internal/logger"
	"github.com/asavelyev/notesync/internal/utils"
	"github.com/asavelyev/notesync/models"
)

// pendingTask is one queued scope plus every future waiting on it.
// Coalesced requests share a task and resolve together.
type pendingTask struct {
	task    models.SyncTask
	futures []chan error
}

// syncQueue serializes reconciliation passes. Local mutations enqueue
// scopes; the debounce window coalesces bursts of edits into one task, and
// the drain loop dispatches strictly FIFO with a single in-flight pass.
type syncQueue struct {
	runner SyncRunner
	logger *logger.Logger

	debounce   time.Duration
	drainDelay time.Duration
	uuidGen    *utils.UUIDGenerator

	mu       sync.Mutex
	tasks    []*pendingTask
	timer    *time.Timer
	inFlight bool
	online   bool
	stopped  bool

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSyncQueue builds a queue dispatching into runner. The queue starts
// online and idle; Stop must be called to release its resources.
func NewSyncQueue(runner SyncRunner, cfg config.Sync, log *logger.Logger) Queue {
	debounce := cfg.DebounceWindow
	if debounce <= 0 {
		debounce = config.DefaultDebounceWindow
	}
	drainDelay := cfg.DrainDelay
	if drainDelay <= 0 {
		drainDelay = config.DefaultDrainDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &syncQueue{
		runner:     runner,
		logger:     log,
		debounce:   debounce,
		drainDelay: drainDelay,
		uuidGen:    utils.NewUUIDGenerator(),
		online:     true,
		baseCtx:    ctx,
		cancel:     cancel,
	}
}

// Enqueue implements Queue.
func (q *syncQueue) Enqueue(scope models.SyncScope) <-chan error {
	future := make(chan error, 1)

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		future <- ErrQueueStopped
		close(future)
		return future
	}

	// A pending task already covering this scope absorbs the request.
	for _, pending := range q.tasks {
		if pending.task.Scope.Covers(scope) {
			pending.futures = append(pending.futures, future)
			q.armDebounceLocked()
			return future
		}
	}

	task := &pendingTask{
		task: models.SyncTask{
			TaskID:     q.uuidGen.Generate(),
			Scope:      scope,
			EnqueuedAt: time.Now(),
		},
		futures: []chan error{future},
	}

	// A full-scope task swallows every narrower task still waiting.
	if scope == models.ScopeAll {
		for _, pending := range q.tasks {
			task.futures = append(task.futures, pending.futures...)
		}
		q.tasks = nil
	}

	q.tasks = append(q.tasks, task)
	q.armDebounceLocked()
	return future
}

// ForceSyncNow implements Queue.
func (q *syncQueue) ForceSyncNow() <-chan error {
	future := q.Enqueue(models.ScopeAll)

	q.mu.Lock()
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.releaseLocked()
	q.mu.Unlock()

	return future
}

// SetOnline implements Queue. Going online releases everything that
// accumulated while offline.
func (q *syncQueue) SetOnline(online bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.online == online {
		return
	}
	q.online = online
	q.logger.Info().Bool("online", online).Msg("sync queue connectivity changed")

	if online && len(q.tasks) > 0 {
		q.releaseLocked()
	}
}

// Stop implements Queue. Pending futures resolve with ErrQueueStopped; an
// in-flight pass is cancelled and awaited.
func (q *syncQueue) Stop() {
	q.mu.Lock()
	q.stopped = true
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	orphaned := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	for _, pending := range orphaned {
		resolveFutures(pending.futures, ErrQueueStopped)
	}

	q.cancel()
	q.wg.Wait()
}

// armDebounceLocked (re)starts the debounce timer. Each new enqueue within
// the window pushes dispatch out again, so a burst of edits costs one pass.
// Callers hold q.mu.
func (q *syncQueue) armDebounceLocked() {
	if !q.online || q.stopped {
		return
	}
	if q.timer != nil {
		q.timer.Stop()
	}
	q.timer = time.AfterFunc(q.debounce, func() {
		q.mu.Lock()
		q.timer = nil
		q.releaseLocked()
		q.mu.Unlock()
	})
}

// releaseLocked starts the drain goroutine unless one is already running
// or the queue is offline. Callers hold q.mu.
func (q *syncQueue) releaseLocked() {
	if q.inFlight || !q.online || q.stopped || len(q.tasks) == 0 {
		return
	}
	q.inFlight = true
	q.wg.Add(1)
	go q.drain()
}

// drain dispatches queued tasks strictly FIFO, one at a time, pausing
// drainDelay between tasks. Tasks enqueued mid-drain are picked up before
// the goroutine exits.
func (q *syncQueue) drain() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if q.stopped || !q.online || len(q.tasks) == 0 {
			q.inFlight = false
			q.mu.Unlock()
			return
		}
		pending := q.tasks[0]
		q.tasks = q.tasks[1:]
		more := len(q.tasks) > 0
		q.mu.Unlock()

		q.logger.Debug().
			Str("task_id", pending.task.TaskID).
			Str("scope", string(pending.task.Scope)).
			Msg("dispatching sync task")

		err := q.runner.FullSync(q.baseCtx, pending.task.Scope)
		resolveFutures(pending.futures, err)

		if more {
			select {
			case <-q.baseCtx.Done():
			case <-time.After(q.drainDelay):
			}
		}
	}
}

func resolveFutures(futures []chan error, err error) {
	for _, f := range futures {
		f <- err
		close(f)
	}
}
