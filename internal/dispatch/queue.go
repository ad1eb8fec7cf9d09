// Package dispatch hands work to the owner thread. Callers on any goroutine
// submit tasks and may wait for them only through Join.
package dispatch

import (
	"errors"
	"sync"

	"fyne.io/fyne/v2"

	"image-bridge/internal/logger"
)

var ErrStopped = errors.New("dispatch queue stopped")

// Executor runs fn on the owner thread.
type Executor func(fn func())

// FyneExecutor runs work on the fyne main goroutine.
func FyneExecutor() Executor {
	return fyne.Do
}

// Inline runs work on the calling goroutine. Used in tests and headless runs.
func Inline(fn func()) { fn() }

type Task struct {
	Name string
	Run  func() error
}

type Queue struct {
	tasks   chan Task
	done    chan struct{}
	quit    chan struct{}
	exec    Executor
	log     logger.Logger
	pending sync.WaitGroup
	senders sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

func NewQueue(size int, exec Executor, log logger.Logger) *Queue {
	if exec == nil {
		exec = Inline
	}
	return &Queue{
		tasks: make(chan Task, size),
		done:  make(chan struct{}),
		quit:  make(chan struct{}),
		exec:  exec,
		log:   log,
	}
}

// Submit enqueues a task. It blocks only while the buffer is full, and
// gives up with ErrStopped once Stop begins.
func (q *Queue) Submit(name string, run func() error) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrStopped
	}
	q.pending.Add(1)
	q.senders.Add(1)
	q.mu.Unlock()
	defer q.senders.Done()

	select {
	case q.tasks <- Task{Name: name, Run: run}:
		return nil
	case <-q.quit:
		q.pending.Done()
		return ErrStopped
	}
}

// Run processes tasks until Stop is called.
func (q *Queue) Run() {
	for {
		select {
		case task := <-q.tasks:
			q.exec(func() {
				defer q.pending.Done()
				if err := task.Run(); err != nil {
					q.log.Warning("DispatchQueue", "task failed", map[string]interface{}{
						"task":  task.Name,
						"error": err.Error(),
					})
				}
			})
		case <-q.done:
			return
		}
	}
}

// Join waits until every submitted task has run.
func (q *Queue) Join() {
	q.pending.Wait()
}

// Stop ends Run after draining what is already queued.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.quit)
	q.mu.Unlock()
	q.senders.Wait()

	for {
		select {
		case task := <-q.tasks:
			q.exec(func() {
				defer q.pending.Done()
				if err := task.Run(); err != nil {
					q.log.Warning("DispatchQueue", "task failed during drain", map[string]interface{}{
						"task":  task.Name,
						"error": err.Error(),
					})
				}
			})
		default:
			close(q.done)
			return
		}
	}
}

// Shutdown satisfies the shutdown manager.
func (q *Queue) Shutdown() {
	q.Stop()
}
