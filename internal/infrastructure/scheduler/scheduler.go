package scheduler

import (
	"sync"
	"time"
)

// Task is deferred work.
type Task func()

// Scheduler defers one task per key.
type Scheduler[K comparable] interface {
	// Schedule defers task under key. It reports false when a task is already
	// pending, in which case the new task is dropped.
	Schedule(key K, task Task) bool
	// Cancel drops the pending task of key.
	Cancel(key K) bool
	// CancelAll drops every pending task and returns how many were dropped.
	CancelAll() int
	// Flush runs the pending task of key now, or waits for it if it is
	// already running. It reports whether a task ran.
	Flush(key K) bool
	// Pending reports whether a task waits under key.
	Pending(key K) bool
	// Close cancels everything and waits for running tasks.
	Close()
}

type entry struct {
	timer *time.Timer
	task  Task
}

// Timer is a Scheduler backed by time.AfterFunc.
type Timer[K comparable] struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[K]*entry
	running map[K]chan struct{}
	closed  bool
	wg      sync.WaitGroup
}

// NewTimer creates a Scheduler that runs tasks after delay.
func NewTimer[K comparable](delay time.Duration) *Timer[K] {
	return &Timer[K]{
		delay:   delay,
		pending: make(map[K]*entry),
		running: make(map[K]chan struct{}),
	}
}

func (t *Timer[K]) Schedule(key K, task Task) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	if _, ok := t.pending[key]; ok {
		return false
	}
	e := &entry{task: task}
	e.timer = time.AfterFunc(t.delay, func() { t.fire(key, e) })
	t.pending[key] = e
	return true
}

func (t *Timer[K]) fire(key K, e *entry) {
	t.mu.Lock()
	if t.pending[key] != e {
		t.mu.Unlock()
		return
	}
	done := t.start(key)
	t.mu.Unlock()
	t.run(key, e.task, done)
}

// start marks key running. Caller holds mu.
func (t *Timer[K]) start(key K) chan struct{} {
	delete(t.pending, key)
	done := make(chan struct{})
	t.running[key] = done
	t.wg.Add(1)
	return done
}

func (t *Timer[K]) run(key K, task Task, done chan struct{}) {
	defer func() {
		t.mu.Lock()
		if t.running[key] == done {
			delete(t.running, key)
		}
		t.mu.Unlock()
		close(done)
		t.wg.Done()
	}()
	task()
}

func (t *Timer[K]) Cancel(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(t.pending, key)
	return true
}

func (t *Timer[K]) CancelAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.pending)
	for key, e := range t.pending {
		e.timer.Stop()
		delete(t.pending, key)
	}
	return n
}

func (t *Timer[K]) Flush(key K) bool {
	t.mu.Lock()
	if e, ok := t.pending[key]; ok {
		e.timer.Stop()
		done := t.start(key)
		t.mu.Unlock()
		t.run(key, e.task, done)
		return true
	}
	done, running := t.running[key]
	t.mu.Unlock()
	if running {
		<-done
	}
	return running
}

func (t *Timer[K]) Pending(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[key]
	return ok
}

func (t *Timer[K]) Close() {
	t.mu.Lock()
	t.closed = true
	for key, e := range t.pending {
		e.timer.Stop()
		delete(t.pending, key)
	}
	t.mu.Unlock()
	t.wg.Wait()
}
