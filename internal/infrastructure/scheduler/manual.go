package scheduler

import "sync"

// Manual is a Scheduler that only runs tasks when told to. Tests use it to
// observe exactly when deferred work happens.
type Manual[K comparable] struct {
	mu      sync.Mutex
	order   []K
	pending map[K]Task
	ran     int
}

// NewManual creates an empty manual scheduler.
func NewManual[K comparable]() *Manual[K] {
	return &Manual[K]{pending: make(map[K]Task)}
}

func (m *Manual[K]) Schedule(key K, task Task) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pending[key]; ok {
		return false
	}
	m.pending[key] = task
	m.order = append(m.order, key)
	return true
}

func (m *Manual[K]) take(key K) (Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.pending[key]
	if !ok {
		return nil, false
	}
	delete(m.pending, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.ran++
	return task, true
}

func (m *Manual[K]) Cancel(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pending[key]; !ok {
		return false
	}
	delete(m.pending, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

func (m *Manual[K]) CancelAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.pending)
	m.pending = make(map[K]Task)
	m.order = nil
	return n
}

func (m *Manual[K]) Flush(key K) bool {
	task, ok := m.take(key)
	if ok {
		task()
	}
	return ok
}

func (m *Manual[K]) Pending(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pending[key]
	return ok
}

// Len returns the number of pending tasks.
func (m *Manual[K]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Ran returns how many tasks have run.
func (m *Manual[K]) Ran() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ran
}

// RunAll runs every pending task in scheduling order, including tasks
// scheduled while running. It returns how many ran.
func (m *Manual[K]) RunAll() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.order) == 0 {
			m.mu.Unlock()
			return n
		}
		key := m.order[0]
		m.mu.Unlock()
		if m.Flush(key) {
			n++
		}
	}
}

func (m *Manual[K]) Close() { m.CancelAll() }
