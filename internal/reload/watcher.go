package reload

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/utils"
)

// DefaultDebounce coalesces the events of one save.
const DefaultDebounce = 250 * time.Millisecond

// LoadFunc re-reads a file into its consumer.
type LoadFunc func() error

type target struct {
	name string
	path string
	load LoadFunc
	fp   utils.Fingerprint
}

// Watcher reloads registered files on change.
type Watcher struct {
	log      *zap.Logger
	metrics  *monitoring.Metrics
	debounce time.Duration

	mu      sync.Mutex
	targets map[string]*target // Protected by mu
	hooks   []func()           // Protected by mu

	done chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(w *Watcher) { w.metrics = m }
}

// WithDebounce sets the quiet period after the last event of a burst.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a watcher with no files.
func New(opts ...Option) *Watcher {
	w := &Watcher{
		log:      zap.NewNop(),
		debounce: DefaultDebounce,
		targets:  make(map[string]*target),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.Named("reload")
	return w
}

// Watch registers path under name. The current content is taken as loaded.
func (w *Watcher) Watch(name, path string, load LoadFunc) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", name, err)
	}
	fp, err := utils.FileFingerprint(abs)
	if err != nil {
		return fmt.Errorf("watch %s: %w", name, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.targets[abs] = &target{name: name, path: abs, load: load, fp: fp}
	return nil
}

// OnReload registers fn to run after a batch in which any file reloaded.
func (w *Watcher) OnReload(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hooks = append(w.hooks, fn)
}

// Start begins watching. The watcher stops when ctx is done; Wait blocks
// until it has.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	for _, dir := range w.dirs() {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.done = make(chan struct{})
	go w.loop(ctx, fsw)
	w.log.Info("watching configuration files", zap.Int("files", len(w.paths())))
	return nil
}

// Wait blocks until a started watcher has stopped.
func (w *Watcher) Wait() {
	if w.done != nil {
		<-w.done
	}
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer close(w.done)
	defer fsw.Close()

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
		pending = make(map[string]bool)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			path := filepath.Clean(event.Name)
			if !w.watched(path) || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			pending[path] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					<-timerCh
				}
				timer.Reset(w.debounce)
			}
		case <-timerCh:
			timer, timerCh = nil, nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			pending = make(map[string]bool)
			w.Reload(paths...)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

// Reload checks the given paths, or every watched file when none are given,
// and reloads those whose content changed. It reports how many reloaded.
func (w *Watcher) Reload(paths ...string) int {
	if len(paths) == 0 {
		paths = w.paths()
	}
	sort.Strings(paths)
	reloaded := 0
	for _, p := range paths {
		if w.reloadOne(p) {
			reloaded++
		}
	}
	if reloaded > 0 {
		w.mu.Lock()
		hooks := append([]func(){}, w.hooks...)
		w.mu.Unlock()
		for _, fn := range hooks {
			fn()
		}
	}
	return reloaded
}

func (w *Watcher) reloadOne(path string) bool {
	w.mu.Lock()
	t, ok := w.targets[path]
	var prev utils.Fingerprint
	if ok {
		prev = t.fp
	}
	w.mu.Unlock()
	if !ok {
		return false
	}
	log := w.log.With(zap.String("file", t.name), zap.String("path", t.path))

	fp, err := utils.FileFingerprint(t.path)
	if err != nil {
		log.Warn("fingerprint failed", zap.Error(err))
		w.metrics.RecordReload(t.name, "error")
		return false
	}
	if fp == prev {
		log.Debug("content unchanged, skipping reload")
		return false
	}
	if err := t.load(); err != nil {
		log.Error("reload failed, keeping previous content", zap.Error(err))
		w.metrics.RecordReload(t.name, "error")
		return false
	}
	w.mu.Lock()
	t.fp = fp
	w.mu.Unlock()
	w.metrics.RecordReload(t.name, "success")
	log.Info("configuration reloaded")
	return true
}

func (w *Watcher) watched(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.targets[path]
	return ok
}

func (w *Watcher) paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.targets))
	for p := range w.targets {
		out = append(out, p)
	}
	return out
}

func (w *Watcher) dirs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range w.paths() {
		dir := filepath.Dir(p)
		if !seen[dir] {
			seen[dir] = true
			out = append(out, dir)
		}
	}
	sort.Strings(out)
	return out
}
