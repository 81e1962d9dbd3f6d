package posts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when WithDebounce is not given.
const DefaultDebounce = 500 * time.Millisecond

// Watcher pushes post files as they are saved. Bursts of writes to the
// same file collapse into one push after the debounce interval.
type Watcher struct {
	syncer   *Syncer
	logger   *slog.Logger
	debounce time.Duration
	onPush   func(*PushResult, error)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long a file must be quiet before it is pushed.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithPushHook is called after every push attempt.
func WithPushHook(fn func(*PushResult, error)) WatcherOption {
	return func(w *Watcher) { w.onPush = fn }
}

// NewWatcher returns a Watcher for the syncer's directory.
func NewWatcher(s *Syncer, logger *slog.Logger, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		syncer:   s,
		logger:   logger,
		debounce: DefaultDebounce,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Watch blocks until ctx is cancelled. Push failures are logged and do
// not stop the watcher.
func (w *Watcher) Watch(ctx context.Context) error {
	dir := w.syncer.Dir()

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("creating posts dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	w.logger.Info("watching posts", slog.String("dir", dir))

	d := newDebouncer(w.debounce)
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("fsnotify events channel closed")
			}

			if ignored(event.Name) {
				continue
			}

			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				d.schedule(event.Name)
			}

		case p := <-d.ready:
			if d.take(p) {
				w.pushIfChanged(ctx, p.name)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("fsnotify errors channel closed")
			}

			// fsnotify errors are non-fatal (e.g. event queue overflow).
			w.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// pushIfChanged skips files whose content matches what was last written
// by the syncer, which includes the syncer's own writes.
func (w *Watcher) pushIfChanged(ctx context.Context, abs string) {
	name, err := rel(w.syncer.Dir(), abs)
	if err != nil {
		return
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		// Removed or renamed before the debounce fired.
		return
	}

	rec, err := w.syncer.records.PostRecordByPath(w.syncer.auth.BlogURL(), name)
	if err == nil && rec != nil && rec.Hash == contentHash(data) {
		return
	}

	res, err := w.syncer.Push(ctx, name)
	if err != nil {
		w.logger.Warn("push failed", slog.String("path", name), slog.String("error", err.Error()))
	} else {
		w.logger.Info("pushed", slog.String("path", name), slog.String("id", res.PostID))
	}

	if w.onPush != nil {
		w.onPush(res, err)
	}
}

// ignored filters temp files, hidden files and editor backups.
func ignored(path string) bool {
	name := filepath.Base(path)

	if strings.HasPrefix(name, ".") {
		return true
	}

	if strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp") {
		return true
	}

	return filepath.Ext(name) != ext
}

// debouncer delays per-file events until the file has been quiet for
// delay. Only the latest timer for a name is live; a firing that was
// superseded before it was taken is dropped.
type debouncer struct {
	delay time.Duration
	ready chan *pending
	done  chan struct{}

	mu      sync.Mutex
	timers  map[string]*pending
	stopped bool
	wg      sync.WaitGroup
}

type pending struct {
	name  string
	timer *time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:  delay,
		ready:  make(chan *pending),
		done:   make(chan struct{}),
		timers: make(map[string]*pending),
	}
}

func (d *debouncer) schedule(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if p, ok := d.timers[name]; ok && p.timer.Stop() {
		d.wg.Done()
	}

	p := &pending{name: name}

	d.wg.Add(1)
	p.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()

		select {
		case d.ready <- p:
		case <-d.done:
		}
	})
	d.timers[name] = p
}

// take reports whether p is still the live timer for its name and
// forgets it if so.
func (d *debouncer) take(p *pending) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timers[p.name] != p {
		return false
	}

	delete(d.timers, p.name)

	return true
}

// stop cancels pending timers, releases fired ones that were never taken
// and waits for all callbacks to return.
func (d *debouncer) stop() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.done)

		for _, p := range d.timers {
			if p.timer.Stop() {
				d.wg.Done()
			}
		}
	}
	d.mu.Unlock()

	d.wg.Wait()
}
