package catalog

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Store holds the current catalog and swaps it atomically on reload. Battles
// already running keep the participants they were built with.
type Store struct {
	current atomic.Pointer[Catalog]
}

// NewStore returns a Store serving c.
//
// Precondition: c must be non-nil.
func NewStore(c *Catalog) *Store {
	s := &Store{}
	s.current.Store(c)
	return s
}

// Current returns the catalog in effect.
func (s *Store) Current() *Catalog { return s.current.Load() }

// Replace installs c.
func (s *Store) Replace(c *Catalog) { s.current.Store(c) }

// reloadDebounce collapses the burst of events an editor save produces.
const reloadDebounce = 100 * time.Millisecond

// Watcher reloads a Store from a directory whenever a template file in it
// changes. An invalid edit is logged and the previous catalog stays in effect.
type Watcher struct {
	dir     string
	store   *Store
	logger  *zap.Logger
	watcher *fsnotify.Watcher

	closeOnce sync.Once
	closeCh   chan struct{}
	reloads   atomic.Int64
}

// NewWatcher starts watching dir.
//
// Precondition: dir must be a readable directory; store and logger non-nil.
func NewWatcher(dir string, store *Store, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return &Watcher{
		dir:     dir,
		store:   store,
		logger:  logger,
		watcher: fw,
		closeCh: make(chan struct{}),
	}, nil
}

// Reloads returns the number of successful reloads.
func (w *Watcher) Reloads() int64 { return w.reloads.Load() }

// Start processes file events until Stop is called.
func (w *Watcher) Start() error {
	var pending <-chan time.Time
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !isTemplateFile(event.Name) {
				continue
			}
			pending = time.After(reloadDebounce)
		case <-pending:
			pending = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("catalog watch error", zap.Error(err))
		case <-w.closeCh:
			return nil
		}
	}
}

// Stop ends Start and releases the underlying watcher. Safe to call multiple times.
func (w *Watcher) Stop() {
	w.closeOnce.Do(func() {
		close(w.closeCh)
		_ = w.watcher.Close()
	})
}

func (w *Watcher) reload() {
	c, err := Load(w.dir)
	if err != nil {
		w.logger.Error("catalog reload failed; keeping previous catalog",
			zap.String("dir", w.dir),
			zap.Error(err),
		)
		return
	}
	w.store.Replace(c)
	w.reloads.Add(1)
	w.logger.Info("catalog reloaded",
		zap.String("dir", w.dir),
		zap.Int("heroes", len(c.Heroes())),
		zap.Int("encounters", len(c.Encounters())),
	)
}
