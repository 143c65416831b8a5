package registry

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conduitcms/composer/internal/logging"
)

// DefinitionWatcher reloads block definition files when they change on
// disk, with debouncing so rapid editor saves collapse into one reload.
type DefinitionWatcher struct {
	registry  *BlockRegistry
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	logger    logging.Logger
}

// debouncer groups rapid file changes together. One timer slot; each new
// event stops and re-arms it.
type debouncer struct {
	delay   time.Duration
	output  chan []string
	timer   *time.Timer
	pending map[string]struct{}
	mutex   sync.Mutex
}

// NewDefinitionWatcher creates a watcher over the given definition
// directory.
func NewDefinitionWatcher(reg *BlockRegistry, logger logging.Logger, debounceDelay time.Duration) (*DefinitionWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &DefinitionWatcher{
		registry: reg,
		watcher:  fsWatcher,
		debouncer: &debouncer{
			delay:   debounceDelay,
			output:  make(chan []string, 10),
			pending: make(map[string]struct{}),
		},
		logger: logger.WithComponent("registry-watcher"),
	}, nil
}

// AddPath adds a directory of definition files to watch.
func (w *DefinitionWatcher) AddPath(dir string) error {
	return w.watcher.Add(dir)
}

// Start begins watching until the context is cancelled.
func (w *DefinitionWatcher) Start(ctx context.Context) {
	go w.watchLoop(ctx)
	go w.reloadLoop(ctx)
}

// Stop stops the watcher and cleans up resources.
func (w *DefinitionWatcher) Stop() error {
	w.debouncer.mutex.Lock()
	if w.debouncer.timer != nil {
		w.debouncer.timer.Stop()
	}
	w.debouncer.mutex.Unlock()
	return w.watcher.Close()
}

func (w *DefinitionWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, DefinitionSuffix) {
				continue
			}
			w.debouncer.add(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, err, "definition watcher error")
		}
	}
}

func (w *DefinitionWatcher) reloadLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case paths := <-w.debouncer.output:
			for _, path := range paths {
				w.reload(ctx, path)
			}
		}
	}
}

// reload re-parses one definition file. A vanished file drops its
// definitions; a broken file keeps the previous definition in place.
func (w *DefinitionWatcher) reload(ctx context.Context, path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		w.registry.RemoveBySource(path)
		w.logger.Info(ctx, "block definition removed", "path", path)
		return
	}

	def, err := LoadDefinitionFile(path)
	if err != nil {
		w.logger.Warn(ctx, err, "block definition unreadable, keeping previous", "path", path)
		return
	}

	w.registry.Register(def)
	w.logger.Info(ctx, "block definition reloaded", "path", path, "type", def.Type)
}

func (d *debouncer) add(path string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending[path] = struct{}{}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}

	paths := make([]string, 0, len(d.pending))
	for path := range d.pending {
		paths = append(paths, path)
	}
	d.pending = make(map[string]struct{})

	select {
	case d.output <- paths:
	default:
		// Channel full, skip
	}
}
