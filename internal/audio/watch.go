package audio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must stay unchanged before it is reported.
const DefaultSettle = 500 * time.Millisecond

// Watcher reports audio files that appear under a directory tree.
type Watcher struct {
	dir     string
	ext     string
	settle  time.Duration
	logger  *log.Logger
	watcher *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer
	// pending counts settle callbacks that are scheduled or running.
	pending sync.WaitGroup
}

// NewWatcher starts watching dir and every directory below it. Files already present are ignored.
func NewWatcher(dir, ext string, settle time.Duration, logger *log.Logger) (*Watcher, error) {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		dir:     dir,
		ext:     ext,
		settle:  settle,
		logger:  logger,
		watcher: fw,
		timers:  make(map[string]*time.Timer),
	}
	if err := w.addTree(dir); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Run delivers each new or rewritten file to onFile once it has been quiet for the settle
// period. It blocks until ctx is cancelled and always closes the watcher. onFile is never
// called after Run returns.
func (w *Watcher) Run(ctx context.Context, onFile func(models.FileHandle)) error {
	defer w.close()

	w.logger.Info("watching for audio files", "dir", w.dir, "ext", w.ext)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event, onFile)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("file watcher error", "err", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event, onFile func(models.FileHandle)) {
	name := filepath.Base(event.Name)
	if isHidden(name) || strings.HasSuffix(name, ".tmp") {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("failed to watch directory", "dir", event.Name, "err", err)
			}
			return
		}
	}

	if !shared.HasExtension(name, w.ext) || !(event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) {
		return
	}
	w.schedule(ctx, event.Name, onFile)
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(ctx context.Context, path string, onFile func(models.FileHandle)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok && t.Stop() {
		w.pending.Done()
	}

	var timer *time.Timer
	w.pending.Add(1)
	timer = time.AfterFunc(w.settle, func() {
		defer w.pending.Done()

		w.mu.Lock()
		if w.timers[path] == timer {
			delete(w.timers, path)
		}
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		file, err := models.NewLocalFile(path)
		if err != nil {
			w.logger.Debug("file vanished before it settled", "file", path, "err", err)
			return
		}
		w.logger.Info("new audio file", "file", path)
		onFile(file)
	})
	w.timers[path] = timer
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// close stops pending timers and waits for callbacks that already fired.
func (w *Watcher) close() {
	w.mu.Lock()
	for path, t := range w.timers {
		if t.Stop() {
			w.pending.Done()
		}
		delete(w.timers, path)
	}
	w.mu.Unlock()
	w.watcher.Close()
	w.pending.Wait()
}
