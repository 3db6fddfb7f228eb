// Package watch rebuilds documentation when sources, notebooks or media change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/nblink/internal/logfields"
)

// BuildFunc runs one build. reason describes what triggered it and changed lists
// the absolute paths of files seen changing since the previous build. It returns
// the files the build wrote; events for them (or below them) right after the
// build are not treated as changes.
type BuildFunc func(ctx context.Context, reason string, changed []string) ([]string, error)

// Options configures a Watcher.
type Options struct {
	// Roots are watched recursively. Hidden directories are skipped.
	Roots []string
	// Ignore lists directories whose events never trigger a build.
	Ignore         []string
	Debounce       time.Duration
	RescanInterval time.Duration
	Logger         *slog.Logger
}

// Watcher runs a build, then rebuilds after changes settle.
type Watcher struct {
	roots    []string
	ignore   []string
	debounce time.Duration
	rescan   time.Duration
	build    BuildFunc
	logger   *slog.Logger

	watcher     *fsnotify.Watcher
	triggerChan chan string
	written     []string
	quietUntil  time.Time
}

// New creates a watcher for opts.Roots.
func New(opts Options, build BuildFunc) (*Watcher, error) {
	if len(opts.Roots) == 0 {
		return nil, fmt.Errorf("no directories to watch")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		debounce:    debounce,
		rescan:      opts.RescanInterval,
		build:       build,
		logger:      logger,
		watcher:     fw,
		triggerChan: make(chan string, 1),
	}
	for _, root := range opts.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("failed to resolve watch root: %w", err)
		}
		w.roots = appendUnique(w.roots, abs)
	}
	for _, dir := range opts.Ignore {
		if abs, err := filepath.Abs(dir); err == nil {
			w.ignore = append(w.ignore, abs)
		}
	}
	return w, nil
}

// Run builds once and then rebuilds on changes until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			w.logger.Error("Error closing file watcher", logfields.Error(err))
		}
	}()

	for _, root := range w.roots {
		if err := w.addTree(root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}

	if w.rescan > 0 {
		s, err := newRescanScheduler(w.rescan, w.trigger)
		if err != nil {
			return err
		}
		s.start(w.rescan)
		defer func() {
			if err := s.stop(); err != nil {
				w.logger.Warn("Failed to stop rescan scheduler", logfields.Error(err))
			}
		}()
	}

	w.logger.Info("Watching for changes", slog.Any("roots", w.roots))
	w.runBuild(ctx, "initial", nil)

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		reasons []string
		changed []string
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			reason, relevant := w.handleEvent(event)
			if !relevant {
				continue
			}
			reasons = append(reasons, reason)
			changed = appendUnique(changed, reason)
			timer, timerC = w.resetTimer(timer)

		case reason := <-w.triggerChan:
			reasons = append(reasons, reason)
			timer, timerC = w.resetTimer(timer)

		case <-timerC:
			timerC = nil
			w.runBuild(ctx, summarize(reasons), changed)
			reasons = reasons[:0]
			changed = nil

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) resetTimer(timer *time.Timer) (*time.Timer, <-chan time.Time) {
	if timer == nil {
		timer = time.NewTimer(w.debounce)
	} else {
		timer.Reset(w.debounce)
	}
	return timer, timer.C
}

func (w *Watcher) runBuild(ctx context.Context, reason string, changed []string) {
	w.logger.Info("Rebuilding", slog.String("reason", reason))
	written, err := w.build(ctx, reason, changed)
	if err != nil {
		w.logger.Error("Build failed", logfields.Error(err))
	}
	w.written = w.written[:0]
	for _, p := range written {
		if abs, err := filepath.Abs(p); err == nil {
			w.written = append(w.written, abs)
		}
	}
	w.quietUntil = time.Now().Add(w.debounce)
}

// trigger requests a build without a file event.
func (w *Watcher) trigger(reason string) {
	select {
	case w.triggerChan <- reason:
	default:
	}
}

// handleEvent keeps directory watches current and reports whether event should
// trigger a build.
func (w *Watcher) handleEvent(event fsnotify.Event) (string, bool) {
	if w.ignored(event.Name) {
		return "", false
	}
	if event.Has(fsnotify.Create) {
		if err := w.addTree(event.Name); err != nil {
			w.logger.Debug("Cannot watch new path", logfields.Path(event.Name), logfields.Error(err))
		}
	}
	if time.Now().Before(w.quietUntil) && w.selfWritten(event.Name) {
		return "", false
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return "", false
	}
	w.logger.Debug("Change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
	return event.Name, true
}

// selfWritten reports whether path was written by the last build.
func (w *Watcher) selfWritten(path string) bool {
	for _, p := range w.written {
		if path == p || strings.HasPrefix(path, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) ignored(path string) bool {
	for _, dir := range w.ignore {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
			if strings.HasPrefix(part, ".") && part != "." {
				return true
			}
		}
	}
	return false
}

// addTree watches path and every directory below it. Files are ignored.
func (w *Watcher) addTree(path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != path && w.ignored(p) {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}

func summarize(reasons []string) string {
	switch len(reasons) {
	case 0:
		return "unknown"
	case 1:
		return reasons[0]
	default:
		return fmt.Sprintf("%s and %d more", reasons[0], len(reasons)-1)
	}
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
