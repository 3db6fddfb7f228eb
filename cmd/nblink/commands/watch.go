package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"git.home.luguber.info/inful/nblink/internal/build"
	"git.home.luguber.info/inful/nblink/internal/logfields"
	"git.home.luguber.info/inful/nblink/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct{}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	s, err := openSession(cfg, true)
	if err != nil {
		return err
	}
	defer s.Close()

	ignore := []string{cfg.Build.OutputDir}
	if cfg.Build.StateDB != ":memory:" {
		ignore = append(ignore, filepath.Dir(cfg.Build.StateDB))
	}
	watcher, err := watch.New(watch.Options{
		Roots:          s.watchRoots(context.Background()),
		Ignore:         ignore,
		Debounce:       cfg.Watch.Debounce,
		RescanInterval: cfg.Watch.RescanInterval,
	}, func(ctx context.Context, _ string, changed []string) ([]string, error) {
		s.logAffected(ctx, changed)
		report, err := s.builder.Run(ctx, build.RunOptions{})
		if report == nil {
			return nil, err
		}
		printReport(g, report)
		if err != nil {
			return report.Outputs(), err
		}
		return report.Outputs(), reportError(report)
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return watcher.Run(ctx)
}

// logAffected reports the documents that recorded a dependency on a changed file.
// Dependency keys are doc-root relative and may climb out of it.
func (s *session) logAffected(ctx context.Context, changed []string) {
	if s.store == nil {
		return
	}
	root := s.builder.DocRoot()
	for _, path := range changed {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		docs, err := s.store.Dependents(ctx, filepath.ToSlash(rel))
		if err != nil {
			slog.Debug("Dependency lookup failed", logfields.Path(path), logfields.Error(err))
			continue
		}
		if len(docs) > 0 {
			slog.Info("Change affects documents", logfields.Path(filepath.ToSlash(rel)), slog.Any("documents", docs))
		}
	}
}

// watchRoots returns the doc and target roots plus the directories of recorded
// dependencies that live outside both.
func (s *session) watchRoots(ctx context.Context) []string {
	docRoot := s.builder.DocRoot()
	roots := []string{docRoot, s.builder.Resolver().TargetRoot()}
	if s.store == nil {
		return roots
	}
	names, err := s.store.DocNames(ctx)
	if err != nil {
		slog.Debug("Cannot list recorded documents", logfields.Error(err))
		return roots
	}
	for _, name := range names {
		rec, found, err := s.store.Get(ctx, name)
		if err != nil || !found {
			continue
		}
		for dep := range rec.Dependencies {
			dir := filepath.Dir(filepath.Join(docRoot, filepath.FromSlash(dep)))
			if !underAny(dir, roots) {
				if _, err := os.Stat(dir); err == nil {
					roots = append(roots, dir)
				}
			}
		}
	}
	return roots
}

func underAny(path string, roots []string) bool {
	for _, root := range roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
