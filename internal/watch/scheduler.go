package watch

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// rescanScheduler periodically asks the watcher for a full rescan. It covers
// changes the file watcher cannot see, such as notebooks on network mounts.
type rescanScheduler struct {
	scheduler gocron.Scheduler
}

func newRescanScheduler(interval time.Duration, trigger func(reason string)) (*rescanScheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(trigger, "rescan"),
		gocron.WithName("nblink-rescan"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create rescan job: %w", err)
	}
	return &rescanScheduler{scheduler: s}, nil
}

func (s *rescanScheduler) start(interval time.Duration) {
	slog.Debug("Starting rescan scheduler", slog.Duration("interval", interval))
	s.scheduler.Start()
}

func (s *rescanScheduler) stop() error {
	return s.scheduler.Shutdown()
}
