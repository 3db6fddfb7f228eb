package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/nblink/internal/build"
	nberrors "git.home.luguber.info/inful/nblink/internal/foundation/errors"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Full    bool   `help:"Rebuild every document, ignoring the dependency store"`
	Workers int    `short:"w" help:"Override build.workers"`
	Output  string `short:"o" help:"Override build.output_dir" type:"path"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if b.Workers > 0 {
		cfg.Build.Workers = b.Workers
	}
	if b.Output != "" {
		cfg.Build.OutputDir = b.Output
	}

	s, err := openSession(cfg, true)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := s.builder.Run(ctx, build.RunOptions{Full: b.Full})
	if report != nil {
		printReport(g, report)
	}
	if err != nil {
		return err
	}
	return reportError(report)
}

func printReport(g *Global, report *build.Report) {
	out := g.out()
	for _, doc := range report.Documents {
		if doc.Status != build.DocumentFailed {
			continue
		}
		msg := doc.Err.Message()
		if cause := doc.Err.Cause(); cause != nil {
			msg = cause.Error()
		}
		_, _ = fmt.Fprintf(out, "FAILED  %s: %s\n", doc.DocName, msg)
	}
	_, _ = fmt.Fprintf(out, "Build %s: %d built, %d up to date, %d failed (%s)\n",
		report.Status, report.Built, report.Skipped, report.Failed, report.Duration.Round(time.Millisecond))
}

// reportError turns per-document failures into a single classified error
// carrying the category of the first failure.
func reportError(report *build.Report) error {
	errs := report.Errors()
	if len(errs) == 0 {
		return nil
	}
	first := errs[0]
	return nberrors.WrapError(first, first.Category(), fmt.Sprintf("%d document(s) failed", len(errs))).
		WithContextMap(first.Context()).
		Build()
}
