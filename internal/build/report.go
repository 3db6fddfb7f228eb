package build

import (
	"time"

	nberrors "git.home.luguber.info/inful/nblink/internal/foundation/errors"
)

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	BuildStatusSuccess  BuildStatus = "success"
	BuildStatusFailed   BuildStatus = "failed"
	BuildStatusSkipped  BuildStatus = "skipped"
	BuildStatusCanceled BuildStatus = "canceled"
)

// IsSuccess returns true if no document failed.
func (s BuildStatus) IsSuccess() bool {
	return s == BuildStatusSuccess || s == BuildStatusSkipped
}

// DocumentStatus is the outcome for one document.
type DocumentStatus string

const (
	DocumentBuilt   DocumentStatus = "built"
	DocumentSkipped DocumentStatus = "skipped"
	DocumentFailed  DocumentStatus = "failed"
)

// DocumentResult describes what happened to one document.
type DocumentResult struct {
	DocName  string
	Source   string
	DocType  string
	Status   DocumentStatus
	Reason   string
	Err      *nberrors.ClassifiedError
	Duration time.Duration
	// Dependencies are the doc-root-relative paths the document depends on.
	Dependencies []string
	// Outputs are the absolute paths of files written for the document.
	Outputs []string
}

// Report summarizes a build.
type Report struct {
	BuildID   string
	Status    BuildStatus
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Documents []DocumentResult
	Built     int
	Skipped   int
	Failed    int
	Removed   int
}

// Errors returns the classified errors of failed documents in discovery order.
func (r *Report) Errors() []*nberrors.ClassifiedError {
	var errs []*nberrors.ClassifiedError
	for _, d := range r.Documents {
		if d.Err != nil {
			errs = append(errs, d.Err)
		}
	}
	return errs
}

// Outputs returns every file written during the build.
func (r *Report) Outputs() []string {
	var out []string
	for _, d := range r.Documents {
		out = append(out, d.Outputs...)
	}
	return out
}

func (r *Report) add(res DocumentResult) {
	r.Documents = append(r.Documents, res)
	switch res.Status {
	case DocumentBuilt:
		r.Built++
	case DocumentSkipped:
		r.Skipped++
	case DocumentFailed:
		r.Failed++
	}
}

func (r *Report) finish(status BuildStatus) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Status = status
}
