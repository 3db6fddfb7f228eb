package nblink

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"git.home.luguber.info/inful/nblink/internal/logfields"
	"git.home.luguber.info/inful/nblink/internal/metrics"
)

// OutputRecorder is implemented by documents that track the files their build
// writes, so a later build can notice when one disappears.
type OutputRecorder interface {
	NoteOutput(path string)
}

// CopyInstruction is one planned extra-media copy.
type CopyInstruction struct {
	Declared    string `json:"declared"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	IsDir       bool   `json:"is_dir"`
	// Skipped is set when the source did not exist or could not be copied onto itself.
	Skipped bool `json:"skipped,omitempty"`
}

// Stager copies extra media so it sits next to the linked notebook the same way
// it sits next to the descriptor.
type Stager struct {
	docRoot  string
	logger   *slog.Logger
	recorder metrics.Recorder
}

// NewStager creates a stager. docRoot anchors the dependency keys of staged files.
func NewStager(docRoot string, logger *slog.Logger, recorder metrics.Recorder) *Stager {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Stager{docRoot: docRoot, logger: logger, recorder: recorder}
}

// Plan computes source and destination for every media entry without touching
// the filesystem. Relative entries resolve against the descriptor directory; the
// destination re-applies the source's offset from the descriptor directory to
// the notebook directory.
func Plan(media MediaSpec, descriptorPath, notebookPath string) ([]CopyInstruction, error) {
	descriptorAbs, err := filepath.Abs(descriptorPath)
	if err != nil {
		return nil, err
	}
	notebookAbs, err := filepath.Abs(notebookPath)
	if err != nil {
		return nil, err
	}
	descDir := filepath.Dir(descriptorAbs)
	nbDir := filepath.Dir(notebookAbs)

	out := make([]CopyInstruction, 0, len(media))
	for _, declared := range media {
		src := joinFrom(descDir, declared)
		rel, err := filepath.Rel(descDir, src)
		if err != nil {
			return nil, fmt.Errorf("extra-media %q: %w", declared, err)
		}
		out = append(out, CopyInstruction{
			Declared:    declared,
			Source:      src,
			Destination: filepath.Join(nbDir, rel),
		})
	}
	return out, nil
}

// Stage copies every media entry for doc. Missing sources are logged and
// skipped. Directory destinations are replaced wholesale; file destinations are
// overwritten. Each copied source file becomes a dependency of doc, and staging
// any directory marks doc for re-reading on every build.
func (s *Stager) Stage(doc Document, media MediaSpec, descriptorPath, notebookPath string) ([]CopyInstruction, error) {
	plan, err := Plan(media, descriptorPath, notebookPath)
	if err != nil {
		return nil, &MediaError{Document: doc.Name(), Err: err}
	}

	anyDir := false
	for i := range plan {
		in := &plan[i]
		info, err := os.Stat(in.Source)
		if sourceMissing(err) {
			in.Skipped = true
			s.recorder.IncMediaMissing()
			s.logger.Warn("Extra-media path does not exist, skipping",
				logfields.Document(doc.Name()),
				logfields.DeclaredPath(in.Declared),
				logfields.MediaSource(in.Source))
			continue
		}
		if err != nil {
			return plan, s.mediaErr(doc, in, err)
		}
		in.IsDir = info.IsDir()

		if in.IsDir {
			anyDir = true
			if err := s.stageDir(doc, in); err != nil {
				return plan, err
			}
			continue
		}
		if err := s.stageFile(doc, in); err != nil {
			return plan, err
		}
	}

	if anyDir {
		doc.NoteReread()
	}
	return plan, nil
}

func (s *Stager) stageDir(doc Document, in *CopyInstruction) error {
	switch {
	case filepath.Clean(in.Source) == filepath.Clean(in.Destination):
		in.Skipped = true
		files, err := listFiles(in.Source)
		if err != nil {
			return s.mediaErr(doc, in, err)
		}
		s.noteDependencies(doc, files)
		return nil
	case isWithin(in.Destination, in.Source), isWithin(in.Source, in.Destination):
		in.Skipped = true
		s.logger.Warn("Extra-media directory overlaps its staging destination, skipping",
			logfields.Document(doc.Name()),
			logfields.DeclaredPath(in.Declared),
			logfields.MediaSource(in.Source),
			logfields.MediaDest(in.Destination))
		return nil
	}

	copied, err := replaceTree(in.Source, in.Destination)
	s.noteDependencies(doc, copied)
	if err != nil {
		return s.mediaErr(doc, in, err)
	}
	noteOutput(doc, in.Destination)
	s.recorder.IncMediaStaged(metrics.MediaDir)
	s.logger.Debug("Staged extra-media directory",
		logfields.Document(doc.Name()),
		logfields.MediaSource(in.Source),
		logfields.MediaDest(in.Destination),
		logfields.Count(len(copied)))
	return nil
}

func (s *Stager) stageFile(doc Document, in *CopyInstruction) error {
	if filepath.Clean(in.Source) == filepath.Clean(in.Destination) {
		in.Skipped = true
		s.noteDependencies(doc, []string{in.Source})
		return nil
	}
	if err := copyFile(in.Source, in.Destination); err != nil {
		return s.mediaErr(doc, in, err)
	}
	s.noteDependencies(doc, []string{in.Source})
	noteOutput(doc, in.Destination)
	s.recorder.IncMediaStaged(metrics.MediaFile)
	s.logger.Debug("Staged extra-media file",
		logfields.Document(doc.Name()),
		logfields.MediaSource(in.Source),
		logfields.MediaDest(in.Destination))
	return nil
}

func (s *Stager) noteDependencies(doc Document, files []string) {
	for _, f := range files {
		rel, err := slashRel(s.docRoot, f)
		if err != nil {
			s.logger.Debug("Cannot express media file relative to documentation root",
				logfields.Document(doc.Name()),
				logfields.Path(f),
				logfields.Error(err))
			continue
		}
		doc.NoteDependency(rel)
	}
}

func (s *Stager) mediaErr(doc Document, in *CopyInstruction, err error) error {
	return &MediaError{
		Document:    doc.Name(),
		Declared:    in.Declared,
		Source:      in.Source,
		Destination: in.Destination,
		Err:         err,
	}
}

func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// sourceMissing reports whether err means the media path does not exist. A path
// running through a regular file ("logo.png/x") fails with ENOTDIR.
func sourceMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func noteOutput(doc Document, path string) {
	if r, ok := doc.(OutputRecorder); ok {
		r.NoteOutput(path)
	}
}
