package commands

import (
	"os"
	"path/filepath"

	nberrors "git.home.luguber.info/inful/nblink/internal/foundation/errors"
)

// CatCmd implements the 'cat' command. It reads a file through the registered
// custom formats, so a descriptor prints as the notebook it links to.
type CatCmd struct {
	Path string `arg:"" help:"Descriptor file to read" type:"existingfile"`
}

func (c *CatCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	s, err := openSession(cfg, false)
	if err != nil {
		return err
	}
	defer s.Close()

	path, err := filepath.Abs(c.Path)
	if err != nil {
		return nberrors.WrapError(err, nberrors.CategoryFileSystem, "invalid path").Build()
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nberrors.WrapError(err, nberrors.CategoryFileSystem, "failed to read file").
			WithContext("path", path).
			Build()
	}
	decoded, err := s.builder.Registry().Formats().Decode(path, content)
	if err != nil {
		return classifyResolveError(err, sourceFor(s, path))
	}
	_, err = g.out().Write(decoded)
	return err
}
