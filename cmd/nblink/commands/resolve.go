package commands

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/nblink/internal/build"
	nberrors "git.home.luguber.info/inful/nblink/internal/foundation/errors"
	"git.home.luguber.info/inful/nblink/internal/nblink"
)

// ResolveCmd implements the 'resolve' command.
type ResolveCmd struct {
	Descriptor string `arg:"" help:"Descriptor file to resolve" type:"existingfile"`
	Stage      bool   `help:"Copy extra media and read the notebooks instead of only planning"`
}

// resolveOutput is the JSON document printed by 'resolve'.
type resolveOutput struct {
	Document     string            `json:"document"`
	Source       string            `json:"source"`
	Links        []nblink.Resolved `json:"links"`
	Dependencies []string          `json:"dependencies,omitempty"`
	Metadata     map[string]any    `json:"metadata,omitempty"`
	Reread       bool              `json:"reread,omitempty"`
}

func (r *ResolveCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	s, err := openSession(cfg, false)
	if err != nil {
		return err
	}
	defer s.Close()

	path, err := filepath.Abs(r.Descriptor)
	if err != nil {
		return nberrors.WrapError(err, nberrors.CategoryFileSystem, "invalid descriptor path").Build()
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nberrors.WrapError(err, nberrors.CategoryFileSystem, "failed to read descriptor").
			WithContext("path", path).
			Build()
	}

	src := sourceFor(s, path)

	out := resolveOutput{Document: src.DocName, Source: path}
	if r.Stage {
		env := build.NewEnv(src.DocName, path, src.DocType)
		out.Links, err = s.builder.Resolver().Resolve(context.Background(), env, content)
		out.Dependencies = env.Dependencies()
		out.Metadata = env.Metadata()
		out.Reread = env.Reread()
	} else {
		out.Links, err = plan(s.builder.Resolver(), src, content)
	}
	if err != nil {
		return classifyResolveError(err, src)
	}

	enc := json.NewEncoder(g.out())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// sourceFor names the document at path the way a build would. Paths outside
// the doc root are named after their base name.
func sourceFor(s *session, path string) build.Source {
	if src, ok := s.builder.Source(path); ok {
		return src
	}
	return build.Source{
		DocName: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:    path,
		DocType: nblink.DocType,
	}
}

// plan resolves paths and media destinations without touching the filesystem.
func plan(resolver *nblink.Resolver, src build.Source, content []byte) ([]nblink.Resolved, error) {
	links, err := nblink.ParseDescriptor(content)
	if err != nil {
		var derr *nblink.DescriptorError
		if errors.As(err, &derr) {
			derr.Document = src.DocName
		}
		return nil, err
	}
	resolved := make([]nblink.Resolved, 0, len(links))
	for _, link := range links {
		res, err := nblink.ResolvePaths(link, src.Path, resolver.DocRoot(), resolver.TargetRoot())
		if err != nil {
			return nil, &nblink.TargetUnreadableError{Document: src.DocName, DeclaredPath: link.Path, Err: err}
		}
		media, err := nblink.Plan(link.ExtraMedia, src.Path, res.AbsPath)
		if err != nil {
			return nil, &nblink.MediaError{Document: src.DocName, Err: err}
		}
		resolved = append(resolved, nblink.Resolved{Resolution: res, Media: media})
	}
	return resolved, nil
}

func classifyResolveError(err error, src build.Source) error {
	var (
		descriptorErr *nblink.DescriptorError
		targetErr     *nblink.TargetUnreadableError
		mediaErr      *nblink.MediaError
	)
	category := nberrors.CategoryBuild
	switch {
	case errors.As(err, &descriptorErr):
		category = nberrors.CategoryDescriptor
	case errors.As(err, &targetErr):
		category = nberrors.CategoryTarget
	case errors.As(err, &mediaErr):
		category = nberrors.CategoryMedia
	}
	return nberrors.WrapError(err, category, "failed to resolve descriptor").
		WithContext("document", src.DocName).
		UserAction().
		Build()
}
