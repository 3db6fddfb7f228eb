package nblink

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Resolution holds the paths computed for one descriptor entry.
type Resolution struct {
	DeclaredPath string `json:"declared_path"`
	// AbsPath is the cleaned absolute filesystem path of the notebook.
	AbsPath string `json:"abs_path"`
	// DocRelPath is AbsPath relative to the documentation root, slash separated.
	// It is the dependency key.
	DocRelPath string `json:"doc_rel_path"`
	// TargetRelPath is AbsPath relative to the target root, slash separated.
	TargetRelPath string `json:"target_rel_path"`
}

// ResolvePaths computes the notebook paths for link as declared in the descriptor
// at descriptorPath. The notebook does not have to exist. An empty targetRoot
// falls back to docRoot.
func ResolvePaths(link Link, descriptorPath, docRoot, targetRoot string) (Resolution, error) {
	if link.Path == "" {
		return Resolution{}, fmt.Errorf("descriptor entry has an empty path")
	}
	descriptorAbs, err := filepath.Abs(descriptorPath)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve descriptor location: %w", err)
	}
	abs := joinFrom(filepath.Dir(descriptorAbs), link.Path)

	docRel, err := slashRel(docRoot, abs)
	if err != nil {
		return Resolution{}, fmt.Errorf("express notebook path relative to documentation root: %w", err)
	}
	if targetRoot == "" {
		targetRoot = docRoot
	}
	targetRel, err := slashRel(targetRoot, abs)
	if err != nil {
		return Resolution{}, fmt.Errorf("express notebook path relative to target root: %w", err)
	}

	return Resolution{
		DeclaredPath:  link.Path,
		AbsPath:       abs,
		DocRelPath:    docRel,
		TargetRelPath: targetRel,
	}, nil
}

// joinFrom resolves p against dir unless p is absolute, normalizing . and .. segments.
func joinFrom(dir, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}

// slashRel returns target relative to base with forward slashes on every host.
func slashRel(base, target string) (string, error) {
	baseAbs, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(baseAbs, target)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// isWithin reports whether child lies strictly inside parent.
func isWithin(child, parent string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
