package nblink

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrNotText reports notebook bytes that are not decodable text.
var ErrNotText = errors.New("notebook is not valid UTF-8 text")

// DescriptorError reports a malformed or incomplete descriptor. It aborts only
// the document being processed.
type DescriptorError struct {
	Document string
	Reason   string
	Issues   []string
	Err      error
}

func (e *DescriptorError) Error() string {
	var b strings.Builder
	if e.Document != "" {
		fmt.Fprintf(&b, "malformed link descriptor %q: %s", e.Document, e.Reason)
	} else {
		fmt.Fprintf(&b, "malformed link descriptor: %s", e.Reason)
	}
	if len(e.Issues) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Issues, "; "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DescriptorError) Unwrap() error { return e.Err }

// TargetUnreadableError reports a linked notebook that cannot be located, opened
// or decoded. Both the declared and the resolved path are kept so a broken link
// can be told apart from an encoding problem.
type TargetUnreadableError struct {
	Document     string
	DeclaredPath string
	ResolvedPath string
	Err          error
}

func (e *TargetUnreadableError) Error() string {
	return fmt.Sprintf("linked notebook of %q unreadable: declared path %q (resolved to %q): %v",
		e.Document, e.DeclaredPath, e.ResolvedPath, e.Err)
}

func (e *TargetUnreadableError) Unwrap() error { return e.Err }

// NotFound reports whether the resolved path does not exist.
func (e *TargetUnreadableError) NotFound() bool {
	return errors.Is(e.Err, fs.ErrNotExist)
}

// MediaError reports a failure while copying an extra-media source that exists.
// Missing sources are not errors.
type MediaError struct {
	Document    string
	Declared    string
	Source      string
	Destination string
	Err         error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("staging extra-media %q of %q from %q to %q: %v",
		e.Declared, e.Document, e.Source, e.Destination, e.Err)
}

func (e *MediaError) Unwrap() error { return e.Err }
