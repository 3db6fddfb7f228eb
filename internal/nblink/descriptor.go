package nblink

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON string

const schemaResource = "nblink.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaResource, strings.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(schemaResource)
})

// MediaSpec is the declared extra-media list. A single JSON string decodes to a
// one-element list.
type MediaSpec []string

// UnmarshalJSON accepts a string, an array of strings or null.
func (m *MediaSpec) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var single string
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}
		*m = MediaSpec{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(trimmed, &many); err != nil {
		return fmt.Errorf("extra-media must be a string or an array of strings: %w", err)
	}
	*m = MediaSpec(many)
	return nil
}

// Link is one descriptor entry.
type Link struct {
	Path       string    `json:"path"`
	ExtraMedia MediaSpec `json:"extra-media,omitempty"`
}

// ParseDescriptor decodes descriptor text into its links. The text holds either
// a single entry object or a non-empty array of entry objects. Failures are
// *DescriptorError values without a document identity; callers fill it in.
func ParseDescriptor(text []byte) ([]Link, error) {
	raw, err := decodeStrict(text)
	if err != nil {
		return nil, &DescriptorError{Reason: "invalid JSON", Err: err}
	}

	var entries []any
	switch v := raw.(type) {
	case map[string]any:
		entries = []any{v}
	case []any:
		if len(v) == 0 {
			return nil, &DescriptorError{Reason: "descriptor lists no notebooks"}
		}
		entries = v
	default:
		return nil, &DescriptorError{Reason: "descriptor must be a JSON object or an array of objects"}
	}

	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile descriptor schema: %w", err)
	}

	links := make([]Link, 0, len(entries))
	for i, entry := range entries {
		if err := schema.Validate(entry); err != nil {
			derr := &DescriptorError{Reason: "descriptor does not match the expected format", Err: err}
			var verr *jsonschema.ValidationError
			if errors.As(err, &verr) {
				derr.Err = nil
				derr.Issues = collectIssues(verr, entryPrefix(i, len(entries)))
			}
			return nil, derr
		}
		encoded, err := json.Marshal(entry)
		if err != nil {
			return nil, &DescriptorError{Reason: "re-encode entry", Err: err}
		}
		var link Link
		if err := json.Unmarshal(encoded, &link); err != nil {
			return nil, &DescriptorError{Reason: "decode entry", Err: err}
		}
		links = append(links, link)
	}
	return links, nil
}

// decodeStrict decodes exactly one JSON value, rejecting trailing data.
func decodeStrict(text []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty descriptor")
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after the descriptor value")
	}
	return v, nil
}

func entryPrefix(i, total int) string {
	if total == 1 {
		return ""
	}
	return fmt.Sprintf("/%d", i)
}

func collectIssues(err *jsonschema.ValidationError, prefix string) []string {
	var issues []string
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if len(node.Causes) == 0 {
			loc := prefix + node.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			issues = append(issues, fmt.Sprintf("%s: %s", loc, strings.TrimSpace(node.Message)))
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(err)
	return issues
}
