package nblink

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/nblink/internal/registry"
)

const (
	// DocType is the document type descriptors are registered under.
	DocType = "linked_jupyter_notebook"
	// Suffix is the default descriptor file suffix.
	Suffix = ".nblink"
	// ExtensionName identifies the extension in the registry.
	ExtensionName = "nblink"
)

// Renderer receives the linked notebook text after resolution. It is the only
// consumer of notebook content.
type Renderer interface {
	Render(ctx context.Context, doc Document, link Resolution, notebook string) error
}

// Parser connects a Resolver to a Renderer.
type Parser struct {
	resolver *Resolver
	renderer Renderer
}

// NewParser creates a parser.
func NewParser(resolver *Resolver, renderer Renderer) *Parser {
	return &Parser{resolver: resolver, renderer: renderer}
}

// Parse resolves the descriptor and hands each notebook to the renderer in
// declaration order.
func (p *Parser) Parse(ctx context.Context, doc Document, input []byte) error {
	resolved, err := p.resolver.Resolve(ctx, doc, input)
	if err != nil {
		return err
	}
	for _, r := range resolved {
		if err := p.renderer.Render(ctx, doc, r.Resolution, r.Notebook); err != nil {
			return fmt.Errorf("render %s: %w", r.DeclaredPath, err)
		}
	}
	return nil
}

// ExtensionOptions tunes the registered capability.
type ExtensionOptions struct {
	// Suffixes defaults to [Suffix].
	Suffixes []string
	// CustomFormats registers the descriptor suffixes as custom notebook formats.
	CustomFormats bool
}

// Extension returns the capability object to install into a registry.
func Extension(p *Parser, version string, opts ExtensionOptions) registry.Extension {
	suffixes := opts.Suffixes
	if len(suffixes) == 0 {
		suffixes = []string{Suffix}
	}
	ext := registry.Extension{
		Name:         ExtensionName,
		Version:      version,
		Suffixes:     make(map[string]string, len(suffixes)),
		Parsers:      []registry.Capability{{DocType: DocType, Parse: p.Parse}},
		ParallelSafe: true,
	}
	for _, s := range suffixes {
		ext.Suffixes[s] = DocType
	}
	if opts.CustomFormats {
		ext.Formats = make(map[string]registry.FormatDecoder, len(suffixes))
		for _, s := range suffixes {
			ext.Formats[s] = p.resolver.ReadLinked
		}
	}
	return ext
}
