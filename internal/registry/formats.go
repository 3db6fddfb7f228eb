package registry

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"git.home.luguber.info/inful/nblink/internal/logfields"
)

// FormatDecoder converts a file in a custom format into notebook text.
type FormatDecoder func(sourcePath string, content []byte) ([]byte, error)

// Formats maps file suffixes to custom-format decoders. The first registration
// for a suffix wins; later attempts are ignored.
type Formats struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	decoders map[string]FormatDecoder
}

// NewFormats creates an empty format table.
func NewFormats(logger *slog.Logger) *Formats {
	if logger == nil {
		logger = slog.Default()
	}
	return &Formats{logger: logger, decoders: make(map[string]FormatDecoder)}
}

// Register adds dec for suffix and reports whether it was stored.
func (f *Formats) Register(suffix string, dec FormatDecoder) bool {
	if suffix == "" || dec == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.decoders[suffix]; exists {
		f.logger.Debug("Custom format already registered, keeping first", logfields.Suffix(suffix))
		return false
	}
	f.decoders[suffix] = dec
	return true
}

// Lookup returns the decoder registered for suffix.
func (f *Formats) Lookup(suffix string) (FormatDecoder, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	dec, ok := f.decoders[suffix]
	return dec, ok
}

// Decode runs the decoder registered for the longest suffix matching path.
// Like source discovery, a file named only by a suffix never matches.
func (f *Formats) Decode(path string, content []byte) ([]byte, error) {
	f.mu.RLock()
	base := filepath.Base(path)
	best := ""
	for suffix := range f.decoders {
		if strings.HasSuffix(base, suffix) && len(suffix) > len(best) && len(base) > len(suffix) {
			best = suffix
		}
	}
	dec := f.decoders[best]
	f.mu.RUnlock()

	if dec == nil {
		return nil, fmt.Errorf("no custom format registered for %q", base)
	}
	return dec(path, content)
}

// Suffixes returns the registered suffixes, sorted.
func (f *Formats) Suffixes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]string, 0, len(f.decoders))
	for s := range f.decoders {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
