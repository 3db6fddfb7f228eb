package normalization

import (
	"testing"
)

type testFormat string

const (
	formatText testFormat = "text"
	formatJSON testFormat = "json"
)

func newFormatNormalizer() *Normalizer[testFormat] {
	return NewNormalizer(map[string]testFormat{
		"text": formatText,
		"json": formatJSON,
	}, formatText)
}

func TestNormalizer_Normalize(t *testing.T) {
	normalizer := newFormatNormalizer()

	tests := []struct {
		name     string
		input    string
		expected testFormat
	}{
		{"exact match", "json", formatJSON},
		{"case insensitive", "JSON", formatJSON},
		{"with spaces", "  text  ", formatText},
		{"invalid input", "yaml", formatText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizer.Normalize(tt.input); got != tt.expected {
				t.Errorf("Normalize(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizer_NormalizeWithError(t *testing.T) {
	normalizer := newFormatNormalizer()

	if got, err := normalizer.NormalizeWithError(""); err != nil || got != formatText {
		t.Errorf("empty input should yield default, got %v, %v", got, err)
	}
	if got, err := normalizer.NormalizeWithError(" Json"); err != nil || got != formatJSON {
		t.Errorf("expected json, got %v, %v", got, err)
	}
	if _, err := normalizer.NormalizeWithError("yaml"); err == nil {
		t.Error("expected error for unknown value")
	}
}

func TestNormalizer_ValidKeysSorted(t *testing.T) {
	keys := newFormatNormalizer().ValidKeys()
	if len(keys) != 2 || keys[0] != "json" || keys[1] != "text" {
		t.Errorf("unexpected keys %v", keys)
	}
}
