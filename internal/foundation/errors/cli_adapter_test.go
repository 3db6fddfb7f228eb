package errors

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation", err: ValidationError("bad flag").Build(), expected: 2},
		{name: "config", err: ConfigError("bad config").Build(), expected: 7},
		{name: "descriptor", err: DescriptorError("missing path").Build(), expected: 11},
		{name: "target", err: TargetError("unreadable").Build(), expected: 11},
		{name: "store", err: StoreError("locked").Build(), expected: 12},
		{name: "internal", err: InternalError("boom").Build(), expected: 10},
		{name: "wrapped classified", err: fmt.Errorf("outer: %w", ConfigError("bad").Build()), expected: 7},
		{name: "unclassified", err: errors.New("plain"), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	err := TargetError("linked notebook unreadable").
		WithContext("document", "links/foo").
		Build()

	quiet := NewCLIErrorAdapter(false, nil)
	if got := quiet.FormatError(err); got != "Error: linked notebook unreadable" {
		t.Errorf("unexpected quiet format: %q", got)
	}

	verbose := NewCLIErrorAdapter(true, nil)
	got := verbose.FormatError(err)
	want := "[target:error] linked notebook unreadable (document=links/foo)"
	if got != want {
		t.Errorf("verbose format = %q, want %q", got, want)
	}

	if got := quiet.FormatError(InternalError("x").Build()); got != "Internal error occurred (use -v for details)" {
		t.Errorf("internal errors should be masked, got %q", got)
	}
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var out, logs bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logs, nil)))
	adapter.out = &out
	code := -1
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(ConfigError("docs.root is required").Build())

	if code != 7 {
		t.Errorf("exit code = %d, want 7", code)
	}
	if out.String() != "Error: docs.root is required\n" {
		t.Errorf("unexpected output %q", out.String())
	}
	if logs.Len() == 0 {
		t.Error("fatal errors should be logged")
	}
}
