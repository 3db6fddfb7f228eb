package nblink

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDescriptor_SingleObject(t *testing.T) {
	links, err := ParseDescriptor([]byte(`{"path": "../notebooks/foo.ipynb"}`))
	require.NoError(t, err)
	require.Equal(t, []Link{{Path: "../notebooks/foo.ipynb"}}, links)
}

func TestParseDescriptor_ExtraMediaForms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  MediaSpec
	}{
		{"string", `{"path": "nb.ipynb", "extra-media": "img"}`, MediaSpec{"img"}},
		{"array", `{"path": "nb.ipynb", "extra-media": ["img", "data/plot.png"]}`, MediaSpec{"img", "data/plot.png"}},
		{"null", `{"path": "nb.ipynb", "extra-media": null}`, nil},
		{"empty array", `{"path": "nb.ipynb", "extra-media": []}`, MediaSpec{}},
		{"absent", `{"path": "nb.ipynb"}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links, err := ParseDescriptor([]byte(tt.input))
			require.NoError(t, err)
			require.Len(t, links, 1)
			require.Equal(t, tt.want, links[0].ExtraMedia)
		})
	}
}

func TestParseDescriptor_StringMediaEqualsOneElementArray(t *testing.T) {
	single, err := ParseDescriptor([]byte(`{"path": "nb.ipynb", "extra-media": "img"}`))
	require.NoError(t, err)
	array, err := ParseDescriptor([]byte(`{"path": "nb.ipynb", "extra-media": ["img"]}`))
	require.NoError(t, err)
	require.Equal(t, array, single)
}

func TestParseDescriptor_ArrayOfLinks(t *testing.T) {
	links, err := ParseDescriptor([]byte(`[
		{"path": "a.ipynb"},
		{"path": "b.ipynb", "extra-media": "img", "future-key": true}
	]`))
	require.NoError(t, err)
	require.Equal(t, []Link{
		{Path: "a.ipynb"},
		{Path: "b.ipynb", ExtraMedia: MediaSpec{"img"}},
	}, links)
}

func TestParseDescriptor_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{"invalid json", `{"path": `, "invalid JSON"},
		{"empty input", ``, "invalid JSON"},
		{"trailing data", `{"path": "a.ipynb"} {}`, "invalid JSON"},
		{"missing path", `{"extra-media": "img"}`, "descriptor does not match the expected format"},
		{"empty path", `{"path": ""}`, "descriptor does not match the expected format"},
		{"path not string", `{"path": 12}`, "descriptor does not match the expected format"},
		{"media wrong type", `{"path": "a.ipynb", "extra-media": 3}`, "descriptor does not match the expected format"},
		{"media empty entry", `{"path": "a.ipynb", "extra-media": [""]}`, "descriptor does not match the expected format"},
		{"empty array", `[]`, "descriptor lists no notebooks"},
		{"scalar", `"a.ipynb"`, "descriptor must be a JSON object or an array of objects"},
		{"bad array entry", `[{"path": "a.ipynb"}, {"nope": 1}]`, "descriptor does not match the expected format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links, err := ParseDescriptor([]byte(tt.input))
			require.Nil(t, links)
			var derr *DescriptorError
			require.True(t, errors.As(err, &derr), "got %T: %v", err, err)
			require.Equal(t, tt.reason, derr.Reason)
		})
	}
}

func TestParseDescriptor_IssuesNameTheLocation(t *testing.T) {
	_, err := ParseDescriptor([]byte(`[{"path": "a.ipynb"}, {"path": 5}]`))
	var derr *DescriptorError
	require.True(t, errors.As(err, &derr))
	require.NotEmpty(t, derr.Issues)
	require.Contains(t, derr.Issues[0], "/1/path")

	_, err = ParseDescriptor([]byte(`{"extra-media": "img"}`))
	require.True(t, errors.As(err, &derr))
	require.Contains(t, derr.Error(), "path")
}

func TestDescriptorErrorMessage(t *testing.T) {
	err := &DescriptorError{Document: "links/foo", Reason: "invalid JSON", Err: errors.New("unexpected EOF")}
	require.Equal(t, `malformed link descriptor "links/foo": invalid JSON: unexpected EOF`, err.Error())
}
