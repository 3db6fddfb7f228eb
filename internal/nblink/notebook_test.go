package nblink

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeNotebook(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"plain utf-8", []byte(`{"a": "ø"}`), `{"a": "ø"}`},
		{"utf-8 bom stripped", append([]byte{0xEF, 0xBB, 0xBF}, `{}`...), `{}`},
		{"utf-16le bom", []byte{0xFF, 0xFE, '{', 0x00, '}', 0x00}, `{}`},
		{"utf-16be bom", []byte{0xFE, 0xFF, 0x00, '{', 0x00, '}'}, `{}`},
		{"empty", []byte{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeNotebook(tt.data)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeNotebook_InvalidUTF8(t *testing.T) {
	_, err := DecodeNotebook([]byte{'{', 0xff, '}'})
	require.ErrorIs(t, err, ErrNotText)
}

func TestReadNotebook_MissingFile(t *testing.T) {
	_, err := ReadNotebook(filepath.Join(t.TempDir(), "none.ipynb"))
	require.Error(t, err)
}
