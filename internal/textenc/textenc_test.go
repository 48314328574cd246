package textenc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiwipeso/kiwipeso/internal/textenc"
)

func TestNormalize(t *testing.T) {
	type testCase struct {
		name  string
		input []byte
		want  string
	}

	tests := []testCase{
		{
			name:  "PlainUTF8",
			input: []byte("Total: 123.45 PHP"),
			want:  "Total: 123.45 PHP",
		},
		{
			name:  "UTF8BOMStripped",
			input: append([]byte{0xEF, 0xBB, 0xBF}, []byte("123.45")...),
			want:  "123.45",
		},
		{
			name:  "UTF16LE",
			input: []byte{0xFF, 0xFE, '9', 0, '9', 0, '.', 0, '5', 0},
			want:  "99.5",
		},
		{
			name: "Windows1252Fallback",
			// 0xE9 is e-acute in Windows-1252 and invalid UTF-8 on its own.
			input: []byte("caf\xe9 total 25.50"),
			want:  "café total 25.50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := textenc.Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
