package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTextToChunksByByte(t *testing.T) {
	cases := []struct {
		name     string
		text     string
		maxBytes int
		want     []string
	}{
		{
			name:     "under the cap",
			text:     "A short script.",
			maxBytes: 4500,
			want:     []string{"A short script."},
		},
		{
			name:     "empty input",
			text:     "",
			maxBytes: 10,
			want:     nil,
		},
		{
			name:     "exactly at the cap",
			text:     "abcde",
			maxBytes: 5,
			want:     []string{"abcde"},
		},
		{
			name:     "no punctuation hard cut",
			text:     "abcdefghij",
			maxBytes: 4,
			want:     []string{"abcd", "efgh", "ij"},
		},
		{
			name:     "breaks at sentence boundary",
			text:     "One. Two. Three.",
			maxBytes: 10,
			want:     []string{"One. Two.", " Three."},
		},
		{
			name:     "punctuation only after the boundary",
			text:     "abcdef.gh",
			maxBytes: 6,
			want:     []string{"abcdef", ".gh"},
		},
		{
			name:     "newline counts as a boundary",
			text:     "line one\nline two",
			maxBytes: 12,
			want:     []string{"line one\n", "line two"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := splitTextToChunksByByte(tc.text, tc.maxBytes)
			assert.Equal(t, tc.want, got)
			for _, chunk := range got {
				assert.LessOrEqual(t, len(chunk), tc.maxBytes)
			}
			assert.Equal(t, tc.text, strings.Join(got, ""))
		})
	}
}

func TestSplitTextToChunksByByteMultibyte(t *testing.T) {
	// 2-byte runes with the cut position landing mid-rune; the cut must move
	// forward past the continuation bytes instead of splitting the sequence.
	text := strings.Repeat("é", 10)
	maxBytes := 5

	chunks := splitTextToChunksByByte(text, maxBytes)
	require.NotEmpty(t, chunks)

	for _, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk), "chunk %q splits a rune", chunk)
		assert.LessOrEqual(t, len(chunk), maxBytes+utf8.UTFMax-1)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplitTextToChunksByByteMixedScript(t *testing.T) {
	text := strings.Repeat("日本語のポッドキャスト。", 50)
	maxBytes := 100

	chunks := splitTextToChunksByByte(text, maxBytes)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk))
		assert.LessOrEqual(t, len(chunk), maxBytes+utf8.UTFMax-1)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}
