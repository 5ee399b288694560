package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOffsetForPositionRoundTrip(t *testing.T) {
	text := "local a = 1\nlocal b = 2\nreturn a + b\n"
	cases := []Position{
		{Line: 0, Character: 0},
		{Line: 0, Character: 5},
		{Line: 1, Character: 0},
		{Line: 2, Character: 6},
	}
	for _, pos := range cases {
		offset := offsetForPosition(text, pos)
		got := positionForOffset(text, offset)
		require.Equal(t, pos, got)
	}
}

func TestOffsetForPositionClampsPastEnd(t *testing.T) {
	text := "abc"
	require.Equal(t, len(text), offsetForPosition(text, Position{Line: 5, Character: 0}))
}

func TestOffsetForPositionSurrogatePair(t *testing.T) {
	// U+1F600 (grinning face) is one rune but two UTF-16 code units.
	text := "x = \U0001F600y"
	offset := offsetForPosition(text, Position{Line: 0, Character: 7})
	require.Equal(t, len(text), offset)
	pos := positionForOffset(text, len(text))
	require.Equal(t, Position{Line: 0, Character: 7}, pos)
}

func TestURIPathRoundTrip(t *testing.T) {
	path := "/tmp/example/foo.lua"
	uri := pathToURI(path)
	require.Equal(t, "file:///tmp/example/foo.lua", uri)
	require.Equal(t, path, uriToPath(uri))
}

func TestUriToPathRejectsNonFileScheme(t *testing.T) {
	require.Equal(t, "", uriToPath("https://example.com/foo.lua"))
}
