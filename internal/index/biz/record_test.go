package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"The.Matrix.1999.mkv", "The Matrix 1999 mkv"},
		{"some_movie-2020+x264", "some movie 2020 x264"},
		{"Shared by @uploader_bot Movie.mp4", "Shared by   Movie mp4"},
		{"plain name", "plain name"},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeText(tc.in), "input %q", tc.in)
	}
}

func TestBuildPattern(t *testing.T) {
	assert.Equal(t, "%", BuildPattern(""))
	assert.Equal(t, "%", BuildPattern("   "))
	assert.Equal(t, "%avatar%", BuildPattern("Avatar"))
	// internal whitespace becomes a wildcard gap
	assert.Equal(t, "%avatar%2022%", BuildPattern("Avatar 2022"))
	assert.Equal(t, "%avatar%2022%", BuildPattern("  Avatar   2022  "))
}

func TestBuildPatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%100\%%`, BuildPattern("100%"))
	assert.Equal(t, `%a\_b%`, BuildPattern("a_b"))
	assert.Equal(t, `%a\\b%`, BuildPattern(`a\b`))
}

func TestParsePartition(t *testing.T) {
	for _, name := range []string{"primary", "cloud", "archive"} {
		p, ok := ParsePartition(name)
		assert.True(t, ok)
		assert.Equal(t, Partition(name), p)
	}

	_, ok := ParsePartition("")
	assert.False(t, ok)
	_, ok = ParsePartition("glacier")
	assert.False(t, ok)
}

func TestPutResultString(t *testing.T) {
	assert.Equal(t, "created", PutCreated.String())
	assert.Equal(t, "duplicate", PutDuplicate.String())
	assert.Equal(t, "failed", PutFailed.String())
}
