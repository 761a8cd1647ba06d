package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{in: "Great!  ", expected: "Great!"},
		{in: "\n\t Bad. \n", expected: "Bad."},
		{in: "two  spaces inside", expected: "two  spaces inside"},
		{in: "", expected: ""},
	}

	for _, test := range cases {
		require.Equal(t, test.expected, Normalize(test.in))
	}
}

func TestRendered(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{in: "  hello    world ", expected: "hello world"},
		{in: "line one\n\n   \n line two", expected: "line one\nline two"},
		{in: "a\u00a0b", expected: "a b"},
	}

	for _, test := range cases {
		require.Equal(t, test.expected, Rendered(test.in))
	}
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", Truncate("short", 10))
	require.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	require.Equal(t, "ab", Truncate("abcdef", 2))
}
