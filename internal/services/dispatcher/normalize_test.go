package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		text string
		want Normalized
	}{
		{"/chat hello", Normalized{Token: "/chat", Message: "hello"}},
		{"/chat", Normalized{Token: "/chat"}},
		{"/chat   spaced  out  ", Normalized{Token: "/chat", Message: "  spaced  out  "}},
		{"/chat ", Normalized{Token: "/chat"}},
		{"/code\n    indented()\n", Normalized{Token: "/code", Message: "    indented()\n"}},
		{"/chat\u00a0hi", Normalized{Token: "/chat", Message: "hi"}},
		{"/chat\nline one\nline two", Normalized{Token: "/chat", Message: "line one\nline two"}},
		{"/chat@relay_bot hello", Normalized{Token: "/chat", Addressee: "relay_bot", Message: "hello"}},
		{"/chat@relay_bot", Normalized{Token: "/chat", Addressee: "relay_bot"}},
		{"/Chat hi", Normalized{Token: "/Chat", Message: "hi"}},
	}

	for _, tc := range cases {
		got, ok := Normalize(tc.text)
		assert.True(t, ok, tc.text)
		assert.Equal(t, tc.want, got, tc.text)
	}
}

func TestNormalize_NotACommand(t *testing.T) {
	for _, text := range []string{"", "hello /chat", " /chat", "/", "/@bot", "/ hi"} {
		_, ok := Normalize(text)
		assert.False(t, ok, text)
	}
}
