package dispatcher

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalized is an inbound message split into its command parts
type Normalized struct {
	Token     string // "/chat"
	Addressee string // "relay_bot" for "/chat@relay_bot", empty otherwise
	Message   string // everything after the first whitespace, verbatim; may be empty
}

// Normalize extracts the command token, the optional @botname suffix and the
// trailing user message. ok is false when text is not a command.
func Normalize(text string) (Normalized, bool) {
	if !strings.HasPrefix(text, "/") {
		return Normalized{}, false
	}

	head, rest := text, ""
	if idx := strings.IndexFunc(text, unicode.IsSpace); idx >= 0 {
		_, size := utf8.DecodeRuneInString(text[idx:])
		head, rest = text[:idx], text[idx+size:]
	}

	token, addressee, _ := strings.Cut(head, "@")
	if len(token) < 2 {
		return Normalized{}, false
	}

	return Normalized{
		Token:     token,
		Addressee: addressee,
		Message:   rest,
	}, true
}
