package highlight

import chroma "github.com/alecthomas/chroma/v2"

// Code is a code block comprised of multiple spans.
type Code struct {
	Spans []Span
}

type (
	// Span is a part of a code block.
	Span interface{ span() }

	// TextSpan is a span rendered as plain text.
	// Only the characters that are unsafe in HTML text are escaped.
	TextSpan struct {
		Text []byte
	}

	// TokenSpan is a span of code
	// that is highlighted with chroma.
	TokenSpan struct {
		Tokens []chroma.Token
	}
)

var (
	_ Span = (*TextSpan)(nil)
	_ Span = (*TokenSpan)(nil)
)

func (*TextSpan) span()  {}
func (*TokenSpan) span() {}
