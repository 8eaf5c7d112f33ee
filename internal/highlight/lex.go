package highlight

import (
	chroma "github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// builtinLexer finds a lexer compiled into Chroma.
func builtinLexer(name string) (chroma.Lexer, bool) {
	l := lexers.Get(name)
	if l == nil || l == lexers.Fallback {
		return nil, false
	}
	return chroma.Coalesce(l), true
}

// lex lexically analyzes the given source code using Chroma.
func lex(l chroma.Lexer, src []byte) ([]chroma.Token, error) {
	return chroma.Tokenise(l, nil, string(src))
}
