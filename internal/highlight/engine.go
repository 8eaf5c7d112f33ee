package highlight

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"braces.dev/errtrace"
	chroma "github.com/alecthomas/chroma/v2"
)

// ErrUnknownGrammar indicates that the engine has no grammar
// registered under the requested name.
var ErrUnknownGrammar = errors.New("unknown grammar")

// DefaultBuiltins are the grammars an engine starts with
// if none are specified.
var DefaultBuiltins = []string{"go", "plaintext"}

// Engine highlights code with the grammars registered with it.
//
// Grammars are keyed by canonical name.
// An Engine is safe for concurrent use.
type Engine struct {
	highlighter *Highlighter

	mu     sync.RWMutex
	lexers map[string]chroma.Lexer
}

// NewEngine builds an engine that renders with the given highlighter.
// The named built-in Chroma grammars are available right away;
// everything else must be installed with [Engine.Install].
func NewEngine(h *Highlighter, builtins ...string) (*Engine, error) {
	if h == nil {
		h = new(Highlighter)
	}

	e := &Engine{
		highlighter: h,
		lexers:      make(map[string]chroma.Lexer, len(builtins)),
	}
	for _, name := range builtins {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		l, ok := builtinLexer(name)
		if !ok {
			return nil, errtrace.Errorf("%q: %w", name, ErrUnknownGrammar)
		}
		e.lexers[name] = l
	}
	return e, nil
}

// Grammars lists the names of the grammars registered with this engine.
func (e *Engine) Grammars() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.lexers))
	for name := range e.lexers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasGrammar reports whether a grammar is registered under this name.
func (e *Engine) HasGrammar(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.lexers[name]
	return ok
}

// Install parses a Chroma XML lexer definition
// and registers it under the given name,
// replacing any grammar previously registered with that name.
func (e *Engine) Install(name string, data []byte) error {
	l, err := chroma.Unmarshal(data)
	if err != nil {
		return errtrace.Wrap(err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lexers[name] = chroma.Coalesce(l)
	return nil
}

// Highlight renders code with the named grammar.
// The returned HTML has no surrounding element.
//
// It fails with ErrUnknownGrammar if there's no such grammar.
func (e *Engine) Highlight(code []byte, name string) (string, error) {
	e.mu.RLock()
	l, ok := e.lexers[name]
	e.mu.RUnlock()
	if !ok {
		return "", errtrace.Wrap(ErrUnknownGrammar)
	}

	tokens, err := lex(l, code)
	if err != nil {
		return "", errtrace.Wrap(err)
	}

	return e.highlighter.Markup(&Code{
		Spans: []Span{&TokenSpan{Tokens: tokens}},
	}), nil
}

// Plain renders code as text with no grammar.
// Only '&', '<', and '>' are escaped.
func (e *Engine) Plain(code []byte) string {
	return e.highlighter.Markup(&Code{
		Spans: []Span{&TextSpan{Text: code}},
	})
}
