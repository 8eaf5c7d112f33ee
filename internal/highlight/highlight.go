package highlight

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	chroma "github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
)

// Highlighter turns [Code] into HTML.
type Highlighter struct {
	// Style used for syntax highlighting of code.
	// Defaults to PlainStyle.
	Style *chroma.Style

	// UseClasses specifies whether the highlighter
	// uses inline 'style' attributes for highlighting,
	// or classes, assuming use of an appropriate style sheet.
	UseClasses bool

	once      sync.Once
	formatter *chromahtml.Formatter
	style     *chroma.Style
}

func (h *Highlighter) init() {
	h.once.Do(func() {
		h.formatter = chromahtml.New(
			chromahtml.PreventSurroundingPre(true),
			chromahtml.WithClasses(h.UseClasses),
		)
		h.style = h.Style
		if h.style == nil {
			h.style = PlainStyle
		}
	})
}

// WriteCSS writes the style classes for this highlighter to writer.
// If this highlighter is not using classes, WriteCSS is a no-op.
func (h *Highlighter) WriteCSS(w io.Writer) error {
	h.init()

	if !h.UseClasses {
		return nil
	}

	return h.formatter.WriteCSS(w, h.style)
}

// Highlight renders the given code block into HTML
// wrapped inside a <pre> element.
func (h *Highlighter) Highlight(code *Code) string {
	return h.Wrap(h.Markup(code))
}

// Markup renders the spans of a code block into HTML
// without a surrounding element.
func (h *Highlighter) Markup(code *Code) string {
	h.init()

	if code == nil {
		return ""
	}

	r := codeRenderer{fmt: h.formatter, sty: h.style}
	r.RenderSpans(code.Spans)
	return r.String()
}

// Wrap places already rendered markup inside a <pre> element
// styled for this highlighter.
func (h *Highlighter) Wrap(markup string) string {
	h.init()

	var buf bytes.Buffer
	if h.UseClasses {
		fmt.Fprintf(&buf, "<pre class=%q>", chroma.StandardTypes[chroma.PreWrapper])
	} else {
		style := chromahtml.StyleEntryToCSS(h.style.Get(chroma.PreWrapper))
		fmt.Fprintf(&buf, "<pre style=%q>", style)
	}
	buf.WriteString(markup)
	buf.WriteString("</pre>")
	return buf.String()
}

type codeRenderer struct {
	bytes.Buffer

	fmt chroma.Formatter
	sty *chroma.Style
}

func (r *codeRenderer) RenderSpans(spans []Span) {
	for _, span := range spans {
		r.RenderSpan(span)
	}
}

func (r *codeRenderer) RenderSpan(span Span) {
	switch b := span.(type) {
	case *TokenSpan:
		_ = r.fmt.Format(r, r.sty, chroma.Literator(b.Tokens...))
	case *TextSpan:
		r.WriteString(Escape(b.Text))
	default:
		panic(fmt.Sprintf("unrecognized span type %T", b))
	}
}
