// Package html renders highlighted code blocks into HTML pages.
package html

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"braces.dev/errtrace"
	"go.abhg.dev/docsyntax/internal/highlight"
)

var (
	//go:embed tmpl/*.html
	_tmplFS embed.FS

	//go:embed static/main.css
	_mainCSS []byte

	// Trick borrowed from pkgsite:
	// Unusable function references at parse time,
	// and then Clone and replace at render time.
	// This way, template validity is still
	// verified at init.
	_pageTmpl = template.Must(
		template.New("page.html").
			Funcs((*render)(nil).FuncMap()).
			ParseFS(_tmplFS, "tmpl/page.html", "tmpl/block.html"),
	)
)

// Highlighter wraps rendered code markup
// and provides the style sheet it depends on.
type Highlighter interface {
	Wrap(markup string) string
	WriteCSS(io.Writer) error
}

var _ Highlighter = (*highlight.Highlighter)(nil)

// Renderer renders pages of code blocks into HTML.
type Renderer struct {
	// Whether we're in embedded mode.
	// In this mode, output will only contain the code blocks
	// and will not generate complete, stylized HTML pages.
	Embedded bool

	// Highlighter wraps code markup.
	// Defaults to a highlight.Highlighter with no options.
	Highlighter Highlighter
}

func (r *Renderer) highlighter() Highlighter {
	if r.Highlighter != nil {
		return r.Highlighter
	}
	return new(highlight.Highlighter)
}

func (r *Renderer) templateName() string {
	if r.Embedded {
		return "Body"
	}
	return "Page"
}

// WriteCSS writes the style sheet used by rendered pages.
// In embedded mode, pages don't include it,
// so callers may write it to a separate file.
func (r *Renderer) WriteCSS(w io.Writer) error {
	if _, err := w.Write(_mainCSS); err != nil {
		return errtrace.Wrap(err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return errtrace.Wrap(err)
	}
	return errtrace.Wrap(r.highlighter().WriteCSS(w))
}

// Page is a single HTML page holding one or more code blocks.
type Page struct {
	Title  string
	Blocks []*Block
}

// Block is a code block.
// A block with more than one tab is rendered as a tabbed block.
type Block struct {
	Tabs []*Tab
}

// Tabbed reports whether this block has more than one tab.
func (b *Block) Tabbed() bool {
	return len(b.Tabs) > 1
}

// Tab is one fragment of code inside a block.
type Tab struct {
	// Label is shown as the tab title.
	Label string

	// Lang is the language tag the code was highlighted with.
	Lang string

	// Markup is the highlighted code
	// without a surrounding element.
	Markup string
}

// RenderPage renders a page of code blocks.
func (r *Renderer) RenderPage(w io.Writer, page *Page) error {
	render := render{Highlighter: r.highlighter()}
	if !r.Embedded {
		var css bytes.Buffer
		if err := r.WriteCSS(&css); err != nil {
			return errtrace.Wrap(err)
		}
		render.CSS = css.String()
	}

	view := pageView{Title: page.Title}
	for i, b := range page.Blocks {
		view.Blocks = append(view.Blocks, blockView{ID: i + 1, Block: b})
	}

	return errtrace.Wrap(template.Must(_pageTmpl.Clone()).
		Funcs(render.FuncMap()).
		ExecuteTemplate(w, r.templateName(), &view))
}

// pageView numbers blocks so that tabs get unique IDs.
type pageView struct {
	Title  string
	Blocks []blockView
}

type blockView struct {
	ID int
	*Block
}

type render struct {
	CSS         string
	Highlighter Highlighter
}

func (r *render) FuncMap() template.FuncMap {
	return template.FuncMap{
		"code":  r.code,
		"css":   r.css,
		"tabID": tabID,
	}
}

// code wraps markup that was already escaped by the highlighter.
func (r *render) code(markup string) template.HTML {
	return template.HTML(r.Highlighter.Wrap(markup))
}

func (r *render) css() template.CSS {
	return template.CSS(r.CSS)
}

func tabID(block, tab int) string {
	return fmt.Sprintf("block-%d-tab-%d", block, tab)
}
