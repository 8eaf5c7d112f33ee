package main

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"strings"

	"braces.dev/errtrace"
	"go.abhg.dev/docsyntax/internal/html"
	"go.abhg.dev/docsyntax/internal/syntax"
)

// Highlighter highlights fragments of code into HTML markup.
type Highlighter interface {
	HighlightAll(context.Context, []syntax.Fragment) []string
}

var _ Highlighter = (*syntax.Service)(nil)

// Renderer renders a page of code blocks to HTML.
type Renderer interface {
	RenderPage(io.Writer, *html.Page) error
}

var _ Renderer = (*html.Renderer)(nil)

// Input is a source file to render.
type Input struct {
	// Path to the file, used as its label.
	// "-" means stdin.
	Path string

	// Lang is the language tag for the file.
	Lang string

	Code []byte
}

// Generator highlights source files and renders them into a page.
//
// In terms of code organization,
// Generator's purpose is to add a separation between main
// and the program's core logic to aid in testability.
type Generator struct {
	Log         *log.Logger
	Highlighter Highlighter
	Renderer    Renderer

	// Title of the generated page.
	Title string

	// Tabs places all inputs into a single tabbed block.
	Tabs bool
}

// Generate highlights the inputs and writes the page to w.
func (g *Generator) Generate(ctx context.Context, w io.Writer, inputs []*Input) error {
	fragments := make([]syntax.Fragment, len(inputs))
	for i, in := range inputs {
		g.Log.Printf("Highlighting %v as %q", in.Path, in.Lang)
		fragments[i] = syntax.Fragment{
			Label: inputLabel(in.Path),
			Lang:  in.Lang,
			Code:  in.Code,
		}
	}

	markup := g.Highlighter.HighlightAll(ctx, fragments)

	page := html.Page{Title: g.Title}
	var tabbed html.Block
	for i, f := range fragments {
		tab := &html.Tab{
			Label:  f.Label,
			Lang:   f.Lang,
			Markup: markup[i],
		}
		if g.Tabs {
			tabbed.Tabs = append(tabbed.Tabs, tab)
		} else {
			page.Blocks = append(page.Blocks, &html.Block{Tabs: []*html.Tab{tab}})
		}
	}
	if g.Tabs && len(tabbed.Tabs) > 0 {
		page.Blocks = []*html.Block{&tabbed}
	}

	return errtrace.Wrap(g.Renderer.RenderPage(w, &page))
}

func inputLabel(path string) string {
	if path == "-" {
		return "stdin"
	}
	return filepath.Base(path)
}

// langFromPath guesses the language tag of a file from its name:
// the extension if it has one, the file name otherwise.
//
//	main.go    => go
//	Makefile   => makefile
func langFromPath(path string) string {
	if path == "-" {
		return ""
	}
	base := filepath.Base(path)
	if ext := filepath.Ext(base); len(ext) > 1 && ext != base {
		return strings.ToLower(ext[1:])
	}
	return strings.ToLower(base)
}
