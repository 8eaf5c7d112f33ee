package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.abhg.dev/docsyntax/internal/html"
	"go.abhg.dev/docsyntax/internal/iotest"
	"go.abhg.dev/docsyntax/internal/syntax"
)

// upperHighlighter "highlights" code by upper-casing it.
type upperHighlighter struct {
	got []syntax.Fragment
}

func (h *upperHighlighter) HighlightAll(_ context.Context, fs []syntax.Fragment) []string {
	h.got = fs
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = strings.ToUpper(string(f.Code))
	}
	return out
}

type pageRecorder struct {
	page *html.Page
}

func (r *pageRecorder) RenderPage(w io.Writer, p *html.Page) error {
	r.page = p
	_, err := io.WriteString(w, "rendered")
	return err
}

func TestGenerator(t *testing.T) {
	t.Parallel()

	inputs := []*Input{
		{Path: "src/main.go", Lang: "go", Code: []byte("package main")},
		{Path: "-", Lang: "py", Code: []byte("print()")},
	}

	tests := []struct {
		desc string
		tabs bool
		want []*html.Block
	}{
		{
			desc: "blocks",
			want: []*html.Block{
				{Tabs: []*html.Tab{{Label: "main.go", Lang: "go", Markup: "PACKAGE MAIN"}}},
				{Tabs: []*html.Tab{{Label: "stdin", Lang: "py", Markup: "PRINT()"}}},
			},
		},
		{
			desc: "tabs",
			tabs: true,
			want: []*html.Block{
				{Tabs: []*html.Tab{
					{Label: "main.go", Lang: "go", Markup: "PACKAGE MAIN"},
					{Label: "stdin", Lang: "py", Markup: "PRINT()"},
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()

			var (
				hl   upperHighlighter
				rec  pageRecorder
				buff bytes.Buffer
			)
			gen := Generator{
				Log:         iotest.Logger(t),
				Highlighter: &hl,
				Renderer:    &rec,
				Title:       "Title",
				Tabs:        tt.tabs,
			}
			require.NoError(t, gen.Generate(context.Background(), &buff, inputs))

			assert.Equal(t, "rendered", buff.String())
			require.Len(t, hl.got, 2)
			assert.Equal(t, "py", hl.got[1].Lang)

			require.NotNil(t, rec.page)
			assert.Equal(t, "Title", rec.page.Title)
			assert.Equal(t, tt.want, rec.page.Blocks)
		})
	}
}

func TestGenerator_noInputs(t *testing.T) {
	t.Parallel()

	var rec pageRecorder
	gen := Generator{
		Log:         iotest.Logger(t),
		Highlighter: new(upperHighlighter),
		Renderer:    &rec,
		Tabs:        true,
	}
	require.NoError(t, gen.Generate(context.Background(), io.Discard, nil))
	assert.Empty(t, rec.page.Blocks)
}

func TestLangFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		give string
		want string
	}{
		{give: "main.go", want: "go"},
		{give: "dir/Script.PY", want: "py"},
		{give: "report.qql", want: "qql"},
		{give: "Makefile", want: "makefile"},
		{give: ".bashrc", want: ".bashrc"},
		{give: "archive.tar.gz", want: "gz"},
		{give: "-", want: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, langFromPath(tt.give), "langFromPath(%q)", tt.give)
	}
}
