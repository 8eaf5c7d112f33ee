package grammar

import (
	"net/url"
	"strings"
	"text/template"

	"braces.dev/errtrace"
)

// DefaultRemoteURL is the remote fallback used when none is configured.
// It addresses the lexer definitions shipped with the Chroma release
// this module is built against.
const DefaultRemoteURL = "https://cdn.jsdelivr.net/gh/alecthomas/chroma@v2.20.0" +
	"/lexers/embedded/{{ pathEscape .Name }}.xml"

// DefaultProbeFile is the file name probed for each candidate grammar
// when a Source has no manifest.
const DefaultProbeFile = "{{ .Name }}.xml"

var _templateFuncs = template.FuncMap{
	"pathEscape": url.PathEscape,
}

// Template addresses a grammar file by canonical name.
//
// It's a text/template executed with a value
// that has a single Name field.
// The pathEscape function is available for use in URLs.
type Template struct {
	raw  string
	tmpl *template.Template
}

// ParseTemplate parses a grammar address template.
func ParseTemplate(s string) (*Template, error) {
	tmpl, err := template.New("grammar").
		Funcs(_templateFuncs).
		Option("missingkey=error").
		Parse(s)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	return &Template{raw: s, tmpl: tmpl}, nil
}

// MustParseTemplate is like [ParseTemplate] but panics on error.
func MustParseTemplate(s string) *Template {
	t, err := ParseTemplate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the unparsed template.
func (t *Template) String() string {
	return t.raw
}

// Expand renders the address of the grammar with the given name.
func (t *Template) Expand(name string) (string, error) {
	var sb strings.Builder
	err := t.tmpl.Execute(&sb, struct{ Name string }{Name: name})
	if err != nil {
		return "", errtrace.Wrap(err)
	}
	return sb.String(), nil
}
