package grammar

import (
	"encoding/json"
	"path"
	"slices"
	"strings"

	"braces.dev/errtrace"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// Descriptor describes a single custom grammar.
//
// Descriptors are built during discovery
// and must not be modified afterwards.
type Descriptor struct {
	// Name is the canonical name of the grammar.
	Name string

	// File is the path of the grammar definition
	// relative to the root of its [Source].
	File string

	// Aliases are alternative tags that refer to this grammar.
	// The list never contains Name itself.
	Aliases []string

	// Description is an optional human-readable summary.
	Description string
}

// normalizeName brings a language tag or grammar name
// into the form used as a lookup key: trimmed and case folded.
func normalizeName(s string) string {
	// Casers hold state, so each call gets its own.
	return cases.Fold().String(strings.TrimSpace(s))
}

// newDescriptor builds a normalized descriptor.
// Aliases are de-duplicated and never include the name.
func newDescriptor(name, file string, aliases []string, desc string) *Descriptor {
	name = normalizeName(name)

	var clean []string
	for _, a := range aliases {
		a = normalizeName(a)
		if a == "" || a == name || slices.Contains(clean, a) {
			continue
		}
		clean = append(clean, a)
	}

	return &Descriptor{
		Name:        name,
		File:        strings.TrimSpace(file),
		Aliases:     clean,
		Description: desc,
	}
}

// manifest is the document listing available custom grammars.
//
//	{"languages": [{"name": "...", "file": "...", "aliases": ["..."]}]}
type manifest struct {
	Languages []manifestLanguage `json:"languages"`
}

type manifestLanguage struct {
	Name        string   `json:"name" yaml:"name"`
	File        string   `json:"file" yaml:"file"`
	Aliases     []string `json:"aliases" yaml:"aliases"`
	Description string   `json:"description,omitempty" yaml:"description"`
}

// ParseManifest parses a grammar manifest document.
//
// The document is rejected if it isn't valid JSON,
// doesn't have a "languages" list,
// or has an entry without a name or file.
func ParseManifest(data []byte) ([]*Descriptor, error) {
	var m struct {
		Languages *[]manifestLanguage `json:"languages"`
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errtrace.Errorf("decode manifest: %w", err)
	}
	descs, err := manifestDescriptors(m.Languages)
	return descs, errtrace.Wrap(err)
}

// ParseManifestYAML is like ParseManifest,
// but for manifests written in YAML.
//
//	languages:
//	  - name: queryql
//	    file: queryql.xml
//	    aliases: [qql]
func ParseManifestYAML(data []byte) ([]*Descriptor, error) {
	var m struct {
		Languages *[]manifestLanguage `yaml:"languages"`
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errtrace.Errorf("decode manifest: %w", err)
	}
	descs, err := manifestDescriptors(m.Languages)
	return descs, errtrace.Wrap(err)
}

// parseManifestFile picks the manifest format from the file extension.
func parseManifestFile(file string, data []byte) ([]*Descriptor, error) {
	parse := ParseManifest
	switch strings.ToLower(path.Ext(file)) {
	case ".yaml", ".yml":
		parse = ParseManifestYAML
	}

	descs, err := parse(data)
	return descs, errtrace.Wrap(err)
}

func manifestDescriptors(langs *[]manifestLanguage) ([]*Descriptor, error) {
	if langs == nil {
		return nil, errtrace.New("manifest has no languages list")
	}

	descs := make([]*Descriptor, 0, len(*langs))
	for i, lang := range *langs {
		d := newDescriptor(lang.Name, lang.File, lang.Aliases, lang.Description)
		if d.Name == "" {
			return nil, errtrace.Errorf("manifest entry %d: missing name", i)
		}
		if d.File == "" {
			return nil, errtrace.Errorf("manifest entry %d (%v): missing file", i, d.Name)
		}
		descs = append(descs, d)
	}
	return descs, nil
}

// MarshalManifest renders descriptors in the manifest format
// accepted by [ParseManifest].
func MarshalManifest(descs []*Descriptor) ([]byte, error) {
	m := manifest{Languages: make([]manifestLanguage, len(descs))}
	for i, d := range descs {
		m.Languages[i] = manifestLanguage{
			Name:        d.Name,
			File:        d.File,
			Aliases:     d.Aliases,
			Description: d.Description,
		}
	}
	bs, err := json.MarshalIndent(m, "", "  ")
	return bs, errtrace.Wrap(err)
}
