package grammar

import (
	"maps"
	"slices"
)

// BuiltinAliases maps common language tags
// to the canonical grammar names used by Chroma's lexer definitions.
var BuiltinAliases = map[string]string{
	"bat":        "batchfile",
	"clj":        "clojure",
	"cmd":        "batchfile",
	"cpp":        "c++",
	"cs":         "c#",
	"csharp":     "c#",
	"cxx":        "c++",
	"dockerfile": "docker",
	"erl":        "erlang",
	"ex":         "elixir",
	"exs":        "elixir",
	"golang":     "go",
	"gql":        "graphql",
	"h":          "c",
	"hpp":        "c++",
	"hs":         "haskell",
	"htm":        "html",
	"jl":         "julia",
	"js":         "javascript",
	"jsx":        "react",
	"kt":         "kotlin",
	"kts":        "kotlin",
	"latex":      "tex",
	"make":       "makefile",
	"mjs":        "javascript",
	"mk":         "makefile",
	"ml":         "ocaml",
	"objc":       "objective-c",
	"pgsql":      "postgresql_sql_dialect",
	"pl":         "perl",
	"proto":      "protocol_buffer",
	"protobuf":   "protocol_buffer",
	"ps1":        "powershell",
	"pwsh":       "powershell",
	"py":         "python",
	"py3":        "python",
	"python3":    "python",
	"rb":         "ruby",
	"rs":         "rust",
	"sh":         "bash",
	"shell":      "bash",
	"tf":         "terraform",
	"ts":         "typescript",
	"tsx":        "typescript",
	"txt":        "plaintext",
	"text":       "plaintext",
	"vb":         "vb_net",
	"xhtml":      "html",
	"yml":        "yaml",
	"zsh":        "bash",
}

// Resolver maps language tags to canonical grammar names.
//
// A Resolver is immutable once built,
// so a tag always resolves the same way through it.
type Resolver struct {
	table map[string]string
}

// ResolverOptions configures how a Resolver merges its alias sources.
type ResolverOptions struct {
	// Builtin is the static alias table.
	// Defaults to BuiltinAliases.
	Builtin map[string]string

	// Custom maps aliases discovered from custom grammars
	// to their canonical names.
	Custom map[string]string

	// Names are the canonical names of custom grammars.
	// They only matter if CustomOverrides is set.
	Names []string

	// CustomOverrides makes custom aliases win
	// over built-in aliases with the same spelling.
	// Custom grammar names also shadow built-in aliases then.
	//
	// By default, built-in aliases win.
	CustomOverrides bool
}

// NewResolver builds a Resolver from the given alias sources.
func NewResolver(opts ResolverOptions) *Resolver {
	builtin := opts.Builtin
	if builtin == nil {
		builtin = BuiltinAliases
	}

	// Built-in targets can't be taken over by custom aliases
	// unless custom aliases override.
	reserved := make(map[string]struct{}, len(builtin))
	table := make(map[string]string, len(builtin)+len(opts.Custom))
	add := func(src map[string]string, override bool) {
		// Keys that fold to the same tag resolve in sorted order.
		for _, alias := range slices.Sorted(maps.Keys(src)) {
			alias, name := normalizeName(alias), normalizeName(src[alias])
			if alias == "" || name == "" {
				continue
			}
			if _, ok := table[alias]; ok && !override {
				continue
			}
			if _, ok := reserved[alias]; ok && !override {
				continue
			}
			table[alias] = name
		}
	}

	add(builtin, true)
	for _, name := range table {
		reserved[name] = struct{}{}
	}
	add(opts.Custom, opts.CustomOverrides)
	if opts.CustomOverrides {
		for _, name := range opts.Names {
			if name = normalizeName(name); name != "" {
				table[name] = name
			}
		}
	}

	// Collapse chains like a -> b -> c into a -> c
	// so that every value is a canonical name.
	collapsed := make(map[string]string, len(table))
	for alias, name := range table {
		seen := map[string]struct{}{alias: {}}
		for {
			next, ok := table[name]
			if !ok || next == name {
				break
			}
			if _, loop := seen[name]; loop {
				break
			}
			seen[name] = struct{}{}
			name = next
		}
		collapsed[alias] = name
	}

	return &Resolver{table: collapsed}
}

// Resolve returns the canonical name for a language tag.
// Tags with no alias resolve to themselves,
// normalized to lower case without surrounding spaces.
func (r *Resolver) Resolve(tag string) string {
	tag = normalizeName(tag)
	if r == nil {
		return tag
	}
	if name, ok := r.table[tag]; ok {
		return name
	}
	return tag
}

// Aliases returns a copy of the resolved alias table.
func (r *Resolver) Aliases() map[string]string {
	if r == nil {
		return nil
	}
	return maps.Clone(r.table)
}
