// Package grammar resolves language tags to grammars
// and loads those grammars on demand.
//
// A grammar is a Chroma XML lexer definition.
// Grammars come from two tiers:
// custom grammars described by a [Registry] over a [Source],
// and a remote fallback addressed by a URL [Template].
//
// The pieces fit together as follows:
//
//   - [Resolver] maps user-facing tags like "py" to canonical names.
//   - [Registry] discovers the custom grammars available in a [Source].
//   - [Loader] fetches one grammar, trying the custom tier first.
//   - [Cache] tracks the [State] of every canonical name
//     and ensures at most one [Loader] run per name at a time.
package grammar
