// Package highlight turns source code into highlighted HTML.
// It uses the Chroma library to do this work.
//
// [Engine] holds the grammars available for highlighting,
// keyed by canonical name.
// Grammars are either built into the engine
// or installed later from Chroma XML lexer definitions.
//
// Highlighted code is represented as [Code] values
// made up of [Span]s, which a [Highlighter] renders into HTML.
package highlight
