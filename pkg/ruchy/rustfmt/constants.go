// Package rustfmt pretty-prints generated Rust source.
// It re-tokenizes the transpiler's flat output and lays it out one
// statement per line with block indentation.
package rustfmt

// Line width - the target maximum line length
const MaxLineWidth = 92

// Indentation - four spaces per level, as rustfmt does
const (
	IndentWidth  = 4
	IndentString = "    "
)

// Structure
const (
	BlankLinesBetweenItems = 1 // Blank lines between top-level items
)

// Trailing commas - whether to add a trailing comma when a list breaks
const TrailingCommaMultiline = true  // For array literals
const TrailingCommaFuncCalls = false // For call arguments and tuples
