package transpiler

import "strings"

// TokenStream is a flat sequence of Rust tokens. String joins them with
// single spaces; pkg/ruchy/rustfmt turns that into formatted source.
type TokenStream struct {
	toks []string
}

// Tokens builds a stream from literal tokens.
func Tokens(toks ...string) *TokenStream {
	return &TokenStream{toks: append([]string(nil), toks...)}
}

// Push appends raw tokens.
func (ts *TokenStream) Push(toks ...string) *TokenStream {
	ts.toks = append(ts.toks, toks...)
	return ts
}

// Append appends every token of the given streams. Nil streams are skipped.
func (ts *TokenStream) Append(others ...*TokenStream) *TokenStream {
	for _, o := range others {
		if o != nil {
			ts.toks = append(ts.toks, o.toks...)
		}
	}
	return ts
}

// Join appends the streams separated by sep.
func (ts *TokenStream) Join(sep string, items []*TokenStream) *TokenStream {
	for i, it := range items {
		if i > 0 {
			ts.toks = append(ts.toks, sep)
		}
		ts.Append(it)
	}
	return ts
}

// Group appends open, the stream and close.
func (ts *TokenStream) Group(open string, inner *TokenStream, close string) *TokenStream {
	ts.toks = append(ts.toks, open)
	ts.Append(inner)
	ts.toks = append(ts.toks, close)
	return ts
}

// Len returns the number of tokens.
func (ts *TokenStream) Len() int { return len(ts.toks) }

// IsEmpty reports whether the stream holds no tokens.
func (ts *TokenStream) IsEmpty() bool { return ts == nil || len(ts.toks) == 0 }

// Last returns the final token, or "" for an empty stream.
func (ts *TokenStream) Last() string {
	if ts.IsEmpty() {
		return ""
	}
	return ts.toks[len(ts.toks)-1]
}

// First returns the leading token, or "" for an empty stream.
func (ts *TokenStream) First() string {
	if ts.IsEmpty() {
		return ""
	}
	return ts.toks[0]
}

// Slice returns a copy of the tokens.
func (ts *TokenStream) Slice() []string {
	return append([]string(nil), ts.toks...)
}

func (ts *TokenStream) String() string {
	if ts == nil {
		return ""
	}
	return strings.Join(ts.toks, " ")
}

// endsStatement reports whether the stream already terminates a statement.
func (ts *TokenStream) endsStatement() bool {
	last := ts.Last()
	return last == ";" || last == "}"
}
