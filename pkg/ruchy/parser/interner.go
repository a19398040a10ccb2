package parser

// Interner deduplicates identifier and string literal text so repeated names
// share one backing string. A parser and its f-string sub-parsers share one.
type Interner struct {
	strings map[string]string
	bytes   int
}

// NewInterner returns an empty Interner.
func NewInterner() *Interner {
	return &Interner{strings: make(map[string]string)}
}

// Intern returns the canonical copy of s.
func (in *Interner) Intern(s string) string {
	if c, ok := in.strings[s]; ok {
		return c
	}
	in.strings[s] = s
	in.bytes += len(s)
	return s
}

// Len returns the number of distinct strings.
func (in *Interner) Len() int { return len(in.strings) }

// Bytes returns the total size of the distinct strings.
func (in *Interner) Bytes() int { return in.bytes }
