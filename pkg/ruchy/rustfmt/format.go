package rustfmt

import (
	"fmt"
	"strings"
)

var closers = map[string]string{")": "(", "]": "[", "}": "{"}

// Format re-tokenizes Rust source and pretty-prints it. It fails when the
// source does not lex or its delimiters do not balance, which means the
// text is not Rust the compiler could accept.
func Format(src string) (string, error) {
	toks, err := tokenize(src)
	if err != nil {
		return "", err
	}
	if err := checkDelimiters(toks); err != nil {
		return "", err
	}
	p := NewPrinter()
	p.print(toks)
	return strings.TrimLeft(p.String(), "\n"), nil
}

// MustFormat is Format for sources known to be well formed.
func MustFormat(src string) string {
	out, err := Format(src)
	if err != nil {
		panic(err)
	}
	return out
}

func checkDelimiters(toks []token) error {
	var stack []string
	for i, t := range toks {
		if t.kind != tokPunct {
			continue
		}
		switch t.text {
		case "(", "[", "{":
			stack = append(stack, t.text)
		case ")", "]", "}":
			if len(stack) == 0 || stack[len(stack)-1] != closers[t.text] {
				return fmt.Errorf("token %d: unbalanced %q", i, t.text)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return fmt.Errorf("unclosed %q at end of input", stack[len(stack)-1])
	}
	return nil
}

// LineCount returns the number of lines in formatted output.
func LineCount(s string) int {
	return strings.Count(strings.TrimRight(s, "\n"), "\n") + 1
}
