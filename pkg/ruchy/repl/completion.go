package repl

import (
	"sort"
	"strings"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/lexer"
)

// Complete returns the sorted candidates for the word being typed at the
// end of line. A line starting with ':' completes command names; anything
// else completes keywords, commands and bound identifiers.
func (r *Repl) Complete(line string) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if strings.HasPrefix(line, ":") && !strings.ContainsAny(line, " \t") {
		return matchPrefix(line, CommandNames())
	}
	word := lastWord(line)
	if word == "" {
		return nil
	}
	candidates := append(lexer.Keywords(), r.interp.Env().AllIdentifiers()...)
	return matchPrefix(word, candidates)
}

// lastWord returns the trailing identifier of line, or "" when line ends
// in whitespace or punctuation.
func lastWord(line string) string {
	i := len(line)
	for i > 0 && isIdentByte(line[i-1]) {
		i--
	}
	return line[i:]
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}

func matchPrefix(prefix string, words []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, w := range words {
		if strings.HasPrefix(w, prefix) && !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}
