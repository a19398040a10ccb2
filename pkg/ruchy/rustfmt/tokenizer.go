package rustfmt

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokString
	tokChar
	tokLifetime
	tokPunct
	tokComment
)

type token struct {
	kind tokenKind
	text string
}

// punctuation is ordered longest first so the scanner takes the longest match.
var punctuation = []string{
	"<<=", ">>=", "...", "..=",
	"::", "->", "=>", "==", "!=", "<=", ">=", "&&", "||", "+=", "-=", "*=", "/=",
	"%=", "^=", "&=", "|=", "<<", ">>", "..",
}

// tokenize splits Rust source into tokens. It understands enough of the
// lexical grammar to keep literals, lifetimes and macros intact.
func tokenize(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case strings.HasPrefix(src[i:], "//"):
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src) - i
			}
			toks = append(toks, token{tokComment, strings.TrimRight(src[i:i+end], " \t\r")})
			i += end
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("offset %d: unterminated block comment", i)
			}
			toks = append(toks, token{tokComment, src[i : i+end+4]})
			i += end + 4
		case r == '"':
			n, err := scanString(src[i:])
			if err != nil {
				return nil, fmt.Errorf("offset %d: %w", i, err)
			}
			toks = append(toks, token{tokString, src[i : i+n]})
			i += n
		case r == '\'':
			if n, ok := scanChar(src[i:]); ok {
				toks = append(toks, token{tokChar, src[i : i+n]})
				i += n
				continue
			}
			n := 1 + scanIdent(src[i+1:])
			if n == 1 {
				return nil, fmt.Errorf("offset %d: stray quote", i)
			}
			toks = append(toks, token{tokLifetime, src[i : i+n]})
			i += n
		case r >= '0' && r <= '9':
			afterDot := len(toks) > 0 && toks[len(toks)-1].text == "."
			n := scanNumber(src[i:], afterDot)
			toks = append(toks, token{tokNumber, src[i : i+n]})
			i += n
		case r == '_' || unicode.IsLetter(r):
			if n, ok := scanPrefixedLiteral(src[i:]); ok {
				toks = append(toks, token{tokString, src[i : i+n]})
				i += n
				continue
			}
			n := scanIdent(src[i:])
			// name! followed by a delimiter is a macro call.
			if i+n < len(src) && src[i+n] == '!' && (i+n+1 >= len(src) || src[i+n+1] != '=') {
				n++
			}
			toks = append(toks, token{tokIdent, src[i : i+n]})
			i += n
		default:
			p := string(r)
			for _, cand := range punctuation {
				if strings.HasPrefix(src[i:], cand) {
					p = cand
					break
				}
			}
			toks = append(toks, token{tokPunct, p})
			i += len(p)
		}
	}
	return toks, nil
}

func scanIdent(s string) int {
	n := 0
	for n < len(s) {
		r, size := utf8.DecodeRuneInString(s[n:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		n += size
	}
	return n
}

// scanString returns the length of the quoted literal at the start of s.
func scanString(s string) (int, error) {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("unterminated string literal")
}

// scanRawString handles r"..." and r#"..."# starting at the r.
func scanRawString(s string) (int, bool) {
	hashes := 0
	i := 1
	for i < len(s) && s[i] == '#' {
		hashes++
		i++
	}
	if i >= len(s) || s[i] != '"' {
		return 0, false
	}
	closing := `"` + strings.Repeat("#", hashes)
	end := strings.Index(s[i+1:], closing)
	if end < 0 {
		return 0, false
	}
	return i + 1 + end + len(closing), true
}

// scanPrefixedLiteral recognizes raw, byte and raw byte string literals and
// byte chars.
func scanPrefixedLiteral(s string) (int, bool) {
	switch {
	case strings.HasPrefix(s, `b"`):
		n, err := scanString(s[1:])
		return n + 1, err == nil
	case strings.HasPrefix(s, "b'"):
		n, ok := scanChar(s[1:])
		return n + 1, ok
	case strings.HasPrefix(s, `br"`), strings.HasPrefix(s, "br#"):
		n, ok := scanRawString(s[1:])
		return n + 1, ok
	case strings.HasPrefix(s, `r"`), strings.HasPrefix(s, `r#"`):
		return scanRawString(s)
	}
	return 0, false
}

// scanChar returns the length of a char literal, or false when the quote
// starts a lifetime or label.
func scanChar(s string) (int, bool) {
	if len(s) < 3 {
		return 0, false
	}
	if s[1] == '\\' {
		end := strings.IndexByte(s[2:], '\'')
		if s[2] == '\'' {
			end = strings.IndexByte(s[3:], '\'') + 1
		}
		if end < 0 {
			return 0, false
		}
		return end + 3, true
	}
	_, size := utf8.DecodeRuneInString(s[1:])
	if 1+size < len(s) && s[1+size] == '\'' {
		return size + 2, true
	}
	return 0, false
}

// scanNumber reads an integer or float literal with its suffix. After a
// dot the literal is a tuple index, so no fraction or exponent is taken.
func scanNumber(s string, afterDot bool) int {
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'o' || s[1] == 'b') {
		return scanSuffix(s, 2)
	}
	n := scanDigits(s, 0)
	if afterDot {
		return scanSuffix(s, n)
	}
	if n < len(s)-1 && s[n] == '.' && isDigit(s[n+1]) {
		n = scanDigits(s, n+1)
	}
	if n < len(s) && (s[n] == 'e' || s[n] == 'E') {
		m := n + 1
		if m < len(s) && (s[m] == '+' || s[m] == '-') {
			m++
		}
		if m < len(s) && isDigit(s[m]) {
			n = scanDigits(s, m)
		}
	}
	return scanSuffix(s, n)
}

func scanDigits(s string, n int) int {
	for n < len(s) && (isDigit(s[n]) || s[n] == '_') {
		n++
	}
	return n
}

func scanSuffix(s string, n int) int {
	for n < len(s) && (isAlnum(s[n]) || s[n] == '_') {
		n++
	}
	return n
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
