// Package lexer turns Ruchy source text into a token stream.
//
// The lexer never fails: malformed input becomes an ILLEGAL token plus a
// diagnostic, and scanning resumes at the next character boundary.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
	"golang.org/x/text/unicode/norm"
)

// Lexer represents the lexical analyzer
type Lexer struct {
	input  string
	pos    int // byte offset of the next unread character
	line   int // 1-based line of pos
	column int // 1-based column of pos, counted in runes

	diagnostics     []*perrors.RuchyError
	pendingComments []string // comments collected before the next token
	pendingTrailing string   // comment on the same line as the previous token
	lastLine        int      // line on which the previous token ended
	emitted         bool     // whether any token has been produced
}

// New creates a new lexer instance
func New(input string) *Lexer {
	return &Lexer{
		input:  input,
		line:   1,
		column: 1,
	}
}

// Tokenize lexes the whole input. The result always ends with an EOF token.
func Tokenize(input string) ([]Token, []*perrors.RuchyError) {
	l := New(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		if l.pendingTrailing != "" && len(tokens) > 0 {
			tokens[len(tokens)-1].TrailingComment = l.pendingTrailing
		}
		l.pendingTrailing = ""
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			break
		}
	}
	return tokens, l.diagnostics
}

// Diagnostics returns the problems reported so far.
func (l *Lexer) Diagnostics() []*perrors.RuchyError {
	return l.diagnostics
}

// NextToken scans and returns the next token
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	start, line, col := l.pos, l.line, l.column
	tok := l.scan()
	tok.Span = Span{Start: start, End: l.pos}
	tok.Line = line
	tok.Column = col
	if len(l.pendingComments) > 0 {
		tok.LeadingComments = l.pendingComments
		l.pendingComments = nil
	}
	l.lastLine = l.line
	l.emitted = true
	return tok
}

func (l *Lexer) scan() Token {
	if l.pos >= len(l.input) {
		return Token{Type: EOF}
	}

	c := l.input[l.pos]
	switch {
	case strings.HasPrefix(l.input[l.pos:], `"""`):
		return l.readTripleString()
	case c == '"':
		l.advance()
		return Token{Type: STRING, Literal: l.readQuoted('"', true)}
	case c == 'r' && (l.byteAt(1) == '"' || (l.byteAt(1) == '#' && l.rawHashesThenQuote())):
		return l.readRawString()
	case c == 'b' && l.byteAt(1) == '"':
		l.advanceN(2)
		return Token{Type: BYTE_STRING, Literal: l.readQuoted('"', true)}
	case c == 'f' && l.byteAt(1) == '"':
		return l.readFString()
	case c == '\'':
		return l.readChar()
	case isDigit(c):
		return l.readNumber()
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	if isIdentStart(r) {
		return l.readIdentifier()
	}

	rest := l.input[l.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op.text) {
			l.advanceN(len(op.text))
			return Token{Type: op.tt, Literal: op.text}
		}
	}

	// Unrecognized input: report and resume at the next character boundary.
	literal := rest[:size]
	l.report("PARSE-0007", map[string]any{"Literal": literal})
	l.advance()
	return Token{Type: ILLEGAL, Literal: literal}
}

// byteAt returns the byte at pos+offset, or 0 past the end.
func (l *Lexer) byteAt(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

// advance consumes one character, tracking line and column.
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
}

// advanceN consumes n bytes worth of ASCII characters.
func (l *Lexer) advanceN(n int) {
	end := l.pos + n
	for l.pos < end && l.pos < len(l.input) {
		l.advance()
	}
}

func (l *Lexer) report(code string, data map[string]any) {
	l.diagnostics = append(l.diagnostics, perrors.NewWithPosition(code, l.line, l.column, l.pos, data))
}

func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.advance()
		case c == '/' && l.byteAt(1) == '/':
			l.readLineComment()
		case c == '/' && l.byteAt(1) == '*':
			l.readBlockComment()
		default:
			return
		}
	}
}

func (l *Lexer) readLineComment() {
	sameLine := l.emitted && l.line == l.lastLine
	start := l.pos
	for l.pos < len(l.input) && l.input[l.pos] != '\n' {
		l.advance()
	}
	text := strings.TrimRight(l.input[start:l.pos], "\r")
	if sameLine && len(l.pendingComments) == 0 {
		l.pendingTrailing = text
		return
	}
	l.pendingComments = append(l.pendingComments, text)
}

// readBlockComment skips a possibly nested /* ... */ comment.
func (l *Lexer) readBlockComment() {
	start := l.pos
	depth := 0
	for l.pos < len(l.input) {
		if l.byteAt(0) == '/' && l.byteAt(1) == '*' {
			depth++
			l.advanceN(2)
			continue
		}
		if l.byteAt(0) == '*' && l.byteAt(1) == '/' {
			depth--
			l.advanceN(2)
			if depth == 0 {
				l.pendingComments = append(l.pendingComments, l.input[start:l.pos])
				return
			}
			continue
		}
		l.advance()
	}
	l.report("PARSE-0008", nil)
}

func (l *Lexer) readIdentifier() Token {
	start := l.pos
	for l.pos < len(l.input) {
		r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
		if !isIdentPart(r) {
			break
		}
		l.advance()
	}
	ident := norm.NFC.String(l.input[start:l.pos])
	return Token{Type: LookupIdent(ident), Literal: ident}
}

func (l *Lexer) readNumber() Token {
	start := l.pos

	if l.byteAt(0) == '0' {
		var valid func(byte) bool
		switch l.byteAt(1) {
		case 'x', 'X':
			valid = isHexDigit
		case 'o', 'O':
			valid = func(b byte) bool { return b >= '0' && b <= '7' }
		case 'b', 'B':
			valid = func(b byte) bool { return b == '0' || b == '1' }
		}
		if valid != nil {
			l.advanceN(2)
			digits := 0
			for l.pos < len(l.input) && (valid(l.input[l.pos]) || l.input[l.pos] == '_') {
				if l.input[l.pos] != '_' {
					digits++
				}
				l.advance()
			}
			text := l.input[start:l.pos]
			if digits == 0 {
				l.report("PARSE-0005", map[string]any{"Literal": text})
				return Token{Type: ILLEGAL, Literal: text}
			}
			return Token{Type: INT, Literal: strings.ReplaceAll(text, "_", "")}
		}
	}

	isFloat := false
	l.readDigits()

	// A '.' starts a fraction only when a digit follows, so 1..5 and 1.len() lex
	// as integer, operator, and the rest.
	if l.byteAt(0) == '.' && isDigit(l.byteAt(1)) {
		isFloat = true
		l.advance()
		l.readDigits()
	}

	if e := l.byteAt(0); e == 'e' || e == 'E' {
		next := l.byteAt(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.byteAt(2))) {
			isFloat = true
			l.advanceN(2)
			l.readDigits()
		}
	}

	literal := strings.ReplaceAll(l.input[start:l.pos], "_", "")
	if isFloat {
		return Token{Type: FLOAT, Literal: literal}
	}
	return Token{Type: INT, Literal: literal}
}

func (l *Lexer) readDigits() {
	for l.pos < len(l.input) && (isDigit(l.input[l.pos]) || l.input[l.pos] == '_') {
		l.advance()
	}
}

// readQuoted reads string content up to the closing quote, which it consumes.
// The opening quote must already be consumed.
func (l *Lexer) readQuoted(quote byte, escapes bool) string {
	var sb strings.Builder
	for {
		if l.pos >= len(l.input) {
			l.report("PARSE-0004", nil)
			return sb.String()
		}
		c := l.input[l.pos]
		if c == quote {
			l.advance()
			return sb.String()
		}
		if c == '\\' && escapes {
			l.readEscape(&sb)
			continue
		}
		_, size := utf8.DecodeRuneInString(l.input[l.pos:])
		sb.WriteString(l.input[l.pos : l.pos+size])
		l.advance()
	}
}

// readEscape decodes one backslash escape into sb.
func (l *Lexer) readEscape(sb *strings.Builder) {
	start := l.pos
	l.advance() // consume '\'
	if l.pos >= len(l.input) {
		l.report("PARSE-0006", map[string]any{"Literal": `\`})
		return
	}
	c := l.input[l.pos]
	l.advance()
	switch c {
	case 'n':
		sb.WriteByte('\n')
	case 'r':
		sb.WriteByte('\r')
	case 't':
		sb.WriteByte('\t')
	case '\\':
		sb.WriteByte('\\')
	case '"':
		sb.WriteByte('"')
	case '\'':
		sb.WriteByte('\'')
	case '0':
		sb.WriteByte(0)
	case '{':
		sb.WriteByte('{')
	case '}':
		sb.WriteByte('}')
	case 'x':
		if isHexDigit(l.byteAt(0)) && isHexDigit(l.byteAt(1)) {
			v := hexValue(l.byteAt(0))<<4 | hexValue(l.byteAt(1))
			l.advanceN(2)
			sb.WriteRune(rune(v))
			return
		}
		l.report("PARSE-0006", map[string]any{"Literal": l.input[start:l.pos]})
	case 'u':
		if l.byteAt(0) == '{' {
			end := strings.IndexByte(l.input[l.pos:], '}')
			if end > 1 && end <= 7 {
				hex := l.input[l.pos+1 : l.pos+end]
				var v rune
				ok := true
				for i := 0; i < len(hex); i++ {
					if !isHexDigit(hex[i]) {
						ok = false
						break
					}
					v = v<<4 | rune(hexValue(hex[i]))
				}
				if ok && utf8.ValidRune(v) {
					l.advanceN(end + 1)
					sb.WriteRune(v)
					return
				}
			}
		}
		l.report("PARSE-0006", map[string]any{"Literal": l.input[start:l.pos]})
	default:
		l.report("PARSE-0006", map[string]any{"Literal": l.input[start:l.pos]})
		sb.WriteByte(c)
	}
}

func (l *Lexer) readTripleString() Token {
	l.advanceN(3)
	var sb strings.Builder
	for {
		if l.pos >= len(l.input) {
			l.report("PARSE-0004", nil)
			break
		}
		if strings.HasPrefix(l.input[l.pos:], `"""`) {
			l.advanceN(3)
			break
		}
		if l.input[l.pos] == '\\' {
			l.readEscape(&sb)
			continue
		}
		_, size := utf8.DecodeRuneInString(l.input[l.pos:])
		sb.WriteString(l.input[l.pos : l.pos+size])
		l.advance()
	}
	return Token{Type: STRING, Literal: sb.String()}
}

// rawHashesThenQuote reports whether r is followed by one or more '#' and a quote.
func (l *Lexer) rawHashesThenQuote() bool {
	i := 1
	for l.byteAt(i) == '#' {
		i++
	}
	return l.byteAt(i) == '"'
}

func (l *Lexer) readRawString() Token {
	l.advance() // r
	hashes := 0
	for l.byteAt(0) == '#' {
		hashes++
		l.advance()
	}
	l.advance() // opening quote
	closing := `"` + strings.Repeat("#", hashes)
	end := strings.Index(l.input[l.pos:], closing)
	if end < 0 {
		content := l.input[l.pos:]
		l.advanceN(len(content))
		l.report("PARSE-0004", nil)
		return Token{Type: STRING, Literal: content}
	}
	content := l.input[l.pos : l.pos+end]
	l.advanceN(end + len(closing))
	return Token{Type: STRING, Literal: content}
}

// readFString splits f"..." into literal text and embedded expression source.
func (l *Lexer) readFString() Token {
	l.advanceN(2) // f"
	var parts []StringPart
	var text strings.Builder
	textStart := l.pos
	var all strings.Builder

	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, StringPart{Text: text.String(), Offset: textStart})
			text.Reset()
		}
	}

	for {
		if l.pos >= len(l.input) {
			l.report("PARSE-0004", nil)
			break
		}
		c := l.input[l.pos]
		if c == '"' {
			l.advance()
			break
		}
		switch {
		case c == '{' && l.byteAt(1) == '{':
			text.WriteByte('{')
			all.WriteByte('{')
			l.advanceN(2)
		case c == '}' && l.byteAt(1) == '}':
			text.WriteByte('}')
			all.WriteByte('}')
			l.advanceN(2)
		case c == '{':
			flush()
			l.advance()
			exprStart := l.pos
			exprEnd := l.scanInterpolation()
			src := l.input[exprStart:exprEnd]
			parts = append(parts, StringPart{Text: src, IsExpr: true, Offset: exprStart})
			all.WriteString("{" + src + "}")
			textStart = l.pos
		case c == '\\':
			before := text.Len()
			l.readEscape(&text)
			all.WriteString(text.String()[before:])
		default:
			_, size := utf8.DecodeRuneInString(l.input[l.pos:])
			text.WriteString(l.input[l.pos : l.pos+size])
			all.WriteString(l.input[l.pos : l.pos+size])
			l.advance()
		}
		if text.Len() == 0 {
			textStart = l.pos
		}
	}
	flush()
	return Token{Type: FSTRING, Literal: all.String(), Parts: parts}
}

// scanInterpolation consumes an embedded expression up to its closing brace
// and returns the end offset of the expression text.
func (l *Lexer) scanInterpolation() int {
	depth := 1
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end := l.pos
				l.advance()
				return end
			}
		case '"':
			l.advance()
			l.readQuoted('"', true)
			continue
		}
		l.advance()
	}
	l.report("PARSE-0004", nil)
	return l.pos
}

func (l *Lexer) readChar() Token {
	start := l.pos
	l.advance() // opening quote
	if r, size := utf8.DecodeRuneInString(l.input[l.pos:]); isIdentStart(r) && l.byteAt(size) != '\'' {
		name := l.readIdentifier()
		return Token{Type: LABEL, Literal: name.Literal}
	}
	var sb strings.Builder
	if l.byteAt(0) == '\\' {
		l.readEscape(&sb)
	} else if l.pos < len(l.input) && l.input[l.pos] != '\'' {
		_, size := utf8.DecodeRuneInString(l.input[l.pos:])
		sb.WriteString(l.input[l.pos : l.pos+size])
		l.advance()
	}
	if l.byteAt(0) != '\'' || utf8.RuneCountInString(sb.String()) != 1 {
		for l.pos < len(l.input) && l.input[l.pos] != '\'' && l.input[l.pos] != '\n' {
			l.advance()
		}
		if l.byteAt(0) == '\'' {
			l.advance()
		}
		l.report("PARSE-0012", map[string]any{"Literal": l.input[start:l.pos]})
		return Token{Type: ILLEGAL, Literal: l.input[start:l.pos]}
	}
	l.advance() // closing quote
	return Token{Type: CHAR, Literal: sb.String()}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
