package rustfmt

import (
	"strings"
	"unicode"
)

// Printer manages formatting state and output
type Printer struct {
	output  strings.Builder
	indent  int // Current indentation level (number of IndentWidth spaces)
	linePos int // Current position in the current line

	toks        []token
	pos         int
	stack       []frame
	atLineStart bool
	noSpace     bool // suppress the space before the next token
	afterClose  bool // previous token closed a generic list
	generics    int  // open < of generic argument lists
	closureArgs bool // between the pipes of a closure
	itemStart   string
}

// frame is one open delimiter.
type frame struct {
	open      string
	block     bool // { laid out one statement per line
	empty     bool // {} with nothing inside
	top       bool // body of a top-level item
	multiline bool // ( or [ broken one element per line
	attr      bool // #[...]
}

// NewPrinter creates a new Printer instance
func NewPrinter() *Printer {
	return &Printer{atLineStart: true}
}

// String returns the formatted output
func (p *Printer) String() string {
	return p.output.String()
}

// Reset clears the printer state for reuse
func (p *Printer) Reset() {
	*p = Printer{atLineStart: true}
}

// write appends a string to the output and updates line position
func (p *Printer) write(s string) {
	p.output.WriteString(s)
	if idx := strings.LastIndex(s, "\n"); idx >= 0 {
		p.linePos = len(s) - idx - 1
	} else {
		p.linePos += len(s)
	}
}

// newline writes a newline character and resets line position
func (p *Printer) newline() {
	if p.atLineStart && p.linePos == 0 && p.output.Len() == 0 {
		return
	}
	p.output.WriteString("\n")
	p.linePos = 0
	p.atLineStart = true
}

// blankLine ends the current line and leaves one empty line.
func (p *Printer) blankLine() {
	if !p.atLineStart {
		p.newline()
	}
	s := p.output.String()
	if strings.HasSuffix(s, "\n\n") || s == "" {
		return
	}
	for i := 0; i < BlankLinesBetweenItems; i++ {
		p.output.WriteString("\n")
	}
}

// writeIndent writes the current indentation
func (p *Printer) writeIndent() {
	p.write(strings.Repeat(IndentString, p.indent))
}

// indentInc increases the indentation level
func (p *Printer) indentInc() {
	p.indent++
}

// indentDec decreases the indentation level
func (p *Printer) indentDec() {
	if p.indent > 0 {
		p.indent--
	}
}

// fitsOnLine checks if a run of width characters would fit on the current line
func (p *Printer) fitsOnLine(width int) bool {
	return p.linePos+width <= MaxLineWidth
}

// emit writes one token, with a separating space unless suppressed.
func (p *Printer) emit(text string, space bool) {
	switch {
	case p.atLineStart:
		p.writeIndent()
		p.atLineStart = false
		if len(p.stack) == 0 {
			p.itemStart = text
		}
	case space && !p.noSpace:
		p.write(" ")
	}
	p.write(text)
	p.noSpace = false
	p.afterClose = false
}

func (p *Printer) top() *frame {
	if len(p.stack) == 0 {
		return nil
	}
	return &p.stack[len(p.stack)-1]
}

func (p *Printer) pop() frame {
	f := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	return f
}

func (p *Printer) prev() token {
	if p.pos == 0 {
		return token{}
	}
	return p.toks[p.pos-1]
}

func (p *Printer) peek(n int) token {
	if p.pos+n >= len(p.toks) {
		return token{}
	}
	return p.toks[p.pos+n]
}

// keywords never end an operand.
var keywords = map[string]bool{
	"as": true, "async": true, "break": true, "const": true, "continue": true, "dyn": true,
	"else": true, "enum": true, "extern": true, "fn": true, "for": true, "if": true,
	"impl": true, "in": true, "let": true, "loop": true, "match": true, "mod": true,
	"move": true, "mut": true, "pub": true, "ref": true, "return": true, "static": true,
	"struct": true, "trait": true, "type": true, "unsafe": true, "use": true, "where": true,
	"while": true,
}

// endsOperand reports whether t can end an expression, which makes a
// following - & * | binary rather than prefix.
func endsOperand(t token) bool {
	switch t.kind {
	case tokNumber, tokString, tokChar:
		return true
	case tokIdent:
		return !keywords[t.text] && !strings.HasSuffix(t.text, "!")
	case tokPunct:
		return t.text == ")" || t.text == "]" || t.text == "?"
	}
	return false
}

// callable reports whether ( or [ directly after t is a call or index.
func callable(t token) bool {
	switch t.kind {
	case tokIdent:
		return !keywords[t.text] || t.text == "fn"
	case tokPunct:
		return t.text == ")" || t.text == "]" || t.text == "#"
	}
	return false
}

// opensGenerics decides whether < starts a generic argument list.
func (p *Printer) opensGenerics() bool {
	prev := p.prev()
	if prev.text == "::" || prev.text == "impl" {
		return true
	}
	if prev.kind != tokIdent || keywords[prev.text] {
		return false
	}
	if p.pos >= 2 {
		switch p.toks[p.pos-2].text {
		case "fn", "struct", "enum", "trait", "impl", "type":
			return true
		}
	}
	r := []rune(prev.text)
	if !unicode.IsUpper(r[0]) {
		return false
	}
	// ALL_CAPS names are constants being compared.
	return len(r) == 1 || strings.ToUpper(prev.text) != prev.text
}

// groupShape measures the flat width of the delimited group opening at
// the current token, and whether it has top-level commas or braces.
func (p *Printer) groupShape() (width int, commas, braces bool) {
	depth := 0
	for i := p.pos; i < len(p.toks); i++ {
		t := p.toks[i]
		switch t.text {
		case "(", "[", "{":
			depth++
			if t.text == "{" {
				braces = true
			}
		case ")", "]", "}":
			depth--
		case ",":
			if depth == 1 {
				commas = true
			}
		}
		width += len(t.text) + 1
		if depth == 0 {
			break
		}
	}
	return width, commas, braces
}

// print lays out every token.
func (p *Printer) print(toks []token) {
	p.toks = toks
	for p.pos = 0; p.pos < len(toks); p.pos++ {
		p.printToken(toks[p.pos])
	}
	if !p.atLineStart {
		p.newline()
	}
}

func (p *Printer) printToken(t token) {
	if t.kind == tokComment {
		if !p.atLineStart {
			p.write(" ")
		}
		p.emit(t.text, false)
		p.newline()
		return
	}
	if t.kind != tokPunct {
		p.emit(t.text, true)
		return
	}

	switch t.text {
	case "{":
		p.openBrace()
	case "}":
		p.closeBrace()
	case "(", "[":
		p.openGroup(t.text)
	case ")", "]":
		p.closeGroup()
	case ";":
		p.generics = 0
		p.emit(";", false)
		if f := p.top(); f == nil || f.block {
			p.endStatement()
		}
	case ",":
		p.comma()
	case "<":
		if p.opensGenerics() {
			p.generics++
			p.emit("<", false)
			p.noSpace = true
			return
		}
		p.emit("<", true)
	case ">", ">>":
		if p.generics > 0 {
			p.generics -= len(t.text)
			if p.generics < 0 {
				p.generics = 0
			}
			p.emit(t.text, false)
			p.afterClose = true
			return
		}
		p.emit(t.text, true)
	case "::", ".":
		p.emit(t.text, false)
		p.noSpace = true
	case "?", ":":
		p.emit(t.text, false)
	case "#":
		p.emit("#", true)
		p.noSpace = true
	case "..", "..=", "...":
		p.emit(t.text, !endsOperand(p.prev()))
		p.noSpace = true
	case "-", "*", "&", "&&", "!":
		unary := !endsOperand(p.prev())
		p.emit(t.text, true)
		p.noSpace = unary
	case "|":
		switch {
		case p.closureArgs:
			p.closureArgs = false
			p.emit("|", false)
		case endsOperand(p.prev()):
			p.emit("|", true)
		default:
			p.closureArgs = true
			p.emit("|", true)
			p.noSpace = true
		}
	default:
		p.emit(t.text, true)
	}
}

func (p *Printer) openBrace() {
	p.generics = 0
	prev := p.prev()
	if prev.text == "::" {
		p.emit("{", false)
		p.noSpace = true
		p.stack = append(p.stack, frame{open: "{"})
		return
	}
	f := frame{open: "{", block: true, top: len(p.stack) == 0}
	p.emit("{", true)
	if p.peek(1).text == "}" {
		f.empty = true
		if f.top {
			p.newline()
		}
		p.stack = append(p.stack, f)
		return
	}
	p.stack = append(p.stack, f)
	p.indentInc()
	p.newline()
}

func (p *Printer) closeBrace() {
	if len(p.stack) == 0 {
		p.emit("}", true)
		return
	}
	f := p.pop()
	if !f.block {
		p.emit("}", false)
		return
	}
	if !f.empty {
		p.indentDec()
		if !p.atLineStart {
			p.newline()
		}
	}
	p.emit("}", false)

	switch next := p.peek(1); next.text {
	case ";", ",", ")", "]", ".", "?", "else", "as":
		return
	case "":
		p.newline()
	default:
		if len(p.stack) == 0 {
			p.blankLine()
			return
		}
		p.newline()
	}
}

func (p *Printer) endStatement() {
	if len(p.stack) > 0 {
		p.newline()
		return
	}
	next := p.peek(1).text
	if next == "" {
		p.newline()
		return
	}
	if (p.itemStart == "use" || p.itemStart == "pub") && (next == "use" || next == "pub") {
		p.newline()
		return
	}
	p.blankLine()
}

func (p *Printer) comma() {
	f := p.top()
	if f != nil && f.open == "[" && !f.multiline && !f.attr && p.peek(1).text == "]" {
		// Flat arrays drop the trailing comma.
		return
	}
	p.emit(",", false)
	if f == nil || p.generics > 0 || p.closureArgs {
		return
	}
	if f.block || f.multiline {
		p.newline()
	}
}

func (p *Printer) openGroup(open string) {
	prev := p.prev()
	space := !callable(prev) && !p.afterClose
	f := frame{open: open}
	if open == "[" && prev.text == "#" {
		f.attr = true
	}
	if !f.attr {
		width, commas, braces := p.groupShape()
		f.multiline = commas && !braces && p.generics == 0 && !p.fitsOnLine(width+1)
	}
	p.emit(open, space)
	p.noSpace = true
	p.stack = append(p.stack, f)
	if f.multiline {
		p.indentInc()
		p.newline()
	}
}

func (p *Printer) closeGroup() {
	if len(p.stack) == 0 {
		p.emit(p.toks[p.pos].text, false)
		return
	}
	f := p.pop()
	closer := p.toks[p.pos].text
	if f.multiline {
		if f.open == "[" && TrailingCommaMultiline && p.prev().text != "," {
			p.emit(",", false)
		}
		p.indentDec()
		if !p.atLineStart {
			p.newline()
		}
	}
	p.emit(closer, false)
	if f.attr {
		p.newline()
	}
}
