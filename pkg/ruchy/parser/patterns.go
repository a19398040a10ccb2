package parser

import (
	"strconv"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/lexer"
)

// parsePattern parses a pattern, including `a | b` alternatives, starting at
// curToken and leaving curToken on its last token. Patterns that bind a name
// twice or carry two rest elements are rejected.
func (p *Parser) parsePattern() ast.Pattern {
	tok := p.curToken
	pattern := p.parseAlternatives()
	if pattern == nil {
		return nil
	}

	seen := map[string]bool{}
	for _, name := range ast.PatternBindings(pattern) {
		if seen[name] {
			p.addError("PARSE-0013", tok, map[string]any{"Name": name})
			return nil
		}
		seen[name] = true
	}
	if err := ast.ValidatePattern(pattern); err != nil {
		p.addError("PARSE-0011", tok, map[string]any{"Pattern": pattern.String()})
		return nil
	}
	return pattern
}

func (p *Parser) parseAlternatives() ast.Pattern {
	first := p.parsePrimaryPattern()
	if first == nil || !p.peekTokenIs(lexer.PIPE) {
		return first
	}
	alts := []ast.Pattern{first}
	for p.peekTokenIs(lexer.PIPE) {
		p.nextToken()
		p.nextToken()
		next := p.parsePrimaryPattern()
		if next == nil {
			return nil
		}
		alts = append(alts, next)
	}
	return &ast.OrPattern{Alternatives: alts}
}

// parsePrimaryPattern parses one pattern without alternatives.
func (p *Parser) parsePrimaryPattern() ast.Pattern {
	switch p.curToken.Type {
	case lexer.IDENT:
		return p.parseNamePattern()

	case lexer.MUT:
		name, ok := p.expectPeekIdent()
		if !ok {
			return nil
		}
		return &ast.IdentifierPattern{Name: name, IsMutable: true}

	case lexer.AMPERSAND:
		p.nextToken()
		if p.curTokenIs(lexer.MUT) && !p.peekTokenIs(lexer.IDENT) {
			p.nextToken()
		}
		return p.parsePrimaryPattern()

	case lexer.INT, lexer.FLOAT, lexer.STRING, lexer.CHAR, lexer.TRUE, lexer.FALSE, lexer.NULL, lexer.MINUS:
		lit := p.patternLiteral()
		if lit == nil {
			return nil
		}
		if p.peekTokenIs(lexer.DOTDOT) || p.peekTokenIs(lexer.DOTDOTEQ) {
			p.nextToken()
			inclusive := p.curTokenIs(lexer.DOTDOTEQ)
			p.nextToken()
			end := p.patternLiteral()
			if end == nil {
				return nil
			}
			return &ast.RangePattern{Start: lit, End: end, Inclusive: inclusive}
		}
		return &ast.LiteralPattern{Value: lit}

	case lexer.DOTDOT, lexer.ELLIPSIS:
		rest := &ast.RestPattern{}
		if p.peekTokenIs(lexer.IDENT) {
			p.nextToken()
			rest.Name = p.interner.Intern(p.curToken.Literal)
		}
		return rest

	case lexer.LPAREN:
		return p.parseTuplePattern()

	case lexer.LBRACKET:
		elements, ok := p.parsePatternList(lexer.RBRACKET)
		if !ok {
			return nil
		}
		return &ast.ListPattern{Elements: elements}

	case lexer.LBRACE:
		fields, rest, ok := p.parseFieldPatterns()
		if !ok {
			return nil
		}
		return &ast.ObjectPattern{Fields: fields, Rest: rest}
	}

	p.addError("PARSE-0011", p.curToken, map[string]any{"Pattern": tokenText(p.curToken)})
	return nil
}

// parseNamePattern handles `_`, bindings, `name @ ..`, paths, enum variants
// with arguments and struct patterns.
func (p *Parser) parseNamePattern() ast.Pattern {
	name := p.curToken.Literal
	if name == "_" {
		return ast.WildcardPattern{}
	}

	for p.peekTokenIs(lexer.DOUBLE_COLON) && p.peekAhead(1).Type == lexer.IDENT {
		p.nextToken()
		p.nextToken()
		name += "::" + p.curToken.Literal
	}
	name = p.interner.Intern(name)
	isPath := name != p.curToken.Literal || isTypeName(name)

	switch {
	case p.peekTokenIs(lexer.AT):
		p.nextToken()
		p.nextToken()
		if p.curTokenIs(lexer.DOTDOT) {
			return &ast.RestPattern{Name: name}
		}
		p.addError("PARSE-0011", p.curToken, map[string]any{"Pattern": name + " @ " + tokenText(p.curToken)})
		return nil

	case p.peekTokenIs(lexer.LPAREN):
		p.nextToken()
		args, ok := p.parsePatternList(lexer.RPAREN)
		if !ok {
			return nil
		}
		return &ast.EnumPattern{Name: name, Args: args}

	case p.peekTokenIs(lexer.LBRACE) && isTypeName(lastSegment(name)):
		p.nextToken()
		fields, rest, ok := p.parseFieldPatterns()
		if !ok {
			return nil
		}
		return &ast.StructPattern{Name: name, Fields: fields, Rest: rest}
	}

	if isPath {
		return &ast.EnumPattern{Name: name}
	}
	return &ast.IdentifierPattern{Name: name}
}

func (p *Parser) parseTuplePattern() ast.Pattern {
	if p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		return &ast.LiteralPattern{Value: &ast.Literal{Kind: ast.LitUnit}}
	}
	elements, ok := p.parsePatternList(lexer.RPAREN)
	if !ok {
		return nil
	}
	if len(elements) == 1 && p.prevToken.Type != lexer.COMMA {
		return elements[0]
	}
	return &ast.TuplePattern{Elements: elements}
}

// parsePatternList parses comma separated patterns with curToken on the
// opener, leaving curToken on end.
func (p *Parser) parsePatternList(end lexer.TokenType) ([]ast.Pattern, bool) {
	elements := []ast.Pattern{}
	for !p.peekTokenIs(end) {
		p.nextToken()
		element := p.parseAlternatives()
		if element == nil {
			return nil, false
		}
		elements = append(elements, element)
		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(end) {
		return nil, false
	}
	return elements, true
}

// parseFieldPatterns parses `{ a, b: pat, .. }` with curToken on `{`,
// leaving curToken on `}`.
func (p *Parser) parseFieldPatterns() ([]ast.FieldPattern, bool, bool) {
	var fields []ast.FieldPattern
	rest := false
	for !p.peekTokenIs(lexer.RBRACE) {
		p.nextToken()
		switch p.curToken.Type {
		case lexer.DOTDOT:
			rest = true
		case lexer.IDENT, lexer.STRING:
			key := p.interner.Intern(p.curToken.Literal)
			field := ast.FieldPattern{Key: key, Pattern: &ast.IdentifierPattern{Name: key}}
			if p.peekTokenIs(lexer.COLON) {
				p.nextToken()
				p.nextToken()
				if field.Pattern = p.parseAlternatives(); field.Pattern == nil {
					return nil, false, false
				}
			} else if p.curTokenIs(lexer.STRING) {
				p.peekError(lexer.COLON)
				return nil, false, false
			}
			fields = append(fields, field)
		case lexer.MUT:
			name, ok := p.expectPeekIdent()
			if !ok {
				return nil, false, false
			}
			fields = append(fields, ast.FieldPattern{Key: name, Pattern: &ast.IdentifierPattern{Name: name, IsMutable: true}})
		default:
			p.addError("PARSE-0011", p.curToken, map[string]any{"Pattern": tokenText(p.curToken)})
			return nil, false, false
		}
		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(lexer.RBRACE) {
		return nil, false, false
	}
	return fields, rest, true
}

// patternLiteral reads a literal, allowing a leading minus on numbers.
func (p *Parser) patternLiteral() *ast.Literal {
	negative := false
	if p.curTokenIs(lexer.MINUS) {
		negative = true
		p.nextToken()
	}
	tok := p.curToken
	switch tok.Type {
	case lexer.INT:
		v, err := strconv.ParseInt(tok.Literal, 0, 64)
		if err != nil {
			u, uerr := strconv.ParseUint(tok.Literal, 0, 64)
			if uerr != nil {
				p.addError("PARSE-0005", tok, map[string]any{"Literal": tok.Literal})
				return nil
			}
			v = int64(u)
		}
		if negative {
			v = -v
		}
		return &ast.Literal{Kind: ast.LitInteger, Int: v}
	case lexer.FLOAT:
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.addError("PARSE-0005", tok, map[string]any{"Literal": tok.Literal})
			return nil
		}
		if negative {
			v = -v
		}
		return &ast.Literal{Kind: ast.LitFloat, Float: v}
	}
	if negative {
		p.addError("PARSE-0011", tok, map[string]any{"Pattern": "-" + tokenText(tok)})
		return nil
	}
	switch tok.Type {
	case lexer.STRING:
		return &ast.Literal{Kind: ast.LitString, Str: p.interner.Intern(tok.Literal)}
	case lexer.CHAR:
		return &ast.Literal{Kind: ast.LitChar, Str: tok.Literal}
	case lexer.TRUE, lexer.FALSE:
		return &ast.Literal{Kind: ast.LitBool, Bool: tok.Type == lexer.TRUE}
	case lexer.NULL:
		return &ast.Literal{Kind: ast.LitNull}
	}
	p.addError("PARSE-0011", tok, map[string]any{"Pattern": tokenText(tok)})
	return nil
}
