package parser

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/lexer"
)

// dataFrameMethods are method names parsed as DataFrameOp nodes.
var dataFrameMethods = map[string]ast.DataFrameOpKind{
	"select":   ast.DFSelect,
	"filter":   ast.DFFilter,
	"groupby":  ast.DFGroupBy,
	"group_by": ast.DFGroupBy,
	"join":     ast.DFJoin,
	"slice":    ast.DFSlice,
	"sum":      ast.DFSum,
}

// itemLike reports whether e is a declaration or loop, after which no infix
// operator may continue the expression.
func itemLike(e *ast.Expr) bool {
	switch e.Kind.(type) {
	case *ast.Function, *ast.StructDef, *ast.EnumDef, *ast.TraitDef, *ast.ImplBlock,
		*ast.Module, *ast.Import, *ast.Export, *ast.While, *ast.For, *ast.Loop, *ast.ActorDef:
		return true
	}
	return false
}

func (p *Parser) parseIdentifier() *ast.Expr {
	start := p.startOf()
	name := p.curToken.Literal

	if p.peekTokenIs(lexer.BANG) && p.peekToken.Span.Start == p.curToken.Span.End {
		switch p.peekAhead(1).Type {
		case lexer.LPAREN, lexer.LBRACKET, lexer.LBRACE:
			return p.parseMacroInvocation(start, name)
		}
	}

	for p.peekTokenIs(lexer.DOUBLE_COLON) {
		next := p.peekAhead(1)
		if next.Type == lexer.LT {
			p.nextToken()
			p.nextToken()
			p.skipGenericArgs()
			continue
		}
		if next.Type != lexer.IDENT {
			break
		}
		p.nextToken()
		p.nextToken()
		name += "::" + p.curToken.Literal
	}
	name = p.interner.Intern(name)

	if !p.noStructLiteral && p.peekTokenIs(lexer.LBRACE) && isTypeName(lastSegment(name)) && p.looksLikeStructBody() {
		return p.parseStructLiteral(start, name)
	}

	return p.finish(&ast.Identifier{Name: name}, start)
}

// looksLikeStructBody checks the tokens after a `{` for `}`, `field:`,
// `field,`, `field }` or `..base`.
func (p *Parser) looksLikeStructBody() bool {
	first := p.peekAhead(1)
	switch first.Type {
	case lexer.RBRACE, lexer.DOTDOT:
		return true
	case lexer.IDENT:
		switch p.peekAhead(2).Type {
		case lexer.COLON, lexer.COMMA, lexer.RBRACE:
			return true
		}
	}
	return false
}

func isTypeName(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[i+2:]
	}
	return name
}

func (p *Parser) parseStructLiteral(start int, name string) *ast.Expr {
	p.nextToken() // {
	fields := p.parseObjectFields()
	if fields == nil && p.panicking {
		return nil
	}
	return p.finish(&ast.StructLiteral{Name: name, Fields: fields}, start)
}

// parseObjectFields parses `key: value` pairs, shorthand keys and spreads
// with curToken on the opening brace. It leaves curToken on the closing brace.
func (p *Parser) parseObjectFields() []ast.ObjectField {
	fields := []ast.ObjectField{}
	for !p.peekTokenIs(lexer.RBRACE) {
		p.nextToken()
		switch p.curToken.Type {
		case lexer.ELLIPSIS, lexer.DOTDOT:
			p.nextToken()
			value := p.parseNested(LOWEST)
			if value == nil {
				return nil
			}
			fields = append(fields, ast.ObjectField{Value: value, Spread: true})
		case lexer.IDENT, lexer.STRING:
			key := p.interner.Intern(p.curToken.Literal)
			keyTok := p.curToken
			if p.peekTokenIs(lexer.COLON) {
				p.nextToken()
				p.nextToken()
				value := p.parseNested(LOWEST)
				if value == nil {
					return nil
				}
				fields = append(fields, ast.ObjectField{Key: key, Value: value})
			} else if keyTok.Type == lexer.IDENT {
				ident := p.newExpr(&ast.Identifier{Name: key}, keyTok.Span)
				fields = append(fields, ast.ObjectField{Key: key, Value: ident})
			} else {
				p.peekError(lexer.COLON)
				return nil
			}
		default:
			p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "a field name", "Got": tokenText(p.curToken)})
			return nil
		}
		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(lexer.RBRACE) {
		return nil
	}
	return fields
}

func (p *Parser) parseMacroInvocation(start int, name string) *ast.Expr {
	p.nextToken() // !
	p.nextToken() // opener
	if name == "df" && p.curTokenIs(lexer.LBRACKET) {
		return p.parseDataFrameLiteral(start)
	}
	closer := map[lexer.TokenType]lexer.TokenType{
		lexer.LPAREN:   lexer.RPAREN,
		lexer.LBRACKET: lexer.RBRACKET,
		lexer.LBRACE:   lexer.RBRACE,
	}[p.curToken.Type]
	args := p.parseExpressionList(closer)
	if args == nil && p.panicking {
		return nil
	}
	return p.finish(&ast.MacroInvocation{Name: p.interner.Intern(name), Args: args}, start)
}

// parseDataFrameLiteral parses df![...] in either column form
// (`"a" => [1, 2], "b" => [3, 4]`) or row form (`a, b; 1, 3; 2, 4`).
func (p *Parser) parseDataFrameLiteral(start int) *ast.Expr {
	df := &ast.DataFrame{}
	if p.peekTokenIs(lexer.RBRACKET) {
		p.nextToken()
		return p.finish(df, start)
	}

	if (p.peekTokenIs(lexer.IDENT) || p.peekTokenIs(lexer.STRING)) && p.peekAhead(1).Type == lexer.FAT_ARROW {
		for {
			p.nextToken()
			name := p.interner.Intern(p.curToken.Literal)
			p.nextToken() // =>
			p.nextToken()
			values := p.parseNested(LOWEST)
			if values == nil {
				return nil
			}
			list, ok := values.Kind.(*ast.List)
			if !ok {
				p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "a list of column values", "Got": values.String()})
				return nil
			}
			df.Columns = append(df.Columns, ast.DataFrameColumn{Name: name, Values: list.Elements})
			if !p.peekTokenIs(lexer.COMMA) {
				break
			}
			p.nextToken()
			if p.peekTokenIs(lexer.RBRACKET) {
				break
			}
		}
		if !p.expectPeek(lexer.RBRACKET) {
			return nil
		}
		return p.finish(df, start)
	}

	// Row form: header of column names, then `;`-separated rows.
	for {
		p.nextToken()
		if !p.curTokenIs(lexer.IDENT) && !p.curTokenIs(lexer.STRING) {
			p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "a column name", "Got": tokenText(p.curToken)})
			return nil
		}
		df.Columns = append(df.Columns, ast.DataFrameColumn{Name: p.interner.Intern(p.curToken.Literal)})
		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken()
	}
	for p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
		if p.peekTokenIs(lexer.RBRACKET) {
			break
		}
		for i := range df.Columns {
			if i > 0 && !p.expectPeek(lexer.COMMA) {
				return nil
			}
			p.nextToken()
			value := p.parseNested(LOWEST)
			if value == nil {
				return nil
			}
			df.Columns[i].Values = append(df.Columns[i].Values, value)
		}
		if p.peekTokenIs(lexer.COMMA) {
			p.addError("PARSE-0001", p.peekToken, map[string]any{
				"Expected": strconv.Itoa(len(df.Columns)) + " values per row",
				"Got":      "more",
			})
			return nil
		}
	}
	if !p.expectPeek(lexer.RBRACKET) {
		return nil
	}
	return p.finish(df, start)
}

func (p *Parser) parseIntegerLiteral() *ast.Expr {
	lit := p.curToken.Literal
	value, err := strconv.ParseInt(lit, 0, 64)
	if err != nil {
		// 9223372036854775808 only appears negated; let it wrap.
		u, uerr := strconv.ParseUint(lit, 0, 64)
		if uerr != nil {
			p.addError("PARSE-0005", p.curToken, map[string]any{"Literal": lit})
			return nil
		}
		value = int64(u)
	}
	return p.finish(&ast.Literal{Kind: ast.LitInteger, Int: value}, p.startOf())
}

func (p *Parser) parseFloatLiteral() *ast.Expr {
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.addError("PARSE-0005", p.curToken, map[string]any{"Literal": p.curToken.Literal})
		return nil
	}
	return p.finish(&ast.Literal{Kind: ast.LitFloat, Float: value}, p.startOf())
}

func (p *Parser) parseStringLiteral() *ast.Expr {
	kind := ast.LitString
	if p.curTokenIs(lexer.BYTE_STRING) {
		kind = ast.LitByteString
	}
	return p.finish(&ast.Literal{Kind: kind, Str: p.interner.Intern(p.curToken.Literal)}, p.startOf())
}

func (p *Parser) parseCharLiteral() *ast.Expr {
	return p.finish(&ast.Literal{Kind: ast.LitChar, Str: p.curToken.Literal}, p.startOf())
}

func (p *Parser) parseBoolean() *ast.Expr {
	return p.finish(&ast.Literal{Kind: ast.LitBool, Bool: p.curTokenIs(lexer.TRUE)}, p.startOf())
}

func (p *Parser) parseNull() *ast.Expr {
	return p.finish(&ast.Literal{Kind: ast.LitNull}, p.startOf())
}

// parseInterpolatedString splices the expression fragments of an f-string
// by parsing each one with a sub-parser sharing this parser's interner.
func (p *Parser) parseInterpolatedString() *ast.Expr {
	tok := p.curToken
	start := p.startOf()
	interp := &ast.StringInterpolation{}
	for _, part := range tok.Parts {
		if !part.IsExpr {
			interp.Parts = append(interp.Parts, ast.InterpolationPart{Text: part.Text})
			continue
		}
		source, format := splitFormatSpec(part.Text)
		expr := p.parseFragment(source, part.Offset, tok)
		if expr == nil {
			return nil
		}
		interp.Parts = append(interp.Parts, ast.InterpolationPart{Expr: expr, Format: format})
	}
	return p.finish(interp, start)
}

// splitFormatSpec separates `expr:spec` at the last top-level single colon.
func splitFormatSpec(text string) (string, string) {
	depth := 0
	inString := false
	split := -1
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '"':
			inString = !inString
		case inString:
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == ':' && depth == 0:
			if (i+1 < len(text) && text[i+1] == ':') || (i > 0 && text[i-1] == ':') {
				continue
			}
			split = i
		}
	}
	if split < 0 {
		return text, ""
	}
	return text[:split], text[split+1:]
}

func (p *Parser) parseFragment(source string, offset int, outer lexer.Token) *ast.Expr {
	tokens, diags := lexer.Tokenize(source)
	for i := range tokens {
		tokens[i].Span.Start += offset
		tokens[i].Span.End += offset
		tokens[i].Line = outer.Line
		tokens[i].Column = outer.Column
	}
	for _, d := range diags {
		d.Offset += offset
		d.Line, d.Column = outer.Line, outer.Column
		p.errors = append(p.errors, d)
	}

	sub := newFromTokens(tokens, p.interner)
	if sub.curTokenIs(lexer.EOF) {
		p.addError("PARSE-0001", outer, map[string]any{"Expected": "an expression inside {}", "Got": "nothing"})
		return nil
	}
	expr := sub.parseExpression(LOWEST)
	if expr != nil && !sub.peekTokenIs(lexer.EOF) {
		sub.addError("PARSE-0002", sub.peekToken, map[string]any{"Token": tokenText(sub.peekToken)})
	}
	p.nodes += sub.nodes
	if len(sub.errors) > 0 {
		if !p.panicking {
			p.errors = append(p.errors, sub.errors...)
		}
		p.panicking = true
		return nil
	}
	return expr
}

var prefixOps = map[lexer.TokenType]ast.UnaryOp{
	lexer.MINUS:     ast.OpNeg,
	lexer.BANG:      ast.OpNot,
	lexer.TILDE:     ast.OpBitNot,
	lexer.AMPERSAND: ast.OpRef,
	lexer.ASTERISK:  ast.OpDeref,
}

func (p *Parser) parsePrefixExpression() *ast.Expr {
	start := p.startOf()
	op := prefixOps[p.curToken.Type]
	p.nextToken()
	if op == ast.OpRef && p.curTokenIs(lexer.MUT) {
		p.nextToken()
	}
	operand := p.parseExpression(PREFIX)
	if operand == nil {
		return nil
	}
	return p.finish(&ast.Unary{Op: op, Operand: operand}, start)
}

func (p *Parser) parseInfixExpression(left *ast.Expr) *ast.Expr {
	opTok := p.curToken
	op := binaryOps[opTok.Type]
	precedence := p.curPrecedence()
	if op == ast.OpPow {
		precedence-- // right-associative
	}
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	expr := p.finish(&ast.Binary{Left: left, Op: op, Right: right}, left.Span.Start)
	if op.IsComparison() && precedences[p.peekToken.Type] == COMPARE {
		p.addError("PARSE-0014", p.peekToken, nil)
		return nil
	}
	return expr
}

func (p *Parser) parseAssignment(target *ast.Expr) *ast.Expr {
	opTok := p.curToken
	switch target.Kind.(type) {
	case *ast.Identifier, *ast.FieldAccess, *ast.IndexAccess:
	default:
		p.addError("PARSE-0010", opTok, map[string]any{"Target": target.String()})
		return nil
	}

	p.nextToken()
	value := p.parseExpression(ASSIGN_PREC - 1) // right-associative
	if value == nil {
		return nil
	}
	if opTok.Type == lexer.ASSIGN {
		return p.finish(&ast.Assign{Target: target, Value: value}, target.Span.Start)
	}
	return p.finish(&ast.CompoundAssign{Target: target, Op: compoundOps[opTok.Type], Value: value}, target.Span.Start)
}

// parsePipeline lowers `x |> f(a)` to f(x, a) and `x |> f` to f(x).
func (p *Parser) parsePipeline(left *ast.Expr) *ast.Expr {
	p.nextToken()
	stage := p.parseExpression(PIPELINE_PREC)
	if stage == nil {
		return nil
	}
	if call, ok := stage.Kind.(*ast.Call); ok {
		args := append([]*ast.Expr{left}, call.Args...)
		return p.finish(&ast.Call{Func: call.Func, Args: args}, left.Span.Start)
	}
	return p.finish(&ast.Call{Func: stage, Args: []*ast.Expr{left}}, left.Span.Start)
}

func (p *Parser) parseRange(left *ast.Expr) *ast.Expr {
	inclusive := p.curTokenIs(lexer.DOTDOTEQ)
	var end *ast.Expr
	if p.canStartExpression(p.peekToken) {
		p.nextToken()
		if end = p.parseExpression(RANGE_PREC); end == nil {
			return nil
		}
	}
	return p.finish(&ast.Range{Start: left, End: end, Inclusive: inclusive}, left.Span.Start)
}

func (p *Parser) parsePrefixRange() *ast.Expr {
	start := p.startOf()
	inclusive := p.curTokenIs(lexer.DOTDOTEQ)
	var end *ast.Expr
	if p.canStartExpression(p.peekToken) {
		p.nextToken()
		if end = p.parseExpression(RANGE_PREC); end == nil {
			return nil
		}
	}
	return p.finish(&ast.Range{End: end, Inclusive: inclusive}, start)
}

func (p *Parser) parseSpread() *ast.Expr {
	start := p.startOf()
	p.nextToken()
	inner := p.parseExpression(PREFIX)
	if inner == nil {
		return nil
	}
	return p.finish(&ast.Spread{Expr: inner}, start)
}

func (p *Parser) parseTypeCast(left *ast.Expr) *ast.Expr {
	p.nextToken()
	target := p.parseType()
	if target == "" {
		return nil
	}
	return p.finish(&ast.TypeCast{Expr: left, TargetType: target}, left.Span.Start)
}

func (p *Parser) parseCallExpression(fn *ast.Expr) *ast.Expr {
	args := p.parseExpressionList(lexer.RPAREN)
	if args == nil && p.panicking {
		return nil
	}
	return p.finish(&ast.Call{Func: fn, Args: args}, fn.Span.Start)
}

// parseExpressionList parses comma-separated expressions with curToken on
// the opener, allowing a trailing comma. It leaves curToken on end.
func (p *Parser) parseExpressionList(end lexer.TokenType) []*ast.Expr {
	list := []*ast.Expr{}

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	item := p.parseNested(LOWEST)
	if item == nil {
		return nil
	}
	list = append(list, item)

	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		if p.peekTokenIs(end) {
			break
		}
		p.nextToken()
		item := p.parseNested(LOWEST)
		if item == nil {
			return nil
		}
		list = append(list, item)
	}

	if !p.expectPeek(end) {
		return nil
	}

	return list
}

func (p *Parser) parseIndexOrSliceExpression(left *ast.Expr) *ast.Expr {
	p.nextToken()
	index := p.parseNested(LOWEST)
	if index == nil {
		return nil
	}
	if !p.expectPeek(lexer.RBRACKET) {
		return nil
	}
	if r, ok := index.Kind.(*ast.Range); ok {
		return p.finish(&ast.Slice{Object: left, Start: r.Start, End: r.End, Inclusive: r.Inclusive}, left.Span.Start)
	}
	return p.finish(&ast.IndexAccess{Object: left, Index: index}, left.Span.Start)
}

// parseDotExpression handles field access, method calls, tuple indexes and
// .await, plus their ?. optional forms.
func (p *Parser) parseDotExpression(left *ast.Expr) *ast.Expr {
	optional := p.curTokenIs(lexer.SAFE_DOT)
	start := left.Span.Start
	p.nextToken()

	switch p.curToken.Type {
	case lexer.AWAIT:
		return p.finish(&ast.Await{Expr: left}, start)
	case lexer.INT:
		return p.fieldAccess(left, p.curToken.Literal, optional, start)
	case lexer.FLOAT:
		// t.0.1 lexes as t . 0.1
		parts := strings.SplitN(p.curToken.Literal, ".", 2)
		inner := p.fieldAccess(left, parts[0], optional, start)
		return p.fieldAccess(inner, parts[1], false, start)
	case lexer.IDENT:
	default:
		if !p.curToken.IsKeyword() {
			p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "a field or method name", "Got": tokenText(p.curToken)})
			return nil
		}
	}

	name := p.interner.Intern(p.curToken.Literal)
	if p.peekTokenIs(lexer.DOUBLE_COLON) && p.peekAhead(1).Type == lexer.LT {
		p.nextToken()
		p.nextToken()
		p.skipGenericArgs()
	}
	if !p.peekTokenIs(lexer.LPAREN) {
		return p.fieldAccess(left, name, optional, start)
	}

	p.nextToken()
	args := p.parseExpressionList(lexer.RPAREN)
	if args == nil && p.panicking {
		return nil
	}
	if optional {
		return p.finish(&ast.OptionalMethodCall{Receiver: left, Method: name, Args: args}, start)
	}
	if op, ok := dataFrameMethods[name]; ok && (op != ast.DFJoin || len(args) == 2) {
		return p.finish(&ast.DataFrameOp{Source: left, Op: op, Method: name, Args: args}, start)
	}
	return p.finish(&ast.MethodCall{Receiver: left, Method: name, Args: args}, start)
}

func (p *Parser) fieldAccess(object *ast.Expr, field string, optional bool, start int) *ast.Expr {
	if optional {
		return p.finish(&ast.OptionalFieldAccess{Object: object, Field: field}, start)
	}
	return p.finish(&ast.FieldAccess{Object: object, Field: field}, start)
}

func (p *Parser) parseTryOperator(left *ast.Expr) *ast.Expr {
	return p.finish(&ast.Try{Expr: left}, left.Span.Start)
}

// parseGroupedExpression handles (), (e), (e,) and (a, b, ...).
func (p *Parser) parseGroupedExpression() *ast.Expr {
	start := p.startOf()
	if p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		return p.finish(&ast.Literal{Kind: ast.LitUnit}, start)
	}

	p.nextToken()
	first := p.parseNested(LOWEST)
	if first == nil {
		return nil
	}
	if p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		return first
	}
	if !p.expectPeek(lexer.COMMA) {
		return nil
	}

	elements := []*ast.Expr{first}
	for !p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		item := p.parseNested(LOWEST)
		if item == nil {
			return nil
		}
		elements = append(elements, item)
		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return p.finish(&ast.Tuple{Elements: elements}, start)
}

func (p *Parser) parseListLiteral() *ast.Expr {
	start := p.startOf()
	elements := p.parseExpressionList(lexer.RBRACKET)
	if elements == nil && p.panicking {
		return nil
	}
	return p.finish(&ast.List{Elements: elements}, start)
}

// parseBraceExpression decides between an object literal and a block.
func (p *Parser) parseBraceExpression() *ast.Expr {
	start := p.startOf()
	first, second := p.peekToken, p.peekAhead(1)
	isObject := first.Type == lexer.ELLIPSIS ||
		((first.Type == lexer.IDENT || first.Type == lexer.STRING) && second.Type == lexer.COLON) ||
		(first.Type == lexer.IDENT && second.Type == lexer.COMMA)
	if !isObject {
		return p.parseBlockExpression()
	}
	fields := p.parseObjectFields()
	if fields == nil && p.panicking {
		return nil
	}
	return p.finish(&ast.Object{Fields: fields}, start)
}

// parseBlockExpression parses `{ ... }` with curToken on the opening brace
// and leaves curToken on the closing brace.
func (p *Parser) parseBlockExpression() *ast.Expr {
	start := p.startOf()
	saved := p.noStructLiteral
	p.noStructLiteral = false
	defer func() { p.noStructLiteral = saved }()

	p.nextToken()
	exprs := p.parseSequence(true)
	if !p.curTokenIs(lexer.RBRACE) {
		p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "'}'", "Got": tokenText(p.curToken)})
		return nil
	}
	if exprs == nil {
		exprs = []*ast.Expr{}
	}
	return p.finish(&ast.Block{Exprs: exprs}, start)
}

// parseLambda handles |a, b| body and || body.
func (p *Parser) parseLambda() *ast.Expr {
	start := p.startOf()
	var params []ast.Param
	if p.curTokenIs(lexer.PIPE) {
		var ok bool
		if params, ok = p.parseParams(lexer.PIPE); !ok {
			return nil
		}
	}
	if p.peekTokenIs(lexer.ARROW) {
		p.nextToken()
		p.nextToken()
		p.parseType()
	}
	p.nextToken()
	body := p.parseNested(LOWEST)
	if body == nil {
		return nil
	}
	return p.finish(&ast.Lambda{Params: params, Body: body}, start)
}

func (p *Parser) parseAttributed() *ast.Expr {
	var attrs []ast.Attribute
	for p.curTokenIs(lexer.HASH) {
		if !p.expectPeek(lexer.LBRACKET) {
			return nil
		}
		name, ok := p.expectPeekIdent()
		if !ok {
			return nil
		}
		attr := ast.Attribute{Name: name}
		if p.peekTokenIs(lexer.LPAREN) {
			p.nextToken()
			var arg strings.Builder
			depth := 1
			for depth > 0 {
				p.nextToken()
				switch p.curToken.Type {
				case lexer.EOF:
					p.peekError(lexer.RPAREN)
					return nil
				case lexer.LPAREN:
					depth++
				case lexer.RPAREN:
					depth--
				}
				if depth == 1 && p.curTokenIs(lexer.COMMA) {
					attr.Args = append(attr.Args, arg.String())
					arg.Reset()
					continue
				}
				if depth > 0 {
					arg.WriteString(p.curToken.Literal)
				}
			}
			if arg.Len() > 0 {
				attr.Args = append(attr.Args, arg.String())
			}
		}
		if !p.expectPeek(lexer.RBRACKET) {
			return nil
		}
		attrs = append(attrs, attr)
		p.nextToken()
	}

	item := p.parseExpression(LOWEST)
	if item == nil {
		return nil
	}
	item.Attributes = append(attrs, item.Attributes...)
	return item
}

// skipGenericArgs skips a `<...>` argument list with curToken on `<`,
// leaving curToken on the closing `>`.
func (p *Parser) skipGenericArgs() {
	depth := 0
	for {
		switch p.curToken.Type {
		case lexer.LT:
			depth++
		case lexer.GT:
			depth--
		case lexer.SHR:
			depth -= 2
		case lexer.EOF:
			return
		}
		if depth <= 0 {
			return
		}
		p.nextToken()
	}
}

var primitiveTypes = map[string]bool{
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true, "isize": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true, "usize": true,
	"f32": true, "f64": true, "bool": true, "char": true, "str": true, "String": true,
	"int": true, "float": true, "string": true,
}

// parseType reads a type annotation starting at curToken and returns its
// normalized text, leaving curToken on the last token of the type.
func (p *Parser) parseType() string {
	var sb strings.Builder
	depth := 0
	base := ""
	for {
		tok := p.curToken
		switch tok.Type {
		case lexer.EOF:
			if sb.Len() == 0 {
				p.addError("PARSE-0001", tok, map[string]any{"Expected": "a type", "Got": "end of input"})
			}
			return sb.String()
		case lexer.LT, lexer.LPAREN, lexer.LBRACKET:
			depth++
		case lexer.GT, lexer.RPAREN, lexer.RBRACKET:
			depth--
		case lexer.SHR:
			depth -= 2
		case lexer.IDENT:
			if base == "" {
				base = tok.Literal
			}
		}
		sb.WriteString(typeTokenText(tok))

		if depth > 0 {
			if p.peekTokenIs(lexer.EOF) {
				return sb.String()
			}
			p.nextToken()
			continue
		}
		if !p.typeContinues(tok, base, sb.String()) {
			return sb.String()
		}
		p.nextToken()
	}
}

func (p *Parser) typeContinues(tok lexer.Token, base, sofar string) bool {
	switch tok.Type {
	case lexer.AMPERSAND, lexer.DOUBLE_COLON, lexer.ARROW, lexer.MUT, lexer.IMPL, lexer.FN:
		return true
	case lexer.IDENT:
		if tok.Literal == "dyn" {
			return true
		}
	case lexer.RPAREN:
		return strings.HasPrefix(sofar, "fn(") && p.peekTokenIs(lexer.ARROW)
	}
	switch p.peekToken.Type {
	case lexer.DOUBLE_COLON:
		return tok.Type == lexer.IDENT
	case lexer.LT:
		return tok.Type == lexer.IDENT && !primitiveTypes[base]
	case lexer.LPAREN:
		return tok.Type == lexer.FN
	}
	return false
}

func typeTokenText(tok lexer.Token) string {
	switch tok.Type {
	case lexer.COMMA:
		return ", "
	case lexer.ARROW:
		return " -> "
	case lexer.MUT, lexer.IMPL:
		return tok.Literal + " "
	case lexer.SEMICOLON:
		return "; "
	case lexer.IDENT:
		if tok.Literal == "dyn" {
			return "dyn "
		}
	}
	if tok.Literal != "" {
		return tok.Literal
	}
	return tok.Type.String()
}
