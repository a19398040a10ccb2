package parser

import (
	"strconv"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/lexer"
)

// parseLetExpression parses
//
//	let [mut] pattern [: Type] = value [else { ... }] [in body]
//
// and `const NAME = value`.
func (p *Parser) parseLetExpression() *ast.Expr {
	start := p.startOf()
	p.nextToken()

	let := &ast.Let{}
	if p.curTokenIs(lexer.MUT) {
		let.IsMutable = true
		p.nextToken()
	}

	pattern := p.parsePattern()
	if pattern == nil {
		return nil
	}
	if ip, ok := pattern.(*ast.IdentifierPattern); ok {
		let.Name = ip.Name
		let.IsMutable = let.IsMutable || ip.IsMutable
	} else {
		let.Pattern = pattern
	}

	if p.peekTokenIs(lexer.COLON) {
		p.nextToken()
		p.nextToken()
		if let.TypeAnnotation = p.parseType(); let.TypeAnnotation == "" {
			return nil
		}
	}

	if !p.expectPeek(lexer.ASSIGN) {
		return nil
	}
	p.nextToken()
	if let.Value = p.parseExpression(LOWEST); let.Value == nil {
		return nil
	}

	if p.peekTokenIs(lexer.ELSE) {
		p.nextToken()
		if !p.expectPeek(lexer.LBRACE) {
			return nil
		}
		if let.ElseBlock = p.parseBlockExpression(); let.ElseBlock == nil {
			return nil
		}
	}

	if p.peekTokenIs(lexer.IN) {
		p.nextToken()
		p.nextToken()
		if let.Body = p.parseExpression(LOWEST); let.Body == nil {
			return nil
		}
	}

	return p.finish(let, start)
}

// parseIfExpression parses if/else chains and desugars `if let` into a match.
func (p *Parser) parseIfExpression() *ast.Expr {
	start := p.startOf()

	if p.peekTokenIs(lexer.LET) {
		return p.parseIfLet(start)
	}

	p.nextToken()
	condition := p.parseCondition()
	if condition == nil {
		return nil
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	then := p.parseBlockExpression()
	if then == nil {
		return nil
	}

	expr := &ast.If{Condition: condition, ThenBranch: then}
	if p.peekTokenIs(lexer.ELSE) {
		if expr.ElseBranch = p.parseElse(); expr.ElseBranch == nil {
			return nil
		}
	}
	return p.finish(expr, start)
}

func (p *Parser) parseElse() *ast.Expr {
	p.nextToken() // else
	if p.peekTokenIs(lexer.IF) {
		p.nextToken()
		return p.parseIfExpression()
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	return p.parseBlockExpression()
}

func (p *Parser) parseIfLet(start int) *ast.Expr {
	p.nextToken() // let
	p.nextToken()
	pattern := p.parsePattern()
	if pattern == nil {
		return nil
	}
	if !p.expectPeek(lexer.ASSIGN) {
		return nil
	}
	p.nextToken()
	scrutinee := p.parseCondition()
	if scrutinee == nil {
		return nil
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	then := p.parseBlockExpression()
	if then == nil {
		return nil
	}

	fallback := ast.Unit(then.Span)
	if p.peekTokenIs(lexer.ELSE) {
		if fallback = p.parseElse(); fallback == nil {
			return nil
		}
	}
	arms := []ast.MatchArm{
		{Pattern: pattern, Body: then, Span: then.Span},
		{Pattern: ast.WildcardPattern{}, Body: fallback, Span: fallback.Span},
	}
	return p.finish(&ast.Match{Scrutinee: scrutinee, Arms: arms}, start)
}

func (p *Parser) parseMatchExpression() *ast.Expr {
	start := p.startOf()
	p.nextToken()
	scrutinee := p.parseCondition()
	if scrutinee == nil {
		return nil
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	p.nextToken()

	match := &ast.Match{Scrutinee: scrutinee}
	for !p.curTokenIs(lexer.RBRACE) {
		if p.curTokenIs(lexer.EOF) {
			p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "'}'", "Got": "end of input"})
			return nil
		}
		armStart := p.startOf()
		pattern := p.parsePattern()
		if pattern == nil {
			return nil
		}

		var guard *ast.Expr
		if p.peekTokenIs(lexer.IF) {
			p.nextToken()
			p.nextToken()
			if guard = p.parseNested(LOWEST); guard == nil {
				return nil
			}
		}
		if !p.expectPeek(lexer.FAT_ARROW) {
			return nil
		}
		p.nextToken()
		body := p.parseNested(LOWEST)
		if body == nil {
			return nil
		}
		match.Arms = append(match.Arms, ast.MatchArm{
			Pattern: pattern,
			Guard:   guard,
			Body:    body,
			Span:    ast.Span{Start: armStart, End: body.Span.End},
		})

		p.nextToken()
		if p.curTokenIs(lexer.COMMA) {
			p.nextToken()
		}
	}
	return p.finish(match, start)
}

func (p *Parser) parseWhileExpression() *ast.Expr {
	start := p.startOf()
	p.nextToken()
	condition := p.parseCondition()
	if condition == nil {
		return nil
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	body := p.parseBlockExpression()
	if body == nil {
		return nil
	}
	return p.finish(&ast.While{Condition: condition, Body: body}, start)
}

func (p *Parser) parseForExpression() *ast.Expr {
	start := p.startOf()
	p.nextToken()
	pattern := p.parsePattern()
	if pattern == nil {
		return nil
	}
	if !p.expectPeek(lexer.IN) {
		return nil
	}
	p.nextToken()
	iter := p.parseCondition()
	if iter == nil {
		return nil
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	body := p.parseBlockExpression()
	if body == nil {
		return nil
	}

	loop := &ast.For{Iter: iter, Body: body}
	if ip, ok := pattern.(*ast.IdentifierPattern); ok {
		loop.Var = ip.Name
	} else {
		loop.Pattern = pattern
	}
	return p.finish(loop, start)
}

func (p *Parser) parseLoopExpression() *ast.Expr {
	start := p.startOf()
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	body := p.parseBlockExpression()
	if body == nil {
		return nil
	}
	return p.finish(&ast.Loop{Body: body}, start)
}

// parseLabeledLoop parses 'label: while/for/loop.
func (p *Parser) parseLabeledLoop() *ast.Expr {
	start := p.startOf()
	label := p.interner.Intern(p.curToken.Literal)
	if !p.expectPeek(lexer.COLON) {
		return nil
	}
	p.nextToken()

	var loop *ast.Expr
	switch p.curToken.Type {
	case lexer.WHILE:
		loop = p.parseWhileExpression()
	case lexer.FOR:
		loop = p.parseForExpression()
	case lexer.LOOP:
		loop = p.parseLoopExpression()
	default:
		p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "a loop after label", "Got": tokenText(p.curToken)})
		return nil
	}
	if loop == nil {
		return nil
	}

	switch k := loop.Kind.(type) {
	case *ast.While:
		k.Label = label
	case *ast.For:
		k.Label = label
	case *ast.Loop:
		k.Label = label
	}
	loop.Span.Start = start
	return loop
}

// parseFunction parses `fn name<T>(params) -> Type { body }`. Without a
// name, `fn(params) body` is an anonymous function and yields a Lambda.
func (p *Parser) parseFunction() *ast.Expr {
	start := p.startOf()

	if p.peekTokenIs(lexer.LPAREN) {
		p.nextToken()
		params, ok := p.parseParams(lexer.RPAREN)
		if !ok {
			return nil
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

	name, ok := p.expectPeekIdent()
	if !ok {
		return nil
	}
	fn := &ast.Function{Name: name}

	if p.peekTokenIs(lexer.LT) {
		p.nextToken()
		fn.TypeParams = p.parseTypeParams()
	}

	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	if fn.Params, ok = p.parseParams(lexer.RPAREN); !ok {
		return nil
	}

	if p.peekTokenIs(lexer.ARROW) {
		p.nextToken()
		p.nextToken()
		if fn.ReturnType = p.parseType(); fn.ReturnType == "" {
			return nil
		}
	}

	switch {
	case p.peekTokenIs(lexer.SEMICOLON):
		// declaration only, as in trait bodies
	case p.peekTokenIs(lexer.ASSIGN):
		p.nextToken()
		p.nextToken()
		if fn.Body = p.parseExpression(LOWEST); fn.Body == nil {
			return nil
		}
	default:
		if !p.expectPeek(lexer.LBRACE) {
			return nil
		}
		if fn.Body = p.parseBlockExpression(); fn.Body == nil {
			return nil
		}
	}

	return p.finish(fn, start)
}

// parseTypeParams reads `<A, B: Bound>` with curToken on `<` and returns the
// parameter names.
func (p *Parser) parseTypeParams() []string {
	var names []string
	depth := 0
	expectName := true
	for {
		switch p.curToken.Type {
		case lexer.LT:
			depth++
			expectName = depth == 1
		case lexer.GT:
			depth--
		case lexer.SHR:
			depth -= 2
		case lexer.COMMA:
			expectName = depth == 1
		case lexer.IDENT:
			if expectName && depth == 1 {
				names = append(names, p.interner.Intern(p.curToken.Literal))
			}
			expectName = false
		case lexer.EOF:
			p.peekError(lexer.GT)
			return names
		default:
			expectName = false
		}
		if depth <= 0 {
			return names
		}
		p.nextToken()
	}
}

// parseParams parses a parameter list with curToken on the opener and leaves
// curToken on end.
func (p *Parser) parseParams(end lexer.TokenType) ([]ast.Param, bool) {
	params := []ast.Param{}
	if p.peekTokenIs(end) {
		p.nextToken()
		return params, true
	}

	for {
		p.nextToken()
		param := ast.Param{}

		// self receivers: self, &self, &mut self, mut self
		if p.curTokenIs(lexer.AMPERSAND) {
			p.nextToken()
		}
		if p.curTokenIs(lexer.MUT) {
			param.IsMutable = true
			p.nextToken()
		}

		pattern := p.parsePrimaryPattern()
		if pattern == nil {
			return nil, false
		}
		if ip, ok := pattern.(*ast.IdentifierPattern); ok {
			param.Name = ip.Name
			param.IsMutable = param.IsMutable || ip.IsMutable
		} else if _, ok := pattern.(ast.WildcardPattern); ok {
			param.Name = "_"
		} else {
			param.Pattern = pattern
		}

		if p.peekTokenIs(lexer.COLON) {
			p.nextToken()
			p.nextToken()
			if param.Type = p.parseType(); param.Type == "" {
				return nil, false
			}
		}
		if p.peekTokenIs(lexer.ASSIGN) {
			p.nextToken()
			p.nextToken()
			if param.Default = p.parseExpression(BIT_OR); param.Default == nil {
				return nil, false
			}
		}
		params = append(params, param)

		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken()
		if p.peekTokenIs(end) {
			break
		}
	}

	if !p.expectPeek(end) {
		return nil, false
	}
	return params, true
}

// parsePublic parses `pub [(crate)] item` and marks the item public.
func (p *Parser) parsePublic() *ast.Expr {
	start := p.startOf()
	if p.peekTokenIs(lexer.LPAREN) {
		p.nextToken()
		for !p.curTokenIs(lexer.RPAREN) && !p.curTokenIs(lexer.EOF) {
			p.nextToken()
		}
	}
	p.nextToken()
	item := p.parseExpression(LOWEST)
	if item == nil {
		return nil
	}
	switch k := item.Kind.(type) {
	case *ast.Function:
		k.IsPub = true
	case *ast.StructDef:
		k.IsPub = true
	case *ast.EnumDef:
		k.IsPub = true
	case *ast.TraitDef:
		k.IsPub = true
	}
	item.Span.Start = start
	return item
}

// parseAsync parses `async fn ...` and `async { ... }`.
func (p *Parser) parseAsync() *ast.Expr {
	start := p.startOf()
	p.nextToken()
	item := p.parseExpression(LOWEST)
	if item == nil {
		return nil
	}
	if fn, ok := item.Kind.(*ast.Function); ok {
		fn.IsAsync = true
	}
	item.Span.Start = start
	return item
}

func (p *Parser) parseAwaitPrefix() *ast.Expr {
	start := p.startOf()
	p.nextToken()
	inner := p.parseExpression(PREFIX)
	if inner == nil {
		return nil
	}
	return p.finish(&ast.Await{Expr: inner}, start)
}

func (p *Parser) parseReturn() *ast.Expr {
	start := p.startOf()
	ret := &ast.Return{}
	if p.canStartExpression(p.peekToken) {
		p.nextToken()
		if ret.Value = p.parseExpression(LOWEST); ret.Value == nil {
			return nil
		}
	}
	return p.finish(ret, start)
}

func (p *Parser) parseBreak() *ast.Expr {
	start := p.startOf()
	brk := &ast.Break{}
	if p.peekTokenIs(lexer.LABEL) {
		p.nextToken()
		brk.Label = p.interner.Intern(p.curToken.Literal)
	}
	if p.canStartExpression(p.peekToken) {
		p.nextToken()
		if brk.Value = p.parseExpression(LOWEST); brk.Value == nil {
			return nil
		}
	}
	return p.finish(brk, start)
}

func (p *Parser) parseContinue() *ast.Expr {
	start := p.startOf()
	cont := &ast.Continue{}
	if p.peekTokenIs(lexer.LABEL) {
		p.nextToken()
		cont.Label = p.interner.Intern(p.curToken.Literal)
	}
	return p.finish(cont, start)
}

// parseTryCatch parses try { } catch (e) { } ... finally { }.
func (p *Parser) parseTryCatch() *ast.Expr {
	start := p.startOf()
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	body := p.parseBlockExpression()
	if body == nil {
		return nil
	}

	tc := &ast.TryCatch{Try: body}
	for p.peekTokenIs(lexer.CATCH) {
		p.nextToken()
		clause := ast.CatchClause{}
		switch {
		case p.peekTokenIs(lexer.LPAREN):
			p.nextToken()
			p.nextToken()
			if clause.Pattern = p.parsePattern(); clause.Pattern == nil {
				return nil
			}
			if !p.expectPeek(lexer.RPAREN) {
				return nil
			}
		case !p.peekTokenIs(lexer.LBRACE):
			p.nextToken()
			if clause.Pattern = p.parsePattern(); clause.Pattern == nil {
				return nil
			}
		}
		if !p.expectPeek(lexer.LBRACE) {
			return nil
		}
		if clause.Body = p.parseBlockExpression(); clause.Body == nil {
			return nil
		}
		tc.Catches = append(tc.Catches, clause)
	}

	if p.peekTokenIs(lexer.FINALLY) {
		p.nextToken()
		if !p.expectPeek(lexer.LBRACE) {
			return nil
		}
		if tc.Finally = p.parseBlockExpression(); tc.Finally == nil {
			return nil
		}
	}

	if len(tc.Catches) == 0 && tc.Finally == nil {
		p.peekError(lexer.CATCH)
		return nil
	}
	return p.finish(tc, start)
}

func (p *Parser) parseThrow() *ast.Expr {
	start := p.startOf()
	p.nextToken()
	value := p.parseExpression(LOWEST)
	if value == nil {
		return nil
	}
	return p.finish(&ast.Throw{Expr: value}, start)
}

// parseStruct parses named, tuple and unit struct declarations.
func (p *Parser) parseStruct() *ast.Expr {
	start := p.startOf()
	name, ok := p.expectPeekIdent()
	if !ok {
		return nil
	}
	def := &ast.StructDef{Name: name}
	if p.peekTokenIs(lexer.LT) {
		p.nextToken()
		def.TypeParams = p.parseTypeParams()
	}

	switch {
	case p.peekTokenIs(lexer.LPAREN):
		p.nextToken()
		for i := 0; !p.peekTokenIs(lexer.RPAREN); i++ {
			p.nextToken()
			field := ast.StructField{Name: strconv.Itoa(i)}
			if p.curTokenIs(lexer.PUB) {
				field.IsPub = true
				p.nextToken()
			}
			if field.Type = p.parseType(); field.Type == "" {
				return nil
			}
			def.Fields = append(def.Fields, field)
			if !p.peekTokenIs(lexer.COMMA) {
				break
			}
			p.nextToken()
		}
		if !p.expectPeek(lexer.RPAREN) {
			return nil
		}
	case p.peekTokenIs(lexer.LBRACE):
		p.nextToken()
		fields, ok := p.parseFieldDecls()
		if !ok {
			return nil
		}
		def.Fields = fields
	}
	return p.finish(def, start)
}

// parseFieldDecls parses `[pub] name: Type [= default]` entries with
// curToken on `{`, leaving curToken on `}`.
func (p *Parser) parseFieldDecls() ([]ast.StructField, bool) {
	var fields []ast.StructField
	for !p.peekTokenIs(lexer.RBRACE) {
		p.nextToken()
		field := ast.StructField{}
		if p.curTokenIs(lexer.PUB) {
			field.IsPub = true
			p.nextToken()
		}
		if !p.curTokenIs(lexer.IDENT) {
			p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "a field name", "Got": tokenText(p.curToken)})
			return nil, false
		}
		field.Name = p.interner.Intern(p.curToken.Literal)
		if !p.expectPeek(lexer.COLON) {
			return nil, false
		}
		p.nextToken()
		if field.Type = p.parseType(); field.Type == "" {
			return nil, false
		}
		if p.peekTokenIs(lexer.ASSIGN) {
			p.nextToken()
			p.nextToken()
			if field.Default = p.parseNested(LOWEST); field.Default == nil {
				return nil, false
			}
		}
		fields = append(fields, field)
		if !p.peekTokenIs(lexer.COMMA) && !p.peekTokenIs(lexer.SEMICOLON) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(lexer.RBRACE) {
		return nil, false
	}
	return fields, true
}

func (p *Parser) parseEnum() *ast.Expr {
	start := p.startOf()
	name, ok := p.expectPeekIdent()
	if !ok {
		return nil
	}
	def := &ast.EnumDef{Name: name}
	if p.peekTokenIs(lexer.LT) {
		p.nextToken()
		def.TypeParams = p.parseTypeParams()
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}

	for !p.peekTokenIs(lexer.RBRACE) {
		variantName, ok := p.expectPeekIdent()
		if !ok {
			return nil
		}
		variant := ast.EnumVariantDef{Name: variantName}

		switch {
		case p.peekTokenIs(lexer.LPAREN):
			p.nextToken()
			for !p.peekTokenIs(lexer.RPAREN) {
				p.nextToken()
				typ := p.parseType()
				if typ == "" {
					return nil
				}
				variant.Fields = append(variant.Fields, typ)
				if !p.peekTokenIs(lexer.COMMA) {
					break
				}
				p.nextToken()
			}
			if !p.expectPeek(lexer.RPAREN) {
				return nil
			}
		case p.peekTokenIs(lexer.LBRACE):
			p.nextToken()
			fields, ok := p.parseFieldDecls()
			if !ok {
				return nil
			}
			for _, f := range fields {
				variant.Fields = append(variant.Fields, f.Type)
			}
		case p.peekTokenIs(lexer.ASSIGN):
			p.nextToken()
			negative := false
			if p.peekTokenIs(lexer.MINUS) {
				p.nextToken()
				negative = true
			}
			if !p.expectPeek(lexer.INT) {
				return nil
			}
			value, err := strconv.ParseInt(p.curToken.Literal, 0, 64)
			if err != nil {
				p.addError("PARSE-0005", p.curToken, map[string]any{"Literal": p.curToken.Literal})
				return nil
			}
			if negative {
				value = -value
			}
			variant.Discriminant = &value
		}

		def.Variants = append(def.Variants, variant)
		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(lexer.RBRACE) {
		return nil
	}
	return p.finish(def, start)
}

func (p *Parser) parseTrait() *ast.Expr {
	start := p.startOf()
	name, ok := p.expectPeekIdent()
	if !ok {
		return nil
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	methods, ok := p.parseItems()
	if !ok {
		return nil
	}
	return p.finish(&ast.TraitDef{Name: name, Methods: methods}, start)
}

// parseImpl parses `impl Type { ... }` and `impl Trait for Type { ... }`.
func (p *Parser) parseImpl() *ast.Expr {
	start := p.startOf()
	if p.peekTokenIs(lexer.LT) {
		p.nextToken()
		p.skipGenericArgs()
	}
	p.nextToken()
	first := p.parseType()
	if first == "" {
		return nil
	}
	impl := &ast.ImplBlock{TypeName: first}
	if p.peekTokenIs(lexer.FOR) {
		p.nextToken()
		p.nextToken()
		impl.TraitName = first
		if impl.TypeName = p.parseType(); impl.TypeName == "" {
			return nil
		}
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	methods, ok := p.parseItems()
	if !ok {
		return nil
	}
	impl.Methods = methods
	return p.finish(impl, start)
}

// parseItems parses the items of a trait or impl body with curToken on `{`,
// leaving curToken on `}`.
func (p *Parser) parseItems() ([]*ast.Expr, bool) {
	var items []*ast.Expr
	p.nextToken()
	for !p.curTokenIs(lexer.RBRACE) {
		switch p.curToken.Type {
		case lexer.EOF:
			p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "'}'", "Got": "end of input"})
			return nil, false
		case lexer.SEMICOLON:
			p.nextToken()
			continue
		}
		item := p.parseStatement()
		if item == nil {
			return nil, false
		}
		items = append(items, item)
		p.nextToken()
	}
	return items, true
}

// parseUse parses `use a::b::c`, `use a::b::{c, d as e}` and `use a::*`.
func (p *Parser) parseUse() *ast.Expr {
	start := p.startOf()
	first, ok := p.expectPeekIdent()
	if !ok {
		return nil
	}
	segments := []string{first}
	imp := &ast.Import{Kind: ast.ImportNamed}

	for p.peekTokenIs(lexer.DOUBLE_COLON) {
		p.nextToken()
		p.nextToken()
		switch p.curToken.Type {
		case lexer.IDENT:
			segments = append(segments, p.curToken.Literal)
			continue
		case lexer.ASTERISK:
			imp.Kind = ast.ImportAll
		case lexer.LBRACE:
			items, ok := p.parseImportItems()
			if !ok {
				return nil
			}
			imp.Items = items
		default:
			p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "a path segment", "Got": tokenText(p.curToken)})
			return nil
		}
		break
	}

	if imp.Kind == ast.ImportNamed && imp.Items == nil && len(segments) > 1 {
		// use a::b::c imports c from a::b
		last := segments[len(segments)-1]
		segments = segments[:len(segments)-1]
		item := ast.ImportItem{Name: p.interner.Intern(last)}
		if p.peekTokenIs(lexer.AS) {
			p.nextToken()
			alias, ok := p.expectPeekIdent()
			if !ok {
				return nil
			}
			item.Alias = alias
		}
		imp.Items = []ast.ImportItem{item}
	}
	imp.Module = p.interner.Intern(joinPath(segments))
	return p.finish(imp, start)
}

// parseImportItems parses `{a, b as c}` with curToken on `{`.
func (p *Parser) parseImportItems() ([]ast.ImportItem, bool) {
	items := []ast.ImportItem{}
	for !p.peekTokenIs(lexer.RBRACE) {
		name, ok := p.expectPeekIdent()
		if !ok {
			return nil, false
		}
		item := ast.ImportItem{Name: name}
		if p.peekTokenIs(lexer.AS) {
			p.nextToken()
			if item.Alias, ok = p.expectPeekIdent(); !ok {
				return nil, false
			}
		}
		items = append(items, item)
		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(lexer.RBRACE) {
		return nil, false
	}
	return items, true
}

func joinPath(segments []string) string {
	path := ""
	for i, s := range segments {
		if i > 0 {
			path += "::"
		}
		path += s
	}
	return path
}

// parseImport parses the JavaScript-flavoured and path import forms:
//
//	import std::fs
//	import std::fs::{read, write}
//	import { a, b as c } from "mod"
//	import * as utils from "mod"
//	import name from "mod"
func (p *Parser) parseImport() *ast.Expr {
	start := p.startOf()
	p.nextToken()

	switch p.curToken.Type {
	case lexer.ASTERISK:
		if !p.expectPeek(lexer.AS) {
			return nil
		}
		alias, ok := p.expectPeekIdent()
		if !ok {
			return nil
		}
		module, ok := p.parseFromClause()
		if !ok {
			return nil
		}
		return p.finish(&ast.Import{Kind: ast.ImportAll, Module: module, Alias: alias}, start)

	case lexer.LBRACE:
		items, ok := p.parseImportItems()
		if !ok {
			return nil
		}
		module, ok := p.parseFromClause()
		if !ok {
			return nil
		}
		return p.finish(&ast.Import{Kind: ast.ImportNamed, Module: module, Items: items}, start)

	case lexer.STRING:
		module := p.interner.Intern(p.curToken.Literal)
		return p.finish(&ast.Import{Kind: ast.ImportNamed, Module: module}, start)

	case lexer.IDENT:
		if p.peekToken.Type == lexer.IDENT && p.peekToken.Literal == "from" {
			name := p.interner.Intern(p.curToken.Literal)
			module, ok := p.parseFromClause()
			if !ok {
				return nil
			}
			return p.finish(&ast.Import{Kind: ast.ImportDefault, Module: module, Alias: name}, start)
		}
		segments := []string{p.curToken.Literal}
		imp := &ast.Import{Kind: ast.ImportNamed}
		for p.peekTokenIs(lexer.DOUBLE_COLON) || p.peekTokenIs(lexer.DOT) {
			p.nextToken()
			p.nextToken()
			if p.curTokenIs(lexer.LBRACE) {
				items, ok := p.parseImportItems()
				if !ok {
					return nil
				}
				imp.Items = items
				break
			}
			if !p.curTokenIs(lexer.IDENT) {
				p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "a module name", "Got": tokenText(p.curToken)})
				return nil
			}
			segments = append(segments, p.curToken.Literal)
		}
		imp.Module = p.interner.Intern(joinPath(segments))
		return p.finish(imp, start)
	}

	p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "a module to import", "Got": tokenText(p.curToken)})
	return nil
}

// parseFromClause parses `from "module"` following an import list.
func (p *Parser) parseFromClause() (string, bool) {
	if !p.peekTokenIs(lexer.IDENT) || p.peekToken.Literal != "from" {
		p.addError("PARSE-0001", p.peekToken, map[string]any{"Expected": "'from'", "Got": tokenText(p.peekToken)})
		return "", false
	}
	p.nextToken()
	p.nextToken()
	switch p.curToken.Type {
	case lexer.STRING, lexer.IDENT:
		return p.interner.Intern(p.curToken.Literal), true
	}
	p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "a module name", "Got": tokenText(p.curToken)})
	return "", false
}

// parseExport parses `export item`, `export { a, b }` and
// `export { a } from "mod"`.
func (p *Parser) parseExport() *ast.Expr {
	start := p.startOf()
	if !p.peekTokenIs(lexer.LBRACE) {
		p.nextToken()
		item := p.parseExpression(LOWEST)
		if item == nil {
			return nil
		}
		return p.finish(&ast.Export{Expr: item}, start)
	}

	p.nextToken()
	items, ok := p.parseImportItems()
	if !ok {
		return nil
	}
	export := &ast.Export{}
	for _, it := range items {
		export.Names = append(export.Names, it.Name)
	}
	if p.peekTokenIs(lexer.IDENT) && p.peekToken.Literal == "from" {
		module, ok := p.parseFromClause()
		if !ok {
			return nil
		}
		export.Module = module
	}
	return p.finish(export, start)
}

// parseModule parses `mod name { ... }` and `mod name;`.
func (p *Parser) parseModule() *ast.Expr {
	start := p.startOf()
	name, ok := p.expectPeekIdent()
	if !ok {
		return nil
	}
	mod := &ast.Module{Name: name}
	if p.peekTokenIs(lexer.LBRACE) {
		p.nextToken()
		if mod.Body = p.parseBlockExpression(); mod.Body == nil {
			return nil
		}
	} else {
		mod.Body = p.newExpr(&ast.Block{Exprs: []*ast.Expr{}}, p.curToken.Span)
	}
	return p.finish(mod, start)
}

// parseActor parses `actor Name { field: Type, receive Msg(x) => body }`.
func (p *Parser) parseActor() *ast.Expr {
	start := p.startOf()
	name, ok := p.expectPeekIdent()
	if !ok {
		return nil
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	actor := &ast.ActorDef{Name: name}
	p.nextToken()
	for !p.curTokenIs(lexer.RBRACE) {
		switch p.curToken.Type {
		case lexer.EOF:
			p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "'}'", "Got": "end of input"})
			return nil
		case lexer.COMMA, lexer.SEMICOLON:
		case lexer.RECEIVE:
			arms, ok := p.parseReceiveArms()
			if !ok {
				return nil
			}
			actor.Handlers = append(actor.Handlers, arms...)
		case lexer.IDENT:
			field := ast.StructField{Name: p.interner.Intern(p.curToken.Literal)}
			if !p.expectPeek(lexer.COLON) {
				return nil
			}
			p.nextToken()
			if field.Type = p.parseType(); field.Type == "" {
				return nil
			}
			if p.peekTokenIs(lexer.ASSIGN) {
				p.nextToken()
				p.nextToken()
				if field.Default = p.parseNested(LOWEST); field.Default == nil {
					return nil
				}
			}
			actor.State = append(actor.State, field)
		default:
			p.addError("PARSE-0002", p.curToken, map[string]any{"Token": tokenText(p.curToken)})
			return nil
		}
		p.nextToken()
	}
	return p.finish(actor, start)
}

// parseReceiveArms parses `receive { arms }` or a single `receive pat => body`
// with curToken on `receive`, leaving curToken on the last token.
func (p *Parser) parseReceiveArms() ([]ast.MatchArm, bool) {
	block := p.peekTokenIs(lexer.LBRACE)
	if block {
		p.nextToken()
	}
	var arms []ast.MatchArm
	for {
		if block && p.peekTokenIs(lexer.RBRACE) {
			p.nextToken()
			return arms, true
		}
		p.nextToken()
		armStart := p.startOf()
		pattern := p.parsePattern()
		if pattern == nil {
			return nil, false
		}
		if !p.expectPeek(lexer.FAT_ARROW) {
			return nil, false
		}
		p.nextToken()
		body := p.parseNested(LOWEST)
		if body == nil {
			return nil, false
		}
		arms = append(arms, ast.MatchArm{Pattern: pattern, Body: body, Span: ast.Span{Start: armStart, End: body.Span.End}})
		if !block {
			return arms, true
		}
		if p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
		}
	}
}

func (p *Parser) parseReceive() *ast.Expr {
	start := p.startOf()
	arms, ok := p.parseReceiveArms()
	if !ok {
		return nil
	}
	return p.finish(&ast.Receive{Arms: arms}, start)
}

func (p *Parser) parseSpawn() *ast.Expr {
	start := p.startOf()
	p.nextToken()
	inner := p.parseExpression(LOWEST)
	if inner == nil {
		return nil
	}
	return p.finish(&ast.Spawn{Expr: inner}, start)
}
