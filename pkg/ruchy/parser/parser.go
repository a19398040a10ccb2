// Package parser builds a Ruchy AST from source text.
//
// The grammar is expression-oriented: declarations, loops and bindings are
// all parsed by prefix parselets of a single Pratt parser. Errors are
// accumulated; after each one the parser resynchronizes at the next `;`,
// closing brace or top-level keyword and keeps going, so callers always get a
// best-effort tree.
package parser

import (
	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/lexer"
)

// Precedence levels for operators
const (
	_ int = iota
	LOWEST
	ASSIGN_PREC   // = += -= ...
	NULLISH_PREC  // ??
	LOGIC_OR      // ||
	LOGIC_AND     // &&
	COMPARE       // == != < > <= >=
	PIPELINE_PREC // |>
	RANGE_PREC    // .. ..=
	BIT_OR        // |
	BIT_XOR       // ^
	BIT_AND       // &
	SHIFT         // << >>
	SUM           // + -
	PRODUCT       // * / %
	POWER_PREC    // **
	CAST          // as
	PREFIX        // -X !X ~X
	POSTFIX       // f(x) a[i] a.b a?
)

// precedences maps tokens to their precedence
var precedences = map[lexer.TokenType]int{
	lexer.ASSIGN:     ASSIGN_PREC,
	lexer.PLUS_EQ:    ASSIGN_PREC,
	lexer.MINUS_EQ:   ASSIGN_PREC,
	lexer.STAR_EQ:    ASSIGN_PREC,
	lexer.SLASH_EQ:   ASSIGN_PREC,
	lexer.PERCENT_EQ: ASSIGN_PREC,
	lexer.POWER_EQ:   ASSIGN_PREC,
	lexer.AMP_EQ:     ASSIGN_PREC,
	lexer.PIPE_EQ:    ASSIGN_PREC,
	lexer.CARET_EQ:   ASSIGN_PREC,
	lexer.SHL_EQ:     ASSIGN_PREC,
	lexer.SHR_EQ:     ASSIGN_PREC,
	lexer.NULLISH:    NULLISH_PREC,
	lexer.OR:         LOGIC_OR,
	lexer.AND:        LOGIC_AND,
	lexer.EQ:         COMPARE,
	lexer.NOT_EQ:     COMPARE,
	lexer.LT:         COMPARE,
	lexer.GT:         COMPARE,
	lexer.LTE:        COMPARE,
	lexer.GTE:        COMPARE,
	lexer.PIPELINE:   PIPELINE_PREC,
	lexer.DOTDOT:     RANGE_PREC,
	lexer.DOTDOTEQ:   RANGE_PREC,
	lexer.PIPE:       BIT_OR,
	lexer.CARET:      BIT_XOR,
	lexer.AMPERSAND:  BIT_AND,
	lexer.SHL:        SHIFT,
	lexer.SHR:        SHIFT,
	lexer.PLUS:       SUM,
	lexer.MINUS:      SUM,
	lexer.ASTERISK:   PRODUCT,
	lexer.SLASH:      PRODUCT,
	lexer.PERCENT:    PRODUCT,
	lexer.POWER:      POWER_PREC,
	lexer.AS:         CAST,
	lexer.LPAREN:     POSTFIX,
	lexer.LBRACKET:   POSTFIX,
	lexer.DOT:        POSTFIX,
	lexer.SAFE_DOT:   POSTFIX,
	lexer.QUESTION:   POSTFIX,
}

var binaryOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.PLUS:      ast.OpAdd,
	lexer.MINUS:     ast.OpSub,
	lexer.ASTERISK:  ast.OpMul,
	lexer.SLASH:     ast.OpDiv,
	lexer.PERCENT:   ast.OpMod,
	lexer.POWER:     ast.OpPow,
	lexer.EQ:        ast.OpEq,
	lexer.NOT_EQ:    ast.OpNe,
	lexer.LT:        ast.OpLt,
	lexer.LTE:       ast.OpLe,
	lexer.GT:        ast.OpGt,
	lexer.GTE:       ast.OpGe,
	lexer.AND:       ast.OpAnd,
	lexer.OR:        ast.OpOr,
	lexer.AMPERSAND: ast.OpBitAnd,
	lexer.PIPE:      ast.OpBitOr,
	lexer.CARET:     ast.OpBitXor,
	lexer.SHL:       ast.OpShl,
	lexer.SHR:       ast.OpShr,
	lexer.NULLISH:   ast.OpNullCoalesce,
}

var compoundOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.PLUS_EQ:    ast.OpAdd,
	lexer.MINUS_EQ:   ast.OpSub,
	lexer.STAR_EQ:    ast.OpMul,
	lexer.SLASH_EQ:   ast.OpDiv,
	lexer.PERCENT_EQ: ast.OpMod,
	lexer.POWER_EQ:   ast.OpPow,
	lexer.AMP_EQ:     ast.OpBitAnd,
	lexer.PIPE_EQ:    ast.OpBitOr,
	lexer.CARET_EQ:   ast.OpBitXor,
	lexer.SHL_EQ:     ast.OpShl,
	lexer.SHR_EQ:     ast.OpShr,
}

// syncKeywords start a new top-level item; recovery stops in front of them.
var syncKeywords = map[lexer.TokenType]bool{
	lexer.LET:    true,
	lexer.FN:     true,
	lexer.STRUCT: true,
	lexer.ENUM:   true,
	lexer.TRAIT:  true,
	lexer.IMPL:   true,
	lexer.USE:    true,
	lexer.MOD:    true,
	lexer.IMPORT: true,
	lexer.EXPORT: true,
	lexer.PUB:    true,
	lexer.ACTOR:  true,
	lexer.CONST:  true,
}

// ErrEmpty is reported when the source contains no tokens.
var ErrEmpty = perrors.New("PARSE-0009", nil)

// Parser represents the parser
type Parser struct {
	tokens []lexer.Token
	pos    int // index of peekToken

	errors    []*perrors.RuchyError
	panicking bool // an error was reported and recovery has not run yet

	prevToken lexer.Token
	curToken  lexer.Token
	peekToken lexer.Token

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn

	noStructLiteral bool // set while parsing if/while/for/match heads

	interner *Interner
	nodes    int
}

type (
	prefixParseFn func() *ast.Expr
	infixParseFn  func(*ast.Expr) *ast.Expr
)

// Stats describes the allocations made while parsing.
type Stats struct {
	Nodes           int
	InternedStrings int
	InternedBytes   int
}

// Parse lexes and parses src. The returned expression is the single
// top-level item, or a top-level Block when there are several. A source with
// no tokens yields a nil expression and ErrEmpty.
func Parse(src string) (*ast.Expr, []*perrors.RuchyError) {
	p := New(src)
	if p.curTokenIs(lexer.EOF) {
		return nil, append(p.errors, ErrEmpty)
	}
	program := p.ParseProgram()
	return program, p.Errors()
}

// New creates a new parser instance
func New(src string) *Parser {
	tokens, diags := lexer.Tokenize(src)
	p := newFromTokens(tokens, NewInterner())
	p.errors = append(p.errors, diags...)
	return p
}

func newFromTokens(tokens []lexer.Token, interner *Interner) *Parser {
	p := &Parser{
		tokens:   tokens,
		interner: interner,
	}

	p.prefixParseFns = make(map[lexer.TokenType]prefixParseFn)
	p.registerPrefix(lexer.IDENT, p.parseIdentifier)
	p.registerPrefix(lexer.INT, p.parseIntegerLiteral)
	p.registerPrefix(lexer.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(lexer.STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.BYTE_STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.FSTRING, p.parseInterpolatedString)
	p.registerPrefix(lexer.CHAR, p.parseCharLiteral)
	p.registerPrefix(lexer.TRUE, p.parseBoolean)
	p.registerPrefix(lexer.FALSE, p.parseBoolean)
	p.registerPrefix(lexer.NULL, p.parseNull)
	p.registerPrefix(lexer.MINUS, p.parsePrefixExpression)
	p.registerPrefix(lexer.BANG, p.parsePrefixExpression)
	p.registerPrefix(lexer.TILDE, p.parsePrefixExpression)
	p.registerPrefix(lexer.AMPERSAND, p.parsePrefixExpression)
	p.registerPrefix(lexer.ASTERISK, p.parsePrefixExpression)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(lexer.LBRACKET, p.parseListLiteral)
	p.registerPrefix(lexer.LBRACE, p.parseBraceExpression)
	p.registerPrefix(lexer.PIPE, p.parseLambda)
	p.registerPrefix(lexer.OR, p.parseLambda)
	p.registerPrefix(lexer.DOTDOT, p.parsePrefixRange)
	p.registerPrefix(lexer.DOTDOTEQ, p.parsePrefixRange)
	p.registerPrefix(lexer.ELLIPSIS, p.parseSpread)
	p.registerPrefix(lexer.HASH, p.parseAttributed)
	p.registerPrefix(lexer.LABEL, p.parseLabeledLoop)
	p.registerPrefix(lexer.LET, p.parseLetExpression)
	p.registerPrefix(lexer.CONST, p.parseLetExpression)
	p.registerPrefix(lexer.IF, p.parseIfExpression)
	p.registerPrefix(lexer.MATCH, p.parseMatchExpression)
	p.registerPrefix(lexer.WHILE, p.parseWhileExpression)
	p.registerPrefix(lexer.FOR, p.parseForExpression)
	p.registerPrefix(lexer.LOOP, p.parseLoopExpression)
	p.registerPrefix(lexer.FN, p.parseFunction)
	p.registerPrefix(lexer.PUB, p.parsePublic)
	p.registerPrefix(lexer.ASYNC, p.parseAsync)
	p.registerPrefix(lexer.AWAIT, p.parseAwaitPrefix)
	p.registerPrefix(lexer.RETURN, p.parseReturn)
	p.registerPrefix(lexer.BREAK, p.parseBreak)
	p.registerPrefix(lexer.CONTINUE, p.parseContinue)
	p.registerPrefix(lexer.TRY, p.parseTryCatch)
	p.registerPrefix(lexer.THROW, p.parseThrow)
	p.registerPrefix(lexer.STRUCT, p.parseStruct)
	p.registerPrefix(lexer.ENUM, p.parseEnum)
	p.registerPrefix(lexer.TRAIT, p.parseTrait)
	p.registerPrefix(lexer.IMPL, p.parseImpl)
	p.registerPrefix(lexer.USE, p.parseUse)
	p.registerPrefix(lexer.IMPORT, p.parseImport)
	p.registerPrefix(lexer.EXPORT, p.parseExport)
	p.registerPrefix(lexer.MOD, p.parseModule)
	p.registerPrefix(lexer.ACTOR, p.parseActor)
	p.registerPrefix(lexer.RECEIVE, p.parseReceive)
	p.registerPrefix(lexer.SPAWN, p.parseSpawn)

	p.infixParseFns = make(map[lexer.TokenType]infixParseFn)
	for tt := range binaryOps {
		p.registerInfix(tt, p.parseInfixExpression)
	}
	p.registerInfix(lexer.ASSIGN, p.parseAssignment)
	for tt := range compoundOps {
		p.registerInfix(tt, p.parseAssignment)
	}
	p.registerInfix(lexer.PIPELINE, p.parsePipeline)
	p.registerInfix(lexer.DOTDOT, p.parseRange)
	p.registerInfix(lexer.DOTDOTEQ, p.parseRange)
	p.registerInfix(lexer.AS, p.parseTypeCast)
	p.registerInfix(lexer.LPAREN, p.parseCallExpression)
	p.registerInfix(lexer.LBRACKET, p.parseIndexOrSliceExpression)
	p.registerInfix(lexer.DOT, p.parseDotExpression)
	p.registerInfix(lexer.SAFE_DOT, p.parseDotExpression)
	p.registerInfix(lexer.QUESTION, p.parseTryOperator)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

// Errors returns every diagnostic reported by the lexer and the parser.
func (p *Parser) Errors() []*perrors.RuchyError {
	return p.errors
}

// Stats returns node and interner counters for the parse so far.
func (p *Parser) Stats() Stats {
	return Stats{
		Nodes:           p.nodes,
		InternedStrings: p.interner.Len(),
		InternedBytes:   p.interner.Bytes(),
	}
}

// registerPrefix registers a prefix parse function
func (p *Parser) registerPrefix(tokenType lexer.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

// registerInfix registers an infix parse function
func (p *Parser) registerInfix(tokenType lexer.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

// nextToken advances prevToken, curToken, and peekToken
func (p *Parser) nextToken() {
	p.prevToken = p.curToken
	p.curToken = p.peekToken
	if p.pos < len(p.tokens) {
		p.peekToken = p.tokens[p.pos]
		p.pos++
	} else {
		p.peekToken = p.tokens[len(p.tokens)-1] // EOF
	}
}

// peekAhead returns the token n positions after peekToken (n=0 is peekToken).
func (p *Parser) peekAhead(n int) lexer.Token {
	if n == 0 {
		return p.peekToken
	}
	i := p.pos + n - 1
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

// ParseProgram parses every top-level item. A single item is returned as is;
// several are wrapped in a top-level Block.
func (p *Parser) ParseProgram() *ast.Expr {
	start := p.curToken.Span.Start
	items := p.parseSequence(false)
	end := p.prevToken.Span.End
	if len(items) == 1 {
		return items[0]
	}
	if end < start {
		end = start
	}
	return p.newExpr(&ast.Block{Exprs: items, TopLevel: true}, ast.Span{Start: start, End: end})
}

// parseSequence parses expressions separated by optional semicolons until a
// closing brace (inBlock) or EOF.
func (p *Parser) parseSequence(inBlock bool) []*ast.Expr {
	var items []*ast.Expr
	for !p.curTokenIs(lexer.EOF) && !(inBlock && p.curTokenIs(lexer.RBRACE)) {
		if p.curTokenIs(lexer.SEMICOLON) {
			p.nextToken()
			continue
		}
		expr := p.parseStatement()
		if expr != nil {
			items = append(items, expr)
		}
		if p.panicking || expr == nil {
			p.synchronize(inBlock)
			continue
		}
		p.nextToken()
	}
	return items
}

// parseStatement parses one expression and attaches surrounding comments.
func (p *Parser) parseStatement() *ast.Expr {
	leading := p.curToken.LeadingComments
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}
	if len(leading) > 0 && len(expr.LeadingComments) == 0 {
		expr.LeadingComments = leading
	}
	if p.curToken.TrailingComment != "" {
		expr.TrailingComment = p.curToken.TrailingComment
	} else if p.peekTokenIs(lexer.SEMICOLON) && p.peekToken.TrailingComment != "" {
		expr.TrailingComment = p.peekToken.TrailingComment
	}
	return expr
}

// synchronize skips tokens after an error until the start of the next
// statement: past a `;`, in front of a closing brace of the enclosing block,
// or in front of a top-level keyword.
func (p *Parser) synchronize(inBlock bool) {
	p.panicking = false
	if p.curTokenIs(lexer.EOF) || (inBlock && p.curTokenIs(lexer.RBRACE)) {
		return
	}

	depth := 0
	first := true
	for !p.curTokenIs(lexer.EOF) {
		switch p.curToken.Type {
		case lexer.LBRACE:
			depth++
		case lexer.RBRACE:
			if depth == 0 {
				if !inBlock {
					p.nextToken()
				}
				return
			}
			depth--
		case lexer.SEMICOLON:
			if depth == 0 {
				p.nextToken()
				return
			}
		default:
			if depth == 0 && !first && syncKeywords[p.curToken.Type] {
				return
			}
		}
		first = false
		p.nextToken()
	}
}

// parseExpression parses expressions using Pratt parsing
func (p *Parser) parseExpression(precedence int) *ast.Expr {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}

	leftExp := prefix()
	if leftExp == nil {
		return nil
	}
	if itemLike(leftExp) {
		return leftExp
	}

	for !p.peekTokenIs(lexer.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}

		p.nextToken()

		leftExp = infix(leftExp)
		if leftExp == nil {
			return nil
		}
	}

	return leftExp
}

// parseCondition parses the head of an if/while/for/match, where a `{`
// always opens the body rather than a struct literal.
func (p *Parser) parseCondition() *ast.Expr {
	saved := p.noStructLiteral
	p.noStructLiteral = true
	defer func() { p.noStructLiteral = saved }()
	return p.parseExpression(LOWEST)
}

// parseNested parses an expression in a context delimited by brackets, where
// struct literals are allowed again.
func (p *Parser) parseNested(precedence int) *ast.Expr {
	saved := p.noStructLiteral
	p.noStructLiteral = false
	defer func() { p.noStructLiteral = saved }()
	return p.parseExpression(precedence)
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

// newExpr allocates a node and counts it.
func (p *Parser) newExpr(kind ast.ExprKind, span ast.Span) *ast.Expr {
	p.nodes++
	return &ast.Expr{Kind: kind, Span: span}
}

// finish allocates a node spanning from start to the end of curToken.
func (p *Parser) finish(kind ast.ExprKind, start int) *ast.Expr {
	end := p.curToken.Span.End
	if end < start {
		end = start
	}
	return p.newExpr(kind, ast.Span{Start: start, End: end})
}

// startOf returns the start offset of the current token.
func (p *Parser) startOf() int {
	return p.curToken.Span.Start
}

// Helper functions
func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

// expectPeekIdent advances over an identifier and returns its interned name.
func (p *Parser) expectPeekIdent() (string, bool) {
	if !p.expectPeek(lexer.IDENT) {
		return "", false
	}
	return p.interner.Intern(p.curToken.Literal), true
}

func (p *Parser) addError(code string, tok lexer.Token, data map[string]any) {
	if p.panicking {
		return
	}
	p.panicking = true
	p.errors = append(p.errors, perrors.NewWithPosition(code, tok.Line, tok.Column, tok.Span.Start, data))
}

func (p *Parser) peekError(t lexer.TokenType) {
	p.addError("PARSE-0001", p.peekToken, map[string]any{
		"Expected": "'" + t.String() + "'",
		"Got":      tokenText(p.peekToken),
	})
}

func (p *Parser) noPrefixParseFnError(tok lexer.Token) {
	if tok.Type == lexer.ILLEGAL {
		// the lexer already reported it
		p.panicking = true
		return
	}
	if tok.Type == lexer.EOF {
		p.addError("PARSE-0001", tok, map[string]any{"Expected": "an expression", "Got": "end of input"})
		return
	}
	p.addError("PARSE-0003", tok, map[string]any{"Token": tokenText(tok)})
}

func tokenText(tok lexer.Token) string {
	switch tok.Type {
	case lexer.EOF:
		return "end of input"
	case lexer.STRING, lexer.FSTRING, lexer.BYTE_STRING, lexer.CHAR:
		return tok.Type.String()
	}
	if tok.Literal != "" {
		return tok.Literal
	}
	return tok.Type.String()
}

// canStartExpression reports whether tok can begin an operand; used for
// open-ended ranges and optional break/return values.
func (p *Parser) canStartExpression(tok lexer.Token) bool {
	switch tok.Type {
	case lexer.SEMICOLON, lexer.RBRACE, lexer.RPAREN, lexer.RBRACKET, lexer.COMMA, lexer.EOF,
		lexer.FAT_ARROW, lexer.ELSE:
		return false
	}
	if p.noStructLiteral && tok.Type == lexer.LBRACE {
		return false
	}
	_, ok := p.prefixParseFns[tok.Type]
	return ok
}
