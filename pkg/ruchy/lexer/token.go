package lexer

// TokenType represents the kind of a token
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF
	COMMENT

	// Identifiers and literals
	IDENT       // add, foobar, x, _
	INT         // 1343456, 0xff, 0b1010, 1_000
	FLOAT       // 3.14159, 1e10
	STRING      // "foobar", r"raw", """triple"""
	BYTE_STRING // b"bytes"
	FSTRING     // f"hello {name}"
	CHAR        // 'a'
	LABEL       // 'outer (loop label)

	// Operators
	ASSIGN     // =
	PLUS       // +
	MINUS      // -
	ASTERISK   // *
	SLASH      // /
	PERCENT    // %
	POWER      // **
	BANG       // !
	TILDE      // ~
	AMPERSAND  // &
	PIPE       // |
	CARET      // ^
	SHL        // <<
	SHR        // >>
	EQ         // ==
	NOT_EQ     // !=
	LT         // <
	GT         // >
	LTE        // <=
	GTE        // >=
	AND        // &&
	OR         // ||
	PIPELINE   // |>
	NULLISH    // ??
	QUESTION   // ?
	SAFE_DOT   // ?.
	ARROW      // ->
	FAT_ARROW  // =>
	PLUS_EQ    // +=
	MINUS_EQ   // -=
	STAR_EQ    // *=
	SLASH_EQ   // /=
	PERCENT_EQ // %=
	POWER_EQ   // **=
	AMP_EQ     // &=
	PIPE_EQ    // |=
	CARET_EQ   // ^=
	SHL_EQ     // <<=
	SHR_EQ     // >>=

	// Delimiters
	COMMA        // ,
	SEMICOLON    // ;
	COLON        // :
	DOUBLE_COLON // ::
	DOT          // .
	DOTDOT       // ..
	DOTDOTEQ     // ..=
	ELLIPSIS     // ...
	AT           // @
	HASH         // #
	LPAREN       // (
	RPAREN       // )
	LBRACE       // {
	RBRACE       // }
	LBRACKET     // [
	RBRACKET     // ]

	// Keywords
	LET
	MUT
	FN
	IF
	ELSE
	MATCH
	FOR
	WHILE
	LOOP
	IN
	RETURN
	BREAK
	CONTINUE
	STRUCT
	ENUM
	TRAIT
	IMPL
	USE
	MOD
	PUB
	ACTOR
	RECEIVE
	SPAWN
	ASYNC
	AWAIT
	TRUE
	FALSE
	TRY
	CATCH
	FINALLY
	THROW
	IMPORT
	EXPORT
	AS
	CONST
	NULL
)

func (tt TokenType) String() string {
	switch tt {
	case ILLEGAL:
		return "ILLEGAL"
	case EOF:
		return "EOF"
	case COMMENT:
		return "COMMENT"
	case IDENT:
		return "IDENT"
	case INT:
		return "INT"
	case FLOAT:
		return "FLOAT"
	case STRING:
		return "STRING"
	case BYTE_STRING:
		return "BYTE_STRING"
	case FSTRING:
		return "FSTRING"
	case CHAR:
		return "CHAR"
	case LABEL:
		return "LABEL"
	}
	if s, ok := symbols[tt]; ok {
		return s
	}
	if s, ok := keywordNames[tt]; ok {
		return s
	}
	return "UNKNOWN"
}

// keywordNames is the reverse of keywords, preferring the shortest spelling.
var keywordNames = func() map[TokenType]string {
	names := make(map[TokenType]string, len(keywords))
	for word, tt := range keywords {
		if existing, ok := names[tt]; !ok || len(word) < len(existing) {
			names[tt] = word
		}
	}
	return names
}()

// symbols holds the source spelling of operator and delimiter tokens.
var symbols = map[TokenType]string{
	ASSIGN:       "=",
	PLUS:         "+",
	MINUS:        "-",
	ASTERISK:     "*",
	SLASH:        "/",
	PERCENT:      "%",
	POWER:        "**",
	BANG:         "!",
	TILDE:        "~",
	AMPERSAND:    "&",
	PIPE:         "|",
	CARET:        "^",
	SHL:          "<<",
	SHR:          ">>",
	EQ:           "==",
	NOT_EQ:       "!=",
	LT:           "<",
	GT:           ">",
	LTE:          "<=",
	GTE:          ">=",
	AND:          "&&",
	OR:           "||",
	PIPELINE:     "|>",
	NULLISH:      "??",
	QUESTION:     "?",
	SAFE_DOT:     "?.",
	ARROW:        "->",
	FAT_ARROW:    "=>",
	PLUS_EQ:      "+=",
	MINUS_EQ:     "-=",
	STAR_EQ:      "*=",
	SLASH_EQ:     "/=",
	PERCENT_EQ:   "%=",
	POWER_EQ:     "**=",
	AMP_EQ:       "&=",
	PIPE_EQ:      "|=",
	CARET_EQ:     "^=",
	SHL_EQ:       "<<=",
	SHR_EQ:       ">>=",
	COMMA:        ",",
	SEMICOLON:    ";",
	COLON:        ":",
	DOUBLE_COLON: "::",
	DOT:          ".",
	DOTDOT:       "..",
	DOTDOTEQ:     "..=",
	ELLIPSIS:     "...",
	AT:           "@",
	HASH:         "#",
	LPAREN:       "(",
	RPAREN:       ")",
	LBRACE:       "{",
	RBRACE:       "}",
	LBRACKET:     "[",
	RBRACKET:     "]",
}

// operators lists every multi- and single-character operator, longest first,
// so the lexer can apply maximal munch with a simple prefix scan.
var operators = []struct {
	text string
	tt   TokenType
}{
	{"**=", POWER_EQ}, {"<<=", SHL_EQ}, {">>=", SHR_EQ}, {"..=", DOTDOTEQ}, {"...", ELLIPSIS},
	{"**", POWER}, {"<<", SHL}, {">>", SHR}, {"==", EQ}, {"!=", NOT_EQ}, {"<=", LTE}, {">=", GTE},
	{"&&", AND}, {"||", OR}, {"|>", PIPELINE}, {"??", NULLISH}, {"?.", SAFE_DOT}, {"->", ARROW},
	{"=>", FAT_ARROW}, {"+=", PLUS_EQ}, {"-=", MINUS_EQ}, {"*=", STAR_EQ}, {"/=", SLASH_EQ},
	{"%=", PERCENT_EQ}, {"&=", AMP_EQ}, {"|=", PIPE_EQ}, {"^=", CARET_EQ}, {"::", DOUBLE_COLON},
	{"..", DOTDOT},
	{"=", ASSIGN}, {"+", PLUS}, {"-", MINUS}, {"*", ASTERISK}, {"/", SLASH}, {"%", PERCENT},
	{"!", BANG}, {"~", TILDE}, {"&", AMPERSAND}, {"|", PIPE}, {"^", CARET}, {"<", LT}, {">", GT},
	{"?", QUESTION}, {",", COMMA}, {";", SEMICOLON}, {":", COLON}, {".", DOT}, {"@", AT},
	{"#", HASH}, {"(", LPAREN}, {")", RPAREN}, {"{", LBRACE}, {"}", RBRACE}, {"[", LBRACKET},
	{"]", RBRACKET},
}

// keywords maps reserved words to their token types
var keywords = map[string]TokenType{
	"let":      LET,
	"mut":      MUT,
	"fn":       FN,
	"fun":      FN,
	"if":       IF,
	"else":     ELSE,
	"match":    MATCH,
	"for":      FOR,
	"while":    WHILE,
	"loop":     LOOP,
	"in":       IN,
	"return":   RETURN,
	"break":    BREAK,
	"continue": CONTINUE,
	"struct":   STRUCT,
	"enum":     ENUM,
	"trait":    TRAIT,
	"impl":     IMPL,
	"use":      USE,
	"mod":      MOD,
	"pub":      PUB,
	"actor":    ACTOR,
	"receive":  RECEIVE,
	"spawn":    SPAWN,
	"async":    ASYNC,
	"await":    AWAIT,
	"true":     TRUE,
	"false":    FALSE,
	"try":      TRY,
	"catch":    CATCH,
	"finally":  FINALLY,
	"throw":    THROW,
	"import":   IMPORT,
	"export":   EXPORT,
	"as":       AS,
	"const":    CONST,
	"null":     NULL,
}

// LookupIdent checks if an identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Keywords returns every reserved word, used for completion.
func Keywords() []string {
	words := make([]string, 0, len(keywords))
	for w := range keywords {
		words = append(words, w)
	}
	return words
}

// Span is a half-open byte range [Start, End) into the source.
type Span struct {
	Start int
	End   int
}

// StringPart is one piece of an interpolated string: literal text or the raw
// source of an embedded expression. Offset is the byte offset of the piece in
// the enclosing source.
type StringPart struct {
	Text   string
	IsExpr bool
	Offset int
}

// Token represents a lexical token
type Token struct {
	Type            TokenType
	Literal         string // decoded text (escape sequences resolved for strings and chars)
	Span            Span
	Line            int // 1-based
	Column          int // 1-based
	Parts           []StringPart
	LeadingComments []string
	TrailingComment string
}

// IsKeyword reports whether the token is a reserved word.
func (t Token) IsKeyword() bool {
	return t.Type >= LET
}
