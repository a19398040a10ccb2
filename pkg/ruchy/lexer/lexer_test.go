package lexer

import (
	"testing"
)

func types(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, t := range tokens {
		out[i] = t.Type
	}
	return out
}

func TestEmptyInputIsJustEOF(t *testing.T) {
	tokens, diags := Tokenize("")
	if len(tokens) != 1 || tokens[0].Type != EOF {
		t.Fatalf("expected [EOF], got %v", types(tokens))
	}
	if len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %v", diags)
	}
}

func TestOperatorsMaximalMunch(t *testing.T) {
	input := `= == => + += - -= -> * ** **= / /= % < <= << <<= > >= >> >>= ! != & && &= | || |= |> ^ ^= ? ?? ?. . .. ..= ... : :: , ; @ # ~`
	expected := []TokenType{
		ASSIGN, EQ, FAT_ARROW, PLUS, PLUS_EQ, MINUS, MINUS_EQ, ARROW, ASTERISK, POWER, POWER_EQ,
		SLASH, SLASH_EQ, PERCENT, LT, LTE, SHL, SHL_EQ, GT, GTE, SHR, SHR_EQ, BANG, NOT_EQ,
		AMPERSAND, AND, AMP_EQ, PIPE, OR, PIPE_EQ, PIPELINE, CARET, CARET_EQ, QUESTION, NULLISH,
		SAFE_DOT, DOT, DOTDOT, DOTDOTEQ, ELLIPSIS, COLON, DOUBLE_COLON, COMMA, SEMICOLON, AT, HASH,
		TILDE, EOF,
	}

	tokens, diags := Tokenize(input)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d: %v", len(expected), len(tokens), types(tokens))
	}
	for i, tt := range expected {
		if tokens[i].Type != tt {
			t.Errorf("token %d: expected %s, got %s (%q)", i, tt, tokens[i].Type, tokens[i].Literal)
		}
	}
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		input    string
		expected TokenType
	}{
		{"let", LET},
		{"mut", MUT},
		{"fn", FN},
		{"fun", FN},
		{"match", MATCH},
		{"loop", LOOP},
		{"continue", CONTINUE},
		{"actor", ACTOR},
		{"receive", RECEIVE},
		{"spawn", SPAWN},
		{"await", AWAIT},
		{"finally", FINALLY},
		{"letter", IDENT},
		{"_", IDENT},
	}

	for _, tt := range tests {
		tokens, _ := Tokenize(tt.input)
		if tokens[0].Type != tt.expected {
			t.Errorf("%q: expected %s, got %s", tt.input, tt.expected, tokens[0].Type)
		}
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input   string
		tt      TokenType
		literal string
	}{
		{"42", INT, "42"},
		{"1_000_000", INT, "1000000"},
		{"0xff", INT, "0xff"},
		{"0o17", INT, "0o17"},
		{"0b1010_1010", INT, "0b10101010"},
		{"3.14", FLOAT, "3.14"},
		{"1e10", FLOAT, "1e10"},
		{"2.5E-3", FLOAT, "2.5E-3"},
		{"1_0.2_5", FLOAT, "10.25"},
	}

	for _, tt := range tests {
		tokens, diags := Tokenize(tt.input)
		if len(diags) != 0 {
			t.Errorf("%q: unexpected diagnostics %v", tt.input, diags)
		}
		if tokens[0].Type != tt.tt || tokens[0].Literal != tt.literal {
			t.Errorf("%q: expected %s %q, got %s %q", tt.input, tt.tt, tt.literal, tokens[0].Type, tokens[0].Literal)
		}
	}
}

func TestRangeAfterIntegerIsNotAFloat(t *testing.T) {
	tokens, _ := Tokenize("1..5")
	got := types(tokens)
	want := []TokenType{INT, DOTDOT, INT, EOF}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	tokens, _ = Tokenize("1.to_string()")
	if tokens[0].Type != INT || tokens[1].Type != DOT || tokens[2].Type != IDENT {
		t.Errorf("method call on integer lexed as %v", types(tokens))
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		input    string
		tt       TokenType
		expected string
	}{
		{`"hello"`, STRING, "hello"},
		{`"a\nb\t\\\""`, STRING, "a\nb\t\\\""},
		{`"\x41\u{1F600}"`, STRING, "A\U0001F600"},
		{`"nul\0"`, STRING, "nul\x00"},
		{`r"C:\path\n"`, STRING, `C:\path\n`},
		{`r#"say "hi""#`, STRING, `say "hi"`},
		{`b"bytes"`, BYTE_STRING, "bytes"},
		{`"""multi
line"""`, STRING, "multi\nline"},
		{`'x'`, CHAR, "x"},
		{`'\n'`, CHAR, "\n"},
		{`'é'`, CHAR, "é"},
	}

	for _, tt := range tests {
		tokens, diags := Tokenize(tt.input)
		if len(diags) != 0 {
			t.Errorf("%q: unexpected diagnostics %v", tt.input, diags)
		}
		if tokens[0].Type != tt.tt {
			t.Errorf("%q: expected %s, got %s", tt.input, tt.tt, tokens[0].Type)
		}
		if tokens[0].Literal != tt.expected {
			t.Errorf("%q: expected literal %q, got %q", tt.input, tt.expected, tokens[0].Literal)
		}
	}
}

func TestInterpolatedString(t *testing.T) {
	input := `f"Hello, {name}! {{x}} {a + b}"`
	tokens, diags := Tokenize(input)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	tok := tokens[0]
	if tok.Type != FSTRING {
		t.Fatalf("expected FSTRING, got %s", tok.Type)
	}

	want := []StringPart{
		{Text: "Hello, "},
		{Text: "name", IsExpr: true},
		{Text: "! {x} "},
		{Text: "a + b", IsExpr: true},
	}
	if len(tok.Parts) != len(want) {
		t.Fatalf("expected %d parts, got %d: %+v", len(want), len(tok.Parts), tok.Parts)
	}
	for i, p := range want {
		if tok.Parts[i].Text != p.Text || tok.Parts[i].IsExpr != p.IsExpr {
			t.Errorf("part %d: expected %+v, got %+v", i, p, tok.Parts[i])
		}
	}
	// Expression offsets point back into the source.
	nameOffset := tok.Parts[1].Offset
	if input[nameOffset:nameOffset+4] != "name" {
		t.Errorf("expression offset %d does not point at 'name'", nameOffset)
	}
}

func TestCommentsAreSkippedAndAttached(t *testing.T) {
	input := "// leading\n/* block /* nested */ still */ let x = 1 // trailing\nx"
	tokens, diags := Tokenize(input)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if tokens[0].Type != LET {
		t.Fatalf("expected LET first, got %s", tokens[0].Type)
	}
	if len(tokens[0].LeadingComments) != 2 {
		t.Errorf("expected 2 leading comments, got %v", tokens[0].LeadingComments)
	}
	// "1" carries the trailing comment
	if tokens[3].TrailingComment != "// trailing" {
		t.Errorf("expected trailing comment on %q, got %q", tokens[3].Literal, tokens[3].TrailingComment)
	}
	if tokens[4].Type != IDENT || tokens[4].Line != 3 {
		t.Errorf("expected x on line 3, got %s line %d", tokens[4].Type, tokens[4].Line)
	}
}

func TestInvalidInputContinues(t *testing.T) {
	tokens, diags := Tokenize("let $ x = 1")
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(diags))
	}
	if diags[0].Code != "PARSE-0007" {
		t.Errorf("expected PARSE-0007, got %s", diags[0].Code)
	}
	got := types(tokens)
	want := []TokenType{LET, ILLEGAL, IDENT, ASSIGN, INT, EOF}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if tokens[1].Span != (Span{Start: 4, End: 5}) {
		t.Errorf("expected illegal span 4..5, got %+v", tokens[1].Span)
	}
}

func TestUnterminatedString(t *testing.T) {
	tokens, diags := Tokenize(`"abc`)
	if len(diags) != 1 || diags[0].Code != "PARSE-0004" {
		t.Fatalf("expected unterminated string diagnostic, got %v", diags)
	}
	if tokens[0].Literal != "abc" || tokens[len(tokens)-1].Type != EOF {
		t.Errorf("unexpected tokens %v", types(tokens))
	}
}

func TestSpansAndPositions(t *testing.T) {
	input := "let π = 3.14\nπ"
	tokens, _ := Tokenize(input)
	for _, tok := range tokens {
		if tok.Span.Start > tok.Span.End || tok.Span.End > len(input) {
			t.Errorf("bad span %+v for %s", tok.Span, tok.Type)
		}
	}
	if tokens[1].Literal != "π" || tokens[1].Column != 5 {
		t.Errorf("expected π at column 5, got %q col %d", tokens[1].Literal, tokens[1].Column)
	}
	if tokens[4].Line != 2 || tokens[4].Column != 1 {
		t.Errorf("expected second π at 2:1, got %d:%d", tokens[4].Line, tokens[4].Column)
	}
}

func TestIdentifiersAreNFCNormalized(t *testing.T) {
	// "é" written as e + combining acute accent
	tokens, _ := Tokenize("caf\u0065\u0301")
	if tokens[0].Literal != "caf\u00e9" {
		t.Errorf("expected NFC-normalized identifier, got %q", tokens[0].Literal)
	}
}

func TestLoopLabels(t *testing.T) {
	tokens, diags := Tokenize("'outer: loop { break 'outer }")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if tokens[0].Type != LABEL || tokens[0].Literal != "outer" {
		t.Errorf("expected LABEL outer, got %s %q", tokens[0].Type, tokens[0].Literal)
	}
	if tokens[5].Type != LABEL {
		t.Errorf("expected LABEL after break, got %s", tokens[5].Type)
	}

	tokens, _ = Tokenize("'a'")
	if tokens[0].Type != CHAR {
		t.Errorf("single letter in quotes should stay a char, got %s", tokens[0].Type)
	}
}
