package rustfmt

import (
	"strings"
	"testing"
)

func TestFormatItems(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:  "functions",
			input: `fn add ( a : i64 , b : i64 ) -> i64 { a + b } fn main ( ) { let x = add ( 1 , 2 ) ; println! ( "{}" , x ) ; }`,
			expected: `fn add(a: i64, b: i64) -> i64 {
    a + b
}

fn main() {
    let x = add(1, 2);
    println!("{}", x);
}
`,
		},
		{
			name:  "empty item bodies",
			input: `struct A { } fn main ( ) { }`,
			expected: `struct A {
}

fn main() {
}
`,
		},
		{
			name:  "attributes and fields",
			input: `#[derive(Debug, Clone, PartialEq)] struct Point { x : i64 , y : i64 , } fn main ( ) { }`,
			expected: `#[derive(Debug, Clone, PartialEq)]
struct Point {
    x: i64,
    y: i64,
}

fn main() {
}
`,
		},
		{
			name:  "match arms",
			input: `fn main ( ) { match x { 1 => "one" , _ => "other" , } }`,
			expected: `fn main() {
    match x {
        1 => "one",
        _ => "other",
    }
}
`,
		},
		{
			name:  "use declarations stay together",
			input: `use std::collections::HashMap ; use polars::prelude::* ; fn main ( ) { }`,
			expected: `use std::collections::HashMap;
use polars::prelude::*;

fn main() {
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.input)
			if err != nil {
				t.Fatalf("Format error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Format mismatch\nexpected:\n%s\ngot:\n%s", tt.expected, got)
			}
		})
	}
}

func TestFormatExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`let v = x . iter ( ) . map ( | a | a * 2 ) . collect :: < Vec<_> > ( ) ;`, `let v = x.iter().map(|a| a * 2).collect::<Vec<_>>();`},
		{`let y = - x - 1 ;`, `let y = -x - 1;`},
		{`* total += n ;`, `*total += n;`},
		{`let s : & str = "hi" ;`, `let s: &str = "hi";`},
		{`let r = ( 0 .. 10 ) ;`, `let r = (0..10);`},
		{`let t = p . 0 . 1 ;`, `let t = p.0.1;`},
		{`let m : HashMap<String, i64> = HashMap :: new ( ) ;`, `let m: HashMap<String, i64> = HashMap::new();`},
		{`let f = move | | count + 1 ;`, `let f = move || count + 1;`},
		{`let ok = ! done && a || b ;`, `let ok = !done && a || b;`},
		{`let c = 'x' ;`, `let c = 'x';`},
		{`let a = [ 1 , 2 , 3 , ] ;`, `let a = [1, 2, 3];`},
		{`let big = 1e+10 ;`, `let big = 1e+10;`},
		{`let tiny = 1e-05 * 2.0 ;`, `let tiny = 1e-05 * 2.0;`},
		{`let n = - ( - 5 ) ;`, `let n = -(-5);`},
	}

	for _, tt := range tests {
		got, err := Format("fn main ( ) { " + tt.input + " }")
		if err != nil {
			t.Fatalf("Format(%q) error: %v", tt.input, err)
		}
		lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
		if len(lines) != 3 {
			t.Errorf("Format(%q) produced %d lines:\n%s", tt.input, len(lines), got)
			continue
		}
		if body := strings.TrimPrefix(lines[1], IndentString); body != tt.expected {
			t.Errorf("Format(%q)\nexpected: %s\ngot:      %s", tt.input, tt.expected, body)
		}
	}
}

func TestFormatBreaksLongLists(t *testing.T) {
	input := `fn main ( ) { let v = vec! [ 1000000000 , 2000000000 , 3000000000 , 4000000000 , 5000000000 , 6000000000 , 7000000000 , 8000000000 ] ; }`
	got, err := Format(input)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "let v = vec![\n        1000000000,\n") {
		t.Errorf("expected the list to break one element per line:\n%s", got)
	}
	if !strings.Contains(got, "        8000000000,\n    ];\n") {
		t.Errorf("expected a trailing comma and closing bracket on its own line:\n%s", got)
	}
}

func TestFormatIdempotent(t *testing.T) {
	inputs := []string{
		`fn add ( a : i64 , b : i64 ) -> i64 { a + b } fn main ( ) { let x = add ( 1 , 2 ) ; println! ( "{}" , x ) ; }`,
		`fn main ( ) { let v = vec! [ 1000000000 , 2000000000 , 3000000000 , 4000000000 , 5000000000 , 6000000000 , 7000000000 , 8000000000 ] ; }`,
		`#[derive(Debug, Clone, PartialEq)] enum Color { Red , Green , } fn main ( ) { let c = if x > 1 { Color :: Red } else { Color :: Green } ; }`,
	}
	for _, input := range inputs {
		once, err := Format(input)
		if err != nil {
			t.Fatal(err)
		}
		twice, err := Format(once)
		if err != nil {
			t.Fatal(err)
		}
		if once != twice {
			t.Errorf("formatting is not stable\nfirst:\n%s\nsecond:\n%s", once, twice)
		}
	}
}

func TestFormatMultiLineContract(t *testing.T) {
	got := MustFormat(`fn a ( ) { } fn main ( ) { a ( ) ; }`)
	if n := LineCount(got); n < 6 {
		t.Errorf("two items formatted to %d lines:\n%s", n, got)
	}
	if !strings.Contains(got, "}\n") {
		t.Errorf("expected a newline after }:\n%s", got)
	}
}

func TestFormatErrors(t *testing.T) {
	inputs := []string{
		`fn main() {`,
		`fn main() { let s = "open; }`,
		`fn main() ) {`,
	}
	for _, input := range inputs {
		if _, err := Format(input); err == nil {
			t.Errorf("Format(%q) should fail", input)
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{`'a: loop`, []string{"'a", ":", "loop"}},
		{`'\n' 'x'`, []string{`'\n'`, "'x'"}},
		{`r#"raw "quoted""# b"bytes"`, []string{`r#"raw "quoted""#`, `b"bytes"`}},
		{`1.5e-3 2i64 0xFF`, []string{"1.5e-3", "2i64", "0xFF"}},
		{`1e10 1e-05 1.5e+10 1e+300 2E8f64`, []string{"1e10", "1e-05", "1.5e+10", "1e+300", "2E8f64"}},
		{`1..5 t.0 e+1`, []string{"1", "..", "5", "t", ".", "0", "e", "+", "1"}},
		{`a..=b`, []string{"a", "..=", "b"}},
		{`x != y`, []string{"x", "!=", "y"}},
		{`format!("{}", x) // done`, []string{"format!", "(", `"{}"`, ",", "x", ")", "// done"}},
	}
	for _, tt := range tests {
		toks, err := tokenize(tt.input)
		if err != nil {
			t.Fatalf("tokenize(%q): %v", tt.input, err)
		}
		got := make([]string, len(toks))
		for i, tok := range toks {
			got[i] = tok.text
		}
		if strings.Join(got, "|") != strings.Join(tt.expected, "|") {
			t.Errorf("tokenize(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
