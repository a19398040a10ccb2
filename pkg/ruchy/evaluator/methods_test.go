package evaluator

import (
	"math"
	"strings"
	"testing"
)

func TestStringMethods(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"hello".upper()`, `"HELLO"`},
		{`"ÉCOLE".to_lowercase()`, `"école"`},
		{`"hello world".title()`, `"Hello World"`},
		{`"  pad  ".trim()`, `"pad"`},
		{`"a,b,c".split(",")`, `["a", "b", "c"]`},
		{`"a  b c".split()`, `["a", "b", "c"]`},
		{`"héllo".len()`, "5"},
		{`"héllo".chars().len()`, "5"},
		{`"abc".contains("b")`, "true"},
		{`"abc".starts_with("ab")`, "true"},
		{`"abc".ends_with("bc")`, "true"},
		{`"banana".find("an")`, "Some(1)"},
		{`"banana".find("x")`, "None"},
		{`"banana".replace("a", "o")`, `"bonono"`},
		{`"ab".repeat(3)`, `"ababab"`},
		{`"abc".reverse()`, `"cba"`},
		{`"hello".substring(1, 3)`, `"el"`},
		{`"7".pad_start(3, "0")`, `"007"`},
		{`"42".to_int()`, "42"},
		{`"2.5".to_float()`, "2.5"},
		{`"a\nb\n".lines()`, `["a", "b"]`},
		{`'x'.is_alphabetic()`, "true"},
		{`'7'.to_digit()`, "Some(7)"},
		{`'a'.to_uppercase()`, "'A'"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := testEval(t, tt.input)
			if got.Inspect() != tt.expected {
				t.Errorf("got %s, want %s", got.Inspect(), tt.expected)
			}
		})
	}
}

func TestListMethods(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"[1, 2, 3].map(|x| x * 2)", "[2, 4, 6]"},
		{"[1, 2, 3, 4].filter(|x| x % 2 == 0)", "[2, 4]"},
		{"[1, 2, 3].reduce(|a, b| a + b)", "6"},
		{"[1, 2, 3].fold(10, |a, b| a + b)", "16"},
		{"[3, 1, 2].sort()", "[1, 2, 3]"},
		{`["bb", "a", "ccc"].sort_by(|s| s.len())`, `["a", "bb", "ccc"]`},
		{"[1, 2, 2, 3, 1].unique()", "[1, 2, 3]"},
		{"[1, 2, 3].reverse()", "[3, 2, 1]"},
		{`["a", "b"].join("-")`, `"a-b"`},
		{"[1, 2, 3].sum()", "6"},
		{"[1, 2.5].sum()", "3.5"},
		{"[4, 9, 2].max()", "Some(9)"},
		{"[].min()", "None"},
		{"[1, 2, 3].first()", "Some(1)"},
		{"[1, 2, 3].any(|x| x > 2)", "true"},
		{"[1, 2, 3].all(|x| x > 2)", "false"},
		{"[1, 2, 3].find(|x| x > 1)", "Some(2)"},
		{"[1, 2, 3].zip([4, 5, 6])", "[(1, 4), (2, 5), (3, 6)]"},
		{`["a", "b"].enumerate()`, `[(0, "a"), (1, "b")]`},
		{"[1, 2, 3, 4, 5].chunks(2)", "[[1, 2], [3, 4], [5]]"},
		{"[1, 2, 3].windows(2)", "[[1, 2], [2, 3]]"},
		{"[[1, 2], [3]].flatten()", "[1, 2, 3]"},
		{"[1, 2].flat_map(|x| [x, x])", "[1, 1, 2, 2]"},
		{"[1, 2, 3, 4].take(2)", "[1, 2]"},
		{"[1, 2, 3, 4].skip(2)", "[3, 4]"},
		{"[1, 2, 3].contains(2)", "true"},
		{"[1, 2, 2].count(2)", "2"},
		{"[1, 2, 3].count(|x| x > 1)", "2"},
		{"[\"a\", \"b\"].count(\"c\")", "0"},
		{"let mut xs = [1]; xs.push(2); xs.push(3); xs", "[1, 2, 3]"},
		{"let mut xs = [1, 2]; let last = xs.pop(); (xs, last)", "([1], Some(2))"},
		{"let xs = [1, 2]; let ys = xs; let mut zs = ys; zs.push(3); xs", "[1, 2]"},
		{"(1..5).map(|x| x * x)", "[1, 4, 9, 16]"},
		{"(0..10).step_by(3)", "[0, 3, 6, 9]"},
		{"(1..=3).sum()", "6"},
		{"(1, 2, 3).len()", "3"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := testEval(t, tt.input)
			if got.Inspect() != tt.expected {
				t.Errorf("got %s, want %s", got.Inspect(), tt.expected)
			}
		})
	}
}

func TestMapAndSetMethods(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`let p = { a: 1, b: 2 }; p.keys()`, `["a", "b"]`},
		{`let p = { a: 1, b: 2 }; p.values()`, "[1, 2]"},
		{`let p = { a: 1 }; p.get("a")`, "Some(1)"},
		{`let p = { a: 1 }; p.has("z")`, "false"},
		{`let mut m = HashMap(); m.insert("k", 1); m.insert("k", 2); m`, `{"k": 2}`},
		{`let mut m = HashMap(); m.insert(1, "one"); m.contains_key(1)`, "true"},
		{`let mut s = HashSet(); s.insert(1); s.insert(1); s.len()`, "1"},
		{"HashSet([1, 2]).union(HashSet([2, 3]))", "{1, 2, 3}"},
		{"HashSet([1, 2]).intersection(HashSet([2, 3]))", "{2}"},
		{"HashSet([1, 2]).difference(HashSet([2, 3]))", "{1}"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := testEval(t, tt.input)
			if got.Inspect() != tt.expected {
				t.Errorf("got %s, want %s", got.Inspect(), tt.expected)
			}
		})
	}
}

func TestNumericMethods(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"(-5).abs()", "5"},
		{"(2).pow(10)", "1024"},
		{"(7).clamp(0, 5)", "5"},
		{"(4).is_even()", "true"},
		{"2.7.floor()", "2.0"},
		{"2.5.round()", "3.0"},
		{"16.0.sqrt()", "4.0"},
		{"(0.0 / 0.0).is_nan()", "true"},
		{"3.7.to_int()", "3"},
		{"(10).to_float()", "10.0"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := testEval(t, tt.input)
			if got.Inspect() != tt.expected {
				t.Errorf("got %s, want %s", got.Inspect(), tt.expected)
			}
		})
	}
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`format!("{}", 42)`, "42"},
		{`format!("{:>5}", 42)`, "   42"},
		{`format!("{:<5}|", "ab")`, "ab   |"},
		{`format!("{:*^7}", "mid")`, "**mid**"},
		{`format!("{:05}", -42)`, "-0042"},
		{`format!("{:.2}", 3.14159)`, "3.14"},
		{`format!("{:+}", 3)`, "+3"},
		{`format!("{:x}", 255)`, "ff"},
		{`format!("{:X}", 255)`, "FF"},
		{`format!("{:b}", 5)`, "101"},
		{`format!("{:?}", "quoted")`, `"quoted"`},
		{`format!("{1} {0}", "a", "b")`, "b a"},
		{`format!("{{literal}}")`, "{literal}"},
		{`let who = "you"; format!("hi {who}")`, "hi you"},
		{`let x = 4; f"x = {x + 1:>3}!"`, "x =   5!"},
		{`f"list {[1, 2]}"`, "list [1, 2]"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := testEval(t, tt.input)
			s, ok := got.(*String)
			if !ok {
				t.Fatalf("expected a string, got %s", got.Inspect())
			}
			if s.Value != tt.expected {
				t.Errorf("got %q, want %q", s.Value, tt.expected)
			}
		})
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in       float64
		expected string
	}{
		{1, "1.0"},
		{-2.5, "-2.5"},
		{0.1, "0.1"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
		{math.Copysign(0, -1), "-0.0"},
		{1e21, "1e+21"},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.in); got != tt.expected {
			t.Errorf("FormatFloat(%v) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func TestInspectCycles(t *testing.T) {
	list := &List{Elements: []Value{&Integer{Value: 1}}}
	list.Elements = append(list.Elements, list)
	if got := list.Inspect(); got != "[1, <cycle>]" {
		t.Errorf("got %s", got)
	}

	obj := &Object{Keys: []string{"self"}, Fields: map[string]Value{}}
	obj.Fields["self"] = &List{Elements: []Value{obj}}
	if got := obj.Inspect(); got != "{self: [<cycle>]}" {
		t.Errorf("got %s", got)
	}

	// Shared, acyclic references print in full.
	shared := &List{Elements: []Value{&Integer{Value: 7}}}
	pair := &Tuple{Elements: []Value{shared, shared}}
	if got := pair.Inspect(); got != "([7], [7])" {
		t.Errorf("got %s", got)
	}
}

func TestUnknownMethodSuggestion(t *testing.T) {
	err := testEvalErr(t, `"abc".uper()`)
	if got := err.Error(); !containsAll(got, "uper", "upper") {
		t.Errorf("expected the error to suggest upper, got %s", got)
	}
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
