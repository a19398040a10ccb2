package evaluator

import (
	stderrors "errors"
	"strings"
	"testing"

	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// captureLogger records program output for assertions.
type captureLogger struct {
	out strings.Builder
}

func (l *captureLogger) Log(values ...interface{}) {
	l.out.WriteString(joinLogValues(values))
}

func (l *captureLogger) LogLine(values ...interface{}) {
	l.out.WriteString(joinLogValues(values))
	l.out.WriteByte('\n')
}

func testEval(t *testing.T, input string) Value {
	t.Helper()
	v, err := NewInterpreter(WithLogger(&captureLogger{})).Eval(input)
	if err != nil {
		t.Fatalf("eval %q: %v", input, err)
	}
	return v
}

func testEvalErr(t *testing.T, input string) error {
	t.Helper()
	v, err := NewInterpreter(WithLogger(&captureLogger{})).Eval(input)
	if err == nil {
		t.Fatalf("eval %q: expected an error, got %s", input, v.Inspect())
	}
	return err
}

func TestSeedScenarios(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"arithmetic", "2 + 3 * 4", "14"},
		{"let binding", "let x = 42; x + 1", "43"},
		{"recursion", "fn fact(n) { if n<=1 {1} else {n*fact(n-1)} } fact(5)", "120"},
		{"closure capture", "let make = |x| { |y| x + y }; let add10 = make(10); add10(5)", "15"},
		{"pattern let", "let [a,b,c] = [1,2,3]; a+b+c", "6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testEval(t, tt.input)
			if _, ok := got.(*Integer); !ok {
				t.Fatalf("expected an integer, got %s (%s)", got.Inspect(), got.Type())
			}
			if got.Inspect() != tt.expected {
				t.Errorf("got %s, want %s", got.Inspect(), tt.expected)
			}
		})
	}
}

func TestExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"7 / 2", "3"},
		{"7 % 3", "1"},
		{"7.0 / 2", "3.5"},
		{"2 ** 10", "1024"},
		{"9223372036854775807 + 1", "-9223372036854775808"},
		{"1.0 / 0.0", "inf"},
		{"-1.0 / 0.0", "-inf"},
		{`"ab" + "cd"`, `"abcd"`},
		{`"abc" < "abd"`, "true"},
		{"[1, 2] < [1, 3]", "true"},
		{"[1, [2, 3]] == [1, [2, 3]]", "true"},
		{"1 == 1.0", "true"},
		{"!true || false", "false"},
		{"5 & 3", "1"},
		{"1 << 4", "16"},
		{"null ?? 5", "5"},
		{"3 ?? 5", "3"},
		{"let t = (1, \"a\"); t.1", `"a"`},
		{"[10, 20, 30][-1]", "30"},
		{"[1, 2, 3, 4][1..3]", "[2, 3]"},
		{"\"hello\"[1..=3]", `"ell"`},
		{"3 as f64", "3.0"},
		{"3.9 as i64", "3"},
		{"let x = 1 in x * 2", "2"},
		{"fn double(x) { x * 2 } 4 |> double", "8"},
		{"if 1 > 2 { \"a\" } else { \"b\" }", `"b"`},
		{"if false { 1 }", "()"},
		{"", "()"},
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

func TestControlFlow(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"for sum", "let mut s = 0; for i in 1..=4 { s += i } s", "10"},
		{"while", "let mut n = 0; while n < 5 { n += 1 } n", "5"},
		{"loop break value", "loop { break 5 }", "5"},
		{"continue", "let mut s = 0; for i in 0..6 { if i % 2 == 0 { continue } s += i } s", "9"},
		{"labelled continue", "let mut c = 0; 'outer: for i in 0..3 { for j in 0..3 { if j == 1 { continue 'outer } c += 1 } } c", "3"},
		{"labelled break", "let mut c = 0; 'outer: for i in 0..3 { for j in 0..3 { if i == 1 { break 'outer } c += 1 } } c", "3"},
		{"for tuple pattern", "let mut s = 0; for (k, v) in [(1, 2), (3, 4)] { s += k * v } s", "14"},
		{"early return", "fn f(x) { if x > 0 { return \"pos\" } \"neg\" } f(1)", `"pos"`},
		{"top-level return", "return 7; 8", "7"},
		{"match literal", `match 2 { 1 | 2 => "small", _ => "big" }`, `"small"`},
		{"match range", `match 5 { 0..=3 => "low", 4..=9 => "mid", _ => "high" }`, `"mid"`},
		{"match guard", `match Some(3) { Some(y) if y > 5 => "big", Some(y) => y, None => 0 }`, "3"},
		{"match none", `match None { Some(_) => 1, None => 0 }`, "0"},
		{"if let", "let opt = Some(4); if let Some(x) = opt { x } else { 0 }", "4"},
		{"let else", "fn f(o) { let Some(v) = o else { return -1 }; v } f(None)", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testEval(t, tt.input)
			if got.Inspect() != tt.expected {
				t.Errorf("got %s, want %s", got.Inspect(), tt.expected)
			}
		})
	}
}

func TestTryCatchAndOptions(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"catch thrown value", `try { throw "boom" } catch (e) { e }`, `"boom"`},
		{"catch runtime error", `try { 1 / 0 } catch (e) { "caught" }`, `"caught"`},
		{"no error", `try { 1 } catch (e) { 2 }`, "1"},
		{"finally runs", "let mut log = []; try { log.push(1) } finally { log.push(2) } log", "[1, 2]"},
		{"question mark some", "fn f(x) { let v = x?; Some(v + 1) } f(Some(1))", "Some(2)"},
		{"question mark none", "fn f(x) { let v = x?; Some(v + 1) } f(None)", "None"},
		{"question mark err", `fn f(x) { let v = x?; Ok(v) } f(Err("bad"))`, `Err("bad")`},
		{"unwrap_or", "None.unwrap_or(3)", "3"},
		{"option map", "Some(2).map(|x| x * 10)", "Some(20)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testEval(t, tt.input)
			if got.Inspect() != tt.expected {
				t.Errorf("got %s, want %s", got.Inspect(), tt.expected)
			}
		})
	}
}

func TestPanicIsNotCatchable(t *testing.T) {
	err := testEvalErr(t, `try { panic("fatal") } catch (e) { 0 }`)
	var p *PanicError
	if !stderrors.As(err, &p) {
		t.Fatalf("expected *PanicError, got %T: %v", err, err)
	}
	if p.Message != "fatal" {
		t.Errorf("got message %q, want %q", p.Message, "fatal")
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		input string
		kind  perrors.Kind
	}{
		{"undefined_name + 1", perrors.KindUndefinedVariable},
		{"let x = 5; x()", perrors.KindNotCallable},
		{"fn f(a, b) { a } f(1)", perrors.KindArity},
		{"fn f(a) { a } f(1, 2)", perrors.KindArity},
		{`1 + true`, perrors.KindTypeMismatch},
		{"1 / 0", perrors.KindDivisionByZero},
		{"5 % 0", perrors.KindDivisionByZero},
		{"[1, 2][5]", perrors.KindIndexOutOfBounds},
		{"match 3 { 1 => 0 }", perrors.KindNonExhaustiveMatch},
		{"let [a, b] = [1, 2, 3]", perrors.KindPatternBindingMismatch},
		{"let p = { x: 1 }; p.y", perrors.KindFieldNotFound},
		{"let x = 1; x = 2", perrors.KindImmutableAssignment},
		{"break", perrors.KindRuntime},
		{"[1].no_such_method()", perrors.KindRuntime},
		{"actor Counter { count: i32, receive Inc(n) => n }", perrors.KindRuntime},
		{"let x = ", perrors.KindParse},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := testEvalErr(t, tt.input)
			if got := perrors.KindOf(err); got != tt.kind {
				t.Errorf("got kind %s, want %s (%v)", got, tt.kind, err)
			}
		})
	}
}

func TestErrorPosition(t *testing.T) {
	err := testEvalErr(t, "let a = 1\nlet b = missing + a")
	var re *perrors.RuchyError
	if !stderrors.As(err, &re) {
		t.Fatalf("expected *RuchyError, got %T", err)
	}
	if re.Line != 2 || re.Column != 9 {
		t.Errorf("got line %d column %d, want 2:9", re.Line, re.Column)
	}
	if !strings.Contains(re.Error(), "missing") {
		t.Errorf("message should name the variable: %s", re.Error())
	}
}

func TestUndefinedVariableSuggestion(t *testing.T) {
	err := testEvalErr(t, "let counter = 1; countr + 1")
	if !strings.Contains(err.Error(), "counter") {
		t.Errorf("expected a did-you-mean hint naming counter, got %v", err)
	}
}

func TestStructsEnumsAndImpls(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"struct literal",
			"struct Point { x: i64, y: i64 } Point { x: 1, y: 2 }",
			"Point { x: 1, y: 2 }",
		},
		{
			"impl method",
			"struct Point { x: i64, y: i64 } impl Point { fn sum(&self) { self.x + self.y } } let p = Point { x: 3, y: 4 }; p.sum()",
			"7",
		},
		{
			"associated function",
			"struct Point { x: i64, y: i64 } impl Point { fn origin() { Point { x: 0, y: 0 } } } Point::origin().x",
			"0",
		},
		{
			"enum unit variant",
			"enum Color { Red, Green } let c = Color::Green; match c { Color::Red => 1, Color::Green => 2 }",
			"2",
		},
		{
			"enum tuple variant",
			"enum Shape { Circle(f64), Square(f64) } match Shape::Square(2.0) { Shape::Circle(r) => r, Shape::Square(s) => s * s }",
			"4.0",
		},
		{
			"module path",
			"mod math { fn sq(x) { x * x } } math::sq(6)",
			"36",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testEval(t, tt.input)
			if got.Inspect() != tt.expected {
				t.Errorf("got %s, want %s", got.Inspect(), tt.expected)
			}
		})
	}
}

func TestInterpreterPersistsBindings(t *testing.T) {
	in := NewInterpreter(WithLogger(&captureLogger{}))
	if _, err := in.Eval("let mut total = 10"); err != nil {
		t.Fatal(err)
	}
	if _, err := in.Eval("fn bump(n) { n + 1 }"); err != nil {
		t.Fatal(err)
	}
	got, err := in.Eval("total = bump(total); total")
	if err != nil {
		t.Fatal(err)
	}
	if got.Inspect() != "11" {
		t.Errorf("got %s, want 11", got.Inspect())
	}

	in.Reset()
	if _, err := in.Eval("total"); perrors.KindOf(err) != perrors.KindUndefinedVariable {
		t.Errorf("expected total to be gone after Reset, got %v", err)
	}
}

func TestPrintOutput(t *testing.T) {
	logger := &captureLogger{}
	var stderr strings.Builder
	in := NewInterpreter(WithLogger(logger), WithStderr(&stderr))

	src := `let name = "Ada"
println("hello", name)
println!("{} has {} items", name, 3)
print("no newline")
eprintln("to stderr")
dbg!(1 + 1)`
	if _, err := in.Eval(src); err != nil {
		t.Fatal(err)
	}
	want := "hello Ada\nAda has 3 items\nno newline"
	if logger.out.String() != want {
		t.Errorf("stdout = %q, want %q", logger.out.String(), want)
	}
	if !strings.Contains(stderr.String(), "to stderr\n") {
		t.Errorf("stderr missing eprintln output: %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "[dbg] (1 + 1) = 2") {
		t.Errorf("stderr missing dbg! output: %q", stderr.String())
	}
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`len("héllo")`, "5"},
		{"len([1, 2, 3])", "3"},
		{"type(1.5)", `"float"`},
		{`int("42")`, "42"},
		{"int(true)", "1"},
		{"float(2)", "2.0"},
		{"bool(0)", "false"},
		{"str([1, 2])", `"[1, 2]"`},
		{"range(3)", "0..3"},
		{"range(0, 10, 3)", "[0, 3, 6, 9]"},
		{"range(5, 0, -2)", "[5, 3, 1]"},
		{"abs(-4)", "4"},
		{"sqrt(16)", "4.0"},
		{"pow(2, 8)", "256"},
		{"min(3, 1, 2)", "1"},
		{"max([4, 9, 2])", "9"},
		{"floor(2.7)", "2.0"},
		{"Some(1)", "Some(1)"},
		{"Option::Some(1)", "Some(1)"},
		{"Result::Err(2)", "Err(2)"},
		{`HashMap([("a", 1), ("b", 2)]).get("b")`, "Some(2)"},
		{"HashSet([1, 2, 2, 3]).len()", "3"},
		{"assert(1 < 2)", "()"},
		{"assert_eq(2 + 2, 4)", "()"},
		{`format("{}-{}", 1, 2)`, `"1-2"`},
		{"i64::MAX", "9223372036854775807"},
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

func TestAssertFailures(t *testing.T) {
	for _, input := range []string{"assert(false)", "assert_eq(1, 2)", `assert_ne("a", "a")`, "unreachable!()"} {
		t.Run(input, func(t *testing.T) {
			err := testEvalErr(t, input)
			var p *PanicError
			if !stderrors.As(err, &p) {
				t.Fatalf("expected *PanicError, got %T: %v", err, err)
			}
		})
	}
}

func TestPosition(t *testing.T) {
	src := "ab\nçd\nef"
	tests := []struct {
		offset       int
		line, column int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{3, 2, 1},
		{5, 2, 2}, // ç is two bytes
		{7, 3, 1},
		{100, 3, 3},
	}
	for _, tt := range tests {
		line, column := Position(src, tt.offset)
		if line != tt.line || column != tt.column {
			t.Errorf("Position(%d) = %d:%d, want %d:%d", tt.offset, line, column, tt.line, tt.column)
		}
	}
}
