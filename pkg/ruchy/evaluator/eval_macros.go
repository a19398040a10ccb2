package evaluator

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

func evalMacro(node *ast.MacroInvocation, env *Environment) (Value, error) {
	switch node.Name {
	case "vec":
		elems, err := evalElements(node.Args, env)
		if err != nil {
			return nil, err
		}
		return &List{Elements: elems}, nil

	case "dbg":
		var result Value = UNIT
		for _, arg := range node.Args {
			v, err := Eval(arg, env)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(env.rt.stderr, "[dbg] %s = %s\n", arg.String(), v.Inspect())
			result = v
		}
		return result, nil

	case "assert", "assert_eq", "assert_ne":
		args, err := evalArgs(node.Args, env)
		if err != nil {
			return nil, err
		}
		return builtins[node.Name].Fn(env, args...)
	}

	args, err := evalArgs(node.Args, env)
	if err != nil {
		return nil, err
	}
	text, err := formatArgs(args, env)
	if err != nil {
		return nil, err
	}

	switch node.Name {
	case "println":
		env.rt.logger.LogLine(text)
	case "print":
		env.rt.logger.Log(text)
	case "eprintln":
		fmt.Fprintln(env.rt.stderr, text)
	case "eprint":
		fmt.Fprint(env.rt.stderr, text)
	case "format":
		return &String{Value: text}, nil
	case "panic", "todo", "unimplemented", "unreachable":
		if text == "" {
			text = map[string]string{
				"panic":         "explicit panic",
				"todo":          "not yet implemented",
				"unimplemented": "not implemented",
				"unreachable":   "entered unreachable code",
			}[node.Name]
		}
		return nil, &PanicError{Message: text}
	default:
		return nil, perrors.Runtime("unknown macro %s!", node.Name)
	}
	return UNIT, nil
}

// formatArgs renders printing arguments. A leading string containing
// placeholders is a format string; otherwise values are joined with spaces.
func formatArgs(args []Value, env *Environment) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	if s, ok := args[0].(*String); ok && strings.ContainsAny(s.Value, "{}") {
		return formatString(s.Value, args[1:], env)
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = Display(a)
	}
	return strings.Join(parts, " "), nil
}

// formatString expands `{}`, `{0}`, `{name}` and `{:spec}` placeholders.
// `{{` and `}}` are literal braces.
func formatString(format string, args []Value, env *Environment) (string, error) {
	var out strings.Builder
	next := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c == '}' {
			if i+1 < len(format) && format[i+1] == '}' {
				i++
			}
			out.WriteByte('}')
			continue
		}
		if c != '{' {
			out.WriteByte(c)
			continue
		}
		if i+1 < len(format) && format[i+1] == '{' {
			out.WriteByte('{')
			i++
			continue
		}
		end := strings.IndexByte(format[i:], '}')
		if end < 0 {
			return "", perrors.Runtime("unterminated placeholder in format string %q", format)
		}
		inner := format[i+1 : i+end]
		i += end

		name, spec, _ := strings.Cut(inner, ":")
		var v Value
		switch {
		case name == "":
			if next >= len(args) {
				return "", perrors.Runtime("format string %q needs more arguments than the %d given", format, len(args))
			}
			v = args[next]
			next++
		case isDigits(name):
			n, _ := strconv.Atoi(name)
			if n >= len(args) {
				return "", perrors.IndexOutOfBounds(int64(n), len(args))
			}
			v = args[n]
		default:
			var err error
			if v, err = evalIdentifier(name, env); err != nil {
				return "", err
			}
		}
		s, err := formatWithSpec(v, spec)
		if err != nil {
			return "", err
		}
		out.WriteString(s)
	}
	return out.String(), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func evalInterpolation(node *ast.StringInterpolation, env *Environment) (Value, error) {
	var out strings.Builder
	for _, part := range node.Parts {
		if part.Expr == nil {
			out.WriteString(part.Text)
			continue
		}
		v, err := Eval(part.Expr, env)
		if err != nil {
			return nil, err
		}
		s, err := formatWithSpec(v, part.Format)
		if err != nil {
			return nil, err
		}
		out.WriteString(s)
	}
	return &String{Value: out.String()}, nil
}

// formatSpec is a parsed `[[fill]align][+][0][width][.precision][type]`.
type formatSpec struct {
	fill      rune
	align     byte // '<', '>', '^' or 0 for the default
	plus      bool
	zero      bool
	width     int
	precision int // -1 when absent
	verb      string
}

func parseFormatSpec(spec string) (formatSpec, error) {
	fs := formatSpec{fill: ' ', precision: -1}
	s := spec
	if r, size := utf8.DecodeRuneInString(s); size > 0 && len(s) > size && strings.IndexByte("<>^", s[size]) >= 0 {
		fs.fill, fs.align = r, s[size]
		s = s[size+1:]
	} else if s != "" && strings.IndexByte("<>^", s[0]) >= 0 {
		fs.align = s[0]
		s = s[1:]
	}
	if strings.HasPrefix(s, "+") {
		fs.plus = true
		s = s[1:]
	}
	if strings.HasPrefix(s, "0") {
		fs.zero = true
		s = s[1:]
	}
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	if n > 0 {
		fs.width, _ = strconv.Atoi(s[:n])
		s = s[n:]
	}
	if strings.HasPrefix(s, ".") {
		s = s[1:]
		n = 0
		for n < len(s) && s[n] >= '0' && s[n] <= '9' {
			n++
		}
		if n == 0 {
			return fs, perrors.Runtime("invalid format spec %q", spec)
		}
		fs.precision, _ = strconv.Atoi(s[:n])
		s = s[n:]
	}
	switch s {
	case "", "?", "#?", "x", "X", "b", "o", "e":
		fs.verb = s
	default:
		return fs, perrors.Runtime("invalid format spec %q", spec)
	}
	return fs, nil
}

// formatWithSpec renders v under a placeholder spec such as ".2", ">8" or "?".
func formatWithSpec(v Value, spec string) (string, error) {
	if spec == "" {
		return Display(v), nil
	}
	fs, err := parseFormatSpec(spec)
	if err != nil {
		return "", err
	}

	var s string
	numeric := isNumber(v)
	switch fs.verb {
	case "?", "#?":
		s = v.Inspect()
	case "x", "X", "b", "o":
		i, ok := v.(*Integer)
		if !ok {
			return "", perrors.Runtime("format {:%s} needs an integer, got %s", fs.verb, TypeName(v))
		}
		base := map[string]int{"x": 16, "X": 16, "b": 2, "o": 8}[fs.verb]
		s = strconv.FormatInt(i.Value, base)
		if fs.verb == "X" {
			s = strings.ToUpper(s)
		}
	case "e":
		f, ok := toFloat(v)
		if !ok {
			return "", perrors.Runtime("format {:e} needs a number, got %s", TypeName(v))
		}
		s = strconv.FormatFloat(f, 'e', fs.precision, 64)
	default:
		switch {
		case fs.precision >= 0 && numeric:
			f, _ := toFloat(v)
			s = strconv.FormatFloat(f, 'f', fs.precision, 64)
		case fs.precision >= 0:
			s = Display(v)
			if r := []rune(s); len(r) > fs.precision {
				s = string(r[:fs.precision])
			}
		default:
			s = Display(v)
		}
	}

	if fs.plus && numeric && !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	pad := fs.width - utf8.RuneCountInString(s)
	if pad <= 0 {
		return s, nil
	}
	if fs.zero && numeric && fs.align == 0 {
		sign := ""
		if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
			sign, s = s[:1], s[1:]
		}
		return sign + strings.Repeat("0", pad) + s, nil
	}

	align := fs.align
	if align == 0 {
		align = '<'
		if numeric {
			align = '>'
		}
	}
	fill := string(fs.fill)
	switch align {
	case '>':
		return strings.Repeat(fill, pad) + s, nil
	case '^':
		left := pad / 2
		return strings.Repeat(fill, left) + s + strings.Repeat(fill, pad-left), nil
	}
	return s + strings.Repeat(fill, pad), nil
}
