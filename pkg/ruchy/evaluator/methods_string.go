package evaluator

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// StringMethodRegistry defines all methods available on string values.
// Initialized in init() to avoid an initialization cycle.
var StringMethodRegistry MethodRegistry

func init() {
	StringMethodRegistry = MethodRegistry{
		"len":          {Fn: stringLen, Arity: "0", Description: "Get character count"},
		"length":       {Fn: stringLen, Arity: "0", Description: "Get character count"},
		"is_empty":     {Fn: stringIsEmpty, Arity: "0", Description: "Check for the empty string"},
		"upper":        {Fn: stringUpper, Arity: "0", Description: "Convert to uppercase"},
		"to_upper":     {Fn: stringUpper, Arity: "0", Description: "Convert to uppercase"},
		"to_uppercase": {Fn: stringUpper, Arity: "0", Description: "Convert to uppercase"},
		"lower":        {Fn: stringLower, Arity: "0", Description: "Convert to lowercase"},
		"to_lower":     {Fn: stringLower, Arity: "0", Description: "Convert to lowercase"},
		"to_lowercase": {Fn: stringLower, Arity: "0", Description: "Convert to lowercase"},
		"title":        {Fn: stringTitle, Arity: "0", Description: "Capitalize the first letter of each word"},
		"trim":         {Fn: stringTrim, Arity: "0", Description: "Remove leading/trailing whitespace"},
		"trim_start":   {Fn: stringTrimStart, Arity: "0", Description: "Remove leading whitespace"},
		"trim_end":     {Fn: stringTrimEnd, Arity: "0", Description: "Remove trailing whitespace"},
		"split":        {Fn: stringSplit, Arity: "0-1", Description: "Split by delimiter (whitespace by default) into a list"},
		"lines":        {Fn: stringLines, Arity: "0", Description: "Split into lines"},
		"chars":        {Fn: stringChars, Arity: "0", Description: "List of characters"},
		"bytes":        {Fn: stringBytes, Arity: "0", Description: "List of UTF-8 bytes"},
		"contains":     {Fn: stringContains, Arity: "1", Description: "Check if contains substring"},
		"includes":     {Fn: stringContains, Arity: "1", Description: "Check if contains substring"},
		"starts_with":  {Fn: stringStartsWith, Arity: "1", Description: "Check prefix"},
		"ends_with":    {Fn: stringEndsWith, Arity: "1", Description: "Check suffix"},
		"find":         {Fn: stringFind, Arity: "1", Description: "Character index of a substring as an Option"},
		"replace":      {Fn: stringReplace, Arity: "2", Description: "Replace all occurrences"},
		"repeat":       {Fn: stringRepeat, Arity: "1", Description: "Repeat n times"},
		"reverse":      {Fn: stringReverse, Arity: "0", Description: "Reverse the characters"},
		"substring":    {Fn: stringSubstring, Arity: "1-2", Description: "Characters from start up to end"},
		"slice":        {Fn: stringSubstring, Arity: "1-2", Description: "Characters from start up to end"},
		"char_at":      {Fn: stringCharAt, Arity: "1", Description: "Character at an index as an Option"},
		"pad_start":    {Fn: stringPadStart, Arity: "1-2", Description: "Left-pad to a width"},
		"pad_end":      {Fn: stringPadEnd, Arity: "1-2", Description: "Right-pad to a width"},
		"to_string":    {Fn: stringToString, Arity: "0", Description: "The string itself"},
		"to_int":       {Fn: stringToInt, Arity: "0", Description: "Parse as an integer"},
		"parse_int":    {Fn: stringToInt, Arity: "0", Description: "Parse as an integer"},
		"to_float":     {Fn: stringToFloat, Arity: "0", Description: "Parse as a float"},
		"parse_float":  {Fn: stringToFloat, Arity: "0", Description: "Parse as a float"},
	}
	RegisterMethodRegistry(STRING_VAL, StringMethodRegistry)
}

func stringArg(args []Value, i int, method string) (string, error) {
	switch v := args[i].(type) {
	case *String:
		return v.Value, nil
	case *Char:
		return string(v.Value), nil
	}
	return "", perrors.TypeMismatch(method, STRING_VAL, TypeName(args[i]))
}

func intArg(args []Value, i int, method string) (int64, error) {
	if v, ok := args[i].(*Integer); ok {
		return v.Value, nil
	}
	return 0, perrors.TypeMismatch(method, INTEGER_VAL, TypeName(args[i]))
}

func stringsToList(parts []string) *List {
	elems := make([]Value, len(parts))
	for i, p := range parts {
		elems[i] = &String{Value: p}
	}
	return &List{Elements: elems}
}

func stringLen(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return &Integer{Value: int64(len([]rune(receiver.(*String).Value)))}, nil
}

func stringIsEmpty(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return nativeBoolToBool(receiver.(*String).Value == ""), nil
}

func stringUpper(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return &String{Value: cases.Upper(language.Und).String(receiver.(*String).Value)}, nil
}

func stringLower(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return &String{Value: cases.Lower(language.Und).String(receiver.(*String).Value)}, nil
}

func stringTitle(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return &String{Value: cases.Title(language.Und).String(receiver.(*String).Value)}, nil
}

func stringTrim(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return &String{Value: strings.TrimSpace(receiver.(*String).Value)}, nil
}

func stringTrimStart(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return &String{Value: strings.TrimLeftFunc(receiver.(*String).Value, unicode.IsSpace)}, nil
}

func stringTrimEnd(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return &String{Value: strings.TrimRightFunc(receiver.(*String).Value, unicode.IsSpace)}, nil
}

func stringSplit(receiver Value, args []Value, _ *Environment) (Value, error) {
	s := receiver.(*String).Value
	if len(args) == 0 {
		return stringsToList(strings.Fields(s)), nil
	}
	sep, err := stringArg(args, 0, "split")
	if err != nil {
		return nil, err
	}
	return stringsToList(strings.Split(s, sep)), nil
}

func stringLines(receiver Value, _ []Value, _ *Environment) (Value, error) {
	s := strings.TrimSuffix(receiver.(*String).Value, "\n")
	if s == "" {
		return &List{}, nil
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return stringsToList(lines), nil
}

func stringChars(receiver Value, _ []Value, _ *Environment) (Value, error) {
	elems, _ := iterableValues(receiver)
	return &List{Elements: elems}, nil
}

func stringBytes(receiver Value, _ []Value, _ *Environment) (Value, error) {
	s := receiver.(*String).Value
	elems := make([]Value, len(s))
	for i := 0; i < len(s); i++ {
		elems[i] = &Integer{Value: int64(s[i])}
	}
	return &List{Elements: elems}, nil
}

func stringContains(receiver Value, args []Value, _ *Environment) (Value, error) {
	sub, err := stringArg(args, 0, "contains")
	if err != nil {
		return nil, err
	}
	return nativeBoolToBool(strings.Contains(receiver.(*String).Value, sub)), nil
}

func stringStartsWith(receiver Value, args []Value, _ *Environment) (Value, error) {
	prefix, err := stringArg(args, 0, "starts_with")
	if err != nil {
		return nil, err
	}
	return nativeBoolToBool(strings.HasPrefix(receiver.(*String).Value, prefix)), nil
}

func stringEndsWith(receiver Value, args []Value, _ *Environment) (Value, error) {
	suffix, err := stringArg(args, 0, "ends_with")
	if err != nil {
		return nil, err
	}
	return nativeBoolToBool(strings.HasSuffix(receiver.(*String).Value, suffix)), nil
}

func stringFind(receiver Value, args []Value, _ *Environment) (Value, error) {
	sub, err := stringArg(args, 0, "find")
	if err != nil {
		return nil, err
	}
	s := receiver.(*String).Value
	i := strings.Index(s, sub)
	if i < 0 {
		return None, nil
	}
	return Some(&Integer{Value: int64(len([]rune(s[:i])))}), nil
}

func stringReplace(receiver Value, args []Value, _ *Environment) (Value, error) {
	from, err := stringArg(args, 0, "replace")
	if err != nil {
		return nil, err
	}
	to, err := stringArg(args, 1, "replace")
	if err != nil {
		return nil, err
	}
	return &String{Value: strings.ReplaceAll(receiver.(*String).Value, from, to)}, nil
}

func stringRepeat(receiver Value, args []Value, _ *Environment) (Value, error) {
	n, err := intArg(args, 0, "repeat")
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, perrors.Runtime("repeat count must not be negative, got %d", n)
	}
	return &String{Value: strings.Repeat(receiver.(*String).Value, int(n))}, nil
}

func stringReverse(receiver Value, _ []Value, _ *Environment) (Value, error) {
	runes := []rune(receiver.(*String).Value)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return &String{Value: string(runes)}, nil
}

func stringSubstring(receiver Value, args []Value, _ *Environment) (Value, error) {
	var end Value
	if len(args) > 1 {
		end = args[1]
	}
	return sliceValue(receiver, args[0], end, false)
}

func stringCharAt(receiver Value, args []Value, _ *Environment) (Value, error) {
	i, err := intArg(args, 0, "char_at")
	if err != nil {
		return nil, err
	}
	runes := []rune(receiver.(*String).Value)
	if i < 0 || i >= int64(len(runes)) {
		return None, nil
	}
	return Some(&Char{Value: runes[i]}), nil
}

func padArgs(args []Value, method string) (int, string, error) {
	width, err := intArg(args, 0, method)
	if err != nil {
		return 0, "", err
	}
	fill := " "
	if len(args) > 1 {
		if fill, err = stringArg(args, 1, method); err != nil {
			return 0, "", err
		}
		if fill == "" {
			return 0, "", perrors.Runtime("%s fill must not be empty", method)
		}
	}
	return int(width), fill, nil
}

func padding(s string, width int, fill string) string {
	n := width - len([]rune(s))
	if n <= 0 {
		return ""
	}
	out := strings.Repeat(fill, n/len([]rune(fill))+1)
	return string([]rune(out)[:n])
}

func stringPadStart(receiver Value, args []Value, _ *Environment) (Value, error) {
	width, fill, err := padArgs(args, "pad_start")
	if err != nil {
		return nil, err
	}
	s := receiver.(*String).Value
	return &String{Value: padding(s, width, fill) + s}, nil
}

func stringPadEnd(receiver Value, args []Value, _ *Environment) (Value, error) {
	width, fill, err := padArgs(args, "pad_end")
	if err != nil {
		return nil, err
	}
	s := receiver.(*String).Value
	return &String{Value: s + padding(s, width, fill)}, nil
}

func stringToString(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return receiver, nil
}

func stringToInt(receiver Value, _ []Value, _ *Environment) (Value, error) {
	s := strings.TrimSpace(receiver.(*String).Value)
	n, err := strconv.ParseInt(strings.ReplaceAll(s, "_", ""), 10, 64)
	if err != nil {
		return nil, perrors.Runtime("cannot parse %q as an integer", s)
	}
	return &Integer{Value: n}, nil
}

func stringToFloat(receiver Value, _ []Value, _ *Environment) (Value, error) {
	s := strings.TrimSpace(receiver.(*String).Value)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, perrors.Runtime("cannot parse %q as a float", s)
	}
	return &Float{Value: f}, nil
}

// CharMethodRegistry defines all methods available on char values.
var CharMethodRegistry MethodRegistry

func init() {
	CharMethodRegistry = MethodRegistry{
		"is_alphabetic":   {Fn: charPredicate(unicode.IsLetter), Arity: "0", Description: "Check for a letter"},
		"is_numeric":      {Fn: charPredicate(unicode.IsNumber), Arity: "0", Description: "Check for a numeric character"},
		"is_digit":        {Fn: charPredicate(unicode.IsDigit), Arity: "0", Description: "Check for a decimal digit"},
		"is_alphanumeric": {Fn: charPredicate(func(r rune) bool { return unicode.IsLetter(r) || unicode.IsNumber(r) }), Arity: "0", Description: "Check for a letter or number"},
		"is_whitespace":   {Fn: charPredicate(unicode.IsSpace), Arity: "0", Description: "Check for whitespace"},
		"is_uppercase":    {Fn: charPredicate(unicode.IsUpper), Arity: "0", Description: "Check for an uppercase letter"},
		"is_lowercase":    {Fn: charPredicate(unicode.IsLower), Arity: "0", Description: "Check for a lowercase letter"},
		"to_uppercase":    {Fn: charMap(unicode.ToUpper), Arity: "0", Description: "Convert to uppercase"},
		"to_lowercase":    {Fn: charMap(unicode.ToLower), Arity: "0", Description: "Convert to lowercase"},
		"to_digit":        {Fn: charToDigit, Arity: "0-1", Description: "Digit value in a radix as an Option"},
		"to_string":       {Fn: charToString, Arity: "0", Description: "One-character string"},
	}
	RegisterMethodRegistry(CHAR_VAL, CharMethodRegistry)
}

func charPredicate(pred func(rune) bool) MethodFunc {
	return func(receiver Value, _ []Value, _ *Environment) (Value, error) {
		return nativeBoolToBool(pred(receiver.(*Char).Value)), nil
	}
}

func charMap(fn func(rune) rune) MethodFunc {
	return func(receiver Value, _ []Value, _ *Environment) (Value, error) {
		return &Char{Value: fn(receiver.(*Char).Value)}, nil
	}
}

func charToDigit(receiver Value, args []Value, _ *Environment) (Value, error) {
	radix := int64(10)
	if len(args) == 1 {
		var err error
		if radix, err = intArg(args, 0, "to_digit"); err != nil {
			return nil, err
		}
	}
	n, err := strconv.ParseInt(string(receiver.(*Char).Value), int(radix), 64)
	if err != nil {
		return None, nil
	}
	return Some(&Integer{Value: n}), nil
}

func charToString(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return &String{Value: string(receiver.(*Char).Value)}, nil
}
