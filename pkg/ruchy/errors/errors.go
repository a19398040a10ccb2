// Package errors provides the structured error type shared by the Ruchy
// parser and interpreter.
//
// Every language-level failure is a *RuchyError. The Kind field is the closed
// taxonomy callers switch on; Class and Code exist for display, filtering and
// the message catalog.
package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and display.
type ErrorClass string

const (
	ClassParse     ErrorClass = "parse"     // Lexer/parser diagnostics
	ClassType      ErrorClass = "type"      // Operand kinds do not fit the operator
	ClassArity     ErrorClass = "arity"     // Wrong argument count
	ClassUndefined ErrorClass = "undefined" // Names, fields and methods that do not exist
	ClassIndex     ErrorClass = "index"     // Out of bounds
	ClassOperator  ErrorClass = "operator"  // Invalid arithmetic
	ClassMatch     ErrorClass = "match"     // Pattern matching failures
	ClassState     ErrorClass = "state"     // Mutability violations
	ClassDatabase  ErrorClass = "database"  // read_sql connection and query failures
	ClassTranspile ErrorClass = "transpile" // Constructs with no Rust rendering
	ClassRuntime   ErrorClass = "runtime"   // Everything else
)

// Kind is the closed set of error variants the core reports.
type Kind int

const (
	KindParse Kind = iota
	KindUndefinedVariable
	KindNotCallable
	KindArity
	KindTypeMismatch
	KindDivisionByZero
	KindIndexOutOfBounds
	KindNonExhaustiveMatch
	KindPatternBindingMismatch
	KindFieldNotFound
	KindImmutableAssignment
	KindRuntime
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "ParseError"
	case KindUndefinedVariable:
		return "UndefinedVariable"
	case KindNotCallable:
		return "NotCallable"
	case KindArity:
		return "ArityError"
	case KindTypeMismatch:
		return "TypeMismatch"
	case KindDivisionByZero:
		return "DivisionByZero"
	case KindIndexOutOfBounds:
		return "IndexOutOfBounds"
	case KindNonExhaustiveMatch:
		return "NonExhaustiveMatch"
	case KindPatternBindingMismatch:
		return "PatternBindingMismatch"
	case KindFieldNotFound:
		return "FieldNotFound"
	case KindImmutableAssignment:
		return "ImmutableAssignment"
	case KindRuntime:
		return "RuntimeError"
	case KindTimeout:
		return "Timeout"
	default:
		return "UnknownError"
	}
}

// RuchyError represents any error from lexing, parsing or evaluation.
type RuchyError struct {
	Class   ErrorClass     `json:"class"`
	Kind    Kind           `json:"-"`
	Code    string         `json:"code"`            // e.g. "PARSE-0001"
	Message string         `json:"message"`         // Human-readable message
	Hints   []string       `json:"hints,omitempty"` // Suggestions for fixing
	Line    int            `json:"line"`            // 1-based line (0 if unknown)
	Column  int            `json:"column"`          // 1-based column (0 if unknown)
	Offset  int            `json:"offset"`          // byte offset into the source
	File    string         `json:"file,omitempty"`
	Data    map[string]any `json:"data,omitempty"` // Template variables
}

// Error implements the error interface.
func (e *RuchyError) Error() string {
	return e.String()
}

// String returns a single-line representation with location prefix and hints.
func (e *RuchyError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line form for terminals.
func (e *RuchyError) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassParse:
		sb.WriteString("Parse error")
	default:
		sb.WriteString("Runtime error")
	}

	if e.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.File)
		if e.Line > 0 {
			sb.WriteString(fmt.Sprintf("\n  at: line %d, column %d", e.Line, e.Column))
		}
		sb.WriteString("\n  ")
	} else if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", e.Line, e.Column))
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  hint: ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *RuchyError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithFile returns a copy of the error with the file path set.
func (e *RuchyError) WithFile(file string) *RuchyError {
	copy := *e
	copy.File = file
	return &copy
}

// WithPosition returns a copy of the error with line and column set.
func (e *RuchyError) WithPosition(line, column int) *RuchyError {
	copy := *e
	copy.Line = line
	copy.Column = column
	return &copy
}

// IsParseError reports whether e came from the lexer or parser.
func (e *RuchyError) IsParseError() bool {
	return e.Kind == KindParse
}

// Is matches another *RuchyError by Kind, so errors.Is(err, &RuchyError{Kind: k})
// works as a kind test.
func (e *RuchyError) Is(target error) bool {
	t, ok := target.(*RuchyError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// KindOf returns the Kind of the first *RuchyError in err's chain.
// Errors that are not language errors report KindRuntime.
func KindOf(err error) Kind {
	var re *RuchyError
	if stderrors.As(err, &re) {
		return re.Kind
	}
	return KindRuntime
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass
	Kind     Kind
	Template string   // Message template with {{.placeholders}}
	Hints    []string // Hint templates
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// Lexer and parser
	"PARSE-0001": {Class: ClassParse, Kind: KindParse, Template: "expected {{.Expected}}, got '{{.Got}}'"},
	"PARSE-0002": {Class: ClassParse, Kind: KindParse, Template: "unexpected token '{{.Token}}'"},
	"PARSE-0003": {Class: ClassParse, Kind: KindParse, Template: "'{{.Token}}' cannot start an expression"},
	"PARSE-0004": {Class: ClassParse, Kind: KindParse, Template: "unterminated string literal"},
	"PARSE-0005": {Class: ClassParse, Kind: KindParse, Template: "invalid number literal: {{.Literal}}"},
	"PARSE-0006": {Class: ClassParse, Kind: KindParse, Template: "invalid escape sequence: {{.Literal}}"},
	"PARSE-0007": {Class: ClassParse, Kind: KindParse, Template: "invalid token '{{.Literal}}'"},
	"PARSE-0008": {Class: ClassParse, Kind: KindParse, Template: "unterminated block comment"},
	"PARSE-0009": {Class: ClassParse, Kind: KindParse, Template: "empty input"},
	"PARSE-0010": {
		Class:    ClassParse,
		Kind:     KindParse,
		Template: "invalid assignment target: {{.Target}}",
		Hints:    []string{"only names, fields and indexes can be assigned"},
	},
	"PARSE-0011": {Class: ClassParse, Kind: KindParse, Template: "invalid pattern: {{.Pattern}}"},
	"PARSE-0012": {Class: ClassParse, Kind: KindParse, Template: "invalid character literal: {{.Literal}}"},
	"PARSE-0013": {
		Class:    ClassParse,
		Kind:     KindParse,
		Template: "duplicate binding '{{.Name}}' in pattern",
	},
	"PARSE-0014": {
		Class:    ClassParse,
		Kind:     KindParse,
		Template: "comparison operators cannot be chained",
		Hints:    []string{"combine comparisons with &&, e.g. a < b && b < c"},
	},

	// Names
	"UNDEF-0001": {Class: ClassUndefined, Kind: KindUndefinedVariable, Template: "undefined variable: {{.Name}}"},
	"UNDEF-0002": {Class: ClassUndefined, Kind: KindFieldNotFound, Template: "field '{{.Name}}' not found"},
	"UNDEF-0003": {Class: ClassUndefined, Kind: KindRuntime, Template: "unknown method '{{.Method}}' for {{.Type}}"},

	// Calls
	"CALL-0001":  {Class: ClassType, Kind: KindNotCallable, Template: "{{.Value}} is not callable"},
	"ARITY-0001": {Class: ClassArity, Kind: KindArity, Template: "wrong number of arguments: expected {{.Expected}}, got {{.Got}}"},

	// Types and operators
	"TYPE-0001": {Class: ClassType, Kind: KindTypeMismatch, Template: "type mismatch: cannot apply '{{.Op}}' to {{.Left}} and {{.Right}}"},
	"TYPE-0002": {Class: ClassType, Kind: KindTypeMismatch, Template: "type mismatch: cannot apply unary '{{.Op}}' to {{.Left}}"},
	"OP-0001":   {Class: ClassOperator, Kind: KindDivisionByZero, Template: "division by zero"},

	// Indexing and matching
	"INDEX-0001": {Class: ClassIndex, Kind: KindIndexOutOfBounds, Template: "index {{.Index}} out of bounds for length {{.Length}}"},
	"MATCH-0001": {Class: ClassMatch, Kind: KindNonExhaustiveMatch, Template: "non-exhaustive match: no arm matched {{.Value}}"},
	"MATCH-0002": {Class: ClassMatch, Kind: KindPatternBindingMismatch, Template: "pattern does not match value {{.Value}}"},

	// State
	"STATE-0001": {
		Class:    ClassState,
		Kind:     KindImmutableAssignment,
		Template: "cannot assign to immutable binding '{{.Name}}'",
		Hints:    []string{"declare it with 'let mut {{.Name}}'"},
	},

	// Database
	"DB-0001": {
		Class:    ClassDatabase,
		Kind:     KindRuntime,
		Template: "unsupported database driver '{{.Driver}}'",
		Hints:    []string{"use one of: sqlite, postgres, mysql"},
	},
	"DB-0002": {Class: ClassDatabase, Kind: KindRuntime, Template: "cannot connect to {{.Driver}} database: {{.GoError}}"},
	"DB-0003": {Class: ClassDatabase, Kind: KindRuntime, Template: "query failed: {{.GoError}}"},
	"DB-0004": {
		Class:    ClassDatabase,
		Kind:     KindRuntime,
		Template: "query returned more than {{.Limit}} rows",
		Hints:    []string{"add a LIMIT clause or raise dataframe.sql_max_rows"},
	},

	// Transpiler
	"TRANS-0001": {
		Class:    ClassTranspile,
		Kind:     KindRuntime,
		Template: "{{.Construct}} cannot be transpiled to Rust yet",
		Hints:    []string{"run the program with the interpreter instead"},
	},
	"TRANS-0002": {Class: ClassTranspile, Kind: KindRuntime, Template: "invalid {{.Construct}}: {{.Message}}"},

	// Catch-alls
	"RUNTIME-0001": {Class: ClassRuntime, Kind: KindRuntime, Template: "{{.Message}}"},
	"TIMEOUT-0001": {Class: ClassRuntime, Kind: KindTimeout, Template: "evaluation timed out"},
}

// New creates a RuchyError from a catalog code and template data.
func New(code string, data map[string]any) *RuchyError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["Message"].(string); ok {
				msg = m
			}
		}
		return &RuchyError{
			Class:   ClassRuntime,
			Kind:    KindRuntime,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		if rendered := renderTemplate(hintTmpl, data); rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &RuchyError{
		Class:   def.Class,
		Kind:    def.Kind,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewWithPosition creates a RuchyError with location information.
func NewWithPosition(code string, line, column, offset int, data map[string]any) *RuchyError {
	err := New(code, data)
	err.Line = line
	err.Column = column
	err.Offset = offset
	return err
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		data = map[string]any{}
	}
	tmpl, err := template.New("").Option("missingkey=zero").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}
	return strings.ReplaceAll(buf.String(), "<no value>", "")
}

// Runtime creates a catch-all RuntimeError with a formatted message.
func Runtime(format string, args ...any) *RuchyError {
	return New("RUNTIME-0001", map[string]any{"Message": fmt.Sprintf(format, args...)})
}

// UndefinedVariable creates an undefined-name error, suggesting the closest
// candidate when one is near enough.
func UndefinedVariable(name string, candidates []string) *RuchyError {
	err := New("UNDEF-0001", map[string]any{"Name": name})
	if match := FindClosestMatch(name, candidates); match != "" {
		err.Hints = append(err.Hints, fmt.Sprintf("did you mean '%s'?", match))
	}
	return err
}

// FieldNotFound creates a missing-field error.
func FieldNotFound(name string) *RuchyError {
	return New("UNDEF-0002", map[string]any{"Name": name})
}

// UnknownMethod creates an unknown-method error with a suggestion.
func UnknownMethod(method, typeName string, available []string) *RuchyError {
	err := New("UNDEF-0003", map[string]any{"Method": method, "Type": typeName})
	if match := FindClosestMatch(method, available); match != "" {
		err.Hints = append(err.Hints, fmt.Sprintf("did you mean '%s'?", match))
	}
	return err
}

// NotCallable reports an attempt to call a non-function value.
func NotCallable(value string) *RuchyError {
	return New("CALL-0001", map[string]any{"Value": value})
}

// Arity reports an argument count mismatch.
func Arity(expected string, got int) *RuchyError {
	return New("ARITY-0001", map[string]any{"Expected": expected, "Got": got})
}

// TypeMismatch reports an operator applied to incompatible operand kinds.
func TypeMismatch(op, left, right string) *RuchyError {
	return New("TYPE-0001", map[string]any{"Op": op, "Left": left, "Right": right})
}

// UnaryTypeMismatch reports a unary operator applied to an unsupported kind.
func UnaryTypeMismatch(op, operand string) *RuchyError {
	return New("TYPE-0002", map[string]any{"Op": op, "Left": operand})
}

// DivisionByZero reports integer division or remainder by zero.
func DivisionByZero() *RuchyError {
	return New("OP-0001", nil)
}

// IndexOutOfBounds reports an index outside [0, length).
func IndexOutOfBounds(index int64, length int) *RuchyError {
	return New("INDEX-0001", map[string]any{"Index": index, "Length": length})
}

// NonExhaustiveMatch reports a match with no applicable arm.
func NonExhaustiveMatch(scrutinee string) *RuchyError {
	return New("MATCH-0001", map[string]any{"Value": scrutinee})
}

// PatternBindingMismatch reports a refutable pattern in a binding position.
func PatternBindingMismatch(value string) *RuchyError {
	return New("MATCH-0002", map[string]any{"Value": value})
}

// ImmutableAssignment reports assignment to a binding declared without mut.
func ImmutableAssignment(name string) *RuchyError {
	return New("STATE-0001", map[string]any{"Name": name})
}

// Unsupported reports a construct the transpiler has no Rust rendering for.
func Unsupported(construct string) *RuchyError {
	return New("TRANS-0001", map[string]any{"Construct": construct})
}

// InvalidConstruct reports a construct whose shape cannot be lowered.
func InvalidConstruct(construct, format string, args ...any) *RuchyError {
	return New("TRANS-0002", map[string]any{"Construct": construct, "Message": fmt.Sprintf(format, args...)})
}

// Timeout reports an evaluation cancelled by the host.
func Timeout() *RuchyError {
	return New("TIMEOUT-0001", nil)
}

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// FindClosestMatch returns the candidate nearest to input, or "" when nothing
// is within a length-dependent threshold.
func FindClosestMatch(input string, candidates []string) string {
	if input == "" || len(candidates) == 0 {
		return ""
	}

	threshold := 2
	if len(input) <= 3 {
		threshold = 1
	} else if len(input) > 8 {
		threshold = 3
	}

	best := ""
	bestDist := threshold + 1
	for _, c := range candidates {
		if c == input {
			continue
		}
		d := levenshteinDistance(strings.ToLower(input), strings.ToLower(c))
		if d < bestDist || (d == bestDist && best != "" && c < best) {
			best = c
			bestDist = d
		}
	}
	if bestDist > threshold {
		return ""
	}
	return best
}
