package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestCatalogRendering(t *testing.T) {
	tests := []struct {
		code     string
		data     map[string]any
		kind     Kind
		expected string
	}{
		{"PARSE-0001", map[string]any{"Expected": "')'", "Got": "}"}, KindParse, "expected ')', got '}'"},
		{"UNDEF-0001", map[string]any{"Name": "foo"}, KindUndefinedVariable, "undefined variable: foo"},
		{"ARITY-0001", map[string]any{"Expected": "2", "Got": 3}, KindArity, "wrong number of arguments: expected 2, got 3"},
		{"OP-0001", nil, KindDivisionByZero, "division by zero"},
		{"INDEX-0001", map[string]any{"Index": int64(5), "Length": 3}, KindIndexOutOfBounds, "index 5 out of bounds for length 3"},
		{"TIMEOUT-0001", nil, KindTimeout, "evaluation timed out"},
	}

	for _, tt := range tests {
		err := New(tt.code, tt.data)
		if err.Message != tt.expected {
			t.Errorf("%s: expected %q, got %q", tt.code, tt.expected, err.Message)
		}
		if err.Kind != tt.kind {
			t.Errorf("%s: expected kind %s, got %s", tt.code, tt.kind, err.Kind)
		}
	}
}

func TestMissingTemplateDataRendersEmpty(t *testing.T) {
	err := New("UNDEF-0001", nil)
	if err.Message != "undefined variable: " {
		t.Errorf("unexpected message %q", err.Message)
	}
}

func TestUnknownCodeFallsBackToRuntime(t *testing.T) {
	err := New("NOPE-9999", map[string]any{"Message": "custom"})
	if err.Kind != KindRuntime || err.Message != "custom" {
		t.Errorf("unexpected fallback %+v", err)
	}
}

func TestImmutableAssignmentHint(t *testing.T) {
	err := ImmutableAssignment("x")
	if len(err.Hints) != 1 || err.Hints[0] != "declare it with 'let mut x'" {
		t.Errorf("unexpected hints %v", err.Hints)
	}
}

func TestUndefinedVariableSuggestion(t *testing.T) {
	err := UndefinedVariable("cuont", []string{"count", "total", "x"})
	if len(err.Hints) != 1 || !strings.Contains(err.Hints[0], "'count'") {
		t.Errorf("expected suggestion for count, got %v", err.Hints)
	}

	err = UndefinedVariable("zzz", []string{"count"})
	if len(err.Hints) != 0 {
		t.Errorf("expected no suggestion, got %v", err.Hints)
	}
}

func TestStringIncludesLocation(t *testing.T) {
	err := NewWithPosition("PARSE-0002", 3, 7, 40, map[string]any{"Token": ")"}).WithFile("main.ruchy")
	got := err.Error()
	if got != "main.ruchy: line 3, column 7: unexpected token ')'" {
		t.Errorf("unexpected string %q", got)
	}
	if !strings.HasPrefix(err.PrettyString(), "Parse error:\n  in: main.ruchy\n  at: line 3, column 7") {
		t.Errorf("unexpected pretty string %q", err.PrettyString())
	}
}

func TestIsAndKindOf(t *testing.T) {
	wrapped := fmt.Errorf("evaluating: %w", DivisionByZero())
	if !stderrors.Is(wrapped, &RuchyError{Kind: KindDivisionByZero}) {
		t.Error("expected errors.Is to match by kind")
	}
	if stderrors.Is(wrapped, &RuchyError{Kind: KindArity}) {
		t.Error("expected errors.Is not to match a different kind")
	}
	if KindOf(wrapped) != KindDivisionByZero {
		t.Errorf("expected DivisionByZero, got %s", KindOf(wrapped))
	}
	if KindOf(stderrors.New("plain")) != KindRuntime {
		t.Error("plain errors should report KindRuntime")
	}
}

func TestToJSON(t *testing.T) {
	data, err := TypeMismatch("+", "Integer", "String").ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["code"] != "TYPE-0001" || decoded["class"] != "type" {
		t.Errorf("unexpected JSON %s", data)
	}
}

func TestFindClosestMatch(t *testing.T) {
	tests := []struct {
		input      string
		candidates []string
		expected   string
	}{
		{"lenght", []string{"length", "len", "last"}, "length"},
		{"pritnln", []string{"println", "print"}, "println"},
		{"ab", []string{"xy"}, ""},
		{"", []string{"a"}, ""},
		{"same", []string{"same"}, ""},
	}
	for _, tt := range tests {
		if got := FindClosestMatch(tt.input, tt.candidates); got != tt.expected {
			t.Errorf("FindClosestMatch(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
