package replay

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recordedSession = `{
  "version": {"major": 1, "minor": 0, "patch": 0},
  "metadata": {
    "session_id": "test-001",
    "created_at": "2025-08-28T10:00:00Z",
    "ruchy_version": "1.0.0",
    "student_id": null,
    "assignment_id": null,
    "tags": []
  },
  "environment": {
    "seed": 0,
    "feature_flags": [],
    "resource_limits": {"heap_mb": 100, "stack_kb": 8192, "cpu_ms": 5000}
  },
  "timeline": [
    {"id": 1, "timestamp_ns": 1000, "event": {"Input": {"text": "2 + 2", "mode": "Interactive"}}, "causality": []},
    {"id": 2, "timestamp_ns": 2000, "event": {"Output": {"result": {"Success": {"value": "4"}}, "stdout": [], "stderr": []}}, "causality": [1]},
    {"id": 3, "timestamp_ns": 3000, "event": {"Input": {"text": "println(\"hi\")", "mode": "Interactive"}}, "causality": []},
    {"id": 4, "timestamp_ns": 4000, "event": {"Output": {"result": "Unit", "stdout": [104, 105, 10], "stderr": []}}, "causality": [3]},
    {"id": 5, "timestamp_ns": 5000, "event": {"Input": {"text": "undefined_var", "mode": "Interactive"}}, "causality": []},
    {"id": 6, "timestamp_ns": 6000, "event": {"Output": {"result": {"Error": {"message": "undefined variable: undefined_var"}}, "stdout": [], "stderr": []}}, "causality": [5]}
  ],
  "checkpoints": {
    "2": {"bindings": {"x": "42"}, "type_environment": {"x": "integer"}, "state_hash": "abc", "resource_usage": {"heap_bytes": 1024, "stack_depth": 1, "cpu_ns": 10}}
  }
}`

func decodeFixture(t *testing.T) *Session {
	t.Helper()
	s, err := Decode(strings.NewReader(recordedSession))
	require.NoError(t, err)
	return s
}

func TestDecodeSession(t *testing.T) {
	s := decodeFixture(t)

	assert.Equal(t, "1.0.0", s.Version.String())
	assert.Equal(t, "test-001", s.Metadata.SessionID)
	assert.Nil(t, s.Metadata.StudentID)
	assert.Equal(t, DefaultResourceLimits, s.Environment.ResourceLimits)
	require.Len(t, s.Timeline, 6)

	in := s.Timeline[0].Event.Input
	require.NotNil(t, in)
	assert.Equal(t, "2 + 2", in.Text)
	assert.Equal(t, ModeInteractive, in.Mode)

	out := s.Timeline[3].Event.Output
	require.NotNil(t, out)
	assert.Equal(t, ResultUnit, out.Result.Kind)
	assert.Equal(t, "hi\n", string(out.Stdout))

	errOut := s.Timeline[5].Event.Output
	assert.Equal(t, Failure("undefined variable: undefined_var"), errOut.Result)
	assert.Equal(t, []EventID{5}, s.Timeline[5].Causality)

	cp, ok := s.Checkpoints[2]
	require.True(t, ok)
	assert.Equal(t, "42", cp.Bindings["x"])
}

func TestEncodeKeepsWireFormat(t *testing.T) {
	s := decodeFixture(t)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, s))

	var generic map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &generic))
	timeline := generic["timeline"].([]any)
	first := timeline[0].(map[string]any)["event"].(map[string]any)
	assert.Contains(t, first, "Input")

	unit := timeline[3].(map[string]any)["event"].(map[string]any)["Output"].(map[string]any)
	assert.Equal(t, "Unit", unit["result"])
	assert.Equal(t, []any{104.0, 105.0, 10.0}, unit["stdout"])
	assert.Contains(t, generic["checkpoints"], "2")

	again, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

func TestDecodeRejectsBadEvents(t *testing.T) {
	tests := []string{
		`{"Input": {"text": "1"}, "Output": {"result": "Unit"}}`,
		`{"Bogus": {}}`,
		`{}`,
	}
	for _, input := range tests {
		var ev Event
		assert.Error(t, json.Unmarshal([]byte(input), &ev), input)
	}

	var r EvalResult
	assert.Error(t, json.Unmarshal([]byte(`"Nothing"`), &r))
	assert.Error(t, json.Unmarshal([]byte(`{}`), &r))
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder(NewMetadata("1.0.0", "demo"))
	in := rec.RecordInput("let x = 42", ModeInteractive)
	out := rec.RecordOutput(in, Unit(), nil, nil)
	in2 := rec.RecordInput("x + 1", ModeInteractive)
	rec.RecordOutput(in2, Success("43"), []byte{}, nil)
	rec.RecordStateChange(in, map[string]string{"x": "42"}, "h1")
	rec.AddCheckpoint(out, StateCheckpoint{Bindings: map[string]string{"x": "42"}})

	assert.Equal(t, EventID(1), in)
	assert.Equal(t, EventID(2), out)
	assert.Equal(t, 5, rec.Len())

	s := rec.Session()
	assert.Equal(t, FormatVersion, s.Version)
	assert.Len(t, s.Metadata.SessionID, 36)
	assert.Equal(t, []string{"demo"}, s.Metadata.Tags)
	assert.Equal(t, uint64(0), s.Environment.Seed)
	assert.Equal(t, DefaultResourceLimits, s.Environment.ResourceLimits)

	for i, ev := range s.Timeline {
		assert.Equal(t, EventID(i+1), ev.ID)
		if i > 0 {
			assert.GreaterOrEqual(t, ev.TimestampNs, s.Timeline[i-1].TimestampNs)
		}
	}
	assert.Equal(t, []EventID{1}, s.Timeline[1].Causality)
	assert.Empty(t, s.Timeline[0].Causality)
	assert.Contains(t, s.Checkpoints, EventID(2))

	pairs := s.Pairs()
	require.Len(t, pairs, 2)
	assert.Equal(t, "x + 1", pairs[1].Input.Text)
	assert.Equal(t, Success("43"), pairs[1].Output.Result)
}

func TestSaveAndLoad(t *testing.T) {
	s := decodeFixture(t)
	dir := t.TempDir()

	for _, name := range []string{"plain.json", "packed.json.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, Save(path, s))
			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, s, loaded)
		})
	}

	raw, err := os.ReadFile(filepath.Join(dir, "packed.json.zst"))
	require.NoError(t, err)
	assert.False(t, json.Valid(raw), "compressed file should not be plain JSON")

	paths, err := ListSessions(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "packed.json.zst"), filepath.Join(dir, "plain.json")}, paths)
	assert.Equal(t, "packed", SessionName(paths[0]))

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConvertSession(t *testing.T) {
	c := NewConverter(DefaultConversionConfig())
	tests := c.ConvertSession(decodeFixture(t), "basic-session")

	var names []string
	for _, gt := range tests {
		names = append(names, gt.Name)
	}
	assert.Equal(t, []string{
		"test_basic_session_001",
		"test_basic_session_002",
		"test_basic_session_003",
		"test_basic_session_session_integration",
		"test_basic_session_determinism_property",
		"test_basic_session_memory_bounds",
		"test_basic_session_005_error_handling",
	}, names)

	unit := tests[0]
	assert.Equal(t, CategoryUnit, unit.Category)
	assert.Contains(t, unit.Code, `let result = repl.eval("2 + 2");`)
	assert.Contains(t, unit.Code, `assert_eq!(result.ok(), Some("4".to_string()));`)

	printTest := tests[1]
	assert.Contains(t, printTest.Code, `repl.eval("println(\"hi\")")`)
	assert.Contains(t, printTest.Code, "result.unwrap().is_empty()")

	errTest := tests[6]
	assert.Equal(t, CategoryErrorHandling, errTest.Category)
	assert.Contains(t, errTest.Code, `contains("undefined variable: undefined_var")`)
	assert.Contains(t, errTest.Code, `repl.eval("2 + 2")`)

	integration := tests[3]
	assert.Equal(t, CategoryIntegration, integration.Category)
	assert.Contains(t, integration.CoverageAreas, "session_state")
	assert.Contains(t, integration.Code, "let result_4 = repl.eval(")
}

func TestConvertOptionalCategories(t *testing.T) {
	c := NewConverter(ConversionConfig{IncludeBenchmarks: true})
	tests := c.ConvertSession(decodeFixture(t), "s")

	var cats []Category
	for _, gt := range tests {
		cats = append(cats, gt.Category)
	}
	assert.NotContains(t, cats, CategoryProperty)
	assert.Equal(t, CategoryBenchmark, tests[len(tests)-1].Category)
	assert.Equal(t, "bench_s_session", tests[len(tests)-1].Name)
}

func TestWriteTests(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(filepath.Join(dir, "a.json"), decodeFixture(t)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))

	c := NewConverter(DefaultConversionConfig())
	tests, err := c.ConvertDirectory(dir)
	require.NoError(t, err)
	require.Len(t, tests, 7)

	out := filepath.Join(dir, "generated", "replay_tests.rs")
	require.NoError(t, c.WriteTests(tests, out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	code := string(data)

	assert.Contains(t, code, "mod replay_generated {")
	assert.Contains(t, code, "// Unit Tests (3)")
	assert.Contains(t, code, "// Integration Tests (1)")
	assert.Contains(t, code, "// Property Tests (2)")
	assert.Contains(t, code, "// ErrorHandling Tests (1)")
	assert.NotContains(t, code, "Benchmark Tests")
	assert.Less(t, strings.Index(code, "Unit Tests"), strings.Index(code, "ErrorHandling Tests"))
	assert.Equal(t, strings.Count(code, "{"), strings.Count(code, "}"))
}

func TestCoverageAreas(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"let x = 42", []string{"variable_binding"}},
		{"xs.map(|y| y * 2)", []string{"lambda_expressions", "higher_order_functions"}},
		{"[1, 2, 3]", []string{"array_operations"}},
		{"user?.name", []string{"optional_chaining"}},
		{`match x { 1 => "one" }`, []string{"pattern_matching"}},
		{":help", []string{"repl_commands"}},
	}
	for _, tt := range tests {
		areas := CoverageAreas(tt.input)
		for _, want := range tt.expected {
			assert.Contains(t, areas, want, tt.input)
		}
	}
	assert.Empty(t, CoverageAreas("42"))
}

type fakeEvaluator map[string]string

func (f fakeEvaluator) Eval(line string) (string, error) {
	v, ok := f[line]
	if !ok {
		return "", errors.New("undefined variable: " + line)
	}
	return v, nil
}

func TestValidate(t *testing.T) {
	s := decodeFixture(t)

	report := Validate(s, fakeEvaluator{"2 + 2": "4", `println("hi")`: ""})
	assert.True(t, report.Passed(), "%v", report.Divergences)
	assert.Equal(t, 3, report.SuccessfulEvents)
	assert.Equal(t, 6, report.TotalEvents)

	report = Validate(s, fakeEvaluator{"2 + 2": "5", `println("hi")`: ""})
	require.Len(t, report.Divergences, 1)
	d := report.Divergences[0]
	assert.Equal(t, EventID(1), d.Event)
	assert.Equal(t, Success("5"), d.Actual)
	assert.Contains(t, d.String(), "expected 4, got 5")
}

func TestRustString(t *testing.T) {
	assert.Equal(t, `"a\"b\\c\nd"`, rustString("a\"b\\c\nd"))
	assert.Equal(t, `"\u{1b}"`, rustString("\x1b"))
	assert.Equal(t, "my_session_1", sanitizeIdent("my-session.1"))
}
