package ruchy

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/evaluator"
)

func TestEvalString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"2 + 3 * 4", "14"},
		{"let x = 42; x + 1", "43"},
		{"fn fact(n) { if n<=1 {1} else {n*fact(n-1)} } fact(5)", "120"},
		{"let [a,b,c] = [1,2,3]; a+b+c", "6"},
	}
	for _, tt := range tests {
		got, err := EvalString(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, got, tt.input)
	}
}

func TestTranspile(t *testing.T) {
	code, err := Transpile("2 + 3 * 4")
	require.NoError(t, err)
	assert.Contains(t, code, "let result = 2 + 3 * 4;")

	_, errs := Parse("1 +")
	require.NotEmpty(t, errs)
	assert.True(t, errs[0].IsParseError())
}

func TestLoggers(t *testing.T) {
	buf := NewBufferedLogger()
	_, err := Eval(`print("a"); println("b", 1); println("c")`, evaluator.WithLogger(buf))
	require.NoError(t, err)
	assert.Equal(t, []string{"ab 1", "c"}, buf.Lines())
	assert.Equal(t, "ab 1\nc\n", buf.String())

	buf.Reset()
	assert.Empty(t, buf.String())

	var w bytes.Buffer
	tee := TeeLogger(WriterLogger(&w), buf, NullLogger())
	tee.LogLine("x", 2)
	assert.Equal(t, "x 2\n", w.String())
	assert.Equal(t, []string{"x 2"}, buf.Lines())
}
