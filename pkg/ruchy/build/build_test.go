package build

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/rustfmt"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestTranspileAllIncremental(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	writeFile(t, filepath.Join(src, "main.ruchy"), "fn double(x) { x * 2 }\nfn triple(x) { x * 3 }\ndouble(triple(2))\n")
	writeFile(t, filepath.Join(src, "lib", "math.ruchy"), "fn square(x) { x * x }\nsquare(4)\n")
	writeFile(t, filepath.Join(src, "notes.txt"), "not source")

	ctx := context.Background()
	res, err := TranspileAll(ctx, src, "**/*.ruchy", out, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/math.ruchy", "main.ruchy"}, res.Written)
	assert.Empty(t, res.Skipped)

	code, err := os.ReadFile(filepath.Join(out, "main.rs"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rustfmt.LineCount(string(code)), 6)
	assert.Contains(t, string(code), "fn double(x: i64) -> i64 {")
	assert.FileExists(t, filepath.Join(out, "lib", "math.rs"))
	assert.NoFileExists(t, filepath.Join(out, "notes.rs"))

	// Unchanged sources are skipped.
	res, err = TranspileAll(ctx, src, "**/*.ruchy", out, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Written)
	assert.Equal(t, []string{"lib/math.ruchy", "main.ruchy"}, res.Skipped)

	// Touching one source rebuilds only that file.
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(src, "main.ruchy"), future, future))
	res, err = TranspileAll(ctx, src, "**/*.ruchy", out, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.ruchy"}, res.Written)
	assert.Equal(t, []string{"lib/math.ruchy"}, res.Skipped)
}

func TestTranspileAllForce(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeFile(t, filepath.Join(src, "a.ruchy"), "1 + 1\n")

	_, err := TranspileAll(context.Background(), src, "*.ruchy", out, Options{})
	require.NoError(t, err)
	res, err := TranspileAll(context.Background(), src, "*.ruchy", out, Options{Force: true, Extension: "rs"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.ruchy"}, res.Written)
}

func TestTranspileAllDeterministic(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "p.ruchy"), "struct Point { x: int, y: int }\nfn norm(p) { p.x * p.x + p.y * p.y }\nnorm(Point { x: 3, y: 4 })\n")

	var outputs []string
	for i := 0; i < 3; i++ {
		out := t.TempDir()
		_, err := TranspileAll(context.Background(), src, "*.ruchy", out, Options{})
		require.NoError(t, err)
		data, err := os.ReadFile(filepath.Join(out, "p.rs"))
		require.NoError(t, err)
		outputs = append(outputs, string(data))
	}
	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[1], outputs[2])
}

func TestTranspileAllErrors(t *testing.T) {
	t.Run("parse error names the file", func(t *testing.T) {
		src := t.TempDir()
		writeFile(t, filepath.Join(src, "bad.ruchy"), "let = 1\n")
		var stderr bytes.Buffer
		_, err := TranspileAll(context.Background(), src, "*.ruchy", t.TempDir(), Options{Stderr: &stderr})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.ruchy")
		assert.Contains(t, stderr.String(), "[ERROR]")
	})

	t.Run("bad pattern", func(t *testing.T) {
		_, err := TranspileAll(context.Background(), t.TempDir(), "[", t.TempDir(), Options{})
		assert.ErrorIs(t, err, ErrBadPattern)
	})

	t.Run("missing source dir", func(t *testing.T) {
		_, err := TranspileAll(context.Background(), filepath.Join(t.TempDir(), "nope"), "*.ruchy", t.TempDir(), Options{})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("cancelled", func(t *testing.T) {
		src := t.TempDir()
		writeFile(t, filepath.Join(src, "a.ruchy"), "1\n")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := TranspileAll(ctx, src, "*.ruchy", t.TempDir(), Options{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestShouldSkipTranspilation(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.ruchy")
	target := filepath.Join(dir, "a.rs")
	writeFile(t, src, "1")

	assert.False(t, ShouldSkipTranspilation(src, target), "missing target")

	writeFile(t, target, "fn main() {}")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, past, past))
	assert.True(t, ShouldSkipTranspilation(src, target))

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(src, future, future))
	assert.False(t, ShouldSkipTranspilation(src, target))
}

func TestBuildLogging(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.ruchy"), "1\n")

	var stdout bytes.Buffer
	_, err := TranspileAll(context.Background(), src, "*.ruchy", t.TempDir(), Options{Stdout: &stdout})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "[INFO] transpiled")
	assert.Contains(t, stdout.String(), "1 written, 0 up to date")

	stdout.Reset()
	_, err = TranspileAll(context.Background(), src, "*.ruchy", t.TempDir(), Options{Stdout: &stdout, Quiet: true})
	require.NoError(t, err)
	assert.Empty(t, stdout.String())
}

func TestWatchRebuildsOnChange(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeFile(t, filepath.Join(src, "a.ruchy"), "1\n")

	builds := make(chan *Result, 8)
	opts := Options{AfterBuild: func(r *Result, err error) {
		if err == nil {
			builds <- r
		}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, src, "**/*.ruchy", out, opts, 20*time.Millisecond) }()

	select {
	case r := <-builds:
		assert.Equal(t, []string{"a.ruchy"}, r.Written)
	case <-time.After(5 * time.Second):
		t.Fatal("initial build did not run")
	}

	writeFile(t, filepath.Join(src, "b.ruchy"), "2\n")
	deadline := time.After(5 * time.Second)
	for rebuilt := false; !rebuilt; {
		select {
		case r := <-builds:
			rebuilt = strings.Join(r.Written, ",") == "b.ruchy"
		case <-deadline:
			t.Fatal("change did not trigger a rebuild")
		}
	}
	assert.FileExists(t, filepath.Join(out, "b.rs"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
