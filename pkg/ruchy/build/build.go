// Package build transpiles a tree of .ruchy files to Rust incrementally.
//
// A target is rewritten only when it is missing or older than its source,
// so repeated builds of an unchanged tree write nothing. Files are visited
// in lexical order, which makes two runs over the same inputs and mtimes
// produce identical output.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/parser"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/rustfmt"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/transpiler"
)

// DefaultExtension is the extension given to generated files.
const DefaultExtension = ".rs"

// Options control one build.
type Options struct {
	Extension string    // target extension, ".rs" when empty
	Force     bool      // rebuild even when the target is newer
	Quiet     bool      // suppress [INFO] lines
	Stdout    io.Writer // [INFO] lines
	Stderr    io.Writer // [WARN] and [ERROR] lines

	// AfterBuild is called by Watch after every rebuild.
	AfterBuild func(*Result, error)
}

// Result reports which sources were written and which were up to date.
// Paths are relative to the source directory, slash separated.
type Result struct {
	Written []string
	Skipped []string
}

// ErrBadPattern is returned for a glob that doublestar cannot parse.
var ErrBadPattern = doublestar.ErrBadPattern

// TranspileAll expands pattern inside sourceDir and transpiles every match
// into outputDir, mirroring the relative layout. The first file that fails
// to read, parse, transpile or write stops the build; the error names the
// source path.
func TranspileAll(ctx context.Context, sourceDir, pattern, outputDir string, opts Options) (*Result, error) {
	b := newBuilder(opts)
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("glob %q: %w", pattern, ErrBadPattern)
	}

	sources, err := b.expand(sourceDir, pattern)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, rel := range sources {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		src := filepath.Join(sourceDir, filepath.FromSlash(rel))
		target := filepath.Join(outputDir, filepath.FromSlash(replaceExt(rel, b.ext)))

		if !opts.Force && ShouldSkipTranspilation(src, target) {
			result.Skipped = append(result.Skipped, rel)
			continue
		}
		if err := TranspileFile(src, target); err != nil {
			b.logError("%v", err)
			return result, err
		}
		b.logInfo("transpiled %s -> %s", src, target)
		result.Written = append(result.Written, rel)
	}
	b.logInfo("build finished: %d written, %d up to date", len(result.Written), len(result.Skipped))
	return result, nil
}

// ShouldSkipTranspilation reports whether target exists and is at least as
// new as source.
func ShouldSkipTranspilation(source, target string) bool {
	srcInfo, err := os.Stat(source)
	if err != nil {
		return false
	}
	targetInfo, err := os.Stat(target)
	if err != nil {
		return false
	}
	return !targetInfo.ModTime().Before(srcInfo.ModTime())
}

// TranspileFile runs the whole pipeline for one file and writes target,
// creating parent directories as needed.
func TranspileFile(source, target string) error {
	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	code, err := TranspileSource(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	if err := os.WriteFile(target, []byte(code), 0o644); err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	return nil
}

// TranspileSource turns Ruchy source into formatted Rust.
func TranspileSource(src string) (string, error) {
	expr, errs := parser.Parse(src)
	if len(errs) > 0 {
		return "", errs[0]
	}
	ts, err := transpiler.New().TranspileToProgram(expr)
	if err != nil {
		return "", err
	}
	code, err := rustfmt.Format(ts.String())
	if err != nil {
		return "", fmt.Errorf("generated code is not valid Rust: %w", err)
	}
	return code, nil
}

type builder struct {
	ext    string
	quiet  bool
	stdout io.Writer
	stderr io.Writer
}

func newBuilder(opts Options) *builder {
	b := &builder{ext: opts.Extension, quiet: opts.Quiet, stdout: opts.Stdout, stderr: opts.Stderr}
	if b.ext == "" {
		b.ext = DefaultExtension
	}
	if !strings.HasPrefix(b.ext, ".") {
		b.ext = "." + b.ext
	}
	if b.stdout == nil {
		b.stdout = io.Discard
	}
	if b.stderr == nil {
		b.stderr = io.Discard
	}
	return b
}

// expand returns the regular files under dir matching pattern, sorted.
// Entries that cannot be inspected are logged and skipped.
func (b *builder) expand(dir, pattern string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source directory %s: not a directory", dir)
	}

	var matches []string
	err = doublestar.GlobWalk(os.DirFS(dir), pattern, func(path string, d fs.DirEntry) error {
		if _, err := d.Info(); err != nil {
			b.logWarn("skipping %s: %v", path, err)
			return nil
		}
		matches = append(matches, path)
		return nil
	}, doublestar.WithFilesOnly())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// replaceExt swaps the extension of a slash-separated path.
func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func (b *builder) logInfo(format string, args ...any) {
	if b.quiet {
		return
	}
	fmt.Fprintf(b.stdout, "[INFO] "+format+"\n", args...)
}

func (b *builder) logWarn(format string, args ...any) {
	fmt.Fprintf(b.stderr, "[WARN] "+format+"\n", args...)
}

func (b *builder) logError(format string, args ...any) {
	fmt.Fprintf(b.stderr, "[ERROR] "+format+"\n", args...)
}
