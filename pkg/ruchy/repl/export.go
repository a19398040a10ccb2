package repl

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// ExportFormat selects how :export renders a transcript.
type ExportFormat int

const (
	ExportSource ExportFormat = iota
	ExportMarkdown
	ExportHTML
)

// ExportFormatFor picks the format from a file extension.
func ExportFormatFor(path string) ExportFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return ExportMarkdown
	case ".html", ".htm":
		return ExportHTML
	}
	return ExportSource
}

// Export renders entries. Source exports keep only inputs that evaluated
// without error; the other formats show every input with its output.
func Export(entries []Entry, format ExportFormat) ([]byte, error) {
	switch format {
	case ExportMarkdown:
		return []byte(markdownTranscript(entries)), nil
	case ExportHTML:
		return htmlTranscript(entries)
	}
	var b strings.Builder
	b.WriteString("// Exported from a Ruchy REPL session\n\n")
	for _, e := range entries {
		if e.Failed || strings.HasPrefix(strings.TrimSpace(e.Command), ":") {
			continue
		}
		b.WriteString(e.Command)
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

func markdownTranscript(entries []Entry) string {
	var b strings.Builder
	b.WriteString("# Ruchy session\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "\n## In [%d]\n\n", i+1)
		b.WriteString(fence("ruchy", e.Command))
		switch {
		case e.Failed:
			b.WriteString("\n**Error**\n\n")
			b.WriteString(fence("text", e.Output))
		case e.Output != "":
			b.WriteString("\n")
			b.WriteString(fence("text", e.Output))
		}
	}
	return b.String()
}

// fence wraps body in a code fence long enough not to collide with any
// backtick run inside it.
func fence(lang, body string) string {
	marker := "```"
	for strings.Contains(body, marker) {
		marker += "`"
	}
	return marker + lang + "\n" + strings.TrimRight(body, "\n") + "\n" + marker + "\n"
}

func htmlTranscript(entries []Entry) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var body bytes.Buffer
	if err := md.Convert([]byte(markdownTranscript(entries)), &body); err != nil {
		return nil, fmt.Errorf("rendering transcript: %w", err)
	}
	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Ruchy session</title>\n</head>\n<body>\n")
	b.Write(body.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.Bytes(), nil
}
