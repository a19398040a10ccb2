package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// CompressedExt marks zstd-compressed session files.
const CompressedExt = ".zst"

// Decode reads a JSON session.
func Decode(r io.Reader) (*Session, error) {
	var s Session
	dec := json.NewDecoder(r)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing replay session: %w", err)
	}
	if s.Checkpoints == nil {
		s.Checkpoints = map[EventID]StateCheckpoint{}
	}
	return &s, nil
}

// Encode writes s as indented JSON.
func Encode(w io.Writer, s *Session) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// Load reads a session file, decompressing it when the name ends in .zst.
func Load(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading replay file: %w", err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, CompressedExt) {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}
	s, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Save writes a session file, compressing it when the name ends in .zst.
func Save(path string, s *Session) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing replay file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if !strings.HasSuffix(path, CompressedExt) {
		return Encode(f, s)
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if err := Encode(zw, s); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// IsSessionFile reports whether path looks like a replay session.
func IsSessionFile(path string) bool {
	return strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".json"+CompressedExt)
}

// SessionName derives a test name prefix from a session file name.
func SessionName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, CompressedExt)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" {
		return "unnamed"
	}
	return base
}

// ListSessions returns the session files in dir, sorted.
func ListSessions(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && IsSessionFile(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
