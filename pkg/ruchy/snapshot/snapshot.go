// Package snapshot records transpiler output for Ruchy programs and checks
// later runs against it.
//
// Snapshots live in <dir>/snapshots.toml. Each entry keeps the input, the
// generated Rust and the SHA-256 of that Rust; a check re-transpiles the
// input and compares hashes.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/build"
)

// FileName is the snapshot file inside the snapshot directory.
const FileName = "snapshots.toml"

// Metadata records when and with what a snapshot was taken.
type Metadata struct {
	CreatedAt    time.Time `toml:"created_at"`
	UpdatedAt    time.Time `toml:"updated_at"`
	RuchyVersion string    `toml:"ruchy_version"`
	RustcVersion string    `toml:"rustc_version"`
}

// Test is one recorded snapshot.
type Test struct {
	Name       string   `toml:"name"`
	Input      string   `toml:"input"`
	OutputHash string   `toml:"output_hash"`
	RustOutput string   `toml:"rust_output"`
	Metadata   Metadata `toml:"metadata"`
}

// Config is stored alongside the tests.
type Config struct {
	Update       bool   `toml:"update"`
	RuchyVersion string `toml:"ruchy_version"`
	RustcVersion string `toml:"rustc_version"`
}

type file struct {
	Tests  []Test `toml:"tests"`
	Config Config `toml:"config"`
}

// Mismatch describes a snapshot whose current output differs.
type Mismatch struct {
	Name    string
	OldHash string // empty when no snapshot was recorded
	NewHash string
	Updated bool // rewritten because update mode is on
}

func (m Mismatch) String() string {
	if m.OldHash == "" {
		return fmt.Sprintf("%s: no snapshot recorded", m.Name)
	}
	return fmt.Sprintf("%s: hash %s, want %s", m.Name, short(m.NewHash), short(m.OldHash))
}

// Store is an open snapshot file.
type Store struct {
	dir       string
	data      file
	now       func() time.Time
	transpile func(string) (string, error)
}

// ErrNotFound is returned when a named snapshot does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Open reads <dir>/snapshots.toml, starting empty when it does not exist.
// A non-zero cfg overrides the stored config.
func Open(dir string, cfg Config) (*Store, error) {
	s := &Store{dir: dir, now: time.Now, transpile: build.TranspileSource}
	data, err := os.ReadFile(s.Path())
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading snapshots: %w", err)
	default:
		if err := toml.Unmarshal(data, &s.data); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", s.Path(), err)
		}
	}
	if cfg != (Config{}) {
		s.data.Config = cfg
	}
	return s, nil
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Config returns the active configuration.
func (s *Store) Config() Config { return s.data.Config }

// Tests returns the recorded snapshots sorted by name.
func (s *Store) Tests() []Test {
	out := append([]Test(nil), s.data.Tests...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns the snapshot called name.
func (s *Store) Get(name string) (Test, bool) {
	if i := s.index(name); i >= 0 {
		return s.data.Tests[i], true
	}
	return Test{}, false
}

// Record transpiles input and stores the result under name, replacing any
// earlier snapshot but keeping its creation time.
func (s *Store) Record(name, input string) (Test, error) {
	out, err := s.transpile(input)
	if err != nil {
		return Test{}, fmt.Errorf("%s: %w", name, err)
	}
	now := s.now().UTC().Truncate(time.Second)
	t := Test{
		Name:       name,
		Input:      input,
		OutputHash: Hash(out),
		RustOutput: out,
		Metadata: Metadata{
			CreatedAt:    now,
			UpdatedAt:    now,
			RuchyVersion: s.data.Config.RuchyVersion,
			RustcVersion: s.data.Config.RustcVersion,
		},
	}
	if i := s.index(name); i >= 0 {
		t.Metadata.CreatedAt = s.data.Tests[i].Metadata.CreatedAt
		s.data.Tests[i] = t
	} else {
		s.data.Tests = append(s.data.Tests, t)
	}
	return t, nil
}

// Check transpiles input and compares it with the snapshot called name.
// It returns nil when they agree. In update mode a differing or missing
// snapshot is re-recorded and the mismatch is still reported.
func (s *Store) Check(name, input string) (*Mismatch, error) {
	out, err := s.transpile(input)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	m := &Mismatch{Name: name, NewHash: Hash(out)}
	if old, ok := s.Get(name); ok {
		if old.OutputHash == m.NewHash {
			return nil, nil
		}
		m.OldHash = old.OutputHash
	}
	if s.data.Config.Update {
		if _, err := s.Record(name, input); err != nil {
			return nil, err
		}
		m.Updated = true
	}
	return m, nil
}

// CheckAll re-checks every recorded snapshot against its stored input.
func (s *Store) CheckAll() ([]Mismatch, error) {
	var out []Mismatch
	for _, t := range s.Tests() {
		m, err := s.Check(t.Name, t.Input)
		if err != nil {
			return out, err
		}
		if m != nil {
			out = append(out, *m)
		}
	}
	return out, nil
}

// Remove deletes the snapshot called name.
func (s *Store) Remove(name string) error {
	i := s.index(name)
	if i < 0 {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	s.data.Tests = append(s.data.Tests[:i], s.data.Tests[i+1:]...)
	return nil
}

// Save writes the snapshot file with tests sorted by name.
func (s *Store) Save() error {
	s.data.Tests = s.Tests()
	data, err := toml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encoding snapshots: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	if err := os.WriteFile(s.Path(), data, 0o644); err != nil {
		return fmt.Errorf("writing snapshots: %w", err)
	}
	return nil
}

func (s *Store) index(name string) int {
	for i, t := range s.data.Tests {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// Hash returns the lowercase hex SHA-256 of output.
func Hash(output string) string {
	sum := sha256.Sum256([]byte(output))
	return hex.EncodeToString(sum[:])
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
