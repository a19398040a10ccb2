package snapshot

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRecordAndCheck(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, Config{RuchyVersion: "1.0.0", RustcVersion: "1.80.0"})
	require.NoError(t, err)

	rec, err := s.Record("arith", "2 + 3 * 4")
	require.NoError(t, err)
	assert.Equal(t, Hash(rec.RustOutput), rec.OutputHash)
	assert.Len(t, rec.OutputHash, 64)
	assert.Contains(t, rec.RustOutput, "let result = 2 + 3 * 4;")
	assert.Equal(t, "1.0.0", rec.Metadata.RuchyVersion)

	m, err := s.Check("arith", "2 + 3 * 4")
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = s.Check("arith", "2 + 3")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, rec.OutputHash, m.OldHash)
	assert.NotEqual(t, m.OldHash, m.NewHash)
	assert.False(t, m.Updated)

	m, err = s.Check("missing", "1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Empty(t, m.OldHash)
	assert.Contains(t, m.String(), "no snapshot recorded")
}

func TestDeterministicHash(t *testing.T) {
	s, err := Open(t.TempDir(), Config{})
	require.NoError(t, err)

	src := "fn double(x) { x * 2 }\nlet xs = [1, 2, 3]\nxs.map(|x| double(x))"
	var hashes []string
	for i := 0; i < 3; i++ {
		rec, err := s.Record("double", src)
		require.NoError(t, err)
		hashes = append(hashes, rec.OutputHash)
	}
	assert.Equal(t, hashes[0], hashes[1])
	assert.Equal(t, hashes[1], hashes[2])
}

func TestSaveAndReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, Config{RuchyVersion: "1.0.0"})
	require.NoError(t, err)

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s.now = fixedClock(created)
	_, err = s.Record("zeta", "1 + 1")
	require.NoError(t, err)
	_, err = s.Record("alpha", "let x = 42; x + 1")
	require.NoError(t, err)
	require.NoError(t, s.Save())

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[[tests]]")
	assert.Contains(t, string(data), "output_hash")

	reopened, err := Open(dir, Config{})
	require.NoError(t, err)
	tests := reopened.Tests()
	require.Len(t, tests, 2)
	assert.Equal(t, "alpha", tests[0].Name)
	assert.Equal(t, "zeta", tests[1].Name)
	assert.True(t, created.Equal(tests[0].Metadata.CreatedAt))
	assert.Equal(t, "1.0.0", reopened.Config().RuchyVersion)

	mismatches, err := reopened.CheckAll()
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	// Re-recording keeps the creation time and bumps the update time.
	later := created.Add(time.Hour)
	reopened.now = fixedClock(later)
	rec, err := reopened.Record("alpha", "let x = 1; x + 1")
	require.NoError(t, err)
	assert.True(t, created.Equal(rec.Metadata.CreatedAt))
	assert.True(t, later.Equal(rec.Metadata.UpdatedAt))
}

func TestUpdateMode(t *testing.T) {
	s, err := Open(t.TempDir(), Config{Update: true})
	require.NoError(t, err)
	_, err = s.Record("calc", "1 + 1")
	require.NoError(t, err)

	m, err := s.Check("calc", "2 + 2")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, m.Updated)

	rec, ok := s.Get("calc")
	require.True(t, ok)
	assert.Equal(t, "2 + 2", rec.Input)
	assert.Equal(t, m.NewHash, rec.OutputHash)
}

func TestRecordErrors(t *testing.T) {
	s, err := Open(t.TempDir(), Config{})
	require.NoError(t, err)

	_, err = s.Record("bad", "let = 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")

	assert.ErrorIs(t, s.Remove("nope"), ErrNotFound)
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/"+FileName, []byte("tests = [[["), 0o644))
	_, err := Open(dir, Config{})
	assert.Error(t, err)
}

func TestHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Hash(""))
}
