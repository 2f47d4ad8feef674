package sqlitekv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetAbsentKey(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.Get("babies")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetGetOverwrite(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("babies", `[{"id":"baby-1"}]`))

	value, ok, err := s.Get("babies")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[{"id":"baby-1"}]`, value)

	// Every persist is a full overwrite.
	require.NoError(t, s.Set("babies", `[]`))
	value, ok, err = s.Get("babies")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[]`, value)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("settings", `{}`))
	require.NoError(t, s.Delete("settings"))

	_, ok, err := s.Get("settings")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Delete("settings"))
}

func TestClear(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("babies", `[]`))
	require.NoError(t, s.Set("events", `[]`))
	require.NoError(t, s.Clear())

	for _, key := range []string{"babies", "events"} {
		_, ok, err := s.Get(key)
		require.NoError(t, err)
		require.False(t, ok)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("events", `["x"]`))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	value, ok, err := s.Get("events")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `["x"]`, value)
}
