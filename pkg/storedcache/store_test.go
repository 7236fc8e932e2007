package storedcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorePutGetDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "widgets")
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Get([]byte("missing"))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Put([]byte("a"), []byte("alpha")))
	require.NoError(t, s.Put([]byte("b"), []byte("beta")))

	v, ok, err := s.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alpha", string(v))

	require.Equal(t, 2, s.Len())

	require.NoError(t, s.Delete([]byte("a")))
	_, ok, err = s.Get([]byte("a"))
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, s.Len())
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "widgets")
	require.NoError(t, err)
	require.NoError(t, s.Put([]byte("k"), []byte("v")))
	require.NoError(t, s.Close())

	reopened, err := Open(dir, "widgets")
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", string(v))
}

func TestExistsReflectsInitialization(t *testing.T) {
	dir := t.TempDir()
	require.False(t, Exists(dir, "fresh"))

	s, err := Open(dir, "fresh")
	require.NoError(t, err)
	require.NoError(t, s.Put([]byte("k"), []byte("v")))
	require.NoError(t, s.Close())

	require.True(t, Exists(dir, "fresh"))
}

func TestInitializerRequiresInitializationThenSatisfied(t *testing.T) {
	dir := t.TempDir()
	init := Initializer{Dir: dir, Name: "notes"}

	needs, err := init.RequiresInitialization(nil)
	require.NoError(t, err)
	require.True(t, needs)

	require.NoError(t, init.Initialize(nil))

	needs, err = init.RequiresInitialization(nil)
	require.NoError(t, err)
	require.False(t, needs)
}
