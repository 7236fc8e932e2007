package cryptodecorator

import (
	"testing"

	"cachecoord/pkg/crypto"

	"github.com/stretchr/testify/require"
)

type fakePersistent struct {
	data map[string][]byte
}

func newFakePersistent() *fakePersistent { return &fakePersistent{data: make(map[string][]byte)} }

func (f *fakePersistent) Get(key []byte) ([]byte, bool, error) {
	v, ok := f.data[string(key)]
	return v, ok, nil
}

func (f *fakePersistent) Put(key, value []byte) error {
	f.data[string(key)] = value
	return nil
}

func (f *fakePersistent) Delete(key []byte) error {
	delete(f.data, string(key))
	return nil
}

func TestEncryptingRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey(32)
	require.NoError(t, err)

	inner := newFakePersistent()
	dec := Encrypting{Key: key}
	wrapped := dec.Decorate("notes", "notes", inner, nil, nil)

	require.NoError(t, wrapped.Put([]byte("k"), []byte("hello world")))

	stored, ok, err := inner.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEqual(t, "hello world", string(stored), "backing store must never see plaintext")

	plain, ok, err := wrapped.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello world", string(plain))
}

func TestEncryptingDeleteDelegates(t *testing.T) {
	key, err := crypto.GenerateKey(16)
	require.NoError(t, err)

	inner := newFakePersistent()
	dec := Encrypting{Key: key}
	wrapped := dec.Decorate("notes", "notes", inner, nil, nil)

	require.NoError(t, wrapped.Put([]byte("k"), []byte("v")))
	require.NoError(t, wrapped.Delete([]byte("k")))

	_, ok, err := wrapped.Get([]byte("k"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEncryptingWrongKeyFailsToDecrypt(t *testing.T) {
	key1, err := crypto.GenerateKey(32)
	require.NoError(t, err)
	key2, err := crypto.GenerateKey(32)
	require.NoError(t, err)

	inner := newFakePersistent()
	require.NoError(t, Encrypting{Key: key1}.Decorate("n", "n", inner, nil, nil).Put([]byte("k"), []byte("secret")))

	_, _, err = Encrypting{Key: key2}.Decorate("n", "n", inner, nil, nil).Get([]byte("k"))
	require.Error(t, err)
}
