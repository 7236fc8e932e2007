// Package cryptodecorator provides a CacheDecorator that transparently
// encrypts values with AES-GCM before they reach the backing store.
package cryptodecorator

import (
	"encoding/binary"
	"fmt"

	"cachecoord/pkg/cacheaccess"
	"cachecoord/pkg/crypto"
)

// Encrypting is a CacheDecorator that wraps a cache's values in an AES-GCM
// envelope. Unlike the teacher's RSA key-wrap handshake (which existed to
// distribute a data key from one process to many over a network session),
// this coordinator has no cross-process key distribution channel of its
// own — each process holds its own Key, generated once via
// cachecoord/pkg/crypto.GenerateKey and supplied at construction. Key must
// therefore be provisioned out of band (e.g. the same configuration file
// every cooperating process reads) when the encrypted cache is meant to be
// read by more than one process.
type Encrypting struct {
	Key []byte // 16, 24, or 32 bytes
}

// Decorate wraps persistent so every Put encrypts and every Get decrypts.
// cross and async are accepted to satisfy cacheaccess.CacheDecorator but
// unused: encryption needs no lock-guarded side channel and nothing to run
// asynchronously, only the underlying cache.
func (e Encrypting) Decorate(id, name string, persistent cacheaccess.PersistentCache, cross cacheaccess.CrossProcessCacheAccess, async cacheaccess.AsyncCacheAccess) cacheaccess.PersistentCache {
	return &encryptingCache{key: e.Key, inner: persistent}
}

type encryptingCache struct {
	key   []byte
	inner cacheaccess.PersistentCache
}

// envelope layout: [4-byte nonce length][nonce][4-byte tag length][tag][ciphertext]
func encodeEnvelope(r *crypto.EncryptResult) []byte {
	buf := make([]byte, 4+len(r.Nonce)+4+len(r.Tag)+len(r.Ciphertext))
	off := 0
	binary.BigEndian.PutUint32(buf[off:], uint32(len(r.Nonce)))
	off += 4
	off += copy(buf[off:], r.Nonce)
	binary.BigEndian.PutUint32(buf[off:], uint32(len(r.Tag)))
	off += 4
	off += copy(buf[off:], r.Tag)
	copy(buf[off:], r.Ciphertext)
	return buf
}

func decodeEnvelope(b []byte) (nonce, tag, ciphertext []byte, err error) {
	if len(b) < 8 {
		return nil, nil, nil, fmt.Errorf("cryptodecorator: envelope too short")
	}
	nonceLen := binary.BigEndian.Uint32(b[0:4])
	off := 4
	if uint32(len(b)-off) < nonceLen {
		return nil, nil, nil, fmt.Errorf("cryptodecorator: truncated nonce")
	}
	nonce = b[off : off+int(nonceLen)]
	off += int(nonceLen)

	if len(b)-off < 4 {
		return nil, nil, nil, fmt.Errorf("cryptodecorator: envelope too short for tag length")
	}
	tagLen := binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	if uint32(len(b)-off) < tagLen {
		return nil, nil, nil, fmt.Errorf("cryptodecorator: truncated tag")
	}
	tag = b[off : off+int(tagLen)]
	off += int(tagLen)

	ciphertext = b[off:]
	return nonce, tag, ciphertext, nil
}

func (c *encryptingCache) Get(key []byte) ([]byte, bool, error) {
	raw, ok, err := c.inner.Get(key)
	if err != nil || !ok {
		return nil, ok, err
	}
	nonce, tag, ciphertext, err := decodeEnvelope(raw)
	if err != nil {
		return nil, false, err
	}
	plaintext, err := crypto.Decrypt(c.key, ciphertext, nonce, tag)
	if err != nil {
		return nil, false, fmt.Errorf("cryptodecorator: decrypt: %w", err)
	}
	return plaintext, true, nil
}

func (c *encryptingCache) Put(key, value []byte) error {
	result, err := crypto.Encrypt(c.key, value)
	if err != nil {
		return fmt.Errorf("cryptodecorator: encrypt: %w", err)
	}
	return c.inner.Put(key, encodeEnvelope(result))
}

func (c *encryptingCache) Delete(key []byte) error {
	return c.inner.Delete(key)
}
