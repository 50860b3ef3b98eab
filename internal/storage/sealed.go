package storage

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	saltSize  = 16
	nonceSize = 24
	keySize   = 32

	argonTime    = 1
	argonMemory  = 19 * 1024
	argonThreads = 1
)

var ErrSealedOpen = errors.New("sealed record could not be opened")

// SealedCodec encrypts records with a key derived from a passphrase. Each file
// carries its own salt and nonce: salt | nonce | secretbox.
type SealedCodec struct {
	passphrase []byte
}

func NewSealedCodec(passphrase string) (*SealedCodec, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase is required")
	}
	return &SealedCodec{passphrase: []byte(passphrase)}, nil
}

func (c *SealedCodec) Extension() string {
	return ".sealed"
}

func (c *SealedCodec) key(salt []byte) *[keySize]byte {
	var key [keySize]byte
	copy(key[:], argon2.IDKey(c.passphrase, salt, argonTime, argonMemory, argonThreads, keySize))
	return &key
}

func (c *SealedCodec) Encode(plain []byte) ([]byte, error) {
	header := make([]byte, saltSize+nonceSize)
	if _, err := io.ReadFull(rand.Reader, header); err != nil {
		return nil, fmt.Errorf("reading random header: %w", err)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], header[saltSize:])

	return secretbox.Seal(header, plain, &nonce, c.key(header[:saltSize])), nil
}

func (c *SealedCodec) Decode(stored []byte) ([]byte, error) {
	if len(stored) < saltSize+nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("sealed record too short (%d bytes)", len(stored))
	}

	var nonce [nonceSize]byte
	copy(nonce[:], stored[saltSize:saltSize+nonceSize])

	plain, ok := secretbox.Open(nil, stored[saltSize+nonceSize:], &nonce, c.key(stored[:saltSize]))
	if !ok {
		return nil, ErrSealedOpen
	}
	return plain, nil
}
