package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/nacl/sign"
)

// PublicKeySize is the size of a signing public key in bytes.
const PublicKeySize = 32

// PublicKey is a NaCl signing public key.
type PublicKey [PublicKeySize]byte

// KeyPair represents a NaCl crypto_sign key pair.
type KeyPair struct {
	Public  PublicKey
	Private [64]byte
}

// GenerateKeyPair creates a new random signing key pair.
func GenerateKeyPair() (*KeyPair, error) {
	publicKey, privateKey, err := sign.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	return &KeyPair{
		Public:  *publicKey,
		Private: *privateKey,
	}, nil
}

// FromSeed deterministically derives a key pair from a 32-byte seed.
// NaCl signing keys are Ed25519 keys, so the standard seed expansion applies.
func FromSeed(seed [32]byte) (*KeyPair, error) {
	if isZeroKey(seed) {
		return nil, errors.New("invalid seed: all zeros")
	}

	privateKey := ed25519.NewKeyFromSeed(seed[:])

	keyPair := &KeyPair{}
	copy(keyPair.Private[:], privateKey)
	copy(keyPair.Public[:], privateKey.Public().(ed25519.PublicKey))
	return keyPair, nil
}

// isZeroKey checks if a key consists of all zeros.
func isZeroKey(key [32]byte) bool {
	for _, b := range key {
		if b != 0 {
			return false
		}
	}
	return true
}
