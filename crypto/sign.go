package crypto

import (
	"errors"

	"golang.org/x/crypto/nacl/sign"
)

// SignatureSize is the size of a detached signature in bytes.
const SignatureSize = sign.Overhead

// ErrInvalidSignature indicates a signature of the wrong length.
var ErrInvalidSignature = errors.New("invalid signature length")

// Sign produces a detached signature over message.
func Sign(message []byte, keyPair *KeyPair) []byte {
	signed := sign.Sign(nil, message, &keyPair.Private)
	signature := make([]byte, SignatureSize)
	copy(signature, signed[:SignatureSize])
	return signature
}

// Verify checks a detached signature over message.
func Verify(message, signature []byte, publicKey PublicKey) (bool, error) {
	if len(signature) != SignatureSize {
		return false, ErrInvalidSignature
	}

	signed := make([]byte, 0, len(signature)+len(message))
	signed = append(signed, signature...)
	signed = append(signed, message...)

	pub := [PublicKeySize]byte(publicKey)
	_, ok := sign.Open(nil, signed, &pub)
	return ok, nil
}
