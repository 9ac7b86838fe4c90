package identity

import (
	"github.com/zeebo/blake3"
)

// domainKey is a 32-byte key for BLAKE3 keyed hashing. The ASCII domain name
// is zero-padded to 32 bytes. Changing a key renames every entry in that domain.
type domainKey [32]byte

var (
	accountDomainKey = domainKey{
		'm', 'p', 'i', 'd', '.', 'a', 'c', 'c', 'o', 'u', 'n', 't',
	}

	headerDomainKey = domainKey{
		'm', 'p', 'i', 'd', '.', 'h', 'e', 'a', 'd', 'e', 'r',
	}
)

// FromPublicKey derives the account identity owned by a signing public key.
func FromPublicKey(publicKey [32]byte) ID {
	return keyedHash(accountDomainKey, publicKey[:])
}

// HashHeader derives the content address of an encoded message header.
// Callers must pass the canonical (deterministic) encoding.
func HashHeader(encoded []byte) ID {
	return keyedHash(headerDomainKey, encoded)
}

func keyedHash(key domainKey, data []byte) ID {
	// NewKeyed only fails for a key that is not 32 bytes long.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("identity: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var id ID
	copy(id[:], hasher.Sum(nil))
	return id
}
