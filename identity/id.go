// Package identity defines the fixed-size addresses that name accounts and
// content-addressed entries (headers and messages) in the mpid overlay.
//
// Example:
//
//	id := identity.FromPublicKey(keys.Public)
//	fmt.Println("Account:", id.Short())
package identity

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Size is the length of an ID in bytes.
const Size = 32

// ErrInvalidID indicates a textual ID could not be parsed.
var ErrInvalidID = errors.New("invalid identity")

// ID is a 32-byte address. The overlay treats it as opaque: equality, ordering
// and XOR distance are the only operations.
type ID [Size]byte

// ParseID parses an ID from its hexadecimal string representation.
func ParseID(s string) (ID, error) {
	var id ID
	if len(s) != Size*2 {
		return id, fmt.Errorf("%w: length %d, want %d hex characters", ErrInvalidID, len(s), Size*2)
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	copy(id[:], data)
	return id, nil
}

// String returns the full hexadecimal representation.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns the hex encoding of the first 8 bytes, for logs.
func (id ID) Short() string {
	return hex.EncodeToString(id[:8])
}

// IsZero reports whether id is the all-zero address.
func (id ID) IsZero() bool {
	return id == ID{}
}

// CID renders the ID as a CIDv1 with the raw codec and a BLAKE3 multihash.
// The digest bytes are the ID itself; no hashing takes place.
func (id ID) CID() (cid.Cid, error) {
	mh, err := multihash.Encode(id[:], multihash.BLAKE3)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// Compare orders IDs bytewise. It returns -1, 0 or +1.
func Compare(a, b ID) int {
	return bytes.Compare(a[:], b[:])
}

// Sort orders ids in place, bytewise ascending. Anything that iterates a set
// of IDs into wire content must sort first so replicas emit identical bytes.
func Sort(ids []ID) {
	sort.Slice(ids, func(i, j int) bool { return Compare(ids[i], ids[j]) < 0 })
}

// Distance returns the XOR distance between a and b.
func Distance(a, b ID) ID {
	var d ID
	for i := range d {
		d[i] = a[i] ^ b[i]
	}
	return d
}

// Closer reports whether a is strictly closer to target than b in XOR space.
func Closer(target, a, b ID) bool {
	da := Distance(target, a)
	db := Distance(target, b)
	return Compare(da, db) < 0
}
