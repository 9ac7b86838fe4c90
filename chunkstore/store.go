// Package chunkstore provides the content stores a manager persists mailbox
// entries into. A store is an opaque map from identity.ID to bytes; callers
// choose the key (the content address of the stored header or message).
package chunkstore

import (
	"errors"

	"github.com/opd-ai/mpid/identity"
)

var (
	// ErrNotFound indicates the id is absent from the store.
	ErrNotFound = errors.New("chunkstore: not found")
	// ErrImmutable indicates a put of different bytes under an existing id.
	ErrImmutable = errors.New("chunkstore: immutable entry mismatch")
	// ErrCorrupt indicates stored bytes that could not be read back.
	ErrCorrupt = errors.New("chunkstore: corrupt entry")
)

// Store is a keyed byte store.
//
// Contract:
//   - Put is idempotent for identical bytes and fails with ErrImmutable otherwise.
//   - Get returns ErrNotFound when the id is absent.
//   - Names lists every stored id in bytewise order.
type Store interface {
	Has(id identity.ID) bool
	Get(id identity.ID) ([]byte, error)
	Put(id identity.ID, data []byte) error
	Delete(id identity.ID) error
	Names() ([]identity.ID, error)
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
